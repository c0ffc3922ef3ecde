package loader

import (
	"io"
	"strconv"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"deobf/internal/model"
)

// Export converts p back into a dump. Unnamed labels get L0, L1, ... per
// method.
func Export(p *model.Program) *Dump {
	d := &Dump{Version: p.Version}
	for _, c := range p.Classes() {
		cd := ClassDef{
			Name:       c.Name,
			Super:      c.Super,
			Interfaces: c.Interfaces,
			Access:     Access(c.Access),
			Signature:  c.Signature,
		}
		if c.Outer != nil {
			cd.Outer = &OuterDef{Owner: c.Outer.Owner, Method: c.Outer.Method, Desc: c.Outer.Desc}
		}
		for _, in := range c.InnerClasses {
			cd.Inner = append(cd.Inner, InnerDef{Name: in.Name, Outer: in.Outer, Simple: in.Simple, Access: Access(in.Access)})
		}
		for _, f := range c.Fields {
			cd.Fields = append(cd.Fields, FieldDef{Name: f.Name, Desc: f.Desc, Access: Access(f.Access), Signature: f.Signature})
		}
		for _, m := range c.Methods {
			md := MethodDef{
				Name:      m.Name,
				Desc:      m.Desc,
				Access:    Access(m.Access),
				Signature: m.Signature,
				Code:      encodeCode(m),
			}
			for _, lv := range m.Locals {
				md.Locals = append(md.Locals, LocalDef{Index: lv.Index, Name: lv.Name, Desc: lv.Desc, Signature: lv.Signature})
			}
			for _, prm := range m.Params {
				md.Params = append(md.Params, prm.Name)
			}
			cd.Methods = append(cd.Methods, md)
		}
		d.Classes = append(d.Classes, cd)
	}
	return d
}

// Write encodes p as YAML to w.
func Write(w io.Writer, p *model.Program) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(Export(p)); err != nil {
		return errors.Wrap(err, "loader: encode")
	}
	return errors.Wrap(enc.Close(), "loader: encode")
}

func (a Access) MarshalYAML() (any, error) { return int(a), nil }

func encodeCode(m *model.Method) [][]any {
	if m.Insns == nil || m.Insns.Len() == 0 {
		return nil
	}
	names := make(map[*model.Insn]string)
	used := make(map[string]bool)
	label := func(l *model.Insn) string {
		if name, ok := names[l]; ok {
			return name
		}
		name := l.Name
		for n := len(names); name == "" || used[name]; n++ {
			name = "L" + strconv.Itoa(n)
		}
		names[l] = name
		used[name] = true
		return name
	}

	var rows [][]any
	for in := m.Insns.First(); in != nil; in = in.Next() {
		switch in.Kind {
		case model.InsnLabel:
			rows = append(rows, []any{"label", label(in)})
			continue
		case model.InsnLine:
			rows = append(rows, []any{"line", in.Line, label(in.Target)})
			continue
		case model.InsnFrame:
			rows = append(rows, []any{"frame"})
			continue
		}
		row := []any{model.OpcodeName(in.Op)}
		switch in.Kind {
		case model.InsnInt:
			row = append(row, in.Operand)
		case model.InsnVar:
			row = append(row, in.Var)
		case model.InsnIinc:
			row = append(row, in.Var, in.Operand)
		case model.InsnType:
			row = append(row, in.Type)
		case model.InsnField, model.InsnMethod:
			row = append(row, in.Owner, in.Name, in.Desc)
		case model.InsnDynamic:
			row = append(row, in.Name, in.Desc)
		case model.InsnJump:
			row = append(row, label(in.Target))
		case model.InsnLdc:
			row = append(row, encodeConstant(in.Const))
		case model.InsnSwitch:
			row = append(row, label(in.Target))
			if in.Op == model.TABLESWITCH {
				row = append(row, in.Keys[0], in.Keys[1])
			} else {
				row = append(row, in.Keys)
			}
			for _, t := range in.Targets {
				row = append(row, label(t))
			}
		case model.InsnMultiArray:
			row = append(row, in.Type, in.Operand)
		}
		rows = append(rows, row)
	}
	return rows
}

// encodeConstant is the inverse of constant. Strings and ints stay bare;
// doubles are tagged since an integral double would read back as an int.
func encodeConstant(c any) any {
	switch v := c.(type) {
	case string:
		return v
	case int32:
		return int(v)
	case float64:
		return map[string]any{"double": v}
	case int64:
		return map[string]any{"long": v}
	case float32:
		return map[string]any{"float": v}
	case model.TypeRef:
		return map[string]any{"type": string(v)}
	}
	return c
}
