// Package disasm renders method bodies as stable text listings and builds
// per-method control flow graphs from them.
package disasm

import (
	"fmt"
	"strings"

	"deobf/internal/model"
	"deobf/internal/symtab"
)

// Inst is one real instruction of a method body with its listing text.
type Inst struct {
	Index    int           // position among real instructions
	Insn     *model.Insn   // the instruction itself
	Line     int           // source line in effect, 0 if unknown
	Labels   []*model.Insn // labels that resolve to this instruction
	Mnemonic string
	Operands string
	Text     string // full listing line
}

// SymbolLookup resolves the member or type an instruction references to its
// renamed form. Returns ("", false) if nothing it references was renamed.
type SymbolLookup func(in *model.Insn) (name string, ok bool)

// Options controls listing behavior.
type Options struct {
	MaxSteps int // maximum instructions to list; 0 = 1M
}

const defaultMaxSteps = 1_000_000

func (o Options) effectiveMax() int {
	if o.MaxSteps > 0 {
		return o.MaxSteps
	}
	return defaultMaxSteps
}

// Disassemble lists the real instructions of m. Labels attach to the
// instruction they precede; line markers set Line on what follows them.
func Disassemble(m *model.Method, opts Options) []Inst {
	if m == nil || m.Insns == nil {
		return nil
	}
	maxSteps := opts.effectiveMax()

	var (
		result  []Inst
		pending []*model.Insn
		line    int
	)
	for in := m.Insns.First(); in != nil && len(result) < maxSteps; in = in.Next() {
		switch in.Kind {
		case model.InsnLabel:
			pending = append(pending, in)
			continue
		case model.InsnLine:
			line = in.Line
			continue
		case model.InsnFrame:
			continue
		}
		text := in.String()
		mnemonic, operands, _ := strings.Cut(text, " ")
		result = append(result, Inst{
			Index:    len(result),
			Insn:     in,
			Line:     line,
			Labels:   pending,
			Mnemonic: mnemonic,
			Operands: operands,
			Text:     text,
		})
		pending = nil
	}
	return result
}

// Format renders a listing as stable text output.
// Each line: <index>  <line>  <instruction>  ; <comments>
// Annotators are checked in order; first non-empty result is used.
func Format(insts []Inst, lookup SymbolLookup, annotators ...Annotator) string {
	var b strings.Builder
	for _, inst := range insts {
		for _, l := range inst.Labels {
			fmt.Fprintf(&b, "%s\n", l)
		}
		fmt.Fprintf(&b, "%04d  ", inst.Index)
		if inst.Line > 0 {
			fmt.Fprintf(&b, "%5d  ", inst.Line)
		} else {
			b.WriteString("    -  ")
		}
		b.WriteString(inst.Text)
		commented := false
		if lookup != nil {
			if name, ok := lookup(inst.Insn); ok {
				fmt.Fprintf(&b, "  ; <%s>", name)
				commented = true
			}
		}
		if !commented {
			for _, ann := range annotators {
				if s := ann(inst); s != "" {
					fmt.Fprintf(&b, "  ; %s", s)
					break
				}
			}
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// TableLookup returns a SymbolLookup that resolves references through the
// renames recorded in t. Unrenamed parts keep their obfuscated names.
func TableLookup(t *symtab.Table) SymbolLookup {
	class := func(name string) (string, bool) {
		if renamed, ok := t.Class(name); ok {
			return renamed, true
		}
		return name, false
	}
	return func(in *model.Insn) (string, bool) {
		switch in.Kind {
		case model.InsnType:
			if in.Type == "" {
				return "", false
			}
			elem := strings.TrimLeft(in.Type, "[")
			if name, ok := model.ObjectType(elem); ok {
				elem = name
			}
			if renamed, ok := t.Class(elem); ok {
				return renamed, true
			}
		case model.InsnField, model.InsnMethod:
			owner, ownerOK := class(in.Owner)
			var (
				name   string
				nameOK bool
			)
			if in.Kind == model.InsnField {
				name, nameOK = t.Field(in.Owner, in.Name, in.Desc)
			} else {
				name, nameOK = t.Method(in.Owner, in.Name, in.Desc)
			}
			if !nameOK {
				name = in.Name
			}
			if ownerOK || nameOK {
				return owner + "." + name, true
			}
		}
		return "", false
	}
}
