package loader

import (
	"math"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cast"

	"deobf/internal/model"
)

// NEWARRAY element type codes.
var arrayTypes = map[string]int{
	"boolean": 4, "char": 5, "float": 6, "double": 7,
	"byte": 8, "short": 9, "int": 10, "long": 11,
}

// labels resolves label names within one method body. References may come
// before the label row.
type labels struct {
	byName map[string]*model.Insn
	placed map[string]bool
	order  []string
}

func (l *labels) ref(name string) *model.Insn {
	if in, ok := l.byName[name]; ok {
		return in
	}
	in := model.NewLabel(name)
	l.byName[name] = in
	l.order = append(l.order, name)
	return in
}

func (l *labels) place(name string) (*model.Insn, error) {
	if l.placed[name] {
		return nil, errors.Errorf("label %s defined twice", name)
	}
	l.placed[name] = true
	return l.ref(name), nil
}

// row is one code row: a mnemonic followed by operands.
type row struct {
	n    int
	name string
	args []any
}

func (r row) errorf(format string, args ...any) error {
	return errors.Errorf("row %d (%s): "+format, append([]any{r.n, r.name}, args...)...)
}

func (r row) want(n int) error {
	if len(r.args) != n {
		return r.errorf("%d operands, want %d", len(r.args), n)
	}
	return nil
}

func (r row) str(i int) (string, error) {
	s, err := cast.ToStringE(r.args[i])
	if err != nil || s == "" {
		return "", r.errorf("operand %d: want a name, got %v", i+1, r.args[i])
	}
	return s, nil
}

func (r row) num(i int) (int, error) {
	v, err := cast.ToIntE(r.args[i])
	if err != nil {
		return 0, r.errorf("operand %d: %v", i+1, err)
	}
	return v, nil
}

func decodeCode(rows [][]any) ([]*model.Insn, error) {
	l := &labels{byName: make(map[string]*model.Insn), placed: make(map[string]bool)}
	insns := make([]*model.Insn, 0, len(rows))
	for i, cells := range rows {
		if len(cells) == 0 {
			return nil, errors.Errorf("row %d: empty", i+1)
		}
		name, err := cast.ToStringE(cells[0])
		if err != nil {
			return nil, errors.Errorf("row %d: mnemonic %v", i+1, cells[0])
		}
		r := row{n: i + 1, name: strings.ToLower(name), args: cells[1:]}
		in, err := r.decode(l)
		if err != nil {
			return nil, err
		}
		insns = append(insns, in)
	}
	for _, name := range l.order {
		if !l.placed[name] {
			return nil, errors.Errorf("label %s is never defined", name)
		}
	}
	return insns, nil
}

func (r row) decode(l *labels) (*model.Insn, error) {
	switch r.name {
	case "label":
		if err := r.want(1); err != nil {
			return nil, err
		}
		name, err := r.str(0)
		if err != nil {
			return nil, err
		}
		return l.place(name)
	case "line":
		if err := r.want(2); err != nil {
			return nil, err
		}
		n, err := r.num(0)
		if err != nil {
			return nil, err
		}
		name, err := r.str(1)
		if err != nil {
			return nil, err
		}
		return model.LineNumber(n, l.ref(name)), nil
	case "frame":
		return model.NewFrame(), nil
	}

	op, ok := model.OpcodeByName(r.name)
	if !ok {
		return nil, r.errorf("unknown mnemonic")
	}
	switch model.KindOf(op) {
	case model.InsnOp:
		if err := r.want(0); err != nil {
			return nil, err
		}
		return model.Op(op), nil
	case model.InsnInt:
		if err := r.want(1); err != nil {
			return nil, err
		}
		if op == model.NEWARRAY {
			if s, ok := r.args[0].(string); ok {
				code, known := arrayTypes[s]
				if !known {
					return nil, r.errorf("unknown array type %q", s)
				}
				return model.IntInsn(op, code), nil
			}
		}
		v, err := r.num(0)
		if err != nil {
			return nil, err
		}
		return model.IntInsn(op, v), nil
	case model.InsnVar:
		if err := r.want(1); err != nil {
			return nil, err
		}
		slot, err := r.num(0)
		if err != nil {
			return nil, err
		}
		return model.VarInsn(op, slot), nil
	case model.InsnIinc:
		if err := r.want(2); err != nil {
			return nil, err
		}
		slot, err := r.num(0)
		if err != nil {
			return nil, err
		}
		inc, err := r.num(1)
		if err != nil {
			return nil, err
		}
		return model.Iinc(slot, inc), nil
	case model.InsnType:
		if err := r.want(1); err != nil {
			return nil, err
		}
		typ, err := r.str(0)
		if err != nil {
			return nil, err
		}
		return model.TypeInsn(op, typ), nil
	case model.InsnField, model.InsnMethod:
		if err := r.want(3); err != nil {
			return nil, err
		}
		var parts [3]string
		for i := range parts {
			s, err := r.str(i)
			if err != nil {
				return nil, err
			}
			parts[i] = s
		}
		if model.KindOf(op) == model.InsnField {
			return model.FieldInsn(op, parts[0], parts[1], parts[2]), nil
		}
		if _, _, err := model.ParseMethodDesc(parts[2]); err != nil {
			return nil, r.errorf("%v", err)
		}
		return model.MethodInsn(op, parts[0], parts[1], parts[2]), nil
	case model.InsnDynamic:
		if err := r.want(2); err != nil {
			return nil, err
		}
		name, err := r.str(0)
		if err != nil {
			return nil, err
		}
		desc, err := r.str(1)
		if err != nil {
			return nil, err
		}
		return model.DynamicInsn(name, desc), nil
	case model.InsnJump:
		if err := r.want(1); err != nil {
			return nil, err
		}
		name, err := r.str(0)
		if err != nil {
			return nil, err
		}
		return model.JumpInsn(op, l.ref(name)), nil
	case model.InsnLdc:
		if err := r.want(1); err != nil {
			return nil, err
		}
		c, err := constant(r.args[0])
		if err != nil {
			return nil, r.errorf("%v", err)
		}
		return model.Ldc(c), nil
	case model.InsnSwitch:
		return r.decodeSwitch(op, l)
	case model.InsnMultiArray:
		if err := r.want(2); err != nil {
			return nil, err
		}
		desc, err := r.str(0)
		if err != nil {
			return nil, err
		}
		dims, err := r.num(1)
		if err != nil {
			return nil, err
		}
		return model.MultiArray(desc, dims), nil
	}
	return nil, r.errorf("unsupported instruction")
}

// decodeSwitch reads
//
//	[tableswitch, default, min, max, target...]
//	[lookupswitch, default, [key...], target...]
func (r row) decodeSwitch(op int, l *labels) (*model.Insn, error) {
	if len(r.args) < 2 {
		return nil, r.errorf("missing default or keys")
	}
	dflt, err := r.str(0)
	if err != nil {
		return nil, err
	}
	var (
		keys  []int
		first int
	)
	if op == model.TABLESWITCH {
		if len(r.args) < 3 {
			return nil, r.errorf("missing min or max")
		}
		lo, err := r.num(1)
		if err != nil {
			return nil, err
		}
		hi, err := r.num(2)
		if err != nil {
			return nil, err
		}
		if hi < lo || len(r.args)-3 != hi-lo+1 {
			return nil, r.errorf("range %d..%d needs %d targets, got %d", lo, hi, hi-lo+1, len(r.args)-3)
		}
		keys, first = []int{lo, hi}, 3
	} else {
		keys, err = cast.ToIntSliceE(r.args[1])
		if err != nil {
			return nil, r.errorf("keys: %v", err)
		}
		if len(r.args)-2 != len(keys) {
			return nil, r.errorf("%d keys but %d targets", len(keys), len(r.args)-2)
		}
		first = 2
	}
	targets := make([]*model.Insn, 0, len(r.args)-first)
	for i := first; i < len(r.args); i++ {
		name, err := r.str(i)
		if err != nil {
			return nil, err
		}
		targets = append(targets, l.ref(name))
	}
	return model.SwitchInsn(op, l.ref(dflt), keys, targets...), nil
}

// constant converts an LDC operand. Bare strings, integers and floats load
// as String, int and double; a one-key map picks the type explicitly.
func constant(v any) (any, error) {
	switch c := v.(type) {
	case string:
		return c, nil
	case int:
		if c < math.MinInt32 || c > math.MaxInt32 {
			return nil, errors.Errorf("%d overflows int, use {long: %d}", c, c)
		}
		return int32(c), nil
	case float64:
		return c, nil
	case map[string]any:
		if len(c) != 1 {
			return nil, errors.Errorf("typed constant needs exactly one key, got %d", len(c))
		}
		for k, x := range c {
			switch k {
			case "int":
				return cast.ToInt32E(x)
			case "long":
				return cast.ToInt64E(x)
			case "float":
				return cast.ToFloat32E(x)
			case "double":
				return cast.ToFloat64E(x)
			case "string":
				return cast.ToStringE(x)
			case "type":
				s, err := cast.ToStringE(x)
				if err != nil || s == "" {
					return nil, errors.Errorf("type constant %v", x)
				}
				return model.TypeRef(s), nil
			}
			return nil, errors.Errorf("unknown constant type %q", k)
		}
	}
	return nil, errors.Errorf("unsupported constant %v (%T)", v, v)
}
