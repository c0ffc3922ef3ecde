package pattern

import "deobf/internal/model"

// Hit locates one matching instruction.
type Hit struct {
	Class  *model.Class
	Method *model.Method
	Insn   *model.Insn
}

// FindLdc returns every LDC of a constant equal to value across classes,
// in class, method and instruction order.
func FindLdc(classes []*model.Class, value any) []Hit {
	var hits []Hit
	for _, c := range classes {
		for _, m := range c.Methods {
			for in := FirstReal(m); in != nil; in = NextReal(in) {
				if in.Kind == model.InsnLdc && in.Const == value {
					hits = append(hits, Hit{Class: c, Method: m, Insn: in})
				}
			}
		}
	}
	return hits
}

// MethodsWithLdc returns the distinct methods containing an LDC of value.
func MethodsWithLdc(classes []*model.Class, value any) []*model.Method {
	var out []*model.Method
	var last *model.Method
	for _, h := range FindLdc(classes, value) {
		if h.Method != last {
			out = append(out, h.Method)
			last = h.Method
		}
	}
	return out
}

// LdcIn returns the first LDC of value in m.
func LdcIn(m *model.Method, value any) (*model.Insn, error) {
	for in := FirstReal(m); in != nil; in = NextReal(in) {
		if in.Kind == model.InsnLdc && in.Const == value {
			return in, nil
		}
	}
	return nil, ErrNotFound
}

// Calls returns the method calls in m matching the filter, in order.
func Calls(m *model.Method, op int, owner, name, desc string) []*model.Insn {
	var out []*model.Insn
	for in := FirstReal(m); in != nil; in = NextReal(in) {
		if in.Kind == model.InsnMethod && MemberMatches(in, op, owner, name, desc) {
			out = append(out, in)
		}
	}
	return out
}

// ReturnsConstant returns s when m is exactly [LDC s, ARETURN].
func ReturnsConstant(m *model.Method) (string, bool) {
	if !MatchesTemplate(m, []*model.Insn{model.Ldc(nil), model.Op(model.ARETURN)}) {
		return "", false
	}
	s, ok := FirstReal(m).Const.(string)
	return s, ok
}
