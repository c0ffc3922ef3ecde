// Package pattern provides instruction matching and scanning primitives.
// Every scanner skips pseudo instructions.
package pattern

import (
	"errors"

	"deobf/internal/model"
)

// Wildcard matches any member name, owner, descriptor or type in a template.
const Wildcard = "*"

// ErrNotFound is returned by the directional scanners when the list ends
// before a matching instruction.
var ErrNotFound = errors.New("pattern: instruction not found")

// FirstReal returns the first non-pseudo instruction of m, or nil.
func FirstReal(m *model.Method) *model.Insn {
	in := m.Insns.First()
	for in != nil && in.IsPseudo() {
		in = in.Next()
	}
	return in
}

// NextReal returns the first non-pseudo instruction after from, or nil.
func NextReal(from *model.Insn) *model.Insn {
	in := from.Next()
	for in != nil && in.IsPseudo() {
		in = in.Next()
	}
	return in
}

// PrevReal returns the first non-pseudo instruction before from, or nil.
func PrevReal(from *model.Insn) *model.Insn {
	in := from.Prev()
	for in != nil && in.IsPseudo() {
		in = in.Prev()
	}
	return in
}

// Next scans forward from the instruction after from for opcode op.
func Next(from *model.Insn, op int) (*model.Insn, error) {
	for in := NextReal(from); in != nil; in = NextReal(in) {
		if in.Op == op {
			return in, nil
		}
	}
	return nil, ErrNotFound
}

// Previous scans backward from the instruction before from for opcode op.
func Previous(from *model.Insn, op int) (*model.Insn, error) {
	for in := PrevReal(from); in != nil; in = PrevReal(in) {
		if in.Op == op {
			return in, nil
		}
	}
	return nil, ErrNotFound
}

// NextMember scans forward for a member reference matching op, owner, name
// and desc, each of which may be Wildcard.
func NextMember(from *model.Insn, op int, owner, name, desc string) (*model.Insn, error) {
	for in := NextReal(from); in != nil; in = NextReal(in) {
		if MemberMatches(in, op, owner, name, desc) {
			return in, nil
		}
	}
	return nil, ErrNotFound
}

// FindMember returns the first member reference in m matching the filter.
func FindMember(m *model.Method, op int, owner, name, desc string) (*model.Insn, error) {
	for in := FirstReal(m); in != nil; in = NextReal(in) {
		if MemberMatches(in, op, owner, name, desc) {
			return in, nil
		}
	}
	return nil, ErrNotFound
}

// FindAll returns every real instruction in m with opcode op, in order.
func FindAll(m *model.Method, op int) []*model.Insn {
	var out []*model.Insn
	for in := FirstReal(m); in != nil; in = NextReal(in) {
		if in.Op == op {
			out = append(out, in)
		}
	}
	return out
}

// MemberMatches reports whether in is a field or method reference with the
// given opcode, owner, name and descriptor. op -1 and Wildcard strings match
// anything.
func MemberMatches(in *model.Insn, op int, owner, name, desc string) bool {
	if in.Kind != model.InsnField && in.Kind != model.InsnMethod {
		return false
	}
	if op >= 0 && in.Op != op {
		return false
	}
	return wild(owner, in.Owner) && wild(name, in.Name) && wild(desc, in.Desc)
}

func wild(pattern, s string) bool {
	return pattern == Wildcard || pattern == s
}

// MatchesTemplate reports whether the real instructions of m are exactly
// the template, element for element.
func MatchesTemplate(m *model.Method, template []*model.Insn) bool {
	in, ok := matchFrom(FirstReal(m), template)
	return ok && in == nil
}

// StartsWith reports whether the real instructions starting at from match
// the template. Trailing instructions are allowed.
func StartsWith(from *model.Insn, template []*model.Insn) bool {
	if from != nil && from.IsPseudo() {
		from = NextReal(from)
	}
	_, ok := matchFrom(from, template)
	return ok
}

// matchFrom walks template against the list and returns the instruction
// after the last matched one.
func matchFrom(in *model.Insn, template []*model.Insn) (*model.Insn, bool) {
	for _, want := range template {
		if in == nil {
			return nil, false
		}
		if !insnMatches(want, in) {
			return nil, false
		}
		in = NextReal(in)
	}
	return in, true
}

func insnMatches(want, got *model.Insn) bool {
	if want.Op < 0 {
		return true
	}
	if want.Op != got.Op {
		return false
	}
	switch want.Kind {
	case model.InsnField, model.InsnMethod:
		return wild(want.Owner, got.Owner) && wild(want.Name, got.Name) && wild(want.Desc, got.Desc)
	case model.InsnDynamic:
		return wild(want.Name, got.Name) && wild(want.Desc, got.Desc)
	case model.InsnType, model.InsnMultiArray:
		return wild(want.Type, got.Type)
	case model.InsnVar:
		return want.Var < 0 || want.Var == got.Var
	case model.InsnIinc:
		return (want.Var < 0 || want.Var == got.Var) && want.Operand == got.Operand
	case model.InsnInt:
		return want.Operand == got.Operand
	case model.InsnLdc:
		return want.Const == nil || want.Const == got.Const
	}
	return true
}

// IsReturnOpcode reports whether op returns from a method.
func IsReturnOpcode(op int) bool { return model.IsReturn(op) }

// IsGetter reports whether m is exactly [ALOAD 0, GETFIELD f, xRETURN], or
// [GETSTATIC f, xRETURN] when static.
func IsGetter(m *model.Method, owner, name, desc string, static bool) bool {
	ret := model.Op(model.ReturnOpcode(desc))
	if static {
		return MatchesTemplate(m, []*model.Insn{
			model.FieldInsn(model.GETSTATIC, owner, name, desc),
			ret,
		})
	}
	return MatchesTemplate(m, []*model.Insn{
		model.VarInsn(model.ALOAD, 0),
		model.FieldInsn(model.GETFIELD, owner, name, desc),
		ret,
	})
}

// IsSetter reports whether m is exactly [ALOAD 0, xLOAD 1, PUTFIELD f, RETURN].
func IsSetter(m *model.Method, owner, name, desc string) bool {
	return MatchesTemplate(m, []*model.Insn{
		model.VarInsn(model.ALOAD, 0),
		model.VarInsn(model.LoadOpcode(desc), 1),
		model.FieldInsn(model.PUTFIELD, owner, name, desc),
		model.Op(model.RETURN),
	})
}
