package model

import (
	"fmt"
	"strconv"
	"strings"
)

// InsnKind tags the operand layout of an instruction.
type InsnKind uint8

const (
	InsnOp         InsnKind = iota // opcode only
	InsnInt                        // BIPUSH, SIPUSH, NEWARRAY
	InsnVar                        // local variable slot
	InsnType                       // NEW, ANEWARRAY, CHECKCAST, INSTANCEOF
	InsnField                      // field access
	InsnMethod                     // method call
	InsnDynamic                    // INVOKEDYNAMIC
	InsnJump                       // branch to a label
	InsnLdc                        // typed constant load
	InsnIinc                       // local increment
	InsnSwitch                     // TABLESWITCH, LOOKUPSWITCH
	InsnMultiArray                 // MULTIANEWARRAY
	InsnLabel                      // pseudo: jump target
	InsnLine                       // pseudo: line number marker
	InsnFrame                      // pseudo: stack map frame
)

// TypeRef is a class constant loaded by LDC (an internal name or array descriptor).
type TypeRef string

// Insn is one node of a method's instruction list. Pseudo instructions
// (labels, line numbers, frames) carry Op == -1.
type Insn struct {
	Op      int
	Kind    InsnKind
	Operand int // BIPUSH/SIPUSH value, NEWARRAY type, IINC increment, MULTIANEWARRAY dims
	Var     int // local slot for InsnVar and InsnIinc
	Type    string
	Owner   string
	Name    string // member name, or label name for InsnLabel
	Desc    string
	Itf     bool
	Const   any // int32, int64, float32, float64, string or TypeRef
	Target  *Insn
	Targets []*Insn // switch cases; Target is the default
	Keys    []int   // LOOKUPSWITCH keys, TABLESWITCH min/max
	Line    int

	prev, next *Insn
	list       *InsnList
}

// Next returns the following node (pseudo instructions included), or nil.
func (i *Insn) Next() *Insn { return i.next }

// Prev returns the preceding node, or nil.
func (i *Insn) Prev() *Insn { return i.prev }

// IsPseudo reports whether the instruction is a label, line number or frame.
func (i *Insn) IsPseudo() bool {
	return i.Kind == InsnLabel || i.Kind == InsnLine || i.Kind == InsnFrame
}

// Op returns a plain opcode-only instruction.
func Op(op int) *Insn { return &Insn{Op: op, Kind: InsnOp} }

// Any returns a template wildcard matching any single real instruction.
func Any() *Insn { return &Insn{Op: -1, Kind: InsnOp} }

// IntInsn returns BIPUSH, SIPUSH or NEWARRAY with its operand.
func IntInsn(op, v int) *Insn { return &Insn{Op: op, Kind: InsnInt, Operand: v} }

// VarInsn returns a local variable load or store.
func VarInsn(op, slot int) *Insn { return &Insn{Op: op, Kind: InsnVar, Var: slot} }

// TypeInsn returns NEW, ANEWARRAY, CHECKCAST or INSTANCEOF.
func TypeInsn(op int, typ string) *Insn { return &Insn{Op: op, Kind: InsnType, Type: typ} }

// FieldInsn returns a field access.
func FieldInsn(op int, owner, name, desc string) *Insn {
	return &Insn{Op: op, Kind: InsnField, Owner: owner, Name: name, Desc: desc}
}

// MethodInsn returns a method call. INVOKEINTERFACE sets Itf.
func MethodInsn(op int, owner, name, desc string) *Insn {
	return &Insn{Op: op, Kind: InsnMethod, Owner: owner, Name: name, Desc: desc, Itf: op == INVOKEINTERFACE}
}

// DynamicInsn returns an INVOKEDYNAMIC call site.
func DynamicInsn(name, desc string) *Insn {
	return &Insn{Op: INVOKEDYNAMIC, Kind: InsnDynamic, Name: name, Desc: desc}
}

// JumpInsn returns a branch to target, which must be a label.
func JumpInsn(op int, target *Insn) *Insn { return &Insn{Op: op, Kind: InsnJump, Target: target} }

// Ldc returns a constant load. v must be int32, int64, float32, float64,
// string or TypeRef; plain int and float values are narrowed.
func Ldc(v any) *Insn {
	switch c := v.(type) {
	case int:
		v = int32(c)
	}
	return &Insn{Op: LDC, Kind: InsnLdc, Const: v}
}

// Iinc returns an IINC of slot by inc.
func Iinc(slot, inc int) *Insn { return &Insn{Op: IINC, Kind: InsnIinc, Var: slot, Operand: inc} }

// SwitchInsn returns a TABLESWITCH or LOOKUPSWITCH.
func SwitchInsn(op int, dflt *Insn, keys []int, targets ...*Insn) *Insn {
	return &Insn{Op: op, Kind: InsnSwitch, Target: dflt, Keys: keys, Targets: targets}
}

// MultiArray returns a MULTIANEWARRAY of desc with dims dimensions.
func MultiArray(desc string, dims int) *Insn {
	return &Insn{Op: MULTIANEWARRAY, Kind: InsnMultiArray, Type: desc, Operand: dims}
}

// NewLabel returns a fresh label.
func NewLabel(name string) *Insn { return &Insn{Op: -1, Kind: InsnLabel, Name: name} }

// LineNumber returns a line marker starting at label start.
func LineNumber(line int, start *Insn) *Insn {
	return &Insn{Op: -1, Kind: InsnLine, Line: line, Target: start}
}

// NewFrame returns a stack map frame marker.
func NewFrame() *Insn { return &Insn{Op: -1, Kind: InsnFrame} }

func (i *Insn) String() string {
	switch i.Kind {
	case InsnLabel:
		return labelName(i) + ":"
	case InsnLine:
		return "LINE " + strconv.Itoa(i.Line)
	case InsnFrame:
		return "FRAME"
	}
	if i.Op < 0 {
		return "*"
	}
	mn := strings.ToUpper(OpcodeName(i.Op))
	switch i.Kind {
	case InsnInt:
		return mn + " " + strconv.Itoa(i.Operand)
	case InsnVar:
		return mn + " " + strconv.Itoa(i.Var)
	case InsnIinc:
		return fmt.Sprintf("%s %d %d", mn, i.Var, i.Operand)
	case InsnType:
		return mn + " " + i.Type
	case InsnField, InsnMethod:
		return fmt.Sprintf("%s %s.%s %s", mn, i.Owner, i.Name, i.Desc)
	case InsnDynamic:
		return fmt.Sprintf("%s %s %s", mn, i.Name, i.Desc)
	case InsnJump:
		return mn + " " + labelName(i.Target)
	case InsnLdc:
		return mn + " " + FormatConst(i.Const)
	case InsnSwitch:
		names := make([]string, len(i.Targets))
		for k, t := range i.Targets {
			names[k] = labelName(t)
		}
		return fmt.Sprintf("%s [%s] default %s", mn, strings.Join(names, " "), labelName(i.Target))
	case InsnMultiArray:
		return fmt.Sprintf("%s %s %d", mn, i.Type, i.Operand)
	}
	return mn
}

func labelName(l *Insn) string {
	if l == nil {
		return "L?"
	}
	if l.Name != "" {
		return l.Name
	}
	if l.list != nil {
		return "L" + strconv.Itoa(l.list.Index(l))
	}
	return "L"
}

// FormatConst renders an LDC constant with its type visible.
func FormatConst(c any) string {
	switch v := c.(type) {
	case string:
		return strconv.Quote(v)
	case int32:
		return strconv.FormatInt(int64(v), 10)
	case int64:
		return strconv.FormatInt(v, 10) + "L"
	case float32:
		return strconv.FormatFloat(float64(v), 'g', -1, 32) + "F"
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64) + "D"
	case TypeRef:
		return string(v) + ".class"
	case nil:
		return "*"
	}
	return fmt.Sprintf("%v", c)
}

// InsnList is a doubly linked instruction sequence.
type InsnList struct {
	first, last *Insn
	n           int
}

// NewInsnList links insns in order.
func NewInsnList(insns ...*Insn) *InsnList {
	l := &InsnList{}
	l.Append(insns...)
	return l
}

// First returns the head node or nil. Safe on a nil list.
func (l *InsnList) First() *Insn {
	if l == nil {
		return nil
	}
	return l.first
}

// Last returns the tail node or nil. Safe on a nil list.
func (l *InsnList) Last() *Insn {
	if l == nil {
		return nil
	}
	return l.last
}

// Len returns the number of nodes, pseudo instructions included.
func (l *InsnList) Len() int {
	if l == nil {
		return 0
	}
	return l.n
}

// Append links insns at the tail. An instruction may belong to one list only.
func (l *InsnList) Append(insns ...*Insn) {
	for _, in := range insns {
		l.checkFree(in)
		in.list = l
		in.prev = l.last
		in.next = nil
		if l.last != nil {
			l.last.next = in
		} else {
			l.first = in
		}
		l.last = in
		l.n++
	}
}

// InsertBefore links in immediately before at.
func (l *InsnList) InsertBefore(at, in *Insn) {
	l.checkMember(at)
	l.checkFree(in)
	in.list = l
	in.next = at
	in.prev = at.prev
	if at.prev != nil {
		at.prev.next = in
	} else {
		l.first = in
	}
	at.prev = in
	l.n++
}

// InsertAfter links in immediately after at.
func (l *InsnList) InsertAfter(at, in *Insn) {
	l.checkMember(at)
	if at.next == nil {
		l.Append(in)
		return
	}
	l.InsertBefore(at.next, in)
}

// Remove unlinks in.
func (l *InsnList) Remove(in *Insn) {
	l.checkMember(in)
	if in.prev != nil {
		in.prev.next = in.next
	} else {
		l.first = in.next
	}
	if in.next != nil {
		in.next.prev = in.prev
	} else {
		l.last = in.prev
	}
	in.prev, in.next, in.list = nil, nil, nil
	l.n--
}

// Set replaces old with in at the same position.
func (l *InsnList) Set(old, in *Insn) {
	l.InsertBefore(old, in)
	l.Remove(old)
}

// All returns the nodes in order.
func (l *InsnList) All() []*Insn {
	out := make([]*Insn, 0, l.Len())
	for in := l.First(); in != nil; in = in.next {
		out = append(out, in)
	}
	return out
}

// Index returns the position of in, or -1.
func (l *InsnList) Index(in *Insn) int {
	i := 0
	for cur := l.First(); cur != nil; cur = cur.next {
		if cur == in {
			return i
		}
		i++
	}
	return -1
}

func (l *InsnList) checkFree(in *Insn) {
	if in.list != nil {
		panic(fmt.Sprintf("model: instruction %s already linked", in))
	}
}

func (l *InsnList) checkMember(in *Insn) {
	if in.list != l {
		panic(fmt.Sprintf("model: instruction %s not in this list", in))
	}
}
