// Package provenance replays a method's instructions over a symbolic operand
// stack and reports which instruction produced each stack value.
//
// The walk is straight line: branches pop their operands and fall through,
// and the stack is cleared after instructions that never fall through
// (GOTO, returns, ATHROW, switches). This is exact for the single-path
// code the detectors inspect.
package provenance

import (
	"errors"
	"fmt"

	"deobf/internal/model"
)

// ErrNotReached is returned when the instruction of interest is never
// visited by a walk.
var ErrNotReached = errors.New("provenance: instruction not reached")

// Value is one symbolic stack entry. Origin is nil for values that were on
// the stack before the walk started (parameters of the window).
type Value struct {
	Origin *model.Insn
	Size   int
}

// External reports whether the value predates the walk.
func (v Value) External() bool { return v.Origin == nil }

// Frame is the symbolic operand stack.
type Frame struct {
	stack []Value
}

// Depth returns the number of values on the stack.
func (f *Frame) Depth() int { return len(f.stack) }

// Peek returns the value depth entries below the top (0 = top). Reading past
// the bottom yields an external value.
func (f *Frame) Peek(depth int) Value {
	i := len(f.stack) - 1 - depth
	if i < 0 {
		return Value{Size: 1}
	}
	return f.stack[i]
}

// Values returns a copy of the stack, bottom first.
func (f *Frame) Values() []Value {
	return append([]Value(nil), f.stack...)
}

// Hook observes the frame before or after an instruction executes.
// Returning true stops the walk.
type Hook func(in *model.Insn, f *Frame) (done bool)

// Walk replays m from start (nil = first instruction) to the end of the
// method, calling pre before and post after each real instruction.
func Walk(m *model.Method, start *model.Insn, pre, post Hook) error {
	if start == nil {
		start = m.Insns.First()
	}
	f := &Frame{}
	for in := start; in != nil; in = in.Next() {
		if in.IsPseudo() {
			continue
		}
		if pre != nil && pre(in, f) {
			return nil
		}
		if err := f.step(in); err != nil {
			return fmt.Errorf("provenance: %s: %s: %w", m.Key(), in, err)
		}
		if post != nil && post(in, f) {
			return nil
		}
	}
	return nil
}

// ValueAt returns the value depth entries below the top just before at
// executes, replaying from start.
func ValueAt(m *model.Method, start, at *model.Insn, depth int) (Value, error) {
	var v Value
	found := false
	err := Walk(m, start, func(in *model.Insn, f *Frame) bool {
		if in == at {
			v, found = f.Peek(depth), true
			return true
		}
		return false
	}, nil)
	if err != nil {
		return Value{}, err
	}
	if !found {
		return Value{}, ErrNotReached
	}
	return v, nil
}

// Source returns the instruction that produced the value depth entries below
// the top just before at executes, replaying from the start of m. The result
// is nil for values that come from outside the method body.
func Source(m *model.Method, at *model.Insn, depth int) (*model.Insn, error) {
	v, err := ValueAt(m, nil, at, depth)
	if err != nil {
		return nil, err
	}
	return v.Origin, nil
}

// ArgumentDepth returns the stack depth of argument i at a call with
// descriptor desc (the last argument is on top).
func ArgumentDepth(desc string, i int) (int, error) {
	args, _, err := model.ParseMethodDesc(desc)
	if err != nil {
		return 0, err
	}
	if i < 0 || i >= len(args) {
		return 0, fmt.Errorf("provenance: argument %d out of range for %s", i, desc)
	}
	return len(args) - 1 - i, nil
}

// ReceiverDepth returns the stack depth of the receiver at an instance call.
func ReceiverDepth(desc string) (int, error) {
	args, _, err := model.ParseMethodDesc(desc)
	if err != nil {
		return 0, err
	}
	return len(args), nil
}
