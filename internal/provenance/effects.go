package provenance

import (
	"fmt"

	"deobf/internal/model"
)

func (f *Frame) push(in *model.Insn, size int) {
	f.stack = append(f.stack, Value{Origin: in, Size: size})
}

func (f *Frame) pop() Value {
	if len(f.stack) == 0 {
		return Value{Size: 1}
	}
	v := f.stack[len(f.stack)-1]
	f.stack = f.stack[:len(f.stack)-1]
	return v
}

func (f *Frame) popN(n int) {
	for i := 0; i < n; i++ {
		f.pop()
	}
}

// takeSlots pops values covering exactly n slots and returns them bottom first.
func (f *Frame) takeSlots(n int) ([]Value, error) {
	var vals []Value
	got := 0
	for got < n {
		v := f.pop()
		got += v.Size
		vals = append([]Value{v}, vals...)
	}
	if got != n {
		return nil, fmt.Errorf("category 2 value split by %d-slot operation", n)
	}
	return vals, nil
}

func (f *Frame) pushAll(vals []Value) {
	f.stack = append(f.stack, vals...)
}

// dupX pops a slots to duplicate and b slots to insert under, then pushes
// dup, under, dup.
func (f *Frame) dupX(a, b int) error {
	dup, err := f.takeSlots(a)
	if err != nil {
		return err
	}
	under, err := f.takeSlots(b)
	if err != nil {
		return err
	}
	f.pushAll(dup)
	f.pushAll(under)
	f.pushAll(dup)
	return nil
}

// arithSize returns the result size of the IADD..DREM / INEG..DNEG rows,
// which cycle I, L, F, D.
func arithSize(op, base int) int {
	if (op-base)%2 == 1 {
		return 2
	}
	return 1
}

var conversionSize = map[int]int{
	model.I2L: 2, model.I2F: 1, model.I2D: 2,
	model.L2I: 1, model.L2F: 1, model.L2D: 2,
	model.F2I: 1, model.F2L: 2, model.F2D: 2,
	model.D2I: 1, model.D2L: 2, model.D2F: 1,
	model.I2B: 1, model.I2C: 1, model.I2S: 1,
}

func (f *Frame) step(in *model.Insn) error {
	op := in.Op
	switch {
	case op == model.NOP, op == model.IINC, op == model.RET:
	case op == model.ACONST_NULL,
		op >= model.ICONST_M1 && op <= model.ICONST_5,
		op >= model.FCONST_0 && op <= model.FCONST_2,
		op == model.BIPUSH, op == model.SIPUSH:
		f.push(in, 1)
	case op == model.LCONST_0, op == model.LCONST_1, op == model.DCONST_0, op == model.DCONST_1:
		f.push(in, 2)
	case op == model.LDC:
		switch in.Const.(type) {
		case int64, float64:
			f.push(in, 2)
		default:
			f.push(in, 1)
		}
	case op >= model.ILOAD && op <= model.ALOAD:
		f.push(in, loadSize(op))
	case op >= model.IALOAD && op <= model.SALOAD:
		f.popN(2)
		size := 1
		if op == model.LALOAD || op == model.DALOAD {
			size = 2
		}
		f.push(in, size)
	case op >= model.ISTORE && op <= model.ASTORE:
		f.pop()
	case op >= model.IASTORE && op <= model.SASTORE:
		f.popN(3)
	case op == model.POP:
		if v := f.pop(); v.Size != 1 {
			return fmt.Errorf("pop of category 2 value")
		}
	case op == model.POP2:
		if _, err := f.takeSlots(2); err != nil {
			return err
		}
	case op == model.DUP:
		return f.dupX(1, 0)
	case op == model.DUP_X1:
		return f.dupX(1, 1)
	case op == model.DUP_X2:
		return f.dupX(1, 2)
	case op == model.DUP2:
		return f.dupX(2, 0)
	case op == model.DUP2_X1:
		return f.dupX(2, 1)
	case op == model.DUP2_X2:
		return f.dupX(2, 2)
	case op == model.SWAP:
		a, b := f.pop(), f.pop()
		if a.Size != 1 || b.Size != 1 {
			return fmt.Errorf("swap of category 2 value")
		}
		f.pushAll([]Value{a, b})
	case op >= model.IADD && op <= model.DREM:
		f.popN(2)
		f.push(in, arithSize(op, model.IADD))
	case op >= model.INEG && op <= model.DNEG:
		f.pop()
		f.push(in, arithSize(op, model.INEG))
	case op >= model.ISHL && op <= model.LXOR:
		// ISHL, LSHL, ISHR, ... alternate int and long.
		f.popN(2)
		f.push(in, arithSize(op, model.ISHL))
	case op >= model.I2L && op <= model.I2S:
		f.pop()
		f.push(in, conversionSize[op])
	case op >= model.LCMP && op <= model.DCMPG:
		f.popN(2)
		f.push(in, 1)
	case op >= model.IFEQ && op <= model.IFLE, op == model.IFNULL, op == model.IFNONNULL:
		f.pop()
	case op >= model.IF_ICMPEQ && op <= model.IF_ACMPNE:
		f.popN(2)
	case op == model.GOTO:
		f.stack = f.stack[:0]
	case op == model.JSR:
		f.push(in, 1)
	case op == model.TABLESWITCH, op == model.LOOKUPSWITCH:
		f.stack = f.stack[:0]
	case op >= model.IRETURN && op <= model.RETURN, op == model.ATHROW:
		f.stack = f.stack[:0]
	case op == model.GETSTATIC:
		f.push(in, model.TypeSize(in.Desc))
	case op == model.PUTSTATIC:
		f.pop()
	case op == model.GETFIELD:
		f.pop()
		f.push(in, model.TypeSize(in.Desc))
	case op == model.PUTFIELD:
		f.popN(2)
	case op >= model.INVOKEVIRTUAL && op <= model.INVOKEDYNAMIC:
		args, ret, err := model.ParseMethodDesc(in.Desc)
		if err != nil {
			return err
		}
		f.popN(len(args))
		if op != model.INVOKESTATIC && op != model.INVOKEDYNAMIC {
			f.pop()
		}
		if ret != "V" {
			f.push(in, model.TypeSize(ret))
		}
	case op == model.NEW:
		f.push(in, 1)
	case op == model.NEWARRAY, op == model.ANEWARRAY, op == model.ARRAYLENGTH,
		op == model.CHECKCAST, op == model.INSTANCEOF:
		f.pop()
		f.push(in, 1)
	case op == model.MONITORENTER, op == model.MONITOREXIT:
		f.pop()
	case op == model.MULTIANEWARRAY:
		f.popN(in.Operand)
		f.push(in, 1)
	default:
		return fmt.Errorf("unknown opcode %d", op)
	}
	return nil
}

func loadSize(op int) int {
	if op == model.LLOAD || op == model.DLOAD {
		return 2
	}
	return 1
}
