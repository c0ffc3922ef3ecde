package model

import "strconv"

// JVM opcode numbers. Short forms (ILOAD_0, LDC_W, WIDE, ...) are folded into
// their general form when a program is loaded, so they never appear here.
const (
	NOP             = 0
	ACONST_NULL     = 1
	ICONST_M1       = 2
	ICONST_0        = 3
	ICONST_1        = 4
	ICONST_2        = 5
	ICONST_3        = 6
	ICONST_4        = 7
	ICONST_5        = 8
	LCONST_0        = 9
	LCONST_1        = 10
	FCONST_0        = 11
	FCONST_1        = 12
	FCONST_2        = 13
	DCONST_0        = 14
	DCONST_1        = 15
	BIPUSH          = 16
	SIPUSH          = 17
	LDC             = 18
	ILOAD           = 21
	LLOAD           = 22
	FLOAD           = 23
	DLOAD           = 24
	ALOAD           = 25
	IALOAD          = 46
	LALOAD          = 47
	FALOAD          = 48
	DALOAD          = 49
	AALOAD          = 50
	BALOAD          = 51
	CALOAD          = 52
	SALOAD          = 53
	ISTORE          = 54
	LSTORE          = 55
	FSTORE          = 56
	DSTORE          = 57
	ASTORE          = 58
	IASTORE         = 79
	LASTORE         = 80
	FASTORE         = 81
	DASTORE         = 82
	AASTORE         = 83
	BASTORE         = 84
	CASTORE         = 85
	SASTORE         = 86
	POP             = 87
	POP2            = 88
	DUP             = 89
	DUP_X1          = 90
	DUP_X2          = 91
	DUP2            = 92
	DUP2_X1         = 93
	DUP2_X2         = 94
	SWAP            = 95
	IADD            = 96
	LADD            = 97
	FADD            = 98
	DADD            = 99
	ISUB            = 100
	LSUB            = 101
	FSUB            = 102
	DSUB            = 103
	IMUL            = 104
	LMUL            = 105
	FMUL            = 106
	DMUL            = 107
	IDIV            = 108
	LDIV            = 109
	FDIV            = 110
	DDIV            = 111
	IREM            = 112
	LREM            = 113
	FREM            = 114
	DREM            = 115
	INEG            = 116
	LNEG            = 117
	FNEG            = 118
	DNEG            = 119
	ISHL            = 120
	LSHL            = 121
	ISHR            = 122
	LSHR            = 123
	IUSHR           = 124
	LUSHR           = 125
	IAND            = 126
	LAND            = 127
	IOR             = 128
	LOR             = 129
	IXOR            = 130
	LXOR            = 131
	IINC            = 132
	I2L             = 133
	I2F             = 134
	I2D             = 135
	L2I             = 136
	L2F             = 137
	L2D             = 138
	F2I             = 139
	F2L             = 140
	F2D             = 141
	D2I             = 142
	D2L             = 143
	D2F             = 144
	I2B             = 145
	I2C             = 146
	I2S             = 147
	LCMP            = 148
	FCMPL           = 149
	FCMPG           = 150
	DCMPL           = 151
	DCMPG           = 152
	IFEQ            = 153
	IFNE            = 154
	IFLT            = 155
	IFGE            = 156
	IFGT            = 157
	IFLE            = 158
	IF_ICMPEQ       = 159
	IF_ICMPNE       = 160
	IF_ICMPLT       = 161
	IF_ICMPGE       = 162
	IF_ICMPGT       = 163
	IF_ICMPLE       = 164
	IF_ACMPEQ       = 165
	IF_ACMPNE       = 166
	GOTO            = 167
	JSR             = 168
	RET             = 169
	TABLESWITCH     = 170
	LOOKUPSWITCH    = 171
	IRETURN         = 172
	LRETURN         = 173
	FRETURN         = 174
	DRETURN         = 175
	ARETURN         = 176
	RETURN          = 177
	GETSTATIC       = 178
	PUTSTATIC       = 179
	GETFIELD        = 180
	PUTFIELD        = 181
	INVOKEVIRTUAL   = 182
	INVOKESPECIAL   = 183
	INVOKESTATIC    = 184
	INVOKEINTERFACE = 185
	INVOKEDYNAMIC   = 186
	NEW             = 187
	NEWARRAY        = 188
	ANEWARRAY       = 189
	ARRAYLENGTH     = 190
	ATHROW          = 191
	CHECKCAST       = 192
	INSTANCEOF      = 193
	MONITORENTER    = 194
	MONITOREXIT     = 195
	MULTIANEWARRAY  = 197
	IFNULL          = 198
	IFNONNULL       = 199
)

// NEWARRAY element type codes.
const (
	T_BOOLEAN = 4
	T_CHAR    = 5
	T_FLOAT   = 6
	T_DOUBLE  = 7
	T_BYTE    = 8
	T_SHORT   = 9
	T_INT     = 10
	T_LONG    = 11
)

var opcodeNames = map[int]string{
	NOP: "nop", ACONST_NULL: "aconst_null",
	ICONST_M1: "iconst_m1", ICONST_0: "iconst_0", ICONST_1: "iconst_1", ICONST_2: "iconst_2",
	ICONST_3: "iconst_3", ICONST_4: "iconst_4", ICONST_5: "iconst_5",
	LCONST_0: "lconst_0", LCONST_1: "lconst_1",
	FCONST_0: "fconst_0", FCONST_1: "fconst_1", FCONST_2: "fconst_2",
	DCONST_0: "dconst_0", DCONST_1: "dconst_1",
	BIPUSH: "bipush", SIPUSH: "sipush", LDC: "ldc",
	ILOAD: "iload", LLOAD: "lload", FLOAD: "fload", DLOAD: "dload", ALOAD: "aload",
	IALOAD: "iaload", LALOAD: "laload", FALOAD: "faload", DALOAD: "daload",
	AALOAD: "aaload", BALOAD: "baload", CALOAD: "caload", SALOAD: "saload",
	ISTORE: "istore", LSTORE: "lstore", FSTORE: "fstore", DSTORE: "dstore", ASTORE: "astore",
	IASTORE: "iastore", LASTORE: "lastore", FASTORE: "fastore", DASTORE: "dastore",
	AASTORE: "aastore", BASTORE: "bastore", CASTORE: "castore", SASTORE: "sastore",
	POP: "pop", POP2: "pop2", DUP: "dup", DUP_X1: "dup_x1", DUP_X2: "dup_x2",
	DUP2: "dup2", DUP2_X1: "dup2_x1", DUP2_X2: "dup2_x2", SWAP: "swap",
	IADD: "iadd", LADD: "ladd", FADD: "fadd", DADD: "dadd",
	ISUB: "isub", LSUB: "lsub", FSUB: "fsub", DSUB: "dsub",
	IMUL: "imul", LMUL: "lmul", FMUL: "fmul", DMUL: "dmul",
	IDIV: "idiv", LDIV: "ldiv", FDIV: "fdiv", DDIV: "ddiv",
	IREM: "irem", LREM: "lrem", FREM: "frem", DREM: "drem",
	INEG: "ineg", LNEG: "lneg", FNEG: "fneg", DNEG: "dneg",
	ISHL: "ishl", LSHL: "lshl", ISHR: "ishr", LSHR: "lshr", IUSHR: "iushr", LUSHR: "lushr",
	IAND: "iand", LAND: "land", IOR: "ior", LOR: "lor", IXOR: "ixor", LXOR: "lxor",
	IINC: "iinc",
	I2L: "i2l", I2F: "i2f", I2D: "i2d", L2I: "l2i", L2F: "l2f", L2D: "l2d",
	F2I: "f2i", F2L: "f2l", F2D: "f2d", D2I: "d2i", D2L: "d2l", D2F: "d2f",
	I2B: "i2b", I2C: "i2c", I2S: "i2s",
	LCMP: "lcmp", FCMPL: "fcmpl", FCMPG: "fcmpg", DCMPL: "dcmpl", DCMPG: "dcmpg",
	IFEQ: "ifeq", IFNE: "ifne", IFLT: "iflt", IFGE: "ifge", IFGT: "ifgt", IFLE: "ifle",
	IF_ICMPEQ: "if_icmpeq", IF_ICMPNE: "if_icmpne", IF_ICMPLT: "if_icmplt",
	IF_ICMPGE: "if_icmpge", IF_ICMPGT: "if_icmpgt", IF_ICMPLE: "if_icmple",
	IF_ACMPEQ: "if_acmpeq", IF_ACMPNE: "if_acmpne",
	GOTO: "goto", JSR: "jsr", RET: "ret",
	TABLESWITCH: "tableswitch", LOOKUPSWITCH: "lookupswitch",
	IRETURN: "ireturn", LRETURN: "lreturn", FRETURN: "freturn", DRETURN: "dreturn",
	ARETURN: "areturn", RETURN: "return",
	GETSTATIC: "getstatic", PUTSTATIC: "putstatic", GETFIELD: "getfield", PUTFIELD: "putfield",
	INVOKEVIRTUAL: "invokevirtual", INVOKESPECIAL: "invokespecial",
	INVOKESTATIC: "invokestatic", INVOKEINTERFACE: "invokeinterface",
	INVOKEDYNAMIC: "invokedynamic",
	NEW: "new", NEWARRAY: "newarray", ANEWARRAY: "anewarray", ARRAYLENGTH: "arraylength",
	ATHROW: "athrow", CHECKCAST: "checkcast", INSTANCEOF: "instanceof",
	MONITORENTER: "monitorenter", MONITOREXIT: "monitorexit",
	MULTIANEWARRAY: "multianewarray", IFNULL: "ifnull", IFNONNULL: "ifnonnull",
}

var opcodesByName map[string]int

func init() {
	opcodesByName = make(map[string]int, len(opcodeNames))
	for op, name := range opcodeNames {
		opcodesByName[name] = op
	}
}

// OpcodeName returns the lowercase mnemonic for op, or "op<n>" if unknown.
func OpcodeName(op int) string {
	if name, ok := opcodeNames[op]; ok {
		return name
	}
	return "op" + strconv.Itoa(op)
}

// OpcodeByName resolves a lowercase mnemonic.
func OpcodeByName(name string) (int, bool) {
	op, ok := opcodesByName[name]
	return op, ok
}

// IsJump reports whether op is a conditional or unconditional branch.
func IsJump(op int) bool {
	return (op >= IFEQ && op <= JSR) || op == IFNULL || op == IFNONNULL
}

// IsConditionalJump reports whether op branches with a fallthrough edge.
func IsConditionalJump(op int) bool {
	return IsJump(op) && op != GOTO && op != JSR
}

// IsReturn reports whether op is one of the xRETURN family.
func IsReturn(op int) bool {
	return op >= IRETURN && op <= RETURN
}

// IsInvoke reports whether op is a method call.
func IsInvoke(op int) bool {
	return op >= INVOKEVIRTUAL && op <= INVOKEDYNAMIC
}

// KindOf maps an opcode to the operand layout it carries.
func KindOf(op int) InsnKind {
	switch {
	case op == BIPUSH || op == SIPUSH || op == NEWARRAY:
		return InsnInt
	case op == LDC:
		return InsnLdc
	case (op >= ILOAD && op <= ALOAD) || (op >= ISTORE && op <= ASTORE) || op == RET:
		return InsnVar
	case op == IINC:
		return InsnIinc
	case op >= GETSTATIC && op <= PUTFIELD:
		return InsnField
	case op >= INVOKEVIRTUAL && op <= INVOKEINTERFACE:
		return InsnMethod
	case op == INVOKEDYNAMIC:
		return InsnDynamic
	case op == NEW || op == ANEWARRAY || op == CHECKCAST || op == INSTANCEOF:
		return InsnType
	case op == TABLESWITCH || op == LOOKUPSWITCH:
		return InsnSwitch
	case op == MULTIANEWARRAY:
		return InsnMultiArray
	case op != RET && IsJump(op):
		return InsnJump
	}
	return InsnOp
}

