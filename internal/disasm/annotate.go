package disasm

import (
	"deobf/internal/model"
	"deobf/internal/provenance"
)

// Annotator returns an optional inline comment for an instruction.
// Empty string means no annotation.
type Annotator func(inst Inst) string

// LocalAnnotator names local variable slots from m's local variable table.
func LocalAnnotator(m *model.Method) Annotator {
	return func(inst Inst) string {
		in := inst.Insn
		if in.Kind != model.InsnVar && in.Kind != model.InsnIinc {
			return ""
		}
		if lv := m.Local(in.Var); lv != nil && lv.Name != "" {
			return lv.Name
		}
		return ""
	}
}

// StoreAnnotator reports where the value written by a field store came
// from, replaying m up to the store.
func StoreAnnotator(m *model.Method) Annotator {
	return func(inst Inst) string {
		in := inst.Insn
		if in.Op != model.PUTFIELD && in.Op != model.PUTSTATIC {
			return ""
		}
		src, err := provenance.Source(m, in, 0)
		if err != nil || src == nil {
			return ""
		}
		return "= " + src.String()
	}
}
