package disasm

import "deobf/internal/model"

// Branch detection over model instructions. These functions identify
// basic-block terminators and the labels they transfer control to.

// BranchInfo describes a control transfer.
type BranchInfo struct {
	Targets []*model.Insn // target labels; switch default first
	Cond    bool          // true if the branch can fall through
	IsRet   bool          // true for returns and ATHROW
}

// DecodeBranch reports how in transfers control.
// Returns nil if the instruction falls through unconditionally.
func DecodeBranch(in *model.Insn) *BranchInfo {
	if in == nil || in.IsPseudo() {
		return nil
	}
	switch {
	case model.IsReturn(in.Op) || in.Op == model.ATHROW || in.Op == model.RET:
		return &BranchInfo{IsRet: true}
	case in.Op == model.TABLESWITCH || in.Op == model.LOOKUPSWITCH:
		targets := make([]*model.Insn, 0, len(in.Targets)+1)
		targets = append(targets, in.Target)
		targets = append(targets, in.Targets...)
		return &BranchInfo{Targets: targets}
	case in.Op == model.JSR:
		// Subroutine calls return to the next instruction.
		return &BranchInfo{Targets: []*model.Insn{in.Target}, Cond: true}
	case model.IsJump(in.Op):
		return &BranchInfo{Targets: []*model.Insn{in.Target}, Cond: model.IsConditionalJump(in.Op)}
	}
	return nil
}
