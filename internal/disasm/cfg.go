package disasm

import (
	"sort"

	"deobf/internal/model"
)

// BasicBlock represents a sequence of instructions with a single entry point.
type BasicBlock struct {
	ID      int
	Start   int    // index into FuncCFG.Insts (inclusive)
	End     int    // index into FuncCFG.Insts (exclusive)
	Succs   []Succ // successor edges
	IsEntry bool
	IsTerm  bool // ends with a return or throw
}

// Succ describes a control-flow successor edge.
type Succ struct {
	BlockID int
	Cond    string // "" = unconditional, "T" = taken/true, "F" = fallthrough/false
}

// FuncCFG is a per-method control flow graph.
type FuncCFG struct {
	Name   string
	Blocks []BasicBlock
	Insts  []Inst
}

// BuildCFG constructs a control flow graph from a method listing.
// The algorithm:
//  1. Find block leaders: index 0, branch targets, instructions after terminators.
//  2. Partition instructions into blocks by leaders.
//  3. Compute successor edges from each block's last instruction.
//
// Switch edges are unconditional; a target shared by several cases yields
// one edge.
func BuildCFG(name string, insts []Inst) FuncCFG {
	if len(insts) == 0 {
		return FuncCFG{Name: name, Insts: insts}
	}

	// Map label → instruction index for branch target resolution.
	labelToIdx := make(map[*model.Insn]int)
	for i, inst := range insts {
		for _, l := range inst.Labels {
			labelToIdx[l] = i
		}
	}

	// Pass 1: Identify block leaders.
	leaders := make(map[int]bool)
	leaders[0] = true

	for i, inst := range insts {
		bi := DecodeBranch(inst.Insn)
		if bi == nil {
			continue
		}
		if i+1 < len(insts) {
			leaders[i+1] = true
		}
		for _, t := range bi.Targets {
			if idx, ok := labelToIdx[t]; ok {
				leaders[idx] = true
			}
		}
	}

	sorted := make([]int, 0, len(leaders))
	for idx := range leaders {
		sorted = append(sorted, idx)
	}
	sort.Ints(sorted)

	// Pass 2: Partition into blocks.
	blocks := make([]BasicBlock, len(sorted))
	leaderToBlock := make(map[int]int, len(sorted))
	for i, start := range sorted {
		end := len(insts)
		if i+1 < len(sorted) {
			end = sorted[i+1]
		}
		blocks[i] = BasicBlock{
			ID:      i,
			Start:   start,
			End:     end,
			IsEntry: start == 0,
		}
		leaderToBlock[start] = i
	}

	// Pass 3: Compute successors.
	for i := range blocks {
		blk := &blocks[i]
		last := insts[blk.End-1]
		bi := DecodeBranch(last.Insn)

		if bi == nil {
			if nextBlk, ok := leaderToBlock[blk.End]; ok {
				blk.Succs = append(blk.Succs, Succ{BlockID: nextBlk})
			} else {
				// Falls off the end of the body.
				blk.IsTerm = true
			}
			continue
		}

		if bi.IsRet {
			blk.IsTerm = true
			continue
		}

		seen := make(map[int]bool)
		cond := ""
		if bi.Cond {
			cond = "T"
		}
		for _, t := range bi.Targets {
			idx, ok := labelToIdx[t]
			if !ok {
				continue
			}
			bid := leaderToBlock[idx]
			if seen[bid] {
				continue
			}
			seen[bid] = true
			blk.Succs = append(blk.Succs, Succ{BlockID: bid, Cond: cond})
		}
		if bi.Cond {
			if nextBlk, ok := leaderToBlock[blk.End]; ok {
				blk.Succs = append(blk.Succs, Succ{BlockID: nextBlk, Cond: "F"})
			}
		}
		if len(blk.Succs) == 0 {
			// Jump to a label outside the listing.
			blk.IsTerm = true
		}
	}

	return FuncCFG{
		Name:   name,
		Blocks: blocks,
		Insts:  insts,
	}
}
