package callgraph

import (
	"strconv"

	"github.com/zboralski/lattice"

	"deobf/internal/disasm"
	"deobf/internal/model"
)

// BuildCFG constructs a lattice.CFGGraph from method listings.
// Each FuncInfo is converted to a lattice.FuncCFG via disasm.BuildCFG
// then mapped to lattice types.
func BuildCFG(funcs []FuncInfo) *lattice.CFGGraph {
	cg := &lattice.CFGGraph{}
	for _, f := range funcs {
		dcfg := disasm.BuildCFG(f.Name, f.Insts)
		cg.Funcs = append(cg.Funcs, convertFuncCFG(&dcfg, f.CallEdges))
	}
	return cg
}

// BuildFuncCFG builds a single-method lattice.FuncCFG from instructions and call edges.
// Returns the FuncCFG and the number of basic blocks (for filtering trivial methods).
func BuildFuncCFG(name string, insts []disasm.Inst, edges []disasm.CallEdge) (*lattice.FuncCFG, int) {
	dcfg := disasm.BuildCFG(name, insts)
	return convertFuncCFG(&dcfg, edges), len(dcfg.Blocks)
}

// BuildAnchorFuncCFG builds a one-block FuncCFG summarizing what a detector
// can anchor on: string literals and calls to renamed members, in order.
func BuildAnchorFuncCFG(name string, insts []disasm.Inst, edges []disasm.CallEdge) *lattice.FuncCFG {
	edgeByIdx := make(map[int]disasm.CallEdge, len(edges))
	for _, e := range edges {
		edgeByIdx[e.From] = e
	}

	seen := make(map[string]bool)
	var calls []lattice.CallSite
	for _, inst := range insts {
		label := ""
		if e, ok := edgeByIdx[inst.Index]; ok && e.TargetName != "" {
			label = e.TargetName
		}
		if inst.Insn.Op == model.LDC {
			if s, ok := inst.Insn.Const.(string); ok {
				if len(s) > 50 {
					s = s[:47] + "..."
				}
				label = strconv.Quote(s)
			}
		}
		if label == "" || seen[label] {
			continue
		}
		seen[label] = true
		calls = append(calls, lattice.CallSite{Offset: len(calls), Callee: label})
	}

	lcfg := &lattice.FuncCFG{Name: name}
	if len(calls) > 0 {
		lcfg.Blocks = append(lcfg.Blocks, &lattice.BasicBlock{
			ID:    0,
			Start: 0,
			End:   1,
			Term:  true,
			Calls: calls,
		})
	}
	return lcfg
}

// convertFuncCFG maps a disasm.FuncCFG to a lattice.FuncCFG.
// Call edges are mapped into blocks by instruction index.
func convertFuncCFG(dcfg *disasm.FuncCFG, edges []disasm.CallEdge) *lattice.FuncCFG {
	edgeByIdx := make(map[int]disasm.CallEdge, len(edges))
	for _, e := range edges {
		edgeByIdx[e.From] = e
	}

	lcfg := &lattice.FuncCFG{Name: dcfg.Name}
	for _, db := range dcfg.Blocks {
		lb := &lattice.BasicBlock{
			ID:    db.ID,
			Start: db.Start,
			End:   db.End,
			Term:  db.IsTerm,
		}
		for _, ds := range db.Succs {
			lb.Succs = append(lb.Succs, lattice.Successor{
				BlockID: ds.BlockID,
				Cond:    ds.Cond,
			})
		}
		for idx := db.Start; idx < db.End && idx < len(dcfg.Insts); idx++ {
			if e, ok := edgeByIdx[dcfg.Insts[idx].Index]; ok {
				lb.Calls = append(lb.Calls, lattice.CallSite{
					Offset: idx,
					Callee: e.Target(),
				})
			}
		}
		lcfg.Blocks = append(lcfg.Blocks, lb)
	}
	return lcfg
}
