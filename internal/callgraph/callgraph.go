// Package callgraph builds lattice call graphs and control flow graphs from
// program method listings.
package callgraph

import (
	"github.com/zboralski/lattice"

	"deobf/internal/disasm"
	"deobf/internal/model"
)

// FuncInfo holds the data needed to build call graph and CFG for one method.
type FuncInfo struct {
	Name      string
	Method    *model.Method
	Insts     []disasm.Inst
	CallEdges []disasm.CallEdge
}

// Collect lists every method with a body. Names are owner.name, using the
// renamed form where symbols knows one.
func Collect(p *model.Program, symbols disasm.SymbolLookup) []FuncInfo {
	var funcs []FuncInfo
	for _, c := range p.Classes() {
		for _, m := range c.Methods {
			insts := disasm.Disassemble(m, disasm.Options{})
			if len(insts) == 0 {
				continue
			}
			funcs = append(funcs, FuncInfo{
				Name:      MethodName(m, symbols),
				Method:    m,
				Insts:     insts,
				CallEdges: disasm.ExtractCallEdges(m, insts, symbols),
			})
		}
	}
	return funcs
}

// MethodName names m as a call target would be named.
func MethodName(m *model.Method, symbols disasm.SymbolLookup) string {
	if symbols != nil {
		ref := model.MethodInsn(model.INVOKEVIRTUAL, m.Owner, m.Name, m.Desc)
		if name, ok := symbols(ref); ok {
			return name
		}
	}
	return m.Owner + "." + m.Name
}

// BuildCallGraph constructs a lattice.Graph from method listings.
// Each method becomes a node. Each call edge becomes an edge; calls into
// the runtime library are skipped unless keepExternal is set.
func BuildCallGraph(funcs []FuncInfo, keepExternal bool) *lattice.Graph {
	known := make(map[string]bool, len(funcs))
	for _, f := range funcs {
		known[f.Name] = true
	}
	g := &lattice.Graph{}
	for _, f := range funcs {
		g.Nodes = append(g.Nodes, f.Name)
		for _, e := range f.CallEdges {
			callee := e.Target()
			if !known[callee] && !keepExternal {
				continue
			}
			g.Edges = append(g.Edges, lattice.Edge{
				Caller: f.Name,
				Callee: callee,
			})
		}
	}
	g.Dedup()
	return g
}

// Records flattens method listings into JSONL records.
func Records(funcs []FuncInfo) ([]disasm.MethodRecord, []disasm.CallEdgeRecord) {
	var (
		methods []disasm.MethodRecord
		edges   []disasm.CallEdgeRecord
	)
	for _, f := range funcs {
		rec := disasm.MethodRecord{
			Owner:  f.Method.Owner,
			Name:   f.Method.Name,
			Desc:   f.Method.Desc,
			Insts:  len(f.Insts),
			Blocks: len(disasm.BuildCFG(f.Name, f.Insts).Blocks),
		}
		if f.Name != f.Method.Owner+"."+f.Method.Name {
			rec.Renamed = f.Name
		}
		methods = append(methods, rec)
		edges = append(edges, disasm.EdgeRecords(f.Name, f.CallEdges)...)
	}
	return methods, edges
}
