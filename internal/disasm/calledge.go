package disasm

import (
	"strings"

	"deobf/internal/model"
	"deobf/internal/provenance"
)

// CallEdge represents a call site extracted from a listing.
type CallEdge struct {
	From       int    `json:"from"` // instruction index of the call
	Kind       string `json:"kind"` // "invokevirtual", "invokestatic", ...
	Owner      string `json:"owner"`
	Name       string `json:"name"`
	Desc       string `json:"desc"`
	TargetName string `json:"target_name,omitempty"` // renamed target, if known
	Via        string `json:"via,omitempty"`         // receiver provenance
}

// Target returns the renamed target when known, else owner.name.
func (e CallEdge) Target() string {
	if e.TargetName != "" {
		return e.TargetName
	}
	return e.Owner + "." + e.Name
}

// ExtractCallEdges returns one edge per method call in insts, which must be
// a listing of m. Instance calls carry the instruction that produced their
// receiver.
func ExtractCallEdges(m *model.Method, insts []Inst, symbols SymbolLookup) []CallEdge {
	var edges []CallEdge
	for _, inst := range insts {
		in := inst.Insn
		if in.Kind != model.InsnMethod {
			continue
		}
		e := CallEdge{
			From:  inst.Index,
			Kind:  strings.ToLower(inst.Mnemonic),
			Owner: in.Owner,
			Name:  in.Name,
			Desc:  in.Desc,
		}
		if symbols != nil {
			if name, ok := symbols(in); ok {
				e.TargetName = name
			}
		}
		if in.Op != model.INVOKESTATIC {
			if depth, err := provenance.ReceiverDepth(in.Desc); err == nil {
				if src, err := provenance.Source(m, in, depth); err == nil && src != nil {
					e.Via = src.String()
				}
			}
		}
		edges = append(edges, e)
	}
	return edges
}
