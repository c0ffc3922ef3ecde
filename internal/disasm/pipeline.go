package disasm

// MethodRecord is one line in methods.jsonl.
type MethodRecord struct {
	Owner   string `json:"owner"`
	Name    string `json:"name"`
	Desc    string `json:"desc"`
	Renamed string `json:"renamed,omitempty"` // renamed owner.name, if known
	Insts   int    `json:"insts"`
	Blocks  int    `json:"blocks"`
}

// FuncName returns the renamed owner.name when known, else the obfuscated one.
func (r MethodRecord) FuncName() string {
	if r.Renamed != "" {
		return r.Renamed
	}
	return r.Owner + "." + r.Name
}

// CallEdgeRecord is one line in call_edges.jsonl.
type CallEdgeRecord struct {
	FromFunc string `json:"from_func"`
	From     int    `json:"from"`
	Kind     string `json:"kind"`
	Target   string `json:"target"` // renamed target or owner.name
	Desc     string `json:"desc"`
	Via      string `json:"via,omitempty"`
}

// EdgeRecords converts the call edges of fromFunc into records.
func EdgeRecords(fromFunc string, edges []CallEdge) []CallEdgeRecord {
	out := make([]CallEdgeRecord, 0, len(edges))
	for _, e := range edges {
		out = append(out, CallEdgeRecord{
			FromFunc: fromFunc,
			From:     e.From,
			Kind:     e.Kind,
			Target:   e.Target(),
			Desc:     e.Desc,
			Via:      e.Via,
		})
	}
	return out
}
