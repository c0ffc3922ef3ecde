package render

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"deobf/internal/disasm"
)

// ClassgraphDOT renders a class-level callgraph where each owner class is one node
// and edges represent aggregated inter-class calls. maxNodes limits rendered classes
// (0 = all). Calls into classes outside funcs are dropped.
func ClassgraphDOT(funcs []disasm.MethodRecord, edges []disasm.CallEdgeRecord, title string, t Theme, maxNodes int) string {
	// Map method name → owner.
	funcOwner := make(map[string]string, len(funcs))
	ownerMethodCount := make(map[string]int)
	renamed := make(map[string]bool)
	for _, f := range funcs {
		name := f.FuncName()
		owner := ownerOf(name)
		funcOwner[name] = owner
		ownerMethodCount[owner]++
		if owner != f.Owner {
			renamed[owner] = true
		}
	}

	// Aggregate inter-class edges.
	type classEdge struct {
		from, to string
	}
	classCounts := make(map[classEdge]int)
	for _, e := range edges {
		src, dst := funcOwner[e.FromFunc], funcOwner[e.Target]
		if src == "" || dst == "" || src == dst {
			continue
		}
		classCounts[classEdge{src, dst}]++
	}

	classInvolvement := make(map[string]int)
	for ce, count := range classCounts {
		classInvolvement[ce.from] += count
		classInvolvement[ce.to] += count
	}

	// Rank classes by involvement for maxNodes limit.
	type rankedClass struct {
		name        string
		involvement int
	}
	ranked := make([]rankedClass, 0, len(classInvolvement))
	for name, inv := range classInvolvement {
		ranked = append(ranked, rankedClass{name, inv})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].involvement != ranked[j].involvement {
			return ranked[i].involvement > ranked[j].involvement
		}
		return ranked[i].name < ranked[j].name
	})

	renderSet := make(map[string]bool)
	limit := len(ranked)
	if maxNodes > 0 && limit > maxNodes {
		limit = maxNodes
	}
	for _, rc := range ranked[:limit] {
		renderSet[rc.name] = true
	}

	var b strings.Builder
	b.WriteString("digraph classgraph {\n")
	b.WriteString("  rankdir=LR;\n")
	b.WriteString("  splines=true;\n")
	b.WriteString("  nodesep=0.5;\n")
	b.WriteString("  ranksep=0.8;\n")
	fmt.Fprintf(&b, "  bgcolor=%q;\n", t.Background)
	fmt.Fprintf(&b, "  node [shape=rect, style=\"filled,rounded\", fillcolor=%q, color=%q, penwidth=0.5, fontname=\"Helvetica Neue,Helvetica,Arial\", fontsize=10, fontcolor=%q, height=0.4, margin=\"0.15,0.08\"];\n",
		t.NodeFill, t.NodeBorder, t.TextColor)
	fmt.Fprintf(&b, "  edge [penwidth=0.5, arrowsize=0.5, arrowhead=vee, color=%q];\n", t.EdgeDirect)
	if title != "" {
		fmt.Fprintf(&b, "  labelloc=t;\n  labeljust=l;\n")
		fmt.Fprintf(&b, "  label=<<font face=\"Helvetica Neue,Helvetica\" point-size=\"8\" color=\"%s\">%s</font>>;\n",
			t.TextColor, dotEscape(title))
	}
	b.WriteByte('\n')

	maxMethods := 1
	for name := range renderSet {
		if c := ownerMethodCount[name]; c > maxMethods {
			maxMethods = c
		}
	}
	for _, rc := range ranked[:limit] {
		name := rc.name
		methods := ownerMethodCount[name]

		// Scale node height by method count (log scale).
		height := 0.4 + 0.3*math.Log2(float64(methods)+1)/math.Log2(float64(maxMethods)+1)

		htmlLabel := fmt.Sprintf("<<font point-size=\"10\">%s</font><br/><font point-size=\"7\" color=\"%s\">%d methods</font>>",
			dotEscape(simpleName(name)), t.ExternalText, methods)

		if renamed[name] {
			fmt.Fprintf(&b, "  %s [label=%s, fillcolor=%q, height=%.2f];\n",
				dotID(name), htmlLabel, t.RenamedFill, height)
		} else {
			fmt.Fprintf(&b, "  %s [label=%s, height=%.2f];\n",
				dotID(name), htmlLabel, height)
		}
	}
	b.WriteByte('\n')

	// Edges in a stable order.
	ordered := make([]classEdge, 0, len(classCounts))
	maxEdgeCount := 1
	for ce, count := range classCounts {
		if !renderSet[ce.from] || !renderSet[ce.to] {
			continue
		}
		ordered = append(ordered, ce)
		if count > maxEdgeCount {
			maxEdgeCount = count
		}
	}
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].from != ordered[j].from {
			return ordered[i].from < ordered[j].from
		}
		return ordered[i].to < ordered[j].to
	})

	for _, ce := range ordered {
		count := classCounts[ce]
		pw := 0.5 + 2.0*math.Log2(float64(count)+1)/math.Log2(float64(maxEdgeCount)+1)
		attrs := fmt.Sprintf("penwidth=%.1f", pw)
		if count > 1 {
			attrs += fmt.Sprintf(", label=<<font point-size=\"7\" color=\"%s\">%d</font>>",
				t.ExternalText, count)
		}
		fmt.Fprintf(&b, "  %s -> %s [%s];\n", dotID(ce.from), dotID(ce.to), attrs)
	}

	b.WriteString("}\n")
	return b.String()
}
