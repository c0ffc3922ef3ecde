package render

import (
	"fmt"
	"sort"
	"strings"

	"deobf/internal/disasm"
)

// Provenance categories derived from CallEdgeRecord.Via.
const (
	ProvStaticField = "static_field"
	ProvField       = "field"
	ProvFresh       = "fresh"
	ProvLocal       = "local"
	ProvDirect      = "direct"
	ProvUnresolved  = "unresolved"
)

// ClassifyEdgeProv returns the provenance category for a call edge.
func ClassifyEdgeProv(e disasm.CallEdgeRecord) string {
	if e.Kind == "invokestatic" {
		return ProvDirect
	}
	switch {
	case strings.HasPrefix(e.Via, "GETSTATIC "):
		return ProvStaticField
	case strings.HasPrefix(e.Via, "GETFIELD "):
		return ProvField
	case strings.HasPrefix(e.Via, "NEW "):
		return ProvFresh
	case strings.HasPrefix(e.Via, "ALOAD "):
		return ProvLocal
	default:
		return ProvUnresolved
	}
}

// edgeColor returns the DOT color for an edge provenance category.
func edgeColor(prov string, t Theme) string {
	switch prov {
	case ProvStaticField:
		return t.EdgeStaticField
	case ProvField:
		return t.EdgeField
	case ProvFresh:
		return t.EdgeFresh
	case ProvLocal:
		return t.EdgeLocal
	case ProvUnresolved:
		return t.EdgeUnresolved
	default:
		return t.EdgeDirect
	}
}

// edgeStyle returns dot style attributes for provenance.
func edgeStyle(prov string) string {
	switch prov {
	case ProvLocal:
		return "dotted"
	case ProvUnresolved:
		return "dashed"
	default:
		return "solid"
	}
}

// CallgraphDOT renders a callgraph from methods and call edges as DOT.
// Methods are clustered by owner. Targets outside the listed methods are
// shown as plaintext nodes. maxNodes limits the number of method nodes
// rendered (0 = all).
func CallgraphDOT(funcs []disasm.MethodRecord, edges []disasm.CallEdgeRecord, title string, t Theme, maxNodes int) string {
	// Deduplicate edges: caller→callee→prov.
	type edgeKey struct {
		from, to, prov string
	}
	counts := make(map[edgeKey]int)
	var keys []edgeKey
	for _, e := range edges {
		k := edgeKey{e.FromFunc, e.Target, ClassifyEdgeProv(e)}
		if counts[k] == 0 {
			keys = append(keys, k)
		}
		counts[k]++
	}

	refNodes := make(map[string]bool)
	for _, k := range keys {
		refNodes[k.from] = true
		refNodes[k.to] = true
	}

	var renderFuncs []disasm.MethodRecord
	for _, f := range funcs {
		if refNodes[f.FuncName()] {
			renderFuncs = append(renderFuncs, f)
		}
	}
	if maxNodes > 0 && len(renderFuncs) > maxNodes {
		renderFuncs = renderFuncs[:maxNodes]
	}
	funcSet := make(map[string]bool, len(renderFuncs))
	for _, f := range renderFuncs {
		funcSet[f.FuncName()] = true
	}

	// External nodes: targets reached from rendered methods only.
	externalNodes := make(map[string]bool)
	var externals []string
	for _, k := range keys {
		if funcSet[k.from] && !funcSet[k.to] && !externalNodes[k.to] {
			externalNodes[k.to] = true
			externals = append(externals, k.to)
		}
	}

	// Group rendered methods by owner for clustering.
	var owners []string
	byOwner := make(map[string][]string)
	for _, f := range renderFuncs {
		name := f.FuncName()
		owner := ownerOf(name)
		if _, ok := byOwner[owner]; !ok {
			owners = append(owners, owner)
		}
		byOwner[owner] = append(byOwner[owner], name)
	}

	var b strings.Builder
	b.WriteString("digraph callgraph {\n")
	b.WriteString("  rankdir=LR;\n")
	b.WriteString("  compound=true;\n")
	b.WriteString("  splines=true;\n")
	b.WriteString("  nodesep=0.4;\n")
	b.WriteString("  ranksep=0.6;\n")
	fmt.Fprintf(&b, "  bgcolor=%q;\n", t.Background)
	fmt.Fprintf(&b, "  node [shape=rect, style=filled, fillcolor=%q, color=%q, penwidth=0.5, fontname=\"Helvetica Neue,Helvetica,Arial\", fontsize=9, fontcolor=%q, height=0.3, margin=\"0.12,0.06\"];\n",
		t.NodeFill, t.NodeBorder, t.TextColor)
	fmt.Fprintf(&b, "  edge [penwidth=0.5, arrowsize=0.5, arrowhead=vee];\n")
	if title != "" {
		fmt.Fprintf(&b, "  labelloc=t;\n  labeljust=l;\n")
		fmt.Fprintf(&b, "  label=<<font face=\"Helvetica Neue,Helvetica\" point-size=\"8\" color=\"%s\">%s</font>>;\n",
			t.TextColor, dotEscape(title))
	}
	b.WriteByte('\n')

	var loose []string
	for _, owner := range owners {
		names := byOwner[owner]
		if owner == "" || len(names) < 2 {
			loose = append(loose, names...)
			continue
		}
		fmt.Fprintf(&b, "  subgraph %s {\n", "cluster_"+dotID(owner))
		fmt.Fprintf(&b, "    label=<<font point-size=\"8\" color=\"%s\">%s</font>>;\n",
			t.ClusterLabel, dotEscape(simpleName(owner)))
		fmt.Fprintf(&b, "    style=dotted; color=%q; penwidth=0.3;\n", t.ClusterBorder)
		for _, name := range names {
			label := truncLabel(stripMethodName(name, owner), 50)
			fmt.Fprintf(&b, "    %s [label=%q];\n", dotID(name), label)
		}
		b.WriteString("  }\n")
	}
	for _, name := range loose {
		fmt.Fprintf(&b, "  %s [label=%q];\n", dotID(name), truncLabel(name, 60))
	}
	b.WriteByte('\n')

	for _, name := range externals {
		fmt.Fprintf(&b, "  %s [label=%q, shape=plaintext, style=\"\", fillcolor=none, fontcolor=%q, fontsize=8];\n",
			dotID(name), truncLabel(name, 50), t.ExternalText)
	}
	b.WriteByte('\n')

	for _, k := range keys {
		if !funcSet[k.from] {
			continue
		}
		if !funcSet[k.to] && !externalNodes[k.to] {
			continue
		}
		color := edgeColor(k.prov, t)
		attrs := fmt.Sprintf("color=%q, style=%q", color, edgeStyle(k.prov))
		if n := counts[k]; n > 1 {
			attrs += fmt.Sprintf(", penwidth=%.1f", 0.5+float64(n)*0.1)
			if n > 2 {
				attrs += fmt.Sprintf(", label=<<font point-size=\"7\" color=\"%s\">%dx</font>>", color, n)
			}
		}
		fmt.Fprintf(&b, "  %s -> %s [%s];\n", dotID(k.from), dotID(k.to), attrs)
	}

	b.WriteString("}\n")
	return b.String()
}

// CallgraphStats computes summary statistics from edges.
type CallgraphStats struct {
	TotalMethods int
	TotalEdges   int
	Renamed      int // methods with a recovered name
	UniqueOwners int
	ProvCounts   map[string]int
	TopCallers   []NameCount // sorted desc
	TopCallees   []NameCount // sorted desc
	TopOwners    []NameCount // sorted desc by method count
}

// NameCount pairs a name with a count.
type NameCount struct {
	Name  string
	Count int
}

// ComputeStats computes callgraph statistics from method and edge records.
func ComputeStats(funcs []disasm.MethodRecord, edges []disasm.CallEdgeRecord) CallgraphStats {
	stats := CallgraphStats{
		TotalMethods: len(funcs),
		TotalEdges:   len(edges),
		ProvCounts:   make(map[string]int),
	}

	callerCount := make(map[string]int)
	calleeCount := make(map[string]int)
	for _, e := range edges {
		stats.ProvCounts[ClassifyEdgeProv(e)]++
		callerCount[e.FromFunc]++
		calleeCount[e.Target]++
	}

	ownerCount := make(map[string]int)
	for _, f := range funcs {
		ownerCount[f.Owner]++
		if f.Renamed != "" {
			stats.Renamed++
		}
	}
	stats.UniqueOwners = len(ownerCount)

	stats.TopCallers = topNMap(callerCount, 20)
	stats.TopCallees = topNMap(calleeCount, 20)
	stats.TopOwners = topNMap(ownerCount, 30)
	return stats
}

// topNMap returns the top N entries from a map, sorted descending by count
// then ascending by name.
func topNMap(m map[string]int, n int) []NameCount {
	entries := make([]NameCount, 0, len(m))
	for name, count := range m {
		entries = append(entries, NameCount{name, count})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Count != entries[j].Count {
			return entries[i].Count > entries[j].Count
		}
		return entries[i].Name < entries[j].Name
	})
	if len(entries) > n {
		entries = entries[:n]
	}
	return entries
}
