package render

import (
	"strings"
	"testing"

	"deobf/internal/disasm"
	"deobf/internal/model"
)

func records() ([]disasm.MethodRecord, []disasm.CallEdgeRecord) {
	funcs := []disasm.MethodRecord{
		{Owner: "a", Name: "main", Desc: "()V", Renamed: "Space.main"},
		{Owner: "a", Name: "c", Desc: "()V", Renamed: "Space.tick"},
		{Owner: "b", Name: "d", Desc: "()V"},
	}
	edges := []disasm.CallEdgeRecord{
		{FromFunc: "Space.main", Kind: "invokestatic", Target: "Space.tick", Desc: "()V"},
		{FromFunc: "Space.main", Kind: "invokevirtual", Target: "b.d", Desc: "()V", Via: "GETSTATIC a.s Lb;"},
		{FromFunc: "b.d", Kind: "invokevirtual", Target: "java/io/PrintStream.println", Desc: "(Ljava/lang/String;)V"},
	}
	return funcs, edges
}

func TestClassifyEdgeProv(t *testing.T) {
	tests := []struct {
		e    disasm.CallEdgeRecord
		want string
	}{
		{disasm.CallEdgeRecord{Kind: "invokestatic"}, ProvDirect},
		{disasm.CallEdgeRecord{Kind: "invokevirtual", Via: "GETSTATIC a.b La;"}, ProvStaticField},
		{disasm.CallEdgeRecord{Kind: "invokeinterface", Via: "GETFIELD a.b Lc;"}, ProvField},
		{disasm.CallEdgeRecord{Kind: "invokespecial", Via: "NEW a"}, ProvFresh},
		{disasm.CallEdgeRecord{Kind: "invokevirtual", Via: "ALOAD 1"}, ProvLocal},
		{disasm.CallEdgeRecord{Kind: "invokevirtual", Via: "CHECKCAST a"}, ProvUnresolved},
		{disasm.CallEdgeRecord{Kind: "invokevirtual"}, ProvUnresolved},
	}
	for _, tt := range tests {
		if got := ClassifyEdgeProv(tt.e); got != tt.want {
			t.Errorf("ClassifyEdgeProv(%+v) = %q, want %q", tt.e, got, tt.want)
		}
	}
}

func TestCallgraphDOT(t *testing.T) {
	funcs, edges := records()
	dot := CallgraphDOT(funcs, edges, "galaxy", NASA, 0)
	for _, want := range []string{
		"digraph callgraph {",
		"subgraph cluster_n_Space {",
		`n_Space_002etick [label="tick"]`,
		"n_Space_002emain -> n_Space_002etick",
		"shape=plaintext",
	} {
		if !strings.Contains(dot, want) {
			t.Errorf("missing %q in:\n%s", want, dot)
		}
	}
	if dot != CallgraphDOT(funcs, edges, "galaxy", NASA, 0) {
		t.Error("non-deterministic output")
	}
}

func TestClassgraphDOT(t *testing.T) {
	funcs, edges := records()
	dot := ClassgraphDOT(funcs, edges, "", NASA, 0)
	if !strings.Contains(dot, "n_Space -> n_b [penwidth=") {
		t.Errorf("missing class edge in:\n%s", dot)
	}
	if !strings.Contains(dot, NASA.RenamedFill) {
		t.Errorf("renamed class not highlighted:\n%s", dot)
	}
	if strings.Contains(dot, "PrintStream") {
		t.Errorf("external class rendered:\n%s", dot)
	}
}

func TestComputeStats(t *testing.T) {
	funcs, edges := records()
	stats := ComputeStats(funcs, edges)
	if stats.TotalMethods != 3 || stats.TotalEdges != 3 || stats.Renamed != 2 {
		t.Errorf("stats = %+v", stats)
	}
	if stats.UniqueOwners != 2 {
		t.Errorf("owners = %d, want 2", stats.UniqueOwners)
	}
	if stats.ProvCounts[ProvDirect] != 1 || stats.ProvCounts[ProvStaticField] != 1 || stats.ProvCounts[ProvUnresolved] != 1 {
		t.Errorf("prov counts = %v", stats.ProvCounts)
	}
	if len(stats.TopCallers) == 0 || stats.TopCallers[0] != (NameCount{"Space.main", 2}) {
		t.Errorf("top callers = %v", stats.TopCallers)
	}
}

func TestCFGDOT(t *testing.T) {
	done := model.NewLabel("done")
	m := model.NewMethod(model.AccStatic, "f", "()V",
		model.Op(model.ICONST_0),
		model.JumpInsn(model.IFEQ, done),
		model.MethodInsn(model.INVOKESTATIC, "a", "c", "()V"),
		done,
		model.Op(model.RETURN),
	)
	cfg := disasm.BuildCFG("Space.f", disasm.Disassemble(m, disasm.Options{}))
	lookup := func(in *model.Insn) (string, bool) {
		if in.Kind == model.InsnMethod && in.Name == "c" {
			return "Space.tick", true
		}
		return "", false
	}
	dot := CFGDOT(cfg, lookup, NASA)
	for _, want := range []string{
		"digraph cfg {",
		"0002: INVOKESTATIC Space.tick",
		"bb0 -> bb2 [color=",
		"bb0 -> bb1 [color=",
		"bb1 -> bb2 [color=",
	} {
		if !strings.Contains(dot, want) {
			t.Errorf("missing %q in:\n%s", want, dot)
		}
	}
	if CFGDOT(disasm.FuncCFG{Name: "empty"}, nil, NASA) != "" {
		t.Error("empty CFG should render nothing")
	}
}
