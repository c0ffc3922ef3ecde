package output

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"deobf/internal/disasm"
	"deobf/internal/model"
	"deobf/internal/pipeline"
	"deobf/internal/symtab"
)

func table(t *testing.T) *symtab.Table {
	t.Helper()
	tab := symtab.New()
	if err := tab.DefineClass("a", "Space"); err != nil {
		t.Fatal(err)
	}
	if err := tab.DefineMethod("a", "()V", "b", "tick"); err != nil {
		t.Fatal(err)
	}
	return tab
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
}

func TestAppendMappings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "mappings.txt")
	tab := table(t)

	if err := AppendMappings(path, tab, false); err != nil {
		t.Fatalf("first append: %v", err)
	}
	if err := AppendMappings(path, tab, false); err != nil {
		t.Fatalf("second append: %v", err)
	}
	lines := readLines(t, path)
	want := []string{"CLASS a Space", "METHOD a ()V b tick", "CLASS a Space", "METHOD a ()V b tick"}
	if strings.Join(lines, "\n") != strings.Join(want, "\n") {
		t.Errorf("appended lines = %q, want %q", lines, want)
	}

	if err := AppendMappings(path, tab, true); err != nil {
		t.Fatalf("truncate: %v", err)
	}
	if lines := readLines(t, path); len(lines) != 2 {
		t.Errorf("after truncate got %d lines, want 2", len(lines))
	}
}

func TestAppendMappingsBadPath(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	if err := os.WriteFile(blocker, nil, 0644); err != nil {
		t.Fatal(err)
	}
	err := AppendMappings(filepath.Join(blocker, "mappings.txt"), table(t), false)
	if err == nil || !strings.Contains(err.Error(), "output:") {
		t.Fatalf("err = %v, want wrapped output error", err)
	}
}

func TestWriteReportJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.json")
	rep := &pipeline.Report{
		Version: "1.4.2",
		Steps:   []pipeline.Step{{Feature: "Space", Renames: 7}},
		Renames: 7,
	}
	if err := WriteReportJSON(path, rep); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var got pipeline.Report
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Version != "1.4.2" || got.Renames != 7 || len(got.Steps) != 1 || got.Steps[0].Feature != "Space" {
		t.Errorf("report = %+v", got)
	}
}

func TestWriteDOTAndListing(t *testing.T) {
	dir := t.TempDir()
	if err := WriteDOT(dir, "cfg/Space.tick", "digraph cfg {}\n"); err != nil {
		t.Fatal(err)
	}
	if lines := readLines(t, filepath.Join(dir, "cfg", "Space.tick.dot")); lines[0] != "digraph cfg {}" {
		t.Errorf("dot = %q", lines)
	}

	m := model.NewMethod(model.AccStatic, "b", "()V", model.Op(model.RETURN))
	if err := WriteListing(dir, "a/b", disasm.Disassemble(m, disasm.Options{}), nil); err != nil {
		t.Fatal(err)
	}
	if lines := readLines(t, filepath.Join(dir, "asm", "a", "b.txt")); len(lines) != 1 || !strings.HasSuffix(lines[0], "RETURN") {
		t.Errorf("listing = %q", lines)
	}
}

func TestWriteJSONL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "call_edges.jsonl")
	recs := []disasm.CallEdgeRecord{
		{FromFunc: "Space.tick", Kind: "invokestatic", Target: "Space.spawnActor", Desc: "(La;)V"},
		{FromFunc: "Space.tick", Kind: "invokevirtual", Target: "b.c", Desc: "()V", Via: "GETSTATIC a.d Lb;"},
	}
	if err := WriteJSONL(path, recs); err != nil {
		t.Fatal(err)
	}
	lines := readLines(t, path)
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2", len(lines))
	}
	var second disasm.CallEdgeRecord
	if err := json.Unmarshal([]byte(lines[1]), &second); err != nil {
		t.Fatal(err)
	}
	if second != recs[1] {
		t.Errorf("line 2 = %+v, want %+v", second, recs[1])
	}
}
