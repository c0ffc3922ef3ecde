package detectors

import (
	"bytes"
	"strings"
	"testing"

	"deobf/internal/loader"
)

// The galaxy written out as a YAML dump and read back must rename exactly
// like the in-memory fixture.
func TestGalaxyFromDump(t *testing.T) {
	var buf bytes.Buffer
	if err := loader.Write(&buf, galaxy()); err != nil {
		t.Fatal(err)
	}
	p, err := loader.Load(&buf)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if p.Version != "1.4.2" || p.Len() != galaxy().Len() {
		t.Fatalf("loaded %d classes at %q", p.Len(), p.Version)
	}
	ctx, _, err := run(t, p)
	if err != nil {
		t.Fatal(err)
	}
	if got, want := strings.Join(mappings(ctx), "\n"), strings.Join(galaxyMappings, "\n"); got != want {
		t.Errorf("mappings differ:\n%s\n---\n%s", got, want)
	}
}
