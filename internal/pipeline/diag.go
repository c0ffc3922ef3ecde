package pipeline

import "fmt"

// DiagKind classifies a non-fatal note recorded during a run.
type DiagKind string

const (
	DiagSkipped   DiagKind = "skipped"   // candidate ignored on purpose
	DiagOrder     DiagKind = "order"     // result depends on declaration order
	DiagVersion   DiagKind = "version"   // version gate could not be applied
	DiagStructure DiagKind = "structure" // program metadata was patched
)

// Diag is one note. Notes never change the outcome of a run.
type Diag struct {
	Feature string   `json:"feature"`
	Kind    DiagKind `json:"kind"`
	Msg     string   `json:"msg"`
}

func (d Diag) String() string {
	return fmt.Sprintf("[%s] %s: %s", d.Kind, d.Feature, d.Msg)
}

// Diags accumulates notes.
type Diags struct {
	items []Diag
}

func (d *Diags) Add(feature string, kind DiagKind, msg string) {
	d.items = append(d.items, Diag{Feature: feature, Kind: kind, Msg: msg})
}

func (d *Diags) Addf(feature string, kind DiagKind, format string, args ...any) {
	d.Add(feature, kind, fmt.Sprintf(format, args...))
}

func (d *Diags) Items() []Diag { return d.items }
func (d *Diags) Len() int      { return len(d.items) }
