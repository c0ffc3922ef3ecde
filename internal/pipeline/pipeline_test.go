package pipeline

import (
	"errors"
	"testing"

	"github.com/apex/log"
	"github.com/apex/log/handlers/memory"

	"deobf/internal/model"
)

type fake struct {
	name string
	req  []string
	prov []string
	run  func(ctx *Context) error
}

func (f *fake) String() string     { return f.name }
func (f *fake) Requires() []string { return f.req }
func (f *fake) Provides() []string { return f.prov }
func (f *fake) Detect(ctx *Context) error {
	if f.run == nil {
		return nil
	}
	return f.run(ctx)
}

func testContext(t *testing.T) (*Context, *memory.Handler) {
	t.Helper()
	h := memory.New()
	logger := &log.Logger{Handler: h, Level: log.DebugLevel}
	return NewContext(model.NewProgram("1.2.0"), WithLogger(logger)), h
}

func TestNewRejectsBadOrder(t *testing.T) {
	a := &fake{name: "A", prov: []string{"a"}}
	b := &fake{name: "B", req: []string{"a"}}
	if _, err := New([]Detector{b, a}); !errors.Is(err, ErrOrder) {
		t.Fatalf("err = %v, want ErrOrder", err)
	}
	if _, err := New([]Detector{a, b}); err != nil {
		t.Fatalf("valid order rejected: %v", err)
	}
	self := &fake{name: "S", req: []string{"s"}, prov: []string{"s"}}
	if _, err := New([]Detector{self}); !errors.Is(err, ErrOrder) {
		t.Errorf("self dependency err = %v, want ErrOrder", err)
	}
	if _, err := New([]Detector{a, &fake{name: "A"}}); err == nil {
		t.Error("duplicate detector name accepted")
	}
	if _, err := New([]Detector{a, &fake{name: "A2", prov: []string{"a"}}}); err == nil {
		t.Error("duplicate provider accepted")
	}
}

func TestRunStopsAtFirstFailure(t *testing.T) {
	ran := map[string]bool{}
	a := &fake{name: "A", prov: []string{"a"}, run: func(ctx *Context) error {
		ran["A"] = true
		if err := ctx.RenameClass("x", "Space"); err != nil {
			return err
		}
		return ctx.Publish("a", "x")
	}}
	b := &fake{name: "B", req: []string{"a"}, run: func(ctx *Context) error {
		ran["B"] = true
		return ctx.Mismatch("x", "tick", "expected GETSTATIC, found GETFIELD")
	}}
	c := &fake{name: "C", run: func(ctx *Context) error {
		ran["C"] = true
		return ctx.RenameClass("y", "Star")
	}}
	p, err := New([]Detector{a, b, c})
	if err != nil {
		t.Fatal(err)
	}
	ctx, h := testContext(t)
	rep, err := p.Run(ctx)

	if !IsKind(err, ShapeMismatch) {
		t.Fatalf("err = %v, want shape mismatch", err)
	}
	var pe *Error
	errors.As(err, &pe)
	if pe.Feature != "B" || pe.Owner != "x" || pe.Member != "tick" {
		t.Errorf("error = %+v", pe)
	}
	if ran["C"] {
		t.Error("detector after the failure ran")
	}
	if ctx.Symbols.Len() != 1 {
		t.Errorf("symbols = %d, want 1", ctx.Symbols.Len())
	}
	if rep.Failed != "B" || len(rep.Steps) != 2 || rep.Steps[0].Renames != 1 {
		t.Errorf("report = %+v", rep)
	}

	var done int
	for _, e := range h.Entries {
		if e.Message == "detector done" {
			done++
		}
	}
	if done != 1 {
		t.Errorf("logged %d completed detectors, want 1", done)
	}
}

func TestRunMissingPrerequisite(t *testing.T) {
	b := &fake{name: "B", req: []string{"space"}, run: func(ctx *Context) error {
		t.Error("detector ran without its prerequisite")
		return nil
	}}
	p, err := New([]Detector{b})
	if err != nil {
		t.Fatal(err)
	}
	ctx, _ := testContext(t)
	_, err = p.Run(ctx)
	if !IsKind(err, PrerequisiteMissing) {
		t.Fatalf("err = %v, want prerequisite missing", err)
	}
}

func TestRunUnpublishedProvide(t *testing.T) {
	p, err := New([]Detector{&fake{name: "A", prov: []string{"a"}}})
	if err != nil {
		t.Fatal(err)
	}
	ctx, _ := testContext(t)
	if _, err := p.Run(ctx); err == nil {
		t.Fatal("missing publish not reported")
	}
}

func TestGuardTypesPlainErrors(t *testing.T) {
	boom := errors.New("boom")
	p, err := New([]Detector{&fake{name: "A", run: func(*Context) error { return boom }}})
	if err != nil {
		t.Fatal(err)
	}
	ctx, _ := testContext(t)
	_, err = p.Run(ctx)
	if !IsKind(err, ShapeMismatch) || !errors.Is(err, boom) {
		t.Fatalf("err = %v, want wrapped shape mismatch", err)
	}
}

func TestLazyState(t *testing.T) {
	ctx, _ := testContext(t)
	calls := 0
	if err := ctx.Provide("enum", func(*Context) (any, error) {
		calls++
		return map[string]string{"PEACE": "a"}, nil
	}); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 2; i++ {
		m, err := Lookup[map[string]string](ctx, "enum")
		if err != nil {
			t.Fatal(err)
		}
		if m["PEACE"] != "a" {
			t.Errorf("value = %v", m)
		}
	}
	if calls != 1 {
		t.Errorf("producer ran %d times, want 1", calls)
	}
	if _, err := Lookup[string](ctx, "enum"); err == nil {
		t.Error("wrong type accepted")
	}
	if _, err := Lookup[string](ctx, "nope"); !IsKind(err, PrerequisiteMissing) {
		t.Errorf("missing key err = %v", err)
	}
	if err := ctx.Publish("enum", 1); !IsKind(err, Collision) {
		t.Errorf("republish err = %v, want collision", err)
	}
}

func TestRenameErrors(t *testing.T) {
	ctx, _ := testContext(t)
	ctx.Package = "game"
	ctx.Enter("Space")
	if err := ctx.RenameClass("a", "Space"); err != nil {
		t.Fatal(err)
	}
	if got, _ := ctx.CanonicalClass("a"); got != "game/Space" {
		t.Errorf("canonical = %q", got)
	}
	err := ctx.RenameClass("a", "Other")
	if !IsKind(err, Collision) {
		t.Fatalf("err = %v, want collision", err)
	}
	var pe *Error
	errors.As(err, &pe)
	if pe.Feature != "Space" || pe.Owner != "a" {
		t.Errorf("error = %+v", pe)
	}
	if err := ctx.RenameField("a", "stars", "I", "stars"); !IsKind(err, InvalidRename) {
		t.Errorf("identity rename err = %v", err)
	}
	if err := ctx.RenameMethod("a", "<init>", "()V", "create"); !IsKind(err, InvalidRename) {
		t.Errorf("constructor rename err = %v", err)
	}
	if err := ctx.RenameInnerClass("b", "a", "1"); err != nil {
		t.Fatal(err)
	}
	if got, _ := ctx.CanonicalClass("b"); got != "game/Space$1" {
		t.Errorf("inner canonical = %q", got)
	}
	if err := ctx.RenameInnerClass("c", "zz", "1"); !IsKind(err, PrerequisiteMissing) {
		t.Errorf("unknown outer err = %v", err)
	}
}

func TestVersionConstraint(t *testing.T) {
	d := []Detector{&fake{name: "A"}}
	p, err := New(d, WithVersionConstraint(">= 1.0, < 1.2"))
	if err != nil {
		t.Fatal(err)
	}
	ctx, _ := testContext(t)
	if _, err := p.Run(ctx); !errors.Is(err, ErrUnsupportedVersion) {
		t.Fatalf("err = %v, want ErrUnsupportedVersion", err)
	}

	ok, err := New(d, WithVersionConstraint(">= 1.0, < 2.0"))
	if err != nil {
		t.Fatal(err)
	}
	ctx, _ = testContext(t)
	if _, err := ok.Run(ctx); err != nil {
		t.Fatal(err)
	}

	ctx, _ = testContext(t)
	ctx.Program.Version = ""
	rep, err := p.Run(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(rep.Diags) != 1 || rep.Diags[0].Kind != DiagVersion {
		t.Errorf("diags = %v", rep.Diags)
	}

	if _, err := New(d, WithVersionConstraint("not a version")); err == nil {
		t.Error("bad constraint accepted")
	}
}

func TestSelectAndDependencies(t *testing.T) {
	a := &fake{name: "A", prov: []string{"a"}}
	b := &fake{name: "B", req: []string{"a"}, prov: []string{"b"}}
	c := &fake{name: "C", req: []string{"a", "b"}}
	p, err := New([]Detector{a, b, c})
	if err != nil {
		t.Fatal(err)
	}
	deps, err := p.Dependencies("C")
	if err != nil {
		t.Fatal(err)
	}
	if len(deps) != 2 || deps[0] != "A" || deps[1] != "B" {
		t.Errorf("Dependencies(C) = %v", deps)
	}

	sub, err := p.Select("C", "A")
	if err != nil {
		t.Fatal(err)
	}
	if len(sub.Detectors()) != 2 || sub.Detectors()[0] != Detector(a) {
		t.Errorf("Select order = %v", sub.Detectors())
	}
	if _, err := p.Select("Z"); err == nil {
		t.Error("unknown detector selected")
	}
}
