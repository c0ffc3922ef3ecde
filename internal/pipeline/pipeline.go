// Package pipeline runs detectors in a fixed order against one program and
// collects their renames. The first failure stops the run.
package pipeline

import (
	"errors"
	"fmt"
	"time"

	"github.com/apex/log"
	"github.com/dominikbraun/graph"
	semver "github.com/hashicorp/go-version"
)

// Detector locates one feature area and records its renames.
type Detector interface {
	fmt.Stringer

	// Requires lists the state keys that must be published before Detect runs.
	Requires() []string
	// Provides lists the state keys Detect publishes.
	Provides() []string
	// Detect runs the detector.
	Detect(ctx *Context) error
}

// Pipeline is an ordered, validated list of detectors.
type Pipeline struct {
	detectors  []Detector
	deps       graph.Graph[string, string]
	constraint semver.Constraints
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// New validates the order of detectors: every detector must come after the
// providers of the keys it requires. Keys nobody in the list provides are
// left for Run to report.
func New(detectors []Detector, opts ...Option) (*Pipeline, error) {
	g := graph.New(graph.StringHash, graph.Directed(), graph.PreventCycles())
	provider := make(map[string]int)
	for i, d := range detectors {
		if err := g.AddVertex(d.String()); err != nil {
			if errors.Is(err, graph.ErrVertexAlreadyExists) {
				return nil, fmt.Errorf("pipeline: duplicate detector %s", d)
			}
			return nil, fmt.Errorf("pipeline: add %s: %w", d, err)
		}
		for _, key := range d.Provides() {
			if j, dup := provider[key]; dup {
				return nil, fmt.Errorf("pipeline: %q provided by both %s and %s", key, detectors[j], d)
			}
			provider[key] = i
		}
	}
	for i, d := range detectors {
		for _, key := range d.Requires() {
			j, ok := provider[key]
			if !ok {
				continue
			}
			if j >= i {
				return nil, fmt.Errorf("%w: %s needs %q from %s", ErrOrder, d, key, detectors[j])
			}
			err := g.AddEdge(detectors[j].String(), d.String())
			if err != nil && !errors.Is(err, graph.ErrEdgeAlreadyExists) {
				return nil, fmt.Errorf("pipeline: %s -> %s: %w", detectors[j], d, err)
			}
		}
	}
	p := &Pipeline{detectors: detectors, deps: g}
	for _, o := range opts {
		if err := o(p); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// Detectors returns the detectors in run order.
func (p *Pipeline) Detectors() []Detector { return p.detectors }

// Dependencies returns the detectors d directly depends on.
func (p *Pipeline) Dependencies(name string) ([]string, error) {
	preds, err := p.deps.PredecessorMap()
	if err != nil {
		return nil, err
	}
	in, ok := preds[name]
	if !ok {
		return nil, fmt.Errorf("pipeline: unknown detector %q", name)
	}
	var out []string
	for _, d := range p.detectors {
		if _, dep := in[d.String()]; dep {
			out = append(out, d.String())
		}
	}
	return out, nil
}

// Select returns a pipeline of the named detectors in their original order.
func (p *Pipeline) Select(names ...string) (*Pipeline, error) {
	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[n] = true
	}
	var picked []Detector
	for _, d := range p.detectors {
		if want[d.String()] {
			picked = append(picked, d)
			delete(want, d.String())
		}
	}
	for n := range want {
		return nil, fmt.Errorf("pipeline: unknown detector %q", n)
	}
	sub, err := New(picked)
	if err != nil {
		return nil, err
	}
	sub.constraint = p.constraint
	return sub, nil
}

// Step summarises one detector run.
type Step struct {
	Feature string        `json:"feature"`
	Renames int           `json:"renames"`
	Elapsed time.Duration `json:"elapsed_ns"`
}

// Report summarises a run. On failure it covers the steps up to and
// including the failing one.
type Report struct {
	Version string `json:"version,omitempty"`
	Steps   []Step `json:"steps"`
	Renames int    `json:"renames"`
	Diags   []Diag `json:"diags,omitempty"`
	Failed  string `json:"failed,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Run executes every detector in order against ctx.
func (p *Pipeline) Run(ctx *Context) (*Report, error) {
	rep := &Report{Version: ctx.Program.Version}
	err := p.run(ctx, rep)
	rep.Renames = ctx.Symbols.Len()
	rep.Diags = ctx.Diags()
	if err != nil {
		rep.Error = err.Error()
	}
	return rep, err
}

func (p *Pipeline) run(ctx *Context, rep *Report) error {
	if err := p.checkVersion(ctx); err != nil {
		return err
	}
	for _, d := range p.detectors {
		ctx.Enter(d.String())
		before := ctx.Symbols.Len()
		start := time.Now()
		err := guard(d, requireState(d, d.Detect))(ctx)
		step := Step{Feature: d.String(), Renames: ctx.Symbols.Len() - before, Elapsed: time.Since(start)}
		rep.Steps = append(rep.Steps, step)
		if err != nil {
			rep.Failed = d.String()
			ctx.Log.WithError(err).Error("detector failed")
			return err
		}
		ctx.Log.WithFields(log.Fields{
			"renames": step.Renames,
			"elapsed": step.Elapsed,
		}).Info("detector done")
	}
	ctx.Enter("pipeline")
	return nil
}

// action is one detector invocation.
type action func(ctx *Context) error

// requireState fails with PrerequisiteMissing before running d when a key
// it requires is absent, and checks that d published what it provides.
func requireState(d Detector, next action) action {
	return func(ctx *Context) error {
		for _, key := range d.Requires() {
			if !ctx.state.Has(key) {
				return ctx.Missing("*", "*", "state %q not resolved by an earlier detector", key)
			}
		}
		if err := next(ctx); err != nil {
			return err
		}
		for _, key := range d.Provides() {
			if !ctx.state.Has(key) {
				return fmt.Errorf("pipeline: %s finished without publishing %q", d, key)
			}
		}
		return nil
	}
}

// guard converts untyped failures into shape mismatches attributed to d.
func guard(d Detector, next action) action {
	return func(ctx *Context) error {
		err := next(ctx)
		if err == nil {
			return nil
		}
		var pe *Error
		if errors.As(err, &pe) {
			return err
		}
		return &Error{
			Kind:      ShapeMismatch,
			Feature:   d.String(),
			Owner:     "*",
			Member:    "*",
			Diagnosis: "unexpected instruction layout",
			Err:       err,
		}
	}
}
