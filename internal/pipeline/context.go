package pipeline

import (
	"errors"
	"fmt"

	"github.com/apex/log"

	"deobf/internal/model"
	"deobf/internal/symtab"
)

// Context is handed to each detector in turn. It owns the program, the
// rename table and the state cache for one run.
type Context struct {
	Program *model.Program
	Symbols *symtab.Table
	Log     log.Interface
	// Package is prepended to canonical class names ("" = default package).
	Package string

	base    log.Interface
	state   *State
	diags   Diags
	feature string
}

// ContextOption configures a Context.
type ContextOption func(*Context)

// WithLogger routes detector logging to l.
func WithLogger(l log.Interface) ContextOption {
	return func(c *Context) { c.base = l }
}

// WithPackage sets the package prefix for canonical class names.
func WithPackage(pkg string) ContextOption {
	return func(c *Context) { c.Package = pkg }
}

// WithSymbols starts from an existing table.
func WithSymbols(t *symtab.Table) ContextOption {
	return func(c *Context) { c.Symbols = t }
}

// NewContext returns a fresh context for one run over p.
func NewContext(p *model.Program, opts ...ContextOption) *Context {
	c := &Context{
		Program: p,
		Symbols: symtab.New(),
		base:    log.Log,
		state:   newState(),
		feature: "pipeline",
	}
	for _, o := range opts {
		o(c)
	}
	c.Log = c.base
	return c
}

// Enter scopes failures, notes and logging to feature.
func (c *Context) Enter(feature string) {
	c.feature = feature
	c.Log = c.base.WithField("feature", feature)
}

// Feature returns the label of the running detector.
func (c *Context) Feature() string { return c.feature }

// State returns the run's state cache.
func (c *Context) State() *State { return c.state }

// Diags returns the notes recorded so far.
func (c *Context) Diags() []Diag { return c.diags.Items() }

// Note records a non-fatal diagnostic for the running detector.
func (c *Context) Note(kind DiagKind, format string, args ...any) {
	c.diags.Addf(c.feature, kind, format, args...)
	c.Log.Debugf(format, args...)
}

func (c *Context) fail(kind Kind, err error, owner, member, format string, args ...any) error {
	return &Error{
		Kind:      kind,
		Feature:   c.feature,
		Owner:     orStar(owner),
		Member:    orStar(member),
		Diagnosis: fmt.Sprintf(format, args...),
		Err:       err,
	}
}

// Unresolved reports a missing anchor.
func (c *Context) Unresolved(owner, member, format string, args ...any) error {
	return c.fail(UnresolvedAnchor, nil, owner, member, format, args...)
}

// Mismatch reports an anchor whose surroundings differ from the skeleton.
func (c *Context) Mismatch(owner, member, format string, args ...any) error {
	return c.fail(ShapeMismatch, nil, owner, member, format, args...)
}

// MismatchErr is Mismatch wrapping a lower-level error.
func (c *Context) MismatchErr(err error, owner, member, format string, args ...any) error {
	return c.fail(ShapeMismatch, err, owner, member, format, args...)
}

// Collision reports a second match for a singular slot.
func (c *Context) Collision(owner, member, format string, args ...any) error {
	return c.fail(Collision, nil, owner, member, format, args...)
}

// Missing reports absent prerequisite state.
func (c *Context) Missing(owner, member, format string, args ...any) error {
	return c.fail(PrerequisiteMissing, nil, owner, member, format, args...)
}

// Qualify prepends the package prefix to a simple class name.
func (c *Context) Qualify(simple string) string {
	if c.Package == "" {
		return simple
	}
	return c.Package + "/" + simple
}

// RenameClass records old -> Qualify(simple).
func (c *Context) RenameClass(old, simple string) error {
	return c.define(symtab.Key{Kind: symtab.Class, Name: old}, c.Qualify(simple))
}

// RenameInnerClass records inner -> <canonical outer>$suffix. The outer class
// must already be renamed.
func (c *Context) RenameInnerClass(inner, outer, suffix string) error {
	outerName, ok := c.Symbols.Class(outer)
	if !ok {
		return c.Missing(outer, "*", "outer class of %s has no canonical name", inner)
	}
	return c.define(symtab.Key{Kind: symtab.Class, Name: inner}, outerName+"$"+suffix)
}

// RenameMethod records a method rename. Constructors and static
// initializers are never renamed.
func (c *Context) RenameMethod(owner, name, desc, canonical string) error {
	if name == "<init>" || name == "<clinit>" {
		return c.fail(InvalidRename, nil, owner, name, "refusing to rename %s%s", name, desc)
	}
	return c.define(symtab.Key{Kind: symtab.Method, Owner: owner, Name: name, Desc: desc}, canonical)
}

// RenameField records a field rename.
func (c *Context) RenameField(owner, name, desc, canonical string) error {
	return c.define(symtab.Key{Kind: symtab.Field, Owner: owner, Name: name, Desc: desc}, canonical)
}

// CanonicalClass returns the recorded name of class old.
func (c *Context) CanonicalClass(old string) (string, bool) {
	return c.Symbols.Class(old)
}

func (c *Context) define(k symtab.Key, canonical string) error {
	err := c.Symbols.Define(symtab.Entry{Key: k, New: canonical})
	if err == nil {
		c.Log.WithFields(log.Fields{
			"kind": k.Kind.String(),
			"old":  k.String(),
			"new":  canonical,
		}).Debug("rename")
		return nil
	}
	owner, member := k.Owner, k.Name
	if k.Kind == symtab.Class {
		owner, member = k.Name, "*"
	}
	var ce *symtab.CollisionError
	if errors.As(err, &ce) {
		return c.fail(Collision, err, owner, member, "%s renamed twice", k.Kind)
	}
	return c.fail(InvalidRename, err, owner, member, "rejected rename to %q", canonical)
}
