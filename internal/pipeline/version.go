package pipeline

import (
	"fmt"

	semver "github.com/hashicorp/go-version"
)

// WithVersionConstraint restricts Run to programs whose version satisfies
// expr (for example ">= 0.9, < 2.0").
func WithVersionConstraint(expr string) Option {
	return func(p *Pipeline) error {
		if expr == "" {
			return nil
		}
		c, err := semver.NewConstraint(expr)
		if err != nil {
			return fmt.Errorf("pipeline: bad version constraint %q: %w", expr, err)
		}
		p.constraint = c
		return nil
	}
}

// Constraint returns the version constraint, or "" if none.
func (p *Pipeline) Constraint() string {
	if p.constraint == nil {
		return ""
	}
	return p.constraint.String()
}

func (p *Pipeline) checkVersion(ctx *Context) error {
	if p.constraint == nil {
		return nil
	}
	if ctx.Program.Version == "" {
		ctx.Note(DiagVersion, "program version unknown, %s not checked", p.constraint)
		ctx.Log.Warnf("program version unknown, skipping check against %s", p.constraint)
		return nil
	}
	v, err := semver.NewVersion(ctx.Program.Version)
	if err != nil {
		return fmt.Errorf("%w: %q: %v", ErrUnsupportedVersion, ctx.Program.Version, err)
	}
	if !p.constraint.Check(v) {
		return fmt.Errorf("%w: %s does not satisfy %s", ErrUnsupportedVersion, v, p.constraint)
	}
	return nil
}
