package detectors

import (
	"deobf/internal/model"
	"deobf/internal/pattern"
	"deobf/internal/pipeline"
)

const spaceTickLiteral = "Space tick took "

// SpaceInfo is published under KeySpace. All names are obfuscated.
type SpaceInfo struct {
	Class   string
	Tick    string
	Stars   string
	Empires string
	Actors  string
}

// Space finds the simulation root through the timing line its tick logs.
// The three entity vectors are named by the order tick first reads them.
type Space struct{ meta }

func NewSpace() *Space {
	return &Space{meta{name: "Space", provides: []string{KeySpace}}}
}

func (d *Space) Detect(ctx *pipeline.Context) error {
	tick, err := uniqueLdcMethod(ctx, ctx.Program.Classes(), spaceTickLiteral, "Space", "tick")
	if err != nil {
		return err
	}
	if !tick.IsStatic() || tick.Desc != "()V" {
		return ctx.Mismatch(tick.Owner, tick.Name, "tick timing found in %s, want a static ()V method", tick.Desc)
	}
	space := tick.Owner
	cls, err := programClass(ctx, space, tick.Name)
	if err != nil {
		return err
	}

	var vectors []string
	seen := make(map[string]bool)
	for _, in := range pattern.FindAll(tick, model.GETSTATIC) {
		if in.Owner != space || in.Desc != vectorDesc || seen[in.Name] {
			continue
		}
		if cls.Field(in.Name, in.Desc) == nil {
			return ctx.Mismatch(space, in.Name, "tick reads undeclared vector %s", in.Name)
		}
		seen[in.Name] = true
		vectors = append(vectors, in.Name)
	}
	if len(vectors) != 3 {
		return ctx.Mismatch(space, tick.Name, "tick reads %d entity vectors, want 3", len(vectors))
	}
	ctx.Note(pipeline.DiagOrder, "entity vector roles follow read order in %s", tick.Key())

	if err := ctx.RenameClass(space, "Space"); err != nil {
		return err
	}
	if err := ctx.RenameMethod(space, tick.Name, tick.Desc, "tick"); err != nil {
		return err
	}
	fields := []string{"stars", "empires", "actors"}
	for i, v := range vectors {
		if err := ctx.RenameField(space, v, vectorDesc, fields[i]); err != nil {
			return err
		}
	}

	getters := []string{"getStars", "getEmpires", "getActors"}
	for _, m := range staticMethods(cls, "()"+vectorDesc) {
		for i, v := range vectors {
			if !pattern.IsGetter(m, space, v, vectorDesc, true) {
				continue
			}
			if err := ctx.RenameMethod(space, m.Name, m.Desc, getters[i]); err != nil {
				return err
			}
		}
	}

	return ctx.Publish(KeySpace, SpaceInfo{
		Class:   space,
		Tick:    tick.Name,
		Stars:   vectors[0],
		Empires: vectors[1],
		Actors:  vectors[2],
	})
}
