package detectors

import (
	"deobf/internal/model"
	"deobf/internal/pattern"
	"deobf/internal/pipeline"
)

const wealthLiteral = "Wealth: "

// Economy names the star and empire entities from the update loops in
// Space.tick, then the empire's wealth, owner link and state enum.
type Economy struct{ meta }

func NewEconomy() *Economy {
	return &Economy{meta{
		name:     "Economy",
		requires: []string{KeySpace},
		provides: []string{KeyStar, KeyEmpire},
	}}
}

type entityLoop struct {
	class string
	tick  string
}

func (d *Economy) Detect(ctx *pipeline.Context) error {
	space, err := pipeline.Lookup[SpaceInfo](ctx, KeySpace)
	if err != nil {
		return err
	}
	tick := ctx.Program.Method(space.Class, space.Tick, "()V")
	if tick == nil {
		return ctx.Missing(space.Class, space.Tick, "Space.tick disappeared")
	}

	roles := map[string]string{space.Stars: "Star", space.Empires: "Empire"}
	loops := make(map[string]entityLoop)
	for _, get := range pattern.Calls(tick, model.INVOKEVIRTUAL, vectorClass, "get", "(I)"+objectDesc) {
		recv, err := source(ctx, tick, get, 1)
		if err != nil {
			return err
		}
		if !is(recv, model.GETSTATIC) || recv.Owner != space.Class {
			return ctx.Mismatch(space.Class, space.Tick, "Vector.get on %v, want a Space entity vector", recv)
		}
		role, ok := roles[recv.Name]
		if !ok {
			continue
		}
		cast := pattern.NextReal(get)
		if !is(cast, model.CHECKCAST) {
			return ctx.Mismatch(space.Class, space.Tick, "%s element is not cast", role)
		}
		call, err := pattern.NextMember(cast, model.INVOKEVIRTUAL, cast.Type, pattern.Wildcard, "()V")
		if err != nil {
			return ctx.MismatchErr(err, space.Class, space.Tick, "%s element is never updated", role)
		}
		if src, err := source(ctx, tick, call, 0); err != nil {
			return err
		} else if src != cast {
			return ctx.Mismatch(space.Class, space.Tick, "%s update does not target the cast element", role)
		}
		if prev, dup := loops[role]; dup {
			return ctx.Collision(space.Class, space.Tick, "second %s loop over %s (first over %s)", role, cast.Type, prev.class)
		}
		loops[role] = entityLoop{class: cast.Type, tick: call.Name}
	}

	for _, role := range []string{"Star", "Empire"} {
		loop, ok := loops[role]
		if !ok {
			return ctx.Unresolved(space.Class, space.Tick, "no %s update loop", role)
		}
		if _, err := programClass(ctx, loop.class, loop.tick); err != nil {
			return err
		}
		if err := ctx.RenameClass(loop.class, role); err != nil {
			return err
		}
		if err := ctx.RenameMethod(loop.class, loop.tick, "()V", "tick"); err != nil {
			return err
		}
		if err := ctx.Publish(TickKey(loop.class), loop.tick); err != nil {
			return err
		}
	}
	star, empire := loops["Star"].class, loops["Empire"].class
	d.restoreSignatures(ctx, space, star, empire)

	if err := d.wealth(ctx, empire); err != nil {
		return err
	}
	if err := d.owner(ctx, star, empire); err != nil {
		return err
	}
	if err := d.state(ctx, empire); err != nil {
		return err
	}

	if err := ctx.Publish(KeyStar, star); err != nil {
		return err
	}
	return ctx.Publish(KeyEmpire, empire)
}

// restoreSignatures attaches element types to the entity vectors and their
// getters.
func (d *Economy) restoreSignatures(ctx *pipeline.Context, space SpaceInfo, star, empire string) {
	cls := ctx.Program.Class(space.Class)
	elem := map[string]string{space.Stars: star, space.Empires: empire}
	for field, class := range elem {
		sig := "Ljava/util/Vector<" + model.ClassDesc(class) + ">;"
		if f := cls.Field(field, vectorDesc); f != nil {
			f.Signature = sig
		}
		for _, m := range staticMethods(cls, "()"+vectorDesc) {
			if pattern.IsGetter(m, space.Class, field, vectorDesc, true) {
				m.Signature = "()" + sig
			}
		}
	}
	ctx.Note(pipeline.DiagStructure, "element types restored on %s vectors", space.Class)
}

func (d *Economy) wealth(ctx *pipeline.Context, empire string) error {
	cls, err := programClass(ctx, empire, "getDescription")
	if err != nil {
		return err
	}
	m, err := uniqueLdcMethod(ctx, []*model.Class{cls}, wealthLiteral, empire, "getDescription")
	if err != nil {
		return err
	}
	if m.Desc != "()"+stringDesc {
		return ctx.Mismatch(empire, m.Name, "description method is %s, want ()String", m.Desc)
	}
	anchor, err := pattern.LdcIn(m, wealthLiteral)
	if err != nil {
		return ctx.MismatchErr(err, empire, m.Name, "wealth label vanished")
	}
	read, err := pattern.NextMember(anchor, model.GETFIELD, empire, pattern.Wildcard, "D")
	if err != nil {
		return ctx.MismatchErr(err, empire, m.Name, "no double field read after %q", wealthLiteral)
	}
	if err := ctx.RenameMethod(empire, m.Name, m.Desc, "getDescription"); err != nil {
		return err
	}
	return ctx.RenameField(empire, read.Name, read.Desc, "wealth")
}

func (d *Economy) owner(ctx *pipeline.Context, star, empire string) error {
	cls := ctx.Program.Class(star)
	f, err := exactlyOne(ctx, instanceFields(cls, model.ClassDesc(empire)), star, "owner", "empire-typed field on Star")
	if err != nil {
		return err
	}
	return ctx.RenameField(star, f.Name, f.Desc, "owner")
}

func (d *Economy) state(ctx *pipeline.Context, empire string) error {
	cls := ctx.Program.Class(empire)
	var enums []*model.Field
	for _, f := range cls.Fields {
		if f.IsStatic() {
			continue
		}
		if t, ok := model.ObjectType(f.Desc); ok {
			if c := ctx.Program.Class(t); c != nil && c.IsEnum() {
				enums = append(enums, f)
			}
		}
	}
	f, err := exactlyOne(ctx, enums, empire, "state", "enum-typed field on Empire")
	if err != nil {
		return err
	}
	enum, _ := model.ObjectType(f.Desc)
	if err := ctx.RenameField(empire, f.Name, f.Desc, "state"); err != nil {
		return err
	}
	if err := ctx.RenameClass(enum, "EmpireState"); err != nil {
		return err
	}
	consts, err := enumConstants(ctx, enum)
	if err != nil {
		return err
	}
	for _, field := range consts.Order {
		lit := consts.Literal[field]
		if lit == field {
			continue
		}
		if err := ctx.RenameField(enum, field, model.ClassDesc(enum), lit); err != nil {
			return err
		}
	}
	return nil
}
