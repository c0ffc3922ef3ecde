package detectors

import (
	"deobf/internal/model"
	"deobf/internal/pattern"
	"deobf/internal/pipeline"
	"deobf/internal/provenance"
)

// EnumConstants maps the constants of one enum class, built from the
// literal each constant passes to the enum constructor in <clinit>.
type EnumConstants struct {
	// Order lists the storage fields in initialisation order.
	Order []string
	// Literal maps storage field -> constant name.
	Literal map[string]string
	// Field maps constant name -> storage field.
	Field map[string]string
}

// enumConstants returns the constants of class, scanning <clinit> the
// first time any detector asks.
func enumConstants(ctx *pipeline.Context, class string) (EnumConstants, error) {
	key := EnumKey(class)
	if !ctx.State().Has(key) {
		err := ctx.Provide(key, func(ctx *pipeline.Context) (any, error) {
			return scanEnum(ctx, class)
		})
		if err != nil {
			return EnumConstants{}, err
		}
	}
	return pipeline.Lookup[EnumConstants](ctx, key)
}

func scanEnum(ctx *pipeline.Context, class string) (EnumConstants, error) {
	out := EnumConstants{Literal: map[string]string{}, Field: map[string]string{}}
	cls, err := programClass(ctx, class, "<clinit>")
	if err != nil {
		return out, err
	}
	clinit := cls.StaticInit()
	if !cls.IsEnum() || clinit == nil {
		return out, ctx.Mismatch(class, "<clinit>", "not an enum with a static initializer")
	}
	desc := model.ClassDesc(class)
	for _, put := range pattern.FindAll(clinit, model.PUTSTATIC) {
		if put.Owner != class || put.Desc != desc {
			continue
		}
		obj, err := source(ctx, clinit, put, 0)
		if err != nil {
			return out, err
		}
		if !is(obj, model.NEW) || obj.Type != class {
			return out, ctx.Mismatch(class, put.Name, "enum constant is not a fresh %s", class)
		}
		init, err := pattern.NextMember(obj, model.INVOKESPECIAL, class, "<init>", pattern.Wildcard)
		if err != nil {
			return out, ctx.MismatchErr(err, class, put.Name, "enum constant never constructed")
		}
		depth, err := provenance.ArgumentDepth(init.Desc, 0)
		if err != nil {
			return out, ctx.MismatchErr(err, class, "<init>", "enum constructor %s", init.Desc)
		}
		lit, err := source(ctx, clinit, init, depth)
		if err != nil {
			return out, err
		}
		var name string
		if is(lit, model.LDC) {
			name, _ = lit.Const.(string)
		}
		if name == "" {
			return out, ctx.Mismatch(class, put.Name, "enum constant name is not a string literal")
		}
		if prev, dup := out.Field[name]; dup {
			return out, ctx.Collision(class, put.Name, "constant %s already stored in %s", name, prev)
		}
		out.Order = append(out.Order, put.Name)
		out.Literal[put.Name] = name
		out.Field[name] = put.Name
	}
	if len(out.Order) == 0 {
		return out, ctx.Mismatch(class, "<clinit>", "enum declares no constants")
	}
	return out, nil
}
