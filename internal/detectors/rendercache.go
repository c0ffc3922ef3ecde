package detectors

import (
	"deobf/internal/model"
	"deobf/internal/pattern"
	"deobf/internal/pipeline"
)

const cacheMissLiteral = "Render cache miss: "

// renderShapes classifies render items by constructor descriptor.
var renderShapes = map[string]string{
	"(FFFF)V":                 "Rectangle",
	"(FFF)V":                  "Circle",
	"(" + stringDesc + "FF)V": "Text",
	"(FFFFF)V":                "Line",
}

// RenderCache names the render cache, the RenderItem interface and each
// render item kind.
type RenderCache struct{ meta }

func NewRenderCache() *RenderCache {
	return &RenderCache{meta{name: "RenderCache", provides: []string{KeyRenderItem}}}
}

func (d *RenderCache) Detect(ctx *pipeline.Context) error {
	get, err := uniqueLdcMethod(ctx, ctx.Program.Classes(), cacheMissLiteral, "RenderCache", "getOrCreate")
	if err != nil {
		return err
	}
	cache := get.Owner
	args, ret, err := model.ParseMethodDesc(get.Desc)
	if err != nil || len(args) != 1 || args[0] != objectDesc {
		return ctx.Mismatch(cache, get.Name, "lookup is %s, want (Object)RenderItem", get.Desc)
	}
	item, ok := model.ObjectType(ret)
	itemCls := ctx.Program.Class(item)
	if !ok || itemCls == nil || !itemCls.IsInterface() {
		return ctx.Mismatch(cache, get.Name, "lookup returns %s, want a program interface", ret)
	}
	if err := ctx.RenameClass(cache, "RenderCache"); err != nil {
		return err
	}
	if err := ctx.RenameMethod(cache, get.Name, get.Desc, "getOrCreate"); err != nil {
		return err
	}
	if err := ctx.RenameClass(item, "RenderItem"); err != nil {
		return err
	}

	var draws []*model.Method
	for _, m := range itemCls.MethodsByDesc("()V") {
		if m.IsAbstract() {
			draws = append(draws, m)
		}
	}
	render, err := exactlyOne(ctx, draws, item, "render", "abstract ()V")
	if err != nil {
		return err
	}
	if err := ctx.RenameMethod(item, render.Name, render.Desc, "render"); err != nil {
		return err
	}
	field, err := pattern.FindMember(get, model.GETFIELD, cache, pattern.Wildcard, mapDesc)
	if err != nil {
		return ctx.MismatchErr(err, cache, get.Name, "lookup reads no map field")
	}
	if err := ctx.RenameField(cache, field.Name, field.Desc, "cache"); err != nil {
		return err
	}

	impls := ctx.Program.Implementors(item)
	if len(impls) == 0 {
		return ctx.Unresolved(item, "*", "no render item implementations")
	}
	seen := make(map[string]string)
	for _, impl := range impls {
		ctors := impl.Constructors()
		if len(ctors) != 1 {
			return ctx.Mismatch(impl.Name, "<init>", "%d constructors, want 1", len(ctors))
		}
		kind, ok := renderShapes[ctors[0].Desc]
		if !ok {
			return ctx.Mismatch(impl.Name, "<init>", "unknown render item shape %s", ctors[0].Desc)
		}
		if prev, dup := seen[kind]; dup {
			return ctx.Collision(impl.Name, "<init>", "%s shape already taken by %s", kind, prev)
		}
		seen[kind] = impl.Name
		if err := ctx.RenameClass(impl.Name, kind+"RenderItem"); err != nil {
			return err
		}
	}
	return ctx.Publish(KeyRenderItem, item)
}
