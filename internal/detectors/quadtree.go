package detectors

import (
	"deobf/internal/model"
	"deobf/internal/pattern"
	"deobf/internal/pipeline"
)

// quadrants in the order the children are declared.
var quadrants = []string{"northWest", "northEast", "southWest", "southEast"}

// QuadTree finds the spatial index over stars by its four self-typed
// children.
type QuadTree struct{ meta }

func NewQuadTree() *QuadTree {
	return &QuadTree{meta{name: "QuadTree", requires: []string{KeyStar}}}
}

func (d *QuadTree) Detect(ctx *pipeline.Context) error {
	star, err := pipeline.Lookup[string](ctx, KeyStar)
	if err != nil {
		return err
	}
	var trees []*model.Class
	for _, c := range ctx.Program.Classes() {
		if c.IsInterface() || len(c.Interfaces) != 0 {
			continue
		}
		if len(instanceFields(c, model.ClassDesc(c.Name))) == len(quadrants) {
			trees = append(trees, c)
		}
	}
	cls, err := exactlyOne(ctx, trees, "QuadTree", "*", "class with four self-typed children")
	if err != nil {
		return err
	}
	tree := cls.Name
	desc := model.ClassDesc(tree)
	children := instanceFields(cls, desc)

	if err := ctx.RenameClass(tree, "QuadTree"); err != nil {
		return err
	}
	// Quadrant roles are taken from declaration order.
	ctx.Note(pipeline.DiagOrder, "quadrants of %s named in declaration order", tree)
	for i, f := range children {
		if err := ctx.RenameField(tree, f.Name, f.Desc, quadrants[i]); err != nil {
			return err
		}
	}

	var splits []*model.Method
	for _, m := range cls.MethodsByDesc("()V") {
		if m.IsStatic() {
			continue
		}
		filled := make(map[string]bool)
		for _, put := range pattern.FindAll(m, model.PUTFIELD) {
			if put.Owner != tree || put.Desc != desc {
				continue
			}
			v, err := source(ctx, m, put, 0)
			if err != nil {
				return err
			}
			if is(v, model.NEW) && v.Type == tree {
				filled[put.Name] = true
			}
		}
		if len(filled) == len(children) {
			splits = append(splits, m)
		}
	}
	split, err := exactlyOne(ctx, splits, tree, "subdivide", "method creating all four children")
	if err != nil {
		return err
	}
	if err := ctx.RenameMethod(tree, split.Name, split.Desc, "subdivide"); err != nil {
		return err
	}

	insert, err := exactlyOne(ctx, cls.MethodsByDesc(methodDesc("Z", model.ClassDesc(star))), tree, "insert", "(Star)Z method")
	if err != nil {
		return err
	}
	if err := ctx.RenameMethod(tree, insert.Name, insert.Desc, "insert"); err != nil {
		return err
	}
	query, err := exactlyOne(ctx, cls.MethodsByDesc("(DDDD)"+listDesc), tree, "query", "range query")
	if err != nil {
		return err
	}
	if err := ctx.RenameMethod(tree, query.Name, query.Desc, "query"); err != nil {
		return err
	}
	stars, err := exactlyOne(ctx, instanceFields(cls, listDesc), tree, "stars", "star list field")
	if err != nil {
		return err
	}
	return ctx.RenameField(tree, stars.Name, stars.Desc, "stars")
}
