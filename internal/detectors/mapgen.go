package detectors

import (
	"deobf/internal/model"
	"deobf/internal/pattern"
	"deobf/internal/pipeline"
)

const generateStarsLiteral = "Generating stars"

// MapGenerator names the star generator, its count bound and the star
// coordinates set by the Star constructor.
type MapGenerator struct{ meta }

func NewMapGenerator() *MapGenerator {
	return &MapGenerator{meta{
		name:     "MapGenerator",
		requires: []string{KeyStar, KeyNoise},
	}}
}

func (d *MapGenerator) Detect(ctx *pipeline.Context) error {
	star, err := pipeline.Lookup[string](ctx, KeyStar)
	if err != nil {
		return err
	}
	noise, err := pipeline.Lookup[NoiseInfo](ctx, KeyNoise)
	if err != nil {
		return err
	}

	gen, err := uniqueLdcMethod(ctx, ctx.Program.Classes(), generateStarsLiteral, "MapGenerator", "generateStars")
	if err != nil {
		return err
	}
	owner := gen.Owner
	if !gen.IsStatic() {
		return ctx.Mismatch(owner, gen.Name, "star generation is not static")
	}
	if _, err := pattern.FindMember(gen, model.INVOKESTATIC, noise.Class, noise.Noise2D, "(DD)D"); err != nil {
		return ctx.MismatchErr(err, owner, gen.Name, "generator never samples noise2D")
	}
	var built *model.Insn
	for _, n := range pattern.FindAll(gen, model.NEW) {
		if n.Type == star {
			built = n
			break
		}
	}
	if built == nil {
		return ctx.Mismatch(owner, gen.Name, "generator never constructs a Star")
	}
	if _, err := pattern.NextMember(built, model.INVOKESPECIAL, star, "<init>", "(DD)V"); err != nil {
		return ctx.MismatchErr(err, owner, gen.Name, "Star not built from two coordinates")
	}
	if err := ctx.RenameClass(owner, "MapGenerator"); err != nil {
		return err
	}
	if err := ctx.RenameMethod(owner, gen.Name, gen.Desc, "generateStars"); err != nil {
		return err
	}

	var bounds []*model.Insn
	for _, j := range pattern.FindAll(gen, model.IF_ICMPGE) {
		top, err := source(ctx, gen, j, 0)
		if err != nil {
			return err
		}
		if is(top, model.GETSTATIC) && top.Owner == owner && top.Desc == "I" {
			bounds = append(bounds, top)
		}
	}
	bound, err := exactlyOne(ctx, bounds, owner, "starCount", "static int loop bound")
	if err != nil {
		return err
	}
	if err := ctx.RenameField(owner, bound.Name, bound.Desc, "starCount"); err != nil {
		return err
	}
	return d.coordinates(ctx, star)
}

func (d *MapGenerator) coordinates(ctx *pipeline.Context, star string) error {
	cls, err := programClass(ctx, star, "<init>")
	if err != nil {
		return err
	}
	ctor := cls.Method("<init>", "(DD)V")
	if ctor == nil {
		return ctx.Mismatch(star, "<init>", "no (DD)V constructor")
	}
	if !pattern.MatchesTemplate(ctor, []*model.Insn{
		model.VarInsn(model.ALOAD, 0),
		model.MethodInsn(model.INVOKESPECIAL, pattern.Wildcard, "<init>", "()V"),
		model.VarInsn(model.ALOAD, 0),
		model.VarInsn(model.DLOAD, 1),
		model.FieldInsn(model.PUTFIELD, star, pattern.Wildcard, "D"),
		model.VarInsn(model.ALOAD, 0),
		model.VarInsn(model.DLOAD, 3),
		model.FieldInsn(model.PUTFIELD, star, pattern.Wildcard, "D"),
		model.Op(model.RETURN),
	}) {
		return ctx.Mismatch(star, "<init>", "constructor does not just store two coordinates")
	}
	puts := pattern.FindAll(ctor, model.PUTFIELD)
	if puts[0].Name == puts[1].Name {
		return ctx.Mismatch(star, puts[0].Name, "both coordinates stored in one field")
	}
	for i, name := range []string{"x", "y"} {
		if err := ctx.RenameField(star, puts[i].Name, puts[i].Desc, name); err != nil {
			return err
		}
	}
	return nil
}
