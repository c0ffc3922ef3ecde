package detectors

import (
	"strconv"

	"deobf/internal/model"
	"deobf/internal/pattern"
	"deobf/internal/pipeline"
)

const actorSpawnLiteral = "Actor spawned: "

// Actors names the actor base type and the spawn predicate Space.tick
// consults before spawning. The single predicate implementation becomes an
// anonymous inner class of Space.
type Actors struct{ meta }

func NewActors() *Actors {
	return &Actors{meta{
		name:     "Actor",
		requires: []string{KeySpace},
		provides: []string{KeyActor},
	}}
}

func (d *Actors) Detect(ctx *pipeline.Context) error {
	space, err := pipeline.Lookup[SpaceInfo](ctx, KeySpace)
	if err != nil {
		return err
	}
	spawn, err := uniqueLdcMethod(ctx, ctx.Program.Classes(), actorSpawnLiteral, space.Class, "spawnActor")
	if err != nil {
		return err
	}
	if spawn.Owner != space.Class || !spawn.IsStatic() {
		return ctx.Mismatch(spawn.Owner, spawn.Name, "spawn log outside a static Space method")
	}
	args, ret, err := model.ParseMethodDesc(spawn.Desc)
	if err != nil || len(args) != 1 || ret != "V" {
		return ctx.Mismatch(space.Class, spawn.Name, "spawn signature %s, want (Actor)V", spawn.Desc)
	}
	actor, ok := model.ObjectType(args[0])
	if !ok || ctx.Program.Class(actor) == nil {
		return ctx.Mismatch(space.Class, spawn.Name, "spawn argument %s is not a program class", args[0])
	}
	store, err := pattern.FindMember(spawn, model.GETSTATIC, space.Class, space.Actors, vectorDesc)
	if err != nil || !pattern.StartsWith(store, []*model.Insn{
		model.FieldInsn(model.GETSTATIC, space.Class, space.Actors, vectorDesc),
		model.VarInsn(model.ALOAD, 0),
		model.MethodInsn(model.INVOKEVIRTUAL, vectorClass, "add", "("+objectDesc+")Z"),
	}) {
		return ctx.Mismatch(space.Class, spawn.Name, "spawned actor is not added to the actor vector")
	}
	if err := ctx.RenameMethod(space.Class, spawn.Name, spawn.Desc, "spawnActor"); err != nil {
		return err
	}
	if err := ctx.RenameClass(actor, "Actor"); err != nil {
		return err
	}

	tick := ctx.Program.Method(space.Class, space.Tick, "()V")
	if tick == nil {
		return ctx.Missing(space.Class, space.Tick, "Space.tick disappeared")
	}
	call, err := exactlyOne(ctx, pattern.Calls(tick, model.INVOKESTATIC, space.Class, spawn.Name, spawn.Desc),
		space.Class, space.Tick, "spawn call in tick")
	if err != nil {
		return err
	}
	fresh, err := source(ctx, tick, call, 0)
	if err != nil {
		return err
	}
	if !is(fresh, model.NEW) || !ctx.Program.IsSubclassOf(fresh.Type, actor) {
		return ctx.Mismatch(space.Class, space.Tick, "spawned value is not a new actor")
	}
	gate, err := pattern.Previous(fresh, model.IFEQ)
	if err != nil {
		return ctx.MismatchErr(err, space.Class, space.Tick, "spawn is not guarded")
	}
	test, err := source(ctx, tick, gate, 0)
	if err != nil {
		return err
	}
	if !is(test, model.INVOKEINTERFACE) || test.Desc != "()Z" {
		return ctx.Mismatch(space.Class, space.Tick, "spawn guard is %v, want an interface ()Z call", test)
	}
	pred := ctx.Program.Class(test.Owner)
	if pred == nil || !pred.IsInterface() {
		return ctx.Mismatch(test.Owner, test.Name, "spawn guard owner is not a program interface")
	}
	holder, err := source(ctx, tick, test, 0)
	if err != nil {
		return err
	}
	if !is(holder, model.GETSTATIC) || holder.Owner != space.Class || holder.Desc != model.ClassDesc(pred.Name) {
		return ctx.Mismatch(space.Class, space.Tick, "spawn predicate is not a Space static")
	}
	if err := ctx.RenameClass(pred.Name, "ActorSpawnPredicate"); err != nil {
		return err
	}
	if err := ctx.RenameMethod(pred.Name, test.Name, test.Desc, "shouldSpawn"); err != nil {
		return err
	}
	if err := ctx.RenameField(space.Class, holder.Name, holder.Desc, "actorSpawnPredicate"); err != nil {
		return err
	}

	if err := d.adoptPredicate(ctx, space, pred.Name, holder); err != nil {
		return err
	}
	return ctx.Publish(KeyActor, actor)
}

// adoptPredicate turns the predicate stored by Space's initializer into an
// anonymous inner class of Space.
func (d *Actors) adoptPredicate(ctx *pipeline.Context, space SpaceInfo, pred string, holder *model.Insn) error {
	impl, err := exactlyOne(ctx, ctx.Program.Implementors(pred), pred, "*", "ActorSpawnPredicate implementation")
	if err != nil {
		return err
	}
	outer := ctx.Program.Class(space.Class)
	clinit := outer.StaticInit()
	if clinit == nil {
		return ctx.Mismatch(space.Class, "<clinit>", "predicate is never initialised")
	}
	put, err := pattern.FindMember(clinit, model.PUTSTATIC, space.Class, holder.Name, holder.Desc)
	if err != nil {
		return ctx.MismatchErr(err, space.Class, "<clinit>", "predicate is never initialised")
	}
	fresh, err := source(ctx, clinit, put, 0)
	if err != nil {
		return err
	}
	if !is(fresh, model.NEW) || fresh.Type != impl.Name {
		return ctx.Mismatch(space.Class, "<clinit>", "predicate field holds %v, want a new %s", fresh, impl.Name)
	}

	n := 1
	for _, name := range outer.AnonymousInners() {
		if name != impl.Name {
			n++
		}
	}
	rec := model.InnerClass{Name: impl.Name}
	impl.SetOuter(space.Class, "", "")
	impl.AddInnerClass(rec)
	outer.AddInnerClass(rec)
	ctx.Note(pipeline.DiagStructure, "%s is anonymous class %d of %s", impl.Name, n, space.Class)
	return ctx.RenameInnerClass(impl.Name, space.Class, strconv.Itoa(n))
}
