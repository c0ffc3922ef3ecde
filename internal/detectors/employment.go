package detectors

import (
	"deobf/internal/model"
	"deobf/internal/pattern"
	"deobf/internal/pipeline"
)

const (
	hireLiteral = "Cannot hire: job is already taken"
	fireLiteral = "Cannot fire: job is vacant"
)

// Employment names Job and its Employer callback from the guard messages
// of hire and fire.
type Employment struct{ meta }

func NewEmployment() *Employment {
	return &Employment{meta{
		name:     "Job",
		requires: []string{KeyActor},
		provides: []string{KeyJob},
	}}
}

func (d *Employment) Detect(ctx *pipeline.Context) error {
	actor, err := pipeline.Lookup[string](ctx, KeyActor)
	if err != nil {
		return err
	}
	actorDesc := model.ClassDesc(actor)

	hire, err := uniqueLdcMethod(ctx, ctx.Program.Classes(), hireLiteral, "Job", "hire")
	if err != nil {
		return err
	}
	job := hire.Owner
	if hire.Desc != methodDesc("V", actorDesc) {
		return ctx.Mismatch(job, hire.Name, "hire is %s, want (Actor)V", hire.Desc)
	}
	anchor, err := pattern.LdcIn(hire, hireLiteral)
	if err != nil {
		return ctx.MismatchErr(err, job, hire.Name, "hire guard vanished")
	}
	put, err := pattern.NextMember(anchor, model.PUTFIELD, job, pattern.Wildcard, actorDesc)
	if err != nil {
		return ctx.MismatchErr(err, job, hire.Name, "hired actor is never stored")
	}
	stored, err := source(ctx, hire, put, 0)
	if err != nil {
		return err
	}
	if !loadsSlot(stored, model.ALOAD, 1) {
		return ctx.Mismatch(job, hire.Name, "stored worker is %v, want the hire argument", stored)
	}
	worker := put.Name
	if err := ctx.RenameClass(job, "Job"); err != nil {
		return err
	}
	if err := ctx.RenameMethod(job, hire.Name, hire.Desc, "hire"); err != nil {
		return err
	}
	if err := ctx.RenameField(job, worker, actorDesc, "worker"); err != nil {
		return err
	}
	hire.SetParamName(0, "worker")
	hire.SetLocal(1, "worker", actorDesc)
	ctx.Note(pipeline.DiagStructure, "named parameter 1 of %s", hire.Key())

	jobCls := ctx.Program.Class(job)
	employer, err := d.fire(ctx, jobCls)
	if err != nil {
		return err
	}

	vacancy := []*model.Insn{
		model.VarInsn(model.ALOAD, 0),
		model.FieldInsn(model.GETFIELD, job, worker, actorDesc),
		model.JumpInsn(model.IFNONNULL, nil),
		model.Op(model.ICONST_1),
		model.Op(model.IRETURN),
		model.Op(model.ICONST_0),
		model.Op(model.IRETURN),
	}
	var vacant []*model.Method
	for _, m := range jobCls.MethodsByDesc("()Z") {
		if pattern.MatchesTemplate(m, vacancy) {
			vacant = append(vacant, m)
		}
	}
	isVacant, err := exactlyOne(ctx, vacant, job, "isVacant", "vacancy test")
	if err != nil {
		return err
	}
	if err := ctx.RenameMethod(job, isVacant.Name, isVacant.Desc, "isVacant"); err != nil {
		return err
	}

	var getters []*model.Method
	for _, m := range jobCls.MethodsByDesc("()" + employer.Desc) {
		if pattern.IsGetter(m, job, employer.Name, employer.Desc, false) {
			getters = append(getters, m)
		}
	}
	get, ok, err := atMostOne(ctx, getters, job, "getEmployer", "employer getter")
	if err != nil {
		return err
	}
	if ok {
		if err := ctx.RenameMethod(job, get.Name, get.Desc, "getEmployer"); err != nil {
			return err
		}
	}
	return ctx.Publish(KeyJob, job)
}

// fire names fire, the Employer interface and the employer field. It
// returns the GETFIELD of the employer field.
func (d *Employment) fire(ctx *pipeline.Context, jobCls *model.Class) (*model.Insn, error) {
	job := jobCls.Name
	fire, err := uniqueLdcMethod(ctx, []*model.Class{jobCls}, fireLiteral, job, "fire")
	if err != nil {
		return nil, err
	}
	if fire.Desc != "()V" {
		return nil, ctx.Mismatch(job, fire.Name, "fire is %s, want ()V", fire.Desc)
	}
	if err := ctx.RenameMethod(job, fire.Name, fire.Desc, "fire"); err != nil {
		return nil, err
	}
	notify, err := pattern.FindMember(fire, model.INVOKEINTERFACE, pattern.Wildcard, pattern.Wildcard,
		methodDesc("V", model.ClassDesc(job)))
	if err != nil {
		return nil, ctx.MismatchErr(err, job, fire.Name, "fire notifies nobody")
	}
	recv, err := source(ctx, fire, notify, 1)
	if err != nil {
		return nil, err
	}
	employer := ctx.Program.Class(notify.Owner)
	if employer == nil || !employer.IsInterface() {
		return nil, ctx.Mismatch(notify.Owner, notify.Name, "vacancy callback owner is not a program interface")
	}
	if !is(recv, model.GETFIELD) || recv.Owner != job || recv.Desc != model.ClassDesc(employer.Name) {
		return nil, ctx.Mismatch(job, fire.Name, "vacancy callback receiver is %v, want a Job field", recv)
	}
	if err := ctx.RenameClass(employer.Name, "Employer"); err != nil {
		return nil, err
	}
	if err := ctx.RenameMethod(employer.Name, notify.Name, notify.Desc, "onJobVacated"); err != nil {
		return nil, err
	}
	if err := ctx.RenameField(job, recv.Name, recv.Desc, "employer"); err != nil {
		return nil, err
	}

	ctor := jobCls.Method("<init>", methodDesc("V", recv.Desc))
	if ctor == nil {
		return nil, ctx.Mismatch(job, "<init>", "no (Employer)V constructor")
	}
	store, err := pattern.FindMember(ctor, model.PUTFIELD, job, recv.Name, recv.Desc)
	if err != nil {
		return nil, ctx.MismatchErr(err, job, "<init>", "constructor does not keep the employer")
	}
	v, err := source(ctx, ctor, store, 0)
	if err != nil {
		return nil, err
	}
	if !loadsSlot(v, model.ALOAD, 1) {
		return nil, ctx.Mismatch(job, "<init>", "employer field set from %v", v)
	}
	return recv, nil
}
