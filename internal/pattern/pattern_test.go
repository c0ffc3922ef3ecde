package pattern

import (
	"errors"
	"testing"

	"deobf/internal/model"
)

func getterBody(extra ...*model.Insn) *model.Method {
	insns := []*model.Insn{
		model.NewLabel("L0"),
		model.LineNumber(10, nil),
		model.VarInsn(model.ALOAD, 0),
		model.FieldInsn(model.GETFIELD, "C", "f", "I"),
	}
	insns = append(insns, extra...)
	insns = append(insns, model.Op(model.IRETURN))
	return model.NewMethod(model.AccPublic, "a", "()I", insns...)
}

func TestIsGetter(t *testing.T) {
	m := getterBody()
	if !IsGetter(m, "C", "f", "I", false) {
		t.Fatal("plain getter not recognised")
	}
	if IsGetter(m, "C", "g", "I", false) {
		t.Error("getter matched the wrong field")
	}
	if IsGetter(m, "C", "f", "I", true) {
		t.Error("instance getter matched as static")
	}

	bumped := getterBody(model.Op(model.ICONST_1), model.Op(model.IADD))
	if IsGetter(bumped, "C", "f", "I", false) {
		t.Error("getter with arithmetic recognised")
	}
}

func TestIsGetterStatic(t *testing.T) {
	m := model.NewMethod(model.AccStatic, "b", "()Ljava/util/Vector;",
		model.FieldInsn(model.GETSTATIC, "S", "x", "Ljava/util/Vector;"),
		model.Op(model.ARETURN),
	)
	if !IsGetter(m, "S", "x", "Ljava/util/Vector;", true) {
		t.Fatal("static getter not recognised")
	}
}

func TestIsSetter(t *testing.T) {
	m := model.NewMethod(model.AccPublic, "s", "(D)V",
		model.VarInsn(model.ALOAD, 0),
		model.VarInsn(model.DLOAD, 1),
		model.FieldInsn(model.PUTFIELD, "C", "w", "D"),
		model.Op(model.RETURN),
	)
	if !IsSetter(m, "C", "w", "D") {
		t.Fatal("setter not recognised")
	}
	if IsSetter(m, "C", "w", "J") {
		t.Error("setter matched wrong descriptor")
	}
}

func TestMatchesTemplateWildcards(t *testing.T) {
	m := model.NewMethod(0, "m", "()V",
		model.FieldInsn(model.GETSTATIC, "S", "a", "Ljava/util/Vector;"),
		model.Op(model.ICONST_0),
		model.MethodInsn(model.INVOKEVIRTUAL, "java/util/Vector", "get", "(I)Ljava/lang/Object;"),
		model.Op(model.RETURN),
	)
	tmpl := []*model.Insn{
		model.FieldInsn(model.GETSTATIC, "S", Wildcard, "Ljava/util/Vector;"),
		model.Any(),
		model.MethodInsn(model.INVOKEVIRTUAL, Wildcard, "get", Wildcard),
		model.Op(model.RETURN),
	}
	if !MatchesTemplate(m, tmpl) {
		t.Fatal("wildcard template did not match")
	}
	if MatchesTemplate(m, tmpl[:3]) {
		t.Error("short template matched a longer body")
	}
	if !StartsWith(m.Insns.First(), tmpl[:3]) {
		t.Error("prefix template did not match")
	}
	long := append(append([]*model.Insn{}, tmpl...), model.Op(model.NOP))
	if MatchesTemplate(m, long) || StartsWith(m.Insns.First(), long) {
		t.Error("template longer than body matched")
	}
	owner := []*model.Insn{model.FieldInsn(model.GETSTATIC, "T", Wildcard, Wildcard)}
	if StartsWith(m.Insns.First(), owner) {
		t.Error("owner mismatch matched")
	}
}

func TestNextPrevious(t *testing.T) {
	target := model.FieldInsn(model.PUTFIELD, "C", "f", "I")
	start := model.VarInsn(model.ALOAD, 0)
	model.NewInsnList(
		start,
		model.NewLabel(""),
		model.Op(model.ICONST_1),
		model.LineNumber(3, nil),
		target,
		model.Op(model.RETURN),
	)

	got, err := Next(start, model.PUTFIELD)
	if err != nil || got != target {
		t.Fatalf("Next = %v, %v", got, err)
	}
	back, err := Previous(target, model.ALOAD)
	if err != nil || back != start {
		t.Fatalf("Previous = %v, %v", back, err)
	}
	if _, err := Next(target, model.GETFIELD); !errors.Is(err, ErrNotFound) {
		t.Errorf("Next past end err = %v, want ErrNotFound", err)
	}
	if _, err := Previous(start, model.RETURN); !errors.Is(err, ErrNotFound) {
		t.Errorf("Previous past start err = %v, want ErrNotFound", err)
	}
	if in, err := NextMember(start, -1, "C", Wildcard, "I"); err != nil || in != target {
		t.Errorf("NextMember = %v, %v", in, err)
	}
}

func TestFindLdc(t *testing.T) {
	a := model.NewClass("a", "java/lang/Object")
	m1 := a.AddMethod(model.NewMethod(0, "m1", "()V",
		model.Ldc("Picking landmarks"), model.Op(model.POP),
		model.Ldc("Picking landmarks"), model.Op(model.POP),
		model.Op(model.RETURN)))
	b := model.NewClass("b", "java/lang/Object")
	b.AddMethod(model.NewMethod(0, "m2", "()V", model.Ldc(int32(3)), model.Op(model.RETURN)))

	hits := FindLdc([]*model.Class{a, b}, "Picking landmarks")
	if len(hits) != 2 || hits[0].Method != m1 {
		t.Fatalf("hits = %d", len(hits))
	}
	if ms := MethodsWithLdc([]*model.Class{a, b}, "Picking landmarks"); len(ms) != 1 {
		t.Errorf("MethodsWithLdc = %d, want 1", len(ms))
	}
	if ms := MethodsWithLdc([]*model.Class{a, b}, int32(3)); len(ms) != 1 || ms[0].Name != "m2" {
		t.Errorf("int constant lookup failed: %v", ms)
	}
	if ms := MethodsWithLdc([]*model.Class{a, b}, int64(3)); len(ms) != 0 {
		t.Error("int64 matched int32 constant")
	}
}

func TestReturnsConstant(t *testing.T) {
	m := model.NewMethod(0, "n", "()Ljava/lang/String;", model.Ldc("close"), model.Op(model.ARETURN))
	if s, ok := ReturnsConstant(m); !ok || s != "close" {
		t.Fatalf("ReturnsConstant = %q, %v", s, ok)
	}
	n := model.NewMethod(0, "n", "()Ljava/lang/Object;", model.Ldc(model.TypeRef("C")), model.Op(model.ARETURN))
	if _, ok := ReturnsConstant(n); ok {
		t.Error("class constant reported as string")
	}
}
