package model

import "testing"

func testProgram(t *testing.T) *Program {
	t.Helper()
	p := NewProgram("1.0")
	classes := []*Class{
		NewClass("a", "java/lang/Object"),
		NewClass("b", "a", "i"),
		NewClass("c", "b"),
		{Name: "i", Super: "java/lang/Object", Access: AccInterface | AccAbstract},
		NewClass("d", "java/lang/Object", "i"),
	}
	for _, c := range classes {
		if err := p.Add(c); err != nil {
			t.Fatal(err)
		}
	}
	return p
}

func TestProgramAddDuplicate(t *testing.T) {
	p := testProgram(t)
	if err := p.Add(NewClass("a", "")); err == nil {
		t.Fatal("duplicate class accepted")
	}
}

func TestSupertypes(t *testing.T) {
	p := testProgram(t)
	got := p.Supertypes("c")
	want := []string{"b", "a", "i", "java/lang/Object"}
	if len(got) != len(want) {
		t.Fatalf("Supertypes(c) = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Supertypes(c)[%d] = %q, want %q", i, got[i], want[i])
		}
	}
	if !p.IsSubclassOf("c", "i") || p.IsSubclassOf("a", "i") {
		t.Error("IsSubclassOf wrong")
	}

	// Adding a class invalidates memoised closures.
	if err := p.Add(NewClass("e", "c")); err != nil {
		t.Fatal(err)
	}
	if !p.IsSubclassOf("e", "a") {
		t.Error("new subclass not resolved")
	}
}

func TestImplementorsKeepLoadOrder(t *testing.T) {
	p := testProgram(t)
	impls := p.Implementors("i")
	if len(impls) != 2 || impls[0].Name != "b" || impls[1].Name != "d" {
		t.Fatalf("Implementors(i) = %v", impls)
	}
	subs := p.Subclasses("a")
	if len(subs) != 1 || subs[0].Name != "b" {
		t.Fatalf("Subclasses(a) = %v", subs)
	}
}

func TestClassMembers(t *testing.T) {
	c := NewClass("C", "java/lang/Object")
	c.AddField(NewField(0, "f", "I"))
	c.AddMethod(NewMethod(AccPublic, "<init>", "()V", Op(RETURN)))
	m := c.AddMethod(NewMethod(AccPublic, "a", "()I"))
	c.AddMethod(NewMethod(AccPublic|AccStatic, "b", "()I"))

	if m.Owner != "C" || c.Field("f", "I").Owner != "C" {
		t.Fatal("owner not set")
	}
	if got := c.MethodsByDesc("()I"); len(got) != 2 {
		t.Errorf("MethodsByDesc = %d, want 2", len(got))
	}
	if got := c.Constructors(); len(got) != 1 {
		t.Errorf("Constructors = %d, want 1", len(got))
	}
	if c.StaticInit() != nil {
		t.Error("unexpected <clinit>")
	}

	c.AddInnerClass(InnerClass{Name: "C$1"})
	c.AddInnerClass(InnerClass{Name: "C$Named", Outer: "C", Simple: "Named"})
	c.AddInnerClass(InnerClass{Name: "C$1", Access: AccStatic})
	if len(c.InnerClasses) != 2 || c.InnerClasses[0].Access != AccStatic {
		t.Fatalf("inner records = %+v", c.InnerClasses)
	}
	if anon := c.AnonymousInners(); len(anon) != 1 || anon[0] != "C$1" {
		t.Errorf("AnonymousInners = %v", anon)
	}
}

func TestMethodLocals(t *testing.T) {
	m := NewMethod(0, "hire", "(La;)V")
	m.SetParamName(0, "worker")
	m.SetLocal(1, "x", "La;")
	m.SetLocal(1, "worker", "La;")
	if len(m.Params) != 1 || m.Params[0].Name != "worker" {
		t.Errorf("params = %+v", m.Params)
	}
	if len(m.Locals) != 1 || m.Local(1).Name != "worker" {
		t.Errorf("locals = %+v", m.Locals)
	}
}
