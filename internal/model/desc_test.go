package model

import "testing"

func TestParseMethodDesc(t *testing.T) {
	args, ret, err := ParseMethodDesc("(IJ[[Ljava/lang/String;DLfoo;)Ljava/util/List;")
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"I", "J", "[[Ljava/lang/String;", "D", "Lfoo;"}
	if len(args) != len(want) {
		t.Fatalf("args = %v, want %v", args, want)
	}
	for i := range want {
		if args[i] != want[i] {
			t.Errorf("args[%d] = %q, want %q", i, args[i], want[i])
		}
	}
	if ret != "Ljava/util/List;" {
		t.Errorf("ret = %q", ret)
	}
}

func TestParseMethodDescErrors(t *testing.T) {
	for _, desc := range []string{"", "V", "(I", "(Lfoo)V", "(Q)V", "()"} {
		if _, _, err := ParseMethodDesc(desc); err == nil {
			t.Errorf("ParseMethodDesc(%q) succeeded", desc)
		}
	}
}

func TestTypeHelpers(t *testing.T) {
	if TypeSize("J") != 2 || TypeSize("D") != 2 || TypeSize("I") != 1 || TypeSize("V") != 0 {
		t.Error("TypeSize wrong for primitive categories")
	}
	if ReturnOpcode("Z") != IRETURN || ReturnOpcode("[I") != ARETURN || ReturnOpcode("V") != RETURN {
		t.Error("ReturnOpcode wrong")
	}
	if LoadOpcode("D") != DLOAD || LoadOpcode("Lfoo;") != ALOAD {
		t.Error("LoadOpcode wrong")
	}
	if name, ok := ObjectType("Lfoo/Bar;"); !ok || name != "foo/Bar" {
		t.Errorf("ObjectType = %q, %v", name, ok)
	}
	if _, ok := ObjectType("[Lfoo;"); ok {
		t.Error("array descriptor treated as object type")
	}
}
