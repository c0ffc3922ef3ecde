package detectors

import (
	"fmt"

	"deobf/internal/model"
)

const (
	pub      = model.AccPublic
	static   = model.AccPublic | model.AccStatic
	abstract = model.AccPublic | model.AccAbstract
	iface    = model.AccPublic | model.AccInterface | model.AccAbstract
	obj      = "java/lang/Object"
)

// code flattens instructions and instruction slices into one body.
func code(parts ...any) []*model.Insn {
	var out []*model.Insn
	for _, p := range parts {
		switch v := p.(type) {
		case *model.Insn:
			out = append(out, v)
		case []*model.Insn:
			out = append(out, v...)
		case []any:
			out = append(out, code(v...)...)
		default:
			panic(fmt.Sprintf("code: unexpected %T", p))
		}
	}
	return out
}

func op(o int) *model.Insn                              { return model.Op(o) }
func load(o, slot int) *model.Insn                      { return model.VarInsn(o, slot) }
func field(o int, owner, name, desc string) *model.Insn { return model.FieldInsn(o, owner, name, desc) }
func call(o int, owner, name, desc string) *model.Insn  { return model.MethodInsn(o, owner, name, desc) }
func jump(o int, l *model.Insn) *model.Insn             { return model.JumpInsn(o, l) }

func newObj(typ, desc string, args ...any) []*model.Insn {
	return code(model.TypeInsn(model.NEW, typ), op(model.DUP), args, call(model.INVOKESPECIAL, typ, "<init>", desc))
}

func say(s string) []*model.Insn {
	return code(
		field(model.GETSTATIC, "java/lang/System", "out", "Ljava/io/PrintStream;"),
		model.Ldc(s),
		call(model.INVOKEVIRTUAL, "java/io/PrintStream", "println", "(Ljava/lang/String;)V"),
	)
}

// ctor is a constructor chaining to super.<init>()V followed by rest.
func ctor(desc, super string, rest ...any) *model.Method {
	return model.NewMethod(pub, "<init>", desc, code(
		load(model.ALOAD, 0), call(model.INVOKESPECIAL, super, "<init>", "()V"),
		rest,
		op(model.RETURN),
	)...)
}

func method(access int, name, desc string, parts ...any) *model.Method {
	return model.NewMethod(access, name, desc, code(parts...)...)
}

// eachIn iterates Space vector vec calling elem.tick()V on every element.
func eachIn(vec, elem, tick string) []*model.Insn {
	top, end := model.NewLabel("top"), model.NewLabel("end")
	return code(
		op(model.ICONST_0), load(model.ISTORE, 0),
		top,
		load(model.ILOAD, 0),
		field(model.GETSTATIC, "a", vec, vectorDesc),
		call(model.INVOKEVIRTUAL, vectorClass, "size", "()I"),
		jump(model.IF_ICMPGE, end),
		field(model.GETSTATIC, "a", vec, vectorDesc),
		load(model.ILOAD, 0),
		call(model.INVOKEVIRTUAL, vectorClass, "get", "(I)Ljava/lang/Object;"),
		model.TypeInsn(model.CHECKCAST, elem),
		call(model.INVOKEVIRTUAL, elem, tick, "()V"),
		model.Iinc(0, 1),
		jump(model.GOTO, top),
		end,
	)
}

func class(name, super string, ifaces ...string) *model.Class {
	return model.NewClass(name, super, ifaces...)
}

func withAccess(c *model.Class, access int) *model.Class {
	c.Access = access
	return c
}

func members(c *model.Class, items ...any) *model.Class {
	for _, it := range items {
		switch v := it.(type) {
		case *model.Field:
			c.AddField(v)
		case *model.Method:
			c.AddMethod(v)
		default:
			panic(fmt.Sprintf("members: unexpected %T", it))
		}
	}
	return c
}

func fld(access int, name, desc string) *model.Field { return model.NewField(access, name, desc) }

// galaxy builds the complete obfuscated program every detector is run
// against. Each call returns a fresh program.
func galaxy() *model.Program {
	p := model.NewProgram("1.4.2")
	for _, c := range galaxyClasses() {
		if err := p.Add(c); err != nil {
			panic(err)
		}
	}
	return p
}

func galaxyClasses() []*model.Class {
	const (
		sb   = "java/lang/StringBuilder"
		list = "java/util/List"
		str  = "Ljava/lang/String;"
	)
	spawned := model.NewLabel("spawned")
	space := members(class("a", obj),
		fld(static, "a", vectorDesc),
		fld(static, "b", vectorDesc),
		fld(static, "c", vectorDesc),
		fld(static, "d", "Lp;"),
		method(static, "a", "()V",
			eachIn("a", "b", "a"),
			eachIn("b", "c", "a"),
			eachIn("c", "e", "b"),
			field(model.GETSTATIC, "a", "d", "Lp;"),
			call(model.INVOKEINTERFACE, "p", "a", "()Z"),
			jump(model.IFEQ, spawned),
			newObj("f", "()V"),
			call(model.INVOKESTATIC, "a", "b", "(Le;)V"),
			spawned,
			say("Space tick took "),
			op(model.RETURN),
		),
		method(static, "b", "(Le;)V",
			field(model.GETSTATIC, "a", "c", vectorDesc),
			load(model.ALOAD, 0),
			call(model.INVOKEVIRTUAL, vectorClass, "add", "(Ljava/lang/Object;)Z"),
			op(model.POP),
			say("Actor spawned: "),
			op(model.RETURN),
		),
		method(static, "c", "()"+vectorDesc, field(model.GETSTATIC, "a", "a", vectorDesc), op(model.ARETURN)),
		method(static, "d", "()"+vectorDesc, field(model.GETSTATIC, "a", "b", vectorDesc), op(model.ARETURN)),
		method(static, "<clinit>", "()V",
			newObj(vectorClass, "()V"), field(model.PUTSTATIC, "a", "a", vectorDesc),
			newObj(vectorClass, "()V"), field(model.PUTSTATIC, "a", "b", vectorDesc),
			newObj(vectorClass, "()V"), field(model.PUTSTATIC, "a", "c", vectorDesc),
			newObj("g", "()V"), field(model.PUTSTATIC, "a", "d", "Lp;"),
			op(model.RETURN),
		),
	)

	star := members(class("b", obj),
		fld(pub, "a", "D"),
		fld(pub, "b", "D"),
		fld(pub, "c", "Lc;"),
		ctor("(DD)V", obj,
			load(model.ALOAD, 0), load(model.DLOAD, 1), field(model.PUTFIELD, "b", "a", "D"),
			load(model.ALOAD, 0), load(model.DLOAD, 3), field(model.PUTFIELD, "b", "b", "D"),
		),
		method(pub, "a", "()V", op(model.RETURN)),
	)

	empire := members(class("c", obj),
		fld(pub, "a", "D"),
		fld(pub, "b", "Ld;"),
		method(pub, "a", "()V",
			load(model.ALOAD, 0), op(model.DUP), field(model.GETFIELD, "c", "a", "D"),
			op(model.DCONST_1), op(model.DADD), field(model.PUTFIELD, "c", "a", "D"),
			op(model.RETURN),
		),
		method(pub, "b", "()"+str,
			newObj(sb, "()V"),
			model.Ldc("Wealth: "),
			call(model.INVOKEVIRTUAL, sb, "append", "("+str+")L"+sb+";"),
			load(model.ALOAD, 0), field(model.GETFIELD, "c", "a", "D"),
			call(model.INVOKEVIRTUAL, sb, "append", "(D)L"+sb+";"),
			call(model.INVOKEVIRTUAL, sb, "toString", "()"+str),
			op(model.ARETURN),
		),
	)

	state := members(withAccess(class("d", "java/lang/Enum"), pub|model.AccFinal|model.AccEnum|model.AccSuper),
		fld(static|model.AccFinal|model.AccEnum, "a", "Ld;"),
		fld(static|model.AccFinal|model.AccEnum, "b", "Ld;"),
		model.NewMethod(model.AccPrivate, "<init>", "("+str+"I)V", code(
			load(model.ALOAD, 0), load(model.ALOAD, 1), load(model.ILOAD, 2),
			call(model.INVOKESPECIAL, "java/lang/Enum", "<init>", "("+str+"I)V"),
			op(model.RETURN),
		)...),
		method(static, "<clinit>", "()V",
			newObj("d", "("+str+"I)V", model.Ldc("PEACE"), op(model.ICONST_0)), field(model.PUTSTATIC, "d", "a", "Ld;"),
			newObj("d", "("+str+"I)V", model.Ldc("WAR"), op(model.ICONST_1)), field(model.PUTSTATIC, "d", "b", "Ld;"),
			op(model.RETURN),
		),
	)

	actor := members(withAccess(class("e", obj), pub|model.AccSuper|model.AccAbstract),
		ctor("()V", obj),
		model.NewMethod(abstract, "b", "()V"),
	)
	rover := members(class("f", "e"),
		ctor("()V", "e"),
		method(pub, "b", "()V", op(model.RETURN)),
	)
	predicate := members(withAccess(class("p", obj), iface),
		model.NewMethod(abstract, "a", "()Z"),
	)
	rare := model.NewLabel("rare")
	chance := members(class("g", obj, "p"),
		ctor("()V", obj),
		method(pub, "a", "()Z",
			call(model.INVOKESTATIC, "java/lang/Math", "random", "()D"),
			model.Ldc(0.01),
			op(model.DCMPG),
			jump(model.IFGE, rare),
			op(model.ICONST_1), op(model.IRETURN),
			rare,
			op(model.ICONST_0), op(model.IRETURN),
		),
	)

	free, held, busy := model.NewLabel("free"), model.NewLabel("held"), model.NewLabel("busy")
	job := members(class("h", obj),
		fld(pub, "a", "Le;"),
		fld(pub, "b", "Li;"),
		ctor("(Li;)V", obj, load(model.ALOAD, 0), load(model.ALOAD, 1), field(model.PUTFIELD, "h", "b", "Li;")),
		method(pub, "a", "(Le;)V",
			load(model.ALOAD, 0), field(model.GETFIELD, "h", "a", "Le;"),
			jump(model.IFNULL, free),
			newObj("java/lang/IllegalStateException", "("+str+")V", model.Ldc("Cannot hire: job is already taken")),
			op(model.ATHROW),
			free,
			load(model.ALOAD, 0), load(model.ALOAD, 1), field(model.PUTFIELD, "h", "a", "Le;"),
			op(model.RETURN),
		),
		method(pub, "b", "()V",
			load(model.ALOAD, 0), field(model.GETFIELD, "h", "a", "Le;"),
			jump(model.IFNONNULL, held),
			newObj("java/lang/IllegalStateException", "("+str+")V", model.Ldc("Cannot fire: job is vacant")),
			op(model.ATHROW),
			held,
			load(model.ALOAD, 0), op(model.ACONST_NULL), field(model.PUTFIELD, "h", "a", "Le;"),
			load(model.ALOAD, 0), field(model.GETFIELD, "h", "b", "Li;"),
			load(model.ALOAD, 0),
			call(model.INVOKEINTERFACE, "i", "a", "(Lh;)V"),
			op(model.RETURN),
		),
		method(pub, "c", "()Z",
			load(model.ALOAD, 0), field(model.GETFIELD, "h", "a", "Le;"),
			jump(model.IFNONNULL, busy),
			op(model.ICONST_1), op(model.IRETURN),
			busy,
			op(model.ICONST_0), op(model.IRETURN),
		),
		method(pub, "d", "()Li;", load(model.ALOAD, 0), field(model.GETFIELD, "h", "b", "Li;"), op(model.ARETURN)),
	)
	employer := members(withAccess(class("i", obj), iface),
		model.NewMethod(abstract, "a", "(Lh;)V"),
	)

	noise := members(class("j", obj),
		fld(static|model.AccFinal, "a", "D"),
		fld(static|model.AccFinal, "b", "D"),
		fld(static, "c", "[[I"),
		fld(static, "d", "[I"),
		method(static, "<clinit>", "()V",
			model.Ldc(0.3660254037844386), field(model.PUTSTATIC, "j", "a", "D"),
			model.Ldc(0.21132486540518713), field(model.PUTSTATIC, "j", "b", "D"),
			model.IntInsn(model.BIPUSH, 12), op(model.ICONST_3), model.MultiArray("[[I", 2),
			field(model.PUTSTATIC, "j", "c", "[[I"),
			model.IntInsn(model.SIPUSH, 512), model.IntInsn(model.NEWARRAY, model.T_INT),
			field(model.PUTSTATIC, "j", "d", "[I"),
			op(model.RETURN),
		),
		method(static, "a", "(DD)D",
			load(model.DLOAD, 0), load(model.DLOAD, 2), op(model.DADD),
			field(model.GETSTATIC, "j", "a", "D"), op(model.DMUL), op(model.DRETURN),
		),
		method(static, "b", "(DDD)D", op(model.DCONST_0), op(model.DRETURN)),
		method(static, "c", "(D)I", load(model.DLOAD, 0), op(model.D2I), op(model.IRETURN)),
	)

	top, end := model.NewLabel("top"), model.NewLabel("end")
	mapgen := members(class("k", obj),
		fld(static, "a", "I"),
		method(static, "a", "()V",
			say("Generating stars"),
			op(model.ICONST_0), load(model.ISTORE, 0),
			top,
			load(model.ILOAD, 0), field(model.GETSTATIC, "k", "a", "I"),
			jump(model.IF_ICMPGE, end),
			load(model.ILOAD, 0), op(model.I2D), op(model.DCONST_1),
			call(model.INVOKESTATIC, "j", "a", "(DD)D"),
			load(model.DSTORE, 1),
			newObj("b", "(DD)V", load(model.DLOAD, 1), load(model.DLOAD, 1)),
			load(model.ASTORE, 3),
			field(model.GETSTATIC, "a", "a", vectorDesc), load(model.ALOAD, 3),
			call(model.INVOKEVIRTUAL, vectorClass, "add", "(Ljava/lang/Object;)Z"),
			op(model.POP),
			model.Iinc(0, 1),
			jump(model.GOTO, top),
			end,
			op(model.RETURN),
		),
		method(static, "<clinit>", "()V",
			model.IntInsn(model.SIPUSH, 200), field(model.PUTSTATIC, "k", "a", "I"), op(model.RETURN)),
	)

	landmarks := members(class("l", obj),
		ctor("()V", obj),
		method(pub, "a", "()V", say("Picking landmarks"), op(model.RETURN)),
	)

	item := members(withAccess(class("m", obj), iface),
		model.NewMethod(abstract, "a", "()V"),
	)
	hit := model.NewLabel("hit")
	cache := members(class("n", obj),
		fld(model.AccPrivate, "a", "Ljava/util/Map;"),
		ctor("()V", obj,
			load(model.ALOAD, 0), newObj("java/util/HashMap", "()V"),
			field(model.PUTFIELD, "n", "a", "Ljava/util/Map;"),
		),
		method(pub, "a", "(Ljava/lang/Object;)Lm;",
			load(model.ALOAD, 0), field(model.GETFIELD, "n", "a", "Ljava/util/Map;"),
			load(model.ALOAD, 1),
			call(model.INVOKEINTERFACE, "java/util/Map", "get", "(Ljava/lang/Object;)Ljava/lang/Object;"),
			model.TypeInsn(model.CHECKCAST, "m"),
			load(model.ASTORE, 2),
			load(model.ALOAD, 2),
			jump(model.IFNONNULL, hit),
			say("Render cache miss: "),
			hit,
			load(model.ALOAD, 2),
			op(model.ARETURN),
		),
	)
	shape := func(name, desc string) *model.Class {
		return members(class(name, obj, "m"),
			ctor(desc, obj),
			method(pub, "a", "()V", op(model.RETURN)),
		)
	}

	ok, root := model.NewLabel("ok"), model.NewLabel("root")
	widget := members(class("s", obj),
		fld(model.AccPrivate, "a", "Ljava/util/List;"),
		fld(model.AccPrivate, "b", "Ls;"),
		fld(model.AccPrivate, "c", str),
		ctor("()V", obj,
			load(model.ALOAD, 0), newObj("java/util/ArrayList", "()V"),
			field(model.PUTFIELD, "s", "a", "Ljava/util/List;"),
		),
		method(pub, "a", "(Ls;)V",
			load(model.ALOAD, 1), load(model.ALOAD, 0),
			jump(model.IF_ACMPNE, ok),
			newObj("java/lang/IllegalArgumentException", "("+str+")V", model.Ldc("Cannot add a widget to itself")),
			op(model.ATHROW),
			ok,
			load(model.ALOAD, 0), field(model.GETFIELD, "s", "a", "Ljava/util/List;"),
			load(model.ALOAD, 1),
			call(model.INVOKEINTERFACE, list, "add", "(Ljava/lang/Object;)Z"),
			op(model.POP),
			load(model.ALOAD, 1), load(model.ALOAD, 0), field(model.PUTFIELD, "s", "b", "Ls;"),
			op(model.RETURN),
		),
		method(pub, "b", "(Ls;)V",
			load(model.ALOAD, 0), field(model.GETFIELD, "s", "a", "Ljava/util/List;"),
			load(model.ALOAD, 1),
			call(model.INVOKEINTERFACE, list, "remove", "(Ljava/lang/Object;)Z"),
			op(model.POP),
			load(model.ALOAD, 1), op(model.ACONST_NULL), field(model.PUTFIELD, "s", "b", "Ls;"),
			op(model.RETURN),
		),
		method(pub, "c", "()Ls;", load(model.ALOAD, 0), field(model.GETFIELD, "s", "b", "Ls;"), op(model.ARETURN)),
		method(pub, "d", "(Lt;)V",
			load(model.ALOAD, 0), field(model.GETFIELD, "s", "b", "Ls;"),
			jump(model.IFNULL, root),
			load(model.ALOAD, 0), field(model.GETFIELD, "s", "b", "Ls;"),
			load(model.ALOAD, 1),
			call(model.INVOKEVIRTUAL, "s", "e", "(Lt;)V"),
			root,
			op(model.RETURN),
		),
		method(pub, "e", "(Lt;)V", op(model.RETURN)),
		method(pub, "f", "("+str+")V",
			load(model.ALOAD, 0), load(model.ALOAD, 1), field(model.PUTFIELD, "s", "c", str), op(model.RETURN)),
	)
	message := members(withAccess(class("t", obj), iface),
		model.NewMethod(abstract, "a", "()"+str),
	)
	named := func(name, text string) *model.Class {
		return members(class(name, obj, "t"),
			ctor("()V", obj),
			method(pub, "a", "()"+str, model.Ldc(text), op(model.ARETURN)),
		)
	}
	overview := members(class("w", "s"),
		ctor("()V", "s",
			load(model.ALOAD, 0), model.Ldc("Empire overview"),
			call(model.INVOKEVIRTUAL, "w", "f", "("+str+")V"),
		),
	)
	untitled := members(class("x", "s"), ctor("()V", "s"))

	var split []any
	for _, q := range []string{"e", "f", "g", "h"} {
		split = append(split,
			load(model.ALOAD, 0),
			newObj("y", "(DDDD)V", op(model.DCONST_0), op(model.DCONST_0), op(model.DCONST_0), op(model.DCONST_0)),
			field(model.PUTFIELD, "y", q, "Ly;"),
		)
	}
	quad := members(class("y", obj),
		fld(model.AccPrivate, "a", "D"),
		fld(model.AccPrivate, "b", "D"),
		fld(model.AccPrivate, "c", "D"),
		fld(model.AccPrivate, "d", "D"),
		fld(model.AccPrivate, "e", "Ly;"),
		fld(model.AccPrivate, "f", "Ly;"),
		fld(model.AccPrivate, "g", "Ly;"),
		fld(model.AccPrivate, "h", "Ly;"),
		fld(model.AccPrivate, "i", "Ljava/util/List;"),
		ctor("(DDDD)V", obj),
		method(pub, "a", "()V", split, op(model.RETURN)),
		method(pub, "a", "(Lb;)Z", op(model.ICONST_1), op(model.IRETURN)),
		method(pub, "b", "(DDDD)Ljava/util/List;", newObj("java/util/ArrayList", "()V"), op(model.ARETURN)),
	)

	return []*model.Class{
		space, star, empire, state, actor, rover, predicate, chance,
		job, employer, noise, mapgen, landmarks,
		item, cache, shape("o", "(FFFF)V"), shape("q", "(FFF)V"), shape("r", "("+str+"FF)V"),
		widget, message, named("u", "close"), named("v", "resize"), overview, untitled,
		quad,
	}
}

// galaxyMappings is the full mapping produced for galaxy(), in run order.
var galaxyMappings = []string{
	"CLASS a Space",
	"METHOD a ()V a tick",
	"FIELD a Ljava/util/Vector; a stars",
	"FIELD a Ljava/util/Vector; b empires",
	"FIELD a Ljava/util/Vector; c actors",
	"METHOD a ()Ljava/util/Vector; c getStars",
	"METHOD a ()Ljava/util/Vector; d getEmpires",

	"CLASS b Star",
	"METHOD b ()V a tick",
	"CLASS c Empire",
	"METHOD c ()V a tick",
	"METHOD c ()Ljava/lang/String; b getDescription",
	"FIELD c D a wealth",
	"FIELD b Lc; c owner",
	"FIELD c Ld; b state",
	"CLASS d EmpireState",
	"FIELD d Ld; a PEACE",
	"FIELD d Ld; b WAR",

	"METHOD a (Le;)V b spawnActor",
	"CLASS e Actor",
	"CLASS p ActorSpawnPredicate",
	"METHOD p ()Z a shouldSpawn",
	"FIELD a Lp; d actorSpawnPredicate",
	"CLASS g Space$1",

	"CLASS h Job",
	"METHOD h (Le;)V a hire",
	"FIELD h Le; a worker",
	"METHOD h ()V b fire",
	"CLASS i Employer",
	"METHOD i (Lh;)V a onJobVacated",
	"FIELD h Li; b employer",
	"METHOD h ()Z c isVacant",
	"METHOD h ()Li; d getEmployer",

	"CLASS j SimplexNoise",
	"FIELD j D a F2",
	"FIELD j D b G2",
	"METHOD j (DD)D a noise2D",
	"METHOD j (DDD)D b noise3D",
	"METHOD j (D)I c fastFloor",
	"FIELD j [I d perm",
	"FIELD j [[I c grad3",

	"CLASS k MapGenerator",
	"METHOD k ()V a generateStars",
	"FIELD k I a starCount",
	"FIELD b D a x",
	"FIELD b D b y",

	"CLASS l LandmarkManager",
	"METHOD l ()V a regenerateLandmarks",

	"CLASS n RenderCache",
	"METHOD n (Ljava/lang/Object;)Lm; a getOrCreate",
	"CLASS m RenderItem",
	"METHOD m ()V a render",
	"FIELD n Ljava/util/Map; a cache",
	"CLASS o RectangleRenderItem",
	"CLASS q CircleRenderItem",
	"CLASS r TextRenderItem",

	"CLASS s Widget",
	"METHOD s (Ls;)V a addChild",
	"FIELD s Ljava/util/List; a children",
	"FIELD s Ls; b parent",
	"METHOD s (Ls;)V b removeChild",
	"METHOD s ()Ls; c getParent",
	"METHOD s (Lt;)V d sendMessage",
	"METHOD s (Lt;)V e onMessage",
	"CLASS t WidgetMessage",
	"METHOD t ()Ljava/lang/String; a getMessageName",
	"CLASS u CloseMessage",
	"CLASS v ResizeMessage",
	"FIELD s Ljava/lang/String; c title",
	"METHOD s (Ljava/lang/String;)V f setTitle",
	"CLASS w EmpireOverviewWidget",

	"CLASS y QuadTree",
	"FIELD y Ly; e northWest",
	"FIELD y Ly; f northEast",
	"FIELD y Ly; g southWest",
	"FIELD y Ly; h southEast",
	"METHOD y ()V a subdivide",
	"METHOD y (Lb;)Z a insert",
	"METHOD y (DDDD)Ljava/util/List; b query",
	"FIELD y Ljava/util/List; i stars",
}
