// Package detectors holds the feature detectors. Each one anchors on a
// distinctive literal or shape, verifies the code around it, and records
// canonical names for the obfuscated identifiers it proves.
package detectors

import (
	"strings"
	"unicode"

	"deobf/internal/model"
	"deobf/internal/pattern"
	"deobf/internal/pipeline"
	"deobf/internal/provenance"
)

// State keys published by the detectors.
const (
	KeySpace         = "space"
	KeyStar          = "star"
	KeyEmpire        = "empire"
	KeyActor         = "actor"
	KeyJob           = "job"
	KeyNoise         = "noise"
	KeyRenderItem    = "render-item"
	KeyWidget        = "widget"
	KeyWidgetMessage = "widget-message"
)

// TickKey names the state holding the obfuscated tick method of class.
func TickKey(class string) string { return "tick:" + class }

// EnumKey names the lazily computed constants of an enum class.
func EnumKey(class string) string { return "enum:" + class }

const (
	vectorClass = "java/util/Vector"
	vectorDesc  = "Ljava/util/Vector;"
	listClass   = "java/util/List"
	listDesc    = "Ljava/util/List;"
	mapDesc     = "Ljava/util/Map;"
	stringDesc  = "Ljava/lang/String;"
	objectDesc  = "Ljava/lang/Object;"
)

// Default returns the detectors in run order.
func Default() []pipeline.Detector {
	return []pipeline.Detector{
		NewSpace(),
		NewEconomy(),
		NewActors(),
		NewEmployment(),
		NewNoise(),
		NewMapGenerator(),
		NewLandmarks(),
		NewRenderCache(),
		NewWidgets(),
		NewQuadTree(),
	}
}

// meta carries a detector's label and state contract.
type meta struct {
	name     string
	requires []string
	provides []string
}

func (m meta) String() string     { return m.name }
func (m meta) Requires() []string { return m.requires }
func (m meta) Provides() []string { return m.provides }

// uniqueLdcMethod returns the single method among classes that loads lit.
// owner names the expected class in failures.
func uniqueLdcMethod(ctx *pipeline.Context, classes []*model.Class, lit any, owner, member string) (*model.Method, error) {
	ms := pattern.MethodsWithLdc(classes, lit)
	switch len(ms) {
	case 0:
		return nil, ctx.Unresolved(owner, member, "no method loads %s", model.FormatConst(lit))
	case 1:
		return ms[0], nil
	}
	return nil, ctx.Collision(owner, member, "%s loaded by both %s and %s", model.FormatConst(lit), ms[0].Key(), ms[1].Key())
}

func exactlyOne[T any](ctx *pipeline.Context, items []T, owner, member, what string) (T, error) {
	var zero T
	switch len(items) {
	case 0:
		return zero, ctx.Unresolved(owner, member, "no %s", what)
	case 1:
		return items[0], nil
	}
	return zero, ctx.Collision(owner, member, "%d candidates for %s", len(items), what)
}

func atMostOne[T any](ctx *pipeline.Context, items []T, owner, member, what string) (T, bool, error) {
	var zero T
	if len(items) == 0 {
		return zero, false, nil
	}
	v, err := exactlyOne(ctx, items, owner, member, what)
	return v, err == nil, err
}

// source traces the producer of the value depth entries below the top just
// before at executes.
func source(ctx *pipeline.Context, m *model.Method, at *model.Insn, depth int) (*model.Insn, error) {
	src, err := provenance.Source(m, at, depth)
	if err != nil {
		return nil, ctx.MismatchErr(err, m.Owner, m.Name, "cannot trace operand %d of %s", depth, at)
	}
	return src, nil
}

func is(in *model.Insn, op int) bool { return in != nil && in.Op == op }

// loadsSlot reports whether in is a load of local slot.
func loadsSlot(in *model.Insn, op, slot int) bool { return is(in, op) && in.Var == slot }

// programClass resolves a class that must be part of the program.
func programClass(ctx *pipeline.Context, name, member string) (*model.Class, error) {
	c := ctx.Program.Class(name)
	if c == nil {
		return nil, ctx.Mismatch(name, member, "class %s is not part of the program", name)
	}
	return c, nil
}

// staticMethods returns the static methods of c with descriptor desc.
func staticMethods(c *model.Class, desc string) []*model.Method {
	var out []*model.Method
	for _, m := range c.MethodsByDesc(desc) {
		if m.IsStatic() {
			out = append(out, m)
		}
	}
	return out
}

// instanceFields returns the non-static fields of c with descriptor desc.
func instanceFields(c *model.Class, desc string) []*model.Field {
	var out []*model.Field
	for _, f := range c.FieldsByDesc(desc) {
		if !f.IsStatic() {
			out = append(out, f)
		}
	}
	return out
}

// staticFields returns the static fields of c with descriptor desc.
func staticFields(c *model.Class, desc string) []*model.Field {
	var out []*model.Field
	for _, f := range c.FieldsByDesc(desc) {
		if f.IsStatic() {
			out = append(out, f)
		}
	}
	return out
}

// camel turns free text into an UpperCamelCase identifier. It returns ""
// when the text has no words or the first word does not start with a letter.
func camel(s string) string {
	var b strings.Builder
	for i, word := range strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		r := []rune(word)
		if i == 0 && !unicode.IsLetter(r[0]) {
			return ""
		}
		b.WriteRune(unicode.ToUpper(r[0]))
		b.WriteString(string(r[1:]))
	}
	return b.String()
}

func methodDesc(ret string, args ...string) string {
	return "(" + strings.Join(args, "") + ")" + ret
}
