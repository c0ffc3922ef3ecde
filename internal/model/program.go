// Package model holds the in-memory program: classes, members and their
// instruction lists. Cross references are stored as names and resolved
// through the Program's class table.
package model

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Access flags.
const (
	AccPublic     = 0x0001
	AccPrivate    = 0x0002
	AccProtected  = 0x0004
	AccStatic     = 0x0008
	AccFinal      = 0x0010
	AccSuper      = 0x0020
	AccVolatile   = 0x0040
	AccBridge     = 0x0040
	AccTransient  = 0x0080
	AccVarargs    = 0x0080
	AccNative     = 0x0100
	AccInterface  = 0x0200
	AccAbstract   = 0x0400
	AccSynthetic  = 0x1000
	AccAnnotation = 0x2000
	AccEnum       = 0x4000
)

const supertypeCacheSize = 4096

// Program is the arena of all loaded classes. Iteration follows load order.
type Program struct {
	Version string

	classes []*Class
	byName  map[string]*Class
	supers  *lru.Cache[string, []string]
}

// NewProgram returns an empty program for the given version ("" = unknown).
func NewProgram(version string) *Program {
	cache, err := lru.New[string, []string](supertypeCacheSize)
	if err != nil {
		panic(err)
	}
	return &Program{
		Version: version,
		byName:  make(map[string]*Class),
		supers:  cache,
	}
}

// Add appends c. Class names are unique.
func (p *Program) Add(c *Class) error {
	if c.Name == "" {
		return fmt.Errorf("model: class without name")
	}
	if _, dup := p.byName[c.Name]; dup {
		return fmt.Errorf("model: duplicate class %s", c.Name)
	}
	p.classes = append(p.classes, c)
	p.byName[c.Name] = c
	p.supers.Purge()
	return nil
}

// Classes returns all classes in load order.
func (p *Program) Classes() []*Class { return p.classes }

// Len returns the number of classes.
func (p *Program) Len() int { return len(p.classes) }

// Class resolves a class by internal name, or nil.
func (p *Program) Class(name string) *Class { return p.byName[name] }

// Supertypes returns the transitive super classes and interfaces of name,
// nearest first. Names outside the program are listed but not expanded.
func (p *Program) Supertypes(name string) []string {
	if cached, ok := p.supers.Get(name); ok {
		return cached
	}
	var out []string
	seen := map[string]bool{name: true}
	queue := []string{name}
	for len(queue) > 0 {
		c := p.byName[queue[0]]
		queue = queue[1:]
		if c == nil {
			continue
		}
		next := c.Interfaces
		if c.Super != "" {
			next = append([]string{c.Super}, c.Interfaces...)
		}
		for _, s := range next {
			if seen[s] {
				continue
			}
			seen[s] = true
			out = append(out, s)
			queue = append(queue, s)
		}
	}
	p.supers.Add(name, out)
	return out
}

// IsSubclassOf reports whether sub is sup or extends/implements it transitively.
func (p *Program) IsSubclassOf(sub, sup string) bool {
	if sub == sup {
		return true
	}
	for _, s := range p.Supertypes(sub) {
		if s == sup {
			return true
		}
	}
	return false
}

// Implementors returns the classes directly implementing iface, in load order.
func (p *Program) Implementors(iface string) []*Class {
	var out []*Class
	for _, c := range p.classes {
		if c.Implements(iface) {
			out = append(out, c)
		}
	}
	return out
}

// Subclasses returns the classes directly extending super, in load order.
func (p *Program) Subclasses(super string) []*Class {
	var out []*Class
	for _, c := range p.classes {
		if c.Super == super {
			out = append(out, c)
		}
	}
	return out
}

// Method resolves a declared method by owner, name and descriptor.
func (p *Program) Method(owner, name, desc string) *Method {
	if c := p.byName[owner]; c != nil {
		return c.Method(name, desc)
	}
	return nil
}

// EnclosingMethod links a class to the class (and optionally the method)
// it is declared in. Method is empty for classes declared outside a method.
type EnclosingMethod struct {
	Owner  string
	Method string
	Desc   string
}

// InnerClass is one inner-class record. Outer and Simple are empty for
// anonymous classes.
type InnerClass struct {
	Name   string
	Outer  string
	Simple string
	Access int
}

// Class is a single class or interface.
type Class struct {
	Name       string
	Super      string
	Interfaces []string
	Access     int
	Signature  string

	Fields  []*Field
	Methods []*Method

	Outer        *EnclosingMethod
	InnerClasses []InnerClass
}

// NewClass returns an empty public class.
func NewClass(name, super string, interfaces ...string) *Class {
	return &Class{Name: name, Super: super, Interfaces: interfaces, Access: AccPublic | AccSuper}
}

// AddField appends f and sets its owner.
func (c *Class) AddField(f *Field) *Field {
	f.Owner = c.Name
	c.Fields = append(c.Fields, f)
	return f
}

// AddMethod appends m and sets its owner.
func (c *Class) AddMethod(m *Method) *Method {
	m.Owner = c.Name
	c.Methods = append(c.Methods, m)
	return m
}

// Method returns the declared method with name and desc, or nil.
func (c *Class) Method(name, desc string) *Method {
	for _, m := range c.Methods {
		if m.Name == name && m.Desc == desc {
			return m
		}
	}
	return nil
}

// Field returns the declared field with name and desc, or nil.
func (c *Class) Field(name, desc string) *Field {
	for _, f := range c.Fields {
		if f.Name == name && f.Desc == desc {
			return f
		}
	}
	return nil
}

// MethodsByDesc returns declared methods with descriptor desc, excluding
// constructors and static initializers.
func (c *Class) MethodsByDesc(desc string) []*Method {
	var out []*Method
	for _, m := range c.Methods {
		if m.Desc == desc && !m.IsInit() {
			out = append(out, m)
		}
	}
	return out
}

// FieldsByDesc returns declared fields with descriptor desc.
func (c *Class) FieldsByDesc(desc string) []*Field {
	var out []*Field
	for _, f := range c.Fields {
		if f.Desc == desc {
			out = append(out, f)
		}
	}
	return out
}

// Constructors returns the <init> methods.
func (c *Class) Constructors() []*Method {
	var out []*Method
	for _, m := range c.Methods {
		if m.Name == "<init>" {
			out = append(out, m)
		}
	}
	return out
}

// StaticInit returns <clinit>, or nil.
func (c *Class) StaticInit() *Method { return c.Method("<clinit>", "()V") }

func (c *Class) IsInterface() bool { return c.Access&AccInterface != 0 }
func (c *Class) IsEnum() bool      { return c.Super == "java/lang/Enum" }

// Implements reports whether iface is listed directly on c.
func (c *Class) Implements(iface string) bool {
	for _, i := range c.Interfaces {
		if i == iface {
			return true
		}
	}
	return false
}

// SetOuter records the enclosing class and method of c.
func (c *Class) SetOuter(owner, method, desc string) {
	c.Outer = &EnclosingMethod{Owner: owner, Method: method, Desc: desc}
}

// AddInnerClass replaces the record for rec.Name or appends it.
func (c *Class) AddInnerClass(rec InnerClass) {
	for i := range c.InnerClasses {
		if c.InnerClasses[i].Name == rec.Name {
			c.InnerClasses[i] = rec
			return
		}
	}
	c.InnerClasses = append(c.InnerClasses, rec)
}

// AnonymousInners returns the names of anonymous classes declared by c.
func (c *Class) AnonymousInners() []string {
	var out []string
	for _, rec := range c.InnerClasses {
		if rec.Name != c.Name && rec.Outer == "" && rec.Simple == "" {
			out = append(out, rec.Name)
		}
	}
	return out
}

// Field is a declared field.
type Field struct {
	Owner     string
	Name      string
	Desc      string
	Access    int
	Signature string
}

// NewField returns a field without owner; Class.AddField sets it.
func NewField(access int, name, desc string) *Field {
	return &Field{Name: name, Desc: desc, Access: access}
}

func (f *Field) IsStatic() bool { return f.Access&AccStatic != 0 }

// LocalVar is one local variable table entry.
type LocalVar struct {
	Index     int
	Name      string
	Desc      string
	Signature string
}

// Param is one parameter name table entry.
type Param struct {
	Name   string
	Access int
}

// Method is a declared method. Owner, Name and Desc form its identity and
// are never changed by analysis.
type Method struct {
	Owner     string
	Name      string
	Desc      string
	Access    int
	Signature string
	Insns     *InsnList
	Locals    []LocalVar
	Params    []Param
}

// NewMethod returns a method whose body is insns.
func NewMethod(access int, name, desc string, insns ...*Insn) *Method {
	return &Method{Name: name, Desc: desc, Access: access, Insns: NewInsnList(insns...)}
}

func (m *Method) IsStatic() bool   { return m.Access&AccStatic != 0 }
func (m *Method) IsAbstract() bool { return m.Access&AccAbstract != 0 }
func (m *Method) IsInit() bool     { return m.Name == "<init>" || m.Name == "<clinit>" }

// Key returns "owner.name desc".
func (m *Method) Key() string { return m.Owner + "." + m.Name + " " + m.Desc }

// SetParamName names parameter i, growing the table as needed.
func (m *Method) SetParamName(i int, name string) {
	for len(m.Params) <= i {
		m.Params = append(m.Params, Param{})
	}
	m.Params[i].Name = name
}

// SetLocal names local slot index, replacing an existing entry for the slot.
func (m *Method) SetLocal(index int, name, desc string) {
	for i := range m.Locals {
		if m.Locals[i].Index == index {
			m.Locals[i].Name = name
			m.Locals[i].Desc = desc
			return
		}
	}
	m.Locals = append(m.Locals, LocalVar{Index: index, Name: name, Desc: desc})
}

// Local returns the local variable entry for slot index, or nil.
func (m *Method) Local(index int) *LocalVar {
	for i := range m.Locals {
		if m.Locals[i].Index == index {
			return &m.Locals[i]
		}
	}
	return nil
}
