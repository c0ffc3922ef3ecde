// Package loader reads program dumps written as YAML (or JSON) into a
// model.Program.
package loader

import (
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"

	"deobf/internal/model"
)

// Dump is the document layout.
type Dump struct {
	Version string     `yaml:"version"`
	Classes []ClassDef `yaml:"classes"`
}

type ClassDef struct {
	Name       string      `yaml:"name"`
	Super      string      `yaml:"super"`
	Interfaces []string    `yaml:"interfaces"`
	Access     Access      `yaml:"access"`
	Signature  string      `yaml:"signature"`
	Outer      *OuterDef   `yaml:"outer"`
	Inner      []InnerDef  `yaml:"inner"`
	Fields     []FieldDef  `yaml:"fields"`
	Methods    []MethodDef `yaml:"methods"`
}

type OuterDef struct {
	Owner  string `yaml:"owner"`
	Method string `yaml:"method"`
	Desc   string `yaml:"desc"`
}

type InnerDef struct {
	Name   string `yaml:"name"`
	Outer  string `yaml:"outer"`
	Simple string `yaml:"simple"`
	Access Access `yaml:"access"`
}

type FieldDef struct {
	Name      string `yaml:"name"`
	Desc      string `yaml:"desc"`
	Access    Access `yaml:"access"`
	Signature string `yaml:"signature"`
}

type MethodDef struct {
	Name      string     `yaml:"name"`
	Desc      string     `yaml:"desc"`
	Access    Access     `yaml:"access"`
	Signature string     `yaml:"signature"`
	Code      [][]any    `yaml:"code"`
	Locals    []LocalDef `yaml:"locals"`
	Params    []string   `yaml:"params"`
}

type LocalDef struct {
	Index     int    `yaml:"index"`
	Name      string `yaml:"name"`
	Desc      string `yaml:"desc"`
	Signature string `yaml:"signature"`
}

// Access is an access flag set written either as a number or as a list of
// modifier names ("public", "static", ...).
type Access int

var accessNames = map[string]int{
	"public":     model.AccPublic,
	"private":    model.AccPrivate,
	"protected":  model.AccProtected,
	"static":     model.AccStatic,
	"final":      model.AccFinal,
	"super":      model.AccSuper,
	"volatile":   model.AccVolatile,
	"bridge":     model.AccBridge,
	"transient":  model.AccTransient,
	"varargs":    model.AccVarargs,
	"native":     model.AccNative,
	"interface":  model.AccInterface,
	"abstract":   model.AccAbstract,
	"synthetic":  model.AccSynthetic,
	"annotation": model.AccAnnotation,
	"enum":       model.AccEnum,
}

func (a *Access) UnmarshalYAML(n *yaml.Node) error {
	switch n.Kind {
	case yaml.ScalarNode:
		if n.Tag == "!!str" {
			return a.parseNames(strings.Fields(strings.ReplaceAll(n.Value, ",", " ")))
		}
		v, err := cast.ToIntE(n.Value)
		if err != nil {
			return errors.Wrapf(err, "line %d: access", n.Line)
		}
		*a = Access(v)
		return nil
	case yaml.SequenceNode:
		var names []string
		if err := n.Decode(&names); err != nil {
			return errors.Wrapf(err, "line %d: access", n.Line)
		}
		return a.parseNames(names)
	}
	return errors.Errorf("line %d: access must be a number or a list of modifiers", n.Line)
}

func (a *Access) parseNames(names []string) error {
	var v int
	for _, name := range names {
		flag, ok := accessNames[strings.ToLower(name)]
		if !ok {
			return errors.Errorf("unknown access modifier %q", name)
		}
		v |= flag
	}
	*a = Access(v)
	return nil
}

// Load decodes a program dump from r.
func Load(r io.Reader) (*model.Program, error) {
	var d Dump
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&d); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("loader: empty program dump")
		}
		return nil, errors.Wrap(err, "loader: decode")
	}
	return d.Program()
}

// LoadFile decodes the program dump at path.
func LoadFile(path string) (*model.Program, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "loader: open")
	}
	defer f.Close()
	p, err := Load(f)
	if err != nil {
		return nil, errors.Wrapf(err, "%s", path)
	}
	return p, nil
}

// Program builds the model from d, keeping class, member and instruction
// order.
func (d *Dump) Program() (*model.Program, error) {
	p := model.NewProgram(d.Version)
	for i := range d.Classes {
		c, err := d.Classes[i].class()
		if err != nil {
			return nil, errors.Wrapf(err, "loader: class %d (%s)", i, d.Classes[i].Name)
		}
		if err := p.Add(c); err != nil {
			return nil, errors.Wrap(err, "loader")
		}
	}
	return p, nil
}

func (cd *ClassDef) class() (*model.Class, error) {
	if cd.Name == "" {
		return nil, errors.New("missing name")
	}
	super := cd.Super
	if super == "" && cd.Name != "java/lang/Object" {
		super = "java/lang/Object"
	}
	c := model.NewClass(cd.Name, super, cd.Interfaces...)
	if cd.Access != 0 {
		c.Access = int(cd.Access)
	}
	c.Signature = cd.Signature
	if cd.Outer != nil {
		c.SetOuter(cd.Outer.Owner, cd.Outer.Method, cd.Outer.Desc)
	}
	for _, in := range cd.Inner {
		c.AddInnerClass(model.InnerClass{Name: in.Name, Outer: in.Outer, Simple: in.Simple, Access: int(in.Access)})
	}
	for _, fd := range cd.Fields {
		if fd.Name == "" || fd.Desc == "" {
			return nil, errors.Errorf("field %q: name and desc are required", fd.Name)
		}
		if c.Field(fd.Name, fd.Desc) != nil {
			return nil, errors.Errorf("duplicate field %s %s", fd.Name, fd.Desc)
		}
		f := c.AddField(model.NewField(int(fd.Access), fd.Name, fd.Desc))
		f.Signature = fd.Signature
	}
	for _, md := range cd.Methods {
		if md.Name == "" || md.Desc == "" {
			return nil, errors.Errorf("method %q: name and desc are required", md.Name)
		}
		if _, _, err := model.ParseMethodDesc(md.Desc); err != nil {
			return nil, errors.Wrapf(err, "method %s", md.Name)
		}
		if c.Method(md.Name, md.Desc) != nil {
			return nil, errors.Errorf("duplicate method %s%s", md.Name, md.Desc)
		}
		insns, err := decodeCode(md.Code)
		if err != nil {
			return nil, errors.Wrapf(err, "method %s%s", md.Name, md.Desc)
		}
		m := c.AddMethod(model.NewMethod(int(md.Access), md.Name, md.Desc, insns...))
		m.Signature = md.Signature
		for i, name := range md.Params {
			m.SetParamName(i, name)
		}
		for _, lv := range md.Locals {
			m.SetLocal(lv.Index, lv.Name, lv.Desc)
			m.Local(lv.Index).Signature = lv.Signature
		}
	}
	return c, nil
}
