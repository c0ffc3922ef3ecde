package detectors

import (
	"deobf/internal/model"
	"deobf/internal/pattern"
	"deobf/internal/pipeline"
)

const addSelfLiteral = "Cannot add a widget to itself"

// Widgets names the widget tree, its message interface and, by cascade,
// every message implementation and titled widget subclass.
type Widgets struct{ meta }

func NewWidgets() *Widgets {
	return &Widgets{meta{name: "Widget", provides: []string{KeyWidget, KeyWidgetMessage}}}
}

func (d *Widgets) Detect(ctx *pipeline.Context) error {
	add, err := uniqueLdcMethod(ctx, ctx.Program.Classes(), addSelfLiteral, "Widget", "addChild")
	if err != nil {
		return err
	}
	w := add.Owner
	wDesc := model.ClassDesc(w)
	cls, err := programClass(ctx, w, add.Name)
	if err != nil {
		return err
	}
	if add.Desc != methodDesc("V", wDesc) {
		return ctx.Mismatch(w, add.Name, "addChild is %s, want (Widget)V", add.Desc)
	}
	if err := ctx.RenameClass(w, "Widget"); err != nil {
		return err
	}
	if err := ctx.RenameMethod(w, add.Name, add.Desc, "addChild"); err != nil {
		return err
	}

	children, err := d.childList(ctx, add, "List.add", "add")
	if err != nil {
		return err
	}
	if children == "" {
		return ctx.Mismatch(w, add.Name, "child is not appended to a list field")
	}
	parent, err := d.parentLink(ctx, add)
	if err != nil {
		return err
	}
	if err := ctx.RenameField(w, children, listDesc, "children"); err != nil {
		return err
	}
	if err := ctx.RenameField(w, parent, wDesc, "parent"); err != nil {
		return err
	}

	var removers []*model.Method
	for _, m := range cls.MethodsByDesc(add.Desc) {
		if m == add {
			continue
		}
		list, err := d.childList(ctx, m, "List.remove", "remove")
		if err != nil {
			return err
		}
		if list == children {
			removers = append(removers, m)
		}
	}
	remove, err := exactlyOne(ctx, removers, w, "removeChild", "child removal")
	if err != nil {
		return err
	}
	if err := ctx.RenameMethod(w, remove.Name, remove.Desc, "removeChild"); err != nil {
		return err
	}

	var getters []*model.Method
	for _, m := range cls.MethodsByDesc("()" + wDesc) {
		if pattern.IsGetter(m, w, parent, wDesc, false) {
			getters = append(getters, m)
		}
	}
	getParent, err := exactlyOne(ctx, getters, w, "getParent", "parent getter")
	if err != nil {
		return err
	}
	if err := ctx.RenameMethod(w, getParent.Name, getParent.Desc, "getParent"); err != nil {
		return err
	}

	msg, err := d.messages(ctx, cls, parent)
	if err != nil {
		return err
	}
	if err := d.titles(ctx, cls); err != nil {
		return err
	}
	if err := ctx.Publish(KeyWidget, w); err != nil {
		return err
	}
	return ctx.Publish(KeyWidgetMessage, msg)
}

// childList returns the Widget list field that m passes to List.<op>, or
// "" when m makes no such call.
func (d *Widgets) childList(ctx *pipeline.Context, m *model.Method, what, op string) (string, error) {
	call, err := pattern.FindMember(m, model.INVOKEINTERFACE, listClass, op, "("+objectDesc+")Z")
	if err != nil {
		return "", nil
	}
	recv, err := source(ctx, m, call, 1)
	if err != nil {
		return "", err
	}
	if !is(recv, model.GETFIELD) || recv.Owner != m.Owner || recv.Desc != listDesc {
		return "", ctx.Mismatch(m.Owner, m.Name, "%s receiver is %v, want a Widget list field", what, recv)
	}
	return recv.Name, nil
}

// parentLink finds the store of this into the added child's parent field.
func (d *Widgets) parentLink(ctx *pipeline.Context, add *model.Method) (string, error) {
	wDesc := model.ClassDesc(add.Owner)
	for _, put := range pattern.FindAll(add, model.PUTFIELD) {
		if put.Owner != add.Owner || put.Desc != wDesc {
			continue
		}
		recv, err := source(ctx, add, put, 1)
		if err != nil {
			return "", err
		}
		v, err := source(ctx, add, put, 0)
		if err != nil {
			return "", err
		}
		if loadsSlot(recv, model.ALOAD, 1) && loadsSlot(v, model.ALOAD, 0) {
			return put.Name, nil
		}
	}
	return "", ctx.Mismatch(add.Owner, add.Name, "added child never gets its parent")
}

// messages names sendMessage, onMessage and the message interface, then
// cascades to the message implementations.
func (d *Widgets) messages(ctx *pipeline.Context, cls *model.Class, parent string) (string, error) {
	w := cls.Name
	type send struct {
		m       *model.Method
		msg     string
		handler *model.Insn
	}
	var sends []send
	for _, m := range cls.Methods {
		args, ret, err := model.ParseMethodDesc(m.Desc)
		if err != nil || len(args) != 1 || ret != "V" {
			continue
		}
		t, ok := model.ObjectType(args[0])
		if ic := ctx.Program.Class(t); !ok || ic == nil || !ic.IsInterface() {
			continue
		}
		for _, call := range pattern.Calls(m, model.INVOKEVIRTUAL, pattern.Wildcard, pattern.Wildcard, m.Desc) {
			if !ctx.Program.IsSubclassOf(call.Owner, w) {
				continue
			}
			recv, err := source(ctx, m, call, 1)
			if err != nil {
				return "", err
			}
			if is(recv, model.GETFIELD) && recv.Owner == w && recv.Name == parent {
				sends = append(sends, send{m, t, call})
				break
			}
		}
	}
	s, err := exactlyOne(ctx, sends, w, "sendMessage", "message forwarding to the parent")
	if err != nil {
		return "", err
	}
	if cls.Method(s.handler.Name, s.handler.Desc) == nil {
		return "", ctx.Mismatch(w, s.handler.Name, "message handler not declared on Widget")
	}
	msg := s.msg
	msgCls := ctx.Program.Class(msg)
	if err := ctx.RenameMethod(w, s.m.Name, s.m.Desc, "sendMessage"); err != nil {
		return "", err
	}
	if err := ctx.RenameMethod(w, s.handler.Name, s.handler.Desc, "onMessage"); err != nil {
		return "", err
	}
	if err := ctx.RenameClass(msg, "WidgetMessage"); err != nil {
		return "", err
	}
	nameOf, err := exactlyOne(ctx, msgCls.MethodsByDesc("()"+stringDesc), msg, "getMessageName", "message name accessor")
	if err != nil {
		return "", err
	}
	if err := ctx.RenameMethod(msg, nameOf.Name, nameOf.Desc, "getMessageName"); err != nil {
		return "", err
	}

	for _, impl := range ctx.Program.Implementors(msg) {
		m := impl.Method(nameOf.Name, nameOf.Desc)
		if m == nil {
			return "", ctx.Mismatch(impl.Name, nameOf.Name, "message name not implemented")
		}
		name, ok := pattern.ReturnsConstant(m)
		if !ok {
			return "", ctx.Mismatch(impl.Name, m.Name, "message name is not a constant")
		}
		id := camel(name)
		if id == "" {
			return "", ctx.Mismatch(impl.Name, m.Name, "message name %q is not an identifier", name)
		}
		if err := ctx.RenameClass(impl.Name, id+"Message"); err != nil {
			return "", err
		}
	}
	return msg, nil
}

// titles names the title field and setter, then every direct subclass that
// sets a literal title in its constructor.
func (d *Widgets) titles(ctx *pipeline.Context, cls *model.Class) error {
	w := cls.Name
	title, err := exactlyOne(ctx, instanceFields(cls, stringDesc), w, "title", "String field")
	if err != nil {
		return err
	}
	var setters []*model.Method
	for _, m := range cls.MethodsByDesc(methodDesc("V", stringDesc)) {
		if pattern.IsSetter(m, w, title.Name, title.Desc) {
			setters = append(setters, m)
		}
	}
	set, err := exactlyOne(ctx, setters, w, "setTitle", "title setter")
	if err != nil {
		return err
	}
	if err := ctx.RenameField(w, title.Name, title.Desc, "title"); err != nil {
		return err
	}
	if err := ctx.RenameMethod(w, set.Name, set.Desc, "setTitle"); err != nil {
		return err
	}

	for _, sub := range ctx.Program.Subclasses(w) {
		text, err := constructorTitle(ctx, sub, w, set)
		if err != nil {
			return err
		}
		if text == "" {
			ctx.Note(pipeline.DiagSkipped, "%s sets no literal title", sub.Name)
			continue
		}
		id := camel(text)
		if id == "" {
			ctx.Note(pipeline.DiagSkipped, "%s title %q is not an identifier", sub.Name, text)
			continue
		}
		if err := ctx.RenameClass(sub.Name, id+"Widget"); err != nil {
			return err
		}
	}
	return nil
}

func constructorTitle(ctx *pipeline.Context, sub *model.Class, w string, set *model.Method) (string, error) {
	for _, ctor := range sub.Constructors() {
		for _, call := range pattern.Calls(ctor, model.INVOKEVIRTUAL, pattern.Wildcard, set.Name, set.Desc) {
			if !ctx.Program.IsSubclassOf(call.Owner, w) {
				continue
			}
			arg, err := source(ctx, ctor, call, 0)
			if err != nil {
				return "", err
			}
			if is(arg, model.LDC) {
				if s, ok := arg.Const.(string); ok {
					return s, nil
				}
			}
		}
	}
	return "", nil
}
