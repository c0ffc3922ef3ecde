// Package symtab records rename decisions. Every identity key may be
// written once per run; a second write is a collision.
package symtab

import (
	"errors"
	"fmt"
)

// Kind tags an identity key.
type Kind uint8

const (
	Class Kind = iota + 1
	Method
	Field
)

func (k Kind) String() string {
	switch k {
	case Class:
		return "CLASS"
	case Method:
		return "METHOD"
	case Field:
		return "FIELD"
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// Key identifies a class, method or field by its obfuscated names. Owner
// and Desc are empty for classes.
type Key struct {
	Kind  Kind
	Owner string
	Name  string
	Desc  string
}

func (k Key) String() string {
	switch k.Kind {
	case Class:
		return k.Name
	case Method:
		return k.Owner + "." + k.Name + k.Desc
	}
	return k.Owner + "." + k.Name + ":" + k.Desc
}

// Entry is one rename.
type Entry struct {
	Key
	New string
}

// ErrSameName is returned for a rename to the current name.
var ErrSameName = errors.New("symtab: rename to identical name")

// CollisionError reports a second rename of one key, or two keys renamed to
// the same name in the same scope.
type CollisionError struct {
	Key       Key
	Existing  string // name already recorded (or key already holding the name)
	Attempted string
	Clash     *Key // set when another key already owns Attempted
}

func (e *CollisionError) Error() string {
	if e.Clash != nil {
		return fmt.Sprintf("symtab: %s %s -> %s: name already taken by %s", e.Key.Kind, e.Key, e.Attempted, *e.Clash)
	}
	return fmt.Sprintf("symtab: %s %s already renamed to %s, refusing %s", e.Key.Kind, e.Key, e.Existing, e.Attempted)
}

// scope identifies the namespace a new name must be unique in.
type scope struct {
	kind  Kind
	owner string
	desc  string
	name  string
}

// Table is an append-only rename registry. It is not safe for concurrent use.
type Table struct {
	entries []Entry
	byKey   map[Key]int
	byName  map[scope]Key
}

// New returns an empty table.
func New() *Table {
	return &Table{
		byKey:  make(map[Key]int),
		byName: make(map[scope]Key),
	}
}

// DefineClass records CLASS old -> renamed.
func (t *Table) DefineClass(old, renamed string) error {
	return t.define(Key{Kind: Class, Name: old}, renamed)
}

// DefineMethod records METHOD owner desc old -> renamed.
func (t *Table) DefineMethod(owner, desc, old, renamed string) error {
	return t.define(Key{Kind: Method, Owner: owner, Name: old, Desc: desc}, renamed)
}

// DefineField records FIELD owner desc old -> renamed.
func (t *Table) DefineField(owner, desc, old, renamed string) error {
	return t.define(Key{Kind: Field, Owner: owner, Name: old, Desc: desc}, renamed)
}

// Define records e.
func (t *Table) Define(e Entry) error { return t.define(e.Key, e.New) }

func (t *Table) define(k Key, renamed string) error {
	if renamed == "" {
		return fmt.Errorf("symtab: empty name for %s %s", k.Kind, k)
	}
	if renamed == k.Name {
		return fmt.Errorf("%w: %s %s", ErrSameName, k.Kind, k)
	}
	if i, ok := t.byKey[k]; ok {
		return &CollisionError{Key: k, Existing: t.entries[i].New, Attempted: renamed}
	}
	s := scope{kind: k.Kind, owner: k.Owner, desc: k.Desc, name: renamed}
	if other, ok := t.byName[s]; ok {
		return &CollisionError{Key: k, Existing: other.Name, Attempted: renamed, Clash: &other}
	}
	t.byKey[k] = len(t.entries)
	t.byName[s] = k
	t.entries = append(t.entries, Entry{Key: k, New: renamed})
	return nil
}

// Lookup returns the new name recorded for k.
func (t *Table) Lookup(k Key) (string, bool) {
	i, ok := t.byKey[k]
	if !ok {
		return "", false
	}
	return t.entries[i].New, true
}

// Class returns the new name of class old.
func (t *Table) Class(old string) (string, bool) {
	return t.Lookup(Key{Kind: Class, Name: old})
}

// Method returns the new name of a method.
func (t *Table) Method(owner, name, desc string) (string, bool) {
	return t.Lookup(Key{Kind: Method, Owner: owner, Name: name, Desc: desc})
}

// Field returns the new name of a field.
func (t *Table) Field(owner, name, desc string) (string, bool) {
	return t.Lookup(Key{Kind: Field, Owner: owner, Name: name, Desc: desc})
}

// Entries returns the renames in insertion order.
func (t *Table) Entries() []Entry { return t.entries }

// Len returns the number of renames.
func (t *Table) Len() int { return len(t.entries) }
