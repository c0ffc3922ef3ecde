package symtab

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Line renders e in the mapping line format, without the newline:
//
//	CLASS old new
//	METHOD owner desc old new
//	FIELD owner desc old new
func (e Entry) Line() string {
	if e.Kind == Class {
		return "CLASS " + e.Name + " " + e.New
	}
	return e.Kind.String() + " " + e.Owner + " " + e.Desc + " " + e.Name + " " + e.New
}

// WriteTo writes every entry in insertion order, one newline-terminated
// line each. Output can be appended to an existing mapping file.
func (t *Table) WriteTo(w io.Writer) (int64, error) {
	bw := bufio.NewWriter(w)
	var n int64
	for _, e := range t.entries {
		k, err := bw.WriteString(e.Line() + "\n")
		n += int64(k)
		if err != nil {
			return n, fmt.Errorf("symtab: write: %w", err)
		}
	}
	if err := bw.Flush(); err != nil {
		return n, fmt.Errorf("symtab: write: %w", err)
	}
	return n, nil
}

// ParseLine parses one mapping line.
func ParseLine(line string) (Entry, error) {
	f := strings.Fields(line)
	if len(f) == 0 {
		return Entry{}, fmt.Errorf("symtab: empty line")
	}
	switch f[0] {
	case "CLASS":
		if len(f) != 3 {
			return Entry{}, fmt.Errorf("symtab: CLASS wants 2 operands, got %d", len(f)-1)
		}
		return Entry{Key: Key{Kind: Class, Name: f[1]}, New: f[2]}, nil
	case "METHOD", "FIELD":
		if len(f) != 5 {
			return Entry{}, fmt.Errorf("symtab: %s wants 4 operands, got %d", f[0], len(f)-1)
		}
		kind := Method
		if f[0] == "FIELD" {
			kind = Field
		}
		return Entry{Key: Key{Kind: kind, Owner: f[1], Desc: f[2], Name: f[3]}, New: f[4]}, nil
	}
	return Entry{}, fmt.Errorf("symtab: unknown record %q", f[0])
}

// Parse reads mapping lines. Blank lines and lines starting with '#' are
// skipped. Entries are returned in file order, duplicates included.
func Parse(r io.Reader) ([]Entry, error) {
	var out []Entry
	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		e, err := ParseLine(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		out = append(out, e)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("symtab: read: %w", err)
	}
	return out, nil
}

// Load parses r into a fresh table, enforcing the single-write rule.
func Load(r io.Reader) (*Table, error) {
	entries, err := Parse(r)
	if err != nil {
		return nil, err
	}
	t := New()
	for _, e := range entries {
		if err := t.Define(e); err != nil {
			return nil, err
		}
	}
	return t, nil
}
