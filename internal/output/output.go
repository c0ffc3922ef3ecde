// Package output writes deobfuscation results to files.
package output

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"deobf/internal/disasm"
	"deobf/internal/symtab"
)

// AppendMappings writes the renames in t to path, one line each. Lines are
// appended to an existing file unless truncate is set.
func AppendMappings(path string, t *symtab.Table, truncate bool) error {
	flags := os.O_WRONLY | os.O_CREATE
	if truncate {
		flags |= os.O_TRUNC
	} else {
		flags |= os.O_APPEND
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Wrapf(err, "output: mkdir for %s", path)
	}
	f, err := os.OpenFile(path, flags, 0644)
	if err != nil {
		return errors.Wrapf(err, "output: open %s", path)
	}
	w := bufio.NewWriter(f)
	if _, err := t.WriteTo(w); err != nil {
		f.Close()
		return errors.Wrapf(err, "output: write mappings to %s", path)
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return errors.Wrapf(err, "output: flush %s", path)
	}
	return errors.Wrapf(f.Close(), "output: close %s", path)
}

// WriteReportJSON writes a run report (or any value) as indented JSON.
func WriteReportJSON(path string, v any) error {
	return writeJSON(path, v)
}

// WriteDOT writes a DOT graph to dir/name.dot.
// name may contain path separators (e.g., "Space/tick") for directory grouping.
func WriteDOT(dir, name, dot string) error {
	path := filepath.Join(dir, name+".dot")
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Wrap(err, "output: mkdir dot")
	}
	return errors.Wrapf(os.WriteFile(path, []byte(dot), 0644), "output: write %s", path)
}

// WriteListing writes a formatted method listing to dir/asm/<name>.txt.
func WriteListing(dir, name string, insts []disasm.Inst, lookup disasm.SymbolLookup, annotators ...disasm.Annotator) error {
	path := filepath.Join(dir, "asm", name+".txt")
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Wrap(err, "output: mkdir asm")
	}
	text := disasm.Format(insts, lookup, annotators...)
	return errors.Wrapf(os.WriteFile(path, []byte(text), 0644), "output: write %s", path)
}

// WriteJSONL writes one JSON object per line to path.
func WriteJSONL[T any](path string, records []T) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "output: create %s", path)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	for i := range records {
		if err := enc.Encode(records[i]); err != nil {
			return errors.Wrapf(err, "output: encode %s line %d", path, i+1)
		}
	}
	return errors.Wrapf(w.Flush(), "output: flush %s", path)
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "output: create %s", path)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return errors.Wrapf(err, "output: encode %s", path)
	}
	return nil
}
