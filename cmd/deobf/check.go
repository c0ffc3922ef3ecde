package main

import (
	"fmt"
	"io"
	"os"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"deobf/internal/symtab"
)

func init() {
	rootCmd.AddCommand(checkCmd)
}

var checkCmd = &cobra.Command{
	Use:   "check <mappings>",
	Short: "Validate a mapping file and report keys written by more than one run",
	Example: heredoc.Doc(`
		❯ deobf check mappings.txt`),
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return errors.Wrap(err, "check")
		}
		defer f.Close()
		st, err := checkMappings(f)
		if err != nil {
			return errors.Wrapf(err, "check %s", args[0])
		}
		st.print(os.Stdout)
		if len(st.Conflicts) > 0 {
			return errors.Errorf("%d keys renamed inconsistently", len(st.Conflicts))
		}
		return nil
	},
}

// mappingStats summarises a mapping file. Repeated keys carry the same new
// name every time (typically one line per appended run); conflicting keys
// do not.
type mappingStats struct {
	Counts    map[symtab.Kind]int
	Lines     int
	Repeated  []symtab.Key
	Conflicts []symtab.Key
}

func checkMappings(r io.Reader) (*mappingStats, error) {
	entries, err := symtab.Parse(r)
	if err != nil {
		return nil, err
	}
	type seen struct {
		name     string
		count    int
		conflict bool
	}
	st := &mappingStats{Counts: make(map[symtab.Kind]int), Lines: len(entries)}
	keys := make(map[symtab.Key]*seen)
	var order []symtab.Key
	for _, e := range entries {
		s, ok := keys[e.Key]
		if !ok {
			keys[e.Key] = &seen{name: e.New, count: 1}
			order = append(order, e.Key)
			st.Counts[e.Kind]++
			continue
		}
		s.count++
		if s.name != e.New {
			s.conflict = true
		}
	}
	for _, k := range order {
		switch s := keys[k]; {
		case s.conflict:
			st.Conflicts = append(st.Conflicts, k)
		case s.count > 1:
			st.Repeated = append(st.Repeated, k)
		}
	}
	return st, nil
}

func (st *mappingStats) print(w io.Writer) {
	for _, k := range []symtab.Kind{symtab.Class, symtab.Method, symtab.Field} {
		fmt.Fprintf(w, "%-7s %s\n", k, colorCount(st.Counts[k]))
	}
	fmt.Fprintf(w, "%d lines, %d repeated keys\n", st.Lines, len(st.Repeated))
	for _, k := range st.Conflicts {
		fmt.Fprintf(w, "%s %s %s\n", colorFail("conflict:"), k.Kind, k)
	}
}
