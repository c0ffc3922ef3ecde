package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/apex/log"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"deobf/internal/config"
	"deobf/internal/disasm"
	"deobf/internal/loader"
	"deobf/internal/model"
	"deobf/internal/render"
)

func init() {
	rootCmd.AddCommand(showCmd)

	showCmd.Flags().Bool("rename", false, "run the detectors first and show recovered names")
	showCmd.Flags().Bool("cfg", false, "print the control flow graph as DOT instead of a listing")
}

var showCmd = &cobra.Command{
	Use:   "show <program> <class> [method]",
	Short: "Print instruction listings for a class or one of its methods",
	Example: heredoc.Doc(`
		# Every method of class a
		❯ deobf show game.yaml a

		# One overload, with recovered names
		❯ deobf show game.yaml a 'b(La;)V' --rename

		# Basic blocks of a method as DOT
		❯ deobf show game.yaml a b --cfg | dot -Tsvg > b.svg`),
	Args: cobra.RangeArgs(2, 3),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := settings()
		if err != nil {
			return err
		}
		rename, _ := cmd.Flags().GetBool("rename")
		asCFG, _ := cmd.Flags().GetBool("cfg")
		method := ""
		if len(args) == 3 {
			method = args[2]
		}
		return runShow(cfg, os.Stdout, showOptions{
			Program: args[0],
			Class:   args[1],
			Method:  method,
			Rename:  rename,
			CFG:     asCFG,
		})
	},
}

type showOptions struct {
	Program string
	Class   string
	Method  string // name, or name followed by its descriptor
	Rename  bool
	CFG     bool
}

func runShow(cfg *config.Config, w io.Writer, opts showOptions) error {
	var (
		p      *model.Program
		lookup disasm.SymbolLookup
	)
	if opts.Rename {
		ctx, _, err := recoverNames(cfg, opts.Program)
		if ctx == nil {
			return err
		}
		if err != nil {
			log.WithError(err).Warn("showing names recovered before the failure")
		}
		p, lookup = ctx.Program, disasm.TableLookup(ctx.Symbols)
	} else {
		var err error
		if p, err = loader.LoadFile(opts.Program); err != nil {
			return err
		}
	}

	c := p.Class(opts.Class)
	if c == nil {
		return errors.Errorf("no class %s", opts.Class)
	}
	methods := selectMethods(c, opts.Method)
	if len(methods) == 0 {
		return errors.Errorf("no method %s in %s", opts.Method, c.Name)
	}
	for i, m := range methods {
		insts := disasm.Disassemble(m, disasm.Options{})
		if opts.CFG {
			fmt.Fprint(w, render.CFGDOT(disasm.BuildCFG(m.Owner+"."+m.Name+m.Desc, insts), lookup, render.NASA))
			continue
		}
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "; %s.%s%s\n", m.Owner, m.Name, m.Desc)
		fmt.Fprint(w, disasm.Format(insts, lookup, disasm.LocalAnnotator(m), disasm.StoreAnnotator(m)))
	}
	return nil
}

// selectMethods returns the methods of c matching sel, which is empty (all
// methods), a bare name, or a name with its descriptor.
func selectMethods(c *model.Class, sel string) []*model.Method {
	if sel == "" {
		return c.Methods
	}
	name, desc := sel, ""
	if i := strings.IndexByte(sel, '('); i >= 0 {
		name, desc = sel[:i], sel[i:]
	}
	var out []*model.Method
	for _, m := range c.Methods {
		if m.Name == name && (desc == "" || m.Desc == desc) {
			out = append(out, m)
		}
	}
	return out
}
