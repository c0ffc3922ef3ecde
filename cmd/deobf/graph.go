package main

import (
	"path/filepath"
	"strconv"
	"strings"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/apex/log"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/zboralski/lattice"
	latrender "github.com/zboralski/lattice/render"

	"deobf/internal/callgraph"
	"deobf/internal/config"
	"deobf/internal/disasm"
	"deobf/internal/loader"
	"deobf/internal/model"
	"deobf/internal/output"
	"deobf/internal/render"
)

func init() {
	rootCmd.AddCommand(graphCmd)

	graphCmd.Flags().String("out", "", "output directory")
	graphCmd.MarkFlagRequired("out")
	graphCmd.MarkFlagDirname("out")
	graphCmd.Flags().Bool("rename", false, "run the detectors first and label nodes with recovered names")
	graphCmd.Flags().Bool("cfg", false, "also write per-method control flow graphs")
	graphCmd.Flags().Bool("asm", false, "also write per-method listings")
	graphCmd.Flags().Bool("external", false, "keep calls into the runtime library")
	graphCmd.Flags().Int("max-nodes", 0, "max method nodes in the call graph (0 = all)")
	graphCmd.Flags().String("title", "deobf", "graph title")
}

var graphCmd = &cobra.Command{
	Use:   "graph <program>",
	Short: "Write call graph, class graph and control flow graph DOT files",
	Long: heredoc.Doc(`
		Write the reference graphs of a program to --out:

		  calls.dot          method call graph
		  callgraph.dot      method call graph, edges coloured by receiver
		  classgraph.dot     class reference graph
		  anchors.dot        strings and recovered calls per method
		  methods.jsonl      one record per method
		  call_edges.jsonl   one record per call site

		--cfg adds cfg.dot and cfg/<method>.dot, --asm adds asm/<method>.txt.`),
	Example: heredoc.Doc(`
		❯ deobf graph game.yaml --out graphs --rename --cfg
		❯ dot -Tsvg graphs/classgraph.dot > classgraph.svg`),
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := settings()
		if err != nil {
			return err
		}
		opts := graphOptions{Program: args[0]}
		opts.Out, _ = cmd.Flags().GetString("out")
		opts.Rename, _ = cmd.Flags().GetBool("rename")
		opts.CFG, _ = cmd.Flags().GetBool("cfg")
		opts.Asm, _ = cmd.Flags().GetBool("asm")
		opts.External, _ = cmd.Flags().GetBool("external")
		opts.MaxNodes, _ = cmd.Flags().GetInt("max-nodes")
		opts.Title, _ = cmd.Flags().GetString("title")
		return runGraph(cfg, opts)
	},
}

type graphOptions struct {
	Program  string
	Out      string
	Title    string
	Rename   bool
	CFG      bool
	Asm      bool
	External bool
	MaxNodes int
}

func runGraph(cfg *config.Config, opts graphOptions) error {
	if opts.Out == "" {
		return errors.New("--out is required")
	}
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
			log.WithError(err).Warn("graphs use the names recovered before the failure")
		}
		p, lookup = ctx.Program, disasm.TableLookup(ctx.Symbols)
	} else {
		var err error
		if p, err = loader.LoadFile(opts.Program); err != nil {
			return err
		}
	}

	funcs := callgraph.Collect(p, lookup)
	if len(funcs) == 0 {
		return errors.Errorf("%s has no method bodies", opts.Program)
	}

	cg := callgraph.BuildCallGraph(funcs, opts.External)
	if err := output.WriteDOT(opts.Out, "calls", latrender.DOT(cg, opts.Title)); err != nil {
		return err
	}
	log.WithFields(log.Fields{"nodes": len(cg.Nodes), "edges": len(cg.Edges)}).Info("wrote calls.dot")

	methods, edges := callgraph.Records(funcs)
	if err := output.WriteDOT(opts.Out, "callgraph", render.CallgraphDOT(methods, edges, opts.Title, render.NASA, opts.MaxNodes)); err != nil {
		return err
	}
	if err := output.WriteDOT(opts.Out, "classgraph", render.ClassgraphDOT(methods, edges, opts.Title+" (class level)", render.NASA, opts.MaxNodes)); err != nil {
		return err
	}
	if err := output.WriteJSONL(filepath.Join(opts.Out, "methods.jsonl"), methods); err != nil {
		return err
	}
	if err := output.WriteJSONL(filepath.Join(opts.Out, "call_edges.jsonl"), edges); err != nil {
		return err
	}
	stats := render.ComputeStats(methods, edges)
	log.WithFields(log.Fields{
		"methods": stats.TotalMethods,
		"edges":   stats.TotalEdges,
		"renamed": stats.Renamed,
		"owners":  stats.UniqueOwners,
	}).Info("wrote callgraph.dot and classgraph.dot")
	for _, nc := range stats.TopCallees {
		log.Debugf("callee %s (%d)", nc.Name, nc.Count)
	}

	anchors := &lattice.CFGGraph{}
	for _, f := range funcs {
		if a := callgraph.BuildAnchorFuncCFG(f.Name, f.Insts, f.CallEdges); len(a.Blocks) > 0 {
			anchors.Funcs = append(anchors.Funcs, a)
		}
	}
	if err := output.WriteDOT(opts.Out, "anchors", latrender.DOTCFG(anchors, opts.Title+" anchors")); err != nil {
		return err
	}

	names := fileNames(funcs)
	if opts.CFG {
		if err := output.WriteDOT(opts.Out, "cfg", latrender.DOTCFG(callgraph.BuildCFG(funcs), opts.Title)); err != nil {
			return err
		}
		written := 0
		for i, f := range funcs {
			lcfg, nblocks := callgraph.BuildFuncCFG(f.Name, f.Insts, f.CallEdges)
			if nblocks < 2 {
				continue
			}
			g := &lattice.CFGGraph{Funcs: []*lattice.FuncCFG{lcfg}}
			if err := output.WriteDOT(opts.Out, filepath.Join("cfg", names[i]), latrender.DOTCFG(g, f.Name)); err != nil {
				return err
			}
			written++
		}
		log.Infof("wrote %d per-method CFGs", written)
	}
	if opts.Asm {
		for i, f := range funcs {
			if err := output.WriteListing(opts.Out, names[i], f.Insts, lookup, disasm.LocalAnnotator(f.Method), disasm.StoreAnnotator(f.Method)); err != nil {
				return err
			}
		}
		log.Infof("wrote %d listings", len(funcs))
	}
	return nil
}

var unsafeChars = strings.NewReplacer("<", "_", ">", "_", ";", "_", "(", "_", ")", "_", "[", "_")

// fileNames derives one file path per method: the owner's package path as
// directories, overloads numbered from the second one.
func fileNames(funcs []callgraph.FuncInfo) []string {
	out := make([]string, len(funcs))
	seen := make(map[string]int)
	for i, f := range funcs {
		name := unsafeChars.Replace(f.Method.Owner + "." + f.Method.Name)
		if n := seen[name]; n > 0 {
			out[i] = name + "_" + strconv.Itoa(n)
		} else {
			out[i] = name
		}
		seen[name]++
	}
	return out
}
