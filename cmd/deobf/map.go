package main

import (
	"fmt"
	"io"
	"os"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/apex/log"
	"github.com/fatih/color"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"deobf/internal/config"
	"deobf/internal/detectors"
	"deobf/internal/loader"
	"deobf/internal/output"
	"deobf/internal/pipeline"
)

var (
	colorFeature = color.New(color.Bold, color.FgHiBlue).SprintFunc()
	colorCount   = color.New(color.FgHiGreen).SprintFunc()
	colorFail    = color.New(color.Bold, color.FgHiRed).SprintFunc()
	colorFaint   = color.New(color.Faint).SprintFunc()
)

func init() {
	rootCmd.AddCommand(mapCmd)

	mapCmd.Flags().StringP("output", "o", "mappings.txt", "mapping file to append to")
	mapCmd.Flags().Bool("truncate", false, "overwrite the mapping file instead of appending")
	mapCmd.Flags().StringSlice("only", nil, "run only these detectors (their prerequisites must be listed too)")
	mapCmd.Flags().String("report", "", "write a JSON run report to this path")
	mapCmd.MarkFlagFilename("report", "json")
	bindFlags(mapCmd.Flags(), "output", "only", "report")
}

var mapCmd = &cobra.Command{
	Use:   "map <program>",
	Short: "Run every detector and append the recovered names to a mapping file",
	Long: heredoc.Doc(`
		Load a program dump, run the detector pipeline over it and append one
		line per rename to the mapping file:

		  CLASS old new
		  METHOD owner desc old new
		  FIELD owner desc old new

		Nothing is written when a detector fails; the failing feature and the
		reason are printed instead.`),
	Example: heredoc.Doc(`
		# Recover names into mappings.txt
		❯ deobf map game.yaml

		# Start a fresh mapping file under a package and keep a report
		❯ deobf map game.yaml -o out/game.map --truncate -p com/example/game --report out/run.json

		# Run only the first two features
		❯ deobf map game.yaml --only Space,Economy`),
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := settings()
		if err != nil {
			return err
		}
		if truncate, _ := cmd.Flags().GetBool("truncate"); truncate {
			cfg.Append = false
		}
		return runMap(cfg, args[0], os.Stdout)
	},
}

// newPipeline builds the default pipeline narrowed to cfg.Only.
func newPipeline(cfg *config.Config) (*pipeline.Pipeline, error) {
	pl, err := pipeline.New(detectors.Default(), pipeline.WithVersionConstraint(cfg.VersionConstraint))
	if err != nil {
		return nil, err
	}
	if len(cfg.Only) > 0 {
		return pl.Select(cfg.Only...)
	}
	return pl, nil
}

// recoverNames runs the pipeline over the program at path.
func recoverNames(cfg *config.Config, path string) (*pipeline.Context, *pipeline.Report, error) {
	p, err := loader.LoadFile(path)
	if err != nil {
		return nil, nil, err
	}
	pl, err := newPipeline(cfg)
	if err != nil {
		return nil, nil, err
	}
	ctx := pipeline.NewContext(p, pipeline.WithPackage(cfg.Package), pipeline.WithLogger(log.Log))
	rep, err := pl.Run(ctx)
	return ctx, rep, err
}

func runMap(cfg *config.Config, path string, w io.Writer) error {
	ctx, rep, runErr := recoverNames(cfg, path)
	if rep == nil {
		return runErr
	}
	if cfg.Report != "" {
		if err := output.WriteReportJSON(cfg.Report, rep); err != nil {
			return err
		}
		log.Debugf("wrote %s", cfg.Report)
	}
	printReport(w, rep)
	if runErr != nil {
		fmt.Fprintf(w, "%s no mappings written\n", colorFail("failed:"))
		return errors.Wrap(runErr, "map")
	}
	if err := output.AppendMappings(cfg.Output, ctx.Symbols, !cfg.Append); err != nil {
		return err
	}
	verb := "appended"
	if !cfg.Append {
		verb = "wrote"
	}
	fmt.Fprintf(w, "%s %s mappings to %s\n", verb, colorCount(ctx.Symbols.Len()), cfg.Output)
	return nil
}

func printReport(w io.Writer, rep *pipeline.Report) {
	for _, s := range rep.Steps {
		fmt.Fprintf(w, "%-16s %s renames  %s\n", colorFeature(s.Feature), colorCount(fmt.Sprintf("%3d", s.Renames)), colorFaint(s.Elapsed))
	}
	for _, d := range rep.Diags {
		fmt.Fprintf(w, "  %s\n", colorFaint(d))
	}
}
