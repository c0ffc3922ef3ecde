package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"deobf/internal/detectors"
	"deobf/internal/pipeline"
)

func init() {
	rootCmd.AddCommand(detectorsCmd)
}

var detectorsCmd = &cobra.Command{
	Use:   "detectors",
	Short: "List the detectors in run order with their prerequisites",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		pl, err := pipeline.New(detectors.Default())
		if err != nil {
			return err
		}
		return listDetectors(os.Stdout, pl)
	},
}

func listDetectors(w io.Writer, pl *pipeline.Pipeline) error {
	for i, d := range pl.Detectors() {
		after, err := pl.Dependencies(d.String())
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%2d. %s\n", i+1, colorFeature(d))
		if len(after) > 0 {
			fmt.Fprintf(w, "    after:    %s\n", strings.Join(after, ", "))
		}
		if req := d.Requires(); len(req) > 0 {
			fmt.Fprintf(w, "    requires: %s\n", strings.Join(req, ", "))
		}
		if prov := d.Provides(); len(prov) > 0 {
			fmt.Fprintf(w, "    provides: %s\n", strings.Join(prov, ", "))
		}
	}
	return nil
}
