package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gocv.io/x/gocv"

	"github.com/teslashibe/go-facecursor/pkg/artifact"
	"github.com/teslashibe/go-facecursor/pkg/capability"
	"github.com/teslashibe/go-facecursor/pkg/host"
)

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Check camera and engine support on this machine",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runProbe()
	},
}

func init() {
	rootCmd.AddCommand(probeCmd)
}

func runProbe() error {
	env := host.NewEnvironment(cfg.Assets.ForceFallback)
	state, err := capability.Probe(env)

	acfg := artifact.DefaultConfig(cfg.Assets.URL)
	variant := acfg.Select(state)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "CHECK\tRESULT")
	fmt.Fprintln(w, "-----\t------")
	fmt.Fprintf(w, "OpenCV\t%s\n", gocv.OpenCVVersion())
	fmt.Fprintf(w, "Camera\t%s\n", yesNo(env.CameraAvailable()))
	fmt.Fprintf(w, "Supported\t%s\n", yesNo(state.Supported))
	fmt.Fprintf(w, "Variant\t%s\n", variant.Name)
	fmt.Fprintf(w, "Artifact\t%s\n", acfg.URL(variant))
	w.Flush()

	if err != nil {
		return err
	}
	if !state.Supported {
		return fmt.Errorf("this machine cannot run facecursor")
	}
	return nil
}

func yesNo(b bool) string {
	if b {
		return "✅ yes"
	}
	return "❌ no"
}
