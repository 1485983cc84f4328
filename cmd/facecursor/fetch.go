package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/teslashibe/go-facecursor/pkg/artifact"
	"github.com/teslashibe/go-facecursor/pkg/capability"
)

// DefaultModelURL is the upstream YuNet model.
const DefaultModelURL = "https://github.com/opencv/opencv_zoo/raw/main/models/face_detection_yunet/face_detection_yunet_2023mar.onnx"

var (
	fetchFrom string
	fetchOut  string
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download the engine artifact into a local assets directory",
	Long: `Downloads the face detection model and installs it under both engine
variants, laid out the way "run" expects to find it:

  <out>/engine_accel/face_detection_yunet_2023mar.wasm
  <out>/engine_fallback/face_detection_yunet_2023mar.mem
  <out>/engine_fallback/face_detection_yunet_2023mar.onnx

Point assets.dir at <out> to serve it from the built-in web server.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := fetchOut
		if out == "" {
			out = cfg.Assets.Dir
		}
		if out == "" {
			out = "assets"
		}

		source, err := sourceConfig(fetchFrom)
		if err != nil {
			return err
		}

		bar := newDownloadBar("Downloading model")
		loader := artifact.NewLoader(artifact.WithProgress(bar.Update))
		data, err := loader.Load(cmd.Context(), source, capability.SupportState{AcceleratedVariant: true})
		bar.Finish()
		if err != nil {
			return err
		}

		dest := artifact.DefaultConfig("")
		paths := []string{
			filepath.Join(out, dest.URL(dest.Accelerated)),
			filepath.Join(out, dest.URL(dest.Fallback)),
			filepath.Join(out, dest.Fallback.BaseURL, dest.Name+".onnx"),
		}
		for _, p := range paths {
			if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
				return fmt.Errorf("mkdir: %w", err)
			}
			if err := os.WriteFile(p, data, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", p, err)
			}
			fmt.Printf("✅ %s (%d KB)\n", p, len(data)/1024)
		}
		return nil
	},
}

func init() {
	fetchCmd.Flags().StringVar(&fetchFrom, "from", DefaultModelURL, "Model URL (http, https or file)")
	fetchCmd.Flags().StringVar(&fetchOut, "out", "", "Assets directory (default: assets.dir or ./assets)")
	rootCmd.AddCommand(fetchCmd)
}

// sourceConfig describes a single model URL as an artifact config so the
// regular loader can fetch it.
func sourceConfig(rawURL string) (artifact.Config, error) {
	slash := strings.LastIndex(rawURL, "/")
	if slash < 0 || slash == len(rawURL)-1 {
		return artifact.Config{}, fmt.Errorf("model URL %q has no file name", rawURL)
	}
	base, file := rawURL[:slash+1], rawURL[slash+1:]

	dot := strings.LastIndex(file, ".")
	if dot <= 0 || dot == len(file)-1 {
		return artifact.Config{}, fmt.Errorf("model URL %q has no file extension", rawURL)
	}
	name, ext := file[:dot], file[dot+1:]

	v := artifact.Variant{Name: "source", BaseURL: base, Extension: ext}
	return artifact.Config{Name: name, Accelerated: v, Fallback: v}, nil
}
