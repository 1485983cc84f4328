package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/teslashibe/go-facecursor/internal/config"
	"github.com/teslashibe/go-facecursor/internal/log"
	"github.com/teslashibe/go-facecursor/pkg/debug"
)

// Version is the application version.
const Version = "0.1.0"

// errPresented marks an error that was already shown to the user.
var errPresented = errors.New("already presented")

var (
	// cfg is loaded before any subcommand runs
	cfg config.Config

	configPath string
	logLevel   string
	debugMode  bool
)

var rootCmd = &cobra.Command{
	Use:           "facecursor",
	Short:         "Move a cursor with your face",
	Version:       Version,
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if configPath != "" {
			os.Setenv(config.EnvPrefix+"_CONFIG", configPath)
		}

		var err error
		cfg, err = config.Load()
		if err != nil {
			return err
		}
		if logLevel != "" {
			cfg.Log.Level = logLevel
		}
		if debugMode {
			cfg.Log.Debug = true
			cfg.Log.Level = "debug"
		}

		if errs := cfg.Validate(); len(errs) > 0 {
			return fmt.Errorf("invalid config:\n  %s", strings.Join(errs, "\n  "))
		}

		log.Init(cfg.Log.Level)
		debug.SetEnabled(cfg.Log.Debug)
		debug.SetTracking(cfg.Log.Debug)
		return nil
	},
}

// Execute runs the CLI until it finishes or receives SIGINT/SIGTERM.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if !errors.Is(err, errPresented) {
			fmt.Fprintln(os.Stderr, "❌", err)
		}
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "TOML config file (default: ~/.config/facecursor/config.toml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Verbose per-frame logging")
}
