package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-crmpanel/pkg/config"
)

type rootOptions struct {
	EnvFiles []string
	LogLevel string
}

func newRootCmd() *cobra.Command {
	var opts rootOptions

	cmd := &cobra.Command{
		Use:           "crmpanel",
		Short:         "Persian CRM admin panel",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringSliceVar(&opts.EnvFiles, "env-file", nil, "env files to load before the environment (default .env, .env.local)")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "override LOG_LEVEL")

	cmd.AddCommand(newServeCmd(&opts))
	cmd.AddCommand(newPreviewCmd(&opts))
	cmd.AddCommand(newFormsCmd(&opts))
	cmd.AddCommand(newFillCmd(&opts))
	cmd.AddCommand(newValidateCmd(&opts))
	cmd.AddCommand(newLintCmd())
	cmd.AddCommand(newOpenAPICmd(&opts))
	return cmd
}

// loadConfig reads the configuration and routes its logger to stderr so
// command output on stdout stays clean.
func (o *rootOptions) loadConfig(stderr io.Writer) (*config.Configuration, error) {
	if o.LogLevel != "" {
		if err := os.Setenv("LOG_LEVEL", o.LogLevel); err != nil {
			return nil, err
		}
	}
	cfg, err := config.Load(o.EnvFiles...)
	if err != nil {
		return nil, err
	}
	cfg.SetLogOutput(stderr)
	return cfg, nil
}

func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}
