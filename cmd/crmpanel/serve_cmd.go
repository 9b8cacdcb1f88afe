package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	crmpanel "github.com/goliatone/go-crmpanel"
)

func newServeCmd(root *rootOptions) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP panel",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := root.loadConfig(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.SocketAddress = addr
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return crmpanel.Serve(ctx, cfg)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from PORT and GO_APP_ENV)")
	return cmd
}
