package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	crmpanel "github.com/goliatone/go-crmpanel"
	"github.com/goliatone/go-crmpanel/pkg/backend"
	"github.com/goliatone/go-crmpanel/pkg/config"
	"github.com/goliatone/go-crmpanel/pkg/preview"
)

type previewOptions struct {
	Selected string
	JSON     bool
}

func newPreviewCmd(root *rootOptions) *cobra.Command {
	var opts previewOptions

	cmd := &cobra.Command{
		Use:   "preview <file.json|url>",
		Short: "Render a preview document to stdout",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.loadConfig(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			raw, err := readPreviewSource(cmd.Context(), cfg, args[0])
			if err != nil {
				return err
			}
			renderer, err := crmpanel.NewPreview(cfg)
			if err != nil {
				return err
			}
			result, err := renderer.RenderJSON(raw, preview.WithSelected(opts.Selected))
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if opts.JSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(result)
			}
			_, err = fmt.Fprintln(out, result.HTML)
			return err
		},
	}
	cmd.Flags().StringVar(&opts.Selected, "selected", "", "link of the grid row to mark selected")
	cmd.Flags().BoolVar(&opts.JSON, "json", false, "print html and grid ids as JSON")
	return cmd
}

// readPreviewSource loads a preview document from disk, or through the backend
// client when src is a URL. URLs must share the backend origin.
func readPreviewSource(ctx context.Context, cfg *config.Configuration, src string) ([]byte, error) {
	src = strings.TrimSpace(src)
	if strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://") {
		client, err := backendClient(cfg)
		if err != nil {
			return nil, err
		}
		return client.Fetch(ctx, src)
	}
	return os.ReadFile(src)
}

func backendClient(cfg *config.Configuration) (*backend.Client, error) {
	opts := []backend.Option{
		backend.WithTimeout(cfg.Backend.Timeout),
		backend.WithLogger(cfg.Logger()),
	}
	if cfg.Backend.AuthHeader != "" {
		opts = append(opts, backend.WithHeader(cfg.Backend.AuthHeader, cfg.Backend.AuthToken))
	}
	return backend.New(cfg.Backend.URL, opts...)
}
