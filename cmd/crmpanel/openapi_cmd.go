package main

import (
	"github.com/spf13/cobra"

	crmpanel "github.com/goliatone/go-crmpanel"
	"github.com/goliatone/go-crmpanel/pkg/apidoc"
)

func newOpenAPICmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "openapi",
		Short: "Print the OpenAPI description served at /openapi.json",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := root.loadConfig(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			store, err := crmpanel.LoadForms(cfg)
			if err != nil {
				return err
			}
			doc, err := apidoc.Build(store.List())
			if err != nil {
				return err
			}
			raw, err := apidoc.JSON(doc)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(append(raw, '\n'))
			return err
		},
	}
}
