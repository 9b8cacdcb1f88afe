package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-crmpanel/pkg/document"
)

type validateOptions struct {
	Locale   string
	PersonID string
	Payload  bool
}

func newValidateCmd(root *rootOptions) *cobra.Command {
	var opts validateOptions

	cmd := &cobra.Command{
		Use:   "validate <form> <values.json>",
		Short: "Validate element values offline",
		Long: "Validate a flat JSON object of element ids to values against a form definition.\n" +
			"Errors are printed per element and the command exits non-zero when any field fails.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.loadConfig(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			def, err := loadForm(cfg, args[0], opts.Locale)
			if err != nil {
				return err
			}
			raw, err := os.ReadFile(args[1])
			if err != nil {
				return err
			}
			doc, err := document.FromJSON(def, raw)
			if err != nil {
				return err
			}
			payload, err := checkedPayload(cmd.ErrOrStderr(), cfg, def, doc, opts.Locale, opts.PersonID)
			if err != nil {
				return err
			}
			if opts.Payload {
				return writeJSON(cmd.OutOrStdout(), payload)
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s: valid\n", def.ID)
			return err
		},
	}
	cmd.Flags().StringVar(&opts.Locale, "locale", "", "locale for messages (default DEFAULT_LOCALE)")
	cmd.Flags().StringVar(&opts.PersonID, "person", "", "person id sent as person_id")
	cmd.Flags().BoolVar(&opts.Payload, "payload", false, "print the marshalled payload when valid")
	return cmd
}
