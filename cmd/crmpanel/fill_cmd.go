package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-crmpanel/pkg/apidoc"
	"github.com/goliatone/go-crmpanel/pkg/catalog"
	"github.com/goliatone/go-crmpanel/pkg/config"
	"github.com/goliatone/go-crmpanel/pkg/document"
	"github.com/goliatone/go-crmpanel/pkg/form"
	"github.com/goliatone/go-crmpanel/pkg/intl"
	"github.com/goliatone/go-crmpanel/pkg/marshal"
	"github.com/goliatone/go-crmpanel/pkg/model"
	"github.com/goliatone/go-crmpanel/pkg/prompt"
)

var errInvalid = errors.New("form has validation errors")

type fillOptions struct {
	Locale   string
	PersonID string
	Submit   bool
}

func newFillCmd(root *rootOptions) *cobra.Command {
	var opts fillOptions

	cmd := &cobra.Command{
		Use:   "fill <form>",
		Short: "Fill a form in the terminal and print or submit the payload",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.loadConfig(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			def, err := loadForm(cfg, args[0], opts.Locale)
			if err != nil {
				return err
			}
			source := catalog.NewClient(cfg.CatalogURL(),
				catalog.WithTTL(cfg.Backend.CatalogTTL),
				catalog.WithTimeout(cfg.Backend.Timeout),
				catalog.WithLogger(cfg.Logger()),
			)
			doc, err := prompt.New(prompt.WithCatalog(source)).Fill(cmd.Context(), def)
			if err != nil {
				return err
			}

			payload, err := checkedPayload(cmd.ErrOrStderr(), cfg, def, doc, opts.Locale, opts.PersonID)
			if err != nil {
				return err
			}
			if !opts.Submit {
				return writeJSON(cmd.OutOrStdout(), payload)
			}

			client, err := backendClient(cfg)
			if err != nil {
				return err
			}
			var response map[string]any
			if err := client.Submit(cmd.Context(), def.SubmitEndpoint, payload, &response); err != nil {
				return fmt.Errorf("submit %s: %w", def.ID, err)
			}
			return writeJSON(cmd.OutOrStdout(), response)
		},
	}
	cmd.Flags().StringVar(&opts.Locale, "locale", "", "locale for labels and messages (default DEFAULT_LOCALE)")
	cmd.Flags().StringVar(&opts.PersonID, "person", "", "person id sent as person_id")
	cmd.Flags().BoolVar(&opts.Submit, "submit", false, "POST the payload to the form's submit endpoint")
	return cmd
}

// checkedPayload runs the form engine over doc and, when valid, returns the
// marshalled payload after checking it against the published schema.
func checkedPayload(stderr io.Writer, cfg *config.Configuration, def model.FormModel, doc *document.Document, locale, personID string) (*marshal.Object, error) {
	bundle, err := intl.New()
	if err != nil {
		return nil, err
	}
	if locale == "" {
		locale = cfg.DefaultLocale
	}
	engine := form.NewEngine(nil, form.WithTranslator(bundle), form.WithLogger(cfg.Logger()))
	result := engine.Validate(doc, form.WithLocale(locale))
	if !result.Valid {
		if err := printErrors(stderr, result.Failed()); err != nil {
			return nil, err
		}
		return nil, errInvalid
	}

	payload := marshal.New(def, nil).Payload(doc, personID)
	if err := apidoc.CheckPayload(def, payload); err != nil {
		return nil, fmt.Errorf("payload does not match the published schema: %w", err)
	}
	return payload, nil
}

func printErrors(w io.Writer, failed map[string][]string) error {
	ids := make([]string, 0, len(failed))
	for id := range failed {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, id := range ids {
		fmt.Fprintf(tw, "%s\t%s\n", id, strings.Join(failed[id], "; "))
	}
	return tw.Flush()
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
