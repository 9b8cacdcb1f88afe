package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	crmpanel "github.com/goliatone/go-crmpanel"
	"github.com/goliatone/go-crmpanel/pkg/config"
	"github.com/goliatone/go-crmpanel/pkg/intl"
	"github.com/goliatone/go-crmpanel/pkg/model"
)

type formsOptions struct {
	Locale string
	YAML   bool
}

func newFormsCmd(root *rootOptions) *cobra.Command {
	var opts formsOptions

	cmd := &cobra.Command{
		Use:   "forms [id]",
		Short: "List form definitions or describe one",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.loadConfig(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(args) == 0 {
				return listForms(out, cfg, opts.Locale)
			}
			form, err := loadForm(cfg, args[0], opts.Locale)
			if err != nil {
				return err
			}
			if opts.YAML {
				enc := yaml.NewEncoder(out)
				enc.SetIndent(2)
				defer enc.Close()
				return enc.Encode(form)
			}
			return describeForm(out, form)
		},
	}
	cmd.Flags().StringVar(&opts.Locale, "locale", "", "locale for labels (default DEFAULT_LOCALE)")
	cmd.Flags().BoolVar(&opts.YAML, "yaml", false, "print the definition as YAML")
	return cmd
}

// loadForm resolves a definition and localizes it for locale, or for the
// configured default locale when empty.
func loadForm(cfg *config.Configuration, id, locale string) (model.FormModel, error) {
	store, err := crmpanel.LoadForms(cfg)
	if err != nil {
		return model.FormModel{}, err
	}
	form, err := store.Form(id)
	if err != nil {
		return model.FormModel{}, err
	}
	return localize(cfg, form, locale)
}

func localize(cfg *config.Configuration, form model.FormModel, locale string) (model.FormModel, error) {
	bundle, err := intl.New()
	if err != nil {
		return model.FormModel{}, err
	}
	if locale == "" {
		locale = cfg.DefaultLocale
	}
	return intl.LocalizeForm(form, locale, bundle, nil), nil
}

func listForms(out io.Writer, cfg *config.Configuration, locale string) error {
	store, err := crmpanel.LoadForms(cfg)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tFIELDS\tSECTIONS\tSUBMIT")
	for _, form := range store.List() {
		localized, err := localize(cfg, form, locale)
		if err != nil {
			return err
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\n",
			form.ID, localized.Title, len(form.Fields), len(form.Sections), form.SubmitEndpoint)
	}
	return tw.Flush()
}

func describeForm(out io.Writer, form model.FormModel) error {
	fmt.Fprintf(out, "%s (%s)\n\n", form.Title, form.ID)
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SECTION\tID\tKEY\tKIND\tREQUIRED\tVALIDATORS")
	for _, field := range form.Fields {
		writeFieldRow(tw, "-", field)
	}
	for _, section := range form.Sections {
		for _, field := range section.Template {
			writeFieldRow(tw, section.ID, field)
		}
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if len(form.Rules) > 0 {
		fmt.Fprintln(out, "\nrules:")
		for _, rule := range form.Rules {
			fmt.Fprintf(out, "  %s: %s\n", rule.Anchor, strings.Join(rule.Validators, ", "))
		}
	}
	return nil
}

func writeFieldRow(w io.Writer, section string, field model.Field) {
	required := ""
	if field.Required {
		required = "yes"
	}
	fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
		section, field.ID, field.PayloadKey(), field.Kind, required, strings.Join(field.Validators, ","))
}
