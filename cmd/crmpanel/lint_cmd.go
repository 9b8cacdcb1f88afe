package main

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-crmpanel/pkg/formschema"
	"github.com/goliatone/go-crmpanel/pkg/intl"
)

type violation struct {
	source   string
	location string
	message  string
}

type lintOptions struct {
	Locales []string
	Strict  bool
}

func newLintCmd() *cobra.Command {
	var opts lintOptions

	cmd := &cobra.Command{
		Use:   "lint [dirs...]",
		Short: "Check form definitions and their translations",
		Long: "Load every definition directory (the bundled forms when none is given),\n" +
			"then report labels without a translation in the requested locales.\n" +
			"Missing translations only fail the run with --strict.",
		RunE: func(cmd *cobra.Command, args []string) error {
			bundle, err := intl.New()
			if err != nil {
				return err
			}
			locales := opts.Locales
			if len(locales) == 0 {
				locales = bundle.Supported()
			}

			var violations []violation
			if len(args) == 0 {
				store, err := formschema.Default()
				if err != nil {
					return fmt.Errorf("lint bundled forms: %w", err)
				}
				violations = append(violations, lintStore("bundled", store, bundle, locales)...)
			}
			for _, dir := range args {
				store, err := formschema.LoadFS(os.DirFS(dir))
				if err != nil {
					return fmt.Errorf("lint %s: %w", dir, err)
				}
				violations = append(violations, lintStore(dir, store, bundle, locales)...)
			}

			report(cmd.ErrOrStderr(), violations)
			if opts.Strict && len(violations) > 0 {
				return fmt.Errorf("%d missing translations", len(violations))
			}
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&opts.Locales, "locale", nil, "locales to check (default every bundled locale)")
	cmd.Flags().BoolVar(&opts.Strict, "strict", false, "fail when a translation is missing")
	return cmd
}

func lintStore(source string, store *formschema.Store, bundle *intl.Bundle, locales []string) []violation {
	var out []violation
	for _, form := range store.List() {
		for _, locale := range locales {
			intl.LocalizeForm(form, locale, bundle, func(locale, key, fallback string, _ error) string {
				out = append(out, violation{
					source:   source,
					location: form.ID + "@" + locale,
					message:  "missing " + key,
				})
				return fallback
			})
		}
	}
	return out
}

func report(w io.Writer, violations []violation) {
	sort.Slice(violations, func(i, j int) bool {
		if violations[i].source == violations[j].source {
			if violations[i].location == violations[j].location {
				return violations[i].message < violations[j].message
			}
			return violations[i].location < violations[j].location
		}
		return violations[i].source < violations[j].source
	})
	for _, v := range violations {
		fmt.Fprintf(w, "%s: %s -> %s\n", v.source, v.location, v.message)
	}
}
