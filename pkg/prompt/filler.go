// Package prompt fills a form from the terminal. Each field is asked with the
// prompt matching its kind, field validators give immediate feedback and
// repeatable sections grow one row at a time.
package prompt

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/goliatone/go-crmpanel/pkg/catalog"
	"github.com/goliatone/go-crmpanel/pkg/document"
	"github.com/goliatone/go-crmpanel/pkg/model"
	"github.com/goliatone/go-crmpanel/pkg/persian"
	"github.com/goliatone/go-crmpanel/pkg/rows"
	"github.com/goliatone/go-crmpanel/pkg/validation"
)

var (
	// ErrAborted signals the user aborted input (Ctrl+C).
	ErrAborted = errors.New("prompt: aborted")
	// ErrNoOptions is returned for a required choice without options.
	ErrNoOptions = errors.New("prompt: no options to choose from")
)

// Option configures a Filler.
type Option func(*Filler)

// WithDriver swaps the survey driver.
func WithDriver(d Driver) Option {
	return func(f *Filler) { f.driver = d }
}

// WithRegistry resolves field validators against reg.
func WithRegistry(reg *validation.Registry) Option {
	return func(f *Filler) { f.registry = reg }
}

// WithCatalog loads picker options from src.
func WithCatalog(src catalog.Source) Option {
	return func(f *Filler) { f.catalog = src }
}

// WithCloner sets the cloner used for extra section rows.
func WithCloner(c *rows.Cloner) Option {
	return func(f *Filler) { f.cloner = c }
}

// Filler drives a Driver over a form definition.
type Filler struct {
	driver   Driver
	registry *validation.Registry
	catalog  catalog.Source
	cloner   *rows.Cloner
}

// New builds a filler with the survey driver and the default validators.
func New(opts ...Option) *Filler {
	f := &Filler{}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}
	if f.driver == nil {
		f.driver = NewSurveyDriver()
	}
	if f.registry == nil {
		f.registry = validation.NewDefaultRegistry()
	}
	if f.cloner == nil {
		f.cloner = rows.NewCloner(rows.WithCatalog(f.catalog))
	}
	return f
}

// Fill asks for every field and returns the filled document. Cross-field
// rules are left to the form engine.
func (f *Filler) Fill(ctx context.Context, form model.FormModel) (*document.Document, error) {
	if ctx == nil {
		return nil, errors.New("prompt: context is required")
	}
	doc := document.New(form)

	for _, field := range form.Fields {
		if err := f.promptField(ctx, doc, field, field.ID); err != nil {
			return nil, err
		}
	}
	for _, section := range form.Sections {
		if err := f.promptSection(ctx, doc, section); err != nil {
			return nil, err
		}
	}
	return doc, nil
}

func (f *Filler) promptSection(ctx context.Context, doc *document.Document, section model.Section) error {
	title := section.Title
	if title == "" {
		title = section.ID
	}
	if err := f.driver.Info(ctx, title+":"); err != nil {
		return err
	}

	for idx := 0; ; idx++ {
		current := doc.Rows(section.ID)
		if idx >= len(current) {
			more, err := f.driver.Confirm(ctx, ConfirmConfig{Message: addMessage(section)})
			if err != nil {
				return err
			}
			if !more {
				return nil
			}
			if _, err := f.cloner.Add(ctx, doc, section.ID); err != nil {
				return fmt.Errorf("prompt: %w", err)
			}
			current = doc.Rows(section.ID)
		}
		for _, id := range current[idx].Fields {
			field, ok := section.TemplateField(id)
			if !ok {
				continue
			}
			if err := f.promptField(ctx, doc, field, id); err != nil {
				return err
			}
		}
	}
}

func addMessage(section model.Section) string {
	if section.AddLabel != "" {
		return section.AddLabel + "?"
	}
	return fmt.Sprintf("Add another %s row?", section.ID)
}

func (f *Filler) promptField(ctx context.Context, doc *document.Document, field model.Field, id string) error {
	switch field.Kind {
	case model.KindRadio:
		return f.promptRadio(ctx, doc, field)
	case model.KindSelect, model.KindMultiSelect:
		return f.promptChoice(ctx, doc, field, id)
	default:
		return f.promptText(ctx, doc, field, id)
	}
}

func label(field model.Field) string {
	text := field.Label
	if text == "" {
		text = field.ID
	}
	if field.Required {
		text += " *"
	}
	return text
}

func (f *Filler) promptText(ctx context.Context, doc *document.Document, field model.Field, id string) error {
	for {
		value, err := f.driver.Input(ctx, InputConfig{
			Message: label(field),
			Default: doc.Value(id),
			Help:    field.Placeholder,
		})
		if err != nil {
			return err
		}
		value = strings.TrimSpace(value)
		if !field.Required && value == "" {
			return doc.Set(id, "")
		}
		if msg, ok := f.check(field, value); !ok {
			if err := f.driver.Info(ctx, msg); err != nil {
				return err
			}
			continue
		}
		return doc.Set(id, value)
	}
}

// check runs the field validators in order and returns the first failure.
func (f *Filler) check(field model.Field, value string) (string, bool) {
	normalized := persian.ToASCIIDigits(value)
	for _, name := range field.Validators {
		validator, err := f.registry.Get(name)
		if err != nil {
			continue
		}
		if res := validator(normalized); !res.Valid {
			return res.Message, false
		}
	}
	return "", true
}

func (f *Filler) promptRadio(ctx context.Context, doc *document.Document, field model.Field) error {
	options := make([]string, 0, len(field.Options))
	for _, opt := range field.Options {
		options = append(options, optionLabel(opt))
	}
	if len(options) == 0 {
		return fmt.Errorf("%w: %s", ErrNoOptions, field.ID)
	}
	idx, err := f.driver.Select(ctx, SelectConfig{Message: label(field), Options: options, DefaultIndex: -1})
	if err != nil {
		return err
	}
	if idx < 0 || idx >= len(field.Options) {
		return nil
	}
	return doc.Check(field.Options[idx].ID)
}

func (f *Filler) promptChoice(ctx context.Context, doc *document.Document, field model.Field, id string) error {
	choices, err := f.choices(ctx, field)
	if err != nil {
		return err
	}
	if len(choices) == 0 {
		if field.Required {
			return fmt.Errorf("%w: %s", ErrNoOptions, field.ID)
		}
		return nil
	}
	options := make([]string, 0, len(choices))
	for _, opt := range choices {
		options = append(options, optionLabel(opt))
	}

	if field.Kind == model.KindMultiSelect {
		for {
			indices, err := f.driver.MultiSelect(ctx, SelectConfig{Message: label(field), Options: options})
			if err != nil {
				return err
			}
			var ids []string
			for _, idx := range indices {
				if idx >= 0 && idx < len(choices) {
					ids = append(ids, choices[idx].ID)
				}
			}
			if field.Required {
				if res := validation.NotEmptySelection(ids); !res.Valid {
					if err := f.driver.Info(ctx, res.Message); err != nil {
						return err
					}
					continue
				}
			}
			return doc.SetValues(id, ids...)
		}
	}

	idx, err := f.driver.Select(ctx, SelectConfig{Message: label(field), Options: options, DefaultIndex: -1})
	if err != nil {
		return err
	}
	if idx < 0 || idx >= len(choices) {
		return nil
	}
	return doc.Set(id, choices[idx].ID)
}

// choices returns static options, or the catalog entries of a picker field.
// A failed catalog lookup falls back to the static options.
func (f *Filler) choices(ctx context.Context, field model.Field) ([]model.Option, error) {
	if field.Picker == "" || f.catalog == nil {
		return field.Options, nil
	}
	found, err := f.catalog.Lookup(ctx, field.Picker)
	if err != nil {
		if infoErr := f.driver.Info(ctx, fmt.Sprintf("could not load %s options: %v", field.Picker, err)); infoErr != nil {
			return nil, infoErr
		}
		return field.Options, nil
	}
	return catalog.ToModel(found), nil
}

func optionLabel(opt model.Option) string {
	if opt.Label != "" {
		return opt.Label
	}
	return opt.ID
}
