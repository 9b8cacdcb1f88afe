package intl

import (
	"strings"

	"github.com/goliatone/go-crmpanel/pkg/model"
)

// Translator resolves message ids for a locale.
type Translator interface {
	Translate(locale, key string, args ...any) (string, error)
}

// MissingHandler decides what to show when a key has no translation.
type MissingHandler func(locale, key, fallback string, err error) string

func keepFallback(_, _, fallback string, _ error) string {
	return fallback
}

// FormKey builds the message id of a form element:
// Form.<form>.<part>[.<part>...].
func FormKey(formID string, parts ...string) string {
	return strings.Join(append([]string{"Form", formID}, parts...), ".")
}

// LocalizeForm returns a copy of form with titles, labels, placeholders and
// option labels translated. Keys follow FormKey, with fields addressed by
// payload key, sections by payload key and options by id. Missing keys keep
// the definition text.
func LocalizeForm(form model.FormModel, locale string, t Translator, onMissing MissingHandler) model.FormModel {
	if t == nil {
		return form
	}
	if onMissing == nil {
		onMissing = keepFallback
	}
	tr := func(key, fallback string) string {
		msg, err := t.Translate(locale, key)
		if err == nil && strings.TrimSpace(msg) != "" {
			return msg
		}
		return onMissing(locale, key, fallback, err)
	}

	out := form
	out.Title = tr(FormKey(form.ID, "Title"), form.Title)

	out.Fields = make([]model.Field, len(form.Fields))
	for i, field := range form.Fields {
		out.Fields[i] = localizeField(field, []string{field.PayloadKey()}, form.ID, tr)
	}

	out.Sections = make([]model.Section, len(form.Sections))
	for i, section := range form.Sections {
		prefix := section.PayloadKey()
		localized := section
		localized.Title = tr(FormKey(form.ID, prefix, "Title"), section.Title)
		localized.AddLabel = tr(FormKey(form.ID, prefix, "AddLabel"), section.AddLabel)
		localized.Template = make([]model.Field, len(section.Template))
		for j, field := range section.Template {
			localized.Template[j] = localizeField(field, []string{prefix, field.PayloadKey()}, form.ID, tr)
		}
		out.Sections[i] = localized
	}
	return out
}

func localizeField(field model.Field, path []string, formID string, tr func(key, fallback string) string) model.Field {
	out := field
	out.Label = tr(FormKey(formID, path...), field.Label)
	if field.Placeholder != "" {
		out.Placeholder = tr(FormKey(formID, append(path, "Placeholder")...), field.Placeholder)
	}
	if len(field.Options) > 0 {
		out.Options = make([]model.Option, len(field.Options))
		for i, opt := range field.Options {
			localized := opt
			localized.Label = tr(FormKey(formID, append(append([]string{}, path...), opt.ID)...), opt.Label)
			out.Options[i] = localized
		}
	}
	return out
}
