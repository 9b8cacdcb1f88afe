package model

import (
	"strings"

	"github.com/goliatone/go-crmpanel/pkg/persian"
)

// ValueReader is the read side of a document.
type ValueReader interface {
	Value(id string) string
	Values(id string) []string
	Checked(id string) bool
}

// Read returns the field's current value for the given element id: a trimmed
// ASCII-digit string for text and date inputs, the checked option's data for
// radio groups, the selected id for selects and the selected ids for
// multiselects.
func (f Field) Read(doc ValueReader, id string) any {
	switch f.Kind {
	case KindRadio:
		return f.checkedData(doc)
	case KindMultiSelect:
		values := doc.Values(id)
		out := make([]string, 0, len(values))
		for _, v := range values {
			if v = strings.TrimSpace(v); v != "" {
				out = append(out, v)
			}
		}
		return out
	case KindSelect:
		return strings.TrimSpace(doc.Value(id))
	default:
		return persian.ToASCIIDigits(strings.TrimSpace(doc.Value(id)))
	}
}

// ReadString flattens Read to the single string validators consume.
func (f Field) ReadString(doc ValueReader, id string) string {
	switch v := f.Read(doc, id).(type) {
	case string:
		return v
	case []string:
		return strings.Join(v, ",")
	}
	return ""
}

// Empty reports whether the field has no value for the element id.
func (f Field) Empty(doc ValueReader, id string) bool {
	switch v := f.Read(doc, id).(type) {
	case string:
		return v == ""
	case []string:
		return len(v) == 0
	}
	return true
}

func (f Field) checkedData(doc ValueReader) string {
	for _, opt := range f.Options {
		if doc.Checked(opt.ID) {
			if opt.Data != "" {
				return opt.Data
			}
			return opt.ID
		}
	}
	return ""
}
