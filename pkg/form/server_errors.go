package form

import (
	"strconv"
	"strings"

	"github.com/goliatone/go-crmpanel/pkg/document"
)

// ErrorMapping splits a backend error payload into element-level and
// form-level messages.
type ErrorMapping struct {
	Fields map[string][]string `json:"fields,omitempty"`
	Form   []string            `json:"form,omitempty"`
}

// MergeFormErrors concatenates form-level messages, trimming whitespace and
// dropping duplicates while preserving order.
func MergeFormErrors(existing []string, extras ...string) []string {
	combined := make([]string, 0, len(existing)+len(extras))
	combined = append(combined, existing...)
	combined = append(combined, extras...)
	return normalizeMessages(combined)
}

// MapServerErrors maps backend error keys onto element ids of the document.
// Keys may be JSON pointers ("/body/firstname"), dotted paths
// ("phone_numbers.1.number") or bare payload keys. Numeric segments after a
// section key select the visible row at that index. Unknown keys become
// form-level messages so nothing is lost.
func MapServerErrors(doc *document.Document, payload map[string][]string) ErrorMapping {
	mapping := ErrorMapping{Fields: make(map[string][]string)}
	if len(payload) == 0 || doc == nil {
		mapping.Fields = nil
		return mapping
	}

	idx := newKeyIndex(doc)
	for rawPath, messages := range payload {
		normalized := normalizeMessages(messages)
		if len(normalized) == 0 {
			continue
		}
		id, formLevel := idx.resolve(rawPath)
		if formLevel {
			mapping.Form = append(mapping.Form, normalized...)
			continue
		}
		mapping.Fields[id] = normalizeMessages(append(mapping.Fields[id], normalized...))
	}

	if len(mapping.Fields) == 0 {
		mapping.Fields = nil
	}
	mapping.Form = normalizeMessages(mapping.Form)
	return mapping
}

type keyIndex struct {
	doc      *document.Document
	fields   map[string]string
	sections map[string]string
}

func newKeyIndex(doc *document.Document) keyIndex {
	form := doc.Form()
	idx := keyIndex{
		doc:      doc,
		fields:   make(map[string]string),
		sections: make(map[string]string),
	}
	for _, field := range form.Fields {
		idx.fields[normalizeKey(field.PayloadKey())] = field.ID
		idx.fields[normalizeKey(field.ID)] = field.ID
	}
	for _, section := range form.Sections {
		idx.sections[normalizeKey(section.PayloadKey())] = section.ID
		idx.sections[normalizeKey(section.ID)] = section.ID
	}
	return idx
}

func (idx keyIndex) resolve(raw string) (string, bool) {
	trimmed := strings.TrimSpace(raw)
	if isFormLevelKey(trimmed) {
		return "", true
	}
	segments := dropWrapperSegments(parsePathSegments(trimmed))
	if len(segments) == 0 {
		return "", true
	}

	head := normalizeKey(segments[0])
	if id, ok := idx.fields[head]; ok {
		return id, false
	}
	sectionID, ok := idx.sections[head]
	if !ok {
		return "", true
	}
	return idx.resolveRow(sectionID, segments[1:])
}

func (idx keyIndex) resolveRow(sectionID string, rest []string) (string, bool) {
	rows := idx.doc.Rows(sectionID)
	if len(rows) == 0 {
		return "", true
	}
	row := rows[0]
	if len(rest) > 0 {
		if n, err := strconv.Atoi(rest[0]); err == nil {
			if n < 0 || n >= len(rows) {
				return "", true
			}
			row = rows[n]
			rest = rest[1:]
		}
	}
	if len(row.Fields) == 0 {
		return "", true
	}
	if len(rest) == 0 {
		return row.Fields[0], false
	}

	section, _ := idx.doc.Form().Section(sectionID)
	want := normalizeKey(rest[0])
	for _, id := range row.Fields {
		field, ok := section.TemplateField(id)
		if !ok {
			continue
		}
		if normalizeKey(field.PayloadKey()) == want {
			return id, false
		}
	}
	return row.Fields[0], false
}

// normalizeKey folds snake_case and kebab-case keys together.
func normalizeKey(key string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(key), "_", "-"))
}

func normalizeMessages(messages []string) []string {
	if len(messages) == 0 {
		return nil
	}

	out := make([]string, 0, len(messages))
	seen := make(map[string]struct{}, len(messages))

	for _, message := range messages {
		trimmed := strings.TrimSpace(message)
		if trimmed == "" {
			continue
		}
		if _, exists := seen[trimmed]; exists {
			continue
		}
		seen[trimmed] = struct{}{}
		out = append(out, trimmed)
	}

	if len(out) == 0 {
		return nil
	}
	return out
}

func parsePathSegments(path string) []string {
	clean := strings.TrimSpace(path)
	clean = strings.TrimPrefix(clean, "#/")
	clean = strings.TrimPrefix(clean, "$.")
	clean = strings.TrimLeft(clean, "#/.$")

	clean = strings.NewReplacer("[", ".", "]", "", "//", "/").Replace(clean)
	clean = strings.Trim(clean, "./")
	if clean == "" {
		return nil
	}

	parts := strings.FieldsFunc(clean, func(r rune) bool {
		return r == '.' || r == '/'
	})
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		segment := strings.TrimSpace(part)
		if segment == "" {
			continue
		}
		segment = strings.ReplaceAll(segment, "~1", "/")
		segment = strings.ReplaceAll(segment, "~0", "~")
		out = append(out, segment)
	}
	return out
}

var wrapperSegments = map[string]struct{}{
	"body":    {},
	"request": {},
	"payload": {},
	"data":    {},
	"errors":  {},
}

func dropWrapperSegments(segments []string) []string {
	for len(segments) > 0 {
		if _, ok := wrapperSegments[strings.ToLower(segments[0])]; !ok {
			break
		}
		segments = segments[1:]
	}
	return segments
}

func isFormLevelKey(key string) bool {
	switch strings.ToLower(strings.TrimSpace(key)) {
	case "", ".", "/", "#", "$", "form", "detail", "__all__", "non_field_errors", "non-field-errors":
		return true
	default:
		return false
	}
}
