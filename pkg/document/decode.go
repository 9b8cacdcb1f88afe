package document

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/goliatone/go-crmpanel/pkg/model"
)

// FromValues builds a document from posted form values. Top-level fields are
// read by id; radio groups accept either the group id carrying the option's
// data or the option id itself. Cloned rows are discovered by mapping every
// posted id back to its template key and grouped by their numeric suffix;
// rows are ordered by suffix, which is monotonic for generated ids. Values
// posted for hidden template ids are ignored.
func FromValues(form model.FormModel, values url.Values) (*Document, error) {
	doc := &Document{form: form, elements: make(map[string]*Element)}

	for _, field := range form.Fields {
		doc.addField(field, false)
		if field.Kind == model.KindRadio {
			doc.restoreRadio(field, values)
			continue
		}
		if posted, ok := values[field.ID]; ok {
			doc.elements[field.ID].Values = append([]string(nil), posted...)
		}
	}

	for _, section := range form.Sections {
		state := &SectionState{ID: section.ID}
		state.Template = doc.buildRow(section, model.TemplateSuffix[1:], true)
		doc.sections = append(doc.sections, state)

		suffixes := postedSuffixes(section, values)
		if len(suffixes) == 0 {
			state.Rows = append(state.Rows, doc.buildRow(section, "1", false))
			continue
		}
		for _, suffix := range suffixes {
			row := doc.buildRow(section, suffix, false)
			for _, id := range row.Fields {
				if posted, ok := values[id]; ok {
					doc.elements[id].Values = append([]string(nil), posted...)
				}
			}
			state.Rows = append(state.Rows, row)
		}
	}
	return doc, nil
}

func (d *Document) restoreRadio(field model.Field, values url.Values) {
	selected := strings.TrimSpace(values.Get(field.ID))
	for _, opt := range field.Options {
		el := d.elements[opt.ID]
		switch {
		case selected != "" && (opt.Data == selected || opt.ID == selected):
			el.Checked = true
		case isTruthy(values.Get(opt.ID)):
			el.Checked = true
		}
		if el.Checked {
			return
		}
	}
}

func isTruthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "on", "true", "1", "checked":
		return true
	}
	return false
}

func postedSuffixes(section model.Section, values url.Values) []string {
	seen := make(map[string]struct{})
	var suffixes []string
	for key := range values {
		if model.IsTemplateID(key) {
			continue
		}
		template, ok := section.TemplateField(key)
		if !ok {
			continue
		}
		suffix, ok := suffixOf(template.ID, key)
		if !ok {
			continue
		}
		if _, dup := seen[suffix]; dup {
			continue
		}
		seen[suffix] = struct{}{}
		suffixes = append(suffixes, suffix)
	}
	sortSuffixes(suffixes)
	return suffixes
}

// suffixOf extracts the numeric group that replaced the template suffix.
func suffixOf(templateID, id string) (string, bool) {
	loc := model.SuffixIndex(templateID)
	if loc == nil {
		return "", false
	}
	prefix := templateID[:loc[0]] + "-"
	rest := templateID[loc[1]:]
	if !strings.HasPrefix(id, prefix) || !strings.HasSuffix(id, rest) {
		return "", false
	}
	suffix := id[len(prefix) : len(id)-len(rest)]
	if suffix == "" || strings.Trim(suffix, "0123456789") != "" {
		return "", false
	}
	return suffix, true
}

type snapshot struct {
	Form     string         `json:"form"`
	Elements []Element      `json:"elements"`
	Sections []SectionState `json:"sections,omitempty"`
}

// MarshalJSON serialises the document for the front-end.
func (d *Document) MarshalJSON() ([]byte, error) {
	d.mu.RLock()
	snap := snapshot{Form: d.form.ID}
	for _, id := range d.order {
		snap.Elements = append(snap.Elements, copyElement(d.elements[id]))
	}
	for _, state := range d.sections {
		snap.Sections = append(snap.Sections, copySection(state))
	}
	d.mu.RUnlock()
	return json.Marshal(snap)
}

// FromJSON decodes a flat JSON object of element ids to values. A value may be
// a string, a number, a bool (radio options) or an array of strings.
func FromJSON(form model.FormModel, raw []byte) (*Document, error) {
	var payload map[string]any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&payload); err != nil {
		return nil, fmt.Errorf("document: decode values: %w", err)
	}
	values := make(url.Values, len(payload))
	for key, value := range payload {
		switch v := value.(type) {
		case nil:
		case string:
			values.Set(key, v)
		case bool:
			if v {
				values.Set(key, "true")
			}
		case json.Number:
			values.Set(key, v.String())
		case []any:
			for _, item := range v {
				switch it := item.(type) {
				case nil:
				case string:
					values.Add(key, it)
				case json.Number:
					values.Add(key, it.String())
				default:
					values.Add(key, fmt.Sprint(it))
				}
			}
		default:
			return nil, fmt.Errorf("document: unsupported value for %q", key)
		}
	}
	return FromValues(form, values)
}
