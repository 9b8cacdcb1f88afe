// Package marshal maps logical payload keys of a form to accessors that read
// values out of a document and write record values back into it. The read side
// builds submission bodies; the write side populates a form when editing.
package marshal

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/goliatone/go-crmpanel/pkg/document"
	"github.com/goliatone/go-crmpanel/pkg/model"
	"github.com/goliatone/go-crmpanel/pkg/rows"
)

// Payload keys added to every submission.
const (
	KeyTypes    = "types"
	KeyPersonID = "person_id"
)

// Object is an ordered JSON object.
type Object = orderedmap.OrderedMap[string, any]

func newObject() *Object {
	return orderedmap.New[string, any]()
}

// Accessor reads and writes one payload key.
type Accessor struct {
	Get func(doc *document.Document) any
	Set func(ctx context.Context, doc *document.Document, value any) error
}

// Marshaller holds the accessors of one form.
type Marshaller struct {
	form      model.FormModel
	cloner    *rows.Cloner
	keys      []string
	accessors map[string]Accessor
}

// New builds accessors for every field and section of the form. The cloner
// synthesises section rows while populating; a nil cloner uses defaults.
func New(form model.FormModel, cloner *rows.Cloner) *Marshaller {
	if cloner == nil {
		cloner = rows.NewCloner()
	}
	m := &Marshaller{
		form:      form,
		cloner:    cloner,
		accessors: make(map[string]Accessor),
	}
	for _, field := range form.Fields {
		m.add(field.PayloadKey(), fieldAccessor(field))
	}
	for _, section := range form.Sections {
		m.add(section.PayloadKey(), m.sectionAccessor(section))
	}
	return m
}

func (m *Marshaller) add(key string, acc Accessor) {
	if _, exists := m.accessors[key]; !exists {
		m.keys = append(m.keys, key)
	}
	m.accessors[key] = acc
}

// Keys lists payload keys in declaration order.
func (m *Marshaller) Keys() []string {
	return append([]string(nil), m.keys...)
}

// Accessor returns the accessor for a payload key.
func (m *Marshaller) Accessor(key string) (Accessor, bool) {
	acc, ok := m.accessors[key]
	return acc, ok
}

// Payload builds the submission body. Falsy values are skipped; the form tag
// is sent as types and personID, when set, as person_id.
func (m *Marshaller) Payload(doc *document.Document, personID string) *Object {
	out := newObject()
	for _, key := range m.keys {
		value := m.accessors[key].Get(doc)
		if falsy(value) {
			continue
		}
		out.Set(key, value)
	}
	if tag := strings.TrimSpace(m.form.Tag); tag != "" {
		out.Set(KeyTypes, []string{tag})
	}
	if personID = strings.TrimSpace(personID); personID != "" {
		out.Set(KeyPersonID, personID)
	}
	return out
}

// Populate drives every accessor whose key is present in the record.
func (m *Marshaller) Populate(ctx context.Context, doc *document.Document, record map[string]any) error {
	for _, key := range m.keys {
		value, ok := record[key]
		if !ok || value == nil {
			continue
		}
		if err := m.accessors[key].Set(ctx, doc, value); err != nil {
			return fmt.Errorf("marshal: populate %s: %w", key, err)
		}
	}
	return nil
}

func fieldAccessor(field model.Field) Accessor {
	return Accessor{
		Get: func(doc *document.Document) any {
			return field.Read(doc, field.ID)
		},
		Set: func(_ context.Context, doc *document.Document, value any) error {
			return writeField(doc, field, field.ID, value)
		},
	}
}

func (m *Marshaller) sectionAccessor(section model.Section) Accessor {
	return Accessor{
		Get: func(doc *document.Document) any {
			var out []*Object
			for _, row := range doc.Rows(section.ID) {
				obj := newObject()
				for _, id := range row.Fields {
					field, ok := section.TemplateField(id)
					if !ok {
						continue
					}
					value := field.Read(doc, id)
					if falsy(value) {
						continue
					}
					obj.Set(field.PayloadKey(), value)
				}
				if obj.Len() > 0 {
					out = append(out, obj)
				}
			}
			return out
		},
		Set: func(ctx context.Context, doc *document.Document, value any) error {
			items, ok := value.([]any)
			if !ok {
				return fmt.Errorf("expected a list, got %T", value)
			}
			current, err := m.cloner.Ensure(ctx, doc, section.ID, len(items))
			if err != nil {
				return err
			}
			for idx, item := range items {
				obj, ok := item.(map[string]any)
				if !ok {
					return fmt.Errorf("row %d: expected an object, got %T", idx, item)
				}
				for _, id := range current[idx].Fields {
					field, ok := section.TemplateField(id)
					if !ok {
						continue
					}
					v, present := obj[field.PayloadKey()]
					if !present || v == nil {
						continue
					}
					if err := writeField(doc, field, id, v); err != nil {
						return fmt.Errorf("row %d: %w", idx, err)
					}
				}
			}
			return nil
		},
	}
}

func writeField(doc *document.Document, field model.Field, id string, value any) error {
	switch field.Kind {
	case model.KindRadio:
		s := scalar(value)
		if s == "" {
			return nil
		}
		return doc.CheckData(field.ID, s)
	case model.KindMultiSelect:
		return doc.SetValues(id, list(value)...)
	default:
		return doc.Set(id, scalar(value))
	}
}

// scalar renders a JSON scalar as a string. Objects contribute their id.
func scalar(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case json.Number:
		return v.String()
	case bool:
		return strconv.FormatBool(v)
	case map[string]any:
		return scalar(v["id"])
	default:
		return fmt.Sprint(v)
	}
}

func list(value any) []string {
	switch v := value.(type) {
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s := scalar(item); s != "" {
				out = append(out, s)
			}
		}
		return out
	case []string:
		return append([]string(nil), v...)
	default:
		if s := scalar(v); s != "" {
			return []string{s}
		}
		return nil
	}
}

func falsy(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return v == ""
	case bool:
		return !v
	case int:
		return v == 0
	case float64:
		return v == 0
	case []string:
		return len(v) == 0
	case []*Object:
		return len(v) == 0
	case []any:
		return len(v) == 0
	}
	return false
}
