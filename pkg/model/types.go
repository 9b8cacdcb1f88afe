package model

import "strings"

// FieldKind enumerates the supported input kinds.
type FieldKind string

const (
	KindText        FieldKind = "text"
	KindDate        FieldKind = "date"
	KindRadio       FieldKind = "radio"
	KindSelect      FieldKind = "select"
	KindMultiSelect FieldKind = "multiselect"
)

// Valid reports whether the kind is one of the known kinds.
func (k FieldKind) Valid() bool {
	switch k {
	case KindText, KindDate, KindRadio, KindSelect, KindMultiSelect:
		return true
	}
	return false
}

// MultiValued reports whether the kind carries a list of values.
func (k FieldKind) MultiValued() bool {
	return k == KindMultiSelect
}

// Option is a selectable choice. For radio groups ID is the element id of the
// option and Data the value submitted when it is checked.
type Option struct {
	ID    string `json:"id" yaml:"id" validate:"required"`
	Label string `json:"label,omitempty" yaml:"label"`
	Data  string `json:"data,omitempty" yaml:"data"`
}

// Field describes one input element.
type Field struct {
	ID          string    `json:"id" yaml:"id" validate:"required"`
	Key         string    `json:"key,omitempty" yaml:"key"`
	Kind        FieldKind `json:"kind" yaml:"kind"`
	Label       string    `json:"label,omitempty" yaml:"label"`
	Placeholder string    `json:"placeholder,omitempty" yaml:"placeholder"`
	Required    bool      `json:"required,omitempty" yaml:"required"`
	Validators  []string  `json:"validators,omitempty" yaml:"validators"`
	Options     []Option  `json:"options,omitempty" yaml:"options" validate:"dive"`
	// Picker names the catalog term a rich picker loads its options from.
	Picker string `json:"picker,omitempty" yaml:"picker"`
	// Widget overrides the resolved widget.
	Widget string `json:"widget,omitempty" yaml:"widget"`
}

// PayloadKey returns the logical payload key, defaulting to the de-suffixed id.
func (f Field) PayloadKey() string {
	if key := strings.TrimSpace(f.Key); key != "" {
		return key
	}
	return CleanID(f.ID)
}

// OptionIDs lists the element ids of every option.
func (f Field) OptionIDs() []string {
	ids := make([]string, 0, len(f.Options))
	for _, opt := range f.Options {
		ids = append(ids, opt.ID)
	}
	return ids
}

// Section is a repeatable group of fields.
type Section struct {
	ID       string  `json:"id" yaml:"id" validate:"required"`
	Key      string  `json:"key,omitempty" yaml:"key"`
	Title    string  `json:"title,omitempty" yaml:"title"`
	AddLabel string  `json:"addLabel,omitempty" yaml:"addLabel"`
	MinRows  int     `json:"minRows,omitempty" yaml:"minRows" validate:"gte=0"`
	Template []Field `json:"template" yaml:"template" validate:"required,min=1,dive"`
}

// PayloadKey returns the array key used in submissions.
func (s Section) PayloadKey() string {
	if key := strings.TrimSpace(s.Key); key != "" {
		return key
	}
	return s.ID
}

// Floor is the minimum number of visible rows; a section never drops below one.
func (s Section) Floor() int {
	if s.MinRows < 1 {
		return 1
	}
	return s.MinRows
}

// TemplateField returns the template field whose cleaned id matches key.
func (s Section) TemplateField(key string) (Field, bool) {
	key = CleanID(key)
	for _, field := range s.Template {
		if CleanID(field.ID) == key {
			return field, true
		}
	}
	return Field{}, false
}

// Rule binds cross-field validators to an anchor element. Inputs are the
// element or template keys whose values are passed to each validator.
type Rule struct {
	Anchor     string   `json:"anchor" yaml:"anchor" validate:"required"`
	Validators []string `json:"validators" yaml:"validators" validate:"required,min=1"`
	Inputs     []string `json:"inputs,omitempty" yaml:"inputs"`
}

// FormModel is a complete form definition.
type FormModel struct {
	ID             string    `json:"id" yaml:"id" validate:"required"`
	Title          string    `json:"title,omitempty" yaml:"title"`
	Tag            string    `json:"tag,omitempty" yaml:"tag"`
	SubmitEndpoint string    `json:"submitEndpoint,omitempty" yaml:"submitEndpoint"`
	RecordEndpoint string    `json:"recordEndpoint,omitempty" yaml:"recordEndpoint"`
	Fields         []Field   `json:"fields" yaml:"fields" validate:"dive"`
	Sections       []Section `json:"sections,omitempty" yaml:"sections" validate:"dive"`
	Rules          []Rule    `json:"rules,omitempty" yaml:"rules" validate:"dive"`
}

// Field looks up a top-level field by id.
func (f FormModel) Field(id string) (Field, bool) {
	for _, field := range f.Fields {
		if field.ID == id {
			return field, true
		}
	}
	return Field{}, false
}

// Section looks up a section by id.
func (f FormModel) Section(id string) (Section, bool) {
	for _, section := range f.Sections {
		if section.ID == id {
			return section, true
		}
	}
	return Section{}, false
}

// SectionFor returns the section whose template declares the cleaned id.
func (f FormModel) SectionFor(id string) (Section, bool) {
	for _, section := range f.Sections {
		if _, ok := section.TemplateField(id); ok {
			return section, true
		}
	}
	return Section{}, false
}

// Pickers returns the cleaned ids of every field backed by a catalog picker,
// mapped to their catalog term.
func (f FormModel) Pickers() map[string]string {
	out := make(map[string]string)
	add := func(field Field) {
		if term := strings.TrimSpace(field.Picker); term != "" {
			out[CleanID(field.ID)] = term
		}
	}
	for _, field := range f.Fields {
		add(field)
	}
	for _, section := range f.Sections {
		for _, field := range section.Template {
			add(field)
		}
	}
	return out
}

// FieldIDs lists every top-level field id and every radio option id, in
// declaration order.
func (f FormModel) FieldIDs() []string {
	ids := make([]string, 0, len(f.Fields))
	for _, field := range f.Fields {
		ids = append(ids, field.ID)
		if field.Kind == KindRadio {
			ids = append(ids, field.OptionIDs()...)
		}
	}
	return ids
}
