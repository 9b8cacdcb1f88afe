package widgets

import (
	"sort"
	"strings"
	"sync"

	"github.com/goliatone/go-crmpanel/pkg/model"
)

// Built-in widget identifiers exposed by the registry.
const (
	WidgetText        = "text"
	WidgetRadio       = "radio"
	WidgetSelect      = "select"
	WidgetMultiSelect = "multiselect"
	WidgetPicker      = "picker"
	WidgetDatePicker  = "date-picker"
)

// Matcher decides whether a widget should handle the supplied field.
type Matcher func(field model.Field) bool

type rule struct {
	name     string
	priority int
	match    Matcher
	order    int
}

// Registry selects widgets for fields based on an explicit override or
// registered matchers. Higher priority wins; ties fall back to registration
// order. An empty registry never resolves a widget.
type Registry struct {
	mu    sync.RWMutex
	rules []rule
}

// NewRegistry constructs a registry with the built-in matchers registered.
func NewRegistry() *Registry {
	reg := &Registry{}
	reg.registerBuiltins()
	return reg
}

// Register adds a widget matcher with the provided name and priority.
// Callers should avoid duplicate names.
func (r *Registry) Register(name string, priority int, matcher Matcher) {
	if r == nil || matcher == nil {
		return
	}
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	r.rules = append(r.rules, rule{
		name:     trimmed,
		priority: priority,
		match:    matcher,
		order:    len(r.rules),
	})
}

// Resolve returns the widget name for a field. An explicit Widget on the field
// is honoured before matcher evaluation.
func (r *Registry) Resolve(field model.Field) (string, bool) {
	if explicit := strings.TrimSpace(field.Widget); explicit != "" {
		return explicit, true
	}
	if r == nil {
		return "", false
	}
	r.mu.RLock()
	if len(r.rules) == 0 {
		r.mu.RUnlock()
		return "", false
	}
	rules := append([]rule(nil), r.rules...)
	r.mu.RUnlock()
	sort.SliceStable(rules, func(i, j int) bool {
		if rules[i].priority == rules[j].priority {
			return rules[i].order < rules[j].order
		}
		return rules[i].priority > rules[j].priority
	})
	for _, entry := range rules {
		if entry.match(field) {
			return entry.name, true
		}
	}
	return "", false
}

// Binding is the resolved widget for a field.
type Binding struct {
	FieldID string        `json:"fieldId"`
	Widget  string        `json:"widget"`
	Term    string        `json:"term,omitempty"`
	Picker  *PickerConfig `json:"picker,omitempty"`
	Date    *DateConfig   `json:"date,omitempty"`
}

// Bindings resolves every top-level and template field of the form.
func (r *Registry) Bindings(form model.FormModel) []Binding {
	var out []Binding
	bind := func(field model.Field) {
		widget, ok := r.Resolve(field)
		if !ok {
			return
		}
		b := Binding{FieldID: field.ID, Widget: widget, Term: strings.TrimSpace(field.Picker)}
		switch widget {
		case WidgetPicker, WidgetSelect, WidgetMultiSelect:
			cfg := DefaultPicker()
			cfg.Multiple = field.Kind == model.KindMultiSelect
			b.Picker = &cfg
		case WidgetDatePicker:
			cfg := DefaultDate()
			b.Date = &cfg
		}
		out = append(out, b)
	}
	for _, field := range form.Fields {
		bind(field)
	}
	for _, section := range form.Sections {
		for _, field := range section.Template {
			bind(field)
		}
	}
	return out
}

func (r *Registry) registerBuiltins() {
	r.Register(WidgetPicker, 90, func(field model.Field) bool {
		return strings.TrimSpace(field.Picker) != ""
	})

	r.Register(WidgetDatePicker, 80, func(field model.Field) bool {
		return field.Kind == model.KindDate
	})

	r.Register(WidgetMultiSelect, 70, func(field model.Field) bool {
		return field.Kind == model.KindMultiSelect
	})

	r.Register(WidgetSelect, 60, func(field model.Field) bool {
		return field.Kind == model.KindSelect
	})

	r.Register(WidgetRadio, 50, func(field model.Field) bool {
		return field.Kind == model.KindRadio
	})

	r.Register(WidgetText, 0, func(model.Field) bool {
		return true
	})
}
