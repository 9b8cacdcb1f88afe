package document

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/goliatone/go-crmpanel/pkg/model"
)

var (
	// ErrUnknownSection is returned when a section id is not part of the form.
	ErrUnknownSection = errors.New("document: unknown section")
	// ErrUnknownRow is returned when a row id is not part of its section.
	ErrUnknownRow = errors.New("document: unknown row")
)

// Element is a single input.
type Element struct {
	ID      string         `json:"id"`
	Values  []string       `json:"values,omitempty"`
	Checked bool           `json:"checked,omitempty"`
	Hidden  bool           `json:"hidden,omitempty"`
	Widget  string         `json:"widget,omitempty"`
	Options []model.Option `json:"options,omitempty"`
}

// Row is one visible (or template) row of a repeatable section.
type Row struct {
	ID     string   `json:"id"`
	Suffix string   `json:"suffix"`
	Fields []string `json:"fields"`
	Hidden bool     `json:"hidden,omitempty"`
}

// SectionState is the runtime state of a repeatable section.
type SectionState struct {
	ID       string `json:"id"`
	Template Row    `json:"template"`
	Rows     []Row  `json:"rows"`
}

// Document holds the element state of one form instance.
type Document struct {
	mu       sync.RWMutex
	form     model.FormModel
	order    []string
	elements map[string]*Element
	sections []*SectionState
}

// New builds an empty document for the form: every top-level field, a hidden
// template row per section and as many visible rows as the section floor.
func New(form model.FormModel) *Document {
	doc := &Document{
		form:     form,
		elements: make(map[string]*Element),
	}
	for _, field := range form.Fields {
		doc.addField(field, false)
	}
	for _, section := range form.Sections {
		state := &SectionState{ID: section.ID}
		state.Template = doc.buildRow(section, model.TemplateSuffix[1:], true)
		doc.sections = append(doc.sections, state)
		for i := 1; i <= section.Floor(); i++ {
			state.Rows = append(state.Rows, doc.buildRow(section, strconv.Itoa(i), false))
		}
	}
	return doc
}

func (d *Document) addField(field model.Field, hidden bool) {
	d.addElement(&Element{ID: field.ID, Hidden: hidden, Options: field.Options})
	if field.Kind == model.KindRadio {
		for _, opt := range field.Options {
			d.addElement(&Element{ID: opt.ID, Hidden: hidden})
		}
	}
}

func (d *Document) addElement(el *Element) {
	if _, exists := d.elements[el.ID]; !exists {
		d.order = append(d.order, el.ID)
	}
	d.elements[el.ID] = el
}

func (d *Document) buildRow(section model.Section, suffix string, hidden bool) Row {
	row := Row{ID: section.ID + "-" + suffix, Suffix: suffix, Hidden: hidden}
	for _, field := range section.Template {
		id := field.ID
		if !hidden {
			id = model.CloneID(field.ID, suffix)
		}
		d.addElement(&Element{ID: id, Hidden: hidden, Options: field.Options})
		row.Fields = append(row.Fields, id)
	}
	return row
}

// Form returns the form definition the document was built from.
func (d *Document) Form() model.FormModel {
	return d.form
}

// FieldFor resolves an element id (top-level or cloned) to its field definition.
func (d *Document) FieldFor(id string) (model.Field, bool) {
	if field, ok := d.form.Field(id); ok {
		return field, true
	}
	if section, ok := d.form.SectionFor(id); ok {
		return section.TemplateField(id)
	}
	return model.Field{}, false
}

// Value returns the first value of an element.
func (d *Document) Value(id string) string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if el, ok := d.elements[id]; ok && len(el.Values) > 0 {
		return el.Values[0]
	}
	return ""
}

// Values returns a copy of every value of an element.
func (d *Document) Values(id string) []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if el, ok := d.elements[id]; ok {
		return append([]string(nil), el.Values...)
	}
	return nil
}

// Checked reports whether a radio option is checked.
func (d *Document) Checked(id string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	el, ok := d.elements[id]
	return ok && el.Checked
}

// Has reports whether the element exists.
func (d *Document) Has(id string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.elements[id]
	return ok
}

// Element returns a copy of the element.
func (d *Document) Element(id string) (Element, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	el, ok := d.elements[id]
	if !ok {
		return Element{}, false
	}
	return copyElement(el), true
}

// Set replaces the value of an existing element.
func (d *Document) Set(id, value string) error {
	return d.SetValues(id, value)
}

// SetValues replaces every value of an existing element.
func (d *Document) SetValues(id string, values ...string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	el, ok := d.elements[id]
	if !ok {
		return fmt.Errorf("document: element %q not found", id)
	}
	el.Values = append([]string(nil), values...)
	return nil
}

// SetOptions attaches options and a widget name to an element.
func (d *Document) SetOptions(id, widget string, options []model.Option) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	el, ok := d.elements[id]
	if !ok {
		return fmt.Errorf("document: element %q not found", id)
	}
	el.Widget = widget
	el.Options = append([]model.Option(nil), options...)
	return nil
}

// Check marks a radio option as checked and clears its siblings.
func (d *Document) Check(optionID string) error {
	group, ok := d.radioGroup(optionID)
	if !ok {
		return fmt.Errorf("document: %q is not a radio option", optionID)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, opt := range group.Options {
		if el, exists := d.elements[opt.ID]; exists {
			el.Checked = opt.ID == optionID
		}
	}
	return nil
}

// CheckData checks the option of a radio group whose data (or id) matches value.
func (d *Document) CheckData(groupID, value string) error {
	field, ok := d.form.Field(groupID)
	if !ok || field.Kind != model.KindRadio {
		return fmt.Errorf("document: %q is not a radio group", groupID)
	}
	for _, opt := range field.Options {
		if opt.Data == value || opt.ID == value {
			return d.Check(opt.ID)
		}
	}
	return fmt.Errorf("document: radio group %q has no option %q", groupID, value)
}

func (d *Document) radioGroup(optionID string) (model.Field, bool) {
	for _, field := range d.form.Fields {
		if field.Kind != model.KindRadio {
			continue
		}
		for _, opt := range field.Options {
			if opt.ID == optionID {
				return field, true
			}
		}
	}
	return model.Field{}, false
}

// IDs lists element ids in insertion order, template rows included.
func (d *Document) IDs() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]string(nil), d.order...)
}

// VisibleIDs lists element ids that are not part of a hidden template row.
func (d *Document) VisibleIDs() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]string, 0, len(d.order))
	for _, id := range d.order {
		if !d.elements[id].Hidden {
			out = append(out, id)
		}
	}
	return out
}

// Section returns a copy of a section's state.
func (d *Document) Section(id string) (SectionState, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, state := range d.sections {
		if state.ID == id {
			return copySection(state), true
		}
	}
	return SectionState{}, false
}

// Sections returns a copy of every section's state.
func (d *Document) Sections() []SectionState {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]SectionState, 0, len(d.sections))
	for _, state := range d.sections {
		out = append(out, copySection(state))
	}
	return out
}

// Rows returns the visible rows of a section.
func (d *Document) Rows(sectionID string) []Row {
	state, ok := d.Section(sectionID)
	if !ok {
		return nil
	}
	return state.Rows
}

// AppendRow clones the section template with the suffix and appends the row
// at the end of the section.
func (d *Document) AppendRow(sectionID, suffix string) (Row, error) {
	section, ok := d.form.Section(sectionID)
	if !ok {
		return Row{}, fmt.Errorf("%w: %s", ErrUnknownSection, sectionID)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	state := d.sectionState(sectionID)
	for _, row := range state.Rows {
		if row.Suffix == suffix {
			return Row{}, fmt.Errorf("document: row suffix %q already used in %s", suffix, sectionID)
		}
	}
	row := d.buildRow(section, suffix, false)
	state.Rows = append(state.Rows, row)
	return copyRow(row), nil
}

// RemoveRow deletes a visible row and its elements. Row floors are enforced by
// the caller.
func (d *Document) RemoveRow(sectionID, rowID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	state := d.sectionState(sectionID)
	if state == nil {
		return fmt.Errorf("%w: %s", ErrUnknownSection, sectionID)
	}
	for idx, row := range state.Rows {
		if row.ID != rowID {
			continue
		}
		state.Rows = append(state.Rows[:idx], state.Rows[idx+1:]...)
		d.dropElements(row.Fields)
		return nil
	}
	return fmt.Errorf("%w: %s", ErrUnknownRow, rowID)
}

// RowOf returns the section and row containing the element id.
func (d *Document) RowOf(elementID string) (string, Row, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, state := range d.sections {
		for _, row := range state.Rows {
			for _, id := range row.Fields {
				if id == elementID {
					return state.ID, copyRow(row), true
				}
			}
		}
	}
	return "", Row{}, false
}

func (d *Document) sectionState(id string) *SectionState {
	for _, state := range d.sections {
		if state.ID == id {
			return state
		}
	}
	return nil
}

func (d *Document) dropElements(ids []string) {
	drop := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
		delete(d.elements, id)
	}
	kept := d.order[:0]
	for _, id := range d.order {
		if _, gone := drop[id]; !gone {
			kept = append(kept, id)
		}
	}
	d.order = kept
}

// Collect gathers the values addressed by key across the document. A key that
// names a top-level field yields that field's values (the checked option's
// data for radio groups); a template key yields the value of every visible
// cloned element in row order.
func (d *Document) Collect(key string) []string {
	if field, ok := d.form.Field(key); ok {
		switch v := field.Read(d, field.ID).(type) {
		case string:
			if v == "" {
				return nil
			}
			return []string{v}
		case []string:
			return v
		}
		return nil
	}
	if d.Has(key) && !model.IsTemplateID(key) {
		if values := d.Values(key); len(values) > 0 {
			return values
		}
		return nil
	}

	section, ok := d.form.SectionFor(key)
	if !ok {
		return nil
	}
	field, _ := section.TemplateField(key)
	clean := model.CleanID(key)
	var out []string
	for _, row := range d.Rows(section.ID) {
		for _, id := range row.Fields {
			if model.CleanID(id) == clean {
				out = append(out, field.ReadString(d, id))
			}
		}
	}
	return out
}

func copyElement(el *Element) Element {
	out := *el
	out.Values = append([]string(nil), el.Values...)
	out.Options = append([]model.Option(nil), el.Options...)
	return out
}

func copyRow(row Row) Row {
	row.Fields = append([]string(nil), row.Fields...)
	return row
}

func copySection(state *SectionState) SectionState {
	out := SectionState{ID: state.ID, Template: copyRow(state.Template)}
	out.Rows = make([]Row, 0, len(state.Rows))
	for _, row := range state.Rows {
		out.Rows = append(out.Rows, copyRow(row))
	}
	return out
}

// sortSuffixes orders row suffixes numerically, falling back to string order.
func sortSuffixes(suffixes []string) {
	sort.SliceStable(suffixes, func(i, j int) bool {
		a, errA := strconv.ParseInt(suffixes[i], 10, 64)
		b, errB := strconv.ParseInt(suffixes[j], 10, 64)
		if errA == nil && errB == nil {
			return a < b
		}
		return strings.Compare(suffixes[i], suffixes[j]) < 0
	})
}
