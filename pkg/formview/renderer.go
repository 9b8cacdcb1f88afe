package formview

import (
	"embed"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/goliatone/go-crmpanel/pkg/document"
	"github.com/goliatone/go-crmpanel/pkg/model"
	"github.com/goliatone/go-crmpanel/pkg/render/template"
	"github.com/goliatone/go-crmpanel/pkg/render/template/pongo"
	"github.com/goliatone/go-crmpanel/pkg/widgets"
)

//go:embed templates/*.html
var templatesFS embed.FS

// Templates exposes the embedded form templates.
func Templates() fs.FS {
	sub, err := fs.Sub(templatesFS, "templates")
	if err != nil {
		return templatesFS
	}
	return sub
}

const templateName = "form"

// Input state classes toggled by validation.
const (
	ClassNormal = "form-input-normal-color"
	ClassError  = "form-input-error-color"
)

// DefaultBasePath is the route prefix of the form endpoints.
const DefaultBasePath = "/panel/forms"

// Labels are the button captions of a rendered form.
type Labels struct {
	Submit    string `json:"submit"`
	Validate  string `json:"validate"`
	DeleteRow string `json:"delete_row"`
}

// DefaultLabels returns the Persian captions.
func DefaultLabels() Labels {
	return Labels{Submit: "ثبت", Validate: "بررسی", DeleteRow: "حذف"}
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithTemplateRenderer swaps the template engine. The engine must resolve the
// "form" template.
func WithTemplateRenderer(engine template.TemplateRenderer) Option {
	return func(r *Renderer) {
		if engine != nil {
			r.engine = engine
		}
	}
}

// WithWidgets sets the registry used to pick each input's widget.
func WithWidgets(reg *widgets.Registry) Option {
	return func(r *Renderer) {
		if reg != nil {
			r.widgets = reg
		}
	}
}

// WithBasePath overrides the prefix of the hx-* endpoints.
func WithBasePath(path string) Option {
	return func(r *Renderer) {
		if path = strings.TrimRight(strings.TrimSpace(path), "/"); path != "" {
			r.base = path
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(r *Renderer) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// Renderer turns a form definition and its document into HTML fragments:
// the whole form, or a single repeatable section after a row change.
type Renderer struct {
	engine  template.TemplateRenderer
	widgets *widgets.Registry
	base    string
	logger  logrus.FieldLogger
}

// New builds a Renderer backed by the embedded templates unless another
// engine is supplied.
func New(opts ...Option) (*Renderer, error) {
	discard := logrus.New()
	discard.SetOutput(io.Discard)

	r := &Renderer{
		widgets: widgets.NewRegistry(),
		base:    DefaultBasePath,
		logger:  discard,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	if r.engine == nil {
		engine, err := pongo.New(pongo.WithFS(Templates()))
		if err != nil {
			return nil, fmt.Errorf("formview: template engine: %w", err)
		}
		r.engine = engine
	}
	return r, nil
}

// RenderOption adjusts a single render.
type RenderOption func(*renderState)

type renderState struct {
	errors     map[string][]string
	formErrors []string
	labels     Labels
	personID   string
}

// WithErrors fills the error slot of each element id with its first message.
func WithErrors(fields map[string][]string) RenderOption {
	return func(s *renderState) {
		s.errors = fields
	}
}

// WithFormErrors lists messages not bound to an element.
func WithFormErrors(messages []string) RenderOption {
	return func(s *renderState) {
		s.formErrors = messages
	}
}

// WithLabels overrides the button captions, typically with localized ones.
func WithLabels(labels Labels) RenderOption {
	return func(s *renderState) {
		defaults := DefaultLabels()
		if labels.Submit == "" {
			labels.Submit = defaults.Submit
		}
		if labels.Validate == "" {
			labels.Validate = defaults.Validate
		}
		if labels.DeleteRow == "" {
			labels.DeleteRow = defaults.DeleteRow
		}
		s.labels = labels
	}
}

// WithPersonID carries the person a submission is attached to.
func WithPersonID(id string) RenderOption {
	return func(s *renderState) {
		s.personID = strings.TrimSpace(id)
	}
}

// Form renders the complete form. form supplies labels (it may be localized)
// and doc the element state; ids must agree.
func (r *Renderer) Form(form model.FormModel, doc *document.Document, opts ...RenderOption) (string, error) {
	state := r.state(opts)
	v := formView{
		ID:          form.ID,
		Title:       form.Title,
		SubmitURL:   r.url(form.ID, "submit", state.personID),
		ValidateURL: r.url(form.ID, "validate", ""),
		FormErrors:  state.formErrors,
		Labels:      state.labels,
	}
	for _, field := range form.Fields {
		v.Fields = append(v.Fields, r.field(field, field.ID, doc, state, false, false))
	}
	for _, section := range form.Sections {
		sv, err := r.section(form, section, doc, state)
		if err != nil {
			return "", err
		}
		v.Sections = append(v.Sections, sv)
	}
	return r.render(v, form.ID)
}

// Section renders one repeatable section with its visible rows, its hidden
// template row and the add button.
func (r *Renderer) Section(form model.FormModel, doc *document.Document, sectionID string, opts ...RenderOption) (string, error) {
	section, ok := form.Section(sectionID)
	if !ok {
		return "", fmt.Errorf("%w: %s", document.ErrUnknownSection, sectionID)
	}
	state := r.state(opts)
	sv, err := r.section(form, section, doc, state)
	if err != nil {
		return "", err
	}
	return r.render(formView{ID: form.ID, Labels: state.labels, Section: &sv}, form.ID)
}

func (r *Renderer) state(opts []RenderOption) renderState {
	state := renderState{labels: DefaultLabels()}
	for _, opt := range opts {
		if opt != nil {
			opt(&state)
		}
	}
	return state
}

func (r *Renderer) render(v formView, formID string) (string, error) {
	html, err := r.engine.RenderTemplate(templateName, v)
	if err != nil {
		return "", fmt.Errorf("formview: render %s: %w", formID, err)
	}
	r.logger.WithFields(logrus.Fields{
		"form":     formID,
		"fields":   len(v.Fields),
		"sections": len(v.Sections),
	}).Debug("form rendered")
	return html, nil
}

func (r *Renderer) section(form model.FormModel, section model.Section, doc *document.Document, state renderState) (sectionView, error) {
	st, ok := doc.Section(section.ID)
	if !ok {
		return sectionView{}, fmt.Errorf("%w: %s", document.ErrUnknownSection, section.ID)
	}
	sv := sectionView{
		ID:       section.ID,
		Title:    section.Title,
		AddLabel: section.AddLabel,
		AddURL:   r.url(form.ID, "sections/"+url.PathEscape(section.ID)+"/rows", ""),
		Template: r.row(form, section, st.Template, doc, state),
	}
	if sv.AddLabel == "" {
		sv.AddLabel = "+"
	}
	for _, row := range st.Rows {
		sv.Rows = append(sv.Rows, r.row(form, section, row, doc, state))
	}
	return sv, nil
}

func (r *Renderer) row(form model.FormModel, section model.Section, row document.Row, doc *document.Document, state renderState) rowView {
	rv := rowView{ID: row.ID, Suffix: row.Suffix, Hidden: row.Hidden}
	if !row.Hidden {
		rv.DeleteURL = r.url(form.ID, "sections/"+url.PathEscape(section.ID)+"/rows/"+url.PathEscape(row.ID), "")
	}
	for _, id := range row.Fields {
		field, ok := section.TemplateField(id)
		if !ok {
			continue
		}
		rv.Fields = append(rv.Fields, r.field(field, id, doc, state, row.Hidden, !row.Hidden))
	}
	return rv
}

func (r *Renderer) field(field model.Field, id string, doc *document.Document, state renderState, hidden, dynamic bool) fieldView {
	fv := fieldView{
		ID:          id,
		Key:         field.PayloadKey(),
		Kind:        string(field.Kind),
		Label:       field.Label,
		Placeholder: field.Placeholder,
		Required:    field.Required,
		Term:        strings.TrimSpace(field.Picker),
		Disabled:    hidden,
		Dynamic:     dynamic,
		StateClass:  ClassNormal,
	}
	if widget, ok := r.widgets.Resolve(field); ok {
		fv.Widget = widget
	}

	el, _ := doc.Element(id)
	options := field.Options
	if el.Widget != "" {
		// options bound at runtime from the catalog
		fv.Widget = el.Widget
		options = el.Options
	}

	switch field.Kind {
	case model.KindRadio:
		for _, opt := range field.Options {
			fv.Options = append(fv.Options, optionView{
				ID:       opt.ID,
				Label:    opt.Label,
				Value:    optionValue(opt),
				Selected: doc.Checked(opt.ID),
			})
		}
	case model.KindSelect, model.KindMultiSelect:
		fv.Options = selectOptions(options, doc.Values(id))
	default:
		fv.Value = doc.Value(id)
	}

	if msgs := errorsFor(state.errors, field, id); len(msgs) > 0 {
		fv.Error = msgs[0]
		fv.StateClass = ClassError
	}
	return fv
}

func (r *Renderer) url(formID, action, personID string) string {
	u := r.base + "/" + url.PathEscape(formID) + "/" + action
	if personID != "" {
		u += "?" + url.Values{"person_id": {personID}}.Encode()
	}
	return u
}

func optionValue(opt model.Option) string {
	if opt.Data != "" {
		return opt.Data
	}
	return opt.ID
}

// selectOptions marks chosen options; chosen values without a matching option
// are kept so a populated record survives before its catalog loads.
func selectOptions(options []model.Option, chosen []string) []optionView {
	picked := make(map[string]bool, len(chosen))
	for _, v := range chosen {
		picked[v] = true
	}
	out := make([]optionView, 0, len(options)+len(chosen))
	for _, opt := range options {
		value := optionValue(opt)
		out = append(out, optionView{ID: opt.ID, Label: opt.Label, Value: value, Selected: picked[value]})
		delete(picked, value)
	}
	for _, v := range chosen {
		if picked[v] {
			out = append(out, optionView{Label: v, Value: v, Selected: true})
			delete(picked, v)
		}
	}
	return out
}

// errorsFor collects messages reported on the element or, for radio groups,
// on any of its options.
func errorsFor(all map[string][]string, field model.Field, id string) []string {
	msgs := append([]string(nil), all[id]...)
	if field.Kind == model.KindRadio {
		for _, opt := range field.Options {
			msgs = append(msgs, all[opt.ID]...)
		}
	}
	return msgs
}

type formView struct {
	ID          string        `json:"id"`
	Title       string        `json:"title"`
	SubmitURL   string        `json:"submit_url"`
	ValidateURL string        `json:"validate_url"`
	FormErrors  []string      `json:"form_errors"`
	Labels      Labels        `json:"labels"`
	Fields      []fieldView   `json:"fields"`
	Sections    []sectionView `json:"sections"`
	Section     *sectionView  `json:"section"`
}

type sectionView struct {
	ID       string    `json:"id"`
	Title    string    `json:"title"`
	AddLabel string    `json:"add_label"`
	AddURL   string    `json:"add_url"`
	Rows     []rowView `json:"rows"`
	Template rowView   `json:"template"`
}

type rowView struct {
	ID        string      `json:"id"`
	Suffix    string      `json:"suffix"`
	Hidden    bool        `json:"hidden"`
	DeleteURL string      `json:"delete_url"`
	Fields    []fieldView `json:"fields"`
}

type fieldView struct {
	ID          string       `json:"id"`
	Key         string       `json:"key"`
	Kind        string       `json:"kind"`
	Label       string       `json:"label"`
	Placeholder string       `json:"placeholder"`
	Required    bool         `json:"required"`
	Widget      string       `json:"widget"`
	Term        string       `json:"term"`
	Value       string       `json:"value"`
	Options     []optionView `json:"options"`
	Error       string       `json:"error"`
	StateClass  string       `json:"state_class"`
	Disabled    bool         `json:"disabled"`
	Dynamic     bool         `json:"dynamic"`
}

type optionView struct {
	ID       string `json:"id"`
	Label    string `json:"label"`
	Value    string `json:"value"`
	Selected bool   `json:"selected"`
}
