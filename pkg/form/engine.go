package form

import (
	"io"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/goliatone/go-crmpanel/pkg/document"
	"github.com/goliatone/go-crmpanel/pkg/model"
	"github.com/goliatone/go-crmpanel/pkg/notify"
	"github.com/goliatone/go-crmpanel/pkg/validation"
)

// Aggregate toast raised once per failed validation.
const (
	InvalidHeading = "اشکال در اطلاعات فرم"
	InvalidText    = "موارد ذکر شده در فرم را اصلاح کنید"
)

// Translator resolves message ids for a locale.
type Translator interface {
	Translate(locale, key string, args ...any) (string, error)
}

// Result is the outcome of validating one document. Errors holds an entry for
// every element that was checked; passing elements map to an empty slice.
type Result struct {
	Valid  bool                `json:"valid"`
	Errors map[string][]string `json:"errors"`
}

// Failed returns only the elements with at least one message.
func (r Result) Failed() map[string][]string {
	out := make(map[string][]string)
	for id, messages := range r.Errors {
		if len(messages) > 0 {
			out[id] = append([]string(nil), messages...)
		}
	}
	return out
}

// Clear returns an error map resetting every visible element of the document,
// used by callers before they display a new result.
func Clear(doc *document.Document) map[string][]string {
	ids := doc.VisibleIDs()
	out := make(map[string][]string, len(ids))
	for _, id := range ids {
		out[id] = []string{}
	}
	return out
}

// Option configures an Engine.
type Option func(*Engine)

// WithNotifier routes the aggregate failure toast.
func WithNotifier(n notify.Notifier) Option {
	return func(e *Engine) {
		if n != nil {
			e.notifier = n
		}
	}
}

// WithTranslator localises validator messages by message id.
func WithTranslator(t Translator) Option {
	return func(e *Engine) {
		e.translator = t
	}
}

// WithLogger sets the logger used for definition problems.
func WithLogger(l logrus.FieldLogger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// Engine validates documents with validators resolved from a registry.
type Engine struct {
	registry   *validation.Registry
	notifier   notify.Notifier
	translator Translator
	logger     logrus.FieldLogger
}

// NewEngine constructs an engine. A nil registry falls back to the defaults.
func NewEngine(registry *validation.Registry, opts ...Option) *Engine {
	if registry == nil {
		registry = validation.NewDefaultRegistry()
	}
	discard := logrus.New()
	discard.SetOutput(io.Discard)
	e := &Engine{
		registry: registry,
		notifier: notify.Discard,
		logger:   discard,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ValidateOption tunes a single validation run.
type ValidateOption func(*validateConfig)

type validateConfig struct {
	locale   string
	notifier notify.Notifier
}

// WithLocale selects the locale messages are translated to.
func WithLocale(locale string) ValidateOption {
	return func(c *validateConfig) { c.locale = locale }
}

// WithRequestNotifier overrides the engine notifier for one run.
func WithRequestNotifier(n notify.Notifier) ValidateOption {
	return func(c *validateConfig) {
		if n != nil {
			c.notifier = n
		}
	}
}

type check struct {
	id    string
	field model.Field
}

// Validate checks every visible element of the document.
func (e *Engine) Validate(doc *document.Document, opts ...ValidateOption) Result {
	cfg := validateConfig{notifier: e.notifier}
	for _, opt := range opts {
		opt(&cfg)
	}

	result := Result{Valid: true, Errors: make(map[string][]string)}
	required, optional := e.plan(doc)

	for _, c := range required {
		result.Errors[c.id] = []string{}
		if msg, ok := e.runField(c, doc, cfg.locale); !ok {
			result.Errors[c.id] = append(result.Errors[c.id], msg)
			result.Valid = false
		}
	}
	for _, c := range optional {
		result.Errors[c.id] = []string{}
		if c.field.Empty(doc, c.id) {
			continue
		}
		if msg, ok := e.runField(c, doc, cfg.locale); !ok {
			result.Errors[c.id] = append(result.Errors[c.id], msg)
			result.Valid = false
		}
	}

	for _, rule := range doc.Form().Rules {
		anchor := rule.Anchor
		if len(result.Errors[anchor]) > 0 {
			continue
		}
		if _, seen := result.Errors[anchor]; !seen {
			result.Errors[anchor] = []string{}
		}
		inputs := e.ruleInputs(doc, rule)
		for _, name := range rule.Validators {
			fn, err := e.registry.GetCross(name)
			if err != nil {
				e.logger.WithField("rule", anchor).WithError(err).Warn("form: skipping unknown cross validator")
				continue
			}
			res := fn(inputs)
			if !res.Valid {
				result.Errors[anchor] = append(result.Errors[anchor], e.message(cfg.locale, res))
				result.Valid = false
				break
			}
		}
	}

	if !result.Valid {
		cfg.notifier.Notify(notify.Error(InvalidHeading, InvalidText))
	}
	return result
}

// plan resolves the element ids to check. Cloned row elements inherit the
// validators of their template field.
func (e *Engine) plan(doc *document.Document) (required, optional []check) {
	form := doc.Form()
	add := func(c check) {
		if c.field.Required {
			required = append(required, c)
			return
		}
		optional = append(optional, c)
	}
	for _, field := range form.Fields {
		add(check{id: field.ID, field: field})
	}
	for _, section := range form.Sections {
		for _, row := range doc.Rows(section.ID) {
			for _, id := range row.Fields {
				if field, ok := section.TemplateField(id); ok {
					add(check{id: id, field: field})
				}
			}
		}
	}
	return required, optional
}

func (e *Engine) runField(c check, doc *document.Document, locale string) (string, bool) {
	value := c.field.ReadString(doc, c.id)
	for _, name := range c.field.Validators {
		fn, err := e.registry.Get(name)
		if err != nil {
			e.logger.WithField("field", c.id).WithError(err).Warn("form: skipping unknown validator")
			continue
		}
		if res := fn(value); !res.Valid {
			return e.message(locale, res), false
		}
	}
	return "", true
}

func (e *Engine) ruleInputs(doc *document.Document, rule model.Rule) [][]string {
	keys := rule.Inputs
	if len(keys) == 0 {
		keys = []string{rule.Anchor}
	}
	inputs := make([][]string, 0, len(keys))
	for _, key := range keys {
		inputs = append(inputs, doc.Collect(key))
	}
	return inputs
}

func (e *Engine) message(locale string, res validation.Result) string {
	if e.translator == nil || strings.TrimSpace(res.MessageID) == "" {
		return res.Message
	}
	translated, err := e.translator.Translate(locale, res.MessageID)
	if err != nil || strings.TrimSpace(translated) == "" {
		return res.Message
	}
	return translated
}
