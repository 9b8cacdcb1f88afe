// Package rows adds and removes rows of repeatable form sections. New rows are
// cloned from the section's hidden template with fresh element ids; fields
// backed by a catalog picker have their options loaded concurrently.
package rows

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/goliatone/go-crmpanel/pkg/catalog"
	"github.com/goliatone/go-crmpanel/pkg/document"
	"github.com/goliatone/go-crmpanel/pkg/model"
	"github.com/goliatone/go-crmpanel/pkg/notify"
	"github.com/goliatone/go-crmpanel/pkg/widgets"
)

// ErrLastRow is returned when deleting would leave a section below its floor.
var ErrLastRow = errors.New("rows: cannot delete the last row")

// Toast raised when a delete is refused.
const (
	DeleteRefusedHeading = "امکان حذف وجود ندارد"
	DeleteRefusedText    = "حداقل یک شماره تماس باید برای فرد در سیستم ثبت شود"
)

// IDGenerator yields unique numeric row suffixes.
type IDGenerator interface {
	Next() string
}

// ClockIDs produces strictly increasing ids seeded from the clock in
// milliseconds. Two calls within the same millisecond still differ.
type ClockIDs struct {
	mu   sync.Mutex
	now  func() time.Time
	last int64
}

// NewClockIDs builds a generator over the supplied clock (time.Now when nil).
func NewClockIDs(now func() time.Time) *ClockIDs {
	if now == nil {
		now = time.Now
	}
	return &ClockIDs{now: now}
}

// Next returns the next id.
func (g *ClockIDs) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	id := g.now().UnixMilli()
	if id <= g.last {
		id = g.last + 1
	}
	g.last = id
	return strconv.FormatInt(id, 10)
}

// PickerBinding records the options attached to a cloned picker field.
type PickerBinding struct {
	ElementID string         `json:"elementId"`
	Term      string         `json:"term"`
	Options   []model.Option `json:"options,omitempty"`
	// Fallback is set when the catalog fetch failed and the field stayed a
	// plain select.
	Fallback bool `json:"fallback,omitempty"`
}

// Added is the result of a successful Add.
type Added struct {
	Section string          `json:"section"`
	Row     document.Row    `json:"row"`
	Pickers []PickerBinding `json:"pickers,omitempty"`
}

// Option configures a Cloner.
type Option func(*Cloner)

// WithIDs overrides the id generator.
func WithIDs(ids IDGenerator) Option {
	return func(c *Cloner) {
		if ids != nil {
			c.ids = ids
		}
	}
}

// WithCatalog sets the catalog pickers are loaded from.
func WithCatalog(src catalog.Source) Option {
	return func(c *Cloner) { c.catalog = src }
}

// WithNotifier routes refusal toasts.
func WithNotifier(n notify.Notifier) Option {
	return func(c *Cloner) {
		if n != nil {
			c.notifier = n
		}
	}
}

// WithLogger sets the logger used for failed picker loads.
func WithLogger(l logrus.FieldLogger) Option {
	return func(c *Cloner) {
		if l != nil {
			c.logger = l
		}
	}
}

// Cloner adds and removes section rows.
type Cloner struct {
	ids      IDGenerator
	catalog  catalog.Source
	notifier notify.Notifier
	logger   logrus.FieldLogger
}

// NewCloner constructs a cloner.
func NewCloner(opts ...Option) *Cloner {
	discard := logrus.New()
	discard.SetOutput(io.Discard)
	c := &Cloner{
		ids:      NewClockIDs(nil),
		notifier: notify.Discard,
		logger:   discard,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Add clones the template row of the section, appends it after the existing
// rows and loads options for every picker field of the new row. A failed
// picker load is logged and leaves that field without options.
func (c *Cloner) Add(ctx context.Context, doc *document.Document, sectionID string) (Added, error) {
	row, err := doc.AppendRow(sectionID, c.ids.Next())
	if err != nil {
		return Added{}, fmt.Errorf("rows: add to %s: %w", sectionID, err)
	}
	added := Added{Section: sectionID, Row: row}

	pickers := doc.Form().Pickers()
	var candidates []PickerBinding
	for _, id := range row.Fields {
		if term, ok := pickers[model.CleanID(id)]; ok {
			candidates = append(candidates, PickerBinding{ElementID: id, Term: term})
		}
	}
	if len(candidates) == 0 {
		return added, nil
	}

	added.Pickers = c.bindPickers(ctx, doc, candidates)
	return added, nil
}

func (c *Cloner) bindPickers(ctx context.Context, doc *document.Document, candidates []PickerBinding) []PickerBinding {
	if c.catalog == nil {
		for i := range candidates {
			candidates[i].Fallback = true
		}
		return candidates
	}

	g, gctx := errgroup.WithContext(ctx)
	for i := range candidates {
		binding := &candidates[i]
		g.Go(func() error {
			options, err := c.catalog.Lookup(gctx, binding.Term)
			if err != nil {
				c.logger.WithError(err).WithFields(logrus.Fields{
					"element": binding.ElementID,
					"term":    binding.Term,
				}).Error("rows: failed to load picker options")
				binding.Fallback = true
				return nil
			}
			binding.Options = catalog.ToModel(options)
			return doc.SetOptions(binding.ElementID, widgets.WidgetPicker, binding.Options)
		})
	}
	if err := g.Wait(); err != nil {
		c.logger.WithError(err).Error("rows: failed to attach picker options")
	}
	return candidates
}

// Delete removes a row unless the section would drop below its floor, in which
// case the row stays, an error toast is raised and ErrLastRow is returned.
func (c *Cloner) Delete(doc *document.Document, sectionID, rowID string) error {
	section, ok := doc.Form().Section(sectionID)
	if !ok {
		return fmt.Errorf("rows: delete from %s: %w", sectionID, document.ErrUnknownSection)
	}
	current := doc.Rows(sectionID)
	found := false
	for _, row := range current {
		if row.ID == rowID {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("rows: delete from %s: %w: %s", sectionID, document.ErrUnknownRow, rowID)
	}
	if len(current) <= section.Floor() {
		c.notifier.Notify(notify.Error(DeleteRefusedHeading, DeleteRefusedText))
		return ErrLastRow
	}
	if err := doc.RemoveRow(sectionID, rowID); err != nil {
		return fmt.Errorf("rows: delete from %s: %w", sectionID, err)
	}
	return nil
}

// Ensure appends rows until the section holds at least n visible rows.
func (c *Cloner) Ensure(ctx context.Context, doc *document.Document, sectionID string, n int) ([]document.Row, error) {
	for len(doc.Rows(sectionID)) < n {
		if _, err := c.Add(ctx, doc, sectionID); err != nil {
			return nil, err
		}
	}
	return doc.Rows(sectionID), nil
}
