package preview

import (
	"embed"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"

	theme "github.com/goliatone/go-theme"
	"github.com/sirupsen/logrus"

	"github.com/goliatone/go-crmpanel/pkg/render/template"
	"github.com/goliatone/go-crmpanel/pkg/render/template/pongo"
	"github.com/goliatone/go-crmpanel/pkg/widgets"
)

//go:embed templates/*.html
var templatesFS embed.FS

// Templates exposes the embedded preview templates.
func Templates() fs.FS {
	sub, err := fs.Sub(templatesFS, "templates")
	if err != nil {
		return templatesFS
	}
	return sub
}

const (
	templateName = "preview"
	// DetailsTitle heads the details pane.
	DetailsTitle = "جزییات"
	gridPrefix   = "dt-"
)

// Result is a rendered preview fragment plus the grid ids needing
// initialisation.
type Result struct {
	HTML    string   `json:"html"`
	GridIDs []string `json:"grid_ids"`
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithTemplateRenderer swaps the template engine. The engine must be able to
// resolve the "preview" template.
func WithTemplateRenderer(engine template.TemplateRenderer) Option {
	return func(r *Renderer) {
		if engine != nil {
			r.engine = engine
		}
	}
}

// WithClasses replaces the class tokens.
func WithClasses(classes Classes) Option {
	return func(r *Renderer) {
		r.classes = classes
	}
}

// WithTheme derives class tokens from a theme selection.
func WithTheme(selection *theme.Selection) Option {
	return func(r *Renderer) {
		r.classes = ClassesFromSelection(selection)
	}
}

// WithGridConfig overrides the options handed to the grid initializer.
func WithGridConfig(cfg widgets.GridConfig) Option {
	return func(r *Renderer) {
		r.grid = cfg
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

// Renderer renders preview documents.
type Renderer struct {
	engine  template.TemplateRenderer
	classes Classes
	grid    widgets.GridConfig
	logger  logrus.FieldLogger
}

// New builds a Renderer backed by the embedded templates unless another
// engine is supplied.
func New(opts ...Option) (*Renderer, error) {
	discard := logrus.New()
	discard.SetOutput(io.Discard)

	r := &Renderer{
		classes: DefaultClasses(),
		grid:    widgets.InformTable(),
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
			return nil, fmt.Errorf("preview: template engine: %w", err)
		}
		r.engine = engine
	}
	return r, nil
}

// RenderOption adjusts a single render.
type RenderOption func(*renderState)

type renderState struct {
	selected string
}

// WithSelected marks grid rows whose link equals link as selected. Live
// navigation leaves rows unmarked; the browser marks the clicked row itself
// using the grid's data-selected-class.
func WithSelected(link string) RenderOption {
	return func(s *renderState) {
		s.selected = link
	}
}

// RenderJSON decodes, validates and renders a raw document.
func (r *Renderer) RenderJSON(raw []byte, opts ...RenderOption) (Result, error) {
	doc, err := Decode(raw)
	if err != nil {
		return Result{}, err
	}
	return r.Render(doc, opts...)
}

// Render renders a decoded document.
func (r *Renderer) Render(doc Document, opts ...RenderOption) (Result, error) {
	if err := doc.Validate(); err != nil {
		return Result{}, err
	}
	state := renderState{}
	for _, opt := range opts {
		if opt != nil {
			opt(&state)
		}
	}

	view := r.buildView(doc, state)
	if len(view.GridIDs) > 0 {
		init, err := json.Marshal(gridInit{IDs: view.GridIDs, Options: r.grid})
		if err != nil {
			return Result{}, fmt.Errorf("preview: grid init: %w", err)
		}
		view.Init = string(init)
	}

	html, err := r.engine.RenderTemplate(templateName, view)
	if err != nil {
		return Result{}, fmt.Errorf("preview: render: %w", err)
	}
	r.logger.WithFields(logrus.Fields{
		"details": len(view.Columns[0]) + len(view.Columns[1]),
		"grids":   len(view.Grids),
	}).Debug("preview rendered")

	return Result{HTML: html, GridIDs: view.GridIDs}, nil
}

type gridInit struct {
	IDs     []string           `json:"ids"`
	Options widgets.GridConfig `json:"options"`
}

type view struct {
	Title        string         `json:"title"`
	Icon         string         `json:"icon"`
	Classes      Classes        `json:"classes"`
	DetailsTitle string         `json:"details_title"`
	EmptyText    string         `json:"empty_text"`
	Buttons      []buttonView   `json:"buttons"`
	Columns      [2][]detailRow `json:"columns"`
	Grids        []gridView     `json:"grids"`
	GridIDs      []string       `json:"-"`
	Init         string         `json:"init"`
}

type buttonView struct {
	Title string `json:"title"`
	Link  string `json:"link"`
	Icon  string `json:"icon"`
}

type detailRow struct {
	Title  string `json:"title"`
	Text   string `json:"text"`
	Link   string `json:"link"`
	Banded bool   `json:"banded"`
}

type gridView struct {
	ID      string    `json:"id"`
	Title   string    `json:"title"`
	Icon    string    `json:"icon"`
	Headers []string  `json:"headers"`
	Rows    []rowView `json:"rows"`
}

type rowView struct {
	Link     string   `json:"link"`
	Selected bool     `json:"selected"`
	Cells    []string `json:"cells"`
}

func (r *Renderer) buildView(doc Document, state renderState) view {
	v := view{
		Title:        doc.Title,
		Icon:         SanitizeIcon(doc.Icon),
		Classes:      r.classes,
		DetailsTitle: DetailsTitle,
		EmptyText:    r.grid.Language.EmptyTable,
		Buttons:      make([]buttonView, 0, len(doc.Buttons)),
		GridIDs:      []string{},
	}
	if v.EmptyText == "" {
		v.EmptyText = widgets.EmptyText
	}

	for _, button := range doc.Buttons {
		v.Buttons = append(v.Buttons, buttonView{
			Title: button.Title,
			Link:  button.Link,
			Icon:  SanitizeIcon(button.Icon),
		})
	}

	first, second := SplitDetails(doc.Details())
	v.Columns = [2][]detailRow{
		detailRows(first, 0),
		detailRows(second, len(first)),
	}

	counter := 0
	for _, grid := range doc.DataTables {
		gv := gridView{
			Title: grid.Title,
			Icon:  SanitizeIcon(grid.Icon),
		}
		if len(grid.Data) > 0 {
			gv.ID = fmt.Sprintf("%s%d", gridPrefix, counter)
			counter++
			gv.Headers = gridHeaders(grid)
			for _, row := range grid.Data {
				gv.Rows = append(gv.Rows, buildRow(row, state))
			}
			v.GridIDs = append(v.GridIDs, gv.ID)
		}
		v.Grids = append(v.Grids, gv)
	}
	return v
}

// SplitDetails splits detail rows into a first column holding ceil(n/2)
// rows and a second column holding the rest.
func SplitDetails(rows []Cell) ([]Cell, []Cell) {
	mid := (len(rows) + 1) / 2
	return rows[:mid], rows[mid:]
}

func detailRows(cells []Cell, offset int) []detailRow {
	out := make([]detailRow, 0, len(cells))
	for i, cell := range cells {
		out = append(out, detailRow{
			Title:  cell.Title,
			Text:   cell.Text(),
			Link:   cell.Link,
			Banded: (offset+i)%2 == 0,
		})
	}
	return out
}

func gridHeaders(grid Grid) []string {
	first := grid.Data[0]
	if len(first.Cells) == 0 {
		return grid.Headers
	}
	headers := make([]string, 0, len(first.Cells))
	for _, cell := range first.Cells {
		headers = append(headers, cell.Title)
	}
	return headers
}

func buildRow(row Row, state renderState) rowView {
	rv := rowView{
		Link:  row.Link,
		Cells: make([]string, 0, len(row.Cells)),
	}
	rv.Selected = rv.Link != "" && rv.Link == state.selected
	for _, cell := range row.Cells {
		rv.Cells = append(rv.Cells, cell.Text())
	}
	return rv
}
