package preview

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// ErrInvalidDocument marks documents that fail structural validation.
var ErrInvalidDocument = errors.New("preview: invalid document")

// Cell describes one labelled value. Value is kept as decoded JSON so numbers
// and strings both render.
type Cell struct {
	Title string `json:"title"`
	Value any    `json:"value"`
	Link  string `json:"link,omitempty"`
}

// Text returns the display text of the cell value, empty when unset.
func (c Cell) Text() string {
	switch v := c.Value.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case json.Number:
		return v.String()
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

// Button is an action rendered above the details pane.
type Button struct {
	Title string `json:"title" validate:"required"`
	Icon  string `json:"icon,omitempty"`
	Link  string `json:"link" validate:"required"`
}

// Row is a grid row: its object-valued members in document order plus the
// optional row-level link.
type Row struct {
	Cells []Cell
	Link  string
}

// UnmarshalJSON keeps member order. Only object members are cells; a string
// "link" member becomes the row link and other scalars are ignored.
func (r *Row) UnmarshalJSON(data []byte) error {
	members := orderedmap.New[string, json.RawMessage]()
	if err := json.Unmarshal(data, members); err != nil {
		return err
	}
	r.Cells = r.Cells[:0]
	r.Link = ""
	for pair := members.Oldest(); pair != nil; pair = pair.Next() {
		raw := bytes.TrimSpace(pair.Value)
		if len(raw) == 0 {
			continue
		}
		if raw[0] == '{' {
			var cell Cell
			if err := json.Unmarshal(raw, &cell); err != nil {
				return fmt.Errorf("cell %q: %w", pair.Key, err)
			}
			r.Cells = append(r.Cells, cell)
			continue
		}
		if pair.Key == "link" && raw[0] == '"' {
			var link string
			if err := json.Unmarshal(raw, &link); err != nil {
				return fmt.Errorf("row link: %w", err)
			}
			r.Link = strings.TrimSpace(link)
		}
	}
	return nil
}

// MarshalJSON writes the row back as an object keyed by cell position.
func (r Row) MarshalJSON() ([]byte, error) {
	out := orderedmap.New[string, any]()
	for i, cell := range r.Cells {
		out.Set(strconv.Itoa(i), cell)
	}
	if r.Link != "" {
		out.Set("link", r.Link)
	}
	return json.Marshal(out)
}

// Grid is a nested table of rows.
type Grid struct {
	Title   string   `json:"title" validate:"required"`
	Icon    string   `json:"icon,omitempty"`
	Headers []string `json:"headers,omitempty"`
	Data    []Row    `json:"data"`
}

// Document is the preview payload returned by record links.
type Document struct {
	Title      string                               `json:"title,omitempty"`
	Icon       string                               `json:"icon,omitempty"`
	Buttons    []Button                             `json:"buttons" validate:"dive"`
	Table      *orderedmap.OrderedMap[string, Cell] `json:"table"`
	DataTables []Grid                               `json:"data_tables" validate:"dive"`
}

// Details returns the detail rows in document order.
func (d Document) Details() []Cell {
	if d.Table == nil {
		return nil
	}
	out := make([]Cell, 0, d.Table.Len())
	for pair := d.Table.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, pair.Value)
	}
	return out
}

var structValidator = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the structural requirements of a document.
func (d Document) Validate() error {
	if err := structValidator.Struct(d); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}
	return nil
}

// Decode parses and validates a preview document.
func Decode(raw []byte) (Document, error) {
	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return Document{}, fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}
	if err := doc.Validate(); err != nil {
		return Document{}, err
	}
	return doc, nil
}
