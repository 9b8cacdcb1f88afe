package ui

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/goliatone/go-crmpanel/pkg/persian"
)

// ErrTabRange is returned when activating a tab that does not exist.
var ErrTabRange = errors.New("ui: tab index out of range")

// Tab class tokens.
const (
	OpenTabClass    = "open-tab bg-white"
	ClosedTabClass  = "closed-tab bg-slate-300"
	HiddenClass     = "hidden"
	TabButtonPrefix = "tab-button-"
	TabPanePrefix   = "tab-container-"
)

// Tab describes one section tab and the grid headers shown inside it.
type Tab struct {
	Name    string   `json:"name"`
	Title   string   `json:"title"`
	Headers []string `json:"headers,omitempty"`
}

// TabView is the rendered state of a tab.
type TabView struct {
	Tab
	Index          int    `json:"index"`
	ButtonID       string `json:"button_id"`
	ContainerID    string `json:"container_id"`
	ButtonClass    string `json:"button_class"`
	ContainerClass string `json:"container_class"`
	Active         bool   `json:"active"`
}

// Tabs keeps exactly one tab active.
type Tabs struct {
	tabs   []Tab
	active int
}

// NewTabs builds a tab strip. initial is the raw value of the hidden
// "selected tab" field; blank or invalid values select the first tab.
func NewTabs(tabs []Tab, initial string) *Tabs {
	t := &Tabs{tabs: append([]Tab{}, tabs...)}
	if idx, ok := ParseTabIndex(initial); ok && idx < len(t.tabs) {
		t.active = idx
	}
	return t
}

// ParseTabIndex accepts a bare index or a "tab-button-N" id, in either
// digit set.
func ParseTabIndex(raw string) (int, bool) {
	raw = strings.TrimSpace(persian.ToASCIIDigits(raw))
	raw = strings.TrimPrefix(raw, TabButtonPrefix)
	if raw == "" {
		return 0, false
	}
	idx, err := strconv.Atoi(raw)
	if err != nil || idx < 0 {
		return 0, false
	}
	return idx, true
}

func (t *Tabs) Len() int {
	return len(t.tabs)
}

func (t *Tabs) Active() int {
	return t.active
}

// Activate makes tab i the active one. Re-activating the active tab reports
// false and changes nothing.
func (t *Tabs) Activate(i int) (bool, error) {
	if i < 0 || i >= len(t.tabs) {
		return false, fmt.Errorf("%w: %d", ErrTabRange, i)
	}
	if i == t.active {
		return false, nil
	}
	t.active = i
	return true, nil
}

// Classes returns the button and container classes of tab i.
func (t *Tabs) Classes(i int) (button, container string) {
	if i == t.active {
		return OpenTabClass, ""
	}
	return ClosedTabClass, HiddenClass
}

// Views renders every tab.
func (t *Tabs) Views() []TabView {
	out := make([]TabView, 0, len(t.tabs))
	for i, tab := range t.tabs {
		button, container := t.Classes(i)
		out = append(out, TabView{
			Tab:            tab,
			Index:          i,
			ButtonID:       TabButtonPrefix + strconv.Itoa(i),
			ContainerID:    TabPanePrefix + strconv.Itoa(i),
			ButtonClass:    button,
			ContainerClass: container,
			Active:         i == t.active,
		})
	}
	return out
}
