// Package notify models the toast notifications the panel raises after
// validation, submission and row operations.
package notify

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"
	"unicode/utf16"
	"unicode/utf8"
)

// Icon selects the toast style.
type Icon string

const (
	IconSuccess Icon = "success"
	IconInfo    Icon = "info"
	IconError   Icon = "error"
	IconWarning Icon = "warning"
)

// Toast mirrors the options the front-end toast plugin accepts.
type Toast struct {
	Heading    string `json:"heading"`
	Text       string `json:"text"`
	Icon       Icon   `json:"icon"`
	Position   string `json:"position"`
	TextAlign  string `json:"textAlign"`
	HideAfter  int64  `json:"hideAfter"`
	Transition string `json:"showHideTransition"`
	AllowClose bool   `json:"allowToastClose"`
}

// DefaultHideAfter is how long a toast stays on screen.
const DefaultHideAfter = 4 * time.Second

// New builds a toast with the panel defaults.
func New(icon Icon, heading, text string) Toast {
	return Toast{
		Heading:    heading,
		Text:       text,
		Icon:       icon,
		Position:   "bottom-left",
		TextAlign:  "right",
		HideAfter:  DefaultHideAfter.Milliseconds(),
		Transition: "slide",
	}
}

func Success(heading, text string) Toast { return New(IconSuccess, heading, text) }
func Info(heading, text string) Toast    { return New(IconInfo, heading, text) }
func Error(heading, text string) Toast   { return New(IconError, heading, text) }
func Warning(heading, text string) Toast { return New(IconWarning, heading, text) }

// Notifier receives toasts.
type Notifier interface {
	Notify(Toast)
}

// NotifierFunc adapts a function into a Notifier.
type NotifierFunc func(Toast)

// Notify calls fn.
func (fn NotifierFunc) Notify(t Toast) { fn(t) }

// Discard drops every toast.
var Discard Notifier = NotifierFunc(func(Toast) {})

// Collector accumulates the toasts raised while handling one request.
type Collector struct {
	mu     sync.Mutex
	toasts []Toast
}

// Notify records a toast.
func (c *Collector) Notify(t Toast) {
	c.mu.Lock()
	c.toasts = append(c.toasts, t)
	c.mu.Unlock()
}

// Toasts returns the recorded toasts in order.
func (c *Collector) Toasts() []Toast {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Toast(nil), c.toasts...)
}

// Len returns the number of recorded toasts.
func (c *Collector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.toasts)
}

// TriggerHeader is the response header htmx reads client-side events from.
const TriggerHeader = "HX-Trigger"

// WriteHeader encodes the recorded toasts as an HX-Trigger "toast" event.
// Nothing is written when no toast was raised.
func (c *Collector) WriteHeader(h http.Header) error {
	toasts := c.Toasts()
	if len(toasts) == 0 {
		return nil
	}
	payload, err := json.Marshal(map[string][]Toast{"toast": toasts})
	if err != nil {
		return err
	}
	h.Set(TriggerHeader, asciiJSON(payload))
	return nil
}

// asciiJSON escapes non-ASCII runes so the JSON survives header transport.
func asciiJSON(payload []byte) string {
	var b strings.Builder
	for _, r := range string(payload) {
		if r < utf8.RuneSelf {
			b.WriteRune(r)
			continue
		}
		if r > 0xFFFF {
			r1, r2 := utf16.EncodeRune(r)
			fmt.Fprintf(&b, "\\u%04x\\u%04x", r1, r2)
			continue
		}
		fmt.Fprintf(&b, "\\u%04x", r)
	}
	return b.String()
}
