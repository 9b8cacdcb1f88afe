package preview

import (
	"fmt"

	theme "github.com/goliatone/go-theme"
)

// ThemeName is the bundled panel theme.
const ThemeName = "crm"

// Classes holds the CSS class tokens used by the preview markup.
type Classes struct {
	ButtonBar  string `json:"button_bar"`
	Button     string `json:"button"`
	Pane       string `json:"pane"`
	PaneHeader string `json:"pane_header"`
	Label      string `json:"label"`
	Value      string `json:"value"`
	Band       string `json:"band"`
	Grid       string `json:"grid"`
	Clickable  string `json:"clickable"`
	Selected   string `json:"selected"`
	Empty      string `json:"empty"`
}

// DefaultClasses matches the panel's tailwind build.
func DefaultClasses() Classes {
	return Classes{
		ButtonBar:  "flex flex-row-reverse gap-2",
		Button:     "p-2 text-sm bg-successbg  text-successtext rounded-md",
		Pane:       "bg-white rounded-md shadow-md p-4 h-fit text-primarytext flex flex-col gap-2 w-full",
		PaneHeader: "flex flex-row gap-2 font-semibold",
		Label:      "p-2 text-sm font-semibold text-primary rounded rounded-md",
		Value:      "p-2 text-sm",
		Band:       "bg-searchbox",
		Grid:       "text-black text-sm",
		Clickable:  "cursor-pointer",
		Selected:   "selected-row",
		Empty:      "align-middle text-failed",
	}
}

// Token keys read from a theme manifest.
const (
	TokenButton    = "preview.button"
	TokenPane      = "preview.pane"
	TokenBand      = "preview.band"
	TokenGrid      = "preview.grid"
	TokenClickable = "preview.clickable"
	TokenSelected  = "preview.selected"
	TokenEmpty     = "preview.empty"
)

// ClassesFromSelection overlays the manifest tokens, then the selected
// variant's tokens, on top of the defaults.
func ClassesFromSelection(selection *theme.Selection) Classes {
	classes := DefaultClasses()
	if selection == nil || selection.Manifest == nil {
		return classes
	}
	classes.apply(selection.Manifest.Tokens)
	if variant, ok := selection.Manifest.Variants[selection.Variant]; ok {
		classes.apply(variant.Tokens)
	}
	return classes
}

func (c *Classes) apply(tokens map[string]string) {
	set := func(dst *string, key string) {
		if v, ok := tokens[key]; ok && v != "" {
			*dst = v
		}
	}
	set(&c.Button, TokenButton)
	set(&c.Pane, TokenPane)
	set(&c.Band, TokenBand)
	set(&c.Grid, TokenGrid)
	set(&c.Clickable, TokenClickable)
	set(&c.Selected, TokenSelected)
	set(&c.Empty, TokenEmpty)
}

// DefaultManifest describes the bundled theme and its compact variant.
func DefaultManifest() *theme.Manifest {
	base := DefaultClasses()
	return &theme.Manifest{
		Name:    ThemeName,
		Version: "1.0.0",
		Tokens: map[string]string{
			TokenButton:    base.Button,
			TokenPane:      base.Pane,
			TokenBand:      base.Band,
			TokenGrid:      base.Grid,
			TokenClickable: base.Clickable,
			TokenSelected:  base.Selected,
			TokenEmpty:     base.Empty,
		},
		Assets: theme.Assets{
			Prefix: "/static",
			Files: map[string]string{
				"panel.stylesheet": "css/output.css",
				"panel.script":     "js/panel.js",
			},
		},
		Variants: map[string]theme.Variant{
			"compact": {
				Tokens: map[string]string{
					TokenPane: "bg-white rounded-md shadow-sm p-2 h-fit text-primarytext flex flex-col gap-1 w-full",
					TokenGrid: "text-black text-xs",
				},
			},
		},
	}
}

// SelectTheme resolves a theme selection from the manifests, the bundled
// manifest included. An empty name picks the bundled theme.
func SelectTheme(name, variant string, manifests ...*theme.Manifest) (*theme.Selection, error) {
	registry := theme.NewRegistry()
	all := append([]*theme.Manifest{DefaultManifest()}, manifests...)
	byName := make(map[string]*theme.Manifest, len(all))
	for _, manifest := range all {
		if manifest == nil {
			continue
		}
		if err := registry.Register(manifest); err != nil {
			return nil, fmt.Errorf("preview: register theme %s: %w", manifest.Name, err)
		}
		byName[manifest.Name] = manifest
	}
	if name == "" {
		name = ThemeName
	}
	manifest, ok := byName[name]
	if !ok {
		return nil, fmt.Errorf("preview: unknown theme %q", name)
	}
	if variant != "" {
		if _, ok := manifest.Variants[variant]; !ok {
			return nil, fmt.Errorf("preview: theme %s has no variant %q", name, variant)
		}
	}
	return &theme.Selection{Theme: name, Variant: variant, Manifest: manifest}, nil
}
