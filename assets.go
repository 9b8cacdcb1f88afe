package crmpanel

import (
	"embed"
	"io/fs"

	"github.com/goliatone/go-crmpanel/pkg/formschema"
	"github.com/goliatone/go-crmpanel/pkg/formview"
	"github.com/goliatone/go-crmpanel/pkg/preview"
)

//go:embed static/css/*.css static/js/*.js
var embeddedStatic embed.FS

// StaticFS exposes the panel stylesheet and the htmx glue script. The server
// mounts it under /static/, matching the asset prefix of the bundled theme.
func StaticFS() fs.FS {
	sub, err := fs.Sub(embeddedStatic, "static")
	if err != nil {
		return embeddedStatic
	}
	return sub
}

// EmbeddedTemplates exposes the preview and form templates so callers can
// copy them into TEMPLATES_DIR and override single files.
func EmbeddedTemplates() []fs.FS {
	return []fs.FS{preview.Templates(), formview.Templates()}
}

// EmbeddedForms exposes the bundled form definitions.
func EmbeddedForms() fs.FS {
	return formschema.EmbeddedFS()
}
