// Package formschema loads form definitions from JSON or YAML files. Each file
// declares one form. Definitions are checked structurally, validator names are
// resolved against a validation registry and duplicate form or element ids are
// rejected. The panel's client, personnel and patient forms are embedded and
// available through EmbeddedFS.
package formschema
