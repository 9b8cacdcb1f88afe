// Package form validates documents against their form definition and maps
// backend error payloads back onto element ids.
//
// Required fields always run their validators; optional fields only when they
// carry a value. Only the first failing validator message is kept per element.
// Cross-field rules run afterwards, write into their anchor's error slot and
// are skipped when the anchor already failed. Cloned section rows share the
// validators of their template field; hidden template rows are never checked.
package form
