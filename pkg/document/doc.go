// Package document is the element store the form engine, row cloner and
// marshaller operate on. It stands in for the browser DOM: an ordered set of
// elements (id, values, checked flag, options) plus repeatable sections made
// of a hidden template row and the visible rows cloned from it. Documents are
// built from a form definition, from posted form values or from JSON, and are
// safe for concurrent use.
package document
