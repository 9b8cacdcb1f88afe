// Package model defines the typed form model shared by the loader, the form
// engine, the row cloner and the marshaller. A form is a flat list of fields
// plus repeatable sections whose hidden template row is cloned at runtime.
// Field ids inside a section template end in "-0"; clones replace the suffix
// with a generated numeric id so CleanID can map them back to the template.
// Cross-field rules are bound to an anchor element whose error slot receives
// the rule's message.
package model
