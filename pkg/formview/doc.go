// Package formview renders forms as server-side HTML fragments for htmx
// callers. Each input sits in a .form-input-container with its own
// .form-input-error slot, and every repeatable section carries a hidden
// template row next to its visible rows.
package formview
