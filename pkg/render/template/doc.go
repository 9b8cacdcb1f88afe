// Package template defines the template rendering seam used by the preview
// and form renderers. Concrete engines live in subpackages.
package template
