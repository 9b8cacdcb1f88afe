// Package preview turns preview documents fetched from the backend into the
// HTML fragment shown in the record preview pane.
//
// A document carries action buttons, an ordered set of detail rows and any
// number of nested grids. Detail rows are split into two banded columns,
// non-empty grids become tables with synthetic "dt-N" identifiers and empty
// grids render a placeholder pane. Every synthesised identifier is returned
// so the caller can initialise the data grid widget for it.
package preview
