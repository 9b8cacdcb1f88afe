// Package ui holds the page-level interaction state of the panel: the tab
// strip of section pages and the collapsible sidebar.
package ui
