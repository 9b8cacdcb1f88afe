// Package widgets resolves the front-end widget of each form field and holds
// the static widget configuration: picker and date picker options and the
// data grid option sets with their Persian language pack.
package widgets
