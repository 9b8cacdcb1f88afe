// Package validation is the panel's validator registry. A validator is a pure
// function from an input value to a Result; cross-field validators receive the
// values they compare as explicit arguments instead of reading sibling inputs,
// so every check can be exercised without a document or a browser.
package validation
