// Package persian holds the small amount of locale plumbing the panel needs for
// Persian (fa-IR) input and display: digit transliteration in both directions
// and ordering of Jalali calendar dates written as YYYY/MM/DD.
package persian

import (
	"strings"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
)

const (
	persianZero = '۰'
	arabicZero  = '٠'
)

var toASCII = runes.Map(func(r rune) rune {
	switch {
	case r >= persianZero && r <= persianZero+9:
		return '0' + (r - persianZero)
	case r >= arabicZero && r <= arabicZero+9:
		return '0' + (r - arabicZero)
	default:
		return r
	}
})

var toPersian = runes.Map(func(r rune) rune {
	if r >= '0' && r <= '9' {
		return persianZero + (r - '0')
	}
	return r
})

// ToASCIIDigits replaces Persian and Arabic-Indic digits with their ASCII
// counterparts. Every other rune is left untouched.
func ToASCIIDigits(value string) string {
	if value == "" {
		return value
	}
	out, _, err := transform.String(toASCII, value)
	if err != nil {
		return value
	}
	return out
}

// Persianize renders ASCII digits as Persian digits for display.
func Persianize(value string) string {
	if value == "" {
		return value
	}
	out, _, err := transform.String(toPersian, value)
	if err != nil {
		return value
	}
	return out
}

// HasDigits reports whether the value contains any ASCII or Persian digit.
func HasDigits(value string) bool {
	return strings.IndexFunc(value, func(r rune) bool {
		return (r >= '0' && r <= '9') ||
			(r >= persianZero && r <= persianZero+9) ||
			(r >= arabicZero && r <= arabicZero+9)
	}) >= 0
}

// CompareDates orders two YYYY/MM/DD strings after digit normalisation. The
// comparison is lexicographic, which matches calendar order for zero padded
// dates. It returns -1, 0 or 1.
func CompareDates(a, b string) int {
	return strings.Compare(ToASCIIDigits(strings.TrimSpace(a)), ToASCIIDigits(strings.TrimSpace(b)))
}
