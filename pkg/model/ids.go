package model

import "regexp"

var suffixPattern = regexp.MustCompile(`-\d+`)

// TemplateSuffix marks ids that belong to a section's hidden template row.
const TemplateSuffix = "-0"

// CleanID strips the first "-<digits>" group, mapping a cloned element id back
// to its template key: "phone-number-1700000000123" becomes "phone-number".
func CleanID(id string) string {
	loc := suffixPattern.FindStringIndex(id)
	if loc == nil {
		return id
	}
	return id[:loc[0]] + id[loc[1]:]
}

// IsTemplateID reports whether the id belongs to a hidden template row.
func IsTemplateID(id string) bool {
	loc := suffixPattern.FindStringIndex(id)
	return loc != nil && id[loc[0]:loc[1]] == TemplateSuffix
}

// CloneID builds the id of a cloned element from a template id and a suffix.
func CloneID(templateID string, suffix string) string {
	loc := suffixPattern.FindStringIndex(templateID)
	if loc == nil {
		return templateID + "-" + suffix
	}
	return templateID[:loc[0]] + "-" + suffix + templateID[loc[1]:]
}

// SuffixIndex returns the byte range of the first "-<digits>" group, or nil.
func SuffixIndex(id string) []int {
	return suffixPattern.FindStringIndex(id)
}
