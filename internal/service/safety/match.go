package safety

import "strings"

// NamesLikelyMatch reports whether two medicine names plausibly refer to
// the same product. Names are free text entered by the practitioner, so
// the comparison is a case-insensitive substring check in both
// directions: "Amoxicilline 1g" matches "amoxicilline".
func NamesLikelyMatch(a, b string) bool {
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))
	if a == "" || b == "" {
		return false
	}
	return strings.Contains(a, b) || strings.Contains(b, a)
}

// groupMatchesName reports whether any comma-separated token of an
// interaction group relates to the given medicine name. A token matches
// when it contains the name, the name contains it, or it equals one of
// the name's whitespace-separated words.
func groupMatchesName(group, name string) bool {
	name = strings.ToLower(strings.TrimSpace(name))
	if group == "" || name == "" {
		return false
	}
	words := strings.Fields(name)
	for _, token := range strings.Split(group, ",") {
		token = strings.ToLower(strings.TrimSpace(token))
		if token == "" {
			continue
		}
		if strings.Contains(name, token) || strings.Contains(token, name) {
			return true
		}
		for _, word := range words {
			if word == token {
				return true
			}
		}
	}
	return false
}
