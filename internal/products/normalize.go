package products

import "strings"

// normalizeIdentity collapses runs of whitespace to single spaces and
// casefolds, so "Ryzen  7 " and "ryzen 7" compare equal. Two products are
// duplicates when category, normalized name, and normalized description all
// match.
func normalizeIdentity(value string) string {
	return strings.ToLower(strings.Join(strings.Fields(value), " "))
}

// sameIdentity reports whether the candidate name/description pair collides
// with the given normalized identity.
func sameIdentity(normName, normDesc, candidateName, candidateDesc string) bool {
	return normalizeIdentity(candidateName) == normName &&
		normalizeIdentity(candidateDesc) == normDesc
}
