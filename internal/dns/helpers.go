package dns

import (
	"strings"
)

// Split is a hostname divided at its first dot.
type Split struct {
	Subdomain string
	Domain    string
}

// SplitDomain splits a hostname at the first dot only.
// e.g. "app.example.com" → {"app", "example.com"}
// e.g. "a.b.example.co.uk" → {"a", "b.example.co.uk"}
func SplitDomain(hostname string) Split {
	parts := strings.SplitN(hostname, ".", 2)
	if len(parts) < 2 {
		return Split{Subdomain: hostname}
	}
	return Split{Subdomain: parts[0], Domain: parts[1]}
}

// normalizeName lowercases and strips the trailing root dot so provider
// names and caller hostnames compare equal.
func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSuffix(name, "."))
}
