package config

import (
	"strings"
)

// RegistrarMap maps domains to the registrar name recorded with DNS changes.
// Keys are exact domains or "*." wildcards.
type RegistrarMap map[string]string

// Lookup finds the registrar for a hostname by matching against domain entries.
// It walks up the domain labels checking for exact matches and wildcard entries.
// Exact matches take priority over wildcards. For example, given:
//
//	"*.example.com":    "cloudflare"
//	"lab.example.com":  "opnsense"
//
// "app.example.com" returns "cloudflare" (wildcard match)
// "lab.example.com" returns "opnsense" (exact match wins)
func (m RegistrarMap) Lookup(hostname string) (string, bool) {
	hostname = strings.ToLower(strings.TrimSuffix(hostname, "."))
	for h := hostname; h != ""; {
		if r, ok := m[h]; ok {
			return r, true
		}
		idx := strings.Index(h, ".")
		if idx < 0 {
			break
		}
		if r, ok := m["*."+h[idx+1:]]; ok {
			return r, true
		}
		h = h[idx+1:]
	}
	return "", false
}
