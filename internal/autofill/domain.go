package autofill

import (
	"net/url"
	"strings"
)

// ExtractDomain parses rawURL (retrying with an https:// prefix if the first
// parse fails or yields no host), takes the host, strips a leading "www.",
// and lowercases — per §4.9.1 and the original implementation's
// extract_domain helper.
func ExtractDomain(rawURL string) string {
	host := extractHost(rawURL)
	host = strings.TrimPrefix(host, "www.")
	return strings.ToLower(host)
}

func extractHost(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		u, err = url.Parse("https://" + rawURL)
		if err != nil {
			return rawURL
		}
	}
	if u.Host == "" {
		return rawURL
	}
	return u.Hostname()
}

// DomainsMatch implements §4.9.1's three ordered rules, case-insensitive
// throughout, first match short-circuits:
//  1. exact equality of the extracted domains;
//  2. one is a dot-suffix subdomain of the other;
//  3. string containment in either direction (deliberately loose fallback).
func DomainsMatch(a, b string) bool {
	a, b = strings.ToLower(a), strings.ToLower(b)
	if a == "" || b == "" {
		return false
	}
	if a == b {
		return true
	}
	if strings.HasSuffix(a, "."+b) || strings.HasSuffix(b, "."+a) {
		return true
	}
	if strings.Contains(a, b) || strings.Contains(b, a) {
		return true
	}
	return false
}

// mutualContainment reports case-insensitive equality or containment in
// either direction, the comparison §4.9.2 uses for account-identity and
// domain/issuer matching (looser than DomainsMatch: no subdomain rule, just
// containment, since these compare free-text account/issuer strings rather
// than hostnames).
func mutualContainment(a, b string) bool {
	a, b = strings.ToLower(strings.TrimSpace(a)), strings.ToLower(strings.TrimSpace(b))
	if a == "" || b == "" {
		return false
	}
	return a == b || strings.Contains(a, b) || strings.Contains(b, a)
}
