package autofill_test

import (
	"testing"

	"github.com/confpass-app/confpass/internal/autofill"
)

func TestExtractDomainStripsWWWAndScheme(t *testing.T) {
	cases := map[string]string{
		"https://www.Example.com/login": "example.com",
		"example.com":                   "example.com",
		"http://sub.example.com":        "sub.example.com",
	}
	for in, want := range cases {
		if got := autofill.ExtractDomain(in); got != want {
			t.Errorf("ExtractDomain(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestDomainsMatchExactAndSubdomain(t *testing.T) {
	if !autofill.DomainsMatch("x.com", "x.com") {
		t.Error("expected exact match")
	}
	if !autofill.DomainsMatch("login.x.com", "x.com") {
		t.Error("expected subdomain match")
	}
	if !autofill.DomainsMatch("x.com", "login.x.com") {
		t.Error("expected subdomain match symmetric")
	}
}

func TestDomainsMatchContainmentFallback(t *testing.T) {
	if !autofill.DomainsMatch("notabank.com", "bank.com") {
		// "bank.com" is contained in "notabank.com" by substring, and the
		// subdomain rule does not apply (no dot-suffix relationship), so the
		// loose containment fallback matches per §4.9.1's documented intent.
		t.Error("expected containment fallback to match")
	}
	if autofill.DomainsMatch("example.com", "other.org") {
		t.Error("expected unrelated domains not to match")
	}
}
