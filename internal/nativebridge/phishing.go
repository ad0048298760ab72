package nativebridge

import (
	"net/url"
	"strings"
	"unicode"

	"github.com/Zamiell/confusables"
	"golang.org/x/net/idna"
	"golang.org/x/net/publicsuffix"
)

// phishingVerdict reports why a page requesting autofill may not be the site
// a saved credential belongs to.
type phishingVerdict struct {
	OK      bool     `json:"ok"`
	Reasons []string `json:"reasons"`
	ETLD1   string   `json:"etld1,omitempty"`
}

// handlePhishingCheck answers locally (no loopback round-trip needed, since
// it only compares URL strings) rather than through EndpointTable.
func handlePhishingCheck(msg map[string]any) map[string]any {
	rawURL, _ := msg["url"].(string)
	savedETLD1, _ := msg["savedEtld1"].(string)
	exactHost, _ := msg["exactHost"].(string)
	v := evaluatePhishingCheck(rawURL, savedETLD1, exactHost)
	return map[string]any{"success": true, "data": v}
}

func evaluatePhishingCheck(rawURL, savedETLD1, exactHost string) phishingVerdict {
	var reasons []string

	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Hostname() == "" {
		return phishingVerdict{OK: false, Reasons: []string{"URL_PARSE_ERROR"}}
	}

	if !strings.EqualFold(parsed.Scheme, "https") {
		reasons = append(reasons, "HTTP")
	}

	hostLower := strings.ToLower(parsed.Hostname())

	asciiHost := hostLower
	if converted, err := idna.Lookup.ToASCII(hostLower); err == nil && converted != "" {
		asciiHost = converted
	}
	unicodeHost := hostLower
	if converted, err := idna.Lookup.ToUnicode(hostLower); err == nil && converted != "" {
		unicodeHost = converted
	}

	var etld1 string
	if asciiHost != "" {
		if value, err := publicsuffix.EffectiveTLDPlusOne(asciiHost); err == nil {
			etld1 = strings.ToLower(value)
		}
	}
	if etld1 == "" && unicodeHost != "" {
		if value, err := publicsuffix.EffectiveTLDPlusOne(unicodeHost); err == nil {
			etld1 = strings.ToLower(value)
		}
	}
	if etld1 == "" {
		reasons = append(reasons, "ETLD_INVALID")
	}

	saved := strings.ToLower(strings.TrimSpace(savedETLD1))
	if saved != "" && etld1 != "" && !strings.EqualFold(saved, etld1) {
		reasons = append(reasons, "ETLD_MISMATCH")
	}

	if exactHost = strings.TrimSpace(exactHost); exactHost != "" && hostLower != "" && !strings.EqualFold(exactHost, hostLower) {
		reasons = append(reasons, "HOST_MISMATCH")
	}

	if strings.Contains(hostLower, "xn--") {
		reasons = append(reasons, "PUNYCODE")
	}

	if hasMixedScript(unicodeHost) {
		reasons = append(reasons, "MIXED_SCRIPT")
	}

	if saved != "" && etld1 != "" && looksConfusable(saved, etld1) {
		reasons = append(reasons, "CONFUSABLE")
	}

	return phishingVerdict{OK: len(reasons) == 0, Reasons: reasons, ETLD1: etld1}
}

// hasMixedScript reports two or more distinct Unicode scripts across a host's
// labels, a common homograph-attack tell.
func hasMixedScript(host string) bool {
	if host == "" {
		return false
	}
	scripts := make(map[string]struct{})
	for _, label := range strings.Split(host, ".") {
		for _, r := range label {
			script := detectScript(r)
			if script == "" {
				continue
			}
			scripts[script] = struct{}{}
			if len(scripts) >= 2 {
				return true
			}
		}
	}
	return false
}

func detectScript(r rune) string {
	switch {
	case unicode.In(r, unicode.Latin):
		return "latin"
	case unicode.In(r, unicode.Cyrillic):
		return "cyrillic"
	case unicode.In(r, unicode.Greek):
		return "greek"
	case unicode.In(r, unicode.Hiragana):
		return "hiragana"
	case unicode.In(r, unicode.Katakana):
		return "katakana"
	case unicode.In(r, unicode.Han):
		return "han"
	default:
		return ""
	}
}

// looksConfusable reports whether two eTLD+1s normalize to the same string
// under homoglyph folding while differing in raw form.
func looksConfusable(target, candidate string) bool {
	target = strings.TrimSpace(target)
	candidate = strings.TrimSpace(candidate)
	if target == "" || candidate == "" || target == candidate {
		return false
	}
	normalizedTarget := strings.ToLower(confusables.Normalize(target))
	normalizedCandidate := strings.ToLower(confusables.Normalize(candidate))
	if normalizedTarget != normalizedCandidate {
		return false
	}
	return confusables.ContainsHomoglyphs(target) || confusables.ContainsHomoglyphs(candidate)
}
