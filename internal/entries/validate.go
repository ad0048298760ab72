package entries

import (
	"strings"

	"github.com/confpass-app/confpass/internal/vaultfile"
	"github.com/confpass-app/confpass/internal/vaulterr"
)

// Draft is the caller-supplied shape for add_entry/update_entry (§4.5); nil
// pointer fields mean "leave unchanged" on update.
type Draft struct {
	Title      *string
	Username   *string
	Password   *string
	URL        *string
	Notes      *string
	Category   *string
	Extra      map[string]string
	TagIDs     []string
	FolderID   *string
}

func trimOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}

// validate checks category-dependent invariants per §3 against the fully
// materialized entry (after defaults/omitted fields have been merged in).
func validate(e vaultfile.Entry) error {
	if !vaultfile.ValidCategories[e.Category] {
		return vaulterr.InvalidInput("category", "unknown category: "+e.Category)
	}

	switch e.Category {
	case vaultfile.CategoryAccounts, vaultfile.CategoryBankCards:
		if l := len(e.Username); l < 1 || l > 200 {
			return vaulterr.InvalidInput("username", "must be 1-200 characters")
		}
		if l := len(e.Password); l < 1 || l > 500 {
			return vaulterr.InvalidInput("password", "must be 1-500 characters")
		}
	}

	if e.URL != "" {
		if !strings.HasPrefix(e.URL, "http://") && !strings.HasPrefix(e.URL, "https://") {
			return vaulterr.InvalidInput("url", "must start with http:// or https://")
		}
		if len(e.URL) > 500 {
			return vaulterr.InvalidInput("url", "must be at most 500 characters")
		}
	}

	if e.Notes != "" && !isStructuredCategory(e.Category) {
		if len(e.Notes) > 5000 {
			return vaulterr.InvalidInput("notes", "must be at most 5000 characters")
		}
	}

	return nil
}

// isStructuredCategory reports whether notes carries a structured JSON
// payload (passkeys/authenticators) rather than free text, in which case the
// 5000-character cap does not apply (§3).
func isStructuredCategory(category string) bool {
	switch category {
	case vaultfile.CategoryPasskeys, vaultfile.CategoryPasskeysTrash,
		vaultfile.CategoryAuthenticator, vaultfile.CategoryAuthenticatorTrash:
		return true
	default:
		return false
	}
}
