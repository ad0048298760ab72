package entries_test

import (
	"testing"

	"github.com/confpass-app/confpass/internal/entries"
)

func TestGeneratePasswordRequiresAClass(t *testing.T) {
	_, err := entries.GeneratePassword(entries.GeneratorOptions{Length: 10})
	if err == nil {
		t.Fatal("expected error when no character class is selected")
	}
}

func TestGeneratePasswordLength(t *testing.T) {
	pw, err := entries.GeneratePassword(entries.GeneratorOptions{
		Length: 16, UseLower: true, UseUpper: true, UseDigits: true, UseSymbols: true,
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(pw) != 16 {
		t.Fatalf("expected length 16, got %d", len(pw))
	}
}

func TestStrengthScoreBuckets(t *testing.T) {
	cases := []struct {
		pw    string
		label string
	}{
		{"abc", "Weak"},
		{"abcdefgh", "Weak"},
		{"abcdefgh1", "Medium"},
		{"Abcdefgh123!", "Strong"},
	}
	for _, c := range cases {
		score := entries.StrengthScore(c.pw)
		label := entries.StrengthLabel(score)
		if label != c.label {
			t.Errorf("StrengthLabel(%q) score=%d = %q, want %q", c.pw, score, label, c.label)
		}
	}
}
