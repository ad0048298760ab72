package entries

import (
	"crypto/rand"
	"math/big"

	"github.com/confpass-app/confpass/internal/vaulterr"
)

const (
	lowerChars  = "abcdefghijklmnopqrstuvwxyz"
	upperChars  = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	digitChars  = "0123456789"
	symbolChars = "!@#$%^&*()_+-=[]{}|;:,.<>?"
)

// GeneratorOptions selects which character classes feed the charset. At
// least one class must be enabled.
type GeneratorOptions struct {
	Length           int
	UseLower         bool
	UseUpper         bool
	UseDigits        bool
	UseSymbols       bool
}

// GeneratePassword draws a uniform random password over the configured
// charset using a CSPRNG (crypto/rand), per §4.1 and §4.5. This diverges
// deliberately from the non-cryptographic RNG used by the system this was
// distilled from.
func GeneratePassword(opts GeneratorOptions) (string, error) {
	var charset string
	if opts.UseLower {
		charset += lowerChars
	}
	if opts.UseUpper {
		charset += upperChars
	}
	if opts.UseDigits {
		charset += digitChars
	}
	if opts.UseSymbols {
		charset += symbolChars
	}
	if charset == "" {
		return "", vaulterr.InvalidInput("charset", "at least one character class is required")
	}
	if opts.Length <= 0 {
		return "", vaulterr.InvalidInput("length", "must be positive")
	}

	out := make([]byte, opts.Length)
	max := big.NewInt(int64(len(charset)))
	for i := range out {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", vaulterr.Internal("generate password", err)
		}
		out[i] = charset[n.Int64()]
	}
	return string(out), nil
}

// StrengthScore is 0-6: one point each for length>=8, has-uppercase,
// has-lowercase, has-digit, has-symbol, plus a bonus point for length>=12.
// This is the exact algorithm used by the system this was distilled from.
func StrengthScore(password string) int {
	score := 0
	if len(password) >= 8 {
		score++
	}
	var hasUpper, hasLower, hasDigit, hasSymbol bool
	for _, r := range password {
		switch {
		case r >= 'A' && r <= 'Z':
			hasUpper = true
		case r >= 'a' && r <= 'z':
			hasLower = true
		case r >= '0' && r <= '9':
			hasDigit = true
		default:
			hasSymbol = true
		}
	}
	if hasUpper {
		score++
	}
	if hasLower {
		score++
	}
	if hasDigit {
		score++
	}
	if hasSymbol {
		score++
	}
	if len(password) >= 12 {
		score++
	}
	return score
}

// StrengthLabel buckets a StrengthScore into a qualitative label: 0-2 Weak,
// 3-4 Medium, 5-6 Strong.
func StrengthLabel(score int) string {
	switch {
	case score <= 2:
		return "Weak"
	case score <= 4:
		return "Medium"
	default:
		return "Strong"
	}
}
