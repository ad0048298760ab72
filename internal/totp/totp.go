// Package totp implements the TOTP engine (C7): RFC 6238 code generation,
// secret decoding, and QR export.
package totp

import (
	"bytes"
	"encoding/base32"
	"encoding/base64"
	"fmt"
	"image/png"
	"strings"
	"time"

	"github.com/confpass-app/confpass/internal/vaulterr"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

// NormalizeSecret strips spaces and dashes and upper-cases, per §4.7.
func NormalizeSecret(secret string) string {
	secret = strings.ReplaceAll(secret, " ", "")
	secret = strings.ReplaceAll(secret, "-", "")
	return strings.ToUpper(secret)
}

// decodeSecret tries base32 (RFC 4648, no padding) then standard base64, per
// §4.7's decode order. Both must yield non-empty bytes, else reject.
func decodeSecret(secret string) ([]byte, error) {
	normalized := NormalizeSecret(secret)

	if raw, err := base32.StdEncoding.WithPadding(base32.NoPadding).DecodeString(normalized); err == nil && len(raw) > 0 {
		return raw, nil
	}
	if raw, err := base64.StdEncoding.DecodeString(secret); err == nil && len(raw) > 0 {
		return raw, nil
	}
	return nil, vaulterr.InvalidInput("secret", "could not decode as base32 or base64")
}

// GenerateCode computes the 6-digit RFC 6238 code for secret at time at,
// using SHA-1 and a 30-second step. secret may be given as either
// base32 or base64 (§4.7's decode order); the decoded bytes are always
// re-encoded as base32 before reaching the underlying library, which only
// accepts base32 secrets.
func GenerateCode(secret string, at time.Time) (string, error) {
	raw, err := decodeSecret(secret)
	if err != nil {
		return "", err
	}
	b32 := base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(raw)
	code, err := totp.GenerateCodeCustom(b32, at, totp.ValidateOpts{
		Period:    30,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
		Skew:      0,
	})
	if err != nil {
		return "", vaulterr.Internal("generate totp code", err)
	}
	return code, nil
}

// QRPNGBase64 builds the otpauth:// URI and renders it to a QR PNG, returning
// base64 (§4.7).
func QRPNGBase64(issuer, account, secret string) (string, error) {
	normalized := NormalizeSecret(secret)
	uri := fmt.Sprintf(
		"otpauth://totp/%s:%s?secret=%s&issuer=%s&algorithm=SHA1&digits=6&period=30",
		issuer, account, normalized, issuer,
	)
	key, err := otp.NewKeyFromURL(uri)
	if err != nil {
		return "", vaulterr.Internal("parse totp uri", err)
	}
	img, err := key.Image(256, 256)
	if err != nil {
		return "", vaulterr.Internal("render totp qr", err)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", vaulterr.Internal("encode totp qr png", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
