package services

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
)

const (
	SuffixLength   = 6
	suffixAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
)

// SuffixSource produces the random part of a deployment url.
type SuffixSource func() (string, error)

// URLGenerator derives public urls for successful deployments.
type URLGenerator struct {
	suffix SuffixSource
}

func NewURLGenerator() *URLGenerator {
	return &URLGenerator{suffix: RandomSuffix}
}

// NewURLGeneratorWithSource is used by tests that need a predictable suffix.
func NewURLGeneratorWithSource(source SuffixSource) *URLGenerator {
	if source == nil {
		source = RandomSuffix
	}
	return &URLGenerator{suffix: source}
}

// Generate returns https://{sanitized-project}-{suffix}.{domain}.
func (g *URLGenerator) Generate(projectID string, domain string) (string, error) {
	suffix, err := g.suffix()
	if err != nil {
		return "", fmt.Errorf("failed to generate url suffix: %w", err)
	}
	domain = strings.Trim(strings.ToLower(strings.TrimSpace(domain)), ".")
	if domain == "" {
		return "", fmt.Errorf("deployment domain is not configured")
	}
	return fmt.Sprintf("https://%s-%s.%s", SanitizeProjectID(projectID), suffix, domain), nil
}

// SanitizeProjectID lower-cases the id and replaces every rune outside [a-z0-9] with '-'.
func SanitizeProjectID(projectID string) string {
	lowered := strings.ToLower(projectID)
	var b strings.Builder
	b.Grow(len(lowered))
	for _, r := range lowered {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			continue
		}
		b.WriteByte('-')
	}
	return b.String()
}

// RandomSuffix returns SuffixLength characters from [a-z0-9] using crypto/rand.
func RandomSuffix() (string, error) {
	max := big.NewInt(int64(len(suffixAlphabet)))
	buf := make([]byte, SuffixLength)
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		buf[i] = suffixAlphabet[n.Int64()]
	}
	return string(buf), nil
}

// FixedSuffix always yields s.
func FixedSuffix(s string) SuffixSource {
	return func() (string, error) { return s, nil }
}
