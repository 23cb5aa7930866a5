// Package files issues and refreshes signed file preview URLs.
package files

import (
	"fmt"
	"regexp"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// previewURLPattern matches signed preview URLs embedded in answers and
// stored file records. Capture group 1 is the file id.
var previewURLPattern = regexp.MustCompile(`/v1/files/([0-9a-fA-F-]{36})/preview\?token=[A-Za-z0-9._-]*`)

// Signer issues short-lived tokens for file preview URLs
type Signer struct {
	secret  []byte
	baseURL string
	ttl     time.Duration
}

// NewSigner creates a Signer. baseURL is the external base URL of the
// API (no trailing slash); ttl bounds how long issued URLs stay valid.
func NewSigner(secret, baseURL string, ttl time.Duration) *Signer {
	return &Signer{
		secret:  []byte(secret),
		baseURL: baseURL,
		ttl:     ttl,
	}
}

// PreviewURL returns a freshly signed preview URL for the given file
func (s *Signer) PreviewURL(fileID uuid.UUID) (string, error) {
	token, err := s.sign(fileID)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s/v1/files/%s/preview?token=%s", s.baseURL, fileID, token), nil
}

// ReSignText replaces every preview URL token found in text with a
// fresh one. URLs whose file id does not parse are left untouched.
func (s *Signer) ReSignText(text string) string {
	if text == "" {
		return text
	}
	return previewURLPattern.ReplaceAllStringFunc(text, func(match string) string {
		sub := previewURLPattern.FindStringSubmatch(match)
		fileID, err := uuid.Parse(sub[1])
		if err != nil {
			return match
		}
		token, err := s.sign(fileID)
		if err != nil {
			return match
		}
		return fmt.Sprintf("/v1/files/%s/preview?token=%s", fileID, token)
	})
}

// ReSignURL refreshes the token of a single preview URL. Non-preview
// URLs (remote files) are returned unchanged.
func (s *Signer) ReSignURL(url string) string {
	if !previewURLPattern.MatchString(url) {
		return url
	}
	return s.ReSignText(url)
}

// Verify checks a preview token and returns the file id it covers
func (s *Signer) Verify(token string) (uuid.UUID, error) {
	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid preview token: %w", err)
	}
	if !parsed.Valid {
		return uuid.Nil, fmt.Errorf("invalid preview token")
	}
	return uuid.Parse(claims.Subject)
}

func (s *Signer) sign(fileID uuid.UUID) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   fileID.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}
