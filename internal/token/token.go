// Package token implements the identity token service: signed, time-limited
// JWTs proving who a request belongs to, plus the one-way hashing used for
// password reset secrets. Tokens are never stored server-side; validity is
// checked cryptographically and against the subject's current state.
package token

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/roamly/tour-booking/internal/apperr"
)

// Claims is the verified content of an identity token.
type Claims struct {
	UserID   uint64
	IssuedAt time.Time
}

// Service issues and verifies identity tokens with a single HS256 secret.
type Service struct {
	secret []byte
	ttl    time.Duration
}

func NewService(secret string, ttl time.Duration) *Service {
	return &Service{secret: []byte(secret), ttl: ttl}
}

// TTL returns the configured token lifetime (used for cookie expiry).
func (s *Service) TTL() time.Duration { return s.ttl }

// Issue signs a token embedding the subject id, issued-at and expiry.
func (s *Service) Issue(userID uint64) (string, error) {
	now := time.Now().UTC()
	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatUint(userID, 10),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(s.secret)
}

// Verify checks the signature and expiry of a token. It fails with
// apperr.ExpiredToken for a well-formed but expired token and with
// apperr.InvalidToken for anything tampered, malformed or signed with an
// unexpected algorithm, so callers can give distinct messages.
func (s *Service) Verify(raw string) (Claims, error) {
	var rc jwt.RegisteredClaims
	tok, err := jwt.ParseWithClaims(raw, &rc, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, apperr.ExpiredToken()
		}
		return Claims{}, apperr.InvalidToken()
	}
	if !tok.Valid {
		return Claims{}, apperr.InvalidToken()
	}

	id, err := strconv.ParseUint(rc.Subject, 10, 64)
	if err != nil || id == 0 {
		return Claims{}, apperr.InvalidToken()
	}
	var iat time.Time
	if rc.IssuedAt != nil {
		iat = rc.IssuedAt.Time
	}
	return Claims{UserID: id, IssuedAt: iat}, nil
}

// NewResetSecret generates a random reset secret. The raw form goes to the
// user exactly once; only the hash is persisted.
func NewResetSecret() (raw, hash string, err error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", "", err
	}
	raw = hex.EncodeToString(buf)
	return raw, HashResetSecret(raw), nil
}

// HashResetSecret returns the SHA-256 hex digest of a raw reset secret.
// Unsalted on purpose: the stored value is looked up by exact match.
func HashResetSecret(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
