package token

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roamly/tour-booking/internal/apperr"
)

func TestIssueAndVerify(t *testing.T) {
	svc := NewService("test-secret", time.Hour)

	signed, err := svc.Issue(42)
	require.NoError(t, err)
	require.NotEmpty(t, signed)

	claims, err := svc.Verify(signed)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), claims.UserID)
	assert.WithinDuration(t, time.Now(), claims.IssuedAt, 5*time.Second)
}

func TestVerifyFailures(t *testing.T) {
	svc := NewService("test-secret", time.Hour)

	tests := []struct {
		name     string
		token    func(t *testing.T) string
		wantCode apperr.Code
	}{
		{
			name:     "garbage token",
			token:    func(t *testing.T) string { return "not.a.jwt" },
			wantCode: apperr.CodeInvalidToken,
		},
		{
			name: "wrong secret",
			token: func(t *testing.T) string {
				other := NewService("other-secret", time.Hour)
				signed, err := other.Issue(42)
				require.NoError(t, err)
				return signed
			},
			wantCode: apperr.CodeInvalidToken,
		},
		{
			name: "expired token",
			token: func(t *testing.T) string {
				expired := NewService("test-secret", -time.Minute)
				signed, err := expired.Issue(42)
				require.NoError(t, err)
				return signed
			},
			wantCode: apperr.CodeExpiredToken,
		},
		{
			name: "tampered payload",
			token: func(t *testing.T) string {
				signed, err := svc.Issue(42)
				require.NoError(t, err)
				return signed[:len(signed)-4] + "AAAA"
			},
			wantCode: apperr.CodeInvalidToken,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Verify(tt.token(t))
			require.Error(t, err)
			ae, ok := apperr.As(err)
			require.True(t, ok)
			assert.Equal(t, tt.wantCode, ae.Code)
			assert.True(t, ae.Operational)
		})
	}
}

func TestExpiredBeatsInvalidDistinction(t *testing.T) {
	// An expired-but-genuine token must not be reported as tampered.
	expired := NewService("test-secret", -time.Hour)
	signed, err := expired.Issue(7)
	require.NoError(t, err)

	_, err = expired.Verify(signed)
	ae, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.CodeExpiredToken, ae.Code)
}

func TestNewResetSecret(t *testing.T) {
	raw, hash, err := NewResetSecret()
	require.NoError(t, err)

	assert.Len(t, raw, 64)  // 32 random bytes, hex
	assert.Len(t, hash, 64) // sha256, hex
	assert.NotEqual(t, raw, hash)

	// Hashing is deterministic: the stored form must be re-derivable from
	// the raw secret the user submits.
	assert.Equal(t, hash, HashResetSecret(raw))

	raw2, hash2, err := NewResetSecret()
	require.NoError(t, err)
	assert.NotEqual(t, raw, raw2)
	assert.NotEqual(t, hash, hash2)
}
