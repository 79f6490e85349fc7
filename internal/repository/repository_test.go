package repository

import (
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAsDuplicate(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantValue string
		wantOK    bool
	}{
		{
			name:      "unique violation with value",
			err:       &mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'a@b.com' for key 'users.email'"},
			wantValue: "a@b.com",
			wantOK:    true,
		},
		{
			name:   "unique violation without quotes",
			err:    &mysql.MySQLError{Number: 1062, Message: "Duplicate entry"},
			wantOK: true,
		},
		{
			name: "other driver error",
			err:  &mysql.MySQLError{Number: 1048, Message: "Column 'email' cannot be null"},
		},
		{
			name: "plain error",
			err:  errors.New("dial tcp: connection refused"),
		},
		{
			name: "wrapped violation",
			err: &mysql.MySQLError{Number: 1062,
				Message: "Duplicate entry 'The Forest Hiker' for key 'tours.name'"},
			wantValue: "The Forest Hiker",
			wantOK:    true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			value, okDup := AsDuplicate(tt.err)
			assert.Equal(t, tt.wantOK, okDup)
			assert.Equal(t, tt.wantValue, value)
		})
	}
}

func TestNotFound(t *testing.T) {
	assert.ErrorIs(t, notFound(sql.ErrNoRows), ErrNotFound)

	other := errors.New("driver: bad connection")
	assert.Equal(t, other, notFound(other))
	assert.NoError(t, notFound(nil))
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"The Forest Hiker", "the-forest-hiker"},
		{"  Sea   Explorer  ", "sea-explorer"},
		{"Caño Cristales", "ca-o-cristales"},
		{"100% Wild!", "100-wild"},
		{"", ""},
		{"---", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Slugify(tt.in), "Slugify(%q)", tt.in)
	}
}

func TestPasswordHashRoundTrip(t *testing.T) {
	hash, err := HashPassword("secret123", 4)
	require.NoError(t, err)
	assert.NotEqual(t, "secret123", hash)

	assert.True(t, PasswordMatches(hash, "secret123"))
	assert.False(t, PasswordMatches(hash, "secret124"))
	assert.False(t, PasswordMatches("not-a-bcrypt-hash", "secret123"))
}

func TestPasswordChangedAfter(t *testing.T) {
	issued := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		changedAt sql.NullTime
		want      bool
	}{
		{"never changed", sql.NullTime{}, false},
		{"changed before issue", sql.NullTime{Time: issued.Add(-time.Hour), Valid: true}, false},
		{"changed at issue second", sql.NullTime{Time: issued, Valid: true}, false},
		{"changed after issue", sql.NullTime{Time: issued.Add(time.Second), Valid: true}, true},
		// JWT iat has second granularity; sub-second drift must not log users out.
		{"sub-second drift", sql.NullTime{Time: issued.Add(500 * time.Millisecond), Valid: true}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := User{PasswordChangedAt: tt.changedAt}
			assert.Equal(t, tt.want, u.PasswordChangedAfter(issued))
		})
	}
}
