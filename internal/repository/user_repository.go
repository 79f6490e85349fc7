package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"
)

// Roles a user record may carry.
const (
	RoleUser      = "user"
	RoleGuide     = "guide"
	RoleLeadGuide = "lead-guide"
	RoleAdmin     = "admin"
)

// User mirrors the 'users' table. Password material and reset state never
// serialize into responses.
type User struct {
	ID    uint64 `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Photo string `json:"photo,omitempty"`
	Role  string `json:"role"`

	PasswordHash           string         `json:"-"`
	PasswordChangedAt      sql.NullTime   `json:"-"`
	PasswordResetTokenHash sql.NullString `json:"-"`
	PasswordResetExpires   sql.NullTime   `json:"-"`

	Active    bool      `json:"-"`
	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}

// PasswordChangedAfter reports whether the password was mutated after the
// given instant. Comparison is at second granularity to match token
// issued-at precision; a user who never changed their password is never
// stale.
func (u User) PasswordChangedAfter(t time.Time) bool {
	if !u.PasswordChangedAt.Valid {
		return false
	}
	return u.PasswordChangedAt.Time.Unix() > t.Unix()
}

type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

const userColumns = `id, name, email, photo, role, password_hash,
	password_changed_at, password_reset_token_hash, password_reset_expires,
	active, created_at, updated_at`

func scanUser(row *sql.Row) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Photo, &u.Role, &u.PasswordHash,
		&u.PasswordChangedAt, &u.PasswordResetTokenHash, &u.PasswordResetExpires,
		&u.Active, &u.CreatedAt, &u.UpdatedAt)
	return u, notFound(err)
}

// Create inserts a user with role "user" and returns the stored record.
// Unique-email violations propagate as the driver's error for the central
// error handler to rewrite.
func (r *UserRepo) Create(ctx context.Context, name, email, password string, cost int) (User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	hash, err := HashPassword(password, cost)
	if err != nil {
		return User{}, err
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (name, email, role, password_hash) VALUES (?,?,?,?)",
		name, email, RoleUser, hash)
	if err != nil {
		return User{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return User{}, err
	}
	return r.GetByID(ctx, uint64(id))
}

// GetByEmail fetches an active user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email=? AND active=1 LIMIT 1", email))
}

// GetByID fetches an active user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (User, error) {
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? AND active=1 LIMIT 1", id))
}

// GetByResetToken fetches the user whose stored reset-token hash matches and
// whose reset expiry is still in the future. A miss on either condition is
// indistinguishable from the other on purpose.
func (r *UserRepo) GetByResetToken(ctx context.Context, hash string, now time.Time) (User, error) {
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+` FROM users
		 WHERE password_reset_token_hash=? AND password_reset_expires>? AND active=1 LIMIT 1`,
		hash, now.UTC()))
}

// SetResetToken stores the hashed reset secret and its absolute expiry.
func (r *UserRepo) SetResetToken(ctx context.Context, id uint64, hash string, expires time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET password_reset_token_hash=?, password_reset_expires=? WHERE id=?",
		hash, expires.UTC(), id)
	return err
}

// ClearResetToken removes any pending reset state, returning the record to
// its idle lifecycle state.
func (r *UserRepo) ClearResetToken(ctx context.Context, id uint64) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET password_reset_token_hash=NULL, password_reset_expires=NULL WHERE id=?", id)
	return err
}

// UpdatePassword swaps in a new password hash, bumps password_changed_at so
// previously issued tokens go stale, and clears any pending reset state.
func (r *UserRepo) UpdatePassword(ctx context.Context, id uint64, passwordHash string) error {
	_, err := r.DB.ExecContext(ctx,
		`UPDATE users SET password_hash=?, password_changed_at=UTC_TIMESTAMP(),
		 password_reset_token_hash=NULL, password_reset_expires=NULL WHERE id=?`,
		passwordHash, id)
	return err
}

// UpdateProfile changes the self-service fields (name, email, photo). Empty
// values leave the column untouched.
func (r *UserRepo) UpdateProfile(ctx context.Context, id uint64, name, email, photo string) (User, error) {
	_, err := r.DB.ExecContext(ctx,
		`UPDATE users SET
		 name  = COALESCE(NULLIF(?, ''), name),
		 email = COALESCE(NULLIF(?, ''), email),
		 photo = COALESCE(NULLIF(?, ''), photo)
		 WHERE id=?`,
		name, strings.ToLower(strings.TrimSpace(email)), photo, id)
	if err != nil {
		return User{}, err
	}
	return r.GetByID(ctx, id)
}

// Deactivate soft-deletes the account; the row stays for bookings history.
func (r *UserRepo) Deactivate(ctx context.Context, id uint64) error {
	_, err := r.DB.ExecContext(ctx, "UPDATE users SET active=0 WHERE id=?", id)
	return err
}

// List returns all active users (admin listing).
func (r *UserRepo) List(ctx context.Context) ([]User, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE active=1 ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.Photo, &u.Role, &u.PasswordHash,
			&u.PasswordChangedAt, &u.PasswordResetTokenHash, &u.PasswordResetExpires,
			&u.Active, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// AdminUpdate lets an admin change name, email and role.
func (r *UserRepo) AdminUpdate(ctx context.Context, id uint64, name, email, role string) (User, error) {
	_, err := r.DB.ExecContext(ctx,
		`UPDATE users SET
		 name  = COALESCE(NULLIF(?, ''), name),
		 email = COALESCE(NULLIF(?, ''), email),
		 role  = COALESCE(NULLIF(?, ''), role)
		 WHERE id=?`,
		name, strings.ToLower(strings.TrimSpace(email)), role, id)
	if err != nil {
		return User{}, err
	}
	return r.GetByID(ctx, id)
}

// Delete removes a user row entirely (admin only).
func (r *UserRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM users WHERE id=?", id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
