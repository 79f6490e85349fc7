// Package repository implements persistence over MySQL. This file is the
// adapter between the driver's native failure shapes and errors the rest of
// the application can reason about.
package repository

import (
	"database/sql"
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
)

// ErrNotFound is returned by lookups when no row matches. Handlers decide
// what "not found" means for their resource and message.
var ErrNotFound = errors.New("record not found")

// notFound maps the driver's no-rows sentinel onto ErrNotFound and leaves
// every other error untouched.
func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// AsDuplicate recognizes a MySQL unique-constraint violation (error 1062)
// and extracts the duplicated value from the driver message, which has the
// form: Duplicate entry 'a@b.com' for key 'users.email'.
func AsDuplicate(err error) (string, bool) {
	var me *mysql.MySQLError
	if !errors.As(err, &me) || me.Number != 1062 {
		return "", false
	}
	msg := me.Message
	first := strings.Index(msg, "'")
	if first == -1 {
		return "", true
	}
	second := strings.Index(msg[first+1:], "'")
	if second == -1 {
		return "", true
	}
	return msg[first+1 : first+1+second], true
}
