// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file holds the error values and classifiers shared
// by the repository functions.
package repo

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// ErrDuplicate indicates that a row with the same unique key already exists.
var ErrDuplicate = errors.New("duplicate")

// ErrGuardFailed is returned by guarded updates whose WHERE clause matched no
// row: the balance, counter or status no longer satisfied the precondition.
var ErrGuardFailed = errors.New("guarded update matched no rows")

// IsDuplicate reports whether err is a UNIQUE constraint violation.
// glebarez/sqlite often returns plain-text errors for these.
func IsDuplicate(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrDuplicate) || errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	low := strings.ToLower(err.Error())
	return strings.Contains(low, "unique constraint failed") ||
		strings.Contains(low, "constraint failed: unique")
}

// IsConflict reports whether err is a SQLite concurrency error (SQLITE_BUSY,
// "database is locked", or a shared-cache table lock). Such errors are
// safe to retry from the top of the transaction.
func IsConflict(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") ||
		strings.Contains(msg, "SQLITE_LOCKED") ||
		strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "database table is locked")
}
