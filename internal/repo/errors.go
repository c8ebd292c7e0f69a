// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file centralizes repository-level sentinel errors and
// the unique-violation detection shared by the dedup and billing-event
// repositories.
package repo

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = gorm.ErrRecordNotFound

// ErrDuplicate indicates that a row with the same primary key already exists.
// For dedup keys and billing events this is the normal "already handled"
// outcome, not a failure.
var ErrDuplicate = errors.New("duplicate")

// isUniqueViolation reports whether err is a primary-key/unique-index
// violation. glebarez/sqlite often returns plain-text errors for UNIQUE
// violations, so string matching is needed alongside gorm's sentinel.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	low := strings.ToLower(err.Error())
	return strings.Contains(low, "unique constraint failed") ||
		strings.Contains(low, "constraint failed: unique")
}
