// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// services and handlers to distinguish between different failure
// scenarios. ErrConflict signals that an operation cannot proceed due to
// existing dependent or duplicate records, and ErrLockConflict marks a
// transaction that lost a row-lock race and may be retried.
package repository

import (
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
)

// ErrConflict is returned when a write cannot be performed because of
// conflicting state, such as a duplicate ticket type label or deleting
// a venue that still hosts events.
var ErrConflict = errors.New("conflict")

// ErrLockConflict is returned when MySQL aborted a statement because a
// row lock could not be acquired in time or a deadlock was detected.
// The whole transaction has been rolled back and is safe to retry.
var ErrLockConflict = errors.New("lock conflict")

// MySQL server error numbers the repositories react to.
const (
	mysqlErrDuplicateEntry  = 1062
	mysqlErrLockWaitTimeout = 1205
	mysqlErrDeadlock        = 1213
	mysqlErrRowIsReferenced = 1451
	mysqlErrNoReferencedRow = 1452
)

func mysqlNumber(err error) uint16 {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number
	}
	return 0
}

// IsLockConflict reports whether err is a lock wait timeout or deadlock.
func IsLockConflict(err error) bool {
	if errors.Is(err, ErrLockConflict) {
		return true
	}
	switch mysqlNumber(err) {
	case mysqlErrLockWaitTimeout, mysqlErrDeadlock:
		return true
	}
	return false
}

func isDuplicateEntry(err error) bool { return mysqlNumber(err) == mysqlErrDuplicateEntry }

func isForeignKeyViolation(err error) bool {
	switch mysqlNumber(err) {
	case mysqlErrRowIsReferenced, mysqlErrNoReferencedRow:
		return true
	}
	return false
}

// classify tags lock conflicts with ErrLockConflict and leaves every
// other error untouched.
func classify(err error) error {
	if err == nil || errors.Is(err, ErrLockConflict) {
		return err
	}
	if IsLockConflict(err) {
		return fmt.Errorf("%w: %w", ErrLockConflict, err)
	}
	return err
}
