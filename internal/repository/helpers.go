package repository

import (
	"database/sql"
	"strings"
	"time"

	"github.com/alexanderramin/stageflow/internal/domain"
)

// dateLayout is the storage format for date-only columns.
const dateLayout = "2006-01-02"

// parseNullableTime parses a sql.NullString into a *time.Time using the given layout.
// Returns nil if the value is NULL, empty, or fails to parse.
func parseNullableTime(s sql.NullString, layout string) *time.Time {
	if !s.Valid || s.String == "" {
		return nil
	}
	t, err := time.Parse(layout, s.String)
	if err != nil {
		return nil
	}
	return &t
}

// nullableTimeToString converts a *time.Time to a value suitable for SQLite storage.
// Returns nil (SQL NULL) if the pointer is nil, otherwise returns the formatted string.
func nullableTimeToString(t *time.Time, layout string) interface{} {
	if t == nil {
		return nil
	}
	return t.Format(layout)
}

// nullableIntToValue converts a *int to a value suitable for SQLite storage.
func nullableIntToValue(v *int) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

// nullableStatusToString converts a *domain.StageStatus for storage.
func nullableStatusToString(s *domain.StageStatus) interface{} {
	if s == nil {
		return nil
	}
	return string(*s)
}

// parseNullableStatus converts a stored status string back to a pointer.
func parseNullableStatus(s sql.NullString) *domain.StageStatus {
	if !s.Valid || s.String == "" {
		return nil
	}
	st := domain.StageStatus(s.String)
	return &st
}

// boolToInt converts a Go bool to an integer (0 or 1) for SQLite storage.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// intToBool converts a SQLite integer (0 or 1) to a Go bool.
func intToBool(i int) bool {
	return i != 0
}

// isUniqueViolation reports whether err is a SQLite unique-constraint
// failure, e.g. a second pending request for the same stage.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
