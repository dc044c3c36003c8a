package repo

import (
	"database/sql"
	"errors"
	"strings"
)

// Repo provides hand-written SQL access to the guildhall store.
type Repo struct {
	DB *sql.DB
}

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
)

// TranslateConstraint maps store-level constraint violations (uniqueness,
// checks) to ErrConflict so callers surface a stable kind instead of a
// driver-specific fault.
func TranslateConstraint(err error) error {
	if err == nil {
		return nil
	}
	if strings.Contains(err.Error(), "constraint failed") {
		return ErrConflict
	}
	return err
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func nullableStringPtr(v *string) any {
	if v == nil {
		return nil
	}
	if *v == "" {
		return nil
	}
	return *v
}

func nullableFloatPtr(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}
