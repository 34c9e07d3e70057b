package repositories

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// ErrNotFound is returned when the requested row does not exist.
var ErrNotFound = errors.New("record not found")

// queryTimeout bounds every single-table read.
const queryTimeout = 5 * time.Second

// wrap maps gorm's not-found error to ErrNotFound and adds context to the rest.
func wrap(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) || errors.Is(err, ErrNotFound) {
		return ErrNotFound
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// affected turns a zero-row write into ErrNotFound.
func affected(res *gorm.DB, format string, args ...interface{}) error {
	if res.Error != nil {
		return wrap(res.Error, format, args...)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func timeKey(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format(time.RFC3339)
}
