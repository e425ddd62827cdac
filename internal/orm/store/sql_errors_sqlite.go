//go:build cgo

package store

import (
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"
)

func convertSQLiteError(err error) (error, bool) {
	var liteErr sqlite3.Error
	if !errors.As(err, &liteErr) {
		return nil, false
	}
	switch liteErr.ExtendedCode {
	case sqlite3.ErrConstraintUnique, sqlite3.ErrConstraintPrimaryKey:
		return fmt.Errorf("%w: %s", ErrConflict, liteErr.Error()), true
	}
	return nil, false
}
