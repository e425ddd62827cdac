//go:build !cgo

package store

// go-sqlite3 only defines its error type when built with cgo
func convertSQLiteError(error) (error, bool) { return nil, false }
