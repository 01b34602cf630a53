// Package storage holds the key-value blob stores that persist profile
// snapshots.
package storage

import "fmt"

// Store drivers.
const (
	DriverFile   = "file"
	DriverSQLite = "sqlite"
)

// Provider is a key-value blob store. Values are written wholesale.
type Provider interface {
	// Get returns the value stored under key, or an error wrapping
	// apperr.ErrNotFound when there is none.
	Get(key string) ([]byte, error)
	// Put atomically replaces the value stored under key.
	Put(key string, value []byte) error
	// Close releases the store.
	Close() error
}

// Open opens the store for driver at path. For DriverFile path is a
// directory (created if missing); for DriverSQLite it is a database file.
func Open(driver, path string) (Provider, error) {
	switch driver {
	case DriverFile, "":
		return NewFS(path)
	case DriverSQLite:
		return OpenSQLite(path)
	default:
		return nil, fmt.Errorf("storage: unknown driver %q", driver)
	}
}
