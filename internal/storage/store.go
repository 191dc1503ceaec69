// Package storage persists the client state blob under a fixed key
package storage

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotFound is returned by Load when nothing is stored under the key
var ErrNotFound = errors.New("key not found")

// Store is a small key/value store holding whole JSON documents
type Store interface {
	// Method Load returns the value stored under key.
	//
	// If nothing is stored under key, ErrNotFound is returned.
	Load(ctx context.Context, key string) ([]byte, error)
	// Method Save replaces the value stored under key.
	Save(ctx context.Context, key string, value []byte) error
	// Method Remove deletes the value stored under key. Removing a missing key is not an error.
	Remove(ctx context.Context, key string) error
	// Method Close releases the underlying resources.
	Close() error
}

// Supported drivers
const (
	DriverSQLite = "sqlite"
	DriverFile   = "file"
	DriverMemory = "memory"
)

// Open returns the store for the given driver name. path is ignored by the memory driver.
func Open(driver, path string) (Store, error) {
	switch driver {
	case DriverSQLite, "":
		s, err := NewSQLiteStore(path)
		if err != nil {
			return nil, err
		}
		return s, nil
	case DriverFile:
		s, err := NewFileStore(path)
		if err != nil {
			return nil, err
		}
		return s, nil
	case DriverMemory:
		return NewMemoryStore(), nil
	}
	return nil, fmt.Errorf("unknown storage driver %q", driver)
}
