package ports

import (
	"errors"
	"fmt"
)

// Errors shared by adapters that sit behind the translation, judge and cache
// boundaries.
var (
	// ErrMissingCredential indicates that a method or judge has no API key
	// configured. Methods failing with it are reported as unavailable.
	ErrMissingCredential = errors.New("missing credential")

	// ErrInvalidResponse indicates that an external service answered but the
	// answer could not be used, for example an empty translation list.
	ErrInvalidResponse = errors.New("invalid response")

	// ErrCacheMiss indicates that a key is not present in the cache.
	ErrCacheMiss = errors.New("cache miss")

	// ErrCacheCorrupted indicates that cached data is corrupted or invalid.
	ErrCacheCorrupted = errors.New("cache corrupted")
)

// CacheError represents an error from cache operations.
// It includes the key and operation that failed.
type CacheError struct {
	// Key is the cache key that was involved in the failed operation.
	Key string

	// Operation is the name of the cache operation that failed.
	Operation string

	// Err is the underlying error that caused the cache operation to fail.
	Err error
}

// Error implements the error interface for CacheError.
func (e *CacheError) Error() string {
	return fmt.Sprintf("cache error: operation=%s, key=%s, err=%v", e.Operation, e.Key, e.Err)
}

// Unwrap returns the underlying error.
func (e *CacheError) Unwrap() error { return e.Err }

// NewCacheError creates a new CacheError with the given details.
func NewCacheError(key, operation string, err error) *CacheError {
	return &CacheError{
		Key:       key,
		Operation: operation,
		Err:       err,
	}
}
