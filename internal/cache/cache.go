// Package cache provides a generic LRU cache with TTL, used to memoize
// balance projections between data changes.
package cache

// Cache defines a generic cache interface.
type Cache[T any] interface {
	// Get retrieves a value from the cache.
	Get(key string) (T, bool)

	// Set stores a value in the cache.
	Set(key string, data T)

	// Delete removes a key from the cache.
	Delete(key string)

	// Purge removes every entry.
	Purge()

	// Size returns the current number of items in the cache.
	Size() int
}
