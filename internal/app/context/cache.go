package appctx

import (
	"context"
	"errors"
	"fmt"
)

// ErrTypeMismatch is returned by GetOrFetch when a cached value's type does
// not match the requested type T. This indicates a programming error where
// the same cache key is used with different types.
var ErrTypeMismatch = errors.New("appctx: cached value type mismatch")

// cacheEntry stores the result of a GetOrFetch call, including any error.
// Both successful results and errors are cached to prevent redundant calls
// within the same unit of work.
type cacheEntry struct {
	value any
	err   error
}

// GetOrFetch returns a cached value for the given key, or calls fetchFn to
// fetch and cache it. Both successful results and errors are cached.
//
// The same key must always be used with the same type T. If a cached value
// exists but its type does not match T, GetOrFetch returns ErrTypeMismatch.
// Use DataProvider for type-safe, reusable fetch bindings that prevent this.
//
// fetchFn runs without the cache lock held, so two goroutines missing the
// same key concurrently may both fetch; the first stored result wins. Once
// the context is finalized nothing is cached and fetchFn runs every time.
func GetOrFetch[T any](ctx context.Context, sc *ServiceContext, key string, fetchFn func(ctx context.Context) (T, error)) (T, error) {
	if entry, ok := sc.lookup(key); ok {
		return entryAs[T](key, entry)
	}

	val, err := fetchFn(ctx)
	if sc.IsFinished() {
		return val, err
	}

	entry := sc.store(key, cacheEntry{value: val, err: err})
	return entryAs[T](key, entry)
}

func entryAs[T any](key string, entry cacheEntry) (T, error) {
	var zero T
	if entry.err != nil {
		return zero, entry.err
	}
	if entry.value == nil {
		return zero, nil
	}
	v, ok := entry.value.(T)
	if !ok {
		return zero, fmt.Errorf("%w: key %q holds %T, requested %T", ErrTypeMismatch, key, entry.value, zero)
	}
	return v, nil
}

func (sc *ServiceContext) lookup(key string) (cacheEntry, bool) {
	sc.cacheMu.Lock()
	defer sc.cacheMu.Unlock()
	entry, ok := sc.cache[key]
	return entry, ok
}

// store keeps the first entry written for key and returns the stored entry.
func (sc *ServiceContext) store(key string, entry cacheEntry) cacheEntry {
	sc.cacheMu.Lock()
	defer sc.cacheMu.Unlock()
	if existing, ok := sc.cache[key]; ok {
		return existing
	}
	sc.cache[key] = entry
	return entry
}

// Remember caches value under key, replacing any earlier entry, so later
// GetOrFetch calls observe a write made within this unit of work.
func (sc *ServiceContext) Remember(key string, value any) {
	if sc.IsFinished() {
		return
	}
	sc.cacheMu.Lock()
	defer sc.cacheMu.Unlock()
	sc.cache[key] = cacheEntry{value: value}
}

// Forget drops the entry for key.
func (sc *ServiceContext) Forget(key string) {
	sc.cacheMu.Lock()
	defer sc.cacheMu.Unlock()
	delete(sc.cache, key)
}

func (sc *ServiceContext) clearCache() {
	sc.cacheMu.Lock()
	defer sc.cacheMu.Unlock()
	clear(sc.cache)
}

// DataProvider is a type-safe wrapper around GetOrFetch for a specific data
// type. It binds a cache key and fetch function together, allowing callers
// to retrieve data without specifying the key and function each time.
type DataProvider[T any] struct {
	key     string
	fetchFn func(ctx context.Context) (T, error)
}

// NewDataProvider creates a DataProvider with the given cache key and fetch
// function.
func NewDataProvider[T any](key string, fetchFn func(ctx context.Context) (T, error)) *DataProvider[T] {
	return &DataProvider[T]{key: key, fetchFn: fetchFn}
}

// Get returns the cached value or fetches it using the provider's fetch
// function.
func (p *DataProvider[T]) Get(ctx context.Context, sc *ServiceContext) (T, error) {
	return GetOrFetch(ctx, sc, p.key, p.fetchFn)
}
