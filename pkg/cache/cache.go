// Package cache stores extraction results between runs.
//
// A handler that implements detect.Fingerprinted declares the files its
// extraction depends on. The orchestrator hashes their content into a key
// with a [Keyer] and stores the serialized extraction in a [Cache]. A later
// run over unchanged files skips the handler's Extract phase entirely.
//
// Three backends are available: [NullCache] (caching disabled),
// [FileCache] (the CLI default, under the user cache directory) and
// [RedisCache] (shared between CI workers).
package cache

import (
	"context"
	"time"
)

// Cache is a byte-oriented key/value store with optional expiry.
type Cache interface {
	// Get returns the value for key and whether it was present.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores data under key. A zero ttl means no expiry.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// Close releases the backend's resources.
	Close() error
}

// Keyer derives cache keys.
type Keyer interface {
	// ExtractionKey identifies the extraction rule produced for the
	// directory relDir given the fingerprint of its inputs.
	ExtractionKey(rule, relDir, fingerprint string) string
}

// DefaultKeyer generates content-addressed keys.
type DefaultKeyer struct {
	// Version is mixed into every key so a new release does not read
	// entries written in an older format.
	Version string
}

// NewDefaultKeyer creates a DefaultKeyer for the given format version.
func NewDefaultKeyer(version string) Keyer {
	return &DefaultKeyer{Version: version}
}

// ExtractionKey implements Keyer.
func (k *DefaultKeyer) ExtractionKey(rule, relDir, fingerprint string) string {
	return hashKey("extraction", k.Version, rule, relDir, fingerprint)
}

var _ Keyer = (*DefaultKeyer)(nil)
