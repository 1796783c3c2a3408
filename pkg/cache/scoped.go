package cache

// ScopedKeyer wraps a Keyer with a prefix, isolating scans that share a
// backend (one namespace per repository in a shared Redis, for example).
//
//	keyer := NewScopedKeyer(NewDefaultKeyer("v1"), "repo:acme/web:")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix.
// The prefix is prepended to all generated keys.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer("")
	}
	return &ScopedKeyer{
		inner:  inner,
		prefix: prefix,
	}
}

// ExtractionKey generates a prefixed extraction key.
func (k *ScopedKeyer) ExtractionKey(rule, relDir, fingerprint string) string {
	return k.prefix + k.inner.ExtractionKey(rule, relDir, fingerprint)
}
