package cache

// ScopedKeyer wraps a Keyer with a prefix so that several deployments can
// share one Redis without seeing each other's entries.
//
// Example usage:
//
//	keyer := NewScopedKeyer(NewDefaultKeyer(), "staging:")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix.
// The prefix is prepended to all generated keys.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{
		inner:  inner,
		prefix: prefix,
	}
}

// SolutionKey generates a prefixed solution key.
func (k *ScopedKeyer) SolutionKey(instanceHash, strategy string) string {
	return k.prefix + k.inner.SolutionKey(instanceHash, strategy)
}

// ReportKey generates a prefixed report key.
func (k *ScopedKeyer) ReportKey(instanceHash, solutionHash string) string {
	return k.prefix + k.inner.ReportKey(instanceHash, solutionHash)
}
