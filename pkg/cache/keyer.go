package cache

import "strings"

// Keyer generates cache keys.
type Keyer interface {
	// SolutionKey identifies the search result for an instance hash and
	// strategy.
	SolutionKey(instanceHash, strategy string) string

	// ReportKey identifies the verification report of a solution hash
	// against an instance hash.
	ReportKey(instanceHash, solutionHash string) string
}

// DefaultKeyer produces keys of the form kind:sha256(parts).
type DefaultKeyer struct{}

// NewDefaultKeyer creates the default keyer.
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

// SolutionKey implements Keyer.
func (DefaultKeyer) SolutionKey(instanceHash, strategy string) string {
	return hashKey("solution", instanceHash, strategy)
}

// ReportKey implements Keyer.
func (DefaultKeyer) ReportKey(instanceHash, solutionHash string) string {
	return hashKey("report", instanceHash, solutionHash)
}

// KeyType returns the kind prefix of a key produced by a Keyer, skipping any
// scope prefix. It is used to label cache metrics.
func KeyType(key string) string {
	for _, kind := range []string{"solution", "report"} {
		if strings.Contains(key, kind+":") {
			return kind
		}
	}
	return "other"
}
