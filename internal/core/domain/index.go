package domain

import (
	"fmt"
	"strings"
)

// FallbackIndexName replaces names that sanitise to nothing.
const FallbackIndexName = "default-index"

// IndexNamePrefix is prepended to source identifiers before sanitisation.
const IndexNamePrefix = "index-"

// AllIndexesToken selects every known index.
const AllIndexesToken = "all"

// SanitizeIndexName lower-cases name, replaces every run of characters
// outside [a-z0-9-] with a single '-', and trims leading and trailing '-'.
// An empty result becomes FallbackIndexName.
func SanitizeIndexName(name string) string {
	lower := strings.ToLower(name)

	var b strings.Builder
	b.Grow(len(lower))
	inRun := false
	for i := 0; i < len(lower); i++ {
		c := lower[i]
		if (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') || c == '-' {
			b.WriteByte(c)
			inRun = false
			continue
		}
		// Multi-byte runes are consumed byte by byte and fold into one run.
		if !inRun {
			b.WriteByte('-')
			inRun = true
		}
	}

	out := strings.Trim(b.String(), "-")
	if out == "" {
		return FallbackIndexName
	}
	return out
}

// IndexNameFor derives the index name for a source identifier.
func IndexNameFor(sourceID string) string {
	return SanitizeIndexName(IndexNamePrefix + sourceID)
}

// Metric is the distance function an index is created with.
type Metric string

const (
	// MetricCosine ranks by cosine similarity, higher first.
	MetricCosine Metric = "cosine"

	// MetricEuclidean ranks by Euclidean distance, lower first.
	MetricEuclidean Metric = "euclidean"
)

// ParseMetric resolves a configured metric name.
func ParseMetric(s string) (Metric, error) {
	switch Metric(strings.ToLower(strings.TrimSpace(s))) {
	case MetricCosine, "":
		return MetricCosine, nil
	case MetricEuclidean, "l2":
		return MetricEuclidean, nil
	default:
		return "", fmt.Errorf("unknown metric %q", s)
	}
}

// IndexSpec describes an index to create.
type IndexSpec struct {
	Name      string
	Dimension int
	Metric    Metric
}

// Target selects the index a query runs against.
type Target struct {
	all  bool
	name string
}

// AllIndexes targets every index known to the store.
func AllIndexes() Target {
	return Target{all: true}
}

// NamedIndex targets a single index.
func NamedIndex(name string) Target {
	return Target{name: name}
}

// ParseTarget maps the reserved token "all" (any case) to AllIndexes
// and anything else to a named index.
func ParseTarget(s string) Target {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, AllIndexesToken) {
		return AllIndexes()
	}
	return NamedIndex(s)
}

// IsAll reports whether t selects every index.
func (t Target) IsAll() bool {
	return t.all
}

// Name returns the selected index name; empty for AllIndexes.
func (t Target) Name() string {
	return t.name
}

// IsZero reports whether no index has been selected.
func (t Target) IsZero() bool {
	return !t.all && t.name == ""
}

func (t Target) String() string {
	if t.all {
		return AllIndexesToken
	}
	return t.name
}
