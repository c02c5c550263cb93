package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeIndexName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"index-paper", "index-paper"},
		{"Index-My Paper", "index-my-paper"},
		{"index-2401.01234v2", "index-2401-01234v2"},
		{"index-a__b  c", "index-a-b-c"},
		{"--Leading and trailing!!", "leading-and-trailing"},
		{"a--b", "a--b"},
		{"Ünïcödé", "n-c-d"},
		{"", FallbackIndexName},
		{"___", FallbackIndexName},
		{"---", FallbackIndexName},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeIndexName(tt.in))
		})
	}
}

func TestIndexNameFor(t *testing.T) {
	assert.Equal(t, "index-my-paper", IndexNameFor("My_Paper"))
	assert.Equal(t, "index", IndexNameFor(""))
	assert.Equal(t, IndexNameFor("x.y"), IndexNameFor("x.y"))
}

func FuzzSanitizeIndexName(f *testing.F) {
	for _, seed := range []string{"", "index-paper", "Ünïcödé", "a b c", "---", "\x00\xff"} {
		f.Add(seed)
	}

	f.Fuzz(func(t *testing.T, name string) {
		got := SanitizeIndexName(name)

		require.NotEmpty(t, got)
		assert.Equal(t, got, SanitizeIndexName(got), "sanitize must be idempotent")
		assert.False(t, strings.HasPrefix(got, "-"))
		assert.False(t, strings.HasSuffix(got, "-"))
		for _, c := range got {
			valid := (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') || c == '-'
			require.True(t, valid, "unexpected character %q in %q", c, got)
		}
	})
}

func TestParseMetric(t *testing.T) {
	m, err := ParseMetric("")
	require.NoError(t, err)
	assert.Equal(t, MetricCosine, m)

	m, err = ParseMetric(" Euclidean ")
	require.NoError(t, err)
	assert.Equal(t, MetricEuclidean, m)

	_, err = ParseMetric("dotproduct")
	assert.Error(t, err)
}

func TestParseTarget(t *testing.T) {
	all := ParseTarget(" ALL ")
	assert.True(t, all.IsAll())
	assert.Equal(t, "all", all.String())

	named := ParseTarget("index-paper")
	assert.False(t, named.IsAll())
	assert.Equal(t, "index-paper", named.Name())

	assert.True(t, Target{}.IsZero())
	assert.False(t, AllIndexes().IsZero())
}
