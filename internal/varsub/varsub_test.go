package varsub

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSubstitute_ExactMatchPreservesType(t *testing.T) {
	vars := map[string]any{
		"x": map[string]any{"y": 42},
	}
	resolve := MapResolver(vars)

	got := Substitute("${{variables.x.y}}", VariablesPattern, resolve)
	require.Equal(t, 42, got)
}

func TestSubstitute_PartialMatchSplicesStringified(t *testing.T) {
	vars := map[string]any{
		"x": map[string]any{"y": 42},
	}
	resolve := MapResolver(vars)

	got := Substitute("value is ${{variables.x.y}} units", VariablesPattern, resolve)
	require.Equal(t, "value is 42 units", got)
}

func TestSubstitute_NoMatchPassesThrough(t *testing.T) {
	resolve := MapResolver(map[string]any{})
	got := Substitute("plain string", VariablesPattern, resolve)
	require.Equal(t, "plain string", got)
}

func TestSubstitute_MissingKeyResolvesToNil(t *testing.T) {
	resolve := MapResolver(map[string]any{})
	got := Substitute("${{variables.missing.key}}", VariablesPattern, resolve)
	require.Nil(t, got)
}

func TestSubstitute_MissingKeyInPartialMatchStringifiesNone(t *testing.T) {
	resolve := MapResolver(map[string]any{})
	got := Substitute("x=${{variables.missing}}", VariablesPattern, resolve)
	require.Equal(t, "x=None", got)
}

func TestSubstitute_GlobalsAndCachePrefixesAreDistinct(t *testing.T) {
	resolve := MapResolver(map[string]any{"host": "example.com"})

	got := Substitute("${{globals.host}}", GlobalsPattern, resolve)
	require.Equal(t, "example.com", got)

	// The globals pattern must not match a cache-prefixed reference.
	same := Substitute("${{cache.host}}", GlobalsPattern, resolve)
	require.Equal(t, "${{cache.host}}", same)
}
