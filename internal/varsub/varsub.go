// Package varsub implements the `${{prefix.K1.K2...}}` substitution grammar
// used by the job model compiler (over `variables`) and, at runtime, by the
// data store (over `globals` and `cache`).
//
// Grounded on the original server's joblibrary/datastore.py `subtitute()`
// and the `${{variables...}}` regex built in serverengine/jobmodel.py
// write_snippets(): a dotted key path after the prefix, exact-match
// replacement preserving the resolved value's type, partial-match
// replacement stringifying and splicing the resolved value in place.
package varsub

import (
	"fmt"
	"regexp"
	"strings"
)

// RootResolver looks up the first path segment against some root mapping
// (a job's `variables`, a workspace's `globals`, or the runtime cache).
// Missing keys resolve to (nil, false).
type RootResolver func(key string) (any, bool)

// Pattern compiles the regex recognizing `${{prefix.K1.K2...}}` references,
// matching the character class the original uses for keys: word characters
// and hyphens.
func Pattern(prefix string) *regexp.Regexp {
	return regexp.MustCompile(`\$\{\{` + regexp.QuoteMeta(prefix) + `\.([\w-]+(?:\.[\w-]+)*)\}\}`)
}

var (
	VariablesPattern = Pattern("variables")
	GlobalsPattern   = Pattern("globals")
	CachePattern     = Pattern("cache")
)

// Substitute scans value for references matching pattern. If value equals a
// single match exactly, the resolved object is returned unchanged (type
// preserved). Otherwise every match is stringified and spliced into the
// original string, one occurrence at a time, left to right. A value with no
// matches is returned unchanged.
func Substitute(value string, pattern *regexp.Regexp, resolve RootResolver) any {
	matches := pattern.FindAllStringSubmatch(value, -1)
	if matches == nil {
		return value
	}

	result := value
	for _, m := range matches {
		full, keyPath := m[0], m[1]
		resolved := resolveKeyPath(keyPath, resolve)

		if full == value {
			return resolved
		}
		result = strings.Replace(result, full, stringify(resolved), 1)
	}
	return result
}

// resolveKeyPath resolves "K1.K2.K3" by looking up K1 via resolve, then
// drilling into nested map[string]any values for each subsequent key. A
// missing key at any point resolves to nil, matching the original's
// `nv.get(k, None)` walk.
func resolveKeyPath(keyPath string, resolve RootResolver) any {
	keys := strings.Split(keyPath, ".")
	nv, ok := resolve(keys[0])
	if !ok {
		return nil
	}
	for _, k := range keys[1:] {
		m, ok := nv.(map[string]any)
		if !ok {
			return nil
		}
		nv = m[k]
	}
	return nv
}

func stringify(v any) string {
	if v == nil {
		return "None"
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

// MapResolver adapts a map[string]any to a RootResolver.
func MapResolver(m map[string]any) RootResolver {
	return func(key string) (any, bool) {
		v, ok := m[key]
		return v, ok
	}
}
