package snippetruntime

import (
	"regexp"
	"sync"

	"github.com/mattjoyce/automationd/internal/varsub"
)

// DataStore is the process-wide (one per runner process) cache and
// variable-substitution pipeline. Grounded on joblibrary/datastore.py's
// JobCache and module-level Variables/Globals accessors.
type DataStore struct {
	mu    sync.Mutex
	cache map[string]any
}

func NewDataStore() *DataStore {
	return &DataStore{cache: make(map[string]any)}
}

// Capture runs regex against text under DOTALL semantics and merges any
// named capture groups into the cache.
func (ds *DataStore) Capture(text, regex string) error {
	re, err := regexp.Compile("(?s)" + regex)
	if err != nil {
		return err
	}
	match := re.FindStringSubmatch(text)
	if match == nil {
		return nil
	}
	names := re.SubexpNames()
	ds.mu.Lock()
	defer ds.mu.Unlock()
	for i, name := range names {
		if name == "" || i >= len(match) {
			continue
		}
		ds.cache[name] = match[i]
	}
	return nil
}

func (ds *DataStore) Set(name string, value any) {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	ds.cache[name] = value
}

func (ds *DataStore) Get(name string, def any) any {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	if v, ok := ds.cache[name]; ok {
		return v
	}
	return def
}

func (ds *DataStore) Delete(name string) {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	delete(ds.cache, name)
}

func (ds *DataStore) All() map[string]any {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	out := make(map[string]any, len(ds.cache))
	for k, v := range ds.cache {
		out[k] = v
	}
	return out
}

func (ds *DataStore) Reset() {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	ds.cache = make(map[string]any)
}

func (ds *DataStore) resolver() varsub.RootResolver {
	return func(key string) (any, bool) {
		ds.mu.Lock()
		defer ds.mu.Unlock()
		v, ok := ds.cache[key]
		return v, ok
	}
}

// ResolveVariable applies the §4.F access-time substitution pipeline to a
// snippet's own variable value: first against globals, then against the
// cache, exactly as datastore.py's Variables.get chains the two regexes.
// Non-string values pass through unchanged.
func ResolveVariable(value any, globals map[string]any, ds *DataStore) any {
	s, ok := value.(string)
	if !ok {
		return value
	}
	v := varsub.Substitute(s, varsub.GlobalsPattern, varsub.MapResolver(globals))
	if s2, ok := v.(string); ok {
		v = varsub.Substitute(s2, varsub.CachePattern, ds.resolver())
	}
	return v
}
