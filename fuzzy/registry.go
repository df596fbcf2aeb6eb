// Package fuzzy provides similarity digests, so near-identical copies of a
// document can be correlated across a scan.
package fuzzy

import (
	"sort"
	"strings"

	"metarisk/logger"
)

// Hasher defines a fuzzy hashing implementation.
type Hasher interface {
	Name() string
	HashFile(path string) (string, error)
}

var registry = map[string]Hasher{}

// Register adds a fuzzy hasher to the registry.
func Register(hasher Hasher) {
	if hasher == nil {
		return
	}
	registry[strings.ToLower(hasher.Name())] = hasher
}

// Lookup returns a registered hasher by name.
func Lookup(name string) (Hasher, bool) {
	hasher, ok := registry[strings.ToLower(name)]
	return hasher, ok
}

// Available returns the sorted names of registered hashers.
func Available() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Compute runs every named hasher over path. Unknown names and files a
// hasher cannot digest are logged at debug and left out.
func Compute(path string, names []string) map[string]string {
	out := make(map[string]string, len(names))
	for _, name := range names {
		h, ok := Lookup(name)
		if !ok {
			logger.Debugf("Unknown fuzzy hash %s", name)
			continue
		}
		digest, err := h.HashFile(path)
		if err != nil {
			logger.Debugf("Fuzzy hash %s failed for %s: %v", name, path, err)
			continue
		}
		out[h.Name()] = digest
	}
	return out
}
