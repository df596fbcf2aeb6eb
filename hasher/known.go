package hasher

import (
	"bufio"
	"encoding/hex"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/FastFilter/xorfilter"
	"github.com/cespare/xxhash/v2"
)

// KnownSet holds digests of files that should not be analyzed, such as
// stock OS images or vendor documents. The xor filter rejects almost every
// unknown digest; its rare false positives are confirmed against the sorted
// digest list.
type KnownSet struct {
	filter  *xorfilter.Xor8
	digests []string
}

// LoadKnownSet reads one hex digest per line. Blank lines and lines starting
// with # are ignored. Anything after the first whitespace on a line is
// dropped, so sha256sum-style listings load as-is.
func LoadKnownSet(path string) (*KnownSet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open known hashes: %w", err)
	}
	defer f.Close()

	var digests []string
	scanner := bufio.NewScanner(f)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		digest := strings.ToLower(strings.Fields(text)[0])
		if _, err := hex.DecodeString(digest); err != nil {
			return nil, fmt.Errorf("known hashes line %d: invalid digest %q", line, digest)
		}
		digests = append(digests, digest)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read known hashes: %w", err)
	}
	return NewKnownSet(digests)
}

// NewKnownSet builds a set from hex digests.
func NewKnownSet(digests []string) (*KnownSet, error) {
	uniq := make(map[string]struct{}, len(digests))
	for _, d := range digests {
		uniq[strings.ToLower(strings.TrimSpace(d))] = struct{}{}
	}
	delete(uniq, "")

	set := &KnownSet{digests: make([]string, 0, len(uniq))}
	keys := make([]uint64, 0, len(uniq))
	for d := range uniq {
		set.digests = append(set.digests, d)
		keys = append(keys, xxhash.Sum64String(d))
	}
	sort.Strings(set.digests)
	if len(keys) == 0 {
		return set, nil
	}
	keys = dedupeKeys(keys)
	filter, err := xorfilter.Populate(keys)
	if err != nil {
		return nil, fmt.Errorf("build known hash filter: %w", err)
	}
	set.filter = filter
	return set, nil
}

func dedupeKeys(keys []uint64) []uint64 {
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	out := keys[:0]
	for i, k := range keys {
		if i == 0 || k != keys[i-1] {
			out = append(out, k)
		}
	}
	return out
}

// Len reports the number of distinct digests.
func (k *KnownSet) Len() int {
	if k == nil {
		return 0
	}
	return len(k.digests)
}

// Contains reports whether digest is in the set.
func (k *KnownSet) Contains(digest string) bool {
	if k == nil || k.filter == nil {
		return false
	}
	digest = strings.ToLower(digest)
	if !k.filter.Contains(xxhash.Sum64String(digest)) {
		return false
	}
	i := sort.SearchStrings(k.digests, digest)
	return i < len(k.digests) && k.digests[i] == digest
}

// Match returns the first digest in hashes that is known.
func (k *KnownSet) Match(hashes map[string]string) (string, bool) {
	if k.Len() == 0 {
		return "", false
	}
	for _, algo := range Supported {
		if digest, ok := hashes[algo]; ok && k.Contains(digest) {
			return digest, true
		}
	}
	return "", false
}
