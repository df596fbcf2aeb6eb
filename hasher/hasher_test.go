package hasher

import (
	"os"
	"path/filepath"
	"testing"

	"metarisk/logger"
)

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "hash-test")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return path
}

func TestComputeHashes(t *testing.T) {
	logger.Init("info")
	path := writeTemp(t, "hello world")

	hashes := ComputeHashes(path, []string{"md5", "sha1", "sha256", "xxhash", "blake3", "unknown", "md5"})
	if hashes["md5"] != "5eb63bbbe01eeed093cb22bb8f5acdc3" {
		t.Errorf("md5 mismatch: %s", hashes["md5"])
	}
	if hashes["sha1"] != "2aae6c35c94fcfb415dbe95f408b9ce91ee846ed" {
		t.Errorf("sha1 mismatch: %s", hashes["sha1"])
	}
	if hashes["sha256"] != "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9" {
		t.Errorf("sha256 mismatch: %s", hashes["sha256"])
	}
	if len(hashes["xxhash"]) != 16 {
		t.Errorf("xxhash should be 8 bytes hex: %q", hashes["xxhash"])
	}
	if len(hashes["blake3"]) != 64 {
		t.Errorf("blake3 should be 32 bytes hex: %q", hashes["blake3"])
	}
	if _, ok := hashes["unknown"]; ok {
		t.Errorf("unexpected hash for unknown algorithm")
	}
}

func TestComputeHashesMissingFile(t *testing.T) {
	hashes := ComputeHashes(filepath.Join(t.TempDir(), "nope"), []string{"md5"})
	if len(hashes) != 0 {
		t.Fatalf("expected no hashes, got %v", hashes)
	}
}

func TestKnownSet(t *testing.T) {
	list := "# stock images\n" +
		"5EB63BBBE01EEED093CB22BB8F5ACDC3  hello.txt\n" +
		"\n" +
		"b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9\n" +
		"5eb63bbbe01eeed093cb22bb8f5acdc3\n"
	set, err := LoadKnownSet(writeTemp(t, list))
	if err != nil {
		t.Fatalf("LoadKnownSet: %v", err)
	}
	if set.Len() != 2 {
		t.Fatalf("expected 2 digests, got %d", set.Len())
	}
	if !set.Contains("5eb63bbbe01eeed093cb22bb8f5acdc3") {
		t.Fatal("md5 digest not found")
	}
	if set.Contains("00000000000000000000000000000000") {
		t.Fatal("unknown digest reported present")
	}
	digest, ok := set.Match(map[string]string{"sha1": "ffff", "sha256": "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9"})
	if !ok || digest[:4] != "b94d" {
		t.Fatalf("Match = %q, %v", digest, ok)
	}
}

func TestLoadKnownSetRejectsGarbage(t *testing.T) {
	if _, err := LoadKnownSet(writeTemp(t, "not-hex\n")); err == nil {
		t.Fatal("expected error for invalid digest")
	}
	if _, err := LoadKnownSet(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestEmptyKnownSet(t *testing.T) {
	set, err := NewKnownSet(nil)
	if err != nil {
		t.Fatalf("NewKnownSet: %v", err)
	}
	if set.Contains("abcd") {
		t.Fatal("empty set should contain nothing")
	}
	var nilSet *KnownSet
	if _, ok := nilSet.Match(map[string]string{"md5": "abcd"}); ok {
		t.Fatal("nil set should match nothing")
	}
}
