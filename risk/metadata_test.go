package risk

import (
	"encoding/json"
	"testing"
	"time"
)

func TestMetadataJSONKeepsOrder(t *testing.T) {
	in := `{"Zeta": "1", "Alpha": 2, "Mid": {"a": 1}, "Null": null}`
	var md Metadata
	if err := json.Unmarshal([]byte(in), &md); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	want := []string{"Zeta", "Alpha", "Mid", "Null"}
	keys := md.Keys()
	if len(keys) != len(want) {
		t.Fatalf("unexpected keys %v", keys)
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Fatalf("key %d = %s, want %s", i, keys[i], want[i])
		}
	}
	out, err := json.Marshal(md)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(out) != `{"Zeta":"1","Alpha":2,"Mid":{"a":1},"Null":null}` {
		t.Fatalf("unexpected json %s", out)
	}
}

func TestMetadataSetGet(t *testing.T) {
	var md Metadata
	md.Set("A", 1)
	md.Set("B", "x")
	md.Set("A", 3)
	if len(md) != 2 {
		t.Fatalf("Set should replace, got %v", md)
	}
	if v, ok := md.Get("A"); !ok || v != 3 {
		t.Fatalf("Get(A) = %v, %v", v, ok)
	}
	if _, ok := md.Get("missing"); ok {
		t.Fatal("missing key reported present")
	}
}

func TestFromMapSortsKeys(t *testing.T) {
	md := FromMap(map[string]any{"b": 1, "a": 2})
	if md[0].Key != "a" || md[1].Key != "b" {
		t.Fatalf("unexpected order %v", md.Keys())
	}
}

func TestValueText(t *testing.T) {
	cases := []struct {
		in   any
		want string
	}{
		{nil, ""},
		{"x", "x"},
		{[]byte("raw"), "raw"},
		{42, "42"},
		{true, "true"},
		{json.Number("1.5"), "1.5"},
		{time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC), "2025-01-02 03:04:05"},
		{[]string{"a", "b"}, `["a","b"]`},
		{12.0, "12.0"},
		{float32(0.5), "0.5"},
		{[]float64{12.0, 77.5}, "[12.0, 77.5]"},
		{[]any{1, 2.0}, "[1, 2.0]"},
	}
	for _, tc := range cases {
		if got := ValueText(tc.in); got != tc.want {
			t.Fatalf("ValueText(%v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
