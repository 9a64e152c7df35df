package storage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"ducksearch/ducksearch/utils/types"
)

func TestSanitizeFilename(t *testing.T) {
	now := time.Unix(1700000000, 0)
	cases := map[string]string{
		"":                  "results_1700000000.json",
		"   ":               "results_1700000000.json",
		"cats":              "cats.json",
		"cats.json":         "cats.json",
		"../../etc/passwd":  "passwd.json",
		`..\windows\evil`:   "evil.json",
		"my results 2024":   "my_results_2024.json",
		"we$ird*name?.json": "weirdname.json",
		".json":             "results_1700000000.json",
		".hidden":           "hidden.json",
	}
	for in, want := range cases {
		if got := SanitizeFilename(in, now); got != want {
			t.Errorf("SanitizeFilename(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestWriteIsAtomicAndReadable(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "static", "results")
	store := NewFileStore(dir)

	results := []types.NormalizedResult{{Title: "Rust", URL: "https://www.rust-lang.org/", Hostname: "www.rust-lang.org"}}
	data, err := EncodeResults(results)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	path, err := store.Write("rust.json", data)
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	if path != filepath.Join(dir, "rust.json") {
		t.Errorf("unexpected path %q", path)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	var decoded []types.NormalizedResult
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(decoded) != 1 || decoded[0].Title != "Rust" {
		t.Errorf("unexpected content %+v", decoded)
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("expected no temp files left behind, found %d entries", len(entries))
	}

	// overwrite keeps a single file with the new content
	if _, err := store.Write("rust.json", []byte("[]")); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	raw, _ = os.ReadFile(path)
	if string(raw) != "[]" {
		t.Errorf("expected overwritten content, got %q", raw)
	}
}

func TestEncodeNilResults(t *testing.T) {
	data, err := EncodeResults(nil)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if string(data) != "[]\n" {
		t.Errorf("expected an empty array, got %q", data)
	}

	data, _ = EncodeResults([]types.NormalizedResult{{Title: "Café <b>&</b>"}})
	if !strings.Contains(string(data), `"title": "Café <b>&</b>"`) {
		t.Errorf("expected unescaped text, got %s", data)
	}
}
