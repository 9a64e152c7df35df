package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"ducksearch/ducksearch/utils/jsonutils"
	"ducksearch/ducksearch/utils/types"
)

// FileStore writes saved result sets under a single directory.
type FileStore struct {
	dir string
}

func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

func (s *FileStore) Dir() string { return s.dir }

// EncodeResults renders results the way they are persisted: indented JSON
// with non-ASCII and html characters left as they are.
func EncodeResults(results []types.NormalizedResult) ([]byte, error) {
	if results == nil {
		results = []types.NormalizedResult{}
	}
	return jsonutils.Pretty(results)
}

// SanitizeFilename reduces name to a safe base name ending in .json. An empty
// name becomes results_<unix>.json.
func SanitizeFilename(name string, now time.Time) string {
	name = filepath.Base(strings.TrimSpace(strings.ReplaceAll(name, `\`, "/")))
	name = strings.Map(func(r rune) rune {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), r == '-', r == '_', r == '.':
			return r
		case unicode.IsSpace(r):
			return '_'
		}
		return -1
	}, name)
	name = strings.TrimLeft(strings.TrimSuffix(name, ".json"), ".")
	if name == "" {
		return fmt.Sprintf("results_%d.json", now.Unix())
	}
	return name + ".json"
}

// Write stores data under name atomically: a temp file in the same directory
// is renamed over the target.
func (s *FileStore) Write(name string, data []byte) (string, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("create results dir: %w", err)
	}
	tmp, err := os.CreateTemp(s.dir, ".save-*.tmp")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return "", fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return "", fmt.Errorf("chmod temp file: %w", err)
	}

	target := filepath.Join(s.dir, name)
	if err := os.Rename(tmpName, target); err != nil {
		return "", fmt.Errorf("rename into place: %w", err)
	}
	return target, nil
}
