// Package artifacts writes the progressive markdown files that sessions
// keep on disk. Each write replaces the whole file.
package artifacts

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"
)

// Writer writes artifacts below a root output directory.
type Writer struct {
	root string
}

// NewWriter creates a writer rooted at dir.
func NewWriter(dir string) *Writer {
	return &Writer{root: dir}
}

// Root returns the output directory.
func (w *Writer) Root() string { return w.root }

// Path joins rel onto the output directory.
func (w *Writer) Path(rel ...string) string {
	return filepath.Join(append([]string{w.root}, rel...)...)
}

// Write replaces the file at rel with content, creating parent
// directories as needed, and returns its path. The content goes to a
// temporary file first so readers never see a half-written artifact.
func (w *Writer) Write(rel, content string) (string, error) {
	path := w.Path(rel)
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return "", fmt.Errorf("creating temp file in %s: %w", dir, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("closing %s: %w", path, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("chmod %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("replacing %s: %w", path, err)
	}
	return path, nil
}

// Read returns the content of the file at path. A missing file yields an
// empty string and no error.
func Read(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	return string(data), nil
}

// FileStem turns a display name into a file-name stem. Spaces become
// underscores and anything that is not a letter, digit, '-' or '_' is
// dropped, so the stem can never escape the output directory.
func FileStem(name string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(name) {
		switch {
		case r == ' ':
			b.WriteByte('_')
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_':
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "unnamed"
	}
	return b.String()
}
