// Package archive packages organized documents into a zip bundle.
package archive

import (
	"archive/zip"
	"bytes"
	"fmt"
	"path"
)

// Entry is a single file placed inside a labeled folder of the bundle.
type Entry struct {
	Folder   string
	Filename string
	Content  []byte
}

// Build writes entries into an in-memory zip, one directory per folder.
func Build(entries []Entry) ([]byte, error) {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)

	for _, e := range entries {
		name := path.Join(sanitizeComponent(e.Folder), e.Filename)
		f, err := w.Create(name)
		if err != nil {
			return nil, fmt.Errorf("failed to create zip entry %s: %w", name, err)
		}
		if _, err := f.Write(e.Content); err != nil {
			return nil, fmt.Errorf("failed to write zip entry %s: %w", name, err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize zip: %w", err)
	}

	return buf.Bytes(), nil
}

// sanitizeComponent keeps model-generated folder names from escaping the
// bundle root or producing nested paths.
func sanitizeComponent(folder string) string {
	cleaned := make([]rune, 0, len(folder))
	for _, r := range folder {
		switch r {
		case '/', '\\':
			cleaned = append(cleaned, '-')
		default:
			cleaned = append(cleaned, r)
		}
	}
	out := string(cleaned)
	if out == "" || out == "." || out == ".." {
		return "Misc"
	}
	return out
}
