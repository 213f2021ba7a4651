package export

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"bgmexport/internal/catalog"
	"bgmexport/internal/services"
)

// WriteFiles renders every requested format into dir and returns the written
// paths. All documents are rendered before any file is touched, and each file
// is replaced atomically.
func WriteFiles(dir string, format Format, records []catalog.Record, detail bool) ([]string, error) {
	type document struct {
		name string
		data []byte
	}
	var docs []document
	if format.IncludesCSV() {
		var buf bytes.Buffer
		if err := WriteCSV(&buf, records, detail); err != nil {
			return nil, fmt.Errorf("render csv: %w", err)
		}
		docs = append(docs, document{CSVFileName, buf.Bytes()})
	}
	if format.IncludesJSON() {
		var buf bytes.Buffer
		if err := WriteJSON(&buf, records); err != nil {
			return nil, fmt.Errorf("render json: %w", err)
		}
		docs = append(docs, document{JSONFileName, bytes.TrimRight(buf.Bytes(), "\n")})
	}
	if len(docs) == 0 {
		return nil, services.Wrap(services.ErrConfiguration, "export", "write files", "no output format selected", nil)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}
	paths := make([]string, 0, len(docs))
	for _, doc := range docs {
		path := filepath.Join(dir, doc.name)
		if err := writeFileAtomic(path, doc.data); err != nil {
			return paths, fmt.Errorf("write %s: %w", doc.name, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}
