package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/levenlabs/go-lflag"
	"github.com/linkysync/linkysync/pkg/log"
	"github.com/linkysync/linkysync/pkg/types"
)

// FileProvider implements the Database interface with a single JSON
// document on disk. Writes go to a temporary file that is renamed over the
// document so a crash never leaves it half written.
type FileProvider struct {
	path string
}

// NewFileProvider returns a provider persisting to path.
func NewFileProvider(path string) *FileProvider {
	return &FileProvider{path: path}
}

func configuredFile() *FileProvider {
	path := lflag.String("storage-file", "./linky-data.json", "Path of the JSON document when using the file storage provider")

	f := &FileProvider{}

	lflag.Do(func() {
		f.path = *path
	})

	return f
}

// Validate checks if the provider is properly configured.
func (f *FileProvider) Validate() error {
	if f.path == "" {
		return errors.New("storage file path is required")
	}
	return nil
}

// Path returns the document path.
func (f *FileProvider) Path() string {
	return f.path
}

// LoadDataset reads the document. A missing file is an empty dataset.
func (f *FileProvider) LoadDataset(ctx context.Context) (types.Dataset, error) {
	b, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			log.Ctx(ctx).DebugContext(ctx, "dataset file does not exist", slog.String("path", f.path))
			return types.Dataset{}, nil
		}
		return types.Dataset{}, fmt.Errorf("failed to read dataset file: %w", err)
	}
	if len(bytes.TrimSpace(b)) == 0 {
		return types.Dataset{}, nil
	}

	var ds types.Dataset
	if err := json.Unmarshal(b, &ds); err != nil {
		log.Ctx(ctx).WarnContext(ctx, "failed to unmarshal dataset file", slog.String("path", f.path), slog.Any("error", err))
		return types.Dataset{}, fmt.Errorf("%w: %s: %v", ErrInvalidDataset, f.path, err)
	}
	return ds, nil
}

// SaveDataset writes the document pretty-printed with 2 space indentation.
func (f *FileProvider) SaveDataset(ctx context.Context, ds types.Dataset) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(ds); err != nil {
		return fmt.Errorf("failed to marshal dataset: %w", err)
	}

	dir := filepath.Dir(f.path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(f.path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create temporary dataset file: %w", err)
	}
	// no-op once renamed
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write dataset file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write dataset file: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("failed to chmod dataset file: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("failed to replace dataset file: %w", err)
	}

	log.Ctx(ctx).DebugContext(ctx, "saved dataset file", slog.String("path", f.path), slog.Int("size", buf.Len()))
	return nil
}

// Close implements Database. There is nothing to release.
func (f *FileProvider) Close() error {
	return nil
}
