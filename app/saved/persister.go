package saved

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// FilePersister keeps the collection as a single JSON file.
type FilePersister struct {
	path string
}

func NewFilePersister(path string) *FilePersister {
	return &FilePersister{path: path}
}

func (p *FilePersister) Load(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(p.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read saved items file: %w", err)
	}

	return data, nil
}

// Save writes to a temporary file first so a crash never leaves a truncated file behind.
func (p *FilePersister) Save(ctx context.Context, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	dir := filepath.Dir(p.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(p.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write saved items file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close saved items file: %w", err)
	}

	if err := os.Rename(tmp.Name(), p.path); err != nil {
		return fmt.Errorf("replace saved items file: %w", err)
	}

	return nil
}
