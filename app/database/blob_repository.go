package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/hindustan-founders/hfn-saved/app/saved"
)

var _ BlobRepository = (*blobRepository)(nil)

type blobRepository struct {
	db *DB
}

func NewBlobRepository(db *DB) BlobRepository {
	return &blobRepository{db: db}
}

// GetBlob returns nil data when the key is absent.
func (r *blobRepository) GetBlob(ctx context.Context, key string) ([]byte, error) {
	var data []byte
	err := r.db.QueryRowContext(ctx, "SELECT data FROM blobs WHERE key = ?", key).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get blob %s: %w", key, err)
	}
	return data, nil
}

func (r *blobRepository) PutBlob(ctx context.Context, key string, data []byte) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO blobs (key, data, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT (key) DO UPDATE SET
			data = excluded.data,
			updated_at = excluded.updated_at
	`, key, data, formatTime(time.Now()))

	if err != nil {
		return fmt.Errorf("failed to put blob %s: %w", key, err)
	}

	return nil
}

func (r *blobRepository) DeleteBlob(ctx context.Context, key string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM blobs WHERE key = ?", key)
	if err != nil {
		return fmt.Errorf("failed to delete blob %s: %w", key, err)
	}
	return nil
}

// Persister binds the repository to a single key so a saved.Store can use it
// as its durable backend.
func (r *blobRepository) Persister(key string) saved.Persister {
	return &blobPersister{repo: r, key: key}
}

type blobPersister struct {
	repo *blobRepository
	key  string
}

func (p *blobPersister) Load(ctx context.Context) ([]byte, error) {
	return p.repo.GetBlob(ctx, p.key)
}

func (p *blobPersister) Save(ctx context.Context, data []byte) error {
	return p.repo.PutBlob(ctx, p.key, data)
}
