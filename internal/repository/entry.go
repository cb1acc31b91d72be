package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/klaudly/klaudly/internal/model"
)

var (
	ErrEntryNotFound = errors.New("entry not found")
)

// EntryRepository persists entries in a single flat table. Every lookup is
// scoped by owner; an entry owned by someone else is reported as not found.
type EntryRepository interface {
	Children(ctx context.Context, ownerID string, parentID *string) ([]*model.Entry, error)
	ByID(ctx context.Context, ownerID, id string) (*model.Entry, error)
	Create(ctx context.Context, entry *model.Entry) (*model.Entry, error)
	Update(ctx context.Context, ownerID, id string, patch model.EntryPatch) (*model.Entry, error)
	Delete(ctx context.Context, ownerID, id string) (*model.Entry, error)
}

type entryRepository struct {
	db *sqlx.DB
}

func NewEntryRepository(db *sqlx.DB) EntryRepository {
	return &entryRepository{db: db}
}

func (r *entryRepository) Children(ctx context.Context, ownerID string, parentID *string) ([]*model.Entry, error) {
	entries := []*model.Entry{}

	var err error
	if parentID == nil {
		query := `SELECT * FROM entries WHERE user_id = $1 AND parent_id IS NULL ORDER BY created_at, id`
		err = r.db.SelectContext(ctx, &entries, query, ownerID)
	} else {
		query := `SELECT * FROM entries WHERE user_id = $1 AND parent_id = $2 ORDER BY created_at, id`
		err = r.db.SelectContext(ctx, &entries, query, ownerID, *parentID)
	}
	if err != nil {
		return nil, err
	}

	return entries, nil
}

func (r *entryRepository) ByID(ctx context.Context, ownerID, id string) (*model.Entry, error) {
	return byID(ctx, r.db, ownerID, id)
}

func (r *entryRepository) Create(ctx context.Context, entry *model.Entry) (*model.Entry, error) {
	query := `INSERT INTO entries (id, name, path, size, type, file_url, thumbnail_url, user_id, parent_id,
	                               is_folder, is_starred, is_trash, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	now := timestamp()
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = now
	}
	if entry.UpdatedAt.IsZero() {
		entry.UpdatedAt = entry.CreatedAt
	}

	_, err := r.db.ExecContext(ctx, query,
		entry.ID,
		entry.Name,
		entry.Path,
		entry.Size,
		entry.Type,
		entry.BlobURL,
		entry.ThumbnailURL,
		entry.OwnerID,
		entry.ParentID,
		entry.IsFolder,
		entry.IsStarred,
		entry.IsTrashed,
		entry.CreatedAt,
		entry.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return entry, nil
}

func (r *entryRepository) Update(ctx context.Context, ownerID, id string, patch model.EntryPatch) (*model.Entry, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	entry, err := byID(ctx, tx, ownerID, id)
	if err != nil {
		return nil, err
	}

	if patch.IsStarred != nil {
		entry.IsStarred = *patch.IsStarred
	}

	// updated_at must move forward even when two mutations land within the
	// clock's resolution.
	updatedAt := timestamp()
	if !updatedAt.After(entry.UpdatedAt) {
		updatedAt = entry.UpdatedAt.Add(time.Microsecond)
	}
	entry.UpdatedAt = updatedAt

	query := `UPDATE entries SET is_starred = $1, updated_at = $2 WHERE id = $3 AND user_id = $4`
	result, err := tx.ExecContext(ctx, query, entry.IsStarred, entry.UpdatedAt, id, ownerID)
	if err != nil {
		return nil, err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		return nil, ErrEntryNotFound
	}

	err = tx.Commit()
	if err != nil {
		return nil, fmt.Errorf("failed to commit update: %w", err)
	}

	return entry, nil
}

func (r *entryRepository) Delete(ctx context.Context, ownerID, id string) (*model.Entry, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	entry, err := byID(ctx, tx, ownerID, id)
	if err != nil {
		return nil, err
	}

	query := `DELETE FROM entries WHERE id = $1 AND user_id = $2`
	result, err := tx.ExecContext(ctx, query, id, ownerID)
	if err != nil {
		return nil, err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		return nil, ErrEntryNotFound
	}

	err = tx.Commit()
	if err != nil {
		return nil, fmt.Errorf("failed to commit delete: %w", err)
	}

	return entry, nil
}

func byID(ctx context.Context, q sqlx.QueryerContext, ownerID, id string) (*model.Entry, error) {
	entry := &model.Entry{}
	query := `SELECT * FROM entries WHERE id = $1 AND user_id = $2`

	err := sqlx.GetContext(ctx, q, entry, query, id, ownerID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrEntryNotFound
	}
	if err != nil {
		return nil, err
	}

	return entry, nil
}

// timestamp is truncated to microseconds so values round-trip through both
// SQLite and Postgres unchanged.
func timestamp() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}
