package library

import (
	"context"
	"database/sql"
	"time"
)

type Repository interface {
	ReplaceReference(ctx context.Context, item *MediaItem) error
	Reference(ctx context.Context) (*MediaItem, error)
	AppendRaw(ctx context.Context, items []*MediaItem) error
	RawPool(ctx context.Context) ([]*MediaItem, error)
	Get(ctx context.Context, id string) (*MediaItem, error)
	SetCategory(ctx context.Context, id string, category Category) error
	CategoryCounts(ctx context.Context) (map[Category]int, error)
	CountRaw(ctx context.Context) (int, error)

	GetConfig(ctx context.Context, key string) (string, error)
	SetConfig(ctx context.Context, key, value string) error
}

type SQLiteRepository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const mediaColumns = "id, name, locator, role, size_bytes, category, duration_s, position, created_at"

// ReplaceReference overwrites the single reference slot. The previous
// reference row, if any, is removed in the same transaction.
func (r *SQLiteRepository) ReplaceReference(ctx context.Context, item *MediaItem) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM media_items WHERE role = ?`, RoleReference); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO media_items (`+mediaColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, 0, ?)
	`, item.ID, item.Name, item.Locator, RoleReference, item.SizeBytes,
		nullString(string(item.Category)), nullFloat(item.DurationS),
		item.CreatedAt.Format(time.RFC3339)); err != nil {
		return err
	}

	return tx.Commit()
}

func (r *SQLiteRepository) Reference(ctx context.Context) (*MediaItem, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+mediaColumns+` FROM media_items WHERE role = ?
	`, RoleReference)
	return scanItem(row)
}

// AppendRaw inserts items at the tail of the raw pool, preserving the
// order they were given in.
func (r *SQLiteRepository) AppendRaw(ctx context.Context, items []*MediaItem) error {
	if len(items) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var next int
	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(position), 0) + 1 FROM media_items WHERE role = ?`, RoleRaw,
	).Scan(&next); err != nil {
		return err
	}

	for _, item := range items {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO media_items (`+mediaColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, item.ID, item.Name, item.Locator, RoleRaw, item.SizeBytes,
			nullString(string(item.Category)), nullFloat(item.DurationS),
			next, item.CreatedAt.Format(time.RFC3339)); err != nil {
			return err
		}
		next++
	}

	return tx.Commit()
}

func (r *SQLiteRepository) RawPool(ctx context.Context) ([]*MediaItem, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+mediaColumns+` FROM media_items WHERE role = ? ORDER BY position ASC
	`, RoleRaw)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*MediaItem
	for rows.Next() {
		item, err := scanItemRows(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (r *SQLiteRepository) Get(ctx context.Context, id string) (*MediaItem, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+mediaColumns+` FROM media_items WHERE id = ?
	`, id)
	return scanItem(row)
}

func (r *SQLiteRepository) SetCategory(ctx context.Context, id string, category Category) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE media_items SET category = ? WHERE id = ?`, string(category), id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *SQLiteRepository) CategoryCounts(ctx context.Context) (map[Category]int, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT COALESCE(category, ''), COUNT(*) FROM media_items
		WHERE role = ? GROUP BY category
	`, RoleRaw)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[Category]int)
	for rows.Next() {
		var category string
		var count int
		if err := rows.Scan(&category, &count); err != nil {
			return nil, err
		}
		if category == "" {
			category = string(CategoryUnknown)
		}
		counts[Category(category)] += count
	}
	return counts, rows.Err()
}

func (r *SQLiteRepository) CountRaw(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM media_items WHERE role = ?`, RoleRaw).Scan(&count)
	return count, err
}

func (r *SQLiteRepository) GetConfig(ctx context.Context, key string) (string, error) {
	var value string
	err := r.db.QueryRowContext(ctx, `SELECT value FROM config WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return value, nil
}

func (r *SQLiteRepository) SetConfig(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO config (key, value) VALUES (?, ?)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value
	`, key, value)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row *sql.Row) (*MediaItem, error) {
	item, err := scanItemRows(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return item, err
}

func scanItemRows(row rowScanner) (*MediaItem, error) {
	var item MediaItem
	var category sql.NullString
	var duration sql.NullFloat64
	var position int
	var createdAt string

	err := row.Scan(&item.ID, &item.Name, &item.Locator, &item.Role,
		&item.SizeBytes, &category, &duration, &position, &createdAt)
	if err != nil {
		return nil, err
	}

	item.Category = Category(category.String)
	item.DurationS = duration.Float64
	item.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &item, nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullFloat(f float64) any {
	if f == 0 {
		return nil
	}
	return f
}
