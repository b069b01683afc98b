package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"go-form-editor/internal/model"
)

// EntryRepository stores entries with one entry_meta row per input value.
type EntryRepository struct {
	pool *pgxpool.Pool
}

func NewEntryRepository(pool *pgxpool.Pool) *EntryRepository {
	return &EntryRepository{pool: pool}
}

func (r *EntryRepository) GetEntry(ctx context.Context, id int64) (*model.Entry, error) {
	var e model.Entry
	err := r.pool.QueryRow(ctx,
		`SELECT id, form_id, created_by, status, source_url, date_created, date_updated
		 FROM entries WHERE id = $1`, id).
		Scan(&e.ID, &e.FormID, &e.CreatedBy, &e.Status, &e.SourceURL, &e.DateCreated, &e.DateUpdated)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, model.ErrEntryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find entry by id: %w", err)
	}

	values, err := r.loadMeta(ctx, []int64{e.ID})
	if err != nil {
		return nil, err
	}
	e.Values = values[e.ID]
	if e.Values == nil {
		e.Values = map[string]string{}
	}

	return &e, nil
}

func (r *EntryRepository) ListEntries(ctx context.Context, formID int64, filter model.EntryFilter, sorting model.EntrySorting, paging model.Paging) ([]*model.Entry, error) {
	direction := "DESC"
	if strings.EqualFold(sorting.Direction, model.SortAsc) {
		direction = "ASC"
	}

	query := `SELECT id, form_id, created_by, status, source_url, date_created, date_updated
		FROM entries
		WHERE form_id = $1
		  AND ($2 = '' OR status = $2)
		  AND ($3 = '' OR created_by = $3)
		ORDER BY date_created ` + direction + `, id ` + direction + `
		OFFSET $4`
	args := []any{formID, string(filter.Status), filter.CreatedBy, max(paging.Offset, 0)}
	if paging.PageSize > 0 {
		query += ` LIMIT $5`
		args = append(args, paging.PageSize)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()

	entries := make([]*model.Entry, 0)
	ids := make([]int64, 0)
	for rows.Next() {
		var e model.Entry
		if err := rows.Scan(&e.ID, &e.FormID, &e.CreatedBy, &e.Status, &e.SourceURL, &e.DateCreated, &e.DateUpdated); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		entries = append(entries, &e)
		ids = append(ids, e.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entries: %w", err)
	}

	values, err := r.loadMeta(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		e.Values = values[e.ID]
		if e.Values == nil {
			e.Values = map[string]string{}
		}
	}

	return entries, nil
}

func (r *EntryRepository) CreateEntry(ctx context.Context, entry *model.Entry) (*model.Entry, error) {
	stored := entry.Clone()
	if stored.Status == "" {
		stored.Status = model.EntryActive
	}
	now := time.Now().UTC()
	if stored.DateCreated.IsZero() {
		stored.DateCreated = now
	}
	if stored.DateUpdated.IsZero() {
		stored.DateUpdated = stored.DateCreated
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin create entry: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var exists bool
	if err := tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM forms WHERE id = $1)`, stored.FormID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("check form exists: %w", err)
	}
	if !exists {
		return nil, model.ErrFormNotFound
	}

	err = tx.QueryRow(ctx,
		`INSERT INTO entries (form_id, created_by, status, source_url, date_created, date_updated)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id`,
		stored.FormID, stored.CreatedBy, stored.Status, stored.SourceURL, stored.DateCreated, stored.DateUpdated).
		Scan(&stored.ID)
	if err != nil {
		return nil, fmt.Errorf("create entry: %w", err)
	}

	if err := writeMeta(ctx, tx, stored.ID, stored.Values); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit create entry: %w", err)
	}
	return stored, nil
}

// UpdateEntry replaces the values of an existing entry. Form, creator and
// creation date are never changed.
func (r *EntryRepository) UpdateEntry(ctx context.Context, entry *model.Entry) error {
	updated := entry.DateUpdated
	if updated.IsZero() {
		updated = time.Now().UTC()
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin update entry: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	status := entry.Status
	if status == "" {
		status = model.EntryActive
	}

	tag, err := tx.Exec(ctx,
		`UPDATE entries SET status = $2, source_url = $3, date_updated = $4 WHERE id = $1`,
		entry.ID, status, entry.SourceURL, updated)
	if err != nil {
		return fmt.Errorf("update entry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrEntryNotFound
	}

	if _, err := tx.Exec(ctx, `DELETE FROM entry_meta WHERE entry_id = $1`, entry.ID); err != nil {
		return fmt.Errorf("clear entry meta: %w", err)
	}
	if err := writeMeta(ctx, tx, entry.ID, entry.Values); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit update entry: %w", err)
	}
	return nil
}

// GetMeta returns the stored value of one input. A missing key is an empty value.
func (r *EntryRepository) GetMeta(ctx context.Context, entryID int64, key string) (string, error) {
	var value string
	err := r.pool.QueryRow(ctx,
		`SELECT e.id, COALESCE(m.meta_value, '')
		 FROM entries e
		 LEFT JOIN entry_meta m ON m.entry_id = e.id AND m.meta_key = $2
		 WHERE e.id = $1`, entryID, key).
		Scan(new(int64), &value)

	if errors.Is(err, pgx.ErrNoRows) {
		return "", model.ErrEntryNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get entry meta: %w", err)
	}
	return value, nil
}

func (r *EntryRepository) AddNote(ctx context.Context, note model.Note) (model.Note, error) {
	if note.DateCreated.IsZero() {
		note.DateCreated = time.Now().UTC()
	}

	err := r.pool.QueryRow(ctx,
		`INSERT INTO entry_notes (entry_id, user_id, user_name, value, date_created)
		 SELECT id, $2, $3, $4, $5 FROM entries WHERE id = $1
		 RETURNING id`,
		note.EntryID, note.UserID, note.UserName, note.Value, note.DateCreated).
		Scan(&note.ID)

	if errors.Is(err, pgx.ErrNoRows) {
		return model.Note{}, model.ErrEntryNotFound
	}
	if err != nil {
		return model.Note{}, fmt.Errorf("add entry note: %w", err)
	}
	return note, nil
}

func (r *EntryRepository) ListNotes(ctx context.Context, entryID int64) ([]model.Note, error) {
	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM entries WHERE id = $1)`, entryID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("check entry exists: %w", err)
	}
	if !exists {
		return nil, model.ErrEntryNotFound
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id, entry_id, user_id, user_name, value, date_created
		 FROM entry_notes WHERE entry_id = $1 ORDER BY date_created, id`, entryID)
	if err != nil {
		return nil, fmt.Errorf("list entry notes: %w", err)
	}
	defer rows.Close()

	notes := make([]model.Note, 0)
	for rows.Next() {
		var n model.Note
		if err := rows.Scan(&n.ID, &n.EntryID, &n.UserID, &n.UserName, &n.Value, &n.DateCreated); err != nil {
			return nil, fmt.Errorf("scan entry note: %w", err)
		}
		notes = append(notes, n)
	}
	return notes, rows.Err()
}

func (r *EntryRepository) loadMeta(ctx context.Context, ids []int64) (map[int64]map[string]string, error) {
	out := make(map[int64]map[string]string, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	rows, err := r.pool.Query(ctx,
		`SELECT entry_id, meta_key, meta_value FROM entry_meta WHERE entry_id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("load entry meta: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id         int64
			key, value string
		)
		if err := rows.Scan(&id, &key, &value); err != nil {
			return nil, fmt.Errorf("scan entry meta: %w", err)
		}
		if out[id] == nil {
			out[id] = make(map[string]string)
		}
		out[id][key] = value
	}
	return out, rows.Err()
}

func writeMeta(ctx context.Context, tx pgx.Tx, entryID int64, values map[string]string) error {
	if len(values) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for key, value := range values {
		batch.Queue(`INSERT INTO entry_meta (entry_id, meta_key, meta_value) VALUES ($1, $2, $3)`, entryID, key, value)
	}

	results := tx.SendBatch(ctx, batch)
	for range values {
		if _, err := results.Exec(); err != nil {
			_ = results.Close()
			return fmt.Errorf("write entry meta: %w", err)
		}
	}
	if err := results.Close(); err != nil {
		return fmt.Errorf("close entry meta batch: %w", err)
	}
	return nil
}
