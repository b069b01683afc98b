package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"go-form-editor/internal/model"
)

// FormRepository keeps form definitions as JSONB documents.
type FormRepository struct {
	pool *pgxpool.Pool
}

func NewFormRepository(pool *pgxpool.Pool) *FormRepository {
	return &FormRepository{pool: pool}
}

func (r *FormRepository) GetForm(ctx context.Context, id int64) (*model.Form, error) {
	var (
		definition []byte
		isActive   bool
		createdAt  time.Time
	)
	err := r.pool.QueryRow(ctx,
		`SELECT definition, is_active, created_at FROM forms WHERE id = $1`, id).
		Scan(&definition, &isActive, &createdAt)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, model.ErrFormNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find form by id: %w", err)
	}

	var form model.Form
	if err := json.Unmarshal(definition, &form); err != nil {
		return nil, fmt.Errorf("decode form %d: %w", id, err)
	}
	form.ID = id
	form.IsActive = isActive
	form.CreatedAt = createdAt

	return &form, nil
}

// UpsertForm stores form under its own id and moves the id sequence past it.
func (r *FormRepository) UpsertForm(ctx context.Context, form *model.Form) error {
	if form == nil || form.ID <= 0 {
		return fmt.Errorf("upsert form: %w", model.ErrInvalidInput)
	}

	definition, err := json.Marshal(form)
	if err != nil {
		return fmt.Errorf("encode form %d: %w", form.ID, err)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin upsert form: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx,
		`INSERT INTO forms (id, title, definition, is_active, created_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (id) DO UPDATE
		 SET title = EXCLUDED.title, definition = EXCLUDED.definition, is_active = EXCLUDED.is_active`,
		form.ID, form.Title, definition, form.IsActive, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("upsert form: %w", err)
	}

	_, err = tx.Exec(ctx,
		`SELECT setval(pg_get_serial_sequence('forms', 'id'), GREATEST((SELECT MAX(id) FROM forms), 1))`)
	if err != nil {
		return fmt.Errorf("advance form id sequence: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit upsert form: %w", err)
	}
	return nil
}

func (r *FormRepository) ListForms(ctx context.Context) ([]model.FormChoice, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, title FROM forms ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list forms: %w", err)
	}
	defer rows.Close()

	forms := make([]model.FormChoice, 0)
	for rows.Next() {
		var f model.FormChoice
		if err := rows.Scan(&f.ID, &f.Title); err != nil {
			return nil, fmt.Errorf("scan form: %w", err)
		}
		forms = append(forms, f)
	}
	return forms, rows.Err()
}
