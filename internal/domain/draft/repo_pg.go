package draft

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type draftRepoPG struct {
	db queryable
}

// NewPostgresRepo stores drafts in the homecare_draft and homecare_setting
// tables created by the embedded migrations.
func NewPostgresRepo(pool *pgxpool.Pool) Repository {
	return &draftRepoPG{db: pool}
}

func (r *draftRepoPG) Put(ctx context.Context, d *Draft) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO homecare_draft (patient_id, visit_date, role, data, is_complete, saved_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (patient_id, visit_date, role) DO UPDATE SET
			data = EXCLUDED.data,
			is_complete = EXCLUDED.is_complete,
			saved_at = EXCLUDED.saved_at`,
		d.Key.PatientID, d.Key.Date, string(d.Key.Role), []byte(d.Data), d.IsComplete, d.SavedAt,
	)
	if err != nil {
		return fmt.Errorf("put draft: %w", err)
	}
	return nil
}

func (r *draftRepoPG) Get(ctx context.Context, k Key) (*Draft, error) {
	d := &Draft{Key: k}
	var data []byte
	err := r.db.QueryRow(ctx, `
		SELECT data, is_complete, saved_at FROM homecare_draft
		WHERE patient_id = $1 AND visit_date = $2 AND role = $3`,
		k.PatientID, k.Date, string(k.Role),
	).Scan(&data, &d.IsComplete, &d.SavedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get draft: %w", err)
	}
	d.Data = data
	d.SavedAt = d.SavedAt.UTC()
	return d, nil
}

func (r *draftRepoPG) Delete(ctx context.Context, k Key) error {
	_, err := r.db.Exec(ctx, `
		DELETE FROM homecare_draft WHERE patient_id = $1 AND visit_date = $2 AND role = $3`,
		k.PatientID, k.Date, string(k.Role),
	)
	if err != nil {
		return fmt.Errorf("delete draft: %w", err)
	}
	return nil
}

func (r *draftRepoPG) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM homecare_draft WHERE saved_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("sweep drafts: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func (r *draftRepoPG) GetFlag(ctx context.Context, name string) (bool, bool, error) {
	var v bool
	err := r.db.QueryRow(ctx, `SELECT value FROM homecare_setting WHERE name = $1`, name).Scan(&v)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, false, nil
	}
	if err != nil {
		return false, false, fmt.Errorf("get setting %s: %w", name, err)
	}
	return v, true, nil
}

func (r *draftRepoPG) SetFlag(ctx context.Context, name string, value bool) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO homecare_setting (name, value, updated_at) VALUES ($1, $2, NOW())
		ON CONFLICT (name) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()`,
		name, value,
	)
	if err != nil {
		return fmt.Errorf("set setting %s: %w", name, err)
	}
	return nil
}

// queryable is satisfied by pgxpool.Pool, pgxpool.Conn and pgx.Tx.
type queryable interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}
