package episode

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/careops/careops/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

func (r *repoPG) conn(ctx context.Context) queryable {
	if tx := db.ConnFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const episodeCols = `id, care_task_id, origin, current_stage, priority_risk, disposition, notes,
	arrived_at, triaged_at, medical_evaluation_at, diagnostics_completed_at,
	disposition_decided_at, closed_at, created_at, updated_at`

func scanEpisode(row pgx.Row) (*Episode, error) {
	var e Episode
	err := row.Scan(&e.ID, &e.CareTaskID, &e.Origin, &e.CurrentStage, &e.PriorityRisk, &e.Disposition, &e.Notes,
		&e.ArrivedAt, &e.TriagedAt, &e.MedicalEvaluationAt, &e.DiagnosticsCompletedAt,
		&e.DispositionDecidedAt, &e.ClosedAt, &e.CreatedAt, &e.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return &e, err
}

func (r *repoPG) Create(ctx context.Context, e *Episode) error {
	e.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO emergency_episodes (id, care_task_id, origin, current_stage, priority_risk,
			disposition, notes, arrived_at, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		e.ID, e.CareTaskID, e.Origin, e.CurrentStage, e.PriorityRisk,
		e.Disposition, e.Notes, e.ArrivedAt, e.CreatedAt, e.UpdatedAt)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Episode, error) {
	return scanEpisode(r.conn(ctx).QueryRow(ctx,
		`SELECT `+episodeCols+` FROM emergency_episodes WHERE id = $1`, id))
}

func (r *repoPG) List(ctx context.Context, limit int) ([]*Episode, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+episodeCols+` FROM emergency_episodes ORDER BY created_at DESC, id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*Episode
	for rows.Next() {
		e, err := scanEpisode(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, e)
	}
	return items, rows.Err()
}

func (r *repoPG) Update(ctx context.Context, e *Episode) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE emergency_episodes SET current_stage=$2, priority_risk=$3, disposition=$4, notes=$5,
			triaged_at=$6, medical_evaluation_at=$7, diagnostics_completed_at=$8,
			disposition_decided_at=$9, closed_at=$10, updated_at=$11
		WHERE id = $1`,
		e.ID, e.CurrentStage, e.PriorityRisk, e.Disposition, e.Notes,
		e.TriagedAt, e.MedicalEvaluationAt, e.DiagnosticsCompletedAt,
		e.DispositionDecidedAt, e.ClosedAt, e.UpdatedAt)
	return err
}
