package quality

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

const auditCols = `id, care_task_id, agent_run_id, ai_high_risk, human_high_risk,
	classification, reviewer_note, reviewed_by, created_at, updated_at`

func scanAudit(row pgx.Row) (*Audit, error) {
	var a Audit
	err := row.Scan(&a.ID, &a.CareTaskID, &a.AgentRunID, &a.AIHighRisk, &a.HumanHighRisk,
		&a.Classification, &a.ReviewerNote, &a.ReviewedBy, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return &a, err
}

func (r *repoPG) Create(ctx context.Context, a *Audit) error {
	a.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO care_task_scasest_audit_logs (id, care_task_id, agent_run_id, ai_high_risk,
			human_high_risk, classification, reviewer_note, reviewed_by, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		a.ID, a.CareTaskID, a.AgentRunID, a.AIHighRisk,
		a.HumanHighRisk, a.Classification, a.ReviewerNote, a.ReviewedBy, a.CreatedAt, a.UpdatedAt)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrDuplicateAudit
	}
	return err
}

func (r *repoPG) GetByAgentRunID(ctx context.Context, agentRunID uuid.UUID) (*Audit, error) {
	return scanAudit(r.conn(ctx).QueryRow(ctx,
		`SELECT `+auditCols+` FROM care_task_scasest_audit_logs WHERE agent_run_id = $1`, agentRunID))
}

func (r *repoPG) List(ctx context.Context, limit, offset int) ([]*Audit, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM care_task_scasest_audit_logs`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+auditCols+` FROM care_task_scasest_audit_logs ORDER BY created_at DESC LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Audit
	for rows.Next() {
		a, err := scanAudit(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, a)
	}
	return items, total, rows.Err()
}

func (r *repoPG) CountByClassification(ctx context.Context) (map[Classification]int, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT classification, COUNT(*) FROM care_task_scasest_audit_logs GROUP BY classification`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[Classification]int)
	for rows.Next() {
		var c Classification
		var n int
		if err := rows.Scan(&c, &n); err != nil {
			return nil, err
		}
		counts[c] = n
	}
	return counts, rows.Err()
}
