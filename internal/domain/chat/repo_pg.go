package chat

import (
	"context"
	"encoding/json"

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

func (r *repoPG) Create(ctx context.Context, m *SessionMessage) error {
	m.ID = uuid.New()

	toolResults, err := json.Marshal(m.ToolResults)
	if err != nil {
		return err
	}
	signals, err := json.Marshal(m.InjectionSignals)
	if err != nil {
		return err
	}

	_, err = r.conn(ctx).Exec(ctx, `
		INSERT INTO care_task_chat_messages (id, care_task_id, session_id, clinician_id,
			user_query, assistant_answer, tool_results, injection_signals, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		m.ID, m.CareTaskID, m.SessionID, m.ClinicianID,
		m.UserQuery, m.AssistantAnswer, toolResults, signals, m.CreatedAt, m.UpdatedAt)
	return err
}

func (r *repoPG) ListSession(ctx context.Context, careTaskID uuid.UUID, sessionID string, limit int) ([]*SessionMessage, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, care_task_id, session_id, clinician_id, user_query, assistant_answer,
			tool_results, injection_signals, created_at, updated_at
		FROM care_task_chat_messages
		WHERE care_task_id = $1 AND session_id = $2
		ORDER BY created_at ASC
		LIMIT $3`,
		careTaskID, sessionID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*SessionMessage
	for rows.Next() {
		var m SessionMessage
		var toolResults, signals []byte
		if err := rows.Scan(&m.ID, &m.CareTaskID, &m.SessionID, &m.ClinicianID,
			&m.UserQuery, &m.AssistantAnswer, &toolResults, &signals, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(toolResults, &m.ToolResults); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(signals, &m.InjectionSignals); err != nil {
			return nil, err
		}
		items = append(items, &m)
	}
	return items, rows.Err()
}
