package chat

import (
	"time"

	"github.com/google/uuid"
)

// SessionMessage maps to the care_task_chat_messages table. One row per
// clinician query and assistant answer within a care-task chat session. The
// stored user query is the sanitized form; tool_results is the guarded
// normalization of raw agent output.
type SessionMessage struct {
	ID               uuid.UUID        `db:"id" json:"id"`
	CareTaskID       uuid.UUID        `db:"care_task_id" json:"care_task_id"`
	SessionID        string           `db:"session_id" json:"session_id"`
	ClinicianID      *uuid.UUID       `db:"clinician_id" json:"clinician_id,omitempty"`
	UserQuery        string           `db:"user_query" json:"user_query"`
	AssistantAnswer  string           `db:"assistant_answer" json:"assistant_answer"`
	ToolResults      []map[string]any `db:"tool_results" json:"tool_results"`
	InjectionSignals []string         `db:"injection_signals" json:"injection_signals"`
	CreatedAt        time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time        `db:"updated_at" json:"updated_at"`
}
