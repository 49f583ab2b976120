package quality

import (
	"time"

	"github.com/google/uuid"
)

// Classification compares the AI-asserted high-risk flag against the human
// reviewer's validation.
type Classification string

const (
	ClassificationMatch     Classification = "match"
	ClassificationUnderRisk Classification = "under_risk"
	ClassificationOverRisk  Classification = "over_risk"
)

// Classify derives the audit classification from the two flags. under_risk
// means the AI missed a condition the reviewer confirmed; over_risk the
// inverse.
func Classify(aiHighRisk, humanHighRisk bool) Classification {
	switch {
	case aiHighRisk == humanHighRisk:
		return ClassificationMatch
	case !aiHighRisk && humanHighRisk:
		return ClassificationUnderRisk
	default:
		return ClassificationOverRisk
	}
}

// Audit maps to the care_task_scasest_audit_logs table. One row per audited
// agent run; agent_run_id is unique.
type Audit struct {
	ID             uuid.UUID      `db:"id" json:"id"`
	CareTaskID     *uuid.UUID     `db:"care_task_id" json:"care_task_id,omitempty"`
	AgentRunID     uuid.UUID      `db:"agent_run_id" json:"agent_run_id"`
	AIHighRisk     bool           `db:"ai_high_risk" json:"ai_high_risk"`
	HumanHighRisk  bool           `db:"human_high_risk" json:"human_high_risk"`
	Classification Classification `db:"classification" json:"classification"`
	ReviewerNote   *string        `db:"reviewer_note" json:"reviewer_note,omitempty"`
	ReviewedBy     *string        `db:"reviewed_by" json:"reviewed_by,omitempty"`
	CreatedAt      time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at" json:"updated_at"`
}

// QualityStatus is the operational reading of the aggregate rates.
type QualityStatus string

const (
	StatusOK        QualityStatus = "ok"
	StatusAttention QualityStatus = "atencion"
	StatusDegraded  QualityStatus = "degradado"
)

// Scorecard aggregates AI-vs-human agreement across all audited runs.
type Scorecard struct {
	TotalAudits      int           `json:"total_audits"`
	Matches          int           `json:"matches"`
	UnderEvents      int           `json:"under_events"`
	OverEvents       int           `json:"over_events"`
	MatchRatePercent float64       `json:"match_rate_percent"`
	UnderRatePercent float64       `json:"under_rate_percent"`
	OverRatePercent  float64       `json:"over_rate_percent"`
	QualityStatus    QualityStatus `json:"quality_status"`
}
