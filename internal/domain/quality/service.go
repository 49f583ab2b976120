package quality

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

// Thresholds parameterize the scorecard status derivation. Rates are
// percentages in [0,100].
type Thresholds struct {
	UnderRateMaxPercent float64
	MatchRateMinPercent float64
}

// DefaultThresholds marks the scorecard degraded past 10% missed high-risk
// conditions and flags attention under 90% agreement.
func DefaultThresholds() Thresholds {
	return Thresholds{UnderRateMaxPercent: 10, MatchRateMinPercent: 90}
}

// RecordAuditInput is the payload for auditing one agent run.
type RecordAuditInput struct {
	CareTaskID    *uuid.UUID `json:"care_task_id,omitempty"`
	AgentRunID    uuid.UUID  `json:"agent_run_id"`
	AIHighRisk    bool       `json:"ai_high_risk"`
	HumanHighRisk bool       `json:"human_high_risk"`
	ReviewerNote  *string    `json:"reviewer_note,omitempty"`
	ReviewedBy    *string    `json:"reviewed_by,omitempty"`
}

// Service records audits and aggregates them into the quality scorecard.
type Service struct {
	repo       Repository
	thresholds Thresholds
	now        func() time.Time
}

func NewService(repo Repository, thresholds Thresholds) *Service {
	return &Service{
		repo:       repo,
		thresholds: thresholds,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// RecordAudit classifies and persists the audit for one agent run. A second
// audit for the same agent_run_id is rejected with ErrDuplicateAudit.
func (s *Service) RecordAudit(ctx context.Context, in RecordAuditInput) (*Audit, error) {
	if in.AgentRunID == uuid.Nil {
		return nil, fmt.Errorf("agent_run_id is required")
	}

	// Fast duplicate check; the unique index on agent_run_id backstops races.
	if _, err := s.repo.GetByAgentRunID(ctx, in.AgentRunID); err == nil {
		return nil, ErrDuplicateAudit
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	now := s.now()
	a := &Audit{
		CareTaskID:     in.CareTaskID,
		AgentRunID:     in.AgentRunID,
		AIHighRisk:     in.AIHighRisk,
		HumanHighRisk:  in.HumanHighRisk,
		Classification: Classify(in.AIHighRisk, in.HumanHighRisk),
		ReviewerNote:   in.ReviewerNote,
		ReviewedBy:     in.ReviewedBy,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.repo.Create(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// ListAudits returns recent audits newest first with the total count. The
// limit is clamped to [1,200]; non-positive values select the default of 50.
func (s *Service) ListAudits(ctx context.Context, limit, offset int) ([]*Audit, int, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.List(ctx, limit, offset)
}

// Scorecard aggregates all recorded audits. With zero audits every rate is 0
// and the status is ok.
func (s *Service) Scorecard(ctx context.Context) (*Scorecard, error) {
	counts, err := s.repo.CountByClassification(ctx)
	if err != nil {
		return nil, err
	}

	matches := counts[ClassificationMatch]
	under := counts[ClassificationUnderRisk]
	over := counts[ClassificationOverRisk]
	total := matches + under + over

	card := &Scorecard{
		TotalAudits:   total,
		Matches:       matches,
		UnderEvents:   under,
		OverEvents:    over,
		QualityStatus: StatusOK,
	}
	if total == 0 {
		return card, nil
	}

	card.MatchRatePercent = ratePercent(matches, total)
	card.UnderRatePercent = ratePercent(under, total)
	card.OverRatePercent = ratePercent(over, total)

	switch {
	case card.UnderRatePercent > s.thresholds.UnderRateMaxPercent:
		card.QualityStatus = StatusDegraded
	case card.MatchRatePercent < s.thresholds.MatchRateMinPercent:
		card.QualityStatus = StatusAttention
	}
	return card, nil
}

// ratePercent returns n/total as a percentage rounded to 0.01.
func ratePercent(n, total int) float64 {
	return math.Round(float64(n)/float64(total)*100*100) / 100
}
