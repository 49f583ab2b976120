package episode

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

// TxRunner executes fn atomically with respect to the underlying storage.
// The production runner wraps fn in a database transaction threaded through
// the context; tests substitute a passthrough.
type TxRunner func(ctx context.Context, fn func(ctx context.Context) error) error

// CreateInput is the payload for opening a new episode.
type CreateInput struct {
	Origin     Origin     `json:"origin"`
	CareTaskID *uuid.UUID `json:"care_task_id,omitempty"`
	Notes      *string    `json:"notes,omitempty"`
}

// TransitionInput is the payload for moving an episode to its next stage.
type TransitionInput struct {
	NextStage    Stage         `json:"next_stage"`
	PriorityRisk *PriorityRisk `json:"priority_risk,omitempty"`
	Disposition  *Disposition  `json:"disposition,omitempty"`
	Notes        *string       `json:"notes,omitempty"`
}

// Service orchestrates the end-to-end flow of an emergency episode.
type Service struct {
	repo Repository
	tx   TxRunner
	now  func() time.Time
}

func NewService(repo Repository, tx TxRunner) *Service {
	if tx == nil {
		tx = func(ctx context.Context, fn func(ctx context.Context) error) error { return fn(ctx) }
	}
	return &Service{repo: repo, tx: tx, now: func() time.Time { return time.Now().UTC() }}
}

// Create opens an episode with the initial stage implied by its origin.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Episode, error) {
	initial, ok := InitialStageByOrigin[in.Origin]
	if !ok {
		return nil, fmt.Errorf("origin must be one of walk_in, ambulance_prealert; got %q", in.Origin)
	}

	now := s.now()
	e := &Episode{
		CareTaskID:   in.CareTaskID,
		Origin:       in.Origin,
		CurrentStage: initial,
		Notes:        in.Notes,
		ArrivedAt:    now,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Create(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Episode, error) {
	return s.repo.GetByID(ctx, id)
}

// List returns recent episodes ordered by (created_at DESC, id DESC). The
// limit is clamped to [1,200]; non-positive values select the default of 50.
func (s *Service) List(ctx context.Context, limit int) ([]*Episode, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	return s.repo.List(ctx, limit)
}

// Transition applies one validated stage transition. The read-modify-write
// runs inside the storage transaction so concurrent transitions on the same
// episode serialize at the row.
func (s *Service) Transition(ctx context.Context, id uuid.UUID, in TransitionInput) (*Episode, error) {
	var result *Episode
	err := s.tx(ctx, func(ctx context.Context) error {
		e, err := s.repo.GetByID(ctx, id)
		if err != nil {
			return err
		}

		if err := validateTransition(e.CurrentStage, in); err != nil {
			return err
		}

		now := s.now()
		e.CurrentStage = in.NextStage
		e.UpdatedAt = now

		if in.PriorityRisk != nil {
			e.PriorityRisk = in.PriorityRisk
		}
		if in.Notes != nil {
			e.Notes = in.Notes
		}

		// Stage-entry timestamps are recorded once, on first entry.
		switch in.NextStage {
		case StageNursingTriage:
			if e.TriagedAt == nil {
				e.TriagedAt = &now
			}
		case StageMedicalEvaluation:
			if e.MedicalEvaluationAt == nil {
				e.MedicalEvaluationAt = &now
			}
		case StageTreatmentObservation:
			if e.DiagnosticsCompletedAt == nil {
				e.DiagnosticsCompletedAt = &now
			}
		case StageDispositionDecision:
			if e.DispositionDecidedAt == nil {
				e.DispositionDecidedAt = &now
			}
		case StageEpisodeClosed:
			if e.ClosedAt == nil {
				e.ClosedAt = &now
			}
		}

		if d, terminal := DispositionByStage[in.NextStage]; terminal {
			disposition := d
			e.Disposition = &disposition
		}

		if err := s.repo.Update(ctx, e); err != nil {
			return err
		}
		result = e
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func validateTransition(current Stage, in TransitionInput) error {
	if !CanTransition(current, in.NextStage) {
		return newIllegalTransition(current, in.NextStage)
	}
	if RequiresPriorityRisk(in.NextStage) && in.PriorityRisk == nil {
		return newMissingPriorityRisk(current, in.NextStage)
	}
	if in.NextStage == StageDispositionDecision && in.Disposition != nil {
		return newDispositionNotAllowed(current, in.NextStage)
	}
	return nil
}

// KPIs computes the time KPIs of an episode from its recorded timestamps.
func (s *Service) KPIs(ctx context.Context, id uuid.UUID) (*KpiSummary, error) {
	e, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return BuildKpiSummary(e), nil
}

// BuildKpiSummary derives the KPI view from an episode. A duration is nil
// whenever either endpoint timestamp is unset.
func BuildKpiSummary(e *Episode) *KpiSummary {
	arrived := e.ArrivedAt
	return &KpiSummary{
		EpisodeID:                             e.ID,
		MinutesArrivalToTriage:                minutesBetween(&arrived, e.TriagedAt),
		MinutesTriageToMedicalEvaluation:      minutesBetween(e.TriagedAt, e.MedicalEvaluationAt),
		MinutesMedicalEvaluationToDisposition: minutesBetween(e.MedicalEvaluationAt, e.DispositionDecidedAt),
		MinutesTotalEpisode:                   minutesBetween(&arrived, e.ClosedAt),
		FinalStage:                            e.CurrentStage,
		Disposition:                           e.Disposition,
	}
}

// minutesBetween returns the span in minutes rounded to 0.01, or nil when an
// endpoint is missing.
func minutesBetween(start, end *time.Time) *float64 {
	if start == nil || end == nil {
		return nil
	}
	minutes := math.Round(end.Sub(*start).Minutes()*100) / 100
	return &minutes
}
