package episode

import (
	"time"

	"github.com/google/uuid"
)

// Origin describes how the patient reached the emergency department.
type Origin string

const (
	OriginWalkIn            Origin = "walk_in"
	OriginAmbulancePrealert Origin = "ambulance_prealert"
)

// Stage is a named phase of the episode state machine.
type Stage string

const (
	StageAdmission            Stage = "admission"
	StagePrealertReception    Stage = "prealert_reception"
	StageNursingTriage        Stage = "nursing_triage"
	StageImmediateCare        Stage = "immediate_care"
	StageMonitoredWaitingRoom Stage = "monitored_waiting_room"
	StageMedicalEvaluation    Stage = "medical_evaluation"
	StageDiagnosticsOrdered   Stage = "diagnostics_ordered"
	StageTreatmentObservation Stage = "treatment_observation"
	StageDispositionDecision  Stage = "disposition_decision"
	StageDischargeReport      Stage = "discharge_report"
	StageBedRequestTransfer   Stage = "bed_request_transfer"
	StageInterhospitalTransfer Stage = "interhospital_transfer"
	StagePrimaryCareReferral  Stage = "primary_care_referral"
	StageEpisodeClosed        Stage = "episode_closed"
)

// PriorityRisk classifies the patient when leaving triage.
type PriorityRisk string

const (
	PriorityTimeDependent PriorityRisk = "time_dependent"
	PriorityNonCritical   PriorityRisk = "non_critical"
)

// Disposition is the terminal outcome category of an episode.
type Disposition string

const (
	DispositionDischarge  Disposition = "discharge"
	DispositionAdmission  Disposition = "admission"
	DispositionTransfer   Disposition = "transfer"
	DispositionAPReferral Disposition = "ap_referral"
)

// InitialStageByOrigin resolves the stage an episode starts in.
var InitialStageByOrigin = map[Origin]Stage{
	OriginWalkIn:            StageAdmission,
	OriginAmbulancePrealert: StagePrealertReception,
}

// AllowedTransitions is the directed stage graph. Any transition not listed
// here is rejected. episode_closed has no successors.
var AllowedTransitions = map[Stage][]Stage{
	StageAdmission:            {StageNursingTriage},
	StagePrealertReception:    {StageNursingTriage},
	StageNursingTriage:        {StageImmediateCare, StageMonitoredWaitingRoom},
	StageImmediateCare:        {StageMedicalEvaluation},
	StageMonitoredWaitingRoom: {StageMedicalEvaluation},
	StageMedicalEvaluation:    {StageDiagnosticsOrdered, StageTreatmentObservation},
	StageDiagnosticsOrdered:   {StageTreatmentObservation},
	StageTreatmentObservation: {StageDispositionDecision},
	StageDispositionDecision: {
		StageDischargeReport,
		StageBedRequestTransfer,
		StageInterhospitalTransfer,
		StagePrimaryCareReferral,
	},
	StageDischargeReport:       {StageEpisodeClosed},
	StageBedRequestTransfer:    {StageEpisodeClosed},
	StageInterhospitalTransfer: {StageEpisodeClosed},
	StagePrimaryCareReferral:   {StageEpisodeClosed},
	StageEpisodeClosed:         {},
}

// DispositionByStage derives the disposition from the terminal-branch stage
// being entered. disposition_decision itself never assigns one.
var DispositionByStage = map[Stage]Disposition{
	StageDischargeReport:       DispositionDischarge,
	StageBedRequestTransfer:    DispositionAdmission,
	StageInterhospitalTransfer: DispositionTransfer,
	StagePrimaryCareReferral:   DispositionAPReferral,
}

// CanTransition reports whether moving from one stage to another is allowed.
func CanTransition(from, to Stage) bool {
	for _, next := range AllowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// RequiresPriorityRisk reports whether entering the stage demands a
// priority_risk classification from the caller.
func RequiresPriorityRisk(next Stage) bool {
	return next == StageImmediateCare || next == StageMonitoredWaitingRoom
}

// Episode maps to the emergency_episodes table. It represents one patient
// passage through emergency care, from arrival to closure.
type Episode struct {
	ID                     uuid.UUID     `db:"id" json:"id"`
	CareTaskID             *uuid.UUID    `db:"care_task_id" json:"care_task_id,omitempty"`
	Origin                 Origin        `db:"origin" json:"origin"`
	CurrentStage           Stage         `db:"current_stage" json:"current_stage"`
	PriorityRisk           *PriorityRisk `db:"priority_risk" json:"priority_risk,omitempty"`
	Disposition            *Disposition  `db:"disposition" json:"disposition,omitempty"`
	Notes                  *string       `db:"notes" json:"notes,omitempty"`
	ArrivedAt              time.Time     `db:"arrived_at" json:"arrived_at"`
	TriagedAt              *time.Time    `db:"triaged_at" json:"triaged_at,omitempty"`
	MedicalEvaluationAt    *time.Time    `db:"medical_evaluation_at" json:"medical_evaluation_at,omitempty"`
	DiagnosticsCompletedAt *time.Time    `db:"diagnostics_completed_at" json:"diagnostics_completed_at,omitempty"`
	DispositionDecidedAt   *time.Time    `db:"disposition_decided_at" json:"disposition_decided_at,omitempty"`
	ClosedAt               *time.Time    `db:"closed_at" json:"closed_at,omitempty"`
	CreatedAt              time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt              time.Time     `db:"updated_at" json:"updated_at"`
}

// KpiSummary carries the time KPIs of one episode. Durations are minutes
// rounded to 0.01 and nil whenever either endpoint timestamp is unset.
type KpiSummary struct {
	EpisodeID                             uuid.UUID    `json:"episode_id"`
	MinutesArrivalToTriage                *float64     `json:"minutes_arrival_to_triage"`
	MinutesTriageToMedicalEvaluation      *float64     `json:"minutes_triage_to_medical_evaluation"`
	MinutesMedicalEvaluationToDisposition *float64     `json:"minutes_medical_evaluation_to_disposition"`
	MinutesTotalEpisode                   *float64     `json:"minutes_total_episode"`
	FinalStage                            Stage        `json:"final_stage"`
	Disposition                           *Disposition `json:"disposition"`
}
