package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/careops/careops/internal/platform/agent"
	"github.com/careops/careops/internal/platform/security"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

// LockSettings bound how long a writer waits for its session lock and when a
// holder is presumed dead.
type LockSettings struct {
	Timeout    time.Duration
	StaleAfter time.Duration
}

// DefaultLockSettings mirrors the write path defaults of the chat agent.
func DefaultLockSettings() LockSettings {
	return LockSettings{Timeout: 2500 * time.Millisecond, StaleAfter: 20 * time.Second}
}

// RecordMessageInput is the payload for persisting one chat exchange.
type RecordMessageInput struct {
	SessionID       string           `json:"session_id"`
	ClinicianID     *uuid.UUID       `json:"clinician_id,omitempty"`
	UserQuery       string           `json:"user_query"`
	AssistantAnswer string           `json:"assistant_answer"`
	ToolResults     []map[string]any `json:"tool_results,omitempty"`
}

// Service persists chat exchanges for care-task sessions. Each write runs
// under the session lock so concurrent writers on the same session serialize,
// with the user query sanitized and tool results normalized before storage.
type Service struct {
	repo     Repository
	locks    *agent.SessionWriteLock
	settings LockSettings
	log      zerolog.Logger
	now      func() time.Time
}

func NewService(repo Repository, locks *agent.SessionWriteLock, settings LockSettings, log zerolog.Logger) *Service {
	if locks == nil {
		locks = agent.NewSessionWriteLock()
	}
	if settings.Timeout <= 0 || settings.StaleAfter <= 0 {
		settings = DefaultLockSettings()
	}
	return &Service{
		repo:     repo,
		locks:    locks,
		settings: settings,
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// RecordMessage sanitizes, normalizes and persists one exchange. Returns
// *agent.LockTimeoutError when the session lock cannot be acquired in time.
func (s *Service) RecordMessage(ctx context.Context, careTaskID uuid.UUID, in RecordMessageInput) (*SessionMessage, error) {
	sessionID := strings.TrimSpace(in.SessionID)
	if sessionID == "" {
		return nil, fmt.Errorf("session_id is required")
	}
	if strings.TrimSpace(in.UserQuery) == "" {
		return nil, fmt.Errorf("user_query is required")
	}

	sanitized := security.SanitizeUntrustedText(in.UserQuery, security.DefaultMaxChars)
	guarded := agent.SanitizeToolResults(in.ToolResults,
		agent.DefaultMaxToolResults, agent.DefaultMaxSnippetChars)

	lockKey := fmt.Sprintf("care-task:%s:session:%s", careTaskID, sessionID)
	ownerID := uuid.New()
	owner := fmt.Sprintf("chat-message:%x", ownerID[:5])

	handle, err := s.locks.Acquire(lockKey, owner, s.settings.Timeout, s.settings.StaleAfter)
	if err != nil {
		return nil, err
	}
	defer handle.Release()

	if handle.StaleReclaimed {
		s.log.Warn().Str("lock_key", lockKey).Str("owner", owner).
			Msg("reclaimed stale session lock")
	}
	if len(sanitized.Signals) > 0 {
		s.log.Warn().Str("lock_key", lockKey).Strs("signals", sanitized.Signals).
			Msg("injection patterns neutralized in user query")
	}

	now := s.now()
	m := &SessionMessage{
		CareTaskID:       careTaskID,
		SessionID:        sessionID,
		ClinicianID:      in.ClinicianID,
		UserQuery:        sanitized.SanitizedText,
		AssistantAnswer:  in.AssistantAnswer,
		ToolResults:      guarded,
		InjectionSignals: sanitized.Signals,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.repo.Create(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// ListSession returns the session's messages oldest first. The limit is
// clamped to [1,200]; non-positive values select the default of 50.
func (s *Service) ListSession(ctx context.Context, careTaskID uuid.UUID, sessionID string, limit int) ([]*SessionMessage, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	return s.repo.ListSession(ctx, careTaskID, sessionID, limit)
}
