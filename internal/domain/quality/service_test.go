package quality

import (
	"context"
	"errors"
	"sort"
	"testing"

	"github.com/google/uuid"
)

type mockRepo struct {
	audits []*Audit
}

func newMockRepo() *mockRepo { return &mockRepo{} }

func (m *mockRepo) Create(_ context.Context, a *Audit) error {
	for _, existing := range m.audits {
		if existing.AgentRunID == a.AgentRunID {
			return ErrDuplicateAudit
		}
	}
	a.ID = uuid.New()
	cp := *a
	m.audits = append(m.audits, &cp)
	return nil
}

func (m *mockRepo) GetByAgentRunID(_ context.Context, agentRunID uuid.UUID) (*Audit, error) {
	for _, a := range m.audits {
		if a.AgentRunID == agentRunID {
			cp := *a
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *mockRepo) List(_ context.Context, limit, offset int) ([]*Audit, int, error) {
	sorted := make([]*Audit, len(m.audits))
	copy(sorted, m.audits)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].CreatedAt.After(sorted[j].CreatedAt) })

	total := len(sorted)
	if offset >= total {
		return nil, total, nil
	}
	sorted = sorted[offset:]
	if len(sorted) > limit {
		sorted = sorted[:limit]
	}
	out := make([]*Audit, len(sorted))
	for i, a := range sorted {
		cp := *a
		out[i] = &cp
	}
	return out, total, nil
}

func (m *mockRepo) CountByClassification(_ context.Context) (map[Classification]int, error) {
	counts := make(map[Classification]int)
	for _, a := range m.audits {
		counts[a.Classification]++
	}
	return counts, nil
}

func newTestService(repo Repository) *Service {
	return NewService(repo, DefaultThresholds())
}

func record(t *testing.T, svc *Service, ai, human bool) *Audit {
	t.Helper()
	a, err := svc.RecordAudit(context.Background(), RecordAuditInput{
		AgentRunID:    uuid.New(),
		AIHighRisk:    ai,
		HumanHighRisk: human,
	})
	if err != nil {
		t.Fatalf("record audit: %v", err)
	}
	return a
}

func TestClassify(t *testing.T) {
	cases := []struct {
		ai, human bool
		want      Classification
	}{
		{true, true, ClassificationMatch},
		{false, false, ClassificationMatch},
		{false, true, ClassificationUnderRisk},
		{true, false, ClassificationOverRisk},
	}
	for _, tc := range cases {
		if got := Classify(tc.ai, tc.human); got != tc.want {
			t.Errorf("Classify(%v, %v) = %s, want %s", tc.ai, tc.human, got, tc.want)
		}
	}
}

func TestRecordAudit_SetsClassification(t *testing.T) {
	svc := newTestService(newMockRepo())

	a := record(t, svc, false, true)
	if a.Classification != ClassificationUnderRisk {
		t.Errorf("classification = %s, want under_risk", a.Classification)
	}
	if a.CreatedAt.IsZero() || a.UpdatedAt.IsZero() {
		t.Error("timestamps should be set")
	}
}

func TestRecordAudit_RequiresAgentRunID(t *testing.T) {
	svc := newTestService(newMockRepo())

	_, err := svc.RecordAudit(context.Background(), RecordAuditInput{})
	if err == nil {
		t.Fatal("expected error for missing agent_run_id")
	}
}

func TestRecordAudit_DuplicateAgentRunRejected(t *testing.T) {
	svc := newTestService(newMockRepo())
	runID := uuid.New()

	in := RecordAuditInput{AgentRunID: runID, AIHighRisk: true, HumanHighRisk: true}
	if _, err := svc.RecordAudit(context.Background(), in); err != nil {
		t.Fatalf("first audit: %v", err)
	}

	in.HumanHighRisk = false
	_, err := svc.RecordAudit(context.Background(), in)
	if !errors.Is(err, ErrDuplicateAudit) {
		t.Fatalf("expected ErrDuplicateAudit, got %v", err)
	}
}

func TestScorecard_ZeroAuditsIsOK(t *testing.T) {
	svc := newTestService(newMockRepo())

	card, err := svc.Scorecard(context.Background())
	if err != nil {
		t.Fatalf("scorecard: %v", err)
	}
	if card.TotalAudits != 0 {
		t.Errorf("total_audits = %d, want 0", card.TotalAudits)
	}
	if card.MatchRatePercent != 0 || card.UnderRatePercent != 0 || card.OverRatePercent != 0 {
		t.Errorf("rates should be 0, got %v/%v/%v",
			card.MatchRatePercent, card.UnderRatePercent, card.OverRatePercent)
	}
	if card.QualityStatus != StatusOK {
		t.Errorf("quality_status = %s, want ok", card.QualityStatus)
	}
}

func TestScorecard_AllUnderRiskIsDegraded(t *testing.T) {
	svc := newTestService(newMockRepo())
	for i := 0; i < 12; i++ {
		record(t, svc, false, true)
	}

	card, err := svc.Scorecard(context.Background())
	if err != nil {
		t.Fatalf("scorecard: %v", err)
	}
	if card.TotalAudits != 12 || card.UnderEvents != 12 {
		t.Errorf("counts = %d total / %d under, want 12/12", card.TotalAudits, card.UnderEvents)
	}
	if card.UnderRatePercent != 100 {
		t.Errorf("under_rate_percent = %v, want 100", card.UnderRatePercent)
	}
	if card.QualityStatus != StatusDegraded {
		t.Errorf("quality_status = %s, want degradado", card.QualityStatus)
	}
}

func TestScorecard_MixedOutcomesIsAttention(t *testing.T) {
	svc := newTestService(newMockRepo())
	for i := 0; i < 10; i++ {
		record(t, svc, true, true)
	}
	record(t, svc, false, true)
	record(t, svc, true, false)

	card, err := svc.Scorecard(context.Background())
	if err != nil {
		t.Fatalf("scorecard: %v", err)
	}
	if card.TotalAudits != 12 || card.Matches != 10 || card.UnderEvents != 1 || card.OverEvents != 1 {
		t.Errorf("counts = %d/%d/%d/%d, want 12/10/1/1",
			card.TotalAudits, card.Matches, card.UnderEvents, card.OverEvents)
	}
	// 10/12 = 83.33%, 1/12 = 8.33%: under stays within bounds, match does not.
	if card.MatchRatePercent != 83.33 {
		t.Errorf("match_rate_percent = %v, want 83.33", card.MatchRatePercent)
	}
	if card.UnderRatePercent != 8.33 {
		t.Errorf("under_rate_percent = %v, want 8.33", card.UnderRatePercent)
	}
	if card.QualityStatus != StatusAttention {
		t.Errorf("quality_status = %s, want atencion", card.QualityStatus)
	}
}

func TestScorecard_DegradedWinsOverAttention(t *testing.T) {
	svc := newTestService(newMockRepo())
	for i := 0; i < 8; i++ {
		record(t, svc, true, true)
	}
	record(t, svc, false, true)
	record(t, svc, false, true)

	card, err := svc.Scorecard(context.Background())
	if err != nil {
		t.Fatalf("scorecard: %v", err)
	}
	// under 20% and match 80%: both thresholds tripped, degraded takes precedence.
	if card.QualityStatus != StatusDegraded {
		t.Errorf("quality_status = %s, want degradado", card.QualityStatus)
	}
}

func TestScorecard_AllMatchesIsOK(t *testing.T) {
	svc := newTestService(newMockRepo())
	for i := 0; i < 5; i++ {
		record(t, svc, i%2 == 0, i%2 == 0)
	}

	card, err := svc.Scorecard(context.Background())
	if err != nil {
		t.Fatalf("scorecard: %v", err)
	}
	if card.MatchRatePercent != 100 {
		t.Errorf("match_rate_percent = %v, want 100", card.MatchRatePercent)
	}
	if card.QualityStatus != StatusOK {
		t.Errorf("quality_status = %s, want ok", card.QualityStatus)
	}
}

func TestScorecard_CountsSumToTotal(t *testing.T) {
	svc := newTestService(newMockRepo())
	record(t, svc, true, true)
	record(t, svc, false, true)
	record(t, svc, true, false)
	record(t, svc, false, false)

	card, err := svc.Scorecard(context.Background())
	if err != nil {
		t.Fatalf("scorecard: %v", err)
	}
	if card.Matches+card.UnderEvents+card.OverEvents != card.TotalAudits {
		t.Errorf("counts %d+%d+%d do not sum to total %d",
			card.Matches, card.UnderEvents, card.OverEvents, card.TotalAudits)
	}
}

func TestListAudits_ClampsLimit(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo)
	for i := 0; i < 3; i++ {
		record(t, svc, true, true)
	}

	items, total, err := svc.ListAudits(context.Background(), -5, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 3 || len(items) != 3 {
		t.Errorf("got %d items / total %d, want 3/3", len(items), total)
	}

	items, _, err = svc.ListAudits(context.Background(), 1000, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 3 {
		t.Errorf("got %d items, want 3", len(items))
	}
}
