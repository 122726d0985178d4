package learning

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"engagement-engine/internal/config"
	"engagement-engine/internal/models"
	"engagement-engine/internal/strategy"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var testNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

const formalText = "Furthermore, the product is good. Moreover, the price is fair. Therefore, buy now."

var contents = []string{
	formalText,
	"Honestly I think my cat hates this... what do you think? lol",
	"New video is up. Link in bio.",
}

func newTestOrchestrator(t *testing.T, opts ...Option) *Orchestrator {
	t.Helper()
	cfg := config.DefaultEngine()
	opts = append([]Option{WithClock(func() time.Time { return testNow })}, opts...)
	return New(cfg, strategy.NewStore(cfg.HistoryLimit), zap.NewNop(), opts...)
}

func testRecord(creatorID string, i int) models.InteractionRecord {
	return models.InteractionRecord{
		PostID:     fmt.Sprintf("%s-post-%d", creatorID, i),
		CreatorID:  creatorID,
		Likes:      5 + i*3,
		Comments:   i % 4,
		Shares:     i % 3,
		EmojiTotal: i % 7,
		PostedAt:   time.Date(2024, 5, 1, (i*5)%24, 0, 0, 0, time.UTC).Format(time.RFC3339),
		Content:    contents[i%len(contents)],
	}
}

type fakeSink struct {
	mu         sync.Mutex
	reports    []*models.LearningReport
	strategies []models.StrategyProfile
	err        error
}

func (s *fakeSink) SaveReport(_ context.Context, report *models.LearningReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.reports = append(s.reports, report)
	return nil
}

func (s *fakeSink) SaveStrategy(_ context.Context, profile models.StrategyProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.strategies = append(s.strategies, profile)
	return nil
}

type fakeNotifier struct {
	mu      sync.Mutex
	reports []*models.LearningReport
}

func (n *fakeNotifier) NotifyCritical(_ context.Context, report *models.LearningReport) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.reports = append(n.reports, report)
	return nil
}

type fakePublisher struct {
	mu       sync.Mutex
	profiles []models.StrategyProfile
	err      error
}

func (p *fakePublisher) PublishStrategy(_ context.Context, profile models.StrategyProfile) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.profiles = append(p.profiles, profile)
	return p.err
}

type fakeDetector struct {
	score float64
	ok    bool
}

func (d fakeDetector) Score(context.Context, string) (float64, bool) {
	return d.score, d.ok
}

type fakeMetrics struct {
	mu        sync.Mutex
	sessions  map[string]int
	fallbacks int
	batches   []string
}

func (m *fakeMetrics) ObserveSession(status string, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sessions == nil {
		m.sessions = map[string]int{}
	}
	m.sessions[status]++
}

func (m *fakeMetrics) ObserveAlert(string, string) {}
func (m *fakeMetrics) ObserveInsight(string)        {}

func (m *fakeMetrics) DetectorFallback() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fallbacks++
}

func (m *fakeMetrics) ObserveBatch(outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batches = append(m.batches, outcome)
}

type panickingRisk struct{}

func (panickingRisk) Assess(models.PerformanceAnalysis, models.PatternSet) models.RiskAssessment {
	panic("division by zero")
}

func (panickingRisk) Level(float64) string { return "low" }

func TestProcessFormalContentRaisesCriticalInsight(t *testing.T) {
	o := newTestOrchestrator(t)
	rec := models.InteractionRecord{
		PostID: "p1", CreatorID: "c1", Likes: 3, PostedAt: "2024-05-01T03:00:00Z", Content: formalText,
	}

	report, err := o.Process(context.Background(), rec)
	require.NoError(t, err)

	require.True(t, report.Completed())
	require.NotNil(t, report.RiskAssessment)
	critical := report.RiskAssessment.CriticalAlerts()
	require.NotEmpty(t, critical)
	assert.Equal(t, models.RiskAIDetection, critical[0].Category)

	require.NotEmpty(t, report.Insights)
	assert.Equal(t, models.InsightAIDetectionRisk, report.Insights[0].InsightType)
	assert.Equal(t, models.PriorityCritical, report.Insights[0].Priority)

	require.NotNil(t, report.StrategyDelta)
	assert.True(t, report.StrategyDelta.AuthenticityIncreased)
	profile := o.Strategy("c1")
	assert.True(t, o.HasStrategy("c1"))
	assert.False(t, o.HasStrategy("c2"))
	assert.Equal(t, int64(1), profile.Version)
	assert.InDelta(t, 0.7, profile.PersonaAdjustments["authenticity"], 1e-9)

	require.NotNil(t, report.LearningSummary)
	assert.Equal(t, 1, report.LearningSummary.CriticalInsights)
	assert.Equal(t, models.ProgressImproving, report.LearningSummary.LearningProgress)

	stored, ok := o.Report(report.SessionID)
	require.True(t, ok)
	assert.Same(t, report, stored)
}

func TestProcessInvalidRecordFailsWithoutError(t *testing.T) {
	o := newTestOrchestrator(t)

	report, err := o.Process(context.Background(), models.InteractionRecord{PostID: "p1"})

	require.NoError(t, err)
	assert.Equal(t, models.SessionFailed, report.Status)
	assert.Contains(t, report.Error, "creator_id")
	assert.Nil(t, report.PerformanceAnalysis)
	assert.Empty(t, report.Insights)
}

func TestStagePanicLeavesStateUntouched(t *testing.T) {
	o := newTestOrchestrator(t)
	o.risk = panickingRisk{}

	report, err := o.Process(context.Background(), testRecord("c1", 0))

	require.NoError(t, err)
	assert.Equal(t, models.SessionFailed, report.Status)
	assert.Contains(t, report.Error, "risk stage failed")
	assert.Nil(t, report.PerformanceAnalysis)
	assert.False(t, o.Store().Known("c1"))
	assert.Empty(t, o.Store().Snapshot().History)
}

func TestProcessHonoursCancelledContext(t *testing.T) {
	o := newTestOrchestrator(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := o.Process(ctx, testRecord("c1", 0))

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, models.SessionFailed, report.Status)
	assert.Empty(t, o.Store().Snapshot().History)
}

func TestSinkFailureLeavesStateUntouched(t *testing.T) {
	sink := &fakeSink{err: errors.New("connection refused")}
	o := newTestOrchestrator(t, WithSink(sink))

	report, err := o.Process(context.Background(), testRecord("c1", 0))

	assert.ErrorIs(t, err, ErrPersistenceUnavailable)
	assert.Equal(t, models.SessionFailed, report.Status)
	assert.False(t, o.Store().Known("c1"))
	assert.Empty(t, o.Store().Snapshot().History)
}

func TestSinkReceivesCommittedVersion(t *testing.T) {
	sink := &fakeSink{}
	o := newTestOrchestrator(t, WithSink(sink))

	for i := range 3 {
		_, err := o.Process(context.Background(), models.InteractionRecord{
			PostID: fmt.Sprintf("p%d", i), CreatorID: "c1", PostedAt: "2024-05-01T03:00:00Z", Content: formalText,
		})
		require.NoError(t, err)
	}

	require.Len(t, sink.reports, 3)
	require.Len(t, sink.strategies, 3)
	for i, p := range sink.strategies {
		assert.Equal(t, int64(i+1), p.Version)
	}
	assert.Equal(t, int64(3), o.Strategy("c1").Version)
}

func TestSideEffectsRunAfterCommit(t *testing.T) {
	notifier := &fakeNotifier{}
	publisher := &fakePublisher{err: errors.New("redis down")}
	o := newTestOrchestrator(t, WithNotifier(notifier), WithPublisher(publisher))

	report, err := o.Process(context.Background(), models.InteractionRecord{
		PostID: "p1", CreatorID: "c1", PostedAt: "2024-05-01T03:00:00Z", Content: formalText,
	})

	require.NoError(t, err)
	assert.True(t, report.Completed(), "publisher errors never fail the session")
	require.Len(t, notifier.reports, 1)
	assert.Equal(t, report.SessionID, notifier.reports[0].SessionID)
	require.Len(t, publisher.profiles, 1)
	assert.Equal(t, int64(1), publisher.profiles[0].Version)
}

func TestDetectorOverridesHeuristic(t *testing.T) {
	o := newTestOrchestrator(t, WithDetector(fakeDetector{score: 0.95, ok: true}))

	report, err := o.Process(context.Background(), testRecord("c1", 2))

	require.NoError(t, err)
	content := report.PerformanceAnalysis.ContentAnalysis
	assert.Equal(t, models.DetectionModel, content.AIDetectionSource)
	assert.Equal(t, 0.95, content.AIDetectionRisk)
}

func TestDetectorFallbackKeepsHeuristic(t *testing.T) {
	m := &fakeMetrics{}
	o := newTestOrchestrator(t, WithDetector(fakeDetector{ok: false}), WithMetrics(m))

	report, err := o.Process(context.Background(), testRecord("c1", 0))

	require.NoError(t, err)
	assert.Equal(t, models.DetectionHeuristic, report.PerformanceAnalysis.ContentAnalysis.AIDetectionSource)
	assert.Equal(t, 1, m.fallbacks)
	assert.Equal(t, 1, m.sessions[models.SessionCompleted])
}

func TestHistoryFeedsTrend(t *testing.T) {
	o := newTestOrchestrator(t)

	var last *models.LearningReport
	for i, total := range []int{10, 20, 30, 40, 50} {
		report, err := o.Process(context.Background(), models.InteractionRecord{
			PostID: fmt.Sprintf("p%d", i), CreatorID: "c1", TotalInteractions: total,
		})
		require.NoError(t, err)
		last = report
	}

	assert.Equal(t, models.TrendImproving, last.PerformanceAnalysis.PerformanceTrend.Trend)
	assert.Equal(t, []float64{10, 20, 30, 40, 50}, o.Store().Snapshot().History["c1"])
}

func TestReportHistoryIsBounded(t *testing.T) {
	cfg := config.DefaultEngine()
	cfg.ReportHistoryLimit = 3
	o := New(cfg, strategy.NewStore(cfg.HistoryLimit), zap.NewNop())

	var first *models.LearningReport
	for i := range 5 {
		report, err := o.Process(context.Background(), testRecord("c1", i))
		require.NoError(t, err)
		if i == 0 {
			first = report
		}
	}

	assert.Len(t, o.Reports(), 3)
	_, ok := o.Report(first.SessionID)
	assert.False(t, ok)
}

func TestDashboard(t *testing.T) {
	o := newTestOrchestrator(t)
	for i := range 4 {
		_, err := o.Process(context.Background(), testRecord(fmt.Sprintf("c%d", i%2), i))
		require.NoError(t, err)
	}
	_, err := o.Process(context.Background(), models.InteractionRecord{PostID: "broken"})
	require.NoError(t, err)

	stats := o.Dashboard()

	assert.Equal(t, 5, stats.TotalSessions)
	assert.Equal(t, 4, stats.SessionsByStatus[models.SessionCompleted])
	assert.Equal(t, 1, stats.SessionsByStatus[models.SessionFailed])
	assert.Equal(t, 2, stats.CreatorsTracked)
	assert.Greater(t, stats.AvgOverallRisk, 0.0)
}
