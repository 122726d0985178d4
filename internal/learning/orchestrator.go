// Package learning runs the per-record learning session and keeps the session history
// used for period reports.
//
// A session runs Analyzer, PatternDetector, RiskAssessor, InsightGenerator and
// StrategyUpdater in order while holding the creator's lock in the strategy store.
// History and strategy are committed only after every stage succeeded and the report
// was persisted, so a failed session leaves the creator's state untouched.
package learning

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"engagement-engine/internal/analyzer"
	"engagement-engine/internal/config"
	"engagement-engine/internal/insight"
	"engagement-engine/internal/models"
	"engagement-engine/internal/patterns"
	"engagement-engine/internal/risk"
	"engagement-engine/internal/strategy"
)

// ErrPersistenceUnavailable is returned when the configured sink could not store a session.
var ErrPersistenceUnavailable = errors.New("persistence unavailable")

const (
	maxConflictRetries = 3
	sideEffectTimeout  = 5 * time.Second
)

// Sink persists finished sessions and committed strategy profiles.
type Sink interface {
	SaveReport(ctx context.Context, report *models.LearningReport) error
	SaveStrategy(ctx context.Context, profile models.StrategyProfile) error
}

// Notifier is told about completed sessions that raised critical alerts.
type Notifier interface {
	NotifyCritical(ctx context.Context, report *models.LearningReport) error
}

// Publisher distributes committed strategy profiles to the content-generation side.
type Publisher interface {
	PublishStrategy(ctx context.Context, profile models.StrategyProfile) error
}

// Detector scores content with an external model. ok is false when the caller should
// keep the heuristic score.
type Detector interface {
	Score(ctx context.Context, text string) (score float64, ok bool)
}

// Metrics receives pipeline observations.
type Metrics interface {
	ObserveSession(status string, d time.Duration)
	ObserveAlert(category, level string)
	ObserveInsight(priority string)
	DetectorFallback()
	ObserveBatch(outcome string)
}

type analysisStage interface {
	Analyze(record models.InteractionRecord, history []float64) models.PerformanceAnalysis
}

type patternStage interface {
	Detect(analysis models.PerformanceAnalysis, record models.InteractionRecord, window []float64) models.PatternSet
}

type riskStage interface {
	Assess(analysis models.PerformanceAnalysis, patterns models.PatternSet) models.RiskAssessment
	Level(overall float64) string
}

type insightStage interface {
	Generate(analysis models.PerformanceAnalysis, patterns models.PatternSet, risk models.RiskAssessment) []models.Insight
}

type strategyStage interface {
	Apply(profile models.StrategyProfile, insights []models.Insight) (models.StrategyProfile, models.StrategyDelta)
}

// Option configures optional collaborators.
type Option func(*Orchestrator)

// WithSink persists every session and strategy commit.
func WithSink(sink Sink) Option {
	return func(o *Orchestrator) { o.sink = sink }
}

// WithNotifier sends critical-alert notifications.
func WithNotifier(n Notifier) Option {
	return func(o *Orchestrator) { o.notifier = n }
}

// WithPublisher publishes committed strategy profiles.
func WithPublisher(p Publisher) Option {
	return func(o *Orchestrator) { o.publisher = p }
}

// WithDetector plugs in an external AI-detection model.
func WithDetector(d Detector) Option {
	return func(o *Orchestrator) { o.detector = d }
}

// WithMetrics records pipeline metrics.
func WithMetrics(m Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// WithClock overrides the wall clock used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// Orchestrator composes the pipeline stages and owns the session history.
type Orchestrator struct {
	cfg    config.Engine
	store  *strategy.Store
	logger *zap.Logger

	analyzer analysisStage
	patterns patternStage
	risk     riskStage
	insights insightStage
	updater  strategyStage

	sink      Sink
	notifier  Notifier
	publisher Publisher
	detector  Detector
	metrics   Metrics
	now       func() time.Time

	mu      sync.RWMutex
	reports []*models.LearningReport
	byID    map[string]*models.LearningReport
}

// New creates an orchestrator over store.
func New(cfg config.Engine, store *strategy.Store, logger *zap.Logger, opts ...Option) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	o := &Orchestrator{
		cfg:    cfg,
		store:  store,
		logger: logger,
		now:    time.Now,
		byID:   make(map[string]*models.LearningReport),
	}
	for _, opt := range opts {
		opt(o)
	}

	gen := insight.NewGenerator(cfg)
	gen.Now = o.now
	upd := strategy.NewUpdater()
	upd.Now = o.now

	o.analyzer = analyzer.New(cfg, logger)
	o.patterns = patterns.NewDetector(cfg)
	o.risk = risk.NewAssessor(cfg)
	o.insights = gen
	o.updater = upd
	return o
}

// Use applies options after construction, for collaborators that depend on the
// orchestrator themselves. It must be called before any record is processed.
func (o *Orchestrator) Use(opts ...Option) {
	for _, opt := range opts {
		opt(o)
	}
}

// Store returns the strategy store backing the orchestrator.
func (o *Orchestrator) Store() *strategy.Store {
	return o.store
}

// Strategy returns a read-only copy of the creator's profile; unknown creators get defaults.
func (o *Orchestrator) Strategy(creatorID string) models.StrategyProfile {
	return o.store.Profile(creatorID)
}

// HasStrategy reports whether the creator has a learned profile rather than defaults.
func (o *Orchestrator) HasStrategy(creatorID string) bool {
	return o.store.Known(creatorID)
}

// Process runs one learning session. The returned report is never nil. A non-nil error
// means the record was not processed at all: ctx was done before it started, or the
// sink failed (wrapping ErrPersistenceUnavailable). Stage failures are reported inside
// the report with status failed and a nil error.
func (o *Orchestrator) Process(ctx context.Context, record models.InteractionRecord) (*models.LearningReport, error) {
	start := o.now()
	report := &models.LearningReport{
		SessionID: uuid.NewString(),
		CreatorID: record.CreatorID,
		PostID:    record.PostID,
		Record:    record,
		Insights:  []models.Insight{},
		Timestamp: start,
	}

	if err := ctx.Err(); err != nil {
		o.fail(report, err)
		o.finish(report, start)
		return report, err
	}

	if err := record.Validate(); err != nil {
		o.fail(report, err)
		o.finish(report, start)
		return report, nil
	}

	modelScore, modelOK := o.detect(ctx, record)

	var (
		profile *models.StrategyProfile
		err     error
	)
	for attempt := 0; ; attempt++ {
		profile, err = o.runSession(ctx, report, record, modelScore, modelOK)
		if !errors.Is(err, strategy.ErrStateConflict) || attempt >= maxConflictRetries {
			break
		}
		o.logger.Warn("Strategy commit conflicted, retrying session",
			zap.String("creator_id", record.CreatorID),
			zap.String("post_id", record.PostID),
			zap.Int("attempt", attempt+1),
			zap.Error(err))
	}

	if err != nil {
		o.fail(report, err)
		o.finish(report, start)
		if errors.Is(err, ErrPersistenceUnavailable) {
			return report, err
		}
		return report, nil
	}

	o.finish(report, start)
	o.afterCommit(ctx, report, profile)
	return report, nil
}

// runSession computes every artifact under the creator's lock, persists them and then
// commits history and strategy. It returns the committed profile, if any.
func (o *Orchestrator) runSession(ctx context.Context, report *models.LearningReport, record models.InteractionRecord, modelScore float64, modelOK bool) (*models.StrategyProfile, error) {
	tx := o.store.Begin(record.CreatorID)
	defer tx.Close()

	history := tx.History(o.cfg.HistoryLimit)
	window := history[max(0, len(history)-o.cfg.HistoryWindow):]

	var (
		analysis   models.PerformanceAnalysis
		patternSet models.PatternSet
		assessment models.RiskAssessment
		insights   []models.Insight
		updated    models.StrategyProfile
		delta      models.StrategyDelta
	)

	if err := runStage("analysis", func() {
		analysis = o.analyzer.Analyze(record, history)
		if modelOK {
			analysis.ContentAnalysis.AIDetectionRisk = modelScore
			analysis.ContentAnalysis.AIDetectionSource = models.DetectionModel
		}
	}); err != nil {
		return nil, err
	}
	if err := runStage("patterns", func() {
		patternSet = o.patterns.Detect(analysis, record, window)
	}); err != nil {
		return nil, err
	}
	if err := runStage("risk", func() {
		assessment = o.risk.Assess(analysis, patternSet)
	}); err != nil {
		return nil, err
	}
	if err := runStage("insights", func() {
		insights = o.insights.Generate(analysis, patternSet, assessment)
	}); err != nil {
		return nil, err
	}

	base := tx.Profile()
	var next *models.StrategyProfile
	if len(insights) > 0 {
		if err := runStage("strategy", func() {
			updated, delta = o.updater.Apply(base, insights)
		}); err != nil {
			return nil, err
		}
		next = &updated
	}

	report.PerformanceAnalysis = &analysis
	report.Patterns = &patternSet
	report.RiskAssessment = &assessment
	report.Insights = insights
	if next != nil {
		report.StrategyDelta = &delta
	}
	report.LearningSummary = o.summarize(assessment, insights)
	report.Status = models.SessionCompleted
	report.Error = ""
	report.CompletedAt = o.now()

	if err := o.persist(ctx, report, next); err != nil {
		return nil, err
	}

	version, err := tx.Commit(analyzer.HistoryPoint(record), next)
	if err != nil {
		return nil, err
	}
	if next != nil {
		committed := next.Clone()
		committed.Version = version
		return &committed, nil
	}
	return nil, nil
}

// persist stores the report and the profile about to be committed. It ignores ctx
// cancellation so a session that already started is never half-persisted.
func (o *Orchestrator) persist(ctx context.Context, report *models.LearningReport, profile *models.StrategyProfile) error {
	if o.sink == nil {
		return nil
	}
	ctx = context.WithoutCancel(ctx)

	if err := o.sink.SaveReport(ctx, report); err != nil {
		return fmt.Errorf("%w: save report: %v", ErrPersistenceUnavailable, err)
	}
	if profile != nil {
		p := profile.Clone()
		p.Version++
		if err := o.sink.SaveStrategy(ctx, p); err != nil {
			return fmt.Errorf("%w: save strategy: %v", ErrPersistenceUnavailable, err)
		}
	}
	return nil
}

func (o *Orchestrator) detect(ctx context.Context, record models.InteractionRecord) (float64, bool) {
	if o.detector == nil || record.Content == "" {
		return 0, false
	}
	score, ok := o.detector.Score(ctx, record.Content)
	if !ok && o.metrics != nil {
		o.metrics.DetectorFallback()
	}
	return score, ok
}

func (o *Orchestrator) summarize(assessment models.RiskAssessment, insights []models.Insight) *models.LearningSummary {
	summary := &models.LearningSummary{
		TotalInsights:    len(insights),
		HighestRisk:      assessment.HighestCategory(),
		OverallRiskLevel: o.risk.Level(assessment.OverallRisk),
		LearningProgress: models.ProgressStable,
	}
	for _, in := range insights {
		switch in.Priority {
		case models.PriorityCritical:
			summary.CriticalInsights++
		case models.PriorityHigh:
			summary.HighPriorityInsights++
		}
		if in.ImpactScore > 0.6 {
			summary.RecommendedActions++
		}
	}
	if len(insights) > 0 {
		summary.LearningProgress = models.ProgressImproving
	}
	return summary
}

func (o *Orchestrator) fail(report *models.LearningReport, err error) {
	report.Status = models.SessionFailed
	report.Error = err.Error()
	report.PerformanceAnalysis = nil
	report.Patterns = nil
	report.RiskAssessment = nil
	report.Insights = []models.Insight{}
	report.StrategyDelta = nil
	report.LearningSummary = nil
	report.CompletedAt = o.now()

	o.logger.Warn("Learning session failed",
		zap.String("session_id", report.SessionID),
		zap.String("creator_id", report.CreatorID),
		zap.String("post_id", report.PostID),
		zap.Error(err))
}

// finish records the report in the bounded history and emits metrics.
func (o *Orchestrator) finish(report *models.LearningReport, start time.Time) {
	o.mu.Lock()
	o.reports = append(o.reports, report)
	o.byID[report.SessionID] = report
	if limit := o.cfg.ReportHistoryLimit; limit > 0 && len(o.reports) > limit {
		evicted := len(o.reports) - limit
		for _, r := range o.reports[:evicted] {
			delete(o.byID, r.SessionID)
		}
		o.reports = append([]*models.LearningReport(nil), o.reports[evicted:]...)
	}
	o.mu.Unlock()

	if o.metrics == nil {
		return
	}
	o.metrics.ObserveSession(report.Status, o.now().Sub(start))
	if report.RiskAssessment != nil {
		for _, a := range report.RiskAssessment.Alerts {
			o.metrics.ObserveAlert(a.Category, a.Level)
		}
	}
	for _, in := range report.Insights {
		o.metrics.ObserveInsight(string(in.Priority))
	}
}

// afterCommit runs best-effort side effects; their failures never fail the session.
func (o *Orchestrator) afterCommit(ctx context.Context, report *models.LearningReport, profile *models.StrategyProfile) {
	if o.notifier == nil && o.publisher == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sideEffectTimeout)
	defer cancel()

	if o.notifier != nil && len(report.RiskAssessment.CriticalAlerts()) > 0 {
		if err := o.notifier.NotifyCritical(ctx, report); err != nil {
			o.logger.Error("Failed to send critical alert notification",
				zap.String("session_id", report.SessionID),
				zap.Error(err))
		}
	}
	if o.publisher != nil && profile != nil {
		if err := o.publisher.PublishStrategy(ctx, *profile); err != nil {
			o.logger.Error("Failed to publish strategy profile",
				zap.String("creator_id", profile.CreatorID),
				zap.Error(err))
		}
	}
}

// Report returns a retained session by id.
func (o *Orchestrator) Report(sessionID string) (*models.LearningReport, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	r, ok := o.byID[sessionID]
	return r, ok
}

// Reports returns the retained sessions, oldest first.
func (o *Orchestrator) Reports() []*models.LearningReport {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return append([]*models.LearningReport(nil), o.reports...)
}

// StageError is a pipeline stage that failed outside its own degradation guards.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

func runStage(stage string, fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &StageError{Stage: stage, Err: fmt.Errorf("panic: %v", r)}
		}
	}()
	fn()
	return nil
}
