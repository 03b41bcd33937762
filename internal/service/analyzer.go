package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/godilite/assessment-server/internal/repository/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultBatchSize      = 50
	DefaultCandidateLimit = 20
	maxEmbeddedComparable = 10
	candidateScanFactor   = 5
)

// Thresholds map a fairness score to a recommendation. Scores below Appeal
// are strong appeals, below Moderate moderate appeals, below Monitor weak
// monitors; anything else needs no action.
type Thresholds struct {
	Appeal   float64
	Moderate float64
	Monitor  float64
}

func DefaultThresholds() Thresholds {
	return Thresholds{Appeal: 40, Moderate: 55, Monitor: 70}
}

func (t Thresholds) Validate() error {
	if t.Appeal < 0 || t.Monitor > 100 || t.Appeal > t.Moderate || t.Moderate > t.Monitor {
		return fmt.Errorf("%w: thresholds must satisfy 0 <= appeal <= moderate <= monitor <= 100", ErrValidation)
	}
	return nil
}

// Recommend derives the action for a score. An appeal that would not save
// enough to be worthwhile becomes a monitor with the same strength.
func (t Thresholds) Recommend(score float64, worthwhile bool) (RecommendedAction, *AppealStrength) {
	var action RecommendedAction
	var strength AppealStrength
	switch {
	case score < t.Appeal:
		action, strength = ActionAppeal, StrengthStrong
	case score < t.Moderate:
		action, strength = ActionAppeal, StrengthModerate
	case score < t.Monitor:
		action, strength = ActionMonitor, StrengthWeak
	default:
		return ActionNone, nil
	}
	if action == ActionAppeal && !worthwhile {
		action = ActionMonitor
	}
	return action, &strength
}

// AssessmentAnalyzer combines comparables, fairness and savings into an
// AssessmentAnalysis and persists the results.
type AssessmentAnalyzer struct {
	comparables *ComparableService
	savings     *SavingsEstimator
	analyses    AnalysisRepository
	thresholds  Thresholds
	workers     int
	poolSize    int
	now         func() time.Time
	logger      *zap.Logger
}

type AnalyzerOption func(*AssessmentAnalyzer)

func WithThresholds(t Thresholds) AnalyzerOption {
	return func(a *AssessmentAnalyzer) {
		a.thresholds = t
	}
}

// WithBatchWorkers bounds how many parcels of a batch chunk run at once.
func WithBatchWorkers(n int) AnalyzerOption {
	return func(a *AssessmentAnalyzer) {
		if n > 0 {
			a.workers = n
		}
	}
}

// WithComparablePool sets how many ranked comparables feed the fairness
// statistics of one analysis.
func WithComparablePool(n int) AnalyzerOption {
	return func(a *AssessmentAnalyzer) {
		if n > 0 {
			a.poolSize = n
		}
	}
}

func WithClock(now func() time.Time) AnalyzerOption {
	return func(a *AssessmentAnalyzer) {
		if now != nil {
			a.now = now
		}
	}
}

// NewAssessmentAnalyzer creates an AssessmentAnalyzer. It panics on a nil
// dependency or invalid thresholds.
func NewAssessmentAnalyzer(comparables *ComparableService, savings *SavingsEstimator, analyses AnalysisRepository, logger *zap.Logger, opts ...AnalyzerOption) *AssessmentAnalyzer {
	if comparables == nil {
		panic("comparable service must not be nil")
	}
	if analyses == nil {
		panic("analysis repository must not be nil")
	}
	if savings == nil {
		savings = NewSavingsEstimator()
	}
	if logger == nil {
		l, _ := zap.NewProduction()
		logger = l
	}

	a := &AssessmentAnalyzer{
		comparables: comparables,
		savings:     savings,
		analyses:    analyses,
		thresholds:  DefaultThresholds(),
		workers:     1,
		poolSize:    DefaultComparableLimit,
		now:         time.Now,
		logger:      logger.Named("analyzer"),
	}
	for _, opt := range opts {
		opt(a)
	}
	if err := a.thresholds.Validate(); err != nil {
		panic(err.Error())
	}
	return a
}

// AnalyzeProperty analyses one parcel. A nil analysis with a nil error means
// there was not enough data: unknown parcel, no comparables or no usable
// values.
func (a *AssessmentAnalyzer) AnalyzeProperty(ctx context.Context, identifier string) (*AssessmentAnalysis, error) {
	subject, err := a.comparables.resolve(ctx, identifier)
	if err != nil {
		if errors.Is(err, ErrPropertyNotFound) {
			a.logger.Info("property not found", zap.String("identifier", identifier))
			return nil, nil
		}
		return nil, err
	}
	if !subject.Scoreable() {
		a.logger.Debug("property has no total value", zap.String("parcel_id", subject.Key()))
		return nil, nil
	}

	comps, err := a.comparables.comparablesFor(ctx, subject, a.poolSize)
	if err != nil {
		return nil, err
	}
	if len(comps) == 0 {
		a.logger.Info("no comparables", zap.String("parcel_id", subject.Key()))
		return nil, nil
	}

	values := make([]int64, len(comps))
	for i, c := range comps {
		values[i] = c.TotalValueCents
	}
	fairness := a.comparables.scorer.Calculate(subject.TotalValueCents, values)
	if fairness == nil {
		return nil, nil
	}

	ratio := medianComparableRatio(comps, a.comparables.scorer.statutoryRatio)
	savings, err := a.savings.EstimateFromFairness(subject.AssessedValueCents, subject.TotalValueCents, ratio, 0)
	if err != nil {
		return nil, fmt.Errorf("estimate savings for %s: %w", subject.Key(), err)
	}

	action, strength := a.thresholds.Recommend(fairness.FairnessScore, savings.Worthwhile)

	embedded := min(len(comps), maxEmbeddedComparable)
	summaries := make([]ComparableSummary, 0, embedded)
	for _, c := range comps[:embedded] {
		summaries = append(summaries, ComparableSummary{
			PropertyID:         c.ID,
			ParcelID:           c.Key(),
			Address:            c.Address,
			TotalValueCents:    c.TotalValueCents,
			AssessedValueCents: c.AssessedValueCents,
			Acreage:            c.Acreage,
			DistanceMiles:      c.DistanceMiles,
			MatchType:          c.MatchType,
			SimilarityScore:    round2(c.SimilarityScore),
		})
	}

	analysis := &AssessmentAnalysis{
		ID:                    uuid.New(),
		PropertyID:            subject.ID,
		ParcelID:              subject.Key(),
		Address:               subject.Address,
		OwnerName:             subject.OwnerName,
		PropertyType:          subject.PropertyType,
		Subdivision:           subject.Subdivision,
		TotalValueCents:       subject.TotalValueCents,
		AssessedValueCents:    subject.AssessedValueCents,
		Acreage:               subject.Acreage,
		MedianComparableRatio: ratio,
		FairnessResult:        *fairness,
		SavingsEstimate:       savings,
		Comparables:           summaries,
		RecommendedAction:     action,
		AppealStrength:        strength,
		AnalysisDate:          a.now().UTC(),
	}

	a.logger.Info("property analyzed",
		zap.String("parcel_id", analysis.ParcelID),
		zap.Float64("fairness_score", fairness.FairnessScore),
		zap.Int("comparables", len(comps)),
		zap.String("action", string(action)))

	return analysis, nil
}

type batchConfig struct {
	save bool
}

type BatchOption func(*batchConfig)

// WithSave persists every successful analysis of the batch.
func WithSave() BatchOption {
	return func(c *batchConfig) {
		c.save = true
	}
}

type batchOutcome struct {
	analysis *AssessmentAnalysis
	err      error
}

// AnalyzeBatch analyses identifiers in chunks of batchSize. Items of a chunk
// run on at most the configured number of workers. Failures are counted per
// item and never stop the batch.
func (a *AssessmentAnalyzer) AnalyzeBatch(ctx context.Context, identifiers []string, batchSize int, opts ...BatchOption) BatchResult {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	var cfg batchConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	outcomes := make([]batchOutcome, len(identifiers))
	for start := 0; start < len(identifiers); start += batchSize {
		end := min(start+batchSize, len(identifiers))

		if err := ctx.Err(); err != nil {
			for i := start; i < len(identifiers); i++ {
				outcomes[i].err = err
			}
			break
		}

		var g errgroup.Group
		g.SetLimit(a.workers)
		for i := start; i < end; i++ {
			g.Go(func() error {
				outcomes[i] = a.analyzeOne(ctx, identifiers[i], cfg)
				return nil
			})
		}
		_ = g.Wait()

		a.logger.Debug("batch chunk done", zap.Int("from", start), zap.Int("to", end))
	}

	result := BatchResult{Analyses: make([]*AssessmentAnalysis, 0, len(identifiers))}
	for i, o := range outcomes {
		switch {
		case o.err != nil:
			result.Errored++
			if result.Errors == nil {
				result.Errors = make(map[string]string)
			}
			result.Errors[identifiers[i]] = o.err.Error()
		case o.analysis == nil:
			result.Skipped++
		default:
			result.Analyzed++
			result.Analyses = append(result.Analyses, o.analysis)
		}
	}

	a.logger.Info("batch analyzed",
		zap.Int("requested", len(identifiers)),
		zap.Int("analyzed", result.Analyzed),
		zap.Int("skipped", result.Skipped),
		zap.Int("errored", result.Errored))

	return result
}

func (a *AssessmentAnalyzer) analyzeOne(ctx context.Context, identifier string, cfg batchConfig) batchOutcome {
	analysis, err := a.AnalyzeProperty(ctx, identifier)
	if err != nil {
		a.logger.Warn("batch item failed", zap.String("identifier", identifier), zap.Error(err))
		return batchOutcome{err: err}
	}
	if analysis != nil && cfg.save {
		if err := a.SaveAnalysis(ctx, analysis); err != nil {
			return batchOutcome{err: err}
		}
	}
	return batchOutcome{analysis: analysis}
}

// FindAppealCandidates returns analyses scoring below scoreThreshold with an
// actionable recommendation, lowest score first. Persisted analyses are used
// when any exist; otherwise a fresh pass over scoreable parcels is made.
func (a *AssessmentAnalyzer) FindAppealCandidates(ctx context.Context, scoreThreshold float64, limit int) ([]*AssessmentAnalysis, error) {
	if limit <= 0 {
		limit = DefaultCandidateLimit
	}

	persisted, err := a.hasPersisted(ctx)
	if err != nil {
		return nil, err
	}
	if persisted {
		return a.persistedCandidates(ctx, scoreThreshold, limit)
	}
	return a.freshCandidates(ctx, scoreThreshold, limit)
}

func (a *AssessmentAnalyzer) hasPersisted(ctx context.Context) (bool, error) {
	dbCtx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	ok, err := a.analyses.Any(dbCtx)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}
	return ok, nil
}

func (a *AssessmentAnalyzer) persistedCandidates(ctx context.Context, scoreThreshold float64, limit int) ([]*AssessmentAnalysis, error) {
	dbCtx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	records, err := a.analyses.LatestBelowScore(dbCtx, scoreThreshold, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}
	return a.decodeRecords(records), nil
}

func (a *AssessmentAnalyzer) freshCandidates(ctx context.Context, scoreThreshold float64, limit int) ([]*AssessmentAnalysis, error) {
	dbCtx, cancel := context.WithTimeout(ctx, dbTimeout)
	keys, err := a.comparables.parcels.ListScoreableKeys(dbCtx, limit*candidateScanFactor)
	cancel()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}

	batch := a.AnalyzeBatch(ctx, keys, DefaultBatchSize)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if batch.Errored > 0 {
		if batch.Analyzed == 0 {
			return nil, fmt.Errorf("%w: %d of %d parcels failed analysis", ErrStorageFailure, batch.Errored, len(keys))
		}
		a.logger.Warn("candidate scan incomplete",
			zap.Int("analyzed", batch.Analyzed),
			zap.Int("errored", batch.Errored))
	}

	out := make([]*AssessmentAnalysis, 0, len(batch.Analyses))
	for _, an := range batch.Analyses {
		if an.FairnessScore < scoreThreshold && an.RecommendedAction != ActionNone {
			out = append(out, an)
		}
	}
	sortCandidates(out)

	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func sortCandidates(list []*AssessmentAnalysis) {
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].FairnessScore != list[j].FairnessScore {
			return list[i].FairnessScore < list[j].FairnessScore
		}
		return list[i].AnnualSavingsCents > list[j].AnnualSavingsCents
	})
}

// SaveAnalysis appends the analysis to the history store.
func (a *AssessmentAnalyzer) SaveAnalysis(ctx context.Context, analysis *AssessmentAnalysis) error {
	if analysis == nil {
		return fmt.Errorf("%w: analysis is nil", ErrValidation)
	}

	payload, err := json.Marshal(analysis)
	if err != nil {
		return fmt.Errorf("marshal analysis: %w", err)
	}

	rec := models.AnalysisRecord{
		ID:                    analysis.ID,
		PropertyID:            analysis.PropertyID,
		ParcelID:              analysis.ParcelID,
		FairnessScore:         analysis.FairnessScore,
		RecommendedAction:     string(analysis.RecommendedAction),
		ConfidenceLevel:       analysis.Confidence,
		ComparableCount:       analysis.ComparableCount,
		EstimatedSavingsCents: analysis.AnnualSavingsCents,
		AnalysisDate:          analysis.AnalysisDate,
		Payload:               payload,
		CreatedAt:             a.now().UTC(),
	}
	if analysis.AppealStrength != nil {
		rec.AppealStrength = string(*analysis.AppealStrength)
	}

	dbCtx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	if err := a.analyses.Insert(dbCtx, rec); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}

	a.logger.Debug("analysis saved",
		zap.String("parcel_id", analysis.ParcelID),
		zap.String("analysis_id", analysis.ID.String()))
	return nil
}

// AnalysisHistory returns the persisted analyses of a parcel, newest first.
func (a *AssessmentAnalyzer) AnalysisHistory(ctx context.Context, identifier string, limit int) ([]*AssessmentAnalysis, error) {
	if limit <= 0 {
		limit = DefaultCandidateLimit
	}
	subject, err := a.comparables.resolve(ctx, identifier)
	if err != nil {
		return nil, err
	}

	dbCtx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	records, err := a.analyses.History(dbCtx, subject.ID, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}
	return a.decodeRecords(records), nil
}

func (a *AssessmentAnalyzer) decodeRecords(records []models.AnalysisRecord) []*AssessmentAnalysis {
	out := make([]*AssessmentAnalysis, 0, len(records))
	for _, rec := range records {
		var an AssessmentAnalysis
		if err := json.Unmarshal(rec.Payload, &an); err != nil {
			a.logger.Warn("skipping undecodable analysis",
				zap.String("analysis_id", rec.ID.String()),
				zap.Error(err))
			continue
		}
		out = append(out, &an)
	}
	return out
}

// medianComparableRatio is the median assessed/total ratio among comparables
// with a usable ratio in (0, 1], or fallback when none qualifies.
func medianComparableRatio(comps []ComparableProperty, fallback float64) float64 {
	ratios := make([]float64, 0, len(comps))
	for _, c := range comps {
		if r := c.AssessmentRatio(); r > 0 && r <= 1 {
			ratios = append(ratios, r)
		}
	}
	if len(ratios) == 0 {
		return fallback
	}
	return median(ratios)
}
