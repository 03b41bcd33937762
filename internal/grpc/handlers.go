package grpc

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/godilite/assessment-server/internal/service"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	defaultCacheDuration  = 10 * time.Minute
	defaultGRPCTimeout    = 10 * time.Second
	defaultScoreThreshold = 60.0
)

type CacheKeyType string

const (
	cacheKeyComparables     CacheKeyType = "grpc:comparables"
	cacheKeyPropertySummary CacheKeyType = "grpc:property_summary"
)

type AssessmentHandlers struct {
	analyzer    AnalysisService
	comparables ComparableFinder
	savings     SavingsCalculator
	cache       Cacher
	logger      *zap.Logger
	sfGroup     singleflight.Group
	cacheTTL    time.Duration
}

var _ AssessmentServer = (*AssessmentHandlers)(nil)

// NewAssessmentHandlers initializes the gRPC handlers. A nil cache disables
// read-through caching.
func NewAssessmentHandlers(analyzer AnalysisService, comparables ComparableFinder, savings SavingsCalculator, cache Cacher, logger *zap.Logger, ttl time.Duration) *AssessmentHandlers {
	if analyzer == nil {
		panic("nil AnalysisService provided to NewAssessmentHandlers")
	}
	if comparables == nil {
		panic("nil ComparableFinder provided to NewAssessmentHandlers")
	}
	if savings == nil {
		panic("nil SavingsCalculator provided to NewAssessmentHandlers")
	}
	if ttl <= 0 {
		ttl = defaultCacheDuration
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AssessmentHandlers{
		analyzer:    analyzer,
		comparables: comparables,
		savings:     savings,
		cache:       cache,
		logger:      logger.Named("grpc-handler"),
		cacheTTL:    ttl,
	}
}

func normalizeKey(prefix CacheKeyType, identifier string, limit int) string {
	return fmt.Sprintf("%s:%s:%d", prefix, strings.TrimSpace(identifier), limit)
}

func cached[T any](ctx context.Context, s *AssessmentHandlers, key string, fn FetchFunc[T]) (T, error) {
	if s.cache == nil {
		return fn(ctx)
	}
	return FindAndCache(ctx, s.cache, &s.sfGroup, key, s.cacheTTL, s.logger, fn)
}

func requireIdentifier(identifier string) error {
	if strings.TrimSpace(identifier) == "" {
		return status.Error(codes.InvalidArgument, "identifier is required")
	}
	return nil
}

func validateLimit(limit int) error {
	if limit < 0 {
		return status.Error(codes.InvalidArgument, "limit must not be negative")
	}
	return nil
}

func (s *AssessmentHandlers) handleError(ctx context.Context, op string, err error) error {
	switch ctx.Err() {
	case context.Canceled:
		s.logger.Warn("request canceled", zap.String("op", op))
		return status.Error(codes.Canceled, "request canceled")
	case context.DeadlineExceeded:
		s.logger.Warn("request timeout", zap.String("op", op))
		return status.Error(codes.DeadlineExceeded, "request timed out")
	}

	switch {
	case errors.Is(err, service.ErrPropertyNotFound):
		s.logger.Info("property not found", zap.String("op", op))
		return status.Error(codes.NotFound, "property not found")
	case errors.Is(err, service.ErrValidation), errors.Is(err, service.ErrInvalidCriteria):
		s.logger.Info("invalid request", zap.String("op", op), zap.Error(err))
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, service.ErrStorageFailure):
		s.logger.Error("storage failure", zap.String("op", op), zap.Error(err))
		return status.Error(codes.Internal, "database error")
	default:
		s.logger.Error("unexpected error", zap.String("op", op), zap.Error(err))
		return status.Errorf(codes.Internal, "%s failed: %v", op, err)
	}
}

func (s *AssessmentHandlers) AnalyzeProperty(ctx context.Context, req *AnalyzePropertyRequest) (*AnalyzePropertyResponse, error) {
	if err := requireIdentifier(req.Identifier); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, defaultGRPCTimeout)
	defer cancel()

	analysis, err := s.analyzer.AnalyzeProperty(ctx, req.Identifier)
	if err != nil {
		return nil, s.handleError(ctx, "AnalyzeProperty", err)
	}
	if analysis == nil {
		return &AnalyzePropertyResponse{InsufficientData: true}, nil
	}

	if req.Save {
		if err := s.analyzer.SaveAnalysis(ctx, analysis); err != nil {
			return nil, s.handleError(ctx, "AnalyzeProperty", err)
		}
	}

	return &AnalyzePropertyResponse{Analysis: analysis}, nil
}

func (s *AssessmentHandlers) AnalyzeBatch(ctx context.Context, req *AnalyzeBatchRequest) (*AnalyzeBatchResponse, error) {
	if len(req.Identifiers) == 0 {
		return nil, status.Error(codes.InvalidArgument, "identifiers are required")
	}
	if req.BatchSize < 0 {
		return nil, status.Error(codes.InvalidArgument, "batch size must not be negative")
	}

	var opts []service.BatchOption
	if req.Save {
		opts = append(opts, service.WithSave())
	}

	// Batches are long-running and bounded by the caller's deadline only.
	result := s.analyzer.AnalyzeBatch(ctx, req.Identifiers, req.BatchSize, opts...)
	if err := ctx.Err(); err != nil {
		return nil, s.handleError(ctx, "AnalyzeBatch", err)
	}

	return &AnalyzeBatchResponse{BatchResult: result}, nil
}

func (s *AssessmentHandlers) FindComparables(ctx context.Context, req *FindComparablesRequest) (*ComparablesResponse, error) {
	if err := requireIdentifier(req.Identifier); err != nil {
		return nil, err
	}
	if err := validateLimit(req.Limit); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, defaultGRPCTimeout)
	defer cancel()

	cacheKey := normalizeKey(cacheKeyComparables, req.Identifier, req.Limit)

	comps, err := cached(ctx, s, cacheKey, func(fetchCtx context.Context) ([]service.ComparableProperty, error) {
		return s.comparables.FindComparables(fetchCtx, req.Identifier, req.Limit)
	})
	if err != nil {
		return nil, s.handleError(ctx, "FindComparables", err)
	}

	return &ComparablesResponse{Comparables: comps}, nil
}

func (s *AssessmentHandlers) FindComparablesByCriteria(ctx context.Context, req *FindComparablesByCriteriaRequest) (*ComparablesResponse, error) {
	if err := validateLimit(req.Limit); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, defaultGRPCTimeout)
	defer cancel()

	comps, err := s.comparables.FindComparablesByCriteria(ctx, req.Criteria, req.Limit)
	if err != nil {
		return nil, s.handleError(ctx, "FindComparablesByCriteria", err)
	}

	return &ComparablesResponse{Comparables: comps}, nil
}

func (s *AssessmentHandlers) GetPropertySummary(ctx context.Context, req *GetPropertySummaryRequest) (*PropertySummaryResponse, error) {
	if err := requireIdentifier(req.Identifier); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, defaultGRPCTimeout)
	defer cancel()

	cacheKey := normalizeKey(cacheKeyPropertySummary, req.Identifier, 0)

	summary, err := cached(ctx, s, cacheKey, func(fetchCtx context.Context) (service.PropertySummary, error) {
		return s.comparables.GetPropertySummary(fetchCtx, req.Identifier)
	})
	if err != nil {
		return nil, s.handleError(ctx, "GetPropertySummary", err)
	}

	return &PropertySummaryResponse{Summary: summary}, nil
}

func (s *AssessmentHandlers) FindAppealCandidates(ctx context.Context, req *FindAppealCandidatesRequest) (*AnalysesResponse, error) {
	if err := validateLimit(req.Limit); err != nil {
		return nil, err
	}
	threshold := defaultScoreThreshold
	if req.ScoreThreshold != nil {
		threshold = *req.ScoreThreshold
	}
	if threshold < 0 || threshold > 100 {
		return nil, status.Error(codes.InvalidArgument, "score threshold must be between 0 and 100")
	}

	ctx, cancel := context.WithTimeout(ctx, defaultGRPCTimeout)
	defer cancel()

	candidates, err := s.analyzer.FindAppealCandidates(ctx, threshold, req.Limit)
	if err != nil {
		return nil, s.handleError(ctx, "FindAppealCandidates", err)
	}

	return &AnalysesResponse{Analyses: candidates}, nil
}

func (s *AssessmentHandlers) EstimateSavings(ctx context.Context, req *EstimateSavingsRequest) (*EstimateSavingsResponse, error) {
	var millRate float64
	if req.MillRate != nil {
		if !(*req.MillRate > 0) {
			return nil, status.Errorf(codes.InvalidArgument, "mill_rate must be positive, got %v", *req.MillRate)
		}
		millRate = *req.MillRate
	}

	var (
		estimate service.SavingsEstimate
		err      error
	)
	if req.TargetRatio != nil {
		estimate, err = s.savings.EstimateFromFairness(req.CurrentAssessedCents, req.CurrentTotalCents, *req.TargetRatio, millRate)
	} else {
		estimate, err = s.savings.Estimate(req.CurrentAssessedCents, req.TargetAssessedCents, millRate)
	}
	if err != nil {
		return nil, s.handleError(ctx, "EstimateSavings", err)
	}

	return &EstimateSavingsResponse{Estimate: estimate}, nil
}

func (s *AssessmentHandlers) GetAnalysisHistory(ctx context.Context, req *GetAnalysisHistoryRequest) (*AnalysesResponse, error) {
	if err := requireIdentifier(req.Identifier); err != nil {
		return nil, err
	}
	if err := validateLimit(req.Limit); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, defaultGRPCTimeout)
	defer cancel()

	history, err := s.analyzer.AnalysisHistory(ctx, req.Identifier, req.Limit)
	if err != nil {
		return nil, s.handleError(ctx, "GetAnalysisHistory", err)
	}

	return &AnalysesResponse{Analyses: history}, nil
}
