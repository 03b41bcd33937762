package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/godilite/assessment-server/internal/repository"
	"github.com/godilite/assessment-server/internal/repository/models"
	"github.com/godilite/assessment-server/pkg/geo"
	"go.uber.org/zap"
)

const (
	dbTimeout = 3 * time.Second

	DefaultComparableLimit = 20
	DefaultCriteriaLimit   = 10

	minSubdivisionPool     = 5
	proximityRadiusMiles   = 0.5
	subdivisionRadiusMiles = 1.0
	neutralLocationScore   = 50

	typeWeight     = 0.10
	valueWeight    = 0.35
	acreageWeight  = 0.30
	locationWeight = 0.25
)

// matchTier is one step of the comparable search. Tiers are tried in order;
// the first whose pool reaches minCandidates wins.
type matchTier struct {
	matchType     MatchType
	radiusMiles   float64
	minCandidates int
	query         func(subject models.Parcel) (models.CandidateQuery, bool)
}

var defaultTiers = []matchTier{
	{
		matchType:     MatchSubdivision,
		radiusMiles:   subdivisionRadiusMiles,
		minCandidates: minSubdivisionPool,
		query: func(subject models.Parcel) (models.CandidateQuery, bool) {
			if subject.Subdivision == "" {
				return models.CandidateQuery{}, false
			}
			return models.CandidateQuery{
				Subdivision: subject.Subdivision,
				Origin:      subject.Location,
				ExcludeID:   subject.ID,
			}, true
		},
	},
	{
		matchType:     MatchProximity,
		radiusMiles:   proximityRadiusMiles,
		minCandidates: 1,
		query: func(subject models.Parcel) (models.CandidateQuery, bool) {
			if subject.Location == nil {
				return models.CandidateQuery{}, false
			}
			return models.CandidateQuery{
				Origin:      subject.Location,
				RadiusMiles: proximityRadiusMiles,
				ExcludeID:   subject.ID,
			}, true
		},
	},
}

// reference is what candidates are scored against: a real subject parcel or
// the virtual subject described by Criteria.
type reference struct {
	propertyType    string
	totalValueCents int64
	acreage         float64
}

// ComparableService finds and ranks comparable parcels.
type ComparableService struct {
	parcels ParcelRepository
	scorer  *FairnessScorer
	tiers   []matchTier
	logger  *zap.Logger
}

// NewComparableService creates a ComparableService. A nil scorer gets the
// default FairnessScorer.
func NewComparableService(parcels ParcelRepository, scorer *FairnessScorer, logger *zap.Logger) *ComparableService {
	if parcels == nil {
		panic("parcel repository must not be nil")
	}
	if scorer == nil {
		scorer = NewFairnessScorer()
	}
	if logger == nil {
		l, _ := zap.NewProduction()
		logger = l
	}
	return &ComparableService{
		parcels: parcels,
		scorer:  scorer,
		tiers:   defaultTiers,
		logger:  logger.Named("comparables"),
	}
}

// FindComparables ranks comparables for the parcel identified by subjectID
// (a parcel_id, UUID or surrogate key).
func (s *ComparableService) FindComparables(ctx context.Context, subjectID string, limit int) ([]ComparableProperty, error) {
	subject, err := s.resolve(ctx, subjectID)
	if err != nil {
		return nil, err
	}
	return s.comparablesFor(ctx, subject, limit)
}

// FindComparablesByCriteria ranks parcels against a virtual subject.
func (s *ComparableService) FindComparablesByCriteria(ctx context.Context, c Criteria, limit int) ([]ComparableProperty, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultCriteriaLimit
	}

	q := models.CandidateQuery{
		Subdivision:   c.Subdivision,
		PropertyType:  c.PropertyType,
		MinValueCents: c.MinValueCents,
		MaxValueCents: c.MaxValueCents,
		MinAcreage:    c.MinAcreage,
		MaxAcreage:    c.MaxAcreage,
	}
	matchType, radius := MatchSubdivision, subdivisionRadiusMiles
	if c.hasLocation() {
		radius = c.RadiusMiles
		if radius == 0 {
			radius = proximityRadiusMiles
		}
		q.Origin = &geo.Point{Lat: *c.Latitude, Lon: *c.Longitude}
		q.RadiusMiles = radius
		matchType = MatchProximity
	}

	dbCtx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	candidates, err := s.parcels.FindCandidates(dbCtx, q)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}

	ref := reference{propertyType: c.PropertyType, totalValueCents: c.TotalValueCents, acreage: c.Acreage}
	results := scoreCandidates(ref, candidates, matchType, radius)

	s.logger.Debug("criteria search",
		zap.String("match_type", string(matchType)),
		zap.Int("candidates", len(candidates)))

	return truncate(results, limit), nil
}

// GetPropertySummary aggregates the comparables of a parcel and explains its
// fairness position.
func (s *ComparableService) GetPropertySummary(ctx context.Context, subjectID string) (PropertySummary, error) {
	subject, err := s.resolve(ctx, subjectID)
	if err != nil {
		return PropertySummary{}, err
	}

	comps, err := s.comparablesFor(ctx, subject, DefaultComparableLimit)
	if err != nil {
		return PropertySummary{}, err
	}

	summary := PropertySummary{
		Subject:                subject,
		ComparableCount:        len(comps),
		SubjectAssessmentRatio: subject.AssessmentRatio(),
	}
	if len(comps) > 0 {
		summary.MatchType = comps[0].MatchType
	}

	values := make([]int64, 0, len(comps))
	var simTotal, ratioTotal float64
	var ratioCount int
	for _, c := range comps {
		values = append(values, c.TotalValueCents)
		simTotal += c.SimilarityScore
		if r := c.AssessmentRatio(); r > 0 {
			ratioTotal += r
			ratioCount++
		}
	}
	if len(comps) > 0 {
		summary.AverageSimilarity = round2(simTotal / float64(len(comps)))
	}
	if ratioCount > 0 {
		summary.AverageAssessmentRatio = ratioTotal / float64(ratioCount)
	}

	summary.Fairness = s.scorer.Calculate(subject.TotalValueCents, values)
	summary.Explanation = explain(summary.Fairness)
	return summary, nil
}

// resolve looks a parcel up by UUID or surrogate key, falling back to parcel_id.
func (s *ComparableService) resolve(ctx context.Context, identifier string) (models.Parcel, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return models.Parcel{}, fmt.Errorf("%w: empty identifier", ErrPropertyNotFound)
	}

	dbCtx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	id, parcelID, isID := models.ParseIdentifier(identifier)
	var (
		p   models.Parcel
		err error
	)
	if isID {
		p, err = s.parcels.GetByID(dbCtx, id)
		if errors.Is(err, repository.ErrNotFound) {
			p, err = s.parcels.GetByParcelID(dbCtx, identifier)
		}
	} else {
		p, err = s.parcels.GetByParcelID(dbCtx, parcelID)
	}

	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return models.Parcel{}, fmt.Errorf("%w: %s", ErrPropertyNotFound, identifier)
		}
		return models.Parcel{}, fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}
	return p, nil
}

// comparablesFor walks the tiers. When no tier reaches its minimum, the first
// non-empty pool seen is used.
func (s *ComparableService) comparablesFor(ctx context.Context, subject models.Parcel, limit int) ([]ComparableProperty, error) {
	if limit <= 0 {
		limit = DefaultComparableLimit
	}
	ref := reference{
		propertyType:    subject.PropertyType,
		totalValueCents: subject.TotalValueCents,
		acreage:         subject.Acreage,
	}

	var fallback []ComparableProperty
	for _, tier := range s.tiers {
		q, ok := tier.query(subject)
		if !ok {
			continue
		}

		candidates, err := s.fetch(ctx, q)
		if err != nil {
			return nil, err
		}

		s.logger.Debug("tier searched",
			zap.String("parcel_id", subject.Key()),
			zap.String("match_type", string(tier.matchType)),
			zap.Int("candidates", len(candidates)))

		if len(candidates) >= tier.minCandidates {
			return truncate(scoreCandidates(ref, candidates, tier.matchType, tier.radiusMiles), limit), nil
		}
		if fallback == nil && len(candidates) > 0 {
			fallback = scoreCandidates(ref, candidates, tier.matchType, tier.radiusMiles)
		}
	}
	return truncate(fallback, limit), nil
}

func (s *ComparableService) fetch(ctx context.Context, q models.CandidateQuery) ([]models.Candidate, error) {
	dbCtx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	candidates, err := s.parcels.FindCandidates(dbCtx, q)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}
	return candidates, nil
}

func scoreCandidates(ref reference, candidates []models.Candidate, matchType MatchType, radiusMiles float64) []ComparableProperty {
	out := make([]ComparableProperty, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, scoreCandidate(ref, c, matchType, radiusMiles))
	}

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.SimilarityScore != b.SimilarityScore {
			return a.SimilarityScore > b.SimilarityScore
		}
		if da, db := distanceOrInf(a.DistanceMiles), distanceOrInf(b.DistanceMiles); da != db {
			return da < db
		}
		return a.Key() < b.Key()
	})
	return out
}

func scoreCandidate(ref reference, c models.Candidate, matchType MatchType, radiusMiles float64) ComparableProperty {
	cp := ComparableProperty{
		Parcel:        c.Parcel,
		DistanceMiles: c.DistanceMiles,
		MatchType:     matchType,
	}

	if ref.propertyType != "" && c.Parcel.PropertyType == ref.propertyType {
		cp.TypeMatchScore = 100
	}
	cp.ValueMatchScore = relativeMatch(float64(c.Parcel.TotalValueCents), float64(ref.totalValueCents))
	cp.AcreageMatchScore = relativeMatch(c.Parcel.Acreage, ref.acreage)

	cp.LocationScore = neutralLocationScore
	if c.DistanceMiles != nil && radiusMiles > 0 {
		cp.LocationScore = math.Max(0, 100*(1-*c.DistanceMiles/radiusMiles))
	}

	cp.SimilarityScore = typeWeight*cp.TypeMatchScore +
		valueWeight*cp.ValueMatchScore +
		acreageWeight*cp.AcreageMatchScore +
		locationWeight*cp.LocationScore
	return cp
}

// relativeMatch is 100 for identical values, falling linearly to 0 at a 100%
// difference. A non-positive reference scores 0.
func relativeMatch(candidate, subject float64) float64 {
	if subject <= 0 {
		return 0
	}
	return math.Max(0, 100*(1-math.Abs(candidate-subject)/subject))
}

func distanceOrInf(d *float64) float64 {
	if d == nil {
		return math.Inf(1)
	}
	return *d
}

func truncate(comps []ComparableProperty, limit int) []ComparableProperty {
	if len(comps) > limit {
		return comps[:limit]
	}
	return comps
}

func explain(f *FairnessResult) string {
	if f == nil {
		return "Not enough comparable properties to assess fairness."
	}
	above := 0.0
	if f.MedianValueCents > 0 {
		above = float64(f.SubjectValueCents-f.MedianValueCents) / float64(f.MedianValueCents) * 100
	}
	switch f.Interpretation {
	case InterpretationFair:
		return fmt.Sprintf("Value is in line with %d comparable properties (fairness score %.0f).",
			f.ComparableCount, f.FairnessScore)
	case InterpretationPotentiallyOverAssessed:
		return fmt.Sprintf("Value is %.1f%% above the median of %d comparable properties; worth monitoring.",
			above, f.ComparableCount)
	default:
		return fmt.Sprintf("Value is %.1f%% above the median of %d comparable properties; an appeal may be warranted.",
			above, f.ComparableCount)
	}
}

func (c Criteria) hasLocation() bool {
	return c.Latitude != nil && c.Longitude != nil
}

// Validate checks that the criteria can drive a search.
func (c Criteria) Validate() error {
	if (c.Latitude == nil) != (c.Longitude == nil) {
		return fmt.Errorf("%w: latitude and longitude must be given together", ErrInvalidCriteria)
	}
	if c.hasLocation() {
		if !(geo.Point{Lat: *c.Latitude, Lon: *c.Longitude}).Valid() {
			return fmt.Errorf("%w: coordinates out of range", ErrInvalidCriteria)
		}
	}
	if !c.hasLocation() && strings.TrimSpace(c.Subdivision) == "" {
		return fmt.Errorf("%w: a location or a subdivision is required", ErrInvalidCriteria)
	}
	if c.RadiusMiles < 0 {
		return fmt.Errorf("%w: radius must not be negative", ErrInvalidCriteria)
	}
	if c.TotalValueCents < 0 || c.MinValueCents < 0 || c.MaxValueCents < 0 {
		return fmt.Errorf("%w: values must not be negative", ErrInvalidCriteria)
	}
	if c.Acreage < 0 || c.MinAcreage < 0 || c.MaxAcreage < 0 {
		return fmt.Errorf("%w: acreage must not be negative", ErrInvalidCriteria)
	}
	if c.MaxValueCents > 0 && c.MinValueCents > c.MaxValueCents {
		return fmt.Errorf("%w: min value exceeds max value", ErrInvalidCriteria)
	}
	if c.MaxAcreage > 0 && c.MinAcreage > c.MaxAcreage {
		return fmt.Errorf("%w: min acreage exceeds max acreage", ErrInvalidCriteria)
	}
	return nil
}
