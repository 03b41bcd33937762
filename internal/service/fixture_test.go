package service

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/godilite/assessment-server/internal/repository"
	"github.com/godilite/assessment-server/internal/repository/models"
	"github.com/godilite/assessment-server/internal/service/mocks"
	"github.com/godilite/assessment-server/pkg/geo"
	"github.com/google/uuid"
)

var (
	fixedNow   = time.Date(2025, 10, 18, 9, 30, 0, 0, time.UTC)
	errStorage = errors.New("database is locked")
)

func testParcel(key, subdivision string, total, assessed int64) models.Parcel {
	return models.Parcel{
		ID:                 uuid.NewSHA1(uuid.NameSpaceOID, []byte(key)),
		ParcelID:           key,
		TotalValueCents:    total,
		AssessedValueCents: assessed,
		Acreage:            0.25,
		PropertyType:       "RES",
		Subdivision:        subdivision,
		Address:            key + " Oak St",
	}
}

// parcelStore is an in-memory ParcelRepository backing for the mocks. It is
// read-only once built, so it is safe under concurrent batch workers.
type parcelStore struct {
	parcels   map[string]models.Parcel
	bySub     map[string][]models.Candidate
	nearby    []models.Candidate
	failOn    map[string]error
	findErr   error
	keysLimit *int
}

func newParcelStore() *parcelStore {
	s := &parcelStore{
		parcels: make(map[string]models.Parcel),
		bySub:   make(map[string][]models.Candidate),
		failOn:  make(map[string]error),
	}

	for i, total := range scenarioComparables {
		c := testParcel("OAKS-"+string(rune('A'+i)), "OAKS", total, total/5)
		s.bySub["OAKS"] = append(s.bySub["OAKS"], models.Candidate{Parcel: c})
	}
	for i := 0; i < 15; i++ {
		total := int64(20_000_000 + i*100_000)
		c := testParcel("BIG-"+string(rune('A'+i)), "BIG", total, total/5)
		s.bySub["BIG"] = append(s.bySub["BIG"], models.Candidate{Parcel: c})
	}

	s.add(testParcel("OVER-1", "OAKS", 30_000_000, 6_600_000))
	s.add(testParcel("FAIR-1", "OAKS", 23_000_000, 4_600_000))
	s.add(testParcel("MOD-1", "OAKS", 26_400_000, 5_500_000))
	s.add(testParcel("MODLOW-1", "OAKS", 26_400_000, 5_290_000))
	s.add(testParcel("BIG-SUBJECT", "BIG", 20_500_000, 4_100_000))
	s.add(testParcel("LONELY", "", 20_000_000, 4_000_000))
	s.add(testParcel("ZERO", "OAKS", 0, 0))
	return s
}

func (s *parcelStore) add(p models.Parcel) {
	s.parcels[p.ParcelID] = p
}

func (s *parcelStore) repo() *mocks.MockParcelRepository {
	return &mocks.MockParcelRepository{
		GetByIDFunc: func(ctx context.Context, id uuid.UUID) (models.Parcel, error) {
			for _, p := range s.parcels {
				if p.ID == id {
					return p, nil
				}
			}
			return models.Parcel{}, repository.ErrNotFound
		},
		GetByParcelIDFunc: func(ctx context.Context, parcelID string) (models.Parcel, error) {
			if err, ok := s.failOn[parcelID]; ok {
				return models.Parcel{}, err
			}
			p, ok := s.parcels[parcelID]
			if !ok {
				return models.Parcel{}, repository.ErrNotFound
			}
			return p, nil
		},
		FindCandidatesFunc: func(ctx context.Context, q models.CandidateQuery) ([]models.Candidate, error) {
			if s.findErr != nil {
				return nil, s.findErr
			}
			pool := s.bySub[q.Subdivision]
			if q.RadiusMiles > 0 {
				pool = s.nearby
			}
			out := make([]models.Candidate, 0, len(pool))
			for _, c := range pool {
				if c.Parcel.ID != q.ExcludeID {
					out = append(out, c)
				}
			}
			return out, nil
		},
		ListScoreableKeysFunc: func(ctx context.Context, limit int) ([]string, error) {
			if s.keysLimit != nil {
				*s.keysLimit = limit
			}
			keys := make([]string, 0, len(s.parcels))
			for k, p := range s.parcels {
				if p.Scoreable() {
					keys = append(keys, k)
				}
			}
			sort.Strings(keys)
			if len(keys) > limit {
				keys = keys[:limit]
			}
			return keys, nil
		},
	}
}

func distance(d float64) *float64 {
	return &d
}

func nearbyCandidate(key string, total int64, miles float64) models.Candidate {
	p := testParcel(key, "ELSEWHERE", total, total/5)
	p.Location = &geo.Point{Lat: 36.37 + miles/69, Lon: -94.2}
	return models.Candidate{Parcel: p, DistanceMiles: distance(miles)}
}
