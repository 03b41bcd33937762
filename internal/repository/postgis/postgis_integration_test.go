package postgis_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/godilite/assessment-server/internal/repository"
	"github.com/godilite/assessment-server/internal/repository/models"
	"github.com/godilite/assessment-server/internal/repository/postgis"
	"github.com/godilite/assessment-server/pkg/geo"
)

var origin = geo.Point{Lat: 36.3729, Lon: -94.2088}

func offset(milesNorth float64) *geo.Point {
	return &geo.Point{Lat: origin.Lat + milesNorth/69.0, Lon: origin.Lon}
}

func setupPostGIS(t *testing.T) *pgxpool.Pool {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping PostGIS integration test in short mode (requires Docker)")
	}

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgis/postgis:16-3.4",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_DB":       "assessor",
				"POSTGRES_USER":     "assessor",
				"POSTGRES_PASSWORD": "test_password",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(90 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	connStr := fmt.Sprintf("postgres://assessor:test_password@%s:%s/assessor?sslmode=disable", host, port.Port())
	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	for i := 0; i < 10; i++ {
		if err = pool.Ping(ctx); err == nil {
			break
		}
		time.Sleep(500 * time.Millisecond)
	}
	require.NoError(t, err)

	require.NoError(t, postgis.EnsureSchema(ctx, pool))
	return pool
}

func TestPostGIS_Integration(t *testing.T) {
	pool := setupPostGIS(t)
	ctx := context.Background()
	parcels := postgis.NewParcelRepository(pool)
	analyses := postgis.NewAnalysisRepository(pool)

	subject := models.Parcel{
		ID: uuid.New(), ParcelID: "01-00001-000", TotalValueCents: 25_000_000, AssessedValueCents: 5_000_000,
		Acreage: 0.25, PropertyType: "RES", Subdivision: "PINNACLE HILLS", Location: &origin,
	}
	neighbor := models.Parcel{
		ID: uuid.New(), ParcelID: "01-00002-000", TotalValueCents: 24_000_000, AssessedValueCents: 4_800_000,
		Acreage: 0.30, PropertyType: "RES", Subdivision: "PINNACLE HILLS", Location: offset(0.2),
	}
	farAway := models.Parcel{
		ID: uuid.New(), ParcelID: "01-00003-000", TotalValueCents: 26_000_000, AssessedValueCents: 5_200_000,
		Acreage: 0.28, PropertyType: "RES", Subdivision: "OTHER", Location: offset(3),
	}
	unlocated := models.Parcel{
		ID: uuid.New(), TotalValueCents: 23_000_000, Acreage: 0.2, PropertyType: "RES", Subdivision: "PINNACLE HILLS",
	}
	for _, p := range []models.Parcel{subject, neighbor, farAway, unlocated} {
		require.NoError(t, parcels.Upsert(ctx, p))
	}

	t.Run("GetByID round-trips location", func(t *testing.T) {
		got, err := parcels.GetByID(ctx, subject.ID)
		require.NoError(t, err)
		assert.Equal(t, subject.ParcelID, got.ParcelID)
		require.NotNil(t, got.Location)
		assert.InDelta(t, origin.Lat, got.Location.Lat, 1e-9)
		assert.InDelta(t, origin.Lon, got.Location.Lon, 1e-9)
	})

	t.Run("GetByID not found", func(t *testing.T) {
		_, err := parcels.GetByID(ctx, uuid.New())
		assert.ErrorIs(t, err, repository.ErrNotFound)
	})

	t.Run("GetByParcelID", func(t *testing.T) {
		got, err := parcels.GetByParcelID(ctx, "01-00003-000")
		require.NoError(t, err)
		assert.Equal(t, farAway.ID, got.ID)
	})

	t.Run("subdivision query reports distance when known", func(t *testing.T) {
		got, err := parcels.FindCandidates(ctx, models.CandidateQuery{
			Subdivision: "PINNACLE HILLS", Origin: subject.Location, ExcludeID: subject.ID,
		})
		require.NoError(t, err)
		require.Len(t, got, 2)
		for _, c := range got {
			if c.Parcel.ID == neighbor.ID {
				require.NotNil(t, c.DistanceMiles)
				assert.InDelta(t, 0.2, *c.DistanceMiles, 0.01)
			} else {
				assert.Equal(t, unlocated.ID, c.Parcel.ID)
				assert.Nil(t, c.DistanceMiles)
			}
		}
	})

	t.Run("radius query", func(t *testing.T) {
		got, err := parcels.FindCandidates(ctx, models.CandidateQuery{
			Origin: subject.Location, RadiusMiles: 1, ExcludeID: subject.ID,
		})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, neighbor.ID, got[0].Parcel.ID)
	})

	t.Run("ListScoreableKeys", func(t *testing.T) {
		keys, err := parcels.ListScoreableKeys(ctx, 10)
		require.NoError(t, err)
		assert.Equal(t, "01-00003-000", keys[0])
		assert.Contains(t, keys, models.SurrogateKey(unlocated.ID))
	})

	t.Run("analysis history", func(t *testing.T) {
		exists, err := analyses.Any(ctx)
		require.NoError(t, err)
		assert.False(t, exists)

		base := time.Date(2025, 10, 18, 10, 0, 0, 0, time.UTC)
		for i, score := range []float64{20, 85} {
			action := "APPEAL"
			if score > 70 {
				action = "NONE"
			}
			require.NoError(t, analyses.Insert(ctx, models.AnalysisRecord{
				ID: uuid.New(), PropertyID: subject.ID, ParcelID: subject.ParcelID,
				FairnessScore: score, RecommendedAction: action, ConfidenceLevel: 80, ComparableCount: 7,
				AnalysisDate: base.Add(time.Duration(i) * time.Hour), Payload: []byte(`{"fairness_score": 0}`),
				CreatedAt: base.Add(time.Duration(i) * time.Hour),
			}))
		}
		require.NoError(t, analyses.Insert(ctx, models.AnalysisRecord{
			ID: uuid.New(), PropertyID: neighbor.ID, FairnessScore: 30, RecommendedAction: "APPEAL",
			AppealStrength: "STRONG", AnalysisDate: base, Payload: []byte(`{}`), CreatedAt: base,
		}))

		history, err := analyses.History(ctx, subject.ID, 10)
		require.NoError(t, err)
		require.Len(t, history, 2)
		assert.Equal(t, 85.0, history[0].FairnessScore)
		assert.JSONEq(t, `{"fairness_score": 0}`, string(history[1].Payload))

		latest, err := analyses.LatestBelowScore(ctx, 60, 10)
		require.NoError(t, err)
		require.Len(t, latest, 1)
		assert.Equal(t, neighbor.ID, latest[0].PropertyID)
		assert.Equal(t, "STRONG", latest[0].AppealStrength)
		assert.Empty(t, latest[0].ParcelID)
	})
}
