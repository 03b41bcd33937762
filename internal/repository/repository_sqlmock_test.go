package repository_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/godilite/assessment-server/internal/repository"
	"github.com/godilite/assessment-server/internal/repository/models"
	"github.com/godilite/assessment-server/pkg/geo"
)

var errDriver = errors.New("driver: connection reset")

func TestParcelRepository_DriverFailures(t *testing.T) {
	ctx := context.Background()

	t.Run("GetByID wraps driver error", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery("FROM properties WHERE id").WillReturnError(errDriver)

		_, err = repository.NewParcelRepository(db).GetByID(ctx, uuid.New())
		require.Error(t, err)
		assert.ErrorIs(t, err, errDriver)
		assert.NotErrorIs(t, err, repository.ErrNotFound)
		assert.Contains(t, err.Error(), "query GetByID")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("GetByID rejects malformed stored id", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		rows := sqlmock.NewRows([]string{
			"id", "parcel_id", "total_value_cents", "assessed_value_cents", "land_value_cents",
			"improvement_value_cents", "acreage", "property_type", "subdivision", "address",
			"owner_name", "latitude", "longitude",
		}).AddRow("not-a-uuid", "P1", 100, 20, 0, 0, 1.0, "RES", nil, nil, nil, nil, nil)
		mock.ExpectQuery("FROM properties WHERE id").WillReturnRows(rows)

		_, err = repository.NewParcelRepository(db).GetByID(ctx, uuid.New())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "parse property id")
	})

	t.Run("FindCandidates passes bounding box arguments", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		center := geo.Point{Lat: 36.0, Lon: -94.0}
		box := geo.BoundingBoxAround(center, 0.5)
		exclude := uuid.New()

		mock.ExpectQuery("latitude BETWEEN").
			WithArgs(exclude.String(), box.MinLat, box.MaxLat, box.MinLon, box.MaxLon).
			WillReturnError(errDriver)

		_, err = repository.NewParcelRepository(db).FindCandidates(ctx, models.CandidateQuery{
			Origin:      &center,
			RadiusMiles: 0.5,
			ExcludeID:   exclude,
		})
		require.Error(t, err)
		assert.ErrorIs(t, err, errDriver)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("FindCandidates surfaces iteration error", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		rows := sqlmock.NewRows([]string{"id"}).AddRow(uuid.NewString()).RowError(0, errDriver)
		mock.ExpectQuery("FROM properties WHERE").WillReturnRows(rows)

		_, err = repository.NewParcelRepository(db).FindCandidates(ctx, models.CandidateQuery{Subdivision: "X"})
		require.Error(t, err)
	})
}

func TestAnalysisRepository_DriverFailures(t *testing.T) {
	ctx := context.Background()

	t.Run("Insert wraps exec error", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectExec("INSERT INTO assessment_analyses").WillReturnError(errDriver)

		err = repository.NewAnalysisRepository(db).Insert(ctx, models.AnalysisRecord{
			ID:                uuid.New(),
			PropertyID:        uuid.New(),
			RecommendedAction: "NONE",
			AnalysisDate:      time.Now(),
			CreatedAt:         time.Now(),
		})
		require.Error(t, err)
		assert.ErrorIs(t, err, errDriver)
		assert.Contains(t, err.Error(), "exec Insert")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Any wraps query error", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery("SELECT EXISTS").WillReturnError(errDriver)

		_, err = repository.NewAnalysisRepository(db).Any(ctx)
		assert.ErrorIs(t, err, errDriver)
	})

	t.Run("LatestBelowScore wraps query error", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery("FROM assessment_analyses").WithArgs(40.0, 5).WillReturnError(errDriver)

		_, err = repository.NewAnalysisRepository(db).LatestBelowScore(ctx, 40, 5)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "query LatestBelowScore")
	})
}
