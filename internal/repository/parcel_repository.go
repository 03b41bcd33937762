package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/godilite/assessment-server/internal/repository/models"
	"github.com/godilite/assessment-server/pkg/geo"
	"github.com/google/uuid"
)

const parcelColumns = `
	id, parcel_id, total_value_cents, assessed_value_cents, land_value_cents,
	improvement_value_cents, acreage, property_type, subdivision, address,
	owner_name, latitude, longitude`

type ParcelRepository struct {
	db *sql.DB
}

func NewParcelRepository(db *sql.DB) *ParcelRepository {
	return &ParcelRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanParcel(row rowScanner) (models.Parcel, error) {
	var p models.Parcel
	var id string
	var parcelID, propertyType, subdivision, address, ownerName sql.NullString
	var lat, lon sql.NullFloat64
	err := row.Scan(&id, &parcelID, &p.TotalValueCents, &p.AssessedValueCents, &p.LandValueCents,
		&p.ImprovementValueCents, &p.Acreage, &propertyType, &subdivision, &address,
		&ownerName, &lat, &lon)
	if err != nil {
		return models.Parcel{}, err
	}

	p.ID, err = uuid.Parse(id)
	if err != nil {
		return models.Parcel{}, fmt.Errorf("parse property id %q: %w", id, err)
	}
	p.ParcelID = parcelID.String
	p.PropertyType = propertyType.String
	p.Subdivision = subdivision.String
	p.Address = address.String
	p.OwnerName = ownerName.String
	if lat.Valid && lon.Valid {
		p.Location = &geo.Point{Lat: lat.Float64, Lon: lon.Float64}
	}
	return p, nil
}

// GetByID fetches a parcel by its internal id.
func (r *ParcelRepository) GetByID(ctx context.Context, id uuid.UUID) (models.Parcel, error) {
	query := `SELECT ` + parcelColumns + ` FROM properties WHERE id = ?`

	p, err := scanParcel(r.db.QueryRowContext(ctx, query, id.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Parcel{}, ErrNotFound
		}
		return models.Parcel{}, fmt.Errorf("query GetByID: %w", err)
	}
	return p, nil
}

// GetByParcelID fetches a parcel by business key. parcel_id is not unique in
// the source data; the scoreable row with the highest value wins, then id.
func (r *ParcelRepository) GetByParcelID(ctx context.Context, parcelID string) (models.Parcel, error) {
	query := `SELECT ` + parcelColumns + `
		FROM properties
		WHERE parcel_id = ?
		ORDER BY total_value_cents DESC, id
		LIMIT 1`

	p, err := scanParcel(r.db.QueryRowContext(ctx, query, parcelID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Parcel{}, ErrNotFound
		}
		return models.Parcel{}, fmt.Errorf("query GetByParcelID: %w", err)
	}
	return p, nil
}

// FindCandidates returns comparable candidates. The radius predicate is a
// bounding-box prefilter in SQL followed by an exact haversine check.
func (r *ParcelRepository) FindCandidates(ctx context.Context, q models.CandidateQuery) ([]models.Candidate, error) {
	conds := []string{
		"total_value_cents > 0",
		"acreage > 0",
		"property_type IS NOT NULL",
		"property_type <> ''",
	}
	var args []any

	if q.ExcludeID != uuid.Nil {
		conds = append(conds, "id <> ?")
		args = append(args, q.ExcludeID.String())
	}
	if q.Subdivision != "" {
		conds = append(conds, "subdivision = ?")
		args = append(args, q.Subdivision)
	}
	spatial := q.RadiusMiles > 0 && q.Origin != nil
	if spatial {
		box := geo.BoundingBoxAround(*q.Origin, q.RadiusMiles)
		conds = append(conds, "latitude BETWEEN ? AND ?", "longitude BETWEEN ? AND ?")
		args = append(args, box.MinLat, box.MaxLat, box.MinLon, box.MaxLon)
	}
	if q.PropertyType != "" {
		conds = append(conds, "property_type = ?")
		args = append(args, q.PropertyType)
	}
	if q.MinValueCents > 0 {
		conds = append(conds, "total_value_cents >= ?")
		args = append(args, q.MinValueCents)
	}
	if q.MaxValueCents > 0 {
		conds = append(conds, "total_value_cents <= ?")
		args = append(args, q.MaxValueCents)
	}
	if q.MinAcreage > 0 {
		conds = append(conds, "acreage >= ?")
		args = append(args, q.MinAcreage)
	}
	if q.MaxAcreage > 0 {
		conds = append(conds, "acreage <= ?")
		args = append(args, q.MaxAcreage)
	}

	query := `SELECT ` + parcelColumns + ` FROM properties WHERE ` + strings.Join(conds, " AND ") + ` ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query FindCandidates: %w", err)
	}
	defer rows.Close()

	var results []models.Candidate
	for rows.Next() {
		p, err := scanParcel(rows)
		if err != nil {
			return nil, fmt.Errorf("scan FindCandidates row: %w", err)
		}

		c := models.Candidate{Parcel: p}
		if q.Origin != nil && p.Location != nil {
			d := geo.DistanceMiles(*q.Origin, *p.Location)
			if spatial && d > q.RadiusMiles {
				continue
			}
			c.DistanceMiles = &d
		}
		results = append(results, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate FindCandidates: %w", err)
	}
	return results, nil
}

// ListScoreableKeys returns up to limit parcel keys with a positive total value.
// Rows whose parcel_id is shared with another row are keyed by their surrogate
// so each row is reachable exactly once.
func (r *ParcelRepository) ListScoreableKeys(ctx context.Context, limit int) ([]string, error) {
	const query = `
		SELECT p.id, p.parcel_id,
			(SELECT COUNT(*) FROM properties AS d WHERE d.parcel_id = p.parcel_id) AS shared
		FROM properties AS p
		WHERE p.total_value_cents > 0
		ORDER BY p.total_value_cents DESC, p.id
		LIMIT ?`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query ListScoreableKeys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var id string
		var parcelID sql.NullString
		var shared int
		if err := rows.Scan(&id, &parcelID, &shared); err != nil {
			return nil, fmt.Errorf("scan ListScoreableKeys row: %w", err)
		}
		if parcelID.Valid && parcelID.String != "" && shared <= 1 {
			keys = append(keys, parcelID.String)
			continue
		}
		parsed, err := uuid.Parse(id)
		if err != nil {
			return nil, fmt.Errorf("parse property id %q: %w", id, err)
		}
		keys = append(keys, models.SurrogateKey(parsed))
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ListScoreableKeys: %w", err)
	}
	return keys, nil
}
