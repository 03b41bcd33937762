package postgis

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/godilite/assessment-server/internal/repository"
	"github.com/godilite/assessment-server/internal/repository/models"
	"github.com/godilite/assessment-server/pkg/geo"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const parcelColumns = `
	id, parcel_id, total_value_cents, assessed_value_cents, land_value_cents,
	improvement_value_cents, acreage, property_type, subdivision, address,
	owner_name, ST_Y(geom::geometry), ST_X(geom::geometry)`

type ParcelRepository struct {
	pool *pgxpool.Pool
}

func NewParcelRepository(pool *pgxpool.Pool) *ParcelRepository {
	return &ParcelRepository{pool: pool}
}

func scanParcel(row pgx.Row, extra ...any) (models.Parcel, error) {
	var p models.Parcel
	var parcelID, propertyType, subdivision, address, ownerName *string
	var lat, lon *float64
	dest := []any{&p.ID, &parcelID, &p.TotalValueCents, &p.AssessedValueCents, &p.LandValueCents,
		&p.ImprovementValueCents, &p.Acreage, &propertyType, &subdivision, &address,
		&ownerName, &lat, &lon}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return models.Parcel{}, err
	}

	p.ParcelID = deref(parcelID)
	p.PropertyType = deref(propertyType)
	p.Subdivision = deref(subdivision)
	p.Address = deref(address)
	p.OwnerName = deref(ownerName)
	if lat != nil && lon != nil {
		p.Location = &geo.Point{Lat: *lat, Lon: *lon}
	}
	return p, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// GetByID fetches a parcel by its internal id.
func (r *ParcelRepository) GetByID(ctx context.Context, id uuid.UUID) (models.Parcel, error) {
	query := `SELECT ` + parcelColumns + ` FROM properties WHERE id = $1`

	p, err := scanParcel(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Parcel{}, repository.ErrNotFound
		}
		return models.Parcel{}, fmt.Errorf("query GetByID: %w", err)
	}
	return p, nil
}

// GetByParcelID fetches a parcel by business key, preferring the highest value.
func (r *ParcelRepository) GetByParcelID(ctx context.Context, parcelID string) (models.Parcel, error) {
	query := `SELECT ` + parcelColumns + `
		FROM properties
		WHERE parcel_id = $1
		ORDER BY total_value_cents DESC, id
		LIMIT 1`

	p, err := scanParcel(r.pool.QueryRow(ctx, query, parcelID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Parcel{}, repository.ErrNotFound
		}
		return models.Parcel{}, fmt.Errorf("query GetByParcelID: %w", err)
	}
	return p, nil
}

// FindCandidates returns comparable candidates. Distances are computed by
// PostGIS on the spheroid when an origin is given.
func (r *ParcelRepository) FindCandidates(ctx context.Context, q models.CandidateQuery) ([]models.Candidate, error) {
	conds := []string{
		"total_value_cents > 0",
		"acreage > 0",
		"property_type IS NOT NULL",
		"property_type <> ''",
	}
	var a args

	distance := "NULL::double precision"
	if q.Origin != nil {
		origin := fmt.Sprintf("ST_SetSRID(ST_MakePoint(%s, %s), 4326)::geography", a.add(q.Origin.Lon), a.add(q.Origin.Lat))
		distance = fmt.Sprintf("ST_Distance(geom, %s) / %v", origin, metersPerMile)
		if q.RadiusMiles > 0 {
			conds = append(conds, fmt.Sprintf("ST_DWithin(geom, %s, %s)", origin, a.add(q.RadiusMiles*metersPerMile)))
		}
	}
	if q.ExcludeID != uuid.Nil {
		conds = append(conds, "id <> "+a.add(q.ExcludeID))
	}
	if q.Subdivision != "" {
		conds = append(conds, "subdivision = "+a.add(q.Subdivision))
	}
	if q.PropertyType != "" {
		conds = append(conds, "property_type = "+a.add(q.PropertyType))
	}
	if q.MinValueCents > 0 {
		conds = append(conds, "total_value_cents >= "+a.add(q.MinValueCents))
	}
	if q.MaxValueCents > 0 {
		conds = append(conds, "total_value_cents <= "+a.add(q.MaxValueCents))
	}
	if q.MinAcreage > 0 {
		conds = append(conds, "acreage >= "+a.add(q.MinAcreage))
	}
	if q.MaxAcreage > 0 {
		conds = append(conds, "acreage <= "+a.add(q.MaxAcreage))
	}

	query := `SELECT ` + parcelColumns + `, ` + distance + `
		FROM properties
		WHERE ` + strings.Join(conds, " AND ") + `
		ORDER BY id`

	rows, err := r.pool.Query(ctx, query, a...)
	if err != nil {
		return nil, fmt.Errorf("query FindCandidates: %w", err)
	}
	defer rows.Close()

	var results []models.Candidate
	for rows.Next() {
		var d *float64
		p, err := scanParcel(rows, &d)
		if err != nil {
			return nil, fmt.Errorf("scan FindCandidates row: %w", err)
		}
		results = append(results, models.Candidate{Parcel: p, DistanceMiles: d})
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
		LIMIT $1`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query ListScoreableKeys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var id uuid.UUID
		var parcelID *string
		var shared int64
		if err := rows.Scan(&id, &parcelID, &shared); err != nil {
			return nil, fmt.Errorf("scan ListScoreableKeys row: %w", err)
		}
		if parcelID != nil && *parcelID != "" && shared <= 1 {
			keys = append(keys, *parcelID)
			continue
		}
		keys = append(keys, models.SurrogateKey(id))
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ListScoreableKeys: %w", err)
	}
	return keys, nil
}

// Upsert stores a parcel, replacing any row with the same id.
func (r *ParcelRepository) Upsert(ctx context.Context, p models.Parcel) error {
	const query = `
		INSERT INTO properties (id, parcel_id, total_value_cents, assessed_value_cents, land_value_cents,
			improvement_value_cents, acreage, property_type, subdivision, address, owner_name, geom)
		VALUES ($1, NULLIF($2, ''), $3, $4, $5, $6, $7, NULLIF($8, ''), NULLIF($9, ''), NULLIF($10, ''), NULLIF($11, ''),
			CASE WHEN $12::double precision IS NULL THEN NULL
				ELSE ST_SetSRID(ST_MakePoint($13, $12), 4326)::geography END)
		ON CONFLICT (id) DO UPDATE SET
			parcel_id = EXCLUDED.parcel_id,
			total_value_cents = EXCLUDED.total_value_cents,
			assessed_value_cents = EXCLUDED.assessed_value_cents,
			land_value_cents = EXCLUDED.land_value_cents,
			improvement_value_cents = EXCLUDED.improvement_value_cents,
			acreage = EXCLUDED.acreage,
			property_type = EXCLUDED.property_type,
			subdivision = EXCLUDED.subdivision,
			address = EXCLUDED.address,
			owner_name = EXCLUDED.owner_name,
			geom = EXCLUDED.geom`

	var lat, lon *float64
	if p.Location != nil {
		lat, lon = &p.Location.Lat, &p.Location.Lon
	}

	_, err := r.pool.Exec(ctx, query, p.ID, p.ParcelID, p.TotalValueCents, p.AssessedValueCents,
		p.LandValueCents, p.ImprovementValueCents, p.Acreage, p.PropertyType, p.Subdivision,
		p.Address, p.OwnerName, lat, lon)
	if err != nil {
		return fmt.Errorf("exec Upsert: %w", err)
	}
	return nil
}
