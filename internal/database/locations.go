// internal/database/locations.go
package database

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/guesshole/guesshole/internal/game"
	"github.com/guesshole/guesshole/internal/models"
)

// LocationPoint fetches a geocoded point by id.
func (s *Store) LocationPoint(ctx context.Context, id int64) (*models.LocationPoint, error) {
	q := locationSelect + ` WHERE id = $1`
	return scanLocation(s.pool.QueryRow(ctx, q, id))
}

// ResolveLocation reverse-geocodes a coordinate into its administrative
// hierarchy. Exact coordinates seen before reuse their stored row; new
// coordinates are resolved against the GADM boundaries and inserted.
// Coordinates outside every boundary resolve to international waters.
func (s *Store) ResolveLocation(ctx context.Context, lat, lon float64) (*models.LocationPoint, error) {
	existing, err := s.locationByCoordinates(ctx, lat, lon)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, game.ErrNotFound) {
		return nil, err
	}

	lp, err := s.geocode(ctx, lat, lon)
	if err != nil {
		return nil, err
	}
	if err := s.insertLocation(ctx, lp); err != nil {
		return nil, err
	}
	return lp, nil
}

func (s *Store) locationByCoordinates(ctx context.Context, lat, lon float64) (*models.LocationPoint, error) {
	q := locationSelect + ` WHERE latitude = $1 AND longitude = $2 LIMIT 1`
	return scanLocation(s.pool.QueryRow(ctx, q, lat, lon))
}

// geocode runs the point-in-polygon lookup against the GADM boundaries,
// preferring the most specific administrative level containing the point.
func (s *Store) geocode(ctx context.Context, lat, lon float64) (*models.LocationPoint, error) {
	q := `
	WITH point_check AS (
		SELECT ST_SetSRID(ST_Point($1, $2), 4326) AS point
	),
	located AS (
		SELECT gb.*,
			CASE
				WHEN gb.name_5 IS NOT NULL AND gb.name_5 <> '' THEN 5
				WHEN gb.name_4 IS NOT NULL AND gb.name_4 <> '' THEN 4
				WHEN gb.name_3 IS NOT NULL AND gb.name_3 <> '' THEN 3
				WHEN gb.name_2 IS NOT NULL AND gb.name_2 <> '' THEN 2
				WHEN gb.name_1 IS NOT NULL AND gb.name_1 <> '' THEN 1
				ELSE 0
			END AS admin_level
		FROM gadm_boundaries gb, point_check
		WHERE ST_Contains(gb.geom, point_check.point)
		ORDER BY admin_level DESC
		LIMIT 1
	)
	SELECT
		gid_0, name_0, engtype_1,
		gid_1, name_1, engtype_1,
		gid_2, name_2, engtype_2,
		gid_3, name_3, engtype_3,
		gid_4, name_4, engtype_4,
		gid_5, name_5, engtype_5
	FROM located
	`
	lp := &models.LocationPoint{Latitude: lat, Longitude: lon}
	var (
		gid   [6]*string
		name  [6]*string
		etype [6]*string
	)
	err := s.pool.QueryRow(ctx, q, lon, lat).Scan(
		&gid[0], &name[0], &etype[0],
		&gid[1], &name[1], &etype[1],
		&gid[2], &name[2], &etype[2],
		&gid[3], &name[3], &etype[3],
		&gid[4], &name[4], &etype[4],
		&gid[5], &name[5], &etype[5],
	)
	if errors.Is(err, pgx.ErrNoRows) {
		lp.Admin0Type = "Ocean/Uninhabited"
		lp.Admin0Name = "International Waters"
		lp.GID0 = "INTL.WATERS"
		return lp, nil
	}
	if err != nil {
		return nil, err
	}

	deref := func(s *string) string {
		if s == nil {
			return ""
		}
		return *s
	}
	lp.GID0, lp.Admin0Name, lp.Admin0Type = deref(gid[0]), deref(name[0]), deref(etype[0])
	lp.GID1, lp.Admin1Name, lp.Admin1Type = deref(gid[1]), deref(name[1]), deref(etype[1])
	lp.GID2, lp.Admin2Name, lp.Admin2Type = deref(gid[2]), deref(name[2]), deref(etype[2])
	lp.GID3, lp.Admin3Name, lp.Admin3Type = deref(gid[3]), deref(name[3]), deref(etype[3])
	lp.GID4, lp.Admin4Name, lp.Admin4Type = deref(gid[4]), deref(name[4]), deref(etype[4])
	lp.GID5, lp.Admin5Name, lp.Admin5Type = deref(gid[5]), deref(name[5]), deref(etype[5])
	return lp, nil
}

func (s *Store) insertLocation(ctx context.Context, lp *models.LocationPoint) error {
	q := `
	INSERT INTO location_points (
		latitude, longitude,
		admin0_type, admin0_name, gid_0,
		admin1_type, admin1_name, gid_1,
		admin2_type, admin2_name, gid_2,
		admin3_type, admin3_name, gid_3,
		admin4_type, admin4_name, gid_4,
		admin5_type, admin5_name, gid_5
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
	        $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
	RETURNING id
	`
	return s.pool.QueryRow(ctx, q,
		lp.Latitude, lp.Longitude,
		lp.Admin0Type, lp.Admin0Name, lp.GID0,
		lp.Admin1Type, lp.Admin1Name, lp.GID1,
		lp.Admin2Type, lp.Admin2Name, lp.GID2,
		lp.Admin3Type, lp.Admin3Name, lp.GID3,
		lp.Admin4Type, lp.Admin4Name, lp.GID4,
		lp.Admin5Type, lp.Admin5Name, lp.GID5,
	).Scan(&lp.ID)
}

const locationSelect = `
	SELECT id, latitude, longitude,
	       admin0_type, admin0_name, gid_0,
	       admin1_type, admin1_name, gid_1,
	       admin2_type, admin2_name, gid_2,
	       admin3_type, admin3_name, gid_3,
	       admin4_type, admin4_name, gid_4,
	       admin5_type, admin5_name, gid_5
	FROM location_points`

func scanLocation(row pgx.Row) (*models.LocationPoint, error) {
	var lp models.LocationPoint
	fields := []interface{}{
		&lp.ID, &lp.Latitude, &lp.Longitude,
		&lp.Admin0Type, &lp.Admin0Name, &lp.GID0,
		&lp.Admin1Type, &lp.Admin1Name, &lp.GID1,
		&lp.Admin2Type, &lp.Admin2Name, &lp.GID2,
		&lp.Admin3Type, &lp.Admin3Name, &lp.GID3,
		&lp.Admin4Type, &lp.Admin4Name, &lp.GID4,
		&lp.Admin5Type, &lp.Admin5Name, &lp.GID5,
	}
	err := row.Scan(fields...)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, game.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &lp, nil
}
