package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"rath-service/internal/trips"
)

const tripColumns = `t.id::text, t.driver_id::text, t.source_city, t.destination_city,
	t.source_lat, t.source_lng, t.dest_lat, t.dest_lng, t.start_time,
	t.capacity, t.available_seats, t.price_per_seat, t.is_full_car_booking, t.status, t.created_at`

// TripRepo stores trips in the trips table.
type TripRepo struct {
	db *pgxpool.Pool
}

func NewTripRepo(pool *pgxpool.Pool) *TripRepo {
	return &TripRepo{db: pool}
}

func tripDest(t *trips.Trip) []any {
	return []any{&t.ID, &t.DriverID, &t.SourceCity, &t.DestinationCity,
		&t.Source.Lat, &t.Source.Lng, &t.Destination.Lat, &t.Destination.Lng, &t.StartTime,
		&t.Capacity, &t.AvailableSeats, &t.PricePerSeat, &t.IsFullCarBooking, &t.Status, &t.CreatedAt}
}

func (r *TripRepo) Create(ctx context.Context, t *trips.Trip) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO trips (id,driver_id,source_city,destination_city,source_lat,source_lng,
		                    dest_lat,dest_lng,start_time,capacity,available_seats,price_per_seat,
		                    is_full_car_booking,status,created_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)`,
		t.ID, t.DriverID, t.SourceCity, t.DestinationCity, t.Source.Lat, t.Source.Lng,
		t.Destination.Lat, t.Destination.Lng, t.StartTime, t.Capacity, t.AvailableSeats,
		t.PricePerSeat, t.IsFullCarBooking, t.Status, t.CreatedAt)
	return err
}

func (r *TripRepo) Get(ctx context.Context, id string) (*trips.Trip, error) {
	key, ok := parseID(id)
	if !ok {
		return nil, trips.ErrTripNotFound
	}
	var t trips.Trip
	err := r.db.QueryRow(ctx,
		`SELECT `+tripColumns+` FROM trips t WHERE t.id=$1`, key).Scan(tripDest(&t)...)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, trips.ErrTripNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Delete removes the trip; bookings go with it through ON DELETE CASCADE.
func (r *TripRepo) Delete(ctx context.Context, id string) error {
	key, ok := parseID(id)
	if !ok {
		return trips.ErrTripNotFound
	}
	tag, err := r.db.Exec(ctx, `DELETE FROM trips WHERE id=$1`, key)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return trips.ErrTripNotFound
	}
	return nil
}

func (r *TripRepo) ListByDriver(ctx context.Context, driverID string, since time.Time) ([]trips.Trip, error) {
	key, ok := parseID(driverID)
	if !ok {
		return nil, nil
	}
	rows, err := r.db.Query(ctx,
		`SELECT `+tripColumns+` FROM trips t
		 WHERE t.driver_id=$1 AND t.status=$2 AND t.start_time >= $3
		 ORDER BY t.start_time`,
		key, trips.StatusScheduled, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []trips.Trip
	for rows.Next() {
		var t trips.Trip
		if err := rows.Scan(tripDest(&t)...); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *TripRepo) ListOpen(ctx context.Context, since time.Time) ([]trips.Listing, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+tripColumns+`, a.id::text, a.name, COALESCE(a.phone,''), COALESCE(a.email,''),
		        a.vehicle_number, a.vehicle_type
		 FROM trips t JOIN accounts a ON a.id = t.driver_id
		 WHERE t.status=$1 AND t.available_seats > 0 AND t.start_time >= $2
		 ORDER BY t.start_time`,
		trips.StatusScheduled, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []trips.Listing
	for rows.Next() {
		var l trips.Listing
		dest := append(tripDest(&l.Trip),
			&l.Driver.ID, &l.Driver.Name, &l.Driver.Phone, &l.Driver.Email,
			&l.Driver.VehicleNumber, &l.Driver.VehicleType)
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}
