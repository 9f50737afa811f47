package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"rath-service/internal/bookings"
	"rath-service/internal/trips"
	"rath-service/pkg/db"
)

// BookingRepo stores bookings and keeps trip seat counts in step with them.
type BookingRepo struct {
	db *pgxpool.Pool
}

func NewBookingRepo(pool *pgxpool.Pool) *BookingRepo {
	return &BookingRepo{db: pool}
}

// Reserve decrements available seats with a single conditional UPDATE and
// inserts the booking in the same transaction. Concurrent callers serialize
// on the trip row, so seats never go negative.
func (r *BookingRepo) Reserve(ctx context.Context, b *bookings.Booking) (int, error) {
	tripKey, ok := parseID(b.TripID)
	if !ok {
		return 0, trips.ErrTripNotFound
	}
	var remaining int
	err := db.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx,
			`UPDATE trips SET available_seats = available_seats - $1
			 WHERE id=$2 AND status=$3 AND available_seats >= $1
			   AND (NOT is_full_car_booking OR available_seats = $1)
			 RETURNING available_seats`,
			b.Seats, tripKey, trips.StatusScheduled).Scan(&remaining)
		if errors.Is(err, pgx.ErrNoRows) {
			return classifyReject(ctx, tx, tripKey, b.Seats)
		}
		if err != nil {
			return err
		}

		_, err = tx.Exec(ctx,
			`INSERT INTO bookings (id,trip_id,customer_id,seats,total_cost,status,booked_at)
			 VALUES ($1,$2,$3,$4,$5,$6,$7)`,
			b.ID, b.TripID, b.CustomerID, b.Seats, b.TotalCost, b.Status, b.BookedAt)
		return err
	})
	if err != nil {
		return 0, err
	}
	return remaining, nil
}

func classifyReject(ctx context.Context, tx pgx.Tx, tripKey string, seats int) error {
	var (
		status    string
		available int
		fullCar   bool
	)
	err := tx.QueryRow(ctx,
		`SELECT status, available_seats, is_full_car_booking FROM trips WHERE id=$1`,
		tripKey).Scan(&status, &available, &fullCar)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return trips.ErrTripNotFound
	case err != nil:
		return err
	case status != trips.StatusScheduled:
		return bookings.ErrTripNotBookable
	case available < seats:
		return bookings.ErrNotEnoughSeats
	case fullCar:
		return bookings.ErrFullCarOnly
	}
	return bookings.ErrNotEnoughSeats
}

// Cancel flips a confirmed booking to cancelled and returns its seats.
func (r *BookingRepo) Cancel(ctx context.Context, bookingID, customerID string) (*bookings.Booking, int, error) {
	var (
		b         bookings.Booking
		remaining int
	)
	bookingKey, ok := parseID(bookingID)
	customerKey, ok2 := parseID(customerID)
	if !ok || !ok2 {
		return nil, 0, bookings.ErrBookingNotFound
	}
	err := db.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx,
			`SELECT id::text, trip_id::text, customer_id::text, seats, total_cost, status, booked_at
			 FROM bookings WHERE id=$1 AND customer_id=$2 FOR UPDATE`,
			bookingKey, customerKey).
			Scan(&b.ID, &b.TripID, &b.CustomerID, &b.Seats, &b.TotalCost, &b.Status, &b.BookedAt)
		if errors.Is(err, pgx.ErrNoRows) {
			return bookings.ErrBookingNotFound
		}
		if err != nil {
			return err
		}
		if b.Status != bookings.StatusConfirmed {
			return bookings.ErrAlreadyCancelled
		}

		if _, err := tx.Exec(ctx, `UPDATE bookings SET status=$2 WHERE id=$1`,
			b.ID, bookings.StatusCancelled); err != nil {
			return err
		}
		b.Status = bookings.StatusCancelled

		return tx.QueryRow(ctx,
			`UPDATE trips SET available_seats = LEAST(capacity, available_seats + $2)
			 WHERE id=$1 RETURNING available_seats`,
			b.TripID, b.Seats).Scan(&remaining)
	})
	if err != nil {
		return nil, 0, err
	}
	return &b, remaining, nil
}

func (r *BookingRepo) ListByCustomer(ctx context.Context, customerID string) ([]bookings.Ticket, error) {
	key, ok := parseID(customerID)
	if !ok {
		return nil, nil
	}
	rows, err := r.db.Query(ctx,
		`SELECT b.id::text, b.trip_id::text, b.customer_id::text, b.seats, b.total_cost, b.status, b.booked_at,
		        t.source_city, t.destination_city, t.start_time,
		        d.name, COALESCE(d.phone,''), d.vehicle_number
		 FROM bookings b
		 JOIN trips t ON t.id = b.trip_id
		 JOIN accounts d ON d.id = t.driver_id
		 WHERE b.customer_id=$1
		 ORDER BY b.booked_at DESC`, key)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []bookings.Ticket
	for rows.Next() {
		var tk bookings.Ticket
		if err := rows.Scan(&tk.ID, &tk.TripID, &tk.CustomerID, &tk.Seats, &tk.TotalCost, &tk.Status, &tk.BookedAt,
			&tk.SourceCity, &tk.DestinationCity, &tk.StartTime,
			&tk.DriverName, &tk.DriverPhone, &tk.VehicleNumber); err != nil {
			return nil, err
		}
		out = append(out, tk)
	}
	return out, rows.Err()
}

func (r *BookingRepo) ListByTrip(ctx context.Context, tripID string) ([]bookings.Passenger, error) {
	key, ok := parseID(tripID)
	if !ok {
		return nil, nil
	}
	rows, err := r.db.Query(ctx,
		`SELECT b.id::text, b.customer_id::text, c.name, COALESCE(c.phone,''), COALESCE(c.email,''),
		        b.seats, b.total_cost, b.status, b.booked_at
		 FROM bookings b
		 JOIN accounts c ON c.id = b.customer_id
		 WHERE b.trip_id=$1
		 ORDER BY b.booked_at`, key)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []bookings.Passenger
	for rows.Next() {
		var p bookings.Passenger
		if err := rows.Scan(&p.BookingID, &p.CustomerID, &p.Name, &p.Phone, &p.Email,
			&p.Seats, &p.Revenue, &p.Status, &p.BookedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
