package repository

import (
	"context"
	"errors"
	"time"

	"github.com/Domenick1991/bookingservice/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type BookingRepository interface {
	// InTx runs fn inside a serializable transaction. Repository methods
	// called with the returned context join that transaction. Concurrent
	// bookings that would double-claim a seat fail with a conflict here,
	// since seat uniqueness among active bookings spans a join and cannot
	// be a plain constraint.
	InTx(ctx context.Context, fn func(ctx context.Context) error) error

	Create(ctx context.Context, booking *domain.Booking) error
	GetByPNR(ctx context.Context, pnr string) (*domain.Booking, error)
	ListByUserEmail(ctx context.Context, email string) ([]domain.Booking, error)
	CancelIfActive(ctx context.Context, pnr string, cancelledAt time.Time) (bool, error)
	CountConflictingSeats(ctx context.Context, flightID int64, seatNumbers []string) (int, error)
	FindConflictingSeatNumbers(ctx context.Context, flightID int64, seatNumbers []string) ([]string, error)
}

type PGBookingRepository struct {
	db *pgxpool.Pool
}

func NewBookingRepository(db *pgxpool.Pool) BookingRepository {
	return &PGBookingRepository{db: db}
}

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type txKey struct{}

func (r *PGBookingRepository) q(ctx context.Context) querier {
	if tx, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return tx
	}
	return r.db
}

func (r *PGBookingRepository) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return domain.WrapError(domain.KindInternal, err, "failed to begin transaction")
	}
	defer tx.Rollback(ctx)

	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return classifyPGError(err)
	}
	return nil
}

func (r *PGBookingRepository) Create(ctx context.Context, booking *domain.Booking) error {
	q := r.q(ctx)

	err := q.QueryRow(ctx, `INSERT INTO bookings (pnr, flight_id, user_email, num_seats, total_price, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`,
		booking.PNR, booking.FlightID, booking.UserEmail, booking.NumSeats, booking.TotalPrice, booking.Status).
		Scan(&booking.ID, &booking.CreatedAt)
	if err != nil {
		return classifyPGError(err)
	}

	for i := range booking.Passengers {
		p := &booking.Passengers[i]
		p.BookingID = booking.ID
		err := q.QueryRow(ctx, `INSERT INTO passengers (booking_id, name, age, gender, seat_number, meal_preference)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id`,
			p.BookingID, p.Name, p.Age, p.Gender, p.SeatNumber, p.MealPreference).
			Scan(&p.ID)
		if err != nil {
			return classifyPGError(err)
		}
	}
	return nil
}

func (r *PGBookingRepository) GetByPNR(ctx context.Context, pnr string) (*domain.Booking, error) {
	row := r.q(ctx).QueryRow(ctx, `SELECT id, pnr, flight_id, user_email, num_seats, total_price, status, created_at, cancelled_at
		FROM bookings WHERE pnr=$1`, pnr)

	var b domain.Booking
	if err := row.Scan(&b.ID, &b.PNR, &b.FlightID, &b.UserEmail, &b.NumSeats, &b.TotalPrice, &b.Status, &b.CreatedAt, &b.CancelledAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.Errorf(domain.KindNotFound, "PNR not found: %s", pnr)
		}
		return nil, classifyPGError(err)
	}

	passengers, err := r.passengersFor(ctx, b.ID)
	if err != nil {
		return nil, err
	}
	b.Passengers = passengers
	return &b, nil
}

func (r *PGBookingRepository) ListByUserEmail(ctx context.Context, email string) ([]domain.Booking, error) {
	rows, err := r.q(ctx).Query(ctx, `SELECT id, pnr, flight_id, user_email, num_seats, total_price, status, created_at, cancelled_at
		FROM bookings WHERE lower(user_email)=lower($1) ORDER BY created_at DESC`, email)
	if err != nil {
		return nil, classifyPGError(err)
	}
	defer rows.Close()

	bookings := make([]domain.Booking, 0)
	for rows.Next() {
		var b domain.Booking
		if err := rows.Scan(&b.ID, &b.PNR, &b.FlightID, &b.UserEmail, &b.NumSeats, &b.TotalPrice, &b.Status, &b.CreatedAt, &b.CancelledAt); err != nil {
			return nil, classifyPGError(err)
		}
		bookings = append(bookings, b)
	}
	if err := rows.Err(); err != nil {
		return nil, classifyPGError(err)
	}

	for i := range bookings {
		passengers, err := r.passengersFor(ctx, bookings[i].ID)
		if err != nil {
			return nil, err
		}
		bookings[i].Passengers = passengers
	}
	return bookings, nil
}

// CancelIfActive flips the booking to CANCELLED in a single conditional
// statement. Returns false when nothing was updated, i.e. another actor
// already cancelled it.
func (r *PGBookingRepository) CancelIfActive(ctx context.Context, pnr string, cancelledAt time.Time) (bool, error) {
	cmd, err := r.q(ctx).Exec(ctx, `UPDATE bookings SET status=$1, cancelled_at=$2
		WHERE pnr=$3 AND status <> $1`,
		domain.BookingStatusCancelled, cancelledAt, pnr)
	if err != nil {
		return false, classifyPGError(err)
	}
	return cmd.RowsAffected() > 0, nil
}

func (r *PGBookingRepository) CountConflictingSeats(ctx context.Context, flightID int64, seatNumbers []string) (int, error) {
	var count int
	err := r.q(ctx).QueryRow(ctx, `SELECT COUNT(p.id)
		FROM bookings b
		JOIN passengers p ON p.booking_id = b.id
		WHERE b.flight_id=$1
		  AND upper(COALESCE(p.seat_number, '')) = ANY($2)
		  AND b.status <> $3`,
		flightID, seatNumbers, domain.BookingStatusCancelled).Scan(&count)
	if err != nil {
		return 0, classifyPGError(err)
	}
	return count, nil
}

func (r *PGBookingRepository) FindConflictingSeatNumbers(ctx context.Context, flightID int64, seatNumbers []string) ([]string, error) {
	rows, err := r.q(ctx).Query(ctx, `SELECT DISTINCT upper(p.seat_number)
		FROM bookings b
		JOIN passengers p ON p.booking_id = b.id
		WHERE b.flight_id=$1
		  AND upper(COALESCE(p.seat_number, '')) = ANY($2)
		  AND b.status <> $3
		ORDER BY 1`,
		flightID, seatNumbers, domain.BookingStatusCancelled)
	if err != nil {
		return nil, classifyPGError(err)
	}
	defer rows.Close()

	seats := make([]string, 0)
	for rows.Next() {
		var seat string
		if err := rows.Scan(&seat); err != nil {
			return nil, classifyPGError(err)
		}
		seats = append(seats, seat)
	}
	if err := rows.Err(); err != nil {
		return nil, classifyPGError(err)
	}
	return seats, nil
}

func (r *PGBookingRepository) passengersFor(ctx context.Context, bookingID int64) ([]domain.Passenger, error) {
	rows, err := r.q(ctx).Query(ctx, `SELECT id, booking_id, name, age, gender, seat_number, meal_preference
		FROM passengers WHERE booking_id=$1 ORDER BY id`, bookingID)
	if err != nil {
		return nil, classifyPGError(err)
	}
	defer rows.Close()

	passengers := make([]domain.Passenger, 0)
	for rows.Next() {
		var p domain.Passenger
		if err := rows.Scan(&p.ID, &p.BookingID, &p.Name, &p.Age, &p.Gender, &p.SeatNumber, &p.MealPreference); err != nil {
			return nil, classifyPGError(err)
		}
		passengers = append(passengers, p)
	}
	if err := rows.Err(); err != nil {
		return nil, classifyPGError(err)
	}
	return passengers, nil
}

const (
	pgSerializationFailure = "40001"
	pgUniqueViolation      = "23505"
)

func classifyPGError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgSerializationFailure:
			return domain.WrapError(domain.KindConflict, err, "concurrent booking detected, please retry")
		case pgUniqueViolation:
			return domain.WrapError(domain.KindInternal, err, "failed to save booking")
		}
	}
	return domain.WrapError(domain.KindInternal, err, "database error")
}

var _ BookingRepository = (*PGBookingRepository)(nil)
