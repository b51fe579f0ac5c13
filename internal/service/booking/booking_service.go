package booking

import (
	"context"
	"strings"
	"time"

	"github.com/Domenick1991/bookingservice/internal/dispatch"
	"github.com/Domenick1991/bookingservice/internal/domain"
	"github.com/Domenick1991/bookingservice/internal/kafka"
	"github.com/Domenick1991/bookingservice/internal/repository"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type BookingUseCase interface {
	CreateBooking(ctx context.Context, input CreateBookingInput, ownerEmail string, flightID int64) (*domain.Booking, error)
	CancelBooking(ctx context.Context, pnr, requesterEmail string) (*domain.Booking, error)
	GetByPNR(ctx context.Context, pnr string) (*domain.Booking, error)
	HistoryByEmail(ctx context.Context, email string) ([]domain.Booking, error)
}

// InventoryGateway is the resilient view of the remote seat inventory. The
// write paths are fire-and-forget: they run after commit and their failures
// never reach the caller.
type InventoryGateway interface {
	GetFlight(ctx context.Context, flightID int64) (*domain.Flight, error)
	BookSeats(ctx context.Context, flightID int64, seats []domain.SeatBooking)
	ReleaseSeats(ctx context.Context, flightID int64, seatNumbers []string)
}

type Publisher interface {
	Publish(ctx context.Context, topic, key string, value interface{}) error
}

// SeatHoldCache is an optional in-flight guard against two requests racing
// for the same seat before either reaches the store.
type SeatHoldCache interface {
	AcquireSeatHold(ctx context.Context, flightID int64, seatNumber string) (bool, error)
	ReleaseSeatHolds(ctx context.Context, flightID int64, seatNumbers []string) error
}

type CreateBookingInput struct {
	UserEmail  string           `json:"userEmail"`
	NumSeats   int              `json:"numSeats"`
	Passengers []PassengerInput `json:"passengers"`
}

type PassengerInput struct {
	Name           string `json:"name"`
	Age            int    `json:"age"`
	Gender         string `json:"gender"`
	SeatNumber     string `json:"seatNumber"`
	MealPreference string `json:"mealPreference"`
}

type BookingService struct {
	bookings           repository.BookingRepository
	inventory          InventoryGateway
	dispatcher         *dispatch.Dispatcher
	publisher          Publisher
	holds              SeatHoldCache
	notificationsTopic string
	cancelWindow       time.Duration
	log                *logrus.Logger
}

type BookingServiceOption func(*BookingService)

func WithSeatHoldCache(holds SeatHoldCache) BookingServiceOption {
	return func(s *BookingService) {
		s.holds = holds
	}
}

func NewBookingService(
	bookings repository.BookingRepository,
	inventory InventoryGateway,
	dispatcher *dispatch.Dispatcher,
	publisher Publisher,
	notificationsTopic string,
	cancelWindow time.Duration,
	log *logrus.Logger,
	opts ...BookingServiceOption,
) *BookingService {
	service := &BookingService{
		bookings:           bookings,
		inventory:          inventory,
		dispatcher:         dispatcher,
		publisher:          publisher,
		notificationsTopic: notificationsTopic,
		cancelWindow:       cancelWindow,
		log:                log,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

func (s *BookingService) CreateBooking(ctx context.Context, input CreateBookingInput, ownerEmail string, flightID int64) (*domain.Booking, error) {
	if err := validateCreate(input, ownerEmail, flightID); err != nil {
		return nil, err
	}

	flight, err := s.inventory.GetFlight(ctx, flightID)
	if err != nil {
		return nil, err
	}

	available := flight.AvailableSeatCount()
	if available < input.NumSeats {
		return nil, domain.Errorf(domain.KindConflict,
			"Not enough seats available: requested=%d, available=%d", input.NumSeats, available)
	}

	requestedSeats, err := normalizeRequestedSeats(input.Passengers)
	if err != nil {
		return nil, err
	}
	if err := checkSeatsAgainstFlight(flight, requestedSeats); err != nil {
		return nil, err
	}

	if len(requestedSeats) > 0 && s.holds != nil {
		release, err := s.acquireSeatHolds(ctx, flightID, requestedSeats)
		if err != nil {
			return nil, err
		}
		defer release()
	}

	booking := &domain.Booking{
		PNR:        generatePNR(),
		FlightID:   flightID,
		UserEmail:  ownerEmail,
		NumSeats:   input.NumSeats,
		TotalPrice: flight.PricePerSeat * float64(input.NumSeats),
		Status:     domain.BookingStatusActive,
		Passengers: buildPassengers(input.Passengers),
	}

	ctx, pending := s.dispatcher.Begin(ctx)
	err = s.bookings.InTx(ctx, func(txCtx context.Context) error {
		// Second seat check against local committed state: the remote
		// seat map may lag bookings already committed here.
		if len(requestedSeats) > 0 {
			count, err := s.bookings.CountConflictingSeats(txCtx, flightID, requestedSeats)
			if err != nil {
				return err
			}
			if count > 0 {
				taken, err := s.bookings.FindConflictingSeatNumbers(txCtx, flightID, requestedSeats)
				if err != nil {
					return err
				}
				return domain.Errorf(domain.KindConflict,
					"Requested seats already booked: %s", strings.Join(taken, ", "))
			}
		}

		if err := s.bookings.Create(txCtx, booking); err != nil {
			return err
		}

		s.scheduleCreatedEffects(txCtx, booking, requestedSeats)
		return nil
	})
	if err != nil {
		pending.Discard()
		return nil, err
	}
	pending.Commit(ctx)

	s.log.WithFields(logrus.Fields{
		"pnr":       booking.PNR,
		"flight_id": booking.FlightID,
		"user":      booking.UserEmail,
		"num_seats": booking.NumSeats,
	}).Info("booking saved")

	return booking, nil
}

func (s *BookingService) CancelBooking(ctx context.Context, pnr, requesterEmail string) (*domain.Booking, error) {
	existing, err := s.bookings.GetByPNR(ctx, pnr)
	if err != nil {
		return nil, err
	}

	if !strings.EqualFold(existing.UserEmail, requesterEmail) {
		return nil, domain.Errorf(domain.KindForbidden, "Only the booking owner can cancel this booking")
	}

	if time.Since(existing.CreatedAt) > s.cancelWindow {
		return nil, domain.Errorf(domain.KindConflict,
			"Cancellation window exceeded: bookings can only be cancelled within %s of creation", s.cancelWindow)
	}

	// Single conditional update; losing the race to another cancel is a
	// conflict, never a silent success.
	updated, err := s.bookings.CancelIfActive(ctx, pnr, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	if !updated {
		return nil, domain.Errorf(domain.KindConflict, "Booking already cancelled")
	}

	cancelled, err := s.bookings.GetByPNR(ctx, pnr)
	if err != nil {
		return nil, err
	}

	// The conditional update committed on its own, so these run immediately.
	seats := normalizeSeats(cancelled.SeatNumbers())
	if len(seats) > 0 {
		flightID := cancelled.FlightID
		s.dispatcher.RunAfterCommit(ctx, "seat-release", func(ctx context.Context) {
			s.inventory.ReleaseSeats(ctx, flightID, seats)
		})
	}
	s.scheduleNotification(ctx, kafka.EventBookingCancelled, cancelled, seats)

	s.log.WithFields(logrus.Fields{
		"pnr":       cancelled.PNR,
		"flight_id": cancelled.FlightID,
		"user":      cancelled.UserEmail,
	}).Info("booking cancelled")

	return cancelled, nil
}

func (s *BookingService) GetByPNR(ctx context.Context, pnr string) (*domain.Booking, error) {
	return s.bookings.GetByPNR(ctx, pnr)
}

func (s *BookingService) HistoryByEmail(ctx context.Context, email string) ([]domain.Booking, error) {
	return s.bookings.ListByUserEmail(ctx, email)
}

func validateCreate(input CreateBookingInput, ownerEmail string, flightID int64) error {
	if ownerEmail == "" {
		return domain.Errorf(domain.KindValidation, "owner email is required")
	}
	if flightID <= 0 {
		return domain.Errorf(domain.KindValidation, "flightId is required")
	}
	if input.UserEmail != "" && !strings.EqualFold(input.UserEmail, ownerEmail) {
		return domain.Errorf(domain.KindValidation, "owner email must match request userEmail")
	}
	if input.NumSeats <= 0 {
		return domain.Errorf(domain.KindValidation, "numSeats must be provided and > 0")
	}
	if len(input.Passengers) == 0 {
		return domain.Errorf(domain.KindValidation, "passengers list is required and cannot be empty")
	}
	if len(input.Passengers) != input.NumSeats {
		return domain.Errorf(domain.KindValidation, "number of passengers must match numSeats")
	}
	for i, p := range input.Passengers {
		if strings.TrimSpace(p.Name) == "" {
			return domain.Errorf(domain.KindValidation, "passenger name is required for passenger index %d", i)
		}
		if p.Age <= 0 {
			return domain.Errorf(domain.KindValidation, "passenger age must be > 0 for passenger %s", p.Name)
		}
	}
	return nil
}

// normalizeRequestedSeats collects the explicitly selected seat numbers,
// trimmed and upper-cased, rejecting duplicates within the request.
func normalizeRequestedSeats(passengers []PassengerInput) ([]string, error) {
	seats := make([]string, 0, len(passengers))
	seen := make(map[string]bool, len(passengers))
	var duplicates []string
	for _, p := range passengers {
		seat := strings.ToUpper(strings.TrimSpace(p.SeatNumber))
		if seat == "" {
			continue
		}
		if seen[seat] {
			duplicates = append(duplicates, seat)
			continue
		}
		seen[seat] = true
		seats = append(seats, seat)
	}
	if len(duplicates) > 0 {
		return nil, domain.Errorf(domain.KindConflict,
			"Duplicate seat selection in request: %s", strings.Join(duplicates, ", "))
	}
	return seats, nil
}

func checkSeatsAgainstFlight(flight *domain.Flight, requestedSeats []string) error {
	if len(requestedSeats) == 0 {
		// No specific seat selection provided; the system assigns later.
		return nil
	}

	seatMap := flight.SeatMap()
	var notFound, notAvailable []string
	for _, seat := range requestedSeats {
		s, ok := seatMap[seat]
		switch {
		case !ok:
			notFound = append(notFound, seat)
		case s.Status != domain.SeatStatusAvailable:
			notAvailable = append(notAvailable, seat)
		}
	}
	if len(notFound) == 0 && len(notAvailable) == 0 {
		return nil
	}

	var parts []string
	if len(notFound) > 0 {
		parts = append(parts, "Requested seats not found: "+strings.Join(notFound, ", "))
	}
	if len(notAvailable) > 0 {
		parts = append(parts, "Requested seats not available: "+strings.Join(notAvailable, ", "))
	}
	return domain.Errorf(domain.KindConflict, "%s", strings.Join(parts, ". "))
}

// acquireSeatHolds takes best-effort holds on the requested seats. The
// returned release func drops them once the request is done; by then either
// the store rows exist and are authoritative, or the request failed and the
// seats are free again.
func (s *BookingService) acquireSeatHolds(ctx context.Context, flightID int64, seats []string) (func(), error) {
	var held []string
	releaseHeld := func() {
		if err := s.holds.ReleaseSeatHolds(ctx, flightID, held); err != nil {
			s.log.WithError(err).Warn("failed to release seat holds")
		}
	}

	for _, seat := range seats {
		ok, err := s.holds.AcquireSeatHold(ctx, flightID, seat)
		if err != nil {
			releaseHeld()
			return nil, domain.WrapError(domain.KindInternal, err, "failed to acquire seat hold")
		}
		if !ok {
			releaseHeld()
			return nil, domain.Errorf(domain.KindConflict,
				"Seat %s is currently held by another booking request", seat)
		}
		held = append(held, seat)
	}
	return releaseHeld, nil
}

func (s *BookingService) scheduleCreatedEffects(ctx context.Context, booking *domain.Booking, requestedSeats []string) {
	if len(requestedSeats) > 0 {
		flightID := booking.FlightID
		seatBookings := make([]domain.SeatBooking, 0, len(booking.Passengers))
		for _, p := range booking.Passengers {
			if p.SeatNumber == "" {
				continue
			}
			seatBookings = append(seatBookings, domain.SeatBooking{
				SeatNumber:    p.SeatNumber,
				PassengerName: p.Name,
			})
		}
		s.dispatcher.RunAfterCommit(ctx, "seat-lock", func(ctx context.Context) {
			s.inventory.BookSeats(ctx, flightID, seatBookings)
		})
	}
	s.scheduleNotification(ctx, kafka.EventBookingCreated, booking, requestedSeats)
}

func (s *BookingService) scheduleNotification(ctx context.Context, eventType string, booking *domain.Booking, seats []string) {
	if s.publisher == nil || s.notificationsTopic == "" {
		return
	}

	event := kafka.BookingEvent{
		Type:        eventType,
		PNR:         booking.PNR,
		FlightID:    booking.FlightID,
		UserEmail:   booking.UserEmail,
		NumSeats:    booking.NumSeats,
		SeatNumbers: seats,
		TotalPrice:  booking.TotalPrice,
		CreatedAt:   booking.CreatedAt,
		CancelledAt: booking.CancelledAt,
	}
	s.dispatcher.RunAfterCommit(ctx, "notify-"+eventType, func(ctx context.Context) {
		if err := s.publisher.Publish(ctx, s.notificationsTopic, event.PNR, event); err != nil {
			s.log.WithError(err).WithField("pnr", event.PNR).Warnf("failed to publish %s event", eventType)
		}
	})
}

func buildPassengers(inputs []PassengerInput) []domain.Passenger {
	passengers := make([]domain.Passenger, 0, len(inputs))
	for _, in := range inputs {
		passengers = append(passengers, domain.Passenger{
			Name:           strings.TrimSpace(in.Name),
			Age:            in.Age,
			Gender:         in.Gender,
			SeatNumber:     strings.ToUpper(strings.TrimSpace(in.SeatNumber)),
			MealPreference: in.MealPreference,
		})
	}
	return passengers
}

func normalizeSeats(seats []string) []string {
	out := make([]string, 0, len(seats))
	for _, seat := range seats {
		seat = strings.ToUpper(strings.TrimSpace(seat))
		if seat != "" {
			out = append(out, seat)
		}
	}
	return out
}

// generatePNR derives the client-facing booking identifier from a random
// UUID: 8 uppercase hex characters. Collisions are negligible; the unique
// constraint on bookings.pnr is the safety net.
func generatePNR() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:8]
}

var _ BookingUseCase = (*BookingService)(nil)
