package flightclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Domenick1991/bookingservice/internal/domain"
)

// SeatInventoryClient talks to the flight service that owns seat inventory.
type SeatInventoryClient interface {
	GetFlight(ctx context.Context, flightID int64) (*domain.Flight, error)
	BookSeats(ctx context.Context, flightID int64, seats []domain.SeatBooking) error
	ReleaseSeats(ctx context.Context, flightID int64, seatNumbers []string) error
}

type HTTPClient struct {
	baseURL string
	http    *http.Client
}

func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

type seatDTO struct {
	SeatNumber string `json:"seatNumber"`
	Status     string `json:"status"`
}

type flightDTO struct {
	ID           int64     `json:"id"`
	PricePerSeat float64   `json:"pricePerSeat"`
	Seats        []seatDTO `json:"seats"`
}

func (c *HTTPClient) GetFlight(ctx context.Context, flightID int64) (*domain.Flight, error) {
	url := fmt.Sprintf("%s/api/flight/%d", c.baseURL, flightID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, domain.WrapError(domain.KindInternal, err, "failed to build flight request")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, domain.WrapError(domain.KindUnavailable, err, fmt.Sprintf("error contacting flight service for flightId=%d", flightID))
	}
	defer resp.Body.Close()

	if err := classifyStatus(resp, flightID); err != nil {
		return nil, err
	}

	var dto flightDTO
	if err := json.NewDecoder(resp.Body).Decode(&dto); err != nil {
		return nil, domain.WrapError(domain.KindUnavailable, err, "failed to decode flight response")
	}

	flight := &domain.Flight{ID: dto.ID, PricePerSeat: dto.PricePerSeat}
	if flight.ID == 0 {
		flight.ID = flightID
	}
	for _, s := range dto.Seats {
		flight.Seats = append(flight.Seats, domain.Seat{
			SeatNumber: s.SeatNumber,
			Status:     domain.SeatStatus(s.Status),
		})
	}
	return flight, nil
}

func (c *HTTPClient) BookSeats(ctx context.Context, flightID int64, seats []domain.SeatBooking) error {
	url := fmt.Sprintf("%s/api/flight/%d/seats/book", c.baseURL, flightID)
	return c.post(ctx, url, flightID, seats)
}

func (c *HTTPClient) ReleaseSeats(ctx context.Context, flightID int64, seatNumbers []string) error {
	url := fmt.Sprintf("%s/api/flight/%d/seats/release", c.baseURL, flightID)
	return c.post(ctx, url, flightID, seatNumbers)
}

func (c *HTTPClient) post(ctx context.Context, url string, flightID int64, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return domain.WrapError(domain.KindInternal, err, "failed to marshal request body")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return domain.WrapError(domain.KindInternal, err, "failed to build flight request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return domain.WrapError(domain.KindUnavailable, err, fmt.Sprintf("error contacting flight service for flightId=%d", flightID))
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	return classifyStatus(resp, flightID)
}

// classifyStatus separates business responses from infrastructure failures:
// 404 and other 4xx pass through with their own classification, while 5xx
// counts as the service being unavailable.
func classifyStatus(resp *http.Response, flightID int64) error {
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusNotFound:
		return domain.Errorf(domain.KindNotFound, "Flight not found: %d", flightID)
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return domain.Errorf(domain.KindValidation, "flight service rejected request: status %d", resp.StatusCode)
	default:
		return domain.Errorf(domain.KindUnavailable, "flight service returned status %d", resp.StatusCode)
	}
}

var _ SeatInventoryClient = (*HTTPClient)(nil)
