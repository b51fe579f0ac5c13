package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Domenick1991/bookingservice/internal/domain"
	"github.com/Domenick1991/bookingservice/internal/service/booking"
	"github.com/gin-gonic/gin"
)

// BookingHandler exposes the booking operations over HTTP. The caller's
// identity arrives in the X-User-Email header, set by the gateway that
// authenticated the request.
type BookingHandler struct {
	service booking.BookingUseCase
}

func NewBookingHandler(service booking.BookingUseCase) *BookingHandler {
	return &BookingHandler{service: service}
}

func (h *BookingHandler) Register(router *gin.RouterGroup) {
	router.POST("/booking/:flightId", h.create)
	router.GET("/ticket/:pnr", h.getByPNR)
	router.GET("/booking/history/:email", h.history)
	router.DELETE("/booking/cancel/:pnr", h.cancel)
}

type passengerView struct {
	Name           string `json:"name"`
	Age            int    `json:"age"`
	Gender         string `json:"gender,omitempty"`
	SeatNumber     string `json:"seatNumber,omitempty"`
	MealPreference string `json:"mealPreference,omitempty"`
}

type bookingResponse struct {
	PNR         string          `json:"pnr"`
	FlightID    int64           `json:"flightId"`
	UserEmail   string          `json:"userEmail"`
	NumSeats    int             `json:"numSeats"`
	TotalPrice  float64         `json:"totalPrice"`
	Status      string          `json:"status"`
	CreatedAt   string          `json:"createdAt"`
	CancelledAt string          `json:"cancelledAt,omitempty"`
	Passengers  []passengerView `json:"passengers"`
}

func (h *BookingHandler) create(c *gin.Context) {
	flightID, err := strconv.ParseInt(c.Param("flightId"), 10, 64)
	if err != nil {
		writeError(c, domain.Errorf(domain.KindValidation, "invalid flight id: %s", c.Param("flightId")))
		return
	}

	ownerEmail := c.GetHeader("X-User-Email")
	if ownerEmail == "" {
		writeError(c, domain.Errorf(domain.KindValidation, "X-User-Email header is required"))
		return
	}

	var input booking.CreateBookingInput
	if err := c.ShouldBindJSON(&input); err != nil {
		writeError(c, domain.WrapError(domain.KindValidation, err, "malformed request body"))
		return
	}

	created, err := h.service.CreateBooking(c.Request.Context(), input, ownerEmail, flightID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.Header("Location", fmt.Sprintf("/api/flight/ticket/%s", created.PNR))
	c.JSON(http.StatusCreated, toResponse(created))
}

func (h *BookingHandler) getByPNR(c *gin.Context) {
	found, err := h.service.GetByPNR(c.Request.Context(), c.Param("pnr"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toResponse(found))
}

func (h *BookingHandler) history(c *gin.Context) {
	email := c.Param("email")
	requester := c.GetHeader("X-User-Email")
	if !strings.EqualFold(requester, email) {
		writeError(c, domain.Errorf(domain.KindForbidden, "history can only be requested for your own bookings"))
		return
	}

	bookings, err := h.service.HistoryByEmail(c.Request.Context(), email)
	if err != nil {
		writeError(c, err)
		return
	}

	views := make([]bookingResponse, 0, len(bookings))
	for i := range bookings {
		views = append(views, toResponse(&bookings[i]))
	}
	c.JSON(http.StatusOK, views)
}

func (h *BookingHandler) cancel(c *gin.Context) {
	pnr := c.Param("pnr")
	requester := c.GetHeader("X-User-Email")
	if requester == "" {
		writeError(c, domain.Errorf(domain.KindValidation, "X-User-Email header is required"))
		return
	}

	cancelled, err := h.service.CancelBooking(c.Request.Context(), pnr, requester)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Booking cancelled successfully",
		"pnr":     cancelled.PNR,
		"status":  string(cancelled.Status),
	})
}

func toResponse(b *domain.Booking) bookingResponse {
	resp := bookingResponse{
		PNR:        b.PNR,
		FlightID:   b.FlightID,
		UserEmail:  b.UserEmail,
		NumSeats:   b.NumSeats,
		TotalPrice: b.TotalPrice,
		Status:     string(b.Status),
		CreatedAt:  b.CreatedAt.Format(time.RFC3339),
		Passengers: make([]passengerView, 0, len(b.Passengers)),
	}
	if b.CancelledAt != nil {
		resp.CancelledAt = b.CancelledAt.Format(time.RFC3339)
	}
	for _, p := range b.Passengers {
		resp.Passengers = append(resp.Passengers, passengerView{
			Name:           p.Name,
			Age:            p.Age,
			Gender:         p.Gender,
			SeatNumber:     p.SeatNumber,
			MealPreference: p.MealPreference,
		})
	}
	return resp
}

func statusFor(kind domain.ErrorKind) int {
	switch kind {
	case domain.KindValidation:
		return http.StatusBadRequest
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindConflict:
		return http.StatusConflict
	case domain.KindForbidden:
		return http.StatusForbidden
	case domain.KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeError(c *gin.Context, err error) {
	status := statusFor(domain.KindOf(err))
	message := err.Error()
	if status == http.StatusInternalServerError {
		message = "Internal server error"
	}

	c.JSON(status, gin.H{
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"status":    status,
		"error":     http.StatusText(status),
		"message":   message,
		"path":      c.Request.URL.Path,
	})
}
