package kafka

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeEvent(t *testing.T) {
	payload, err := json.Marshal(BookingEvent{
		Type:        EventBookingCreated,
		PNR:         "ABCD1234",
		FlightID:    4,
		UserEmail:   "alice@example.com",
		NumSeats:    2,
		SeatNumbers: []string{"A1", "A2"},
		TotalPrice:  300,
		CreatedAt:   time.Now().UTC(),
	})
	require.NoError(t, err)

	event, err := decodeEvent(payload)

	require.NoError(t, err)
	assert.Equal(t, EventBookingCreated, event.Type)
	assert.Equal(t, "ABCD1234", event.PNR)
	assert.Equal(t, []string{"A1", "A2"}, event.SeatNumbers)
}

func TestDecodeEvent_rejectsBadPayloads(t *testing.T) {
	tests := []struct {
		name  string
		value []byte
	}{
		{name: "malformed json", value: []byte("not json")},
		{name: "missing type", value: []byte(`{"pnr":"ABCD1234"}`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := decodeEvent(tt.value)
			assert.Error(t, err)
		})
	}
}
