package events

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventBusPublishJSON(t *testing.T) {
	bus := NewEventBus()

	var received *Event
	bus.Subscribe(EventBookingCreated, func(event *Event) error {
		received = event
		return nil
	})

	payload := BookingEventPayload{
		BookingID:  7,
		FieldID:    2,
		CustomerID: 100,
		Status:     "pending",
		StartAt:    time.Date(2026, 9, 1, 14, 0, 0, 0, time.UTC),
		EndAt:      time.Date(2026, 9, 1, 16, 0, 0, 0, time.UTC),
		Price:      80,
	}
	require.NoError(t, bus.PublishJSON(EventBookingCreated, payload))

	require.NotNil(t, received)
	assert.NotEmpty(t, received.ID)
	assert.Equal(t, EventBookingCreated, received.Type)

	var got BookingEventPayload
	require.NoError(t, json.Unmarshal(received.Payload, &got))
	assert.Equal(t, int64(7), got.BookingID)
	assert.Equal(t, "pending", got.Status)
}

func TestEventBusOnlyMatchingType(t *testing.T) {
	bus := NewEventBus()

	var created, cancelled int
	bus.Subscribe(EventBookingCreated, func(*Event) error {
		created++
		return nil
	})
	bus.Subscribe(EventBookingCancelled, func(*Event) error {
		cancelled++
		return nil
	})

	require.NoError(t, bus.PublishJSON(EventBookingCreated, BookingEventPayload{BookingID: 1}))
	require.NoError(t, bus.PublishJSON(EventBookingCreated, BookingEventPayload{BookingID: 2}))

	assert.Equal(t, 2, created)
	assert.Zero(t, cancelled)
}

func TestEventBusNilSafe(t *testing.T) {
	var bus *EventBus
	assert.NoError(t, bus.PublishJSON(EventBookingConfirmed, BookingEventPayload{BookingID: 1}))
}

func TestEventBusConcurrentPublish(t *testing.T) {
	bus := NewEventBus()

	var mu sync.Mutex
	count := 0
	bus.Subscribe(EventBookingConfirmed, func(*Event) error {
		mu.Lock()
		count++
		mu.Unlock()
		return nil
	})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			_ = bus.PublishJSON(EventBookingConfirmed, BookingEventPayload{BookingID: id})
		}(int64(i))
	}
	wg.Wait()

	assert.Equal(t, 20, count)
}
