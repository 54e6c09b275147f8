package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"volunteerhub/internal/model"
)

func newEventService() (*EventService, *fakeState) {
	state := newFakeState()
	return NewEventService(&fakeEvents{state}, &fakePositions{state}), state
}

func TestCreateEvent(t *testing.T) {
	svc, _ := newEventService()

	event, err := svc.CreateEvent(context.Background(), model.CreateEventRequest{
		Name:     "  Food Drive  ",
		Location: "Community Center",
		StartsAt: "2026-10-03T09:00:00Z",
		EndsAt:   "2026-10-03T17:00:00Z",
	})

	require.NoError(t, err)
	assert.Equal(t, "Food Drive", event.Name)
	assert.NotEmpty(t, event.ID)
}

func TestCreateEvent_Validation(t *testing.T) {
	svc, _ := newEventService()

	cases := []struct {
		name string
		req  model.CreateEventRequest
	}{
		{"missing name", model.CreateEventRequest{StartsAt: "2026-10-03T09:00:00Z", EndsAt: "2026-10-03T17:00:00Z"}},
		{"bad starts_at", model.CreateEventRequest{Name: "x", StartsAt: "tomorrow", EndsAt: "2026-10-03T17:00:00Z"}},
		{"ends before starts", model.CreateEventRequest{Name: "x", StartsAt: "2026-10-03T17:00:00Z", EndsAt: "2026-10-03T09:00:00Z"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.CreateEvent(context.Background(), tc.req)
			var validationErr *model.ValidationError
			require.ErrorAs(t, err, &validationErr)
		})
	}
}

func TestCreatePosition(t *testing.T) {
	svc, _ := newEventService()

	event, err := svc.CreateEvent(context.Background(), model.CreateEventRequest{
		Name:     "Food Drive",
		StartsAt: "2026-10-03T09:00:00Z",
		EndsAt:   "2026-10-03T17:00:00Z",
	})
	require.NoError(t, err)

	position, err := svc.CreatePosition(context.Background(), event.ID, model.CreatePositionRequest{
		Title:      "Greeter",
		TotalSlots: 4,
		ShiftStart: "2026-10-03T09:00:00Z",
		ShiftEnd:   "2026-10-03T13:00:00Z",
	})
	require.NoError(t, err)
	assert.Equal(t, 4, position.TotalSlots)
	assert.Equal(t, 0, position.FilledSlots)

	positions, err := svc.ListPositions(context.Background(), event.ID)
	require.NoError(t, err)
	assert.Len(t, positions, 1)
}

func TestCreatePosition_UnknownEvent(t *testing.T) {
	svc, _ := newEventService()

	_, err := svc.CreatePosition(context.Background(), "missing", model.CreatePositionRequest{
		Title:      "Greeter",
		TotalSlots: 4,
		ShiftStart: "2026-10-03T09:00:00Z",
		ShiftEnd:   "2026-10-03T13:00:00Z",
	})
	require.ErrorIs(t, err, model.ErrNotFound)
}

func TestCreatePosition_NegativeSlots(t *testing.T) {
	svc, _ := newEventService()

	_, err := svc.CreatePosition(context.Background(), "any", model.CreatePositionRequest{
		Title:      "Greeter",
		TotalSlots: -1,
		ShiftStart: "2026-10-03T09:00:00Z",
		ShiftEnd:   "2026-10-03T13:00:00Z",
	})
	var validationErr *model.ValidationError
	require.ErrorAs(t, err, &validationErr)
}
