// Package service implements business logic, validation, and orchestration
// between HTTP handlers and the repository layer. The allocation engine
// lives in allocation.go; this file is the thin event/position glue.
package service

import (
	"context"
	"strings"
	"time"

	"volunteerhub/internal/model"
)

// EventService orchestrates event and position CRUD.
type EventService struct {
	events    EventRepo
	positions PositionRepo
}

// NewEventService constructs an EventService with its dependencies.
func NewEventService(events EventRepo, positions PositionRepo) *EventService {
	return &EventService{events: events, positions: positions}
}

// CreateEvent validates the request and delegates to the repository.
func (s *EventService) CreateEvent(ctx context.Context, req model.CreateEventRequest) (*model.Event, error) {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return nil, model.NewValidationError("event name is required")
	}
	startsAt, err := time.Parse(time.RFC3339, req.StartsAt)
	if err != nil {
		return nil, model.NewValidationError("starts_at must be an RFC 3339 timestamp")
	}
	endsAt, err := time.Parse(time.RFC3339, req.EndsAt)
	if err != nil {
		return nil, model.NewValidationError("ends_at must be an RFC 3339 timestamp")
	}
	if !endsAt.After(startsAt) {
		return nil, model.NewValidationError("ends_at must be after starts_at")
	}

	event := &model.Event{
		Name:        req.Name,
		Description: strings.TrimSpace(req.Description),
		Location:    strings.TrimSpace(req.Location),
		StartsAt:    startsAt,
		EndsAt:      endsAt,
	}
	if err := s.events.Create(ctx, event); err != nil {
		return nil, err
	}
	return event, nil
}

// ListEvents returns all events.
func (s *EventService) ListEvents(ctx context.Context) ([]model.Event, error) {
	return s.events.List(ctx)
}

// GetEvent returns a single event by ID.
func (s *EventService) GetEvent(ctx context.Context, id string) (*model.Event, error) {
	return s.events.GetByID(ctx, id)
}

// CreatePosition validates the request and adds a position to an event.
func (s *EventService) CreatePosition(ctx context.Context, eventID string, req model.CreatePositionRequest) (*model.Position, error) {
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		return nil, model.NewValidationError("position title is required")
	}
	if req.TotalSlots < 0 {
		return nil, model.NewValidationError("total_slots cannot be negative")
	}
	if req.TotalSlots > 10_000 {
		return nil, model.NewValidationError("total_slots cannot exceed 10,000")
	}
	shiftStart, err := time.Parse(time.RFC3339, req.ShiftStart)
	if err != nil {
		return nil, model.NewValidationError("shift_start must be an RFC 3339 timestamp")
	}
	shiftEnd, err := time.Parse(time.RFC3339, req.ShiftEnd)
	if err != nil {
		return nil, model.NewValidationError("shift_end must be an RFC 3339 timestamp")
	}
	if !shiftEnd.After(shiftStart) {
		return nil, model.NewValidationError("shift_end must be after shift_start")
	}

	if _, err := s.events.GetByID(ctx, eventID); err != nil {
		return nil, err
	}

	position := &model.Position{
		EventID:    eventID,
		Title:      req.Title,
		Location:   strings.TrimSpace(req.Location),
		ShiftStart: shiftStart,
		ShiftEnd:   shiftEnd,
		TotalSlots: req.TotalSlots,
	}
	if err := s.positions.Create(ctx, position); err != nil {
		return nil, err
	}
	return position, nil
}

// ListPositions returns all positions for an event.
func (s *EventService) ListPositions(ctx context.Context, eventID string) ([]model.Position, error) {
	if _, err := s.events.GetByID(ctx, eventID); err != nil {
		return nil, err
	}
	return s.positions.ListByEvent(ctx, eventID)
}
