package service

import (
	"context"

	"volunteerhub/internal/model"
	"volunteerhub/internal/notification"
)

// Repository and notifier contracts consumed by the services. The
// concrete implementations live in internal/repository and
// internal/notification; tests substitute in-memory fakes.

type EventRepo interface {
	Create(ctx context.Context, e *model.Event) error
	List(ctx context.Context) ([]model.Event, error)
	GetByID(ctx context.Context, id string) (*model.Event, error)
}

type PositionRepo interface {
	Create(ctx context.Context, p *model.Position) error
	GetByID(ctx context.Context, id string) (*model.Position, error)
	ListByEvent(ctx context.Context, eventID string) ([]model.Position, error)
}

type RegistrationRepo interface {
	CreateConfirmed(ctx context.Context, reg *model.Registration) error
	GetByID(ctx context.Context, id string) (*model.Registration, error)
	GetByPositionAndUser(ctx context.Context, positionID, userID string) (*model.Registration, error)
	ListByPosition(ctx context.Context, positionID string) ([]model.Registration, error)
	ReplaceGuests(ctx context.Context, registrationID string, guests []model.Guest) error
	Delete(ctx context.Context, id string) error
}

type WaitlistRepo interface {
	Create(ctx context.Context, e *model.WaitlistEntry) error
	GetByID(ctx context.Context, id string) (*model.WaitlistEntry, error)
	GetByPositionAndUser(ctx context.Context, positionID, userID string) (*model.WaitlistEntry, error)
	ListByPosition(ctx context.Context, positionID string) ([]model.WaitlistEntry, error)
	QueuePosition(ctx context.Context, entryID string) (int, error)
	ReplaceGuests(ctx context.Context, entryID string, guests []model.WaitlistGuest) error
	Delete(ctx context.Context, id string) error
	Promote(ctx context.Context, positionID string, entryIDs []string) ([]model.Registration, error)
	Demote(ctx context.Context, registrationID string, e *model.WaitlistEntry) error
}

type Notifier interface {
	SignupConfirmed(ctx context.Context, to string, d notification.Details)
	SignupWaitlisted(ctx context.Context, to string, d notification.Details, queuePosition int)
	MovedToWaitlist(ctx context.Context, to string, d notification.Details)
	PromotedFromWaitlist(ctx context.Context, to string, d notification.Details)
	RegistrationRemoved(ctx context.Context, to string, d notification.Details)
}
