package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"volunteerhub/internal/model"
	"volunteerhub/internal/notification"
)

// AllocationService is the registration/waitlist allocation engine. It
// decides whether a signup fills a slot or is deferred to the waitlist,
// promotes queued entries when an administrator frees capacity, and
// triggers the matching notification emails.
//
// Slot accounting counts signups, not headcount: one registration holds
// one slot whatever its party size.
type AllocationService struct {
	positions     PositionRepo
	registrations RegistrationRepo
	waitlist      WaitlistRepo
	events        EventRepo
	notifier      Notifier
	log           *zap.Logger
}

// NewAllocationService constructs an AllocationService.
func NewAllocationService(
	positions PositionRepo,
	registrations RegistrationRepo,
	waitlist WaitlistRepo,
	events EventRepo,
	notifier Notifier,
	log *zap.Logger,
) *AllocationService {
	return &AllocationService{
		positions:     positions,
		registrations: registrations,
		waitlist:      waitlist,
		events:        events,
		notifier:      notifier,
		log:           log,
	}
}

// SubmitSignup places a signup for (user, position). New signups take a
// slot when one is open and join the waitlist otherwise; repeat
// submissions patch the existing registration or waitlist entry in
// place. A registration whose position can no longer hold it (capacity
// shrunk externally) is demoted to the waitlist tail and reported as
// moved_to_waitlist.
func (s *AllocationService) SubmitSignup(ctx context.Context, user model.UserIdentity, positionID string, req model.SignupRequest) (*model.SignupResult, error) {
	guests, err := parseGuests(req.Guests)
	if err != nil {
		return nil, err
	}

	pos, err := s.positions.GetByID(ctx, positionID)
	if err != nil {
		return nil, err
	}
	details, err := s.details(ctx, pos)
	if err != nil {
		return nil, err
	}

	// Current state for (user, position): registration, waitlist entry,
	// or neither. At most one of the two exists.
	reg, err := s.registrations.GetByPositionAndUser(ctx, positionID, user.ID)
	switch {
	case err == nil:
		return s.updateRegistration(ctx, user, pos, reg, guests, details)
	case !errors.Is(err, model.ErrNotFound):
		return nil, fmt.Errorf("lookup registration: %w", err)
	}

	entry, err := s.waitlist.GetByPositionAndUser(ctx, positionID, user.ID)
	switch {
	case err == nil:
		return s.updateWaitlistEntry(ctx, user, entry, guests, details)
	case !errors.Is(err, model.ErrNotFound):
		return nil, fmt.Errorf("lookup waitlist entry: %w", err)
	}

	return s.placeNewSignup(ctx, user, positionID, guests, details)
}

// updateRegistration patches a confirmed signup in place, or demotes it
// to the waitlist when the position no longer has room for it.
func (s *AllocationService) updateRegistration(ctx context.Context, user model.UserIdentity, pos *model.Position, reg *model.Registration, guests []model.Guest, details notification.Details) (*model.SignupResult, error) {
	if pos.FilledSlots > pos.TotalSlots {
		entry := &model.WaitlistEntry{
			PositionID: pos.ID,
			UserID:     user.ID,
			UserEmail:  user.Email,
			Guests:     toWaitlistGuests(guests),
		}
		if err := s.waitlist.Demote(ctx, reg.ID, entry); err != nil {
			return nil, fmt.Errorf("demote registration: %w", err)
		}

		s.log.Info("registration demoted to waitlist",
			zap.String("registration_id", reg.ID),
			zap.String("waitlist_entry_id", entry.ID),
			zap.String("position_id", pos.ID),
			zap.String("user_id", user.ID),
		)
		go s.notifier.MovedToWaitlist(context.WithoutCancel(ctx), user.Email, details)

		queuePos, err := s.waitlist.QueuePosition(ctx, entry.ID)
		if err != nil {
			s.log.Warn("queue position unavailable", zap.Error(err))
		}
		return &model.SignupResult{
			Status:           model.StatusMovedToWaitlist,
			ID:               entry.ID,
			WaitlistPosition: queuePos,
			Message:          "The position's capacity was reduced, so your signup was moved to the waitlist.",
		}, nil
	}

	if err := s.registrations.ReplaceGuests(ctx, reg.ID, guests); err != nil {
		return nil, fmt.Errorf("update registration guests: %w", err)
	}

	go s.notifier.SignupConfirmed(context.WithoutCancel(ctx), user.Email, details)

	return &model.SignupResult{
		Status:  model.StatusConfirmed,
		ID:      reg.ID,
		Message: "Registration updated.",
	}, nil
}

// updateWaitlistEntry patches a queued signup's guest list; its place in
// line does not change.
func (s *AllocationService) updateWaitlistEntry(ctx context.Context, user model.UserIdentity, entry *model.WaitlistEntry, guests []model.Guest, details notification.Details) (*model.SignupResult, error) {
	if err := s.waitlist.ReplaceGuests(ctx, entry.ID, toWaitlistGuests(guests)); err != nil {
		return nil, fmt.Errorf("update waitlist guests: %w", err)
	}

	queuePos, err := s.waitlist.QueuePosition(ctx, entry.ID)
	if err != nil {
		s.log.Warn("queue position unavailable", zap.Error(err))
	}

	go s.notifier.SignupWaitlisted(context.WithoutCancel(ctx), user.Email, details, queuePos)

	return &model.SignupResult{
		Status:           model.StatusWaitlisted,
		ID:               entry.ID,
		WaitlistPosition: queuePos,
		Message:          "Waitlist entry updated.",
	}, nil
}

// placeNewSignup tries to take a slot and falls back to the waitlist
// when the position is full.
func (s *AllocationService) placeNewSignup(ctx context.Context, user model.UserIdentity, positionID string, guests []model.Guest, details notification.Details) (*model.SignupResult, error) {
	reg := &model.Registration{
		PositionID: positionID,
		UserID:     user.ID,
		UserEmail:  user.Email,
		Guests:     guests,
	}
	err := s.registrations.CreateConfirmed(ctx, reg)
	switch {
	case err == nil:
		s.log.Info("signup confirmed",
			zap.String("registration_id", reg.ID),
			zap.String("position_id", positionID),
			zap.String("user_id", user.ID),
			zap.Int("party_size", reg.PartySize()),
		)
		go s.notifier.SignupConfirmed(context.WithoutCancel(ctx), user.Email, details)
		return &model.SignupResult{
			Status: model.StatusConfirmed,
			ID:     reg.ID,
		}, nil

	case errors.Is(err, model.ErrPositionFull):
		entry := &model.WaitlistEntry{
			PositionID: positionID,
			UserID:     user.ID,
			UserEmail:  user.Email,
			Guests:     toWaitlistGuests(guests),
		}
		if err := s.waitlist.Create(ctx, entry); err != nil {
			if errors.Is(err, model.ErrAlreadySignedUp) {
				return nil, &model.ConflictError{Msg: "a concurrent signup for this position already exists; please retry"}
			}
			return nil, fmt.Errorf("create waitlist entry: %w", err)
		}

		queuePos, err := s.waitlist.QueuePosition(ctx, entry.ID)
		if err != nil {
			s.log.Warn("queue position unavailable", zap.Error(err))
		}

		s.log.Info("signup waitlisted",
			zap.String("waitlist_entry_id", entry.ID),
			zap.String("position_id", positionID),
			zap.String("user_id", user.ID),
			zap.Int("queue_position", queuePos),
		)
		go s.notifier.SignupWaitlisted(context.WithoutCancel(ctx), user.Email, details, queuePos)
		return &model.SignupResult{
			Status:           model.StatusWaitlisted,
			ID:               entry.ID,
			WaitlistPosition: queuePos,
			Message:          "The position is full; you've been added to the waitlist.",
		}, nil

	case errors.Is(err, model.ErrAlreadySignedUp):
		// A concurrent submission won the (position, user) unique index.
		return nil, &model.ConflictError{Msg: "a concurrent signup for this position already exists; please retry"}

	default:
		return nil, fmt.Errorf("create registration: %w", err)
	}
}

// PromoteFromWaitlist converts the selected waitlist entries into
// registrations as one atomic batch. The whole batch fails with a
// CapacityError carrying the exact shortfall when the open slots cannot
// hold it.
func (s *AllocationService) PromoteFromWaitlist(ctx context.Context, positionID string, req model.PromoteRequest) (*model.PromoteResult, error) {
	if len(req.WaitlistEntryIDs) == 0 {
		return nil, model.NewValidationError("no waitlist entries selected")
	}
	seen := make(map[string]bool, len(req.WaitlistEntryIDs))
	for _, id := range req.WaitlistEntryIDs {
		if seen[id] {
			return nil, model.NewValidationError("duplicate waitlist entry id %s", id)
		}
		seen[id] = true
	}

	pos, err := s.positions.GetByID(ctx, positionID)
	if err != nil {
		return nil, err
	}
	details, err := s.details(ctx, pos)
	if err != nil {
		return nil, err
	}

	// Resolve the selection before looking at capacity: a stale entry id
	// reports not-found, never a shortfall.
	for _, id := range req.WaitlistEntryIDs {
		entry, err := s.waitlist.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, model.ErrNotFound) {
				return nil, fmt.Errorf("waitlist entry %s: %w", id, model.ErrNotFound)
			}
			return nil, err
		}
		if entry.PositionID != positionID {
			return nil, fmt.Errorf("waitlist entry %s: %w", id, model.ErrNotFound)
		}
	}

	requested := len(req.WaitlistEntryIDs)
	if available := pos.Remaining(); available < requested {
		return nil, &model.CapacityError{Available: max(available, 0), Requested: requested}
	}

	// The repository transaction re-checks capacity with the conditional
	// slot update, so a raced pre-check still cannot overbook.
	regs, err := s.waitlist.Promote(ctx, positionID, req.WaitlistEntryIDs)
	if err != nil {
		return nil, err
	}

	s.log.Info("waitlist entries promoted",
		zap.String("position_id", positionID),
		zap.Int("count", len(regs)),
	)
	for _, reg := range regs {
		go s.notifier.PromotedFromWaitlist(context.WithoutCancel(ctx), reg.UserEmail, details)
	}

	return &model.PromoteResult{
		Promoted: len(regs),
		Message:  fmt.Sprintf("Promoted %d signup(s) from the waitlist.", len(regs)),
	}, nil
}

// CancelRegistration deletes a confirmed signup and frees its slot. The
// next waitlisted entry is not promoted automatically; promotion is a
// separate administrative action.
func (s *AllocationService) CancelRegistration(ctx context.Context, id string) error {
	reg, err := s.registrations.GetByID(ctx, id)
	if err != nil {
		return err
	}
	pos, err := s.positions.GetByID(ctx, reg.PositionID)
	if err != nil {
		return err
	}
	details, err := s.details(ctx, pos)
	if err != nil {
		return err
	}

	if err := s.registrations.Delete(ctx, id); err != nil {
		return err
	}

	s.log.Info("registration cancelled",
		zap.String("registration_id", id),
		zap.String("position_id", reg.PositionID),
		zap.String("user_id", reg.UserID),
	)
	go s.notifier.RegistrationRemoved(context.WithoutCancel(ctx), reg.UserEmail, details)

	return nil
}

// CancelWaitlistEntry deletes a queued signup. No slot is held, so the
// ledger is untouched and no email is sent.
func (s *AllocationService) CancelWaitlistEntry(ctx context.Context, id string) error {
	if err := s.waitlist.Delete(ctx, id); err != nil {
		return err
	}
	s.log.Info("waitlist entry cancelled", zap.String("waitlist_entry_id", id))
	return nil
}

// Waitlist returns a position's queue in FIFO order.
func (s *AllocationService) Waitlist(ctx context.Context, positionID string) ([]model.WaitlistEntry, error) {
	if _, err := s.positions.GetByID(ctx, positionID); err != nil {
		return nil, err
	}
	return s.waitlist.ListByPosition(ctx, positionID)
}

// details assembles the event/position context carried by notification
// emails. The position's own location wins over the event's.
func (s *AllocationService) details(ctx context.Context, pos *model.Position) (notification.Details, error) {
	event, err := s.events.GetByID(ctx, pos.EventID)
	if err != nil {
		return notification.Details{}, fmt.Errorf("get event for position: %w", err)
	}
	location := pos.Location
	if location == "" {
		location = event.Location
	}
	return notification.Details{
		EventName:     event.Name,
		PositionTitle: pos.Title,
		Location:      location,
		ShiftStart:    pos.ShiftStart,
		ShiftEnd:      pos.ShiftEnd,
	}, nil
}

// parseGuests validates the submitted guest list. First name, last name,
// date of birth, and relationship are required for every guest.
func parseGuests(inputs []model.GuestInput) ([]model.Guest, error) {
	guests := make([]model.Guest, 0, len(inputs))
	for i, in := range inputs {
		firstName := strings.TrimSpace(in.FirstName)
		lastName := strings.TrimSpace(in.LastName)
		relationship := strings.TrimSpace(in.Relationship)
		if firstName == "" || lastName == "" || strings.TrimSpace(in.DateOfBirth) == "" || relationship == "" {
			return nil, model.NewValidationError(
				"guest %d: first name, last name, date of birth, and relationship are required", i+1)
		}
		dob, err := time.Parse("2006-01-02", strings.TrimSpace(in.DateOfBirth))
		if err != nil {
			return nil, model.NewValidationError(
				"guest %d: date of birth must be in YYYY-MM-DD format", i+1)
		}
		guests = append(guests, model.Guest{
			FirstName:    firstName,
			LastName:     lastName,
			DateOfBirth:  dob,
			Relationship: relationship,
			Email:        strings.TrimSpace(in.Email),
			PhoneNumber:  strings.TrimSpace(in.PhoneNumber),
			Comments:     strings.TrimSpace(in.Comments),
		})
	}
	return guests, nil
}

// toWaitlistGuests converts confirmed-guest records to the waitlist
// shape, which carries no phone number.
func toWaitlistGuests(in []model.Guest) []model.WaitlistGuest {
	out := make([]model.WaitlistGuest, 0, len(in))
	for _, g := range in {
		out = append(out, model.WaitlistGuest{
			FirstName:    g.FirstName,
			LastName:     g.LastName,
			DateOfBirth:  g.DateOfBirth,
			Relationship: g.Relationship,
			Email:        g.Email,
			Comments:     g.Comments,
		})
	}
	return out
}
