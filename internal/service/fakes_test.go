package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"volunteerhub/internal/model"
	"volunteerhub/internal/notification"
)

// In-memory fakes behind the ports interfaces. All mutation goes through
// one mutex so the fakes keep the same atomicity the real repositories
// get from Postgres transactions, which lets the concurrency tests run
// against them directly.

type fakeState struct {
	mu            sync.Mutex
	events        map[string]*model.Event
	positions     map[string]*model.Position
	registrations map[string]*model.Registration
	waitlist      map[string]*model.WaitlistEntry
	order         map[string]int // waitlist arrival order
	seq           int
}

func newFakeState() *fakeState {
	return &fakeState{
		events:        make(map[string]*model.Event),
		positions:     make(map[string]*model.Position),
		registrations: make(map[string]*model.Registration),
		waitlist:      make(map[string]*model.WaitlistEntry),
		order:         make(map[string]int),
	}
}

// ─── EventRepo ────────────────────────────────────────────────────────────────

type fakeEvents struct{ s *fakeState }

func (f *fakeEvents) Create(_ context.Context, e *model.Event) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	e.ID = uuid.New().String()
	e.CreatedAt = time.Now().UTC()
	cp := *e
	f.s.events[e.ID] = &cp
	return nil
}

func (f *fakeEvents) List(_ context.Context) ([]model.Event, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	var out []model.Event
	for _, e := range f.s.events {
		out = append(out, *e)
	}
	return out, nil
}

func (f *fakeEvents) GetByID(_ context.Context, id string) (*model.Event, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	e, ok := f.s.events[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	cp := *e
	return &cp, nil
}

// ─── PositionRepo ─────────────────────────────────────────────────────────────

type fakePositions struct{ s *fakeState }

func (f *fakePositions) Create(_ context.Context, p *model.Position) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	p.ID = uuid.New().String()
	p.CreatedAt = time.Now().UTC()
	cp := *p
	f.s.positions[p.ID] = &cp
	return nil
}

func (f *fakePositions) GetByID(_ context.Context, id string) (*model.Position, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	p, ok := f.s.positions[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakePositions) ListByEvent(_ context.Context, eventID string) ([]model.Position, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	var out []model.Position
	for _, p := range f.s.positions {
		if p.EventID == eventID {
			out = append(out, *p)
		}
	}
	return out, nil
}

// ─── RegistrationRepo ─────────────────────────────────────────────────────────

type fakeRegistrations struct{ s *fakeState }

func (f *fakeRegistrations) CreateConfirmed(_ context.Context, reg *model.Registration) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	pos, ok := f.s.positions[reg.PositionID]
	if !ok {
		return model.ErrNotFound
	}
	for _, existing := range f.s.registrations {
		if existing.PositionID == reg.PositionID && existing.UserID == reg.UserID {
			return model.ErrAlreadySignedUp
		}
	}
	if pos.FilledSlots+1 > pos.TotalSlots {
		return model.ErrPositionFull
	}
	pos.FilledSlots++
	reg.ID = uuid.New().String()
	reg.HasGuests = len(reg.Guests) > 0
	reg.CreatedAt = time.Now().UTC()
	cp := *reg
	f.s.registrations[reg.ID] = &cp
	return nil
}

func (f *fakeRegistrations) GetByID(_ context.Context, id string) (*model.Registration, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	reg, ok := f.s.registrations[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	cp := *reg
	return &cp, nil
}

func (f *fakeRegistrations) GetByPositionAndUser(_ context.Context, positionID, userID string) (*model.Registration, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for _, reg := range f.s.registrations {
		if reg.PositionID == positionID && reg.UserID == userID {
			cp := *reg
			return &cp, nil
		}
	}
	return nil, model.ErrNotFound
}

func (f *fakeRegistrations) ListByPosition(_ context.Context, positionID string) ([]model.Registration, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	var out []model.Registration
	for _, reg := range f.s.registrations {
		if reg.PositionID == positionID {
			out = append(out, *reg)
		}
	}
	return out, nil
}

func (f *fakeRegistrations) ReplaceGuests(_ context.Context, registrationID string, guests []model.Guest) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	reg, ok := f.s.registrations[registrationID]
	if !ok {
		return model.ErrNotFound
	}
	reg.Guests = append([]model.Guest(nil), guests...)
	reg.HasGuests = len(guests) > 0
	return nil
}

func (f *fakeRegistrations) Delete(_ context.Context, id string) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	reg, ok := f.s.registrations[id]
	if !ok {
		return model.ErrNotFound
	}
	if pos, ok := f.s.positions[reg.PositionID]; ok && pos.FilledSlots > 0 {
		pos.FilledSlots--
	}
	delete(f.s.registrations, id)
	return nil
}

// ─── WaitlistRepo ─────────────────────────────────────────────────────────────

type fakeWaitlist struct{ s *fakeState }

func (f *fakeWaitlist) Create(_ context.Context, e *model.WaitlistEntry) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	return f.createLocked(e)
}

func (f *fakeWaitlist) createLocked(e *model.WaitlistEntry) error {
	for _, existing := range f.s.waitlist {
		if existing.PositionID == e.PositionID && existing.UserID == e.UserID {
			return model.ErrAlreadySignedUp
		}
	}
	for _, reg := range f.s.registrations {
		if reg.PositionID == e.PositionID && reg.UserID == e.UserID {
			return model.ErrAlreadySignedUp
		}
	}
	e.ID = uuid.New().String()
	e.CreatedAt = time.Now().UTC()
	f.s.seq++
	f.s.order[e.ID] = f.s.seq
	cp := *e
	f.s.waitlist[e.ID] = &cp
	return nil
}

func (f *fakeWaitlist) GetByID(_ context.Context, id string) (*model.WaitlistEntry, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	e, ok := f.s.waitlist[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (f *fakeWaitlist) GetByPositionAndUser(_ context.Context, positionID, userID string) (*model.WaitlistEntry, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for _, e := range f.s.waitlist {
		if e.PositionID == positionID && e.UserID == userID {
			cp := *e
			return &cp, nil
		}
	}
	return nil, model.ErrNotFound
}

func (f *fakeWaitlist) ListByPosition(_ context.Context, positionID string) ([]model.WaitlistEntry, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	var out []model.WaitlistEntry
	for _, e := range f.s.waitlist {
		if e.PositionID == positionID {
			out = append(out, *e)
		}
	}
	for i := 0; i < len(out); i++ {
		for j := i + 1; j < len(out); j++ {
			if f.s.order[out[j].ID] < f.s.order[out[i].ID] {
				out[i], out[j] = out[j], out[i]
			}
		}
	}
	return out, nil
}

func (f *fakeWaitlist) QueuePosition(_ context.Context, entryID string) (int, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	e, ok := f.s.waitlist[entryID]
	if !ok {
		return 0, model.ErrNotFound
	}
	pos := 1
	for _, other := range f.s.waitlist {
		if other.PositionID == e.PositionID && f.s.order[other.ID] < f.s.order[entryID] {
			pos++
		}
	}
	return pos, nil
}

func (f *fakeWaitlist) ReplaceGuests(_ context.Context, entryID string, guests []model.WaitlistGuest) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	e, ok := f.s.waitlist[entryID]
	if !ok {
		return model.ErrNotFound
	}
	e.Guests = append([]model.WaitlistGuest(nil), guests...)
	return nil
}

func (f *fakeWaitlist) Delete(_ context.Context, id string) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if _, ok := f.s.waitlist[id]; !ok {
		return model.ErrNotFound
	}
	delete(f.s.waitlist, id)
	delete(f.s.order, id)
	return nil
}

func (f *fakeWaitlist) Promote(_ context.Context, positionID string, entryIDs []string) ([]model.Registration, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	pos, ok := f.s.positions[positionID]
	if !ok {
		return nil, model.ErrNotFound
	}
	if pos.FilledSlots+len(entryIDs) > pos.TotalSlots {
		return nil, &model.CapacityError{
			Available: max(pos.TotalSlots-pos.FilledSlots, 0),
			Requested: len(entryIDs),
		}
	}
	for _, id := range entryIDs {
		e, ok := f.s.waitlist[id]
		if !ok || e.PositionID != positionID {
			return nil, fmt.Errorf("waitlist entry %s: %w", id, model.ErrNotFound)
		}
	}

	regs := make([]model.Registration, 0, len(entryIDs))
	for _, id := range entryIDs {
		e := f.s.waitlist[id]
		reg := model.Registration{
			ID:         uuid.New().String(),
			PositionID: e.PositionID,
			UserID:     e.UserID,
			UserEmail:  e.UserEmail,
			HasGuests:  len(e.Guests) > 0,
			CreatedAt:  time.Now().UTC(),
		}
		for _, g := range e.Guests {
			reg.Guests = append(reg.Guests, model.Guest{
				FirstName:    g.FirstName,
				LastName:     g.LastName,
				DateOfBirth:  g.DateOfBirth,
				Relationship: g.Relationship,
				Email:        g.Email,
				Comments:     g.Comments,
			})
		}
		cp := reg
		f.s.registrations[reg.ID] = &cp
		delete(f.s.waitlist, id)
		delete(f.s.order, id)
		regs = append(regs, reg)
	}
	pos.FilledSlots += len(entryIDs)
	return regs, nil
}

func (f *fakeWaitlist) Demote(_ context.Context, registrationID string, e *model.WaitlistEntry) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	reg, ok := f.s.registrations[registrationID]
	if !ok {
		return model.ErrNotFound
	}
	delete(f.s.registrations, registrationID)
	e.PositionID = reg.PositionID
	if err := f.createLocked(e); err != nil {
		f.s.registrations[registrationID] = reg
		return err
	}
	if pos, ok := f.s.positions[reg.PositionID]; ok && pos.FilledSlots > 0 {
		pos.FilledSlots--
	}
	return nil
}

// ─── Notifier ─────────────────────────────────────────────────────────────────

type notifierCall struct {
	kind     string
	to       string
	queuePos int
}

type fakeNotifier struct {
	mu    sync.Mutex
	calls []notifierCall
}

func (f *fakeNotifier) record(kind, to string, queuePos int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, notifierCall{kind: kind, to: to, queuePos: queuePos})
}

func (f *fakeNotifier) snapshot() []notifierCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]notifierCall(nil), f.calls...)
}

func (f *fakeNotifier) SignupConfirmed(_ context.Context, to string, _ notification.Details) {
	f.record("confirmed", to, 0)
}

func (f *fakeNotifier) SignupWaitlisted(_ context.Context, to string, _ notification.Details, queuePosition int) {
	f.record("waitlisted", to, queuePosition)
}

func (f *fakeNotifier) MovedToWaitlist(_ context.Context, to string, _ notification.Details) {
	f.record("moved_to_waitlist", to, 0)
}

func (f *fakeNotifier) PromotedFromWaitlist(_ context.Context, to string, _ notification.Details) {
	f.record("promoted", to, 0)
}

func (f *fakeNotifier) RegistrationRemoved(_ context.Context, to string, _ notification.Details) {
	f.record("removed", to, 0)
}
