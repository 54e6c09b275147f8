// Package model defines the core domain types for the volunteer
// event-management system.
package model

import "time"

// Event represents a volunteer event created by an administrator.
type Event struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Location    string    `json:"location"`
	StartsAt    time.Time `json:"starts_at"`
	EndsAt      time.Time `json:"ends_at"`
	CreatedAt   time.Time `json:"created_at"`
}

// Position represents a capacity-bounded volunteer slot within an event.
// FilledSlots is mutated only through the allocation engine's slot
// bookkeeping, never directly by request handlers.
type Position struct {
	ID          string    `json:"id"`
	EventID     string    `json:"event_id"`
	Title       string    `json:"title"`
	Location    string    `json:"location"`
	ShiftStart  time.Time `json:"shift_start"`
	ShiftEnd    time.Time `json:"shift_end"`
	TotalSlots  int       `json:"total_slots"`
	FilledSlots int       `json:"filled_slots"`
	CreatedAt   time.Time `json:"created_at"`
}

// Remaining returns the number of open slots.
func (p *Position) Remaining() int {
	return p.TotalSlots - p.FilledSlots
}

// IsFull returns true when no slots remain.
func (p *Position) IsFull() bool {
	return p.FilledSlots >= p.TotalSlots
}

// Registration represents a confirmed occupant of a position's capacity.
// One registration consumes one slot regardless of party size.
type Registration struct {
	ID         string    `json:"id"`
	PositionID string    `json:"position_id"`
	UserID     string    `json:"user_id"`
	UserEmail  string    `json:"user_email"`
	HasGuests  bool      `json:"has_guests"`
	Guests     []Guest   `json:"guests"`
	CreatedAt  time.Time `json:"created_at"`
}

// PartySize returns self plus accompanying guests.
func (r *Registration) PartySize() int {
	return 1 + len(r.Guests)
}

// Guest is an accompanying person attached to a confirmed registration.
type Guest struct {
	ID             string    `json:"id"`
	RegistrationID string    `json:"registration_id"`
	FirstName      string    `json:"first_name"`
	LastName       string    `json:"last_name"`
	DateOfBirth    time.Time `json:"date_of_birth"`
	Relationship   string    `json:"relationship"`
	Email          string    `json:"email,omitempty"`
	PhoneNumber    string    `json:"phone_number,omitempty"`
	Comments       string    `json:"comments,omitempty"`
}

// WaitlistEntry represents a deferred signup queued FIFO for a position.
// Ordering is by CreatedAt ascending with ID as tiebreak.
type WaitlistEntry struct {
	ID         string          `json:"id"`
	PositionID string          `json:"position_id"`
	UserID     string          `json:"user_id"`
	UserEmail  string          `json:"user_email"`
	Guests     []WaitlistGuest `json:"guests"`
	CreatedAt  time.Time       `json:"created_at"`
}

// WaitlistGuest mirrors Guest for deferred signups. Phone numbers are not
// collected on the waitlist; a promoted guest record carries no phone
// number until the volunteer reattaches one.
type WaitlistGuest struct {
	ID              string    `json:"id"`
	WaitlistEntryID string    `json:"waitlist_entry_id"`
	FirstName       string    `json:"first_name"`
	LastName        string    `json:"last_name"`
	DateOfBirth     time.Time `json:"date_of_birth"`
	Relationship    string    `json:"relationship"`
	Email           string    `json:"email,omitempty"`
	Comments        string    `json:"comments,omitempty"`
}

// UserIdentity is the authenticated caller as asserted by the external
// identity provider in front of this service.
type UserIdentity struct {
	ID    string
	Email string
	Role  string
}

// IsAdmin reports whether the caller may use administrative endpoints.
func (u UserIdentity) IsAdmin() bool {
	return u.Role == "admin"
}

// ErrorResponse is a standard JSON error envelope.
type ErrorResponse struct {
	Error string `json:"error"`
}
