package model

// CreateEventRequest is the payload for creating a new event.
type CreateEventRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Location    string `json:"location"`
	StartsAt    string `json:"starts_at"` // RFC 3339
	EndsAt      string `json:"ends_at"`   // RFC 3339
}

// CreatePositionRequest is the payload for adding a position to an event.
type CreatePositionRequest struct {
	Title      string `json:"title"`
	Location   string `json:"location"`
	ShiftStart string `json:"shift_start"` // RFC 3339
	ShiftEnd   string `json:"shift_end"`   // RFC 3339
	TotalSlots int    `json:"total_slots"`
}

// GuestInput is one guest row as submitted on a signup form. First name,
// last name, date of birth and relationship are required; the rest is
// optional contact detail.
type GuestInput struct {
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	DateOfBirth  string `json:"date_of_birth"` // YYYY-MM-DD
	Relationship string `json:"relationship"`
	Email        string `json:"email,omitempty"`
	PhoneNumber  string `json:"phone_number,omitempty"`
	Comments     string `json:"comments,omitempty"`
}

// SignupRequest is the payload for registering for a position. The
// acting user comes from the identity headers, the position from the URL.
type SignupRequest struct {
	Guests []GuestInput `json:"guests"`
}

// SignupStatus is the final placement of a signup submission.
type SignupStatus string

const (
	StatusConfirmed       SignupStatus = "confirmed"
	StatusWaitlisted      SignupStatus = "waitlisted"
	StatusMovedToWaitlist SignupStatus = "moved_to_waitlist"
)

// SignupResult summarises the outcome of a single signup submission.
// ID refers to the registration when confirmed, otherwise to the
// waitlist entry. WaitlistPosition is 1-based and only set for
// waitlisted outcomes.
type SignupResult struct {
	Status           SignupStatus `json:"status"`
	ID               string       `json:"id"`
	WaitlistPosition int          `json:"waitlist_position,omitempty"`
	Message          string       `json:"message,omitempty"`
}

// PromoteRequest selects waitlist entries for administrative promotion.
type PromoteRequest struct {
	WaitlistEntryIDs []string `json:"waitlist_entry_ids"`
}

// PromoteResult reports a completed batch promotion.
type PromoteResult struct {
	Promoted int    `json:"promoted"`
	Message  string `json:"message"`
}

// CancelResult is the response for registration/waitlist removal.
type CancelResult struct {
	Success bool `json:"success"`
}
