// Package handler contains chi HTTP handlers that translate HTTP
// requests/responses to and from the service layer.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"volunteerhub/internal/model"
)

// EventSvc is the event/position CRUD surface consumed by the handlers.
type EventSvc interface {
	CreateEvent(ctx context.Context, req model.CreateEventRequest) (*model.Event, error)
	ListEvents(ctx context.Context) ([]model.Event, error)
	GetEvent(ctx context.Context, id string) (*model.Event, error)
	CreatePosition(ctx context.Context, eventID string, req model.CreatePositionRequest) (*model.Position, error)
	ListPositions(ctx context.Context, eventID string) ([]model.Position, error)
}

// AllocationSvc is the allocation engine surface consumed by the handlers.
type AllocationSvc interface {
	SubmitSignup(ctx context.Context, user model.UserIdentity, positionID string, req model.SignupRequest) (*model.SignupResult, error)
	PromoteFromWaitlist(ctx context.Context, positionID string, req model.PromoteRequest) (*model.PromoteResult, error)
	CancelRegistration(ctx context.Context, id string) error
	CancelWaitlistEntry(ctx context.Context, id string) error
	Waitlist(ctx context.Context, positionID string) ([]model.WaitlistEntry, error)
}

// Handler holds all HTTP handlers for the volunteer API.
type Handler struct {
	events EventSvc
	alloc  AllocationSvc
	log    *zap.Logger
}

// New constructs a Handler.
func New(events EventSvc, alloc AllocationSvc, log *zap.Logger) *Handler {
	return &Handler{events: events, alloc: alloc, log: log}
}

// Routes mounts all API routes on a chi router.
func (h *Handler) Routes(r chi.Router) {
	r.Route("/events", func(r chi.Router) {
		r.Post("/", h.CreateEvent)
		r.Get("/", h.ListEvents)
		r.Get("/{id}", h.GetEvent)
		r.Post("/{id}/positions", h.CreatePosition)
		r.Get("/{id}/positions", h.ListPositions)
	})
	r.Route("/positions", func(r chi.Router) {
		r.Post("/{id}/signup", h.Signup)
		r.Get("/{id}/waitlist", h.ListWaitlist)
		r.Post("/{id}/promote", h.Promote)
	})
	r.Delete("/registrations/{id}", h.CancelRegistration)
	r.Delete("/waitlist/{id}", h.CancelWaitlistEntry)
}

// ─── Helper utilities ─────────────────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, model.ErrorResponse{Error: msg})
}

func decodeJSON(r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(nil, r.Body, 1<<20) // 1 MB limit
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// handleError maps the domain error taxonomy to HTTP statuses. Anything
// unclassified is logged server-side and reported generically.
func (h *Handler) handleError(w http.ResponseWriter, r *http.Request, err error) {
	var validationErr *model.ValidationError
	var capacityErr *model.CapacityError
	var conflictErr *model.ConflictError
	switch {
	case errors.As(err, &validationErr):
		writeError(w, http.StatusBadRequest, validationErr.Error())
	case errors.As(err, &capacityErr):
		writeError(w, http.StatusConflict, capacityErr.Error())
	case errors.As(err, &conflictErr):
		writeError(w, http.StatusConflict, conflictErr.Error())
	case errors.Is(err, model.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, model.ErrAlreadySignedUp):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, model.ErrPositionFull):
		writeError(w, http.StatusConflict, err.Error())
	default:
		h.log.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// ─── Event handlers ───────────────────────────────────────────────────────────

// CreateEvent handles POST /events (admin only).
func (h *Handler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	if !requireAdmin(w, r) {
		return
	}
	var req model.CreateEventRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	event, err := h.events.CreateEvent(r.Context(), req)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, event)
}

// ListEvents handles GET /events.
func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.events.ListEvents(r.Context())
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	// Return an empty array rather than null for better client compatibility.
	if events == nil {
		events = []model.Event{}
	}
	writeJSON(w, http.StatusOK, events)
}

// GetEvent handles GET /events/{id}.
func (h *Handler) GetEvent(w http.ResponseWriter, r *http.Request) {
	event, err := h.events.GetEvent(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, event)
}

// CreatePosition handles POST /events/{id}/positions (admin only).
func (h *Handler) CreatePosition(w http.ResponseWriter, r *http.Request) {
	if !requireAdmin(w, r) {
		return
	}
	var req model.CreatePositionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	position, err := h.events.CreatePosition(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, position)
}

// ListPositions handles GET /events/{id}/positions.
func (h *Handler) ListPositions(w http.ResponseWriter, r *http.Request) {
	positions, err := h.events.ListPositions(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	if positions == nil {
		positions = []model.Position{}
	}
	writeJSON(w, http.StatusOK, positions)
}

// ─── Allocation handlers ──────────────────────────────────────────────────────

// Signup handles POST /positions/{id}/signup.
// Places the caller into a slot or onto the waitlist.
func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	user, ok := identityFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req model.SignupRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	result, err := h.alloc.SubmitSignup(r.Context(), user, chi.URLParam(r, "id"), req)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	status := http.StatusCreated
	if result.Status == model.StatusMovedToWaitlist {
		status = http.StatusOK
	}
	writeJSON(w, status, result)
}

// ListWaitlist handles GET /positions/{id}/waitlist (admin only).
func (h *Handler) ListWaitlist(w http.ResponseWriter, r *http.Request) {
	if !requireAdmin(w, r) {
		return
	}
	entries, err := h.alloc.Waitlist(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	if entries == nil {
		entries = []model.WaitlistEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

// Promote handles POST /positions/{id}/promote (admin only).
// Converts the selected waitlist entries into registrations.
func (h *Handler) Promote(w http.ResponseWriter, r *http.Request) {
	if !requireAdmin(w, r) {
		return
	}
	var req model.PromoteRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	result, err := h.alloc.PromoteFromWaitlist(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// CancelRegistration handles DELETE /registrations/{id}.
func (h *Handler) CancelRegistration(w http.ResponseWriter, r *http.Request) {
	if _, ok := identityFrom(r.Context()); !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	if err := h.alloc.CancelRegistration(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, model.CancelResult{Success: true})
}

// CancelWaitlistEntry handles DELETE /waitlist/{id}.
func (h *Handler) CancelWaitlistEntry(w http.ResponseWriter, r *http.Request) {
	if _, ok := identityFrom(r.Context()); !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	if err := h.alloc.CancelWaitlistEntry(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, model.CancelResult{Success: true})
}

// ─── Health check ─────────────────────────────────────────────────────────────

// HealthCheck handles GET /health.
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
