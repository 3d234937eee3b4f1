// Package handler contains chi HTTP handlers that translate HTTP
// requests/responses to and from the service layer.
package handler

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/eventure/eventure/internal/model"
	"github.com/eventure/eventure/internal/service"
)

// ─── Helper utilities ─────────────────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, kind model.Kind, msg string) {
	writeJSON(w, status, model.ErrorResponse{Code: string(kind), Error: msg})
}

// writeDomainError maps a failure kind to its HTTP status so clients can
// react to the specific outcome.
func writeDomainError(w http.ResponseWriter, err error) {
	kind := model.ErrorKind(err)
	msg := "internal error"
	var domainErr *model.Error
	if errors.As(err, &domainErr) {
		msg = domainErr.Message
	}
	writeError(w, statusForKind(kind), kind, msg)
}

func statusForKind(kind model.Kind) int {
	switch kind {
	case model.KindValidation:
		return http.StatusBadRequest
	case model.KindUnauthenticated:
		return http.StatusUnauthorized
	case model.KindUnauthorized:
		return http.StatusForbidden
	case model.KindNotFound:
		return http.StatusNotFound
	case model.KindConflict, model.KindCapacityExceeded, model.KindAlreadyRegistered:
		return http.StatusConflict
	case model.KindAuthProvider:
		return http.StatusBadGateway
	case model.KindStoreUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func decodeJSON(r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(nil, r.Body, 1<<20) // 1 MB limit
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func eventID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return uuid.Nil, model.WrapError(model.KindValidation, "invalid event id", err)
	}
	return id, nil
}

// ─── User handlers ────────────────────────────────────────────────────────────

// UserHandler holds the HTTP handlers for the identity surface.
type UserHandler struct {
	identity       *service.IdentityService
	frontendOrigin string
}

// NewUserHandler constructs a UserHandler.
func NewUserHandler(identity *service.IdentityService, frontendOrigin string) *UserHandler {
	return &UserHandler{identity: identity, frontendOrigin: frontendOrigin}
}

// SignUp handles POST /user/signup
func (h *UserHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req model.SignUpRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, model.KindValidation, "invalid request body: "+err.Error())
		return
	}

	tokenString, err := h.identity.SignUp(r.Context(), req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, model.TokenResponse{Token: tokenString})
}

// SignIn handles POST /user/signin
func (h *UserHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req model.SignInRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, model.KindValidation, "invalid request body: "+err.Error())
		return
	}

	tokenString, err := h.identity.SignIn(r.Context(), req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, model.TokenResponse{Token: tokenString})
}

// GoogleAuth handles GET /user/auth/google
// Redirects the browser to the provider's authorization endpoint.
func (h *UserHandler) GoogleAuth(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, h.identity.AuthCodeURL(randomState()), http.StatusFound)
}

// GoogleCallback handles GET /user/auth/google/callback
// Exchanges the authorization code, verifies the provider assertion, and
// sends the browser back to the frontend with a signed token.
func (h *UserHandler) GoogleCallback(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	if code == "" {
		http.Redirect(w, r, h.frontendOrigin+"/login?error=no_code", http.StatusFound)
		return
	}

	tokenString, err := h.identity.VerifyExternalIdentity(r.Context(), code)
	if err != nil {
		http.Redirect(w, r, h.frontendOrigin+"/login?error=auth_failed", http.StatusFound)
		return
	}
	http.Redirect(w, r, h.frontendOrigin+"/dashboard?token="+tokenString, http.StatusFound)
}

// Me handles GET /user/me
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	identity := IdentityFromContext(r.Context())
	if identity == nil {
		writeError(w, http.StatusUnauthorized, model.KindUnauthenticated, "no verified identity")
		return
	}

	user, err := h.identity.Me(r.Context(), *identity)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func randomState() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// ─── Event handlers ───────────────────────────────────────────────────────────

// EventHandler holds the HTTP handlers for the event surface.
type EventHandler struct {
	svc *service.EventService
}

// NewEventHandler constructs an EventHandler.
func NewEventHandler(svc *service.EventService) *EventHandler {
	return &EventHandler{svc: svc}
}

// Create handles POST /event/add
func (h *EventHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req model.EventRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, model.KindValidation, "invalid request body: "+err.Error())
		return
	}

	event, err := h.svc.Create(r.Context(), req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, event)
}

// List handles GET /event/get
// Returns all events with their derived view state. Zero events is an
// empty array, not an error.
func (h *EventHandler) List(w http.ResponseWriter, r *http.Request) {
	views, err := h.svc.List(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if views == nil {
		views = []model.ViewEvent{}
	}
	writeJSON(w, http.StatusOK, views)
}

// Update handles PUT /event/update/{id}
func (h *EventHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := eventID(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	var req model.EventRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, model.KindValidation, "invalid request body: "+err.Error())
		return
	}

	event, err := h.svc.Update(r.Context(), id, req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, event)
}

// Delete handles DELETE /event/delete/{id}
func (h *EventHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := eventID(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	if err := h.svc.Delete(r.Context(), id); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"deleted_event_id": id.String()})
}

// Register handles POST /event/register/{id}
// Admits the authenticated caller under the capacity and uniqueness
// invariants.
func (h *EventHandler) Register(w http.ResponseWriter, r *http.Request) {
	id, err := eventID(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	participant, err := h.svc.Register(r.Context(), id, IdentityFromContext(r.Context()))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, participant)
}

// Report handles POST /event/report/{id}
// Asks the report-generation collaborator for post-event prose.
func (h *EventHandler) Report(w http.ResponseWriter, r *http.Request) {
	id, err := eventID(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	text, err := h.svc.Report(r.Context(), id)
	if err != nil {
		if model.ErrorKind(err) == "" {
			writeError(w, http.StatusBadGateway, model.KindAuthProvider, "failed to generate event report")
			return
		}
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"report": text})
}

// ─── Health check ─────────────────────────────────────────────────────────────

// HealthCheck handles GET /health
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
