package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"time"

	"github.com/benvon/portfolio/internal/formguard"
	logpkg "github.com/benvon/portfolio/internal/logger"
	"github.com/benvon/portfolio/internal/middleware"
	"github.com/benvon/portfolio/internal/models"
	"github.com/benvon/portfolio/internal/queue"
	"github.com/benvon/portfolio/internal/ratelimit"
	"github.com/benvon/portfolio/internal/request"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// DefaultContactMessageTTL is how long a relayed message stays deliverable.
const DefaultContactMessageTTL = 24 * time.Hour

// ContactHandler accepts contact form submissions. It repeats the Form Guard
// checks server-side and never trusts the browser's pass.
type ContactHandler struct {
	limiter ratelimit.Limiter
	relay   queue.Relay
	ttl     time.Duration
	log     *zap.Logger
	now     func() time.Time
}

// NewContactHandler creates a contact handler. limiter enforces the per-client
// submission quota; relay receives accepted messages.
func NewContactHandler(limiter ratelimit.Limiter, relay queue.Relay, ttl time.Duration, log *zap.Logger) *ContactHandler {
	if ttl <= 0 {
		ttl = DefaultContactMessageTTL
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &ContactHandler{
		limiter: limiter,
		relay:   relay,
		ttl:     ttl,
		log:     log,
		now:     time.Now,
	}
}

// RegisterRoutes registers the contact route on an /api/v1 subrouter.
func (h *ContactHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/contact", h.Submit).Methods(http.MethodPost)
}

// ContactResponse is the data of an accepted submission.
type ContactResponse struct {
	ID string `json:"id"`
}

// Submit handles POST /api/v1/contact.
func (h *ContactHandler) Submit(w http.ResponseWriter, r *http.Request) {
	clientID := request.ClientID(r)

	decision, err := h.limiter.Check(r.Context(), clientID)
	if err != nil {
		h.log.Warn("contact_rate_limit_check_failed_allowing_request",
			zap.Error(err),
			zap.String("client_id", logpkg.SanitizeClientID(clientID)),
		)
	} else {
		middleware.WriteRateLimitHeaders(w.Header(), decision)
		if !decision.Allowed {
			respondJSONError(w, http.StatusTooManyRequests, "rate_limited", "Too many messages. Please try again later.")
			return
		}
	}

	var raw map[string]any
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(&raw); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondJSONError(w, http.StatusRequestEntityTooLarge, "payload_too_large", "Message is too large")
			return
		}
		respondJSONError(w, http.StatusBadRequest, "invalid_request", "Request body must be a JSON object")
		return
	}

	fields := formguard.Fields{
		Name:    formguard.SanitizeValue(raw[string(formguard.FieldName)]),
		Email:   formguard.SanitizeValue(raw[string(formguard.FieldEmail)]),
		Message: formguard.SanitizeValue(raw[string(formguard.FieldMessage)]),
	}
	clean, outcome := formguard.Check(fields)
	if !outcome.Accepted {
		failed := make(map[string]string, len(outcome.Errors))
		names := make([]string, 0, len(outcome.Errors))
		for field, msg := range outcome.Errors {
			failed[string(field)] = msg
			names = append(names, string(field))
		}
		sort.Strings(names)
		h.log.Info("contact_submission_rejected",
			zap.String("client_id", logpkg.SanitizeClientID(clientID)),
			zap.Strings("fields", names),
		)
		respondJSONErrorWithFields(w, http.StatusUnprocessableEntity, "validation_failed", "Please correct the highlighted fields", failed)
		return
	}

	msg := models.NewContactMessage(clean.Name, clean.Email, clean.Message, clientID, h.now(), h.ttl)
	msg.RequestID = request.RequestIDFromContext(r.Context())

	if err := h.relay.Publish(r.Context(), msg); err != nil {
		h.log.Error("failed_to_relay_contact_message",
			zap.Error(err),
			zap.String("message_id", msg.ID.String()),
		)
		respondJSONError(w, http.StatusServiceUnavailable, "relay_unavailable", "Message could not be sent. Please try again later.")
		return
	}

	respondJSON(w, http.StatusAccepted, ContactResponse{ID: msg.ID.String()})
}
