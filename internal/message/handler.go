package message

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"
	goerrors "github.com/goliatone/go-errors"

	"webhook-receiver/internal/domain"
	"webhook-receiver/internal/logging"
	"webhook-receiver/internal/metrics"
	"webhook-receiver/internal/signature"
)

// DefaultMaxBodyBytes caps a webhook body when no limit is configured.
const DefaultMaxBodyBytes = 1 << 20

// HandlerConfig carries the settings the HTTP layer needs from config.Config.
type HandlerConfig struct {
	// WebhookSecret is the HMAC key. Empty means ingestion is unavailable.
	WebhookSecret string
	MaxBodyBytes  int64
}

// Handler is the HTTP API layer for ingestion and queries.
// It holds a dependency on the service layer.
type Handler struct {
	service      Service
	secret       string
	maxBodyBytes int64
	metrics      *metrics.Metrics
	logger       *slog.Logger
}

// NewHandler is the constructor for the Handler. metrics and logger may be nil.
func NewHandler(s Service, cfg HandlerConfig, m *metrics.Metrics, logger *slog.Logger) *Handler {
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &Handler{
		service:      s,
		secret:       cfg.WebhookSecret,
		maxBodyBytes: cfg.MaxBodyBytes,
		metrics:      m,
		logger:       logger,
	}
}

// RegisterRoutes attaches the ingestion and query endpoints to the router.
func (h *Handler) RegisterRoutes(r chi.Router) {
	// Inbound signed messages.
	r.Post("/webhook", h.handleWebhook)

	// Read side.
	r.Get("/messages", h.handleListMessages)
	r.Get("/stats", h.handleGetStats)
}

// handleWebhook walks the ingestion states in order: secret configured,
// signature valid, JSON parseable, schema valid, inserted.
func (h *Handler) handleWebhook(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context(), h.logger)

	if h.secret == "" {
		h.writeServiceError(w, r, notConfiguredError("webhook secret not configured"))
		return
	}

	// The signature covers the exact raw bytes, so read them before any parsing.
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.writeServiceError(w, r, tooLargeError("request body too large"))
			return
		}
		h.writeServiceError(w, r, badInputError("could not read request body"))
		return
	}

	if !signature.Verify(h.secret, body, r.Header.Get(signature.Header)) {
		h.metrics.RecordWebhook(metrics.OutcomeInvalidSignature)
		log.Warn("webhook rejected", "reason", metrics.OutcomeInvalidSignature)
		h.writeServiceError(w, r, unauthorizedError("invalid signature"))
		return
	}

	in, err := decodeInbound(body)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	result, err := h.service.Ingest(r.Context(), in)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	// Duplicates are a success for the caller, retries are safe.
	h.metrics.RecordWebhook(string(result))
	log.Info("webhook processed",
		"message_id", deref(in.MessageID),
		"dup", result == domain.InsertDuplicate,
		"result", string(result),
	)

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleListMessages serves one page of messages.
func (h *Handler) handleListMessages(w http.ResponseWriter, r *http.Request) {
	filter, err := parseListFilter(r.URL.Query())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	page, err := h.service.ListMessages(r.Context(), filter)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, page)
}

// handleGetStats returns the aggregate figures verbatim.
func (h *Handler) handleGetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.GetStats(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

// decodeInbound parses the body. A JSON value of the wrong type for a known
// field is reported as a field error, anything else unparseable as bad JSON.
func decodeInbound(body []byte) (InboundMessage, error) {
	var in InboundMessage
	if err := json.Unmarshal(body, &in); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field != "" {
			return InboundMessage{}, validationError("invalid message payload", goerrors.FieldError{
				Field:   typeErr.Field,
				Message: "must be a string",
			})
		}
		return InboundMessage{}, badInputError("invalid JSON body")
	}
	return in, nil
}

// parseListFilter reads limit, offset, from, since and q.
// limit defaults to 50 and is clamped to [1,100], offset defaults to 0.
func parseListFilter(q url.Values) (domain.ListFilter, error) {
	filter := domain.ListFilter{
		Limit: domain.DefaultListLimit,
		From:  q.Get("from"),
		Since: q.Get("since"),
		Query: q.Get("q"),
	}

	var fields []goerrors.FieldError
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			fields = append(fields, goerrors.FieldError{Field: "limit", Message: "must be an integer"})
		} else {
			filter.Limit = n
		}
	}
	if raw := q.Get("offset"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			fields = append(fields, goerrors.FieldError{Field: "offset", Message: "must be an integer"})
		} else {
			filter.Offset = n
		}
	}
	if len(fields) > 0 {
		return filter, validationError("invalid query parameters", fields...)
	}

	return filter.Normalize(), nil
}

// fieldDetail is one entry of the "details" array in a 400 response.
type fieldDetail struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// errorResponse is the body of every non-2xx response.
type errorResponse struct {
	Error   string        `json:"error"`
	Details []fieldDetail `json:"details,omitempty"`
}

// writeServiceError maps an error envelope to its HTTP status. Internal
// failures are logged in full and answered with an opaque message.
func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) || rich.Code == 0 {
		rich = nil
	}

	status := http.StatusInternalServerError
	if rich != nil {
		status = rich.Code
	}

	if status == http.StatusInternalServerError {
		logging.FromContext(r.Context(), h.logger).Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
		writeJSON(w, status, errorResponse{Error: "internal server error"})
		return
	}

	resp := errorResponse{Error: rich.Message}
	for _, fe := range rich.AllValidationErrors() {
		resp.Details = append(resp.Details, fieldDetail{Field: fe.Field, Message: fe.Message})
	}
	writeJSON(w, status, resp)
}

// writeJSON is a helper function to send json formatted responses.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}
