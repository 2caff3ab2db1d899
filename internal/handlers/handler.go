package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/tedkaczynski-the-bot/agent-ponzi/internal/claim"
	"github.com/tedkaczynski-the-bot/agent-ponzi/internal/store"
)

// Handler contains shared dependencies for all HTTP handlers.
type Handler struct {
	db        store.DataStore
	redis     *store.RedisStore
	registry  *claim.Registry
	verifier  *claim.Verifier
	directory *claim.Directory
	logger    zerolog.Logger
}

// Deps groups what NewHandler needs. Redis may be nil.
type Deps struct {
	DB        store.DataStore
	Redis     *store.RedisStore
	Registry  *claim.Registry
	Verifier  *claim.Verifier
	Directory *claim.Directory
	Logger    zerolog.Logger
}

// NewHandler creates a new Handler with the given dependencies.
func NewHandler(d Deps) *Handler {
	return &Handler{
		db:        d.DB,
		redis:     d.Redis,
		registry:  d.Registry,
		verifier:  d.Verifier,
		directory: d.Directory,
		logger:    d.Logger,
	}
}

// JSON sends a JSON response with the given status code.
func (h *Handler) JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// Error sends a JSON error response with the given status code.
func (h *Handler) Error(w http.ResponseWriter, status int, message string) {
	h.JSON(w, status, map[string]string{"error": message})
}

// statusForKind maps claim failures to HTTP status codes.
func statusForKind(k claim.Kind) int {
	switch k {
	case claim.InvalidInput, claim.NameTaken, claim.InvalidAddress,
		claim.InvalidReference, claim.ProofNotFound, claim.AlreadyClaimed:
		return http.StatusBadRequest
	case claim.NotFound:
		return http.StatusNotFound
	case claim.FetchFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// ClaimError writes a claim workflow error. Internal failures are logged
// and reported with a generic message only.
func (h *Handler) ClaimError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	var claimErr *claim.Error
	kind := claim.KindOf(err)
	status := statusForKind(kind)

	if status == http.StatusInternalServerError {
		h.logger.Error().
			Err(err).
			Str("kind", kind.String()).
			Str("path", r.URL.Path).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg(fallback)
		h.Error(w, status, fallback)
		return
	}

	message := fallback
	if errors.As(err, &claimErr) {
		message = claimErr.Message
	}
	h.Error(w, status, message)
}
