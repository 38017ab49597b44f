package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"optigov.org/internal/auth"
	"optigov.org/internal/domain"
	"optigov.org/internal/obs"
	"optigov.org/internal/store"
)

// API is the HTTP layer over the dashboard store.
type API struct {
	store   *store.Store
	tokens  *auth.Tokens
	version string
	now     func() time.Time

	rateBurst  int
	ratePerSec float64
	maxBody    int64
	origins    []string
}

// Option customises an API.
type Option func(*API)

// WithRateLimit sets the per-client token bucket. A non-positive rps disables
// limiting.
func WithRateLimit(rps float64, burst int) Option {
	return func(a *API) {
		a.ratePerSec = rps
		a.rateBurst = burst
	}
}

// WithMaxBodyBytes caps request bodies.
func WithMaxBodyBytes(n int64) Option {
	return func(a *API) { a.maxBody = n }
}

// WithCORSOrigins sets the allowed browser origins.
func WithCORSOrigins(origins []string) Option {
	return func(a *API) { a.origins = origins }
}

// WithVersion sets the version reported by /healthz.
func WithVersion(v string) Option {
	return func(a *API) { a.version = v }
}

func New(st *store.Store, tokens *auth.Tokens, opts ...Option) *API {
	a := &API{
		store:      st,
		tokens:     tokens,
		version:    "dev",
		now:        time.Now,
		rateBurst:  40,
		ratePerSec: 20,
		maxBody:    1 << 20,
		origins:    []string{"*"},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Handler returns the fully wrapped router.
func (a *API) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(RequestID, Logging, Recoverer, SecurityHeaders, CORS(a.origins), MaxBodyBytes(a.maxBody))
	if a.ratePerSec > 0 {
		r.Use(func(next http.Handler) http.Handler { return RateLimit(next, a.rateBurst, a.ratePerSec) })
	}
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
	})

	r.Get("/healthz", a.Healthz)
	r.Get("/readyz", a.Ready)
	r.Handle("/metrics", obs.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Post("/auth/register", a.register)
		r.Post("/auth/login", a.login)
		r.Get("/compliance/rules", a.complianceRules)
		r.Get("/companies", a.listCompanies)

		r.Group(func(r chi.Router) {
			r.Use(a.authenticate)

			r.Get("/me", a.me)
			r.Post("/auth/refresh", a.refresh)
			r.Get("/events", a.Stream)

			r.Get("/notifications", a.listNotifications)
			r.Post("/notifications/read-all", a.markAllNotificationsRead)
			r.Post("/notifications/{id}/read", a.markNotificationRead)

			r.Post("/uploads", a.createUpload)
			r.Get("/uploads", a.listUploads)
			r.Get("/requests/{id}/messages", a.listMessages)
			r.Post("/requests/{id}/messages", a.postMessage)
			r.Get("/activity", a.listActivity)

			r.Group(func(r chi.Router) {
				r.Use(requireRole(domain.RoleCitizen))
				r.Post("/requests", a.createRequest)
				r.Get("/requests", a.listCitizenRequests)
				r.Patch("/requests/{id}", a.updateRequest)
				r.Delete("/requests/{id}", a.deleteRequest)
				r.Get("/alerts", a.listAlerts)
				r.Post("/alerts/{id}/resolve", a.resolveAlert)
			})

			r.Route("/company", func(r chi.Router) {
				r.Use(requireRole(domain.RoleCompany))
				r.Get("/requests", a.listCompanyRequests)
				r.Post("/requests/{id}/respond", a.respondToRequest)
				r.Get("/compliance", a.getCompliance)
				r.Put("/compliance/{index}", a.updateCompliance)
			})

			r.Route("/admin", func(r chi.Router) {
				r.Use(requireRole(domain.RoleAdmin))
				r.Get("/users", a.adminListUsers)
				r.Post("/users/{id}/active", a.adminSetActive)
				r.Get("/users/{id}/notes", a.adminListNotes)
				r.Post("/users/{id}/notes", a.adminCreateNote)
				r.Get("/analytics", a.adminAnalytics)
				r.Get("/requests", a.adminListRequests)
				r.Get("/activity", a.adminListActivity)
			})
		})
	})

	return obs.Instrument(r)
}

// --- Handlers ---

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "optigov",
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if err := a.store.Ping(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, code int, msg string) {
	payload := map[string]any{
		"error": msg,
	}
	if rid := RequestIDFromContext(r.Context()); rid != "" {
		payload["request_id"] = rid
	}
	writeJSON(w, code, payload)
}

// writeStoreError maps facade errors onto status codes. Unexpected errors are
// logged and reported as 500 without detail.
func writeStoreError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrInvalidCredentials):
		writeError(w, r, http.StatusUnauthorized, "invalid credentials")
	case errors.Is(err, domain.ErrUnauthorized), errors.Is(err, auth.ErrInvalidToken):
		writeError(w, r, http.StatusUnauthorized, "unauthorized")
	case errors.Is(err, auth.ErrForbidden):
		writeError(w, r, http.StatusForbidden, "forbidden")
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "not found")
	case errors.Is(err, domain.ErrAlreadyExists):
		writeError(w, r, http.StatusConflict, "username or email already registered")
	case errors.Is(err, domain.ErrRequestNotPending):
		writeError(w, r, http.StatusConflict, domain.ErrRequestNotPending.Error())
	default:
		obs.Logger().Error("request failed",
			zap.String("request_id", RequestIDFromContext(r.Context())),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	// The body is already capped by MaxBodyBytes.
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if err == nil {
			return errors.New("unexpected data after JSON body")
		}
		return err
	}
	return nil
}

func parsePositiveInt(raw string, def, min, max int) (int, error) {
	if strings.TrimSpace(raw) == "" {
		return def, nil
	}
	val, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.New("limit must be an integer")
	}
	if val < min || val > max {
		return 0, errors.New("limit must be between " + strconv.Itoa(min) + " and " + strconv.Itoa(max))
	}
	return val, nil
}

// userView is a User without its password hash.
type userView struct {
	domain.User
	PasswordHash string `json:"passwordHash,omitempty"`
}

func viewUser(u domain.User) userView { return userView{User: u} }

func viewUsers(us []domain.User) []userView {
	out := make([]userView, 0, len(us))
	for _, u := range us {
		out = append(out, viewUser(u))
	}
	return out
}
