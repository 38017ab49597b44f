package httpapi

import (
	"net/http"
	"strings"
	"time"

	"optigov.org/internal/audit"
	"optigov.org/internal/auth"
	"optigov.org/internal/domain"
)

type registerRequest struct {
	Username string      `json:"username"`
	Email    string      `json:"email"`
	Password string      `json:"password"`
	Role     domain.Role `json:"role"`
	Phone    string      `json:"phone"`

	FirstName  string `json:"firstName"`
	LastName   string `json:"lastName"`
	NationalID string `json:"nationalId"`

	OrganizationName   string `json:"organizationName"`
	OrganizationType   string `json:"organizationType"`
	RegistrationNumber string `json:"registrationNumber"`
	ContactPerson      string `json:"contactPerson"`
	Address            string `json:"address"`
	Website            string `json:"website"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      userView  `json:"user"`
}

const minPasswordLen = 6

func (a *API) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	switch req.Role {
	case domain.RoleCitizen, domain.RoleCompany:
	default:
		writeError(w, r, http.StatusBadRequest, "role must be citizen or company")
		return
	}
	if len(req.Password) < minPasswordLen {
		writeError(w, r, http.StatusBadRequest, "password must be at least 6 characters")
		return
	}
	if !strings.Contains(req.Email, "@") {
		writeError(w, r, http.StatusBadRequest, "email is invalid")
		return
	}
	if req.Role == domain.RoleCompany && strings.TrimSpace(req.OrganizationName) == "" {
		writeError(w, r, http.StatusBadRequest, "organizationName is required")
		return
	}

	user, err := a.store.CreateUser(r.Context(), domain.User{
		Username:           req.Username,
		Email:              req.Email,
		Role:               req.Role,
		Phone:              strings.TrimSpace(req.Phone),
		FirstName:          strings.TrimSpace(req.FirstName),
		LastName:           strings.TrimSpace(req.LastName),
		NationalID:         strings.TrimSpace(req.NationalID),
		OrganizationName:   strings.TrimSpace(req.OrganizationName),
		OrganizationType:   strings.TrimSpace(req.OrganizationType),
		RegistrationNumber: strings.TrimSpace(req.RegistrationNumber),
		ContactPerson:      strings.TrimSpace(req.ContactPerson),
		Address:            strings.TrimSpace(req.Address),
		Website:            strings.TrimSpace(req.Website),
	}, req.Password)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "auth.register", map[string]any{
		"user_id": user.ID,
		"role":    user.Role,
	})
	a.writeSession(w, r, http.StatusCreated, user)
}

func (a *API) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		writeError(w, r, http.StatusBadRequest, "email and password are required")
		return
	}
	user, err := a.store.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		_ = audit.LogEvent(r.Context(), "auth.login.failed", map[string]any{"email": strings.ToLower(strings.TrimSpace(req.Email))})
		writeStoreError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "auth.login", map[string]any{
		"user_id": user.ID,
		"role":    user.Role,
	})
	a.writeSession(w, r, http.StatusOK, user)
}

// refresh extends an active session and counts as activity.
func (a *API) refresh(w http.ResponseWriter, r *http.Request) {
	p := principal(r)
	user, err := a.store.GetUserByID(r.Context(), p.UserID)
	if err != nil || !user.IsActive {
		writeError(w, r, http.StatusUnauthorized, "session is no longer valid")
		return
	}
	if err := a.store.UpdateUserActivity(r.Context(), user.ID); err != nil {
		writeStoreError(w, r, err)
		return
	}
	a.writeSession(w, r, http.StatusOK, user)
}

func (a *API) me(w http.ResponseWriter, r *http.Request) {
	p := principal(r)
	user, err := a.store.GetUserByID(r.Context(), p.UserID)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	unread, err := a.store.UnreadNotificationCount(r.Context(), p.UserID)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"user":                viewUser(user),
		"unreadNotifications": unread,
	})
}

func (a *API) writeSession(w http.ResponseWriter, r *http.Request, code int, user domain.User) {
	token, exp, err := a.tokens.Issue(user)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "token generation failed")
		return
	}
	ctx := auth.ContextWithPrincipal(r.Context(), auth.Principal{UserID: user.ID, Username: user.Username, Role: user.Role})
	_ = audit.LogEvent(ctx, "auth.token.issued", map[string]any{"expires_at": exp.Format(time.RFC3339)})
	writeJSON(w, code, sessionResponse{Token: token, ExpiresAt: exp, User: viewUser(user)})
}
