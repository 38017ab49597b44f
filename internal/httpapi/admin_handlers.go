package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"optigov.org/internal/audit"
	"optigov.org/internal/domain"
)

type activeBody struct {
	Active *bool `json:"active"`
}

type noteBody struct {
	Content string `json:"content"`
}

func (a *API) adminListUsers(w http.ResponseWriter, r *http.Request) {
	var (
		users []domain.User
		err   error
	)
	if raw := r.URL.Query().Get("role"); raw != "" {
		role := domain.Role(raw)
		if !role.Valid() {
			writeError(w, r, http.StatusBadRequest, "unknown role")
			return
		}
		users, err = a.store.GetUsersByRole(r.Context(), role)
	} else {
		users, err = a.store.GetAllUsers(r.Context())
	}
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": viewUsers(users)})
}

func (a *API) adminSetActive(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var body activeBody
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if body.Active == nil {
		writeError(w, r, http.StatusBadRequest, "active is required")
		return
	}
	if id == principal(r).UserID && !*body.Active {
		writeError(w, r, http.StatusBadRequest, "admins cannot deactivate themselves")
		return
	}
	user, err := a.store.SetUserActive(r.Context(), id, *body.Active)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "admin.user.active", map[string]any{
		"target_user_id": id,
		"active":         user.IsActive,
	})
	writeJSON(w, http.StatusOK, viewUser(user))
}

func (a *API) adminListNotes(w http.ResponseWriter, r *http.Request) {
	notes, err := a.store.GetAdminNotes(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"notes": notes})
}

func (a *API) adminCreateNote(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var body noteBody
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if _, err := a.store.GetUserByID(r.Context(), id); err != nil {
		writeStoreError(w, r, err)
		return
	}
	note, err := a.store.CreateAdminNote(r.Context(), domain.AdminNote{
		AdminID:      principal(r).UserID,
		TargetUserID: id,
		Content:      body.Content,
	})
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, note)
}

func (a *API) adminAnalytics(w http.ResponseWriter, r *http.Request) {
	snapshot, err := a.store.GetAnalytics(r.Context(), a.now())
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}

func (a *API) adminListRequests(w http.ResponseWriter, r *http.Request) {
	reqs, err := a.store.GetAllRequests(r.Context())
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"requests": reqs})
}

func (a *API) adminListActivity(w http.ResponseWriter, r *http.Request) {
	limit, err := parsePositiveInt(r.URL.Query().Get("limit"), 100, 1, 1000)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	logs, err := a.store.GetAllActivityLogs(r.Context(), limit)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"activity": logs})
}
