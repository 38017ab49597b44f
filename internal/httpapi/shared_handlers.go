package httpapi

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"optigov.org/internal/domain"
)

type uploadBody struct {
	FileName string            `json:"fileName"`
	Type     domain.UploadType `json:"type"`
}

type messageBody struct {
	Message string `json:"message"`
}

func isNotFound(err error) bool { return errors.Is(err, domain.ErrNotFound) }

func (a *API) listNotifications(w http.ResponseWriter, r *http.Request) {
	uid := principal(r).UserID
	ns, err := a.store.GetNotificationsByUser(r.Context(), uid)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	unread := 0
	for _, n := range ns {
		if !n.Read {
			unread++
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"notifications": ns, "unread": unread})
}

func (a *API) markNotificationRead(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ns, err := a.store.GetNotificationsByUser(r.Context(), principal(r).UserID)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	owned := false
	for _, n := range ns {
		if n.ID == id {
			owned = true
			break
		}
	}
	if !owned {
		writeStoreError(w, r, domain.ErrNotFound)
		return
	}
	n, err := a.store.MarkNotificationRead(r.Context(), id)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, n)
}

func (a *API) markAllNotificationsRead(w http.ResponseWriter, r *http.Request) {
	n, err := a.store.MarkAllNotificationsRead(r.Context(), principal(r).UserID)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"updated": n})
}

// createUpload records metadata only; the file itself never reaches the server.
func (a *API) createUpload(w http.ResponseWriter, r *http.Request) {
	var body uploadBody
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	p := principal(r)
	switch {
	case body.Type == domain.UploadPrivacyPolicy && p.Role != domain.RoleCompany,
		body.Type == domain.UploadIDCard && p.Role != domain.RoleCitizen:
		writeError(w, r, http.StatusForbidden, "upload type not allowed for role")
		return
	}
	up, err := a.store.CreateUpload(r.Context(), domain.Upload{
		UserID:   p.UserID,
		FileName: body.FileName,
		Type:     body.Type,
	})
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, up)
}

func (a *API) listUploads(w http.ResponseWriter, r *http.Request) {
	ups, err := a.store.GetUploadsByUser(r.Context(), principal(r).UserID)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"uploads": ups})
}

// chatRequest returns the request when the caller is its citizen, its company
// or an admin.
func (a *API) chatRequest(r *http.Request) (domain.DataRequest, error) {
	req, err := a.store.GetRequest(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		return domain.DataRequest{}, err
	}
	p := principal(r)
	switch {
	case p.Role == domain.RoleAdmin,
		p.Role == domain.RoleCitizen && req.CitizenID == p.UserID,
		p.Role == domain.RoleCompany && req.CompanyID == p.UserID:
		return req, nil
	}
	return domain.DataRequest{}, domain.ErrNotFound
}

func (a *API) listMessages(w http.ResponseWriter, r *http.Request) {
	req, err := a.chatRequest(r)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	msgs, err := a.store.GetChatMessages(r.Context(), req.ID)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"messages": msgs})
}

func (a *API) postMessage(w http.ResponseWriter, r *http.Request) {
	var body messageBody
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	req, err := a.chatRequest(r)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	p := principal(r)
	msg, err := a.store.AddChatMessage(r.Context(), req.ID, domain.ChatMessage{
		Sender:     p.Username,
		SenderRole: p.Role,
		Message:    body.Message,
	})
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, msg)
}

func (a *API) listActivity(w http.ResponseWriter, r *http.Request) {
	logs, err := a.store.GetActivityLogs(r.Context(), principal(r).UserID)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"activity": logs})
}
