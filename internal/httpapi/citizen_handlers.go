package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"optigov.org/internal/audit"
	"optigov.org/internal/domain"
	"optigov.org/internal/store"
)

type createRequestBody struct {
	CompanyID   string             `json:"companyId"`
	Type        domain.RequestType `json:"type"`
	Priority    domain.Priority    `json:"priority"`
	Description string             `json:"description"`
}

type updateRequestBody struct {
	Type        *domain.RequestType `json:"type"`
	Priority    *domain.Priority    `json:"priority"`
	Description *string             `json:"description"`
}

func (a *API) createRequest(w http.ResponseWriter, r *http.Request) {
	var body createRequestBody
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	p := principal(r)
	company, err := a.store.GetUserByID(r.Context(), body.CompanyID)
	if err != nil || company.Role != domain.RoleCompany || !company.IsActive {
		writeError(w, r, http.StatusBadRequest, "companyId does not name an active company")
		return
	}

	req, err := a.store.CreateRequest(r.Context(), domain.DataRequest{
		CitizenID:   p.UserID,
		CompanyID:   company.ID,
		Type:        body.Type,
		Priority:    body.Priority,
		Description: body.Description,
	})
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	// Submission confirmation shown on the citizen's alert panel.
	if _, err := a.store.CreateAlert(r.Context(), domain.Alert{
		CitizenID: p.UserID,
		Message:   "Your " + string(req.Type) + " request to " + req.CompanyName + " was submitted",
		Type:      domain.AlertInfo,
	}); err != nil {
		writeStoreError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "request.create", map[string]any{
		"request_id": req.ID,
		"company_id": req.CompanyID,
		"type":       req.Type,
	})
	writeJSON(w, http.StatusCreated, req)
}

func (a *API) listCitizenRequests(w http.ResponseWriter, r *http.Request) {
	reqs, err := a.store.GetRequestsByCitizen(r.Context(), principal(r).UserID)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"requests": reqs})
}

// ownRequest loads the request and hides it from everyone but its citizen.
func (a *API) ownRequest(r *http.Request, id string) (domain.DataRequest, error) {
	req, err := a.store.GetRequest(r.Context(), id)
	if err != nil {
		return domain.DataRequest{}, err
	}
	if req.CitizenID != principal(r).UserID {
		return domain.DataRequest{}, domain.ErrNotFound
	}
	return req, nil
}

func (a *API) updateRequest(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var body updateRequestBody
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if _, err := a.ownRequest(r, id); err != nil {
		writeStoreError(w, r, err)
		return
	}
	req, err := a.store.UpdateRequest(r.Context(), id, store.RequestPatch{
		Type:        body.Type,
		Priority:    body.Priority,
		Description: body.Description,
	})
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

func (a *API) deleteRequest(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := a.ownRequest(r, id); err != nil {
		writeStoreError(w, r, err)
		return
	}
	if err := a.store.DeleteRequest(r.Context(), id); err != nil {
		writeStoreError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "request.cancel", map[string]any{"request_id": id})
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) listAlerts(w http.ResponseWriter, r *http.Request) {
	alerts, err := a.store.GetAlertsByCitizen(r.Context(), principal(r).UserID)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"alerts": alerts})
}

func (a *API) resolveAlert(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	alerts, err := a.store.GetAlertsByCitizen(r.Context(), principal(r).UserID)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	owned := false
	for _, al := range alerts {
		if al.ID == id {
			owned = true
			break
		}
	}
	if !owned {
		writeStoreError(w, r, domain.ErrNotFound)
		return
	}
	alert, err := a.store.ResolveAlert(r.Context(), id)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, alert)
}
