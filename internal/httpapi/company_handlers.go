package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"optigov.org/internal/audit"
	"optigov.org/internal/domain"
)

type respondBody struct {
	Status  domain.RequestStatus `json:"status"`
	Message string               `json:"message"`
}

type complianceBody struct {
	Value bool `json:"value"`
}

type complianceView struct {
	Rules       []string  `json:"rules"`
	Items       []bool    `json:"items"`
	Completed   int       `json:"completed"`
	Score       int       `json:"score"`
	LastUpdated time.Time `json:"lastUpdated"`
}

func (a *API) listCompanyRequests(w http.ResponseWriter, r *http.Request) {
	reqs, err := a.store.GetRequestsByCompany(r.Context(), principal(r).UserID)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	if raw := r.URL.Query().Get("status"); raw != "" {
		status := domain.RequestStatus(raw)
		if !status.Valid() {
			writeError(w, r, http.StatusBadRequest, "unknown status")
			return
		}
		kept := reqs[:0]
		for _, req := range reqs {
			if req.Status == status {
				kept = append(kept, req)
			}
		}
		reqs = kept
	}
	writeJSON(w, http.StatusOK, map[string]any{"requests": reqs})
}

func (a *API) respondToRequest(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var body respondBody
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	existing, err := a.store.GetRequest(r.Context(), id)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	if existing.CompanyID != principal(r).UserID {
		writeStoreError(w, r, domain.ErrNotFound)
		return
	}
	req, err := a.store.UpdateRequestStatus(r.Context(), id, body.Status, body.Message)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "request.respond", map[string]any{
		"request_id": req.ID,
		"status":     req.Status,
	})
	writeJSON(w, http.StatusOK, req)
}

func (a *API) getCompliance(w http.ResponseWriter, r *http.Request) {
	item, err := a.store.GetComplianceItem(r.Context(), principal(r).UserID)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a.viewCompliance(item))
}

func (a *API) updateCompliance(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "index must be an integer")
		return
	}
	var body complianceBody
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	item, err := a.store.UpdateComplianceItem(r.Context(), principal(r).UserID, index, body.Value)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a.viewCompliance(item))
}

func (a *API) viewCompliance(item domain.ComplianceItem) complianceView {
	return complianceView{
		Rules:       a.store.ComplianceRules(),
		Items:       item.Items,
		Completed:   item.Completed(),
		Score:       item.Score(),
		LastUpdated: item.LastUpdated,
	}
}

func (a *API) complianceRules(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"rules": a.store.ComplianceRules()})
}

// companyView is the public directory entry for a company.
type companyView struct {
	ID               string `json:"id"`
	OrganizationName string `json:"organizationName"`
	OrganizationType string `json:"organizationType,omitempty"`
	Address          string `json:"address,omitempty"`
	Website          string `json:"website,omitempty"`
	Region           string `json:"region"`
	ComplianceScore  int    `json:"complianceScore"`
}

func (a *API) listCompanies(w http.ResponseWriter, r *http.Request) {
	companies, err := a.store.GetCompanies(r.Context())
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	out := make([]companyView, 0, len(companies))
	for _, c := range companies {
		score, err := a.store.GetComplianceScore(r.Context(), c.ID)
		if err != nil && !isNotFound(err) {
			writeStoreError(w, r, err)
			return
		}
		out = append(out, companyView{
			ID:               c.ID,
			OrganizationName: c.DisplayName(),
			OrganizationType: c.OrganizationType,
			Address:          c.Address,
			Website:          c.Website,
			Region:           domain.RegionFor(c.Address),
			ComplianceScore:  score,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"companies": out})
}
