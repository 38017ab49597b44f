package store

import (
	"context"
	"math"
	"time"

	"optigov.org/internal/domain"
)

// MonthCount is one bucket of the request histogram.
type MonthCount struct {
	Month string `json:"month"` // YYYY-MM
	Count int    `json:"count"`
}

// Analytics is the aggregate snapshot shown on the admin dashboard and in
// exported reports.
type Analytics struct {
	TotalUsers     int `json:"totalUsers"`
	TotalCitizens  int `json:"totalCitizens"`
	TotalCompanies int `json:"totalCompanies"`
	TotalAdmins    int `json:"totalAdmins"`
	ActiveUsers    int `json:"activeUsers"`

	TotalRequests     int `json:"totalRequests"`
	CompletedRequests int `json:"completedRequests"`
	PendingRequests   int `json:"pendingRequests"`
	RejectedRequests  int `json:"rejectedRequests"`
	CompletionRate    int `json:"completionRate"`
	AccessRequests    int `json:"accessRequests"`
	DeleteRequests    int `json:"deleteRequests"`

	RequestsByRegion       map[string]int `json:"requestsByRegion"`
	CompaniesByRegion      map[string]int `json:"companiesByRegion"`
	RequestsOverTime       []MonthCount   `json:"requestsOverTime"`
	AverageComplianceScore int            `json:"averageComplianceScore"`
}

const trailingMonths = 12

// GetAnalytics recomputes the snapshot from the stored users, requests and
// checklists. now anchors the trailing month histogram.
func (s *Store) GetAnalytics(ctx context.Context, now time.Time) (Analytics, error) {
	users, err := get[[]domain.User](ctx, s, domain.PartitionUsers)
	if err != nil {
		return Analytics{}, err
	}
	requests, err := get[[]domain.DataRequest](ctx, s, domain.PartitionRequests)
	if err != nil {
		return Analytics{}, err
	}
	checklists, err := get[[]domain.ComplianceItem](ctx, s, domain.PartitionCompliance)
	if err != nil {
		return Analytics{}, err
	}
	return computeAnalytics(users, requests, checklists, now), nil
}

func computeAnalytics(users []domain.User, requests []domain.DataRequest, checklists []domain.ComplianceItem, now time.Time) Analytics {
	a := Analytics{
		RequestsByRegion:  map[string]int{},
		CompaniesByRegion: map[string]int{},
	}

	companyRegion := make(map[string]string)
	for _, u := range users {
		a.TotalUsers++
		if u.IsActive {
			a.ActiveUsers++
		}
		switch u.Role {
		case domain.RoleCitizen:
			a.TotalCitizens++
		case domain.RoleCompany:
			a.TotalCompanies++
			region := domain.RegionFor(u.Address)
			companyRegion[u.ID] = region
			a.CompaniesByRegion[region]++
		case domain.RoleAdmin:
			a.TotalAdmins++
		}
	}

	months := trailingMonthKeys(now, trailingMonths)
	monthIdx := make(map[string]int, len(months))
	a.RequestsOverTime = make([]MonthCount, len(months))
	for i, m := range months {
		monthIdx[m] = i
		a.RequestsOverTime[i] = MonthCount{Month: m}
	}

	for _, r := range requests {
		a.TotalRequests++
		switch r.Status {
		case domain.StatusApproved:
			a.CompletedRequests++
		case domain.StatusPending:
			a.PendingRequests++
		case domain.StatusRejected:
			a.RejectedRequests++
		}
		switch r.Type {
		case domain.RequestAccess:
			a.AccessRequests++
		case domain.RequestDelete:
			a.DeleteRequests++
		}
		// Requests to a company that no longer exists have no region.
		if region, ok := companyRegion[r.CompanyID]; ok {
			a.RequestsByRegion[region]++
		}
		if i, ok := monthIdx[r.Date.UTC().Format("2006-01")]; ok {
			a.RequestsOverTime[i].Count++
		}
	}
	a.CompletionRate = domain.Percent(a.CompletedRequests, a.TotalRequests)

	if len(checklists) > 0 {
		sum := 0
		for _, c := range checklists {
			sum += fitRules(c).Score()
		}
		a.AverageComplianceScore = int(math.Round(float64(sum) / float64(len(checklists))))
	}
	return a
}

// trailingMonthKeys returns n "YYYY-MM" keys ending with now's month.
func trailingMonthKeys(now time.Time, n int) []string {
	now = now.UTC()
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	keys := make([]string, n)
	for i := 0; i < n; i++ {
		keys[i] = first.AddDate(0, i-(n-1), 0).Format("2006-01")
	}
	return keys
}
