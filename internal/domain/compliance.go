package domain

import (
	"math"
	"time"
)

// ComplianceRules is the fixed NDPR checklist every company is scored against.
var ComplianceRules = []string{
	"Data Protection Officer Appointed",
	"Privacy Policy Published",
	"Data Breach Response Plan",
	"Staff Training Completed",
	"Data Retention Policy",
	"Consent Management System",
	"Data Subject Rights Process",
	"Regular Security Audits",
	"Third-party Vendor Assessment",
	"Incident Response Procedures",
}

// NewComplianceItem returns an all-false checklist for companyID.
func NewComplianceItem(companyID string, now time.Time) ComplianceItem {
	return ComplianceItem{
		CompanyID:   companyID,
		Items:       make([]bool, len(ComplianceRules)),
		LastUpdated: now,
	}
}

// Score returns round(100*k/N) where k is the number of satisfied items.
func (c ComplianceItem) Score() int {
	return Percent(c.Completed(), len(c.Items))
}

// Completed counts the satisfied items.
func (c ComplianceItem) Completed() int {
	k := 0
	for _, ok := range c.Items {
		if ok {
			k++
		}
	}
	return k
}

// Percent returns round(100*part/total), or 0 when total is zero.
func Percent(part, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(100 * float64(part) / float64(total)))
}
