package domain

import "strings"

// RegionOther buckets addresses that match no known city.
const RegionOther = "Other"

// Regions are the Nigerian cities recognised in company addresses, matched in
// order.
var Regions = []string{
	"Lagos",
	"Abuja",
	"Port Harcourt",
	"Kano",
	"Ibadan",
	"Benin City",
	"Kaduna",
	"Enugu",
	"Jos",
	"Ilorin",
	"Onitsha",
	"Owerri",
	"Calabar",
	"Abeokuta",
	"Warri",
	"Uyo",
}

// RegionFor returns the first recognised city contained in address, ignoring
// case, or RegionOther.
func RegionFor(address string) string {
	lower := strings.ToLower(address)
	if strings.TrimSpace(lower) == "" {
		return RegionOther
	}
	for _, city := range Regions {
		if strings.Contains(lower, strings.ToLower(city)) {
			return city
		}
	}
	return RegionOther
}
