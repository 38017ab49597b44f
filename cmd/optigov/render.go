package main

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"optigov.org/internal/domain"
	"optigov.org/internal/store"
)

var (
	brand   = lipgloss.Color("#008751") // Nigerian green
	muted   = lipgloss.Color("#8a8f98")
	warning = lipgloss.Color("#FFC107")
	danger  = lipgloss.Color("#e53935")

	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(brand)
	labelStyle  = lipgloss.NewStyle().Foreground(muted).Width(22)
	headerStyle = lipgloss.NewStyle().Bold(true).Underline(true)
	boxStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(brand).Padding(0, 1)
)

func statusStyle(s domain.RequestStatus) lipgloss.Style {
	switch s {
	case domain.StatusApproved:
		return lipgloss.NewStyle().Foreground(brand)
	case domain.StatusRejected:
		return lipgloss.NewStyle().Foreground(danger)
	}
	return lipgloss.NewStyle().Foreground(warning)
}

func metric(label string, value any) string {
	return labelStyle.Render(label) + fmt.Sprint(value)
}

// renderAnalytics prints the admin overview: totals, regions and the monthly
// request histogram.
func renderAnalytics(w io.Writer, a store.Analytics) {
	totals := strings.Join([]string{
		titleStyle.Render("Users"),
		metric("total", humanize.Comma(int64(a.TotalUsers))),
		metric("citizens", a.TotalCitizens),
		metric("companies", a.TotalCompanies),
		metric("admins", a.TotalAdmins),
		metric("active", a.ActiveUsers),
		"",
		titleStyle.Render("Requests"),
		metric("total", humanize.Comma(int64(a.TotalRequests))),
		metric("completed", a.CompletedRequests),
		metric("pending", a.PendingRequests),
		metric("rejected", a.RejectedRequests),
		metric("completion rate", fmt.Sprintf("%d%%", a.CompletionRate)),
		metric("access / delete", fmt.Sprintf("%d / %d", a.AccessRequests, a.DeleteRequests)),
		metric("avg compliance", fmt.Sprintf("%d%%", a.AverageComplianceScore)),
	}, "\n")

	regions := []string{titleStyle.Render("Requests by region")}
	for _, name := range sortedKeys(a.RequestsByRegion) {
		regions = append(regions, metric(name, a.RequestsByRegion[name]))
	}
	regions = append(regions, "", titleStyle.Render("Companies by region"))
	for _, name := range sortedKeys(a.CompaniesByRegion) {
		regions = append(regions, metric(name, a.CompaniesByRegion[name]))
	}

	peak := 0
	for _, m := range a.RequestsOverTime {
		peak = max(peak, m.Count)
	}
	months := []string{titleStyle.Render("Requests per month")}
	for _, m := range a.RequestsOverTime {
		bar := ""
		if peak > 0 {
			bar = strings.Repeat("█", (m.Count*24+peak-1)/peak)
		}
		months = append(months, fmt.Sprintf("%s %s %d", m.Month, lipgloss.NewStyle().Foreground(brand).Render(bar), m.Count))
	}

	fmt.Fprintln(w, lipgloss.JoinHorizontal(lipgloss.Top,
		boxStyle.Render(totals),
		boxStyle.Render(strings.Join(regions, "\n")),
	))
	fmt.Fprintln(w, boxStyle.Render(strings.Join(months, "\n")))
}

func renderUsers(w io.Writer, users []domain.User, now time.Time) {
	fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("%-30s %-8s %-32s %-7s %s", "ID", "ROLE", "NAME", "ACTIVE", "LAST SEEN")))
	for _, u := range users {
		active := "yes"
		if !u.IsActive {
			active = lipgloss.NewStyle().Foreground(danger).Render("no ")
		}
		fmt.Fprintf(w, "%-30s %-8s %-32s %-7s %s\n",
			u.ID, u.Role, truncate(u.DisplayName(), 32), active, humanize.RelTime(u.LastActivity, now, "ago", "from now"))
	}
	fmt.Fprintf(w, "%s users\n", humanize.Comma(int64(len(users))))
}

func renderRequests(w io.Writer, reqs []domain.DataRequest, now time.Time) {
	fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("%-26s %-7s %-9s %-20s %-20s %s", "ID", "TYPE", "STATUS", "CITIZEN", "COMPANY", "FILED")))
	for _, r := range reqs {
		status := statusStyle(r.Status).Render(fmt.Sprintf("%-9s", r.Status))
		fmt.Fprintf(w, "%-26s %-7s %s %-20s %-20s %s\n",
			r.ID, r.Type, status, truncate(r.CitizenName, 20), truncate(r.CompanyName, 20), humanize.RelTime(r.Date, now, "ago", "from now"))
	}
	fmt.Fprintf(w, "%s requests\n", humanize.Comma(int64(len(reqs))))
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if m[keys[i]] != m[keys[j]] {
			return m[keys[i]] > m[keys[j]]
		}
		return keys[i] < keys[j]
	})
	return keys
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
