package services

import (
	"context"
	"encoding/json"
	"log"
	"sort"
	"time"

	"leadcrm/internal/domain"
)

const trailingDays = 30

// StatusCount is the number of leads holding one status. The status is
// keyed _id for the dashboard client.
type StatusCount struct {
	Status string `json:"_id"`
	Count  int64  `json:"count"`
}

// DailyCount is the number of leads created on one calendar date
type DailyCount struct {
	Date  string `json:"_id"`
	Count int64  `json:"count"`
}

// DashboardStats is the dashboard aggregate
type DashboardStats struct {
	Today      int64         `json:"today"`
	Week       int64         `json:"week"`
	Month      int64         `json:"month"`
	Year       int64         `json:"year"`
	Total      int64         `json:"total"`
	ByStatus   []StatusCount `json:"byStatus"`
	Last30Days []DailyCount  `json:"last30days"`
}

// SummaryRow is one category row of the category × status summary
type SummaryRow struct {
	Category string
	Counts   map[string]int64
	Total    int64
}

// MarshalJSON flattens the row: the category under _id, one key per status
// plus Total
func (r SummaryRow) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(r.Counts)+2)
	out["_id"] = r.Category
	for status, n := range r.Counts {
		out[status] = n
	}
	out["Total"] = r.Total
	return json.Marshal(out)
}

// LeadSummary holds the industry and lead-type summary tables
type LeadSummary struct {
	IndustrySummary []SummaryRow `json:"industrySummary"`
	LeadTypeSummary []SummaryRow `json:"leadTypeSummary"`
}

// CategoryStatusCount is one grouped (category, status) count
type CategoryStatusCount struct {
	Category *string
	Status   *string
	Count    int64
}

// PeriodStarts returns the start of the day, week (Sunday), month and year
// containing now, in now's location
func PeriodStarts(now time.Time) (day, week, month, year time.Time) {
	loc := now.Location()
	day = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	week = day.AddDate(0, 0, -int(now.Weekday()))
	month = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, loc)
	year = time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, loc)
	return day, week, month, year
}

// BucketByDate counts timestamps per calendar date in loc, ascending. Dates
// without any timestamp are absent.
func BucketByDate(times []time.Time, loc *time.Location) []DailyCount {
	counts := make(map[string]int64)
	for _, t := range times {
		counts[t.In(loc).Format("2006-01-02")]++
	}
	out := make([]DailyCount, 0, len(counts))
	for date, n := range counts {
		out = append(out, DailyCount{Date: date, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

// MergeSummary anchors grouped counts to the master list: every master
// category gets a row, zero-filled when absent from groups. Categories
// outside the master list are dropped.
func MergeSummary(master []string, groups []CategoryStatusCount) []SummaryRow {
	byCategory := make(map[string]*SummaryRow, len(master))
	rows := make([]SummaryRow, len(master))
	for i, category := range master {
		rows[i] = SummaryRow{Category: category, Counts: zeroStatusCounts()}
		byCategory[category] = &rows[i]
	}

	for _, g := range groups {
		if g.Category == nil {
			continue
		}
		row, ok := byCategory[*g.Category]
		if !ok {
			continue
		}
		status := domain.DefaultLeadStatus
		if g.Status != nil {
			status = *g.Status
		}
		if _, known := row.Counts[status]; known {
			row.Counts[status] += g.Count
		}
		row.Total += g.Count
	}
	return rows
}

func zeroStatusCounts() map[string]int64 {
	counts := make(map[string]int64, len(domain.LeadStatuses))
	for _, s := range domain.LeadStatuses {
		counts[s] = 0
	}
	return counts
}

// DashboardStats computes creation counts per period, the status breakdown
// and the trailing 30-day series
func (s *LeadService) DashboardStats(ctx context.Context) (*DashboardStats, error) {
	now := s.now().In(s.loc)
	day, week, month, year := PeriodStarts(now)

	stats := &DashboardStats{}
	periods := []struct {
		since time.Time
		dst   *int64
	}{
		{day, &stats.Today},
		{week, &stats.Week},
		{month, &stats.Month},
		{year, &stats.Year},
	}
	for _, p := range periods {
		if err := s.leads(ctx).Where("created_at >= ?", p.since.UTC()).Count(p.dst).Error; err != nil {
			return nil, storeError("DashboardStats", err)
		}
	}
	if err := s.leads(ctx).Count(&stats.Total).Error; err != nil {
		return nil, storeError("DashboardStats", err)
	}

	var groups []CategoryStatusCount
	if err := s.leads(ctx).
		Select("lead_status AS status, COUNT(*) AS count").
		Group("lead_status").
		Scan(&groups).Error; err != nil {
		return nil, storeError("DashboardStats", err)
	}
	stats.ByStatus = statusBreakdown(groups)

	var created []time.Time
	since := now.Add(-trailingDays * 24 * time.Hour).UTC()
	if err := s.leads(ctx).Where("created_at >= ?", since).Pluck("created_at", &created).Error; err != nil {
		return nil, storeError("DashboardStats", err)
	}
	stats.Last30Days = BucketByDate(created, s.loc)

	log.Printf("[LEAD] DashboardStats successful: total=%d, today=%d", stats.Total, stats.Today)
	return stats, nil
}

// statusBreakdown orders status counts by the status vocabulary, unknown
// statuses last
func statusBreakdown(groups []CategoryStatusCount) []StatusCount {
	rank := make(map[string]int, len(domain.LeadStatuses))
	for i, status := range domain.LeadStatuses {
		rank[status] = i
	}

	merged := make(map[string]int64)
	for _, g := range groups {
		status := domain.DefaultLeadStatus
		if g.Status != nil {
			status = *g.Status
		}
		merged[status] += g.Count
	}

	out := make([]StatusCount, 0, len(merged))
	for status, n := range merged {
		out = append(out, StatusCount{Status: status, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		ri, iok := rank[out[i].Status]
		rj, jok := rank[out[j].Status]
		switch {
		case iok && jok:
			return ri < rj
		case iok != jok:
			return iok
		default:
			return out[i].Status < out[j].Status
		}
	})
	return out
}

// Summary builds the industry × status and lead-type × status tables
func (s *LeadService) Summary(ctx context.Context) (*LeadSummary, error) {
	var byIndustry, byLeadType []CategoryStatusCount

	if err := s.leads(ctx).
		Select("industry AS category, lead_status AS status, COUNT(*) AS count").
		Group("industry").Group("lead_status").
		Scan(&byIndustry).Error; err != nil {
		return nil, storeError("Summary", err)
	}
	if err := s.leads(ctx).
		Select("lead_type AS category, lead_status AS status, COUNT(*) AS count").
		Group("lead_type").Group("lead_status").
		Scan(&byLeadType).Error; err != nil {
		return nil, storeError("Summary", err)
	}

	return &LeadSummary{
		IndustrySummary: MergeSummary(domain.Industries, byIndustry),
		LeadTypeSummary: MergeSummary(domain.LeadTypes, byLeadType),
	}, nil
}
