package services

import (
	"math"
	"strings"

	"gorm.io/gorm"
)

const (
	defaultPage  = 1
	defaultLimit = 10
	maxLimit     = 500
)

// ListLeadsPayload carries the list and export query parameters. Zero values
// mean "not supplied".
type ListLeadsPayload struct {
	Page       int
	Limit      int
	Search     string
	LeadStatus string
	Industry   string
	LeadType   string
	LeadSource string
	AEOStatus  string
	RCMCPanel  string
}

// LeadQuery is a store predicate plus its pagination window
type LeadQuery struct {
	Filter ListLeadsPayload
	Page   int
	Skip   int
	Limit  int
}

// BuildLeadQuery coerces paging parameters to positive integers and caps the
// limit at capLimit (or maxLimit when capLimit <= 0). page is capped so the
// offset cannot overflow; a capped page is past the end and comes back empty.
func BuildLeadQuery(p ListLeadsPayload, defLimit, capLimit int) LeadQuery {
	if defLimit <= 0 {
		defLimit = defaultLimit
	}
	if capLimit <= 0 {
		capLimit = maxLimit
	}

	page := p.Page
	if page < 1 {
		page = defaultPage
	}
	limit := p.Limit
	if limit < 1 {
		limit = defLimit
	}
	if limit > capLimit {
		limit = capLimit
	}
	if lastPage := math.MaxInt / limit; page > lastPage {
		page = lastPage
	}

	p.Search = strings.TrimSpace(p.Search)
	return LeadQuery{
		Filter: p,
		Page:   page,
		Skip:   (page - 1) * limit,
		Limit:  limit,
	}
}

// Scope applies the filter predicate. Soft-deleted leads are always excluded.
func (q LeadQuery) Scope(db *gorm.DB) *gorm.DB {
	db = notDeleted(db)

	f := q.Filter
	if f.Search != "" {
		pattern := "%" + escapeLike(strings.ToLower(f.Search)) + "%"
		db = db.Where(
			db.Session(&gorm.Session{NewDB: true}).
				Where(`LOWER(name) LIKE ? ESCAPE '\'`, pattern).
				Or(`LOWER(email) LIKE ? ESCAPE '\'`, pattern).
				Or(`LOWER(mobile_no) LIKE ? ESCAPE '\'`, pattern).
				Or(`LOWER(id_no) LIKE ? ESCAPE '\'`, pattern),
		)
	}

	equals := []struct {
		column string
		value  string
	}{
		{"lead_status", f.LeadStatus},
		{"industry", f.Industry},
		{"lead_type", f.LeadType},
		{"lead_source", f.LeadSource},
		{"aeo_status", f.AEOStatus},
		{"rcmc_panel", f.RCMCPanel},
	}
	for _, eq := range equals {
		if eq.value != "" {
			db = db.Where(eq.column+" = ?", eq.value)
		}
	}
	return db
}

// Paginate applies the pagination window, newest first
func (q LeadQuery) Paginate(db *gorm.DB) *gorm.DB {
	return db.Order("created_at DESC").Order("id DESC").Offset(q.Skip).Limit(q.Limit)
}

// notDeleted excludes soft-deleted leads
func notDeleted(db *gorm.DB) *gorm.DB {
	return db.Where("is_deleted = ?", false)
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
