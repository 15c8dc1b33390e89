package services

import (
	"leadcrm/internal/domain"
)

// Rejection reasons reported for skipped import rows
const (
	ReasonNameMissing  = "Name is missing"
	ReasonNameExists   = "Name already exists"
	ReasonEmailExists  = "Email already exists"
	ReasonMobileExists = "Mobile already exists"
)

// ImportRow is a normalized row together with its sheet row number
type ImportRow struct {
	Number int
	Lead   domain.Lead
}

// RejectedRow is an import row that failed one or more checks
type RejectedRow struct {
	Row     ImportRow
	Reasons []string
}

// KeySet holds the name, email and mobile values already taken
type KeySet struct {
	Names   map[string]struct{}
	Emails  map[string]struct{}
	Mobiles map[string]struct{}
}

// NewKeySet returns an empty KeySet
func NewKeySet() *KeySet {
	return &KeySet{
		Names:   make(map[string]struct{}),
		Emails:  make(map[string]struct{}),
		Mobiles: make(map[string]struct{}),
	}
}

// Add records the lead's non-empty keys
func (k *KeySet) Add(lead *domain.Lead) {
	addKey(k.Names, lead.Name)
	addKey(k.Emails, lead.Email)
	addKey(k.Mobiles, lead.MobileNo)
}

func addKey(set map[string]struct{}, key string) {
	if key != "" {
		set[key] = struct{}{}
	}
}

func hasKey(set map[string]struct{}, key string) bool {
	if key == "" {
		return false
	}
	_, ok := set[key]
	return ok
}

// ResolveDuplicates partitions rows into accepted and rejected, in input
// order. keys is the running set: it starts as the store snapshot and grows
// with every accepted row, so a later row that repeats an earlier row of the
// same batch is rejected too. Rejected rows never enter keys.
func ResolveDuplicates(rows []ImportRow, keys *KeySet) ([]ImportRow, []RejectedRow) {
	accepted := make([]ImportRow, 0, len(rows))
	var rejected []RejectedRow

	for _, row := range rows {
		lead := &row.Lead
		var reasons []string

		if lead.Name == "" {
			reasons = append(reasons, ReasonNameMissing)
		} else if hasKey(keys.Names, lead.Name) {
			reasons = append(reasons, ReasonNameExists)
		}
		if hasKey(keys.Emails, lead.Email) {
			reasons = append(reasons, ReasonEmailExists)
		}
		if hasKey(keys.Mobiles, lead.MobileNo) {
			reasons = append(reasons, ReasonMobileExists)
		}
		reasons = append(reasons, invalidEnums(lead)...)

		if len(reasons) > 0 {
			rejected = append(rejected, RejectedRow{Row: row, Reasons: reasons})
			continue
		}

		keys.Add(lead)
		accepted = append(accepted, row)
	}

	return accepted, rejected
}
