package services

import (
	"math"
	"strings"
	"unicode"

	"github.com/spf13/cast"

	"leadcrm/internal/domain"
)

// NormalizeRow maps one raw row (spreadsheet cells or a decoded JSON body)
// onto a canonical lead. It never fails: unusable values degrade to empty
// or absent and are rejected later, if at all.
func NormalizeRow(raw map[string]any) domain.Lead {
	text := func(field string) string {
		return cast.ToString(raw[field])
	}

	return domain.Lead{
		Name:          strings.ToUpper(strings.TrimSpace(text(domain.FieldName))),
		MobileNo:      digitsOnly(text(domain.FieldMobileNo)),
		Email:         strings.ToLower(strings.TrimSpace(text(domain.FieldEmail))),
		IecChaNo:      text(domain.FieldIecChaNo),
		LandlineNo:    text(domain.FieldLandlineNo),
		Website:       text(domain.FieldWebsite),
		Address:       text(domain.FieldAddress),
		City:          text(domain.FieldCity),
		State:         text(domain.FieldState),
		PinCode:       text(domain.FieldPinCode),
		ContactPerson: text(domain.FieldContactPerson),
		Designation:   text(domain.FieldDesignation),
		RCMCPanel:     text(domain.FieldRCMCPanel),
		RCMCType:      text(domain.FieldRCMCType),
		Industry:      text(domain.FieldIndustry),
		IndustryBrief: text(domain.FieldIndustryBrief),
		Description:   text(domain.FieldDescription),
		Notes:         text(domain.FieldNotes),

		Employees:       employees(raw[domain.FieldEmployees]),
		Turnover:        enumValue(raw[domain.FieldTurnover]),
		StartupCategory: enumValue(raw[domain.FieldStartupCategory]),
		AEOStatus:       enumValue(raw[domain.FieldAEOStatus]),
		LeadType:        enumValue(raw[domain.FieldLeadType]),
		PriorityRating:  enumValue(raw[domain.FieldPriorityRating]),
		LeadSource:      enumValue(raw[domain.FieldLeadSource]),
		LeadStatus:      enumValue(raw[domain.FieldLeadStatus]),
	}
}

// LeadRecord is the inverse of NormalizeRow: the lead's fields keyed by the
// canonical field names, absent values omitted
func LeadRecord(lead *domain.Lead) map[string]any {
	record := map[string]any{
		domain.FieldName:          lead.Name,
		domain.FieldIecChaNo:      lead.IecChaNo,
		domain.FieldLandlineNo:    lead.LandlineNo,
		domain.FieldMobileNo:      lead.MobileNo,
		domain.FieldEmail:         lead.Email,
		domain.FieldWebsite:       lead.Website,
		domain.FieldAddress:       lead.Address,
		domain.FieldCity:          lead.City,
		domain.FieldState:         lead.State,
		domain.FieldPinCode:       lead.PinCode,
		domain.FieldContactPerson: lead.ContactPerson,
		domain.FieldDesignation:   lead.Designation,
		domain.FieldRCMCPanel:     lead.RCMCPanel,
		domain.FieldRCMCType:      lead.RCMCType,
		domain.FieldIndustry:      lead.Industry,
		domain.FieldIndustryBrief: lead.IndustryBrief,
		domain.FieldDescription:   lead.Description,
		domain.FieldNotes:         lead.Notes,
	}
	if lead.Employees != nil {
		record[domain.FieldEmployees] = *lead.Employees
	}
	for field, value := range enumPointers(lead) {
		if *value != nil {
			record[field] = **value
		}
	}
	return record
}

// enumPointers exposes the enum-typed fields of lead by field name
func enumPointers(lead *domain.Lead) map[string]**string {
	return map[string]**string{
		domain.FieldTurnover:        &lead.Turnover,
		domain.FieldStartupCategory: &lead.StartupCategory,
		domain.FieldAEOStatus:       &lead.AEOStatus,
		domain.FieldLeadType:        &lead.LeadType,
		domain.FieldPriorityRating:  &lead.PriorityRating,
		domain.FieldLeadSource:      &lead.LeadSource,
		domain.FieldLeadStatus:      &lead.LeadStatus,
	}
}

// invalidEnums returns one message per enum field whose value lies outside
// its vocabulary, in field order
func invalidEnums(lead *domain.Lead) []string {
	values := enumPointers(lead)
	var problems []string
	for _, field := range domain.EnumFieldOrder {
		value := *values[field]
		if value != nil && !domain.IsValidEnum(field, *value) {
			problems = append(problems, InvalidEnumReason(field, *value))
		}
	}
	return problems
}

// InvalidEnumReason formats the rejection message for an out-of-vocabulary value
func InvalidEnumReason(field, value string) string {
	return "Invalid " + field + " \"" + value + "\""
}

func digitsOnly(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, s)
}

func employees(v any) *int {
	if v == nil {
		return nil
	}
	if s, ok := v.(string); ok {
		s = strings.TrimFunc(s, unicode.IsSpace)
		if s == "" {
			return nil
		}
		v = s
	}
	f, err := cast.ToFloat64E(v)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	n := int(f)
	return &n
}

func enumValue(v any) *string {
	if v == nil {
		return nil
	}
	s := cast.ToString(v)
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}
