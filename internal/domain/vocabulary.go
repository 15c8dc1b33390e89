package domain

// Lead status vocabulary
const (
	StatusNotContacted   = "Not Contacted"
	StatusEmailSent      = "Email Sent"
	StatusContactOnPhone = "Contact on phone"
	StatusInContact      = "In Contact"
	StatusInterested     = "Interested"
	StatusInProcess      = "In Process"
	StatusLoginCreated   = "Login Created"
	StatusLoginRejected  = "Login Rejected"
	StatusNotInterested  = "Not Interested"
	StatusNotContactable = "Not Contactable"
	StatusDoNotTouch     = "Do Not Touch"
	StatusSpam           = "Spam / Fake Lead"
)

// DefaultLeadStatus is assigned to leads created without a status
const DefaultLeadStatus = StatusNotContacted

// LeadStatuses lists every status in display order
var LeadStatuses = []string{
	StatusNotContacted,
	StatusEmailSent,
	StatusContactOnPhone,
	StatusInContact,
	StatusInterested,
	StatusInProcess,
	StatusLoginCreated,
	StatusLoginRejected,
	StatusNotInterested,
	StatusNotContactable,
	StatusDoNotTouch,
	StatusSpam,
}

var Turnovers = []string{
	"NA",
	"Less than 10 Cr",
	"10 Cr - 50 Cr",
	"50 Cr - 100 Cr",
	"100 Cr - 500 Cr",
	"Above 500 Cr",
}

var StartupCategories = []string{"Yes", "No"}

var AEOStatuses = []string{"NA", "AEO - T1", "AEO - T2", "AEO - T3", "AEO - LEO"}

// LeadTypes doubles as the lead-type master list of the summary report
var LeadTypes = []string{
	"CHA",
	"Logistics",
	"Freight Forwarder",
	"Manufacturer",
	"Importer",
	"Exporter",
}

var PriorityRatings = []string{"Low", "Medium", "High", "Premium"}

var LeadSources = []string{
	"RCMC Panel",
	"CHA Panel",
	"MCA Panel",
	"Website",
	"In Person",
	"In Reference",
	"Print Media",
	"FSSAI Panel",
	"EPR Panel",
	"Web Media",
	"AEO Panel",
	"Others",
}

// Industries is the industry master list of the summary report. Industry
// itself is free text on a lead.
var Industries = []string{
	"Agriculture & Farming",
	"Mining & Quarrying",
	"Manufacturing",
	"Construction",
	"Utilities",
	"IT & Software Services",
	"Financial Services",
	"Trade (Wholesale & Retail)",
	"Transport & Logistics",
	"Tourism & Hospitality",
	"Telecommunications",
	"Healthcare",
	"Education",
	"Media & Entertainment",
	"Professional Services",
	"Public Administration",
}

// EnumFields maps each enum-typed lead field to its allowed values
var EnumFields = map[string][]string{
	FieldTurnover:        Turnovers,
	FieldStartupCategory: StartupCategories,
	FieldAEOStatus:       AEOStatuses,
	FieldLeadType:        LeadTypes,
	FieldPriorityRating:  PriorityRatings,
	FieldLeadSource:      LeadSources,
	FieldLeadStatus:      LeadStatuses,
}

// EnumFieldOrder is the deterministic iteration order over EnumFields
var EnumFieldOrder = []string{
	FieldTurnover,
	FieldStartupCategory,
	FieldAEOStatus,
	FieldLeadType,
	FieldPriorityRating,
	FieldLeadSource,
	FieldLeadStatus,
}

// IsValidEnum reports whether value belongs to the vocabulary of field.
// Fields without a vocabulary accept anything.
func IsValidEnum(field, value string) bool {
	allowed, ok := EnumFields[field]
	if !ok {
		return true
	}
	for _, v := range allowed {
		if v == value {
			return true
		}
	}
	return false
}

// IsValidStatus reports whether status is a known lead status
func IsValidStatus(status string) bool {
	return IsValidEnum(FieldLeadStatus, status)
}
