package domain

import (
	"time"

	"gorm.io/gorm"
)

// Lead field names as they appear in spreadsheets and JSON bodies
const (
	FieldName            = "name"
	FieldIecChaNo        = "iecChaNo"
	FieldLandlineNo      = "landlineNo"
	FieldMobileNo        = "mobileNo"
	FieldEmail           = "email"
	FieldWebsite         = "website"
	FieldAddress         = "address"
	FieldCity            = "city"
	FieldState           = "state"
	FieldPinCode         = "pinCode"
	FieldContactPerson   = "contactPerson"
	FieldDesignation     = "designation"
	FieldEmployees       = "employees"
	FieldTurnover        = "turnover"
	FieldStartupCategory = "startupCategory"
	FieldAEOStatus       = "AEOStatus"
	FieldRCMCPanel       = "RCMCPanel"
	FieldRCMCType        = "RCMCType"
	FieldIndustry        = "industry"
	FieldIndustryBrief   = "industryBrief"
	FieldLeadType        = "leadType"
	FieldPriorityRating  = "priorityRating"
	FieldLeadSource      = "leadSource"
	FieldLeadStatus      = "leadStatus"
	FieldDescription     = "description"
	FieldNotes           = "notes"
)

// LeadFields is the canonical field list: the sample template header, the
// import vocabulary and the export column order.
var LeadFields = []string{
	FieldName,
	FieldIecChaNo,
	FieldLandlineNo,
	FieldMobileNo,
	FieldEmail,
	FieldWebsite,
	FieldAddress,
	FieldCity,
	FieldState,
	FieldPinCode,
	FieldContactPerson,
	FieldDesignation,
	FieldEmployees,
	FieldTurnover,
	FieldStartupCategory,
	FieldAEOStatus,
	FieldRCMCPanel,
	FieldRCMCType,
	FieldIndustry,
	FieldIndustryBrief,
	FieldLeadType,
	FieldPriorityRating,
	FieldLeadSource,
	FieldLeadStatus,
	FieldDescription,
	FieldNotes,
}

// LeadColumns maps field names to database columns
var LeadColumns = map[string]string{
	FieldName:            "name",
	FieldIecChaNo:        "iec_cha_no",
	FieldLandlineNo:      "landline_no",
	FieldMobileNo:        "mobile_no",
	FieldEmail:           "email",
	FieldWebsite:         "website",
	FieldAddress:         "address",
	FieldCity:            "city",
	FieldState:           "state",
	FieldPinCode:         "pin_code",
	FieldContactPerson:   "contact_person",
	FieldDesignation:     "designation",
	FieldEmployees:       "employees",
	FieldTurnover:        "turnover",
	FieldStartupCategory: "startup_category",
	FieldAEOStatus:       "aeo_status",
	FieldRCMCPanel:       "rcmc_panel",
	FieldRCMCType:        "rcmc_type",
	FieldIndustry:        "industry",
	FieldIndustryBrief:   "industry_brief",
	FieldLeadType:        "lead_type",
	FieldPriorityRating:  "priority_rating",
	FieldLeadSource:      "lead_source",
	FieldLeadStatus:      "lead_status",
	FieldDescription:     "description",
	FieldNotes:           "notes",
}

// Lead represents a sales prospect
type Lead struct {
	ID     uint      `gorm:"primaryKey" json:"id"`
	IDNo   string    `gorm:"column:id_no;uniqueIndex;not null" json:"idNo"`
	IDDate time.Time `gorm:"column:id_date" json:"idDate"`

	Name          string `gorm:"index" json:"name"`
	IecChaNo      string `gorm:"column:iec_cha_no" json:"iecChaNo"`
	LandlineNo    string `json:"landlineNo"`
	MobileNo      string `gorm:"index" json:"mobileNo"`
	Email         string `gorm:"index" json:"email"`
	Website       string `json:"website"`
	Address       string `json:"address"`
	City          string `json:"city"`
	State         string `json:"state"`
	PinCode       string `json:"pinCode"`
	ContactPerson string `json:"contactPerson"`
	Designation   string `json:"designation"`

	Employees       *int    `json:"employees,omitempty"`
	Turnover        *string `json:"turnover,omitempty"`
	StartupCategory *string `json:"startupCategory,omitempty"`
	AEOStatus       *string `gorm:"column:aeo_status" json:"AEOStatus,omitempty"`
	RCMCPanel       string  `gorm:"column:rcmc_panel" json:"RCMCPanel"`
	RCMCType        string  `gorm:"column:rcmc_type" json:"RCMCType"`
	Industry        string  `gorm:"index" json:"industry"`
	IndustryBrief   string  `json:"industryBrief"`
	LeadType        *string `gorm:"index" json:"leadType,omitempty"`
	PriorityRating  *string `json:"priorityRating,omitempty"`
	LeadSource      *string `json:"leadSource,omitempty"`
	LeadStatus      *string `gorm:"index" json:"leadStatus,omitempty"`
	Description     string  `gorm:"type:text" json:"description"`
	Notes           string  `gorm:"type:text" json:"notes"`

	IsDeleted bool      `gorm:"default:false;index" json:"isDeleted"`
	CreatedAt time.Time `gorm:"index" json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName specifies the table name for Lead
func (Lead) TableName() string {
	return "leads"
}

// BeforeCreate hook
func (l *Lead) BeforeCreate(tx *gorm.DB) error {
	now := time.Now().UTC()
	if l.CreatedAt.IsZero() {
		l.CreatedAt = now
	} else {
		l.CreatedAt = l.CreatedAt.UTC()
	}
	l.UpdatedAt = l.CreatedAt
	if l.IDDate.IsZero() {
		l.IDDate = l.CreatedAt
	}
	if l.LeadStatus == nil {
		status := DefaultLeadStatus
		l.LeadStatus = &status
	}
	return nil
}

// BeforeUpdate hook
func (l *Lead) BeforeUpdate(tx *gorm.DB) error {
	l.UpdatedAt = time.Now().UTC()
	return nil
}

// Status returns the lead status, or the default when unset
func (l *Lead) Status() string {
	if l.LeadStatus == nil {
		return DefaultLeadStatus
	}
	return *l.LeadStatus
}
