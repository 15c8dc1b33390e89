package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"

	"leadcrm/internal/config"
	"leadcrm/internal/domain"
	"leadcrm/internal/metrics"
	"leadcrm/internal/spreadsheet"
)

// LeadService implements the lead service
type LeadService struct {
	db           *gorm.DB
	ids          IDGenerator
	emailService *EmailService
	cfg          config.LeadsConfig
	loc          *time.Location
	now          func() time.Time
}

// NewLeadService creates a new lead service
func NewLeadService(db *gorm.DB, cfg *config.Config, emailService *EmailService) *LeadService {
	return &LeadService{
		db:           db,
		ids:          NewIDGenerator(cfg.Leads.IDStrategy),
		emailService: emailService,
		cfg:          cfg.Leads,
		loc:          cfg.App.Location(),
		now:          time.Now,
	}
}

// LeadListResult is one page of leads
type LeadListResult struct {
	Total      int64         `json:"total"`
	Page       int           `json:"page"`
	Limit      int           `json:"limit"`
	TotalPages int           `json:"totalPages"`
	Leads      []domain.Lead `json:"leads"`
}

// BulkResult reports how many leads a bulk mutation touched
type BulkResult struct {
	Requested int   `json:"requested"`
	Modified  int64 `json:"modified"`
}

// leads starts a query over non-deleted leads
func (s *LeadService) leads(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).Model(&domain.Lead{}).Scopes(notDeleted)
}

// Create implements the create lead method
func (s *LeadService) Create(ctx context.Context, raw map[string]any) (*domain.Lead, error) {
	lead := NormalizeRow(raw)
	log.Printf("[LEAD] Create request: name=%s, email=%s, mobile=%s", lead.Name, lead.Email, lead.MobileNo)

	if err := validateLead(&lead); err != nil {
		log.Printf("[LEAD] Create failed: validation error: %v", err)
		return nil, err
	}
	if err := s.checkConflicts(ctx, &lead, 0); err != nil {
		return nil, err
	}

	ids, err := s.ids.NextIDs(ctx, s.db, 1)
	if err != nil {
		return nil, storeError("Create", err)
	}
	lead.IDNo = ids[0]
	lead.IDDate = s.now().UTC()

	if err := s.db.WithContext(ctx).Create(&lead).Error; err != nil {
		return nil, storeError("Create", err)
	}

	log.Printf("[LEAD] Create successful: id=%d, idNo=%s", lead.ID, lead.IDNo)
	metrics.RecordLeadsCreated("create", 1)
	return &lead, nil
}

// Get returns a lead by numeric id or idNo, soft-deleted leads included
func (s *LeadService) Get(ctx context.Context, ref string) (*domain.Lead, error) {
	return s.findLead(ctx, ref, true)
}

// Update applies the supplied fields of raw to a lead. name is mandatory;
// idNo, idDate and isDeleted cannot be changed this way.
func (s *LeadService) Update(ctx context.Context, ref string, raw map[string]any) (*domain.Lead, error) {
	log.Printf("[LEAD] Update request: ref=%s", ref)

	lead, err := s.findLead(ctx, ref, false)
	if err != nil {
		return nil, err
	}

	changes := NormalizeRow(raw)
	if err := validateLead(&changes); err != nil {
		log.Printf("[LEAD] Update failed: validation error: %v", err)
		return nil, err
	}
	if err := s.checkConflicts(ctx, &changes, lead.ID); err != nil {
		return nil, err
	}

	columns := suppliedColumns(raw)
	if err := s.db.WithContext(ctx).Model(lead).Select(columns).Updates(&changes).Error; err != nil {
		return nil, storeError("Update", err)
	}
	if err := s.db.WithContext(ctx).First(lead, lead.ID).Error; err != nil {
		return nil, storeError("Update", err)
	}

	log.Printf("[LEAD] Update successful: id=%d, fields=%d", lead.ID, len(columns))
	return lead, nil
}

// UpdateStatus sets leadStatus only
func (s *LeadService) UpdateStatus(ctx context.Context, ref, status string) (*domain.Lead, error) {
	log.Printf("[LEAD] UpdateStatus request: ref=%s, status=%s", ref, status)

	if !domain.IsValidStatus(status) {
		return nil, LeadValidation("%s", InvalidEnumReason(domain.FieldLeadStatus, status))
	}
	lead, err := s.findLead(ctx, ref, false)
	if err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).Model(lead).Update("lead_status", status).Error; err != nil {
		return nil, storeError("UpdateStatus", err)
	}
	lead.LeadStatus = &status

	log.Printf("[LEAD] UpdateStatus successful: id=%d", lead.ID)
	return lead, nil
}

// Delete soft-deletes a lead. Deleting an already deleted lead succeeds.
func (s *LeadService) Delete(ctx context.Context, ref string) (*domain.Lead, error) {
	log.Printf("[LEAD] Delete request: ref=%s", ref)

	lead, err := s.findLead(ctx, ref, true)
	if err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Model(lead).Update("is_deleted", true).Error; err != nil {
		return nil, storeError("Delete", err)
	}
	lead.IsDeleted = true

	log.Printf("[LEAD] Delete successful: id=%d, idNo=%s", lead.ID, lead.IDNo)
	metrics.RecordLeadsDeleted(1)
	return lead, nil
}

// BulkDelete soft-deletes every referenced lead that is not already deleted.
// refs are numeric ids or idNos, as accepted by Get.
func (s *LeadService) BulkDelete(ctx context.Context, refs []string) (*BulkResult, error) {
	log.Printf("[LEAD] BulkDelete request: refs=%d", len(refs))

	if len(refs) == 0 {
		return nil, LeadValidation("ids must be a non-empty array")
	}
	res := s.leads(ctx).Scopes(refScope(refs)).Update("is_deleted", true)
	if res.Error != nil {
		return nil, storeError("BulkDelete", res.Error)
	}

	log.Printf("[LEAD] BulkDelete successful: modified=%d", res.RowsAffected)
	metrics.RecordLeadsDeleted(int(res.RowsAffected))
	return &BulkResult{Requested: len(refs), Modified: res.RowsAffected}, nil
}

// BulkUpdateStatus sets leadStatus on every referenced non-deleted lead
func (s *LeadService) BulkUpdateStatus(ctx context.Context, refs []string, status string) (*BulkResult, error) {
	log.Printf("[LEAD] BulkUpdateStatus request: refs=%d, status=%s", len(refs), status)

	if len(refs) == 0 {
		return nil, LeadValidation("ids must be a non-empty array")
	}
	if !domain.IsValidStatus(status) {
		return nil, LeadValidation("%s", InvalidEnumReason(domain.FieldLeadStatus, status))
	}
	res := s.leads(ctx).Scopes(refScope(refs)).Update("lead_status", status)
	if res.Error != nil {
		return nil, storeError("BulkUpdateStatus", res.Error)
	}

	log.Printf("[LEAD] BulkUpdateStatus successful: modified=%d", res.RowsAffected)
	return &BulkResult{Requested: len(refs), Modified: res.RowsAffected}, nil
}

// List returns one filtered page of non-deleted leads, newest first
func (s *LeadService) List(ctx context.Context, p ListLeadsPayload) (*LeadListResult, error) {
	q := BuildLeadQuery(p, s.cfg.DefaultLimit, s.cfg.MaxPageLimit)
	log.Printf("[LEAD] List request: page=%d, limit=%d, search=%q", q.Page, q.Limit, q.Filter.Search)

	start := time.Now()
	var total int64
	if err := s.db.WithContext(ctx).Model(&domain.Lead{}).Scopes(q.Scope).Count(&total).Error; err != nil {
		metrics.RecordDBQuery("list_leads", time.Since(start), err)
		return nil, storeError("List", err)
	}

	leads := make([]domain.Lead, 0, q.Limit)
	err := s.db.WithContext(ctx).Model(&domain.Lead{}).Scopes(q.Scope, q.Paginate).Find(&leads).Error
	metrics.RecordDBQuery("list_leads", time.Since(start), err)
	if err != nil {
		return nil, storeError("List", err)
	}

	totalPages := int((total + int64(q.Limit) - 1) / int64(q.Limit))
	log.Printf("[LEAD] List successful: returned %d of %d leads", len(leads), total)
	return &LeadListResult{
		Total:      total,
		Page:       q.Page,
		Limit:      q.Limit,
		TotalPages: totalPages,
		Leads:      leads,
	}, nil
}

// exportColumns precede the canonical fields in exported workbooks
var exportColumns = []string{"idNo", "idDate"}

// Export writes every non-deleted lead matching p's filters (paging ignored)
// to w as an xlsx workbook
func (s *LeadService) Export(ctx context.Context, p ListLeadsPayload, w io.Writer) (int, error) {
	q := BuildLeadQuery(p, s.cfg.DefaultLimit, s.cfg.MaxPageLimit)
	log.Printf("[LEAD] Export request: search=%q", q.Filter.Search)

	var leads []domain.Lead
	if err := s.db.WithContext(ctx).Model(&domain.Lead{}).Scopes(q.Scope).
		Order("created_at DESC").Order("id DESC").Find(&leads).Error; err != nil {
		return 0, storeError("Export", err)
	}

	headers := append(append([]string{}, exportColumns...), domain.LeadFields...)
	rows := make([][]any, len(leads))
	for i := range leads {
		record := LeadRecord(&leads[i])
		row := make([]any, 0, len(headers))
		row = append(row, leads[i].IDNo, leads[i].IDDate.In(s.loc).Format(time.RFC3339))
		for _, field := range domain.LeadFields {
			row = append(row, record[field])
		}
		rows[i] = row
	}

	if err := spreadsheet.WriteWorkbook(w, "Leads", headers, rows); err != nil {
		return 0, storeError("Export", err)
	}

	log.Printf("[LEAD] Export successful: %d leads", len(leads))
	return len(leads), nil
}

// EnsureSample creates the sample import template when it is missing
func (s *LeadService) EnsureSample() (string, error) {
	created, err := spreadsheet.EnsureTemplate(s.cfg.SamplePath, "Sample", domain.LeadFields)
	if err != nil {
		return "", fmt.Errorf("failed to create sample file: %w", err)
	}
	if created {
		log.Printf("[LEAD] Sample file created at %s", s.cfg.SamplePath)
	}
	return s.cfg.SamplePath, nil
}

// SamplePath returns the location of the sample import template
func (s *LeadService) SamplePath() string {
	return s.cfg.SamplePath
}

// findLead looks a lead up by numeric id or by idNo
func (s *LeadService) findLead(ctx context.Context, ref string, includeDeleted bool) (*domain.Lead, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, LeadNotFound()
	}

	query := s.db.WithContext(ctx).Model(&domain.Lead{})
	if !includeDeleted {
		query = query.Scopes(notDeleted)
	}
	if id, err := strconv.ParseUint(ref, 10, 64); err == nil {
		query = query.Where("id = ?", id)
	} else {
		query = query.Where("id_no = ?", ref)
	}

	var lead domain.Lead
	if err := query.First(&lead).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("[LEAD] Lookup failed: lead %s not found", ref)
			return nil, LeadNotFound()
		}
		return nil, storeError("Lookup", err)
	}
	return &lead, nil
}

// refScope matches leads by numeric id or by idNo. Blank refs match nothing.
func refScope(refs []string) func(*gorm.DB) *gorm.DB {
	var ids []uint64
	var idNos []string
	for _, ref := range refs {
		ref = strings.TrimSpace(ref)
		if ref == "" {
			continue
		}
		if id, err := strconv.ParseUint(ref, 10, 64); err == nil {
			ids = append(ids, id)
		} else {
			idNos = append(idNos, ref)
		}
	}

	return func(db *gorm.DB) *gorm.DB {
		switch {
		case len(ids) > 0 && len(idNos) > 0:
			return db.Where(db.Session(&gorm.Session{NewDB: true}).
				Where("id IN ?", ids).
				Or("id_no IN ?", idNos))
		case len(ids) > 0:
			return db.Where("id IN ?", ids)
		case len(idNos) > 0:
			return db.Where("id_no IN ?", idNos)
		default:
			return db.Where("1 = 0")
		}
	}
}

// checkConflicts rejects a write whose email or mobile already belongs to
// another non-deleted lead. Names may repeat outside of imports.
// Check-then-write: two concurrent writers can still both pass, the schema
// does not make these columns unique.
func (s *LeadService) checkConflicts(ctx context.Context, lead *domain.Lead, selfID uint) error {
	checks := []struct {
		column string
		value  string
		reason string
	}{
		{"email", lead.Email, ReasonEmailExists},
		{"mobile_no", lead.MobileNo, ReasonMobileExists},
	}

	for _, c := range checks {
		if c.value == "" {
			continue
		}
		query := s.leads(ctx).Where(c.column+" = ?", c.value)
		if selfID != 0 {
			query = query.Where("id <> ?", selfID)
		}
		var count int64
		if err := query.Count(&count).Error; err != nil {
			return storeError("CheckConflicts", err)
		}
		if count > 0 {
			log.Printf("[LEAD] Conflict: %s %q already in use", c.column, c.value)
			return LeadConflict(c.reason)
		}
	}
	return nil
}

// validateLead enforces the mandatory name and enum vocabularies
func validateLead(lead *domain.Lead) error {
	if lead.Name == "" {
		return LeadValidation("Field 'name' is required")
	}
	if problems := invalidEnums(lead); len(problems) > 0 {
		return LeadValidation("%s", strings.Join(problems, "; "))
	}
	return nil
}

// suppliedColumns lists the columns of the canonical fields present in raw
func suppliedColumns(raw map[string]any) []string {
	columns := make([]string, 0, len(raw))
	for _, field := range domain.LeadFields {
		if _, ok := raw[field]; ok {
			columns = append(columns, domain.LeadColumns[field])
		}
	}
	return columns
}
