package services

import (
	"bytes"
	"context"
	"math"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leadcrm/internal/config"
	"leadcrm/internal/domain"
	"leadcrm/internal/spreadsheet"
	apperrors "leadcrm/pkg/errors"
)

func TestCreateLead(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, config.IDStrategySequential)

	lead, err := svc.Create(ctx, map[string]any{
		"name":     " acme corp ",
		"email":    "Sales@Acme.com",
		"mobileNo": "98765 43210",
		"leadType": "Exporter",
	})
	require.NoError(t, err)

	assert.NotZero(t, lead.ID)
	assert.Equal(t, "LEAD-0001", lead.IDNo)
	assert.Equal(t, "ACME CORP", lead.Name)
	assert.Equal(t, "sales@acme.com", lead.Email)
	assert.Equal(t, "9876543210", lead.MobileNo)
	assert.Equal(t, domain.DefaultLeadStatus, lead.Status())
	assert.False(t, lead.IDDate.IsZero())
	assert.False(t, lead.IsDeleted)

	second, err := svc.Create(ctx, map[string]any{"name": "Second"})
	require.NoError(t, err)
	assert.Equal(t, "LEAD-0002", second.IDNo)
}

func TestCreateLeadValidation(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, config.IDStrategyRandom)

	tests := []struct {
		name    string
		raw     map[string]any
		message string
	}{
		{"missing name", map[string]any{"email": "a@example.com"}, "Field 'name' is required"},
		{"blank name", map[string]any{"name": "   "}, "Field 'name' is required"},
		{"bad status", map[string]any{"name": "Acme", "leadStatus": "Hot"}, `Invalid leadStatus "Hot"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(ctx, tt.raw)
			require.Error(t, err)
			assert.True(t, apperrors.IsValidation(err))
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}

func TestCreateLeadConflicts(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, config.IDStrategyRandom)

	_, err := svc.Create(ctx, map[string]any{"name": "Acme", "email": "a@acme.com", "mobileNo": "9000000001"})
	require.NoError(t, err)

	_, err = svc.Create(ctx, map[string]any{"name": "Other", "email": "A@ACME.COM"})
	require.Error(t, err)
	assert.True(t, apperrors.IsConflict(err))
	assert.Contains(t, err.Error(), ReasonEmailExists)

	_, err = svc.Create(ctx, map[string]any{"name": "Other", "mobileNo": "+9000000001"})
	require.Error(t, err)
	assert.True(t, apperrors.IsConflict(err))
	assert.Contains(t, err.Error(), ReasonMobileExists)

	_, err = svc.Create(ctx, map[string]any{"name": "Acme"})
	assert.NoError(t, err, "names may repeat outside imports")
}

func TestCreateLeadSequentialIDCollision(t *testing.T) {
	ctx := context.Background()
	svc, db := newTestService(t, config.IDStrategySequential)
	seedSequenceCollision(t, db)

	lead, err := svc.Create(ctx, map[string]any{"name": "Acme"})
	require.Error(t, err)
	assert.Nil(t, lead)
	assert.True(t, apperrors.IsConflict(err), "duplicate id_no must surface as a conflict: %v", err)

	var count int64
	require.NoError(t, db.Model(&domain.Lead{}).Count(&count).Error)
	assert.EqualValues(t, 2, count)
}

func TestDeletedLeadReleasesKeys(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, config.IDStrategyRandom)

	lead, err := svc.Create(ctx, map[string]any{"name": "Acme", "email": "a@acme.com"})
	require.NoError(t, err)
	_, err = svc.Delete(ctx, strconv.FormatUint(uint64(lead.ID), 10))
	require.NoError(t, err)

	_, err = svc.Create(ctx, map[string]any{"name": "Acme", "email": "a@acme.com"})
	assert.NoError(t, err)
}

func TestSoftDelete(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, config.IDStrategyRandom)

	lead, err := svc.Create(ctx, map[string]any{"name": "Acme Corp"})
	require.NoError(t, err)
	ref := strconv.FormatUint(uint64(lead.ID), 10)

	deleted, err := svc.Delete(ctx, ref)
	require.NoError(t, err)
	assert.True(t, deleted.IsDeleted)

	list, err := svc.List(ctx, ListLeadsPayload{})
	require.NoError(t, err)
	assert.Zero(t, list.Total)
	assert.Empty(t, list.Leads)

	found, err := svc.Get(ctx, ref)
	require.NoError(t, err)
	assert.True(t, found.IsDeleted)

	byIDNo, err := svc.Get(ctx, lead.IDNo)
	require.NoError(t, err)
	assert.Equal(t, lead.ID, byIDNo.ID)

	_, err = svc.Delete(ctx, ref)
	assert.NoError(t, err, "deleting twice succeeds")

	_, err = svc.UpdateStatus(ctx, ref, domain.StatusInterested)
	assert.True(t, apperrors.IsNotFound(err), "deleted leads cannot be updated")
}

func TestLeadNotFound(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, config.IDStrategyRandom)

	_, err := svc.Get(ctx, "999")
	assert.True(t, apperrors.IsNotFound(err))

	_, err = svc.Update(ctx, "LEAD-missing", map[string]any{"name": "X"})
	assert.True(t, apperrors.IsNotFound(err))

	_, err = svc.Delete(ctx, "")
	assert.True(t, apperrors.IsNotFound(err))
}

func TestUpdateLeadMergesSuppliedFields(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, config.IDStrategyRandom)

	lead, err := svc.Create(ctx, map[string]any{
		"name":     "Acme",
		"email":    "a@acme.com",
		"city":     "Pune",
		"leadType": "CHA",
	})
	require.NoError(t, err)
	ref := strconv.FormatUint(uint64(lead.ID), 10)

	updated, err := svc.Update(ctx, ref, map[string]any{
		"name":      "acme exports",
		"city":      "Mumbai",
		"employees": "25",
		"idNo":      "LEAD-hijack",
	})
	require.NoError(t, err)

	assert.Equal(t, "ACME EXPORTS", updated.Name)
	assert.Equal(t, "Mumbai", updated.City)
	require.NotNil(t, updated.Employees)
	assert.Equal(t, 25, *updated.Employees)
	assert.Equal(t, "a@acme.com", updated.Email, "unsupplied fields are kept")
	require.NotNil(t, updated.LeadType)
	assert.Equal(t, "CHA", *updated.LeadType)
	assert.Equal(t, lead.IDNo, updated.IDNo, "idNo is immutable")

	_, err = svc.Update(ctx, ref, map[string]any{"city": "Delhi"})
	assert.True(t, apperrors.IsValidation(err), "name is mandatory on update")
}

func TestUpdateLeadConflict(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, config.IDStrategyRandom)

	_, err := svc.Create(ctx, map[string]any{"name": "First", "email": "first@example.com"})
	require.NoError(t, err)
	second, err := svc.Create(ctx, map[string]any{"name": "Second", "email": "second@example.com"})
	require.NoError(t, err)
	ref := strconv.FormatUint(uint64(second.ID), 10)

	_, err = svc.Update(ctx, ref, map[string]any{"name": "Second", "email": "first@example.com"})
	assert.True(t, apperrors.IsConflict(err))

	_, err = svc.Update(ctx, ref, map[string]any{"name": "Second", "email": "second@example.com"})
	assert.NoError(t, err, "a lead does not conflict with itself")
}

func TestUpdateStatus(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, config.IDStrategyRandom)

	lead, err := svc.Create(ctx, map[string]any{"name": "Acme"})
	require.NoError(t, err)

	updated, err := svc.UpdateStatus(ctx, lead.IDNo, domain.StatusEmailSent)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusEmailSent, updated.Status())

	_, err = svc.UpdateStatus(ctx, lead.IDNo, "Maybe")
	assert.True(t, apperrors.IsValidation(err))
}

func TestBulkUpdateStatusLeavesOtherFieldsUntouched(t *testing.T) {
	ctx := context.Background()
	svc, db := newTestService(t, config.IDStrategyRandom)

	a := seedLead(t, db, domain.Lead{Name: "A", Email: "a@example.com", City: "Pune", LeadType: strPtr("CHA")})
	b := seedLead(t, db, domain.Lead{Name: "B", MobileNo: "9000000002", Notes: "call back"})
	c := seedLead(t, db, domain.Lead{Name: "C"})

	result, err := svc.BulkUpdateStatus(ctx, []string{strconv.Itoa(int(a.ID)), b.IDNo}, domain.StatusInterested)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Requested)
	assert.EqualValues(t, 2, result.Modified)

	gotA, err := svc.Get(ctx, a.IDNo)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusInterested, gotA.Status())
	assert.Equal(t, "a@example.com", gotA.Email)
	assert.Equal(t, "Pune", gotA.City)
	require.NotNil(t, gotA.LeadType)
	assert.Equal(t, "CHA", *gotA.LeadType)

	gotB, err := svc.Get(ctx, b.IDNo)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusInterested, gotB.Status())
	assert.Equal(t, "9000000002", gotB.MobileNo)
	assert.Equal(t, "call back", gotB.Notes)

	gotC, err := svc.Get(ctx, c.IDNo)
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultLeadStatus, gotC.Status())
}

func TestBulkOperationsValidate(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, config.IDStrategyRandom)

	_, err := svc.BulkDelete(ctx, nil)
	assert.True(t, apperrors.IsValidation(err))

	_, err = svc.BulkUpdateStatus(ctx, []string{}, domain.StatusInterested)
	assert.True(t, apperrors.IsValidation(err))

	_, err = svc.BulkUpdateStatus(ctx, []string{"1"}, "Nope")
	assert.True(t, apperrors.IsValidation(err))
}

func TestBulkDelete(t *testing.T) {
	ctx := context.Background()
	svc, db := newTestService(t, config.IDStrategyRandom)

	a := seedLead(t, db, domain.Lead{Name: "A"})
	b := seedLead(t, db, domain.Lead{Name: "B"})
	seedLead(t, db, domain.Lead{Name: "C"})

	result, err := svc.BulkDelete(ctx, []string{strconv.Itoa(int(a.ID)), b.IDNo, "9999", "LEAD-missing", " "})
	require.NoError(t, err)
	assert.Equal(t, 5, result.Requested)
	assert.EqualValues(t, 2, result.Modified)

	again, err := svc.BulkDelete(ctx, []string{a.IDNo})
	require.NoError(t, err)
	assert.Zero(t, again.Modified, "already deleted leads are not counted")

	blank, err := svc.BulkDelete(ctx, []string{""})
	require.NoError(t, err)
	assert.Zero(t, blank.Modified)

	list, err := svc.List(ctx, ListLeadsPayload{})
	require.NoError(t, err)
	require.Len(t, list.Leads, 1)
	assert.Equal(t, "C", list.Leads[0].Name)
}

func TestListSearchAndFilters(t *testing.T) {
	ctx := context.Background()
	svc, db := newTestService(t, config.IDStrategyRandom)

	seedLead(t, db, domain.Lead{Name: "Acme Corp", Industry: "Manufacturing", LeadType: strPtr("Exporter")})
	seedLead(t, db, domain.Lead{Name: "Beta Ltd", Email: "ops@acme.io", Industry: "Healthcare"})
	seedLead(t, db, domain.Lead{Name: "Gamma", MobileNo: "9000000003", LeadType: strPtr("Exporter")})
	deleted := seedLead(t, db, domain.Lead{Name: "Acme Corp"})
	require.NoError(t, db.Model(&deleted).Update("is_deleted", true).Error)

	t.Run("case-insensitive search excludes deleted", func(t *testing.T) {
		list, err := svc.List(ctx, ListLeadsPayload{Search: "acme"})
		require.NoError(t, err)
		assert.EqualValues(t, 2, list.Total)
		for _, l := range list.Leads {
			assert.False(t, l.IsDeleted)
			assert.NotEqual(t, deleted.ID, l.ID)
		}
	})

	t.Run("search matches mobile", func(t *testing.T) {
		list, err := svc.List(ctx, ListLeadsPayload{Search: "9000000003"})
		require.NoError(t, err)
		require.Len(t, list.Leads, 1)
		assert.Equal(t, "Gamma", list.Leads[0].Name)
	})

	t.Run("wildcards are literal", func(t *testing.T) {
		list, err := svc.List(ctx, ListLeadsPayload{Search: "%"})
		require.NoError(t, err)
		assert.Zero(t, list.Total)
	})

	t.Run("equality filters combine", func(t *testing.T) {
		list, err := svc.List(ctx, ListLeadsPayload{LeadType: "Exporter", Industry: "Manufacturing"})
		require.NoError(t, err)
		require.Len(t, list.Leads, 1)
		assert.Equal(t, "Acme Corp", list.Leads[0].Name)
	})
}

func TestListPagination(t *testing.T) {
	ctx := context.Background()
	svc, db := newTestService(t, config.IDStrategyRandom)

	for i := 0; i < 25; i++ {
		seedLead(t, db, domain.Lead{Name: "Lead " + strconv.Itoa(i)})
	}

	page, err := svc.List(ctx, ListLeadsPayload{Page: 3, Limit: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 25, page.Total)
	assert.Equal(t, 3, page.Page)
	assert.Equal(t, 10, page.Limit)
	assert.Equal(t, 3, page.TotalPages)
	assert.Len(t, page.Leads, 5)

	first, err := svc.List(ctx, ListLeadsPayload{Page: -1, Limit: 0})
	require.NoError(t, err)
	assert.Equal(t, 1, first.Page)
	assert.Equal(t, 10, first.Limit)
	assert.Equal(t, "Lead 24", first.Leads[0].Name, "newest first")
}

func TestBuildLeadQuery(t *testing.T) {
	tests := []struct {
		name      string
		page      int
		limit     int
		wantPage  int
		wantLimit int
		wantSkip  int
	}{
		{"defaults", 0, 0, 1, 10, 0},
		{"negative", -2, -5, 1, 10, 0},
		{"second page", 2, 20, 2, 20, 20},
		{"capped", 1, 10000, 1, 500, 0},
		{"page past max offset", math.MaxInt, 20, math.MaxInt / 20, 20, (math.MaxInt/20 - 1) * 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := BuildLeadQuery(ListLeadsPayload{Page: tt.page, Limit: tt.limit}, 10, 500)
			assert.Equal(t, tt.wantPage, q.Page)
			assert.Equal(t, tt.wantLimit, q.Limit)
			assert.Equal(t, tt.wantSkip, q.Skip)
			assert.GreaterOrEqual(t, q.Skip, 0)
		})
	}
}

func TestListPagePastEnd(t *testing.T) {
	ctx := context.Background()
	svc, db := newTestService(t, config.IDStrategyRandom)

	seedLead(t, db, domain.Lead{Name: "ACME"})

	result, err := svc.List(ctx, ListLeadsPayload{Page: math.MaxInt, Limit: 20})
	require.NoError(t, err)
	assert.EqualValues(t, 1, result.Total)
	assert.Equal(t, math.MaxInt/20, result.Page)
	assert.Empty(t, result.Leads)
}

func TestExportRoundTrip(t *testing.T) {
	ctx := context.Background()
	svc, db := newTestService(t, config.IDStrategyRandom)

	seedLead(t, db, domain.Lead{Name: "ACME", Email: "a@acme.com", Employees: intPtr(12), LeadType: strPtr("CHA")})
	seedLead(t, db, domain.Lead{Name: "BETA"})
	gone := seedLead(t, db, domain.Lead{Name: "GONE"})
	require.NoError(t, db.Model(&gone).Update("is_deleted", true).Error)

	var buf bytes.Buffer
	n, err := svc.Export(ctx, ListLeadsPayload{Search: "acme", Limit: 1}, &buf)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	rows, err := spreadsheet.ReadXLSX(&buf)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "ACME", rows[0].Values["name"])
	assert.Equal(t, "a@acme.com", rows[0].Values["email"])
	assert.Equal(t, "12", rows[0].Values["employees"])
	assert.Equal(t, "CHA", rows[0].Values["leadType"])
	assert.True(t, strings.HasPrefix(rows[0].Values["idNo"].(string), LeadIDPrefix))
}

func TestEnsureSample(t *testing.T) {
	svc, _ := newTestService(t, config.IDStrategyRandom)

	path, err := svc.EnsureSample()
	require.NoError(t, err)
	assert.Equal(t, svc.SamplePath(), path)

	rows, err := spreadsheet.ReadFile(path)
	require.NoError(t, err)
	assert.Empty(t, rows, "template has a header only")

	_, err = svc.EnsureSample()
	require.NoError(t, err)
}
