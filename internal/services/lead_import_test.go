package services

import (
	"bytes"
	"context"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"leadcrm/internal/config"
	"leadcrm/internal/domain"
	apperrors "leadcrm/pkg/errors"
)

// workbook builds an xlsx upload whose first row is header
func workbook(t *testing.T, header []any, rows ...[]any) *bytes.Reader {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &header))
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return bytes.NewReader(buf.Bytes())
}

func assertUploadDirEmpty(t *testing.T, svc *LeadService) {
	t.Helper()

	entries, err := os.ReadDir(svc.cfg.UploadDir)
	if os.IsNotExist(err) {
		return
	}
	require.NoError(t, err)
	assert.Empty(t, entries, "temporary upload files must be removed")
}

func TestImportSkipsIntraBatchDuplicates(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, config.IDStrategyRandom)

	upload := workbook(t,
		[]any{"name", "mobileNo", "email", "leadType"},
		[]any{"Acme Corp", 9876543210, "sales@acme.com", "Exporter"},
		[]any{"Beta Ltd", "98765-43210", "hello@beta.com", ""},
		[]any{"Gamma", "9000000000", "", "CHA"},
	)

	result, err := svc.Import(ctx, "leads.xlsx", upload)
	require.NoError(t, err)

	assert.Equal(t, 3, result.TotalRows)
	assert.Equal(t, 2, result.Imported)
	assert.Equal(t, 1, result.Skipped)
	require.Len(t, result.SkippedDetails, 1)

	skipped := result.SkippedDetails[0]
	assert.Equal(t, 3, skipped.Row)
	assert.Equal(t, "BETA LTD", skipped.Name)
	assert.Equal(t, "9876543210", skipped.MobileNo)
	assert.Contains(t, skipped.Reasons, ReasonMobileExists)

	list, err := svc.List(ctx, ListLeadsPayload{})
	require.NoError(t, err)
	assert.EqualValues(t, 2, list.Total)

	assertUploadDirEmpty(t, svc)
}

func TestImportChecksExistingLeads(t *testing.T) {
	ctx := context.Background()
	svc, db := newTestService(t, config.IDStrategyRandom)

	seedLead(t, db, domain.Lead{Name: "ACME CORP", Email: "sales@acme.com"})
	gone := seedLead(t, db, domain.Lead{Name: "OLD CO", MobileNo: "9111111111"})
	require.NoError(t, db.Model(&gone).Update("is_deleted", true).Error)

	upload := workbook(t,
		[]any{"name", "email", "mobileNo", "priorityRating"},
		[]any{"acme corp", "other@acme.com", "", ""},
		[]any{"Fresh", "SALES@ACME.COM", "", ""},
		[]any{"Old Co", "", "9111111111", ""},
		[]any{"", "nobody@example.com", "", ""},
		[]any{"Typo Ltd", "", "", "Urgent"},
	)

	result, err := svc.Import(ctx, "leads.xlsx", upload)
	require.NoError(t, err)

	assert.Equal(t, 5, result.TotalRows)
	assert.Equal(t, 1, result.Imported, "only the row matching a deleted lead is new")
	require.Len(t, result.SkippedDetails, 4)

	assert.Equal(t, []string{ReasonNameExists}, result.SkippedDetails[0].Reasons)
	assert.Equal(t, []string{ReasonEmailExists}, result.SkippedDetails[1].Reasons)
	assert.Equal(t, []string{ReasonNameMissing}, result.SkippedDetails[2].Reasons)
	assert.Equal(t, []string{`Invalid priorityRating "Urgent"`}, result.SkippedDetails[3].Reasons)
}

func TestImportAssignsSequentialIDs(t *testing.T) {
	ctx := context.Background()
	svc, db := newTestService(t, config.IDStrategySequential)

	seedLead(t, db, domain.Lead{Name: "FIRST", IDNo: "LEAD-0041"})

	upload := workbook(t,
		[]any{"name"},
		[]any{"Second"},
		[]any{"Third"},
	)
	result, err := svc.Import(ctx, "leads.xlsx", upload)
	require.NoError(t, err)
	require.Equal(t, 2, result.Imported)

	var ids []string
	require.NoError(t, db.Model(&domain.Lead{}).Order("id").Pluck("id_no", &ids).Error)
	assert.Equal(t, []string{"LEAD-0041", "LEAD-0042", "LEAD-0043"}, ids)
}

func TestImportStoreFailureAbortsBatch(t *testing.T) {
	ctx := context.Background()
	svc, db := newTestService(t, config.IDStrategySequential)
	seedSequenceCollision(t, db)

	upload := workbook(t,
		[]any{"name", "mobileNo"},
		[]any{"Acme", "9000000001"},
		[]any{"Beta", "9000000002"},
	)

	result, err := svc.Import(ctx, "leads.xlsx", upload)
	require.Error(t, err)
	assert.Nil(t, result)
	assert.True(t, apperrors.IsConflict(err), "unexpected error: %v", err)

	var count int64
	require.NoError(t, db.Model(&domain.Lead{}).Count(&count).Error)
	assert.EqualValues(t, 2, count, "no row of a failed batch may be committed")

	assertUploadDirEmpty(t, svc)
}

func TestImportCSV(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, config.IDStrategyRandom)

	csvData := "\ufeffname,email,mobileNo,employees\n" +
		"Acme,a@acme.com,9000000001,12\n" +
		",,,\n" +
		"Beta,A@ACME.com,,\n"

	result, err := svc.Import(ctx, "leads.csv", strings.NewReader(csvData))
	require.NoError(t, err)

	assert.Equal(t, 2, result.TotalRows, "blank rows are ignored")
	assert.Equal(t, 1, result.Imported)
	require.Len(t, result.SkippedDetails, 1)
	assert.Equal(t, 4, result.SkippedDetails[0].Row)
	assert.Equal(t, []string{ReasonEmailExists}, result.SkippedDetails[0].Reasons)

	list, err := svc.List(ctx, ListLeadsPayload{Search: "acme"})
	require.NoError(t, err)
	require.Len(t, list.Leads, 1)
	require.NotNil(t, list.Leads[0].Employees)
	assert.Equal(t, 12, *list.Leads[0].Employees)
}

func TestImportRejectsUnusableUploads(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, config.IDStrategyRandom)

	tests := []struct {
		name     string
		filename string
		data     string
		message  string
	}{
		{"header only", "leads.xlsx", "", "Uploaded file is empty"},
		{"not a workbook", "leads.xlsx", "definitely not a zip archive", "Invalid file format"},
		{"empty csv", "leads.csv", "", "Uploaded file is empty"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var src *bytes.Reader
			if tt.name == "header only" {
				src = workbook(t, []any{"name", "email"})
			} else {
				src = bytes.NewReader([]byte(tt.data))
			}

			result, err := svc.Import(ctx, tt.filename, src)
			require.Error(t, err)
			assert.Nil(t, result)
			assert.True(t, apperrors.IsValidation(err))
			assert.Contains(t, err.Error(), tt.message)
			assertUploadDirEmpty(t, svc)
		})
	}

	_, err := svc.Import(ctx, "leads.xlsx", nil)
	assert.True(t, apperrors.IsValidation(err))
}
