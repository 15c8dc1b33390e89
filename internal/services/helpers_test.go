package services

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"leadcrm/internal/config"
	"leadcrm/internal/database"
	"leadcrm/internal/domain"
)

// openTestDB opens a migrated SQLite database in a temporary directory
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := database.Open(&config.DatabaseConfig{
		URL: "sqlite:///" + filepath.Join(t.TempDir(), "leads.db"),
	})
	require.NoError(t, err)

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func testConfig(t *testing.T, strategy string) *config.Config {
	t.Helper()

	dir := t.TempDir()
	return &config.Config{
		App: config.AppConfig{Name: "Lead CRM API", Timezone: "UTC"},
		Leads: config.LeadsConfig{
			IDStrategy:   strategy,
			UploadDir:    filepath.Join(dir, "uploads"),
			SamplePath:   filepath.Join(dir, "static", "sample-leads.xlsx"),
			MaxUploadMB:  20,
			MaxPageLimit: 500,
			DefaultLimit: 10,
		},
	}
}

// newTestService returns a lead service over a fresh database
func newTestService(t *testing.T, strategy string) (*LeadService, *gorm.DB) {
	t.Helper()

	db := openTestDB(t)
	return NewLeadService(db, testConfig(t, strategy), nil), db
}

// seedLead inserts a lead directly, bypassing the service checks
func seedLead(t *testing.T, db *gorm.DB, lead domain.Lead) domain.Lead {
	t.Helper()

	if lead.IDNo == "" {
		lead.IDNo = LeadIDPrefix + uuid.NewString()
	}
	require.NoError(t, db.WithContext(context.Background()).Create(&lead).Error)
	return lead
}

// seedSequenceCollision leaves LEAD-0005 as the newest lead while LEAD-0006
// already exists, so the next sequential identifier is taken
func seedSequenceCollision(t *testing.T, db *gorm.DB) {
	t.Helper()

	now := time.Now().UTC()
	seedLead(t, db, domain.Lead{Name: "OLDER", IDNo: "LEAD-0006", CreatedAt: now.Add(-time.Hour)})
	seedLead(t, db, domain.Lead{Name: "NEWEST", IDNo: "LEAD-0005", CreatedAt: now})
}

func strPtr(s string) *string {
	return &s
}
