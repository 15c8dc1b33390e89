package services

import (
	"context"
	"errors"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/gorm"

	"leadcrm/internal/domain"
	"leadcrm/internal/metrics"
	"leadcrm/internal/spreadsheet"
)

const importBatchSize = 200

// SkippedDetail describes one rejected import row
type SkippedDetail struct {
	Row      int      `json:"row"`
	Name     string   `json:"name"`
	Email    string   `json:"email"`
	MobileNo string   `json:"mobileNo"`
	Reasons  []string `json:"reasons"`
}

// ImportResult is the import report
type ImportResult struct {
	TotalRows      int             `json:"totalRows"`
	Imported       int             `json:"imported"`
	Skipped        int             `json:"skipped"`
	SkippedDetails []SkippedDetail `json:"skippedDetails"`
}

// Import runs the import pipeline over an uploaded spreadsheet: spool to a
// temporary file, parse, normalize, resolve duplicates against the store and
// the batch itself, then insert every accepted row in one transaction.
//
// The existing keys are read once up front, so a lead created concurrently
// while the import runs is not seen by the duplicate check.
func (s *LeadService) Import(ctx context.Context, filename string, src io.Reader) (*ImportResult, error) {
	if src == nil {
		return nil, LeadValidation("No file uploaded")
	}
	log.Printf("[IMPORT] Import request: file=%s", filename)

	path, err := s.spool(filename, src)
	if path != "" {
		defer func() {
			if rmErr := os.Remove(path); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
				log.Printf("[IMPORT] Warning: failed to remove temp file %s: %v", path, rmErr)
			}
		}()
	}
	if err != nil {
		return nil, storeError("Import", err)
	}

	sheetRows, err := spreadsheet.ReadFile(path)
	if err != nil {
		if errors.Is(err, spreadsheet.ErrNoSheet) {
			return nil, LeadValidation("Invalid file format. No sheet found.")
		}
		log.Printf("[IMPORT] Import failed: unreadable file: %v", err)
		return nil, LeadValidation("Invalid file format: unable to read spreadsheet")
	}
	if len(sheetRows) == 0 {
		return nil, LeadValidation("Uploaded file is empty")
	}

	rows := make([]ImportRow, len(sheetRows))
	for i, r := range sheetRows {
		rows[i] = ImportRow{Number: r.Number, Lead: NormalizeRow(r.Values)}
	}

	keys, err := s.existingKeys(ctx)
	if err != nil {
		return nil, err
	}

	accepted, rejected := ResolveDuplicates(rows, keys)

	if len(accepted) > 0 {
		if err := s.insertAccepted(ctx, accepted); err != nil {
			return nil, err
		}
	}

	result := &ImportResult{
		TotalRows:      len(rows),
		Imported:       len(accepted),
		Skipped:        len(rejected),
		SkippedDetails: make([]SkippedDetail, len(rejected)),
	}
	for i, r := range rejected {
		result.SkippedDetails[i] = SkippedDetail{
			Row:      r.Row.Number,
			Name:     r.Row.Lead.Name,
			Email:    r.Row.Lead.Email,
			MobileNo: r.Row.Lead.MobileNo,
			Reasons:  r.Reasons,
		}
	}

	log.Printf("[IMPORT] Import successful: file=%s, total=%d, imported=%d, skipped=%d",
		filename, result.TotalRows, result.Imported, result.Skipped)
	metrics.RecordImport(result.Imported, result.Skipped)
	metrics.RecordLeadsCreated("import", result.Imported)

	if s.emailService != nil {
		go func() {
			if err := s.emailService.SendImportDigest(filename, result); err != nil {
				log.Printf("[IMPORT] Warning: failed to send import digest: %v", err)
			}
		}()
	}

	return result, nil
}

// spool copies src into a temporary file under the upload directory. The
// returned path is set whenever a file was created, even on error.
func (s *LeadService) spool(filename string, src io.Reader) (string, error) {
	dir := s.cfg.UploadDir
	if dir == "" {
		dir = os.TempDir()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}

	ext := strings.ToLower(filepath.Ext(filename))
	tmp, err := os.CreateTemp(dir, "import-*"+ext)
	if err != nil {
		return "", err
	}
	path := tmp.Name()

	if _, err := io.Copy(tmp, src); err != nil {
		tmp.Close()
		return path, err
	}
	return path, tmp.Close()
}

// existingKeys snapshots the names, emails and mobiles of non-deleted leads
func (s *LeadService) existingKeys(ctx context.Context) (*KeySet, error) {
	var existing []domain.Lead
	if err := s.leads(ctx).Select("name", "email", "mobile_no").Find(&existing).Error; err != nil {
		return nil, storeError("Import", err)
	}

	keys := NewKeySet()
	for i := range existing {
		keys.Add(&existing[i])
	}
	return keys, nil
}

// insertAccepted assigns identifiers and inserts rows atomically. Any failure
// aborts the whole batch.
func (s *LeadService) insertAccepted(ctx context.Context, rows []ImportRow) error {
	start := time.Now()
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ids, err := s.ids.NextIDs(ctx, tx, len(rows))
		if err != nil {
			return err
		}

		now := s.now().UTC()
		leads := make([]domain.Lead, len(rows))
		for i, r := range rows {
			leads[i] = r.Lead
			leads[i].IDNo = ids[i]
			leads[i].IDDate = now
		}
		return tx.CreateInBatches(&leads, importBatchSize).Error
	})
	metrics.RecordDBQuery("import_leads", time.Since(start), err)
	if err != nil {
		return storeError("Import", err)
	}
	return nil
}
