package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"leadcrm/internal/config"
	"leadcrm/internal/domain"
)

// LeadIDPrefix prefixes every lead display identifier
const LeadIDPrefix = "LEAD-"

// IDGenerator hands out display identifiers for new leads. The unique index
// on id_no is the backstop for every implementation.
type IDGenerator interface {
	NextIDs(ctx context.Context, db *gorm.DB, n int) ([]string, error)
}

// NewIDGenerator returns the generator for the configured strategy
func NewIDGenerator(strategy string) IDGenerator {
	if strategy == config.IDStrategySequential {
		return SequentialIDGenerator{}
	}
	return RandomIDGenerator{}
}

// RandomIDGenerator issues LEAD-<uuid> identifiers. No coordination needed.
type RandomIDGenerator struct{}

// NextIDs implements IDGenerator
func (RandomIDGenerator) NextIDs(_ context.Context, _ *gorm.DB, n int) ([]string, error) {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = LeadIDPrefix + uuid.NewString()
	}
	return ids, nil
}

// SequentialIDGenerator issues LEAD-0001, LEAD-0002, ... by reading the most
// recently created lead and incrementing its suffix.
//
// Read-then-write race: two concurrent creates may read the same last lead
// and compute the same next identifier. The unique index rejects the second
// insert and the caller receives a conflict error.
type SequentialIDGenerator struct{}

// NextIDs implements IDGenerator
func (SequentialIDGenerator) NextIDs(ctx context.Context, db *gorm.DB, n int) ([]string, error) {
	var last domain.Lead
	err := db.WithContext(ctx).Select("id_no").Order("created_at DESC").Order("id DESC").First(&last).Error

	next := 1
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
	case err != nil:
		return nil, fmt.Errorf("failed to read last lead: %w", err)
	default:
		if seq, ok := SequenceNumber(last.IDNo); ok {
			next = seq + 1
		} else {
			// Last identifier is not sequential (strategy switched); continue after the row count
			var count int64
			if err := db.WithContext(ctx).Model(&domain.Lead{}).Count(&count).Error; err != nil {
				return nil, fmt.Errorf("failed to count leads: %w", err)
			}
			next = int(count) + 1
		}
	}

	ids := make([]string, n)
	for i := range ids {
		ids[i] = FormatSequentialID(next + i)
	}
	return ids, nil
}

// SequenceNumber parses the numeric suffix of a sequential identifier
func SequenceNumber(idNo string) (int, bool) {
	suffix, ok := strings.CutPrefix(idNo, LeadIDPrefix)
	if !ok || suffix == "" {
		return 0, false
	}
	n, err := strconv.Atoi(suffix)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// FormatSequentialID formats n zero-padded to at least four digits
func FormatSequentialID(n int) string {
	return fmt.Sprintf("%s%04d", LeadIDPrefix, n)
}
