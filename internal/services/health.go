package services

import (
	"context"
	"log"

	"gorm.io/gorm"

	"leadcrm/internal/database"
	"leadcrm/internal/metrics"
)

// HealthResult is the health check response
type HealthResult struct {
	Status   string `json:"status"`
	Service  string `json:"service"`
	Database string `json:"database"`
}

// HealthService implements the health service
type HealthService struct {
	db      *gorm.DB
	service string
}

// NewHealthService creates a new health service
func NewHealthService(db *gorm.DB, service string) *HealthService {
	return &HealthService{db: db, service: service}
}

// Check reports service and database health. A failed ping degrades the
// status but is not an error.
func (s *HealthService) Check(ctx context.Context) *HealthResult {
	result := &HealthResult{Status: "healthy", Service: s.service, Database: "up"}

	if err := database.Ping(s.db.WithContext(ctx)); err != nil {
		log.Printf("[DB] Health check ping failed: %v", err)
		result.Status = "degraded"
		result.Database = "down"
		return result
	}

	if stats, err := database.GetStats(s.db); err == nil {
		metrics.UpdateDBConnections(stats.InUse, stats.Idle)
	}
	return result
}
