package services

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"gorm.io/gorm"

	apperrors "leadcrm/pkg/errors"
)

// ============================================================
// Lead Service Error Helpers
// ============================================================

// LeadValidation creates a validation error for the lead service
func LeadValidation(format string, args ...any) *apperrors.AppError {
	return apperrors.Newf(apperrors.ErrCodeValidation, format, args...)
}

// LeadNotFound creates a not found error for the lead service
func LeadNotFound() *apperrors.AppError {
	return apperrors.New(apperrors.ErrCodeNotFound, "Lead not found")
}

// LeadConflict creates a conflict error for the lead service
func LeadConflict(message string) *apperrors.AppError {
	return apperrors.New(apperrors.ErrCodeConflict, message)
}

// ============================================================
// Auth Service Error Helpers
// ============================================================

// AuthBadRequest creates a bad request error for the auth service
func AuthBadRequest(message string) *apperrors.AppError {
	return apperrors.New(apperrors.ErrCodeBadRequest, message)
}

// AuthUnauthorized creates an unauthorized error for the auth service
func AuthUnauthorized(message string) *apperrors.AppError {
	return apperrors.New(apperrors.ErrCodeUnauthorized, message)
}

// storeError logs a store failure with its operation name and wraps it.
// Unique-index violations surface as conflicts.
func storeError(op string, err error) error {
	if isUniqueViolation(err) {
		log.Printf("[LEAD] %s failed: unique constraint: %v", op, err)
		return apperrors.Wrap(apperrors.ErrCodeConflict, "a record with the same identifier already exists", err)
	}
	log.Printf("[LEAD] %s failed: database error: %v", op, err)
	return apperrors.Internal(op, fmt.Errorf("%s: %w", op, err))
}

// isUniqueViolation recognises duplicate-key failures from drivers that
// gorm does not translate (modernc sqlite)
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate key")
}
