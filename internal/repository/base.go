package repository

import (
	"warbler/internal/database"

	"gorm.io/gorm"
)

// MaxRows caps every list query.
const MaxRows = 100

func readDB(primary *gorm.DB) *gorm.DB {
	if db := database.GetReadDB(); db != nil {
		return db
	}
	return primary
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > MaxRows {
		return MaxRows
	}
	return limit
}

// isUniqueConstraintError checks if a DB error is a unique constraint violation.
func isUniqueConstraintError(err error) bool {
	return database.IsUniqueViolation(err)
}
