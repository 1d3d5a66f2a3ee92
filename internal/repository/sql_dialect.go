package repository

import (
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// dbDialectName defaults to sqlite when the dialector is unknown.
func dbDialectName(db *gorm.DB) string {
	if db == nil || db.Dialector == nil {
		return "sqlite"
	}
	name := strings.ToLower(strings.TrimSpace(db.Dialector.Name()))
	if name == "" {
		return "sqlite"
	}
	return name
}

// buildLikeCondition ORs a case-insensitive LIKE over the columns and returns the placeholder count.
func buildLikeCondition(db *gorm.DB, columns []string) (string, int) {
	return buildLikeConditionByDialect(dbDialectName(db), columns)
}

func buildLikeConditionByDialect(dialect string, columns []string) (string, int) {
	parts := make([]string, 0, len(columns))
	for _, column := range columns {
		trimmed := strings.TrimSpace(column)
		if trimmed == "" {
			continue
		}
		switch strings.ToLower(strings.TrimSpace(dialect)) {
		case "postgres", "postgresql":
			parts = append(parts, fmt.Sprintf("%s ILIKE ?", trimmed))
		default:
			// sqlite LIKE is case-insensitive for ASCII only
			parts = append(parts, fmt.Sprintf("LOWER(%s) LIKE ?", trimmed))
		}
	}
	return strings.Join(parts, " OR "), len(parts)
}

// repeatLikeArgs repeats the pattern once per placeholder.
func repeatLikeArgs(like string, count int) []interface{} {
	args := make([]interface{}, 0, count)
	for i := 0; i < count; i++ {
		args = append(args, like)
	}
	return args
}
