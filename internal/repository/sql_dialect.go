package repository

import (
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// rawDataSearchKeys are the top-level webhook body keys matched by keyword search.
var rawDataSearchKeys = []string{"id", "type"}

// dbDialectName returns the dialect name, defaulting to sqlite.
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

func jsonTextExprByDialect(dialect, column, key string) string {
	switch strings.ToLower(strings.TrimSpace(dialect)) {
	case "postgres", "postgresql":
		return fmt.Sprintf("(%s::jsonb ->> '%s')", column, key)
	default:
		return fmt.Sprintf("json_extract(%s, '$.\"%s\"')", column, key)
	}
}

// buildKeywordCondition ORs a LIKE over plain columns and the raw_data keys
// of jsonColumns. It returns the condition and its placeholder count.
func buildKeywordCondition(db *gorm.DB, plainColumns, jsonColumns []string) (string, int) {
	return buildKeywordConditionByDialect(dbDialectName(db), plainColumns, jsonColumns)
}

func buildKeywordConditionByDialect(dialect string, plainColumns, jsonColumns []string) (string, int) {
	parts := make([]string, 0, len(plainColumns)+len(jsonColumns)*len(rawDataSearchKeys))
	argCount := 0
	operator := likeOperatorByDialect(dialect)

	for _, column := range plainColumns {
		trimmed := strings.TrimSpace(column)
		if trimmed == "" {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s %s ? ESCAPE '\\'", trimmed, operator))
		argCount++
	}

	for _, column := range jsonColumns {
		trimmed := strings.TrimSpace(column)
		if trimmed == "" {
			continue
		}
		for _, key := range rawDataSearchKeys {
			parts = append(parts, fmt.Sprintf("%s %s ? ESCAPE '\\'", jsonTextExprByDialect(dialect, trimmed, key), operator))
			argCount++
		}
	}

	return strings.Join(parts, " OR "), argCount
}

func likeOperatorByDialect(dialect string) string {
	switch strings.ToLower(strings.TrimSpace(dialect)) {
	case "postgres", "postgresql":
		return "ILIKE"
	default:
		return "LIKE"
	}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern wraps keyword for a LIKE match. Provider ids such as
// ch_1 carry underscores, which would otherwise match any character.
func containsPattern(keyword string) string {
	return "%" + likeEscaper.Replace(keyword) + "%"
}

func repeatLikeArgs(like string, count int) []interface{} {
	args := make([]interface{}, 0, count)
	for i := 0; i < count; i++ {
		args = append(args, like)
	}
	return args
}
