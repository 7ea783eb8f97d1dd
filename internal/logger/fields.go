package logger

import (
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/ingredient-matcher/internal/matcher"
	"github.com/spigell/ingredient-matcher/internal/utils"
)

const (
	// FieldRawName is the structured log field key for the supplier item name.
	FieldRawName = "raw_name"
	// FieldIngredientID is the structured log field key for the matched ingredient.
	FieldIngredientID = "ingredient_id"
	// FieldConfidence is the structured log field key for the match confidence.
	FieldConfidence = "confidence"
	// FieldMatched tells whether a usable match was found.
	FieldMatched = "matched"

	// MaxRawNameLength caps raw names written to logs.
	MaxRawNameLength = 80
)

// StringField describes a string-valued structured logging field.
type StringField struct {
	Key   string
	Value string
}

// StringFields converts the provided key/value pairs into zap fields, trimming
// whitespace and omitting entries with empty keys or values.
func StringFields(fields ...StringField) []zap.Field {
	result := make([]zap.Field, 0, len(fields))
	for _, field := range fields {
		key := strings.TrimSpace(field.Key)
		if key == "" {
			continue
		}

		value := strings.TrimSpace(field.Value)
		if value == "" {
			continue
		}

		result = append(result, zap.String(key, value))
	}

	return result
}

// WithFields safely attaches the provided fields to the logger.
// If the logger is nil or no fields are supplied, the input logger is returned
// unchanged, defaulting to a no-op logger when nil.
func WithFields(logger *zap.Logger, fields ...zap.Field) *zap.Logger {
	if logger == nil {
		logger = zap.NewNop()
	}

	if len(fields) == 0 {
		return logger
	}

	return logger.With(fields...)
}

// MatchFields describes a match outcome. The ingredient id is only present
// when something matched.
func MatchFields(rawName string, result matcher.Result) []zap.Field {
	fields := StringFields(StringField{
		Key:   FieldRawName,
		Value: utils.TruncateForLog(rawName, MaxRawNameLength),
	})

	fields = append(fields, zap.Bool(FieldMatched, result.Found))
	if result.Found {
		fields = append(fields, zap.Int(FieldIngredientID, result.IngredientID))
	}

	return append(fields, zap.Float64(FieldConfidence, result.Confidence))
}
