package logger

import (
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spigell/ingredient-matcher/internal/matcher"
)

func TestStringFields(t *testing.T) {
	fields := StringFields(
		StringField{Key: "  source  ", Value: "  ingredients.csv  "},
		StringField{Key: "ignored", Value: "   "},
		StringField{Key: "   ", Value: "empty key"},
	)

	if len(fields) != 1 {
		t.Fatalf("expected 1 field, got %d", len(fields))
	}

	if fields[0].Key != "source" || fields[0].String != "ingredients.csv" {
		t.Fatalf("unexpected source field: %+v", fields[0])
	}

	empty := StringFields()
	if len(empty) != 0 {
		t.Fatalf("expected empty fields, got %d", len(empty))
	}
}

func TestWithFields(t *testing.T) {
	core, observed := observer.New(zapcore.InfoLevel)
	logger := zap.New(core)

	enriched := WithFields(logger, zap.String("foo", "bar"))
	enriched.Info("test log")

	entries := observed.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}

	ctx := entries[0].ContextMap()
	if ctx["foo"] != "bar" {
		t.Fatalf("expected field to be bar, got %q", ctx["foo"])
	}

	enriched = WithFields(nil, zap.String("baz", "qux"))
	if enriched == nil {
		t.Fatalf("expected fallback logger when nil provided")
	}

	// Ensure logging with the fallback logger does not panic.
	enriched.Info("another log")
}

func TestMatchFields(t *testing.T) {
	core, observed := observer.New(zapcore.InfoLevel)
	logger := zap.New(core)

	logger.Info("matched", MatchFields("TOMATOES 1kg pack", matcher.Result{IngredientID: 1, Found: true, Confidence: 0.857})...)
	logger.Info("not matched", MatchFields(strings.Repeat("x", MaxRawNameLength+10), matcher.Result{})...)

	entries := observed.All()
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}

	matched := entries[0].ContextMap()
	if matched[FieldIngredientID] != int64(1) || matched[FieldMatched] != true {
		t.Fatalf("unexpected matched fields: %v", matched)
	}
	if matched[FieldConfidence] != 0.857 {
		t.Fatalf("unexpected confidence: %v", matched[FieldConfidence])
	}

	missing := entries[1].ContextMap()
	if _, ok := missing[FieldIngredientID]; ok {
		t.Fatalf("expected no ingredient id for absent match")
	}
	if raw, _ := missing[FieldRawName].(string); !strings.HasSuffix(raw, "...") {
		t.Fatalf("expected truncated raw name, got %q", raw)
	}
}
