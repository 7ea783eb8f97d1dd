package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/ingredient-matcher/internal/catalog"
	"github.com/spigell/ingredient-matcher/internal/logger"
	"github.com/spigell/ingredient-matcher/internal/matcher"
)

var (
	ErrInvalidInput = errors.New("raw_name cannot be empty")
	ErrNotFound     = errors.New("no match found")
	ErrNotLoaded    = errors.New("ingredients not loaded")
)

// Response is a successful single-item match.
type Response struct {
	IngredientID int     `json:"ingredient_id"`
	Name         string  `json:"name,omitempty"`
	Confidence   float64 `json:"confidence"`
}

// Service matches one raw name at a time against the store's current snapshot.
type Service struct {
	store     *catalog.Store
	threshold float64
	logger    *zap.Logger
}

// New creates the service. A non-positive threshold falls back to matcher.DefaultThreshold.
func New(store *catalog.Store, threshold float64, log *zap.Logger) *Service {
	if threshold <= 0 {
		threshold = matcher.DefaultThreshold
	}

	return &Service{
		store:     store,
		threshold: threshold,
		logger:    logger.WithFields(log),
	}
}

// Threshold returns the minimum fuzzy score the service accepts.
func (s *Service) Threshold() float64 {
	return s.threshold
}

// Store returns the canonical store behind the service.
func (s *Service) Store() *catalog.Store {
	return s.store
}

// Match returns ErrInvalidInput for a blank name and ErrNotFound when no
// candidate reaches the threshold. Confidence is rounded to 3 decimals.
func (s *Service) Match(ctx context.Context, rawName string) (*Response, error) {
	if strings.TrimSpace(rawName) == "" {
		return nil, ErrInvalidInput
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if s.store == nil || s.store.Current() == nil {
		return nil, ErrNotLoaded
	}

	snap := s.store.Current()
	result := snap.Match(rawName, s.threshold)

	s.logger.Debug("single item matched", logger.MatchFields(rawName, result)...)

	id, ok := result.ID()
	if !ok {
		return nil, fmt.Errorf("%w for '%s'", ErrNotFound, rawName)
	}

	name, _ := snap.Name(id)

	return &Response{
		IngredientID: id,
		Name:         name,
		Confidence:   math.Round(result.Confidence*1000) / 1000,
	}, nil
}
