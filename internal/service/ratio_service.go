package service

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/dkrasov/postline/internal/models"
	"github.com/dkrasov/postline/internal/repository"
)

// ratioEpsilon is the tolerance on the ratios-sum-to-one invariant.
const ratioEpsilon = 0.001

type RatioService interface {
	// GetCurrent returns the current ratio per category. An empty map means
	// no constraint is configured and all categories form one pool.
	GetCurrent(ctx context.Context, tenantID int64) (map[string]float64, error)
	// SetRatios validates and atomically replaces the current ratio set,
	// preserving the previous rows as closed history (Type-2 SCD).
	SetRatios(ctx context.Context, tenantID int64, ratios map[string]float64, actor string) error
	History(ctx context.Context, tenantID int64) ([]*models.CategoryRatio, error)
}

type ratioService struct {
	rr repository.RatioRepository
}

func NewRatioService(rr repository.RatioRepository) RatioService {
	return &ratioService{rr: rr}
}

func (s *ratioService) GetCurrent(ctx context.Context, tenantID int64) (map[string]float64, error) {
	rows, err := s.rr.GetCurrent(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	ratios := make(map[string]float64, len(rows))
	for _, row := range rows {
		ratios[row.Category] = row.Ratio
	}
	return ratios, nil
}

func (s *ratioService) SetRatios(ctx context.Context, tenantID int64, ratios map[string]float64, actor string) error {
	if err := validateRatios(ratios); err != nil {
		slog.Info(err.Error())
		return err
	}
	return s.rr.ReplaceCurrent(ctx, tenantID, ratios, actor, time.Now().UTC())
}

func (s *ratioService) History(ctx context.Context, tenantID int64) ([]*models.CategoryRatio, error) {
	return s.rr.ListHistory(ctx, tenantID)
}

// validateRatios rejects the whole set before any write: every ratio in
// [0,1] and the sum equal to 1 within tolerance.
func validateRatios(ratios map[string]float64) error {
	if len(ratios) == 0 {
		return &ValidationError{Reason: "at least one category ratio is required"}
	}

	sum := 0.0
	for category, ratio := range ratios {
		if category == "" {
			return &ValidationError{Reason: "category name cannot be empty"}
		}
		if ratio < 0 || ratio > 1 {
			return &ValidationError{Reason: fmt.Sprintf("ratio for %q must be between 0 and 1", category)}
		}
		sum += ratio
	}

	if math.Abs(sum-1.0) > ratioEpsilon {
		return &ValidationError{Reason: fmt.Sprintf("ratios must sum to 1.0, got %.4f", sum)}
	}
	return nil
}
