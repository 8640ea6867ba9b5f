package scorer

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/suburbmates/directory-cli/internal/business"
	"github.com/suburbmates/directory-cli/internal/model"
)

// ErrInvalidBoost marks boost requests rejected by validation. The HTTP
// layer maps it to a 400 response.
var ErrInvalidBoost = eris.New("scorer: invalid boost")

// BoostRequest describes a manual score adjustment.
type BoostRequest struct {
	BusinessID int64      `json:"business_id"`
	Amount     int        `json:"boost_amount"`
	Reason     string     `json:"reason"`
	Category   string     `json:"category,omitempty"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
}

// Service ties the pure scorer to the store: it computes scores,
// persists the cached effective score, and manages boost records.
type Service struct {
	store  business.Store
	scorer *Scorer
}

// NewService creates a scoring service.
func NewService(store business.Store, scorer *Scorer) *Service {
	return &Service{store: store, scorer: scorer}
}

// Calculate recomputes the quality score for one business and refreshes
// the cached value in the store.
func (s *Service) Calculate(ctx context.Context, businessID int64) (*model.QualityScore, error) {
	b, err := s.store.GetBusiness(ctx, businessID)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, business.ErrNotFound
	}

	boosts, err := s.store.ListBoosts(ctx, businessID)
	if err != nil {
		return nil, err
	}

	score := s.scorer.Compute(b, boosts, time.Now().UTC())
	if score.EffectiveScore != b.QualityScore {
		if err := s.store.UpdateQualityScore(ctx, businessID, score.EffectiveScore); err != nil {
			return nil, err
		}
	}
	return &score, nil
}

// ApplyBoost validates and records a manual boost, then recomputes the
// score from scratch so the boost never drifts from the stored value.
func (s *Service) ApplyBoost(ctx context.Context, req BoostRequest) (*model.ManualBoost, *model.QualityScore, error) {
	if req.Amount == 0 {
		return nil, nil, eris.Wrap(ErrInvalidBoost, "boost amount must be non-zero")
	}
	if max := s.scorer.MaxBoost(); req.Amount > max || req.Amount < -max {
		return nil, nil, eris.Wrapf(ErrInvalidBoost, "boost amount must be within ±%d", max)
	}
	if strings.TrimSpace(req.Reason) == "" {
		return nil, nil, eris.Wrap(ErrInvalidBoost, "a reason is required")
	}
	if req.ExpiresAt != nil && req.ExpiresAt.Before(time.Now()) {
		return nil, nil, eris.Wrap(ErrInvalidBoost, "expiry must be in the future")
	}

	before, err := s.Calculate(ctx, req.BusinessID)
	if err != nil {
		return nil, nil, err
	}

	boost := &model.ManualBoost{
		ID:            uuid.New().String(),
		BusinessID:    req.BusinessID,
		OriginalScore: before.EffectiveScore,
		BoostAmount:   req.Amount,
		Reason:        strings.TrimSpace(req.Reason),
		Category:      req.Category,
		ExpiresAt:     req.ExpiresAt,
	}
	// NewScore is filled after recompute; seed it with the naive sum so
	// the row is never persisted with a zero.
	boost.NewScore = clamp(before.EffectiveScore + req.Amount)

	if err := s.store.CreateBoost(ctx, boost); err != nil {
		return nil, nil, err
	}

	after, err := s.Calculate(ctx, req.BusinessID)
	if err != nil {
		return nil, nil, err
	}
	boost.NewScore = after.EffectiveScore

	zap.L().Info("scorer: boost applied",
		zap.String("boost_id", boost.ID),
		zap.Int64("business_id", req.BusinessID),
		zap.Int("amount", req.Amount),
		zap.Int("score_before", before.EffectiveScore),
		zap.Int("score_after", after.EffectiveScore),
	)
	return boost, after, nil
}

// RemoveBoost deletes a boost and recomputes the business score from
// the remaining factors and boosts.
func (s *Service) RemoveBoost(ctx context.Context, boostID string) (*model.QualityScore, error) {
	boost, err := s.store.GetBoost(ctx, boostID)
	if err != nil {
		return nil, err
	}
	if boost == nil {
		return nil, business.ErrNotFound
	}

	if err := s.store.DeleteBoost(ctx, boostID); err != nil {
		return nil, err
	}

	after, err := s.Calculate(ctx, boost.BusinessID)
	if err != nil {
		return nil, err
	}

	zap.L().Info("scorer: boost removed",
		zap.String("boost_id", boostID),
		zap.Int64("business_id", boost.BusinessID),
		zap.Int("score_after", after.EffectiveScore),
	)
	return after, nil
}

// RescoreAll recomputes scores for every business matching the filter,
// with bounded concurrency. Returns the number of businesses rescored.
func (s *Service) RescoreAll(ctx context.Context, f business.Filter, workers int) (int, error) {
	if workers <= 0 {
		workers = 4
	}
	if f.Limit <= 0 {
		f.Limit = 10000
	}

	list, err := s.store.ListBusinesses(ctx, f)
	if err != nil {
		return 0, err
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range list {
		b := list[i]
		g.Go(func() error {
			_, err := s.Calculate(ctx, b.ID)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return 0, eris.Wrap(err, "scorer: rescore all")
	}

	zap.L().Info("scorer: rescore complete", zap.Int("count", len(list)))
	return len(list), nil
}
