package scorer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suburbmates/directory-cli/internal/business"
	"github.com/suburbmates/directory-cli/internal/config"
	"github.com/suburbmates/directory-cli/internal/model"
)

// memStore is an in-memory Store for exercising the service layer
// without a database.
type memStore struct {
	businesses map[int64]*model.Business
	boosts     map[string]*model.ManualBoost
}

func newMemStore(bs ...*model.Business) *memStore {
	s := &memStore{
		businesses: make(map[int64]*model.Business),
		boosts:     make(map[string]*model.ManualBoost),
	}
	for _, b := range bs {
		s.businesses[b.ID] = b
	}
	return s
}

func (s *memStore) CreateBusiness(_ context.Context, b *model.Business) error {
	s.businesses[b.ID] = b
	return nil
}

func (s *memStore) UpdateBusiness(_ context.Context, b *model.Business) error {
	s.businesses[b.ID] = b
	return nil
}

func (s *memStore) GetBusiness(_ context.Context, id int64) (*model.Business, error) {
	b, ok := s.businesses[id]
	if !ok {
		return nil, nil
	}
	cp := *b
	return &cp, nil
}

func (s *memStore) ListBusinesses(_ context.Context, _ business.Filter) ([]model.Business, error) {
	var out []model.Business
	for _, b := range s.businesses {
		out = append(out, *b)
	}
	return out, nil
}

func (s *memStore) UpdateQualityScore(_ context.Context, id int64, score int) error {
	b, ok := s.businesses[id]
	if !ok {
		return business.ErrNotFound
	}
	b.QualityScore = score
	return nil
}

func (s *memStore) CreateBoost(_ context.Context, b *model.ManualBoost) error {
	b.CreatedAt = time.Now().UTC()
	cp := *b
	s.boosts[b.ID] = &cp
	return nil
}

func (s *memStore) GetBoost(_ context.Context, id string) (*model.ManualBoost, error) {
	b, ok := s.boosts[id]
	if !ok {
		return nil, nil
	}
	cp := *b
	return &cp, nil
}

func (s *memStore) ListBoosts(_ context.Context, businessID int64) ([]model.ManualBoost, error) {
	var out []model.ManualBoost
	for _, b := range s.boosts {
		if b.BusinessID == businessID {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (s *memStore) DeleteBoost(_ context.Context, id string) error {
	if _, ok := s.boosts[id]; !ok {
		return business.ErrNotFound
	}
	delete(s.boosts, id)
	return nil
}

func (s *memStore) PurgeExpiredBoosts(_ context.Context) (int64, error) { return 0, nil }

func (s *memStore) MergeBusinesses(_ context.Context, _ int64, _ []int64) (*model.Business, error) {
	return nil, nil
}

func (s *memStore) Migrate(_ context.Context) error { return nil }
func (s *memStore) Close() error                    { return nil }

func newTestService(bs ...*model.Business) (*Service, *memStore) {
	store := newMemStore(bs...)
	return NewService(store, New(config.ScorerConfig{}, nil)), store
}

func TestApplyBoost_Validation(t *testing.T) {
	svc, _ := newTestService(&model.Business{ID: 1, Name: "A", Suburb: "Kew", UpdatedAt: time.Now()})
	past := time.Now().Add(-time.Hour)

	tests := []struct {
		name string
		req  BoostRequest
	}{
		{"zero amount", BoostRequest{BusinessID: 1, Amount: 0, Reason: "x"}},
		{"over max", BoostRequest{BusinessID: 1, Amount: 21, Reason: "x"}},
		{"under negative max", BoostRequest{BusinessID: 1, Amount: -21, Reason: "x"}},
		{"blank reason", BoostRequest{BusinessID: 1, Amount: 5, Reason: "   "}},
		{"expired already", BoostRequest{BusinessID: 1, Amount: 5, Reason: "x", ExpiresAt: &past}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := svc.ApplyBoost(context.Background(), tt.req)
			assert.ErrorIs(t, err, ErrInvalidBoost)
		})
	}
}

func TestApplyBoost_UnknownBusiness(t *testing.T) {
	svc, _ := newTestService()
	_, _, err := svc.ApplyBoost(context.Background(), BoostRequest{BusinessID: 404, Amount: 5, Reason: "x"})
	assert.ErrorIs(t, err, business.ErrNotFound)
}

func TestApplyThenRemoveBoost_RestoresScore(t *testing.T) {
	now := time.Now().UTC()
	b := &model.Business{ID: 1, Name: "Smith Plumbing", Suburb: "Richmond", Phone: "+61412345678", UpdatedAt: now}
	svc, store := newTestService(b)

	before, err := svc.Calculate(context.Background(), 1)
	require.NoError(t, err)

	boost, after, err := svc.ApplyBoost(context.Background(), BoostRequest{
		BusinessID: 1, Amount: 10, Reason: "launch promotion",
	})
	require.NoError(t, err)
	assert.Equal(t, before.EffectiveScore+10, after.EffectiveScore)
	assert.Equal(t, before.EffectiveScore, boost.OriginalScore)
	assert.Equal(t, after.EffectiveScore, boost.NewScore)
	assert.Equal(t, after.EffectiveScore, store.businesses[1].QualityScore, "cached score follows boost")

	restored, err := svc.RemoveBoost(context.Background(), boost.ID)
	require.NoError(t, err)
	assert.Equal(t, before.EffectiveScore, restored.EffectiveScore, "removal restores the pre-boost score")
	assert.Equal(t, before.EffectiveScore, store.businesses[1].QualityScore)
}

func TestRemoveBoost_Unknown(t *testing.T) {
	svc, _ := newTestService()
	_, err := svc.RemoveBoost(context.Background(), "missing")
	assert.ErrorIs(t, err, business.ErrNotFound)
}

func TestCalculate_CachesEffectiveScore(t *testing.T) {
	now := time.Now().UTC()
	b := &model.Business{ID: 2, Name: "Cafe", Suburb: "Fitzroy", Email: "hi@cafe.example", UpdatedAt: now}
	svc, store := newTestService(b)

	score, err := svc.Calculate(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, score.EffectiveScore, store.businesses[2].QualityScore)
}

func TestRescoreAll(t *testing.T) {
	now := time.Now().UTC()
	svc, store := newTestService(
		&model.Business{ID: 1, Name: "A", Suburb: "Kew", UpdatedAt: now},
		&model.Business{ID: 2, Name: "B", Suburb: "Kew", Phone: "+61400000000", UpdatedAt: now},
		&model.Business{ID: 3, Name: "C", Suburb: "Kew", Email: "c@c.example", UpdatedAt: now},
	)

	n, err := svc.RescoreAll(context.Background(), business.Filter{}, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	for id, b := range store.businesses {
		assert.Positive(t, b.QualityScore, "business %d should have a cached score", id)
	}
}
