package scorer

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/suburbmates/directory-cli/internal/config"
	"github.com/suburbmates/directory-cli/internal/model"
)

func TestMain(m *testing.M) {
	zap.ReplaceGlobals(zap.NewNop())
	m.Run()
}

func fullBusiness(now time.Time) *model.Business {
	lat, lon := -37.82, 144.99
	return &model.Business{
		ID:              1,
		Name:            "Smith Plumbing",
		Suburb:          "Richmond",
		Street:          "12 Swan St",
		Phone:           "+61412345678",
		Email:           "info@smithplumbing.example",
		Website:         "https://smithplumbing.example",
		Description:     strings.Repeat("Reliable local plumbing services. ", 6),
		Latitude:        &lat,
		Longitude:       &lon,
		ABN:             "12345678901",
		ABNStatus:       model.ABNVerified,
		HasImages:       true,
		ShowsHours:      true,
		EngagementCount: 4,
		UpdatedAt:       now.Add(-24 * time.Hour),
	}
}

func TestCompute_FullProfileScoresMaximum(t *testing.T) {
	now := time.Now().UTC()
	s := New(config.ScorerConfig{}, nil)

	score := s.Compute(fullBusiness(now), nil, now)

	assert.Equal(t, 100, score.BaseScore)
	assert.Equal(t, 100, score.EffectiveScore)
	assert.Equal(t, model.BandExcellent, score.Band)
	assert.Empty(t, score.Recommendations)
}

func TestCompute_SparseStaleProfileIsLowBand(t *testing.T) {
	now := time.Now().UTC()
	s := New(config.ScorerConfig{}, nil)

	b := &model.Business{
		ID:        2,
		Name:      "Old Listing",
		Suburb:    "Carlton",
		UpdatedAt: now.Add(-200 * 24 * time.Hour),
	}
	score := s.Compute(b, nil, now)

	assert.Less(t, score.EffectiveScore, 50)
	assert.Equal(t, model.BandLow, score.Band)
	assert.NotEmpty(t, score.Recommendations)
}

func TestCompute_ScoreStaysWithinBounds(t *testing.T) {
	now := time.Now().UTC()
	s := New(config.ScorerConfig{}, nil)
	b := fullBusiness(now)

	boosts := []model.ManualBoost{
		{ID: "a", BusinessID: b.ID, BoostAmount: 20, Reason: "featured"},
		{ID: "b", BusinessID: b.ID, BoostAmount: 20, Reason: "sponsor"},
	}
	score := s.Compute(b, boosts, now)
	assert.Equal(t, 100, score.EffectiveScore, "boosts never push past 100")

	penalty := []model.ManualBoost{{ID: "c", BusinessID: 3, BoostAmount: -20, Reason: "spam report"}}
	low := s.Compute(&model.Business{ID: 3}, penalty, now)
	assert.GreaterOrEqual(t, low.EffectiveScore, 0, "penalties never push below 0")
}

func TestCompute_ExpiredBoostIgnored(t *testing.T) {
	now := time.Now().UTC()
	past := now.Add(-time.Hour)
	s := New(config.ScorerConfig{}, nil)
	b := &model.Business{ID: 4, Name: "Cafe", Suburb: "Fitzroy", UpdatedAt: now}

	active := s.Compute(b, []model.ManualBoost{{BoostAmount: 10, Reason: "promo"}}, now)
	expired := s.Compute(b, []model.ManualBoost{{BoostAmount: 10, Reason: "promo", ExpiresAt: &past}}, now)

	assert.Equal(t, active.BaseScore+10, active.EffectiveScore)
	assert.Equal(t, expired.BaseScore, expired.EffectiveScore)
	assert.Zero(t, expired.BoostTotal)
}

func TestDescriptionFactor_Tiers(t *testing.T) {
	s := New(config.ScorerConfig{}, nil)

	tests := []struct {
		name   string
		desc   string
		earned int
		status model.FactorStatus
	}{
		{"empty", "", 0, model.FactorMissing},
		{"too short", "A plumber.", 0, model.FactorPartial},
		{"partial", strings.Repeat("x", 80), pointsDescPartial, model.FactorPartial},
		{"full", strings.Repeat("x", 200), pointsDescFull, model.FactorComplete},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := s.descriptionFactor(tt.desc)
			assert.Equal(t, tt.earned, f.Earned)
			assert.Equal(t, tt.status, f.Status)
		})
	}
}

func TestABNFactor(t *testing.T) {
	verified := abnFactor(&model.Business{ABN: "1", ABNStatus: model.ABNVerified})
	assert.Equal(t, pointsABN, verified.Earned)
	assert.Equal(t, model.FactorComplete, verified.Status)

	pending := abnFactor(&model.Business{ABN: "1", ABNStatus: model.ABNPending})
	assert.Zero(t, pending.Earned)
	assert.Equal(t, model.FactorPartial, pending.Status)

	none := abnFactor(&model.Business{})
	assert.Zero(t, none.Earned)
	assert.Equal(t, model.FactorMissing, none.Status)
}

type stubLocator struct{ inside bool }

func (l stubLocator) Contains(string, float64, float64) bool { return l.inside }

func TestCoordsFactor_UsesLocator(t *testing.T) {
	lat, lon := -37.82, 144.99
	b := &model.Business{Suburb: "Richmond", Latitude: &lat, Longitude: &lon}

	inside := New(config.ScorerConfig{}, stubLocator{inside: true}).coordsFactor(b)
	assert.Equal(t, pointsCoords, inside.Earned)

	outside := New(config.ScorerConfig{}, stubLocator{inside: false}).coordsFactor(b)
	assert.Equal(t, pointsCoordsOut, outside.Earned)
	assert.Equal(t, model.FactorPartial, outside.Status)

	noLocator := New(config.ScorerConfig{}, nil).coordsFactor(b)
	assert.Equal(t, pointsCoords, noLocator.Earned)
}

func TestFreshnessFactor_Tiers(t *testing.T) {
	now := time.Now().UTC()
	s := New(config.ScorerConfig{FreshDays: 30, StaleDays: 90}, nil)

	fresh := s.freshnessFactor(now.Add(-10*24*time.Hour), now)
	assert.Equal(t, pointsFresh, fresh.Earned)

	aging := s.freshnessFactor(now.Add(-60*24*time.Hour), now)
	assert.Equal(t, pointsFreshPartial, aging.Earned)

	stale := s.freshnessFactor(now.Add(-120*24*time.Hour), now)
	assert.Zero(t, stale.Earned)

	never := s.freshnessFactor(time.Time{}, now)
	assert.Zero(t, never.Earned)
	assert.Equal(t, model.FactorMissing, never.Status)
}

func TestRecommendations_SortedByGain(t *testing.T) {
	now := time.Now().UTC()
	s := New(config.ScorerConfig{}, nil)

	b := &model.Business{ID: 5, Name: "Bare Listing", Suburb: "Kew", UpdatedAt: now}
	score := s.Compute(b, nil, now)

	require.NotEmpty(t, score.Recommendations)
	for i := 1; i < len(score.Recommendations); i++ {
		assert.GreaterOrEqual(t, score.Recommendations[i-1].Gain, score.Recommendations[i].Gain)
	}
	top := score.Recommendations[0]
	assert.Equal(t, model.PriorityHigh, top.Priority)
	assert.Contains(t, top.Message, "points")
}

func TestBandBoundaries(t *testing.T) {
	assert.Equal(t, model.BandExcellent, model.BandFor(80))
	assert.Equal(t, model.BandGood, model.BandFor(79))
	assert.Equal(t, model.BandGood, model.BandFor(65))
	assert.Equal(t, model.BandFair, model.BandFor(64))
	assert.Equal(t, model.BandFair, model.BandFor(50))
	assert.Equal(t, model.BandLow, model.BandFor(49))
}
