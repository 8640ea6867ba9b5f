// Package scorer computes weighted quality scores for business listings
// and manages the manual boost lifecycle.
package scorer

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/suburbmates/directory-cli/internal/config"
	"github.com/suburbmates/directory-cli/internal/model"
)

// Factor point maxima. These sum to 100; the total is reported on the
// 0-100 scale without renormalization.
const (
	pointsName         = 10
	pointsDescFull     = 15 // >= descFullLen chars
	pointsDescPartial  = 8  // >= descPartialLen chars
	pointsPhone        = 10
	pointsEmail        = 10
	pointsWebsite      = 10
	pointsStreet       = 5
	pointsABN          = 15
	pointsCoords       = 5
	pointsCoordsOut    = 2 // coordinates present but outside the named suburb
	pointsFresh        = 10
	pointsFreshPartial = 5
	pointsImages       = 5
	pointsHours        = 3
	pointsEngagement   = 2

	descFullLen    = 150
	descPartialLen = 50
)

// SuburbLocator checks whether coordinates fall inside a named suburb's
// boundary. A nil locator disables the boundary check.
type SuburbLocator interface {
	Contains(suburb string, lon, lat float64) bool
}

// Scorer computes quality scores from business fields.
type Scorer struct {
	cfg     config.ScorerConfig
	suburbs SuburbLocator // may be nil
}

// New creates a Scorer. Zero-valued config fields fall back to the
// documented defaults (fresh 30d, stale 90d, max boost 20).
func New(cfg config.ScorerConfig, suburbs SuburbLocator) *Scorer {
	if cfg.FreshDays <= 0 {
		cfg.FreshDays = 30
	}
	if cfg.StaleDays < cfg.FreshDays {
		cfg.StaleDays = 90
	}
	if cfg.MaxBoost <= 0 {
		cfg.MaxBoost = 20
	}
	return &Scorer{cfg: cfg, suburbs: suburbs}
}

// MaxBoost returns the configured boost magnitude bound.
func (s *Scorer) MaxBoost() int { return s.cfg.MaxBoost }

// Compute calculates the full quality score for a business, applying
// whichever of the given boosts are active at now. Pure: no I/O.
func (s *Scorer) Compute(b *model.Business, boosts []model.ManualBoost, now time.Time) model.QualityScore {
	breakdown := []model.Factor{
		stringFactor("name", b.Name, pointsName),
		s.descriptionFactor(b.Description),
		stringFactor("phone", b.Phone, pointsPhone),
		stringFactor("email", b.Email, pointsEmail),
		stringFactor("website", b.Website, pointsWebsite),
		stringFactor("street_address", b.Street, pointsStreet),
		abnFactor(b),
		s.coordsFactor(b),
		s.freshnessFactor(b.UpdatedAt, now),
		boolFactor("images", b.HasImages, pointsImages),
		boolFactor("business_hours", b.ShowsHours, pointsHours),
		boolFactor("engagement", b.EngagementCount > 0, pointsEngagement),
	}

	base := 0
	for _, f := range breakdown {
		base += f.Earned
	}
	base = clamp(base)

	boostTotal := 0
	for _, bo := range boosts {
		if bo.Active(now) {
			boostTotal += bo.BoostAmount
		}
	}
	effective := clamp(base + boostTotal)

	return model.QualityScore{
		BusinessID:      b.ID,
		BaseScore:       base,
		BoostTotal:      boostTotal,
		EffectiveScore:  effective,
		Band:            model.BandFor(effective),
		Breakdown:       breakdown,
		Recommendations: recommendations(breakdown),
		CalculatedAt:    now,
	}
}

func clamp(score int) int {
	return int(math.Min(100, math.Max(0, float64(score))))
}

func stringFactor(name, value string, points int) model.Factor {
	f := model.Factor{Name: name, Max: points, Status: model.FactorMissing}
	if value != "" {
		f.Earned = points
		f.Status = model.FactorComplete
	}
	return f
}

func boolFactor(name string, ok bool, points int) model.Factor {
	f := model.Factor{Name: name, Max: points, Status: model.FactorMissing}
	if ok {
		f.Earned = points
		f.Status = model.FactorComplete
	}
	return f
}

func (s *Scorer) descriptionFactor(desc string) model.Factor {
	f := model.Factor{Name: "description", Max: pointsDescFull, Status: model.FactorMissing}
	switch {
	case len(desc) >= descFullLen:
		f.Earned = pointsDescFull
		f.Status = model.FactorComplete
	case len(desc) >= descPartialLen:
		f.Earned = pointsDescPartial
		f.Status = model.FactorPartial
	case desc != "":
		f.Status = model.FactorPartial
	}
	return f
}

func abnFactor(b *model.Business) model.Factor {
	f := model.Factor{Name: "abn_verification", Max: pointsABN, Status: model.FactorMissing}
	switch b.ABNStatus {
	case model.ABNVerified:
		f.Earned = pointsABN
		f.Status = model.FactorComplete
	case model.ABNPending:
		f.Status = model.FactorPartial
	}
	return f
}

// coordsFactor awards full points for coordinates. When a suburb
// boundary index is loaded, coordinates outside the record's named
// suburb earn partial credit instead.
func (s *Scorer) coordsFactor(b *model.Business) model.Factor {
	f := model.Factor{Name: "coordinates", Max: pointsCoords, Status: model.FactorMissing}
	if !b.HasCoordinates() {
		return f
	}
	if s.suburbs != nil && b.Suburb != "" && !s.suburbs.Contains(b.Suburb, *b.Longitude, *b.Latitude) {
		f.Earned = pointsCoordsOut
		f.Status = model.FactorPartial
		return f
	}
	f.Earned = pointsCoords
	f.Status = model.FactorComplete
	return f
}

func (s *Scorer) freshnessFactor(updatedAt time.Time, now time.Time) model.Factor {
	f := model.Factor{Name: "freshness", Max: pointsFresh, Status: model.FactorMissing}
	if updatedAt.IsZero() {
		return f
	}
	days := int(now.Sub(updatedAt).Hours() / 24)
	switch {
	case days <= s.cfg.FreshDays:
		f.Earned = pointsFresh
		f.Status = model.FactorComplete
	case days <= s.cfg.StaleDays:
		f.Earned = pointsFreshPartial
		f.Status = model.FactorPartial
	}
	return f
}

// factorMessages maps factor names to improvement advice.
var factorMessages = map[string]string{
	"name":            "add a business name",
	"description":     "expand the business description",
	"phone":           "add a contact phone number",
	"email":           "add a contact email address",
	"website":         "add a website",
	"street_address":  "add a street address",
	"abn_verification": "verify the business ABN",
	"coordinates":     "set the business location on the map",
	"freshness":       "update the profile to keep it current",
	"images":          "upload at least one image",
	"business_hours":  "display business hours",
	"engagement":      "respond to customer enquiries",
}

// recommendations ranks incomplete factors by expected score gain.
func recommendations(breakdown []model.Factor) []model.Recommendation {
	var recs []model.Recommendation
	for _, f := range breakdown {
		gain := f.Max - f.Earned
		if gain <= 0 {
			continue
		}
		recs = append(recs, model.Recommendation{
			Factor:   f.Name,
			Gain:     gain,
			Priority: gainPriority(gain),
			Message:  fmt.Sprintf("%s (+%d points)", factorMessages[f.Name], gain),
		})
	}
	sort.SliceStable(recs, func(i, j int) bool { return recs[i].Gain > recs[j].Gain })
	return recs
}

func gainPriority(gain int) model.MergePriority {
	switch {
	case gain >= 10:
		return model.PriorityHigh
	case gain >= 5:
		return model.PriorityMedium
	default:
		return model.PriorityLow
	}
}
