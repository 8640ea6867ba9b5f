// Package business persists directory listings, manual quality boosts,
// and the merge operation over both.
package business

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/suburbmates/directory-cli/internal/model"
)

// ErrNotFound is returned by service-level lookups for unknown IDs.
// Store Get methods return (nil, nil) for absent rows; callers that need
// an error translate through this sentinel.
var ErrNotFound = eris.New("business: not found")

// Filter specifies criteria for listing businesses.
type Filter struct {
	Suburb         string               `json:"suburb,omitempty"`
	ApprovalStatus model.ApprovalStatus `json:"approval_status,omitempty"`
	MinScore       *int                 `json:"min_score,omitempty"`
	MaxScore       *int                 `json:"max_score,omitempty"`
	Limit          int                  `json:"limit,omitempty"`
	Offset         int                  `json:"offset,omitempty"`
}

// Store defines persistence operations for the directory data model.
type Store interface {
	// Businesses
	CreateBusiness(ctx context.Context, b *model.Business) error
	UpdateBusiness(ctx context.Context, b *model.Business) error
	GetBusiness(ctx context.Context, id int64) (*model.Business, error)
	ListBusinesses(ctx context.Context, f Filter) ([]model.Business, error)
	UpdateQualityScore(ctx context.Context, id int64, score int) error

	// Boosts
	CreateBoost(ctx context.Context, b *model.ManualBoost) error
	GetBoost(ctx context.Context, id string) (*model.ManualBoost, error)
	ListBoosts(ctx context.Context, businessID int64) ([]model.ManualBoost, error)
	DeleteBoost(ctx context.Context, id string) error
	PurgeExpiredBoosts(ctx context.Context) (int64, error)

	// Merge folds duplicate records into the primary in one transaction:
	// empty primary fields are backfilled from the duplicates, boosts are
	// re-pointed, and the duplicate rows are deleted.
	MergeBusinesses(ctx context.Context, primaryID int64, duplicateIDs []int64) (*model.Business, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// backfill copies each empty field of primary from the first duplicate
// that has a value. Returns the list of backfilled field names.
func backfill(primary *model.Business, dups []model.Business) []string {
	var filled []string
	set := func(name string, dst *string, src string) {
		if *dst == "" && src != "" {
			*dst = src
			filled = append(filled, name)
		}
	}
	for i := range dups {
		d := &dups[i]
		set("street", &primary.Street, d.Street)
		set("phone", &primary.Phone, d.Phone)
		set("email", &primary.Email, d.Email)
		set("website", &primary.Website, d.Website)
		set("category", &primary.Category, d.Category)
		set("description", &primary.Description, d.Description)
		if primary.ABN == "" && d.ABN != "" {
			primary.ABN = d.ABN
			primary.ABNStatus = d.ABNStatus
			filled = append(filled, "abn")
		}
		if !primary.HasCoordinates() && d.HasCoordinates() {
			primary.Latitude = d.Latitude
			primary.Longitude = d.Longitude
			filled = append(filled, "coordinates")
		}
		if d.HasImages {
			primary.HasImages = true
		}
		if d.ShowsHours {
			primary.ShowsHours = true
		}
		primary.EngagementCount += d.EngagementCount
	}
	return filled
}
