// Package model defines the core data types for the directory toolkit.
package model

import "time"

// ApprovalStatus represents the moderation state of a business listing.
type ApprovalStatus string

const (
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalRejected ApprovalStatus = "rejected"
)

// ABNStatus represents the verification state of a business's ABN.
type ABNStatus string

const (
	ABNVerified ABNStatus = "verified"
	ABNPending  ABNStatus = "pending"
	ABNNone     ABNStatus = "none"
)

// Business is a directory listing record.
type Business struct {
	ID              int64          `json:"id"`
	Name            string         `json:"name"`
	Suburb          string         `json:"suburb"`
	Street          string         `json:"street,omitempty"`
	Phone           string         `json:"phone,omitempty"`
	Email           string         `json:"email,omitempty"`
	Website         string         `json:"website,omitempty"`
	Category        string         `json:"category,omitempty"`
	Description     string         `json:"description,omitempty"`
	Latitude        *float64       `json:"latitude,omitempty"`
	Longitude       *float64       `json:"longitude,omitempty"`
	ABN             string         `json:"abn,omitempty"`
	ABNStatus       ABNStatus      `json:"abn_status"`
	ApprovalStatus  ApprovalStatus `json:"approval_status"`
	HasImages       bool           `json:"has_images"`
	ShowsHours      bool           `json:"shows_hours"`
	EngagementCount int            `json:"engagement_count"`
	QualityScore    int            `json:"quality_score"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// HasCoordinates reports whether both latitude and longitude are set.
func (b *Business) HasCoordinates() bool {
	return b.Latitude != nil && b.Longitude != nil
}

// MatchType classifies how a duplicate pair was detected.
type MatchType string

const (
	// MatchStrict means the pair shares an exact-match key
	// (phone, website hostname, or name+suburb).
	MatchStrict MatchType = "strict"
	// MatchLoose means the pair is in the same suburb with
	// fuzzy-similar names.
	MatchLoose MatchType = "loose"
)

// MergePriority ranks how urgently a duplicate group should be resolved.
type MergePriority string

const (
	PriorityHigh   MergePriority = "high"
	PriorityMedium MergePriority = "medium"
	PriorityLow    MergePriority = "low"
)

// MergeRecommendation suggests how to resolve a duplicate group.
type MergeRecommendation struct {
	SuggestedPrimaryID int64         `json:"suggested_primary_id"`
	Priority           MergePriority `json:"priority"`
	Reasoning          string        `json:"reasoning"`
	// PotentialDataLoss lists fields where a non-primary record holds a
	// conflicting value that a merge would discard.
	PotentialDataLoss []string `json:"potential_data_loss,omitempty"`
}

// DuplicateGroup is a set of businesses considered duplicates of each other.
// Groups are derived on demand and never persisted.
type DuplicateGroup struct {
	Businesses     []Business          `json:"businesses"`
	MatchType      MatchType           `json:"match_type"`
	Confidence     int                 `json:"confidence"`
	Recommendation MergeRecommendation `json:"recommendation"`
}

// FactorStatus describes how completely a scoring factor is satisfied.
type FactorStatus string

const (
	FactorComplete FactorStatus = "complete"
	FactorPartial  FactorStatus = "partial"
	FactorMissing  FactorStatus = "missing"
)

// Factor is one line of a quality score breakdown.
type Factor struct {
	Name   string       `json:"name"`
	Earned int          `json:"earned"`
	Max    int          `json:"max"`
	Status FactorStatus `json:"status"`
}

// Recommendation suggests a profile improvement and its expected gain.
type Recommendation struct {
	Factor   string        `json:"factor"`
	Gain     int           `json:"gain"`
	Priority MergePriority `json:"priority"`
	Message  string        `json:"message"`
}

// QualityBand buckets effective scores for admin filtering.
type QualityBand string

const (
	BandExcellent QualityBand = "excellent" // >= 80
	BandGood      QualityBand = "good"      // >= 65
	BandFair      QualityBand = "fair"      // >= 50
	BandLow       QualityBand = "low"       // < 50
)

// QualityScore is the full scoring result for one business.
type QualityScore struct {
	BusinessID      int64            `json:"business_id"`
	BaseScore       int              `json:"base_score"`
	BoostTotal      int              `json:"boost_total"`
	EffectiveScore  int              `json:"effective_score"`
	Band            QualityBand      `json:"band"`
	Breakdown       []Factor         `json:"breakdown"`
	Recommendations []Recommendation `json:"recommendations,omitempty"`
	CalculatedAt    time.Time        `json:"calculated_at"`
}

// ManualBoost is an admin-applied score adjustment.
type ManualBoost struct {
	ID            string     `json:"id"`
	BusinessID    int64      `json:"business_id"`
	OriginalScore int        `json:"original_score"`
	BoostAmount   int        `json:"boost_amount"`
	NewScore      int        `json:"new_score"`
	Reason        string     `json:"reason"`
	Category      string     `json:"category"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// Active reports whether the boost still applies at the given time.
func (b *ManualBoost) Active(now time.Time) bool {
	return b.ExpiresAt == nil || b.ExpiresAt.After(now)
}

// BandFor returns the quality band for an effective score.
func BandFor(score int) QualityBand {
	switch {
	case score >= 80:
		return BandExcellent
	case score >= 65:
		return BandGood
	case score >= 50:
		return BandFair
	default:
		return BandLow
	}
}
