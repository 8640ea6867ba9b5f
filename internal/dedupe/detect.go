package dedupe

import (
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/suburbmates/directory-cli/internal/model"
)

// DefaultLooseThreshold is the minimum name similarity for a loose match.
const DefaultLooseThreshold = 0.8

// Detector runs pairwise duplicate classification over a record set and
// aggregates matches into groups.
type Detector struct {
	looseThreshold float64
}

// NewDetector creates a Detector. A non-positive threshold falls back to
// DefaultLooseThreshold.
func NewDetector(looseThreshold float64) *Detector {
	if looseThreshold <= 0 {
		looseThreshold = DefaultLooseThreshold
	}
	return &Detector{looseThreshold: looseThreshold}
}

// edge records one matched pair during detection.
type edge struct {
	i, j  int
	match PairMatch
}

// Detect classifies every pair and returns duplicate groups as the
// connected components of the match graph. A group containing a
// loose-only link between two strict clusters is still one group; its
// match type is strict only when every edge is strict, and its
// confidence is the weakest edge's confidence. Groups are returned
// sorted by confidence descending, then by primary ID for stability.
func (d *Detector) Detect(records []model.Business) []model.DuplicateGroup {
	if len(records) < 2 {
		return nil
	}

	ks := make([]keys, len(records))
	for i := range records {
		ks[i] = keysFor(&records[i])
	}

	parent := make([]int, len(records))
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(x int) int {
		if parent[x] != x {
			parent[x] = find(parent[x])
		}
		return parent[x]
	}
	union := func(a, b int) {
		parent[find(a)] = find(b)
	}

	var edges []edge
	for i := 0; i < len(records); i++ {
		for j := i + 1; j < len(records); j++ {
			if m, ok := classifyKeys(ks[i], ks[j], d.looseThreshold); ok {
				edges = append(edges, edge{i: i, j: j, match: m})
				union(i, j)
			}
		}
	}
	if len(edges) == 0 {
		return nil
	}

	members := make(map[int][]int)
	for i := range records {
		root := find(i)
		members[root] = append(members[root], i)
	}

	groupEdges := make(map[int][]edge)
	for _, e := range edges {
		root := find(e.i)
		groupEdges[root] = append(groupEdges[root], e)
	}

	var groups []model.DuplicateGroup
	for root, idxs := range members {
		if len(idxs) < 2 {
			continue
		}
		groups = append(groups, buildGroup(records, idxs, groupEdges[root]))
	}

	sort.Slice(groups, func(a, b int) bool {
		if groups[a].Confidence != groups[b].Confidence {
			return groups[a].Confidence > groups[b].Confidence
		}
		return groups[a].Recommendation.SuggestedPrimaryID < groups[b].Recommendation.SuggestedPrimaryID
	})

	zap.L().Info("dedupe: detection complete",
		zap.Int("records", len(records)),
		zap.Int("matched_pairs", len(edges)),
		zap.Int("groups", len(groups)),
	)

	return groups
}

// buildGroup assembles a DuplicateGroup from member indices and the
// edges that connected them.
func buildGroup(records []model.Business, idxs []int, edges []edge) model.DuplicateGroup {
	matchType := model.MatchStrict
	confidence := 101
	ruleCounts := make(map[string]int)
	for _, e := range edges {
		if e.match.MatchType == model.MatchLoose {
			matchType = model.MatchLoose
		}
		if e.match.Confidence < confidence {
			confidence = e.match.Confidence
		}
		ruleCounts[e.match.Rule]++
	}

	sort.Ints(idxs)
	businesses := make([]model.Business, 0, len(idxs))
	for _, i := range idxs {
		businesses = append(businesses, records[i])
	}

	primary := pickPrimary(businesses)

	return model.DuplicateGroup{
		Businesses: businesses,
		MatchType:  matchType,
		Confidence: confidence,
		Recommendation: model.MergeRecommendation{
			SuggestedPrimaryID: primary.ID,
			Priority:           priorityFor(confidence),
			Reasoning:          reasoning(businesses, primary, ruleCounts),
			PotentialDataLoss:  dataLossFields(businesses, primary),
		},
	}
}

func priorityFor(confidence int) model.MergePriority {
	switch {
	case confidence >= 90:
		return model.PriorityHigh
	case confidence >= 75:
		return model.PriorityMedium
	default:
		return model.PriorityLow
	}
}

// pickPrimary chooses the most complete record; ties go to the oldest.
func pickPrimary(businesses []model.Business) model.Business {
	best := businesses[0]
	bestScore := completeness(&best)
	for _, b := range businesses[1:] {
		s := completeness(&b)
		if s > bestScore || (s == bestScore && b.CreatedAt.Before(best.CreatedAt)) {
			best = b
			bestScore = s
		}
	}
	return best
}

// completeness counts populated profile fields, with ABN verification
// weighted double so a verified record wins ties against a richer but
// unverified one.
func completeness(b *model.Business) int {
	n := 0
	for _, v := range []string{b.Name, b.Suburb, b.Street, b.Phone, b.Email, b.Website, b.Category, b.Description, b.ABN} {
		if strings.TrimSpace(v) != "" {
			n++
		}
	}
	if b.HasCoordinates() {
		n++
	}
	if b.ABNStatus == model.ABNVerified {
		n += 2
	}
	return n
}

// comparedFields are the fields checked for merge data loss.
var comparedFields = []struct {
	name string
	get  func(*model.Business) string
}{
	{"phone", func(b *model.Business) string { return b.Phone }},
	{"email", func(b *model.Business) string { return b.Email }},
	{"website", func(b *model.Business) string { return b.Website }},
	{"street", func(b *model.Business) string { return b.Street }},
	{"category", func(b *model.Business) string { return b.Category }},
	{"description", func(b *model.Business) string { return b.Description }},
	{"abn", func(b *model.Business) string { return b.ABN }},
}

// dataLossFields lists fields where some non-primary record holds a
// value that conflicts with the primary's. Fields the primary lacks are
// backfilled on merge, not lost, so they are excluded.
func dataLossFields(businesses []model.Business, primary model.Business) []string {
	var loss []string
	for _, f := range comparedFields {
		pv := strings.TrimSpace(f.get(&primary))
		if pv == "" {
			continue
		}
		for i := range businesses {
			if businesses[i].ID == primary.ID {
				continue
			}
			ov := strings.TrimSpace(f.get(&businesses[i]))
			if ov != "" && !strings.EqualFold(ov, pv) {
				loss = append(loss, f.name)
				break
			}
		}
	}
	return loss
}

func reasoning(businesses []model.Business, primary model.Business, ruleCounts map[string]int) string {
	var rules []string
	for _, r := range []string{"phone", "website", "name+suburb", "fuzzy-name"} {
		if ruleCounts[r] > 0 {
			rules = append(rules, r)
		}
	}
	return fmt.Sprintf("%d records matched on %s; #%d has the most complete profile (%d fields)",
		len(businesses), strings.Join(rules, ", "), primary.ID, completeness(&primary))
}
