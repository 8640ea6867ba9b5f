package dedupe

import (
	"math"
	"strings"

	"github.com/suburbmates/directory-cli/internal/model"
	"github.com/suburbmates/directory-cli/internal/normalize"
)

// Pair match confidence by rule. Shared phone is the strongest signal,
// shared website hostname next, exact name+suburb last.
const (
	confidencePhone      = 100
	confidenceHostname   = 95
	confidenceNameSuburb = 90
)

// PairMatch is the classification result for one pair of businesses.
type PairMatch struct {
	MatchType  model.MatchType
	Confidence int // 0-100
	Rule       string
}

// keys holds the normalized comparison fields for one business.
type keys struct {
	phone    string
	hostname string
	name     string // normalized for fuzzy comparison
	rawName  string
	suburb   string
}

func keysFor(b *model.Business) keys {
	k := keys{
		hostname: normalize.Hostname(b.Website),
		name:     normalize.Name(b.Name),
		rawName:  strings.TrimSpace(b.Name),
		suburb:   strings.TrimSpace(b.Suburb),
	}
	if p := normalize.Phone(b.Phone); strings.HasPrefix(p, "+61") {
		k.phone = p
	}
	return k
}

// ClassifyPair applies the strict and loose rules to a pair of records.
// The strict rules are evaluated first; when a strict rule fires the
// loose rule is not consulted. looseThreshold is the minimum Levenshtein
// similarity (exclusive) for a loose match, typically 0.8.
func ClassifyPair(a, b *model.Business, looseThreshold float64) (PairMatch, bool) {
	return classifyKeys(keysFor(a), keysFor(b), looseThreshold)
}

func classifyKeys(ka, kb keys, looseThreshold float64) (PairMatch, bool) {
	if ka.phone != "" && ka.phone == kb.phone {
		return PairMatch{MatchType: model.MatchStrict, Confidence: confidencePhone, Rule: "phone"}, true
	}
	if ka.hostname != "" && ka.hostname == kb.hostname {
		return PairMatch{MatchType: model.MatchStrict, Confidence: confidenceHostname, Rule: "website"}, true
	}
	sameSuburb := ka.suburb != "" && strings.EqualFold(ka.suburb, kb.suburb)
	if sameSuburb && ka.rawName != "" && strings.EqualFold(ka.rawName, kb.rawName) {
		return PairMatch{MatchType: model.MatchStrict, Confidence: confidenceNameSuburb, Rule: "name+suburb"}, true
	}

	// Loose: same suburb with fuzzy-similar normalized names. Suffix
	// stripping in normalization is what lets "Smith Plumbing" match
	// "Smith Plumbing Pty Ltd".
	if sameSuburb && ka.name != "" && kb.name != "" {
		if sim := Similarity(ka.name, kb.name); sim > looseThreshold {
			return PairMatch{
				MatchType:  model.MatchLoose,
				Confidence: int(math.Round(sim * 100)),
				Rule:       "fuzzy-name",
			}, true
		}
	}

	return PairMatch{}, false
}
