// Package allocation scores and ranks sales reps for a lead, and performs
// the mutating assignment through a conditional storage write so two
// concurrent requests can never double-book a lead.
package allocation

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
)

// Rep is a candidate sales representative.
type Rep struct {
	ID                 uuid.UUID
	Name               string
	Email              string
	ConversionRate     float64 // historical win ratio, 0..1
	Specialization     string  // optional tag, empty when generalist
	AssignedLeadsCount int
	Active             bool
}

// LeadContext is what the ranker knows about the lead being routed.
type LeadContext struct {
	Tags     []string
	Industry string
}

// Weights tune the composite ranking score. Defaults favor conversion
// history over specialization over load balance.
type Weights struct {
	Conversion     float64
	Specialization float64
	Load           float64
}

// DefaultWeights returns the standard ranking weights.
func DefaultWeights() Weights {
	return Weights{Conversion: 50, Specialization: 30, Load: 20}
}

// Suggestion is one ranked candidate with human-readable reasons.
type Suggestion struct {
	Rep       Rep      `json:"rep"`
	Score     float64  `json:"score"`
	Reasons   []string `json:"reasons"`
	BestMatch bool     `json:"bestMatch"`
}

// Rank scores every active rep against the lead and returns them in
// descending order. Ties break by lowest current load, then by rep ID so
// the ordering is fully deterministic. An empty pool yields an empty slice.
func Rank(lead LeadContext, pool []Rep, weights Weights) []Suggestion {
	suggestions := make([]Suggestion, 0, len(pool))
	for _, rep := range pool {
		if !rep.Active {
			continue
		}
		suggestions = append(suggestions, scoreCandidate(lead, rep, weights))
	}

	sort.Slice(suggestions, func(i, j int) bool {
		a, b := suggestions[i], suggestions[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Rep.AssignedLeadsCount != b.Rep.AssignedLeadsCount {
			return a.Rep.AssignedLeadsCount < b.Rep.AssignedLeadsCount
		}
		return a.Rep.ID.String() < b.Rep.ID.String()
	})

	if len(suggestions) > 0 {
		suggestions[0].BestMatch = true
	}

	return suggestions
}

func scoreCandidate(lead LeadContext, rep Rep, weights Weights) Suggestion {
	reasons := make([]string, 0, 3)

	conversion := rep.ConversionRate * weights.Conversion
	reasons = append(reasons, fmt.Sprintf("historical conversion rate %.0f%%", rep.ConversionRate*100))

	specialization := 0.0
	if rep.Specialization != "" && matchesSpecialization(lead, rep.Specialization) {
		specialization = weights.Specialization
		reasons = append(reasons, fmt.Sprintf("specializes in %s", rep.Specialization))
	}

	// Inverse-load factor: an idle rep gets the full load weight, each open
	// lead dilutes it.
	load := weights.Load / float64(1+rep.AssignedLeadsCount)
	switch {
	case rep.AssignedLeadsCount == 0:
		reasons = append(reasons, "no open leads")
	case rep.AssignedLeadsCount <= 5:
		reasons = append(reasons, fmt.Sprintf("light load (%d open leads)", rep.AssignedLeadsCount))
	default:
		reasons = append(reasons, fmt.Sprintf("heavy load (%d open leads)", rep.AssignedLeadsCount))
	}

	return Suggestion{
		Rep:     rep,
		Score:   conversion + specialization + load,
		Reasons: reasons,
	}
}

func matchesSpecialization(lead LeadContext, specialization string) bool {
	if strings.EqualFold(lead.Industry, specialization) {
		return true
	}
	for _, tag := range lead.Tags {
		if strings.EqualFold(tag, specialization) {
			return true
		}
	}
	return false
}
