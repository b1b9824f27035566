// Package classify maps a lead score to a qualification tier and the next
// automated action. It is a pure decision table; all state changes are
// driven by the orchestrator acting on the returned action.
package classify

import (
	"fmt"

	"leadrouting_backend/platform/apperr"
)

// Tier is a qualification tier. Tiers are strictly ordered:
// unqualified < MQL < SQL < PQL.
type Tier string

const (
	TierUnqualified Tier = "unqualified"
	TierMQL         Tier = "MQL"
	TierSQL         Tier = "SQL"
	TierPQL         Tier = "PQL"
)

// Rank returns the tier's position in the qualification ordering.
func (t Tier) Rank() int {
	switch t {
	case TierMQL:
		return 1
	case TierSQL:
		return 2
	case TierPQL:
		return 3
	default:
		return 0
	}
}

// Action is the automated follow-up the orchestrator should take.
type Action string

const (
	ActionAutoRoute    Action = "auto-route"
	ActionManualReview Action = "manual-review"
	ActionNurture      Action = "nurture"
	ActionNoAction     Action = "no-action"
)

// Thresholds holds the configurable score cut-offs.
type Thresholds struct {
	MQL       int `json:"mql" validate:"min=0,max=100"`
	SQL       int `json:"sql" validate:"min=0,max=100"`
	PQL       int `json:"pql" validate:"min=0,max=100"`
	AutoRoute int `json:"autoRoute" validate:"min=0,max=100"`
	Nurture   int `json:"nurture" validate:"min=0,max=100"`
}

// DefaultThresholds returns the standard qualification cut-offs.
func DefaultThresholds() Thresholds {
	return Thresholds{MQL: 75, SQL: 85, PQL: 90, AutoRoute: 85, Nurture: 50}
}

// NewLeadThresholds returns the softer cut-offs used for first-touch
// qualification of freshly created leads.
func NewLeadThresholds() Thresholds {
	t := DefaultThresholds()
	t.AutoRoute = 80
	t.Nurture = 30
	return t
}

// Validate checks range and ordering of the thresholds.
func (t Thresholds) Validate() error {
	for name, value := range map[string]int{
		"mql": t.MQL, "sql": t.SQL, "pql": t.PQL, "autoRoute": t.AutoRoute, "nurture": t.Nurture,
	} {
		if value < 0 || value > 100 {
			return apperr.Validation(fmt.Sprintf("threshold %s out of range: %d", name, value))
		}
	}
	if t.MQL > t.SQL || t.SQL > t.PQL {
		return apperr.Validation("thresholds must satisfy mql <= sql <= pql")
	}
	return nil
}

// Outcome is a classification result.
type Outcome struct {
	Tier   Tier   `json:"tier"`
	Action Action `json:"action"`
}

// Classify evaluates the decision table in strictly descending score order;
// the first matching rule wins.
func Classify(score int, t Thresholds) Outcome {
	switch {
	case score >= t.PQL:
		return Outcome{Tier: TierPQL, Action: ActionAutoRoute}
	case score >= t.SQL:
		return Outcome{Tier: TierSQL, Action: ActionAutoRoute}
	case score >= t.MQL:
		if score >= t.AutoRoute {
			return Outcome{Tier: TierMQL, Action: ActionAutoRoute}
		}
		return Outcome{Tier: TierMQL, Action: ActionManualReview}
	case score >= t.Nurture:
		return Outcome{Tier: TierUnqualified, Action: ActionNurture}
	default:
		return Outcome{Tier: TierUnqualified, Action: ActionNoAction}
	}
}
