// Package scoring computes lead scores from interaction, deal and invoice
// history. The engine is a pure function of its inputs: identical inputs
// always produce identical scores, and absent history degrades to a zero
// contribution instead of an error.
package scoring

import (
	"math"
	"strings"
	"time"
)

// Interaction types that count toward the engagement quality component.
const (
	InteractionCall    = "call"
	InteractionEmail   = "email"
	InteractionMeeting = "meeting"
	InteractionDemo    = "demo"
	InteractionVisit   = "website-visit"
)

// Deal stages. Won and lost are terminal; everything else counts as open.
const (
	DealStageLead   = "lead"
	DealStageActive = "active"
	DealStageWon    = "won"
	DealStageLost   = "lost"
)

// Invoice statuses.
const (
	InvoicePaid    = "paid"
	InvoiceUnpaid  = "unpaid"
	InvoiceOverdue = "overdue"
)

// Profile carries the lead attributes the engine scores on.
type Profile struct {
	Company      string
	Industry     string
	City         string
	State        string
	Email        string
	Phone        string
	Address      string
	TaxID        string
	Tags         []string
	LikelyToBuy  bool
	ChurnRisk    bool
	ResponseRate *float64 // replied/sent ratio when tracked, nil otherwise
}

// Interaction is a single recorded touch with the lead.
type Interaction struct {
	Type       string
	OccurredAt time.Time
}

// Deal is a sales opportunity attached to the lead.
type Deal struct {
	Stage string
	Value float64
}

// Invoice is a billing record attached to the lead.
type Invoice struct {
	Status string
	Total  float64
}

// Input bundles everything the engine reads for one lead.
// Now anchors the recency and frequency windows; callers pass the same
// instant for every lead in a batch so a sweep is internally consistent.
type Input struct {
	Profile      Profile
	Interactions []Interaction
	Deals        []Deal
	Invoices     []Invoice
	Now          time.Time
}

// Components are the four weighted sub-scores, kept for explainability.
type Components struct {
	Engagement   int `json:"engagement"`
	Demographics int `json:"demographics"`
	Behavior     int `json:"behavior"`
	Fit          int `json:"fit"`
}

// Result is the scoring output.
type Result struct {
	Score                 int        `json:"score"`
	ConversionProbability int        `json:"conversionProbability"`
	Components            Components `json:"components"`
}

// Weights blend the four sub-scores into the overall score.
type Weights struct {
	Engagement   float64
	Demographics float64
	Behavior     float64
	Fit          float64
}

// Config holds the tunable constants of the engine. The defaults are the
// documented contract; deployments may tune them per tenant but the engine
// never reinterprets them.
type Config struct {
	Weights                 Weights
	ConversionScoreFactor   float64
	ConversionDealUplift    int
	ConversionInvoiceUplift int
}

// DefaultConfig returns the documented scoring constants.
func DefaultConfig() Config {
	return Config{
		Weights: Weights{
			Engagement:   0.30,
			Demographics: 0.20,
			Behavior:     0.30,
			Fit:          0.20,
		},
		ConversionScoreFactor:   0.70,
		ConversionDealUplift:    15,
		ConversionInvoiceUplift: 15,
	}
}

// Engine scores leads with a fixed configuration.
type Engine struct {
	cfg Config
}

// New creates an engine. A zero-weight config falls back to the defaults.
func New(cfg Config) *Engine {
	if cfg.Weights == (Weights{}) {
		cfg = DefaultConfig()
	}
	return &Engine{cfg: cfg}
}

// Score computes the lead score, its components and the conversion
// probability estimate.
func (e *Engine) Score(in Input) Result {
	now := in.Now
	if now.IsZero() {
		now = time.Now()
	}

	components := Components{
		Engagement:   engagementScore(in.Interactions, now),
		Demographics: demographicsScore(in.Profile),
		Behavior:     behaviorScore(in.Deals, in.Invoices, in.Profile.ResponseRate),
		Fit:          fitScore(in.Profile),
	}

	w := e.cfg.Weights
	weighted := w.Engagement*float64(components.Engagement) +
		w.Demographics*float64(components.Demographics) +
		w.Behavior*float64(components.Behavior) +
		w.Fit*float64(components.Fit)
	score := clampInt(int(math.Round(weighted)), 0, 100)

	return Result{
		Score:                 score,
		ConversionProbability: e.conversionProbability(score, in.Deals, in.Invoices),
		Components:            components,
	}
}

// engagementScore combines recency, frequency and quality of interactions.
func engagementScore(interactions []Interaction, now time.Time) int {
	if len(interactions) == 0 {
		return 0
	}

	var latest time.Time
	recentCount := 0
	highValueCount := 0
	windowStart := now.AddDate(0, 0, -90)

	for _, interaction := range interactions {
		if interaction.OccurredAt.After(latest) {
			latest = interaction.OccurredAt
		}
		if interaction.OccurredAt.After(windowStart) {
			recentCount++
		}
		if isHighValueType(interaction.Type) {
			highValueCount++
		}
	}

	score := recencyPoints(now.Sub(latest)) + frequencyPoints(recentCount) + qualityPoints(highValueCount)
	return clampInt(score, 0, 100)
}

func recencyPoints(age time.Duration) int {
	days := age.Hours() / 24
	switch {
	case days <= 1:
		return 40
	case days <= 7:
		return 30
	case days <= 30:
		return 20
	case days <= 90:
		return 10
	default:
		return 0
	}
}

func frequencyPoints(count int) int {
	switch {
	case count >= 10:
		return 30
	case count >= 5:
		return 20
	case count >= 2:
		return 10
	default:
		return 0
	}
}

func qualityPoints(highValueCount int) int {
	switch {
	case highValueCount >= 3:
		return 30
	case highValueCount >= 2:
		return 20
	case highValueCount >= 1:
		return 10
	default:
		return 0
	}
}

func isHighValueType(interactionType string) bool {
	switch interactionType {
	case InteractionCall, InteractionMeeting, InteractionDemo:
		return true
	default:
		return false
	}
}

// demographicsScore awards flat points for profile completeness.
func demographicsScore(p Profile) int {
	score := 0
	if p.Company != "" {
		score += 20
	}
	if p.Industry != "" {
		score += 20
	}
	if p.City != "" && p.State != "" {
		score += 15
	}
	if p.Email != "" {
		score += 15
	}
	if p.Phone != "" {
		score += 15
	}
	if p.Address != "" {
		score += 15
	}
	return clampInt(score, 0, 100)
}

// behaviorScore rewards commercial activity: open pipeline, paid history
// and responsiveness.
func behaviorScore(deals []Deal, invoices []Invoice, responseRate *float64) int {
	score := 0

	openValue := 0.0
	hasOpenDeal := false
	for _, deal := range deals {
		if deal.Stage == DealStageWon || deal.Stage == DealStageLost {
			continue
		}
		hasOpenDeal = true
		openValue += deal.Value
	}
	if hasOpenDeal {
		score += 40
		switch {
		case openValue > 100_000:
			score += 20
		case openValue > 50_000:
			score += 15
		case openValue > 10_000:
			score += 10
		}
	}

	paidTotal := 0.0
	hasPaid := false
	for _, invoice := range invoices {
		if invoice.Status != InvoicePaid {
			continue
		}
		hasPaid = true
		paidTotal += invoice.Total
	}
	if hasPaid {
		score += 30
		if paidTotal > 50_000 {
			score += 10
		}
	}

	if responseRate != nil && *responseRate > 0.5 {
		score += 10
	}

	return clampInt(score, 0, 100)
}

// fitScore starts from a neutral base and adjusts for explicit signals.
func fitScore(p Profile) int {
	score := 50
	if p.Company != "" {
		score += 10
	}
	if p.TaxID != "" {
		score += 10
	}
	if hasTag(p.Tags, "qualified") {
		score += 15
	}
	if p.LikelyToBuy {
		score += 15
	}
	if p.ChurnRisk {
		score -= 20
	}
	return clampInt(score, 0, 100)
}

func (e *Engine) conversionProbability(score int, deals []Deal, invoices []Invoice) int {
	probability := e.cfg.ConversionScoreFactor * float64(score)
	if len(deals) > 0 {
		probability += float64(e.cfg.ConversionDealUplift)
	}
	if len(invoices) > 0 {
		probability += float64(e.cfg.ConversionInvoiceUplift)
	}
	if probability > 100 {
		probability = 100
	}
	return clampInt(int(math.Round(probability)), 0, 100)
}

func hasTag(tags []string, want string) bool {
	for _, tag := range tags {
		if strings.EqualFold(tag, want) {
			return true
		}
	}
	return false
}

func clampInt(value, low, high int) int {
	if value < low {
		return low
	}
	if value > high {
		return high
	}
	return value
}
