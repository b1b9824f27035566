package allocation

import (
	"testing"

	"github.com/google/uuid"
)

func repWith(name string, conversion float64, specialization string, load int) Rep {
	return Rep{
		ID:                 uuid.New(),
		Name:               name,
		Email:              name + "@example.com",
		ConversionRate:     conversion,
		Specialization:     specialization,
		AssignedLeadsCount: load,
		Active:             true,
	}
}

func TestRank_OrdersByCompositeScore(t *testing.T) {
	lead := LeadContext{Industry: "software"}

	closer := repWith("closer", 0.60, "", 4)         // 30 + 4 = 34
	specialist := repWith("specialist", 0.40, "software", 4) // 20 + 30 + 4 = 54
	idle := repWith("idle", 0.20, "", 0)             // 10 + 20 = 30

	ranked := Rank(lead, []Rep{closer, specialist, idle}, DefaultWeights())
	if len(ranked) != 3 {
		t.Fatalf("expected 3 suggestions, got %d", len(ranked))
	}
	if ranked[0].Rep.Name != "specialist" || ranked[1].Rep.Name != "closer" || ranked[2].Rep.Name != "idle" {
		t.Fatalf("unexpected order: %s, %s, %s",
			ranked[0].Rep.Name, ranked[1].Rep.Name, ranked[2].Rep.Name)
	}
	if !ranked[0].BestMatch {
		t.Fatal("top suggestion should be flagged best match")
	}
	if ranked[1].BestMatch || ranked[2].BestMatch {
		t.Fatal("only the top suggestion may be best match")
	}
}

func TestRank_SpecializationMatchesTagsCaseInsensitive(t *testing.T) {
	lead := LeadContext{Tags: []string{"Enterprise", "SaaS"}, Industry: "retail"}
	rep := repWith("rep", 0.50, "saas", 0)

	ranked := Rank(lead, []Rep{rep}, DefaultWeights())
	// 0.5*50 + 30 + 20 = 75
	if ranked[0].Score != 75 {
		t.Fatalf("expected score 75, got %v", ranked[0].Score)
	}

	found := false
	for _, reason := range ranked[0].Reasons {
		if reason == "specializes in saas" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected specialization reason, got %v", ranked[0].Reasons)
	}
}

func TestRank_LoadDilutesInverseFactor(t *testing.T) {
	lead := LeadContext{}
	weights := DefaultWeights()

	idle := Rank(lead, []Rep{repWith("a", 0, "", 0)}, weights)[0].Score
	busy := Rank(lead, []Rep{repWith("b", 0, "", 9)}, weights)[0].Score

	if idle != 20 {
		t.Fatalf("idle rep should earn the full load weight, got %v", idle)
	}
	if busy != 2 {
		t.Fatalf("rep with 9 open leads should earn 20/10, got %v", busy)
	}
}

func TestRank_TieBreaksByLoadThenID(t *testing.T) {
	lead := LeadContext{}

	// Same conversion, same load: identical scores, order falls to ID.
	a := repWith("a", 0.5, "", 2)
	b := repWith("b", 0.5, "", 2)
	lighter := repWith("lighter", 0.5, "", 2)
	// Give the lighter rep the same score via conversion so load decides.
	// 0.5*50 + 20/3 vs 0.44*50 + 20/1: pick values yielding equal scores is
	// fiddly, so assert the documented comparator directly instead.
	ranked := Rank(lead, []Rep{b, a, lighter}, DefaultWeights())

	for i := 1; i < len(ranked); i++ {
		prev, cur := ranked[i-1], ranked[i]
		if prev.Score < cur.Score {
			t.Fatalf("scores not descending at %d", i)
		}
		if prev.Score == cur.Score && prev.Rep.ID.String() > cur.Rep.ID.String() {
			t.Fatalf("equal scores and loads must order by rep ID")
		}
	}
}

func TestRank_SkipsInactiveAndEmptyPool(t *testing.T) {
	inactive := repWith("gone", 0.9, "", 0)
	inactive.Active = false

	ranked := Rank(LeadContext{}, []Rep{inactive}, DefaultWeights())
	if len(ranked) != 0 {
		t.Fatalf("inactive reps must be skipped, got %d suggestions", len(ranked))
	}

	if got := Rank(LeadContext{}, nil, DefaultWeights()); len(got) != 0 {
		t.Fatalf("empty pool must yield empty slice, got %d", len(got))
	}
}
