package classify

import (
	"testing"

	"leadrouting_backend/platform/apperr"
)

func TestClassify_DefaultThresholds(t *testing.T) {
	thresholds := DefaultThresholds()

	cases := []struct {
		score      int
		wantTier   Tier
		wantAction Action
	}{
		{100, TierPQL, ActionAutoRoute},
		{92, TierPQL, ActionAutoRoute},
		{90, TierPQL, ActionAutoRoute},
		{89, TierSQL, ActionAutoRoute},
		{85, TierSQL, ActionAutoRoute},
		{84, TierMQL, ActionManualReview},
		{80, TierMQL, ActionManualReview},
		{75, TierMQL, ActionManualReview},
		{74, TierUnqualified, ActionNurture},
		{60, TierUnqualified, ActionNurture},
		{50, TierUnqualified, ActionNurture},
		{49, TierUnqualified, ActionNoAction},
		{0, TierUnqualified, ActionNoAction},
	}

	for _, tc := range cases {
		outcome := Classify(tc.score, thresholds)
		if outcome.Tier != tc.wantTier || outcome.Action != tc.wantAction {
			t.Fatalf("score=%d: expected %s/%s, got %s/%s",
				tc.score, tc.wantTier, tc.wantAction, outcome.Tier, outcome.Action)
		}
	}
}

func TestClassify_MQLAutoRouteWindow(t *testing.T) {
	// Raising autoRoute above sql has no effect on SQL leads, but an
	// autoRoute below sql routes high MQLs automatically.
	thresholds := Thresholds{MQL: 70, SQL: 85, PQL: 90, AutoRoute: 80, Nurture: 50}

	got := Classify(82, thresholds)
	if got.Tier != TierMQL || got.Action != ActionAutoRoute {
		t.Fatalf("expected MQL/auto-route, got %s/%s", got.Tier, got.Action)
	}

	got = Classify(75, thresholds)
	if got.Tier != TierMQL || got.Action != ActionManualReview {
		t.Fatalf("expected MQL/manual-review, got %s/%s", got.Tier, got.Action)
	}
}

func TestClassify_NewLeadThresholds(t *testing.T) {
	thresholds := NewLeadThresholds()

	got := Classify(35, thresholds)
	if got.Tier != TierUnqualified || got.Action != ActionNurture {
		t.Fatalf("expected unqualified/nurture at 35, got %s/%s", got.Tier, got.Action)
	}

	got = Classify(82, thresholds)
	if got.Tier != TierMQL || got.Action != ActionAutoRoute {
		t.Fatalf("expected MQL/auto-route at 82, got %s/%s", got.Tier, got.Action)
	}
}

func TestClassify_TierMonotoneInScore(t *testing.T) {
	thresholds := DefaultThresholds()

	previousRank := -1
	for score := 0; score <= 100; score++ {
		outcome := Classify(score, thresholds)
		rank := outcome.Tier.Rank()
		if rank < previousRank {
			t.Fatalf("tier rank decreased at score %d: %d -> %d", score, previousRank, rank)
		}
		previousRank = rank
	}
}

func TestThresholds_Validate(t *testing.T) {
	if err := DefaultThresholds().Validate(); err != nil {
		t.Fatalf("default thresholds must validate, got %v", err)
	}

	bad := Thresholds{MQL: 90, SQL: 85, PQL: 95, AutoRoute: 85, Nurture: 50}
	err := bad.Validate()
	if err == nil {
		t.Fatal("expected ordering violation")
	}
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation kind, got %v", err)
	}

	outOfRange := Thresholds{MQL: 75, SQL: 85, PQL: 120, AutoRoute: 85, Nurture: 50}
	if err := outOfRange.Validate(); err == nil {
		t.Fatal("expected range violation")
	}
}
