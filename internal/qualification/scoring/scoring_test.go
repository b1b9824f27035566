package scoring

import (
	"testing"
	"time"
)

var anchor = time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)

func TestScore_EmptyHistoryNeverErrors(t *testing.T) {
	engine := New(DefaultConfig())

	result := engine.Score(Input{Now: anchor})

	if result.Components.Engagement != 0 {
		t.Fatalf("expected engagement 0, got %d", result.Components.Engagement)
	}
	if result.Components.Behavior != 0 {
		t.Fatalf("expected behavior 0, got %d", result.Components.Behavior)
	}
	// Only the fit base survives an empty profile.
	if result.Components.Fit != 50 {
		t.Fatalf("expected fit 50, got %d", result.Components.Fit)
	}
	if result.Score != 10 {
		t.Fatalf("expected score 10 (0.2*50), got %d", result.Score)
	}
}

func TestScore_SingleRecentCallWithCompanyAndEmail(t *testing.T) {
	engine := New(DefaultConfig())

	result := engine.Score(Input{
		Profile: Profile{Company: "Acme BV", Email: "jan@acme.example"},
		Interactions: []Interaction{
			{Type: InteractionCall, OccurredAt: anchor.AddDate(0, 0, -2)},
		},
		Now: anchor,
	})

	// recency 30 (2 days), frequency 0 (single touch), quality 10 (one call)
	if result.Components.Engagement != 40 {
		t.Fatalf("expected engagement 40, got %d", result.Components.Engagement)
	}
	// company 20 + email 15
	if result.Components.Demographics != 35 {
		t.Fatalf("expected demographics 35, got %d", result.Components.Demographics)
	}
	if result.Components.Behavior != 0 {
		t.Fatalf("expected behavior 0, got %d", result.Components.Behavior)
	}
	// base 50 + company 10
	if result.Components.Fit != 60 {
		t.Fatalf("expected fit 60, got %d", result.Components.Fit)
	}
	// 0.3*40 + 0.2*35 + 0.3*0 + 0.2*60 = 31
	if result.Score != 31 {
		t.Fatalf("expected overall score 31, got %d", result.Score)
	}
	// round(0.7*31) with no deals or invoices
	if result.ConversionProbability != 22 {
		t.Fatalf("expected conversion probability 22, got %d", result.ConversionProbability)
	}
}

func TestScore_EngagementBandsAndCap(t *testing.T) {
	engine := New(DefaultConfig())

	interactions := make([]Interaction, 0, 12)
	for i := 0; i < 12; i++ {
		interactions = append(interactions, Interaction{
			Type:       InteractionMeeting,
			OccurredAt: anchor.Add(-time.Duration(i+1) * time.Hour),
		})
	}

	result := engine.Score(Input{Interactions: interactions, Now: anchor})

	// recency 40 + frequency 30 + quality 30 = 100, already at the cap
	if result.Components.Engagement != 100 {
		t.Fatalf("expected engagement 100, got %d", result.Components.Engagement)
	}
}

func TestScore_RecencyDecay(t *testing.T) {
	engine := New(DefaultConfig())

	cases := []struct {
		daysAgo int
		want    int
	}{
		{1, 40},
		{5, 30},
		{20, 20},
		{60, 10},
		{120, 0},
	}

	for _, tc := range cases {
		result := engine.Score(Input{
			Interactions: []Interaction{
				{Type: InteractionVisit, OccurredAt: anchor.AddDate(0, 0, -tc.daysAgo)},
			},
			Now: anchor,
		})
		// website-visit carries no quality points, single touch no frequency
		if result.Components.Engagement != tc.want {
			t.Fatalf("days=%d: expected engagement %d, got %d", tc.daysAgo, tc.want, result.Components.Engagement)
		}
	}
}

func TestScore_FrequencyWindowExcludesOldTouches(t *testing.T) {
	engine := New(DefaultConfig())

	interactions := []Interaction{
		{Type: InteractionEmail, OccurredAt: anchor.AddDate(0, 0, -3)},
		{Type: InteractionEmail, OccurredAt: anchor.AddDate(0, 0, -10)},
	}
	// Five more well outside the trailing 90 days.
	for i := 0; i < 5; i++ {
		interactions = append(interactions, Interaction{
			Type:       InteractionEmail,
			OccurredAt: anchor.AddDate(0, 0, -120-i),
		})
	}

	result := engine.Score(Input{Interactions: interactions, Now: anchor})

	// recency 30 + frequency 10 (two in window) + quality 0
	if result.Components.Engagement != 40 {
		t.Fatalf("expected engagement 40, got %d", result.Components.Engagement)
	}
}

func TestScore_BehaviorValueBands(t *testing.T) {
	engine := New(DefaultConfig())

	cases := []struct {
		openValue float64
		want      int
	}{
		{5_000, 40},
		{20_000, 50},
		{60_000, 55},
		{150_000, 60},
	}

	for _, tc := range cases {
		result := engine.Score(Input{
			Deals: []Deal{{Stage: DealStageActive, Value: tc.openValue}},
			Now:   anchor,
		})
		if result.Components.Behavior != tc.want {
			t.Fatalf("value=%.0f: expected behavior %d, got %d", tc.openValue, tc.want, result.Components.Behavior)
		}
	}
}

func TestScore_TerminalDealsDoNotCountAsOpen(t *testing.T) {
	engine := New(DefaultConfig())

	result := engine.Score(Input{
		Deals: []Deal{
			{Stage: DealStageWon, Value: 200_000},
			{Stage: DealStageLost, Value: 90_000},
		},
		Now: anchor,
	})

	if result.Components.Behavior != 0 {
		t.Fatalf("expected behavior 0 for terminal-only pipeline, got %d", result.Components.Behavior)
	}
	// A terminal deal still counts toward the conversion uplift.
	if result.ConversionProbability != 22 {
		t.Fatalf("expected conversion probability 22, got %d", result.ConversionProbability)
	}
}

func TestScore_PaidInvoicesAndResponseRate(t *testing.T) {
	engine := New(DefaultConfig())

	rate := 0.8
	result := engine.Score(Input{
		Profile: Profile{ResponseRate: &rate},
		Invoices: []Invoice{
			{Status: InvoicePaid, Total: 30_000},
			{Status: InvoicePaid, Total: 25_000},
			{Status: InvoiceOverdue, Total: 500_000},
		},
		Now: anchor,
	})

	// paid 30 + paid total 55k > 50k +10 + response rate +10
	if result.Components.Behavior != 50 {
		t.Fatalf("expected behavior 50, got %d", result.Components.Behavior)
	}
}

func TestScore_FitSignalsAndClamp(t *testing.T) {
	engine := New(DefaultConfig())

	result := engine.Score(Input{
		Profile: Profile{
			Company:     "Acme",
			TaxID:       "NL123456789B01",
			Tags:        []string{"newsletter", "Qualified"},
			LikelyToBuy: true,
		},
		Now: anchor,
	})

	// 50 + 10 + 10 + 15 + 15 = 100
	if result.Components.Fit != 100 {
		t.Fatalf("expected fit 100, got %d", result.Components.Fit)
	}

	churned := engine.Score(Input{
		Profile: Profile{ChurnRisk: true},
		Now:     anchor,
	})
	if churned.Components.Fit != 30 {
		t.Fatalf("expected fit 30 for churn risk, got %d", churned.Components.Fit)
	}
}

func TestScore_ConversionProbabilityCappedAt100(t *testing.T) {
	engine := New(DefaultConfig())

	interactions := make([]Interaction, 0, 10)
	for i := 0; i < 10; i++ {
		interactions = append(interactions, Interaction{
			Type:       InteractionDemo,
			OccurredAt: anchor.Add(-time.Duration(i+1) * time.Hour),
		})
	}

	result := engine.Score(Input{
		Profile: Profile{
			Company: "Acme", Industry: "Energy", City: "Utrecht", State: "UT",
			Email: "a@b.c", Phone: "+31612345678", Address: "Main 1",
			TaxID: "X", Tags: []string{"qualified"}, LikelyToBuy: true,
		},
		Interactions: interactions,
		Deals:        []Deal{{Stage: DealStageActive, Value: 500_000}},
		Invoices:     []Invoice{{Status: InvoicePaid, Total: 80_000}},
		Now:          anchor,
	})

	if result.Score < 90 || result.Score > 100 {
		t.Fatalf("expected a hot lead score, got %d", result.Score)
	}
	if result.ConversionProbability != 100 {
		t.Fatalf("expected conversion probability capped at 100, got %d", result.ConversionProbability)
	}
}

func TestScore_Deterministic(t *testing.T) {
	engine := New(DefaultConfig())

	input := Input{
		Profile: Profile{Company: "Acme", Email: "a@b.c", Tags: []string{"qualified"}},
		Interactions: []Interaction{
			{Type: InteractionCall, OccurredAt: anchor.AddDate(0, 0, -4)},
			{Type: InteractionEmail, OccurredAt: anchor.AddDate(0, 0, -9)},
		},
		Deals: []Deal{{Stage: DealStageLead, Value: 12_000}},
		Now:   anchor,
	}

	first := engine.Score(input)
	for i := 0; i < 5; i++ {
		if got := engine.Score(input); got != first {
			t.Fatalf("scoring is not deterministic: %+v vs %+v", got, first)
		}
	}
}

func TestScore_RangeInvariant(t *testing.T) {
	engine := New(DefaultConfig())

	inputs := []Input{
		{Now: anchor},
		{Profile: Profile{ChurnRisk: true}, Now: anchor},
		{
			Profile: Profile{Company: "A", Industry: "B", City: "C", State: "D", Email: "e", Phone: "f", Address: "g", TaxID: "h", Tags: []string{"qualified"}, LikelyToBuy: true},
			Interactions: []Interaction{
				{Type: InteractionDemo, OccurredAt: anchor.Add(-time.Hour)},
				{Type: InteractionDemo, OccurredAt: anchor.Add(-2 * time.Hour)},
				{Type: InteractionDemo, OccurredAt: anchor.Add(-3 * time.Hour)},
			},
			Deals:    []Deal{{Stage: DealStageActive, Value: 1_000_000}},
			Invoices: []Invoice{{Status: InvoicePaid, Total: 1_000_000}},
			Now:      anchor,
		},
	}

	for i, input := range inputs {
		result := engine.Score(input)
		if result.Score < 0 || result.Score > 100 {
			t.Fatalf("input %d: score %d out of range", i, result.Score)
		}
		if result.ConversionProbability < 0 || result.ConversionProbability > 100 {
			t.Fatalf("input %d: conversion probability %d out of range", i, result.ConversionProbability)
		}
	}
}
