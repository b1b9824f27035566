package allocation

import (
	"context"
	"testing"

	"leadrouting_backend/internal/events"
	"leadrouting_backend/internal/qualification/repository"
	"leadrouting_backend/platform/apperr"
	"leadrouting_backend/platform/logger"

	"github.com/google/uuid"
)

type fakeRepo struct {
	leads map[uuid.UUID]repository.Lead
	reps  map[uuid.UUID]repository.Rep

	assigned    map[uuid.UUID]uuid.UUID
	assignCalls int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		leads:    make(map[uuid.UUID]repository.Lead),
		reps:     make(map[uuid.UUID]repository.Rep),
		assigned: make(map[uuid.UUID]uuid.UUID),
	}
}

func (f *fakeRepo) GetLead(_ context.Context, _, leadID uuid.UUID) (repository.Lead, error) {
	lead, ok := f.leads[leadID]
	if !ok {
		return repository.Lead{}, repository.ErrNotFound
	}
	return lead, nil
}

func (f *fakeRepo) ListActiveReps(_ context.Context, _ uuid.UUID) ([]repository.Rep, error) {
	out := make([]repository.Rep, 0, len(f.reps))
	for _, rep := range f.reps {
		if rep.Active {
			out = append(out, rep)
		}
	}
	return out, nil
}

func (f *fakeRepo) GetRep(_ context.Context, _, repID uuid.UUID) (repository.Rep, error) {
	rep, ok := f.reps[repID]
	if !ok {
		return repository.Rep{}, repository.ErrNotFound
	}
	return rep, nil
}

func (f *fakeRepo) AssignLead(_ context.Context, _, leadID, repID uuid.UUID, override bool) error {
	f.assignCalls++
	if _, ok := f.leads[leadID]; !ok {
		return repository.ErrNotFound
	}
	if _, taken := f.assigned[leadID]; taken && !override {
		return repository.ErrAlreadyAssigned
	}
	if prev, taken := f.assigned[leadID]; taken {
		rep := f.reps[prev]
		rep.AssignedLeadsCount--
		f.reps[prev] = rep
	}
	f.assigned[leadID] = repID
	rep := f.reps[repID]
	rep.AssignedLeadsCount++
	f.reps[repID] = rep

	lead := f.leads[leadID]
	lead.AssignedRepID = &repID
	f.leads[leadID] = lead
	return nil
}

type fakeAuditor struct {
	events []string
}

func (f *fakeAuditor) Append(_ context.Context, _, _ uuid.UUID, eventType string, _ any) error {
	f.events = append(f.events, eventType)
	return nil
}

func seedLead(repo *fakeRepo) uuid.UUID {
	leadID := uuid.New()
	repo.leads[leadID] = repository.Lead{
		ID:        leadID,
		FirstName: "Dana",
		LastName:  "Voss",
		Industry:  "software",
	}
	return leadID
}

func seedRep(repo *fakeRepo, name string, conversion float64, load int) uuid.UUID {
	repID := uuid.New()
	repo.reps[repID] = repository.Rep{
		ID:                 repID,
		Name:               name,
		Email:              name + "@example.com",
		ConversionRate:     conversion,
		AssignedLeadsCount: load,
		Active:             true,
	}
	return repID
}

func TestSuggest_RanksPool(t *testing.T) {
	repo := newFakeRepo()
	leadID := seedLead(repo)
	seedRep(repo, "alice", 0.7, 1)
	seedRep(repo, "bob", 0.3, 0)

	svc := New(repo, &fakeAuditor{}, events.NewInMemoryBus(nil), logger.New("development"))

	ranked, err := svc.Suggest(context.Background(), uuid.New(), leadID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ranked) != 2 {
		t.Fatalf("expected 2 suggestions, got %d", len(ranked))
	}
	// alice: 35 + 10 = 45, bob: 15 + 20 = 35
	if ranked[0].Rep.Name != "alice" {
		t.Fatalf("expected alice first, got %s", ranked[0].Rep.Name)
	}
}

func TestSuggest_EmptyPoolYieldsEmptyList(t *testing.T) {
	repo := newFakeRepo()
	leadID := seedLead(repo)
	svc := New(repo, &fakeAuditor{}, events.NewInMemoryBus(nil), logger.New("development"))

	ranked, err := svc.Suggest(context.Background(), uuid.New(), leadID)
	if err != nil {
		t.Fatalf("empty pool must not error: %v", err)
	}
	if len(ranked) != 0 {
		t.Fatalf("expected empty list, got %d", len(ranked))
	}
}

func TestSuggest_LeadNotFound(t *testing.T) {
	svc := New(newFakeRepo(), &fakeAuditor{}, events.NewInMemoryBus(nil), logger.New("development"))

	_, err := svc.Suggest(context.Background(), uuid.New(), uuid.New())
	if apperr.KindOf(err) != apperr.KindNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestAssign_AutoPicksTopRankedRep(t *testing.T) {
	repo := newFakeRepo()
	auditor := &fakeAuditor{}
	leadID := seedLead(repo)
	best := seedRep(repo, "alice", 0.9, 0)
	seedRep(repo, "bob", 0.1, 5)

	svc := New(repo, auditor, events.NewInMemoryBus(nil), logger.New("development"))

	assignment, err := svc.Assign(context.Background(), uuid.New(), leadID, AssignRequest{Auto: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if assignment.RepID != best {
		t.Fatalf("expected top-ranked rep, got %s", assignment.RepName)
	}
	if !assignment.Auto {
		t.Fatal("assignment should be marked auto")
	}
	if repo.reps[best].AssignedLeadsCount != 1 {
		t.Fatalf("winner's load should increment, got %d", repo.reps[best].AssignedLeadsCount)
	}
	if len(auditor.events) != 1 || auditor.events[0] != "rep_assigned" {
		t.Fatalf("expected one rep_assigned audit event, got %v", auditor.events)
	}
}

func TestAssign_SecondAttemptConflicts(t *testing.T) {
	repo := newFakeRepo()
	leadID := seedLead(repo)
	first := seedRep(repo, "alice", 0.5, 0)
	second := seedRep(repo, "bob", 0.5, 0)

	svc := New(repo, &fakeAuditor{}, events.NewInMemoryBus(nil), logger.New("development"))
	tenantID := uuid.New()

	if _, err := svc.Assign(context.Background(), tenantID, leadID, AssignRequest{RepID: &first}); err != nil {
		t.Fatalf("first assign failed: %v", err)
	}

	_, err := svc.Assign(context.Background(), tenantID, leadID, AssignRequest{RepID: &second})
	if apperr.KindOf(err) != apperr.KindConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
	if repo.reps[second].AssignedLeadsCount != 0 {
		t.Fatal("losing rep's load must not move")
	}
	if repo.assigned[leadID] != first {
		t.Fatal("ownership must stay with the first rep")
	}
}

func TestAssign_OverrideReassignsAndRebalancesLoad(t *testing.T) {
	repo := newFakeRepo()
	leadID := seedLead(repo)
	first := seedRep(repo, "alice", 0.5, 0)
	second := seedRep(repo, "bob", 0.5, 0)

	svc := New(repo, &fakeAuditor{}, events.NewInMemoryBus(nil), logger.New("development"))
	tenantID := uuid.New()

	if _, err := svc.Assign(context.Background(), tenantID, leadID, AssignRequest{RepID: &first}); err != nil {
		t.Fatalf("first assign failed: %v", err)
	}
	if _, err := svc.Assign(context.Background(), tenantID, leadID, AssignRequest{RepID: &second, Override: true}); err != nil {
		t.Fatalf("override assign failed: %v", err)
	}

	if repo.assigned[leadID] != second {
		t.Fatal("override must transfer ownership")
	}
	if repo.reps[first].AssignedLeadsCount != 0 || repo.reps[second].AssignedLeadsCount != 1 {
		t.Fatalf("loads out of balance: first=%d second=%d",
			repo.reps[first].AssignedLeadsCount, repo.reps[second].AssignedLeadsCount)
	}
}

func TestAssign_AutoWithEmptyPool(t *testing.T) {
	repo := newFakeRepo()
	leadID := seedLead(repo)
	svc := New(repo, &fakeAuditor{}, events.NewInMemoryBus(nil), logger.New("development"))

	_, err := svc.Assign(context.Background(), uuid.New(), leadID, AssignRequest{Auto: true})
	if apperr.KindOf(err) != apperr.KindUnprocessable {
		t.Fatalf("expected unprocessable, got %v", err)
	}
}

func TestAssign_ExplicitRequiresRepID(t *testing.T) {
	repo := newFakeRepo()
	leadID := seedLead(repo)
	svc := New(repo, &fakeAuditor{}, events.NewInMemoryBus(nil), logger.New("development"))

	_, err := svc.Assign(context.Background(), uuid.New(), leadID, AssignRequest{})
	if apperr.KindOf(err) != apperr.KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestAssign_InactiveRepRejected(t *testing.T) {
	repo := newFakeRepo()
	leadID := seedLead(repo)
	repID := seedRep(repo, "alice", 0.5, 0)
	rep := repo.reps[repID]
	rep.Active = false
	repo.reps[repID] = rep

	svc := New(repo, &fakeAuditor{}, events.NewInMemoryBus(nil), logger.New("development"))

	_, err := svc.Assign(context.Background(), uuid.New(), leadID, AssignRequest{RepID: &repID})
	if apperr.KindOf(err) != apperr.KindNotFound {
		t.Fatalf("expected not found for inactive rep, got %v", err)
	}
}
