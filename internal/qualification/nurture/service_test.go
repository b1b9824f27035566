package nurture

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
	leads     map[uuid.UUID]repository.Lead
	templates map[string]repository.Template
	steps     int

	// active enrollments keyed by lead+family, mirroring the partial
	// unique index the real store relies on.
	enrollments map[string]repository.Enrollment
	createCalls int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		leads:       make(map[uuid.UUID]repository.Lead),
		templates:   make(map[string]repository.Template),
		enrollments: make(map[string]repository.Enrollment),
		steps:       3,
	}
}

func (f *fakeRepo) GetLead(_ context.Context, _, leadID uuid.UUID) (repository.Lead, error) {
	lead, ok := f.leads[leadID]
	if !ok {
		return repository.Lead{}, repository.ErrNotFound
	}
	return lead, nil
}

func (f *fakeRepo) GetActiveTemplate(_ context.Context, _ uuid.UUID, family string, score int) (repository.Template, error) {
	tpl, ok := f.templates[family]
	if !ok {
		return repository.Template{}, repository.ErrNotFound
	}
	if tpl.MinScore != nil && score < *tpl.MinScore {
		return repository.Template{}, repository.ErrNotFound
	}
	if tpl.MaxScore != nil && score > *tpl.MaxScore {
		return repository.Template{}, repository.ErrNotFound
	}
	return tpl, nil
}

func (f *fakeRepo) CountTemplateSteps(_ context.Context, _ uuid.UUID) (int, error) {
	return f.steps, nil
}

func (f *fakeRepo) CreateEnrollmentIfAbsent(_ context.Context, tenantID, leadID uuid.UUID, tpl repository.Template, totalSteps int) (repository.Enrollment, bool, error) {
	f.createCalls++
	key := leadID.String() + "/" + tpl.Family
	if existing, ok := f.enrollments[key]; ok {
		return existing, false, nil
	}
	enrollment := repository.Enrollment{
		ID:             uuid.New(),
		TenantID:       tenantID,
		LeadID:         leadID,
		TemplateID:     tpl.ID,
		TemplateFamily: tpl.Family,
		Status:         repository.EnrollmentStatusActive,
		TotalSteps:     totalSteps,
	}
	f.enrollments[key] = enrollment
	return enrollment, true, nil
}

type fakeAuditor struct {
	events []string
}

func (f *fakeAuditor) Append(_ context.Context, _, _ uuid.UUID, eventType string, _ any) error {
	f.events = append(f.events, eventType)
	return nil
}

func seedLead(repo *fakeRepo, score int) uuid.UUID {
	leadID := uuid.New()
	repo.leads[leadID] = repository.Lead{ID: leadID, LeadScore: &score}
	return leadID
}

func seedTemplate(repo *fakeRepo, family string) {
	repo.templates[family] = repository.Template{
		ID:     uuid.New(),
		Family: family,
		Name:   family + " sequence",
		Active: true,
	}
}

func TestEnroll_CreatesActiveEnrollment(t *testing.T) {
	repo := newFakeRepo()
	auditor := &fakeAuditor{}
	leadID := seedLead(repo, 60)
	seedTemplate(repo, DefaultTemplateFamily)

	svc := New(repo, auditor, events.NewInMemoryBus(nil), logger.New("development"))

	result, err := svc.Enroll(context.Background(), uuid.New(), leadID, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Created || result.Skipped {
		t.Fatalf("expected a fresh enrollment, got %+v", result)
	}
	if result.EnrollmentID == uuid.Nil {
		t.Fatal("enrollment ID must be set")
	}
	if len(auditor.events) != 1 || auditor.events[0] != "nurture_enrolled" {
		t.Fatalf("expected one nurture_enrolled audit event, got %v", auditor.events)
	}
}

func TestEnroll_IsIdempotentPerFamily(t *testing.T) {
	repo := newFakeRepo()
	auditor := &fakeAuditor{}
	leadID := seedLead(repo, 60)
	seedTemplate(repo, DefaultTemplateFamily)

	svc := New(repo, auditor, events.NewInMemoryBus(nil), logger.New("development"))
	tenantID := uuid.New()

	first, err := svc.Enroll(context.Background(), tenantID, leadID, DefaultTemplateFamily)
	if err != nil {
		t.Fatalf("first enroll failed: %v", err)
	}
	second, err := svc.Enroll(context.Background(), tenantID, leadID, DefaultTemplateFamily)
	if err != nil {
		t.Fatalf("second enroll failed: %v", err)
	}

	if second.Created {
		t.Fatal("second call must not create a new enrollment")
	}
	if first.EnrollmentID != second.EnrollmentID {
		t.Fatalf("expected same enrollment ID, got %s and %s", first.EnrollmentID, second.EnrollmentID)
	}
	if len(repo.enrollments) != 1 {
		t.Fatalf("expected exactly one enrollment, got %d", len(repo.enrollments))
	}
	if len(auditor.events) != 1 {
		t.Fatalf("only the creating call may audit, got %d events", len(auditor.events))
	}
}

func TestEnroll_DifferentFamiliesAreIndependent(t *testing.T) {
	repo := newFakeRepo()
	leadID := seedLead(repo, 60)
	seedTemplate(repo, "standard")
	seedTemplate(repo, "winback")

	svc := New(repo, &fakeAuditor{}, events.NewInMemoryBus(nil), logger.New("development"))
	tenantID := uuid.New()

	a, err := svc.Enroll(context.Background(), tenantID, leadID, "standard")
	if err != nil {
		t.Fatalf("standard enroll failed: %v", err)
	}
	b, err := svc.Enroll(context.Background(), tenantID, leadID, "winback")
	if err != nil {
		t.Fatalf("winback enroll failed: %v", err)
	}

	if !a.Created || !b.Created {
		t.Fatal("each family gets its own enrollment")
	}
	if a.EnrollmentID == b.EnrollmentID {
		t.Fatal("families must not share an enrollment")
	}
}

func TestEnroll_NoTemplateIsSkippedNotFailed(t *testing.T) {
	repo := newFakeRepo()
	leadID := seedLead(repo, 60)

	svc := New(repo, &fakeAuditor{}, events.NewInMemoryBus(nil), logger.New("development"))

	result, err := svc.Enroll(context.Background(), uuid.New(), leadID, "standard")
	if err != nil {
		t.Fatalf("missing template must not error: %v", err)
	}
	if !result.Skipped || result.Reason == "" {
		t.Fatalf("expected a skipped result with a reason, got %+v", result)
	}
	if repo.createCalls != 0 {
		t.Fatal("no enrollment attempt should reach storage")
	}
}

func TestEnroll_ScoreBandFiltersTemplates(t *testing.T) {
	repo := newFakeRepo()
	leadID := seedLead(repo, 95)
	minScore, maxScore := 0, 74
	repo.templates["standard"] = repository.Template{
		ID:       uuid.New(),
		Family:   "standard",
		Name:     "low-score drip",
		Active:   true,
		MinScore: &minScore,
		MaxScore: &maxScore,
	}

	svc := New(repo, &fakeAuditor{}, events.NewInMemoryBus(nil), logger.New("development"))

	result, err := svc.Enroll(context.Background(), uuid.New(), leadID, "standard")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Skipped {
		t.Fatal("template outside the score band must not match")
	}
}

func TestEnroll_LeadNotFound(t *testing.T) {
	svc := New(newFakeRepo(), &fakeAuditor{}, events.NewInMemoryBus(nil), logger.New("development"))

	_, err := svc.Enroll(context.Background(), uuid.New(), uuid.New(), "standard")
	if apperr.KindOf(err) != apperr.KindNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}
