// Package transport defines the request and response DTOs for the
// qualification API.
package transport

import (
	"time"

	"leadrouting_backend/internal/qualification/classify"
	"leadrouting_backend/internal/qualification/scoring"

	"github.com/google/uuid"
)

// QualifyRequest triggers a qualification pass for a single lead.
// Thresholds override the tenant defaults for this call only.
type QualifyRequest struct {
	Thresholds *classify.Thresholds `json:"config,omitempty"`
	AutoAssign bool                 `json:"autoAssign"`
}

// BatchQualifyRequest sweeps a bounded page of leads. Async hands the
// sweep to the background queue instead of running it inline.
type BatchQualifyRequest struct {
	LeadIDs    []uuid.UUID          `json:"leadIds,omitempty"`
	Stage      *string              `json:"stage,omitempty" validate:"omitempty,oneof=prospect lead customer converted"`
	Thresholds *classify.Thresholds `json:"config,omitempty"`
	AutoAssign bool                 `json:"autoAssign"`
	Limit      int                  `json:"limit" validate:"min=0,max=100"`
	Async      bool                 `json:"async"`
}

// AssignRepRequest assigns a rep to a lead. RepID is either a rep UUID or
// the literal "auto".
type AssignRepRequest struct {
	RepID    string `json:"repId" binding:"required"`
	Override bool   `json:"override"`
}

// EnrollNurtureRequest enrolls a lead into a nurture sequence family.
type EnrollNurtureRequest struct {
	TemplateFamily string `json:"templateFamily"`
}

// QualificationResult is the outcome of one qualification pass.
type QualificationResult struct {
	LeadID                uuid.UUID          `json:"leadId"`
	Qualified             bool               `json:"qualified"`
	Tier                  string             `json:"tier"`
	Action                string             `json:"action"`
	Score                 int                `json:"score"`
	ConversionProbability int                `json:"conversionProbability"`
	Components            scoring.Components `json:"components"`
	AssignedRepID         *uuid.UUID         `json:"assignedRepId,omitempty"`
	NurtureEnrollmentID   *uuid.UUID         `json:"nurtureEnrollmentId,omitempty"`
	Reason                string             `json:"reason"`
	ScoredAt              time.Time          `json:"scoredAt"`
}

// BatchItemResult is one lead's outcome within a batch. A failed item
// carries Error and a nil Result; the batch itself always succeeds.
type BatchItemResult struct {
	LeadID uuid.UUID            `json:"leadId"`
	Result *QualificationResult `json:"result,omitempty"`
	Error  string               `json:"error,omitempty"`
}

// AssignRepResponse reports a completed assignment.
type AssignRepResponse struct {
	AssignedRepID uuid.UUID `json:"assignedRepId"`
	RepName       string    `json:"repName"`
	Auto          bool      `json:"auto"`
}

// EnrollNurtureResponse reports an enrollment outcome.
type EnrollNurtureResponse struct {
	EnrollmentID *uuid.UUID `json:"enrollmentId,omitempty"`
	Created      bool       `json:"created"`
	Skipped      bool       `json:"skipped"`
	Reason       string     `json:"reason,omitempty"`
}

// RepResponse is one entry of the rep directory.
type RepResponse struct {
	ID                 uuid.UUID `json:"id"`
	Name               string    `json:"name"`
	Email              string    `json:"email"`
	ConversionRate     float64   `json:"conversionRate"`
	Specialization     *string   `json:"specialization,omitempty"`
	AssignedLeadsCount int       `json:"assignedLeadsCount"`
}
