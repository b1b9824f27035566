// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"leadrouting_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
	InMemoryBus = events.InMemoryBus
)

// Re-export platform functions
var (
	NewBaseEvent   = events.NewBaseEvent
	NewInMemoryBus = events.NewInMemoryBus
)

// LeadQualified is published after every completed qualification pass.
type LeadQualified struct {
	BaseEvent
	TenantID uuid.UUID `json:"tenantId"`
	LeadID   uuid.UUID `json:"leadId"`
	Score    int       `json:"score"`
	Tier     string    `json:"tier"`
	Action   string    `json:"action"`
}

func (e LeadQualified) EventName() string { return "qualification.lead.qualified" }

// HotLeadDetected is published when a lead reaches the PQL tier, so
// interested modules can escalate without polling.
type HotLeadDetected struct {
	BaseEvent
	TenantID uuid.UUID `json:"tenantId"`
	LeadID   uuid.UUID `json:"leadId"`
	Score    int       `json:"score"`
}

func (e HotLeadDetected) EventName() string { return "qualification.lead.hot" }

// LeadAssigned is published when a lead is routed to a sales rep, either
// automatically or explicitly.
type LeadAssigned struct {
	BaseEvent
	TenantID uuid.UUID `json:"tenantId"`
	LeadID   uuid.UUID `json:"leadId"`
	LeadName string    `json:"leadName"`
	RepID    uuid.UUID `json:"repId"`
	RepName  string    `json:"repName"`
	RepEmail string    `json:"repEmail"`
	Auto     bool      `json:"auto"`
}

func (e LeadAssigned) EventName() string { return "qualification.lead.assigned" }

// NurtureEnrolled is published when a lead enters a nurture sequence.
type NurtureEnrolled struct {
	BaseEvent
	TenantID       uuid.UUID `json:"tenantId"`
	LeadID         uuid.UUID `json:"leadId"`
	EnrollmentID   uuid.UUID `json:"enrollmentId"`
	TemplateFamily string    `json:"templateFamily"`
}

func (e NurtureEnrolled) EventName() string { return "qualification.nurture.enrolled" }
