// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"workshop_portal_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Leads Domain Events
// =============================================================================

// LeadCreated is published when a new lead is created at intake.
type LeadCreated struct {
	BaseEvent
	LeadID     uuid.UUID  `json:"leadId"`
	CompanyID  uuid.UUID  `json:"companyId"`
	LeadType   string     `json:"leadType"`
	Source     string     `json:"source,omitempty"`
	CustomerID *uuid.UUID `json:"customerId,omitempty"`
}

func (e LeadCreated) EventName() string { return "leads.created" }

// LeadBranchUpdated is published when an assignment changes a lead's branch.
type LeadBranchUpdated struct {
	BaseEvent
	LeadID    uuid.UUID  `json:"leadId"`
	CompanyID uuid.UUID  `json:"companyId"`
	From      *uuid.UUID `json:"from,omitempty"`
	To        *uuid.UUID `json:"to,omitempty"`
}

func (e LeadBranchUpdated) EventName() string { return "leads.branch.updated" }

// LeadAssignmentApplied is published after an assignment mutation succeeds,
// including its side-effect outcome flags.
type LeadAssignmentApplied struct {
	BaseEvent
	LeadID         uuid.UUID  `json:"leadId"`
	CompanyID      uuid.UUID  `json:"companyId"`
	BranchID       *uuid.UUID `json:"branchId,omitempty"`
	AssignedUserID *uuid.UUID `json:"assignedUserId,omitempty"`
	ActorUserID    uuid.UUID  `json:"actorUserId"`
}

func (e LeadAssignmentApplied) EventName() string { return "leads.assignment.applied" }

// =============================================================================
// Workshop Quote Domain Events
// =============================================================================

// QuoteNegotiated is published when a quote enters negotiation.
type QuoteNegotiated struct {
	BaseEvent
	QuoteID          uuid.UUID `json:"quoteId"`
	CompanyID        uuid.UUID `json:"companyId"`
	NegotiatedAmount float64   `json:"negotiatedAmount"`
	PreviousAmount   float64   `json:"previousAmount"`
}

func (e QuoteNegotiated) EventName() string { return "workshop.quote.negotiated" }

// QuoteAccepted is published when a quote is accepted.
type QuoteAccepted struct {
	BaseEvent
	QuoteID        uuid.UUID  `json:"quoteId"`
	CompanyID      uuid.UUID  `json:"companyId"`
	BranchID       *uuid.UUID `json:"branchId,omitempty"`
	AcceptedAmount float64    `json:"acceptedAmount"`
	ApprovedBy     uuid.UUID  `json:"approvedBy"`
}

func (e QuoteAccepted) EventName() string { return "workshop.quote.accepted" }

// QuoteRejected is published when a quote is rejected.
type QuoteRejected struct {
	BaseEvent
	QuoteID   uuid.UUID `json:"quoteId"`
	CompanyID uuid.UUID `json:"companyId"`
	Reason    string    `json:"reason,omitempty"`
}

func (e QuoteRejected) EventName() string { return "workshop.quote.rejected" }
