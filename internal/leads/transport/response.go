package transport

import (
	"encoding/json"
	"time"

	"workshop_portal_backend/internal/leads/repository"

	"github.com/google/uuid"
)

// LeadResponse is the wire shape of a lead.
type LeadResponse struct {
	ID                    uuid.UUID  `json:"id"`
	CompanyID             uuid.UUID  `json:"companyId"`
	CustomerID            *uuid.UUID `json:"customerId,omitempty"`
	CarID                 *uuid.UUID `json:"carId,omitempty"`
	BranchID              *uuid.UUID `json:"branchId"`
	AssignedUserID        *uuid.UUID `json:"assignedUserId"`
	ServiceType           *string    `json:"serviceType,omitempty"`
	AssignedAt            *time.Time `json:"assignedAt,omitempty"`
	RecoveryDirection     *string    `json:"recoveryDirection,omitempty"`
	RecoveryFlow          *string    `json:"recoveryFlow,omitempty"`
	PickupFrom            *string    `json:"pickupFrom,omitempty"`
	DropoffTo             *string    `json:"dropoffTo,omitempty"`
	PickupGoogleLocation  *string    `json:"pickupGoogleLocation,omitempty"`
	DropoffGoogleLocation *string    `json:"dropoffGoogleLocation,omitempty"`
	AgentEmployeeID       *uuid.UUID `json:"agentEmployeeId,omitempty"`
	LeadType              string     `json:"leadType"`
	LeadStatus            string     `json:"leadStatus"`
	LeadStage             string     `json:"leadStage"`
	Source                *string    `json:"source,omitempty"`
	IsLocked              bool       `json:"isLocked"`
	ClosedAt              *time.Time `json:"closedAt,omitempty"`
	AgentRemark           *string    `json:"agentRemark,omitempty"`
	CustomerRemark        *string    `json:"customerRemark,omitempty"`
	CreatedAt             time.Time  `json:"createdAt"`
	UpdatedAt             time.Time  `json:"updatedAt"`
	CustomerName          *string    `json:"customerName,omitempty"`
	CustomerPhone         *string    `json:"customerPhone,omitempty"`
	CustomerEmail         *string    `json:"customerEmail,omitempty"`
	CarPlateNumber        *string    `json:"carPlateNumber,omitempty"`
	CarModel              *string    `json:"carModel,omitempty"`
}

// FromLead maps a stored lead onto the wire shape.
func FromLead(l *repository.Lead) LeadResponse {
	return LeadResponse{
		ID:                    l.ID,
		CompanyID:             l.CompanyID,
		CustomerID:            l.CustomerID,
		CarID:                 l.CarID,
		BranchID:              l.BranchID,
		AssignedUserID:        l.AssignedUserID,
		ServiceType:           l.ServiceType,
		AssignedAt:            l.AssignedAt,
		RecoveryDirection:     l.RecoveryDirection,
		RecoveryFlow:          l.RecoveryFlow,
		PickupFrom:            l.PickupFrom,
		DropoffTo:             l.DropoffTo,
		PickupGoogleLocation:  l.PickupGoogleLocation,
		DropoffGoogleLocation: l.DropoffGoogleLocation,
		AgentEmployeeID:       l.AgentEmployeeID,
		LeadType:              l.LeadType,
		LeadStatus:            l.LeadStatus,
		LeadStage:             l.LeadStage,
		Source:                l.Source,
		IsLocked:              l.IsLocked,
		ClosedAt:              l.ClosedAt,
		AgentRemark:           l.AgentRemark,
		CustomerRemark:        l.CustomerRemark,
		CreatedAt:             l.CreatedAt,
		UpdatedAt:             l.UpdatedAt,
		CustomerName:          l.CustomerName,
		CustomerPhone:         l.CustomerPhone,
		CustomerEmail:         l.CustomerEmail,
		CarPlateNumber:        l.CarPlateNumber,
		CarModel:              l.CarModel,
	}
}

// FromLeads maps a slice of leads. Always returns a non-nil slice so empty
// lists serialize as [].
func FromLeads(leads []repository.Lead) []LeadResponse {
	out := make([]LeadResponse, 0, len(leads))
	for i := range leads {
		out = append(out, FromLead(&leads[i]))
	}
	return out
}

// LeadEventResponse is the wire shape of a timeline entry.
type LeadEventResponse struct {
	ID           uuid.UUID       `json:"id"`
	LeadID       uuid.UUID       `json:"leadId"`
	ActorUserID  *uuid.UUID      `json:"actorUserId,omitempty"`
	EventType    string          `json:"eventType"`
	EventPayload json.RawMessage `json:"eventPayload"`
	CreatedAt    time.Time       `json:"createdAt"`
}

// FromLeadEvents maps timeline entries onto the wire shape.
func FromLeadEvents(events []repository.LeadEvent) []LeadEventResponse {
	out := make([]LeadEventResponse, 0, len(events))
	for _, e := range events {
		out = append(out, LeadEventResponse{
			ID:           e.ID,
			LeadID:       e.LeadID,
			ActorUserID:  e.ActorUserID,
			EventType:    e.EventType,
			EventPayload: e.EventPayload,
			CreatedAt:    e.CreatedAt,
		})
	}
	return out
}
