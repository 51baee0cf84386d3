package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"workshop_portal_backend/internal/leads/domain"
	"workshop_portal_backend/internal/leads/repository"
	"workshop_portal_backend/internal/leads/transport"
	"workshop_portal_backend/platform/apperr"

	"github.com/google/uuid"
)

// TransitionRSA moves an RSA lead through the technician flow. Accept is open
// to any technician while the lead is unassigned; every other action requires
// the acting technician to hold the assignment.
func (s *Service) TransitionRSA(ctx context.Context, companyID, leadID, actor uuid.UUID, req transport.TransitionRequest) (*repository.Lead, error) {
	lead, err := s.Get(ctx, companyID, leadID)
	if err != nil {
		return nil, err
	}
	if lead.LeadType != domain.TypeRSA {
		return nil, apperr.Validation("Transition is supported only for RSA leads")
	}

	action, ok := domain.ParseRSAAction(req.Action)
	if !ok {
		return nil, apperr.Validation("action is required")
	}

	currentStatus := domain.NormalizeRSAStatus(lead.LeadStatus)
	if currentStatus == domain.StatusDone || currentStatus == domain.StatusLost {
		return nil, apperr.Validation("Lead is already closed")
	}

	if !domain.RSAStageAllowed(action, lead.LeadStage) {
		stage := lead.LeadStage
		if stage == "" {
			stage = "unknown"
		}
		return nil, apperr.Validation(fmt.Sprintf("Invalid transition from stage '%s' using action '%s'", stage, action))
	}

	assigned := lead.AssignedUserID
	if action != domain.RSAAccept {
		if assigned == nil || *assigned != actor {
			return nil, apperr.Forbidden("Only assigned technician can update this lead")
		}
	} else if assigned != nil && *assigned != actor {
		return nil, apperr.Forbidden("This lead is assigned to another technician")
	}

	var remark *string
	if req.Remark != nil {
		trimmed := strings.TrimSpace(*req.Remark)
		remark = &trimmed
	}

	next := domain.RSATransitionFor(action)

	nextAssigned := assigned
	if nextAssigned == nil {
		nextAssigned = &actor
	}
	assignedAt := lead.AssignedAt
	if action == domain.RSAAccept {
		now := time.Now()
		assignedAt = &now
	}

	update := updateFromLead(lead, func(u *repository.Update) {
		u.LeadStage = next.LeadStage
		u.LeadStatus = next.LeadStatus
		u.AssignedUserID = nextAssigned
		u.AssignedAt = assignedAt
		if remark != nil {
			u.AgentRemark = remark
		}
	})
	if err := s.store.Save(ctx, companyID, leadID, update); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to apply transition", err)
	}

	if err := s.store.AppendEvent(ctx, repository.EventInput{
		CompanyID:   companyID,
		LeadID:      leadID,
		ActorUserID: &actor,
		EventType:   next.EventType,
		Payload: map[string]any{
			"action": string(action),
			"from":   map[string]any{"leadStage": lead.LeadStage, "leadStatus": lead.LeadStatus},
			"to":     map[string]any{"leadStage": next.LeadStage, "leadStatus": next.LeadStatus},
			"remark": remark,
		},
	}); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to record transition", err)
	}

	updated, err := s.store.GetByID(ctx, companyID, leadID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to reload lead", err)
	}
	return updated, nil
}
