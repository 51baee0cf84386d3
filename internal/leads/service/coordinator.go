package service

import (
	"context"
	"time"

	"workshop_portal_backend/internal/events"
	inspsvc "workshop_portal_backend/internal/inspections/service"
	"workshop_portal_backend/internal/leads/domain"
	"workshop_portal_backend/internal/leads/repository"
	"workshop_portal_backend/internal/leads/transport"
	"workshop_portal_backend/platform/apperr"

	"github.com/google/uuid"
)

// ApplyAssignment validates and applies a partial lead update, then fires the
// dependent side effects in order: audit event, inspection lifecycle,
// recovery sync, release scheduling. Validation and the verified-inspection
// check run before any write; side effects after the primary write are
// isolated per effect and never fail the call.
func (s *Service) ApplyAssignment(ctx context.Context, companyID, leadID, actor uuid.UUID, req transport.AssignmentRequest) (*repository.Lead, error) {
	lead, err := s.Get(ctx, companyID, leadID)
	if err != nil {
		return nil, err
	}
	if lead.IsLocked {
		return nil, apperr.Validation("Lead is closed and cannot be edited")
	}

	// branchId: absent keeps the current branch, explicit null clears it.
	nextBranch := lead.BranchID
	explicitClear := false
	if req.BranchID.Set {
		nextBranch = req.BranchID.Value
		explicitClear = req.BranchID.Value == nil
	}
	branchChanged := !uuidPtrEqual(nextBranch, lead.BranchID)

	nextAssigned := lead.AssignedUserID
	if req.AssignedUserID != nil {
		nextAssigned = req.AssignedUserID
	}
	assignedChanged := !uuidPtrEqual(nextAssigned, lead.AssignedUserID)

	nextStatus := lead.LeadStatus
	if req.Status != nil && *req.Status != "" {
		if lead.LeadType == domain.TypeRSA {
			nextStatus = domain.NormalizeRSAStatus(*req.Status)
		} else {
			nextStatus = *req.Status
		}
	}

	assignmentRequested := lead.LeadType == domain.TypeWorkshop &&
		nextStatus == domain.StatusCarIn &&
		(nextBranch != nil || nextAssigned != nil) &&
		(branchChanged || assignedChanged || req.EnsureInspection)

	if assignmentRequested {
		if err := s.inspections.CheckReassignable(ctx, companyID, leadID); err != nil {
			return nil, err
		}
	}

	nextStage := lead.LeadStage
	if req.LeadStage != nil {
		nextStage = *req.LeadStage
	}

	var assignedAt *time.Time
	if nextAssigned != nil {
		now := time.Now()
		assignedAt = &now
	}

	update := repository.Update{
		LeadStatus:            nextStatus,
		LeadStage:             nextStage,
		BranchID:              nextBranch,
		AssignedUserID:        nextAssigned,
		ServiceType:           coalesceStr(req.ServiceType, lead.ServiceType),
		RecoveryDirection:     coalesceStr(req.RecoveryDirection, lead.RecoveryDirection),
		RecoveryFlow:          coalesceStr(req.RecoveryFlow, lead.RecoveryFlow),
		PickupFrom:            coalesceStr(req.PickupFrom, lead.PickupFrom),
		DropoffTo:             coalesceStr(req.DropoffTo, lead.DropoffTo),
		PickupGoogleLocation:  lead.PickupGoogleLocation,
		DropoffGoogleLocation: lead.DropoffGoogleLocation,
		AssignedAt:            assignedAt,
		AgentRemark:           coalesceStr(req.AgentRemark, lead.AgentRemark),
		CustomerRemark:        coalesceStr(req.CustomerRemark, lead.CustomerRemark),
	}
	if err := s.store.Save(ctx, companyID, leadID, update); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to update lead", err)
	}

	if req.OwnerID != nil && !uuidPtrEqual(req.OwnerID, lead.AgentEmployeeID) {
		if err := s.store.UpdateOwner(ctx, companyID, leadID, *req.OwnerID); err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, "failed to update lead owner", err)
		}
	}

	updated, err := s.store.GetByID(ctx, companyID, leadID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to reload lead", err)
	}

	if branchChanged {
		if err := s.store.AppendEvent(ctx, repository.EventInput{
			CompanyID:   companyID,
			LeadID:      leadID,
			ActorUserID: &actor,
			EventType:   "branch_updated",
			Payload: map[string]any{
				"from": lead.BranchID,
				"to":   updated.BranchID,
			},
		}); err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, "failed to record branch change", err)
		}
		s.bus.Publish(ctx, events.LeadBranchUpdated{
			BaseEvent: events.NewBaseEvent(),
			LeadID:    leadID,
			CompanyID: companyID,
			From:      lead.BranchID,
			To:        updated.BranchID,
		})
	}

	if assignmentRequested {
		target := inspsvc.AssignmentTarget{
			CompanyID:  companyID,
			LeadID:     leadID,
			CarID:      lead.CarID,
			CustomerID: lead.CustomerID,
			BranchID:   nextBranch,
		}
		if _, err := s.inspections.EnsureForAssignment(ctx, target, actor); err != nil {
			s.log.SideEffectFailure("inspection_lifecycle", leadID.String(), err)
		}
	}

	if lead.LeadType == domain.TypeWorkshop && nextBranch != nil {
		if err := s.recovery.OnBranchAssigned(ctx, companyID, *nextBranch); err != nil {
			s.log.SideEffectFailure("recovery_sync_assign", leadID.String(), err)
		}
	}

	if lead.LeadType == domain.TypeWorkshop && explicitClear && lead.BranchID != nil {
		if err := s.recovery.OnBranchCleared(ctx, companyID, *lead.BranchID); err != nil {
			s.log.SideEffectFailure("recovery_sync_clear", leadID.String(), err)
		}
	}

	if lead.LeadType == domain.TypeRSA && nextAssigned != nil && s.scheduler != nil {
		if err := s.scheduler.ScheduleAssignmentRelease(ctx, companyID); err != nil {
			s.log.SideEffectFailure("assignment_release_schedule", leadID.String(), err)
		}
	}

	s.bus.Publish(ctx, events.LeadAssignmentApplied{
		BaseEvent:      events.NewBaseEvent(),
		LeadID:         leadID,
		CompanyID:      companyID,
		BranchID:       updated.BranchID,
		AssignedUserID: updated.AssignedUserID,
		ActorUserID:    actor,
	})

	return updated, nil
}
