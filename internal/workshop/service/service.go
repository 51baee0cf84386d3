// Package service implements the quote negotiation state machine: pending →
// negotiation → accepted/rejected, with job card and lead branch cascades.
package service

import (
	"context"
	"strings"

	"workshop_portal_backend/internal/events"
	"workshop_portal_backend/internal/workshop/repository"
	"workshop_portal_backend/internal/workshop/transport"
	"workshop_portal_backend/platform/apperr"
	"workshop_portal_backend/platform/logger"

	"github.com/google/uuid"
)

// Workflow actions.
const (
	ActionAccepted    = "accepted"
	ActionNegotiation = "negotiation"
	ActionRejected    = "rejected"
)

// Job card statuses driven by quote outcomes.
const (
	JobCardPending    = "Pending"
	JobCardReAssigned = "Re-Assigned"
)

var knownStatuses = map[string]bool{
	"pending":     true,
	"accepted":    true,
	"negotiation": true,
	"rejected":    true,
	"cancelled":   true,
	"verified":    true,
}

// Store is the persistence surface the state machine needs.
type Store interface {
	Get(ctx context.Context, companyID, quoteID uuid.UUID, branchID *uuid.UUID) (*repository.Quote, error)
	ApplyNegotiation(ctx context.Context, companyID, quoteID uuid.UUID, branchID *uuid.UUID, amount float64, meta map[string]any) error
	ApplyAccepted(ctx context.Context, companyID, quoteID uuid.UUID, branchID *uuid.UUID, amount float64, approvedBy uuid.UUID) error
	ApplyRejected(ctx context.Context, companyID, quoteID uuid.UUID, branchID *uuid.UUID, meta map[string]any) error
	ApplyStatusUpdate(ctx context.Context, companyID, quoteID uuid.UUID, branchID *uuid.UUID, status string, computedTotal, laborHours, laborRate *float64) error
	ApplyAmountUpdate(ctx context.Context, companyID, quoteID uuid.UUID, branchID *uuid.UUID, computedTotal, laborHours, laborRate *float64) error
	SetJobCardStatus(ctx context.Context, companyID, jobCardID uuid.UUID, status string) error
	SetLeadBranchForJobCard(ctx context.Context, companyID, jobCardID, branchID uuid.UUID) error
	ClearLeadBranchForJobCard(ctx context.Context, companyID, jobCardID, branchID uuid.UUID) error
}

// Service drives workshop quotes through their lifecycle.
type Service struct {
	store Store
	bus   events.Bus
	log   *logger.Logger
}

// New creates a quote service.
func New(store Store, bus events.Bus, log *logger.Logger) *Service {
	return &Service{store: store, bus: bus, log: log}
}

// Get loads a quote. branchID narrows the scope for the mobile surface.
func (s *Service) Get(ctx context.Context, companyID, quoteID uuid.UUID, branchID *uuid.UUID) (*repository.Quote, error) {
	quote, err := s.store.Get(ctx, companyID, quoteID, branchID)
	if err != nil {
		if err == repository.ErrNotFound {
			return nil, apperr.NotFound("Not found")
		}
		return nil, apperr.Wrap(apperr.KindInternal, "failed to load quote", err)
	}
	return quote, nil
}

// ApplyUpdate dispatches the PATCH body: a workflow action when present,
// otherwise a direct status/amount update. Returns the refreshed quote.
func (s *Service) ApplyUpdate(ctx context.Context, companyID, quoteID uuid.UUID, branchID *uuid.UUID, actor uuid.UUID, req transport.QuoteUpdateRequest) (*repository.Quote, error) {
	quote, err := s.Get(ctx, companyID, quoteID, branchID)
	if err != nil {
		return nil, err
	}

	if req.Workflow != nil {
		if err := s.applyWorkflow(ctx, quote, branchID, actor, req.Workflow); err != nil {
			return nil, err
		}
	} else if req.Direct != nil {
		if err := s.applyDirect(ctx, quote, branchID, req.Direct); err != nil {
			return nil, err
		}
	}

	return s.Get(ctx, companyID, quoteID, branchID)
}

func (s *Service) applyWorkflow(ctx context.Context, quote *repository.Quote, branchID *uuid.UUID, actor uuid.UUID, action *transport.WorkflowUpdate) error {
	switch action.Action {
	case ActionNegotiation:
		return s.negotiate(ctx, quote, branchID, action)
	case ActionAccepted:
		return s.accept(ctx, quote, branchID, actor)
	case ActionRejected:
		return s.reject(ctx, quote, branchID, action)
	default:
		return apperr.Validation("Invalid workflow action.")
	}
}

func (s *Service) negotiate(ctx context.Context, quote *repository.Quote, branchID *uuid.UUID, action *transport.WorkflowUpdate) error {
	if action.NegotiatedAmount == nil || *action.NegotiatedAmount <= 0 {
		return apperr.Validation("Valid negotiatedAmount is required.")
	}
	amount := *action.NegotiatedAmount

	meta := cloneMeta(quote.Meta)
	meta["negotiationPreviousAmount"] = quote.TotalAmount
	meta["negotiatedAmount"] = amount
	meta["negotiationNote"] = trimmedOrNil(action.NegotiationNote)

	if err := s.store.ApplyNegotiation(ctx, quote.CompanyID, quote.ID, branchID, amount, meta); err != nil {
		return wrapStoreErr("failed to apply negotiation", err)
	}

	s.bus.Publish(ctx, events.QuoteNegotiated{
		BaseEvent:        events.NewBaseEvent(),
		QuoteID:          quote.ID,
		CompanyID:        quote.CompanyID,
		NegotiatedAmount: amount,
		PreviousAmount:   quote.TotalAmount,
	})
	return nil
}

func (s *Service) accept(ctx context.Context, quote *repository.Quote, branchID *uuid.UUID, actor uuid.UUID) error {
	amount := quote.TotalAmount
	if quote.NegotiatedAmount != nil {
		amount = *quote.NegotiatedAmount
	} else if quote.QuotedAmount != nil {
		amount = *quote.QuotedAmount
	}

	if err := s.store.ApplyAccepted(ctx, quote.CompanyID, quote.ID, branchID, amount, actor); err != nil {
		return wrapStoreErr("failed to accept quote", err)
	}

	if quote.JobCardID != nil {
		if err := s.store.SetJobCardStatus(ctx, quote.CompanyID, *quote.JobCardID, JobCardPending); err != nil {
			return apperr.Wrap(apperr.KindInternal, "failed to update job card", err)
		}
		if quote.BranchID != nil {
			if err := s.store.SetLeadBranchForJobCard(ctx, quote.CompanyID, *quote.JobCardID, *quote.BranchID); err != nil {
				return apperr.Wrap(apperr.KindInternal, "failed to assign lead branch", err)
			}
		}
	}

	s.bus.Publish(ctx, events.QuoteAccepted{
		BaseEvent:      events.NewBaseEvent(),
		QuoteID:        quote.ID,
		CompanyID:      quote.CompanyID,
		BranchID:       quote.BranchID,
		AcceptedAmount: amount,
		ApprovedBy:     actor,
	})
	return nil
}

func (s *Service) reject(ctx context.Context, quote *repository.Quote, branchID *uuid.UUID, action *transport.WorkflowUpdate) error {
	meta := cloneMeta(quote.Meta)
	reason := trimmedOrNil(action.RejectionReason)
	meta["rejectionReason"] = reason

	if err := s.store.ApplyRejected(ctx, quote.CompanyID, quote.ID, branchID, meta); err != nil {
		return wrapStoreErr("failed to reject quote", err)
	}

	if quote.JobCardID != nil {
		if err := s.store.SetJobCardStatus(ctx, quote.CompanyID, *quote.JobCardID, JobCardReAssigned); err != nil {
			return apperr.Wrap(apperr.KindInternal, "failed to update job card", err)
		}
		// Only clear the lead branch while it still points at this quote's
		// branch; a branch set by a later assignment wins.
		if quote.BranchID != nil {
			if err := s.store.ClearLeadBranchForJobCard(ctx, quote.CompanyID, *quote.JobCardID, *quote.BranchID); err != nil {
				return apperr.Wrap(apperr.KindInternal, "failed to clear lead branch", err)
			}
		}
	}

	reasonStr := ""
	if reason != nil {
		reasonStr = *reason
	}
	s.bus.Publish(ctx, events.QuoteRejected{
		BaseEvent: events.NewBaseEvent(),
		QuoteID:   quote.ID,
		CompanyID: quote.CompanyID,
		Reason:    reasonStr,
	})
	return nil
}

func (s *Service) applyDirect(ctx context.Context, quote *repository.Quote, branchID *uuid.UUID, direct *transport.DirectUpdate) error {
	var computedTotal *float64
	if direct.LaborHours != nil && direct.LaborRate != nil &&
		*direct.LaborHours > 0 && *direct.LaborRate >= 0 {
		total := *direct.LaborHours * *direct.LaborRate
		computedTotal = &total
	}

	status := strings.ToLower(strings.TrimSpace(direct.Status))
	if knownStatuses[status] {
		if err := s.store.ApplyStatusUpdate(ctx, quote.CompanyID, quote.ID, branchID, status, computedTotal, direct.LaborHours, direct.LaborRate); err != nil {
			return wrapStoreErr("failed to update quote", err)
		}
		return nil
	}

	if computedTotal != nil || direct.LaborHours != nil || direct.LaborRate != nil {
		if err := s.store.ApplyAmountUpdate(ctx, quote.CompanyID, quote.ID, branchID, computedTotal, direct.LaborHours, direct.LaborRate); err != nil {
			return wrapStoreErr("failed to update quote amounts", err)
		}
	}
	return nil
}

func wrapStoreErr(message string, err error) error {
	if err == repository.ErrNotFound {
		return apperr.NotFound("Not found")
	}
	return apperr.Wrap(apperr.KindInternal, message, err)
}

func cloneMeta(meta map[string]any) map[string]any {
	out := make(map[string]any, len(meta)+3)
	for k, v := range meta {
		out[k] = v
	}
	return out
}

func trimmedOrNil(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
