// Package service implements the inspection lifecycle rules that assignment
// changes must respect.
package service

import (
	"context"

	"workshop_portal_backend/internal/inspections/repository"
	"workshop_portal_backend/platform/apperr"
	"workshop_portal_backend/platform/logger"

	"github.com/google/uuid"
)

const (
	// LockedMessage is the caller-facing message for the verified-inspection rule.
	LockedMessage = "Inspection already verified. Reassign/assign is not allowed."

	reassignRemarks = "Inspection reassigned to another workshop/branch."
)

// ErrLocked is returned when the lead's latest inspection is verified and the
// requested assignment must be refused before any write happens.
func ErrLocked() *apperr.Error {
	return apperr.Invariant(LockedMessage)
}

// Store is the persistence surface the lifecycle manager needs.
type Store interface {
	GetLatestForLead(ctx context.Context, companyID, leadID uuid.UUID) (*repository.Inspection, error)
	Create(ctx context.Context, in repository.CreateInput) (*repository.Inspection, error)
	Cancel(ctx context.Context, companyID, inspectionID, cancelledBy uuid.UUID, remarks string) error
}

// AssignmentTarget carries the lead fields copied onto a fresh inspection.
type AssignmentTarget struct {
	CompanyID  uuid.UUID
	LeadID     uuid.UUID
	CarID      *uuid.UUID
	CustomerID *uuid.UUID
	BranchID   *uuid.UUID
}

// Manager drives inspection creation and cancellation for assignment changes.
type Manager struct {
	store Store
	log   *logger.Logger
}

// NewManager creates an inspection lifecycle manager.
func NewManager(store Store, log *logger.Logger) *Manager {
	return &Manager{store: store, log: log}
}

// CheckReassignable returns ErrLocked when the lead's latest inspection is
// verified. Coordinators call this before writing anything.
func (m *Manager) CheckReassignable(ctx context.Context, companyID, leadID uuid.UUID) error {
	latest, err := m.store.GetLatestForLead(ctx, companyID, leadID)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to load latest inspection", err)
	}
	if latest.IsVerified() {
		return ErrLocked()
	}
	return nil
}

// EnsureForAssignment makes sure the lead has a fresh pending inspection for
// its new branch. An existing unverified inspection is cancelled with an audit
// reason and replaced; a verified one refuses the whole operation.
func (m *Manager) EnsureForAssignment(ctx context.Context, target AssignmentTarget, actor uuid.UUID) (*repository.Inspection, error) {
	existing, err := m.store.GetLatestForLead(ctx, target.CompanyID, target.LeadID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to load latest inspection", err)
	}

	if existing.IsVerified() {
		return nil, ErrLocked()
	}

	if existing != nil {
		if err := m.store.Cancel(ctx, target.CompanyID, existing.ID, actor, reassignRemarks); err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, "failed to cancel inspection", err)
		}
	}

	created, err := m.store.Create(ctx, repository.CreateInput{
		CompanyID:  target.CompanyID,
		LeadID:     target.LeadID,
		CarID:      target.CarID,
		CustomerID: target.CustomerID,
		BranchID:   target.BranchID,
		Status:     "pending",
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to create inspection", err)
	}
	return created, nil
}
