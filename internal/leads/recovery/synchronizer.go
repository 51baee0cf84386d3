// Package recovery keeps workshop-pickup recovery leads pointed at the right
// drop-off. When a workshop lead gains or loses a branch, linked recovery
// leads follow.
package recovery

import (
	"context"
	"fmt"

	branches "workshop_portal_backend/internal/branches/repository"
	"workshop_portal_backend/internal/leads/repository"
	"workshop_portal_backend/platform/logger"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// BranchResolver resolves a branch into its display location.
type BranchResolver interface {
	ResolveLocation(ctx context.Context, companyID, branchID uuid.UUID) (branches.Location, error)
}

// Store is the lead persistence surface the synchronizer needs.
type Store interface {
	ListUnlinkedPickupRecoveries(ctx context.Context, companyID uuid.UUID) ([]repository.Lead, error)
	ListPickupRecoveriesAtBranch(ctx context.Context, companyID, branchID uuid.UUID, label string, google *string) ([]repository.Lead, error)
	SetRecoveryDropoff(ctx context.Context, companyID, leadID uuid.UUID, label string, google *string) error
	ClearRecoveryDropoff(ctx context.Context, companyID, leadID uuid.UUID) error
}

// Synchronizer updates linked recovery leads after a workshop lead's branch
// changes. The link is by value equality on the stored destination, not a
// foreign key, so the matching here must mirror what SetRecoveryDropoff wrote.
type Synchronizer struct {
	branches BranchResolver
	store    Store
	log      *logger.Logger
}

// New creates a recovery synchronizer.
func New(branchResolver BranchResolver, store Store, log *logger.Logger) *Synchronizer {
	return &Synchronizer{branches: branchResolver, store: store, log: log}
}

// OnBranchAssigned points every pickup recovery without a drop-off at the
// newly assigned branch.
func (s *Synchronizer) OnBranchAssigned(ctx context.Context, companyID, branchID uuid.UUID) error {
	loc, err := s.branches.ResolveLocation(ctx, companyID, branchID)
	if err != nil {
		return fmt.Errorf("resolve branch location: %w", err)
	}

	google := loc.Google
	if google == nil {
		google = &loc.Label
	}

	candidates, err := s.store.ListUnlinkedPickupRecoveries(ctx, companyID)
	if err != nil {
		return fmt.Errorf("list pickup recoveries: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(5)
	for _, candidate := range candidates {
		candidate := candidate
		g.Go(func() error {
			if err := s.store.SetRecoveryDropoff(gctx, companyID, candidate.ID, loc.Label, google); err != nil {
				return fmt.Errorf("set recovery dropoff: %w", err)
			}
			s.log.Info("recovery dropoff linked to branch",
				"recovery_lead_id", candidate.ID.String(),
				"branch_id", branchID.String(),
			)
			return nil
		})
	}
	return g.Wait()
}

// OnBranchCleared removes the drop-off from pickup recoveries that pointed at
// the branch the workshop lead just lost.
func (s *Synchronizer) OnBranchCleared(ctx context.Context, companyID, previousBranchID uuid.UUID) error {
	loc, err := s.branches.ResolveLocation(ctx, companyID, previousBranchID)
	if err != nil {
		return fmt.Errorf("resolve branch location: %w", err)
	}

	linked, err := s.store.ListPickupRecoveriesAtBranch(ctx, companyID, previousBranchID, loc.Label, loc.Google)
	if err != nil {
		return fmt.Errorf("list linked recoveries: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(5)
	for _, candidate := range linked {
		candidate := candidate
		g.Go(func() error {
			if err := s.store.ClearRecoveryDropoff(gctx, companyID, candidate.ID); err != nil {
				return fmt.Errorf("clear recovery dropoff: %w", err)
			}
			s.log.Info("recovery dropoff unlinked from branch",
				"recovery_lead_id", candidate.ID.String(),
				"branch_id", previousBranchID.String(),
			)
			return nil
		})
	}
	return g.Wait()
}
