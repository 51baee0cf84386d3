package repository

import (
	"context"

	"github.com/google/uuid"
)

// ListUnlinkedPickupRecoveries returns workshop-pickup recovery leads that
// have no drop-off destination yet. These are the candidates for linking when
// a workshop lead gets a branch.
func (r *Repository) ListUnlinkedPickupRecoveries(ctx context.Context, companyID uuid.UUID) ([]Lead, error) {
	query := leadSelect + `
		WHERE l.company_id = $1
		  AND l.lead_type = 'recovery'
		  AND l.source = 'workshop_pickup'
		  AND (l.dropoff_to IS NULL OR l.dropoff_to = '' OR l.branch_id IS NULL)`

	rows, err := r.pool.Query(ctx, query, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var leads []Lead
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		leads = append(leads, *lead)
	}
	return leads, rows.Err()
}

// ListPickupRecoveriesAtBranch returns workshop-pickup recovery leads whose
// drop-off points at the given branch, matched by stored label, google
// location text, or branch id. NULL columns never match.
func (r *Repository) ListPickupRecoveriesAtBranch(ctx context.Context, companyID, branchID uuid.UUID, label string, google *string) ([]Lead, error) {
	query := leadSelect + `
		WHERE l.company_id = $1
		  AND l.lead_type = 'recovery'
		  AND l.source = 'workshop_pickup'
		  AND (l.dropoff_to = $2 OR l.dropoff_google_location = $3 OR l.branch_id = $4)`

	rows, err := r.pool.Query(ctx, query, companyID, label, google, branchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var leads []Lead
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		leads = append(leads, *lead)
	}
	return leads, rows.Err()
}

// SetRecoveryDropoff points a recovery lead's drop-off at a branch location
// and records the customer_to_branch flow.
func (r *Repository) SetRecoveryDropoff(ctx context.Context, companyID, leadID uuid.UUID, label string, google *string) error {
	const query = `
		UPDATE leads
		SET dropoff_to = $3,
		    dropoff_google_location = $4,
		    recovery_flow = 'customer_to_branch',
		    updated_at = now()
		WHERE company_id = $1 AND id = $2`

	_, err := r.pool.Exec(ctx, query, companyID, leadID, label, google)
	return err
}

// ClearRecoveryDropoff removes the drop-off destination from a recovery lead
// after its workshop lead loses the branch it pointed at.
func (r *Repository) ClearRecoveryDropoff(ctx context.Context, companyID, leadID uuid.UUID) error {
	const query = `
		UPDATE leads
		SET dropoff_to = NULL,
		    dropoff_google_location = NULL,
		    updated_at = now()
		WHERE company_id = $1 AND id = $2`

	_, err := r.pool.Exec(ctx, query, companyID, leadID)
	return err
}
