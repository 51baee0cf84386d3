// Package repository provides data access for workshop quotes and the job
// card and lead rows the quote state machine cascades into.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when a quote does not exist within the scope.
var ErrNotFound = errors.New("quote not found")

// Quote is a branch's labor quote for a job.
type Quote struct {
	ID               uuid.UUID
	CompanyID        uuid.UUID
	BranchID         *uuid.UUID
	EstimateID       *uuid.UUID
	JobCardID        *uuid.UUID
	Status           string
	Currency         *string
	TotalAmount      float64
	NegotiatedAmount *float64
	QuotedAmount     *float64
	AcceptedAmount   *float64
	AdditionalAmount float64
	ETAHours         *float64
	Remarks          *string
	Meta             map[string]any
	CreatedBy        *uuid.UUID
	ApprovedBy       *uuid.UUID
	ApprovedAt       *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Repository provides workshop quote persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a workshop repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const quoteColumns = `
	id, company_id, branch_id, estimate_id, job_card_id, status, currency,
	COALESCE(total_amount, 0), negotiated_amount, quoted_amount, accepted_amount,
	COALESCE(additional_amount, 0), eta_hours, remarks, meta,
	created_by, approved_by, approved_at, created_at, updated_at`

func scanQuote(row pgx.Row) (*Quote, error) {
	var q Quote
	err := row.Scan(
		&q.ID, &q.CompanyID, &q.BranchID, &q.EstimateID, &q.JobCardID, &q.Status, &q.Currency,
		&q.TotalAmount, &q.NegotiatedAmount, &q.QuotedAmount, &q.AcceptedAmount,
		&q.AdditionalAmount, &q.ETAHours, &q.Remarks, &q.Meta,
		&q.CreatedBy, &q.ApprovedBy, &q.ApprovedAt, &q.CreatedAt, &q.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &q, nil
}

// Get loads a quote scoped to a company, and to a branch when one is given.
// The mobile surface always passes a branch; the web surface does not.
func (r *Repository) Get(ctx context.Context, companyID, quoteID uuid.UUID, branchID *uuid.UUID) (*Quote, error) {
	query := `
		SELECT ` + quoteColumns + `
		FROM workshop_quotes
		WHERE company_id = $1 AND id = $2
		  AND ($3::uuid IS NULL OR branch_id = $3)`

	quote, err := scanQuote(r.pool.QueryRow(ctx, query, companyID, quoteID, branchID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return quote, nil
}

// ApplyNegotiation moves a quote into negotiation at the given amount.
func (r *Repository) ApplyNegotiation(ctx context.Context, companyID, quoteID uuid.UUID, branchID *uuid.UUID, amount float64, meta map[string]any) error {
	const query = `
		UPDATE workshop_quotes
		SET status = 'negotiation',
		    negotiated_amount = $4,
		    total_amount = $4,
		    meta = $5,
		    updated_at = now()
		WHERE company_id = $1 AND id = $2
		  AND ($3::uuid IS NULL OR branch_id = $3)`

	return r.exec(ctx, query, companyID, quoteID, branchID, amount, meta)
}

// ApplyAccepted marks a quote accepted at the given amount.
func (r *Repository) ApplyAccepted(ctx context.Context, companyID, quoteID uuid.UUID, branchID *uuid.UUID, amount float64, approvedBy uuid.UUID) error {
	const query = `
		UPDATE workshop_quotes
		SET status = 'accepted',
		    accepted_amount = $4,
		    total_amount = $4,
		    approved_by = $5,
		    approved_at = now(),
		    updated_at = now()
		WHERE company_id = $1 AND id = $2
		  AND ($3::uuid IS NULL OR branch_id = $3)`

	return r.exec(ctx, query, companyID, quoteID, branchID, amount, approvedBy)
}

// ApplyRejected marks a quote rejected, storing the reason inside meta.
func (r *Repository) ApplyRejected(ctx context.Context, companyID, quoteID uuid.UUID, branchID *uuid.UUID, meta map[string]any) error {
	const query = `
		UPDATE workshop_quotes
		SET status = 'rejected',
		    meta = $4,
		    updated_at = now()
		WHERE company_id = $1 AND id = $2
		  AND ($3::uuid IS NULL OR branch_id = $3)`

	return r.exec(ctx, query, companyID, quoteID, branchID, meta)
}

// ApplyStatusUpdate applies a direct status change together with any labor
// figures. Amounts only move when a computed total is present; accepted_amount
// is derived only when the quote transitions into accepted.
func (r *Repository) ApplyStatusUpdate(ctx context.Context, companyID, quoteID uuid.UUID, branchID *uuid.UUID, status string, computedTotal, laborHours, laborRate *float64) error {
	const query = `
		UPDATE workshop_quotes
		SET status = $4,
		    total_amount = COALESCE($5, total_amount),
		    quoted_amount = COALESCE($5, quoted_amount),
		    accepted_amount = CASE
		      WHEN $4 = 'accepted'
		        THEN COALESCE($5, negotiated_amount, quoted_amount, total_amount)
		      ELSE accepted_amount
		    END,
		    eta_hours = COALESCE($6, eta_hours),
		    meta = CASE
		      WHEN $7::numeric IS NOT NULL
		        THEN COALESCE(meta, '{}'::jsonb) || jsonb_build_object('laborRate', $7::numeric)
		      ELSE meta
		    END,
		    updated_at = now()
		WHERE company_id = $1 AND id = $2
		  AND ($3::uuid IS NULL OR branch_id = $3)`

	return r.exec(ctx, query, companyID, quoteID, branchID, status, computedTotal, laborHours, laborRate)
}

// ApplyAmountUpdate updates labor figures without touching the status.
func (r *Repository) ApplyAmountUpdate(ctx context.Context, companyID, quoteID uuid.UUID, branchID *uuid.UUID, computedTotal, laborHours, laborRate *float64) error {
	const query = `
		UPDATE workshop_quotes
		SET total_amount = COALESCE($4, total_amount),
		    quoted_amount = COALESCE($4, quoted_amount),
		    eta_hours = COALESCE($5, eta_hours),
		    meta = CASE
		      WHEN $6::numeric IS NOT NULL
		        THEN COALESCE(meta, '{}'::jsonb) || jsonb_build_object('laborRate', $6::numeric)
		      ELSE meta
		    END,
		    updated_at = now()
		WHERE company_id = $1 AND id = $2
		  AND ($3::uuid IS NULL OR branch_id = $3)`

	return r.exec(ctx, query, companyID, quoteID, branchID, computedTotal, laborHours, laborRate)
}

// SetJobCardStatus moves the linked job card to the given status.
func (r *Repository) SetJobCardStatus(ctx context.Context, companyID, jobCardID uuid.UUID, status string) error {
	const query = `
		UPDATE job_cards
		SET status = $3, updated_at = now()
		WHERE company_id = $1 AND id = $2`

	_, err := r.pool.Exec(ctx, query, companyID, jobCardID, status)
	return err
}

// SetLeadBranchForJobCard points the job card's lead at the given branch.
func (r *Repository) SetLeadBranchForJobCard(ctx context.Context, companyID, jobCardID, branchID uuid.UUID) error {
	const query = `
		UPDATE leads
		SET branch_id = $3, updated_at = now()
		WHERE company_id = $1
		  AND id = (SELECT lead_id FROM job_cards WHERE company_id = $1 AND id = $2)`

	_, err := r.pool.Exec(ctx, query, companyID, jobCardID, branchID)
	return err
}

// ClearLeadBranchForJobCard clears the job card's lead branch, but only while
// it still points at the given branch. A branch set by a later assignment is
// left alone.
func (r *Repository) ClearLeadBranchForJobCard(ctx context.Context, companyID, jobCardID, branchID uuid.UUID) error {
	const query = `
		UPDATE leads
		SET branch_id = NULL, updated_at = now()
		WHERE company_id = $1
		  AND id = (SELECT lead_id FROM job_cards WHERE company_id = $1 AND id = $2)
		  AND branch_id = $3`

	_, err := r.pool.Exec(ctx, query, companyID, jobCardID, branchID)
	return err
}

func (r *Repository) exec(ctx context.Context, query string, args ...any) error {
	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
