// Package repository provides data access for vehicle inspections.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when an inspection does not exist.
var ErrNotFound = errors.New("inspection not found")

// Inspection is a physical vehicle check tied to a lead.
type Inspection struct {
	ID            uuid.UUID
	CompanyID     uuid.UUID
	LeadID        *uuid.UUID
	CarID         *uuid.UUID
	CustomerID    *uuid.UUID
	BranchID      *uuid.UUID
	Status        string
	VerifiedAt    *time.Time
	CancelledBy   *uuid.UUID
	CancelledAt   *time.Time
	CancelRemarks *string
	StartAt       *time.Time
	AgentRemark   *string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// IsVerified reports whether the inspection has been verified and is
// therefore immutable with respect to assignment changes.
func (i *Inspection) IsVerified() bool {
	return i != nil && i.VerifiedAt != nil
}

// CreateInput carries the fields copied from the lead when an inspection
// is opened.
type CreateInput struct {
	CompanyID   uuid.UUID
	LeadID      uuid.UUID
	CarID       *uuid.UUID
	CustomerID  *uuid.UUID
	BranchID    *uuid.UUID
	Status      string
	AgentRemark *string
}

// Repository provides inspection persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates an inspection repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const inspectionColumns = `
	id, company_id, lead_id, car_id, customer_id, branch_id, status,
	verified_at, cancelled_by, cancelled_at, cancel_remarks, start_at,
	agent_remark, created_at, updated_at`

func scanInspection(row pgx.Row) (*Inspection, error) {
	var i Inspection
	err := row.Scan(
		&i.ID, &i.CompanyID, &i.LeadID, &i.CarID, &i.CustomerID, &i.BranchID, &i.Status,
		&i.VerifiedAt, &i.CancelledBy, &i.CancelledAt, &i.CancelRemarks, &i.StartAt,
		&i.AgentRemark, &i.CreatedAt, &i.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &i, nil
}

// GetLatestForLead returns the most recently created inspection for a lead,
// or nil when the lead has none.
func (r *Repository) GetLatestForLead(ctx context.Context, companyID, leadID uuid.UUID) (*Inspection, error) {
	query := `
		SELECT ` + inspectionColumns + `
		FROM inspections
		WHERE company_id = $1 AND lead_id = $2
		ORDER BY created_at DESC
		LIMIT 1`

	inspection, err := scanInspection(r.pool.QueryRow(ctx, query, companyID, leadID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return inspection, nil
}

// Create inserts a new inspection. A pending inspection gets its start
// timestamp set on insert.
func (r *Repository) Create(ctx context.Context, in CreateInput) (*Inspection, error) {
	status := in.Status
	if status == "" {
		status = "pending"
	}
	var startAt *time.Time
	if status == "pending" {
		now := time.Now()
		startAt = &now
	}

	query := `
		INSERT INTO inspections (company_id, lead_id, car_id, customer_id, branch_id, status, start_at, agent_remark)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING ` + inspectionColumns

	return scanInspection(r.pool.QueryRow(ctx, query,
		in.CompanyID, in.LeadID, in.CarID, in.CustomerID, in.BranchID, status, startAt, in.AgentRemark,
	))
}

// Cancel soft-cancels an inspection with an audit trail.
func (r *Repository) Cancel(ctx context.Context, companyID, inspectionID, cancelledBy uuid.UUID, remarks string) error {
	const query = `
		UPDATE inspections
		SET status = 'cancelled',
		    cancelled_by = $3,
		    cancelled_at = now(),
		    cancel_remarks = $4,
		    updated_at = now()
		WHERE company_id = $1 AND id = $2`

	tag, err := r.pool.Exec(ctx, query, companyID, inspectionID, cancelledBy, remarks)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
