// Package repository provides data access for leads and their timeline events.
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when a lead does not exist within the company scope.
var ErrNotFound = errors.New("lead not found")

// Lead is a tracked customer service request (RSA, workshop, or recovery).
type Lead struct {
	ID                    uuid.UUID
	CompanyID             uuid.UUID
	CustomerID            *uuid.UUID
	CarID                 *uuid.UUID
	BranchID              *uuid.UUID
	AssignedUserID        *uuid.UUID
	ServiceType           *string
	AssignedAt            *time.Time
	RecoveryDirection     *string
	RecoveryFlow          *string
	PickupFrom            *string
	DropoffTo             *string
	PickupGoogleLocation  *string
	DropoffGoogleLocation *string
	AgentEmployeeID       *uuid.UUID
	LeadType              string
	LeadStatus            string
	LeadStage             string
	Source                *string
	IsLocked              bool
	ClosedAt              *time.Time
	AgentRemark           *string
	CustomerRemark        *string
	CreatedAt             time.Time
	UpdatedAt             time.Time

	// Joined display fields, read-only.
	CustomerName   *string
	CustomerPhone  *string
	CustomerEmail  *string
	CarPlateNumber *string
	CarModel       *string
}

// LeadEvent is an audit entry on a lead's timeline.
type LeadEvent struct {
	ID           uuid.UUID
	LeadID       uuid.UUID
	CompanyID    uuid.UUID
	ActorUserID  *uuid.UUID
	EventType    string
	EventPayload json.RawMessage
	CreatedAt    time.Time
}

// CreateInput carries the fields for a new lead.
type CreateInput struct {
	CompanyID             uuid.UUID
	CustomerID            *uuid.UUID
	CarID                 *uuid.UUID
	BranchID              *uuid.UUID
	AssignedUserID        *uuid.UUID
	ServiceType           *string
	RecoveryDirection     *string
	RecoveryFlow          *string
	PickupFrom            *string
	DropoffTo             *string
	PickupGoogleLocation  *string
	DropoffGoogleLocation *string
	AgentEmployeeID       *uuid.UUID
	LeadType              string
	LeadStage             string
	Source                *string
}

// Update carries the full next state of the mutable lead columns. Services
// coalesce request fields against the current lead before calling Save, so
// every field here is final, not a delta.
type Update struct {
	LeadStatus            string
	LeadStage             string
	BranchID              *uuid.UUID
	AssignedUserID        *uuid.UUID
	ServiceType           *string
	RecoveryDirection     *string
	RecoveryFlow          *string
	PickupFrom            *string
	DropoffTo             *string
	PickupGoogleLocation  *string
	DropoffGoogleLocation *string
	AssignedAt            *time.Time
	AgentRemark           *string
	CustomerRemark        *string
}

// EventInput carries a new timeline entry.
type EventInput struct {
	CompanyID   uuid.UUID
	LeadID      uuid.UUID
	ActorUserID *uuid.UUID
	EventType   string
	Payload     any
}

// Repository provides lead persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a lead repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const leadSelect = `
	SELECT
		l.id, l.company_id, l.customer_id, l.car_id, l.branch_id, l.assigned_user_id,
		l.service_type, l.assigned_at, l.recovery_direction, l.recovery_flow,
		l.pickup_from, l.dropoff_to, l.pickup_google_location, l.dropoff_google_location,
		l.agent_employee_id, l.lead_type, l.lead_status, l.lead_stage, l.source,
		l.is_locked, l.closed_at, l.agent_remark, l.customer_remark, l.created_at, l.updated_at,
		c.name, c.phone, c.email, car.plate_number, car.model
	FROM leads l
	LEFT JOIN customers c ON c.id = l.customer_id
	LEFT JOIN cars car ON car.id = l.car_id`

func scanLead(row pgx.Row) (*Lead, error) {
	var l Lead
	err := row.Scan(
		&l.ID, &l.CompanyID, &l.CustomerID, &l.CarID, &l.BranchID, &l.AssignedUserID,
		&l.ServiceType, &l.AssignedAt, &l.RecoveryDirection, &l.RecoveryFlow,
		&l.PickupFrom, &l.DropoffTo, &l.PickupGoogleLocation, &l.DropoffGoogleLocation,
		&l.AgentEmployeeID, &l.LeadType, &l.LeadStatus, &l.LeadStage, &l.Source,
		&l.IsLocked, &l.ClosedAt, &l.AgentRemark, &l.CustomerRemark, &l.CreatedAt, &l.UpdatedAt,
		&l.CustomerName, &l.CustomerPhone, &l.CustomerEmail, &l.CarPlateNumber, &l.CarModel,
	)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// GetByID loads a lead scoped to a company.
func (r *Repository) GetByID(ctx context.Context, companyID, leadID uuid.UUID) (*Lead, error) {
	query := leadSelect + `
		WHERE l.company_id = $1 AND l.id = $2`

	lead, err := scanLead(r.pool.QueryRow(ctx, query, companyID, leadID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return lead, nil
}

// List returns all leads for a company, newest first.
func (r *Repository) List(ctx context.Context, companyID uuid.UUID) ([]Lead, error) {
	query := leadSelect + `
		WHERE l.company_id = $1
		ORDER BY l.created_at DESC`

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

// Create inserts a new lead with status open.
func (r *Repository) Create(ctx context.Context, in CreateInput) (*Lead, error) {
	stage := in.LeadStage
	if stage == "" {
		stage = "new"
	}

	const query = `
		INSERT INTO leads (
			company_id, customer_id, car_id, branch_id, assigned_user_id,
			service_type, recovery_direction, recovery_flow,
			pickup_from, dropoff_to, pickup_google_location, dropoff_google_location,
			agent_employee_id, lead_type, lead_status, lead_stage, source, is_locked
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, 'open', $15, $16, FALSE)
		RETURNING id`

	var id uuid.UUID
	err := r.pool.QueryRow(ctx, query,
		in.CompanyID, in.CustomerID, in.CarID, in.BranchID, in.AssignedUserID,
		in.ServiceType, in.RecoveryDirection, in.RecoveryFlow,
		in.PickupFrom, in.DropoffTo, in.PickupGoogleLocation, in.DropoffGoogleLocation,
		in.AgentEmployeeID, in.LeadType, stage, in.Source,
	).Scan(&id)
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, in.CompanyID, id)
}

// Save writes the full next state of the lead's mutable columns. closed_at is
// stamped once when the status closes the lead and never cleared afterwards.
func (r *Repository) Save(ctx context.Context, companyID, leadID uuid.UUID, u Update) error {
	const query = `
		UPDATE leads
		SET
			lead_status = $3,
			lead_stage = $4,
			branch_id = $5,
			assigned_user_id = $6,
			service_type = $7,
			recovery_direction = $8,
			recovery_flow = $9,
			pickup_from = $10,
			dropoff_to = $11,
			pickup_google_location = $12,
			dropoff_google_location = $13,
			assigned_at = $14,
			agent_remark = $15,
			customer_remark = $16,
			closed_at = CASE WHEN $3 IN ('done', 'lost') THEN COALESCE(closed_at, now()) ELSE closed_at END,
			updated_at = now()
		WHERE company_id = $1 AND id = $2`

	tag, err := r.pool.Exec(ctx, query, companyID, leadID,
		u.LeadStatus, u.LeadStage, u.BranchID, u.AssignedUserID,
		u.ServiceType, u.RecoveryDirection, u.RecoveryFlow,
		u.PickupFrom, u.DropoffTo, u.PickupGoogleLocation, u.DropoffGoogleLocation,
		u.AssignedAt, u.AgentRemark, u.CustomerRemark,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateOwner reassigns the owning agent in a single targeted update.
func (r *Repository) UpdateOwner(ctx context.Context, companyID, leadID, ownerID uuid.UUID) error {
	const query = `
		UPDATE leads
		SET agent_employee_id = $3, updated_at = now()
		WHERE company_id = $1 AND id = $2`

	_, err := r.pool.Exec(ctx, query, companyID, leadID, ownerID)
	return err
}

// Archive closes a lead without deleting it.
func (r *Repository) Archive(ctx context.Context, companyID, leadID uuid.UUID) error {
	const query = `
		UPDATE leads
		SET lead_stage = 'archived',
		    lead_status = 'closed',
		    closed_at = COALESCE(closed_at, now()),
		    updated_at = now()
		WHERE company_id = $1 AND id = $2`

	tag, err := r.pool.Exec(ctx, query, companyID, leadID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a lead and its timeline.
func (r *Repository) Delete(ctx context.Context, companyID, leadID uuid.UUID) error {
	if _, err := r.pool.Exec(ctx,
		`DELETE FROM lead_events WHERE company_id = $1 AND lead_id = $2`, companyID, leadID); err != nil {
		return err
	}
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM leads WHERE company_id = $1 AND id = $2`, companyID, leadID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// AppendEvent inserts a timeline entry. The payload is stored as JSONB.
func (r *Repository) AppendEvent(ctx context.Context, in EventInput) error {
	payload, err := json.Marshal(in.Payload)
	if err != nil {
		return err
	}

	const query = `
		INSERT INTO lead_events (lead_id, company_id, actor_user_id, event_type, event_payload)
		VALUES ($1, $2, $3, $4, $5)`

	_, err = r.pool.Exec(ctx, query, in.LeadID, in.CompanyID, in.ActorUserID, in.EventType, payload)
	return err
}

// ListEvents returns a lead's timeline, oldest first.
func (r *Repository) ListEvents(ctx context.Context, companyID, leadID uuid.UUID) ([]LeadEvent, error) {
	const query = `
		SELECT id, lead_id, company_id, actor_user_id, event_type, event_payload, created_at
		FROM lead_events
		WHERE company_id = $1 AND lead_id = $2
		ORDER BY created_at ASC`

	rows, err := r.pool.Query(ctx, query, companyID, leadID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []LeadEvent
	for rows.Next() {
		var e LeadEvent
		if err := rows.Scan(&e.ID, &e.LeadID, &e.CompanyID, &e.ActorUserID, &e.EventType, &e.EventPayload, &e.CreatedAt); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// ReleaseExpiredAssignments clears stale RSA assignments that no technician
// acted on within the timeout. Returns the number of released leads.
func (r *Repository) ReleaseExpiredAssignments(ctx context.Context, companyID uuid.UUID, timeout time.Duration) (int64, error) {
	const query = `
		UPDATE leads
		SET branch_id = NULL, assigned_user_id = NULL, assigned_at = NULL, updated_at = now()
		WHERE company_id = $1
		  AND lead_type = 'rsa'
		  AND lead_status = 'open'
		  AND lead_stage IN ('new', 'assigned')
		  AND assigned_at IS NOT NULL
		  AND assigned_at < now() - $2::interval`

	tag, err := r.pool.Exec(ctx, query, companyID, timeout)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
