// Package repository provides data access for workshop branches.
package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when a branch does not exist.
var ErrNotFound = errors.New("branch not found")

// Branch is a physical workshop location.
type Branch struct {
	ID             uuid.UUID
	CompanyID      uuid.UUID
	Name           *string
	DisplayName    *string
	Code           *string
	AddressLine1   *string
	GoogleLocation *string
}

// Location is a branch resolved to the denormalized strings stored on
// recovery leads. Label falls back to the branch ID when nothing better
// is available.
type Location struct {
	Label  string
	Google *string
}

// Repository provides branch queries.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a branch repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetByID loads a branch scoped to a company.
func (r *Repository) GetByID(ctx context.Context, companyID, branchID uuid.UUID) (*Branch, error) {
	const query = `
		SELECT id, company_id, name, display_name, code, address_line1, google_location
		FROM branches
		WHERE company_id = $1 AND id = $2`

	var b Branch
	err := r.pool.QueryRow(ctx, query, companyID, branchID).Scan(
		&b.ID,
		&b.CompanyID,
		&b.Name,
		&b.DisplayName,
		&b.Code,
		&b.AddressLine1,
		&b.GoogleLocation,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &b, nil
}

// ResolveLocation loads a branch and resolves its label with the precedence
// address line, display name, name, code, branch id. Google carries the
// branch's stored google location, or nil when the branch has none.
func (r *Repository) ResolveLocation(ctx context.Context, companyID, branchID uuid.UUID) (Location, error) {
	branch, err := r.GetByID(ctx, companyID, branchID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Location{Label: branchID.String()}, nil
		}
		return Location{}, err
	}
	return Location{
		Label:  ResolveLabel(branch, branchID),
		Google: branch.GoogleLocation,
	}, nil
}

// ResolveLabel picks the first non-empty display field of the branch,
// falling back to the branch ID string.
func ResolveLabel(branch *Branch, branchID uuid.UUID) string {
	if branch != nil {
		for _, candidate := range []*string{branch.AddressLine1, branch.DisplayName, branch.Name, branch.Code} {
			if candidate != nil && *candidate != "" {
				return *candidate
			}
		}
	}
	return branchID.String()
}
