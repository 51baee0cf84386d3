// Package repository provides data access for customers and cars.
// Lead intake creates these records before the lead itself.
package repository

import (
	"context"
	"errors"

	"workshop_portal_backend/platform/phone"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when a customer or car does not exist.
var ErrNotFound = errors.New("record not found")

// Customer is a person or business the company serves.
type Customer struct {
	ID           uuid.UUID
	CompanyID    uuid.UUID
	CustomerType string
	Name         string
	Phone        *string
	Email        *string
}

// Car is a vehicle known to the company.
type Car struct {
	ID          uuid.UUID
	CompanyID   uuid.UUID
	PlateCode   *string
	PlateNumber *string
	VIN         *string
	Make        *string
	Model       *string
	ModelYear   *int
	Mileage     *int
}

// CreateCarInput carries the optional vehicle details from intake.
type CreateCarInput struct {
	PlateCode   *string
	PlateNumber *string
	VIN         *string
	Make        *string
	Model       *string
	ModelYear   *int
	Mileage     *int
}

// HasDetails reports whether the input describes a car at all.
func (in CreateCarInput) HasDetails() bool {
	return in.PlateCode != nil || in.PlateNumber != nil || in.VIN != nil ||
		in.Make != nil || in.Model != nil || in.ModelYear != nil
}

// Repository provides customer and car persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a CRM repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// CreateCustomer inserts an individual customer. The phone number is
// normalized to E.164 before storage.
func (r *Repository) CreateCustomer(ctx context.Context, companyID uuid.UUID, name string, phoneNumber, email *string) (*Customer, error) {
	var normalized *string
	if phoneNumber != nil {
		value := phone.NormalizeE164(*phoneNumber)
		normalized = &value
	}

	const query = `
		INSERT INTO customers (company_id, customer_type, name, phone, email)
		VALUES ($1, 'individual', $2, $3, $4)
		RETURNING id, company_id, customer_type, name, phone, email`

	var c Customer
	err := r.pool.QueryRow(ctx, query, companyID, name, normalized, email).Scan(
		&c.ID, &c.CompanyID, &c.CustomerType, &c.Name, &c.Phone, &c.Email,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// GetCustomerByID loads a customer scoped to a company.
func (r *Repository) GetCustomerByID(ctx context.Context, companyID, customerID uuid.UUID) (*Customer, error) {
	const query = `
		SELECT id, company_id, customer_type, name, phone, email
		FROM customers
		WHERE company_id = $1 AND id = $2`

	var c Customer
	err := r.pool.QueryRow(ctx, query, companyID, customerID).Scan(
		&c.ID, &c.CompanyID, &c.CustomerType, &c.Name, &c.Phone, &c.Email,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

// CreateCar inserts a vehicle record.
func (r *Repository) CreateCar(ctx context.Context, companyID uuid.UUID, in CreateCarInput) (*Car, error) {
	const query = `
		INSERT INTO cars (company_id, plate_code, plate_number, vin, make, model, model_year, mileage)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, company_id, plate_code, plate_number, vin, make, model, model_year, mileage`

	var c Car
	err := r.pool.QueryRow(ctx, query, companyID,
		in.PlateCode, in.PlateNumber, in.VIN, in.Make, in.Model, in.ModelYear, in.Mileage,
	).Scan(
		&c.ID, &c.CompanyID, &c.PlateCode, &c.PlateNumber, &c.VIN, &c.Make, &c.Model, &c.ModelYear, &c.Mileage,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// LinkCustomerToCar records ownership of a car. Duplicate links are ignored.
func (r *Repository) LinkCustomerToCar(ctx context.Context, companyID, carID, customerID uuid.UUID) error {
	const query = `
		INSERT INTO customer_cars (company_id, car_id, customer_id, relation_type, is_primary)
		VALUES ($1, $2, $3, 'owner', TRUE)
		ON CONFLICT (car_id, customer_id) DO NOTHING`

	_, err := r.pool.Exec(ctx, query, companyID, carID, customerID)
	return err
}
