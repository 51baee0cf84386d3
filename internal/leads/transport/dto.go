package transport

import "github.com/google/uuid"

// IntakeCarRequest carries the optional vehicle block of an intake request.
type IntakeCarRequest struct {
	PlateCode   *string `json:"plateCode,omitempty" validate:"omitempty,max=10"`
	PlateNumber *string `json:"plateNumber,omitempty" validate:"omitempty,max=20"`
	VIN         *string `json:"vin,omitempty" validate:"omitempty,max=30"`
	Make        *string `json:"make,omitempty" validate:"omitempty,max=100"`
	Model       *string `json:"model,omitempty" validate:"omitempty,max=100"`
	ModelYear   *int    `json:"modelYear,omitempty" validate:"omitempty,min=1950,max=2100"`
	Mileage     *int    `json:"mileage,omitempty" validate:"omitempty,min=0"`
}

// IntakeRequest creates a lead, optionally creating the customer and car
// records in the same call.
type IntakeRequest struct {
	CustomerID    *uuid.UUID        `json:"customerId,omitempty" validate:"-"`
	CustomerName  *string           `json:"customerName,omitempty" validate:"omitempty,min=1,max=200"`
	CustomerPhone *string           `json:"customerPhone,omitempty" validate:"omitempty,min=5,max=20"`
	CustomerEmail *string           `json:"customerEmail,omitempty" validate:"omitempty,email"`
	Car           *IntakeCarRequest `json:"car,omitempty" validate:"omitempty"`

	LeadType     string  `json:"leadType" validate:"required,oneof=rsa workshop recovery"`
	ServiceType  *string `json:"serviceType,omitempty" validate:"omitempty,max=100"`
	WorkshopFlow *string `json:"workshopFlow,omitempty" validate:"omitempty,max=50"`

	RecoveryDirection *string `json:"recoveryDirection,omitempty" validate:"omitempty,max=50"`
	RecoveryFlow      *string `json:"recoveryFlow,omitempty" validate:"omitempty,max=50"`
	PickupFrom        *string `json:"pickupFrom,omitempty" validate:"omitempty,max=500"`
	DropoffTo         *string `json:"dropoffTo,omitempty" validate:"omitempty,max=500"`
	PickupGoogle      *string `json:"pickupGoogleLocation,omitempty" validate:"omitempty,max=1000"`
	DropoffGoogle     *string `json:"dropoffGoogleLocation,omitempty" validate:"omitempty,max=1000"`
	RequiresPickup    bool    `json:"requiresPickup,omitempty"`

	BranchID    *uuid.UUID `json:"branchId,omitempty" validate:"-"`
	AgentRemark *string    `json:"agentRemark,omitempty" validate:"omitempty,max=2000"`
	Source      *string    `json:"source,omitempty" validate:"omitempty,max=100"`
}

// AssignmentRequest is the partial-update body for a lead. Omitted fields keep
// their current value; BranchID distinguishes omitted from explicit null.
type AssignmentRequest struct {
	BranchID          OptionalUUID `json:"branchId,omitempty" validate:"-"`
	AssignedUserID    *uuid.UUID   `json:"assignedUserId,omitempty" validate:"-"`
	OwnerID           *uuid.UUID   `json:"ownerId,omitempty" validate:"-"`
	Status            *string      `json:"status,omitempty" validate:"omitempty,max=50"`
	LeadStage         *string      `json:"leadStage,omitempty" validate:"omitempty,max=50"`
	ServiceType       *string      `json:"serviceType,omitempty" validate:"omitempty,max=100"`
	RecoveryDirection *string      `json:"recoveryDirection,omitempty" validate:"omitempty,max=50"`
	RecoveryFlow      *string      `json:"recoveryFlow,omitempty" validate:"omitempty,max=50"`
	PickupFrom        *string      `json:"pickupFrom,omitempty" validate:"omitempty,max=500"`
	DropoffTo         *string      `json:"dropoffTo,omitempty" validate:"omitempty,max=500"`
	AgentRemark       *string      `json:"agentRemark,omitempty" validate:"omitempty,max=2000"`
	CustomerRemark    *string      `json:"customerRemark,omitempty" validate:"omitempty,max=2000"`
	EnsureInspection  bool         `json:"ensureInspection,omitempty"`
}

// TransitionRequest moves an RSA lead through the technician flow.
type TransitionRequest struct {
	Action string  `json:"action" validate:"required"`
	Remark *string `json:"remark,omitempty" validate:"omitempty,max=2000"`
}
