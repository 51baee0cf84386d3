package service

import (
	"context"
	"testing"

	"workshop_portal_backend/internal/leads/transport"
	"workshop_portal_backend/platform/apperr"

	"github.com/google/uuid"
)

func TestIntakeWorkshopRequiresFlow(t *testing.T) {
	companyID := uuid.New()
	store := newFakeLeadStore()
	svc, _ := newTestService(store)

	_, err := svc.Intake(context.Background(), companyID, uuid.New(), transport.IntakeRequest{
		LeadType: "workshop",
	})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if err.Error() != "Workshop flow is required" {
		t.Fatalf("unexpected message: %q", err.Error())
	}
}

func TestIntakeWorkshopFlowStageMapping(t *testing.T) {
	tests := []struct {
		flow string
		want string
	}{
		{"direct_estimate", "estimate_pending"},
		{"inspection", "inspection_queue"},
		{"inspection_oil_change", "inspection_queue"},
		{"walk_in", "checkin"},
	}

	for _, tc := range tests {
		store := newFakeLeadStore()
		svc, _ := newTestService(store)
		result, err := svc.Intake(context.Background(), uuid.New(), uuid.New(), transport.IntakeRequest{
			LeadType:     "workshop",
			WorkshopFlow: strPtr(tc.flow),
		})
		if err != nil {
			t.Fatalf("Intake(%s) returned error: %v", tc.flow, err)
		}
		if result.Lead.LeadStage != tc.want {
			t.Errorf("Intake(%s) stage = %q, want %q", tc.flow, result.Lead.LeadStage, tc.want)
		}
	}
}

func TestIntakeCreatesCustomerAndCar(t *testing.T) {
	companyID := uuid.New()
	store := newFakeLeadStore()
	svc, deps := newTestService(store)

	result, err := svc.Intake(context.Background(), companyID, uuid.New(), transport.IntakeRequest{
		LeadType:     "rsa",
		CustomerName: strPtr("Ahmed"),
		Car:          &transport.IntakeCarRequest{PlateNumber: strPtr("A 12345")},
	})
	if err != nil {
		t.Fatalf("Intake returned error: %v", err)
	}
	if len(deps.crm.customers) != 1 || deps.crm.customers[0] != "Ahmed" {
		t.Fatalf("expected customer creation, got %v", deps.crm.customers)
	}
	if len(deps.crm.cars) != 1 {
		t.Fatalf("expected car creation, got %d", len(deps.crm.cars))
	}
	if deps.crm.links != 1 {
		t.Fatalf("expected customer-car link, got %d", deps.crm.links)
	}
	if result.Lead.CustomerID == nil || result.Lead.CarID == nil {
		t.Fatalf("lead must reference created customer and car")
	}
}

func TestIntakeRecoveryLeadStartsUnbranched(t *testing.T) {
	companyID := uuid.New()
	branchID := uuid.New()
	store := newFakeLeadStore()
	svc, _ := newTestService(store)

	result, err := svc.Intake(context.Background(), companyID, uuid.New(), transport.IntakeRequest{
		LeadType:          "recovery",
		BranchID:          &branchID,
		RecoveryDirection: strPtr("dropoff"),
		DropoffTo:         strPtr("Al Quoz"),
	})
	if err != nil {
		t.Fatalf("Intake returned error: %v", err)
	}
	if result.Lead.BranchID != nil {
		t.Fatalf("recovery leads must start without a branch, got %v", result.Lead.BranchID)
	}
	if result.Lead.DropoffGoogleLocation == nil || *result.Lead.DropoffGoogleLocation != "Al Quoz" {
		t.Fatalf("dropoff google must fall back to dropoffTo, got %v", result.Lead.DropoffGoogleLocation)
	}
}

func TestIntakePickupSpawnsRecoveryLead(t *testing.T) {
	companyID := uuid.New()
	branchID := uuid.New()
	store := newFakeLeadStore()
	svc, deps := newTestService(store)
	google := "https://maps.google.com/?q=main"
	deps.branches.loc.Google = &google

	result, err := svc.Intake(context.Background(), companyID, uuid.New(), transport.IntakeRequest{
		LeadType:       "workshop",
		WorkshopFlow:   strPtr("inspection"),
		BranchID:       &branchID,
		RequiresPickup: true,
		PickupFrom:     strPtr("Dubai Marina"),
	})
	if err != nil {
		t.Fatalf("Intake returned error: %v", err)
	}

	if len(store.created) != 2 {
		t.Fatalf("expected workshop lead plus recovery lead, got %d creates", len(store.created))
	}
	spawned := store.created[1]
	if spawned.LeadType != "recovery" {
		t.Fatalf("expected recovery lead, got %q", spawned.LeadType)
	}
	if spawned.Source == nil || *spawned.Source != "workshop_pickup" {
		t.Fatalf("expected workshop_pickup source, got %v", spawned.Source)
	}
	if spawned.RecoveryDirection == nil || *spawned.RecoveryDirection != "pickup" {
		t.Fatalf("expected pickup direction, got %v", spawned.RecoveryDirection)
	}
	if spawned.RecoveryFlow == nil || *spawned.RecoveryFlow != "customer_to_branch" {
		t.Fatalf("expected customer_to_branch flow, got %v", spawned.RecoveryFlow)
	}
	if spawned.DropoffTo == nil || *spawned.DropoffTo != "Main Branch" {
		t.Fatalf("expected dropoff at branch label, got %v", spawned.DropoffTo)
	}
	if spawned.DropoffGoogleLocation == nil || *spawned.DropoffGoogleLocation != google {
		t.Fatalf("expected branch google location, got %v", spawned.DropoffGoogleLocation)
	}
	if spawned.ServiceType == nil || *spawned.ServiceType != "recovery" {
		t.Fatalf("expected recovery service type default, got %v", spawned.ServiceType)
	}

	if _, ok := result.Meta["pickupRecoveryLeadId"]; !ok {
		t.Fatalf("expected pickupRecoveryLeadId in meta, got %v", result.Meta)
	}
	if _, ok := result.Meta["pickupRecoveryLeadLink"]; !ok {
		t.Fatalf("expected pickupRecoveryLeadLink in meta, got %v", result.Meta)
	}
	if store.releaseCalls != 1 {
		t.Fatalf("expected one release sweep after intake, got %d", store.releaseCalls)
	}
}

func TestIntakeNoPickupNoSpawn(t *testing.T) {
	companyID := uuid.New()
	store := newFakeLeadStore()
	svc, _ := newTestService(store)

	_, err := svc.Intake(context.Background(), companyID, uuid.New(), transport.IntakeRequest{
		LeadType:     "workshop",
		WorkshopFlow: strPtr("inspection"),
	})
	if err != nil {
		t.Fatalf("Intake returned error: %v", err)
	}
	if len(store.created) != 1 {
		t.Fatalf("expected a single lead, got %d creates", len(store.created))
	}
}

func TestListFiltersByStatusAndSearch(t *testing.T) {
	companyID := uuid.New()
	open := workshopLead(companyID)
	open.CustomerName = strPtr("Fatima Al Mansoori")
	done := workshopLead(companyID)
	done.LeadStatus = "done"
	done.CustomerName = strPtr("Omar")
	store := newFakeLeadStore(open, done)
	svc, _ := newTestService(store)

	leads, err := svc.List(context.Background(), companyID, "open", "fatima")
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(leads) != 1 || leads[0].ID != open.ID {
		t.Fatalf("expected only the matching open lead, got %d", len(leads))
	}

	leads, err = svc.List(context.Background(), companyID, "", "nobody")
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(leads) != 0 {
		t.Fatalf("expected no matches, got %d", len(leads))
	}
}

func TestGetNotFound(t *testing.T) {
	store := newFakeLeadStore()
	svc, _ := newTestService(store)

	_, err := svc.Get(context.Background(), uuid.New(), uuid.New())
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err.Error() != "Lead not found" {
		t.Fatalf("unexpected message: %q", err.Error())
	}
}
