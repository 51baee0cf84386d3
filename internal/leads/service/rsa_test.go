package service

import (
	"context"
	"testing"
	"time"

	"workshop_portal_backend/internal/leads/repository"
	"workshop_portal_backend/internal/leads/transport"
	"workshop_portal_backend/platform/apperr"

	"github.com/google/uuid"
)

func rsaLead(companyID uuid.UUID, stage, status string) *repository.Lead {
	return &repository.Lead{
		ID:         uuid.New(),
		CompanyID:  companyID,
		LeadType:   "rsa",
		LeadStatus: status,
		LeadStage:  stage,
	}
}

func TestTransitionRSARejectsNonRSALead(t *testing.T) {
	companyID := uuid.New()
	lead := workshopLead(companyID)
	store := newFakeLeadStore(lead)
	svc, _ := newTestService(store)

	_, err := svc.TransitionRSA(context.Background(), companyID, lead.ID, uuid.New(), transport.TransitionRequest{Action: "accept"})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if err.Error() != "Transition is supported only for RSA leads" {
		t.Fatalf("unexpected message: %q", err.Error())
	}
}

func TestTransitionRSAUnknownAction(t *testing.T) {
	companyID := uuid.New()
	lead := rsaLead(companyID, "new", "open")
	store := newFakeLeadStore(lead)
	svc, _ := newTestService(store)

	_, err := svc.TransitionRSA(context.Background(), companyID, lead.ID, uuid.New(), transport.TransitionRequest{Action: "teleport"})
	if err == nil || err.Error() != "action is required" {
		t.Fatalf("expected action is required, got %v", err)
	}
}

func TestTransitionRSAClosedLead(t *testing.T) {
	companyID := uuid.New()
	lead := rsaLead(companyID, "completed", "done")
	store := newFakeLeadStore(lead)
	svc, _ := newTestService(store)

	_, err := svc.TransitionRSA(context.Background(), companyID, lead.ID, uuid.New(), transport.TransitionRequest{Action: "accept"})
	if err == nil || err.Error() != "Lead is already closed" {
		t.Fatalf("expected closed lead error, got %v", err)
	}
}

func TestTransitionRSAInvalidStage(t *testing.T) {
	companyID := uuid.New()
	lead := rsaLead(companyID, "new", "open")
	store := newFakeLeadStore(lead)
	svc, _ := newTestService(store)

	_, err := svc.TransitionRSA(context.Background(), companyID, lead.ID, uuid.New(), transport.TransitionRequest{Action: "complete"})
	if err == nil || err.Error() != "Invalid transition from stage 'new' using action 'complete'" {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestTransitionRSAAcceptSelfAssigns(t *testing.T) {
	companyID := uuid.New()
	actor := uuid.New()
	lead := rsaLead(companyID, "new", "open")
	store := newFakeLeadStore(lead)
	svc, _ := newTestService(store)

	updated, err := svc.TransitionRSA(context.Background(), companyID, lead.ID, actor, transport.TransitionRequest{
		Action: "accept",
		Remark: strPtr("  on my way  "),
	})
	if err != nil {
		t.Fatalf("TransitionRSA returned error: %v", err)
	}
	if updated.LeadStage != "accepted" || updated.LeadStatus != "pending" {
		t.Fatalf("expected accepted/pending, got %s/%s", updated.LeadStage, updated.LeadStatus)
	}
	if updated.AssignedUserID == nil || *updated.AssignedUserID != actor {
		t.Fatalf("accept must assign the acting technician, got %v", updated.AssignedUserID)
	}
	if updated.AssignedAt == nil {
		t.Fatalf("accept must stamp assignedAt")
	}
	if updated.AgentRemark == nil || *updated.AgentRemark != "on my way" {
		t.Fatalf("expected trimmed remark, got %v", updated.AgentRemark)
	}

	if len(store.events) != 1 || store.events[0].EventType != "rsa_accepted" {
		t.Fatalf("expected rsa_accepted event, got %v", store.events)
	}
	payload := store.events[0].Payload.(map[string]any)
	from := payload["from"].(map[string]any)
	if from["leadStage"] != "new" || from["leadStatus"] != "open" {
		t.Fatalf("unexpected from state: %v", from)
	}
}

func TestTransitionRSAAcceptByOtherTechnician(t *testing.T) {
	companyID := uuid.New()
	assignee := uuid.New()
	lead := rsaLead(companyID, "assigned", "pending")
	lead.AssignedUserID = &assignee
	store := newFakeLeadStore(lead)
	svc, _ := newTestService(store)

	_, err := svc.TransitionRSA(context.Background(), companyID, lead.ID, uuid.New(), transport.TransitionRequest{Action: "accept"})
	if !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if err.Error() != "This lead is assigned to another technician" {
		t.Fatalf("unexpected message: %q", err.Error())
	}
}

func TestTransitionRSANonAcceptRequiresAssignment(t *testing.T) {
	companyID := uuid.New()
	assignee := uuid.New()
	lead := rsaLead(companyID, "accepted", "pending")
	lead.AssignedUserID = &assignee
	store := newFakeLeadStore(lead)
	svc, _ := newTestService(store)

	_, err := svc.TransitionRSA(context.Background(), companyID, lead.ID, uuid.New(), transport.TransitionRequest{Action: "enroute"})
	if !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if err.Error() != "Only assigned technician can update this lead" {
		t.Fatalf("unexpected message: %q", err.Error())
	}
}

func TestTransitionRSACompleteKeepsAssignedAt(t *testing.T) {
	companyID := uuid.New()
	technician := uuid.New()
	assignedAt := time.Now().Add(-time.Hour)
	lead := rsaLead(companyID, "job_started", "pending")
	lead.AssignedUserID = &technician
	lead.AssignedAt = &assignedAt
	store := newFakeLeadStore(lead)
	svc, _ := newTestService(store)

	updated, err := svc.TransitionRSA(context.Background(), companyID, lead.ID, technician, transport.TransitionRequest{Action: "complete"})
	if err != nil {
		t.Fatalf("TransitionRSA returned error: %v", err)
	}
	if updated.LeadStage != "completed" || updated.LeadStatus != "done" {
		t.Fatalf("expected completed/done, got %s/%s", updated.LeadStage, updated.LeadStatus)
	}
	if updated.AssignedAt == nil || !updated.AssignedAt.Equal(assignedAt) {
		t.Fatalf("complete must not restamp assignedAt, got %v", updated.AssignedAt)
	}
}
