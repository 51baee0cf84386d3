package service

import (
	"context"
	"testing"
	"time"

	"workshop_portal_backend/internal/inspections/repository"
	"workshop_portal_backend/platform/apperr"

	"github.com/google/uuid"
)

type stubStore struct {
	latest      *repository.Inspection
	created     []repository.CreateInput
	cancelled   []uuid.UUID
	cancelNotes []string
}

func (s *stubStore) GetLatestForLead(context.Context, uuid.UUID, uuid.UUID) (*repository.Inspection, error) {
	return s.latest, nil
}

func (s *stubStore) Create(_ context.Context, in repository.CreateInput) (*repository.Inspection, error) {
	s.created = append(s.created, in)
	return &repository.Inspection{ID: uuid.New(), Status: in.Status}, nil
}

func (s *stubStore) Cancel(_ context.Context, _ uuid.UUID, inspectionID, _ uuid.UUID, remarks string) error {
	s.cancelled = append(s.cancelled, inspectionID)
	s.cancelNotes = append(s.cancelNotes, remarks)
	return nil
}

func verifiedInspection() *repository.Inspection {
	now := time.Now()
	return &repository.Inspection{ID: uuid.New(), Status: "verified", VerifiedAt: &now}
}

func target() AssignmentTarget {
	branchID := uuid.New()
	return AssignmentTarget{
		CompanyID: uuid.New(),
		LeadID:    uuid.New(),
		BranchID:  &branchID,
	}
}

func TestCheckReassignableVerified(t *testing.T) {
	store := &stubStore{latest: verifiedInspection()}
	m := NewManager(store, nil)

	err := m.CheckReassignable(context.Background(), uuid.New(), uuid.New())
	if !apperr.Is(err, apperr.KindInvariant) {
		t.Fatalf("expected invariant error, got %v", err)
	}
	if err.Error() != LockedMessage {
		t.Fatalf("unexpected message: %q", err.Error())
	}
}

func TestCheckReassignableNoInspection(t *testing.T) {
	m := NewManager(&stubStore{}, nil)
	if err := m.CheckReassignable(context.Background(), uuid.New(), uuid.New()); err != nil {
		t.Fatalf("no inspection must be reassignable, got %v", err)
	}
}

func TestEnsureForAssignmentVerifiedRefuses(t *testing.T) {
	store := &stubStore{latest: verifiedInspection()}
	m := NewManager(store, nil)

	_, err := m.EnsureForAssignment(context.Background(), target(), uuid.New())
	if !apperr.Is(err, apperr.KindInvariant) {
		t.Fatalf("expected invariant error, got %v", err)
	}
	if len(store.cancelled) != 0 || len(store.created) != 0 {
		t.Fatalf("verified inspection must block all writes")
	}
}

func TestEnsureForAssignmentCreatesWhenNone(t *testing.T) {
	store := &stubStore{}
	m := NewManager(store, nil)
	tgt := target()

	created, err := m.EnsureForAssignment(context.Background(), tgt, uuid.New())
	if err != nil {
		t.Fatalf("EnsureForAssignment returned error: %v", err)
	}
	if created == nil || created.Status != "pending" {
		t.Fatalf("expected pending inspection, got %+v", created)
	}
	if len(store.cancelled) != 0 {
		t.Fatalf("nothing to cancel when no inspection exists")
	}
	if len(store.created) != 1 {
		t.Fatalf("expected one create, got %d", len(store.created))
	}
	in := store.created[0]
	if in.LeadID != tgt.LeadID || in.BranchID == nil || *in.BranchID != *tgt.BranchID {
		t.Fatalf("created inspection carries wrong target: %+v", in)
	}
}

func TestEnsureForAssignmentCancelsUnverified(t *testing.T) {
	existing := &repository.Inspection{ID: uuid.New(), Status: "pending"}
	store := &stubStore{latest: existing}
	m := NewManager(store, nil)

	_, err := m.EnsureForAssignment(context.Background(), target(), uuid.New())
	if err != nil {
		t.Fatalf("EnsureForAssignment returned error: %v", err)
	}
	if len(store.cancelled) != 1 || store.cancelled[0] != existing.ID {
		t.Fatalf("expected existing inspection to be cancelled, got %v", store.cancelled)
	}
	if store.cancelNotes[0] == "" {
		t.Fatalf("cancellation must carry an audit reason")
	}
	if len(store.created) != 1 {
		t.Fatalf("expected a replacement inspection, got %d creates", len(store.created))
	}
}
