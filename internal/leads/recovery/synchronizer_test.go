package recovery

import (
	"context"
	"errors"
	"sync"
	"testing"

	branches "workshop_portal_backend/internal/branches/repository"
	"workshop_portal_backend/internal/leads/repository"
	"workshop_portal_backend/platform/logger"

	"github.com/google/uuid"
)

type stubResolver struct {
	loc branches.Location
	err error
}

func (r stubResolver) ResolveLocation(context.Context, uuid.UUID, uuid.UUID) (branches.Location, error) {
	return r.loc, r.err
}

type recordedSet struct {
	leadID uuid.UUID
	label  string
	google *string
}

type stubStore struct {
	mu        sync.Mutex
	unlinked  []repository.Lead
	atBranch  []repository.Lead
	sets      []recordedSet
	clears    []uuid.UUID
	listLabel string
	listG     *string
	setErr    error
}

func (s *stubStore) ListUnlinkedPickupRecoveries(context.Context, uuid.UUID) ([]repository.Lead, error) {
	return s.unlinked, nil
}

func (s *stubStore) ListPickupRecoveriesAtBranch(_ context.Context, _ uuid.UUID, _ uuid.UUID, label string, google *string) ([]repository.Lead, error) {
	s.listLabel = label
	s.listG = google
	return s.atBranch, nil
}

func (s *stubStore) SetRecoveryDropoff(_ context.Context, _ uuid.UUID, leadID uuid.UUID, label string, google *string) error {
	if s.setErr != nil {
		return s.setErr
	}
	s.mu.Lock()
	s.sets = append(s.sets, recordedSet{leadID: leadID, label: label, google: google})
	s.mu.Unlock()
	return nil
}

func (s *stubStore) ClearRecoveryDropoff(_ context.Context, _ uuid.UUID, leadID uuid.UUID) error {
	s.mu.Lock()
	s.clears = append(s.clears, leadID)
	s.mu.Unlock()
	return nil
}

func TestOnBranchAssignedLinksUnlinkedRecoveries(t *testing.T) {
	google := "https://maps.google.com/?q=main"
	store := &stubStore{unlinked: []repository.Lead{{ID: uuid.New()}, {ID: uuid.New()}}}
	syncer := New(stubResolver{loc: branches.Location{Label: "Main Branch", Google: &google}}, store, logger.New("development"))

	if err := syncer.OnBranchAssigned(context.Background(), uuid.New(), uuid.New()); err != nil {
		t.Fatalf("OnBranchAssigned returned error: %v", err)
	}
	if len(store.sets) != 2 {
		t.Fatalf("expected 2 dropoff updates, got %d", len(store.sets))
	}
	for _, set := range store.sets {
		if set.label != "Main Branch" {
			t.Errorf("unexpected label %q", set.label)
		}
		if set.google == nil || *set.google != google {
			t.Errorf("unexpected google location %v", set.google)
		}
	}
}

func TestOnBranchAssignedLabelFallsBackWhenNoGoogle(t *testing.T) {
	store := &stubStore{unlinked: []repository.Lead{{ID: uuid.New()}}}
	syncer := New(stubResolver{loc: branches.Location{Label: "Al Quoz Branch"}}, store, logger.New("development"))

	if err := syncer.OnBranchAssigned(context.Background(), uuid.New(), uuid.New()); err != nil {
		t.Fatalf("OnBranchAssigned returned error: %v", err)
	}
	if len(store.sets) != 1 {
		t.Fatalf("expected 1 dropoff update, got %d", len(store.sets))
	}
	if store.sets[0].google == nil || *store.sets[0].google != "Al Quoz Branch" {
		t.Fatalf("google location must fall back to the label, got %v", store.sets[0].google)
	}
}

func TestOnBranchAssignedPropagatesStoreError(t *testing.T) {
	store := &stubStore{
		unlinked: []repository.Lead{{ID: uuid.New()}},
		setErr:   errors.New("write failed"),
	}
	syncer := New(stubResolver{loc: branches.Location{Label: "Main Branch"}}, store, logger.New("development"))

	if err := syncer.OnBranchAssigned(context.Background(), uuid.New(), uuid.New()); err == nil {
		t.Fatalf("expected store error to propagate")
	}
}

func TestOnBranchClearedUnlinksMatches(t *testing.T) {
	store := &stubStore{atBranch: []repository.Lead{{ID: uuid.New()}, {ID: uuid.New()}}}
	syncer := New(stubResolver{loc: branches.Location{Label: "Main Branch"}}, store, logger.New("development"))

	if err := syncer.OnBranchCleared(context.Background(), uuid.New(), uuid.New()); err != nil {
		t.Fatalf("OnBranchCleared returned error: %v", err)
	}
	if len(store.clears) != 2 {
		t.Fatalf("expected 2 clears, got %d", len(store.clears))
	}
	if store.listLabel != "Main Branch" {
		t.Fatalf("matching must use the branch label, got %q", store.listLabel)
	}
	if store.listG != nil {
		t.Fatalf("google must stay nil when the branch has none, got %v", store.listG)
	}
}

func TestOnBranchAssignedResolverError(t *testing.T) {
	store := &stubStore{}
	syncer := New(stubResolver{err: errors.New("branch missing")}, store, logger.New("development"))

	if err := syncer.OnBranchAssigned(context.Background(), uuid.New(), uuid.New()); err == nil {
		t.Fatalf("expected resolver error to propagate")
	}
	if len(store.sets) != 0 {
		t.Fatalf("no writes expected after resolver failure")
	}
}
