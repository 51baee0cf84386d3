package service

import (
	"context"
	"errors"
	"testing"
	"time"

	branches "workshop_portal_backend/internal/branches/repository"
	crm "workshop_portal_backend/internal/crm/repository"
	"workshop_portal_backend/internal/events"
	inspections "workshop_portal_backend/internal/inspections/repository"
	inspsvc "workshop_portal_backend/internal/inspections/service"
	"workshop_portal_backend/internal/leads/repository"
	"workshop_portal_backend/internal/leads/transport"
	"workshop_portal_backend/platform/apperr"
	"workshop_portal_backend/platform/logger"

	"github.com/google/uuid"
)

type fakeLeadStore struct {
	leads        map[uuid.UUID]*repository.Lead
	created      []repository.CreateInput
	saves        []repository.Update
	events       []repository.EventInput
	ownerUpdates []uuid.UUID
	releaseCalls int
	releaseErr   error
	appendErr    error
}

func newFakeLeadStore(leads ...*repository.Lead) *fakeLeadStore {
	s := &fakeLeadStore{leads: make(map[uuid.UUID]*repository.Lead)}
	for _, l := range leads {
		s.leads[l.ID] = l
	}
	return s
}

func (s *fakeLeadStore) GetByID(_ context.Context, _ uuid.UUID, leadID uuid.UUID) (*repository.Lead, error) {
	lead, ok := s.leads[leadID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *lead
	return &copied, nil
}

func (s *fakeLeadStore) List(_ context.Context, _ uuid.UUID) ([]repository.Lead, error) {
	out := make([]repository.Lead, 0, len(s.leads))
	for _, l := range s.leads {
		out = append(out, *l)
	}
	return out, nil
}

func (s *fakeLeadStore) Create(_ context.Context, in repository.CreateInput) (*repository.Lead, error) {
	s.created = append(s.created, in)
	stage := in.LeadStage
	if stage == "" {
		stage = "new"
	}
	lead := &repository.Lead{
		ID:                    uuid.New(),
		CompanyID:             in.CompanyID,
		CustomerID:            in.CustomerID,
		CarID:                 in.CarID,
		BranchID:              in.BranchID,
		AssignedUserID:        in.AssignedUserID,
		ServiceType:           in.ServiceType,
		RecoveryDirection:     in.RecoveryDirection,
		RecoveryFlow:          in.RecoveryFlow,
		PickupFrom:            in.PickupFrom,
		DropoffTo:             in.DropoffTo,
		PickupGoogleLocation:  in.PickupGoogleLocation,
		DropoffGoogleLocation: in.DropoffGoogleLocation,
		LeadType:              in.LeadType,
		LeadStatus:            "open",
		LeadStage:             stage,
		Source:                in.Source,
		CreatedAt:             time.Now(),
		UpdatedAt:             time.Now(),
	}
	s.leads[lead.ID] = lead
	return lead, nil
}

func (s *fakeLeadStore) Save(_ context.Context, _ uuid.UUID, leadID uuid.UUID, u repository.Update) error {
	lead, ok := s.leads[leadID]
	if !ok {
		return repository.ErrNotFound
	}
	s.saves = append(s.saves, u)
	lead.LeadStatus = u.LeadStatus
	lead.LeadStage = u.LeadStage
	lead.BranchID = u.BranchID
	lead.AssignedUserID = u.AssignedUserID
	lead.ServiceType = u.ServiceType
	lead.RecoveryDirection = u.RecoveryDirection
	lead.RecoveryFlow = u.RecoveryFlow
	lead.PickupFrom = u.PickupFrom
	lead.DropoffTo = u.DropoffTo
	lead.PickupGoogleLocation = u.PickupGoogleLocation
	lead.DropoffGoogleLocation = u.DropoffGoogleLocation
	lead.AssignedAt = u.AssignedAt
	lead.AgentRemark = u.AgentRemark
	lead.CustomerRemark = u.CustomerRemark
	return nil
}

func (s *fakeLeadStore) UpdateOwner(_ context.Context, _ uuid.UUID, leadID, ownerID uuid.UUID) error {
	lead, ok := s.leads[leadID]
	if !ok {
		return repository.ErrNotFound
	}
	s.ownerUpdates = append(s.ownerUpdates, ownerID)
	lead.AgentEmployeeID = &ownerID
	return nil
}

func (s *fakeLeadStore) Archive(_ context.Context, _ uuid.UUID, leadID uuid.UUID) error {
	lead, ok := s.leads[leadID]
	if !ok {
		return repository.ErrNotFound
	}
	lead.LeadStage = "archived"
	lead.LeadStatus = "closed"
	return nil
}

func (s *fakeLeadStore) Delete(_ context.Context, _ uuid.UUID, leadID uuid.UUID) error {
	if _, ok := s.leads[leadID]; !ok {
		return repository.ErrNotFound
	}
	delete(s.leads, leadID)
	return nil
}

func (s *fakeLeadStore) AppendEvent(_ context.Context, in repository.EventInput) error {
	if s.appendErr != nil {
		return s.appendErr
	}
	s.events = append(s.events, in)
	return nil
}

func (s *fakeLeadStore) ListEvents(_ context.Context, _ uuid.UUID, leadID uuid.UUID) ([]repository.LeadEvent, error) {
	out := make([]repository.LeadEvent, 0)
	for _, e := range s.events {
		if e.LeadID == leadID {
			out = append(out, repository.LeadEvent{LeadID: e.LeadID, EventType: e.EventType})
		}
	}
	return out, nil
}

func (s *fakeLeadStore) ReleaseExpiredAssignments(_ context.Context, _ uuid.UUID, _ time.Duration) (int64, error) {
	s.releaseCalls++
	return 0, s.releaseErr
}

type fakeCRM struct {
	customers []string
	cars      []crm.CreateCarInput
	links     int
}

func (c *fakeCRM) CreateCustomer(_ context.Context, companyID uuid.UUID, name string, phone, email *string) (*crm.Customer, error) {
	c.customers = append(c.customers, name)
	return &crm.Customer{ID: uuid.New(), CompanyID: companyID, Name: name, Phone: phone, Email: email}, nil
}

func (c *fakeCRM) GetCustomerByID(_ context.Context, companyID, customerID uuid.UUID) (*crm.Customer, error) {
	return &crm.Customer{ID: customerID, CompanyID: companyID}, nil
}

func (c *fakeCRM) CreateCar(_ context.Context, companyID uuid.UUID, in crm.CreateCarInput) (*crm.Car, error) {
	c.cars = append(c.cars, in)
	return &crm.Car{ID: uuid.New(), CompanyID: companyID}, nil
}

func (c *fakeCRM) LinkCustomerToCar(context.Context, uuid.UUID, uuid.UUID, uuid.UUID) error {
	c.links++
	return nil
}

type fakeBranchResolver struct {
	loc branches.Location
	err error
}

func (r *fakeBranchResolver) ResolveLocation(context.Context, uuid.UUID, uuid.UUID) (branches.Location, error) {
	return r.loc, r.err
}

type fakeInspectionGate struct {
	checkErr    error
	ensureErr   error
	ensureCalls []inspsvc.AssignmentTarget
}

func (g *fakeInspectionGate) CheckReassignable(context.Context, uuid.UUID, uuid.UUID) error {
	return g.checkErr
}

func (g *fakeInspectionGate) EnsureForAssignment(_ context.Context, target inspsvc.AssignmentTarget, _ uuid.UUID) (*inspections.Inspection, error) {
	g.ensureCalls = append(g.ensureCalls, target)
	if g.ensureErr != nil {
		return nil, g.ensureErr
	}
	return &inspections.Inspection{ID: uuid.New(), Status: "pending"}, nil
}

type fakeRecoverySync struct {
	assigned  []uuid.UUID
	cleared   []uuid.UUID
	assignErr error
	clearErr  error
}

func (r *fakeRecoverySync) OnBranchAssigned(_ context.Context, _ uuid.UUID, branchID uuid.UUID) error {
	r.assigned = append(r.assigned, branchID)
	return r.assignErr
}

func (r *fakeRecoverySync) OnBranchCleared(_ context.Context, _ uuid.UUID, branchID uuid.UUID) error {
	r.cleared = append(r.cleared, branchID)
	return r.clearErr
}

type fakeScheduler struct {
	calls int
	err   error
}

func (s *fakeScheduler) ScheduleAssignmentRelease(context.Context, uuid.UUID) error {
	s.calls++
	return s.err
}

type fakeBus struct {
	published []events.Event
}

func (b *fakeBus) Publish(_ context.Context, event events.Event) {
	b.published = append(b.published, event)
}

func (b *fakeBus) PublishSync(_ context.Context, event events.Event) error {
	b.published = append(b.published, event)
	return nil
}

func (b *fakeBus) Subscribe(string, events.Handler) {}

type testDeps struct {
	store     *fakeLeadStore
	crm       *fakeCRM
	branches  *fakeBranchResolver
	gate      *fakeInspectionGate
	recovery  *fakeRecoverySync
	scheduler *fakeScheduler
	bus       *fakeBus
}

func newTestService(store *fakeLeadStore) (*Service, *testDeps) {
	deps := &testDeps{
		store:     store,
		crm:       &fakeCRM{},
		branches:  &fakeBranchResolver{loc: branches.Location{Label: "Main Branch"}},
		gate:      &fakeInspectionGate{},
		recovery:  &fakeRecoverySync{},
		scheduler: &fakeScheduler{},
		bus:       &fakeBus{},
	}
	svc := New(Config{
		Store:             deps.store,
		CRM:               deps.crm,
		Branches:          deps.branches,
		Inspections:       deps.gate,
		Recovery:          deps.recovery,
		Scheduler:         deps.scheduler,
		Bus:               deps.bus,
		Logger:            logger.New("development"),
		AssignmentTimeout: 5 * time.Minute,
	})
	return svc, deps
}

func strPtr(s string) *string { return &s }

func workshopLead(companyID uuid.UUID) *repository.Lead {
	carID := uuid.New()
	customerID := uuid.New()
	return &repository.Lead{
		ID:         uuid.New(),
		CompanyID:  companyID,
		CarID:      &carID,
		CustomerID: &customerID,
		LeadType:   "workshop",
		LeadStatus: "open",
		LeadStage:  "checkin",
	}
}

func TestApplyAssignmentRefusesLockedLead(t *testing.T) {
	companyID := uuid.New()
	lead := workshopLead(companyID)
	lead.IsLocked = true
	store := newFakeLeadStore(lead)
	svc, _ := newTestService(store)

	_, err := svc.ApplyAssignment(context.Background(), companyID, lead.ID, uuid.New(), transport.AssignmentRequest{})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error for locked lead, got %v", err)
	}
	if len(store.saves) != 0 {
		t.Fatalf("locked lead must not be written, got %d saves", len(store.saves))
	}
}

func TestApplyAssignmentVerifiedInspectionBlocksBeforeWrite(t *testing.T) {
	companyID := uuid.New()
	branchID := uuid.New()
	lead := workshopLead(companyID)
	store := newFakeLeadStore(lead)
	svc, deps := newTestService(store)
	deps.gate.checkErr = inspsvc.ErrLocked()

	req := transport.AssignmentRequest{
		BranchID: transport.OptionalUUID{Value: &branchID, Set: true},
		Status:   strPtr("car_in"),
	}
	_, err := svc.ApplyAssignment(context.Background(), companyID, lead.ID, uuid.New(), req)
	if !apperr.Is(err, apperr.KindInvariant) {
		t.Fatalf("expected invariant error, got %v", err)
	}
	if len(store.saves) != 0 {
		t.Fatalf("verified inspection must block before any write, got %d saves", len(store.saves))
	}
	if len(deps.gate.ensureCalls) != 0 {
		t.Fatalf("inspection lifecycle must not run after refusal")
	}
}

func TestApplyAssignmentCarInBranchChangeRunsLifecycle(t *testing.T) {
	companyID := uuid.New()
	branchID := uuid.New()
	actor := uuid.New()
	lead := workshopLead(companyID)
	store := newFakeLeadStore(lead)
	svc, deps := newTestService(store)

	req := transport.AssignmentRequest{
		BranchID: transport.OptionalUUID{Value: &branchID, Set: true},
		Status:   strPtr("car_in"),
	}
	updated, err := svc.ApplyAssignment(context.Background(), companyID, lead.ID, actor, req)
	if err != nil {
		t.Fatalf("ApplyAssignment returned error: %v", err)
	}
	if updated.BranchID == nil || *updated.BranchID != branchID {
		t.Fatalf("expected branch %s, got %v", branchID, updated.BranchID)
	}
	if updated.LeadStatus != "car_in" {
		t.Fatalf("expected status car_in, got %q", updated.LeadStatus)
	}

	if len(deps.gate.ensureCalls) != 1 {
		t.Fatalf("expected one inspection lifecycle call, got %d", len(deps.gate.ensureCalls))
	}
	target := deps.gate.ensureCalls[0]
	if target.BranchID == nil || *target.BranchID != branchID {
		t.Fatalf("inspection target carries wrong branch: %v", target.BranchID)
	}
	if target.CarID == nil || *target.CarID != *lead.CarID {
		t.Fatalf("inspection target carries wrong car: %v", target.CarID)
	}

	if len(deps.recovery.assigned) != 1 || deps.recovery.assigned[0] != branchID {
		t.Fatalf("expected recovery sync for branch %s, got %v", branchID, deps.recovery.assigned)
	}

	if len(store.events) != 1 || store.events[0].EventType != "branch_updated" {
		t.Fatalf("expected a branch_updated event, got %v", store.events)
	}
	payload, ok := store.events[0].Payload.(map[string]any)
	if !ok {
		t.Fatalf("unexpected event payload type %T", store.events[0].Payload)
	}
	if from, ok := payload["from"].(*uuid.UUID); !ok || from != nil {
		t.Fatalf("expected nil from branch, got %v", payload["from"])
	}
	if to, ok := payload["to"].(*uuid.UUID); !ok || to == nil || *to != branchID {
		t.Fatalf("expected to branch %s, got %v", branchID, payload["to"])
	}
}

func TestApplyAssignmentExplicitNullClearsBranch(t *testing.T) {
	companyID := uuid.New()
	previousBranch := uuid.New()
	lead := workshopLead(companyID)
	lead.BranchID = &previousBranch
	store := newFakeLeadStore(lead)
	svc, deps := newTestService(store)

	req := transport.AssignmentRequest{
		BranchID: transport.OptionalUUID{Value: nil, Set: true},
	}
	updated, err := svc.ApplyAssignment(context.Background(), companyID, lead.ID, uuid.New(), req)
	if err != nil {
		t.Fatalf("ApplyAssignment returned error: %v", err)
	}
	if updated.BranchID != nil {
		t.Fatalf("expected cleared branch, got %v", updated.BranchID)
	}
	if len(deps.recovery.cleared) != 1 || deps.recovery.cleared[0] != previousBranch {
		t.Fatalf("expected recovery clear for %s, got %v", previousBranch, deps.recovery.cleared)
	}
	if len(deps.recovery.assigned) != 0 {
		t.Fatalf("no recovery assign expected on clear, got %v", deps.recovery.assigned)
	}
}

func TestApplyAssignmentOmittedBranchKeepsCurrent(t *testing.T) {
	companyID := uuid.New()
	currentBranch := uuid.New()
	lead := workshopLead(companyID)
	lead.BranchID = &currentBranch
	store := newFakeLeadStore(lead)
	svc, deps := newTestService(store)

	updated, err := svc.ApplyAssignment(context.Background(), companyID, lead.ID, uuid.New(), transport.AssignmentRequest{
		AgentRemark: strPtr("called the customer"),
	})
	if err != nil {
		t.Fatalf("ApplyAssignment returned error: %v", err)
	}
	if updated.BranchID == nil || *updated.BranchID != currentBranch {
		t.Fatalf("omitted branchId must keep current branch, got %v", updated.BranchID)
	}
	if len(store.events) != 0 {
		t.Fatalf("no branch_updated event expected, got %v", store.events)
	}
	if len(deps.recovery.cleared) != 0 {
		t.Fatalf("no recovery clear expected, got %v", deps.recovery.cleared)
	}
}

func TestApplyAssignmentNormalizesRSAStatus(t *testing.T) {
	companyID := uuid.New()
	technician := uuid.New()
	lead := &repository.Lead{
		ID:         uuid.New(),
		CompanyID:  companyID,
		LeadType:   "rsa",
		LeadStatus: "open",
		LeadStage:  "new",
	}
	store := newFakeLeadStore(lead)
	svc, deps := newTestService(store)

	updated, err := svc.ApplyAssignment(context.Background(), companyID, lead.ID, uuid.New(), transport.AssignmentRequest{
		AssignedUserID: &technician,
		Status:         strPtr("Dispatched"),
	})
	if err != nil {
		t.Fatalf("ApplyAssignment returned error: %v", err)
	}
	if updated.LeadStatus != "pending" {
		t.Fatalf("expected dispatched to normalize to pending, got %q", updated.LeadStatus)
	}
	if updated.AssignedAt == nil {
		t.Fatalf("expected assignedAt to be stamped on assignment")
	}
	if deps.scheduler.calls != 1 {
		t.Fatalf("expected one release schedule call, got %d", deps.scheduler.calls)
	}
}

func TestApplyAssignmentSideEffectFailuresDoNotFailCall(t *testing.T) {
	companyID := uuid.New()
	branchID := uuid.New()
	lead := workshopLead(companyID)
	store := newFakeLeadStore(lead)
	svc, deps := newTestService(store)
	deps.gate.ensureErr = errors.New("inspection store down")
	deps.recovery.assignErr = errors.New("recovery store down")

	updated, err := svc.ApplyAssignment(context.Background(), companyID, lead.ID, uuid.New(), transport.AssignmentRequest{
		BranchID: transport.OptionalUUID{Value: &branchID, Set: true},
		Status:   strPtr("car_in"),
	})
	if err != nil {
		t.Fatalf("side effect failures must not fail the assignment, got %v", err)
	}
	if updated.BranchID == nil || *updated.BranchID != branchID {
		t.Fatalf("primary write must survive side effect failures, got %v", updated.BranchID)
	}
}

func TestApplyAssignmentUpdatesOwner(t *testing.T) {
	companyID := uuid.New()
	owner := uuid.New()
	lead := workshopLead(companyID)
	store := newFakeLeadStore(lead)
	svc, _ := newTestService(store)

	updated, err := svc.ApplyAssignment(context.Background(), companyID, lead.ID, uuid.New(), transport.AssignmentRequest{
		OwnerID: &owner,
	})
	if err != nil {
		t.Fatalf("ApplyAssignment returned error: %v", err)
	}
	if len(store.ownerUpdates) != 1 || store.ownerUpdates[0] != owner {
		t.Fatalf("expected owner update for %s, got %v", owner, store.ownerUpdates)
	}
	if updated.AgentEmployeeID == nil || *updated.AgentEmployeeID != owner {
		t.Fatalf("expected reloaded lead to carry the owner, got %v", updated.AgentEmployeeID)
	}
}
