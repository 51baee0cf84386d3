// Package service contains the lead workflows: intake, assignment
// coordination, the RSA technician flow, and lead housekeeping.
package service

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	branches "workshop_portal_backend/internal/branches/repository"
	crm "workshop_portal_backend/internal/crm/repository"
	"workshop_portal_backend/internal/events"
	inspections "workshop_portal_backend/internal/inspections/repository"
	inspsvc "workshop_portal_backend/internal/inspections/service"
	"workshop_portal_backend/internal/leads/domain"
	"workshop_portal_backend/internal/leads/repository"
	"workshop_portal_backend/internal/leads/transport"
	"workshop_portal_backend/platform/apperr"
	"workshop_portal_backend/platform/logger"

	"github.com/google/uuid"
)

// LeadStore is the lead persistence surface.
type LeadStore interface {
	GetByID(ctx context.Context, companyID, leadID uuid.UUID) (*repository.Lead, error)
	List(ctx context.Context, companyID uuid.UUID) ([]repository.Lead, error)
	Create(ctx context.Context, in repository.CreateInput) (*repository.Lead, error)
	Save(ctx context.Context, companyID, leadID uuid.UUID, u repository.Update) error
	UpdateOwner(ctx context.Context, companyID, leadID, ownerID uuid.UUID) error
	Archive(ctx context.Context, companyID, leadID uuid.UUID) error
	Delete(ctx context.Context, companyID, leadID uuid.UUID) error
	AppendEvent(ctx context.Context, in repository.EventInput) error
	ListEvents(ctx context.Context, companyID, leadID uuid.UUID) ([]repository.LeadEvent, error)
	ReleaseExpiredAssignments(ctx context.Context, companyID uuid.UUID, timeout time.Duration) (int64, error)
}

// CRMStore creates customer and car records during intake.
type CRMStore interface {
	CreateCustomer(ctx context.Context, companyID uuid.UUID, name string, phone, email *string) (*crm.Customer, error)
	GetCustomerByID(ctx context.Context, companyID, customerID uuid.UUID) (*crm.Customer, error)
	CreateCar(ctx context.Context, companyID uuid.UUID, in crm.CreateCarInput) (*crm.Car, error)
	LinkCustomerToCar(ctx context.Context, companyID, carID, customerID uuid.UUID) error
}

// BranchResolver resolves branch display locations for the pickup flow.
type BranchResolver interface {
	ResolveLocation(ctx context.Context, companyID, branchID uuid.UUID) (branches.Location, error)
}

// InspectionGate enforces the verified-inspection rule and drives the
// inspection lifecycle on assignment changes.
type InspectionGate interface {
	CheckReassignable(ctx context.Context, companyID, leadID uuid.UUID) error
	EnsureForAssignment(ctx context.Context, target inspsvc.AssignmentTarget, actor uuid.UUID) (*inspections.Inspection, error)
}

// RecoverySync keeps linked pickup recovery leads in step with a workshop
// lead's branch.
type RecoverySync interface {
	OnBranchAssigned(ctx context.Context, companyID, branchID uuid.UUID) error
	OnBranchCleared(ctx context.Context, companyID, previousBranchID uuid.UUID) error
}

// ReleaseScheduler enqueues a delayed sweep that frees stale RSA assignments.
type ReleaseScheduler interface {
	ScheduleAssignmentRelease(ctx context.Context, companyID uuid.UUID) error
}

// Service orchestrates lead workflows over the stores and side-effect ports.
type Service struct {
	store             LeadStore
	crm               CRMStore
	branches          BranchResolver
	inspections       InspectionGate
	recovery          RecoverySync
	scheduler         ReleaseScheduler
	bus               events.Bus
	log               *logger.Logger
	assignmentTimeout time.Duration
}

// Config wires a Service.
type Config struct {
	Store             LeadStore
	CRM               CRMStore
	Branches          BranchResolver
	Inspections       InspectionGate
	Recovery          RecoverySync
	Scheduler         ReleaseScheduler
	Bus               events.Bus
	Logger            *logger.Logger
	AssignmentTimeout time.Duration
}

// New creates a lead service. Scheduler may be nil when no queue is
// configured; release sweeps then only happen inline at intake.
func New(cfg Config) *Service {
	return &Service{
		store:             cfg.Store,
		crm:               cfg.CRM,
		branches:          cfg.Branches,
		inspections:       cfg.Inspections,
		recovery:          cfg.Recovery,
		scheduler:         cfg.Scheduler,
		bus:               cfg.Bus,
		log:               cfg.Logger,
		assignmentTimeout: cfg.AssignmentTimeout,
	}
}

// Get loads a single lead.
func (s *Service) Get(ctx context.Context, companyID, leadID uuid.UUID) (*repository.Lead, error) {
	lead, err := s.store.GetByID(ctx, companyID, leadID)
	if err != nil {
		if err == repository.ErrNotFound {
			return nil, apperr.NotFound("Lead not found")
		}
		return nil, apperr.Wrap(apperr.KindInternal, "failed to load lead", err)
	}
	return lead, nil
}

// List returns the company's leads, optionally filtered by status and a free
// text search over customer name, phone, email, and source.
func (s *Service) List(ctx context.Context, companyID uuid.UUID, status, search string) ([]repository.Lead, error) {
	leads, err := s.store.List(ctx, companyID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to list leads", err)
	}

	q := strings.ToLower(strings.TrimSpace(search))
	if status == "" && q == "" {
		return leads, nil
	}

	filtered := make([]repository.Lead, 0, len(leads))
	for _, lead := range leads {
		if status != "" && lead.LeadStatus != status {
			continue
		}
		if q != "" {
			hay := strings.ToLower(strings.Join([]string{
				deref(lead.CustomerName),
				deref(lead.CustomerPhone),
				deref(lead.CustomerEmail),
				deref(lead.Source),
			}, " "))
			if !strings.Contains(hay, q) {
				continue
			}
		}
		filtered = append(filtered, lead)
	}
	return filtered, nil
}

// IntakeResult is the created lead plus references to records spawned
// alongside it.
type IntakeResult struct {
	Lead *repository.Lead
	Meta map[string]any
}

// Intake creates a lead, creating the customer and car records when the
// request carries them inline. A workshop lead with a pickup spawns a linked
// recovery lead pointed at the requested branch.
func (s *Service) Intake(ctx context.Context, companyID, actor uuid.UUID, req transport.IntakeRequest) (*IntakeResult, error) {
	customerID := req.CustomerID
	if customerID == nil && req.CustomerName != nil {
		customer, err := s.crm.CreateCustomer(ctx, companyID, *req.CustomerName, req.CustomerPhone, req.CustomerEmail)
		if err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, "failed to create customer", err)
		}
		customerID = &customer.ID
	}

	var carID *uuid.UUID
	if req.Car != nil {
		carInput := crm.CreateCarInput{
			PlateCode:   req.Car.PlateCode,
			PlateNumber: req.Car.PlateNumber,
			VIN:         req.Car.VIN,
			Make:        req.Car.Make,
			Model:       req.Car.Model,
			ModelYear:   req.Car.ModelYear,
			Mileage:     req.Car.Mileage,
		}
		if carInput.HasDetails() {
			car, err := s.crm.CreateCar(ctx, companyID, carInput)
			if err != nil {
				return nil, apperr.Wrap(apperr.KindInternal, "failed to create car", err)
			}
			carID = &car.ID
		}
	}
	if carID != nil && customerID != nil {
		if err := s.crm.LinkCustomerToCar(ctx, companyID, *carID, *customerID); err != nil {
			s.log.SideEffectFailure("customer_car_link", carID.String(), err)
		}
	}

	leadType := req.LeadType
	if leadType == "" {
		leadType = domain.TypeRSA
	}
	isWorkshop := leadType == domain.TypeWorkshop
	isRecovery := leadType == domain.TypeRecovery

	stage := "new"
	if isWorkshop {
		if req.WorkshopFlow == nil {
			return nil, apperr.Validation("Workshop flow is required")
		}
		switch *req.WorkshopFlow {
		case "direct_estimate":
			stage = "estimate_pending"
		case "inspection", "inspection_oil_change":
			stage = "inspection_queue"
		default:
			stage = "checkin"
		}
	}

	pickupGoogle := req.PickupGoogle
	if pickupGoogle == nil {
		pickupGoogle = req.PickupFrom
	}

	in := repository.CreateInput{
		CompanyID:            companyID,
		CustomerID:           customerID,
		CarID:                carID,
		AgentEmployeeID:      nil,
		LeadType:             leadType,
		LeadStage:            stage,
		ServiceType:          req.ServiceType,
		PickupFrom:           req.PickupFrom,
		PickupGoogleLocation: pickupGoogle,
		Source:               req.Source,
	}
	if isRecovery {
		in.RecoveryDirection = req.RecoveryDirection
		in.RecoveryFlow = req.RecoveryFlow
		in.DropoffTo = req.DropoffTo
		in.DropoffGoogleLocation = req.DropoffGoogle
		if in.DropoffGoogleLocation == nil {
			in.DropoffGoogleLocation = req.DropoffTo
		}
	} else {
		// Recovery leads start unbranched; everything else may carry one.
		in.BranchID = req.BranchID
	}

	lead, err := s.store.Create(ctx, in)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to create lead", err)
	}

	meta := map[string]any{}
	if isWorkshop && req.RequiresPickup && req.PickupFrom != nil && *req.PickupFrom != "" {
		if recoveryLead, mapURL, err := s.spawnPickupRecovery(ctx, companyID, lead, req); err != nil {
			s.log.SideEffectFailure("pickup_recovery_spawn", lead.ID.String(), err)
		} else {
			meta["pickupRecoveryLeadId"] = recoveryLead.ID
			meta["pickupRecoveryLeadLink"] = mapURL
		}
	}

	if req.AgentRemark != nil {
		if err := s.store.Save(ctx, companyID, lead.ID, updateFromLead(lead, func(u *repository.Update) {
			u.AgentRemark = req.AgentRemark
		})); err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, "failed to apply intake remarks", err)
		}
	}

	// Safety sweep for other leads whose assignment went stale.
	if _, err := s.store.ReleaseExpiredAssignments(ctx, companyID, s.assignmentTimeout); err != nil {
		s.log.SideEffectFailure("assignment_release_sweep", lead.ID.String(), err)
	}

	refreshed, err := s.store.GetByID(ctx, companyID, lead.ID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to reload lead", err)
	}

	s.bus.Publish(ctx, events.LeadCreated{
		BaseEvent:  events.NewBaseEvent(),
		LeadID:     refreshed.ID,
		CompanyID:  companyID,
		LeadType:   refreshed.LeadType,
		Source:     deref(refreshed.Source),
		CustomerID: refreshed.CustomerID,
	})

	return &IntakeResult{Lead: refreshed, Meta: meta}, nil
}

// spawnPickupRecovery creates the recovery lead that moves the customer's car
// to the workshop. Its drop-off points at the workshop lead's branch when one
// is already known.
func (s *Service) spawnPickupRecovery(ctx context.Context, companyID uuid.UUID, lead *repository.Lead, req transport.IntakeRequest) (*repository.Lead, string, error) {
	pickupNote := deref(req.PickupFrom)
	mapURL := "https://www.google.com/maps?q=" + url.QueryEscape(pickupNote)

	var dropoffLabel, dropoffGoogle *string
	if req.BranchID != nil {
		loc, err := s.branches.ResolveLocation(ctx, companyID, *req.BranchID)
		if err == nil {
			dropoffLabel = &loc.Label
			dropoffGoogle = loc.Google
		}
	}
	if dropoffLabel == nil {
		dropoffLabel = req.DropoffTo
	}
	if dropoffGoogle == nil {
		dropoffGoogle = req.DropoffGoogle
	}
	if dropoffGoogle == nil {
		dropoffGoogle = dropoffLabel
	}

	serviceType := req.RecoveryDirection
	if serviceType == nil {
		recoveryDefault := "recovery"
		serviceType = &recoveryDefault
	}
	pickupGoogle := req.PickupGoogle
	if pickupGoogle == nil {
		pickupGoogle = req.PickupFrom
	}

	direction := "pickup"
	flow := domain.RecoveryFlowCustomerToBranch
	source := domain.SourceWorkshopPickup

	recoveryLead, err := s.store.Create(ctx, repository.CreateInput{
		CompanyID:             companyID,
		CustomerID:            lead.CustomerID,
		CarID:                 lead.CarID,
		BranchID:              req.BranchID,
		LeadType:              domain.TypeRecovery,
		LeadStage:             "new",
		ServiceType:           serviceType,
		RecoveryDirection:     &direction,
		RecoveryFlow:          &flow,
		PickupFrom:            req.PickupFrom,
		PickupGoogleLocation:  pickupGoogle,
		DropoffTo:             dropoffLabel,
		DropoffGoogleLocation: dropoffGoogle,
		Source:                &source,
	})
	if err != nil {
		return nil, "", fmt.Errorf("create pickup recovery lead: %w", err)
	}
	return recoveryLead, mapURL, nil
}

// Archive closes a lead without removing it.
func (s *Service) Archive(ctx context.Context, companyID, leadID uuid.UUID) (*repository.Lead, error) {
	if err := s.store.Archive(ctx, companyID, leadID); err != nil {
		if err == repository.ErrNotFound {
			return nil, apperr.NotFound("Lead not found")
		}
		return nil, apperr.Wrap(apperr.KindInternal, "failed to archive lead", err)
	}
	return s.Get(ctx, companyID, leadID)
}

// Delete removes a lead and its timeline.
func (s *Service) Delete(ctx context.Context, companyID, leadID uuid.UUID) error {
	if err := s.store.Delete(ctx, companyID, leadID); err != nil {
		if err == repository.ErrNotFound {
			return apperr.NotFound("Lead not found")
		}
		return apperr.Wrap(apperr.KindInternal, "failed to delete lead", err)
	}
	return nil
}

// ListEvents returns a lead's audit timeline.
func (s *Service) ListEvents(ctx context.Context, companyID, leadID uuid.UUID) ([]repository.LeadEvent, error) {
	if _, err := s.Get(ctx, companyID, leadID); err != nil {
		return nil, err
	}
	eventsList, err := s.store.ListEvents(ctx, companyID, leadID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to list lead events", err)
	}
	return eventsList, nil
}

// ReleaseExpired frees stale RSA assignments for a company. Used by the
// scheduler worker.
func (s *Service) ReleaseExpired(ctx context.Context, companyID uuid.UUID) (int64, error) {
	return s.store.ReleaseExpiredAssignments(ctx, companyID, s.assignmentTimeout)
}

// updateFromLead builds a full-state Update carrying the lead's current
// values, then lets the caller override individual fields.
func updateFromLead(lead *repository.Lead, mutate func(*repository.Update)) repository.Update {
	u := repository.Update{
		LeadStatus:            lead.LeadStatus,
		LeadStage:             lead.LeadStage,
		BranchID:              lead.BranchID,
		AssignedUserID:        lead.AssignedUserID,
		ServiceType:           lead.ServiceType,
		RecoveryDirection:     lead.RecoveryDirection,
		RecoveryFlow:          lead.RecoveryFlow,
		PickupFrom:            lead.PickupFrom,
		DropoffTo:             lead.DropoffTo,
		PickupGoogleLocation:  lead.PickupGoogleLocation,
		DropoffGoogleLocation: lead.DropoffGoogleLocation,
		AssignedAt:            lead.AssignedAt,
		AgentRemark:           lead.AgentRemark,
		CustomerRemark:        lead.CustomerRemark,
	}
	if mutate != nil {
		mutate(&u)
	}
	return u
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func uuidPtrEqual(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func coalesceStr(next, current *string) *string {
	if next != nil {
		return next
	}
	return current
}
