// Package domain holds the lead vocabulary shared by the leads services:
// lead types, statuses, RSA status normalization, and the RSA transition
// table used by the mobile technician flow.
package domain

import "strings"

// Lead types.
const (
	TypeRSA      = "rsa"
	TypeWorkshop = "workshop"
	TypeRecovery = "recovery"
)

// Lead statuses used by the assignment and RSA flows. Workshop leads carry
// additional statuses (car_in and friends) that pass through unchanged.
const (
	StatusOpen    = "open"
	StatusPending = "pending"
	StatusDone    = "done"
	StatusLost    = "lost"
	StatusCarIn   = "car_in"
)

// SourceWorkshopPickup marks a recovery lead auto-spawned from a workshop
// lead's pickup flow. Such leads follow the originating lead's branch.
const SourceWorkshopPickup = "workshop_pickup"

// RecoveryFlowCustomerToBranch is set on a linked recovery lead once its
// drop-off points at the workshop lead's branch.
const RecoveryFlowCustomerToBranch = "customer_to_branch"

// NormalizeRSAStatus folds the many in-flight spellings of an RSA lead
// status onto the four canonical values. Unknown and empty values fall back
// to open so a malformed status never closes a lead by accident.
func NormalizeRSAStatus(status string) string {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case StatusOpen, "new":
		return StatusOpen
	case StatusPending, "assigned", "accepted", "dispatched", "enroute", "inprocess", "processing", "job_started":
		return StatusPending
	case StatusDone, "completed", "closed", "closed_won":
		return StatusDone
	case StatusLost, "cancelled", "closed_lost":
		return StatusLost
	default:
		return StatusOpen
	}
}

// RSAAction is a technician-driven transition on an RSA lead.
type RSAAction string

// RSA transition actions.
const (
	RSAAccept     RSAAction = "accept"
	RSAEnroute    RSAAction = "enroute"
	RSAJobStarted RSAAction = "job_started"
	RSAComplete   RSAAction = "complete"
	RSALose       RSAAction = "lose"
)

// ParseRSAAction maps the loose action spellings the mobile clients send
// onto a canonical action. Returns false for unknown values.
func ParseRSAAction(value string) (RSAAction, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "accept":
		return RSAAccept, true
	case "enroute":
		return RSAEnroute, true
	case "job_started", "start", "jobstarted":
		return RSAJobStarted, true
	case "complete", "completed", "done":
		return RSAComplete, true
	case "lose", "lost", "cancel":
		return RSALose, true
	default:
		return "", false
	}
}

// RSATransition is the resulting lead state and audit event for an action.
type RSATransition struct {
	LeadStage  string
	LeadStatus string
	EventType  string
}

var rsaAllowedStages = map[RSAAction][]string{
	RSAAccept:     {"new", "assigned", "dispatched", "accepted"},
	RSAEnroute:    {"assigned", "dispatched", "accepted", "enroute"},
	RSAJobStarted: {"accepted", "enroute", "inprocess", "processing", "job_started"},
	RSAComplete:   {"job_started", "inprocess", "processing", "completed"},
	RSALose:       {"new", "assigned", "dispatched", "accepted", "enroute", "inprocess", "processing", "job_started"},
}

var rsaTransitions = map[RSAAction]RSATransition{
	RSAAccept:     {LeadStage: "accepted", LeadStatus: StatusPending, EventType: "rsa_accepted"},
	RSAEnroute:    {LeadStage: "enroute", LeadStatus: StatusPending, EventType: "rsa_enroute"},
	RSAJobStarted: {LeadStage: "job_started", LeadStatus: StatusPending, EventType: "rsa_job_started"},
	RSAComplete:   {LeadStage: "completed", LeadStatus: StatusDone, EventType: "rsa_completed"},
	RSALose:       {LeadStage: "lost", LeadStatus: StatusLost, EventType: "rsa_lost"},
}

// RSAStageAllowed reports whether the action may fire from the given stage.
func RSAStageAllowed(action RSAAction, stage string) bool {
	current := strings.ToLower(strings.TrimSpace(stage))
	if current == "" {
		current = "new"
	}
	for _, allowed := range rsaAllowedStages[action] {
		if allowed == current {
			return true
		}
	}
	return false
}

// RSATransitionFor returns the target state for an action.
func RSATransitionFor(action RSAAction) RSATransition {
	return rsaTransitions[action]
}
