package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const TaskAssignmentRelease = "leads.assignment.release"

// AssignmentReleasePayload identifies the tenant whose stale RSA assignments
// should be swept.
type AssignmentReleasePayload struct {
	CompanyID string `json:"companyId"`
}

func NewAssignmentReleaseTask(payload AssignmentReleasePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAssignmentRelease, data), nil
}

func ParseAssignmentReleasePayload(task *asynq.Task) (AssignmentReleasePayload, error) {
	var payload AssignmentReleasePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return AssignmentReleasePayload{}, err
	}
	return payload, nil
}
