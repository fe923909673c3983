package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const TaskBulkRun = "intelligence.bulk_run"

type BulkRunPayload struct {
	RunID   string   `json:"runId"`
	LeadIDs []string `json:"leadIds,omitempty"`
	Limit   int      `json:"limit"`
}

func NewBulkRunTask(payload BulkRunPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskBulkRun, data), nil
}

func ParseBulkRunPayload(task *asynq.Task) (BulkRunPayload, error) {
	var payload BulkRunPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return BulkRunPayload{}, err
	}
	return payload, nil
}
