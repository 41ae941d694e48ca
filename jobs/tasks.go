package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskCollectionsWarm refreshes cached backend collections.
	TaskCollectionsWarm = "labstock:collections:warm"
)

// CollectionsWarmPayload lists the entities to refresh. Empty means all.
type CollectionsWarmPayload struct {
	Entities []string `json:"entities,omitempty"`
}

// NewCollectionsWarmTask constructs an Asynq task.
func NewCollectionsWarmTask(payload CollectionsWarmPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskCollectionsWarm, data, asynq.MaxRetry(3)), nil
}
