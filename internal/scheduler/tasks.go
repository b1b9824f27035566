package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const TaskBatchQualify = "qualification.batch"

const TaskAuditArchive = "audit.archive"

// BatchQualifyPayload scopes one sweep run. An empty TenantID means sweep
// every tenant.
type BatchQualifyPayload struct {
	TenantID   string  `json:"tenantId,omitempty"`
	Stage      *string `json:"stage,omitempty"`
	AutoAssign bool    `json:"autoAssign"`
	Limit      int     `json:"limit,omitempty"`
}

type AuditArchivePayload struct{}

func NewBatchQualifyTask(payload BatchQualifyPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskBatchQualify, data), nil
}

func ParseBatchQualifyPayload(task *asynq.Task) (BatchQualifyPayload, error) {
	var payload BatchQualifyPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return BatchQualifyPayload{}, err
	}
	return payload, nil
}

func NewAuditArchiveTask() (*asynq.Task, error) {
	data, err := json.Marshal(AuditArchivePayload{})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAuditArchive, data), nil
}
