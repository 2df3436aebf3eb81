package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskReportsWarmup pre-populates the availability index and the
	// current day's report caches.
	TaskReportsWarmup = "reports:warmup"
	// TaskReportsAudit recomposes trailing windows from daily granules and
	// compares them with the ranged aggregates.
	TaskReportsAudit = "reports:audit"
)

// ReportsWarmupPayload scopes a warmup run.
type ReportsWarmupPayload struct {
	// PerBarber additionally warms each barber's availability index.
	PerBarber bool `json:"per_barber"`
}

// NewReportsWarmupTask constructs an Asynq task.
func NewReportsWarmupTask(payload ReportsWarmupPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskReportsWarmup, data), nil
}

// ReportsAuditPayload scopes an audit run.
type ReportsAuditPayload struct {
	// Period to audit; defaults to week.
	Period string `json:"period,omitempty"`
}

// NewReportsAuditTask constructs an Asynq task.
func NewReportsAuditTask(payload ReportsAuditPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskReportsAudit, data), nil
}
