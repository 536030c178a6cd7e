// Package jobs defines the background tasks that drive scheduled sync
// runs through Asynq.
package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskSyncSales pushes queued sales to the backend.
	TaskSyncSales = "sync:sales"
	// TaskSyncCatalog pulls the product catalog from the backend.
	TaskSyncCatalog = "sync:catalog"
)

// SyncPayload notes why a sync task was enqueued.
type SyncPayload struct {
	Reason string `json:"reason"`
}

// NewSyncSalesTask constructs a sales sync task.
func NewSyncSalesTask(reason string) (*asynq.Task, error) {
	data, err := json.Marshal(SyncPayload{Reason: reason})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskSyncSales, data), nil
}

// NewSyncCatalogTask constructs a catalog sync task.
func NewSyncCatalogTask(reason string) (*asynq.Task, error) {
	data, err := json.Marshal(SyncPayload{Reason: reason})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskSyncCatalog, data), nil
}
