package tui

import (
	"time"

	"mediawatch/orchestrator"
	"mediawatch/types"
)

// Messages for the tea program (polling-based)

// StatusUpdateMsg is sent when we receive status from the pipeline API
type StatusUpdateMsg struct {
	Status *orchestrator.StatusResponse
	Err    error
}

// BatchListMsg is sent when we receive the batch history
type BatchListMsg struct {
	Batches []types.BatchSummary
	Err     error
}

// TickMsg is sent periodically to trigger polling
type TickMsg struct {
	Time time.Time
}

// RunStartedMsg is sent when the user triggers a pipeline run
type RunStartedMsg struct {
	RunID string
	Err   error
}
