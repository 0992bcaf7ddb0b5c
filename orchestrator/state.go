package orchestrator

import (
	"fmt"
	"sync"
	"time"

	"mediawatch/types"
)

// State represents the run lifecycle reported by the status endpoint.
type State string

const (
	StateIdle       State = "idle"
	StateFetching   State = "fetching"
	StateProcessing State = "processing"
	StateReporting  State = "reporting"
	StateComplete   State = "complete"
	StateError      State = "error"
)

// LogEntry represents a single status log line with timestamp.
type LogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
}

// StatusResponse is the JSON response for GET /api/pipeline/status.
type StatusResponse struct {
	State     State               `json:"state"`
	RunID     string              `json:"run_id,omitempty"`
	Date      string              `json:"date,omitempty"`
	Logs      []LogEntry          `json:"logs"`
	LastBatch *types.BatchSummary `json:"last_batch,omitempty"`
	Error     string              `json:"error,omitempty"`
}

// Manager holds run state with thread-safe access.
type Manager struct {
	mu sync.RWMutex

	currentState State
	runID        string
	date         string

	// Logs (ring buffer)
	logs    []LogEntry
	maxLogs int
	lastErr error

	lastBatch *types.BatchSummary
}

// NewManager creates a state manager in the idle state.
func NewManager() *Manager {
	return &Manager{
		currentState: StateIdle,
		logs:         make([]LogEntry, 0),
		maxLogs:      50, // Keep last 50 log entries
	}
}

// AddLog adds a log entry (thread-safe).
func (m *Manager) AddLog(message string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.appendLog(message)
}

// GetStatus returns a snapshot of the current state (thread-safe).
func (m *Manager) GetStatus() StatusResponse {
	m.mu.RLock()
	defer m.mu.RUnlock()

	resp := StatusResponse{
		State: m.currentState,
		RunID: m.runID,
		Date:  m.date,
		Logs:  append([]LogEntry{}, m.logs...), // Copy slice
	}
	if m.lastBatch != nil {
		sum := *m.lastBatch
		resp.LastBatch = &sum
	}
	if m.lastErr != nil {
		resp.Error = m.lastErr.Error()
	}
	return resp
}

// StartRun records a new run and moves to the fetching state. The previous
// run's error is cleared; logs are kept as a rolling history.
func (m *Manager) StartRun(runID, date string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.currentState = StateFetching
	m.runID = runID
	m.date = date
	m.lastErr = nil
}

// SetState sets the current state (thread-safe).
func (m *Manager) SetState(state State) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.currentState = state
}

// GetState gets the current state (thread-safe).
func (m *Manager) GetState() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.currentState
}

// SetError moves to the error state and records the failure.
func (m *Manager) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.currentState = StateError
	m.lastErr = err
	m.appendLog(fmt.Sprintf("Error: %v", err))
}

// SetLastBatch records the summary of the most recent completed batch.
func (m *Manager) SetLastBatch(sum types.BatchSummary) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastBatch = &sum
}

// appendLog appends to the ring buffer; callers must hold the lock.
func (m *Manager) appendLog(message string) {
	m.logs = append(m.logs, LogEntry{Timestamp: time.Now(), Message: message})
	if len(m.logs) > m.maxLogs {
		m.logs = m.logs[len(m.logs)-m.maxLogs:]
	}
}
