package tui

import (
	"fmt"

	"mediawatch/orchestrator"

	tea "github.com/charmbracelet/bubbletea"
)

// Update implements tea.Model interface
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)
	case TickMsg:
		return m, tea.Batch(pollStatus(m.Client), tickCmd())
	case StatusUpdateMsg:
		return m.handleStatusUpdate(msg)
	case BatchListMsg:
		return m.handleBatchList(msg)
	case RunStartedMsg:
		return m.handleRunStarted(msg)
	}
	return m, nil
}

// handleKeyPress processes keyboard input
func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit
	case "r", "R":
		if m.Connected && !m.running() {
			m.Notice = "Requesting pipeline run..."
			return m, triggerRun(m.Client)
		}
	}
	return m, nil
}

// handleStatusUpdate syncs local state from the pipeline API
func (m Model) handleStatusUpdate(msg StatusUpdateMsg) (tea.Model, tea.Cmd) {
	if msg.Err != nil {
		m.Connected = false
		return m, nil
	}

	wasRunning := m.running()
	m.Connected = true
	m.State = msg.Status.State
	m.RunID = msg.Status.RunID
	m.Date = msg.Status.Date
	m.Logs = msg.Status.Logs
	m.LastBatch = msg.Status.LastBatch
	m.ErrMsg = msg.Status.Error

	// Refresh the history once a run finishes
	if wasRunning && !m.running() {
		return m, pollBatches(m.Client)
	}
	return m, nil
}

// handleBatchList stores the refreshed batch history
func (m Model) handleBatchList(msg BatchListMsg) (tea.Model, tea.Cmd) {
	if msg.Err == nil {
		m.Batches = msg.Batches
	}
	return m, nil
}

// handleRunStarted processes the outcome of a run request
func (m Model) handleRunStarted(msg RunStartedMsg) (tea.Model, tea.Cmd) {
	if msg.Err != nil {
		m.Notice = fmt.Sprintf("Run request failed: %v", msg.Err)
		return m, nil
	}
	m.Notice = fmt.Sprintf("Run %s accepted", msg.RunID)
	if m.State == orchestrator.StateIdle {
		m.State = orchestrator.StateFetching
	}
	return m, pollStatus(m.Client)
}
