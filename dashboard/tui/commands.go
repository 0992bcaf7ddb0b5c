package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// historyLimit caps the number of batch summaries shown in the dashboard.
const historyLimit = 7

// pollStatus creates a command to poll the pipeline run status
func pollStatus(client *PipelineClient) tea.Cmd {
	return func() tea.Msg {
		status, err := client.GetStatus()
		return StatusUpdateMsg{
			Status: status,
			Err:    err,
		}
	}
}

// pollBatches creates a command to refresh the batch history
func pollBatches(client *PipelineClient) tea.Cmd {
	return func() tea.Msg {
		batches, err := client.ListBatches(historyLimit)
		return BatchListMsg{
			Batches: batches,
			Err:     err,
		}
	}
}

// triggerRun creates a command to start a pipeline run
func triggerRun(client *PipelineClient) tea.Cmd {
	return func() tea.Msg {
		runID, err := client.TriggerRun()
		return RunStartedMsg{RunID: runID, Err: err}
	}
}

// tickCmd creates a command that ticks every 500ms for polling
func tickCmd() tea.Cmd {
	return tea.Tick(500*time.Millisecond, func(t time.Time) tea.Msg {
		return TickMsg{Time: t}
	})
}
