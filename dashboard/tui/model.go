package tui

import (
	"fmt"
	"strings"

	"mediawatch/orchestrator"
	"mediawatch/types"

	tea "github.com/charmbracelet/bubbletea"
)

// Model represents the TUI client state (thin client)
type Model struct {
	// Pipeline API client
	Client *PipelineClient

	// Local UI state (synced from the pipeline API)
	State     orchestrator.State
	RunID     string
	Date      string
	Logs      []orchestrator.LogEntry
	LastBatch *types.BatchSummary
	ErrMsg    string

	// Batch history, newest first
	Batches []types.BatchSummary

	// Connection status
	Connected bool

	// Last local notice (e.g. a rejected run request)
	Notice string
}

// NewModel creates a new TUI model
func NewModel(apiURL string) Model {
	return Model{
		Client: NewPipelineClient(apiURL),
		State:  orchestrator.StateIdle,
		Logs:   make([]orchestrator.LogEntry, 0),
	}
}

// Init implements tea.Model interface
func (m Model) Init() tea.Cmd {
	// Start polling immediately
	return tea.Batch(
		pollStatus(m.Client),
		pollBatches(m.Client),
		tickCmd(),
	)
}

// running reports whether a pipeline run is currently in flight.
func (m Model) running() bool {
	switch m.State {
	case orchestrator.StateFetching, orchestrator.StateProcessing, orchestrator.StateReporting:
		return true
	}
	return false
}

// getStateText returns the appropriate state message
func (m Model) getStateText() string {
	if !m.Connected {
		return ErrorStyle.Render("❌ Not connected to pipeline API at " + m.Client.baseURL)
	}

	switch m.State {
	case orchestrator.StateIdle:
		return HighlightStyle.Render("👋 Idle") + "\n\n" +
			InfoStyle.Render(TextStartInstruction)
	case orchestrator.StateFetching:
		return StatusStyle.Render("⏳ Fetching RSS feeds...")
	case orchestrator.StateProcessing:
		return StatusStyle.Render("🔍 Processing batch (dedupe + classify)...")
	case orchestrator.StateReporting:
		return StatusStyle.Render("📤 Publishing daily report...")
	case orchestrator.StateComplete:
		return HighlightStyle.Render("✅ COMPLETE")
	case orchestrator.StateError:
		errMsg := "Unknown error"
		if m.ErrMsg != "" {
			errMsg = m.ErrMsg
		}
		return ErrorStyle.Render(fmt.Sprintf("❌ Error: %s", errMsg))
	default:
		return ""
	}
}

// formatBatchSummary formats the last completed batch for display
func (m Model) formatBatchSummary() string {
	sum := m.LastBatch
	var b strings.Builder

	b.WriteString(HighlightStyle.Render("Batch " + sum.Date))
	b.WriteString("\n\n")

	b.WriteString(fmt.Sprintf("Items: %d | Duplicates: %d | Skipped: %d\n", sum.ItemCount, sum.Duplicates, sum.Skipped))
	b.WriteString(fmt.Sprintf("Risks: %s | Opportunities: %s | Neutral: %d",
		ErrorStyle.Render(fmt.Sprintf("%d", sum.Risks)),
		StatusStyle.Render(fmt.Sprintf("%d", sum.Opportunities)),
		sum.Neutral))

	return b.String()
}
