package tui

import (
	"fmt"
	"strings"
)

// maxVisibleLogs caps the run activity lines shown below the state.
const maxVisibleLogs = 8

// View implements tea.Model interface
func (m Model) View() string {
	var b strings.Builder

	// Title
	b.WriteString(TitleStyle.Render("📰 MediaWatch Dashboard"))
	b.WriteString("\n\n")

	// Current state
	b.WriteString(m.getStateText())
	b.WriteString("\n\n")

	if m.Connected && m.RunID != "" {
		b.WriteString(InfoStyle.Render(fmt.Sprintf("Run %s for %s", m.RunID, m.Date)))
		b.WriteString("\n\n")
	}

	// Last completed batch
	if m.Connected && m.LastBatch != nil {
		b.WriteString(BoxStyle.Render(m.formatBatchSummary()))
		b.WriteString("\n\n")
	}

	// Batch history
	if m.Connected && len(m.Batches) > 0 {
		b.WriteString(InfoStyle.Render("📊 Recent batches:"))
		b.WriteString("\n")
		for _, sum := range m.Batches {
			line := fmt.Sprintf("   %s  items: %-3d risks: %-2d opportunities: %-2d duplicates: %d",
				sum.Date, sum.ItemCount, sum.Risks, sum.Opportunities, sum.Duplicates)
			b.WriteString(InfoStyle.Render(line))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	// Run activity
	if m.Connected && len(m.Logs) > 0 {
		logs := m.Logs
		if len(logs) > maxVisibleLogs {
			logs = logs[len(logs)-maxVisibleLogs:]
		}
		b.WriteString(InfoStyle.Render("📝 Recent Activity:"))
		b.WriteString("\n")
		for _, entry := range logs {
			b.WriteString(InfoStyle.Render(fmt.Sprintf("   [%s] %s", entry.Timestamp.Format("15:04:05"), entry.Message)))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	// Local notice
	if m.Notice != "" {
		b.WriteString(InfoStyle.Render(m.Notice))
		b.WriteString("\n\n")
	}

	// Help text
	if m.running() {
		b.WriteString(InfoStyle.Render(TextFooterRunning))
	} else {
		b.WriteString(InfoStyle.Render(TextFooterIdle))
	}

	return b.String()
}
