package tui

// UI Text Constants
const (
	// Instructions
	TextStartInstruction = "Press 'r' to trigger a pipeline run"

	// Footer
	TextFooterIdle    = "Press 'r' to run pipeline | Press 'q' or Ctrl+C to quit"
	TextFooterRunning = "Press 'q' or Ctrl+C to quit (the run continues on the server)"
)
