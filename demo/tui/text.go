package tui

// UI Text Constants
const (
	TextFooterIdle     = "Press 'r' to render the plan | Press 'q' to quit"
	TextFooterRunning  = "Press 'q' to detach (the render continues on the server)"
	TextFooterFailed   = "Press 't' to retry (finished slides are reused) | Press 'q' to quit"
	TextFooterComplete = "Press 'q' or Ctrl+C to exit"
)
