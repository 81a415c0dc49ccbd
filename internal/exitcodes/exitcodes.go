package exitcodes

// Exit codes for file-assistant
// These codes form the operational contract with scripts and operators
const (
	Success         = 0 // Successful execution
	InvalidConfig   = 2 // Configuration file, flags or patterns invalid
	SafetyViolation = 3 // Safety validator blocked a removal
	RuntimeError    = 4 // Runtime error during execution
	DeleteFailed    = 5 // A matched directory could not be removed
)
