package core

// Exit codes for the command line.
// Signal-based exits follow the Unix 128 + signal number convention.
const (
	// ExitCodeSuccess covers finished runs, approved or not.
	ExitCodeSuccess = 0

	// ExitCodeError indicates a provider or internal failure.
	ExitCodeError = 1

	// ExitCodeUsage indicates invalid input (empty brief, rounds out of range, bad template).
	ExitCodeUsage = 2

	// ExitCodeSIGINT indicates termination due to SIGINT (Ctrl+C)
	ExitCodeSIGINT = 130

	// ExitCodeSIGTERM indicates termination due to SIGTERM
	ExitCodeSIGTERM = 143
)

// ExitCodeFor maps a run error to a process exit code.
func ExitCodeFor(err error) int {
	switch {
	case err == nil:
		return ExitCodeSuccess
	case IsValidationError(err):
		return ExitCodeUsage
	default:
		if _, ok := IsConfigError(err); ok {
			return ExitCodeUsage
		}
		return ExitCodeError
	}
}

// ExitCodeName returns a human-readable name for an exit code.
func ExitCodeName(code int) string {
	switch code {
	case ExitCodeSuccess:
		return "success"
	case ExitCodeError:
		return "error"
	case ExitCodeUsage:
		return "usage"
	case ExitCodeSIGINT:
		return "interrupted (SIGINT)"
	case ExitCodeSIGTERM:
		return "terminated (SIGTERM)"
	default:
		return "unknown"
	}
}
