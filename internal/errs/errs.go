// Package errs defines the error kinds shared across the pipeline and the
// exit-code mapping used by the CLI. Errors are classified by wrapping one
// of the sentinel values with %w so callers can test with errors.Is.
package errs

import "errors"

var (
	// ErrCredential marks missing or invalid secrets (OAuth client,
	// refresh token, bot token). Always fatal, never retried.
	ErrCredential = errors.New("credential error")

	// ErrProvider marks a transport or API failure talking to the mail
	// provider. Fatal during fetch, non-fatal for mailbox actions.
	ErrProvider = errors.New("provider error")

	// ErrConfigNotFound marks a missing rule configuration file.
	ErrConfigNotFound = errors.New("config not found")

	// ErrConfigMalformed marks a rule configuration that exists but
	// cannot be parsed.
	ErrConfigMalformed = errors.New("config malformed")

	// ErrNotifier marks a delivery failure. Recovered per notifier and
	// never aborts the run.
	ErrNotifier = errors.New("notifier error")
)

// Exit codes returned by the CLI, one per error kind.
const (
	ExitOK         = 0
	ExitFailure    = 1
	ExitConfig     = 2
	ExitCredential = 3
	ExitProvider   = 4
	ExitInterrupt  = 130
)

// ExitCode maps an error to the process exit status.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, ErrCredential):
		return ExitCredential
	case errors.Is(err, ErrConfigNotFound), errors.Is(err, ErrConfigMalformed):
		return ExitConfig
	case errors.Is(err, ErrProvider):
		return ExitProvider
	default:
		return ExitFailure
	}
}
