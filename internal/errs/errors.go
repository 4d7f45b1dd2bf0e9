package errs

import "errors"

// Error kinds the pipeline distinguishes. Handlers map these onto HTTP
// statuses; everything else is a plain 500.
var (
	// ErrConfig marks invalid chunk/overlap parameters or any other bad
	// configuration. Fatal, never retried.
	ErrConfig = errors.New("config error")

	// ErrNotFound marks a missing artifact bundle or session record.
	ErrNotFound = errors.New("not found")

	// ErrAccessDenied marks an artifact path escaping the storage root.
	ErrAccessDenied = errors.New("access denied")

	// ErrStorage marks a disk failure during commit. The atomic commit
	// path guarantees no half-written bundle is visible afterwards.
	ErrStorage = errors.New("storage error")

	// ErrStyleViolation means the mail text still broke the style
	// contract after the regeneration budget. The text is never released.
	ErrStyleViolation = errors.New("style violation")

	// ErrStageFailure marks a research/final stage that could not
	// produce output at all. Unlike segment transcription there is no
	// acceptable placeholder for a plan or a mail.
	ErrStageFailure = errors.New("stage failure")

	// ErrUpstreamTimeout and ErrUpstreamUnavailable classify remote
	// call failures after the retry budget is spent.
	ErrUpstreamTimeout     = errors.New("upstream timeout")
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
)
