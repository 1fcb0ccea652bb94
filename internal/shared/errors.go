package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// Pipeline errors
	ErrLinkClassification = fmt.Errorf("unrecognized link")
	ErrMetadataFetch      = fmt.Errorf("failed to fetch metadata")
	ErrResolutionFailed   = fmt.Errorf("no matching source found")
	ErrDownloadFailed     = fmt.Errorf("download failed")
	ErrExhaustedRetries   = fmt.Errorf("retries exhausted")
	ErrDeliveryFailed     = fmt.Errorf("delivery failed")

	// Conversation errors
	ErrNoPendingRequest  = fmt.Errorf("no pending request")
	ErrRequestInProgress = fmt.Errorf("request already in progress")
	ErrQueueClosed       = fmt.Errorf("queue closed")

	// API and service errors
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")
	ErrPlaylistNotFound   = fmt.Errorf("playlist not found")
	ErrTrackNotFound      = fmt.Errorf("track not found")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
	ErrInvalidFlag     = fmt.Errorf("invalid flag value")
)
