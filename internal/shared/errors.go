package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")
	ErrInFlight       = fmt.Errorf("operation already in progress")

	// Configuration errors
	ErrMissingConfig = fmt.Errorf("configuration not found")
	ErrInvalidConfig = fmt.Errorf("invalid configuration")

	// Gateway errors
	ErrConnection         = fmt.Errorf("connection failed")
	ErrTimeout            = fmt.Errorf("operation timed out")
	ErrHTTPStatus         = fmt.Errorf("unexpected HTTP status")
	ErrQuery              = fmt.Errorf("query returned errors")
	ErrDecode             = fmt.Errorf("failed to decode response")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")

	// Routing and reference data errors
	ErrNotReady        = fmt.Errorf("router not initialized")
	ErrNoReferenceData = fmt.Errorf("reference data not loaded")
	ErrInvalidGenre    = fmt.Errorf("invalid genre")
	ErrInvalidRank     = fmt.Errorf("invalid rank")
	ErrNoDefaultRank   = fmt.Errorf("no default rank declared")
	ErrTrackNotFound   = fmt.Errorf("track not found")

	// Preference errors
	ErrPreferenceNotFound = fmt.Errorf("preference not found")
	ErrInvalidTheme       = fmt.Errorf("invalid theme")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)
