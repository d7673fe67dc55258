package domain

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrUnknownState          = errors.New("unknown state")
	ErrUnknownVariable       = errors.New("unknown variable")
	ErrDivisionByZero        = errors.New("division by zero")
	ErrShapeFileMissing      = errors.New("shape file missing")
	ErrMalformedArtifactName = errors.New("malformed artifact name")
	ErrMalformedResponse     = errors.New("malformed upstream response")
	ErrMissingArgument       = errors.New("missing argument")
	ErrQueueFull             = errors.New("job queue full")
	ErrJobNotFound           = errors.New("job not found")
)

// UpstreamError is returned when the statistics API answers with a non-200 status.
type UpstreamError struct {
	Status int
	Body   string
}

func (e *UpstreamError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("census API error: status %d", e.Status)
	}
	return fmt.Sprintf("census API error: status %d: %s", e.Status, e.Body)
}

// DivisionByZeroError reports a percent-change row whose recent-period value is zero.
type DivisionByZeroError struct {
	FIPS string
}

func (e *DivisionByZeroError) Error() string {
	return fmt.Sprintf("percent change for county %s: %s", e.FIPS, ErrDivisionByZero)
}

func (e *DivisionByZeroError) Unwrap() error { return ErrDivisionByZero }

// ErrorCode maps an error to a stable snake_case code used in job status
// records and metric labels.
func ErrorCode(err error) string {
	var upstream *UpstreamError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrUnknownState):
		return "unknown_state"
	case errors.Is(err, ErrUnknownVariable):
		return "unknown_variable"
	case errors.As(err, &upstream):
		return "upstream_error"
	case errors.Is(err, ErrDivisionByZero):
		return "division_by_zero"
	case errors.Is(err, ErrShapeFileMissing):
		return "shape_file_missing"
	case errors.Is(err, ErrMalformedArtifactName):
		return "malformed_artifact_name"
	case errors.Is(err, ErrMalformedResponse):
		return "malformed_response"
	case errors.Is(err, ErrMissingArgument):
		return "missing_argument"
	case errors.Is(err, ErrQueueFull):
		return "queue_full"
	case errors.Is(err, ErrJobNotFound):
		return "job_not_found"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "internal"
	}
}
