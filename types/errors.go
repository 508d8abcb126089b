package types

import "fmt"

// Error taxonomy for the pipeline. Each category maps to a distinct caller
// outcome: ContentError is rejected before a job exists, RenderError and
// EncodeError fail a running job, NotFoundError answers queries for jobs
// that never existed or have expired.

// ContentError reports invalid or unusable input: missing text, text that is
// empty after normalization, a word count over the ceiling, an unsupported
// file type or an oversized upload.
type ContentError struct {
	Reason string
}

func (e *ContentError) Error() string { return e.Reason }

// RenderError reports a font or image I/O failure while compositing frames.
type RenderError struct {
	Frame int
	Err   error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render frame %d: %v", e.Frame, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }

// EncodeError reports a non-zero exit from the external encoder, preserving
// the encoder's diagnostic output.
type EncodeError struct {
	Output string
	Err    error
}

func (e *EncodeError) Error() string {
	if e.Output != "" {
		return fmt.Sprintf("encoder failed: %s", e.Output)
	}
	return fmt.Sprintf("encoder failed: %v", e.Err)
}

func (e *EncodeError) Unwrap() error { return e.Err }

// NotFoundError reports a status or download query for an unknown or
// expired job id.
type NotFoundError struct {
	JobID string
}

func (e *NotFoundError) Error() string { return fmt.Sprintf("job not found: %s", e.JobID) }
