package models

import "time"

// Status of a completion run over one invoice.
const (
	StatusComplete   = "complete"
	StatusIncomplete = "incomplete"
	StatusError      = "error"
)

// CompletionResult is the outcome of completing one invoice in a batch.
type CompletionResult struct {
	Source   string // File name or sheet row the invoice came from
	Invoice  *Invoice
	Err      error
	Duration time.Duration
}

// Status reports whether the invoice was read and fully completed.
func (r CompletionResult) Status() string {
	switch {
	case r.Err != nil || r.Invoice == nil:
		return StatusError
	case r.Invoice.Meta.Incomplete:
		return StatusIncomplete
	default:
		return StatusComplete
	}
}
