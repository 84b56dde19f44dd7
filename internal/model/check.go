package model

import "time"

// CheckReport is the result of checking one bookmark.
type CheckReport struct {
	// Target is the bookmarked request.
	Target string `json:"target"`

	// Location is the active location after the check, which differs from
	// Target after a permanent redirect.
	Location string `json:"location,omitempty"`

	// Status is the last response status code, or 0 when no response arrived.
	Status int `json:"status"`

	// Outcome is the navigation outcome: success, recoverable_failure or fatal.
	Outcome string `json:"outcome"`

	// Title is the document title on success.
	Title string `json:"title,omitempty"`

	// Hash is the SHA-256 of the body on success.
	Hash string `json:"hash,omitempty"`

	// Changed reports whether the body differs from the last stored snapshot.
	Changed bool `json:"changed"`

	// Redirects is the number of permanent redirects followed.
	Redirects int `json:"redirects"`

	// Duration is the time spent fetching.
	Duration time.Duration `json:"duration"`

	// Page is the fetched page on success. It is not serialized.
	Page *Page `json:"-"`

	// PerformedSteps lists the completed pipeline steps in order.
	PerformedSteps []string `json:"performed_steps,omitempty"`

	// Error holds the failure cause. It is not serialized; see ErrorMessage.
	Error error `json:"-"`

	// ErrorMessage is the string form of Error.
	ErrorMessage string `json:"error,omitempty"`
}

// NewCheckReport creates a report for target.
func NewCheckReport(target string) *CheckReport {
	return &CheckReport{
		Target:         target,
		PerformedSteps: make([]string, 0),
	}
}

// SetError records err as the failure cause.
func (r *CheckReport) SetError(err error) {
	r.Error = err
	if err != nil {
		r.ErrorMessage = err.Error()
	}
}

// OK reports whether the bookmark was fetched successfully.
func (r *CheckReport) OK() bool {
	return r.Outcome == "success" && r.Error == nil
}
