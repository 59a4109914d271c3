// Package controller owns one dashboard's request lifecycle: the input text,
// the in-flight flag and the last successful score report.
package controller

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/ZanzyTHEbar/brightshare/internal/errors"
	"github.com/ZanzyTHEbar/brightshare/internal/types"
)

// Submission outcomes reported to the Observer
const (
	OutcomeSuccess   = "success"
	OutcomeRejected  = "rejected"
	OutcomeConflict  = "conflict"
	OutcomeRequest   = "request_error"
	OutcomeMalformed = "malformed_response"
)

// EmptyInputMessage is shown when a blank URL is submitted
const EmptyInputMessage = "Please enter a TikTok URL"

// ErrSubmissionInFlight is returned by Submit while another submission is outstanding
var ErrSubmissionInFlight = errors.NewConflictError("A submission is already in progress")

// Scorer fetches a score report for one video URL
type Scorer interface {
	Score(ctx context.Context, videoURL string) (*types.ScoreReport, error)
}

// Notifier surfaces a user-visible message
type Notifier interface {
	Notify(message string)
}

// NotifierFunc adapts a function to Notifier
type NotifierFunc func(message string)

// Notify calls f(message)
func (f NotifierFunc) Notify(message string) { f(message) }

// Observer receives one call per Submit
type Observer interface {
	ObserveSubmission(outcome string, duration time.Duration)
}

// State is a copy of the controller's state
type State struct {
	Input      string             `json:"input"`
	InFlight   bool               `json:"in_flight"`
	Report     *types.ScoreReport `json:"report,omitempty"`
	LastNotice string             `json:"last_notice,omitempty"`
}

// Options configures a Controller. Zero values are valid.
type Options struct {
	Notifier       Notifier
	Observer       Observer
	MaxInputLength int
}

// Controller issues at most one outbound request at a time
type Controller struct {
	scorer   Scorer
	notifier Notifier
	observer Observer
	maxInput int

	mu         sync.Mutex
	input      string
	inFlight   bool
	report     *types.ScoreReport
	lastNotice string
}

// New creates a controller bound to scorer
func New(scorer Scorer, opts Options) *Controller {
	return &Controller{
		scorer:   scorer,
		notifier: opts.Notifier,
		observer: opts.Observer,
		maxInput: opts.MaxInputLength,
	}
}

// SetInput records the raw input text without validating it
func (c *Controller) SetInput(text string) {
	c.mu.Lock()
	c.input = text
	c.mu.Unlock()
}

// InFlight reports whether a submission is outstanding
func (c *Controller) InFlight() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inFlight
}

// Report returns the last successful report, or nil
func (c *Controller) Report() *types.ScoreReport {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.report
}

// Snapshot returns a copy of the current state
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return State{
		Input:      c.input,
		InFlight:   c.inFlight,
		Report:     c.report,
		LastNotice: c.lastNotice,
	}
}

// Submit scores input. Blank input is rejected without a request. A call made
// while another is outstanding returns ErrSubmissionInFlight and changes nothing.
// Any failure clears the report and notifies exactly once. Once issued, the
// request runs to completion even if ctx is cancelled; only the scorer's own
// timeout bounds it.
func (c *Controller) Submit(ctx context.Context, input string) (*types.ScoreReport, error) {
	start := time.Now()
	videoURL := strings.TrimSpace(input)

	c.mu.Lock()
	if c.inFlight {
		c.mu.Unlock()
		c.observe(OutcomeConflict, start)
		return nil, ErrSubmissionInFlight
	}

	c.input = input

	if videoURL == "" {
		c.mu.Unlock()
		err := errors.NewValidationError(EmptyInputMessage)
		c.notify(err.Message())
		c.observe(OutcomeRejected, start)
		return nil, err
	}
	if c.maxInput > 0 && len(videoURL) > c.maxInput {
		c.mu.Unlock()
		err := errors.NewValidationError("Video URL is too long", map[string]int{"max_length": c.maxInput})
		c.notify(err.Message())
		c.observe(OutcomeRejected, start)
		return nil, err
	}

	c.inFlight = true
	c.report = nil
	c.mu.Unlock()

	report, err := c.scorer.Score(context.WithoutCancel(ctx), videoURL)
	if err == nil && report == nil {
		err = errors.NewMalformedResponseError("Scoring service returned an empty response", nil)
	}

	c.mu.Lock()
	c.inFlight = false
	if err == nil {
		c.report = report
	}
	c.mu.Unlock()

	if err != nil {
		appErr := errors.ToAppError(err)
		c.notify(appErr.Message())
		if errors.IsCategory(appErr, errors.CategoryMalformedResponse) {
			c.observe(OutcomeMalformed, start)
		} else {
			c.observe(OutcomeRequest, start)
		}
		return nil, appErr
	}

	c.observe(OutcomeSuccess, start)
	return report, nil
}

func (c *Controller) notify(message string) {
	c.mu.Lock()
	c.lastNotice = message
	c.mu.Unlock()

	if c.notifier != nil {
		c.notifier.Notify(message)
	}
}

func (c *Controller) observe(outcome string, start time.Time) {
	if c.observer != nil {
		c.observer.ObserveSubmission(outcome, time.Since(start))
	}
}
