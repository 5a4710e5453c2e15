package formguard

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"sync"
	"unicode/utf8"
)

// State is a stage of the submission lifecycle.
type State string

const (
	StateIdle       State = "idle"
	StateSubmitting State = "submitting"
	StateSuccess    State = "success"
	StateFailed     State = "failed"
)

var (
	// ErrSubmitInProgress is returned by Submit while a submission is outstanding.
	ErrSubmitInProgress = errors.New("submission already in progress")
	// ErrAlreadySubmitted is returned by Submit after success until Reset is called.
	ErrAlreadySubmitted = errors.New("message already sent; reset to send another")
)

// Submitter delivers a validated, sanitised submission.
type Submitter interface {
	Submit(ctx context.Context, f Fields) error
}

// Form holds the contact form inputs and drives
// idle -> submitting -> success -> idle, with failed as the
// recoverable outcome of a delivery error.
type Form struct {
	submitter Submitter

	mu      sync.Mutex
	state   State
	fields  Fields
	errors  Errors
	lastErr error
}

// NewForm creates an idle form delivering through s.
func NewForm(s Submitter) *Form {
	return &Form{
		submitter: s,
		state:     StateIdle,
		errors:    Errors{},
	}
}

// Input sets field to value. Values longer than the field's cap are ignored,
// leaving the previous value in place, and false is returned. An accepted edit
// clears that field's error.
func (f *Form) Input(field Field, value string) bool {
	limit := MaxLength(field)
	if limit == 0 || utf8.RuneCountInString(value) > limit {
		return false
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.fields.set(field, value)
	delete(f.errors, field)
	return true
}

// Submit validates the current inputs and, if they pass, hands the sanitised
// fields to the submitter. On rejection the per-field errors are kept on the
// form and ErrRejected is returned; nothing is sent. On delivery failure the
// form moves to StateFailed with its inputs intact.
func (f *Form) Submit(ctx context.Context) (Outcome, error) {
	f.mu.Lock()
	switch f.state {
	case StateSubmitting:
		f.mu.Unlock()
		return Outcome{}, ErrSubmitInProgress
	case StateSuccess:
		f.mu.Unlock()
		return Outcome{}, ErrAlreadySubmitted
	}

	f.errors = Errors{}
	clean, outcome := Check(f.fields)
	if !outcome.Accepted {
		f.errors = maps.Clone(outcome.Errors)
		f.mu.Unlock()
		return outcome, ErrRejected
	}

	f.state = StateSubmitting
	f.lastErr = nil
	f.mu.Unlock()

	err := f.submitter.Submit(ctx, clean)

	f.mu.Lock()
	defer f.mu.Unlock()
	if err != nil {
		f.state = StateFailed
		f.lastErr = err
		return outcome, fmt.Errorf("submit contact form: %w", err)
	}
	f.state = StateSuccess
	f.fields = Fields{}
	return outcome, nil
}

// Reset returns a finished form to idle ("send another"). It has no effect while submitting.
func (f *Form) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state == StateSubmitting {
		return
	}
	f.state = StateIdle
	f.lastErr = nil
}

// State returns the current lifecycle stage.
func (f *Form) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Fields returns the current raw inputs.
func (f *Form) Fields() Fields {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fields
}

// Errors returns a copy of the current per-field errors.
func (f *Form) Errors() Errors {
	f.mu.Lock()
	defer f.mu.Unlock()
	return maps.Clone(f.errors)
}

// Err returns the delivery error shown while in StateFailed.
func (f *Form) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastErr
}
