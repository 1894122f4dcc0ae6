package form

import (
	"context"
	"errors"
	"sync"

	"github.com/samber/lo"

	"github.com/Zachkp/portfolio/internal/submission"
)

// ErrInFlight is returned while a previous Submit is still waiting for an answer.
var ErrInFlight = errors.New("a submission is already in flight")

// Sender delivers a submission to the relay endpoint.
type Sender interface {
	Send(ctx context.Context, s submission.Submission) error
}

// Fields is what the visitor typed.
type Fields struct {
	Name    string
	Email   string
	Message string
}

type OutcomeKind int

const (
	// OutcomeInvalid: local validation failed, nothing was sent.
	OutcomeInvalid OutcomeKind = iota
	// OutcomeSent: the server accepted the message and the fields were cleared.
	OutcomeSent
	// OutcomeRejected: the server answered 400.
	OutcomeRejected
	// OutcomeFailed: any other failure.
	OutcomeFailed
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeInvalid:
		return "invalid"
	case OutcomeSent:
		return "sent"
	case OutcomeRejected:
		return "rejected"
	case OutcomeFailed:
		return "failed"
	}
	return "unknown"
}

// Outcome is the single notification a submit produces.
type Outcome struct {
	Kind OutcomeKind
	// FieldErrors maps field name to reason, set for OutcomeInvalid.
	FieldErrors map[string]string
	// Field and Message carry the server's answer for OutcomeRejected.
	Field   string
	Message string
	// Err is the underlying failure for OutcomeFailed.
	Err error
}

// Form holds the visitor's input and allows one outstanding request at a time.
type Form struct {
	sender Sender

	mu         sync.Mutex
	fields     Fields
	submitting bool
}

func NewForm(sender Sender) *Form {
	return &Form{sender: sender}
}

func (f *Form) Set(fields Fields) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fields = fields
}

func (f *Form) Fields() Fields {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fields
}

// Submitting reports whether the submit control should be disabled.
func (f *Form) Submitting() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.submitting
}

// Submit validates the current fields and, when they pass, sends them once.
func (f *Form) Submit(ctx context.Context) (Outcome, error) {
	f.mu.Lock()
	if f.submitting {
		f.mu.Unlock()
		return Outcome{}, ErrInFlight
	}
	fields := f.fields

	if violations := submission.Violations(fields.Name, fields.Email, fields.Message); len(violations) > 0 {
		f.mu.Unlock()
		return Outcome{
			Kind: OutcomeInvalid,
			FieldErrors: lo.SliceToMap(violations, func(v submission.ValidationError) (string, string) {
				return v.Field, v.Message
			}),
		}, nil
	}
	f.submitting = true
	f.mu.Unlock()

	err := f.sender.Send(ctx, submission.Submission{
		Name:    fields.Name,
		Email:   fields.Email,
		Message: fields.Message,
	})

	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitting = false

	var rejected *RejectedError
	switch {
	case err == nil:
		f.fields = Fields{}
		return Outcome{Kind: OutcomeSent}, nil
	case errors.As(err, &rejected):
		return Outcome{Kind: OutcomeRejected, Field: rejected.Field, Message: rejected.Message}, nil
	default:
		return Outcome{Kind: OutcomeFailed, Err: err}, nil
	}
}
