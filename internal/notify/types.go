// Package notify delivers change notifications to subscribers over email.
// Delivery is strictly sequential: one recipient at a time, a minimum gap
// between sends, and a single fixed-backoff retry for transient failures.
// A recipient's failure never aborts the rest of the fan-out.
package notify

import (
	"errors"
	"time"
)

// Config controls the email fan-out.
type Config struct {
	Enabled bool
	From    string
	APIKey  string

	// AppURL is the public base URL used to build unsubscribe links.
	AppURL string

	SubjectPrefix string
	SendDelay     time.Duration
	RetryBackoff  time.Duration
	SendTimeout   time.Duration
}

// Outcome is the aggregate result of one fan-out.
type Outcome struct {
	Sent    int
	Failed  int
	Errors  []string
	// Attempts counts individual send attempts including retries.
	Attempts int
}

// TransientError marks a send failure worth retrying once (provider rate
// limits, quota responses, timeouts). Anything else is permanent.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string { return e.Err.Error() }
func (e *TransientError) Unwrap() error { return e.Err }

func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}
