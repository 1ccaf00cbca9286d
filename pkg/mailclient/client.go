package mailclient

import (
	"context"
	"io"
)

// Client sends one already serialized message to a list of recipients.
type Client interface {
	io.Closer
	Send(ctx context.Context, from string, recipients []string, raw []byte) (report Report)
}

// RecvFailure is a recipient the relay did not take, with its reason.
type RecvFailure struct {
	Recipient string `json:"recipient"`
	Error     error  `json:"-"`
}

func (f RecvFailure) Reason() string {
	if f.Error == nil {
		return ""
	}

	return f.Error.Error()
}

// Report is the outcome of one Send. ClientError means the message as a whole
// did not go out (connection, MAIL or DATA failed), Failures lists recipients
// refused one by one.
type Report struct {
	ClientError error
	Failures    []RecvFailure
}

// Failed expands the report over recipients: on a client error every
// recipient failed with it, otherwise only the refused ones.
func (r Report) Failed(recipients []string) []RecvFailure {
	if r.ClientError == nil {
		return r.Failures
	}

	failures := make([]RecvFailure, 0, len(recipients))
	for _, rcpt := range recipients {
		failures = append(failures, RecvFailure{Recipient: rcpt, Error: r.ClientError})
	}

	return failures
}

func (r Report) OK() bool {
	return r.ClientError == nil && len(r.Failures) == 0
}
