package robot

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnknownMsgType   = errors.New("unknown msgtype")
	ErrMalformedMessage = errors.New("malformed message")
)

// ValidationError is returned by Message.Validate and by Send before any
// network I/O.
type ValidationError struct {
	MsgType MsgType
	Field   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s message: %s is required", e.MsgType, e.Field)
}

// TransportError reports a failed HTTP exchange: dial, TLS, timeout or
// reading the body. Credentials are scrubbed from the message.
type TransportError struct {
	Op       string
	Err      error
	scrubber *strings.Replacer
}

func (e *TransportError) Error() string {
	msg := e.Err.Error()
	if e.scrubber != nil {
		msg = e.scrubber.Replace(msg)
	}
	return "robot: " + e.Op + ": " + msg
}

func (e *TransportError) Unwrap() error { return e.Err }

// DecodeError reports a response body that is not a JSON object.
type DecodeError struct {
	StatusCode int
	Body       []byte
	Err        error
}

func (e *DecodeError) Error() string {
	const maxBody = 256
	body := e.Body
	if len(body) > maxBody {
		body = body[:maxBody]
	}
	return fmt.Sprintf("robot: decoding response (status %d): %v: %q", e.StatusCode, e.Err, body)
}

func (e *DecodeError) Unwrap() error { return e.Err }

func newScrubber(secrets ...string) *strings.Replacer {
	var pairs []string
	for _, s := range secrets {
		if s != "" {
			pairs = append(pairs, s, "[REDACTED]")
		}
	}
	if len(pairs) == 0 {
		return nil
	}
	return strings.NewReplacer(pairs...)
}
