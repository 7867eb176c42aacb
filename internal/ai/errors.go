package ai

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// ErrorKind classifies a failed inference call
type ErrorKind int

const (
	// KindUnknown covers failures that fit no other class; treated as
	// non-retryable
	KindUnknown ErrorKind = iota
	// KindThrottled means the service rejected the call for exceeding its
	// allowed rate; retryable with backoff
	KindThrottled
	// KindTransient covers network and timeout failures; retryable with
	// backoff under a separate budget
	KindTransient
	// KindValidation covers malformed requests, auth failures and unknown
	// models; never retried
	KindValidation
)

func (k ErrorKind) String() string {
	switch k {
	case KindThrottled:
		return "throttled"
	case KindTransient:
		return "transient"
	case KindValidation:
		return "validation"
	default:
		return "unknown"
	}
}

// Error is a classified provider failure
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Throttled wraps err as a rate-limit rejection
func Throttled(msg string, err error) *Error {
	return &Error{Kind: KindThrottled, Message: msg, Err: err}
}

// Transient wraps err as a retryable network/timeout failure
func Transient(msg string, err error) *Error {
	return &Error{Kind: KindTransient, Message: msg, Err: err}
}

// Validation wraps err as a non-retryable request failure
func Validation(msg string, err error) *Error {
	return &Error{Kind: KindValidation, Message: msg, Err: err}
}

// Unknown wraps err as an unclassified failure
func Unknown(msg string, err error) *Error {
	return &Error{Kind: KindUnknown, Message: msg, Err: err}
}

// Classify returns the kind of an error from a provider. Context
// cancellation is reported as KindUnknown so the retry loop stops instead of
// burning its budget against a dead context.
func Classify(err error) ErrorKind {
	if err == nil {
		return KindUnknown
	}
	var aiErr *Error
	if errors.As(err, &aiErr) {
		return aiErr.Kind
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return KindUnknown
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return KindTransient
	}
	return KindUnknown
}

// ClassifyStatus maps an HTTP status code to an error kind
func ClassifyStatus(status int) ErrorKind {
	switch {
	case status == 429:
		return KindThrottled
	case status >= 500:
		return KindTransient
	case status == 400 || status == 401 || status == 403 || status == 404 || status == 422:
		return KindValidation
	default:
		return KindUnknown
	}
}
