package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrRemoteService signals that the service answered with an exception envelope.
	ErrRemoteService = errors.New("remote service error")
	// ErrMalformedResponse signals a successful response missing an expected field.
	ErrMalformedResponse = errors.New("malformed response")
)

// RemoteServiceError carries the message of an exception envelope.
type RemoteServiceError struct {
	Message string
}

func (e *RemoteServiceError) Error() string {
	return fmt.Sprintf("%s: %s", ErrRemoteService.Error(), e.Message)
}

func (e *RemoteServiceError) Unwrap() error { return ErrRemoteService }

// NewRemoteServiceError creates a remote service error.
func NewRemoteServiceError(message string) error {
	return &RemoteServiceError{Message: message}
}

// MalformedResponseError names the field that was missing or unreadable.
type MalformedResponseError struct {
	Resource string
	Field    string
	Err      error
}

func (e *MalformedResponseError) Error() string {
	msg := fmt.Sprintf("%s: %s: field %q", ErrMalformedResponse.Error(), e.Resource, e.Field)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *MalformedResponseError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrMalformedResponse, e.Err}
	}
	return []error{ErrMalformedResponse}
}

// NewMalformedResponse creates a malformed response error for resource.field.
func NewMalformedResponse(resource, field string, cause error) error {
	return &MalformedResponseError{Resource: resource, Field: field, Err: cause}
}
