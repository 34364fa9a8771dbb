package simplyanalytics

import (
	"github.com/kailas-cloud/simplyanalytics/internal/domain"
	"github.com/kailas-cloud/simplyanalytics/internal/domain/filter"
)

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrRemoteService     = domain.ErrRemoteService
	ErrMalformedResponse = domain.ErrMalformedResponse

	ErrFilterArity           = filter.ErrArity
	ErrFilterUnknownOperator = filter.ErrUnknownOperator
	ErrFilterInvalidNode     = filter.ErrInvalidNode
)

// RemoteServiceError is returned when the service answers with an
// exception envelope. Message is the service-provided text.
type RemoteServiceError = domain.RemoteServiceError

// MalformedResponseError is returned when a successful response lacks an
// expected field or the field cannot be decoded.
type MalformedResponseError = domain.MalformedResponseError
