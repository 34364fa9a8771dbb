package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	sa "github.com/kailas-cloud/simplyanalytics"
	"github.com/kailas-cloud/simplyanalytics/internal/logger"
	"github.com/kailas-cloud/simplyanalytics/internal/metrics"
)

// ErrorCode is the machine-readable code in an error response.
type ErrorCode string

// Error codes.
const (
	CodeBadRequest        ErrorCode = "bad_request"
	CodeUnauthorized      ErrorCode = "unauthorized"
	CodeRemoteError       ErrorCode = "remote_error"
	CodeMalformedResponse ErrorCode = "malformed_response"
	CodeTimeout           ErrorCode = "upstream_timeout"
	CodeInternalError     ErrorCode = "internal_error"
)

// ErrorResponse is the JSON body of every non-2xx response.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// errorHandler tries to handle a client error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error) bool

var errorHandlers = []errorHandler{
	remoteErrorHandler,
	sentinelHandler(sa.ErrMalformedResponse, http.StatusBadGateway, CodeMalformedResponse),
	sentinelHandler(sa.ErrFilterArity, http.StatusBadRequest, CodeBadRequest),
	sentinelHandler(sa.ErrFilterUnknownOperator, http.StatusBadRequest, CodeBadRequest),
	sentinelHandler(sa.ErrFilterInvalidNode, http.StatusBadRequest, CodeBadRequest),
	sentinelHandler(context.DeadlineExceeded, http.StatusGatewayTimeout, CodeTimeout),
	sentinelHandler(context.Canceled, http.StatusGatewayTimeout, CodeTimeout),
}

// remoteErrorHandler passes the service's own message through to the caller.
func remoteErrorHandler(w http.ResponseWriter, err error) bool {
	var remote *sa.RemoteServiceError
	if !errors.As(err, &remote) {
		return false
	}
	writeError(w, http.StatusBadGateway, CodeRemoteError, remote.Message)
	return true
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, sentinel.Error())
		return true
	}
}

// upstreamKind classifies an error for the upstream error counter.
func upstreamKind(err error) string {
	switch {
	case errors.Is(err, sa.ErrRemoteService):
		return "remote"
	case errors.Is(err, sa.ErrMalformedResponse):
		return "malformed"
	case errors.Is(err, sa.ErrFilterArity),
		errors.Is(err, sa.ErrFilterUnknownOperator),
		errors.Is(err, sa.ErrFilterInvalidNode):
		return ""
	default:
		return "transport"
	}
}

func handleError(w http.ResponseWriter, r *http.Request, op string, err error) {
	log := logger.FromContext(r.Context())
	if kind := upstreamKind(err); kind != "" {
		metrics.UpstreamErrorsTotal.WithLabelValues(op, kind).Inc()
	}
	for _, h := range errorHandlers {
		if h(w, err) {
			log.Warn("request failed", zap.String("op", op), zap.Error(err))
			return
		}
	}
	log.Error("internal error", zap.String("op", op), zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}
