package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/GriffinCanCode/confbridge/internal/shared/types"
)

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// StatusFor maps a controller error onto an HTTP status and a stable code
func StatusFor(err error) (int, string) {
	switch {
	case errors.Is(err, types.ErrAlreadyOpen):
		return http.StatusConflict, "already_open"
	case errors.Is(err, types.ErrInvalidState):
		return http.StatusConflict, "invalid_state"
	case errors.Is(err, types.ErrAlreadyAttached):
		return http.StatusConflict, "already_attached"
	case errors.Is(err, types.ErrNoActiveSession):
		return http.StatusNotFound, "no_active_session"
	case errors.Is(err, types.ErrPermissionDenied):
		return http.StatusForbidden, "permission_denied"
	case errors.Is(err, types.ErrInvalidParams):
		return http.StatusBadRequest, "invalid_params"
	case errors.Is(err, types.ErrUnknownDevice):
		return http.StatusBadRequest, "unknown_device"
	case errors.Is(err, types.ErrClosed), errors.Is(err, types.ErrStaleSession):
		return http.StatusGone, "closed"
	case errors.Is(err, types.ErrEngineInitFailed):
		return http.StatusServiceUnavailable, "engine_init_failed"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "timeout"
	case errors.Is(err, types.ErrOperationFailed):
		return http.StatusInternalServerError, "operation_failed"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

func respondError(c *gin.Context, err error) {
	status, code := StatusFor(err)
	c.JSON(status, ErrorResponse{Error: err.Error(), Code: code})
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: "bad_request"})
}
