package responses

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/janhq/jan-chat/internal/utils/platformerrors"
)

// ErrorResponse is the body of every non-2xx answer. Type and Reason are the
// closed error kind clients branch on.
type ErrorResponse struct {
	Code      string `json:"code"` // UUID from PlatformError
	Type      string `json:"type"`
	Reason    string `json:"reason,omitempty"`
	Error     string `json:"error"`
	Message   string `json:"message,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// HandleError writes err using its type and reason to pick the status.
func HandleError(reqCtx *gin.Context, err error, message string) {
	var domainErr *platformerrors.PlatformError
	if errors.As(err, &domainErr) {
		_ = reqCtx.Error(err)
		reqCtx.AbortWithStatusJSON(platformerrors.HTTPStatus(domainErr), FromError(domainErr, message))
		return
	}
	_ = reqCtx.Error(err)
	reqCtx.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{
		Type:    string(platformerrors.ErrorTypeInternal),
		Error:   message,
		Message: message,
	})
}

// HandleNewError creates a typed error at the route layer and writes it.
func HandleNewError(reqCtx *gin.Context, errorType platformerrors.ErrorType, reason platformerrors.Reason, message string) {
	err := platformerrors.NewErrorWithReason(reqCtx.Request.Context(), platformerrors.LayerRoute, errorType, reason, message, nil)
	reqCtx.AbortWithStatusJSON(platformerrors.HTTPStatus(err), FromError(err, message))
}

// FromError builds the body for a platform error. Streams reuse it for error events.
func FromError(err *platformerrors.PlatformError, message string) ErrorResponse {
	return ErrorResponse{
		Code:      err.GetUUID(),
		Type:      string(err.GetErrorType()),
		Reason:    string(err.GetReason()),
		Error:     message,
		Message:   err.Message,
		RequestID: err.GetRequestID(),
	}
}
