package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	domainerrors "github.com/nimrid/Corre/internal/domain/errors"
)

// ErrorResponse is the error body every handler returns.
type ErrorResponse struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// statusForKind maps a failure kind to an HTTP status.
func statusForKind(kind domainerrors.Kind) int {
	switch kind {
	case domainerrors.KindValidation:
		return http.StatusBadRequest
	case domainerrors.KindNotFound:
		return http.StatusNotFound
	case domainerrors.KindConflict:
		return http.StatusConflict
	case domainerrors.KindUpstream:
		return http.StatusBadGateway
	case domainerrors.KindTimeout:
		return http.StatusGatewayTimeout
	case domainerrors.KindSigning, domainerrors.KindOnChain:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// respondDomainError renders a domain error with its kind as the code
// and its user message as the body.
func respondDomainError(c *gin.Context, err error) {
	kind := domainerrors.KindOf(err)
	c.JSON(statusForKind(kind), ErrorResponse{
		Code:      string(kind),
		Message:   domainerrors.UserMessage(err),
		RequestID: getRequestID(c),
	})
}

// respondBadRequest sends a bad request error for malformed input.
func respondBadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{
		Code:      string(domainerrors.KindValidation),
		Message:   message,
		RequestID: getRequestID(c),
	})
}

// getRequestID extracts request ID from context
func getRequestID(c *gin.Context) string {
	if reqID, exists := c.Get("request_id"); exists {
		if id, ok := reqID.(string); ok {
			return id
		}
	}
	return ""
}
