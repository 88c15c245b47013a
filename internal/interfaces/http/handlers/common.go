// Package handlers contains the gin HTTP handlers for the SpaceRisk API.
// Handlers that mutate or read the score store share one mutex: the engine
// underneath is single-actor and the HTTP layer is the collaborator that
// serializes access to it.
package handlers

import (
	stderrors "errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/orbitsec/spacerisk/internal/interfaces/http/middleware"
	"github.com/orbitsec/spacerisk/pkg/errors"
)

// ErrorResponse is the standard error body.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

// respondError maps an AppError chain to its HTTP status.  Server-side
// failures keep their code but mask the message.
func respondError(c *gin.Context, err error) {
	code := errors.GetCode(err)
	status := errors.HTTPStatusForCode(code)

	resp := ErrorResponse{Code: code.String(), Message: err.Error()}
	if errors.IsServerError(code) {
		resp.Message = errors.DefaultMessageForCode(code)
	}
	var appErr *errors.AppError
	if stderrors.As(err, &appErr) && !errors.IsServerError(code) {
		resp.Message = appErr.Message
		resp.Detail = appErr.Detail
	}
	// The metrics middleware picks the code up after the handler returns.
	c.Set(middleware.ErrorCodeKey, code.String())
	c.AbortWithStatusJSON(status, resp)
}

// respondBadRequest rejects malformed input before it reaches a service.
func respondBadRequest(c *gin.Context, message string) {
	c.Set(middleware.ErrorCodeKey, errors.CodeInvalidParam.String())
	c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{
		Code:    errors.CodeInvalidParam.String(),
		Message: message,
	})
}

// intQuery parses a required integer query parameter.
func intQuery(c *gin.Context, name string) (int, bool) {
	raw, ok := c.GetQuery(name)
	if !ok {
		respondBadRequest(c, "missing query parameter "+name)
		return 0, false
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		respondBadRequest(c, "query parameter "+name+" must be an integer")
		return 0, false
	}
	return v, true
}
