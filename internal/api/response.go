package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/ajharbinger/lead-funnel/internal/errors"
	"github.com/ajharbinger/lead-funnel/internal/logger"
)

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error   string      `json:"error"`
	Code    string      `json:"code,omitempty"`
	Details interface{} `json:"details,omitempty"`
}

// respondError writes err with the status of its AppError code. Errors
// outside the AppError taxonomy are logged and reported as 500.
func respondError(c *gin.Context, log logger.Logger, err error) {
	var appErr *apperrors.AppError
	if apperrors.As(err, &appErr) {
		status := appErr.HTTPStatus()
		if status >= http.StatusInternalServerError {
			log.Error("Request failed", err, "operation", appErr.Operation)
			_ = c.Error(err)
		}
		c.JSON(status, ErrorResponse{
			Error:   appErr.Message,
			Code:    appErr.Code,
			Details: appErr.Details,
		})
		return
	}

	log.Error("Request failed", err, "path", c.FullPath())
	_ = c.Error(err)
	c.JSON(http.StatusInternalServerError, ErrorResponse{
		Error: "Internal server error",
		Code:  apperrors.ErrCodeInternalError,
	})
}
