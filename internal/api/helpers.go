package api

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/yourname/daybar/internal"
	"github.com/yourname/daybar/internal/response"
)

func HandleError(c *gin.Context, logger internal.Logger, err error, status int, msg string) {
	requestID := c.GetString("request_id")
	logger.Errorf("[request_id=%s] %s: %v", requestID, msg, err)
	var resp response.APIResponse
	switch status {
	case 400:
		resp = response.BadRequest(msg + ": " + err.Error())
	case 404:
		resp = response.NotFound(msg + ": " + err.Error())
	case 500:
		resp = response.InternalError(msg + ": " + err.Error())
	default:
		resp = response.NewAppError(status, msg+": "+err.Error())
	}
	c.JSON(status, resp)
}

func HandleSuccess(c *gin.Context, logger internal.Logger, data interface{}, meta map[string]any) {
	requestID := c.GetString("request_id")
	logger.Debugf("[request_id=%s] Success", requestID)
	c.JSON(200, response.Success(data, meta))
}

// statusOf maps an error to an HTTP status, honoring AppError codes.
func statusOf(err error) int {
	var appErr *internal.AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return 500
}
