package dto

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/careplane/careplane/pkg/errors"
)

// SendSuccess writes a success payload.
func SendSuccess(c *gin.Context, status int, payload interface{}) {
	c.JSON(status, payload)
}

// SendError writes the structured error shape with the status the error maps
// to. Reasons are always itemized; nothing is collapsed into a generic
// message.
func SendError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	if appErr, ok := errors.AsAppError(err); ok {
		status = appErr.HTTPStatus()
	}
	c.AbortWithStatusJSON(status, errors.ToErrorResponse(err))
}
