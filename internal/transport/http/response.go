package httptransport

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Error response bodies are `{"error": message}` everywhere except the
// webhook, which answers the inbound mail router in plain text.

// Common messages.
const (
	MsgInvalidRequest   = "Invalid request body"
	MsgUsernameRequired = "Username is required"
	MsgAddressNotFound  = "Address not found"
	MsgNotFound         = "Not Found"
	MsgUnknownError     = "Unknown error"
)

type errorResponse struct {
	Error string `json:"error"`
}

// Success renders a 200 with a JSON payload.
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, data)
}

// NoContent renders an empty 204.
func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// BadRequest renders a 400 error body.
func BadRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, errorResponse{Error: msg})
}

// NotFound renders a 404 error body.
func NotFound(c *gin.Context, msg string) {
	c.JSON(http.StatusNotFound, errorResponse{Error: msg})
}

// Failure renders an unexpected error as a 400, falling back to a generic
// message when the error carries none.
func Failure(c *gin.Context, err error) {
	msg := MsgUnknownError
	if err != nil && err.Error() != "" {
		msg = err.Error()
	}
	c.JSON(http.StatusBadRequest, errorResponse{Error: msg})
}
