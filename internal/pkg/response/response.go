package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type APIError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, gin.H{"data": data})
}

func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, gin.H{"data": data})
}

func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

func Error(c *gin.Context, status, code int, message string) {
	c.JSON(status, gin.H{"error": APIError{Code: code, Message: message}})
}

// ErrorDetails is for failures that must carry structured payload, e.g. a
// save conflict returning the authoritative server content.
func ErrorDetails(c *gin.Context, status, code int, message string, details interface{}) {
	c.JSON(status, gin.H{"error": APIError{Code: code, Message: message, Details: details}})
}
