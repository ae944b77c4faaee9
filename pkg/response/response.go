package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Envelope is the JSON shape returned for every failure and for
// management-surface successes, so webhook senders can apply a single
// parsing policy regardless of which stage failed.
type Envelope struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Error   string      `json:"error,omitempty"`
	Details interface{} `json:"details,omitempty"`
}

// Common error codes
const (
	ErrCodeInvalidPayload = "INVALID_PAYLOAD"
	ErrCodeRateLimited    = "RATE_LIMITED"
	ErrCodeUnauthorized   = "UNAUTHORIZED"
	ErrCodeNotFound       = "NOT_FOUND"
	ErrCodeTradeNotFound  = "TRADE_NOT_FOUND"
	ErrCodeDuplicateTrade = "DUPLICATE_TRADE"
	ErrCodeInvalidUser    = "INVALID_USER"
	ErrCodeStoreFailure   = "STORE_FAILURE"
	ErrCodeInternalError  = "INTERNAL_ERROR"
)

// OK sends a 200 response with an optional details payload
func OK(c *gin.Context, message string, details interface{}) {
	c.JSON(http.StatusOK, Envelope{
		Success: true,
		Message: message,
		Details: details,
	})
}

// Fail sends a failure response with the given status and error code
func Fail(c *gin.Context, status int, code, message string) {
	c.JSON(status, Envelope{
		Success: false,
		Message: message,
		Error:   code,
	})
}

// FailWithDetails sends a failure response carrying extra detail
func FailWithDetails(c *gin.Context, status int, code, message string, details interface{}) {
	c.JSON(status, Envelope{
		Success: false,
		Message: message,
		Error:   code,
		Details: details,
	})
}

// BadRequest sends a 400 response for structurally invalid payloads
func BadRequest(c *gin.Context, message string) {
	Fail(c, http.StatusBadRequest, ErrCodeInvalidPayload, message)
}

// InvalidUser sends a 400 response for referential failures on the user
func InvalidUser(c *gin.Context, message string) {
	Fail(c, http.StatusBadRequest, ErrCodeInvalidUser, message)
}

// Unauthorized sends a 401 response
func Unauthorized(c *gin.Context, message string) {
	Fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, message)
}

// NotFound sends a 404 response
func NotFound(c *gin.Context, message string) {
	Fail(c, http.StatusNotFound, ErrCodeNotFound, message)
}

// TradeNotFound sends a 404 response for close signals with no open match
func TradeNotFound(c *gin.Context, message string) {
	Fail(c, http.StatusNotFound, ErrCodeTradeNotFound, message)
}

// Conflict sends a 409 response for duplicate trades
func Conflict(c *gin.Context, message string) {
	Fail(c, http.StatusConflict, ErrCodeDuplicateTrade, message)
}

// TooManyRequests sends a 429 response
func TooManyRequests(c *gin.Context, message string, details interface{}) {
	FailWithDetails(c, http.StatusTooManyRequests, ErrCodeRateLimited, message, details)
}

// StoreFailure sends a 500 response for store-layer errors
func StoreFailure(c *gin.Context, message string) {
	Fail(c, http.StatusInternalServerError, ErrCodeStoreFailure, message)
}

// InternalError sends a 500 response
func InternalError(c *gin.Context, message string) {
	Fail(c, http.StatusInternalServerError, ErrCodeInternalError, message)
}
