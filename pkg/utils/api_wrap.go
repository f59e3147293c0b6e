package utils

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

type APIResponse struct {
	Status  string      `json:"status"`
	Code    int         `json:"code"`
	Message string      `json:"message,omitempty"`
	TraceID string      `json:"trace_id,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

func traceID(c *gin.Context) string {
	return c.GetString("trace_id")
}

func RespondSuccess(c *gin.Context, data interface{}, message string) {
	c.JSON(http.StatusOK, APIResponse{
		Status:  "success",
		Code:    http.StatusOK,
		Message: message,
		TraceID: traceID(c),
		Data:    data,
	})
}

func RespondError(c *gin.Context, code int, message string) {
	c.JSON(code, APIResponse{
		Status:  "error",
		Code:    code,
		Message: message,
		TraceID: traceID(c),
	})
}

type errorMapping struct {
	err     error
	code    int
	message string
}

// Order matters: the first match wins. Messages never carry wrapped detail.
var errorMappings = []errorMapping{
	{ErrInvalidInput, http.StatusBadRequest, "Invalid request"},
	{ErrInvalidRemarks, http.StatusBadRequest, "Remarks must be between 10 and 255 characters"},
	{ErrUnknownTier, http.StatusBadRequest, "Unknown approval tier"},

	{ErrUnauthorized, http.StatusUnauthorized, "Unauthorized"},
	{ErrInvalidCredentials, http.StatusUnauthorized, "Invalid credentials"},
	{ErrInvalidAccessToken, http.StatusUnauthorized, "Invalid payment access token"},
	{ErrForbidden, http.StatusForbidden, "Forbidden: insufficient permissions"},
	{ErrSelfApproval, http.StatusForbidden, "You cannot act on your own account"},

	{ErrAccountNotFound, http.StatusNotFound, "Account not found"},
	{ErrApprovalNotFound, http.StatusNotFound, "Approval record not found"},
	{ErrPayableNotFound, http.StatusNotFound, "Registration not found"},
	{ErrOrderNotFound, http.StatusNotFound, "Payment order not found"},

	{ErrEmailAlreadyExists, http.StatusConflict, "Email already exists"},
	{ErrAlreadyApproved, http.StatusConflict, "Account is already approved"},
	{ErrAlreadyRejected, http.StatusConflict, "Approval is already rejected"},
	{ErrTierAlreadyDecided, http.StatusConflict, "This tier has already approved the account"},
	{ErrTierOutOfOrder, http.StatusConflict, "First tier approval is required first"},
	{ErrAccountNotLocked, http.StatusConflict, "Account is not locked"},
	{ErrAlreadyPaid, http.StatusConflict, "Registration is already paid"},
	{ErrOrderClosed, http.StatusConflict, "Payment order is no longer pending"},
	{ErrAmountMismatch, http.StatusConflict, "Payment amount mismatch"},

	{ErrAmountBelowMinimum, http.StatusUnprocessableEntity, "Amount is below the minimum payable amount"},
	{ErrSignatureInvalid, http.StatusBadRequest, "Payment signature verification failed"},

	{ErrAccountLocked, http.StatusLocked, "Account is temporarily locked"},
	{ErrTooManyAttempts, http.StatusTooManyRequests, "Too many login attempts, try again later"},

	{ErrProviderUnavailable, http.StatusBadGateway, "Payment provider error, please retry"},
	{ErrDatabaseError, http.StatusInternalServerError, "Internal server error"},
}

// StatusFor maps a service error onto its HTTP status and public message.
func StatusFor(err error) (int, string) {
	for _, m := range errorMappings {
		if errors.Is(err, m.err) {
			return m.code, m.message
		}
	}
	return http.StatusInternalServerError, "Internal server error"
}

func HandleServiceError(c *gin.Context, err error) {
	code, message := StatusFor(err)
	if code >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	RespondError(c, code, message)
}
