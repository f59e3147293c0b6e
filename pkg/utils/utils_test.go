package utils

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("correct horse")
	require.NoError(t, err)
	assert.NoError(t, ComparePasswords(hash, "correct horse"))
	assert.Error(t, ComparePasswords(hash, "battery staple"))
}

func TestSecureTokenAndHash(t *testing.T) {
	token, err := GenerateSecureToken(32)
	require.NoError(t, err)
	assert.Len(t, token, 64)

	other, err := GenerateSecureToken(32)
	require.NoError(t, err)
	assert.NotEqual(t, token, other)

	hash := HashToken(token)
	assert.NotEqual(t, token, hash)
	assert.True(t, TokenMatchesHash(token, hash))
	assert.False(t, TokenMatchesHash(other, hash))
	assert.False(t, TokenMatchesHash("", hash))

	_, err = GenerateSecureToken(0)
	assert.Error(t, err)
}

func TestJWTRoundTrip(t *testing.T) {
	signer := NewJWTSigner("test-secret")
	id := uuid.New()

	token, err := signer.CreateToken(id, "ebm")
	require.NoError(t, err)

	claims, err := signer.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, id.String(), claims.UserID)
	assert.Equal(t, "ebm", claims.Role)

	_, err = NewJWTSigner("other-secret").ValidateToken(token)
	assert.Error(t, err)
}

func TestTwoDigitYear(t *testing.T) {
	loc := time.FixedZone("IST", 5*3600+1800)
	// 2025-12-31 20:00 UTC is already 2026 in IST
	ts := time.Date(2025, 12, 31, 20, 0, 0, 0, time.UTC)
	assert.Equal(t, "26", TwoDigitYear(ts, loc))
	assert.Equal(t, "25", TwoDigitYear(ts, time.UTC))
}

func TestStatusForWrappedErrors(t *testing.T) {
	code, msg := StatusFor(fmt.Errorf("approve: %w", ErrAlreadyRejected))
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "Approval is already rejected", msg)

	code, _ = StatusFor(ErrSelfApproval)
	assert.Equal(t, http.StatusForbidden, code)

	code, msg = StatusFor(fmt.Errorf("razorpay: secret=abc: %w", ErrProviderUnavailable))
	assert.Equal(t, http.StatusBadGateway, code)
	assert.NotContains(t, msg, "secret")

	code, _ = StatusFor(fmt.Errorf("boom"))
	assert.Equal(t, http.StatusInternalServerError, code)
}

func TestHandleServiceErrorEnvelope(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Set("trace_id", "trace-1")

	HandleServiceError(c, ErrTooManyAttempts)

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"error"`)
	assert.Contains(t, w.Body.String(), `"trace_id":"trace-1"`)
}

func TestIsIntegrityError(t *testing.T) {
	assert.True(t, IsIntegrityError(fmt.Errorf("x: %w", ErrAmountMismatch)))
	assert.True(t, IsIntegrityError(ErrInvalidAccessToken))
	assert.False(t, IsIntegrityError(ErrProviderUnavailable))
}
