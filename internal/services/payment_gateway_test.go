package services

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func checkoutSignature(secret, orderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

func TestRazorpayGatewayRequiresCredentials(t *testing.T) {
	_, err := NewRazorpayGateway(RazorpayConfig{KeyID: "rzp_test_key"})
	assert.Error(t, err)
	_, err = NewRazorpayGateway(RazorpayConfig{KeySecret: "secret"})
	assert.Error(t, err)
}

func TestRazorpayGatewayVerifiesSignature(t *testing.T) {
	gw, err := NewRazorpayGateway(RazorpayConfig{KeyID: "rzp_test_key", KeySecret: "checkout-secret"})
	require.NoError(t, err)
	assert.Equal(t, "rzp_test_key", gw.KeyID())

	good := checkoutSignature("checkout-secret", "order_0001", "pay_0001")
	assert.NoError(t, gw.VerifyPaymentSignature("order_0001", "pay_0001", good))

	assert.ErrorIs(t, gw.VerifyPaymentSignature("order_0001", "pay_0002", good), errSignatureMismatch)
	assert.ErrorIs(t, gw.VerifyPaymentSignature("order_0001", "pay_0001",
		checkoutSignature("other-secret", "order_0001", "pay_0001")), errSignatureMismatch)
	assert.ErrorIs(t, gw.VerifyPaymentSignature("order_0001", "pay_0001", ""), errSignatureMismatch)
}
