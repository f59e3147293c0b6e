package request_models

import "encoding/json"

type CreateOrderRequest struct {
	PayableType string `json:"payable_type" binding:"required,oneof=public_registration member_registration"`
	PayableID   string `json:"payable_id" binding:"required,uuid"`
	Currency    string `json:"currency" binding:"omitempty,len=3"`
}

type VerifyPaymentRequest struct {
	ProviderOrderID   string          `json:"razorpay_order_id" binding:"required"`
	ProviderPaymentID string          `json:"razorpay_payment_id" binding:"required"`
	ProviderSignature string          `json:"razorpay_signature" binding:"required"`
	AccessToken       string          `json:"access_token" binding:"required"`
	PaymentMethod     string          `json:"payment_method"`
	GatewayResponse   json.RawMessage `json:"gateway_response"`
}

type PaymentFailureRequest struct {
	ProviderOrderID string          `json:"razorpay_order_id" binding:"required"`
	AccessToken     string          `json:"access_token" binding:"required"`
	Reason          string          `json:"reason" binding:"max=500"`
	GatewayResponse json.RawMessage `json:"gateway_response"`
}
