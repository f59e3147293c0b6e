package response_models

import "github.com/google/uuid"

// CreateOrderResponse is handed to the client-side checkout widget.
// AccessToken is shown exactly once and must come back on the callback.
type CreateOrderResponse struct {
	ProviderOrderID  string    `json:"razorpay_order_id"`
	PaymentReference uuid.UUID `json:"payment_reference"`
	Amount           int64     `json:"amount"`
	Currency         string    `json:"currency"`
	KeyID            string    `json:"key_id"`
	PayerName        string    `json:"payer_name"`
	EventName        string    `json:"event_name"`
	AccessToken      string    `json:"access_token"`
}

type CaptureResponse struct {
	Success          bool      `json:"success"`
	Message          string    `json:"message"`
	PaymentReference uuid.UUID `json:"payment_reference"`
	AlreadyCaptured  bool      `json:"already_captured,omitempty"`
}
