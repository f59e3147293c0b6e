package services

import (
	"context"
	"errors"
	"fmt"

	razorpay "github.com/razorpay/razorpay-go"
	rzputils "github.com/razorpay/razorpay-go/utils"
)

// PaymentGateway is the external payment provider.
type PaymentGateway interface {
	CreateOrder(ctx context.Context, req GatewayOrderRequest) (*GatewayOrder, error)
	VerifyPaymentSignature(providerOrderID, providerPaymentID, signature string) error
	KeyID() string
}

type GatewayOrderRequest struct {
	Amount   int64 // minor units
	Currency string
	Receipt  string
	Notes    map[string]string
}

type GatewayOrder struct {
	ID  string
	Raw map[string]interface{}
}

var errSignatureMismatch = errors.New("razorpay signature mismatch")

type RazorpayConfig struct {
	KeyID     string
	KeySecret string
}

type razorpayGateway struct {
	cfg    RazorpayConfig
	client *razorpay.Client
}

func NewRazorpayGateway(cfg RazorpayConfig) (PaymentGateway, error) {
	if cfg.KeyID == "" || cfg.KeySecret == "" {
		return nil, errors.New("missing razorpay credentials")
	}
	return &razorpayGateway{
		cfg:    cfg,
		client: razorpay.NewClient(cfg.KeyID, cfg.KeySecret),
	}, nil
}

func (g *razorpayGateway) KeyID() string { return g.cfg.KeyID }

// CreateOrder blocks on the provider's REST API; the SDK takes no context.
func (g *razorpayGateway) CreateOrder(ctx context.Context, req GatewayOrderRequest) (*GatewayOrder, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	notes := make(map[string]interface{}, len(req.Notes))
	for k, v := range req.Notes {
		notes[k] = v
	}
	body, err := g.client.Order.Create(map[string]interface{}{
		"amount":   req.Amount,
		"currency": req.Currency,
		"receipt":  req.Receipt,
		"notes":    notes,
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("razorpay create order: %w", err)
	}

	id, _ := body["id"].(string)
	if id == "" {
		return nil, errors.New("razorpay create order: response has no order id")
	}
	return &GatewayOrder{ID: id, Raw: body}, nil
}

func (g *razorpayGateway) VerifyPaymentSignature(providerOrderID, providerPaymentID, signature string) error {
	params := map[string]interface{}{
		"razorpay_order_id":   providerOrderID,
		"razorpay_payment_id": providerPaymentID,
	}
	if !rzputils.VerifyPaymentSignature(params, signature, g.cfg.KeySecret) {
		return errSignatureMismatch
	}
	return nil
}
