package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"clubhub/internal/infra"
	"clubhub/internal/models/db_models"
	"clubhub/internal/models/response_models"
	"clubhub/internal/repositories"
	"clubhub/pkg/metrics"
	"clubhub/pkg/utils"
)

const accessTokenBytes = 32

type PaymentService interface {
	CreateOrder(ctx context.Context, ref PayableRef, currency string) (*response_models.CreateOrderResponse, error)
	VerifyAndCapture(ctx context.Context, req CaptureRequest) (*response_models.CaptureResponse, error)
	ReportFailure(ctx context.Context, req FailureReport) error
}

type CaptureRequest struct {
	ProviderOrderID   string
	ProviderPaymentID string
	ProviderSignature string
	AccessToken       string
	PaymentMethod     string
	GatewayResponse   json.RawMessage
}

type FailureReport struct {
	ProviderOrderID string
	AccessToken     string
	Reason          string
	GatewayResponse json.RawMessage
}

type PaymentOptions struct {
	Currency   string
	MinAmount  int64
	CrossCheck bool
}

type paymentService struct {
	db        *gorm.DB
	orders    repositories.PaymentRepository
	gateway   PaymentGateway
	resolvers map[db_models.PayableKind]PayableResolver
	opts      PaymentOptions
	logger    *zap.Logger
	metrics   *metrics.Metrics
	now       func() time.Time
}

func NewPaymentService(
	db *gorm.DB,
	orders repositories.PaymentRepository,
	gateway PaymentGateway,
	resolvers []PayableResolver,
	opts PaymentOptions,
	logger *zap.Logger,
	m *metrics.Metrics,
) PaymentService {
	byKind := make(map[db_models.PayableKind]PayableResolver, len(resolvers))
	for _, r := range resolvers {
		byKind[r.Kind()] = r
	}
	return &paymentService{
		db:        db,
		orders:    orders,
		gateway:   gateway,
		resolvers: byKind,
		opts:      opts,
		logger:    logger.Named("payment"),
		metrics:   m,
		now:       time.Now,
	}
}

func (p *paymentService) resolver(kind db_models.PayableKind) (PayableResolver, error) {
	r, ok := p.resolvers[kind]
	if !ok {
		return nil, fmt.Errorf("%w: unknown payable type %q", utils.ErrInvalidInput, kind)
	}
	return r, nil
}

// lockForProviderOrder locks the payable row before the order row, the same
// order CreateOrder uses. The target is nil when the payable is gone.
func (p *paymentService) lockForProviderOrder(ctx context.Context, tx *gorm.DB, orders repositories.PaymentRepository, providerOrderID string) (*db_models.PaymentOrder, PayableResolver, *PayableTarget, error) {
	peek, err := orders.FindByProviderOrderId(ctx, providerOrderID)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("%w: find order: %v", utils.ErrDatabaseError, err)
	}
	if peek == nil {
		return nil, nil, nil, utils.ErrOrderNotFound
	}
	resolver, err := p.resolver(peek.PayableType)
	if err != nil {
		return nil, nil, nil, err
	}
	target, err := resolver.Lock(ctx, tx, peek.PayableID)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("%w: %v", utils.ErrDatabaseError, err)
	}

	order, err := orders.LockByProviderOrderId(ctx, providerOrderID)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("%w: lock order: %v", utils.ErrDatabaseError, err)
	}
	// a concurrent CreateOrder may have moved the row to a new provider order
	if order == nil {
		return nil, nil, nil, utils.ErrOrderNotFound
	}
	return order, resolver, target, nil
}

// CreateOrder opens a provider order for an unpaid payable. The raw access
// token in the response is never stored and cannot be recovered later.
func (p *paymentService) CreateOrder(ctx context.Context, ref PayableRef, currency string) (*response_models.CreateOrderResponse, error) {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" {
		currency = p.opts.Currency
	}

	var resp *response_models.CreateOrderResponse
	err := infra.WithTransaction(ctx, p.db, func(tx *gorm.DB) error {
		resolver, err := p.resolver(ref.Kind)
		if err != nil {
			return err
		}
		target, err := resolver.Lock(ctx, tx, ref.ID)
		if err != nil {
			return fmt.Errorf("%w: %v", utils.ErrDatabaseError, err)
		}
		if target == nil {
			return utils.ErrPayableNotFound
		}
		if target.IsPaid {
			return utils.ErrAlreadyPaid
		}

		amount := ToMinorUnits(target.Fee)
		if amount < p.opts.MinAmount {
			return fmt.Errorf("%w: %d < %d", utils.ErrAmountBelowMinimum, amount, p.opts.MinAmount)
		}

		orders := p.orders.WithTx(tx)
		existing, err := orders.LockPendingForPayable(ctx, ref.Kind, ref.ID)
		if err != nil {
			return fmt.Errorf("%w: find pending order: %v", utils.ErrDatabaseError, err)
		}

		reference := uuid.New()
		if existing != nil {
			reference = existing.UUID
		}

		gwOrder, err := p.gateway.CreateOrder(ctx, GatewayOrderRequest{
			Amount:   amount,
			Currency: currency,
			Receipt:  strings.ReplaceAll(reference.String(), "-", ""),
			Notes: map[string]string{
				"payable_type": string(ref.Kind),
				"payable_id":   ref.ID.String(),
			},
		})
		if err != nil {
			p.logger.Error("provider order creation failed",
				zap.String("op", "create_order"),
				zap.String("payable_type", string(ref.Kind)),
				zap.Stringer("payable_id", ref.ID),
				zap.Error(err),
			)
			return utils.ErrProviderUnavailable
		}

		token, err := utils.GenerateSecureToken(accessTokenBytes)
		if err != nil {
			return fmt.Errorf("%w: generate access token: %v", utils.ErrDatabaseError, err)
		}
		rawOrder, err := json.Marshal(gwOrder.Raw)
		if err != nil {
			return fmt.Errorf("%w: encode provider order %s: %v", utils.ErrDatabaseError, gwOrder.ID, err)
		}

		if existing != nil {
			// payer snapshot stays as first recorded
			err = orders.UpdateFields(ctx, existing.ID, map[string]interface{}{
				"provider_order_id": gwOrder.ID,
				"amount":            amount,
				"currency":          currency,
				"access_token_hash": utils.HashToken(token),
				"provider_order":    datatypes.JSON(rawOrder),
			})
			if err != nil {
				return fmt.Errorf("%w: refresh order: %v", utils.ErrDatabaseError, err)
			}
		} else {
			err = orders.Insert(ctx, &db_models.PaymentOrder{
				UUID:            reference,
				PayableType:     ref.Kind,
				PayableID:       ref.ID,
				PayerName:       target.PayerName,
				PayerIdentifier: target.PayerIdentifier,
				ProviderOrderID: gwOrder.ID,
				Amount:          amount,
				Currency:        currency,
				AccessTokenHash: utils.HashToken(token),
				Status:          db_models.PaymentPending,
				ProviderOrder:   datatypes.JSON(rawOrder),
			})
			if err != nil {
				return fmt.Errorf("%w: insert order: %v", utils.ErrDatabaseError, err)
			}
		}
		if err := resolver.MarkPaymentStatus(ctx, tx, ref.ID, db_models.PaymentPending); err != nil {
			return fmt.Errorf("%w: mark payable pending: %v", utils.ErrDatabaseError, err)
		}

		resp = &response_models.CreateOrderResponse{
			ProviderOrderID:  gwOrder.ID,
			PaymentReference: reference,
			Amount:           amount,
			Currency:         currency,
			KeyID:            p.gateway.KeyID(),
			PayerName:        target.PayerName,
			EventName:        target.EventName,
			AccessToken:      token,
		}
		return nil
	})

	p.metrics.PaymentOrders.WithLabelValues(metrics.Outcome(err)).Inc()
	if err != nil {
		p.logFailure("create_order", err,
			zap.String("payable_type", string(ref.Kind)),
			zap.Stringer("payable_id", ref.ID),
		)
		return nil, err
	}
	p.logger.Info("payment order created",
		zap.String("op", "create_order"),
		zap.Stringer("payment_reference", resp.PaymentReference),
		zap.String("provider_order_id", resp.ProviderOrderID),
		zap.Int64("amount", resp.Amount),
	)
	return resp, nil
}

// VerifyAndCapture confirms a provider callback and marks the payable paid.
// Replaying a captured order succeeds without touching it again.
func (p *paymentService) VerifyAndCapture(ctx context.Context, req CaptureRequest) (*response_models.CaptureResponse, error) {
	var resp *response_models.CaptureResponse
	err := infra.WithTransaction(ctx, p.db, func(tx *gorm.DB) error {
		orders := p.orders.WithTx(tx)
		order, resolver, target, err := p.lockForProviderOrder(ctx, tx, orders, req.ProviderOrderID)
		if err != nil {
			return err
		}

		switch order.Status {
		case db_models.PaymentSuccess:
			resp = &response_models.CaptureResponse{
				Success:          true,
				Message:          "payment already captured",
				PaymentReference: order.UUID,
				AlreadyCaptured:  true,
			}
			return nil
		case db_models.PaymentFailed:
			return utils.ErrOrderClosed
		}

		if !utils.TokenMatchesHash(req.AccessToken, order.AccessTokenHash) {
			return utils.ErrInvalidAccessToken
		}
		if target == nil {
			return utils.ErrPayableNotFound
		}

		if err := p.gateway.VerifyPaymentSignature(order.ProviderOrderID, req.ProviderPaymentID, req.ProviderSignature); err != nil {
			return fmt.Errorf("%w: %v", utils.ErrSignatureInvalid, err)
		}

		if p.opts.CrossCheck {
			if expected := ToMinorUnits(target.Fee); expected != order.Amount {
				return fmt.Errorf("%w: order %d, current fee %d", utils.ErrAmountMismatch, order.Amount, expected)
			}
		}

		captured, err := orders.CountSuccessForPayable(ctx, order.PayableType, order.PayableID, order.ID)
		if err != nil {
			return fmt.Errorf("%w: count captures: %v", utils.ErrDatabaseError, err)
		}
		if captured > 0 || target.IsPaid {
			return utils.ErrAlreadyPaid
		}

		fields := map[string]interface{}{
			"status":              db_models.PaymentSuccess,
			"provider_payment_id": req.ProviderPaymentID,
			"provider_signature":  req.ProviderSignature,
			"paid_at":             p.now().Unix(),
		}
		if req.PaymentMethod != "" {
			fields["payment_method"] = req.PaymentMethod
		}
		if len(req.GatewayResponse) > 0 {
			fields["gateway_response"] = datatypes.JSON(req.GatewayResponse)
		}
		if err := orders.UpdateFields(ctx, order.ID, fields); err != nil {
			return fmt.Errorf("%w: capture order: %v", utils.ErrDatabaseError, err)
		}
		if err := resolver.MarkPaymentStatus(ctx, tx, order.PayableID, db_models.PaymentSuccess); err != nil {
			return fmt.Errorf("%w: mark payable paid: %v", utils.ErrDatabaseError, err)
		}

		resp = &response_models.CaptureResponse{
			Success:          true,
			Message:          "payment captured",
			PaymentReference: order.UUID,
		}
		return nil
	})

	p.metrics.PaymentCaptures.WithLabelValues(captureOutcome(resp, err)).Inc()
	if err != nil {
		p.logFailure("capture", err, zap.String("provider_order_id", req.ProviderOrderID))
		return nil, err
	}
	p.logger.Info("payment capture handled",
		zap.String("op", "capture"),
		zap.String("provider_order_id", req.ProviderOrderID),
		zap.Stringer("payment_reference", resp.PaymentReference),
		zap.Bool("replay", resp.AlreadyCaptured),
	)
	return resp, nil
}

// ReportFailure closes a pending order after the provider reported a failed
// payment. Repeated reports for an already failed order are accepted.
func (p *paymentService) ReportFailure(ctx context.Context, req FailureReport) error {
	err := infra.WithTransaction(ctx, p.db, func(tx *gorm.DB) error {
		orders := p.orders.WithTx(tx)
		order, resolver, _, err := p.lockForProviderOrder(ctx, tx, orders, req.ProviderOrderID)
		if err != nil {
			return err
		}
		if !utils.TokenMatchesHash(req.AccessToken, order.AccessTokenHash) {
			return utils.ErrInvalidAccessToken
		}

		switch order.Status {
		case db_models.PaymentFailed:
			return nil
		case db_models.PaymentSuccess:
			return utils.ErrOrderClosed
		}

		fields := map[string]interface{}{"status": db_models.PaymentFailed}
		if reason := strings.TrimSpace(req.Reason); reason != "" {
			fields["failure_reason"] = reason
		}
		if len(req.GatewayResponse) > 0 {
			fields["gateway_response"] = datatypes.JSON(req.GatewayResponse)
		}
		if err := orders.UpdateFields(ctx, order.ID, fields); err != nil {
			return fmt.Errorf("%w: fail order: %v", utils.ErrDatabaseError, err)
		}
		if err := resolver.MarkPaymentStatus(ctx, tx, order.PayableID, db_models.PaymentFailed); err != nil {
			return fmt.Errorf("%w: mark payable failed: %v", utils.ErrDatabaseError, err)
		}
		return nil
	})

	p.metrics.PaymentCaptures.WithLabelValues(failureOutcome(err)).Inc()
	if err != nil {
		p.logFailure("report_failure", err, zap.String("provider_order_id", req.ProviderOrderID))
		return err
	}
	p.logger.Info("payment failure recorded",
		zap.String("op", "report_failure"),
		zap.String("provider_order_id", req.ProviderOrderID),
	)
	return nil
}

func captureOutcome(resp *response_models.CaptureResponse, err error) string {
	switch {
	case err == nil && resp != nil && resp.AlreadyCaptured:
		return "replay"
	case err == nil:
		return "ok"
	case errors.Is(err, utils.ErrSignatureInvalid):
		return "bad_signature"
	case errors.Is(err, utils.ErrAmountMismatch):
		return "amount_mismatch"
	case errors.Is(err, utils.ErrInvalidAccessToken):
		return "bad_token"
	}
	return "error"
}

func failureOutcome(err error) string {
	if err == nil {
		return "failed"
	}
	return "error"
}

func (p *paymentService) logFailure(op string, err error, fields ...zap.Field) {
	fields = append(fields, zap.String("op", op), zap.Error(err))
	switch {
	case utils.IsIntegrityError(err):
		p.logger.Warn("payment integrity check failed", append(fields, zap.Bool("security", true))...)
	case errors.Is(err, utils.ErrDatabaseError), errors.Is(err, utils.ErrProviderUnavailable):
		p.logger.Error("payment operation failed", fields...)
	default:
		p.logger.Info("payment request rejected", fields...)
	}
}
