package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"clubhub/internal/models/db_models"
	"clubhub/internal/models/request_models"
	"clubhub/internal/services"
	"clubhub/pkg/utils"
)

type PaymentController struct {
	paymentService services.PaymentService
}

func NewPaymentController(paymentService services.PaymentService) *PaymentController {
	return &PaymentController{
		paymentService: paymentService,
	}
}

// CreateOrder godoc
// @Summary Create a payment order for a registration
// @Description Opens a provider order. The access token is returned once and must be sent back on verify.
// @Tags Payments
// @Accept json
// @Produce json
// @Param request body request_models.CreateOrderRequest true "Create order request"
// @Success 200 {object} utils.APIResponse
// @Failure 404 {object} utils.APIResponse
// @Failure 422 {object} utils.APIResponse
// @Failure 502 {object} utils.APIResponse
// @Router /payments/orders [post]
func (p *PaymentController) CreateOrder(c *gin.Context) {
	var request request_models.CreateOrderRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Invalid request payload")
		return
	}
	payableID, err := uuid.Parse(request.PayableID)
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Invalid payable id")
		return
	}

	ref := services.PayableRef{Kind: db_models.PayableKind(request.PayableType), ID: payableID}
	order, err := p.paymentService.CreateOrder(c.Request.Context(), ref, request.Currency)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondSuccess(c, order, "Payment order created")
}

// Verify godoc
// @Summary Verify and capture a completed payment
// @Description Checks the access token and provider signature, then marks the registration paid. Safe to replay.
// @Tags Payments
// @Accept json
// @Produce json
// @Param request body request_models.VerifyPaymentRequest true "Provider callback"
// @Success 200 {object} utils.APIResponse
// @Failure 400 {object} utils.APIResponse
// @Failure 401 {object} utils.APIResponse
// @Failure 409 {object} utils.APIResponse
// @Router /payments/verify [post]
func (p *PaymentController) Verify(c *gin.Context) {
	var request request_models.VerifyPaymentRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Invalid request payload")
		return
	}

	result, err := p.paymentService.VerifyAndCapture(c.Request.Context(), services.CaptureRequest{
		ProviderOrderID:   request.ProviderOrderID,
		ProviderPaymentID: request.ProviderPaymentID,
		ProviderSignature: request.ProviderSignature,
		AccessToken:       request.AccessToken,
		PaymentMethod:     request.PaymentMethod,
		GatewayResponse:   request.GatewayResponse,
	})
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondSuccess(c, result, result.Message)
}

// ReportFailure godoc
// @Summary Report a failed payment
// @Tags Payments
// @Accept json
// @Produce json
// @Param request body request_models.PaymentFailureRequest true "Failure report"
// @Success 200 {object} utils.APIResponse
// @Failure 401 {object} utils.APIResponse
// @Failure 409 {object} utils.APIResponse
// @Router /payments/failure [post]
func (p *PaymentController) ReportFailure(c *gin.Context) {
	var request request_models.PaymentFailureRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Invalid request payload")
		return
	}

	err := p.paymentService.ReportFailure(c.Request.Context(), services.FailureReport{
		ProviderOrderID: request.ProviderOrderID,
		AccessToken:     request.AccessToken,
		Reason:          request.Reason,
		GatewayResponse: request.GatewayResponse,
	})
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondSuccess(c, nil, "Payment failure recorded")
}
