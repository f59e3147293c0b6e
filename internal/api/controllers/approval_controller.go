package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"clubhub/internal/models/db_models"
	"clubhub/internal/models/request_models"
	"clubhub/internal/services"
	"clubhub/pkg/authz"
	"clubhub/pkg/middleware"
	"clubhub/pkg/utils"
)

type ApprovalController struct {
	approvalService services.ApprovalServiceInterface
}

func NewApprovalController(approvalService services.ApprovalServiceInterface) *ApprovalController {
	return &ApprovalController{
		approvalService: approvalService,
	}
}

type decisionFunc func(c *gin.Context, actor authz.Actor, tier db_models.ApprovalTier, accountID uuid.UUID, remarks string) (interface{}, error)

func (a *ApprovalController) decide(c *gin.Context, fn decisionFunc) {
	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		utils.RespondError(c, http.StatusUnauthorized, "Unauthorized")
		return
	}
	tier, ok := db_models.ParseApprovalTier(c.Param("tier"))
	if !ok {
		utils.HandleServiceError(c, utils.ErrUnknownTier)
		return
	}
	accountID, err := uuid.Parse(c.Param("accountId"))
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Invalid account id")
		return
	}

	var req request_models.ApprovalDecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		var invalid validator.ValidationErrors
		if errors.As(err, &invalid) {
			utils.HandleServiceError(c, utils.ErrInvalidRemarks)
			return
		}
		utils.RespondError(c, http.StatusBadRequest, "Invalid request format")
		return
	}

	decision, err := fn(c, actor, tier, accountID, req.Remarks)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}
	utils.RespondSuccess(c, decision, "Decision recorded")
}

// Approve godoc
// @Summary Approve an account at a tier
// @Description Record the reviewer's approval; the finalizing tier mints the username
// @Tags Approvals
// @Accept json
// @Produce json
// @Param tier path string true "ebm, membership_head or admin"
// @Param accountId path string true "Account ID"
// @Param request body request_models.ApprovalDecisionRequest true "Remarks"
// @Success 200 {object} utils.APIResponse
// @Failure 403 {object} utils.APIResponse
// @Failure 409 {object} utils.APIResponse
// @Security BearerAuth
// @Router /approvals/{tier}/{accountId}/approve [post]
func (a *ApprovalController) Approve(c *gin.Context) {
	a.decide(c, func(c *gin.Context, actor authz.Actor, tier db_models.ApprovalTier, accountID uuid.UUID, remarks string) (interface{}, error) {
		return a.approvalService.Approve(c.Request.Context(), actor, tier, accountID, remarks)
	})
}

// Reject godoc
// @Summary Reject an account at a tier
// @Tags Approvals
// @Accept json
// @Produce json
// @Param tier path string true "ebm, membership_head or admin"
// @Param accountId path string true "Account ID"
// @Param request body request_models.ApprovalDecisionRequest true "Remarks"
// @Success 200 {object} utils.APIResponse
// @Failure 403 {object} utils.APIResponse
// @Failure 409 {object} utils.APIResponse
// @Security BearerAuth
// @Router /approvals/{tier}/{accountId}/reject [post]
func (a *ApprovalController) Reject(c *gin.Context) {
	a.decide(c, func(c *gin.Context, actor authz.Actor, tier db_models.ApprovalTier, accountID uuid.UUID, remarks string) (interface{}, error) {
		return a.approvalService.Reject(c.Request.Context(), actor, tier, accountID, remarks)
	})
}

// Queue godoc
// @Summary List approval records assigned to the caller
// @Tags Approvals
// @Produce json
// @Param tier path string true "ebm or membership_head"
// @Success 200 {object} utils.APIResponse
// @Security BearerAuth
// @Router /approvals/{tier}/queue [get]
func (a *ApprovalController) Queue(c *gin.Context) {
	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		utils.RespondError(c, http.StatusUnauthorized, "Unauthorized")
		return
	}
	tier, ok := db_models.ParseApprovalTier(c.Param("tier"))
	if !ok {
		utils.HandleServiceError(c, utils.ErrUnknownTier)
		return
	}

	items, err := a.approvalService.ListQueue(c.Request.Context(), actor, tier)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}
	utils.RespondSuccess(c, items, "Queue fetched successfully")
}
