package response_models

import (
	"github.com/google/uuid"

	"clubhub/internal/models/db_models"
)

type ApprovalDecision struct {
	AccountID  uuid.UUID                `json:"account_id"`
	Status     db_models.ApprovalStatus `json:"status"`
	IsApproved bool                     `json:"is_approved"`
	Username   *string                  `json:"username,omitempty"`
	Message    string                   `json:"message"`
}

type ApprovalQueueItem struct {
	ApprovalID uuid.UUID                `json:"approval_id"`
	AccountID  uuid.UUID                `json:"account_id"`
	Status     db_models.ApprovalStatus `json:"status"`
	AssignedAt *int64                   `json:"assigned_at,omitempty"`
}

type AssignmentSummary struct {
	FirstTierAssigned  int `json:"first_tier_assigned"`
	SecondTierAssigned int `json:"second_tier_assigned"`
}
