package response_models

import (
	"github.com/google/uuid"

	"clubhub/internal/models/db_models"
)

type AccountLoginResponse struct {
	Token      string `json:"token"`
	IsApproved bool   `json:"is_approved"`
}

type AccountResponse struct {
	ID             uuid.UUID                `json:"id"`
	Name           string                   `json:"name"`
	Email          string                   `json:"email"`
	Role           string                   `json:"role"`
	Username       *string                  `json:"username,omitempty"`
	IsApproved     bool                     `json:"is_approved"`
	ApprovalStatus db_models.ApprovalStatus `json:"approval_status"`
}
