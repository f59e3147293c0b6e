package request_models

type ApprovalDecisionRequest struct {
	Remarks string `json:"remarks" binding:"required,min=10,max=255"`
}
