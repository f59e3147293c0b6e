package request_models

type LoginRequest struct {
	// Email address, or the username minted on approval.
	Login    string `json:"login" binding:"required,max=255"`
	Password string `json:"password" binding:"required,min=6"`
}

type SignUpRequest struct {
	DisplayName string `json:"display_name" binding:"required,min=3,max=50"`
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required,min=6"`
	Gender      string `json:"gender" binding:"required,oneof=male female other"`
}
