package dto

type LoginRequest struct {
	Username string `json:"username" validate:"required,max=150"`
	Password string `json:"password" validate:"required"`
}

type RegisterRequest struct {
	Username string `json:"username" validate:"required,max=150"`
	Email    string `json:"email" validate:"omitempty,email"`
	Password string `json:"password" validate:"required,min=6"`
}

type SessionResponse struct {
	Authenticated bool   `json:"authenticated"`
	Loading       bool   `json:"loading"`
	Username      string `json:"username,omitempty"`
	// ViewerToken authorizes the browser against this dashboard server. It is
	// not the backend credential.
	ViewerToken string `json:"viewer_token,omitempty"`
}
