package chemapi

type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type AuthResponse struct {
	Token    string `json:"token"`
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
}

// Report is the binary document returned by the report endpoint.
type Report struct {
	Filename    string
	ContentType string
	Data        []byte
}

// CredentialSource is read on every outgoing call, so a login or logout
// takes effect on the very next request.
type CredentialSource interface {
	Credential() (string, bool)
}

// CredentialFunc adapts a function to CredentialSource.
type CredentialFunc func() (string, bool)

func (f CredentialFunc) Credential() (string, bool) {
	return f()
}
