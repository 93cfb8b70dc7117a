package entity

// Session is the authenticated identity of this client. A nil *Session means
// anonymous.
type Session struct {
	Username   string `json:"username"`
	Credential string `json:"credential"`
}
