// FILE: internal/repository/contract/credential_repository.go
// Repository interface for the persisted login pair
package contract

import (
	"context"

	"chemviz-dashboard/internal/entity"
)

// Keys the credential pair is stored under, whatever the backend.
const (
	TokenKey    = "chemviz_token"
	UsernameKey = "chemviz_username"
)

type CredentialRepository interface {
	// Load returns nil when either half of the pair is missing.
	Load(ctx context.Context) (*entity.Session, error)
	Save(ctx context.Context, session *entity.Session) error
	Clear(ctx context.Context) error
}
