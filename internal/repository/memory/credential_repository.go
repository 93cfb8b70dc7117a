package memory

import (
	"context"

	"chemviz-dashboard/internal/entity"
	"chemviz-dashboard/internal/repository/contract"

	"github.com/patrickmn/go-cache"
)

// CredentialRepository keeps the pair for the life of the process only.
type CredentialRepository struct {
	cache *cache.Cache
}

func NewCredentialRepository() contract.CredentialRepository {
	return &CredentialRepository{
		cache: cache.New(cache.NoExpiration, 0),
	}
}

func (r *CredentialRepository) Load(_ context.Context) (*entity.Session, error) {
	token, okToken := r.cache.Get(contract.TokenKey)
	username, okUser := r.cache.Get(contract.UsernameKey)
	if !okToken || !okUser {
		return nil, nil
	}
	return &entity.Session{
		Username:   username.(string),
		Credential: token.(string),
	}, nil
}

func (r *CredentialRepository) Save(_ context.Context, session *entity.Session) error {
	r.cache.Set(contract.TokenKey, session.Credential, cache.NoExpiration)
	r.cache.Set(contract.UsernameKey, session.Username, cache.NoExpiration)
	return nil
}

func (r *CredentialRepository) Clear(_ context.Context) error {
	r.cache.Delete(contract.TokenKey)
	r.cache.Delete(contract.UsernameKey)
	return nil
}
