// FILE: internal/repository/implementation/redis_credential_repository_impl.go
// Implementation of CredentialRepository backed by Redis
package implementation

import (
	"context"
	"fmt"

	"chemviz-dashboard/internal/entity"
	"chemviz-dashboard/internal/repository/contract"

	"github.com/redis/go-redis/v9"
)

type RedisCredentialRepositoryImpl struct {
	rdb *redis.Client
}

func NewRedisCredentialRepository(rdb *redis.Client) contract.CredentialRepository {
	return &RedisCredentialRepositoryImpl{rdb: rdb}
}

func (r *RedisCredentialRepositoryImpl) Load(ctx context.Context) (*entity.Session, error) {
	vals, err := r.rdb.MGet(ctx, contract.TokenKey, contract.UsernameKey).Result()
	if err != nil {
		return nil, fmt.Errorf("redis mget credentials: %w", err)
	}

	token, _ := vals[0].(string)
	username, _ := vals[1].(string)
	if token == "" || username == "" {
		return nil, nil
	}
	return &entity.Session{Username: username, Credential: token}, nil
}

func (r *RedisCredentialRepositoryImpl) Save(ctx context.Context, session *entity.Session) error {
	_, err := r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, contract.TokenKey, session.Credential, 0)
		pipe.Set(ctx, contract.UsernameKey, session.Username, 0)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis save credentials: %w", err)
	}
	return nil
}

func (r *RedisCredentialRepositoryImpl) Clear(ctx context.Context) error {
	if err := r.rdb.Del(ctx, contract.TokenKey, contract.UsernameKey).Err(); err != nil {
		return fmt.Errorf("redis clear credentials: %w", err)
	}
	return nil
}
