package memory

import (
	"context"
	"testing"

	"chemviz-dashboard/internal/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCredentialRepositoryRoundTrip(t *testing.T) {
	repo := NewCredentialRepository()
	ctx := context.Background()

	s, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, s)

	require.NoError(t, repo.Save(ctx, &entity.Session{Username: "alice", Credential: "tok"}))
	s, err = repo.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, &entity.Session{Username: "alice", Credential: "tok"}, s)

	require.NoError(t, repo.Clear(ctx))
	s, err = repo.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, s)
}
