package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/SiPilip/gathering-api/pkg/errors"
)

func TestCacheRepositoryWithoutClientAlwaysMisses(t *testing.T) {
	repo := NewCacheRepository(nil, nil)

	require.NoError(t, repo.Set(context.Background(), "status:reg-1", map[string]string{"a": "b"}, time.Minute))

	var dest map[string]string
	err := repo.Get(context.Background(), "status:reg-1", &dest)
	assert.True(t, errors.Is(err, appErrors.ErrCacheMiss))
	assert.NoError(t, repo.Close())
}

func TestCacheRepositorySurfacesBackendErrors(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	repo := NewCacheRepository(client, nil)
	defer repo.Close()

	var dest map[string]string
	err := repo.Get(context.Background(), "status:reg-1", &dest)
	require.Error(t, err)
	assert.False(t, errors.Is(err, appErrors.ErrCacheMiss))
	assert.Contains(t, err.Error(), "redis get status:reg-1")

	err = repo.Set(context.Background(), "status:reg-1", "v", time.Minute)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis set status:reg-1")
}

func TestCacheRepositoryRejectsUnencodableValues(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1})
	repo := NewCacheRepository(client, nil)
	defer repo.Close()

	err := repo.Set(context.Background(), "k", make(chan int), time.Minute)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "marshal cache value for k")
}

func TestNopCacheRepository(t *testing.T) {
	var repo NopCacheRepository
	assert.NoError(t, repo.Set(context.Background(), "k", "v", time.Minute))
	assert.ErrorIs(t, repo.Get(context.Background(), "k", new(string)), appErrors.ErrCacheMiss)
	assert.NoError(t, repo.Close())
}
