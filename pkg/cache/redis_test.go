package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SiPilip/gathering-api/pkg/config"
)

func TestNewRedisDisabledWithoutHost(t *testing.T) {
	client, err := NewRedis(context.Background(), config.RedisConfig{Port: 6379})
	require.NoError(t, err)
	assert.Nil(t, client)
}

func TestNewRedisFailsWhenUnreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	client, err := NewRedis(ctx, config.RedisConfig{Host: "127.0.0.1", Port: 1})
	require.Error(t, err)
	assert.Nil(t, client)
	assert.Contains(t, err.Error(), "ping redis 127.0.0.1:1")
}
