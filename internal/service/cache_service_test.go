package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	appErrors "github.com/SiPilip/gathering-api/pkg/errors"
)

type scriptedCache struct {
	getErr error
	setErr error
	value  string
	sets   int
	ttl    time.Duration
}

func (s *scriptedCache) Get(_ context.Context, _ string, dest interface{}) error {
	if s.getErr != nil {
		return s.getErr
	}
	if ptr, ok := dest.(*string); ok {
		*ptr = s.value
	}
	return nil
}

func (s *scriptedCache) Set(_ context.Context, _ string, value interface{}, ttl time.Duration) error {
	s.sets++
	s.ttl = ttl
	if v, ok := value.(string); ok {
		s.value = v
	}
	return s.setErr
}

func TestCacheServiceHitMissAndFailure(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	metrics := NewMetricsService()
	backend := &scriptedCache{value: "cached"}
	cache := NewCacheService(backend, metrics, 0, zap.New(core))

	assert.True(t, cache.Enabled())
	assert.Equal(t, 5*time.Minute, cache.TTL())

	var got string
	assert.True(t, cache.Get(context.Background(), "k", &got))
	assert.Equal(t, "cached", got)

	backend.getErr = appErrors.ErrCacheMiss
	assert.False(t, cache.Get(context.Background(), "k", &got))
	assert.Equal(t, 0, logs.Len(), "plain misses are not logged")

	backend.getErr = errors.New("connection refused")
	assert.False(t, cache.Get(context.Background(), "k", &got))
	assert.Equal(t, 1, logs.FilterMessage("cache get failed").Len())

	snap := metrics.Snapshot()
	assert.Equal(t, uint64(1), snap.CacheHits)
	assert.Equal(t, uint64(2), snap.CacheMisses)
}

func TestCacheServiceSetUsesDefaultTTLAndSwallowsErrors(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	backend := &scriptedCache{setErr: errors.New("readonly replica")}
	cache := NewCacheService(backend, nil, 300*time.Second, zap.New(core))

	cache.Set(context.Background(), "k", "v", 0)
	assert.Equal(t, 300*time.Second, backend.ttl)

	cache.Set(context.Background(), "k", "v", time.Minute)
	assert.Equal(t, time.Minute, backend.ttl)
	assert.Equal(t, 2, backend.sets)
	assert.Equal(t, 2, logs.FilterMessage("cache set failed").Len())
}

func TestCacheServiceWithoutBackend(t *testing.T) {
	cache := NewCacheService(nil, nil, time.Minute, nil)
	assert.False(t, cache.Enabled())

	var got string
	assert.False(t, cache.Get(context.Background(), "k", &got))
	assert.NotPanics(t, func() { cache.Set(context.Background(), "k", "v", 0) })

	var nilCache *CacheService
	assert.False(t, nilCache.Enabled())
	assert.Equal(t, time.Duration(0), nilCache.TTL())
}
