package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shashiranjanraj/studio/pkg/cache"
)

func TestDisabledCacheIsAMiss(t *testing.T) {
	ctx := context.Background()
	for _, c := range []*cache.Cache{nil, cache.New(nil, "studio:")} {
		assert.False(t, c.Enabled())

		require.NoError(t, c.Set(ctx, "k", map[string]int{"a": 1}, time.Minute))

		var out map[string]int
		assert.False(t, c.Get(ctx, "k", &out))
		assert.NoError(t, c.Del(ctx, "k"))

		first, err := c.Claim(ctx, "evt_1", time.Minute)
		require.NoError(t, err)
		assert.True(t, first)
		assert.NoError(t, c.Close())
	}
}
