package oauth

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/craftedlabs/user-service/internal/domain"
)

func result(token string) *domain.LoginResult {
	return &domain.LoginResult{Token: token}
}

func TestLoginCachePutGet(t *testing.T) {
	cache := NewLoginCache(10)

	_, ok := cache.Get("code-1")
	require.False(t, ok)

	cache.Put("code-1", result("tok-1"))
	got, ok := cache.Get("code-1")
	require.True(t, ok)
	require.Equal(t, "tok-1", got.Token)
}

func TestLoginCacheFirstWriteWins(t *testing.T) {
	cache := NewLoginCache(10)

	cache.Put("code", result("first"))
	cache.Put("code", result("second"))

	got, ok := cache.Get("code")
	require.True(t, ok)
	require.Equal(t, "first", got.Token)
	require.Equal(t, 1, cache.Len())
}

func TestLoginCacheEvictsOldestHalf(t *testing.T) {
	cache := NewLoginCache(8)

	for i := 0; i < 9; i++ {
		cache.Put(fmt.Sprintf("code-%d", i), result(fmt.Sprintf("tok-%d", i)))
	}

	require.LessOrEqual(t, cache.Len(), 8)

	// Newest entry survives, oldest batch is gone.
	_, ok := cache.Get("code-8")
	require.True(t, ok)
	_, ok = cache.Get("code-0")
	require.False(t, ok)
	_, ok = cache.Get("code-3")
	require.False(t, ok)
	_, ok = cache.Get("code-4")
	require.True(t, ok)
}

func TestLoginCacheBoundHolds(t *testing.T) {
	cache := NewLoginCache(1000)
	for i := 0; i < 1001; i++ {
		cache.Put(fmt.Sprintf("code-%d", i), result("t"))
	}
	require.LessOrEqual(t, cache.Len(), 1000)
	_, ok := cache.Get("code-1000")
	require.True(t, ok)
}
