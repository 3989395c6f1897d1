package oauth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewStateIsRandom(t *testing.T) {
	first, err := NewState()
	require.NoError(t, err)
	second, err := NewState()
	require.NoError(t, err)

	require.NotEmpty(t, first)
	require.NotEqual(t, first, second)
}

func TestMemoryStateStoreConsumeOnce(t *testing.T) {
	store := NewMemoryStateStore()
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "abc", time.Minute))

	ok, err := store.Consume(ctx, "abc")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = store.Consume(ctx, "abc")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestMemoryStateStoreUnknownState(t *testing.T) {
	store := NewMemoryStateStore()
	ok, err := store.Consume(context.Background(), "never-saved")
	require.NoError(t, err)
	require.False(t, ok)
}
