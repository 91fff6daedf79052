package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryIdempotency_ReservaCompletaYRepite(t *testing.T) {
	s := NewInMemoryIdempotencyStore(time.Hour)
	ctx := context.Background()

	cached, started, err := s.Begin(ctx, "k1")
	require.NoError(t, err)
	assert.True(t, started)
	assert.Nil(t, cached)

	cached, started, err = s.Begin(ctx, "k1")
	require.NoError(t, err)
	assert.False(t, started, "en curso")
	assert.Nil(t, cached)

	require.NoError(t, s.Complete(ctx, "k1", []byte(`{"success":true}`)))
	cached, started, err = s.Begin(ctx, "k1")
	require.NoError(t, err)
	assert.False(t, started)
	assert.JSONEq(t, `{"success":true}`, string(cached))
}

func TestInMemoryIdempotency_LiberarPermiteReintentar(t *testing.T) {
	s := NewInMemoryIdempotencyStore(time.Hour)
	ctx := context.Background()

	_, started, _ := s.Begin(ctx, "k1")
	require.True(t, started)
	require.NoError(t, s.Release(ctx, "k1"))

	_, started, err := s.Begin(ctx, "k1")
	require.NoError(t, err)
	assert.True(t, started)
}

func TestInMemoryIdempotency_Vencimiento(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	s := NewInMemoryIdempotencyStore(time.Hour)
	s.now = func() time.Time { return now }
	ctx := context.Background()

	_, _, _ = s.Begin(ctx, "pendiente")
	_, _, _ = s.Begin(ctx, "hecha")
	require.NoError(t, s.Complete(ctx, "hecha", []byte("{}")))

	now = now.Add(2 * time.Minute)
	_, started, _ := s.Begin(ctx, "pendiente")
	assert.True(t, started, "una reserva abandonada vence")
	_, started, _ = s.Begin(ctx, "hecha")
	assert.False(t, started, "el resultado dura el TTL completo")

	now = now.Add(2 * time.Hour)
	_, started, _ = s.Begin(ctx, "hecha")
	assert.True(t, started)
}
