package catalog

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/comexdata/aduana-api/internal/domain/declaraciones/repository"
)

func TestCache(t *testing.T) {
	now := time.Date(2024, time.June, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	partidas := []repository.CodigoDescripcion{
		{Codigo: "8703231090", Descripcion: "VEHICULO AUTOMOVIL"},
		{Codigo: "8703239000", Descripcion: "LOS DEMAS"},
	}

	t.Run("hit within ttl", func(t *testing.T) {
		c := NewCache(10*time.Minute, clock)
		c.Set("87", partidas)

		got, ok := c.Get("87")
		require.True(t, ok)
		assert.Equal(t, partidas, got)
	})

	t.Run("miss on unknown chapter", func(t *testing.T) {
		c := NewCache(10*time.Minute, clock)

		_, ok := c.Get("84")
		assert.False(t, ok)
	})

	t.Run("expires after ttl", func(t *testing.T) {
		fake := now
		c := NewCache(10*time.Minute, func() time.Time { return fake })
		c.Set("87", partidas)

		fake = now.Add(10*time.Minute + time.Second)
		_, ok := c.Get("87")
		assert.False(t, ok)
	})

	t.Run("entry at exact ttl is still valid", func(t *testing.T) {
		fake := now
		c := NewCache(10*time.Minute, func() time.Time { return fake })
		c.Set("87", partidas)

		fake = now.Add(10 * time.Minute)
		_, ok := c.Get("87")
		assert.True(t, ok)
	})

	t.Run("invalidate all clears every chapter", func(t *testing.T) {
		c := NewCache(10*time.Minute, clock)
		c.Set("87", partidas)
		c.Set("84", partidas[:1])

		c.InvalidateAll()

		_, ok := c.Get("87")
		assert.False(t, ok)
		_, ok = c.Get("84")
		assert.False(t, ok)
	})
}
