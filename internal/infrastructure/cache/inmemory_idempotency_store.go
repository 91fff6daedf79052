package cache

import (
	"context"
	"sync"
	"time"

	"github.com/jhoicas/cocina-stock-api/internal/application/inventory"
)

var _ inventory.IdempotencyStore = (*InMemoryIdempotencyStore)(nil)

type entry struct {
	result    []byte // nil mientras la petición está en curso
	expiresAt time.Time
}

// InMemoryIdempotencyStore almacén de una sola instancia; se usa cuando no hay REDIS_URL.
// Las entradas vencidas se descartan al consultarlas.
type InMemoryIdempotencyStore struct {
	mu      sync.Mutex
	entries map[string]entry
	ttl     time.Duration
	now     func() time.Time
}

// NewInMemoryIdempotencyStore crea el almacén con el TTL de los resultados completados.
func NewInMemoryIdempotencyStore(ttl time.Duration) *InMemoryIdempotencyStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &InMemoryIdempotencyStore{entries: make(map[string]entry), ttl: ttl, now: time.Now}
}

func (s *InMemoryIdempotencyStore) Begin(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	if e, ok := s.entries[key]; ok && now.Before(e.expiresAt) {
		return e.result, false, nil
	}
	s.entries[key] = entry{expiresAt: now.Add(pendingTTL)}
	return nil, true, nil
}

func (s *InMemoryIdempotencyStore) Complete(_ context.Context, key string, result []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = entry{result: append([]byte(nil), result...), expiresAt: s.now().Add(s.ttl)}
	s.purge()
	return nil
}

func (s *InMemoryIdempotencyStore) Release(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

// purge descarta las entradas vencidas; se llama con mu tomado.
func (s *InMemoryIdempotencyStore) purge() {
	now := s.now()
	for k, e := range s.entries {
		if !now.Before(e.expiresAt) {
			delete(s.entries, k)
		}
	}
}
