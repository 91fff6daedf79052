package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jhoicas/cocina-stock-api/internal/application/inventory"
	"github.com/jhoicas/cocina-stock-api/pkg/config"
)

var _ inventory.IdempotencyStore = (*RedisIdempotencyStore)(nil)

const (
	defaultKeyPrefix = "stock:idempotency:"
	pendingMarker    = "__pending__"
	// pendingTTL acota cuánto bloquea una clave una petición que murió sin completar ni liberar.
	pendingTTL = time.Minute
)

// RedisIdempotencyStore guarda en Redis el resultado de cada descuento por clave, compartido entre instancias.
type RedisIdempotencyStore struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
}

// Connect abre el cliente desde REDIS_URL y verifica la conexión con un ping.
func Connect(ctx context.Context, url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse Redis URL: %w", err)
	}
	opt.MaxRetries = 3
	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect Redis: %w", err)
	}
	return client, nil
}

// NewRedisIdempotencyStore construye el almacén sobre un cliente existente.
func NewRedisIdempotencyStore(client *redis.Client, cfg config.RedisConfig) *RedisIdempotencyStore {
	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	ttl := cfg.IdempotencyTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisIdempotencyStore{client: client, keyPrefix: prefix, ttl: ttl}
}

// Begin reserva la clave con SETNX. Si ya existe devuelve el resultado guardado,
// o nada si la otra petición sigue en curso.
func (s *RedisIdempotencyStore) Begin(ctx context.Context, key string) ([]byte, bool, error) {
	k := s.keyPrefix + key
	for attempt := 0; attempt < 2; attempt++ {
		ok, err := s.client.SetNX(ctx, k, pendingMarker, pendingTTL).Result()
		if err != nil {
			return nil, false, fmt.Errorf("reservar clave: %w", err)
		}
		if ok {
			return nil, true, nil
		}
		val, err := s.client.Get(ctx, k).Bytes()
		if errors.Is(err, redis.Nil) {
			// expiró entre SETNX y GET
			continue
		}
		if err != nil {
			return nil, false, fmt.Errorf("leer clave: %w", err)
		}
		if string(val) == pendingMarker {
			return nil, false, nil
		}
		return val, false, nil
	}
	return nil, false, nil
}

// Complete reemplaza la reserva por el resultado serializado, con el TTL configurado.
func (s *RedisIdempotencyStore) Complete(ctx context.Context, key string, result []byte) error {
	if err := s.client.Set(ctx, s.keyPrefix+key, result, s.ttl).Err(); err != nil {
		return fmt.Errorf("guardar resultado: %w", err)
	}
	return nil
}

// Release borra la reserva para permitir reintentos.
func (s *RedisIdempotencyStore) Release(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.keyPrefix+key).Err(); err != nil {
		return fmt.Errorf("liberar clave: %w", err)
	}
	return nil
}

// Close cierra el cliente de Redis.
func (s *RedisIdempotencyStore) Close() error {
	return s.client.Close()
}
