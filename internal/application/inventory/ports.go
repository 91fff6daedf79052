package inventory

import (
	"context"

	"github.com/jhoicas/cocina-stock-api/internal/domain/entity"
	"github.com/jhoicas/cocina-stock-api/internal/domain/inventory"
	"github.com/jhoicas/cocina-stock-api/internal/domain/repository"
)

// TxRunner ejecuta una función dentro de una transacción de BD, pasando repositorios atados a esa tx.
// Si fn devuelve error se hace Rollback; si no, Commit.
type TxRunner interface {
	Run(ctx context.Context, fn func(
		invRepo repository.LocationInventoryRepository,
		txRepo repository.StockTransactionRepository,
		materialRepo repository.RawMaterialRepository,
	) error) error
}

// EventPublisher publica eventos de stock después del commit. Un fallo al publicar
// nunca revierte el movimiento ya confirmado.
type EventPublisher interface {
	PublishLowStock(ctx context.Context, events []inventory.LowStockEvent) error
	PublishMovements(ctx context.Context, companyID string, txs []*entity.StockTransaction) error
}

// IdempotencyStore recuerda el resultado de descuentos ya aplicados por clave.
type IdempotencyStore interface {
	// Begin reserva la clave. started=false con cached != nil significa que ya se completó;
	// started=false sin cached significa que otra petición la tiene en curso.
	Begin(ctx context.Context, key string) (cached []byte, started bool, err error)
	Complete(ctx context.Context, key string, result []byte) error
	// Release libera una reserva cuando la operación falló, para permitir reintentos.
	Release(ctx context.Context, key string) error
}

// Metrics contadores del motor de inventario.
type Metrics interface {
	DeductionFinished(result string)
	TransactionsRecorded(txType string, n int)
	LowStockWarnings(n int)
}

// Resultados posibles de un descuento por receta (etiqueta de métrica).
const (
	ResultSuccess      = "success"
	ResultInsufficient = "insufficient"
	ResultReplayed     = "replayed"
	ResultError        = "error"
)

type nopPublisher struct{}

func (nopPublisher) PublishLowStock(context.Context, []inventory.LowStockEvent) error { return nil }
func (nopPublisher) PublishMovements(context.Context, string, []*entity.StockTransaction) error {
	return nil
}

type nopMetrics struct{}

func (nopMetrics) DeductionFinished(string)         {}
func (nopMetrics) TransactionsRecorded(string, int) {}
func (nopMetrics) LowStockWarnings(int)             {}
