package repository

import (
	"context"
	"time"

	"github.com/jhoicas/cocina-stock-api/internal/domain/entity"
)

// TransactionFilter filtros del listado de transacciones (más recientes primero).
type TransactionFilter struct {
	CompanyID     string
	Type          string
	LocationID    string
	RawMaterialID string
	From          *time.Time
	To            *time.Time
	Limit         int
}

// StockTransactionRepository puerto del libro de movimientos. Solo inserta y lee: nunca modifica.
type StockTransactionRepository interface {
	Create(ctx context.Context, tx *entity.StockTransaction) error
	GetByID(ctx context.Context, id string) (*entity.StockTransaction, error)
	List(ctx context.Context, filter TransactionFilter) ([]*entity.StockTransaction, error)
}
