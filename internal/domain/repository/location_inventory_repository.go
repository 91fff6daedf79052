package repository

import (
	"context"
	"time"

	"github.com/jhoicas/cocina-stock-api/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// InventoryFilter filtros de consulta del inventario de una sede.
type InventoryFilter struct {
	Search   string
	Category string
}

// LocationInventoryRepository define el puerto para consultar/actualizar stock por sede+materia prima.
// Get y GetForUpdate devuelven una fila con cantidad cero y sin ID cuando no existe.
type LocationInventoryRepository interface {
	Get(ctx context.Context, locationID, rawMaterialID string) (*entity.LocationInventory, error)
	// GetForUpdate bloquea la fila (SELECT FOR UPDATE) para evitar condiciones de carrera.
	GetForUpdate(ctx context.Context, locationID, rawMaterialID string) (*entity.LocationInventory, error)
	// Upsert inserta o actualiza la fila de (sede, materia prima); asigna ID si es nueva.
	Upsert(ctx context.Context, inv *entity.LocationInventory) error
	// DecrementIfSufficient resta qty solo si la fila tiene al menos qty; false si no alcanzó.
	DecrementIfSufficient(ctx context.Context, locationID, rawMaterialID string, qty decimal.Decimal, now time.Time) (bool, error)
	ListViews(ctx context.Context, locationID string, filter InventoryFilter) ([]entity.InventoryView, error)
	// ListLowStock filas con quantity <= min_level; locationID vacío = todas las sedes de la empresa.
	ListLowStock(ctx context.Context, companyID, locationID string) ([]entity.InventoryView, error)
	// ListExpiring filas con stock cuyo vencimiento cae en [from, until].
	ListExpiring(ctx context.Context, companyID, locationID string, from, until time.Time) ([]entity.InventoryView, error)
	// SumByMaterial suma las cantidades de todas las sedes por materia prima de la empresa.
	SumByMaterial(ctx context.Context, companyID string) (map[string]decimal.Decimal, error)
	// HasStock indica si alguna sede tiene cantidad > 0 de la materia prima.
	HasStock(ctx context.Context, rawMaterialID string) (bool, error)
	// ExistsAtLocation indica si la sede tiene alguna fila de inventario.
	ExistsAtLocation(ctx context.Context, locationID string) (bool, error)
}
