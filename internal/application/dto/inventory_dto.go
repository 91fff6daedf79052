package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// AddStockRequest body para POST /api/locations/:id/inventory.
type AddStockRequest struct {
	RawMaterialID string           `json:"raw_material_id" validate:"required"`
	Quantity      decimal.Decimal  `json:"quantity" validate:"gt=0"`
	CostPrice     *decimal.Decimal `json:"cost_price,omitempty" validate:"omitempty,gte=0"`
	ExpiryDate    *time.Time       `json:"expiry_date,omitempty"`
	BatchNumber   *string          `json:"batch_number,omitempty" validate:"omitempty,max=100"`
	Reference     string           `json:"reference" validate:"max=200"`
	Source        string           `json:"source" validate:"max=200"`
}

// DeductStockRequest body para POST /api/locations/:id/inventory/deduct.
type DeductStockRequest struct {
	RawMaterialID string          `json:"raw_material_id" validate:"required"`
	Quantity      decimal.Decimal `json:"quantity" validate:"gt=0"`
	Reference     string          `json:"reference" validate:"max=200"`
	Destination   string          `json:"destination" validate:"max=200"`
}

// TransferStockRequest body para POST /api/inventory/transfer.
type TransferStockRequest struct {
	RawMaterialID  string          `json:"raw_material_id" validate:"required"`
	FromLocationID string          `json:"from_location_id" validate:"required"`
	ToLocationID   string          `json:"to_location_id" validate:"required,nefield=FromLocationID"`
	Quantity       decimal.Decimal `json:"quantity" validate:"gt=0"`
	Reference      string          `json:"reference" validate:"max=200"`
}

// AdjustStockRequest conteo físico: fija la cantidad de la fila al valor contado.
type AdjustStockRequest struct {
	RawMaterialID   string          `json:"raw_material_id" validate:"required"`
	CountedQuantity decimal.Decimal `json:"counted_quantity" validate:"gte=0"`
	Reason          string          `json:"reason" validate:"required,max=200"`
}

// InventoryFilter query de GET /api/locations/:id/inventory.
type InventoryFilter struct {
	Search   string `query:"search"`
	Category string `query:"category"`
	Status   string `query:"status" validate:"omitempty,oneof='In Stock' 'Low Stock' 'Out of Stock'"`
}

// InventoryItemResponse fila de inventario de una sede con los datos de su materia prima.
// Status se calcula sobre la cantidad de la sede.
type InventoryItemResponse struct {
	ID            string          `json:"id"`
	LocationID    string          `json:"location_id"`
	RawMaterialID string          `json:"raw_material_id"`
	MaterialName  string          `json:"material_name"`
	Category      string          `json:"category"`
	Unit          string          `json:"unit"`
	Quantity      decimal.Decimal `json:"quantity"`
	MinLevel      decimal.Decimal `json:"min_level"`
	CostPrice     decimal.Decimal `json:"cost_price"`
	ExpiryDate    *time.Time      `json:"expiry_date,omitempty"`
	BatchNumber   string          `json:"batch_number,omitempty"`
	Status        string          `json:"status"`
	LastUpdated   time.Time       `json:"last_updated"`
}

// InventoryListResponse inventario de una sede.
type InventoryListResponse struct {
	LocationID string                  `json:"location_id"`
	Items      []InventoryItemResponse `json:"items"`
}

// StockMutationResponse resultado de una entrada, salida o ajuste: la fila resultante y su transacción.
type StockMutationResponse struct {
	Item        InventoryItemResponse    `json:"item"`
	Transaction StockTransactionResponse `json:"transaction"`
}

// TransferResponse resultado de un traslado entre sedes.
type TransferResponse struct {
	From        InventoryItemResponse    `json:"from"`
	To          InventoryItemResponse    `json:"to"`
	Transaction StockTransactionResponse `json:"transaction"`
}

// TransactionFilter query de GET /api/inventory/transactions.
type TransactionFilter struct {
	Type          string     `query:"type" validate:"omitempty,oneof=inward outward transfer adjustment"`
	LocationID    string     `query:"location_id"`
	RawMaterialID string     `query:"raw_material_id"`
	From          *time.Time `query:"-"`
	To            *time.Time `query:"-"`
	Limit         int        `query:"limit" validate:"min=0"`
}

// StockTransactionResponse salida de una transacción del libro de movimientos.
type StockTransactionResponse struct {
	ID                    string          `json:"id"`
	Type                  string          `json:"type"`
	LocationID            string          `json:"location_id"`
	RawMaterialID         string          `json:"raw_material_id"`
	Quantity              decimal.Decimal `json:"quantity"`
	CostPrice             decimal.Decimal `json:"cost_price"`
	Reference             string          `json:"reference"`
	Source                string          `json:"source,omitempty"`
	Destination           string          `json:"destination,omitempty"`
	SourceLocationID      string          `json:"source_location_id,omitempty"`
	DestinationLocationID string          `json:"destination_location_id,omitempty"`
	Direction             string          `json:"direction,omitempty"`
	BatchNumber           string          `json:"batch_number,omitempty"`
	ExpiryDate            *time.Time      `json:"expiry_date,omitempty"`
	UserID                string          `json:"user_id,omitempty"`
	RecipeID              string          `json:"recipe_id,omitempty"`
	CreatedAt             time.Time       `json:"created_at"`
}

// TransactionListResponse transacciones, más recientes primero.
type TransactionListResponse struct {
	Items []StockTransactionResponse `json:"items"`
}

// ReplenishmentSuggestionDTO sugerencia de pedido para una fila bajo su nivel mínimo.
type ReplenishmentSuggestionDTO struct {
	LocationID         string          `json:"location_id"`
	LocationName       string          `json:"location_name"`
	RawMaterialID      string          `json:"raw_material_id"`
	MaterialName       string          `json:"material_name"`
	Unit               string          `json:"unit"`
	CurrentStock       decimal.Decimal `json:"current_stock"`
	MinLevel           decimal.Decimal `json:"min_level"`
	IdealStock         decimal.Decimal `json:"ideal_stock"`          // MinLevel * 1.5
	SuggestedOrderQty  decimal.Decimal `json:"suggested_order_qty"`  // IdealStock - CurrentStock
	UnitCost           decimal.Decimal `json:"unit_cost"`            // costo de la fila o precio de catálogo
	EstimatedOrderCost decimal.Decimal `json:"estimated_order_cost"` // SuggestedOrderQty * UnitCost
	Priority           int             `json:"priority"`             // 1 = más urgente
}

// ReconcileItem materia prima cuyo agregado no coincidía con la suma de sus sedes.
type ReconcileItem struct {
	RawMaterialID string          `json:"raw_material_id"`
	Name          string          `json:"name"`
	Previous      decimal.Decimal `json:"previous"`
	Current       decimal.Decimal `json:"current"`
	Status        string          `json:"status"`
}

// ReconcileResponse resultado de recalcular los agregados de la empresa.
type ReconcileResponse struct {
	Checked   int             `json:"checked"`
	Corrected []ReconcileItem `json:"corrected"`
}
