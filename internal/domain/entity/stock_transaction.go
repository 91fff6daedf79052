package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Tipos de transacción de stock.
const (
	TransactionTypeInward     = "inward"
	TransactionTypeOutward    = "outward"
	TransactionTypeTransfer   = "transfer"
	TransactionTypeAdjustment = "adjustment"
)

// Sentido de un ajuste.
const (
	AdjustmentIncrease = "increase"
	AdjustmentDecrease = "decrease"
)

// IsValidTransactionType indica si t es un tipo conocido.
func IsValidTransactionType(t string) bool {
	switch t {
	case TransactionTypeInward, TransactionTypeOutward, TransactionTypeTransfer, TransactionTypeAdjustment:
		return true
	}
	return false
}

// StockTransaction registro inmutable del libro de movimientos. Quantity es la magnitud
// (siempre positiva) del cambio aplicado a la fila de LocationInventory.
type StockTransaction struct {
	ID                    string
	Type                  string
	LocationID            string
	RawMaterialID         string
	Quantity              decimal.Decimal
	CostPrice             decimal.Decimal
	Reference             string
	Source                string
	Destination           string
	SourceLocationID      string // solo transfer
	DestinationLocationID string // solo transfer
	Direction             string // solo adjustment
	BatchNumber           string
	ExpiryDate            *time.Time
	UserID                string
	RecipeID              string
	CreatedAt             time.Time
}

// Validate comprueba los campos obligatorios según el tipo.
func (t *StockTransaction) Validate() map[string]string {
	errs := make(map[string]string)
	if !IsValidTransactionType(t.Type) {
		errs["type"] = "tipo de transacción inválido"
	}
	if t.LocationID == "" {
		errs["location_id"] = "requerido"
	}
	if t.RawMaterialID == "" {
		errs["raw_material_id"] = "requerido"
	}
	if t.Reference == "" {
		errs["reference"] = "requerido"
	}
	if !t.Quantity.IsPositive() {
		errs["quantity"] = "debe ser mayor que cero"
	}
	switch t.Type {
	case TransactionTypeOutward:
		if t.Destination == "" {
			errs["destination"] = "requerido en salidas"
		}
	case TransactionTypeTransfer:
		if t.SourceLocationID == "" || t.DestinationLocationID == "" {
			errs["destination_location_id"] = "origen y destino son requeridos en traslados"
		} else if t.SourceLocationID == t.DestinationLocationID {
			errs["destination_location_id"] = "origen y destino deben ser distintos"
		}
	case TransactionTypeAdjustment:
		if t.Direction != AdjustmentIncrease && t.Direction != AdjustmentDecrease {
			errs["direction"] = "debe ser increase o decrease"
		}
	}
	return errs
}
