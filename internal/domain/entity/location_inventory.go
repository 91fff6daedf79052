package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// LocationInventory stock de una materia prima en una sede. Existe una sola fila por
// (LocationID, RawMaterialID); se crea en la primera entrada y nunca se borra automáticamente.
type LocationInventory struct {
	ID            string
	LocationID    string
	RawMaterialID string
	Quantity      decimal.Decimal
	CostPrice     decimal.Decimal
	ExpiryDate    *time.Time
	BatchNumber   string
	LastUpdated   time.Time
}

// Exists indica si la fila ya fue persistida (las filas ausentes se devuelven con cantidad cero y sin ID).
func (i *LocationInventory) Exists() bool {
	return i != nil && i.ID != ""
}

// InventoryView fila de inventario unida con su materia prima y el estado calculado
// sobre la cantidad local de la sede (no sobre el agregado).
type InventoryView struct {
	Inventory LocationInventory
	Material  RawMaterial
	Status    string
}
