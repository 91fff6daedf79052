package entity

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
)

// Estados derivados de stock (valores visibles en la API).
const (
	StockStatusInStock    = "In Stock"
	StockStatusLowStock   = "Low Stock"
	StockStatusOutOfStock = "Out of Stock"
)

// Operaciones admitidas por UpdateStock sobre el agregado de una materia prima.
const (
	StockOperationSet      = "set"
	StockOperationAdd      = "add"
	StockOperationSubtract = "subtract"
)

// DeriveStockStatus calcula el estado a partir de la cantidad y el nivel mínimo.
// quantity <= 0 → Out of Stock; quantity <= minLevel → Low Stock; resto → In Stock.
func DeriveStockStatus(quantity, minLevel decimal.Decimal) string {
	switch {
	case quantity.LessThanOrEqual(decimal.Zero):
		return StockStatusOutOfStock
	case quantity.LessThanOrEqual(minLevel):
		return StockStatusLowStock
	default:
		return StockStatusInStock
	}
}

// IsValidStockStatus indica si s es uno de los tres estados conocidos.
func IsValidStockStatus(s string) bool {
	return s == StockStatusInStock || s == StockStatusLowStock || s == StockStatusOutOfStock
}

// NormalizeName recorta y colapsa espacios internos del nombre.
func NormalizeName(name string) string {
	return strings.Join(strings.Fields(name), " ")
}

// FoldName clave de comparación sin distinguir mayúsculas (case folding Unicode).
func FoldName(name string) string {
	return cases.Fold().String(NormalizeName(name))
}

// RawMaterial materia prima comprable del catálogo de la empresa.
// Quantity es el total agregado de todas las sedes; Status se deriva de Quantity y MinLevel.
type RawMaterial struct {
	ID          string
	CompanyID   string
	Name        string // único por empresa sin distinguir mayúsculas
	Description string
	Category    string
	Unit        string
	UnitPrice   decimal.Decimal
	Quantity    decimal.Decimal
	MinLevel    decimal.Decimal
	Status      string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// RefreshStatus recalcula Status; debe llamarse antes de cada persistencia.
func (m *RawMaterial) RefreshStatus() {
	m.Status = DeriveStockStatus(m.Quantity, m.MinLevel)
}

// ApplyDelta suma delta al agregado sin dejarlo por debajo de cero y recalcula el estado.
func (m *RawMaterial) ApplyDelta(delta decimal.Decimal) {
	m.Quantity = clampZero(m.Quantity.Add(delta))
	m.RefreshStatus()
}

// IsValidStockOperation indica si la operación es set, add o subtract.
func IsValidStockOperation(operation string) bool {
	return operation == StockOperationSet || operation == StockOperationAdd || operation == StockOperationSubtract
}

// ApplyStockOperation aplica set/add/subtract. subtract nunca deja la cantidad negativa.
func (m *RawMaterial) ApplyStockOperation(quantity decimal.Decimal, operation string) bool {
	switch operation {
	case StockOperationSet:
		m.Quantity = clampZero(quantity)
	case StockOperationAdd:
		m.Quantity = clampZero(m.Quantity.Add(quantity))
	case StockOperationSubtract:
		m.Quantity = clampZero(m.Quantity.Sub(quantity))
	default:
		return false
	}
	m.RefreshStatus()
	return true
}

func clampZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
