package dto

import "github.com/shopspring/decimal"

// DeductByRecipeRequest body para POST /api/inventory/deduct-by-recipe.
// Quantity es el número de unidades de salida de la receta a producir.
type DeductByRecipeRequest struct {
	RecipeID       string          `json:"recipe_id" validate:"required"`
	LocationID     string          `json:"location_id" validate:"required"`
	Quantity       decimal.Decimal `json:"quantity" validate:"gt=0"`
	IdempotencyKey string          `json:"idempotency_key,omitempty" validate:"max=200"`
}

// Deduction cantidad descontada de un ingrediente.
type Deduction struct {
	Material string          `json:"material"`
	Deducted decimal.Decimal `json:"deducted"`
	Unit     string          `json:"unit"`
}

// LowStockWarning ingrediente que quedó en o por debajo de su nivel mínimo.
type LowStockWarning struct {
	Material  string          `json:"material"`
	Remaining decimal.Decimal `json:"remaining"`
	MinLevel  decimal.Decimal `json:"minLevel"`
	Unit      string          `json:"unit"`
}

// DeductByRecipeResponse respuesta exitosa. LowStockWarnings es null cuando no hay advertencias.
type DeductByRecipeResponse struct {
	Success          bool              `json:"success"`
	Reference        string            `json:"reference"`
	Deductions       []Deduction       `json:"deductions"`
	LowStockWarnings []LowStockWarning `json:"lowStockWarnings"`
}

// InsufficientItem faltante de un ingrediente.
type InsufficientItem struct {
	Material  string          `json:"material"`
	Required  decimal.Decimal `json:"required"`
	Available decimal.Decimal `json:"available"`
	Unit      string          `json:"unit"`
}

// DeductByRecipeFailure respuesta 400 cuando uno o más ingredientes no alcanzan.
type DeductByRecipeFailure struct {
	Success           bool               `json:"success"`
	Error             string             `json:"error"`
	InsufficientItems []InsufficientItem `json:"insufficientItems"`
}
