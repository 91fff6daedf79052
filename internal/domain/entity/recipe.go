package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// RecipeIngredient cantidad de materia prima necesaria por una unidad de salida de la receta.
type RecipeIngredient struct {
	RawMaterialID string
	Quantity      decimal.Decimal
	Unit          string
}

// Recipe fórmula que convierte materias primas en un producto elaborado.
type Recipe struct {
	ID             string
	CompanyID      string
	Name           string
	Description    string
	CookingTime    int // minutos
	Servings       int
	CostPerServing decimal.Decimal
	Instructions   string
	Ingredients    []RecipeIngredient
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// UsesMaterial indica si la receta referencia la materia prima.
func (r *Recipe) UsesMaterial(rawMaterialID string) bool {
	for _, ing := range r.Ingredients {
		if ing.RawMaterialID == rawMaterialID {
			return true
		}
	}
	return false
}
