package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// RecipeIngredientRequest ingrediente: cantidad por una unidad de salida de la receta.
type RecipeIngredientRequest struct {
	RawMaterialID string          `json:"raw_material_id" validate:"required"`
	Quantity      decimal.Decimal `json:"quantity" validate:"gte=0"`
	Unit          string          `json:"unit" validate:"max=30"`
}

// CreateRecipeRequest entrada para crear una receta.
type CreateRecipeRequest struct {
	Name           string                    `json:"name" validate:"required,min=1,max=200"`
	Description    string                    `json:"description" validate:"max=1000"`
	CookingTime    int                       `json:"cooking_time" validate:"gte=0"`
	Servings       int                       `json:"servings" validate:"gte=0"`
	CostPerServing decimal.Decimal           `json:"cost_per_serving" validate:"gte=0"`
	Instructions   string                    `json:"instructions"`
	Ingredients    []RecipeIngredientRequest `json:"ingredients" validate:"required,min=1,dive"`
}

// UpdateRecipeRequest actualización parcial; Ingredients no nulo reemplaza la lista completa.
type UpdateRecipeRequest struct {
	Name           *string                   `json:"name" validate:"omitempty,min=1,max=200"`
	Description    *string                   `json:"description" validate:"omitempty,max=1000"`
	CookingTime    *int                      `json:"cooking_time" validate:"omitempty,gte=0"`
	Servings       *int                      `json:"servings" validate:"omitempty,gte=0"`
	CostPerServing *decimal.Decimal          `json:"cost_per_serving" validate:"omitempty,gte=0"`
	Instructions   *string                   `json:"instructions"`
	Ingredients    []RecipeIngredientRequest `json:"ingredients" validate:"omitempty,min=1,dive"`
}

// RecipeIngredientResponse ingrediente con el nombre de su materia prima.
type RecipeIngredientResponse struct {
	RawMaterialID string          `json:"raw_material_id"`
	Material      string          `json:"material"`
	Quantity      decimal.Decimal `json:"quantity"`
	Unit          string          `json:"unit"`
}

// RecipeResponse salida de una receta.
type RecipeResponse struct {
	ID             string                     `json:"id"`
	CompanyID      string                     `json:"company_id"`
	Name           string                     `json:"name"`
	Description    string                     `json:"description"`
	CookingTime    int                        `json:"cooking_time"`
	Servings       int                        `json:"servings"`
	CostPerServing decimal.Decimal            `json:"cost_per_serving"`
	Instructions   string                     `json:"instructions"`
	Ingredients    []RecipeIngredientResponse `json:"ingredients"`
	CreatedAt      time.Time                  `json:"created_at"`
	UpdatedAt      time.Time                  `json:"updated_at"`
}

// RecipeListResponse lista paginada de recetas.
type RecipeListResponse struct {
	Items []RecipeResponse `json:"items"`
	Page  PageResponse     `json:"page"`
}

// IngredientStatus disponibilidad de un ingrediente en una sede para un multiplicador dado.
type IngredientStatus struct {
	RawMaterialID string          `json:"raw_material_id"`
	Material      string          `json:"material"`
	Unit          string          `json:"unit"`
	Required      decimal.Decimal `json:"required"`
	Available     decimal.Decimal `json:"available"`
	MinLevel      decimal.Decimal `json:"min_level"`
	Sufficient    bool            `json:"sufficient"`
	LowAfter      bool            `json:"low_after"`
}

// RecipeInventoryStatusResponse simulación del descuento de una receta; no modifica nada.
type RecipeInventoryStatusResponse struct {
	RecipeID    string             `json:"recipe_id"`
	RecipeName  string             `json:"recipe_name"`
	LocationID  string             `json:"location_id"`
	Multiplier  decimal.Decimal    `json:"multiplier"`
	CanProduce  bool               `json:"can_produce"`
	Ingredients []IngredientStatus `json:"ingredients"`
}
