package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreateRawMaterialRequest entrada para crear una materia prima.
type CreateRawMaterialRequest struct {
	Name        string          `json:"name" validate:"required,min=1,max=200"`
	Description string          `json:"description" validate:"max=1000"`
	Category    string          `json:"category" validate:"required,min=1,max=100"`
	Unit        string          `json:"unit" validate:"required,min=1,max=30"`
	UnitPrice   decimal.Decimal `json:"unit_price" validate:"gte=0"`
	Quantity    decimal.Decimal `json:"quantity" validate:"gte=0"`
	MinLevel    decimal.Decimal `json:"min_level" validate:"gte=0"`
}

// UpdateRawMaterialRequest actualización parcial; la cantidad solo cambia vía UpdateStock o inventario.
type UpdateRawMaterialRequest struct {
	Name        *string          `json:"name" validate:"omitempty,min=1,max=200"`
	Description *string          `json:"description" validate:"omitempty,max=1000"`
	Category    *string          `json:"category" validate:"omitempty,min=1,max=100"`
	Unit        *string          `json:"unit" validate:"omitempty,min=1,max=30"`
	UnitPrice   *decimal.Decimal `json:"unit_price" validate:"omitempty,gte=0"`
	MinLevel    *decimal.Decimal `json:"min_level" validate:"omitempty,gte=0"`
}

// UpdateStockRequest body de PATCH /api/raw-materials/:id/stock.
type UpdateStockRequest struct {
	Quantity  decimal.Decimal `json:"quantity" validate:"gte=0"`
	Operation string          `json:"operation" validate:"required,oneof=set add subtract"`
}

// RawMaterialFilter filtros del listado de materias primas.
type RawMaterialFilter struct {
	Search   string `query:"search"`
	Category string `query:"category"`
	Status   string `query:"status" validate:"omitempty,oneof='In Stock' 'Low Stock' 'Out of Stock'"`
	PageRequest
}

// RawMaterialResponse salida de una materia prima.
type RawMaterialResponse struct {
	ID          string          `json:"id"`
	CompanyID   string          `json:"company_id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Unit        string          `json:"unit"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Quantity    decimal.Decimal `json:"quantity"`
	MinLevel    decimal.Decimal `json:"min_level"`
	Status      string          `json:"status"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// RawMaterialListResponse lista paginada de materias primas.
type RawMaterialListResponse struct {
	Items []RawMaterialResponse `json:"items"`
	Page  PageResponse          `json:"page"`
}
