package repository

import (
	"context"

	"github.com/jhoicas/cocina-stock-api/internal/domain/entity"
)

// RawMaterialFilter filtros del listado paginado de materias primas.
type RawMaterialFilter struct {
	CompanyID string
	Search    string // coincide con nombre o descripción
	Category  string
	Status    string
	Limit     int
	Offset    int
}

// RawMaterialRepository define el puerto de persistencia para RawMaterial (DIP).
// Los métodos Get* devuelven (nil, nil) cuando el registro no existe.
type RawMaterialRepository interface {
	Create(ctx context.Context, material *entity.RawMaterial) error
	GetByID(ctx context.Context, id string) (*entity.RawMaterial, error)
	// GetForUpdate bloquea la fila (SELECT FOR UPDATE) dentro de la transacción en curso.
	GetForUpdate(ctx context.Context, id string) (*entity.RawMaterial, error)
	// GetByCompanyAndName busca sin distinguir mayúsculas.
	GetByCompanyAndName(ctx context.Context, companyID, name string) (*entity.RawMaterial, error)
	Update(ctx context.Context, material *entity.RawMaterial) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filter RawMaterialFilter) ([]*entity.RawMaterial, int, error)
	ListByIDs(ctx context.Context, ids []string) ([]*entity.RawMaterial, error)
	ListByCompany(ctx context.Context, companyID string) ([]*entity.RawMaterial, error)
}
