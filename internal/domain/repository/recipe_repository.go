package repository

import (
	"context"

	"github.com/jhoicas/cocina-stock-api/internal/domain/entity"
)

// RecipeRepository define el puerto de persistencia para Recipe con sus ingredientes.
type RecipeRepository interface {
	Create(ctx context.Context, recipe *entity.Recipe) error
	GetByID(ctx context.Context, id string) (*entity.Recipe, error)
	Update(ctx context.Context, recipe *entity.Recipe) error
	Delete(ctx context.Context, id string) error
	ListByCompany(ctx context.Context, companyID, search string, limit, offset int) ([]*entity.Recipe, int, error)
	// ExistsWithMaterial indica si alguna receta usa la materia prima como ingrediente.
	ExistsWithMaterial(ctx context.Context, rawMaterialID string) (bool, error)
}
