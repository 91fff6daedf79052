package usecase_test

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/cocina-stock-api/internal/application/dto"
	"github.com/jhoicas/cocina-stock-api/internal/application/usecase"
	"github.com/jhoicas/cocina-stock-api/internal/domain"
	"github.com/jhoicas/cocina-stock-api/internal/domain/entity"
	"github.com/jhoicas/cocina-stock-api/internal/infrastructure/memory"
)

type recipeFixture struct {
	store     *memory.Store
	recipes   *usecase.RecipeUseCase
	locations *usecase.LocationUseCase
	onion     *dto.RawMaterialResponse
	rice      *dto.RawMaterialResponse
	location  *dto.LocationResponse
}

func newRecipeFixture(t *testing.T) *recipeFixture {
	t.Helper()
	store := memory.New()
	materials := newMaterialUC(store)
	f := &recipeFixture{
		store:     store,
		recipes:   usecase.NewRecipeUseCase(store.Recipes(), store.RawMaterials(), store.Locations(), store.Inventory()),
		locations: usecase.NewLocationUseCase(store.Locations(), store.Inventory()),
		onion:     createMaterial(t, materials, "Cebolla", "0", "300"),
		rice:      createMaterial(t, materials, "Arroz", "0", "0"),
	}
	loc, err := f.locations.Create(context.Background(), companyID, dto.CreateLocationRequest{Name: "Cocina Centro"})
	require.NoError(t, err)
	f.location = loc
	return f
}

func (f *recipeFixture) createCurry(t *testing.T) *dto.RecipeResponse {
	t.Helper()
	r, err := f.recipes.Create(context.Background(), companyID, dto.CreateRecipeRequest{
		Name:     "Veg Curry",
		Servings: 1,
		Ingredients: []dto.RecipeIngredientRequest{
			{RawMaterialID: f.onion.ID, Quantity: dec("200"), Unit: "g"},
			{RawMaterialID: f.rice.ID, Quantity: dec("100")},
		},
	})
	require.NoError(t, err)
	return r
}

func TestRecipeCreate_ResuelveNombresDeIngredientes(t *testing.T) {
	f := newRecipeFixture(t)
	r := f.createCurry(t)

	require.Len(t, r.Ingredients, 2)
	assert.Equal(t, "Cebolla", r.Ingredients[0].Material)
	assert.Equal(t, "g", r.Ingredients[1].Unit, "sin unidad se usa la de la materia prima")

	got, err := f.recipes.GetByID(context.Background(), companyID, r.ID)
	require.NoError(t, err)
	assert.Equal(t, r.Name, got.Name)
}

func TestRecipeCreate_Validaciones(t *testing.T) {
	f := newRecipeFixture(t)
	ctx := context.Background()

	_, err := f.recipes.Create(ctx, companyID, dto.CreateRecipeRequest{Name: "Vacía"})
	var verr *domain.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Fields, "ingredients")

	_, err = f.recipes.Create(ctx, companyID, dto.CreateRecipeRequest{
		Name: "Rara",
		Ingredients: []dto.RecipeIngredientRequest{
			{RawMaterialID: f.onion.ID, Quantity: dec("1")},
			{RawMaterialID: f.onion.ID, Quantity: dec("2")},
			{RawMaterialID: "no-existe", Quantity: dec("-1")},
		},
	})
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Fields, "ingredients[1].raw_material_id")
	assert.Contains(t, verr.Fields, "ingredients[2].raw_material_id")
	assert.Contains(t, verr.Fields, "ingredients[2].quantity")
}

func TestRecipeUpdateYDelete(t *testing.T) {
	f := newRecipeFixture(t)
	ctx := context.Background()
	r := f.createCurry(t)

	name := "Curry de Verduras"
	updated, err := f.recipes.Update(ctx, companyID, r.ID, dto.UpdateRecipeRequest{
		Name:        &name,
		Ingredients: []dto.RecipeIngredientRequest{{RawMaterialID: f.rice.ID, Quantity: dec("150")}},
	})
	require.NoError(t, err)
	assert.Equal(t, name, updated.Name)
	require.Len(t, updated.Ingredients, 1)

	list, err := f.recipes.List(ctx, companyID, "verduras", dto.PageRequest{})
	require.NoError(t, err)
	assert.Equal(t, 1, list.Page.Total)

	require.NoError(t, f.recipes.Delete(ctx, companyID, r.ID))
	_, err = f.recipes.GetByID(ctx, companyID, r.ID)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestRecipeInventoryStatus_SimulaSinModificar(t *testing.T) {
	f := newRecipeFixture(t)
	ctx := context.Background()
	r := f.createCurry(t)
	require.NoError(t, f.store.Inventory().Upsert(ctx, &entity.LocationInventory{
		LocationID: f.location.ID, RawMaterialID: f.onion.ID, Quantity: dec("650"),
	}))

	status, err := f.recipes.GetWithInventoryStatus(ctx, companyID, r.ID, f.location.ID, dec("2"))
	require.NoError(t, err)
	assert.False(t, status.CanProduce, "no hay arroz en la sede")
	require.Len(t, status.Ingredients, 2)

	onion := status.Ingredients[0]
	assert.True(t, onion.Sufficient)
	assert.True(t, onion.LowAfter, "quedan 250 con mínimo 300")
	assert.True(t, dec("400").Equal(onion.Required))

	rice := status.Ingredients[1]
	assert.False(t, rice.Sufficient)
	assert.True(t, rice.Available.IsZero())

	row, err := f.store.Inventory().Get(ctx, f.location.ID, f.onion.ID)
	require.NoError(t, err)
	assert.True(t, dec("650").Equal(row.Quantity), "la simulación no descuenta")

	status, err = f.recipes.GetWithInventoryStatus(ctx, companyID, r.ID, f.location.ID, decimal.Zero)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(1).Equal(status.Multiplier), "cero equivale a una unidad")
}

func TestLocationDelete_ConInventarioEsConflicto(t *testing.T) {
	f := newRecipeFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.Inventory().Upsert(ctx, &entity.LocationInventory{
		LocationID: f.location.ID, RawMaterialID: f.onion.ID, Quantity: dec("0"),
	}))
	err := f.locations.Delete(ctx, companyID, f.location.ID)
	assert.True(t, errors.Is(err, domain.ErrConflict))

	empty, err := f.locations.Create(ctx, companyID, dto.CreateLocationRequest{Name: "Bodega"})
	require.NoError(t, err)
	require.NoError(t, f.locations.Delete(ctx, companyID, empty.ID))

	_, err = f.locations.GetByID(ctx, "otra", f.location.ID)
	assert.True(t, errors.Is(err, domain.ErrForbidden))
}
