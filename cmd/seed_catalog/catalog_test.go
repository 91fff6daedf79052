package main

import (
	"bytes"
	"context"
	"os"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"

	"github.com/jhoicas/cocina-stock-api/internal/application/dto"
	appinv "github.com/jhoicas/cocina-stock-api/internal/application/inventory"
	"github.com/jhoicas/cocina-stock-api/internal/application/usecase"
	"github.com/jhoicas/cocina-stock-api/internal/infrastructure/memory"
	"github.com/jhoicas/cocina-stock-api/pkg/logger"
)

const testCompany = "company-seed"

func newMemorySeeder(store *memory.Store) *seeder {
	log := logger.Nop()
	return &seeder{
		companyID: testCompany,
		userID:    "seed",
		locations: usecase.NewLocationUseCase(store.Locations(), store.Inventory()),
		materials: usecase.NewRawMaterialUseCase(store, store.RawMaterials(), store.Inventory(), store.Recipes()),
		recipes:   usecase.NewRecipeUseCase(store.Recipes(), store.RawMaterials(), store.Locations(), store.Inventory()),
		inventory: appinv.NewInventoryUseCase(store, store.Locations(), store.RawMaterials(), store.Inventory(), store.Transactions(), log),
		log:       log,
	}
}

func loadTestCatalog(t *testing.T) *catalog {
	t.Helper()
	f, err := os.Open("testdata/catalog.yaml")
	require.NoError(t, err)
	defer f.Close()
	c, err := parseCatalog(f, "")
	require.NoError(t, err)
	return c
}

func TestParseCatalog_Secciones(t *testing.T) {
	c := loadTestCatalog(t)
	require.Len(t, c.Locations, 2)
	require.Len(t, c.RawMaterials, 3)
	require.Len(t, c.Stock, 3)
	require.Len(t, c.Recipes, 1)

	assert.True(t, decimal.RequireFromString("0.008").Equal(c.RawMaterials[1].UnitPrice), "precio entre comillas")
	assert.True(t, decimal.NewFromInt(5000).Equal(c.Stock[0].Quantity))
	require.NotNil(t, c.Stock[0].CostPrice)
	assert.Nil(t, c.Stock[1].CostPrice)
	assert.Equal(t, "2026-11-01", c.Stock[0].ExpiryDate)
	assert.Len(t, c.Recipes[0].Ingredients, 3)
}

func TestParseCatalog_Latin1(t *testing.T) {
	utf8 := "locations:\n  - name: Cocina Peñalisa\n"
	latin1, err := charmap.ISO8859_1.NewEncoder().Bytes([]byte(utf8))
	require.NoError(t, err)

	c, err := parseCatalog(bytes.NewReader(latin1), "latin1")
	require.NoError(t, err)
	require.Len(t, c.Locations, 1)
	assert.Equal(t, "Cocina Peñalisa", c.Locations[0].Name)

	_, err = parseCatalog(bytes.NewReader(latin1), "ebcdic")
	assert.Error(t, err)
}

func TestSeeder_CargaCompletaYRepetible(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	s := newMemorySeeder(store)
	c := loadTestCatalog(t)

	res, err := s.run(ctx, c)
	require.NoError(t, err)
	assert.Equal(t, seedResult{Locations: 2, RawMaterials: 3, StockEntries: 3, Recipes: 1}, res)

	tomatoes, err := s.materials.List(ctx, testCompany, dto.RawMaterialFilter{Search: "Tomate"})
	require.NoError(t, err)
	require.Len(t, tomatoes.Items, 1)
	assert.Equal(t, "5000", tomatoes.Items[0].Quantity.String(), "el agregado refleja el stock inicial")

	recipes, err := s.recipes.List(ctx, testCompany, "salsa", dto.PageRequest{})
	require.NoError(t, err)
	require.Len(t, recipes.Items, 1)
	assert.Equal(t, "Cebolla", recipes.Items[0].Ingredients[1].Material)

	// Segunda corrida: reutiliza sedes, materias primas y recetas; sólo vuelve a sumar el stock.
	again := newMemorySeeder(store)
	res, err = again.run(ctx, c)
	require.NoError(t, err)
	assert.Equal(t, seedResult{StockEntries: 3}, res)
}

func TestSeeder_ReferenciaDesconocidaFalla(t *testing.T) {
	s := newMemorySeeder(memory.New())
	_, err := s.run(context.Background(), &catalog{
		Locations: []catalogLocation{{Name: "Cocina"}},
		Stock:     []catalogStock{{Location: "Cocina", Material: "Azafrán", Quantity: decimal.NewFromInt(1)}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Azafrán")
}
