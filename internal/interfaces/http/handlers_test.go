package http_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appinv "github.com/jhoicas/cocina-stock-api/internal/application/inventory"
	"github.com/jhoicas/cocina-stock-api/internal/application/usecase"
	"github.com/jhoicas/cocina-stock-api/internal/infrastructure/cache"
	"github.com/jhoicas/cocina-stock-api/internal/infrastructure/memory"
	"github.com/jhoicas/cocina-stock-api/internal/infrastructure/metrics"
	apphttp "github.com/jhoicas/cocina-stock-api/internal/interfaces/http"
	"github.com/jhoicas/cocina-stock-api/pkg/jwt"
	"github.com/jhoicas/cocina-stock-api/pkg/logger"
)

// newTestServer levanta el router completo sobre el almacenamiento en memoria.
func newTestServer(t *testing.T) *fiber.App {
	t.Helper()
	store := memory.New()
	log := logger.Nop()
	prom := metrics.New()

	invUC := appinv.NewInventoryUseCase(store, store.Locations(), store.RawMaterials(), store.Inventory(), store.Transactions(), log,
		appinv.WithMetrics(prom))
	deductionUC := appinv.NewDeductionUseCase(store, store.Recipes(), store.Locations(), log,
		appinv.WithMetrics(prom), appinv.WithIdempotency(cache.NewInMemoryIdempotencyStore(time.Hour)))

	app := fiber.New()
	app.Use(apphttp.AccessMiddleware(log, prom))
	apphttp.Router(app, apphttp.RouterDeps{
		RawMaterialUC:  usecase.NewRawMaterialUseCase(store, store.RawMaterials(), store.Inventory(), store.Recipes()),
		LocationUC:     usecase.NewLocationUseCase(store.Locations(), store.Inventory()),
		RecipeUC:       usecase.NewRecipeUseCase(store.Recipes(), store.RawMaterials(), store.Locations(), store.Inventory()),
		InventoryUC:    invUC,
		DeductionUC:    deductionUC,
		JWTSecret:      testJWTSecret,
		JWTIssuer:      testIssuer,
		ServiceName:    "cocina-stock",
		MetricsHandler: prom.Handler(),
	})
	return app
}

// call envía body como JSON (string = cuerpo crudo) con un token del rol indicado.
func call(t *testing.T, app *fiber.App, method, path, role string, body interface{}) (int, map[string]interface{}) {
	t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if role != "" {
		req.Header.Set("Authorization", tokenForRole(t, role))
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	out := map[string]interface{}{}
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp.StatusCode, out
}

// seedKitchen crea una sede, la materia prima Tomate (mínimo 500 g) con 1000 g en la sede
// y la receta Salsa que usa 300 g por unidad. Devuelve los ids de sede y receta.
func seedKitchen(t *testing.T, app *fiber.App) (locationID, recipeID string) {
	t.Helper()
	status, loc := call(t, app, http.MethodPost, "/api/locations", jwt.RoleAdmin, map[string]interface{}{
		"name": "Cocina Centro",
	})
	require.Equal(t, http.StatusCreated, status, loc)
	locationID = loc["id"].(string)

	status, mat := call(t, app, http.MethodPost, "/api/raw-materials", jwt.RoleBodeguero, map[string]interface{}{
		"name": "Tomate", "category": "Verduras", "unit": "g", "unit_price": 0.01, "min_level": 500,
	})
	require.Equal(t, http.StatusCreated, status, mat)
	materialID := mat["id"].(string)

	status, added := call(t, app, http.MethodPost, "/api/locations/"+locationID+"/inventory", jwt.RoleBodeguero, map[string]interface{}{
		"raw_material_id": materialID, "quantity": 1000, "cost_price": 0.01,
	})
	require.Equal(t, http.StatusCreated, status, added)

	status, rec := call(t, app, http.MethodPost, "/api/recipes", jwt.RoleChef, map[string]interface{}{
		"name": "Salsa", "servings": 1,
		"ingredients": []map[string]interface{}{{"raw_material_id": materialID, "quantity": 300, "unit": "g"}},
	})
	require.Equal(t, http.StatusCreated, status, rec)
	return locationID, rec["id"].(string)
}

func TestDeductByRecipe_DescuentaYAvisaStockBajo(t *testing.T) {
	app := newTestServer(t)
	locationID, recipeID := seedKitchen(t, app)

	status, body := call(t, app, http.MethodPost, "/api/inventory/deduct-by-recipe", jwt.RoleChef, map[string]interface{}{
		"recipe_id": recipeID, "location_id": locationID, "quantity": 2,
	})
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, true, body["success"])

	deductions := body["deductions"].([]interface{})
	require.Len(t, deductions, 1)
	d := deductions[0].(map[string]interface{})
	assert.Equal(t, "Tomate", d["material"])
	assert.Equal(t, "600", d["deducted"])
	assert.Equal(t, "g", d["unit"])

	warnings := body["lowStockWarnings"].([]interface{})
	require.Len(t, warnings, 1)
	w := warnings[0].(map[string]interface{})
	assert.Equal(t, "400", w["remaining"])
	assert.Equal(t, "500", w["minLevel"])

	status, inv := call(t, app, http.MethodGet, "/api/locations/"+locationID+"/inventory", jwt.RoleChef, nil)
	require.Equal(t, http.StatusOK, status)
	items := inv["items"].([]interface{})
	require.Len(t, items, 1)
	assert.Equal(t, "400", items[0].(map[string]interface{})["quantity"])
	assert.Equal(t, "Low Stock", items[0].(map[string]interface{})["status"])
}

func TestDeductByRecipe_SinAvisosDevuelveNull(t *testing.T) {
	app := newTestServer(t)
	locationID, recipeID := seedKitchen(t, app)

	status, body := call(t, app, http.MethodPost, "/api/inventory/deduct-by-recipe", jwt.RoleChef, map[string]interface{}{
		"recipe_id": recipeID, "location_id": locationID, "quantity": 1,
	})
	require.Equal(t, http.StatusOK, status, body)
	v, ok := body["lowStockWarnings"]
	assert.True(t, ok)
	assert.Nil(t, v)
}

func TestDeductByRecipe_InsuficienteDevuelveFaltantes(t *testing.T) {
	app := newTestServer(t)
	locationID, recipeID := seedKitchen(t, app)

	status, body := call(t, app, http.MethodPost, "/api/inventory/deduct-by-recipe", jwt.RoleChef, map[string]interface{}{
		"recipe_id": recipeID, "location_id": locationID, "quantity": 4,
	})
	require.Equal(t, http.StatusBadRequest, status, body)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "Insufficient stock", body["error"])
	items := body["insufficientItems"].([]interface{})
	require.Len(t, items, 1)
	it := items[0].(map[string]interface{})
	assert.Equal(t, "Tomate", it["material"])
	assert.Equal(t, "1200", it["required"])
	assert.Equal(t, "1000", it["available"])

	// No se escribió nada.
	status, txs := call(t, app, http.MethodGet, "/api/inventory/transactions?type=outward", jwt.RoleAdmin, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Empty(t, txs["items"])
}

func TestDeductByRecipe_ClaveIdempotente(t *testing.T) {
	app := newTestServer(t)
	locationID, recipeID := seedKitchen(t, app)
	body := map[string]interface{}{
		"recipe_id": recipeID, "location_id": locationID, "quantity": 1, "idempotency_key": "turno-1",
	}

	status, first := call(t, app, http.MethodPost, "/api/inventory/deduct-by-recipe", jwt.RoleChef, body)
	require.Equal(t, http.StatusOK, status, first)
	status, again := call(t, app, http.MethodPost, "/api/inventory/deduct-by-recipe", jwt.RoleChef, body)
	require.Equal(t, http.StatusOK, status, again)
	assert.Equal(t, first["reference"], again["reference"], "la repetición devuelve el mismo resultado")

	body["quantity"] = 2
	status, conflict := call(t, app, http.MethodPost, "/api/inventory/deduct-by-recipe", jwt.RoleChef, body)
	assert.Equal(t, http.StatusConflict, status, conflict)
	assert.Equal(t, "CONFLICT", conflict["code"])

	status, inv := call(t, app, http.MethodGet, "/api/locations/"+locationID+"/inventory", jwt.RoleChef, nil)
	require.Equal(t, http.StatusOK, status, inv)
	items := inv["items"].([]interface{})
	require.Len(t, items, 1)
	assert.Equal(t, "700", items[0].(map[string]interface{})["quantity"], "un solo descuento de 300")
}

func TestDeductByRecipe_MultiplicadorInvalidoEsValidacion(t *testing.T) {
	app := newTestServer(t)
	locationID, recipeID := seedKitchen(t, app)

	status, body := call(t, app, http.MethodPost, "/api/inventory/deduct-by-recipe", jwt.RoleChef, map[string]interface{}{
		"recipe_id": recipeID, "location_id": locationID, "quantity": 0,
	})
	require.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION", body["code"])
	assert.Contains(t, body["details"], "quantity")
}

func TestDeductByRecipe_RecetaInexistenteEs404(t *testing.T) {
	app := newTestServer(t)
	locationID, _ := seedKitchen(t, app)

	status, body := call(t, app, http.MethodPost, "/api/inventory/deduct-by-recipe", jwt.RoleChef, map[string]interface{}{
		"recipe_id": "no-existe", "location_id": locationID, "quantity": 1,
	})
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", body["code"])
}

func TestHandlers_ValidacionDeCuerpo(t *testing.T) {
	app := newTestServer(t)

	status, body := call(t, app, http.MethodPost, "/api/raw-materials", jwt.RoleAdmin, map[string]interface{}{
		"description": "sin nombre",
	})
	require.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION", body["code"])
	details := body["details"].(map[string]interface{})
	assert.Contains(t, details, "name")
	assert.Contains(t, details, "category")
	assert.Contains(t, details, "unit")

	status, body = call(t, app, http.MethodPost, "/api/raw-materials", jwt.RoleAdmin, `{"name": `)
	require.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "INVALID_BODY", body["code"])

	status, body = call(t, app, http.MethodPost, "/api/inventory/transfer", jwt.RoleAdmin, map[string]interface{}{
		"raw_material_id": "m1", "from_location_id": "l1", "to_location_id": "l1", "quantity": 1,
	})
	require.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, body["details"], "to_location_id")
}

func TestHandlers_RolesPorRuta(t *testing.T) {
	app := newTestServer(t)

	status, _ := call(t, app, http.MethodPost, "/api/raw-materials", jwt.RoleChef, map[string]interface{}{
		"name": "Sal", "category": "Secos", "unit": "g",
	})
	assert.Equal(t, http.StatusForbidden, status, "chef no administra el catálogo")

	status, _ = call(t, app, http.MethodPost, "/api/recipes", jwt.RoleBodeguero, map[string]interface{}{"name": "X"})
	assert.Equal(t, http.StatusForbidden, status, "bodeguero no edita recetas")

	status, _ = call(t, app, http.MethodPost, "/api/inventory/reconcile", jwt.RoleChef, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = call(t, app, http.MethodGet, "/api/raw-materials", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestHandlers_DuplicadoYConflicto(t *testing.T) {
	app := newTestServer(t)
	locationID, _ := seedKitchen(t, app)

	status, body := call(t, app, http.MethodPost, "/api/raw-materials", jwt.RoleAdmin, map[string]interface{}{
		"name": "tomate", "category": "Verduras", "unit": "g",
	})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "DUPLICATE", body["code"])

	status, body = call(t, app, http.MethodDelete, "/api/locations/"+locationID, jwt.RoleAdmin, nil)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "CONFLICT", body["code"])
}

func TestHandlers_SalidaInsuficienteIncluyeDetalle(t *testing.T) {
	app := newTestServer(t)
	locationID, _ := seedKitchen(t, app)

	_, list := call(t, app, http.MethodGet, "/api/raw-materials?search=tom", jwt.RoleAdmin, nil)
	items := list["items"].([]interface{})
	require.Len(t, items, 1)
	materialID := items[0].(map[string]interface{})["id"].(string)

	status, body := call(t, app, http.MethodPost, "/api/locations/"+locationID+"/inventory/deduct", jwt.RoleBodeguero, map[string]interface{}{
		"raw_material_id": materialID, "quantity": 5000,
	})
	require.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "INSUFFICIENT_STOCK", body["code"])
	assert.Contains(t, body["details"], "Tomate")
}

func TestRecipeInventoryStatus_NoModificaStock(t *testing.T) {
	app := newTestServer(t)
	locationID, recipeID := seedKitchen(t, app)

	status, body := call(t, app, http.MethodGet, "/api/recipes/"+recipeID+"/inventory-status?location_id="+locationID+"&quantity=4", jwt.RoleChef, nil)
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, false, body["can_produce"])

	status, body = call(t, app, http.MethodGet, "/api/recipes/"+recipeID+"/inventory-status", jwt.RoleChef, nil)
	require.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, body["details"], "location_id")

	_, inv := call(t, app, http.MethodGet, "/api/locations/"+locationID+"/inventory", jwt.RoleChef, nil)
	assert.Equal(t, "1000", inv["items"].([]interface{})[0].(map[string]interface{})["quantity"])
}

func TestHandlers_TransaccionesFechaInvalida(t *testing.T) {
	app := newTestServer(t)

	status, body := call(t, app, http.MethodGet, "/api/inventory/transactions?from=ayer", jwt.RoleAdmin, nil)
	require.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, body["details"], "from")
}

func TestHealthYMetricas(t *testing.T) {
	app := newTestServer(t)

	status, body := call(t, app, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body["status"])

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(raw), `cocina_stock_http_requests_total{method="GET",route="/health",status="200"} 1`)
}
