package http

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/jhoicas/cocina-stock-api/internal/application/inventory"
	"github.com/jhoicas/cocina-stock-api/internal/application/usecase"
	"github.com/jhoicas/cocina-stock-api/pkg/jwt"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	RawMaterialUC *usecase.RawMaterialUseCase
	LocationUC    *usecase.LocationUseCase
	RecipeUC      *usecase.RecipeUseCase
	InventoryUC   *inventory.InventoryUseCase
	DeductionUC   *inventory.DeductionUseCase
	JWTSecret     string
	JWTIssuer     string
	ServiceName   string
	// MetricsHandler se expone en MetricsPath cuando no es nil.
	MetricsHandler http.Handler
	MetricsPath    string
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": deps.ServiceName})
	})
	if deps.MetricsHandler != nil {
		path := deps.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		app.Get(path, adaptor.HTTPHandler(deps.MetricsHandler))
	}

	// Rutas protegidas (requieren Bearer Token)
	api := app.Group("/api", AuthMiddleware(deps.JWTSecret, deps.JWTIssuer))

	stockKeepers := RequireRole(jwt.RoleAdmin, jwt.RoleBodeguero)
	kitchen := RequireRole(jwt.RoleAdmin, jwt.RoleChef)

	// Materias primas
	rawMaterials := api.Group("/raw-materials")
	rawMaterialHandler := NewRawMaterialHandler(deps.RawMaterialUC)
	rawMaterials.Get("/", rawMaterialHandler.List)
	rawMaterials.Post("/", stockKeepers, rawMaterialHandler.Create)
	rawMaterials.Get("/category/:category", rawMaterialHandler.ListByCategory)
	rawMaterials.Get("/:id", rawMaterialHandler.GetByID)
	rawMaterials.Put("/:id", stockKeepers, rawMaterialHandler.Update)
	rawMaterials.Patch("/:id/stock", stockKeepers, rawMaterialHandler.UpdateStock)
	rawMaterials.Delete("/:id", RequireRole(jwt.RoleAdmin), rawMaterialHandler.Delete)

	inventoryHandler := NewInventoryHandler(deps.InventoryUC, deps.DeductionUC)

	// Sedes y su inventario
	locations := api.Group("/locations")
	locationHandler := NewLocationHandler(deps.LocationUC)
	locations.Get("/", locationHandler.List)
	locations.Post("/", RequireRole(jwt.RoleAdmin), locationHandler.Create)
	locations.Get("/:id", locationHandler.GetByID)
	locations.Put("/:id", RequireRole(jwt.RoleAdmin), locationHandler.Update)
	locations.Delete("/:id", RequireRole(jwt.RoleAdmin), locationHandler.Delete)
	locations.Get("/:id/inventory", inventoryHandler.GetLocationInventory)
	locations.Post("/:id/inventory", stockKeepers, inventoryHandler.AddStock)
	locations.Post("/:id/inventory/deduct", stockKeepers, inventoryHandler.DeductStock)
	locations.Post("/:id/inventory/adjust", stockKeepers, inventoryHandler.Adjust)

	// Movimientos y reportes
	invGroup := api.Group("/inventory")
	invGroup.Post("/deduct-by-recipe", RequireRole(jwt.RoleAdmin, jwt.RoleChef, jwt.RoleBodeguero), inventoryHandler.DeductByRecipe)
	invGroup.Post("/transfer", stockKeepers, inventoryHandler.Transfer)
	invGroup.Get("/transactions", inventoryHandler.ListTransactions)
	invGroup.Get("/low-stock", inventoryHandler.LowStock)
	invGroup.Get("/expiring", inventoryHandler.Expiring)
	invGroup.Get("/replenishment-list", inventoryHandler.GetReplenishmentList)
	invGroup.Post("/reconcile", RequireRole(jwt.RoleAdmin), inventoryHandler.Reconcile)

	// Recetas
	recipes := api.Group("/recipes")
	recipeHandler := NewRecipeHandler(deps.RecipeUC)
	recipes.Get("/", recipeHandler.List)
	recipes.Post("/", kitchen, recipeHandler.Create)
	recipes.Get("/:id", recipeHandler.GetByID)
	recipes.Get("/:id/inventory-status", recipeHandler.InventoryStatus)
	recipes.Put("/:id", kitchen, recipeHandler.Update)
	recipes.Delete("/:id", kitchen, recipeHandler.Delete)
}
