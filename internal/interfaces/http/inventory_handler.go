package http

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/cocina-stock-api/internal/application/dto"
	"github.com/jhoicas/cocina-stock-api/internal/application/inventory"
	"github.com/jhoicas/cocina-stock-api/internal/domain"
)

// InventoryHandler maneja el inventario por sede, los movimientos y el descuento por receta (protegido).
type InventoryHandler struct {
	uc        *inventory.InventoryUseCase
	deduction *inventory.DeductionUseCase
}

// NewInventoryHandler construye el handler.
func NewInventoryHandler(uc *inventory.InventoryUseCase, deduction *inventory.DeductionUseCase) *InventoryHandler {
	return &InventoryHandler{uc: uc, deduction: deduction}
}

// DeductByRecipe godoc
// @Summary      Descontar ingredientes de una receta
// @Description  Descuenta de la sede todos los ingredientes escalados por quantity, o ninguno.
// @Description  Con idempotency_key (o header Idempotency-Key) una repetición devuelve el resultado original.
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.DeductByRecipeRequest  true  "recipe_id, location_id, quantity"
// @Success      200   {object}  dto.DeductByRecipeResponse
// @Failure      400   {object}  dto.DeductByRecipeFailure
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/inventory/deduct-by-recipe [post]
func (h *InventoryHandler) DeductByRecipe(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	if companyID == "" {
		return unauthorized(c)
	}
	var in dto.DeductByRecipeRequest
	if err := bindBody(c, &in); err != nil {
		return writeError(c, err)
	}
	key := in.IdempotencyKey
	if key == "" {
		key = c.Get("Idempotency-Key")
	}
	out, err := h.deduction.DeductByRecipe(c.UserContext(), inventory.DeductionInput{
		CompanyID:      companyID,
		UserID:         GetUserID(c),
		RecipeID:       in.RecipeID,
		LocationID:     in.LocationID,
		Multiplier:     in.Quantity,
		IdempotencyKey: key,
	})
	if err != nil {
		if ise, ok := inventory.IsInsufficient(err); ok {
			return c.Status(fiber.StatusBadRequest).JSON(dto.DeductByRecipeFailure{
				Success:           false,
				Error:             "Insufficient stock",
				InsufficientItems: toInsufficientItems(ise.Items),
			})
		}
		return writeError(c, err)
	}
	return c.JSON(out)
}

// GetLocationInventory godoc
// @Summary      Inventario de una sede
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        id        path   string  true   "ID de la sede"
// @Param        search    query  string  false  "Busca en nombre de la materia prima"
// @Param        category  query  string  false  "Categoría"
// @Param        status    query  string  false  "In Stock | Low Stock | Out of Stock"
// @Success      200  {object}  dto.InventoryListResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/locations/{id}/inventory [get]
func (h *InventoryHandler) GetLocationInventory(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	if companyID == "" {
		return unauthorized(c)
	}
	filter := dto.InventoryFilter{
		Search:   c.Query("search"),
		Category: c.Query("category"),
		Status:   c.Query("status"),
	}
	if err := validateStruct(filter); err != nil {
		return writeError(c, err)
	}
	out, err := h.uc.Get(c.UserContext(), companyID, c.Params("id"), filter)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// AddStock godoc
// @Summary      Entrada de stock en una sede
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string  true  "ID de la sede"
// @Param        body  body  dto.AddStockRequest  true  "raw_material_id, quantity, cost_price, expiry_date, batch_number"
// @Success      201   {object}  dto.StockMutationResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /api/locations/{id}/inventory [post]
func (h *InventoryHandler) AddStock(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	if companyID == "" {
		return unauthorized(c)
	}
	var in dto.AddStockRequest
	if err := bindBody(c, &in); err != nil {
		return writeError(c, err)
	}
	out, err := h.uc.AddStock(c.UserContext(), companyID, GetUserID(c), c.Params("id"), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// DeductStock godoc
// @Summary      Salida de stock de una sede
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string  true  "ID de la sede"
// @Param        body  body  dto.DeductStockRequest  true  "raw_material_id, quantity"
// @Success      200   {object}  dto.StockMutationResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /api/locations/{id}/inventory/deduct [post]
func (h *InventoryHandler) DeductStock(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	if companyID == "" {
		return unauthorized(c)
	}
	var in dto.DeductStockRequest
	if err := bindBody(c, &in); err != nil {
		return writeError(c, err)
	}
	out, err := h.uc.DeductStock(c.UserContext(), companyID, GetUserID(c), c.Params("id"), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Adjust godoc
// @Summary      Ajuste por conteo físico
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string  true  "ID de la sede"
// @Param        body  body  dto.AdjustStockRequest  true  "raw_material_id, counted_quantity, reason"
// @Success      200   {object}  dto.StockMutationResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /api/locations/{id}/inventory/adjust [post]
func (h *InventoryHandler) Adjust(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	if companyID == "" {
		return unauthorized(c)
	}
	var in dto.AdjustStockRequest
	if err := bindBody(c, &in); err != nil {
		return writeError(c, err)
	}
	out, err := h.uc.Adjust(c.UserContext(), companyID, GetUserID(c), c.Params("id"), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Transfer godoc
// @Summary      Traslado entre sedes
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.TransferStockRequest  true  "raw_material_id, from_location_id, to_location_id, quantity"
// @Success      200   {object}  dto.TransferResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /api/inventory/transfer [post]
func (h *InventoryHandler) Transfer(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	if companyID == "" {
		return unauthorized(c)
	}
	var in dto.TransferStockRequest
	if err := bindBody(c, &in); err != nil {
		return writeError(c, err)
	}
	out, err := h.uc.Transfer(c.UserContext(), companyID, GetUserID(c), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// ListTransactions godoc
// @Summary      Libro de movimientos
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        type             query  string  false  "inward | outward | transfer | adjustment"
// @Param        location_id      query  string  false  "Sede (también como origen o destino de traslados)"
// @Param        raw_material_id  query  string  false  "Materia prima"
// @Param        from             query  string  false  "Desde (RFC3339 o YYYY-MM-DD)"
// @Param        to               query  string  false  "Hasta (RFC3339 o YYYY-MM-DD, inclusive)"
// @Param        limit            query  int     false  "Límite"
// @Success      200  {object}  dto.TransactionListResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/inventory/transactions [get]
func (h *InventoryHandler) ListTransactions(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	if companyID == "" {
		return unauthorized(c)
	}
	filter := dto.TransactionFilter{
		Type:          c.Query("type"),
		LocationID:    c.Query("location_id"),
		RawMaterialID: c.Query("raw_material_id"),
		Limit:         c.QueryInt("limit", 0),
	}
	verr := &domain.ValidationError{}
	if raw := c.Query("from"); raw != "" {
		t, ok := parseDateParam(raw, false)
		if !ok {
			verr.Add("from", "fecha inválida")
		}
		filter.From = &t
	}
	if raw := c.Query("to"); raw != "" {
		t, ok := parseDateParam(raw, true)
		if !ok {
			verr.Add("to", "fecha inválida")
		}
		filter.To = &t
	}
	if err := verr.OrNil(); err != nil {
		return writeError(c, err)
	}
	if err := validateStruct(filter); err != nil {
		return writeError(c, err)
	}
	out, err := h.uc.ListTransactions(c.UserContext(), companyID, filter)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// LowStock godoc
// @Summary      Filas en o bajo su nivel mínimo
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        location_id  query  string  false  "Sede. Vacío = todas."
// @Success      200  {array}   dto.InventoryItemResponse
// @Router       /api/inventory/low-stock [get]
func (h *InventoryHandler) LowStock(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	if companyID == "" {
		return unauthorized(c)
	}
	out, err := h.uc.LowStock(c.UserContext(), companyID, c.Query("location_id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Expiring godoc
// @Summary      Filas próximas a vencer
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        location_id  query  string  false  "Sede. Vacío = todas."
// @Param        days         query  int     false  "Ventana en días"
// @Success      200  {array}   dto.InventoryItemResponse
// @Router       /api/inventory/expiring [get]
func (h *InventoryHandler) Expiring(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	if companyID == "" {
		return unauthorized(c)
	}
	days := 0
	if raw := c.Query("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return writeError(c, domain.NewValidationError("days", "debe ser un entero no negativo"))
		}
		days = n
	}
	out, err := h.uc.Expiring(c.UserContext(), companyID, c.Query("location_id"), days)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// GetReplenishmentList godoc
// @Summary      Lista de reposición
// @Description  Filas bajo su nivel mínimo con la cantidad sugerida para llevarlas a 1.5 veces el mínimo.
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        location_id  query  string  false  "Sede. Vacío = todas."
// @Success      200  {array}   dto.ReplenishmentSuggestionDTO
// @Failure      401  {object}  dto.ErrorResponse
// @Failure      500  {object}  dto.ErrorResponse
// @Router       /api/inventory/replenishment-list [get]
func (h *InventoryHandler) GetReplenishmentList(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	if companyID == "" {
		return unauthorized(c)
	}
	out, err := h.uc.Replenishment(c.UserContext(), companyID, c.Query("location_id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Reconcile godoc
// @Summary      Recalcular agregados
// @Description  Fija la cantidad de cada materia prima a la suma de sus filas por sede.
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  dto.ReconcileResponse
// @Router       /api/inventory/reconcile [post]
func (h *InventoryHandler) Reconcile(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	if companyID == "" {
		return unauthorized(c)
	}
	out, err := h.uc.ReconcileAggregates(c.UserContext(), companyID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// parseDateParam acepta RFC3339 o YYYY-MM-DD; con endOfDay una fecha sin hora cubre el día completo.
func parseDateParam(raw string, endOfDay bool) (time.Time, bool) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, true
	}
	t, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return time.Time{}, false
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return t, true
}
