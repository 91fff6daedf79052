package inventory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/cocina-stock-api/internal/application/dto"
	"github.com/jhoicas/cocina-stock-api/internal/domain"
	"github.com/jhoicas/cocina-stock-api/internal/domain/entity"
	"github.com/jhoicas/cocina-stock-api/internal/domain/inventory"
	"github.com/jhoicas/cocina-stock-api/internal/domain/repository"
	"github.com/jhoicas/cocina-stock-api/pkg/logger"
)

// DeductionInput orden de producción: Multiplier unidades de salida de la receta en la sede.
type DeductionInput struct {
	CompanyID      string
	UserID         string
	RecipeID       string
	LocationID     string
	Multiplier     decimal.Decimal
	IdempotencyKey string
}

// fingerprint identifica la orden; una clave idempotente solo se repite con la misma orden.
func (in DeductionInput) fingerprint() string {
	return in.RecipeID + "|" + in.LocationID + "|" + in.Multiplier.String()
}

// idempotentResult lo que se guarda por clave: la orden que la usó y su resultado.
type idempotentResult struct {
	Fingerprint string                      `json:"fingerprint"`
	Result      *dto.DeductByRecipeResponse `json:"result"`
}

// DeductionUseCase descuenta de una sede los ingredientes de una receta escalados por el
// multiplicador. O se descuentan todos o ninguno.
type DeductionUseCase struct {
	txRunner     TxRunner
	recipeRepo   repository.RecipeRepository
	locationRepo repository.LocationRepository
	log          *logger.Logger
	options
}

// NewDeductionUseCase construye el motor de descuento por receta.
func NewDeductionUseCase(
	txRunner TxRunner,
	recipeRepo repository.RecipeRepository,
	locationRepo repository.LocationRepository,
	log *logger.Logger,
	opts ...Option,
) *DeductionUseCase {
	return &DeductionUseCase{
		txRunner:     txRunner,
		recipeRepo:   recipeRepo,
		locationRepo: locationRepo,
		log:          log.Component("deduction"),
		options:      buildOptions(opts),
	}
}

// DeductByRecipe valida el conjunto completo de ingredientes con las filas bloqueadas y, si
// todos alcanzan, descuenta cada uno con una transacción outward que comparte la referencia
// RECIPE-<nombre>-<unix ms>. Si alguno falta devuelve *domain.InsufficientStockError con todos
// los faltantes y no escribe nada.
func (uc *DeductionUseCase) DeductByRecipe(ctx context.Context, in DeductionInput) (res *dto.DeductByRecipeResponse, err error) {
	verr := &domain.ValidationError{}
	if in.RecipeID == "" {
		verr.Add("recipe_id", "requerido")
	}
	if in.LocationID == "" {
		verr.Add("location_id", "requerido")
	}
	if !in.Multiplier.IsPositive() {
		verr.Add("quantity", "debe ser mayor que cero")
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	recipe, err := uc.recipeRepo.GetByID(ctx, in.RecipeID)
	if err != nil {
		return nil, err
	}
	if recipe == nil {
		return nil, fmt.Errorf("receta %s: %w", in.RecipeID, domain.ErrNotFound)
	}
	if recipe.CompanyID != in.CompanyID {
		return nil, domain.ErrForbidden
	}
	location, err := loadLocation(ctx, uc.locationRepo, in.CompanyID, in.LocationID)
	if err != nil {
		return nil, err
	}

	if in.IdempotencyKey != "" && uc.idempotency != nil {
		key := in.CompanyID + ":" + in.IdempotencyKey
		fingerprint := in.fingerprint()
		// err es el resultado nombrado: el defer de abajo decide con él entre Release y Complete.
		var (
			cached  []byte
			started bool
		)
		cached, started, err = uc.idempotency.Begin(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("idempotencia: %w", err)
		}
		if !started {
			if cached == nil {
				return nil, fmt.Errorf("descuento con clave %q en curso: %w", in.IdempotencyKey, domain.ErrConflict)
			}
			var prev idempotentResult
			if err := json.Unmarshal(cached, &prev); err != nil {
				return nil, fmt.Errorf("idempotencia: resultado almacenado ilegible: %w", err)
			}
			if prev.Fingerprint != fingerprint || prev.Result == nil {
				return nil, fmt.Errorf("clave %q ya usada con otra receta, sede o cantidad: %w", in.IdempotencyKey, domain.ErrConflict)
			}
			uc.metrics.DeductionFinished(ResultReplayed)
			return prev.Result, nil
		}
		defer func() {
			if err != nil {
				if rerr := uc.idempotency.Release(ctx, key); rerr != nil {
					uc.log.Error().Err(rerr).Str("key", in.IdempotencyKey).Msg("no se pudo liberar la clave de idempotencia")
				}
				return
			}
			payload, merr := json.Marshal(idempotentResult{Fingerprint: fingerprint, Result: res})
			if merr == nil {
				merr = uc.idempotency.Complete(ctx, key, payload)
			}
			if merr != nil {
				uc.log.Error().Err(merr).Str("key", in.IdempotencyKey).Msg("no se pudo guardar el resultado idempotente")
			}
		}()
	}

	now := uc.now()
	reference := fmt.Sprintf("RECIPE-%s-%d", recipe.Name, now.UnixMilli())
	var (
		plan inventory.Plan
		reqs []inventory.Requirement
		txs  []*entity.StockTransaction
	)
	err = uc.txRunner.Run(ctx, func(
		invRepo repository.LocationInventoryRepository,
		txRepo repository.StockTransactionRepository,
		materialRepo repository.RawMaterialRepository,
	) error {
		reqs = nil
		txs = nil
		for _, ing := range recipe.Ingredients {
			reqs = append(reqs, inventory.Requirement{
				RawMaterialID: ing.RawMaterialID,
				Unit:          ing.Unit,
				Required:      inventory.ScaleQuantity(ing.Quantity, in.Multiplier),
			})
		}
		reqs = inventory.MergeByMaterial(reqs)

		ids := make([]string, 0, len(reqs))
		for _, r := range reqs {
			ids = append(ids, r.RawMaterialID)
		}
		sort.Strings(ids)

		materials, err := materialRepo.ListByIDs(ctx, ids)
		if err != nil {
			return err
		}
		byID := make(map[string]*entity.RawMaterial, len(materials))
		for _, m := range materials {
			byID[m.ID] = m
		}

		// Filas bloqueadas en orden de materia prima; una fila ausente cuenta como cero disponible.
		rows := make(map[string]*entity.LocationInventory, len(ids))
		for _, id := range ids {
			row, err := invRepo.GetForUpdate(ctx, in.LocationID, id)
			if err != nil {
				return err
			}
			rows[id] = row
		}

		for i := range reqs {
			m, ok := byID[reqs[i].RawMaterialID]
			if !ok || m.CompanyID != in.CompanyID {
				return fmt.Errorf("ingrediente %s de la receta %q: %w", reqs[i].RawMaterialID, recipe.Name, domain.ErrNotFound)
			}
			reqs[i].Material = m.Name
			if reqs[i].Unit == "" {
				reqs[i].Unit = m.Unit
			}
			reqs[i].MinLevel = m.MinLevel
			reqs[i].Available = rows[m.ID].Quantity
		}

		plan = inventory.Classify(reqs)
		if !plan.CanCommit() {
			return insufficientError(plan.Insufficient)
		}

		deductible := inventory.Deductible(reqs)
		for _, r := range deductible {
			ok, err := invRepo.DecrementIfSufficient(ctx, in.LocationID, r.RawMaterialID, r.Required, now)
			if err != nil {
				return err
			}
			if !ok {
				return insufficientError([]inventory.Requirement{r})
			}
			stx := &entity.StockTransaction{
				ID:            uuid.New().String(),
				Type:          entity.TransactionTypeOutward,
				LocationID:    in.LocationID,
				RawMaterialID: r.RawMaterialID,
				Quantity:      r.Required,
				CostPrice:     rows[r.RawMaterialID].CostPrice,
				Reference:     reference,
				Source:        location.Name,
				Destination:   "Recipe: " + recipe.Name,
				BatchNumber:   rows[r.RawMaterialID].BatchNumber,
				UserID:        in.UserID,
				RecipeID:      recipe.ID,
				CreatedAt:     now,
			}
			if err := appendTransaction(ctx, txRepo, stx); err != nil {
				return err
			}
			txs = append(txs, stx)
		}

		required := make(map[string]decimal.Decimal, len(deductible))
		for _, r := range deductible {
			required[r.RawMaterialID] = r.Required
		}
		for _, id := range ids {
			qty, ok := required[id]
			if !ok {
				continue
			}
			m, err := materialRepo.GetForUpdate(ctx, id)
			if err != nil {
				return err
			}
			if m == nil {
				continue
			}
			m.ApplyDelta(qty.Neg())
			m.UpdatedAt = now
			if err := materialRepo.Update(ctx, m); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if ise, ok := IsInsufficient(err); ok {
			uc.metrics.DeductionFinished(ResultInsufficient)
			uc.log.Warn().
				Str("recipe", recipe.Name).
				Str("location_id", in.LocationID).
				Int("insufficient", len(ise.Items)).
				Msg("descuento por receta rechazado por stock insuficiente")
		} else if !errors.Is(err, domain.ErrInvalidInput) {
			uc.metrics.DeductionFinished(ResultError)
		}
		return nil, err
	}

	res = &dto.DeductByRecipeResponse{
		Success:    true,
		Reference:  reference,
		Deductions: make([]dto.Deduction, 0, len(txs)),
	}
	for _, r := range inventory.Deductible(reqs) {
		res.Deductions = append(res.Deductions, dto.Deduction{Material: r.Material, Deducted: r.Required, Unit: r.Unit})
	}
	for _, r := range plan.LowAfter {
		res.LowStockWarnings = append(res.LowStockWarnings, dto.LowStockWarning{
			Material:  r.Material,
			Remaining: r.Remaining(),
			MinLevel:  r.MinLevel,
			Unit:      r.Unit,
		})
	}

	uc.metrics.DeductionFinished(ResultSuccess)
	uc.metrics.TransactionsRecorded(entity.TransactionTypeOutward, len(txs))
	uc.metrics.LowStockWarnings(len(plan.LowAfter))
	uc.log.Info().
		Str("reference", reference).
		Str("recipe_id", recipe.ID).
		Str("location_id", in.LocationID).
		Str("multiplier", in.Multiplier.String()).
		Int("deductions", len(txs)).
		Int("low_stock", len(plan.LowAfter)).
		Msg("descuento por receta aplicado")

	if err := uc.publisher.PublishMovements(ctx, in.CompanyID, txs); err != nil {
		uc.log.Error().Err(err).Str("reference", reference).Msg("no se pudieron publicar los movimientos")
	}
	if events := inventory.LowStockEvents(in.CompanyID, in.LocationID, reference, plan.LowAfter, now); events != nil {
		if err := uc.publisher.PublishLowStock(ctx, events); err != nil {
			uc.log.Error().Err(err).Str("reference", reference).Msg("no se pudieron publicar las alertas de stock bajo")
		}
	}
	return res, nil
}

func insufficientError(reqs []inventory.Requirement) *domain.InsufficientStockError {
	items := make([]domain.InsufficientItem, 0, len(reqs))
	for _, r := range reqs {
		items = append(items, domain.InsufficientItem{
			RawMaterialID: r.RawMaterialID,
			Material:      r.Material,
			Required:      r.Required,
			Available:     r.Available,
			Unit:          r.Unit,
		})
	}
	return &domain.InsufficientStockError{Items: items}
}
