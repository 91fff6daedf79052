package inventory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/cocina-stock-api/internal/application/dto"
	"github.com/jhoicas/cocina-stock-api/internal/domain"
	"github.com/jhoicas/cocina-stock-api/internal/domain/entity"
	"github.com/jhoicas/cocina-stock-api/internal/domain/inventory"
	"github.com/jhoicas/cocina-stock-api/internal/domain/repository"
	"github.com/jhoicas/cocina-stock-api/pkg/logger"
)

const (
	defaultTransactionsLimit = 100
	defaultExpiringDays      = 7
)

// Option configura dependencias opcionales de los casos de uso de inventario.
type Option func(*options)

type options struct {
	publisher       EventPublisher
	metrics         Metrics
	idempotency     IdempotencyStore
	now             func() time.Time
	transactionsMax int
	expiringDays    int
}

// WithPublisher publica movimientos y alertas de stock bajo tras cada commit.
func WithPublisher(p EventPublisher) Option {
	return func(o *options) {
		if p != nil {
			o.publisher = p
		}
	}
}

// WithMetrics registra contadores de descuentos y transacciones.
func WithMetrics(m Metrics) Option {
	return func(o *options) {
		if m != nil {
			o.metrics = m
		}
	}
}

// WithIdempotency habilita claves de idempotencia en descuentos por receta.
func WithIdempotency(s IdempotencyStore) Option {
	return func(o *options) { o.idempotency = s }
}

// WithClock reemplaza time.Now (tests).
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithLimits fija el tope del listado de transacciones y la ventana por defecto de vencimientos.
func WithLimits(transactionsMax, expiringDays int) Option {
	return func(o *options) {
		if transactionsMax > 0 {
			o.transactionsMax = transactionsMax
		}
		if expiringDays > 0 {
			o.expiringDays = expiringDays
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{
		publisher:       nopPublisher{},
		metrics:         nopMetrics{},
		now:             time.Now,
		transactionsMax: 500,
		expiringDays:    defaultExpiringDays,
	}
	for _, fn := range opts {
		fn(&o)
	}
	return o
}

// InventoryUseCase entradas, salidas, traslados y ajustes por sede, siempre dentro de una
// transacción con bloqueo de fila (SELECT FOR UPDATE) y una StockTransaction por mutación.
type InventoryUseCase struct {
	txRunner     TxRunner
	locationRepo repository.LocationRepository
	materialRepo repository.RawMaterialRepository
	invRepo      repository.LocationInventoryRepository
	txLogRepo    repository.StockTransactionRepository
	log          *logger.Logger
	options
}

// NewInventoryUseCase construye el caso de uso.
func NewInventoryUseCase(
	txRunner TxRunner,
	locationRepo repository.LocationRepository,
	materialRepo repository.RawMaterialRepository,
	invRepo repository.LocationInventoryRepository,
	txLogRepo repository.StockTransactionRepository,
	log *logger.Logger,
	opts ...Option,
) *InventoryUseCase {
	return &InventoryUseCase{
		txRunner:     txRunner,
		locationRepo: locationRepo,
		materialRepo: materialRepo,
		invRepo:      invRepo,
		txLogRepo:    txLogRepo,
		log:          log.Component("inventory"),
		options:      buildOptions(opts),
	}
}

// Get devuelve el inventario de la sede con estado calculado sobre la cantidad local.
func (uc *InventoryUseCase) Get(ctx context.Context, companyID, locationID string, filter dto.InventoryFilter) (*dto.InventoryListResponse, error) {
	if filter.Status != "" && !entity.IsValidStockStatus(filter.Status) {
		return nil, domain.NewValidationError("status", "estado desconocido")
	}
	if _, err := loadLocation(ctx, uc.locationRepo, companyID, locationID); err != nil {
		return nil, err
	}
	views, err := uc.invRepo.ListViews(ctx, locationID, repository.InventoryFilter{
		Search:   strings.TrimSpace(filter.Search),
		Category: filter.Category,
	})
	if err != nil {
		return nil, err
	}
	items := make([]dto.InventoryItemResponse, 0, len(views))
	for _, v := range views {
		if filter.Status != "" && v.Status != filter.Status {
			continue
		}
		items = append(items, toInventoryItem(v))
	}
	return &dto.InventoryListResponse{LocationID: locationID, Items: items}, nil
}

// AddStock registra una entrada: crea o incrementa la fila, agrega una transacción inward
// y suma la misma cantidad al agregado de la materia prima.
func (uc *InventoryUseCase) AddStock(ctx context.Context, companyID, userID, locationID string, in dto.AddStockRequest) (*dto.StockMutationResponse, error) {
	verr := &domain.ValidationError{}
	if !in.Quantity.IsPositive() {
		verr.Add("quantity", "debe ser mayor que cero")
	}
	if in.CostPrice != nil && in.CostPrice.IsNegative() {
		verr.Add("cost_price", "no puede ser negativo")
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}
	location, err := loadLocation(ctx, uc.locationRepo, companyID, locationID)
	if err != nil {
		return nil, err
	}
	if _, err := loadMaterial(ctx, uc.materialRepo, companyID, in.RawMaterialID); err != nil {
		return nil, err
	}

	now := uc.now()
	var (
		view entity.InventoryView
		stx  *entity.StockTransaction
	)
	err = uc.txRunner.Run(ctx, func(
		invRepo repository.LocationInventoryRepository,
		txRepo repository.StockTransactionRepository,
		materialRepo repository.RawMaterialRepository,
	) error {
		row, err := invRepo.GetForUpdate(ctx, locationID, in.RawMaterialID)
		if err != nil {
			return err
		}
		material, err := materialRepo.GetForUpdate(ctx, in.RawMaterialID)
		if err != nil {
			return err
		}
		if material == nil {
			return domain.ErrNotFound
		}
		if !row.Exists() {
			row.LocationID = locationID
			row.RawMaterialID = in.RawMaterialID
			row.CostPrice = material.UnitPrice
		}
		row.Quantity = row.Quantity.Add(in.Quantity)
		if in.CostPrice != nil {
			row.CostPrice = *in.CostPrice
		}
		if in.ExpiryDate != nil {
			row.ExpiryDate = in.ExpiryDate
		}
		if in.BatchNumber != nil {
			row.BatchNumber = *in.BatchNumber
		}
		row.LastUpdated = now
		if err := invRepo.Upsert(ctx, row); err != nil {
			return err
		}

		stx = &entity.StockTransaction{
			ID:            uuid.New().String(),
			Type:          entity.TransactionTypeInward,
			LocationID:    locationID,
			RawMaterialID: in.RawMaterialID,
			Quantity:      in.Quantity,
			CostPrice:     row.CostPrice,
			Reference:     orDefault(in.Reference, "Stock entry"),
			Source:        orDefault(in.Source, "Manual entry"),
			Destination:   location.Name,
			BatchNumber:   row.BatchNumber,
			ExpiryDate:    row.ExpiryDate,
			UserID:        userID,
			CreatedAt:     now,
		}
		if err := appendTransaction(ctx, txRepo, stx); err != nil {
			return err
		}

		material.ApplyDelta(in.Quantity)
		material.UpdatedAt = now
		if err := materialRepo.Update(ctx, material); err != nil {
			return err
		}
		view = newView(row, material)
		return nil
	})
	if err != nil {
		return nil, err
	}

	uc.afterCommit(ctx, companyID, []*entity.StockTransaction{stx})
	uc.log.Info().
		Str("location_id", locationID).
		Str("raw_material_id", in.RawMaterialID).
		Str("quantity", in.Quantity.String()).
		Msg("entrada de stock registrada")
	return &dto.StockMutationResponse{Item: toInventoryItem(view), Transaction: toTransactionResponse(stx)}, nil
}

// DeductStock descuenta manualmente una cantidad de la sede. Falla con InsufficientStock si la
// fila no existe o no alcanza; nunca deja cantidades negativas.
func (uc *InventoryUseCase) DeductStock(ctx context.Context, companyID, userID, locationID string, in dto.DeductStockRequest) (*dto.StockMutationResponse, error) {
	if !in.Quantity.IsPositive() {
		return nil, domain.NewValidationError("quantity", "debe ser mayor que cero")
	}
	location, err := loadLocation(ctx, uc.locationRepo, companyID, locationID)
	if err != nil {
		return nil, err
	}
	if _, err := loadMaterial(ctx, uc.materialRepo, companyID, in.RawMaterialID); err != nil {
		return nil, err
	}

	now := uc.now()
	var (
		view entity.InventoryView
		stx  *entity.StockTransaction
	)
	err = uc.txRunner.Run(ctx, func(
		invRepo repository.LocationInventoryRepository,
		txRepo repository.StockTransactionRepository,
		materialRepo repository.RawMaterialRepository,
	) error {
		row, err := invRepo.GetForUpdate(ctx, locationID, in.RawMaterialID)
		if err != nil {
			return err
		}
		material, err := materialRepo.GetForUpdate(ctx, in.RawMaterialID)
		if err != nil {
			return err
		}
		if material == nil {
			return domain.ErrNotFound
		}
		shortage := &domain.InsufficientStockError{Items: []domain.InsufficientItem{{
			RawMaterialID: material.ID,
			Material:      material.Name,
			Required:      in.Quantity,
			Available:     row.Quantity,
			Unit:          material.Unit,
		}}}
		if !row.Exists() || row.Quantity.LessThan(in.Quantity) {
			return shortage
		}
		ok, err := invRepo.DecrementIfSufficient(ctx, locationID, in.RawMaterialID, in.Quantity, now)
		if err != nil {
			return err
		}
		if !ok {
			return shortage
		}
		row.Quantity = row.Quantity.Sub(in.Quantity)
		row.LastUpdated = now

		stx = &entity.StockTransaction{
			ID:            uuid.New().String(),
			Type:          entity.TransactionTypeOutward,
			LocationID:    locationID,
			RawMaterialID: in.RawMaterialID,
			Quantity:      in.Quantity,
			CostPrice:     row.CostPrice,
			Reference:     orDefault(in.Reference, "Manual deduction"),
			Source:        location.Name,
			Destination:   orDefault(in.Destination, "Manual deduction"),
			BatchNumber:   row.BatchNumber,
			UserID:        userID,
			CreatedAt:     now,
		}
		if err := appendTransaction(ctx, txRepo, stx); err != nil {
			return err
		}

		material.ApplyDelta(in.Quantity.Neg())
		material.UpdatedAt = now
		if err := materialRepo.Update(ctx, material); err != nil {
			return err
		}
		view = newView(row, material)
		return nil
	})
	if err != nil {
		return nil, err
	}

	uc.afterCommit(ctx, companyID, []*entity.StockTransaction{stx})
	return &dto.StockMutationResponse{Item: toInventoryItem(view), Transaction: toTransactionResponse(stx)}, nil
}

// Transfer mueve stock entre dos sedes de la empresa. El costo en destino se recalcula con
// promedio ponderado; el agregado de la materia prima no cambia.
func (uc *InventoryUseCase) Transfer(ctx context.Context, companyID, userID string, in dto.TransferStockRequest) (*dto.TransferResponse, error) {
	verr := &domain.ValidationError{}
	if !in.Quantity.IsPositive() {
		verr.Add("quantity", "debe ser mayor que cero")
	}
	if in.FromLocationID == "" || in.ToLocationID == "" {
		verr.Add("to_location_id", "origen y destino son requeridos")
	} else if in.FromLocationID == in.ToLocationID {
		verr.Add("to_location_id", "origen y destino deben ser distintos")
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}
	fromLoc, err := loadLocation(ctx, uc.locationRepo, companyID, in.FromLocationID)
	if err != nil {
		return nil, err
	}
	toLoc, err := loadLocation(ctx, uc.locationRepo, companyID, in.ToLocationID)
	if err != nil {
		return nil, err
	}
	material, err := loadMaterial(ctx, uc.materialRepo, companyID, in.RawMaterialID)
	if err != nil {
		return nil, err
	}

	now := uc.now()
	var (
		fromView, toView entity.InventoryView
		stx              *entity.StockTransaction
	)
	err = uc.txRunner.Run(ctx, func(
		invRepo repository.LocationInventoryRepository,
		txRepo repository.StockTransactionRepository,
		_ repository.RawMaterialRepository,
	) error {
		// Bloqueo en orden de ID de sede para que dos traslados cruzados no se bloqueen mutuamente.
		rows := make(map[string]*entity.LocationInventory, 2)
		for _, id := range sortedIDs(in.FromLocationID, in.ToLocationID) {
			row, err := invRepo.GetForUpdate(ctx, id, in.RawMaterialID)
			if err != nil {
				return err
			}
			rows[id] = row
		}
		origin, dest := rows[in.FromLocationID], rows[in.ToLocationID]
		if !origin.Exists() || origin.Quantity.LessThan(in.Quantity) {
			return &domain.InsufficientStockError{Items: []domain.InsufficientItem{{
				RawMaterialID: material.ID,
				Material:      material.Name,
				Required:      in.Quantity,
				Available:     origin.Quantity,
				Unit:          material.Unit,
			}}}
		}
		if !dest.Exists() {
			dest.LocationID = in.ToLocationID
			dest.RawMaterialID = in.RawMaterialID
			dest.ExpiryDate = origin.ExpiryDate
			dest.BatchNumber = origin.BatchNumber
		}
		dest.CostPrice = inventory.CostCalculator(dest.Quantity, dest.CostPrice, in.Quantity, origin.CostPrice)
		dest.Quantity = dest.Quantity.Add(in.Quantity)
		origin.Quantity = origin.Quantity.Sub(in.Quantity)
		origin.LastUpdated = now
		dest.LastUpdated = now
		if err := invRepo.Upsert(ctx, origin); err != nil {
			return err
		}
		if err := invRepo.Upsert(ctx, dest); err != nil {
			return err
		}

		stx = &entity.StockTransaction{
			ID:                    uuid.New().String(),
			Type:                  entity.TransactionTypeTransfer,
			LocationID:            in.FromLocationID,
			RawMaterialID:         in.RawMaterialID,
			Quantity:              in.Quantity,
			CostPrice:             origin.CostPrice,
			Reference:             orDefault(in.Reference, fmt.Sprintf("TRANSFER-%d", now.UnixMilli())),
			Source:                fromLoc.Name,
			Destination:           toLoc.Name,
			SourceLocationID:      in.FromLocationID,
			DestinationLocationID: in.ToLocationID,
			BatchNumber:           origin.BatchNumber,
			UserID:                userID,
			CreatedAt:             now,
		}
		if err := appendTransaction(ctx, txRepo, stx); err != nil {
			return err
		}
		fromView = newView(origin, material)
		toView = newView(dest, material)
		return nil
	})
	if err != nil {
		return nil, err
	}

	uc.afterCommit(ctx, companyID, []*entity.StockTransaction{stx})
	return &dto.TransferResponse{
		From:        toInventoryItem(fromView),
		To:          toInventoryItem(toView),
		Transaction: toTransactionResponse(stx),
	}, nil
}

// Adjust fija la fila a la cantidad contada físicamente y registra la diferencia como adjustment.
func (uc *InventoryUseCase) Adjust(ctx context.Context, companyID, userID, locationID string, in dto.AdjustStockRequest) (*dto.StockMutationResponse, error) {
	verr := &domain.ValidationError{}
	if in.CountedQuantity.IsNegative() {
		verr.Add("counted_quantity", "no puede ser negativa")
	}
	if strings.TrimSpace(in.Reason) == "" {
		verr.Add("reason", "requerido")
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}
	location, err := loadLocation(ctx, uc.locationRepo, companyID, locationID)
	if err != nil {
		return nil, err
	}
	if _, err := loadMaterial(ctx, uc.materialRepo, companyID, in.RawMaterialID); err != nil {
		return nil, err
	}

	now := uc.now()
	var (
		view entity.InventoryView
		stx  *entity.StockTransaction
	)
	err = uc.txRunner.Run(ctx, func(
		invRepo repository.LocationInventoryRepository,
		txRepo repository.StockTransactionRepository,
		materialRepo repository.RawMaterialRepository,
	) error {
		row, err := invRepo.GetForUpdate(ctx, locationID, in.RawMaterialID)
		if err != nil {
			return err
		}
		material, err := materialRepo.GetForUpdate(ctx, in.RawMaterialID)
		if err != nil {
			return err
		}
		if material == nil {
			return domain.ErrNotFound
		}
		delta := in.CountedQuantity.Sub(row.Quantity)
		if delta.IsZero() {
			return domain.NewValidationError("counted_quantity", "coincide con la cantidad registrada; no hay ajuste")
		}
		if !row.Exists() {
			row.LocationID = locationID
			row.RawMaterialID = in.RawMaterialID
			row.CostPrice = material.UnitPrice
		}
		direction := entity.AdjustmentIncrease
		if delta.IsNegative() {
			direction = entity.AdjustmentDecrease
		}
		row.Quantity = in.CountedQuantity
		row.LastUpdated = now
		if err := invRepo.Upsert(ctx, row); err != nil {
			return err
		}

		stx = &entity.StockTransaction{
			ID:            uuid.New().String(),
			Type:          entity.TransactionTypeAdjustment,
			LocationID:    locationID,
			RawMaterialID: in.RawMaterialID,
			Quantity:      delta.Abs(),
			CostPrice:     row.CostPrice,
			Reference:     strings.TrimSpace(in.Reason),
			Source:        "Stock count",
			Destination:   location.Name,
			Direction:     direction,
			BatchNumber:   row.BatchNumber,
			UserID:        userID,
			CreatedAt:     now,
		}
		if err := appendTransaction(ctx, txRepo, stx); err != nil {
			return err
		}

		material.ApplyDelta(delta)
		material.UpdatedAt = now
		if err := materialRepo.Update(ctx, material); err != nil {
			return err
		}
		view = newView(row, material)
		return nil
	})
	if err != nil {
		return nil, err
	}

	uc.afterCommit(ctx, companyID, []*entity.StockTransaction{stx})
	return &dto.StockMutationResponse{Item: toInventoryItem(view), Transaction: toTransactionResponse(stx)}, nil
}

// ListTransactions devuelve el libro de movimientos de la empresa, más recientes primero.
func (uc *InventoryUseCase) ListTransactions(ctx context.Context, companyID string, filter dto.TransactionFilter) (*dto.TransactionListResponse, error) {
	if filter.Type != "" && !entity.IsValidTransactionType(filter.Type) {
		return nil, domain.NewValidationError("type", "tipo de transacción inválido")
	}
	if filter.From != nil && filter.To != nil && filter.From.After(*filter.To) {
		return nil, domain.NewValidationError("from", "debe ser anterior a to")
	}
	if filter.LocationID != "" {
		if _, err := loadLocation(ctx, uc.locationRepo, companyID, filter.LocationID); err != nil {
			return nil, err
		}
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultTransactionsLimit
	}
	if limit > uc.transactionsMax {
		limit = uc.transactionsMax
	}
	list, err := uc.txLogRepo.List(ctx, repository.TransactionFilter{
		CompanyID:     companyID,
		Type:          filter.Type,
		LocationID:    filter.LocationID,
		RawMaterialID: filter.RawMaterialID,
		From:          filter.From,
		To:            filter.To,
		Limit:         limit,
	})
	if err != nil {
		return nil, err
	}
	items := make([]dto.StockTransactionResponse, 0, len(list))
	for _, t := range list {
		items = append(items, toTransactionResponse(t))
	}
	return &dto.TransactionListResponse{Items: items}, nil
}

// LowStock filas con cantidad en o bajo el nivel mínimo; locationID vacío = todas las sedes.
func (uc *InventoryUseCase) LowStock(ctx context.Context, companyID, locationID string) ([]dto.InventoryItemResponse, error) {
	if locationID != "" {
		if _, err := loadLocation(ctx, uc.locationRepo, companyID, locationID); err != nil {
			return nil, err
		}
	}
	views, err := uc.invRepo.ListLowStock(ctx, companyID, locationID)
	if err != nil {
		return nil, err
	}
	return toInventoryItems(views), nil
}

// Expiring filas con stock que vencen dentro de los próximos days días (days <= 0 usa el valor por defecto).
func (uc *InventoryUseCase) Expiring(ctx context.Context, companyID, locationID string, days int) ([]dto.InventoryItemResponse, error) {
	if locationID != "" {
		if _, err := loadLocation(ctx, uc.locationRepo, companyID, locationID); err != nil {
			return nil, err
		}
	}
	if days <= 0 {
		days = uc.expiringDays
	}
	from := uc.now()
	until := from.AddDate(0, 0, days)
	views, err := uc.invRepo.ListExpiring(ctx, companyID, locationID, from, until)
	if err != nil {
		return nil, err
	}
	return toInventoryItems(views), nil
}

// Replenishment lista de pedido para las filas bajo mínimo: se sugiere llevar cada fila a
// 1.5 veces su nivel mínimo. Prioridad 1 = mayor déficit.
func (uc *InventoryUseCase) Replenishment(ctx context.Context, companyID, locationID string) ([]dto.ReplenishmentSuggestionDTO, error) {
	if locationID != "" {
		if _, err := loadLocation(ctx, uc.locationRepo, companyID, locationID); err != nil {
			return nil, err
		}
	}
	views, err := uc.invRepo.ListLowStock(ctx, companyID, locationID)
	if err != nil {
		return nil, err
	}
	if len(views) == 0 {
		return []dto.ReplenishmentSuggestionDTO{}, nil
	}

	names := make(map[string]string)
	factor := decimal.NewFromFloat(1.5)
	suggestions := make([]dto.ReplenishmentSuggestionDTO, 0, len(views))
	for _, v := range views {
		locName, ok := names[v.Inventory.LocationID]
		if !ok {
			loc, err := uc.locationRepo.GetByID(ctx, v.Inventory.LocationID)
			if err != nil {
				return nil, err
			}
			if loc != nil {
				locName = loc.Name
			}
			names[v.Inventory.LocationID] = locName
		}

		ideal := v.Material.MinLevel.Mul(factor)
		suggested := ideal.Sub(v.Inventory.Quantity)
		if suggested.IsNegative() {
			suggested = decimal.Zero
		}
		unitCost := v.Inventory.CostPrice
		if unitCost.IsZero() {
			unitCost = v.Material.UnitPrice
		}
		suggestions = append(suggestions, dto.ReplenishmentSuggestionDTO{
			LocationID:         v.Inventory.LocationID,
			LocationName:       locName,
			RawMaterialID:      v.Material.ID,
			MaterialName:       v.Material.Name,
			Unit:               v.Material.Unit,
			CurrentStock:       v.Inventory.Quantity,
			MinLevel:           v.Material.MinLevel,
			IdealStock:         ideal,
			SuggestedOrderQty:  suggested,
			UnitCost:           unitCost,
			EstimatedOrderCost: suggested.Mul(unitCost),
		})
	}

	sort.SliceStable(suggestions, func(i, j int) bool {
		a, b := suggestions[i], suggestions[j]
		defA := a.MinLevel.Sub(a.CurrentStock)
		defB := b.MinLevel.Sub(b.CurrentStock)
		if !defA.Equal(defB) {
			return defA.GreaterThan(defB)
		}
		return a.MaterialName < b.MaterialName
	})
	for i := range suggestions {
		suggestions[i].Priority = i + 1
	}
	return suggestions, nil
}

// ReconcileAggregates recalcula el agregado de cada materia prima como la suma de sus sedes.
func (uc *InventoryUseCase) ReconcileAggregates(ctx context.Context, companyID string) (*dto.ReconcileResponse, error) {
	now := uc.now()
	out := &dto.ReconcileResponse{Corrected: []dto.ReconcileItem{}}
	err := uc.txRunner.Run(ctx, func(
		invRepo repository.LocationInventoryRepository,
		_ repository.StockTransactionRepository,
		materialRepo repository.RawMaterialRepository,
	) error {
		materials, err := materialRepo.ListByCompany(ctx, companyID)
		if err != nil {
			return err
		}
		out.Checked = len(materials)
		sums, err := invRepo.SumByMaterial(ctx, companyID)
		if err != nil {
			return err
		}
		for _, m := range materials {
			total := sums[m.ID]
			if total.Equal(m.Quantity) {
				continue
			}
			locked, err := materialRepo.GetForUpdate(ctx, m.ID)
			if err != nil {
				return err
			}
			if locked == nil {
				continue
			}
			if total.Equal(locked.Quantity) {
				continue
			}
			prev := locked.Quantity
			locked.Quantity = total
			locked.RefreshStatus()
			locked.UpdatedAt = now
			if err := materialRepo.Update(ctx, locked); err != nil {
				return err
			}
			out.Corrected = append(out.Corrected, dto.ReconcileItem{
				RawMaterialID: locked.ID,
				Name:          locked.Name,
				Previous:      prev,
				Current:       total,
				Status:        locked.Status,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(out.Corrected) > 0 {
		uc.log.Warn().Str("company_id", companyID).Int("corrected", len(out.Corrected)).Msg("agregados de materias primas corregidos")
	}
	return out, nil
}

func (uc *InventoryUseCase) afterCommit(ctx context.Context, companyID string, txs []*entity.StockTransaction) {
	for _, t := range txs {
		uc.metrics.TransactionsRecorded(t.Type, 1)
	}
	if err := uc.publisher.PublishMovements(ctx, companyID, txs); err != nil {
		uc.log.Error().Err(err).Msg("no se pudo publicar el movimiento de stock")
	}
}

// loadLocation trae la sede y comprueba que sea de la empresa.
func loadLocation(ctx context.Context, repo repository.LocationRepository, companyID, id string) (*entity.Location, error) {
	if id == "" {
		return nil, domain.NewValidationError("location_id", "requerido")
	}
	loc, err := repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if loc == nil {
		return nil, fmt.Errorf("sede %s: %w", id, domain.ErrNotFound)
	}
	if loc.CompanyID != companyID {
		return nil, domain.ErrForbidden
	}
	return loc, nil
}

// loadMaterial trae la materia prima y comprueba que sea de la empresa.
func loadMaterial(ctx context.Context, repo repository.RawMaterialRepository, companyID, id string) (*entity.RawMaterial, error) {
	if id == "" {
		return nil, domain.NewValidationError("raw_material_id", "requerido")
	}
	m, err := repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, fmt.Errorf("materia prima %s: %w", id, domain.ErrNotFound)
	}
	if m.CompanyID != companyID {
		return nil, domain.ErrForbidden
	}
	return m, nil
}

// appendTransaction valida la transacción según su tipo y la inserta.
func appendTransaction(ctx context.Context, repo repository.StockTransactionRepository, t *entity.StockTransaction) error {
	if errs := t.Validate(); len(errs) > 0 {
		return &domain.ValidationError{Fields: errs}
	}
	if err := repo.Create(ctx, t); err != nil {
		return fmt.Errorf("registrar transacción %s: %w", t.Type, err)
	}
	return nil
}

func newView(row *entity.LocationInventory, m *entity.RawMaterial) entity.InventoryView {
	return entity.InventoryView{
		Inventory: *row,
		Material:  *m,
		Status:    entity.DeriveStockStatus(row.Quantity, m.MinLevel),
	}
}

func sortedIDs(ids ...string) []string {
	out := append([]string(nil), ids...)
	sort.Strings(out)
	return out
}

func orDefault(s, def string) string {
	if s = strings.TrimSpace(s); s != "" {
		return s
	}
	return def
}

// IsInsufficient indica si err es un faltante de stock y devuelve su detalle.
func IsInsufficient(err error) (*domain.InsufficientStockError, bool) {
	var ise *domain.InsufficientStockError
	if errors.As(err, &ise) {
		return ise, true
	}
	return nil, false
}

func toInventoryItem(v entity.InventoryView) dto.InventoryItemResponse {
	return dto.InventoryItemResponse{
		ID:            v.Inventory.ID,
		LocationID:    v.Inventory.LocationID,
		RawMaterialID: v.Inventory.RawMaterialID,
		MaterialName:  v.Material.Name,
		Category:      v.Material.Category,
		Unit:          v.Material.Unit,
		Quantity:      v.Inventory.Quantity,
		MinLevel:      v.Material.MinLevel,
		CostPrice:     v.Inventory.CostPrice,
		ExpiryDate:    v.Inventory.ExpiryDate,
		BatchNumber:   v.Inventory.BatchNumber,
		Status:        v.Status,
		LastUpdated:   v.Inventory.LastUpdated,
	}
}

func toInventoryItems(views []entity.InventoryView) []dto.InventoryItemResponse {
	items := make([]dto.InventoryItemResponse, 0, len(views))
	for _, v := range views {
		items = append(items, toInventoryItem(v))
	}
	return items
}

func toTransactionResponse(t *entity.StockTransaction) dto.StockTransactionResponse {
	if t == nil {
		return dto.StockTransactionResponse{}
	}
	return dto.StockTransactionResponse{
		ID:                    t.ID,
		Type:                  t.Type,
		LocationID:            t.LocationID,
		RawMaterialID:         t.RawMaterialID,
		Quantity:              t.Quantity,
		CostPrice:             t.CostPrice,
		Reference:             t.Reference,
		Source:                t.Source,
		Destination:           t.Destination,
		SourceLocationID:      t.SourceLocationID,
		DestinationLocationID: t.DestinationLocationID,
		Direction:             t.Direction,
		BatchNumber:           t.BatchNumber,
		ExpiryDate:            t.ExpiryDate,
		UserID:                t.UserID,
		RecipeID:              t.RecipeID,
		CreatedAt:             t.CreatedAt,
	}
}
