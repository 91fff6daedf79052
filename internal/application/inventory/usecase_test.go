package inventory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/cocina-stock-api/internal/application/dto"
	"github.com/jhoicas/cocina-stock-api/internal/domain"
	"github.com/jhoicas/cocina-stock-api/internal/domain/entity"
	"github.com/jhoicas/cocina-stock-api/internal/domain/repository"
)

func TestAddStock_DosEntradasSumanEnUnaFila(t *testing.T) {
	f := newFixture(t)
	f.material(t, "onions", "g", "0")

	f.stock(t, "onions", "100")
	f.stock(t, "onions", "100")

	views, err := f.store.Inventory().ListViews(context.Background(), f.locationID, repository.InventoryFilter{})
	require.NoError(t, err)
	require.Len(t, views, 1, "una sola fila por sede y materia prima")
	assertDec(t, "200", views[0].Inventory.Quantity, "fila")
	assertDec(t, "200", f.aggregate(t, "onions").Quantity, "agregado")

	ins := f.transactions(t, entity.TransactionTypeInward)
	require.Len(t, ins, 2)
	for _, tx := range ins {
		assertDec(t, "100", tx.Quantity, "cada entrada registra su delta")
		assert.Equal(t, "Cocina Centro", tx.Destination)
	}
}

func TestAddStock_SobrescribeSoloLoSuministrado(t *testing.T) {
	f := newFixture(t)
	f.material(t, "onions", "g", "0")
	ctx := context.Background()
	exp := fixedNow.AddDate(0, 0, 5)
	batch := "L-001"
	cost := dec("2.5")

	_, err := f.inv.AddStock(ctx, companyID, userID, f.locationID, dto.AddStockRequest{
		RawMaterialID: f.materials["onions"].ID, Quantity: dec("10"), CostPrice: &cost, ExpiryDate: &exp, BatchNumber: &batch,
	})
	require.NoError(t, err)
	res, err := f.inv.AddStock(ctx, companyID, userID, f.locationID, dto.AddStockRequest{
		RawMaterialID: f.materials["onions"].ID, Quantity: dec("5"),
	})
	require.NoError(t, err)

	assertDec(t, "15", res.Item.Quantity, "cantidad")
	assertDec(t, "2.5", res.Item.CostPrice, "costo conservado")
	require.NotNil(t, res.Item.ExpiryDate)
	assert.True(t, exp.Equal(*res.Item.ExpiryDate))
	assert.Equal(t, "L-001", res.Item.BatchNumber)
}

func TestAddStock_FilaNuevaTomaPrecioDeCatalogo(t *testing.T) {
	f := newFixture(t)
	f.material(t, "onions", "g", "0")
	f.stock(t, "onions", "10")
	assertDec(t, "0.01", f.row(t, "onions").CostPrice, "precio de catálogo")
}

func TestAddStock_Validaciones(t *testing.T) {
	f := newFixture(t)
	f.material(t, "onions", "g", "0")
	ctx := context.Background()

	_, err := f.inv.AddStock(ctx, companyID, userID, f.locationID, dto.AddStockRequest{RawMaterialID: f.materials["onions"].ID, Quantity: dec("0")})
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))

	_, err = f.inv.AddStock(ctx, companyID, userID, "no-existe", dto.AddStockRequest{RawMaterialID: f.materials["onions"].ID, Quantity: dec("1")})
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	_, err = f.inv.AddStock(ctx, companyID, userID, f.locationID, dto.AddStockRequest{RawMaterialID: "no-existe", Quantity: dec("1")})
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	_, err = f.inv.AddStock(ctx, "otra", userID, f.locationID, dto.AddStockRequest{RawMaterialID: f.materials["onions"].ID, Quantity: dec("1")})
	assert.True(t, errors.Is(err, domain.ErrForbidden))
}

// Cada mutación exitosa deja exactamente una transacción con el delta aplicado a la fila.
func TestMutaciones_UnaTransaccionPorDelta(t *testing.T) {
	f := newFixture(t)
	f.material(t, "onions", "g", "0")
	ctx := context.Background()
	id := f.materials["onions"].ID

	f.stock(t, "onions", "50")
	before := f.row(t, "onions").Quantity
	res, err := f.inv.DeductStock(ctx, companyID, userID, f.locationID, dto.DeductStockRequest{RawMaterialID: id, Quantity: dec("20"), Reference: "merma"})
	require.NoError(t, err)
	after := f.row(t, "onions").Quantity

	assert.True(t, before.Sub(after).Equal(res.Transaction.Quantity))
	assert.Equal(t, entity.TransactionTypeOutward, res.Transaction.Type)
	assert.Equal(t, "merma", res.Transaction.Reference)
	assert.NotEmpty(t, res.Transaction.Destination)
	assert.Len(t, f.transactions(t, ""), 2)
	assertDec(t, "30", f.aggregate(t, "onions").Quantity, "agregado")
}

func TestDeductStock_FilaAusenteOInsuficiente(t *testing.T) {
	f := newFixture(t)
	f.material(t, "onions", "g", "0")
	ctx := context.Background()
	id := f.materials["onions"].ID

	_, err := f.inv.DeductStock(ctx, companyID, userID, f.locationID, dto.DeductStockRequest{RawMaterialID: id, Quantity: dec("1")})
	assert.True(t, errors.Is(err, domain.ErrInsufficientStock), "sin fila")

	f.stock(t, "onions", "5")
	_, err = f.inv.DeductStock(ctx, companyID, userID, f.locationID, dto.DeductStockRequest{RawMaterialID: id, Quantity: dec("6")})
	var ise *domain.InsufficientStockError
	require.True(t, errors.As(err, &ise))
	assertDec(t, "5", ise.Items[0].Available, "disponible")
	assertDec(t, "5", f.row(t, "onions").Quantity, "sin cambios")
	assert.Empty(t, f.transactions(t, entity.TransactionTypeOutward))
}

func TestTransfer_MueveStockYPromediaCosto(t *testing.T) {
	f := newFixture(t)
	f.material(t, "onions", "g", "0")
	ctx := context.Background()
	id := f.materials["onions"].ID
	require.NoError(t, f.store.Locations().Create(ctx, &entity.Location{ID: "loc-norte", CompanyID: companyID, Name: "Cocina Norte"}))

	costA, costB := dec("2"), dec("4")
	_, err := f.inv.AddStock(ctx, companyID, userID, f.locationID, dto.AddStockRequest{RawMaterialID: id, Quantity: dec("100"), CostPrice: &costA})
	require.NoError(t, err)
	_, err = f.inv.AddStock(ctx, companyID, userID, "loc-norte", dto.AddStockRequest{RawMaterialID: id, Quantity: dec("100"), CostPrice: &costB})
	require.NoError(t, err)

	res, err := f.inv.Transfer(ctx, companyID, userID, dto.TransferStockRequest{
		RawMaterialID: id, FromLocationID: f.locationID, ToLocationID: "loc-norte", Quantity: dec("100"),
	})
	require.NoError(t, err)

	assertDec(t, "0", res.From.Quantity, "origen")
	assertDec(t, "200", res.To.Quantity, "destino")
	assertDec(t, "3", res.To.CostPrice, "promedio ponderado")
	assert.Equal(t, entity.TransactionTypeTransfer, res.Transaction.Type)
	assert.Equal(t, f.locationID, res.Transaction.SourceLocationID)
	assert.Equal(t, "loc-norte", res.Transaction.DestinationLocationID)
	assertDec(t, "200", f.aggregate(t, "onions").Quantity, "el agregado no cambia")
	assert.Len(t, f.transactions(t, entity.TransactionTypeTransfer), 1)

	_, err = f.inv.Transfer(ctx, companyID, userID, dto.TransferStockRequest{
		RawMaterialID: id, FromLocationID: f.locationID, ToLocationID: "loc-norte", Quantity: dec("1"),
	})
	assert.True(t, errors.Is(err, domain.ErrInsufficientStock))

	_, err = f.inv.Transfer(ctx, companyID, userID, dto.TransferStockRequest{
		RawMaterialID: id, FromLocationID: "loc-norte", ToLocationID: "loc-norte", Quantity: dec("1"),
	})
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))
}

func TestAdjust_RegistraDiferenciaYDireccion(t *testing.T) {
	f := newFixture(t)
	f.material(t, "onions", "g", "0")
	ctx := context.Background()
	id := f.materials["onions"].ID
	f.stock(t, "onions", "100")

	res, err := f.inv.Adjust(ctx, companyID, userID, f.locationID, dto.AdjustStockRequest{RawMaterialID: id, CountedQuantity: dec("92"), Reason: "conteo semanal"})
	require.NoError(t, err)
	assertDec(t, "92", res.Item.Quantity, "fila")
	assertDec(t, "8", res.Transaction.Quantity, "delta")
	assert.Equal(t, entity.AdjustmentDecrease, res.Transaction.Direction)
	assertDec(t, "92", f.aggregate(t, "onions").Quantity, "agregado")

	res, err = f.inv.Adjust(ctx, companyID, userID, f.locationID, dto.AdjustStockRequest{RawMaterialID: id, CountedQuantity: dec("95"), Reason: "recuento"})
	require.NoError(t, err)
	assert.Equal(t, entity.AdjustmentIncrease, res.Transaction.Direction)

	_, err = f.inv.Adjust(ctx, companyID, userID, f.locationID, dto.AdjustStockRequest{RawMaterialID: id, CountedQuantity: dec("95"), Reason: "igual"})
	assert.True(t, errors.Is(err, domain.ErrInvalidInput), "sin diferencia no hay ajuste")

	_, err = f.inv.Adjust(ctx, companyID, userID, f.locationID, dto.AdjustStockRequest{RawMaterialID: id, CountedQuantity: dec("1")})
	assert.True(t, errors.Is(err, domain.ErrInvalidInput), "motivo requerido")
}

func TestGet_FiltraPorEstadoLocal(t *testing.T) {
	f := newFixture(t)
	f.material(t, "onions", "g", "100")
	f.material(t, "rice", "kg", "5")
	f.stock(t, "onions", "50")
	f.stock(t, "rice", "20")

	all, err := f.inv.Get(context.Background(), companyID, f.locationID, dto.InventoryFilter{})
	require.NoError(t, err)
	assert.Len(t, all.Items, 2)

	low, err := f.inv.Get(context.Background(), companyID, f.locationID, dto.InventoryFilter{Status: entity.StockStatusLowStock})
	require.NoError(t, err)
	require.Len(t, low.Items, 1)
	assert.Equal(t, "onions", low.Items[0].MaterialName)

	found, err := f.inv.Get(context.Background(), companyID, f.locationID, dto.InventoryFilter{Search: "RIC"})
	require.NoError(t, err)
	require.Len(t, found.Items, 1)
	assert.Equal(t, entity.StockStatusInStock, found.Items[0].Status)

	_, err = f.inv.Get(context.Background(), companyID, f.locationID, dto.InventoryFilter{Status: "Agotado"})
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))
}

func TestLowStockYReplenishment(t *testing.T) {
	f := newFixture(t)
	f.material(t, "onions", "g", "100")
	f.material(t, "garlic", "g", "40")
	f.material(t, "rice", "kg", "5")
	f.stock(t, "onions", "40")
	f.stock(t, "garlic", "30")
	f.stock(t, "rice", "20")

	low, err := f.inv.LowStock(context.Background(), companyID, "")
	require.NoError(t, err)
	assert.Len(t, low, 2)

	list, err := f.inv.Replenishment(context.Background(), companyID, f.locationID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "onions", list[0].MaterialName, "mayor déficit primero")
	assert.Equal(t, 1, list[0].Priority)
	assertDec(t, "150", list[0].IdealStock, "mínimo * 1.5")
	assertDec(t, "110", list[0].SuggestedOrderQty, "ideal - actual")
	assertDec(t, "1.1", list[0].EstimatedOrderCost, "cantidad * costo")
	assert.Equal(t, "Cocina Centro", list[0].LocationName)
	assert.Equal(t, "garlic", list[1].MaterialName)
}

func TestExpiring_VentanaDeDias(t *testing.T) {
	f := newFixture(t)
	f.material(t, "milk", "l", "0")
	f.material(t, "cream", "l", "0")
	ctx := context.Background()
	soon := fixedNow.Add(48 * time.Hour)
	later := fixedNow.AddDate(0, 0, 30)
	_, err := f.inv.AddStock(ctx, companyID, userID, f.locationID, dto.AddStockRequest{RawMaterialID: f.materials["milk"].ID, Quantity: dec("5"), ExpiryDate: &soon})
	require.NoError(t, err)
	_, err = f.inv.AddStock(ctx, companyID, userID, f.locationID, dto.AddStockRequest{RawMaterialID: f.materials["cream"].ID, Quantity: dec("5"), ExpiryDate: &later})
	require.NoError(t, err)

	items, err := f.inv.Expiring(ctx, companyID, "", 7)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "milk", items[0].MaterialName)

	items, err = f.inv.Expiring(ctx, companyID, f.locationID, 31)
	require.NoError(t, err)
	assert.Len(t, items, 2)
}

func TestReconcileAggregates_CorrigeDesvios(t *testing.T) {
	f := newFixture(t)
	f.material(t, "onions", "g", "0")
	f.material(t, "rice", "kg", "0")
	f.stock(t, "onions", "100")
	f.stock(t, "rice", "10")

	m := f.aggregate(t, "onions")
	m.Quantity = dec("999")
	require.NoError(t, f.store.RawMaterials().Update(context.Background(), m))

	res, err := f.inv.ReconcileAggregates(context.Background(), companyID)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Checked)
	require.Len(t, res.Corrected, 1)
	assertDec(t, "999", res.Corrected[0].Previous, "antes")
	assertDec(t, "100", res.Corrected[0].Current, "después")
	assertDec(t, "100", f.aggregate(t, "onions").Quantity, "agregado corregido")
}

func TestListTransactions_MasRecientesPrimeroYFiltros(t *testing.T) {
	f := newFixture(t)
	f.material(t, "onions", "g", "0")
	f.material(t, "rice", "kg", "0")
	f.stock(t, "onions", "10")
	f.stock(t, "rice", "10")
	_, err := f.inv.DeductStock(context.Background(), companyID, userID, f.locationID, dto.DeductStockRequest{RawMaterialID: f.materials["rice"].ID, Quantity: dec("1")})
	require.NoError(t, err)

	all, err := f.inv.ListTransactions(context.Background(), companyID, dto.TransactionFilter{})
	require.NoError(t, err)
	require.Len(t, all.Items, 3)
	assert.Equal(t, entity.TransactionTypeOutward, all.Items[0].Type)

	rice, err := f.inv.ListTransactions(context.Background(), companyID, dto.TransactionFilter{RawMaterialID: f.materials["rice"].ID, Type: entity.TransactionTypeInward})
	require.NoError(t, err)
	assert.Len(t, rice.Items, 1)

	limited, err := f.inv.ListTransactions(context.Background(), companyID, dto.TransactionFilter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited.Items, 1)

	_, err = f.inv.ListTransactions(context.Background(), companyID, dto.TransactionFilter{Type: "gift"})
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))
}
