package entity_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/jhoicas/cocina-stock-api/internal/domain/entity"
)

func TestDeriveStockStatus(t *testing.T) {
	cases := []struct {
		qty, min string
		want     string
	}{
		{"0", "10", entity.StockStatusOutOfStock},
		{"0", "0", entity.StockStatusOutOfStock},
		{"5", "10", entity.StockStatusLowStock},
		{"10", "10", entity.StockStatusLowStock},
		{"10.01", "10", entity.StockStatusInStock},
		{"1", "0", entity.StockStatusInStock},
	}
	for _, c := range cases {
		got := entity.DeriveStockStatus(decimal.RequireFromString(c.qty), decimal.RequireFromString(c.min))
		assert.Equal(t, c.want, got, "qty=%s min=%s", c.qty, c.min)
	}
}

func TestApplyStockOperation_SubtractNuncaNegativo(t *testing.T) {
	m := &entity.RawMaterial{Quantity: decimal.NewFromInt(30), MinLevel: decimal.NewFromInt(5)}

	ok := m.ApplyStockOperation(decimal.NewFromInt(50), entity.StockOperationSubtract)

	assert.True(t, ok)
	assert.True(t, m.Quantity.IsZero())
	assert.Equal(t, entity.StockStatusOutOfStock, m.Status)
}

func TestApplyStockOperation_SetYAdd(t *testing.T) {
	m := &entity.RawMaterial{MinLevel: decimal.NewFromInt(5)}

	m.ApplyStockOperation(decimal.NewFromInt(4), entity.StockOperationSet)
	assert.Equal(t, entity.StockStatusLowStock, m.Status)

	m.ApplyStockOperation(decimal.NewFromInt(10), entity.StockOperationAdd)
	assert.True(t, m.Quantity.Equal(decimal.NewFromInt(14)))
	assert.Equal(t, entity.StockStatusInStock, m.Status)

	assert.False(t, m.ApplyStockOperation(decimal.NewFromInt(1), "multiply"))
}

func TestStockTransactionValidate_Transfer(t *testing.T) {
	tx := entity.StockTransaction{
		Type:             entity.TransactionTypeTransfer,
		LocationID:       "loc-a",
		RawMaterialID:    "mat",
		Quantity:         decimal.NewFromInt(1),
		Reference:        "TR-1",
		SourceLocationID: "loc-a",
	}
	errs := tx.Validate()
	assert.Contains(t, errs, "destination_location_id")

	tx.DestinationLocationID = "loc-a"
	assert.Contains(t, tx.Validate(), "destination_location_id")

	tx.DestinationLocationID = "loc-b"
	assert.Empty(t, tx.Validate())
}

func TestFoldName_IgnoraMayusculasYEspacios(t *testing.T) {
	assert.Equal(t, entity.FoldName("Cebolla  Roja"), entity.FoldName(" cebolla roja "))
	assert.NotEqual(t, entity.FoldName("cebolla"), entity.FoldName("cebollas"))
	assert.Equal(t, entity.FoldName("Straße"), entity.FoldName("STRASSE"), "ß se pliega a ss")
}
