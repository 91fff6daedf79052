package inventory_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/cocina-stock-api/internal/domain/inventory"
)

func d(v string) decimal.Decimal { return decimal.RequireFromString(v) }

func TestClassify_ParticionaEnTresGrupos(t *testing.T) {
	reqs := []inventory.Requirement{
		{RawMaterialID: "onion", Material: "onions", Required: d("400"), Available: d("300"), MinLevel: d("100"), Unit: "g"},
		{RawMaterialID: "salt", Material: "salt", Required: d("10"), Available: d("50"), MinLevel: d("40"), Unit: "g"},
		{RawMaterialID: "oil", Material: "oil", Required: d("20"), Available: d("1000"), MinLevel: d("100"), Unit: "ml"},
	}

	plan := inventory.Classify(reqs)

	require.Len(t, plan.Insufficient, 1)
	assert.Equal(t, "onion", plan.Insufficient[0].RawMaterialID)
	require.Len(t, plan.LowAfter, 1)
	assert.Equal(t, "salt", plan.LowAfter[0].RawMaterialID)
	require.Len(t, plan.Sufficient, 1)
	assert.Equal(t, "oil", plan.Sufficient[0].RawMaterialID)
	assert.False(t, plan.CanCommit())
}

func TestClassify_RemanenteIgualAlMinimoEsAdvertencia(t *testing.T) {
	plan := inventory.Classify([]inventory.Requirement{
		{RawMaterialID: "onion", Required: d("200"), Available: d("500"), MinLevel: d("300")},
	})
	assert.True(t, plan.CanCommit())
	assert.Len(t, plan.LowAfter, 1)
}

func TestClassify_RequeridoCeroEsSuficienteSinMovimiento(t *testing.T) {
	reqs := []inventory.Requirement{
		{RawMaterialID: "garnish", Required: decimal.Zero, Available: decimal.Zero, MinLevel: d("5")},
	}
	plan := inventory.Classify(reqs)

	assert.True(t, plan.CanCommit())
	assert.Empty(t, plan.LowAfter)
	assert.Len(t, plan.Sufficient, 1)
	assert.Empty(t, inventory.Deductible(reqs))
}

func TestMergeByMaterial_SumaRepetidos(t *testing.T) {
	merged := inventory.MergeByMaterial([]inventory.Requirement{
		{RawMaterialID: "a", Required: d("1.5")},
		{RawMaterialID: "b", Required: d("2")},
		{RawMaterialID: "a", Required: d("0.5")},
	})
	require.Len(t, merged, 2)
	assert.Equal(t, "a", merged[0].RawMaterialID)
	assert.True(t, merged[0].Required.Equal(d("2")))
}

func TestCostCalculator_PromedioPonderado(t *testing.T) {
	got := inventory.CostCalculator(d("10"), d("2"), d("10"), d("4"))
	assert.True(t, got.Equal(d("3")), "got %s", got)
	assert.True(t, inventory.CostCalculator(decimal.Zero, decimal.Zero, decimal.Zero, d("5")).IsZero())
}
