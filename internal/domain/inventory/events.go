package inventory

import (
	"time"

	"github.com/shopspring/decimal"
)

// LowStockEvent aviso emitido tras confirmar un descuento que dejó una fila en o bajo su mínimo.
type LowStockEvent struct {
	CompanyID     string          `json:"company_id"`
	LocationID    string          `json:"location_id"`
	RawMaterialID string          `json:"raw_material_id"`
	Material      string          `json:"material"`
	Remaining     decimal.Decimal `json:"remaining"`
	MinLevel      decimal.Decimal `json:"min_level"`
	Unit          string          `json:"unit"`
	Reference     string          `json:"reference"`
	OccurredAt    time.Time       `json:"occurred_at"`
}

// LowStockEvents convierte los requerimientos marcados como bajos en eventos.
func LowStockEvents(companyID, locationID, reference string, low []Requirement, at time.Time) []LowStockEvent {
	if len(low) == 0 {
		return nil
	}
	out := make([]LowStockEvent, 0, len(low))
	for _, r := range low {
		out = append(out, LowStockEvent{
			CompanyID:     companyID,
			LocationID:    locationID,
			RawMaterialID: r.RawMaterialID,
			Material:      r.Material,
			Remaining:     r.Remaining(),
			MinLevel:      r.MinLevel,
			Unit:          r.Unit,
			Reference:     reference,
			OccurredAt:    at,
		})
	}
	return out
}
