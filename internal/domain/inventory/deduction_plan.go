package inventory

import "github.com/shopspring/decimal"

// Requirement cantidad requerida de una materia prima frente a lo disponible en la sede.
type Requirement struct {
	RawMaterialID string
	Material      string
	Unit          string
	Required      decimal.Decimal
	Available     decimal.Decimal
	MinLevel      decimal.Decimal
}

// Remaining cantidad que quedaría tras descontar Required.
func (r Requirement) Remaining() decimal.Decimal {
	return r.Available.Sub(r.Required)
}

// Plan clasificación de los requerimientos de una receta antes de descontar.
type Plan struct {
	Insufficient []Requirement // disponible < requerido
	LowAfter     []Requirement // alcanza, pero el remanente queda <= nivel mínimo
	Sufficient   []Requirement
}

// CanCommit indica si ningún ingrediente es insuficiente.
func (p Plan) CanCommit() bool {
	return len(p.Insufficient) == 0
}

// Deductible requerimientos que generan movimiento (cantidad requerida > 0), en orden de entrada.
func Deductible(reqs []Requirement) []Requirement {
	out := make([]Requirement, 0, len(reqs))
	for _, r := range reqs {
		if r.Required.IsPositive() {
			out = append(out, r)
		}
	}
	return out
}

// ScaleQuantity cantidad por unidad de salida multiplicada por las unidades a producir.
func ScaleQuantity(perUnit, multiplier decimal.Decimal) decimal.Decimal {
	return perUnit.Mul(multiplier)
}

// Classify reparte los requerimientos en insuficientes, bajos tras el descuento y suficientes.
// Un requerimiento de cantidad cero siempre es suficiente y nunca genera advertencia.
func Classify(reqs []Requirement) Plan {
	var p Plan
	for _, r := range reqs {
		switch {
		case r.Available.LessThan(r.Required):
			p.Insufficient = append(p.Insufficient, r)
		case r.Required.IsPositive() && r.Remaining().LessThanOrEqual(r.MinLevel):
			p.LowAfter = append(p.LowAfter, r)
		default:
			p.Sufficient = append(p.Sufficient, r)
		}
	}
	return p
}

// MergeByMaterial suma requerimientos repetidos de la misma materia prima conservando
// el orden de la primera aparición.
func MergeByMaterial(reqs []Requirement) []Requirement {
	idx := make(map[string]int, len(reqs))
	out := make([]Requirement, 0, len(reqs))
	for _, r := range reqs {
		if i, ok := idx[r.RawMaterialID]; ok {
			out[i].Required = out[i].Required.Add(r.Required)
			continue
		}
		idx[r.RawMaterialID] = len(out)
		out = append(out, r)
	}
	return out
}
