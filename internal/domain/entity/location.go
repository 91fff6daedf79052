package entity

import "time"

// Location representa una sede o bodega con inventario propio de materias primas.
type Location struct {
	ID        string
	CompanyID string
	Name      string
	Address   string
	CreatedAt time.Time
	UpdatedAt time.Time
}
