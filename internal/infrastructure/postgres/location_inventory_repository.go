package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/cocina-stock-api/internal/domain"
	"github.com/jhoicas/cocina-stock-api/internal/domain/entity"
	"github.com/jhoicas/cocina-stock-api/internal/domain/repository"
)

var _ repository.LocationInventoryRepository = (*LocationInventoryRepo)(nil)

const inventoryColumns = `id, location_id, raw_material_id, quantity, cost_price, expiry_date, batch_number, last_updated`

// viewSelect une la fila de inventario con su materia prima; las columnas siguen el orden de scanView.
const viewSelect = `
	SELECT li.id, li.location_id, li.raw_material_id, li.quantity, li.cost_price, li.expiry_date,
	       li.batch_number, li.last_updated,
	       m.id, m.company_id, m.name, m.description, m.category, m.unit, m.unit_price,
	       m.quantity, m.min_level, m.status, m.created_at, m.updated_at
	FROM location_inventory li
	JOIN raw_materials m ON m.id = li.raw_material_id`

// LocationInventoryRepo stock por (sede, materia prima) sobre PostgreSQL (usable con pool o tx).
type LocationInventoryRepo struct {
	q Querier
}

// NewLocationInventoryRepository construye el adaptador. Pasar pool o tx (Querier).
func NewLocationInventoryRepository(q Querier) *LocationInventoryRepo {
	return &LocationInventoryRepo{q: q}
}

// Get obtiene la fila; si no existe devuelve una con cantidad cero y sin ID.
func (r *LocationInventoryRepo) Get(ctx context.Context, locationID, rawMaterialID string) (*entity.LocationInventory, error) {
	return r.get(ctx, "get inventory", `
		SELECT `+inventoryColumns+` FROM location_inventory
		WHERE location_id = $1 AND raw_material_id = $2`, locationID, rawMaterialID)
}

// GetForUpdate igual que Get pero bloquea la fila (SELECT FOR UPDATE).
func (r *LocationInventoryRepo) GetForUpdate(ctx context.Context, locationID, rawMaterialID string) (*entity.LocationInventory, error) {
	return r.get(ctx, "get inventory for update", `
		SELECT `+inventoryColumns+` FROM location_inventory
		WHERE location_id = $1 AND raw_material_id = $2
		FOR UPDATE`, locationID, rawMaterialID)
}

func (r *LocationInventoryRepo) get(ctx context.Context, op, query, locationID, rawMaterialID string) (*entity.LocationInventory, error) {
	var inv entity.LocationInventory
	err := r.q.QueryRow(ctx, query, locationID, rawMaterialID).Scan(
		&inv.ID, &inv.LocationID, &inv.RawMaterialID, &inv.Quantity, &inv.CostPrice,
		&inv.ExpiryDate, &inv.BatchNumber, &inv.LastUpdated,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &entity.LocationInventory{LocationID: locationID, RawMaterialID: rawMaterialID, Quantity: decimal.Zero}, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &inv, nil
}

// Upsert inserta o actualiza la fila (sede, materia prima) y deja en inv.ID el ID persistido.
func (r *LocationInventoryRepo) Upsert(ctx context.Context, inv *entity.LocationInventory) error {
	if inv.ID == "" {
		inv.ID = uuid.New().String()
	}
	if inv.LastUpdated.IsZero() {
		inv.LastUpdated = time.Now()
	}
	query := `
		INSERT INTO location_inventory (` + inventoryColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (location_id, raw_material_id) DO UPDATE SET
			quantity = EXCLUDED.quantity,
			cost_price = EXCLUDED.cost_price,
			expiry_date = EXCLUDED.expiry_date,
			batch_number = EXCLUDED.batch_number,
			last_updated = EXCLUDED.last_updated
		RETURNING id`
	err := r.q.QueryRow(ctx, query, inv.ID, inv.LocationID, inv.RawMaterialID, inv.Quantity, inv.CostPrice,
		inv.ExpiryDate, inv.BatchNumber, inv.LastUpdated).Scan(&inv.ID)
	if err != nil {
		if isCheckViolation(err) {
			return fmt.Errorf("inventario %s/%s: %w", inv.LocationID, inv.RawMaterialID, domain.ErrInsufficientStock)
		}
		return fmt.Errorf("upsert inventory: %w", err)
	}
	return nil
}

// DecrementIfSufficient resta qty en una sola sentencia condicionada a quantity >= qty.
func (r *LocationInventoryRepo) DecrementIfSufficient(ctx context.Context, locationID, rawMaterialID string, qty decimal.Decimal, now time.Time) (bool, error) {
	query := `
		UPDATE location_inventory SET quantity = quantity - $3, last_updated = $4
		WHERE location_id = $1 AND raw_material_id = $2 AND quantity >= $3`
	cmd, err := r.q.Exec(ctx, query, locationID, rawMaterialID, qty, now)
	if err != nil {
		return false, fmt.Errorf("decrement inventory: %w", err)
	}
	return cmd.RowsAffected() == 1, nil
}

// ListViews inventario de una sede con su materia prima, por nombre.
func (r *LocationInventoryRepo) ListViews(ctx context.Context, locationID string, f repository.InventoryFilter) ([]entity.InventoryView, error) {
	where := []string{"li.location_id = $1"}
	args := []any{locationID}
	if f.Category != "" {
		args = append(args, f.Category)
		where = append(where, fmt.Sprintf("lower(m.category) = lower($%d)", len(args)))
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		args = append(args, "%"+s+"%")
		where = append(where, fmt.Sprintf("(m.name ILIKE $%d OR m.description ILIKE $%d)", len(args), len(args)))
	}
	return r.views(ctx, viewSelect+` WHERE `+strings.Join(where, " AND ")+` ORDER BY li.location_id, m.name`, args...)
}

// ListLowStock filas con quantity <= min_level de la materia prima.
func (r *LocationInventoryRepo) ListLowStock(ctx context.Context, companyID, locationID string) ([]entity.InventoryView, error) {
	return r.views(ctx, viewSelect+`
		WHERE m.company_id = $1 AND ($2 = '' OR li.location_id = $2) AND li.quantity <= m.min_level
		ORDER BY li.location_id, m.name`, companyID, locationID)
}

// ListExpiring filas con stock cuyo vencimiento cae en [from, until], las más próximas primero.
func (r *LocationInventoryRepo) ListExpiring(ctx context.Context, companyID, locationID string, from, until time.Time) ([]entity.InventoryView, error) {
	return r.views(ctx, viewSelect+`
		WHERE m.company_id = $1 AND ($2 = '' OR li.location_id = $2)
		  AND li.quantity > 0 AND li.expiry_date BETWEEN $3 AND $4
		ORDER BY li.expiry_date, m.name`, companyID, locationID, from, until)
}

// SumByMaterial total por materia prima sumando todas las sedes.
func (r *LocationInventoryRepo) SumByMaterial(ctx context.Context, companyID string) (map[string]decimal.Decimal, error) {
	query := `
		SELECT li.raw_material_id, SUM(li.quantity)
		FROM location_inventory li
		JOIN raw_materials m ON m.id = li.raw_material_id
		WHERE m.company_id = $1
		GROUP BY li.raw_material_id`
	rows, err := r.q.Query(ctx, query, companyID)
	if err != nil {
		return nil, fmt.Errorf("sum inventory: %w", err)
	}
	defer rows.Close()
	out := make(map[string]decimal.Decimal)
	for rows.Next() {
		var id string
		var total decimal.Decimal
		if err := rows.Scan(&id, &total); err != nil {
			return nil, fmt.Errorf("scan inventory sum: %w", err)
		}
		out[id] = total
	}
	return out, rows.Err()
}

// HasStock indica si alguna sede tiene cantidad positiva de la materia prima.
func (r *LocationInventoryRepo) HasStock(ctx context.Context, rawMaterialID string) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS (SELECT 1 FROM location_inventory WHERE raw_material_id = $1 AND quantity > 0)`, rawMaterialID)
}

// ExistsAtLocation indica si la sede tiene alguna fila de inventario.
func (r *LocationInventoryRepo) ExistsAtLocation(ctx context.Context, locationID string) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS (SELECT 1 FROM location_inventory WHERE location_id = $1)`, locationID)
}

func (r *LocationInventoryRepo) exists(ctx context.Context, query, id string) (bool, error) {
	var ok bool
	if err := r.q.QueryRow(ctx, query, id).Scan(&ok); err != nil {
		return false, fmt.Errorf("exists inventory: %w", err)
	}
	return ok, nil
}

func (r *LocationInventoryRepo) views(ctx context.Context, query string, args ...any) ([]entity.InventoryView, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list inventory: %w", err)
	}
	defer rows.Close()
	var out []entity.InventoryView
	for rows.Next() {
		var v entity.InventoryView
		inv, m := &v.Inventory, &v.Material
		if err := rows.Scan(
			&inv.ID, &inv.LocationID, &inv.RawMaterialID, &inv.Quantity, &inv.CostPrice, &inv.ExpiryDate,
			&inv.BatchNumber, &inv.LastUpdated,
			&m.ID, &m.CompanyID, &m.Name, &m.Description, &m.Category, &m.Unit, &m.UnitPrice,
			&m.Quantity, &m.MinLevel, &m.Status, &m.CreatedAt, &m.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan inventory view: %w", err)
		}
		v.Status = entity.DeriveStockStatus(inv.Quantity, m.MinLevel)
		out = append(out, v)
	}
	return out, rows.Err()
}
