package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/cocina-stock-api/internal/domain"
	"github.com/jhoicas/cocina-stock-api/internal/domain/entity"
	"github.com/jhoicas/cocina-stock-api/internal/domain/repository"
)

var _ repository.RawMaterialRepository = (*RawMaterialRepo)(nil)

const rawMaterialColumns = `id, company_id, name, description, category, unit, unit_price, quantity, min_level, status, created_at, updated_at`

// RawMaterialRepo implementación de RawMaterialRepository sobre PostgreSQL (usable con pool o tx).
type RawMaterialRepo struct {
	q Querier
}

// NewRawMaterialRepository construye el adaptador. Pasar pool o tx (Querier).
func NewRawMaterialRepository(q Querier) *RawMaterialRepo {
	return &RawMaterialRepo{q: q}
}

func scanRawMaterial(row pgx.Row) (*entity.RawMaterial, error) {
	var m entity.RawMaterial
	err := row.Scan(&m.ID, &m.CompanyID, &m.Name, &m.Description, &m.Category, &m.Unit,
		&m.UnitPrice, &m.Quantity, &m.MinLevel, &m.Status, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// Create persiste la materia prima; el índice único (company_id, name_key) detecta duplicados
// aunque dos altas concurrentes pasen la verificación previa.
func (r *RawMaterialRepo) Create(ctx context.Context, m *entity.RawMaterial) error {
	query := `
		INSERT INTO raw_materials (` + rawMaterialColumns + `, name_key)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`
	_, err := r.q.Exec(ctx, query, m.ID, m.CompanyID, m.Name, m.Description, m.Category, m.Unit,
		m.UnitPrice, m.Quantity, m.MinLevel, m.Status, m.CreatedAt, m.UpdatedAt, entity.FoldName(m.Name))
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("materia prima %q: %w", m.Name, domain.ErrDuplicate)
		}
		return fmt.Errorf("insert raw material: %w", err)
	}
	return nil
}

func (r *RawMaterialRepo) getOne(ctx context.Context, op, query string, args ...any) (*entity.RawMaterial, error) {
	m, err := scanRawMaterial(r.q.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return m, nil
}

// GetByID obtiene una materia prima por ID.
func (r *RawMaterialRepo) GetByID(ctx context.Context, id string) (*entity.RawMaterial, error) {
	return r.getOne(ctx, "get raw material",
		`SELECT `+rawMaterialColumns+` FROM raw_materials WHERE id = $1`, id)
}

// GetForUpdate obtiene la materia prima y bloquea la fila (SELECT FOR UPDATE).
func (r *RawMaterialRepo) GetForUpdate(ctx context.Context, id string) (*entity.RawMaterial, error) {
	return r.getOne(ctx, "get raw material for update",
		`SELECT `+rawMaterialColumns+` FROM raw_materials WHERE id = $1 FOR UPDATE`, id)
}

// GetByCompanyAndName busca por la clave plegada del nombre dentro de la empresa.
func (r *RawMaterialRepo) GetByCompanyAndName(ctx context.Context, companyID, name string) (*entity.RawMaterial, error) {
	return r.getOne(ctx, "get raw material by name",
		`SELECT `+rawMaterialColumns+` FROM raw_materials WHERE company_id = $1 AND name_key = $2`,
		companyID, entity.FoldName(name))
}

// Update reescribe todos los campos mutables, incluida la cantidad agregada y el estado.
// Debe llamarse con la fila leída por GetForUpdate en la misma transacción.
func (r *RawMaterialRepo) Update(ctx context.Context, m *entity.RawMaterial) error {
	query := `
		UPDATE raw_materials SET
			name = $2, description = $3, category = $4, unit = $5, unit_price = $6,
			quantity = $7, min_level = $8, status = $9, updated_at = $10, name_key = $11
		WHERE id = $1`
	cmd, err := r.q.Exec(ctx, query, m.ID, m.Name, m.Description, m.Category, m.Unit, m.UnitPrice,
		m.Quantity, m.MinLevel, m.Status, m.UpdatedAt, entity.FoldName(m.Name))
	if err != nil {
		switch {
		case isUniqueViolation(err):
			return fmt.Errorf("materia prima %q: %w", m.Name, domain.ErrDuplicate)
		case isCheckViolation(err):
			return fmt.Errorf("materia prima %q: %w", m.Name, domain.ErrInsufficientStock)
		}
		return fmt.Errorf("update raw material: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Delete elimina la materia prima por ID.
func (r *RawMaterialRepo) Delete(ctx context.Context, id string) error {
	cmd, err := r.q.Exec(ctx, `DELETE FROM raw_materials WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete raw material: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// List filtra por categoría, estado y texto (nombre o descripción) y devuelve además el total sin paginar.
func (r *RawMaterialRepo) List(ctx context.Context, f repository.RawMaterialFilter) ([]*entity.RawMaterial, int, error) {
	where := []string{"company_id = $1"}
	args := []any{f.CompanyID}
	if f.Category != "" {
		args = append(args, f.Category)
		where = append(where, fmt.Sprintf("lower(category) = lower($%d)", len(args)))
	}
	if f.Status != "" {
		args = append(args, f.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		args = append(args, "%"+s+"%")
		where = append(where, fmt.Sprintf("(name ILIKE $%d OR description ILIKE $%d)", len(args), len(args)))
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := r.q.QueryRow(ctx, `SELECT count(*) FROM raw_materials WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count raw materials: %w", err)
	}

	query := `SELECT ` + rawMaterialColumns + ` FROM raw_materials WHERE ` + cond + ` ORDER BY name, id`
	if f.Limit > 0 {
		args = append(args, f.Limit, f.Offset)
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	}
	list, err := r.query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

// ListByIDs devuelve las materias primas existentes entre ids, en orden de ID.
func (r *RawMaterialRepo) ListByIDs(ctx context.Context, ids []string) ([]*entity.RawMaterial, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return r.query(ctx, `SELECT `+rawMaterialColumns+` FROM raw_materials WHERE id = ANY($1) ORDER BY id`, ids)
}

// ListByCompany todas las materias primas de la empresa.
func (r *RawMaterialRepo) ListByCompany(ctx context.Context, companyID string) ([]*entity.RawMaterial, error) {
	list, _, err := r.List(ctx, repository.RawMaterialFilter{CompanyID: companyID})
	return list, err
}

func (r *RawMaterialRepo) query(ctx context.Context, query string, args ...any) ([]*entity.RawMaterial, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list raw materials: %w", err)
	}
	defer rows.Close()
	var list []*entity.RawMaterial
	for rows.Next() {
		m, err := scanRawMaterial(rows)
		if err != nil {
			return nil, fmt.Errorf("scan raw material: %w", err)
		}
		list = append(list, m)
	}
	return list, rows.Err()
}
