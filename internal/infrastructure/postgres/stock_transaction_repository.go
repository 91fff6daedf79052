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

var _ repository.StockTransactionRepository = (*StockTransactionRepo)(nil)

const transactionSelect = `
	SELECT t.id, t.type, t.location_id, t.raw_material_id, t.quantity, t.cost_price, t.reference,
	       t.source, t.destination, COALESCE(t.source_location_id, ''), COALESCE(t.destination_location_id, ''),
	       COALESCE(t.direction, ''), t.batch_number, t.expiry_date, COALESCE(t.user_id, ''),
	       COALESCE(t.recipe_id, ''), t.created_at
	FROM stock_transactions t`

// StockTransactionRepo libro de movimientos sobre PostgreSQL: solo INSERT y SELECT.
type StockTransactionRepo struct {
	q Querier
}

// NewStockTransactionRepository construye el adaptador. Pasar pool o tx (Querier).
func NewStockTransactionRepository(q Querier) *StockTransactionRepo {
	return &StockTransactionRepo{q: q}
}

// Create registra una transacción.
func (r *StockTransactionRepo) Create(ctx context.Context, t *entity.StockTransaction) error {
	query := `
		INSERT INTO stock_transactions (
			id, type, location_id, raw_material_id, quantity, cost_price, reference, source, destination,
			source_location_id, destination_location_id, direction, batch_number, expiry_date, user_id,
			recipe_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`
	_, err := r.q.Exec(ctx, query,
		t.ID, t.Type, t.LocationID, t.RawMaterialID, t.Quantity, t.CostPrice, t.Reference, t.Source, t.Destination,
		nullIfEmpty(t.SourceLocationID), nullIfEmpty(t.DestinationLocationID), nullIfEmpty(t.Direction),
		t.BatchNumber, t.ExpiryDate, nullIfEmpty(t.UserID), nullIfEmpty(t.RecipeID), t.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("transacción %s: %w", t.ID, domain.ErrDuplicate)
		}
		return fmt.Errorf("insert stock transaction: %w", err)
	}
	return nil
}

// GetByID obtiene una transacción; (nil, nil) si no existe.
func (r *StockTransactionRepo) GetByID(ctx context.Context, id string) (*entity.StockTransaction, error) {
	t, err := scanTransaction(r.q.QueryRow(ctx, transactionSelect+` WHERE t.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get stock transaction: %w", err)
	}
	return t, nil
}

// List transacciones de la empresa, más recientes primero. El filtro de sede también
// coincide con el origen o destino de un traslado.
func (r *StockTransactionRepo) List(ctx context.Context, f repository.TransactionFilter) ([]*entity.StockTransaction, error) {
	where := []string{"l.company_id = $1"}
	args := []any{f.CompanyID}
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, strings.ReplaceAll(cond, "?", fmt.Sprintf("$%d", len(args))))
	}
	if f.Type != "" {
		add("t.type = ?", f.Type)
	}
	if f.LocationID != "" {
		add("(t.location_id = ? OR t.source_location_id = ? OR t.destination_location_id = ?)", f.LocationID)
	}
	if f.RawMaterialID != "" {
		add("t.raw_material_id = ?", f.RawMaterialID)
	}
	if f.From != nil {
		add("t.created_at >= ?", *f.From)
	}
	if f.To != nil {
		add("t.created_at <= ?", *f.To)
	}
	query := transactionSelect + ` JOIN locations l ON l.id = t.location_id WHERE ` +
		strings.Join(where, " AND ") + ` ORDER BY t.created_at DESC, t.id`
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list stock transactions: %w", err)
	}
	defer rows.Close()
	var list []*entity.StockTransaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan stock transaction: %w", err)
		}
		list = append(list, t)
	}
	return list, rows.Err()
}

func scanTransaction(row pgx.Row) (*entity.StockTransaction, error) {
	var t entity.StockTransaction
	err := row.Scan(&t.ID, &t.Type, &t.LocationID, &t.RawMaterialID, &t.Quantity, &t.CostPrice, &t.Reference,
		&t.Source, &t.Destination, &t.SourceLocationID, &t.DestinationLocationID, &t.Direction, &t.BatchNumber,
		&t.ExpiryDate, &t.UserID, &t.RecipeID, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
