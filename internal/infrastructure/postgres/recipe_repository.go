package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/cocina-stock-api/internal/domain"
	"github.com/jhoicas/cocina-stock-api/internal/domain/entity"
	"github.com/jhoicas/cocina-stock-api/internal/domain/repository"
)

var _ repository.RecipeRepository = (*RecipeRepo)(nil)

const recipeColumns = `id, company_id, name, description, cooking_time, servings, cost_per_serving, instructions, created_at, updated_at`

// RecipeRepo recetas e ingredientes (tabla recipe_ingredients, ordenada por position).
type RecipeRepo struct {
	q Querier
}

// NewRecipeRepository construye el adaptador. Pasar pool o tx (Querier).
func NewRecipeRepository(q Querier) *RecipeRepo {
	return &RecipeRepo{q: q}
}

// Create inserta la receta y sus ingredientes en una misma transacción.
func (r *RecipeRepo) Create(ctx context.Context, rec *entity.Recipe) error {
	return pgx.BeginFunc(ctx, r.q, func(tx pgx.Tx) error {
		query := `INSERT INTO recipes (` + recipeColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
		_, err := tx.Exec(ctx, query, rec.ID, rec.CompanyID, rec.Name, rec.Description, rec.CookingTime,
			rec.Servings, rec.CostPerServing, rec.Instructions, rec.CreatedAt, rec.UpdatedAt)
		if err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("receta %s: %w", rec.ID, domain.ErrDuplicate)
			}
			return fmt.Errorf("insert recipe: %w", err)
		}
		return insertIngredients(ctx, tx, rec)
	})
}

// GetByID obtiene la receta con sus ingredientes; (nil, nil) si no existe.
func (r *RecipeRepo) GetByID(ctx context.Context, id string) (*entity.Recipe, error) {
	rec, err := scanRecipe(r.q.QueryRow(ctx, `SELECT `+recipeColumns+` FROM recipes WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get recipe: %w", err)
	}
	if err := r.loadIngredients(ctx, []*entity.Recipe{rec}); err != nil {
		return nil, err
	}
	return rec, nil
}

// Update reescribe la receta y reemplaza la lista completa de ingredientes.
func (r *RecipeRepo) Update(ctx context.Context, rec *entity.Recipe) error {
	return pgx.BeginFunc(ctx, r.q, func(tx pgx.Tx) error {
		query := `
			UPDATE recipes SET name = $2, description = $3, cooking_time = $4, servings = $5,
				cost_per_serving = $6, instructions = $7, updated_at = $8
			WHERE id = $1`
		cmd, err := tx.Exec(ctx, query, rec.ID, rec.Name, rec.Description, rec.CookingTime, rec.Servings,
			rec.CostPerServing, rec.Instructions, rec.UpdatedAt)
		if err != nil {
			return fmt.Errorf("update recipe: %w", err)
		}
		if cmd.RowsAffected() == 0 {
			return domain.ErrNotFound
		}
		if _, err := tx.Exec(ctx, `DELETE FROM recipe_ingredients WHERE recipe_id = $1`, rec.ID); err != nil {
			return fmt.Errorf("delete recipe ingredients: %w", err)
		}
		return insertIngredients(ctx, tx, rec)
	})
}

// Delete elimina la receta; los ingredientes caen por ON DELETE CASCADE.
func (r *RecipeRepo) Delete(ctx context.Context, id string) error {
	cmd, err := r.q.Exec(ctx, `DELETE FROM recipes WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete recipe: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ListByCompany recetas de la empresa por nombre, con búsqueda opcional y total sin paginar.
func (r *RecipeRepo) ListByCompany(ctx context.Context, companyID, search string, limit, offset int) ([]*entity.Recipe, int, error) {
	pattern := "%" + search + "%"
	var total int
	err := r.q.QueryRow(ctx, `SELECT count(*) FROM recipes WHERE company_id = $1 AND name ILIKE $2`,
		companyID, pattern).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("count recipes: %w", err)
	}

	query := `SELECT ` + recipeColumns + ` FROM recipes WHERE company_id = $1 AND name ILIKE $2 ORDER BY name, id`
	args := []any{companyID, pattern}
	if limit > 0 {
		query += ` LIMIT $3 OFFSET $4`
		args = append(args, limit, offset)
	}
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list recipes: %w", err)
	}
	defer rows.Close()
	var list []*entity.Recipe
	for rows.Next() {
		rec, err := scanRecipe(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan recipe: %w", err)
		}
		list = append(list, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	if err := r.loadIngredients(ctx, list); err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

// ExistsWithMaterial indica si alguna receta usa la materia prima.
func (r *RecipeRepo) ExistsWithMaterial(ctx context.Context, rawMaterialID string) (bool, error) {
	var ok bool
	err := r.q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM recipe_ingredients WHERE raw_material_id = $1)`,
		rawMaterialID).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("exists recipe ingredient: %w", err)
	}
	return ok, nil
}

func (r *RecipeRepo) loadIngredients(ctx context.Context, recipes []*entity.Recipe) error {
	if len(recipes) == 0 {
		return nil
	}
	byID := make(map[string]*entity.Recipe, len(recipes))
	ids := make([]string, 0, len(recipes))
	for _, rec := range recipes {
		byID[rec.ID] = rec
		ids = append(ids, rec.ID)
	}
	rows, err := r.q.Query(ctx, `
		SELECT recipe_id, raw_material_id, quantity, unit
		FROM recipe_ingredients WHERE recipe_id = ANY($1)
		ORDER BY recipe_id, position`, ids)
	if err != nil {
		return fmt.Errorf("list recipe ingredients: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var recipeID string
		var ing entity.RecipeIngredient
		if err := rows.Scan(&recipeID, &ing.RawMaterialID, &ing.Quantity, &ing.Unit); err != nil {
			return fmt.Errorf("scan recipe ingredient: %w", err)
		}
		if rec, ok := byID[recipeID]; ok {
			rec.Ingredients = append(rec.Ingredients, ing)
		}
	}
	return rows.Err()
}

func insertIngredients(ctx context.Context, tx pgx.Tx, rec *entity.Recipe) error {
	batch := &pgx.Batch{}
	for i, ing := range rec.Ingredients {
		batch.Queue(`
			INSERT INTO recipe_ingredients (recipe_id, position, raw_material_id, quantity, unit)
			VALUES ($1, $2, $3, $4, $5)`, rec.ID, i, ing.RawMaterialID, ing.Quantity, ing.Unit)
	}
	if batch.Len() == 0 {
		return nil
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("receta %q con materia prima repetida: %w", rec.Name, domain.ErrDuplicate)
		}
		return fmt.Errorf("insert recipe ingredients: %w", err)
	}
	return nil
}

func scanRecipe(row pgx.Row) (*entity.Recipe, error) {
	var rec entity.Recipe
	err := row.Scan(&rec.ID, &rec.CompanyID, &rec.Name, &rec.Description, &rec.CookingTime, &rec.Servings,
		&rec.CostPerServing, &rec.Instructions, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}
