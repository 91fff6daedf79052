package usecase

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/cocina-stock-api/internal/application/dto"
	"github.com/jhoicas/cocina-stock-api/internal/domain"
	"github.com/jhoicas/cocina-stock-api/internal/domain/entity"
	"github.com/jhoicas/cocina-stock-api/internal/domain/inventory"
	"github.com/jhoicas/cocina-stock-api/internal/domain/repository"
)

// RecipeUseCase registro de recetas y simulación de su descuento en una sede.
type RecipeUseCase struct {
	repo         repository.RecipeRepository
	materialRepo repository.RawMaterialRepository
	locationRepo repository.LocationRepository
	invRepo      repository.LocationInventoryRepository
}

// NewRecipeUseCase construye el caso de uso.
func NewRecipeUseCase(
	repo repository.RecipeRepository,
	materialRepo repository.RawMaterialRepository,
	locationRepo repository.LocationRepository,
	invRepo repository.LocationInventoryRepository,
) *RecipeUseCase {
	return &RecipeUseCase{repo: repo, materialRepo: materialRepo, locationRepo: locationRepo, invRepo: invRepo}
}

// Create registra una receta tras validar sus ingredientes contra el catálogo de la empresa.
func (uc *RecipeUseCase) Create(ctx context.Context, companyID string, in dto.CreateRecipeRequest) (*dto.RecipeResponse, error) {
	now := time.Now()
	recipe := &entity.Recipe{
		ID:             uuid.New().String(),
		CompanyID:      companyID,
		Name:           strings.TrimSpace(in.Name),
		Description:    strings.TrimSpace(in.Description),
		CookingTime:    in.CookingTime,
		Servings:       in.Servings,
		CostPerServing: in.CostPerServing,
		Instructions:   in.Instructions,
		Ingredients:    toIngredients(in.Ingredients),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	materials, err := uc.validate(ctx, recipe)
	if err != nil {
		return nil, err
	}
	if err := uc.repo.Create(ctx, recipe); err != nil {
		return nil, err
	}
	return toRecipeResponse(recipe, materials), nil
}

// GetByID obtiene una receta con los nombres de sus materias primas.
func (uc *RecipeUseCase) GetByID(ctx context.Context, companyID, id string) (*dto.RecipeResponse, error) {
	recipe, err := uc.get(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	materials, err := uc.materialsOf(ctx, recipe)
	if err != nil {
		return nil, err
	}
	return toRecipeResponse(recipe, materials), nil
}

// List lista recetas de la empresa; search filtra por nombre.
func (uc *RecipeUseCase) List(ctx context.Context, companyID, search string, page dto.PageRequest) (*dto.RecipeListResponse, error) {
	page.WithDefaults()
	list, total, err := uc.repo.ListByCompany(ctx, companyID, strings.TrimSpace(search), page.Limit, page.Offset)
	if err != nil {
		return nil, err
	}
	var ids []string
	for _, r := range list {
		for _, ing := range r.Ingredients {
			ids = append(ids, ing.RawMaterialID)
		}
	}
	materials, err := uc.materialsByID(ctx, ids)
	if err != nil {
		return nil, err
	}
	items := make([]dto.RecipeResponse, 0, len(list))
	for _, r := range list {
		items = append(items, *toRecipeResponse(r, materials))
	}
	return &dto.RecipeListResponse{
		Items: items,
		Page:  page.Response(total),
	}, nil
}

// Update modifica la receta; si llegan ingredientes reemplazan la lista completa.
func (uc *RecipeUseCase) Update(ctx context.Context, companyID, id string, in dto.UpdateRecipeRequest) (*dto.RecipeResponse, error) {
	recipe, err := uc.get(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	if in.Name != nil {
		recipe.Name = strings.TrimSpace(*in.Name)
	}
	if in.Description != nil {
		recipe.Description = strings.TrimSpace(*in.Description)
	}
	if in.CookingTime != nil {
		recipe.CookingTime = *in.CookingTime
	}
	if in.Servings != nil {
		recipe.Servings = *in.Servings
	}
	if in.CostPerServing != nil {
		recipe.CostPerServing = *in.CostPerServing
	}
	if in.Instructions != nil {
		recipe.Instructions = *in.Instructions
	}
	if in.Ingredients != nil {
		recipe.Ingredients = toIngredients(in.Ingredients)
	}
	materials, err := uc.validate(ctx, recipe)
	if err != nil {
		return nil, err
	}
	recipe.UpdatedAt = time.Now()
	if err := uc.repo.Update(ctx, recipe); err != nil {
		return nil, err
	}
	return toRecipeResponse(recipe, materials), nil
}

// Delete elimina la receta. Las transacciones pasadas conservan su recipe_id.
func (uc *RecipeUseCase) Delete(ctx context.Context, companyID, id string) error {
	recipe, err := uc.get(ctx, companyID, id)
	if err != nil {
		return err
	}
	return uc.repo.Delete(ctx, recipe.ID)
}

// GetWithInventoryStatus simula el descuento de la receta en la sede sin modificar nada.
// multiplier cero equivale a una unidad de salida.
func (uc *RecipeUseCase) GetWithInventoryStatus(ctx context.Context, companyID, recipeID, locationID string, multiplier decimal.Decimal) (*dto.RecipeInventoryStatusResponse, error) {
	if multiplier.IsNegative() {
		return nil, domain.NewValidationError("quantity", "debe ser mayor que cero")
	}
	if multiplier.IsZero() {
		multiplier = decimal.NewFromInt(1)
	}
	if locationID == "" {
		return nil, domain.NewValidationError("location_id", "requerido")
	}
	recipe, err := uc.get(ctx, companyID, recipeID)
	if err != nil {
		return nil, err
	}
	location, err := uc.locationRepo.GetByID(ctx, locationID)
	if err != nil {
		return nil, err
	}
	if location == nil {
		return nil, fmt.Errorf("sede %s: %w", locationID, domain.ErrNotFound)
	}
	if location.CompanyID != companyID {
		return nil, domain.ErrForbidden
	}
	materials, err := uc.materialsOf(ctx, recipe)
	if err != nil {
		return nil, err
	}

	reqs := make([]inventory.Requirement, 0, len(recipe.Ingredients))
	for _, ing := range recipe.Ingredients {
		reqs = append(reqs, inventory.Requirement{
			RawMaterialID: ing.RawMaterialID,
			Unit:          ing.Unit,
			Required:      inventory.ScaleQuantity(ing.Quantity, multiplier),
		})
	}
	reqs = inventory.MergeByMaterial(reqs)
	for i := range reqs {
		if m, ok := materials[reqs[i].RawMaterialID]; ok {
			reqs[i].Material = m.Name
			reqs[i].MinLevel = m.MinLevel
			if reqs[i].Unit == "" {
				reqs[i].Unit = m.Unit
			}
		}
		row, err := uc.invRepo.Get(ctx, locationID, reqs[i].RawMaterialID)
		if err != nil {
			return nil, err
		}
		reqs[i].Available = row.Quantity
	}

	plan := inventory.Classify(reqs)
	insufficient := idSet(plan.Insufficient)
	low := idSet(plan.LowAfter)
	out := &dto.RecipeInventoryStatusResponse{
		RecipeID:    recipe.ID,
		RecipeName:  recipe.Name,
		LocationID:  locationID,
		Multiplier:  multiplier,
		CanProduce:  plan.CanCommit(),
		Ingredients: make([]dto.IngredientStatus, 0, len(reqs)),
	}
	for _, r := range reqs {
		out.Ingredients = append(out.Ingredients, dto.IngredientStatus{
			RawMaterialID: r.RawMaterialID,
			Material:      r.Material,
			Unit:          r.Unit,
			Required:      r.Required,
			Available:     r.Available,
			MinLevel:      r.MinLevel,
			Sufficient:    !insufficient[r.RawMaterialID],
			LowAfter:      low[r.RawMaterialID],
		})
	}
	return out, nil
}

// validate reglas de la receta: nombre, al menos un ingrediente, materias primas existentes de
// la misma empresa, cantidades no negativas y sin materias primas repetidas.
func (uc *RecipeUseCase) validate(ctx context.Context, recipe *entity.Recipe) (map[string]*entity.RawMaterial, error) {
	verr := &domain.ValidationError{}
	requireText(verr, "name", recipe.Name)
	if recipe.CookingTime < 0 {
		verr.Add("cooking_time", "no puede ser negativo")
	}
	if recipe.Servings < 0 {
		verr.Add("servings", "no puede ser negativo")
	}
	nonNegative(verr, "cost_per_serving", recipe.CostPerServing)
	if len(recipe.Ingredients) == 0 {
		verr.Add("ingredients", "la receta necesita al menos un ingrediente")
	}

	ids := make([]string, 0, len(recipe.Ingredients))
	for _, ing := range recipe.Ingredients {
		ids = append(ids, ing.RawMaterialID)
	}
	materials, err := uc.materialsByID(ctx, ids)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(recipe.Ingredients))
	for i, ing := range recipe.Ingredients {
		field := fmt.Sprintf("ingredients[%d]", i)
		switch m, ok := materials[ing.RawMaterialID]; {
		case ing.RawMaterialID == "":
			verr.Add(field+".raw_material_id", "requerido")
		case !ok || m.CompanyID != recipe.CompanyID:
			verr.Add(field+".raw_material_id", "materia prima inexistente")
		case seen[ing.RawMaterialID]:
			verr.Add(field+".raw_material_id", "materia prima repetida")
		}
		seen[ing.RawMaterialID] = true
		nonNegative(verr, field+".quantity", ing.Quantity)
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}
	return materials, nil
}

func (uc *RecipeUseCase) get(ctx context.Context, companyID, id string) (*entity.Recipe, error) {
	recipe, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if recipe == nil {
		return nil, fmt.Errorf("receta %s: %w", id, domain.ErrNotFound)
	}
	if recipe.CompanyID != companyID {
		return nil, domain.ErrForbidden
	}
	return recipe, nil
}

func (uc *RecipeUseCase) materialsOf(ctx context.Context, recipe *entity.Recipe) (map[string]*entity.RawMaterial, error) {
	ids := make([]string, 0, len(recipe.Ingredients))
	for _, ing := range recipe.Ingredients {
		ids = append(ids, ing.RawMaterialID)
	}
	return uc.materialsByID(ctx, ids)
}

func (uc *RecipeUseCase) materialsByID(ctx context.Context, ids []string) (map[string]*entity.RawMaterial, error) {
	uniq := make([]string, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if id != "" && !seen[id] {
			seen[id] = true
			uniq = append(uniq, id)
		}
	}
	out := make(map[string]*entity.RawMaterial, len(uniq))
	if len(uniq) == 0 {
		return out, nil
	}
	sort.Strings(uniq)
	list, err := uc.materialRepo.ListByIDs(ctx, uniq)
	if err != nil {
		return nil, err
	}
	for _, m := range list {
		out[m.ID] = m
	}
	return out, nil
}

func idSet(reqs []inventory.Requirement) map[string]bool {
	out := make(map[string]bool, len(reqs))
	for _, r := range reqs {
		out[r.RawMaterialID] = true
	}
	return out
}

func toIngredients(in []dto.RecipeIngredientRequest) []entity.RecipeIngredient {
	out := make([]entity.RecipeIngredient, 0, len(in))
	for _, ing := range in {
		out = append(out, entity.RecipeIngredient{
			RawMaterialID: strings.TrimSpace(ing.RawMaterialID),
			Quantity:      ing.Quantity,
			Unit:          strings.TrimSpace(ing.Unit),
		})
	}
	return out
}

func toRecipeResponse(r *entity.Recipe, materials map[string]*entity.RawMaterial) *dto.RecipeResponse {
	if r == nil {
		return nil
	}
	ings := make([]dto.RecipeIngredientResponse, 0, len(r.Ingredients))
	for _, ing := range r.Ingredients {
		item := dto.RecipeIngredientResponse{RawMaterialID: ing.RawMaterialID, Quantity: ing.Quantity, Unit: ing.Unit}
		if m, ok := materials[ing.RawMaterialID]; ok {
			item.Material = m.Name
			if item.Unit == "" {
				item.Unit = m.Unit
			}
		}
		ings = append(ings, item)
	}
	return &dto.RecipeResponse{
		ID:             r.ID,
		CompanyID:      r.CompanyID,
		Name:           r.Name,
		Description:    r.Description,
		CookingTime:    r.CookingTime,
		Servings:       r.Servings,
		CostPerServing: r.CostPerServing,
		Instructions:   r.Instructions,
		Ingredients:    ings,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
}
