package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/cocina-stock-api/internal/application/dto"
	appinv "github.com/jhoicas/cocina-stock-api/internal/application/inventory"
	"github.com/jhoicas/cocina-stock-api/internal/domain"
	"github.com/jhoicas/cocina-stock-api/internal/domain/entity"
	"github.com/jhoicas/cocina-stock-api/internal/domain/repository"
)

// RawMaterialUseCase catálogo de materias primas. La cantidad agregada se mueve con UpdateStock
// o con los movimientos de inventario por sede. Toda escritura sobre una materia existente se hace
// con la fila bloqueada dentro de txRunner, igual que los movimientos.
type RawMaterialUseCase struct {
	txRunner   appinv.TxRunner
	repo       repository.RawMaterialRepository
	invRepo    repository.LocationInventoryRepository
	recipeRepo repository.RecipeRepository
	now        func() time.Time
}

// NewRawMaterialUseCase construye el caso de uso.
func NewRawMaterialUseCase(
	txRunner appinv.TxRunner,
	repo repository.RawMaterialRepository,
	invRepo repository.LocationInventoryRepository,
	recipeRepo repository.RecipeRepository,
) *RawMaterialUseCase {
	return &RawMaterialUseCase{txRunner: txRunner, repo: repo, invRepo: invRepo, recipeRepo: recipeRepo, now: time.Now}
}

// Create crea una materia prima. El nombre es único por empresa sin distinguir mayúsculas.
func (uc *RawMaterialUseCase) Create(ctx context.Context, companyID string, in dto.CreateRawMaterialRequest) (*dto.RawMaterialResponse, error) {
	name := entity.NormalizeName(in.Name)
	verr := &domain.ValidationError{}
	requireText(verr, "name", name)
	requireText(verr, "category", in.Category)
	requireText(verr, "unit", in.Unit)
	nonNegative(verr, "unit_price", in.UnitPrice)
	nonNegative(verr, "quantity", in.Quantity)
	nonNegative(verr, "min_level", in.MinLevel)
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	existing, err := uc.repo.GetByCompanyAndName(ctx, companyID, name)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("materia prima %q: %w", name, domain.ErrDuplicate)
	}

	now := uc.now()
	material := &entity.RawMaterial{
		ID:          uuid.New().String(),
		CompanyID:   companyID,
		Name:        name,
		Description: strings.TrimSpace(in.Description),
		Category:    strings.TrimSpace(in.Category),
		Unit:        strings.TrimSpace(in.Unit),
		UnitPrice:   in.UnitPrice,
		Quantity:    in.Quantity,
		MinLevel:    in.MinLevel,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	material.RefreshStatus()
	if err := uc.repo.Create(ctx, material); err != nil {
		return nil, err
	}
	return toRawMaterialResponse(material), nil
}

// GetByID obtiene una materia prima de la empresa.
func (uc *RawMaterialUseCase) GetByID(ctx context.Context, companyID, id string) (*dto.RawMaterialResponse, error) {
	material, err := uc.get(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	return toRawMaterialResponse(material), nil
}

// List lista con búsqueda por nombre/descripción y filtros de estado y categoría.
func (uc *RawMaterialUseCase) List(ctx context.Context, companyID string, in dto.RawMaterialFilter) (*dto.RawMaterialListResponse, error) {
	if in.Status != "" && !entity.IsValidStockStatus(in.Status) {
		return nil, domain.NewValidationError("status", "estado desconocido")
	}
	in.WithDefaults()
	list, total, err := uc.repo.List(ctx, repository.RawMaterialFilter{
		CompanyID: companyID,
		Search:    strings.TrimSpace(in.Search),
		Category:  strings.TrimSpace(in.Category),
		Status:    in.Status,
		Limit:     in.Limit,
		Offset:    in.Offset,
	})
	if err != nil {
		return nil, err
	}
	items := make([]dto.RawMaterialResponse, 0, len(list))
	for _, m := range list {
		items = append(items, *toRawMaterialResponse(m))
	}
	return &dto.RawMaterialListResponse{
		Items: items,
		Page:  in.Response(total),
	}, nil
}

// ListByCategory todas las materias primas de una categoría.
func (uc *RawMaterialUseCase) ListByCategory(ctx context.Context, companyID, category string) ([]dto.RawMaterialResponse, error) {
	category = strings.TrimSpace(category)
	if category == "" {
		return nil, domain.NewValidationError("category", "requerido")
	}
	list, _, err := uc.repo.List(ctx, repository.RawMaterialFilter{CompanyID: companyID, Category: category})
	if err != nil {
		return nil, err
	}
	items := make([]dto.RawMaterialResponse, 0, len(list))
	for _, m := range list {
		items = append(items, *toRawMaterialResponse(m))
	}
	return items, nil
}

// Update actualiza los datos descriptivos y vuelve a validar la unicidad del nombre (excluyéndose).
// La cantidad agregada se conserva tal como está en la fila bloqueada.
func (uc *RawMaterialUseCase) Update(ctx context.Context, companyID, id string, in dto.UpdateRawMaterialRequest) (*dto.RawMaterialResponse, error) {
	verr := &domain.ValidationError{}
	var name string
	if in.Name != nil {
		name = entity.NormalizeName(*in.Name)
		requireText(verr, "name", name)
	}
	if in.Category != nil {
		requireText(verr, "category", *in.Category)
	}
	if in.Unit != nil {
		requireText(verr, "unit", *in.Unit)
	}
	if in.UnitPrice != nil {
		nonNegative(verr, "unit_price", *in.UnitPrice)
	}
	if in.MinLevel != nil {
		nonNegative(verr, "min_level", *in.MinLevel)
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	var material *entity.RawMaterial
	err := uc.txRunner.Run(ctx, func(
		_ repository.LocationInventoryRepository,
		_ repository.StockTransactionRepository,
		materialRepo repository.RawMaterialRepository,
	) error {
		m, err := lockMaterial(ctx, materialRepo, companyID, id)
		if err != nil {
			return err
		}
		if name != "" {
			other, err := materialRepo.GetByCompanyAndName(ctx, companyID, name)
			if err != nil {
				return err
			}
			if other != nil && other.ID != m.ID {
				return fmt.Errorf("materia prima %q: %w", name, domain.ErrDuplicate)
			}
			m.Name = name
		}
		if in.Description != nil {
			m.Description = strings.TrimSpace(*in.Description)
		}
		if in.Category != nil {
			m.Category = strings.TrimSpace(*in.Category)
		}
		if in.Unit != nil {
			m.Unit = strings.TrimSpace(*in.Unit)
		}
		if in.UnitPrice != nil {
			m.UnitPrice = *in.UnitPrice
		}
		if in.MinLevel != nil {
			m.MinLevel = *in.MinLevel
		}
		m.RefreshStatus()
		m.UpdatedAt = uc.now()
		if err := materialRepo.Update(ctx, m); err != nil {
			return err
		}
		material = m
		return nil
	})
	if err != nil {
		return nil, err
	}
	return toRawMaterialResponse(material), nil
}

// UpdateStock aplica set/add/subtract sobre el agregado. subtract se recorta en cero.
func (uc *RawMaterialUseCase) UpdateStock(ctx context.Context, companyID, id string, in dto.UpdateStockRequest) (*dto.RawMaterialResponse, error) {
	if in.Quantity.IsNegative() {
		return nil, domain.NewValidationError("quantity", "no puede ser negativa")
	}
	if !entity.IsValidStockOperation(in.Operation) {
		return nil, domain.NewValidationError("operation", "debe ser set, add o subtract")
	}

	var material *entity.RawMaterial
	err := uc.txRunner.Run(ctx, func(
		_ repository.LocationInventoryRepository,
		_ repository.StockTransactionRepository,
		materialRepo repository.RawMaterialRepository,
	) error {
		m, err := lockMaterial(ctx, materialRepo, companyID, id)
		if err != nil {
			return err
		}
		m.ApplyStockOperation(in.Quantity, in.Operation)
		m.UpdatedAt = uc.now()
		if err := materialRepo.Update(ctx, m); err != nil {
			return err
		}
		material = m
		return nil
	})
	if err != nil {
		return nil, err
	}
	return toRawMaterialResponse(material), nil
}

// Delete borra la materia prima. No se permite mientras alguna sede tenga stock o
// alguna receta la use como ingrediente.
func (uc *RawMaterialUseCase) Delete(ctx context.Context, companyID, id string) error {
	material, err := uc.get(ctx, companyID, id)
	if err != nil {
		return err
	}
	inStock, err := uc.invRepo.HasStock(ctx, material.ID)
	if err != nil {
		return err
	}
	if inStock {
		return fmt.Errorf("materia prima %q tiene stock en alguna sede: %w", material.Name, domain.ErrConflict)
	}
	used, err := uc.recipeRepo.ExistsWithMaterial(ctx, material.ID)
	if err != nil {
		return err
	}
	if used {
		return fmt.Errorf("materia prima %q es ingrediente de una receta: %w", material.Name, domain.ErrConflict)
	}
	return uc.repo.Delete(ctx, material.ID)
}

func (uc *RawMaterialUseCase) get(ctx context.Context, companyID, id string) (*entity.RawMaterial, error) {
	material, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if material == nil {
		return nil, fmt.Errorf("materia prima %s: %w", id, domain.ErrNotFound)
	}
	if material.CompanyID != companyID {
		return nil, domain.ErrForbidden
	}
	return material, nil
}

// lockMaterial lee la materia prima con SELECT FOR UPDATE y comprueba la empresa.
func lockMaterial(ctx context.Context, repo repository.RawMaterialRepository, companyID, id string) (*entity.RawMaterial, error) {
	material, err := repo.GetForUpdate(ctx, id)
	if err != nil {
		return nil, err
	}
	if material == nil {
		return nil, fmt.Errorf("materia prima %s: %w", id, domain.ErrNotFound)
	}
	if material.CompanyID != companyID {
		return nil, domain.ErrForbidden
	}
	return material, nil
}

func requireText(verr *domain.ValidationError, field, value string) {
	if strings.TrimSpace(value) == "" {
		verr.Add(field, "requerido")
	}
}

func nonNegative(verr *domain.ValidationError, field string, value decimal.Decimal) {
	if value.IsNegative() {
		verr.Add(field, "no puede ser negativo")
	}
}

func toRawMaterialResponse(m *entity.RawMaterial) *dto.RawMaterialResponse {
	if m == nil {
		return nil
	}
	return &dto.RawMaterialResponse{
		ID:          m.ID,
		CompanyID:   m.CompanyID,
		Name:        m.Name,
		Description: m.Description,
		Category:    m.Category,
		Unit:        m.Unit,
		UnitPrice:   m.UnitPrice,
		Quantity:    m.Quantity,
		MinLevel:    m.MinLevel,
		Status:      m.Status,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}
