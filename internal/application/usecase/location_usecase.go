package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/cocina-stock-api/internal/application/dto"
	"github.com/jhoicas/cocina-stock-api/internal/domain"
	"github.com/jhoicas/cocina-stock-api/internal/domain/entity"
	"github.com/jhoicas/cocina-stock-api/internal/domain/repository"
)

// LocationUseCase casos de uso CRUD para sedes.
type LocationUseCase struct {
	repo    repository.LocationRepository
	invRepo repository.LocationInventoryRepository
}

// NewLocationUseCase construye el caso de uso.
func NewLocationUseCase(repo repository.LocationRepository, invRepo repository.LocationInventoryRepository) *LocationUseCase {
	return &LocationUseCase{repo: repo, invRepo: invRepo}
}

// Create crea una nueva sede.
func (uc *LocationUseCase) Create(ctx context.Context, companyID string, in dto.CreateLocationRequest) (*dto.LocationResponse, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, domain.NewValidationError("name", "requerido")
	}
	now := time.Now()
	location := &entity.Location{
		ID:        uuid.New().String(),
		CompanyID: companyID,
		Name:      name,
		Address:   strings.TrimSpace(in.Address),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := uc.repo.Create(ctx, location); err != nil {
		return nil, err
	}
	return toLocationResponse(location), nil
}

// GetByID obtiene una sede de la empresa.
func (uc *LocationUseCase) GetByID(ctx context.Context, companyID, id string) (*dto.LocationResponse, error) {
	location, err := uc.get(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	return toLocationResponse(location), nil
}

// Update actualiza una sede.
func (uc *LocationUseCase) Update(ctx context.Context, companyID, id string, in dto.UpdateLocationRequest) (*dto.LocationResponse, error) {
	location, err := uc.get(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, domain.NewValidationError("name", "requerido")
		}
		location.Name = name
	}
	if in.Address != nil {
		location.Address = strings.TrimSpace(*in.Address)
	}
	location.UpdatedAt = time.Now()
	if err := uc.repo.Update(ctx, location); err != nil {
		return nil, err
	}
	return toLocationResponse(location), nil
}

// List lista sedes por empresa con paginación.
func (uc *LocationUseCase) List(ctx context.Context, companyID string, page dto.PageRequest) (*dto.LocationListResponse, error) {
	page.WithDefaults()
	list, err := uc.repo.ListByCompany(ctx, companyID, page.Limit, page.Offset)
	if err != nil {
		return nil, err
	}
	items := make([]dto.LocationResponse, 0, len(list))
	for _, l := range list {
		items = append(items, *toLocationResponse(l))
	}
	return &dto.LocationListResponse{
		Items: items,
		Page:  page.Response(len(items)),
	}, nil
}

// Delete elimina una sede sin filas de inventario.
func (uc *LocationUseCase) Delete(ctx context.Context, companyID, id string) error {
	location, err := uc.get(ctx, companyID, id)
	if err != nil {
		return err
	}
	used, err := uc.invRepo.ExistsAtLocation(ctx, location.ID)
	if err != nil {
		return err
	}
	if used {
		return fmt.Errorf("sede %q tiene inventario registrado: %w", location.Name, domain.ErrConflict)
	}
	return uc.repo.Delete(ctx, location.ID)
}

func (uc *LocationUseCase) get(ctx context.Context, companyID, id string) (*entity.Location, error) {
	location, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if location == nil {
		return nil, fmt.Errorf("sede %s: %w", id, domain.ErrNotFound)
	}
	if location.CompanyID != companyID {
		return nil, domain.ErrForbidden
	}
	return location, nil
}

func toLocationResponse(l *entity.Location) *dto.LocationResponse {
	if l == nil {
		return nil
	}
	return &dto.LocationResponse{
		ID:        l.ID,
		CompanyID: l.CompanyID,
		Name:      l.Name,
		Address:   l.Address,
		CreatedAt: l.CreatedAt,
		UpdatedAt: l.UpdatedAt,
	}
}
