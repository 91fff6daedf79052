package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/cocina-stock-api/internal/domain"
	"github.com/jhoicas/cocina-stock-api/internal/domain/entity"
	"github.com/jhoicas/cocina-stock-api/internal/domain/repository"
)

var (
	_ repository.LocationRepository          = (*LocationRepo)(nil)
	_ repository.RawMaterialRepository       = (*RawMaterialRepo)(nil)
	_ repository.LocationInventoryRepository = (*InventoryRepo)(nil)
	_ repository.StockTransactionRepository  = (*TransactionRepo)(nil)
	_ repository.RecipeRepository            = (*RecipeRepo)(nil)
)

// ---------------------------------------------------------------------------
// Sedes
// ---------------------------------------------------------------------------

// LocationRepo implementa repository.LocationRepository.
type LocationRepo struct{ b backend }

func (r *LocationRepo) Create(_ context.Context, l *entity.Location) error {
	return r.b.update(func(s *state) error {
		if _, ok := s.locations[l.ID]; ok {
			return fmt.Errorf("sede %s: %w", l.ID, domain.ErrDuplicate)
		}
		s.locations[l.ID] = *l
		return nil
	})
}

func (r *LocationRepo) GetByID(_ context.Context, id string) (*entity.Location, error) {
	var out *entity.Location
	r.b.view(func(s *state) {
		if l, ok := s.locations[id]; ok {
			out = &l
		}
	})
	return out, nil
}

func (r *LocationRepo) Update(_ context.Context, l *entity.Location) error {
	return r.b.update(func(s *state) error {
		if _, ok := s.locations[l.ID]; !ok {
			return domain.ErrNotFound
		}
		s.locations[l.ID] = *l
		return nil
	})
}

func (r *LocationRepo) ListByCompany(_ context.Context, companyID string, limit, offset int) ([]*entity.Location, error) {
	var list []*entity.Location
	r.b.view(func(s *state) {
		for _, l := range s.locations {
			if l.CompanyID == companyID {
				l := l
				list = append(list, &l)
			}
		}
	})
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	return page(list, limit, offset), nil
}

func (r *LocationRepo) Delete(_ context.Context, id string) error {
	return r.b.update(func(s *state) error {
		if _, ok := s.locations[id]; !ok {
			return domain.ErrNotFound
		}
		delete(s.locations, id)
		return nil
	})
}

// ---------------------------------------------------------------------------
// Materias primas
// ---------------------------------------------------------------------------

// RawMaterialRepo implementa repository.RawMaterialRepository.
type RawMaterialRepo struct{ b backend }

func (r *RawMaterialRepo) Create(_ context.Context, m *entity.RawMaterial) error {
	return r.b.update(func(s *state) error {
		if _, ok := s.materials[m.ID]; ok {
			return fmt.Errorf("materia prima %s: %w", m.ID, domain.ErrDuplicate)
		}
		if nameTaken(s, m.CompanyID, m.Name, m.ID) {
			return fmt.Errorf("materia prima %q: %w", m.Name, domain.ErrDuplicate)
		}
		s.materials[m.ID] = *m
		return nil
	})
}

func (r *RawMaterialRepo) GetByID(_ context.Context, id string) (*entity.RawMaterial, error) {
	var out *entity.RawMaterial
	r.b.view(func(s *state) {
		if m, ok := s.materials[id]; ok {
			out = &m
		}
	})
	return out, nil
}

// GetForUpdate en memoria la exclusión la da el Run serializado.
func (r *RawMaterialRepo) GetForUpdate(ctx context.Context, id string) (*entity.RawMaterial, error) {
	return r.GetByID(ctx, id)
}

func (r *RawMaterialRepo) GetByCompanyAndName(_ context.Context, companyID, name string) (*entity.RawMaterial, error) {
	key := entity.FoldName(name)
	var out *entity.RawMaterial
	r.b.view(func(s *state) {
		for _, m := range s.materials {
			if m.CompanyID == companyID && entity.FoldName(m.Name) == key {
				m := m
				out = &m
				return
			}
		}
	})
	return out, nil
}

func (r *RawMaterialRepo) Update(_ context.Context, m *entity.RawMaterial) error {
	return r.b.update(func(s *state) error {
		if _, ok := s.materials[m.ID]; !ok {
			return domain.ErrNotFound
		}
		if nameTaken(s, m.CompanyID, m.Name, m.ID) {
			return fmt.Errorf("materia prima %q: %w", m.Name, domain.ErrDuplicate)
		}
		s.materials[m.ID] = *m
		return nil
	})
}

func (r *RawMaterialRepo) Delete(_ context.Context, id string) error {
	return r.b.update(func(s *state) error {
		if _, ok := s.materials[id]; !ok {
			return domain.ErrNotFound
		}
		delete(s.materials, id)
		return nil
	})
}

func (r *RawMaterialRepo) List(_ context.Context, f repository.RawMaterialFilter) ([]*entity.RawMaterial, int, error) {
	search := strings.ToLower(f.Search)
	var list []*entity.RawMaterial
	r.b.view(func(s *state) {
		for _, m := range s.materials {
			if m.CompanyID != f.CompanyID {
				continue
			}
			if f.Category != "" && !strings.EqualFold(m.Category, f.Category) {
				continue
			}
			if f.Status != "" && m.Status != f.Status {
				continue
			}
			if search != "" && !strings.Contains(strings.ToLower(m.Name), search) &&
				!strings.Contains(strings.ToLower(m.Description), search) {
				continue
			}
			m := m
			list = append(list, &m)
		}
	})
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	return page(list, f.Limit, f.Offset), len(list), nil
}

func (r *RawMaterialRepo) ListByIDs(_ context.Context, ids []string) ([]*entity.RawMaterial, error) {
	var list []*entity.RawMaterial
	r.b.view(func(s *state) {
		for _, id := range ids {
			if m, ok := s.materials[id]; ok {
				list = append(list, &m)
			}
		}
	})
	return list, nil
}

func (r *RawMaterialRepo) ListByCompany(ctx context.Context, companyID string) ([]*entity.RawMaterial, error) {
	list, _, err := r.List(ctx, repository.RawMaterialFilter{CompanyID: companyID})
	return list, err
}

func nameTaken(s *state, companyID, name, exceptID string) bool {
	key := entity.FoldName(name)
	for _, m := range s.materials {
		if m.ID != exceptID && m.CompanyID == companyID && entity.FoldName(m.Name) == key {
			return true
		}
	}
	return false
}

// ---------------------------------------------------------------------------
// Inventario por sede
// ---------------------------------------------------------------------------

// InventoryRepo implementa repository.LocationInventoryRepository.
type InventoryRepo struct{ b backend }

func (r *InventoryRepo) Get(_ context.Context, locationID, rawMaterialID string) (*entity.LocationInventory, error) {
	out := &entity.LocationInventory{LocationID: locationID, RawMaterialID: rawMaterialID, Quantity: decimal.Zero}
	r.b.view(func(s *state) {
		if row, ok := s.inventory[invKey{locationID, rawMaterialID}]; ok {
			out = copyRow(row)
		}
	})
	return out, nil
}

func (r *InventoryRepo) GetForUpdate(ctx context.Context, locationID, rawMaterialID string) (*entity.LocationInventory, error) {
	return r.Get(ctx, locationID, rawMaterialID)
}

func (r *InventoryRepo) Upsert(_ context.Context, inv *entity.LocationInventory) error {
	if inv.Quantity.IsNegative() {
		return fmt.Errorf("inventario %s/%s: %w", inv.LocationID, inv.RawMaterialID, domain.ErrInsufficientStock)
	}
	return r.b.update(func(s *state) error {
		key := invKey{inv.LocationID, inv.RawMaterialID}
		if existing, ok := s.inventory[key]; ok {
			inv.ID = existing.ID
		} else if inv.ID == "" {
			inv.ID = uuid.New().String()
		}
		s.inventory[key] = *copyRow(*inv)
		return nil
	})
}

func (r *InventoryRepo) DecrementIfSufficient(_ context.Context, locationID, rawMaterialID string, qty decimal.Decimal, now time.Time) (bool, error) {
	var ok bool
	err := r.b.update(func(s *state) error {
		key := invKey{locationID, rawMaterialID}
		row, exists := s.inventory[key]
		if !exists || row.Quantity.LessThan(qty) {
			return nil
		}
		row.Quantity = row.Quantity.Sub(qty)
		row.LastUpdated = now
		s.inventory[key] = row
		ok = true
		return nil
	})
	return ok, err
}

func (r *InventoryRepo) ListViews(_ context.Context, locationID string, f repository.InventoryFilter) ([]entity.InventoryView, error) {
	search := strings.ToLower(f.Search)
	var out []entity.InventoryView
	r.b.view(func(s *state) {
		for key, row := range s.inventory {
			if key.locationID != locationID {
				continue
			}
			m, ok := s.materials[key.rawMaterialID]
			if !ok {
				continue
			}
			if f.Category != "" && !strings.EqualFold(m.Category, f.Category) {
				continue
			}
			if search != "" && !strings.Contains(strings.ToLower(m.Name), search) &&
				!strings.Contains(strings.ToLower(m.Description), search) {
				continue
			}
			out = append(out, view(row, m))
		}
	})
	sortViews(out)
	return out, nil
}

func (r *InventoryRepo) ListLowStock(_ context.Context, companyID, locationID string) ([]entity.InventoryView, error) {
	var out []entity.InventoryView
	r.b.view(func(s *state) {
		for key, row := range s.inventory {
			if locationID != "" && key.locationID != locationID {
				continue
			}
			m, ok := s.materials[key.rawMaterialID]
			if !ok || m.CompanyID != companyID {
				continue
			}
			if row.Quantity.LessThanOrEqual(m.MinLevel) {
				out = append(out, view(row, m))
			}
		}
	})
	sortViews(out)
	return out, nil
}

func (r *InventoryRepo) ListExpiring(_ context.Context, companyID, locationID string, from, until time.Time) ([]entity.InventoryView, error) {
	var out []entity.InventoryView
	r.b.view(func(s *state) {
		for key, row := range s.inventory {
			if locationID != "" && key.locationID != locationID {
				continue
			}
			if row.ExpiryDate == nil || !row.Quantity.IsPositive() {
				continue
			}
			if row.ExpiryDate.Before(from) || row.ExpiryDate.After(until) {
				continue
			}
			m, ok := s.materials[key.rawMaterialID]
			if !ok || m.CompanyID != companyID {
				continue
			}
			out = append(out, view(row, m))
		}
	})
	sort.Slice(out, func(i, j int) bool {
		return out[i].Inventory.ExpiryDate.Before(*out[j].Inventory.ExpiryDate)
	})
	return out, nil
}

func (r *InventoryRepo) SumByMaterial(_ context.Context, companyID string) (map[string]decimal.Decimal, error) {
	out := make(map[string]decimal.Decimal)
	r.b.view(func(s *state) {
		for key, row := range s.inventory {
			m, ok := s.materials[key.rawMaterialID]
			if !ok || m.CompanyID != companyID {
				continue
			}
			out[key.rawMaterialID] = out[key.rawMaterialID].Add(row.Quantity)
		}
	})
	return out, nil
}

func (r *InventoryRepo) HasStock(_ context.Context, rawMaterialID string) (bool, error) {
	var found bool
	r.b.view(func(s *state) {
		for key, row := range s.inventory {
			if key.rawMaterialID == rawMaterialID && row.Quantity.IsPositive() {
				found = true
				return
			}
		}
	})
	return found, nil
}

func (r *InventoryRepo) ExistsAtLocation(_ context.Context, locationID string) (bool, error) {
	var found bool
	r.b.view(func(s *state) {
		for key := range s.inventory {
			if key.locationID == locationID {
				found = true
				return
			}
		}
	})
	return found, nil
}

func copyRow(row entity.LocationInventory) *entity.LocationInventory {
	if row.ExpiryDate != nil {
		exp := *row.ExpiryDate
		row.ExpiryDate = &exp
	}
	return &row
}

func view(row entity.LocationInventory, m entity.RawMaterial) entity.InventoryView {
	return entity.InventoryView{
		Inventory: *copyRow(row),
		Material:  m,
		Status:    entity.DeriveStockStatus(row.Quantity, m.MinLevel),
	}
}

func sortViews(v []entity.InventoryView) {
	sort.Slice(v, func(i, j int) bool {
		if v[i].Inventory.LocationID != v[j].Inventory.LocationID {
			return v[i].Inventory.LocationID < v[j].Inventory.LocationID
		}
		return v[i].Material.Name < v[j].Material.Name
	})
}

// ---------------------------------------------------------------------------
// Libro de movimientos
// ---------------------------------------------------------------------------

// TransactionRepo implementa repository.StockTransactionRepository (solo inserción y lectura).
type TransactionRepo struct{ b backend }

func (r *TransactionRepo) Create(_ context.Context, t *entity.StockTransaction) error {
	return r.b.update(func(s *state) error {
		for i := range s.transactions {
			if s.transactions[i].ID == t.ID {
				return fmt.Errorf("transacción %s: %w", t.ID, domain.ErrDuplicate)
			}
		}
		s.transactions = append(s.transactions, *t)
		return nil
	})
}

func (r *TransactionRepo) GetByID(_ context.Context, id string) (*entity.StockTransaction, error) {
	var out *entity.StockTransaction
	r.b.view(func(s *state) {
		for _, t := range s.transactions {
			if t.ID == id {
				t := t
				out = &t
				return
			}
		}
	})
	return out, nil
}

func (r *TransactionRepo) List(_ context.Context, f repository.TransactionFilter) ([]*entity.StockTransaction, error) {
	var out []*entity.StockTransaction
	r.b.view(func(s *state) {
		for i := len(s.transactions) - 1; i >= 0; i-- {
			t := s.transactions[i]
			if loc, ok := s.locations[t.LocationID]; !ok || loc.CompanyID != f.CompanyID {
				continue
			}
			if f.Type != "" && t.Type != f.Type {
				continue
			}
			if f.LocationID != "" && t.LocationID != f.LocationID &&
				t.SourceLocationID != f.LocationID && t.DestinationLocationID != f.LocationID {
				continue
			}
			if f.RawMaterialID != "" && t.RawMaterialID != f.RawMaterialID {
				continue
			}
			if f.From != nil && t.CreatedAt.Before(*f.From) {
				continue
			}
			if f.To != nil && t.CreatedAt.After(*f.To) {
				continue
			}
			out = append(out, &t)
		}
	})
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// Recetas
// ---------------------------------------------------------------------------

// RecipeRepo implementa repository.RecipeRepository.
type RecipeRepo struct{ b backend }

func (r *RecipeRepo) Create(_ context.Context, rec *entity.Recipe) error {
	return r.b.update(func(s *state) error {
		if _, ok := s.recipes[rec.ID]; ok {
			return fmt.Errorf("receta %s: %w", rec.ID, domain.ErrDuplicate)
		}
		s.recipes[rec.ID] = copyRecipe(*rec)
		return nil
	})
}

func (r *RecipeRepo) GetByID(_ context.Context, id string) (*entity.Recipe, error) {
	var out *entity.Recipe
	r.b.view(func(s *state) {
		if rec, ok := s.recipes[id]; ok {
			c := copyRecipe(rec)
			out = &c
		}
	})
	return out, nil
}

func (r *RecipeRepo) Update(_ context.Context, rec *entity.Recipe) error {
	return r.b.update(func(s *state) error {
		if _, ok := s.recipes[rec.ID]; !ok {
			return domain.ErrNotFound
		}
		s.recipes[rec.ID] = copyRecipe(*rec)
		return nil
	})
}

func (r *RecipeRepo) Delete(_ context.Context, id string) error {
	return r.b.update(func(s *state) error {
		if _, ok := s.recipes[id]; !ok {
			return domain.ErrNotFound
		}
		delete(s.recipes, id)
		return nil
	})
}

func (r *RecipeRepo) ListByCompany(_ context.Context, companyID, search string, limit, offset int) ([]*entity.Recipe, int, error) {
	search = strings.ToLower(search)
	var list []*entity.Recipe
	r.b.view(func(s *state) {
		for _, rec := range s.recipes {
			if rec.CompanyID != companyID {
				continue
			}
			if search != "" && !strings.Contains(strings.ToLower(rec.Name), search) {
				continue
			}
			c := copyRecipe(rec)
			list = append(list, &c)
		}
	})
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	return page(list, limit, offset), len(list), nil
}

func (r *RecipeRepo) ExistsWithMaterial(_ context.Context, rawMaterialID string) (bool, error) {
	var found bool
	r.b.view(func(s *state) {
		for _, rec := range s.recipes {
			if rec.UsesMaterial(rawMaterialID) {
				found = true
				return
			}
		}
	})
	return found, nil
}

func copyRecipe(r entity.Recipe) entity.Recipe {
	r.Ingredients = append([]entity.RecipeIngredient(nil), r.Ingredients...)
	return r
}

func page[T any](list []T, limit, offset int) []T {
	if offset >= len(list) {
		return []T{}
	}
	list = list[offset:]
	if limit > 0 && len(list) > limit {
		list = list[:limit]
	}
	return list
}
