package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
	"gopkg.in/yaml.v3"

	"github.com/jhoicas/cocina-stock-api/internal/application/dto"
	appinv "github.com/jhoicas/cocina-stock-api/internal/application/inventory"
	"github.com/jhoicas/cocina-stock-api/internal/application/usecase"
	"github.com/jhoicas/cocina-stock-api/internal/domain"
	"github.com/jhoicas/cocina-stock-api/internal/domain/entity"
	"github.com/jhoicas/cocina-stock-api/pkg/logger"
)

// catalog archivo YAML con sedes, materias primas, stock inicial y recetas.
// Las referencias entre secciones van por nombre.
type catalog struct {
	Locations    []catalogLocation `yaml:"locations"`
	RawMaterials []catalogMaterial `yaml:"raw_materials"`
	Stock        []catalogStock    `yaml:"stock"`
	Recipes      []catalogRecipe   `yaml:"recipes"`
}

type catalogLocation struct {
	Name    string `yaml:"name"`
	Address string `yaml:"address"`
}

type catalogMaterial struct {
	Name        string          `yaml:"name"`
	Description string          `yaml:"description"`
	Category    string          `yaml:"category"`
	Unit        string          `yaml:"unit"`
	UnitPrice   decimal.Decimal `yaml:"unit_price"`
	MinLevel    decimal.Decimal `yaml:"min_level"`
}

type catalogStock struct {
	Location    string           `yaml:"location"`
	Material    string           `yaml:"material"`
	Quantity    decimal.Decimal  `yaml:"quantity"`
	CostPrice   *decimal.Decimal `yaml:"cost_price"`
	ExpiryDate  string           `yaml:"expiry_date"` // YYYY-MM-DD
	BatchNumber string           `yaml:"batch_number"`
}

type catalogRecipe struct {
	Name           string              `yaml:"name"`
	Description    string              `yaml:"description"`
	CookingTime    int                 `yaml:"cooking_time"`
	Servings       int                 `yaml:"servings"`
	CostPerServing decimal.Decimal     `yaml:"cost_per_serving"`
	Instructions   string              `yaml:"instructions"`
	Ingredients    []catalogIngredient `yaml:"ingredients"`
}

type catalogIngredient struct {
	Material string          `yaml:"material"`
	Quantity decimal.Decimal `yaml:"quantity"`
	Unit     string          `yaml:"unit"`
}

// parseCatalog decodifica el YAML; charset "latin1" transcodifica desde ISO-8859-1
// (exportaciones de hojas de cálculo).
func parseCatalog(r io.Reader, charset string) (*catalog, error) {
	switch strings.ToLower(charset) {
	case "", "utf-8", "utf8":
	case "latin1", "iso-8859-1", "iso8859-1":
		r = transform.NewReader(r, charmap.ISO8859_1.NewDecoder())
	default:
		return nil, fmt.Errorf("charset no soportado: %s", charset)
	}
	var c catalog
	if err := yaml.NewDecoder(r).Decode(&c); err != nil {
		if errors.Is(err, io.EOF) {
			return &c, nil
		}
		return nil, fmt.Errorf("decodificar catálogo: %w", err)
	}
	return &c, nil
}

// seeder carga el catálogo a través de los casos de uso, así aplica las mismas validaciones que la API.
type seeder struct {
	companyID string
	userID    string
	locations *usecase.LocationUseCase
	materials *usecase.RawMaterialUseCase
	recipes   *usecase.RecipeUseCase
	inventory *appinv.InventoryUseCase
	log       *logger.Logger

	locationIDs map[string]string
	materialIDs map[string]string
}

// seedResult conteos de lo creado; lo existente se reutiliza y no cuenta.
type seedResult struct {
	Locations    int
	RawMaterials int
	StockEntries int
	Recipes      int
}

func (s *seeder) run(ctx context.Context, c *catalog) (seedResult, error) {
	var res seedResult
	s.locationIDs = make(map[string]string)
	s.materialIDs = make(map[string]string)

	existingLocs, err := s.locations.List(ctx, s.companyID, dto.PageRequest{Limit: 1000})
	if err != nil {
		return res, err
	}
	for _, l := range existingLocs.Items {
		s.locationIDs[nameKey(l.Name)] = l.ID
	}
	for _, l := range c.Locations {
		if _, ok := s.locationIDs[nameKey(l.Name)]; ok {
			s.log.Info().Str("location", l.Name).Msg("sede existente, se reutiliza")
			continue
		}
		out, err := s.locations.Create(ctx, s.companyID, dto.CreateLocationRequest{Name: l.Name, Address: l.Address})
		if err != nil {
			return res, fmt.Errorf("sede %q: %w", l.Name, err)
		}
		s.locationIDs[nameKey(out.Name)] = out.ID
		res.Locations++
	}

	for _, m := range c.RawMaterials {
		out, err := s.materials.Create(ctx, s.companyID, dto.CreateRawMaterialRequest{
			Name:        m.Name,
			Description: m.Description,
			Category:    m.Category,
			Unit:        m.Unit,
			UnitPrice:   m.UnitPrice,
			MinLevel:    m.MinLevel,
		})
		if errors.Is(err, domain.ErrDuplicate) {
			id, ferr := s.findMaterial(ctx, m.Name)
			if ferr != nil {
				return res, ferr
			}
			s.materialIDs[nameKey(m.Name)] = id
			s.log.Info().Str("material", m.Name).Msg("materia prima existente, se reutiliza")
			continue
		}
		if err != nil {
			return res, fmt.Errorf("materia prima %q: %w", m.Name, err)
		}
		s.materialIDs[nameKey(out.Name)] = out.ID
		res.RawMaterials++
	}

	for i, st := range c.Stock {
		locID, ok := s.locationIDs[nameKey(st.Location)]
		if !ok {
			return res, fmt.Errorf("stock[%d]: sede %q no está en el catálogo: %w", i, st.Location, domain.ErrNotFound)
		}
		matID, err := s.materialID(ctx, st.Material)
		if err != nil {
			return res, fmt.Errorf("stock[%d]: %w", i, err)
		}
		in := dto.AddStockRequest{
			RawMaterialID: matID,
			Quantity:      st.Quantity,
			CostPrice:     st.CostPrice,
			Reference:     "SEED",
			Source:        "catálogo inicial",
		}
		if st.BatchNumber != "" {
			batch := st.BatchNumber
			in.BatchNumber = &batch
		}
		if st.ExpiryDate != "" {
			t, err := time.Parse(time.DateOnly, st.ExpiryDate)
			if err != nil {
				return res, fmt.Errorf("stock[%d]: expiry_date %q: %w", i, st.ExpiryDate, domain.ErrInvalidInput)
			}
			in.ExpiryDate = &t
		}
		if _, err := s.inventory.AddStock(ctx, s.companyID, s.userID, locID, in); err != nil {
			return res, fmt.Errorf("stock[%d] %s en %s: %w", i, st.Material, st.Location, err)
		}
		res.StockEntries++
	}

	existingRecipes, err := s.recipes.List(ctx, s.companyID, "", dto.PageRequest{Limit: 1000})
	if err != nil {
		return res, err
	}
	recipeNames := make(map[string]bool, len(existingRecipes.Items))
	for _, r := range existingRecipes.Items {
		recipeNames[nameKey(r.Name)] = true
	}
	for _, r := range c.Recipes {
		if recipeNames[nameKey(r.Name)] {
			s.log.Info().Str("recipe", r.Name).Msg("receta existente, se omite")
			continue
		}
		in := dto.CreateRecipeRequest{
			Name:           r.Name,
			Description:    r.Description,
			CookingTime:    r.CookingTime,
			Servings:       r.Servings,
			CostPerServing: r.CostPerServing,
			Instructions:   r.Instructions,
		}
		for _, ing := range r.Ingredients {
			id, err := s.materialID(ctx, ing.Material)
			if err != nil {
				return res, fmt.Errorf("receta %q: %w", r.Name, err)
			}
			in.Ingredients = append(in.Ingredients, dto.RecipeIngredientRequest{
				RawMaterialID: id,
				Quantity:      ing.Quantity,
				Unit:          ing.Unit,
			})
		}
		if _, err := s.recipes.Create(ctx, s.companyID, in); err != nil {
			return res, fmt.Errorf("receta %q: %w", r.Name, err)
		}
		recipeNames[nameKey(r.Name)] = true
		res.Recipes++
	}
	return res, nil
}

// materialID resuelve por nombre: primero lo cargado en esta corrida, luego el catálogo guardado.
func (s *seeder) materialID(ctx context.Context, name string) (string, error) {
	if id, ok := s.materialIDs[nameKey(name)]; ok {
		return id, nil
	}
	id, err := s.findMaterial(ctx, name)
	if err != nil {
		return "", err
	}
	s.materialIDs[nameKey(name)] = id
	return id, nil
}

func (s *seeder) findMaterial(ctx context.Context, name string) (string, error) {
	list, err := s.materials.List(ctx, s.companyID, dto.RawMaterialFilter{
		Search:      entity.NormalizeName(name),
		PageRequest: dto.PageRequest{Limit: 100},
	})
	if err != nil {
		return "", err
	}
	for _, m := range list.Items {
		if nameKey(m.Name) == nameKey(name) {
			return m.ID, nil
		}
	}
	return "", fmt.Errorf("materia prima %q: %w", name, domain.ErrNotFound)
}

func nameKey(s string) string {
	return entity.FoldName(s)
}
