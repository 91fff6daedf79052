// seed_catalog carga un catálogo YAML (sedes, materias primas, stock inicial y recetas)
// para una empresa usando los mismos casos de uso que la API.
//
// Uso: go run ./cmd/seed_catalog -company <id> [-charset latin1] [catalogo.yaml]
// Por defecto lee catalog.yaml del directorio actual. Toma la conexión de la misma
// configuración que cmd/api (DATABASE_URL, DB_*, STORAGE_DRIVER).
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	appinv "github.com/jhoicas/cocina-stock-api/internal/application/inventory"
	"github.com/jhoicas/cocina-stock-api/internal/application/usecase"
	"github.com/jhoicas/cocina-stock-api/internal/infrastructure/memory"
	"github.com/jhoicas/cocina-stock-api/internal/infrastructure/postgres"
	"github.com/jhoicas/cocina-stock-api/pkg/config"
	"github.com/jhoicas/cocina-stock-api/pkg/logger"
)

func main() {
	companyID := flag.String("company", "", "empresa a la que pertenece el catálogo (obligatorio)")
	userID := flag.String("user", "seed", "usuario que figura en las transacciones de entrada")
	charset := flag.String("charset", "utf-8", "codificación del archivo: utf-8 o latin1")
	flag.Parse()

	path := "catalog.yaml"
	if flag.NArg() > 0 {
		path = flag.Arg(0)
	}
	if *companyID == "" {
		fmt.Fprintln(os.Stderr, "falta -company")
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuración: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel}).Component("seed_catalog")

	f, err := os.Open(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Abrir catálogo: %v\n", err)
		os.Exit(1)
	}
	defer f.Close()

	cat, err := parseCatalog(f, *charset)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	s, closeFn, err := newSeeder(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("almacenamiento")
	}
	s.companyID = *companyID
	s.userID = *userID

	res, err := s.run(ctx, cat)
	closeFn()
	if err != nil {
		log.Error().Err(err).Msg("carga interrumpida")
		os.Exit(1)
	}
	log.Info().
		Int("locations", res.Locations).
		Int("raw_materials", res.RawMaterials).
		Int("stock_entries", res.StockEntries).
		Int("recipes", res.Recipes).
		Str("file", path).
		Msg("catálogo cargado")
}

func newSeeder(ctx context.Context, cfg *config.Config, log *logger.Logger) (*seeder, func(), error) {
	if cfg.Storage.Driver == "memory" {
		log.Warn().Msg("STORAGE_DRIVER=memory: el catálogo sólo se valida, no se persiste")
		store := memory.New()
		return &seeder{
			locations: usecase.NewLocationUseCase(store.Locations(), store.Inventory()),
			materials: usecase.NewRawMaterialUseCase(store, store.RawMaterials(), store.Inventory(), store.Recipes()),
			recipes:   usecase.NewRecipeUseCase(store.Recipes(), store.RawMaterials(), store.Locations(), store.Inventory()),
			inventory: appinv.NewInventoryUseCase(store, store.Locations(), store.RawMaterials(), store.Inventory(), store.Transactions(), log),
			log:       log,
		}, func() {}, nil
	}

	if cfg.Storage.RunMigrations {
		if err := postgres.Migrate(cfg.DB.ConnectionString(), log); err != nil {
			return nil, nil, err
		}
	}
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		return nil, nil, err
	}
	locations := postgres.NewLocationRepository(pool)
	materials := postgres.NewRawMaterialRepository(pool)
	inv := postgres.NewLocationInventoryRepository(pool)
	recipes := postgres.NewRecipeRepository(pool)
	txRunner := postgres.NewTxRunner(pool)
	return &seeder{
		locations: usecase.NewLocationUseCase(locations, inv),
		materials: usecase.NewRawMaterialUseCase(txRunner, materials, inv, recipes),
		recipes:   usecase.NewRecipeUseCase(recipes, materials, locations, inv),
		inventory: appinv.NewInventoryUseCase(txRunner, locations, materials, inv,
			postgres.NewStockTransactionRepository(pool), log),
		log: log,
	}, pool.Close, nil
}
