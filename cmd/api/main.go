package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	appinv "github.com/jhoicas/cocina-stock-api/internal/application/inventory"
	"github.com/jhoicas/cocina-stock-api/internal/application/usecase"
	"github.com/jhoicas/cocina-stock-api/internal/domain/repository"
	"github.com/jhoicas/cocina-stock-api/internal/infrastructure/cache"
	"github.com/jhoicas/cocina-stock-api/internal/infrastructure/memory"
	"github.com/jhoicas/cocina-stock-api/internal/infrastructure/messaging"
	"github.com/jhoicas/cocina-stock-api/internal/infrastructure/metrics"
	"github.com/jhoicas/cocina-stock-api/internal/infrastructure/postgres"
	httpRouter "github.com/jhoicas/cocina-stock-api/internal/interfaces/http"
	"github.com/jhoicas/cocina-stock-api/pkg/config"
	"github.com/jhoicas/cocina-stock-api/pkg/logger"
)

// storage repositorios y runner de transacciones del backend elegido.
type storage struct {
	txRunner     appinv.TxRunner
	locations    repository.LocationRepository
	materials    repository.RawMaterialRepository
	inventory    repository.LocationInventoryRepository
	transactions repository.StockTransactionRepository
	recipes      repository.RecipeRepository
	close        func()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: cfg.App.LogLevel,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("storage", cfg.Storage.Driver).
		Msg("iniciando aplicación")

	ctx := context.Background()
	st, err := openStorage(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("almacenamiento")
	}
	defer st.close()

	opts := []appinv.Option{appinv.WithLimits(cfg.Inventory.TransactionsMax, cfg.Inventory.ExpiringDays)}

	// Idempotencia de descuentos: Redis si está configurado, si no en memoria del proceso.
	if cfg.Redis.URL != "" {
		client, err := cache.Connect(ctx, cfg.Redis.URL)
		if err != nil {
			log.Fatal().Err(err).Msg("conexión a Redis")
		}
		store := cache.NewRedisIdempotencyStore(client, cfg.Redis)
		defer store.Close()
		opts = append(opts, appinv.WithIdempotency(store))
	} else {
		opts = append(opts, appinv.WithIdempotency(cache.NewInMemoryIdempotencyStore(cfg.Redis.IdempotencyTTL)))
	}

	if cfg.Kafka.Enabled() {
		publisher := messaging.NewKafkaPublisher(cfg.Kafka, log)
		defer func() {
			if err := publisher.Close(); err != nil {
				log.Error().Err(err).Msg("cerrar publicador Kafka")
			}
		}()
		opts = append(opts, appinv.WithPublisher(publisher))
	}

	var prom *metrics.Prometheus
	if cfg.Metrics.Enabled {
		prom = metrics.New()
		opts = append(opts, appinv.WithMetrics(prom))
	}

	inventoryUC := appinv.NewInventoryUseCase(st.txRunner, st.locations, st.materials, st.inventory, st.transactions, log, opts...)
	deductionUC := appinv.NewDeductionUseCase(st.txRunner, st.recipes, st.locations, log, opts...)
	rawMaterialUC := usecase.NewRawMaterialUseCase(st.txRunner, st.materials, st.inventory, st.recipes)
	locationUC := usecase.NewLocationUseCase(st.locations, st.inventory)
	recipeUC := usecase.NewRecipeUseCase(st.recipes, st.materials, st.locations, st.inventory)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())
	if prom != nil {
		app.Use(httpRouter.AccessMiddleware(log, prom))
	} else {
		app.Use(httpRouter.AccessMiddleware(log, nil))
	}

	// Swagger UI en local: http://localhost:<port>/docs
	if _, err := os.Stat(cfg.HTTP.SwaggerFile); err == nil {
		app.Use(swagger.New(swagger.Config{
			BasePath: "/",
			FilePath: cfg.HTTP.SwaggerFile,
			Path:     "docs",
			Title:    "Cocina Stock API",
		}))
	} else {
		log.Warn().Str("file", cfg.HTTP.SwaggerFile).Msg("swagger deshabilitado: archivo no encontrado")
	}

	deps := httpRouter.RouterDeps{
		RawMaterialUC: rawMaterialUC,
		LocationUC:    locationUC,
		RecipeUC:      recipeUC,
		InventoryUC:   inventoryUC,
		DeductionUC:   deductionUC,
		JWTSecret:     cfg.JWT.Secret,
		JWTIssuer:     cfg.JWT.Issuer,
		ServiceName:   cfg.App.Name,
		MetricsPath:   cfg.Metrics.Path,
	}
	if prom != nil {
		deps.MetricsHandler = prom.Handler()
	}
	httpRouter.Router(app, deps)

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("aplicación detenida")
}

// openStorage conecta PostgreSQL (aplicando migraciones si se pidió) o crea el almacén en memoria.
func openStorage(ctx context.Context, cfg *config.Config, log *logger.Logger) (*storage, error) {
	if cfg.Storage.Driver == "memory" {
		log.Warn().Msg("almacenamiento en memoria: los datos se pierden al reiniciar")
		store := memory.New()
		return &storage{
			txRunner:     store,
			locations:    store.Locations(),
			materials:    store.RawMaterials(),
			inventory:    store.Inventory(),
			transactions: store.Transactions(),
			recipes:      store.Recipes(),
			close:        func() {},
		}, nil
	}

	if cfg.Storage.RunMigrations {
		if err := postgres.Migrate(cfg.DB.ConnectionString(), log); err != nil {
			return nil, err
		}
	}
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		return nil, err
	}
	return &storage{
		txRunner:     postgres.NewTxRunner(pool),
		locations:    postgres.NewLocationRepository(pool),
		materials:    postgres.NewRawMaterialRepository(pool),
		inventory:    postgres.NewLocationInventoryRepository(pool),
		transactions: postgres.NewStockTransactionRepository(pool),
		recipes:      postgres.NewRecipeRepository(pool),
		close:        pool.Close,
	}, nil
}
