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

	"github.com/jhoicas/Comprobantes-api/internal/application/billing"
	infrapdf "github.com/jhoicas/Comprobantes-api/internal/infrastructure/pdf"
	"github.com/jhoicas/Comprobantes-api/internal/infrastructure/postgres"
	infrasri "github.com/jhoicas/Comprobantes-api/internal/infrastructure/sri"
	"github.com/jhoicas/Comprobantes-api/internal/infrastructure/storage"
	httpRouter "github.com/jhoicas/Comprobantes-api/internal/interfaces/http"
	"github.com/jhoicas/Comprobantes-api/pkg/config"
	"github.com/jhoicas/Comprobantes-api/pkg/logger"
)

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
		Str("sri_environment", cfg.SRI.Environment).
		Msg("iniciando aplicación")

	if cfg.JWT.Secret == "" {
		log.Fatal().Msg("JWT_SECRET es obligatorio")
	}

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	artifacts, closeArtifacts, err := storage.New(ctx, cfg.Artifact)
	if err != nil {
		log.Fatal().Err(err).Str("backend", cfg.Artifact.Backend).Msg("almacén de artefactos")
	}
	defer func() { _ = closeArtifacts() }()

	tenantRepo := postgres.NewTenantRepository(pool)
	pointRepo := postgres.NewEmissionPointRepository(pool)
	docRepo := postgres.NewFiscalDocumentRepository(pool)
	errorRepo := postgres.NewAuthorityErrorRepository(pool)
	txRunner := postgres.NewTxRunner(pool)

	// Cliente SOAP SRI: recepción y autorización offline
	sriClient := infrasri.NewClient(cfg.SRI, log.Component("sri"))

	allocator := billing.NewSequenceAllocator(cfg.Sequence.MaxAttempts, log.Component("sequence"))
	documentUC := billing.NewDocumentUseCase(
		txRunner, allocator, docRepo, pointRepo, tenantRepo, errorRepo,
		artifacts, cfg.SRI.Environment, log.Component("documents"),
	)
	pipeline := billing.NewAuthorizationPipeline(
		txRunner, docRepo, errorRepo, artifacts, sriClient, log.Component("pipeline"),
	)

	// PDF: RIDE del comprobante autorizado
	rideUC := billing.NewRIDEUseCase(docRepo, tenantRepo, pointRepo, infrapdf.NewRIDEGenerator())

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: cfg.SRI.Timeout + 10*time.Second,
		IdleTimeout:  time.Second * 60,
		Immutable:    true,
	})
	app.Use(recover.New())

	// Swagger UI en local: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    "Comprobantes API",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		if err := pool.Ping(c.Context()); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "degraded", "service": cfg.App.Name})
		}
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name})
	})

	httpRouter.Router(app, httpRouter.RouterDeps{
		Documents:      documentUC,
		Pipeline:       pipeline,
		RIDE:           rideUC,
		EmissionPoints: billing.NewEmissionPointUseCase(txRunner, pointRepo),
		Sequences:      billing.NewSequenceUseCase(txRunner, allocator),
		Tenants:        tenantRepo,
		JWTSecret:      cfg.JWT.Secret,
		Log:            log.Component("http"),
	})

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
