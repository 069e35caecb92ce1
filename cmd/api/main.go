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

	"github.com/jhoicas/firmador-dte/internal/application/signing"
	"github.com/jhoicas/firmador-dte/internal/domain/repository"
	"github.com/jhoicas/firmador-dte/internal/infrastructure/certificate"
	"github.com/jhoicas/firmador-dte/internal/infrastructure/jws"
	"github.com/jhoicas/firmador-dte/internal/infrastructure/keys"
	"github.com/jhoicas/firmador-dte/internal/infrastructure/postgres"
	httpRouter "github.com/jhoicas/firmador-dte/internal/interfaces/http"
	"github.com/jhoicas/firmador-dte/pkg/config"
	"github.com/jhoicas/firmador-dte/pkg/logger"
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
		Str("cert_directory", cfg.Signing.CertDirectory).
		Msg("iniciando aplicación")

	mode, err := jws.ParsePayloadMode(cfg.Signing.PayloadMode)
	if err != nil {
		log.Fatal().Err(err).Msg("modo de payload")
	}

	metrics, err := httpRouter.NewMetrics()
	if err != nil {
		log.Fatal().Err(err).Msg("registrar métricas")
	}

	// Registro de firmas (opcional). Sin AUDIT_ENABLED no se abre conexión a PostgreSQL.
	ctx := context.Background()
	var (
		auditRepo repository.SignatureRepository
		auditUC   *signing.AuditUseCase
	)
	if cfg.Audit.Enabled {
		pool, err := postgres.NewPool(ctx, cfg.DB)
		if err != nil {
			log.Fatal().Err(err).Msg("conexión a PostgreSQL")
		}
		defer pool.Close()

		if err := postgres.Migrate(ctx, pool); err != nil {
			log.Fatal().Err(err).Msg("migraciones de auditoría")
		}
		if err := metrics.RegisterPool(pool); err != nil {
			log.Warn().Err(err).Msg("métricas del pool")
		}
		repo := postgres.NewSignatureRepository(pool)
		auditRepo = repo
		auditUC = signing.NewAuditUseCase(repo, log)
		log.Info().Msg("registro de firmas habilitado")
	}

	normalizer := keys.NewNormalizer(log)
	loader := certificate.NewLoader(cfg.Signing.CertDirectory, normalizer, log)
	signer := jws.NewSigner(normalizer, mode)
	signUC := signing.NewSignUseCase(loader, signer, auditRepo, log)
	verifyUC := signing.NewVerifyUseCase(loader, jws.NewVerifier(), log)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
		BodyLimit:    8 * 1024 * 1024,
	})
	app.Use(recover.New())

	// Swagger UI en local: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    "Firmador DTE",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name})
	})

	log.Info().Str("payload_mode", signer.Mode().String()).Msg("firmador listo")
	if !cfg.JWT.Enabled() {
		log.Warn().Msg("JWT_SECRET vacío: /api/dte sin autenticación")
	}
	httpRouter.Router(app, httpRouter.RouterDeps{
		SignUC:    signUC,
		VerifyUC:  verifyUC,
		AuditUC:   auditUC,
		Metrics:   metrics,
		JWTSecret: cfg.JWT.Secret,
		JWTIssuer: cfg.JWT.Issuer,
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
