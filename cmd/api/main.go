package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/jhoicas/caja-offline/internal/application/inventory"
	"github.com/jhoicas/caja-offline/internal/application/pos"
	appsync "github.com/jhoicas/caja-offline/internal/application/sync"
	infrapdf "github.com/jhoicas/caja-offline/internal/infrastructure/pdf"
	"github.com/jhoicas/caja-offline/internal/infrastructure/postgres"
	"github.com/jhoicas/caja-offline/internal/infrastructure/sqlite"
	httpRouter "github.com/jhoicas/caja-offline/internal/interfaces/http"
	"github.com/jhoicas/caja-offline/pkg/config"
	"github.com/jhoicas/caja-offline/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: "info",
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("tienda", cfg.App.StoreID).
		Msg("iniciando terminal")

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// La caché local es la única dependencia dura del arranque: sin ella el
	// terminal no puede operar ni offline.
	cache, err := sqlite.Open(cfg.Cache.Path)
	if err != nil {
		log.Fatal().Err(err).Msg("abrir caché local")
	}
	defer cache.Close()

	// El remoto es deseable, no imprescindible: si no responde ahora, la sonda
	// lo reporta offline y el gateway degrada a la vía local+cola.
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("configuración de PostgreSQL inválida")
	}
	defer pool.Close()

	remote := postgres.NewStore(pool)
	probe := postgres.NewPingProbe(pool, time.Second)
	if probe.Online(ctx) {
		if err := remote.EnsureSchema(ctx); err != nil {
			log.Warn().Err(err).Msg("preparar esquema remoto")
		}
	} else {
		log.Warn().Msg("remoto inalcanzable al arranque: operando en modo offline")
	}

	queue := appsync.NewQueue(cache, log, cfg.Sync.MaxRetries)
	if err := queue.Load(ctx); err != nil {
		log.Fatal().Err(err).Msg("restaurar cola pendiente")
	}

	local := appsync.NewLocalBackend(cache)
	gateway := appsync.NewGateway(remote, local, probe, queue, log, cfg.Sync.RemoteTimeout)
	engine := inventory.NewEngine(gateway, log, cfg.Audit.CriticalUnitThreshold)
	posSvc := pos.NewService(gateway, engine, log, cfg.App.StoreID)
	pdfGen := infrapdf.NewVarianceReportGenerator()

	// Drenado en segundo plano: cada ciclo reintenta lo pendiente si hay red.
	go func() {
		drainLog := log.Component("drainer")
		ticker := time.NewTicker(cfg.Sync.DrainInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := gateway.ProcessQueue(ctx); err != nil {
					drainLog.Error().Err(err).Msg("ciclo de drenado falló")
				}
			}
		}
	}()

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":       "ok",
			"service":      cfg.App.Name,
			"online":       probe.Online(c.Context()),
			"sync_pending": posSvc.SyncQueueCount(),
		})
	})

	httpRouter.Router(app, httpRouter.RouterDeps{
		POS:       posSvc,
		Engine:    engine,
		PDF:       pdfGen,
		StoreName: cfg.App.StoreID,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando terminal...")
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("terminal detenido")
}
