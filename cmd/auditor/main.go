// Command auditor corre una pasada de auditoría de merma sobre todos los padres
// a granel de la tienda y deja el reporte en PDF. Pensado para cron al cierre:
//
//	auditor -out ./reportes/merma.pdf
//
// Usa el stock en libros del padre como conteo físico de referencia; los conteos
// reales artículo por artículo entran por la API del terminal.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/jhoicas/caja-offline/internal/application/inventory"
	appsync "github.com/jhoicas/caja-offline/internal/application/sync"
	"github.com/jhoicas/caja-offline/internal/domain/entity"
	infrapdf "github.com/jhoicas/caja-offline/internal/infrastructure/pdf"
	"github.com/jhoicas/caja-offline/internal/infrastructure/postgres"
	"github.com/jhoicas/caja-offline/internal/infrastructure/sqlite"
	"github.com/jhoicas/caja-offline/pkg/config"
	"github.com/jhoicas/caja-offline/pkg/logger"
)

func main() {
	out := flag.String("out", fmt.Sprintf("merma-%s.pdf", time.Now().Format("2006-01-02")), "ruta del PDF de salida")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: "info"}).Component("auditor")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	cache, err := sqlite.Open(cfg.Cache.Path)
	if err != nil {
		log.Fatal().Err(err).Msg("abrir caché local")
	}
	defer cache.Close()

	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("configuración de PostgreSQL inválida")
	}
	defer pool.Close()

	remote := postgres.NewStore(pool)
	probe := postgres.NewPingProbe(pool, time.Second)
	queue := appsync.NewQueue(cache, log, cfg.Sync.MaxRetries)
	if err := queue.Load(ctx); err != nil {
		log.Fatal().Err(err).Msg("restaurar cola pendiente")
	}
	gateway := appsync.NewGateway(remote, appsync.NewLocalBackend(cache), probe, queue, log, cfg.Sync.RemoteTimeout)
	engine := inventory.NewEngine(gateway, log, cfg.Audit.CriticalUnitThreshold)

	parents, err := engine.BulkParents(ctx, cfg.App.StoreID)
	if err != nil {
		log.Fatal().Err(err).Msg("listar padres a granel")
	}
	if len(parents) == 0 {
		log.Info().Msg("no hay padres a granel configurados: nada que auditar")
		return
	}

	reports := make([]*entity.AuditVarianceReport, 0, len(parents))
	for _, p := range parents {
		r, err := engine.CalculateAuditVariance(ctx, p.ID, p.CurrentStock)
		if err != nil {
			log.Error().Err(err).Str("articulo", p.ID).Msg("calcular variación")
			continue
		}
		if r.RiskLevel == entity.RiskCritical {
			log.Warn().Str("articulo", r.ParentName).Str("variacion", r.Variance.String()).
				Msg("variación CRITICAL detectada")
		}
		reports = append(reports, r)
	}

	bytes, err := infrapdf.NewVarianceReportGenerator().Generate(reports, cfg.App.StoreID, time.Now())
	if err != nil {
		log.Fatal().Err(err).Msg("generar PDF")
	}
	if err := os.WriteFile(*out, bytes, 0o644); err != nil {
		log.Fatal().Err(err).Msg("escribir PDF")
	}
	log.Info().Str("archivo", *out).Int("auditados", len(reports)).Msg("reporte de merma generado")
}
