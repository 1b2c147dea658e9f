package sync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jhoicas/caja-offline/internal/domain"
	"github.com/jhoicas/caja-offline/internal/domain/entity"
	"github.com/jhoicas/caja-offline/pkg/logger"
)

// Gateway es el único punto por el que pasa toda operación mutante del sistema,
// con semántica "local primero, remoto eventualmente":
//
//  1. Con conectividad, la acción se intenta contra el remoto (timeout acotado) y,
//     si prospera, se espeja en la caché local.
//  2. Sin conectividad, o si el remoto falla, la acción se aplica a la caché local
//     de todos modos (el terminal sigue operando) y se encola para reproducirla.
//
// Los fallos del remoto nunca llegan al caller de una mutación; los de la caché
// local sí, porque detrás de ella no hay más fallback.
type Gateway struct {
	remote Backend
	local  Backend
	probe  ConnectivityProbe
	queue  *Queue
	log    *logger.Logger

	remoteTimeout time.Duration
}

// NewGateway construye el gateway. El remoto es quien manda una vez alcanzable;
// la caché local solo es autoritativa mientras no haya conectividad.
func NewGateway(remote, local Backend, probe ConnectivityProbe, queue *Queue, log *logger.Logger, remoteTimeout time.Duration) *Gateway {
	if remoteTimeout <= 0 {
		remoteTimeout = 5 * time.Second
	}
	return &Gateway{
		remote:        remote,
		local:         local,
		probe:         probe,
		queue:         queue,
		log:           log.Component("gateway"),
		remoteTimeout: remoteTimeout,
	}
}

// Dispatch aplica una mutación por la doble vía. Nunca bloquea esperando que la
// red vuelva: o el remoto responde dentro del timeout o la acción cae a la vía
// local+cola sin demora.
func (g *Gateway) Dispatch(ctx context.Context, a Action) error {
	if g.probe.Online(ctx) {
		rctx, cancel := context.WithTimeout(ctx, g.remoteTimeout)
		// Todo-o-nada contra el remoto: si la acción falla a mitad (red caída
		// tras el insert), no queda ningún efecto parcial y el replay desde la
		// cola la aplica completa.
		err := g.remote.Atomically(rctx, func(b Backend) error {
			return a.Apply(rctx, b)
		})
		cancel()
		if err == nil {
			// Espejo local para mantener la caché caliente; un fallo aquí sí es fatal.
			if lerr := a.Apply(ctx, g.local); lerr != nil {
				return fmt.Errorf("%w: %v", domain.ErrCacheUnavailable, lerr)
			}
			return nil
		}
		g.log.Warn().Str("kind", string(a.Kind())).Err(err).
			Msg("remoto falló: la mutación degrada a modo offline")
	}

	if err := a.Apply(ctx, g.local); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrCacheUnavailable, err)
	}
	if _, err := g.queue.Enqueue(ctx, a); err != nil {
		return err
	}
	return nil
}

// Get lee un registro prefiriendo el remoto cuando es alcanzable. Un not-found
// del remoto es autoritativo; un fallo transitorio cae a la caché local. El
// caller no debe asumir frescura de la caché con conectividad intermitente.
func (g *Gateway) Get(ctx context.Context, collection, id string) (entity.Record, error) {
	if g.probe.Online(ctx) {
		rctx, cancel := context.WithTimeout(ctx, g.remoteTimeout)
		rec, err := g.remote.Get(rctx, collection, id)
		cancel()
		if err == nil {
			return rec, nil
		}
		if errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
	}
	return g.local.Get(ctx, collection, id)
}

// Query consulta una colección prefiriendo el remoto, con la caché como respaldo.
func (g *Gateway) Query(ctx context.Context, collection string, filter entity.Record, order Order) ([]entity.Record, error) {
	if g.probe.Online(ctx) {
		rctx, cancel := context.WithTimeout(ctx, g.remoteTimeout)
		recs, err := g.remote.Query(rctx, collection, filter, order)
		cancel()
		if err == nil {
			return recs, nil
		}
		g.log.Debug().Str("collection", collection).Err(err).Msg("consulta remota falló: usando caché local")
	}
	return g.local.Query(ctx, collection, filter, order)
}

// ProcessQueue drena la cola pendiente contra el remoto. Sin conectividad no hace
// nada; con un drenado ya en curso se salta el ciclo (re-entrante por omisión).
func (g *Gateway) ProcessQueue(ctx context.Context) (DrainResult, error) {
	if !g.probe.Online(ctx) {
		return DrainResult{}, nil
	}
	res, err := g.queue.Drain(ctx, g.replay)
	if errors.Is(err, domain.ErrDrainInProgress) {
		return DrainResult{}, nil
	}
	if res.Succeeded > 0 || res.Failed > 0 {
		g.log.Info().Int("confirmadas", res.Succeeded).Int("descartadas", res.Failed).
			Int("pendientes", g.queue.Count()).Msg("ciclo de drenado terminado")
	}
	return res, err
}

// QueueCount entradas pendientes de confirmación contra el remoto.
func (g *Gateway) QueueCount() int {
	return g.queue.Count()
}

// replay reproduce un envelope contra el remoto. La entrega es al-menos-una-vez:
// la idempotencia (upserts por id de cliente, updates condicionales) vive dentro
// del Apply de cada acción.
func (g *Gateway) replay(ctx context.Context, env Envelope) error {
	a, err := DecodeAction(env)
	if err != nil {
		return err
	}
	rctx, cancel := context.WithTimeout(ctx, g.remoteTimeout)
	defer cancel()
	return g.remote.Atomically(rctx, func(b Backend) error {
		return a.Apply(rctx, b)
	})
}
