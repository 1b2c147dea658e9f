package sync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	gosync "sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/caja-offline/internal/domain"
	"github.com/jhoicas/caja-offline/internal/domain/entity"
	"github.com/jhoicas/caja-offline/pkg/logger"
)

// DefaultMaxRetries reintentos por entrada antes de descartarla como fallo permanente.
const DefaultMaxRetries = 3

// DrainResult conteos de un ciclo de drenado. Failed cuenta solo los descartes
// permanentes (entradas que agotaron sus reintentos o con kind desconocido); las
// entradas que siguen esperando otro ciclo no se cuentan en ninguno de los dos.
type DrainResult struct {
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

// Queue cola durable de escrituras pendientes contra el remoto, en orden FIFO.
// Es un valor explícito con dueño (el gateway), no estado ambiente: se construye
// con su caché y se carga al arranque.
//
// Cada entrada se persiste en la caché local en el mismo Enqueue, antes de quedar
// visible en memoria, de modo que sobrevive a un cierre abrupto del proceso.
type Queue struct {
	cache      LocalCache
	log        *logger.Logger
	maxRetries int

	mu      gosync.Mutex
	entries []Envelope
	nextSeq int64

	draining atomic.Bool
}

// NewQueue construye la cola. maxRetries <= 0 usa DefaultMaxRetries.
func NewQueue(cache LocalCache, log *logger.Logger, maxRetries int) *Queue {
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}
	return &Queue{
		cache:      cache,
		log:        log.Component("sync_queue"),
		maxRetries: maxRetries,
	}
}

// Load restaura las entradas pendientes desde la caché (tras un reinicio),
// ordenadas por su secuencia de encolado.
func (q *Queue) Load(ctx context.Context) error {
	recs, err := q.cache.List(ctx, entity.CollectionSyncQueue)
	if err != nil {
		return fmt.Errorf("cargar cola pendiente: %w", err)
	}

	entries := make([]Envelope, 0, len(recs))
	var maxSeq int64
	for _, r := range recs {
		env := envelopeFromRecord(r)
		if env.seq > maxSeq {
			maxSeq = env.seq
		}
		entries = append(entries, env)
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].seq != entries[j].seq {
			return entries[i].seq < entries[j].seq
		}
		return entries[i].EnqueuedAt.Before(entries[j].EnqueuedAt)
	})

	q.mu.Lock()
	q.entries = entries
	q.nextSeq = maxSeq + 1
	q.mu.Unlock()

	if len(entries) > 0 {
		q.log.Info().Int("pendientes", len(entries)).Msg("cola restaurada desde la caché")
	}
	return nil
}

// Enqueue agrega una acción al final de la cola con retryCount = 0. La entrada
// queda persistida antes de retornar; un fallo de la caché aborta el encolado.
func (q *Queue) Enqueue(ctx context.Context, a Action) (Envelope, error) {
	payload, err := EncodePayload(a)
	if err != nil {
		return Envelope{}, err
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	env := Envelope{
		ID:         uuid.New().String(),
		Kind:       a.Kind(),
		Payload:    payload,
		EnqueuedAt: time.Now(),
		RetryCount: 0,
		seq:        q.nextSeq,
	}
	if err := q.cache.Put(ctx, entity.CollectionSyncQueue, env.ID, envelopeToRecord(env)); err != nil {
		return Envelope{}, fmt.Errorf("persistir entrada de la cola: %w", err)
	}
	q.nextSeq++
	q.entries = append(q.entries, env)

	q.log.Debug().Str("entrada", env.ID).Str("kind", string(env.Kind)).Msg("mutación encolada")
	return env, nil
}

// Count número de entradas actualmente encoladas (visibilidad para el operador).
func (q *Queue) Count() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// Drain recorre un snapshot de la cola en orden FIFO invocando apply por entrada.
// Entradas encoladas a mitad del drenado esperan al siguiente ciclo. Es seguro
// re-invocarlo mientras otro drenado sigue corriendo: el segundo retorna de
// inmediato con domain.ErrDrainInProgress.
//
// Éxito → la entrada se elimina. Fallo → retryCount++; al agotar los reintentos
// (o con un kind desconocido) la entrada se descarta y se cuenta en Failed.
// Una cancelación de ctx deja lo pendiente intacto para el próximo ciclo.
func (q *Queue) Drain(ctx context.Context, apply func(context.Context, Envelope) error) (DrainResult, error) {
	if !q.draining.CompareAndSwap(false, true) {
		return DrainResult{}, domain.ErrDrainInProgress
	}
	defer q.draining.Store(false)

	q.mu.Lock()
	snapshot := append([]Envelope(nil), q.entries...)
	q.mu.Unlock()

	var res DrainResult
	for _, env := range snapshot {
		if ctx.Err() != nil {
			// Interrupción a mitad de camino: lo ya eliminado se fue, lo demás
			// continúa en el próximo drenado (la reproducción es idempotente).
			break
		}

		err := apply(ctx, env)
		if err == nil {
			if rmErr := q.remove(ctx, env.ID); rmErr != nil {
				return res, rmErr
			}
			res.Succeeded++
			continue
		}

		if errors.Is(err, domain.ErrUnknownAction) {
			q.log.Warn().Str("entrada", env.ID).Str("kind", string(env.Kind)).
				Msg("kind desconocido: entrada descartada como fallo permanente")
			if rmErr := q.remove(ctx, env.ID); rmErr != nil {
				return res, rmErr
			}
			res.Failed++
			continue
		}

		env.RetryCount++
		if env.RetryCount >= q.maxRetries {
			q.log.Warn().Str("entrada", env.ID).Str("kind", string(env.Kind)).
				Int("reintentos", env.RetryCount).Err(err).
				Msg("entrada agotó sus reintentos: descartada como fallo permanente")
			if rmErr := q.remove(ctx, env.ID); rmErr != nil {
				return res, rmErr
			}
			res.Failed++
			continue
		}

		q.log.Debug().Str("entrada", env.ID).Int("reintentos", env.RetryCount).Err(err).
			Msg("fallo transitorio: la entrada espera el próximo ciclo")
		if upErr := q.updateRetry(ctx, env); upErr != nil {
			return res, upErr
		}
	}
	return res, nil
}

func (q *Queue) remove(ctx context.Context, id string) error {
	if err := q.cache.Delete(ctx, entity.CollectionSyncQueue, id); err != nil {
		return fmt.Errorf("eliminar entrada de la cola: %w", err)
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, e := range q.entries {
		if e.ID == id {
			q.entries = append(q.entries[:i], q.entries[i+1:]...)
			break
		}
	}
	return nil
}

func (q *Queue) updateRetry(ctx context.Context, env Envelope) error {
	if err := q.cache.Put(ctx, entity.CollectionSyncQueue, env.ID, envelopeToRecord(env)); err != nil {
		return fmt.Errorf("persistir reintento: %w", err)
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	for i := range q.entries {
		if q.entries[i].ID == env.ID {
			q.entries[i].RetryCount = env.RetryCount
			break
		}
	}
	return nil
}

func envelopeToRecord(env Envelope) entity.Record {
	return entity.Record{
		"id":          env.ID,
		"kind":        string(env.Kind),
		"payload":     string(env.Payload),
		"enqueued_at": env.EnqueuedAt.UTC().Format(time.RFC3339Nano),
		"retry_count": env.RetryCount,
		"seq":         env.seq,
	}
}

func envelopeFromRecord(r entity.Record) Envelope {
	return Envelope{
		ID:         r.Str("id"),
		Kind:       ActionKind(r.Str("kind")),
		Payload:    json.RawMessage(r.Str("payload")),
		EnqueuedAt: r.Time("enqueued_at"),
		RetryCount: int(r.Int("retry_count")),
		seq:        r.Int("seq"),
	}
}
