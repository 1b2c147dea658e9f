// Package synctest provee dobles en memoria para probar el gateway, la cola y
// los servicios que despachan a través de ellos, sin PostgreSQL ni SQLite.
package synctest

import (
	"context"
	gosync "sync"
	"sync/atomic"

	"github.com/shopspring/decimal"

	appsync "github.com/jhoicas/caja-offline/internal/application/sync"
	"github.com/jhoicas/caja-offline/internal/domain"
	"github.com/jhoicas/caja-offline/internal/domain/entity"
)

// ── MemoryCache ───────────────────────────────────────────────────────────────

var _ appsync.LocalCache = (*MemoryCache)(nil)

// MemoryCache implementación en memoria de la caché local, con orden de
// inserción estable por colección (como el rowid de SQLite).
type MemoryCache struct {
	mu    gosync.Mutex
	data  map[string]map[string]entity.Record
	order map[string][]string

	// PutErr fuerza el fallo de los Put siguientes (caché rota).
	PutErr error
}

// NewMemoryCache construye la caché vacía.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		data:  make(map[string]map[string]entity.Record),
		order: make(map[string][]string),
	}
}

func (m *MemoryCache) Put(_ context.Context, collection, id string, rec entity.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.PutErr != nil {
		return m.PutErr
	}
	if m.data[collection] == nil {
		m.data[collection] = make(map[string]entity.Record)
	}
	if _, exists := m.data[collection][id]; !exists {
		m.order[collection] = append(m.order[collection], id)
	}
	m.data[collection][id] = rec.Clone()
	return nil
}

func (m *MemoryCache) Get(_ context.Context, collection, id string) (entity.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.data[collection][id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return rec.Clone(), nil
}

func (m *MemoryCache) Delete(_ context.Context, collection, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data[collection], id)
	ids := m.order[collection]
	for i, v := range ids {
		if v == id {
			m.order[collection] = append(ids[:i], ids[i+1:]...)
			break
		}
	}
	return nil
}

func (m *MemoryCache) List(_ context.Context, collection string) ([]entity.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []entity.Record
	for _, id := range m.order[collection] {
		out = append(out, m.data[collection][id].Clone())
	}
	return out, nil
}

// cacheSnapshot copia profunda del contenido, para el rollback de Atomically.
type cacheSnapshot struct {
	data  map[string]map[string]entity.Record
	order map[string][]string
}

func (m *MemoryCache) snapshot() cacheSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap := cacheSnapshot{
		data:  make(map[string]map[string]entity.Record, len(m.data)),
		order: make(map[string][]string, len(m.order)),
	}
	for collection, recs := range m.data {
		copied := make(map[string]entity.Record, len(recs))
		for id, rec := range recs {
			copied[id] = rec.Clone()
		}
		snap.data[collection] = copied
	}
	for collection, ids := range m.order {
		snap.order[collection] = append([]string(nil), ids...)
	}
	return snap
}

func (m *MemoryCache) restore(snap cacheSnapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = snap.data
	m.order = snap.order
}

// ── FlakyBackend ──────────────────────────────────────────────────────────────

var _ appsync.Backend = (*FlakyBackend)(nil)

// FlakyBackend Backend en memoria con inyección de fallos: con Err fijado, toda
// operación falla con ese error; con AdjustErr, solo los ajustes relativos (red
// caída a mitad de una acción compuesta).
type FlakyBackend struct {
	inner appsync.Backend
	cache *MemoryCache

	mu        gosync.Mutex
	err       error
	adjustErr error
}

// NewBackend construye un Backend en memoria junto con la caché que lo respalda
// (para inspeccionar su contenido en asserts).
func NewBackend() (*FlakyBackend, *MemoryCache) {
	mc := NewMemoryCache()
	return &FlakyBackend{inner: appsync.NewLocalBackend(mc), cache: mc}, mc
}

// SetErr fija (o limpia, con nil) el error inyectado para toda operación.
func (f *FlakyBackend) SetErr(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

// SetAdjustErr fija (o limpia, con nil) un error que solo dispara AdjustNumeric:
// los insert previos de la misma acción pasan y el fallo llega a media acción.
func (f *FlakyBackend) SetAdjustErr(err error) {
	f.mu.Lock()
	f.adjustErr = err
	f.mu.Unlock()
}

func (f *FlakyBackend) fail() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

func (f *FlakyBackend) failAdjust() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.adjustErr
}

func (f *FlakyBackend) Insert(ctx context.Context, collection string, rec entity.Record) (bool, error) {
	if err := f.fail(); err != nil {
		return false, err
	}
	return f.inner.Insert(ctx, collection, rec)
}

func (f *FlakyBackend) Update(ctx context.Context, collection, id string, fields entity.Record) error {
	if err := f.fail(); err != nil {
		return err
	}
	return f.inner.Update(ctx, collection, id, fields)
}

func (f *FlakyBackend) UpdateWhere(ctx context.Context, collection, id string, fields, expect entity.Record) (bool, error) {
	if err := f.fail(); err != nil {
		return false, err
	}
	return f.inner.UpdateWhere(ctx, collection, id, fields, expect)
}

func (f *FlakyBackend) AdjustNumeric(ctx context.Context, collection, id, field string, delta decimal.Decimal, clampZero bool) error {
	if err := f.fail(); err != nil {
		return err
	}
	if err := f.failAdjust(); err != nil {
		return err
	}
	return f.inner.AdjustNumeric(ctx, collection, id, field, delta, clampZero)
}

func (f *FlakyBackend) Get(ctx context.Context, collection, id string) (entity.Record, error) {
	if err := f.fail(); err != nil {
		return nil, err
	}
	return f.inner.Get(ctx, collection, id)
}

func (f *FlakyBackend) Query(ctx context.Context, collection string, filter entity.Record, order appsync.Order) ([]entity.Record, error) {
	if err := f.fail(); err != nil {
		return nil, err
	}
	return f.inner.Query(ctx, collection, filter, order)
}

// Atomically emula la transacción del remoto real: toma una copia del contenido
// y la restaura si fn falla, de modo que una acción compuesta nunca queda
// aplicada a medias.
func (f *FlakyBackend) Atomically(ctx context.Context, fn func(appsync.Backend) error) error {
	snap := f.cache.snapshot()
	if err := fn(f); err != nil {
		f.cache.restore(snap)
		return err
	}
	return nil
}

// ── Probe ─────────────────────────────────────────────────────────────────────

var _ appsync.ConnectivityProbe = (*Probe)(nil)

// Probe sonda de conectividad conmutada a mano desde el test.
type Probe struct {
	online atomic.Bool
}

// NewProbe construye la sonda con el estado inicial dado.
func NewProbe(online bool) *Probe {
	p := &Probe{}
	p.online.Store(online)
	return p
}

// SetOnline cambia el estado de conectividad simulado.
func (p *Probe) SetOnline(b bool) {
	p.online.Store(b)
}

// Online estado actual.
func (p *Probe) Online(context.Context) bool {
	return p.online.Load()
}
