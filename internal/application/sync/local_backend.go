package sync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/caja-offline/internal/domain"
	"github.com/jhoicas/caja-offline/internal/domain/entity"
)

// localBackend adapta la LocalCache (get/put plano) a la interfaz Backend, de
// modo que la misma acción tipada se aplique igual contra el remoto y la caché.
// El terminal es mono-usuario por sesión, así que el leer-modificar-escribir de
// AdjustNumeric es suficiente en esta vía (en el remoto sería un lost update).
type localBackend struct {
	cache LocalCache
}

// NewLocalBackend envuelve la caché local como Backend del gateway.
func NewLocalBackend(cache LocalCache) Backend {
	return &localBackend{cache: cache}
}

func (l *localBackend) Insert(ctx context.Context, collection string, rec entity.Record) (bool, error) {
	id := rec.Str("id")
	if id == "" {
		return false, fmt.Errorf("insertar en %s: %w (sin id)", collection, domain.ErrInvalidInput)
	}
	_, err := l.cache.Get(ctx, collection, id)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return false, err
	}
	if err := l.cache.Put(ctx, collection, id, rec); err != nil {
		return false, err
	}
	return true, nil
}

func (l *localBackend) Update(ctx context.Context, collection, id string, fields entity.Record) error {
	rec, err := l.cache.Get(ctx, collection, id)
	if err != nil {
		return err
	}
	merged := rec.Clone()
	for k, v := range fields {
		merged[k] = v
	}
	return l.cache.Put(ctx, collection, id, merged)
}

func (l *localBackend) UpdateWhere(ctx context.Context, collection, id string, fields, expect entity.Record) (bool, error) {
	rec, err := l.cache.Get(ctx, collection, id)
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	for k, v := range expect {
		if !valueEqual(rec[k], v) {
			return false, nil
		}
	}
	merged := rec.Clone()
	for k, v := range fields {
		merged[k] = v
	}
	if err := l.cache.Put(ctx, collection, id, merged); err != nil {
		return false, err
	}
	return true, nil
}

func (l *localBackend) AdjustNumeric(ctx context.Context, collection, id, field string, delta decimal.Decimal, clampZero bool) error {
	rec, err := l.cache.Get(ctx, collection, id)
	if err != nil {
		return err
	}
	next := rec.Decimal(field).Add(delta)
	if clampZero && next.IsNegative() {
		next = decimal.Zero
	}
	merged := rec.Clone()
	merged[field] = next
	return l.cache.Put(ctx, collection, id, merged)
}

// Atomically en la caché local es ejecución directa: un solo escritor por
// terminal, y un fallo de la caché ya es fatal para la operación en curso.
func (l *localBackend) Atomically(ctx context.Context, fn func(Backend) error) error {
	return fn(l)
}

func (l *localBackend) Get(ctx context.Context, collection, id string) (entity.Record, error) {
	return l.cache.Get(ctx, collection, id)
}

func (l *localBackend) Query(ctx context.Context, collection string, filter entity.Record, order Order) ([]entity.Record, error) {
	recs, err := l.cache.List(ctx, collection)
	if err != nil {
		return nil, err
	}
	out := recs[:0:0]
	for _, r := range recs {
		match := true
		for k, v := range filter {
			if !valueEqual(r[k], v) {
				match = false
				break
			}
		}
		if match {
			out = append(out, r)
		}
	}
	if order.Field != "" {
		sortRecords(out, order)
	}
	return out, nil
}

// valueEqual compara dos valores tras posibles round-trips JSON: numéricos por
// valor decimal, el resto por su forma string.
func valueEqual(a, b any) bool {
	da, aok := toDecimal(a)
	db, bok := toDecimal(b)
	if aok && bok {
		return da.Equal(db)
	}
	return fmt.Sprint(a) == fmt.Sprint(b)
}

func toDecimal(v any) (decimal.Decimal, bool) {
	switch x := v.(type) {
	case decimal.Decimal:
		return x, true
	case float64:
		return decimal.NewFromFloat(x), true
	case int:
		return decimal.NewFromInt(int64(x)), true
	case int64:
		return decimal.NewFromInt(x), true
	case json.Number:
		d, err := decimal.NewFromString(x.String())
		return d, err == nil
	case string:
		// Los decimales serializan como string JSON; "ACTIVE" simplemente no parsea.
		d, err := decimal.NewFromString(x)
		return d, err == nil
	default:
		return decimal.Zero, false
	}
}

func sortRecords(recs []entity.Record, order Order) {
	sort.SliceStable(recs, func(i, j int) bool {
		a, b := recs[i][order.Field], recs[j][order.Field]
		var less bool
		da, aok := toDecimal(a)
		db, bok := toDecimal(b)
		if aok && bok {
			less = da.LessThan(db)
		} else {
			less = fmt.Sprint(a) < fmt.Sprint(b)
		}
		if order.Desc {
			return !less && !valueEqual(a, b)
		}
		return less
	})
}
