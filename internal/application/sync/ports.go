package sync

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/caja-offline/internal/domain/entity"
)

// Order criterio de ordenamiento de una consulta (para FEFO: expiry_date ascendente).
type Order struct {
	Field string
	Desc  bool
}

// Backend es la estrategia de persistencia sobre la que opera el gateway. Hay dos
// implementaciones: el almacén canónico remoto (PostgreSQL) y la caché local del
// terminal (SQLite, vía el adaptador de localBackend). Toda mutación del sistema
// se expresa contra esta interfaz, nunca contra un almacén concreto.
//
// Insert es un upsert por id generado en el cliente: devuelve false cuando el
// registro ya existía. Esa señal es la que hace idempotente la reproducción de la
// cola (una acción reaplicada no repite sus efectos secundarios).
//
// AdjustNumeric aplica un ajuste relativo (value = value + delta) evaluado en el
// almacén, no leído-y-reescrito desde el cliente, para no perder actualizaciones
// entre terminales concurrentes.
//
// Atomically ejecuta fn con todo-o-nada: una acción compuesta (insert + ajustes)
// no puede quedar aplicada a medias en el almacén. En el remoto es una
// transacción; en la caché local es ejecución directa (un solo escritor, y un
// fallo ahí ya es fatal para la operación en curso).
type Backend interface {
	Insert(ctx context.Context, collection string, rec entity.Record) (created bool, err error)
	Update(ctx context.Context, collection, id string, fields entity.Record) error
	UpdateWhere(ctx context.Context, collection, id string, fields, expect entity.Record) (changed bool, err error)
	AdjustNumeric(ctx context.Context, collection, id, field string, delta decimal.Decimal, clampZero bool) error
	Get(ctx context.Context, collection, id string) (entity.Record, error)
	Query(ctx context.Context, collection string, filter entity.Record, order Order) ([]entity.Record, error)
	Atomically(ctx context.Context, fn func(b Backend) error) error
}

// LocalCache es la copia en el dispositivo: síncrona y siempre disponible. Un
// fallo aquí es fatal para la operación en curso (no hay más fallback).
type LocalCache interface {
	Put(ctx context.Context, collection, id string, rec entity.Record) error
	Get(ctx context.Context, collection, id string) (entity.Record, error)
	Delete(ctx context.Context, collection, id string) error
	List(ctx context.Context, collection string) ([]entity.Record, error)
}

// ConnectivityProbe responde si el remoto es alcanzable ahora mismo. Se muestrea
// en cada llamada (booleano, sin máquina de estados) y nunca bloquea.
type ConnectivityProbe interface {
	Online(ctx context.Context) bool
}
