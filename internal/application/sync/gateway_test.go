package sync_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appsync "github.com/jhoicas/caja-offline/internal/application/sync"
	"github.com/jhoicas/caja-offline/internal/application/sync/synctest"
	"github.com/jhoicas/caja-offline/internal/domain"
	"github.com/jhoicas/caja-offline/internal/domain/entity"
)

// fixture de gateway con dobles en memoria: remoto con fallos inyectables,
// caché local compartida entre el espejo y la cola, sonda conmutada a mano.
type gatewayFixture struct {
	gw     *appsync.Gateway
	remote *synctest.FlakyBackend
	rcache *synctest.MemoryCache
	local  *synctest.MemoryCache
	probe  *synctest.Probe
	queue  *appsync.Queue
}

func newGatewayFixture(t *testing.T, online bool) *gatewayFixture {
	t.Helper()
	remote, rcache := synctest.NewBackend()
	local := synctest.NewMemoryCache()
	probe := synctest.NewProbe(online)
	queue := appsync.NewQueue(local, testLogger(), 3)
	gw := appsync.NewGateway(remote, appsync.NewLocalBackend(local), probe, queue, testLogger(), time.Second)
	return &gatewayFixture{gw: gw, remote: remote, rcache: rcache, local: local, probe: probe, queue: queue}
}

func testItem(id string, stock int64) *entity.InventoryItem {
	return &entity.InventoryItem{
		ID:           id,
		StoreID:      "tienda-1",
		Name:         "Artículo " + id,
		UnitPrice:    decimal.NewFromInt(100),
		CurrentStock: decimal.NewFromInt(stock),
		Active:       true,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
}

func itemStock(t *testing.T, b appsync.Backend, id string) decimal.Decimal {
	t.Helper()
	rec, err := b.Get(context.Background(), entity.CollectionItems, id)
	require.NoError(t, err)
	return rec.Decimal("current_stock")
}

// TestGateway_OnlineAplicaRemotoYEspejaLocal verifica la vía feliz: con
// conectividad la mutación llega al remoto y queda espejada en la caché, sin
// pasar por la cola.
func TestGateway_OnlineAplicaRemotoYEspejaLocal(t *testing.T) {
	ctx := context.Background()
	f := newGatewayFixture(t, true)

	item := testItem("i1", 10)
	require.NoError(t, f.gw.Dispatch(ctx, appsync.AddItem{Item: *item}))

	_, err := f.rcache.Get(ctx, entity.CollectionItems, "i1")
	assert.NoError(t, err, "el remoto debe tener el artículo")
	_, err = f.local.Get(ctx, entity.CollectionItems, "i1")
	assert.NoError(t, err, "la caché local debe tener el espejo")
	assert.Equal(t, 0, f.gw.QueueCount())
}

// TestGateway_OfflineAplicaLocalYEncola verifica el ciclo offline completo: la
// mutación aterriza solo en la caché local, queda encolada, y al volver la red
// el drenado la confirma contra el remoto dejando ambos almacenes iguales.
func TestGateway_OfflineAplicaLocalYEncola(t *testing.T) {
	ctx := context.Background()
	f := newGatewayFixture(t, false)

	item := testItem("i1", 10)
	require.NoError(t, f.gw.Dispatch(ctx, appsync.AddItem{Item: *item}))
	require.NoError(t, f.gw.Dispatch(ctx, appsync.UpdateStock{ItemID: "i1", NewStock: decimal.NewFromInt(7)}))

	_, err := f.rcache.Get(ctx, entity.CollectionItems, "i1")
	assert.ErrorIs(t, err, domain.ErrNotFound, "sin red el remoto no debe enterarse")
	assert.Equal(t, 2, f.gw.QueueCount())

	rec, err := f.local.Get(ctx, entity.CollectionItems, "i1")
	require.NoError(t, err)
	assert.True(t, rec.Decimal("current_stock").Equal(decimal.NewFromInt(7)),
		"el terminal opera sobre la caché como si nada hubiera pasado")

	// Vuelve la red: el drenado reproduce las mutaciones en el mismo orden.
	f.probe.SetOnline(true)
	res, err := f.gw.ProcessQueue(ctx)
	require.NoError(t, err)
	assert.Equal(t, appsync.DrainResult{Succeeded: 2}, res)
	assert.Equal(t, 0, f.gw.QueueCount())

	assert.True(t, itemStock(t, f.remote, "i1").Equal(decimal.NewFromInt(7)),
		"el remoto debe converger al estado local")
}

// TestGateway_ReplayIdempotente verifica que reproducir una venta ya aplicada no
// repite el descargo de stock ni los contadores: la venta vendida una vez se
// descuenta una sola vez aunque la entrega sea al-menos-una-vez.
func TestGateway_ReplayIdempotente(t *testing.T) {
	ctx := context.Background()
	f := newGatewayFixture(t, true)

	item := testItem("i1", 10)
	_, err := f.remote.Insert(ctx, entity.CollectionItems, item.ToRecord())
	require.NoError(t, err)

	sale := entity.Sale{
		ID:        "venta-1",
		ItemID:    "i1",
		Quantity:  decimal.NewFromInt(3),
		UnitPrice: decimal.NewFromInt(100),
		Total:     decimal.NewFromInt(300),
		Status:    entity.SaleStatusCompleted,
		CreatedAt: time.Now(),
	}
	action := appsync.CreateSale{Sale: sale}

	require.NoError(t, action.Apply(ctx, f.remote))
	assert.True(t, itemStock(t, f.remote, "i1").Equal(decimal.NewFromInt(7)))

	// Replay de la misma acción (reconstruida desde su envelope, como hace la cola).
	payload, err := appsync.EncodePayload(action)
	require.NoError(t, err)
	decoded, err := appsync.DecodeAction(appsync.Envelope{Kind: appsync.KindCreateSale, Payload: payload})
	require.NoError(t, err)

	require.NoError(t, decoded.Apply(ctx, f.remote))
	require.NoError(t, decoded.Apply(ctx, f.remote))
	assert.True(t, itemStock(t, f.remote, "i1").Equal(decimal.NewFromInt(7)),
		"reproducir la venta no debe descontar stock de nuevo")
}

// TestGateway_RemotoCaidoDegradaAOffline verifica que un remoto que falla con la
// sonda reportando online no rompe la mutación: cae a la vía local+cola.
func TestGateway_RemotoCaidoDegradaAOffline(t *testing.T) {
	ctx := context.Background()
	f := newGatewayFixture(t, true)
	f.remote.SetErr(errors.New("connection refused"))

	require.NoError(t, f.gw.Dispatch(ctx, appsync.AddItem{Item: *testItem("i1", 5)}))

	_, err := f.local.Get(ctx, entity.CollectionItems, "i1")
	assert.NoError(t, err)
	assert.Equal(t, 1, f.gw.QueueCount())

	// El remoto se recupera y el siguiente drenado confirma lo pendiente.
	f.remote.SetErr(nil)
	res, err := f.gw.ProcessQueue(ctx)
	require.NoError(t, err)
	assert.Equal(t, appsync.DrainResult{Succeeded: 1}, res)
	_, err = f.rcache.Get(ctx, entity.CollectionItems, "i1")
	assert.NoError(t, err)
}

// TestGateway_FalloParcialRemotoNoPierdeEfectos verifica el todo-o-nada contra
// el remoto: si la red cae después del insert de la venta pero antes de las
// descargas de stock, el remoto no conserva ningún efecto parcial, y el replay
// desde la cola aplica la acción completa (el insert no debe devolver
// created=false y saltarse las descargas para siempre).
func TestGateway_FalloParcialRemotoNoPierdeEfectos(t *testing.T) {
	ctx := context.Background()
	f := newGatewayFixture(t, true)

	item := testItem("i1", 10)
	_, err := f.remote.Insert(ctx, entity.CollectionItems, item.ToRecord())
	require.NoError(t, err)
	require.NoError(t, f.local.Put(ctx, entity.CollectionItems, "i1", item.ToRecord()))

	// La red cae a mitad de la acción: el insert de la venta pasa, el ajuste no.
	f.remote.SetAdjustErr(errors.New("connection reset"))

	sale := entity.Sale{
		ID:        "venta-1",
		ItemID:    "i1",
		Quantity:  decimal.NewFromInt(3),
		UnitPrice: decimal.NewFromInt(100),
		Total:     decimal.NewFromInt(300),
		Status:    entity.SaleStatusCompleted,
		CreatedAt: time.Now(),
	}
	require.NoError(t, f.gw.Dispatch(ctx, appsync.CreateSale{Sale: sale}),
		"la degradación a la vía local+cola no es un error para el caller")

	_, err = f.rcache.Get(ctx, entity.CollectionSales, "venta-1")
	assert.ErrorIs(t, err, domain.ErrNotFound, "el insert parcial debe revertirse con la acción")
	assert.True(t, itemStock(t, f.remote, "i1").Equal(decimal.NewFromInt(10)))
	assert.True(t, itemStock(t, appsync.NewLocalBackend(f.local), "i1").Equal(decimal.NewFromInt(7)),
		"el terminal sigue operando sobre la caché")
	assert.Equal(t, 1, f.gw.QueueCount())

	// Vuelve la red: el drenado aplica la acción completa, no solo lo que faltó.
	f.remote.SetAdjustErr(nil)
	res, err := f.gw.ProcessQueue(ctx)
	require.NoError(t, err)
	assert.Equal(t, appsync.DrainResult{Succeeded: 1}, res)

	_, err = f.rcache.Get(ctx, entity.CollectionSales, "venta-1")
	assert.NoError(t, err)
	assert.True(t, itemStock(t, f.remote, "i1").Equal(decimal.NewFromInt(7)),
		"el remoto debe converger al estado local (10 − 3)")
	assert.Equal(t, 0, f.gw.QueueCount())
}

// TestGateway_CacheRotaEsFatal verifica que un fallo de la caché local sí llega
// al caller: detrás de ella no hay más fallback.
func TestGateway_CacheRotaEsFatal(t *testing.T) {
	ctx := context.Background()
	f := newGatewayFixture(t, false)
	f.local.PutErr = errors.New("disco lleno")

	err := f.gw.Dispatch(ctx, appsync.AddItem{Item: *testItem("i1", 5)})
	assert.ErrorIs(t, err, domain.ErrCacheUnavailable)
}

// TestGateway_LecturasConFallback verifica la preferencia de lectura: remoto
// cuando responde, not-found remoto autoritativo, caché local ante fallo
// transitorio o sin conectividad.
func TestGateway_LecturasConFallback(t *testing.T) {
	ctx := context.Background()
	f := newGatewayFixture(t, true)

	// Solo la caché local conoce el artículo (escrito durante una ventana offline).
	require.NoError(t, f.local.Put(ctx, entity.CollectionItems, "solo-local", testItem("solo-local", 1).ToRecord()))

	// Online, el not-found del remoto manda aunque la caché tenga el registro.
	_, err := f.gw.Get(ctx, entity.CollectionItems, "solo-local")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	// Con fallo transitorio del remoto, la lectura cae a la caché.
	f.remote.SetErr(errors.New("timeout"))
	rec, err := f.gw.Get(ctx, entity.CollectionItems, "solo-local")
	require.NoError(t, err)
	assert.Equal(t, "solo-local", rec.Str("id"))

	// Offline, directo a la caché.
	f.remote.SetErr(nil)
	f.probe.SetOnline(false)
	rec, err = f.gw.Get(ctx, entity.CollectionItems, "solo-local")
	require.NoError(t, err)
	assert.Equal(t, "solo-local", rec.Str("id"))
}
