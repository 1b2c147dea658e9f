package http_test

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/caja-offline/internal/application/inventory"
	"github.com/jhoicas/caja-offline/internal/application/pos"
	appsync "github.com/jhoicas/caja-offline/internal/application/sync"
	"github.com/jhoicas/caja-offline/internal/application/sync/synctest"
	"github.com/jhoicas/caja-offline/internal/domain/entity"
	infrapdf "github.com/jhoicas/caja-offline/internal/infrastructure/pdf"
	httpRouter "github.com/jhoicas/caja-offline/internal/interfaces/http"
	"github.com/jhoicas/caja-offline/pkg/logger"
)

// newTestApp monta la API completa sobre dobles en memoria, con el terminal
// offline: el caso que la capa HTTP debe tratar como normal, no como error.
func newTestApp(t *testing.T) (*fiber.App, *synctest.FlakyBackend, *synctest.MemoryCache) {
	t.Helper()
	log := logger.New(logger.Config{Env: "production", Level: "error"})
	remote, _ := synctest.NewBackend()
	local := synctest.NewMemoryCache()
	probe := synctest.NewProbe(false)
	queue := appsync.NewQueue(local, log, 3)
	gw := appsync.NewGateway(remote, appsync.NewLocalBackend(local), probe, queue, log, time.Second)
	engine := inventory.NewEngine(gw, log, 50)
	svc := pos.NewService(gw, engine, log, "tienda-1")

	app := fiber.New()
	httpRouter.Router(app, httpRouter.RouterDeps{
		POS:       svc,
		Engine:    engine,
		PDF:       infrapdf.NewVarianceReportGenerator(),
		StoreName: "tienda-1",
	})
	return app, remote, local
}

// TestRecordSale_OfflineResponde201 verifica que la venta sin red responde 201 y
// queda pendiente en la cola (visible en /api/sync/status).
func TestRecordSale_OfflineResponde201(t *testing.T) {
	app, _, local := newTestApp(t)

	item := &entity.InventoryItem{
		ID: "cerveza", StoreID: "tienda-1", Name: "Cerveza",
		UnitPrice: decimal.NewFromInt(5), CurrentStock: decimal.NewFromInt(10),
		Active: true,
	}
	require.NoError(t, local.Put(context.Background(), entity.CollectionItems, item.ID, item.ToRecord()))

	req := httptest.NewRequest("POST", "/api/sales/",
		strings.NewReader(`{"item_id":"cerveza","quantity":"2"}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var sale struct {
		ID    string          `json:"ID"`
		Total decimal.Decimal `json:"Total"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&sale))
	assert.NotEmpty(t, sale.ID)
	assert.True(t, sale.Total.Equal(decimal.NewFromInt(10)))

	// La venta quedó encolada para el remoto.
	req = httptest.NewRequest("GET", "/api/sync/status", nil)
	resp, err = app.Test(req)
	require.NoError(t, err)
	var status struct {
		Pending int `json:"pending"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&status))
	assert.Equal(t, 1, status.Pending)
}

// TestRecordSale_ErroresMapeados verifica el mapeo de errores del dominio a
// códigos HTTP: cantidad inválida → 400, artículo inexistente → 404.
func TestRecordSale_ErroresMapeados(t *testing.T) {
	app, _, _ := newTestApp(t)

	req := httptest.NewRequest("POST", "/api/sales/",
		strings.NewReader(`{"item_id":"x","quantity":"0"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	req = httptest.NewRequest("POST", "/api/sales/",
		strings.NewReader(`{"item_id":"no-existe","quantity":"1"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}
