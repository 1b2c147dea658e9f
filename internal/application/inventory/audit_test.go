package inventory_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/caja-offline/internal/domain"
	"github.com/jhoicas/caja-offline/internal/domain/entity"
)

// seedAudited deja un padre a granel (tasa 30) con su unidad derivada en el
// stock en libros indicado.
func seedAudited(t *testing.T, f *engineFixture, derivedStock int64) {
	t.Helper()
	f.seedItem(t, &entity.InventoryItem{
		ID: "saco", Name: "Arroz saco 30kg",
		IsBulkParent: true, BulkUnitName: "saco 30kg", BreakoutUnitName: "kilo",
		ConversionRate: decimal.NewFromInt(30),
		CurrentStock:   decimal.NewFromInt(2), Active: true,
	})
	f.seedItem(t, &entity.InventoryItem{
		ID: "kilo", Name: "Arroz kilo", ParentItemID: "saco",
		CurrentStock: decimal.NewFromInt(derivedStock), Active: true,
	})
}

// TestCalculateAuditVariance_SinVariacionEsSafe: el conteo físico coincide con
// los libros (2 sacos × 30 = 60 kilos en libros) → variación cero, SAFE.
func TestCalculateAuditVariance_SinVariacionEsSafe(t *testing.T) {
	f := newEngineFixture(t)
	seedAudited(t, f, 60)

	report, err := f.engine.CalculateAuditVariance(context.Background(), "saco", decimal.NewFromInt(2))
	require.NoError(t, err)

	assert.True(t, report.ExpectedUnits.Equal(decimal.NewFromInt(60)))
	assert.True(t, report.ActualUnits.Equal(decimal.NewFromInt(60)))
	assert.True(t, report.Variance.IsZero())
	assert.Equal(t, entity.RiskSafe, report.RiskLevel)
}

// TestCalculateAuditVariance_LibrosGrandesEsCritical: físicamente no queda nada
// (0 sacos → 0 kilos esperados) pero los libros registran 60 kilos; con más de
// 50 unidades en libros la variación es CRITICAL.
func TestCalculateAuditVariance_LibrosGrandesEsCritical(t *testing.T) {
	f := newEngineFixture(t)
	seedAudited(t, f, 60)

	report, err := f.engine.CalculateAuditVariance(context.Background(), "saco", decimal.Zero)
	require.NoError(t, err)

	assert.True(t, report.ExpectedUnits.IsZero())
	assert.True(t, report.Variance.Equal(decimal.NewFromInt(60)))
	assert.Equal(t, entity.RiskCritical, report.RiskLevel)
}

// TestCalculateAuditVariance_MermaModeradaEsWarning: faltan 15 kilos frente a
// los 60 esperados, pero los libros quedan por debajo del umbral crítico.
func TestCalculateAuditVariance_MermaModeradaEsWarning(t *testing.T) {
	f := newEngineFixture(t)
	seedAudited(t, f, 45)

	report, err := f.engine.CalculateAuditVariance(context.Background(), "saco", decimal.NewFromInt(2))
	require.NoError(t, err)

	assert.True(t, report.Variance.Equal(decimal.NewFromInt(-15)), "merma: 45 en libros − 60 esperados")
	assert.Equal(t, entity.RiskWarning, report.RiskLevel)
}

// TestCalculateAuditVariance_NoMutaStock: la auditoría es solo lectura.
func TestCalculateAuditVariance_NoMutaStock(t *testing.T) {
	ctx := context.Background()
	f := newEngineFixture(t)
	seedAudited(t, f, 45)

	_, err := f.engine.CalculateAuditVariance(ctx, "saco", decimal.NewFromInt(2))
	require.NoError(t, err)

	derived, err := f.engine.GetItem(ctx, "kilo")
	require.NoError(t, err)
	assert.True(t, derived.CurrentStock.Equal(decimal.NewFromInt(45)), "el reporte no corrige stock")
	assert.Equal(t, 0, f.gw.QueueCount(), "la auditoría no despacha mutaciones")
}

// TestCalculateAuditVariance_Validaciones: conteo negativo y padres sin
// conversión se rechazan.
func TestCalculateAuditVariance_Validaciones(t *testing.T) {
	ctx := context.Background()
	f := newEngineFixture(t)
	seedAudited(t, f, 60)
	f.seedItem(t, &entity.InventoryItem{ID: "simple", Name: "Sin conversión", Active: true})

	_, err := f.engine.CalculateAuditVariance(ctx, "saco", decimal.NewFromInt(-1))
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)

	_, err = f.engine.CalculateAuditVariance(ctx, "simple", decimal.NewFromInt(1))
	assert.ErrorIs(t, err, domain.ErrInvalidConversion)
}

// TestBulkParents filtra solo los padres con conversión configurada.
func TestBulkParents(t *testing.T) {
	f := newEngineFixture(t)
	seedAudited(t, f, 60)
	f.seedItem(t, &entity.InventoryItem{ID: "simple", Name: "Sin conversión", Active: true})

	parents, err := f.engine.BulkParents(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, parents, 1)
	assert.Equal(t, "saco", parents[0].ID)
}
