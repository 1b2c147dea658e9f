package inventory_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/caja-offline/internal/application/inventory"
	appsync "github.com/jhoicas/caja-offline/internal/application/sync"
	"github.com/jhoicas/caja-offline/internal/domain"
	"github.com/jhoicas/caja-offline/internal/domain/entity"
)

func seedBulkParent(t *testing.T, f *engineFixture) *entity.InventoryItem {
	t.Helper()
	parent := &entity.InventoryItem{
		ID:           "botella",
		Name:         "Whisky 750ml",
		UnitPrice:    decimal.NewFromInt(100),
		BuyingPrice:  decimal.NewFromInt(60),
		CurrentStock: decimal.Zero,
		Active:       true,
	}
	f.seedItem(t, parent)
	return parent
}

// TestCreateBreakoutUnitItem_DerivaPrecioYEnlaza verifica la creación de la
// unidad derivada: precio = precio del padre ÷ tasa, enlace por ParentItemID, y
// el padre queda marcado con su conversión.
func TestCreateBreakoutUnitItem_DerivaPrecioYEnlaza(t *testing.T) {
	ctx := context.Background()
	f := newEngineFixture(t)
	seedBulkParent(t, f)

	derived, err := f.engine.CreateBreakoutUnitItem(ctx, "botella", inventory.ConversionInfo{
		BulkUnitName:     "botella 750ml",
		BreakoutUnitName: "trago 30ml",
		ConversionRate:   decimal.NewFromInt(25),
	})
	require.NoError(t, err)

	assert.Equal(t, "botella", derived.ParentItemID)
	assert.True(t, derived.UnitPrice.Equal(decimal.NewFromInt(4)), "100 ÷ 25 = 4 por trago")
	assert.True(t, derived.CurrentStock.IsZero(), "el stock derivado solo nace de recibir lotes")
	assert.False(t, derived.IsBulkParent)

	parent, err := f.engine.GetItem(ctx, "botella")
	require.NoError(t, err)
	assert.True(t, parent.HasConversion())
	assert.True(t, parent.ConversionRate.Equal(decimal.NewFromInt(25)))
	assert.Equal(t, "trago 30ml", parent.BreakoutUnitName)
}

// TestCreateBreakoutUnitItem_TasaInvalida rechaza tasas no positivas sin tocar nada.
func TestCreateBreakoutUnitItem_TasaInvalida(t *testing.T) {
	f := newEngineFixture(t)
	seedBulkParent(t, f)

	_, err := f.engine.CreateBreakoutUnitItem(context.Background(), "botella", inventory.ConversionInfo{
		ConversionRate: decimal.Zero,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidConversion)
}

// TestCreateBreakoutUnitItem_SobreUnaDerivadaFalla impide anidar jerarquías: una
// unidad derivada no puede ser a la vez padre a granel.
func TestCreateBreakoutUnitItem_SobreUnaDerivadaFalla(t *testing.T) {
	ctx := context.Background()
	f := newEngineFixture(t)
	seedBulkParent(t, f)

	_, err := f.engine.CreateBreakoutUnitItem(ctx, "botella", inventory.ConversionInfo{
		BreakoutUnitName: "trago 30ml", ConversionRate: decimal.NewFromInt(25),
	})
	require.NoError(t, err)

	derived, err := f.engine.GetItem(ctx, findDerivedID(t, f, "botella"))
	require.NoError(t, err)

	_, err = f.engine.CreateBreakoutUnitItem(ctx, derived.ID, inventory.ConversionInfo{
		BreakoutUnitName: "sorbo", ConversionRate: decimal.NewFromInt(2),
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

// TestReceiveBatch_MaterializaDesglose verifica la recepción sobre un padre con
// conversión: 4 botellas × 25 tragos = lote de desglose con 100 unidades, misma
// fecha de vencimiento, enlazado al lote a granel.
func TestReceiveBatch_MaterializaDesglose(t *testing.T) {
	ctx := context.Background()
	f := newEngineFixture(t)
	seedBulkParent(t, f)

	_, err := f.engine.CreateBreakoutUnitItem(ctx, "botella", inventory.ConversionInfo{
		BulkUnitName: "botella 750ml", BreakoutUnitName: "trago 30ml",
		ConversionRate: decimal.NewFromInt(25),
	})
	require.NoError(t, err)
	derivedID := findDerivedID(t, f, "botella")

	expiry := day("2026-12-31")
	bulkBatch, err := f.engine.ReceiveBatch(ctx, "botella", "LOTE-7", decimal.NewFromInt(4), expiry)
	require.NoError(t, err)
	assert.True(t, bulkBatch.CurrentStock.Equal(decimal.NewFromInt(4)))

	parent, err := f.engine.GetItem(ctx, "botella")
	require.NoError(t, err)
	assert.True(t, parent.CurrentStock.Equal(decimal.NewFromInt(4)))

	derived, err := f.engine.GetItem(ctx, derivedID)
	require.NoError(t, err)
	assert.True(t, derived.CurrentStock.Equal(decimal.NewFromInt(100)), "4 × 25 = 100 tragos")

	breakoutBatches, err := f.engine.ActiveBatches(ctx, derivedID)
	require.NoError(t, err)
	require.Len(t, breakoutBatches, 1)
	assert.True(t, breakoutBatches[0].CurrentStock.Equal(decimal.NewFromInt(100)))
	assert.True(t, breakoutBatches[0].ExpiryDate.Equal(expiry), "el desglose hereda el vencimiento del granel")
	assert.Equal(t, bulkBatch.ID, breakoutBatches[0].ParentBatchID)
	assert.Equal(t, "LOTE-7-U", breakoutBatches[0].BatchNumber)
}

// TestReceiveBatch_SinConversionNoDesglosa verifica que un artículo común recibe
// su lote sin efectos colaterales.
func TestReceiveBatch_SinConversionNoDesglosa(t *testing.T) {
	ctx := context.Background()
	f := newEngineFixture(t)
	f.seedItem(t, &entity.InventoryItem{ID: "gaseosa", Name: "Gaseosa", Active: true})

	_, err := f.engine.ReceiveBatch(ctx, "gaseosa", "G-1", decimal.NewFromInt(24), day("2026-06-30"))
	require.NoError(t, err)

	item, err := f.engine.GetItem(ctx, "gaseosa")
	require.NoError(t, err)
	assert.True(t, item.CurrentStock.Equal(decimal.NewFromInt(24)))
}

// TestDeductBreakoutUnits verifica el descargo manual de unidades derivadas y
// sus validaciones: solo sobre derivadas, cantidad positiva, lote suficiente.
func TestDeductBreakoutUnits(t *testing.T) {
	ctx := context.Background()
	f := newEngineFixture(t)
	seedBulkParent(t, f)

	_, err := f.engine.CreateBreakoutUnitItem(ctx, "botella", inventory.ConversionInfo{
		BreakoutUnitName: "trago 30ml", ConversionRate: decimal.NewFromInt(25),
	})
	require.NoError(t, err)
	derivedID := findDerivedID(t, f, "botella")
	_, err = f.engine.ReceiveBatch(ctx, "botella", "LOTE-7", decimal.NewFromInt(4), day("2026-12-31"))
	require.NoError(t, err)

	batches, err := f.engine.ActiveBatches(ctx, derivedID)
	require.NoError(t, err)
	require.Len(t, batches, 1)
	batchID := batches[0].ID

	// Sobre el padre (no derivada) se rechaza.
	err = f.engine.DeductBreakoutUnits(ctx, "botella", decimal.NewFromInt(1), "")
	assert.ErrorIs(t, err, domain.ErrNotDerivedUnit)

	// Cantidad no positiva se rechaza.
	err = f.engine.DeductBreakoutUnits(ctx, derivedID, decimal.Zero, "")
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)

	// Más de lo que el lote tiene se rechaza sin aplicar nada.
	err = f.engine.DeductBreakoutUnits(ctx, derivedID, decimal.NewFromInt(101), batchID)
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)

	// Descargo válido contra el lote.
	err = f.engine.DeductBreakoutUnits(ctx, derivedID, decimal.NewFromInt(10), batchID)
	require.NoError(t, err)

	derived, err := f.engine.GetItem(ctx, derivedID)
	require.NoError(t, err)
	assert.True(t, derived.CurrentStock.Equal(decimal.NewFromInt(90)))

	batches, err = f.engine.ActiveBatches(ctx, derivedID)
	require.NoError(t, err)
	assert.True(t, batches[0].CurrentStock.Equal(decimal.NewFromInt(90)))
}

// TestDisposeBatch_DescuentaRemanenteUnaVez verifica la baja de un lote: estado
// DISPOSED, stock del lote en cero, remanente descontado del artículo; repetir la
// baja es un no-op.
func TestDisposeBatch_DescuentaRemanenteUnaVez(t *testing.T) {
	ctx := context.Background()
	f := newEngineFixture(t)
	f.seedItem(t, &entity.InventoryItem{ID: "gaseosa", Name: "Gaseosa", Active: true})

	batch, err := f.engine.ReceiveBatch(ctx, "gaseosa", "G-1", decimal.NewFromInt(24), day("2024-01-01"))
	require.NoError(t, err)

	require.NoError(t, f.engine.DisposeBatch(ctx, batch.ID))
	require.NoError(t, f.engine.DisposeBatch(ctx, batch.ID), "repetir la baja no debe fallar ni descontar de nuevo")

	item, err := f.engine.GetItem(ctx, "gaseosa")
	require.NoError(t, err)
	assert.True(t, item.CurrentStock.IsZero(), "el remanente se descuenta exactamente una vez")

	active, err := f.engine.ActiveBatches(ctx, "gaseosa")
	require.NoError(t, err)
	assert.Empty(t, active)
}

// findDerivedID localiza la unidad derivada sembrada por el motor.
func findDerivedID(t *testing.T, f *engineFixture, parentID string) string {
	t.Helper()
	recs, err := f.remote.Query(context.Background(), entity.CollectionItems,
		entity.Record{"parent_item_id": parentID}, appsync.Order{})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	return recs[0].Str("id")
}
