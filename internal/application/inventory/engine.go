package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/caja-offline/internal/application/sync"
	"github.com/jhoicas/caja-offline/internal/domain"
	"github.com/jhoicas/caja-offline/internal/domain/entity"
	"github.com/jhoicas/caja-offline/pkg/logger"
)

// ConversionInfo parámetros de la relación granel → unidad derivada.
type ConversionInfo struct {
	BulkUnitName     string
	BreakoutUnitName string
	ConversionRate   decimal.Decimal
}

// Engine mantiene la corrección de la jerarquía granel → unidad derivada → lote
// y detecta la merma. Toda mutación sale por el gateway (doble vía); las
// validaciones que fallan no aplican nada en ningún almacén.
type Engine struct {
	gw  *sync.Gateway
	log *logger.Logger

	// Unidades a partir de las cuales una variación de auditoría es CRITICAL.
	CriticalUnitThreshold decimal.Decimal
}

// NewEngine construye el motor. criticalThreshold <= 0 usa 50.
func NewEngine(gw *sync.Gateway, log *logger.Logger, criticalThreshold int64) *Engine {
	if criticalThreshold <= 0 {
		criticalThreshold = 50
	}
	return &Engine{
		gw:                    gw,
		log:                   log.Component("stock_engine"),
		CriticalUnitThreshold: decimal.NewFromInt(criticalThreshold),
	}
}

// GetItem lee un artículo por id (remoto primero, caché de respaldo).
func (e *Engine) GetItem(ctx context.Context, itemID string) (*entity.InventoryItem, error) {
	rec, err := e.gw.Get(ctx, entity.CollectionItems, itemID)
	if err != nil {
		return nil, err
	}
	return entity.ItemFromRecord(rec), nil
}

// CreateBreakoutUnitItem deriva un artículo vendible nuevo a partir de un padre a
// granel: precio unitario = precio del padre ÷ tasa, costo igual, enlazado vía
// ParentItemID. Marca al padre con su configuración de conversión.
func (e *Engine) CreateBreakoutUnitItem(ctx context.Context, parentItemID string, conv ConversionInfo) (*entity.InventoryItem, error) {
	if !conv.ConversionRate.IsPositive() {
		return nil, domain.ErrInvalidConversion
	}
	parent, err := e.GetItem(ctx, parentItemID)
	if err != nil {
		return nil, err
	}
	if parent.IsDerivedUnit() {
		// Una unidad derivada no puede ser a la vez padre a granel.
		return nil, fmt.Errorf("%w: %s ya es unidad derivada", domain.ErrInvalidInput, parentItemID)
	}

	now := time.Now()
	derived := &entity.InventoryItem{
		ID:                uuid.New().String(),
		StoreID:           parent.StoreID,
		Name:              fmt.Sprintf("%s (%s)", parent.Name, conv.BreakoutUnitName),
		UnitPrice:         parent.UnitPrice.Div(conv.ConversionRate),
		BuyingPrice:       parent.BuyingPrice.Div(conv.ConversionRate),
		CurrentStock:      decimal.Zero,
		LowStockThreshold: parent.LowStockThreshold,
		ParentItemID:      parent.ID,
		IsBulkParent:      false,
		Active:            true,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if err := e.gw.Dispatch(ctx, sync.AddItem{Item: *derived}); err != nil {
		return nil, err
	}
	err = e.gw.Dispatch(ctx, sync.ConfigureBulkParent{
		ItemID:           parent.ID,
		BulkUnitName:     conv.BulkUnitName,
		BreakoutUnitName: conv.BreakoutUnitName,
		ConversionRate:   conv.ConversionRate,
	})
	if err != nil {
		return nil, err
	}

	e.log.Info().Str("padre", parent.ID).Str("derivado", derived.ID).
		Str("tasa", conv.ConversionRate.String()).Msg("unidad derivada creada")
	return derived, nil
}

// ReceiveBatch registra la recepción de mercancía: crea el lote, suma el stock
// del artículo y, si el artículo es padre a granel con conversión, materializa el
// lote de desglose correspondiente. Este es el único camino que crea stock de
// unidades derivadas.
func (e *Engine) ReceiveBatch(ctx context.Context, itemID, batchNumber string, quantity decimal.Decimal, expiry time.Time) (*entity.InventoryBatch, error) {
	if !quantity.IsPositive() {
		return nil, domain.ErrInvalidQuantity
	}
	item, err := e.GetItem(ctx, itemID)
	if err != nil {
		return nil, err
	}

	batch := &entity.InventoryBatch{
		ID:           uuid.New().String(),
		ItemID:       item.ID,
		BatchNumber:  batchNumber,
		ExpiryDate:   expiry,
		CurrentStock: quantity,
		Status:       entity.BatchStatusActive,
		CreatedAt:    time.Now(),
	}
	if err := e.gw.Dispatch(ctx, sync.AddBatch{Batch: *batch}); err != nil {
		return nil, err
	}

	if item.HasConversion() {
		breakout, err := e.findBreakoutItem(ctx, item.ID)
		if err != nil {
			return nil, err
		}
		conv := ConversionInfo{
			BulkUnitName:     item.BulkUnitName,
			BreakoutUnitName: item.BreakoutUnitName,
			ConversionRate:   item.ConversionRate,
		}
		if _, err := e.PopulateBreakoutBatches(ctx, batch, conv, breakout); err != nil {
			return nil, err
		}
	}
	return batch, nil
}

// PopulateBreakoutBatches materializa el desglose de un lote a granel: un lote
// nuevo del artículo derivado con cantidad q × tasa, misma fecha de vencimiento y
// ParentBatchID de vuelta al lote a granel.
func (e *Engine) PopulateBreakoutBatches(ctx context.Context, bulkBatch *entity.InventoryBatch, conv ConversionInfo, breakoutItem *entity.InventoryItem) (*entity.InventoryBatch, error) {
	if !conv.ConversionRate.IsPositive() {
		return nil, domain.ErrInvalidConversion
	}
	if !bulkBatch.CurrentStock.IsPositive() {
		return nil, domain.ErrInvalidQuantity
	}
	if breakoutItem.ParentItemID != bulkBatch.ItemID {
		return nil, fmt.Errorf("%w: el artículo %s no deriva del dueño del lote", domain.ErrInvalidInput, breakoutItem.ID)
	}

	units := bulkBatch.CurrentStock.Mul(conv.ConversionRate)
	breakoutBatch := &entity.InventoryBatch{
		ID:            uuid.New().String(),
		ItemID:        breakoutItem.ID,
		BatchNumber:   bulkBatch.BatchNumber + "-U",
		ExpiryDate:    bulkBatch.ExpiryDate,
		CurrentStock:  units,
		Status:        entity.BatchStatusActive,
		ParentBatchID: bulkBatch.ID,
		CreatedAt:     time.Now(),
	}
	if err := e.gw.Dispatch(ctx, sync.AddBatch{Batch: *breakoutBatch}); err != nil {
		return nil, err
	}

	e.log.Info().Str("lote_granel", bulkBatch.ID).Str("lote_desglose", breakoutBatch.ID).
		Str("unidades", units.String()).Msg("lote de desglose materializado")
	return breakoutBatch, nil
}

// DeductBreakoutUnits descarga unidades de un artículo derivado: de un lote
// concreto si batchID viene dado (el caller eligió por FEFO), o del stock
// agregado del artículo si no. Falla sin aplicar nada si el artículo no es una
// unidad derivada o si la cantidad no es positiva.
func (e *Engine) DeductBreakoutUnits(ctx context.Context, breakoutItemID string, quantity decimal.Decimal, batchID string) error {
	if !quantity.IsPositive() {
		return domain.ErrInvalidQuantity
	}
	item, err := e.GetItem(ctx, breakoutItemID)
	if err != nil {
		return err
	}
	if !item.IsDerivedUnit() {
		return domain.ErrNotDerivedUnit
	}

	var draws []sync.BatchDraw
	if batchID != "" {
		batch, err := e.getBatch(ctx, batchID)
		if err != nil {
			return err
		}
		if batch.ItemID != item.ID {
			return fmt.Errorf("%w: el lote %s no pertenece al artículo", domain.ErrInvalidInput, batchID)
		}
		if !batch.IsActive() || batch.CurrentStock.LessThan(quantity) {
			// Dejaría el lote en negativo: se rechaza en vez de recortar en silencio.
			return domain.ErrInsufficientStock
		}
		draws = []sync.BatchDraw{{BatchID: batch.ID, Quantity: quantity}}
	}

	return e.gw.Dispatch(ctx, sync.DeductUnits{
		AdjustmentID: uuid.New().String(),
		ItemID:       item.ID,
		Quantity:     quantity,
		Draws:        draws,
		AdjustedAt:   time.Now(),
	})
}

// DisposeBatch da de baja un lote (vencido, agotado o castigado) descontando su
// remanente del stock del artículo.
func (e *Engine) DisposeBatch(ctx context.Context, batchID string) error {
	batch, err := e.getBatch(ctx, batchID)
	if err != nil {
		return err
	}
	if !batch.IsActive() {
		return nil
	}
	return e.gw.Dispatch(ctx, sync.DisposeBatch{
		BatchID:   batch.ID,
		ItemID:    batch.ItemID,
		Remaining: batch.CurrentStock,
	})
}

func (e *Engine) getBatch(ctx context.Context, batchID string) (*entity.InventoryBatch, error) {
	rec, err := e.gw.Get(ctx, entity.CollectionBatches, batchID)
	if err != nil {
		return nil, err
	}
	return entity.BatchFromRecord(rec), nil
}

// findBreakoutItem localiza la unidad derivada de un padre a granel.
func (e *Engine) findBreakoutItem(ctx context.Context, parentItemID string) (*entity.InventoryItem, error) {
	recs, err := e.gw.Query(ctx, entity.CollectionItems, entity.Record{"parent_item_id": parentItemID}, sync.Order{})
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, fmt.Errorf("%w: el padre %s no tiene unidad derivada", domain.ErrNotFound, parentItemID)
	}
	return entity.ItemFromRecord(recs[0]), nil
}
