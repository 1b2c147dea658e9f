package inventory

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/caja-offline/internal/application/sync"
	"github.com/jhoicas/caja-offline/internal/domain"
	"github.com/jhoicas/caja-offline/internal/domain/entity"
)

// SortFEFO ordena lotes por vencimiento ascendente (First-Expiry-First-Out),
// desempatando por created_at más antiguo. El orden es estable.
func SortFEFO(batches []*entity.InventoryBatch) {
	sort.SliceStable(batches, func(i, j int) bool {
		if !batches[i].ExpiryDate.Equal(batches[j].ExpiryDate) {
			return batches[i].ExpiryDate.Before(batches[j].ExpiryDate)
		}
		return batches[i].CreatedAt.Before(batches[j].CreatedAt)
	})
}

// ActiveBatches lista los lotes ACTIVE de un artículo ya en orden FEFO.
func (e *Engine) ActiveBatches(ctx context.Context, itemID string) ([]*entity.InventoryBatch, error) {
	recs, err := e.gw.Query(ctx, entity.CollectionBatches,
		entity.Record{"item_id": itemID, "status": entity.BatchStatusActive},
		sync.Order{Field: "expiry_date"},
	)
	if err != nil {
		return nil, err
	}
	batches := make([]*entity.InventoryBatch, 0, len(recs))
	for _, r := range recs {
		batches = append(batches, entity.BatchFromRecord(r))
	}
	SortFEFO(batches)
	return batches, nil
}

// NextBatchFEFO devuelve el lote del que un caller debe descargar ahora: el
// activo no vacío con el vencimiento más próximo aún no vencido.
func (e *Engine) NextBatchFEFO(ctx context.Context, itemID string, now time.Time) (*entity.InventoryBatch, error) {
	batches, err := e.ActiveBatches(ctx, itemID)
	if err != nil {
		return nil, err
	}
	for _, b := range batches {
		if b.CurrentStock.IsPositive() && b.ExpiryDate.After(now) {
			return b, nil
		}
	}
	return nil, domain.ErrNotFound
}

// PlanDeduction reparte una cantidad a descargar entre los lotes activos del
// artículo en orden FEFO: agota el de vencimiento más próximo antes de tocar el
// siguiente. Si los lotes cubren menos que la cantidad (lotes pendientes de
// conciliación), el plan cubre lo que hay y el resto sale solo del agregado.
//
// El plan ordena, no filtra por reloj: elegir un lote vigente es tarea del
// caller (NextBatchFEFO); aquí se descarga lo que el mostrador efectivamente
// entregó, incluso de un lote que venció entre la selección y el cobro —
// filtrarlo dejaría el libro de lotes divorciado de la realidad física.
func (e *Engine) PlanDeduction(ctx context.Context, itemID string, quantity decimal.Decimal) ([]sync.BatchDraw, error) {
	if !quantity.IsPositive() {
		return nil, domain.ErrInvalidQuantity
	}
	batches, err := e.ActiveBatches(ctx, itemID)
	if err != nil {
		return nil, err
	}

	var draws []sync.BatchDraw
	remaining := quantity
	for _, b := range batches {
		if !remaining.IsPositive() {
			break
		}
		if !b.CurrentStock.IsPositive() {
			continue
		}
		draw := decimal.Min(remaining, b.CurrentStock)
		draws = append(draws, sync.BatchDraw{BatchID: b.ID, Quantity: draw})
		remaining = remaining.Sub(draw)
	}
	return draws, nil
}
