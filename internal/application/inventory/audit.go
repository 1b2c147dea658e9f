package inventory

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/caja-offline/internal/application/sync"
	"github.com/jhoicas/caja-offline/internal/domain"
	"github.com/jhoicas/caja-offline/internal/domain/entity"
)

// CalculateAuditVariance compara el conteo físico de un padre a granel contra lo
// que el sistema cree tener en unidades derivadas:
//
//	expectedUnits = physicalBulkStock × conversionRate
//	actualUnits   = Σ currentStock de las unidades derivadas del padre
//	variance      = actualUnits − expectedUnits
//
// Es una función pura sobre el estado actual: no muta nada. La clasificación de
// riesgo: sin variación → SAFE; variación con más de CriticalUnitThreshold
// unidades en libros → CRITICAL (el faltante físico ya no es redondeo); cualquier
// otra variación → WARNING.
func (e *Engine) CalculateAuditVariance(ctx context.Context, parentItemID string, physicalBulkStock decimal.Decimal) (*entity.AuditVarianceReport, error) {
	if physicalBulkStock.IsNegative() {
		return nil, domain.ErrInvalidQuantity
	}
	parent, err := e.GetItem(ctx, parentItemID)
	if err != nil {
		return nil, err
	}
	if !parent.HasConversion() {
		return nil, domain.ErrInvalidConversion
	}

	recs, err := e.gw.Query(ctx, entity.CollectionItems, entity.Record{"parent_item_id": parent.ID}, sync.Order{})
	if err != nil {
		return nil, err
	}
	actual := decimal.Zero
	for _, r := range recs {
		actual = actual.Add(r.Decimal("current_stock"))
	}

	expected := physicalBulkStock.Mul(parent.ConversionRate)
	variance := actual.Sub(expected)

	risk := entity.RiskSafe
	switch {
	case variance.IsZero():
		risk = entity.RiskSafe
	case actual.Abs().GreaterThan(e.CriticalUnitThreshold):
		risk = entity.RiskCritical
	default:
		risk = entity.RiskWarning
	}

	return &entity.AuditVarianceReport{
		ParentItemID:      parent.ID,
		ParentName:        parent.Name,
		PhysicalBulkStock: physicalBulkStock,
		ConversionRate:    parent.ConversionRate,
		ExpectedUnits:     expected,
		ActualUnits:       actual,
		Variance:          variance,
		RiskLevel:         risk,
		GeneratedAt:       time.Now(),
	}, nil
}

// BulkParents lista los padres a granel con conversión configurada (para la
// pasada periódica de auditoría).
func (e *Engine) BulkParents(ctx context.Context, storeID string) ([]*entity.InventoryItem, error) {
	filter := entity.Record{"is_bulk_parent": true}
	if storeID != "" {
		filter["store_id"] = storeID
	}
	recs, err := e.gw.Query(ctx, entity.CollectionItems, filter, sync.Order{Field: "name"})
	if err != nil {
		return nil, err
	}
	items := make([]*entity.InventoryItem, 0, len(recs))
	for _, r := range recs {
		it := entity.ItemFromRecord(r)
		if it.HasConversion() {
			items = append(items, it)
		}
	}
	return items, nil
}
