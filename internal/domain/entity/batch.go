package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Estados de un lote.
const (
	BatchStatusActive   = "ACTIVE"
	BatchStatusDisposed = "DISPOSED"
)

// InventoryBatch representa un lote físico de un artículo con su propia fecha de
// vencimiento y cantidad restante. La suma de lotes ACTIVE de un artículo debe
// igualar (o quedar por debajo de, pendiente de conciliación) su CurrentStock.
type InventoryBatch struct {
	ID            string
	ItemID        string
	BatchNumber   string
	ExpiryDate    time.Time
	CurrentStock  decimal.Decimal
	Status        string // ACTIVE | DISPOSED
	ParentBatchID string // solo cuando el lote se materializó como desglose de un lote a granel
	CreatedAt     time.Time
}

// IsActive indica si el lote sigue disponible para descargos.
func (b *InventoryBatch) IsActive() bool {
	return b.Status == BatchStatusActive
}

// ToRecord convierte el lote a su forma documento.
func (b *InventoryBatch) ToRecord() Record {
	return Record{
		"id":              b.ID,
		"item_id":         b.ItemID,
		"batch_number":    b.BatchNumber,
		"expiry_date":     formatTime(b.ExpiryDate),
		"current_stock":   b.CurrentStock,
		"status":          b.Status,
		"parent_batch_id": b.ParentBatchID,
		"created_at":      formatTime(b.CreatedAt),
	}
}

// BatchFromRecord reconstruye el lote desde su forma documento.
func BatchFromRecord(r Record) *InventoryBatch {
	return &InventoryBatch{
		ID:            r.Str("id"),
		ItemID:        r.Str("item_id"),
		BatchNumber:   r.Str("batch_number"),
		ExpiryDate:    r.Time("expiry_date"),
		CurrentStock:  r.Decimal("current_stock"),
		Status:        r.Str("status"),
		ParentBatchID: r.Str("parent_batch_id"),
		CreatedAt:     r.Time("created_at"),
	}
}
