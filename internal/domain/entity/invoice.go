package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Estados de una factura de proveedor.
const (
	InvoiceStatusPending = "PENDING"
	InvoiceStatusPaid    = "PAID"
)

// Invoice factura de compra a un proveedor (cuenta por pagar de la tienda).
type Invoice struct {
	ID         string
	StoreID    string
	SupplierID string
	Number     string
	Total      decimal.Decimal
	Status     string // PENDING | PAID
	IssuedAt   time.Time
	PaidAt     *time.Time
	CreatedAt  time.Time
}

// ToRecord convierte la factura a su forma documento.
func (i *Invoice) ToRecord() Record {
	return Record{
		"id":          i.ID,
		"store_id":    i.StoreID,
		"supplier_id": i.SupplierID,
		"number":      i.Number,
		"total":       i.Total,
		"status":      i.Status,
		"issued_at":   formatTime(i.IssuedAt),
		"paid_at":     formatTimePtr(i.PaidAt),
		"created_at":  formatTime(i.CreatedAt),
	}
}

// InvoiceFromRecord reconstruye la factura desde su forma documento.
func InvoiceFromRecord(r Record) *Invoice {
	inv := &Invoice{
		ID:         r.Str("id"),
		StoreID:    r.Str("store_id"),
		SupplierID: r.Str("supplier_id"),
		Number:     r.Str("number"),
		Total:      r.Decimal("total"),
		Status:     r.Str("status"),
		IssuedAt:   r.Time("issued_at"),
		CreatedAt:  r.Time("created_at"),
	}
	if t := r.Time("paid_at"); !t.IsZero() {
		inv.PaidAt = &t
	}
	return inv
}
