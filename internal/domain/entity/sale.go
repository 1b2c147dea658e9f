package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Estados de una venta.
const (
	SaleStatusCompleted = "COMPLETED"
	SaleStatusVoided    = "VOIDED"
)

// SaleDraw descargo que la venta hizo contra un lote concreto (plan FEFO).
// Se guarda junto a la venta para poder revertirlo al anularla.
type SaleDraw struct {
	BatchID  string          `json:"batch_id"`
	Quantity decimal.Decimal `json:"quantity"`
}

// Sale representa una venta registrada en el terminal. El ID lo genera el cliente
// (UUID) antes de tocar cualquier almacén: es la clave de idempotencia que hace
// inocuo reproducir la venta contra el remoto tras un falso negativo.
type Sale struct {
	ID         string
	StoreID    string
	ItemID     string
	ItemName   string
	Quantity   decimal.Decimal
	UnitPrice  decimal.Decimal
	Total      decimal.Decimal
	AgentID    string // vendedor, opcional
	CustomerID string // opcional
	Status     string // COMPLETED | VOIDED
	Draws      []SaleDraw
	CreatedAt  time.Time
}

// ToRecord convierte la venta a su forma documento.
func (s *Sale) ToRecord() Record {
	return Record{
		"id":          s.ID,
		"store_id":    s.StoreID,
		"item_id":     s.ItemID,
		"item_name":   s.ItemName,
		"quantity":    s.Quantity,
		"unit_price":  s.UnitPrice,
		"total":       s.Total,
		"agent_id":    s.AgentID,
		"customer_id": s.CustomerID,
		"status":      s.Status,
		"draws":       drawsToValues(s.Draws),
		"created_at":  formatTime(s.CreatedAt),
	}
}

func drawsToValues(draws []SaleDraw) []any {
	out := make([]any, 0, len(draws))
	for _, d := range draws {
		out = append(out, map[string]any{
			"batch_id": d.BatchID,
			"quantity": d.Quantity,
		})
	}
	return out
}

func drawsFromValue(v any) []SaleDraw {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]SaleDraw, 0, len(items))
	for _, it := range items {
		m, ok := it.(map[string]any)
		if !ok {
			continue
		}
		r := Record(m)
		out = append(out, SaleDraw{
			BatchID:  r.Str("batch_id"),
			Quantity: r.Decimal("quantity"),
		})
	}
	return out
}

// SaleFromRecord reconstruye la venta desde su forma documento.
func SaleFromRecord(r Record) *Sale {
	return &Sale{
		ID:         r.Str("id"),
		StoreID:    r.Str("store_id"),
		ItemID:     r.Str("item_id"),
		ItemName:   r.Str("item_name"),
		Quantity:   r.Decimal("quantity"),
		UnitPrice:  r.Decimal("unit_price"),
		Total:      r.Decimal("total"),
		AgentID:    r.Str("agent_id"),
		CustomerID: r.Str("customer_id"),
		Status:     r.Str("status"),
		Draws:      drawsFromValue(r["draws"]),
		CreatedAt:  r.Time("created_at"),
	}
}
