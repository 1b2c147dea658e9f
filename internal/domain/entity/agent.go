package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Agent vendedor de la tienda. SalesCount y SalesTotal son los contadores de
// desempeño que cada venta confirmada incrementa (de forma relativa, nunca
// leer-modificar-escribir desde el terminal).
type Agent struct {
	ID         string
	StoreID    string
	Name       string
	Phone      string
	SalesCount int64
	SalesTotal decimal.Decimal
	CreatedAt  time.Time
}

// ToRecord convierte el vendedor a su forma documento.
func (a *Agent) ToRecord() Record {
	return Record{
		"id":          a.ID,
		"store_id":    a.StoreID,
		"name":        a.Name,
		"phone":       a.Phone,
		"sales_count": a.SalesCount,
		"sales_total": a.SalesTotal,
		"created_at":  formatTime(a.CreatedAt),
	}
}

// AgentFromRecord reconstruye el vendedor desde su forma documento.
func AgentFromRecord(r Record) *Agent {
	return &Agent{
		ID:         r.Str("id"),
		StoreID:    r.Str("store_id"),
		Name:       r.Str("name"),
		Phone:      r.Str("phone"),
		SalesCount: r.Int("sales_count"),
		SalesTotal: r.Decimal("sales_total"),
		CreatedAt:  r.Time("created_at"),
	}
}
