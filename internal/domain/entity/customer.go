package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Customer cliente de la tienda; Debt acumula ventas a crédito pendientes.
type Customer struct {
	ID        string
	StoreID   string
	Name      string
	Phone     string
	Debt      decimal.Decimal
	CreatedAt time.Time
}

// ToRecord convierte el cliente a su forma documento.
func (c *Customer) ToRecord() Record {
	return Record{
		"id":         c.ID,
		"store_id":   c.StoreID,
		"name":       c.Name,
		"phone":      c.Phone,
		"debt":       c.Debt,
		"created_at": formatTime(c.CreatedAt),
	}
}

// CustomerFromRecord reconstruye el cliente desde su forma documento.
func CustomerFromRecord(r Record) *Customer {
	return &Customer{
		ID:        r.Str("id"),
		StoreID:   r.Str("store_id"),
		Name:      r.Str("name"),
		Phone:     r.Str("phone"),
		Debt:      r.Decimal("debt"),
		CreatedAt: r.Time("created_at"),
	}
}

// DebtPayment abono a la deuda de un cliente. Tiene su propio UUID de cliente para
// que la reproducción de un clear-debt encolado no descuente dos veces.
type DebtPayment struct {
	ID         string
	CustomerID string
	Amount     decimal.Decimal
	PaidAt     time.Time
}

// ToRecord convierte el abono a su forma documento.
func (p *DebtPayment) ToRecord() Record {
	return Record{
		"id":          p.ID,
		"customer_id": p.CustomerID,
		"amount":      p.Amount,
		"paid_at":     formatTime(p.PaidAt),
	}
}
