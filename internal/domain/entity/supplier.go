package entity

import "time"

// Supplier proveedor de la tienda.
type Supplier struct {
	ID        string
	StoreID   string
	Name      string
	Phone     string
	CreatedAt time.Time
}

// ToRecord convierte el proveedor a su forma documento.
func (s *Supplier) ToRecord() Record {
	return Record{
		"id":         s.ID,
		"store_id":   s.StoreID,
		"name":       s.Name,
		"phone":      s.Phone,
		"created_at": formatTime(s.CreatedAt),
	}
}

// SupplierFromRecord reconstruye el proveedor desde su forma documento.
func SupplierFromRecord(r Record) *Supplier {
	return &Supplier{
		ID:        r.Str("id"),
		StoreID:   r.Str("store_id"),
		Name:      r.Str("name"),
		Phone:     r.Str("phone"),
		CreatedAt: r.Time("created_at"),
	}
}
