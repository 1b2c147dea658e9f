package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// InventoryItem representa un producto vendible de una tienda.
//
// Un artículo es exactamente una de dos cosas cuando hay conversión configurada:
//   - padre a granel: IsBulkParent = true, ParentItemID vacío, con BulkUnitName /
//     BreakoutUnitName / ConversionRate definidos; o
//   - unidad derivada: ParentItemID apunta al padre y IsBulkParent = false.
//
// CurrentStock es la cantidad de exhibición (piso en cero); el libro real vive en
// los lotes y la discrepancia la revela la auditoría de merma, no este campo.
type InventoryItem struct {
	ID                string
	StoreID           string
	Name              string
	UnitPrice         decimal.Decimal
	BuyingPrice       decimal.Decimal
	CurrentStock      decimal.Decimal
	LowStockThreshold decimal.Decimal
	Barcode           string // SKU o código de barras, opcional
	ParentItemID      string // solo en unidades derivadas
	BulkUnitName      string // solo en padres a granel (ej. "botella 750ml")
	BreakoutUnitName  string // solo en padres a granel (ej. "trago 30ml")
	ConversionRate    decimal.Decimal
	IsBulkParent      bool
	Active            bool
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// IsDerivedUnit indica si el artículo es una unidad derivada de un padre a granel.
func (i *InventoryItem) IsDerivedUnit() bool {
	return i.ParentItemID != ""
}

// HasConversion indica si el padre tiene conversión granel→unidad configurada.
func (i *InventoryItem) HasConversion() bool {
	return i.IsBulkParent && i.ConversionRate.IsPositive()
}

// ToRecord convierte el artículo a su forma documento.
func (i *InventoryItem) ToRecord() Record {
	return Record{
		"id":                  i.ID,
		"store_id":            i.StoreID,
		"name":                i.Name,
		"unit_price":          i.UnitPrice,
		"buying_price":        i.BuyingPrice,
		"current_stock":       i.CurrentStock,
		"low_stock_threshold": i.LowStockThreshold,
		"barcode":             i.Barcode,
		"parent_item_id":      i.ParentItemID,
		"bulk_unit_name":      i.BulkUnitName,
		"breakout_unit_name":  i.BreakoutUnitName,
		"conversion_rate":     i.ConversionRate,
		"is_bulk_parent":      i.IsBulkParent,
		"active":              i.Active,
		"created_at":          formatTime(i.CreatedAt),
		"updated_at":          formatTime(i.UpdatedAt),
	}
}

// ItemFromRecord reconstruye el artículo desde su forma documento.
func ItemFromRecord(r Record) *InventoryItem {
	return &InventoryItem{
		ID:                r.Str("id"),
		StoreID:           r.Str("store_id"),
		Name:              r.Str("name"),
		UnitPrice:         r.Decimal("unit_price"),
		BuyingPrice:       r.Decimal("buying_price"),
		CurrentStock:      r.Decimal("current_stock"),
		LowStockThreshold: r.Decimal("low_stock_threshold"),
		Barcode:           r.Str("barcode"),
		ParentItemID:      r.Str("parent_item_id"),
		BulkUnitName:      r.Str("bulk_unit_name"),
		BreakoutUnitName:  r.Str("breakout_unit_name"),
		ConversionRate:    r.Decimal("conversion_rate"),
		IsBulkParent:      r.Bool("is_bulk_parent"),
		Active:            r.Bool("active"),
		CreatedAt:         r.Time("created_at"),
		UpdatedAt:         r.Time("updated_at"),
	}
}
