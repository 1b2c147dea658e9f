package entity

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Record es la representación genérica de una entidad tal como viaja hacia los
// almacenes (documento clave-valor). El remoto y la caché local guardan la misma
// forma; las entidades se convierten con ToRecord / *FromRecord.
type Record map[string]any

// Nombres de las colecciones lógicas compartidas por el remoto y la caché local.
const (
	CollectionItems     = "items"
	CollectionBatches   = "batches"
	CollectionSales     = "sales"
	CollectionCustomers = "customers"
	CollectionSuppliers = "suppliers"
	CollectionAgents    = "agents"
	CollectionInvoices  = "invoices"
	CollectionPayments    = "debt_payments"
	CollectionAdjustments = "stock_adjustments"
	CollectionSyncQueue   = "sync_queue" // solo existe en la caché local
)

// Str devuelve el valor string de la clave (cadena vacía si no existe o no es string).
func (r Record) Str(key string) string {
	if v, ok := r[key].(string); ok {
		return v
	}
	return ""
}

// Bool devuelve el valor bool de la clave.
func (r Record) Bool(key string) bool {
	if v, ok := r[key].(bool); ok {
		return v
	}
	return false
}

// Decimal devuelve el valor numérico de la clave. Tolera las tres formas en que
// un número puede llegar tras un round-trip JSON: decimal, string y json.Number/float64.
func (r Record) Decimal(key string) decimal.Decimal {
	switch v := r[key].(type) {
	case decimal.Decimal:
		return v
	case string:
		d, err := decimal.NewFromString(v)
		if err != nil {
			return decimal.Zero
		}
		return d
	case json.Number:
		d, err := decimal.NewFromString(v.String())
		if err != nil {
			return decimal.Zero
		}
		return d
	case float64:
		return decimal.NewFromFloat(v)
	case int64:
		return decimal.NewFromInt(v)
	case int:
		return decimal.NewFromInt(int64(v))
	default:
		return decimal.Zero
	}
}

// Int devuelve el valor entero de la clave (truncando si hace falta).
func (r Record) Int(key string) int64 {
	return r.Decimal(key).IntPart()
}

// Time devuelve el valor time de la clave (RFC 3339; cero si no parsea).
func (r Record) Time(key string) time.Time {
	s := r.Str(key)
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// Clone copia superficial del record (los valores son escalares tras un round-trip JSON).
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func formatTimePtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}
