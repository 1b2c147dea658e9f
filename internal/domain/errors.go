package domain

import "errors"

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound           = errors.New("recurso no encontrado")
	ErrInvalidInput       = errors.New("entrada inválida")
	ErrInvalidQuantity    = errors.New("cantidad inválida")
	ErrInvalidConversion  = errors.New("tasa de conversión inválida")
	ErrNotDerivedUnit     = errors.New("el artículo no es una unidad derivada")
	ErrInsufficientStock  = errors.New("stock insuficiente")
	ErrSaleAlreadyVoided  = errors.New("la venta ya fue anulada")
	ErrUnknownAction      = errors.New("acción de sincronización desconocida")
	ErrDrainInProgress    = errors.New("ya hay un drenado de la cola en curso")
	ErrCacheUnavailable   = errors.New("caché local no disponible")
)
