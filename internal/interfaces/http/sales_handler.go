package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/caja-offline/internal/application/dto"
	"github.com/jhoicas/caja-offline/internal/application/pos"
)

// SalesHandler maneja las peticiones HTTP de ventas.
type SalesHandler struct {
	svc *pos.Service
}

// NewSalesHandler construye el handler.
func NewSalesHandler(svc *pos.Service) *SalesHandler {
	return &SalesHandler{svc: svc}
}

// RecordSale registra una venta. Responde 201 aunque el terminal esté offline:
// la venta queda aplicada localmente y encolada para el remoto.
func (h *SalesHandler) RecordSale(c *fiber.Ctx) error {
	var in dto.RecordSaleRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	sale, err := h.svc.RecordSale(c.Context(), pos.RecordSaleInput{
		ItemID:     in.ItemID,
		Quantity:   in.Quantity,
		AgentID:    in.AgentID,
		CustomerID: in.CustomerID,
		BatchID:    in.BatchID,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(sale)
}

// VoidSale anula una venta reponiendo su stock.
func (h *SalesHandler) VoidSale(c *fiber.Ctx) error {
	if err := h.svc.VoidSale(c.Context(), c.Params("id")); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "venta anulada"})
}
