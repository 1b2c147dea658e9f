package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/caja-offline/internal/application/dto"
	"github.com/jhoicas/caja-offline/internal/application/pos"
)

// PartnerHandler maneja las peticiones HTTP de clientes, proveedores, vendedores
// y cuentas por pagar.
type PartnerHandler struct {
	svc *pos.Service
}

// NewPartnerHandler construye el handler.
func NewPartnerHandler(svc *pos.Service) *PartnerHandler {
	return &PartnerHandler{svc: svc}
}

// CreateCustomer alta de cliente.
func (h *PartnerHandler) CreateCustomer(c *fiber.Ctx) error {
	var in dto.CreatePartnerRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	customer, err := h.svc.CreateCustomer(c.Context(), in.Name, in.Phone)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(customer)
}

// ClearDebt abono a la deuda de un cliente.
func (h *PartnerHandler) ClearDebt(c *fiber.Ctx) error {
	var in dto.ClearDebtRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	if err := h.svc.ClearDebt(c.Context(), c.Params("id"), in.Amount); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "abono registrado"})
}

// CreateSupplier alta de proveedor.
func (h *PartnerHandler) CreateSupplier(c *fiber.Ctx) error {
	var in dto.CreatePartnerRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	supplier, err := h.svc.CreateSupplier(c.Context(), in.Name, in.Phone)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(supplier)
}

// AddAgent alta de vendedor.
func (h *PartnerHandler) AddAgent(c *fiber.Ctx) error {
	var in dto.CreatePartnerRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	agent, err := h.svc.AddAgent(c.Context(), in.Name, in.Phone)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(agent)
}

// CreateInvoice registra una factura de proveedor (cuenta por pagar).
func (h *PartnerHandler) CreateInvoice(c *fiber.Ctx) error {
	var in dto.CreateInvoiceRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	invoice, err := h.svc.CreateInvoice(c.Context(), in.SupplierID, in.Number, in.Total, in.IssuedAt)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(invoice)
}

// PayInvoice marca una factura como pagada.
func (h *PartnerHandler) PayInvoice(c *fiber.Ctx) error {
	if err := h.svc.PayInvoice(c.Context(), c.Params("id")); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "factura pagada"})
}
