package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/caja-offline/internal/application/dto"
	"github.com/jhoicas/caja-offline/internal/application/pos"
)

// SyncHandler maneja las peticiones HTTP de la cola de sincronización.
type SyncHandler struct {
	svc *pos.Service
}

// NewSyncHandler construye el handler.
func NewSyncHandler(svc *pos.Service) *SyncHandler {
	return &SyncHandler{svc: svc}
}

// Process drena la cola pendiente contra el remoto (el mismo drenado que corre
// de fondo, disparado a mano desde el tablero del operador).
func (h *SyncHandler) Process(c *fiber.Ctx) error {
	result, err := h.svc.ProcessSyncQueue(c.Context())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.DrainResultResponse{
		Succeeded: result.Succeeded,
		Failed:    result.Failed,
		Pending:   h.svc.SyncQueueCount(),
	})
}

// Status entradas aún pendientes de confirmar contra el remoto.
func (h *SyncHandler) Status(c *fiber.Ctx) error {
	return c.JSON(dto.SyncStatusResponse{Pending: h.svc.SyncQueueCount()})
}
