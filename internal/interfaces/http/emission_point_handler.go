package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/jhoicas/Comprobantes-api/internal/application/billing"
	"github.com/jhoicas/Comprobantes-api/internal/application/dto"
	"github.com/jhoicas/Comprobantes-api/internal/domain/entity"
)

// EmissionPointHandler puntos de emisión y asignación directa de secuenciales.
type EmissionPointHandler struct {
	points    *billing.EmissionPointUseCase
	sequences *billing.SequenceUseCase
	log       zerolog.Logger
}

// NewEmissionPointHandler construye el handler.
func NewEmissionPointHandler(points *billing.EmissionPointUseCase, sequences *billing.SequenceUseCase, log zerolog.Logger) *EmissionPointHandler {
	return &EmissionPointHandler{points: points, sequences: sequences, log: log}
}

// Create registra un punto de emisión.
// POST /api/emission-points
func (h *EmissionPointHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateEmissionPointRequest
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "INVALID_BODY", "cuerpo inválido")
	}
	p, err := h.points.Create(c.Context(), GetTenantID(c), in)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.EmissionPointFromEntity(p))
}

// List lista los puntos de emisión del tenant con sus contadores.
// GET /api/emission-points
func (h *EmissionPointHandler) List(c *fiber.Ctx) error {
	points, err := h.points.List(c.Context(), GetTenantID(c))
	if err != nil {
		return respondError(c, h.log, err)
	}
	out := make([]dto.EmissionPointResponse, 0, len(points))
	for _, p := range points {
		out = append(out, dto.EmissionPointFromEntity(p))
	}
	return c.JSON(out)
}

// AllocateNext reserva el siguiente secuencial para comprobantes generados por flujos externos.
// POST /api/emission-points/:id/sequences/:type
func (h *EmissionPointHandler) AllocateNext(c *fiber.Ctx) error {
	a, err := h.sequences.AllocateNext(c.Context(), GetTenantID(c), param(c, "id"), entity.DocumentType(param(c, "type")))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.AllocationResponse{
		EmissionPointID: a.Point.ID,
		DocumentType:    string(a.DocumentType),
		Sequence:        a.Sequence,
		DocumentNumber:  a.DocumentNumber,
	})
}
