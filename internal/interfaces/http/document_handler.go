package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/rs/zerolog"

	"github.com/jhoicas/Comprobantes-api/internal/application/billing"
	"github.com/jhoicas/Comprobantes-api/internal/application/dto"
	"github.com/jhoicas/Comprobantes-api/internal/domain/entity"
	"github.com/jhoicas/Comprobantes-api/internal/domain/fiscal"
)

// DocumentHandler maneja las peticiones HTTP de comprobantes (protegido).
type DocumentHandler struct {
	documents *billing.DocumentUseCase
	pipeline  *billing.AuthorizationPipeline
	ride      *billing.RIDEUseCase
	log       zerolog.Logger
}

// NewDocumentHandler construye el handler.
func NewDocumentHandler(documents *billing.DocumentUseCase, pipeline *billing.AuthorizationPipeline, ride *billing.RIDEUseCase, log zerolog.Logger) *DocumentHandler {
	return &DocumentHandler{documents: documents, pipeline: pipeline, ride: ride, log: log}
}

// Create asigna el secuencial y registra el comprobante en Draft.
// POST /api/documents
func (h *DocumentHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateDocumentRequest
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "INVALID_BODY", "cuerpo inválido")
	}
	doc, err := h.documents.CreateDocument(c.Context(), GetTenantID(c), in)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.DocumentFromEntity(doc))
}

// GetByID devuelve el comprobante.
// GET /api/documents/:id
func (h *DocumentHandler) GetByID(c *fiber.Ctx) error {
	doc, err := h.documents.GetDocument(c.Context(), GetTenantID(c), param(c, "id"))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.DocumentFromEntity(doc))
}

// List lista comprobantes por estado.
// GET /api/documents?status=PendingAuthorization&limit=20
func (h *DocumentHandler) List(c *fiber.Ctx) error {
	var page dto.PageRequest
	if err := c.QueryParser(&page); err != nil {
		return badRequest(c, "INVALID_QUERY", "parámetros inválidos")
	}
	page.DefaultPage()
	status := entity.DocumentStatus(utils.CopyString(c.Query("status", string(entity.StatusPendingAuthorization))))

	docs, err := h.documents.ListDocuments(c.Context(), GetTenantID(c), status, page.Limit)
	if err != nil {
		return respondError(c, h.log, err)
	}
	out := make([]dto.DocumentResponse, 0, len(docs))
	for _, d := range docs {
		out = append(out, dto.DocumentFromEntity(d))
	}
	return c.JSON(out)
}

// ChangeStatus aplica una transición del ciclo comercial.
// PATCH /api/documents/:id/status
func (h *DocumentHandler) ChangeStatus(c *fiber.Ctx) error {
	var in dto.ChangeStatusRequest
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "INVALID_BODY", "cuerpo inválido")
	}
	to := entity.DocumentStatus(in.Status)
	if !to.IsValid() {
		return badRequest(c, "VALIDATION", "estado desconocido: "+in.Status)
	}
	doc, err := h.documents.ChangeStatus(c.Context(), GetTenantID(c), param(c, "id"), to)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.DocumentFromEntity(doc))
}

// AttachArtifact registra el XML firmado y pasa el comprobante a PendingAuthorization.
// POST /api/documents/:id/artifact
func (h *DocumentHandler) AttachArtifact(c *fiber.Ctx) error {
	var in dto.AttachArtifactRequest
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "INVALID_BODY", "cuerpo inválido")
	}
	doc, err := h.documents.AttachSignedArtifact(c.Context(), GetTenantID(c), param(c, "id"), in.ArtifactRef)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.DocumentFromEntity(doc))
}

// Submit envía el XML firmado al web service de recepción.
// POST /api/documents/:id/submit
func (h *DocumentHandler) Submit(c *fiber.Ctx) error {
	doc, err := h.pipeline.Submit(c.Context(), GetTenantID(c), param(c, "id"))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.Status(fiber.StatusAccepted).JSON(dto.DocumentFromEntity(doc))
}

// CheckAuthorization consulta el resultado de autorización. StillPending responde 202.
// POST /api/documents/:id/authorization
func (h *DocumentHandler) CheckAuthorization(c *fiber.Ctx) error {
	res, err := h.pipeline.CheckAuthorization(c.Context(), GetTenantID(c), param(c, "id"))
	if err != nil {
		return respondError(c, h.log, err)
	}
	status := fiber.StatusOK
	if res.Verdict != fiscal.VerdictAuthorized {
		status = fiber.StatusAccepted
	}
	return c.Status(status).JSON(dto.AuthorizationResponse{
		Verdict:  string(res.Verdict),
		Document: dto.DocumentFromEntity(res.Document),
	})
}

// Errors lista los errores del SRI registrados para el comprobante.
// GET /api/documents/:id/errors
func (h *DocumentHandler) Errors(c *fiber.Ctx) error {
	records, err := h.documents.ListAuthorityErrors(c.Context(), GetTenantID(c), param(c, "id"))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.AuthorityErrorsFromEntity(records))
}

// RIDE descarga el PDF del comprobante autorizado.
// GET /api/documents/:id/ride
func (h *DocumentHandler) RIDE(c *fiber.Ctx) error {
	pdf, filename, err := h.ride.DownloadRIDE(c.Context(), GetTenantID(c), param(c, "id"))
	if err != nil {
		return respondError(c, h.log, err)
	}
	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+filename+`"`)
	return c.Send(pdf)
}
