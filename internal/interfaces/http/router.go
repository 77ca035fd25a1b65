package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/rs/zerolog"

	"github.com/jhoicas/Comprobantes-api/internal/application/billing"
	"github.com/jhoicas/Comprobantes-api/internal/domain/repository"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Documents      *billing.DocumentUseCase
	Pipeline       *billing.AuthorizationPipeline
	RIDE           *billing.RIDEUseCase
	EmissionPoints *billing.EmissionPointUseCase
	Sequences      *billing.SequenceUseCase
	Tenants        repository.TenantRepository
	JWTSecret      string
	Log            zerolog.Logger
}

// Router registra las rutas de la API. Todas requieren Bearer Token y tenant activo.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api", AuthMiddleware(deps.JWTSecret), RequireActiveTenant(deps.Tenants))

	writers := RequireRole(RoleAdmin, RoleBiller)
	readers := RequireRole(RoleAdmin, RoleBiller, RoleAuditor)

	// Puntos de emisión y secuenciales
	points := api.Group("/emission-points")
	pointHandler := NewEmissionPointHandler(deps.EmissionPoints, deps.Sequences, deps.Log)
	points.Get("/", readers, pointHandler.List)
	points.Post("/", RequireRole(RoleAdmin), pointHandler.Create)
	points.Post("/:id/sequences/:type", writers, pointHandler.AllocateNext)

	// Comprobantes
	docs := api.Group("/documents")
	docHandler := NewDocumentHandler(deps.Documents, deps.Pipeline, deps.RIDE, deps.Log)
	docs.Post("/", writers, docHandler.Create)
	docs.Get("/", readers, docHandler.List)
	docs.Get("/:id", readers, docHandler.GetByID)
	docs.Patch("/:id/status", writers, docHandler.ChangeStatus)
	docs.Post("/:id/artifact", writers, docHandler.AttachArtifact)
	docs.Post("/:id/submit", writers, docHandler.Submit)
	docs.Post("/:id/authorization", writers, docHandler.CheckAuthorization)
	docs.Get("/:id/errors", readers, docHandler.Errors)
	docs.Get("/:id/ride", readers, docHandler.RIDE)
}

// param devuelve una copia del parámetro de ruta: fiber reutiliza el buffer de la
// petición y los valores que llegan a los repositorios deben sobrevivirla.
func param(c *fiber.Ctx, key string) string { return utils.CopyString(c.Params(key)) }
