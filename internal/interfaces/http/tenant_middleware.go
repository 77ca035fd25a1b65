package http

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/Comprobantes-api/internal/application/dto"
	"github.com/jhoicas/Comprobantes-api/internal/domain/entity"
)

// tenantLookup es el contrato mínimo que necesita el middleware; lo implementa repository.TenantRepository.
type tenantLookup interface {
	GetByID(ctx context.Context, id string) (*entity.Tenant, error)
}

// RequireActiveTenant verifica que el tenant del token exista y esté activo.
// Debe usarse DESPUÉS de AuthMiddleware (necesita LocalTenantID).
//
// Comportamiento:
//   - 401 si no hay tenant_id en el contexto.
//   - 403 si el tenant no existe o está suspendido.
//   - 503 si falla la consulta.
func RequireActiveTenant(tenants tenantLookup) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tenantID := GetTenantID(c)
		if tenantID == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
				Code:    "UNAUTHORIZED",
				Message: "tenant_id no encontrado en el token",
			})
		}

		tenant, err := tenants.GetByID(c.Context(), tenantID)
		if err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(dto.ErrorResponse{
				Code:      "TENANT_CHECK_FAILED",
				Message:   "no se pudo verificar el tenant, intente más tarde",
				Retryable: true,
			})
		}
		if !tenant.IsActive() {
			return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{
				Code:    "TENANT_INACTIVE",
				Message: "el contribuyente no está habilitado para emitir",
			})
		}
		return c.Next()
	}
}
