package entity

import "time"

// Tenant representa al contribuyente emisor (frontera de aislamiento multi-tenant).
type Tenant struct {
	ID        string
	Name      string
	RUC       string // RUC ecuatoriano de 13 dígitos; forma parte de la clave de acceso
	Status    string // active, suspended, inactive
	CreatedAt time.Time
	UpdatedAt time.Time
}

const (
	TenantStatusActive    = "active"
	TenantStatusSuspended = "suspended"
)

// IsActive indica si el tenant puede emitir comprobantes.
func (t *Tenant) IsActive() bool { return t != nil && t.Status == TenantStatusActive }
