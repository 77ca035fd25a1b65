package entity

import "time"

// Operaciones del pipeline que pueden producir errores del SRI.
const (
	OperationSubmit             = "Submit"
	OperationCheckAuthorization = "CheckAuthorization"
)

// AuthorityErrorRecord error individual devuelto por el SRI en un rechazo definitivo.
// Inmutable: solo se inserta, nunca se actualiza.
type AuthorityErrorRecord struct {
	ID             string
	TenantID       string
	DocumentID     string
	Operation      string // OperationSubmit | OperationCheckAuthorization
	Code           string
	Message        string
	AdditionalInfo string
	OccurredAt     time.Time
}
