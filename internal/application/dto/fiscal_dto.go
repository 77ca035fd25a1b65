package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/Comprobantes-api/internal/domain/entity"
)

// CreateDocumentRequest body para POST /api/documents.
// Total lo calcula el motor de impuestos externo; aquí solo se registra.
type CreateDocumentRequest struct {
	EmissionPointID string          `json:"emission_point_id"`
	DocumentType    string          `json:"document_type"`        // invoice, credit_note, debit_note, withholding
	IssueDate       string          `json:"issue_date,omitempty"` // YYYY-MM-DD; vacío = hoy
	Total           decimal.Decimal `json:"total"`
}

// ChangeStatusRequest body para PATCH /api/documents/:id/status.
type ChangeStatusRequest struct {
	Status string `json:"status"`
}

// AttachArtifactRequest body para POST /api/documents/:id/artifact.
type AttachArtifactRequest struct {
	ArtifactRef string `json:"artifact_ref"`
}

// AllocationResponse respuesta de POST /api/emission-points/:id/sequences/:type.
type AllocationResponse struct {
	EmissionPointID string `json:"emission_point_id"`
	DocumentType    string `json:"document_type"`
	Sequence        int64  `json:"sequence"`
	DocumentNumber  string `json:"document_number"`
}

// DocumentResponse comprobante en respuestas.
type DocumentResponse struct {
	ID                string          `json:"id"`
	TenantID          string          `json:"tenant_id"`
	EmissionPointID   string          `json:"emission_point_id"`
	DocumentType      string          `json:"document_type"`
	Sequence          int64           `json:"sequence"`
	DocumentNumber    string          `json:"document_number"`
	Status            string          `json:"status"`
	IssueDate         string          `json:"issue_date"`
	Total             decimal.Decimal `json:"total"`
	AccessKey         string          `json:"access_key,omitempty"`
	SignedArtifactRef string          `json:"signed_artifact_ref,omitempty"`
	SubmittedAt       *time.Time      `json:"submitted_at,omitempty"`
	AuthorizationCode string          `json:"authorization_code,omitempty"`
	AuthorizedAt      *time.Time      `json:"authorized_at,omitempty"`
	PaidAt            *time.Time      `json:"paid_at,omitempty"`
	Version           int64           `json:"version"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// AuthorizationResponse resultado de POST /api/documents/:id/authorization.
type AuthorizationResponse struct {
	Verdict  string           `json:"verdict"` // Authorized | StillPending
	Document DocumentResponse `json:"document"`
}

// AuthorityErrorResponse error del SRI persistido.
type AuthorityErrorResponse struct {
	ID             string    `json:"id"`
	Operation      string    `json:"operation"`
	Code           string    `json:"code"`
	Message        string    `json:"message"`
	AdditionalInfo string    `json:"additional_info,omitempty"`
	OccurredAt     time.Time `json:"occurred_at"`
}

// DocumentFromEntity mapea la entidad a su representación HTTP.
func DocumentFromEntity(d *entity.FiscalDocument) DocumentResponse {
	return DocumentResponse{
		ID:                d.ID,
		TenantID:          d.TenantID,
		EmissionPointID:   d.EmissionPointID,
		DocumentType:      string(d.DocumentType),
		Sequence:          d.Sequence,
		DocumentNumber:    d.DocumentNumber,
		Status:            string(d.Status),
		IssueDate:         d.IssueDate.Format("2006-01-02"),
		Total:             d.Total,
		AccessKey:         d.AccessKey,
		SignedArtifactRef: d.SignedArtifactRef,
		SubmittedAt:       d.SubmittedAt,
		AuthorizationCode: d.AuthorizationCode,
		AuthorizedAt:      d.AuthorizedAt,
		PaidAt:            d.PaidAt,
		Version:           d.Version,
		CreatedAt:         d.CreatedAt,
		UpdatedAt:         d.UpdatedAt,
	}
}

// AuthorityErrorsFromEntity mapea los registros de error.
func AuthorityErrorsFromEntity(records []*entity.AuthorityErrorRecord) []AuthorityErrorResponse {
	out := make([]AuthorityErrorResponse, 0, len(records))
	for _, r := range records {
		out = append(out, AuthorityErrorResponse{
			ID:             r.ID,
			Operation:      r.Operation,
			Code:           r.Code,
			Message:        r.Message,
			AdditionalInfo: r.AdditionalInfo,
			OccurredAt:     r.OccurredAt,
		})
	}
	return out
}

// CreateEmissionPointRequest body para POST /api/emission-points.
type CreateEmissionPointRequest struct {
	EstablishmentCode string `json:"establishment_code"` // 3 dígitos
	Code              string `json:"code"`               // 3 dígitos
	Name              string `json:"name,omitempty"`
}

// EmissionPointResponse punto de emisión con el último secuencial por tipo.
type EmissionPointResponse struct {
	ID                string           `json:"id"`
	EstablishmentCode string           `json:"establishment_code"`
	Code              string           `json:"code"`
	Name              string           `json:"name,omitempty"`
	IsActive          bool             `json:"is_active"`
	Counters          map[string]int64 `json:"counters,omitempty"`
}

// EmissionPointFromEntity mapea el punto de emisión.
func EmissionPointFromEntity(p *entity.EmissionPoint) EmissionPointResponse {
	out := EmissionPointResponse{
		ID:                p.ID,
		EstablishmentCode: p.EstablishmentCode,
		Code:              p.Code,
		Name:              p.Name,
		IsActive:          p.IsActive,
	}
	if len(p.Counters) > 0 {
		out.Counters = make(map[string]int64, len(p.Counters))
		for t, c := range p.Counters {
			out.Counters[string(t)] = c.Value
		}
	}
	return out
}

// CreateTenantRequest datos de alta de un contribuyente emisor.
type CreateTenantRequest struct {
	Name string `json:"name"`
	RUC  string `json:"ruc"`
}
