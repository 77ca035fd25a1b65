package entity

import "time"

// DocumentType tipo de comprobante; cada uno tiene su propio contador por punto de emisión.
type DocumentType string

const (
	DocumentTypeInvoice     DocumentType = "invoice"
	DocumentTypeCreditNote  DocumentType = "credit_note"
	DocumentTypeDebitNote   DocumentType = "debit_note"
	DocumentTypeWithholding DocumentType = "withholding"
)

// DocumentTypes lista los tipos soportados (orden estable).
var DocumentTypes = []DocumentType{
	DocumentTypeInvoice,
	DocumentTypeCreditNote,
	DocumentTypeDebitNote,
	DocumentTypeWithholding,
}

// IsValid indica si t es uno de los cuatro tipos soportados.
func (t DocumentType) IsValid() bool {
	switch t {
	case DocumentTypeInvoice, DocumentTypeCreditNote, DocumentTypeDebitNote, DocumentTypeWithholding:
		return true
	}
	return false
}

// SequenceCounter es el contador de un tipo de comprobante con su marca de versión
// para control de concurrencia optimista.
type SequenceCounter struct {
	DocumentType DocumentType
	Value        int64 // último secuencial emitido (0 = ninguno)
	Version      int64
}

// EmissionPoint punto de emisión de un establecimiento (p. ej. 001-002).
// Posee un contador independiente por tipo de comprobante.
type EmissionPoint struct {
	ID                string
	TenantID          string
	EstablishmentCode string // 3 dígitos
	Code              string // 3 dígitos
	Name              string
	IsActive          bool
	Counters          map[DocumentType]SequenceCounter
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Counter devuelve el contador del tipo dado (valor cero si aún no existe).
func (p *EmissionPoint) Counter(t DocumentType) SequenceCounter {
	if c, ok := p.Counters[t]; ok {
		return c
	}
	return SequenceCounter{DocumentType: t}
}
