package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// DocumentStatus estado del comprobante. Un mismo campo sirve a dos ciclos de vida:
// el comercial (Draft, Sent, Paid, Overdue, Cancelled) y el fiscal
// (PendingAuthorization, Authorized, Rejected).
type DocumentStatus string

const (
	StatusDraft                DocumentStatus = "Draft"
	StatusSent                 DocumentStatus = "Sent"
	StatusPaid                 DocumentStatus = "Paid"
	StatusOverdue              DocumentStatus = "Overdue"
	StatusCancelled            DocumentStatus = "Cancelled"
	StatusPendingAuthorization DocumentStatus = "PendingAuthorization"
	StatusAuthorized           DocumentStatus = "Authorized"
	StatusRejected             DocumentStatus = "Rejected"
)

// IsValid indica si s es uno de los ocho estados conocidos.
func (s DocumentStatus) IsValid() bool {
	switch s {
	case StatusDraft, StatusSent, StatusPaid, StatusOverdue, StatusCancelled,
		StatusPendingAuthorization, StatusAuthorized, StatusRejected:
		return true
	}
	return false
}

// FiscalDocument cabecera de un comprobante electrónico (factura, nota de crédito, ...).
type FiscalDocument struct {
	ID                string
	TenantID          string
	EmissionPointID   string
	DocumentType      DocumentType
	Sequence          int64
	DocumentNumber    string // EEE-PPP-NNNNNNNNN
	Status            DocumentStatus
	IssueDate         time.Time
	Total             decimal.Decimal // calculado por el motor de impuestos externo
	AccessKey         string          // clave de acceso (49 dígitos), obligatoria desde PendingAuthorization
	SignedArtifactRef string          // ruta/objeto del XML firmado producido externamente
	SubmittedAt       *time.Time      // recepción RECIBIDA por el SRI
	AuthorizationCode string
	AuthorizedAt      *time.Time
	PaidAt            *time.Time
	Version           int64 // concurrencia optimista en escrituras terminales
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Clone devuelve una copia independiente (los punteros de tiempo también se copian).
func (d *FiscalDocument) Clone() *FiscalDocument {
	if d == nil {
		return nil
	}
	c := *d
	c.SubmittedAt = cloneTime(d.SubmittedAt)
	c.AuthorizedAt = cloneTime(d.AuthorizedAt)
	c.PaidAt = cloneTime(d.PaidAt)
	return &c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
