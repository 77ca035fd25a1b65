// Package sri contiene catálogos y reglas de formato de la Ficha Técnica de
// Comprobantes Electrónicos del SRI (Ecuador), esquema offline.
package sri

// =============================================================================
// Tabla 3 - Tipos de comprobante (dígitos 9-10 de la clave de acceso)
// =============================================================================

const (
	DocCodeInvoice     = "01" // Factura
	DocCodeCreditNote  = "04" // Nota de crédito
	DocCodeDebitNote   = "05" // Nota de débito
	DocCodeWithholding = "07" // Comprobante de retención
)

// =============================================================================
// Tabla 4 - Tipo de ambiente / Tabla 2 - Tipo de emisión
// =============================================================================

const (
	EnvironmentTest       = "1" // Pruebas
	EnvironmentProduction = "2" // Producción

	EmissionTypeNormal = "1"
)

// =============================================================================
// Estados devueltos por los web services
// =============================================================================

const (
	StateReceived       = "RECIBIDA"
	StateReturned       = "DEVUELTA"
	StateAuthorized     = "AUTORIZADO"
	StateNotAuthorized  = "NO AUTORIZADO"
	StateInProcess      = "EN PROCESAMIENTO"
	StateInProcessShort = "PPR"
)
