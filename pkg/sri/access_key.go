// Package sri: construcción y validación de la clave de acceso (49 dígitos).
//
// Estructura (Ficha Técnica, Tabla 1):
//
//	ddmmaaaa | tipo comprobante (2) | RUC (13) | ambiente (1) | serie (6) |
//	secuencial (9) | código numérico (8) | tipo emisión (1) | dígito verificador (1)

package sri

import (
	"fmt"
	"strconv"
	"time"
	"unicode"
)

// AccessKeyLength longitud fija de la clave de acceso.
const AccessKeyLength = 49

// AccessKeyParams datos necesarios para construir la clave de acceso.
type AccessKeyParams struct {
	IssueDate         time.Time
	DocCode           string // 01, 04, 05, 07
	RUC               string // 13 dígitos
	Environment       string // 1 | 2
	EstablishmentCode string // 3 dígitos
	EmissionPointCode string // 3 dígitos
	Sequence          int64
	NumericCode       string // 8 dígitos
	EmissionType      string // vacío = normal
}

// BuildAccessKey arma los 48 dígitos base y agrega el dígito verificador módulo 11.
func BuildAccessKey(p AccessKeyParams) (string, error) {
	if p.IssueDate.IsZero() {
		return "", fmt.Errorf("sri: fecha de emisión obligatoria")
	}
	if err := requireDigits("tipo de comprobante", p.DocCode, 2); err != nil {
		return "", err
	}
	if err := requireDigits("RUC", p.RUC, 13); err != nil {
		return "", err
	}
	if p.Environment != EnvironmentTest && p.Environment != EnvironmentProduction {
		return "", fmt.Errorf("sri: ambiente inválido %q", p.Environment)
	}
	if err := requireDigits("establecimiento", p.EstablishmentCode, 3); err != nil {
		return "", err
	}
	if err := requireDigits("punto de emisión", p.EmissionPointCode, 3); err != nil {
		return "", err
	}
	if p.Sequence <= 0 || p.Sequence > MaxSequence {
		return "", fmt.Errorf("sri: secuencial fuera de rango: %d", p.Sequence)
	}
	if err := requireDigits("código numérico", p.NumericCode, 8); err != nil {
		return "", err
	}
	emissionType := p.EmissionType
	if emissionType == "" {
		emissionType = EmissionTypeNormal
	}

	base := p.IssueDate.Format("02012006") +
		p.DocCode +
		p.RUC +
		p.Environment +
		p.EstablishmentCode + p.EmissionPointCode +
		fmt.Sprintf("%09d", p.Sequence) +
		p.NumericCode +
		emissionType

	return base + strconv.Itoa(Mod11CheckDigit(base)), nil
}

// ValidateAccessKey verifica longitud, que sean solo dígitos y el dígito verificador.
func ValidateAccessKey(key string) error {
	if len(key) != AccessKeyLength {
		return fmt.Errorf("sri: la clave de acceso debe tener %d dígitos, tiene %d", AccessKeyLength, len(key))
	}
	for _, r := range key {
		if !unicode.IsDigit(r) {
			return fmt.Errorf("sri: la clave de acceso solo admite dígitos")
		}
	}
	expected := Mod11CheckDigit(key[:AccessKeyLength-1])
	if got := int(key[AccessKeyLength-1] - '0'); got != expected {
		return fmt.Errorf("sri: dígito verificador inválido: esperado %d, recibido %d", expected, got)
	}
	return nil
}

// Mod11CheckDigit calcula el dígito verificador módulo 11 con factores 2..7
// aplicados de derecha a izquierda. Resultado 11 → 0, resultado 10 → 1.
func Mod11CheckDigit(digits string) int {
	factor := 2
	sum := 0
	for i := len(digits) - 1; i >= 0; i-- {
		sum += int(digits[i]-'0') * factor
		factor++
		if factor > 7 {
			factor = 2
		}
	}
	dv := 11 - sum%11
	switch dv {
	case 11:
		return 0
	case 10:
		return 1
	default:
		return dv
	}
}

func requireDigits(field, s string, n int) error {
	if len(s) != n {
		return fmt.Errorf("sri: %s debe tener %d dígitos", field, n)
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return fmt.Errorf("sri: %s solo admite dígitos", field)
		}
	}
	return nil
}
