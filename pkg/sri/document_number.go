package sri

import (
	"fmt"
	"strconv"
	"strings"
)

// MaxSequence es el mayor secuencial representable en 9 dígitos.
const MaxSequence int64 = 999_999_999

// FormatDocumentNumber devuelve el número de comprobante EEE-PPP-NNNNNNNNN.
func FormatDocumentNumber(establishmentCode, emissionPointCode string, sequence int64) (string, error) {
	if err := requireDigits("establecimiento", establishmentCode, 3); err != nil {
		return "", err
	}
	if err := requireDigits("punto de emisión", emissionPointCode, 3); err != nil {
		return "", err
	}
	if sequence <= 0 || sequence > MaxSequence {
		return "", fmt.Errorf("sri: secuencial fuera de rango: %d", sequence)
	}
	return fmt.Sprintf("%s-%s-%09d", establishmentCode, emissionPointCode, sequence), nil
}

// ParseDocumentNumber descompone un número EEE-PPP-NNNNNNNNN.
func ParseDocumentNumber(number string) (establishmentCode, emissionPointCode string, sequence int64, err error) {
	parts := strings.Split(number, "-")
	if len(parts) != 3 {
		return "", "", 0, fmt.Errorf("sri: número de comprobante con formato inválido %q", number)
	}
	if err := requireDigits("establecimiento", parts[0], 3); err != nil {
		return "", "", 0, err
	}
	if err := requireDigits("punto de emisión", parts[1], 3); err != nil {
		return "", "", 0, err
	}
	if err := requireDigits("secuencial", parts[2], 9); err != nil {
		return "", "", 0, err
	}
	seq, _ := strconv.ParseInt(parts[2], 10, 64)
	return parts[0], parts[1], seq, nil
}
