package sri

import "fmt"

// coeficientes del dígito verificador según el tercer dígito del RUC.
var (
	privateRUCWeights = [9]int{4, 3, 2, 7, 6, 5, 4, 3, 2}
	publicRUCWeights  = [8]int{3, 2, 7, 6, 5, 4, 3, 2}
)

// ValidateRUC valida estructura y dígito verificador de un RUC ecuatoriano de 13 dígitos.
// Tercer dígito 0-5: persona natural (cédula, módulo 10). 6: sector público (módulo 11, 9 dígitos).
// 9: sociedad privada (módulo 11, 10 dígitos).
func ValidateRUC(ruc string) error {
	if err := requireDigits("RUC", ruc, 13); err != nil {
		return err
	}
	province := int(ruc[0]-'0')*10 + int(ruc[1]-'0')
	if (province < 1 || province > 24) && province != 30 {
		return fmt.Errorf("sri: código de provincia %02d inválido en RUC", province)
	}

	third := ruc[2] - '0'
	switch {
	case third < 6:
		if ruc[10:] == "000" {
			return fmt.Errorf("sri: RUC con establecimiento 000")
		}
		if got, want := ruc[9]-'0', cedulaCheckDigit(ruc[:9]); int(got) != want {
			return fmt.Errorf("sri: dígito verificador del RUC inválido: esperado %d, recibido %d", want, got)
		}
	case third == 6:
		if ruc[9:] == "0000" {
			return fmt.Errorf("sri: RUC público con establecimiento 0000")
		}
		if got, want := ruc[8]-'0', weightedMod11(ruc[:8], publicRUCWeights[:]); int(got) != want {
			return fmt.Errorf("sri: dígito verificador del RUC inválido: esperado %d, recibido %d", want, got)
		}
	case third == 9:
		if ruc[10:] == "000" {
			return fmt.Errorf("sri: RUC con establecimiento 000")
		}
		if got, want := ruc[9]-'0', weightedMod11(ruc[:9], privateRUCWeights[:]); int(got) != want {
			return fmt.Errorf("sri: dígito verificador del RUC inválido: esperado %d, recibido %d", want, got)
		}
	default:
		return fmt.Errorf("sri: tercer dígito %d inválido en RUC", third)
	}
	return nil
}

func cedulaCheckDigit(base string) int {
	var sum int
	for i := 0; i < len(base); i++ {
		d := int(base[i] - '0')
		if i%2 == 0 {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
	}
	return (10 - sum%10) % 10
}

func weightedMod11(base string, weights []int) int {
	var sum int
	for i := 0; i < len(base); i++ {
		sum += int(base[i]-'0') * weights[i]
	}
	r := sum % 11
	if r == 0 {
		return 0
	}
	return 11 - r
}
