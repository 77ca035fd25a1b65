package sri_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Comprobantes-api/pkg/sri"
)

// Vector calculado a mano con el algoritmo módulo 11 (factores 2..7 de derecha a izquierda).
const (
	testRUC          = "1790012345001"
	testAccessKey    = "1510202601179001234500110010020000001231234567810"
	testAccessKeyNC  = "1510202604179001234500120010020000000010000000113"
	testNumericCode  = "12345678"
	testNumericCode2 = "00000001"
)

func buildParams() sri.AccessKeyParams {
	return sri.AccessKeyParams{
		IssueDate:         time.Date(2026, 10, 15, 10, 0, 0, 0, time.UTC),
		DocCode:           sri.DocCodeInvoice,
		RUC:               testRUC,
		Environment:       sri.EnvironmentTest,
		EstablishmentCode: "001",
		EmissionPointCode: "002",
		Sequence:          123,
		NumericCode:       testNumericCode,
	}
}

func TestBuildAccessKey_VectorExacto(t *testing.T) {
	key, err := sri.BuildAccessKey(buildParams())
	require.NoError(t, err)
	assert.Equal(t, testAccessKey, key)
	assert.Len(t, key, sri.AccessKeyLength)
}

func TestBuildAccessKey_NotaCreditoProduccion(t *testing.T) {
	p := buildParams()
	p.DocCode = sri.DocCodeCreditNote
	p.Environment = sri.EnvironmentProduction
	p.Sequence = 1
	p.NumericCode = testNumericCode2

	key, err := sri.BuildAccessKey(p)
	require.NoError(t, err)
	assert.Equal(t, testAccessKeyNC, key)
}

func TestBuildAccessKey_Errores(t *testing.T) {
	cases := map[string]func(p *sri.AccessKeyParams){
		"sin fecha":        func(p *sri.AccessKeyParams) { p.IssueDate = time.Time{} },
		"ruc corto":        func(p *sri.AccessKeyParams) { p.RUC = "179001234" },
		"ambiente":         func(p *sri.AccessKeyParams) { p.Environment = "3" },
		"secuencial cero":  func(p *sri.AccessKeyParams) { p.Sequence = 0 },
		"codigo numerico":  func(p *sri.AccessKeyParams) { p.NumericCode = "12AB5678" },
		"establecimiento":  func(p *sri.AccessKeyParams) { p.EstablishmentCode = "1" },
		"secuencial mayor": func(p *sri.AccessKeyParams) { p.Sequence = sri.MaxSequence + 1 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			p := buildParams()
			mutate(&p)
			_, err := sri.BuildAccessKey(p)
			assert.Error(t, err)
		})
	}
}

func TestValidateAccessKey(t *testing.T) {
	assert.NoError(t, sri.ValidateAccessKey(testAccessKey))
	assert.NoError(t, sri.ValidateAccessKey(testAccessKeyNC))

	tampered := testAccessKey[:48] + "7"
	assert.Error(t, sri.ValidateAccessKey(tampered), "dígito verificador alterado")
	assert.Error(t, sri.ValidateAccessKey(testAccessKey[:40]), "longitud")
	assert.Error(t, sri.ValidateAccessKey("A"+testAccessKey[1:]), "solo dígitos")
}

func TestMod11CheckDigit_CasosBorde(t *testing.T) {
	// suma 0 → 11 - 0 = 11 → 0
	assert.Equal(t, 0, sri.Mod11CheckDigit("0000"))
	// "1" con factor 2 → suma 2 → 11 - 2 = 9
	assert.Equal(t, 9, sri.Mod11CheckDigit("1"))
	// "5" con factor 2 → suma 10 → 11 - 10 = 1
	assert.Equal(t, 1, sri.Mod11CheckDigit("5"))
}

func TestFormatDocumentNumber(t *testing.T) {
	n, err := sri.FormatDocumentNumber("001", "002", 123)
	require.NoError(t, err)
	assert.Equal(t, "001-002-000000123", n)

	_, err = sri.FormatDocumentNumber("001", "002", 0)
	assert.Error(t, err)
	_, err = sri.FormatDocumentNumber("01", "002", 1)
	assert.Error(t, err)
}

func TestParseDocumentNumber(t *testing.T) {
	est, pt, seq, err := sri.ParseDocumentNumber("001-002-000000123")
	require.NoError(t, err)
	assert.Equal(t, "001", est)
	assert.Equal(t, "002", pt)
	assert.Equal(t, int64(123), seq)

	_, _, _, err = sri.ParseDocumentNumber("001-002-123")
	assert.Error(t, err)
	_, _, _, err = sri.ParseDocumentNumber("001002000000123")
	assert.Error(t, err)
}

func TestValidateRUC(t *testing.T) {
	for _, ruc := range []string{
		"1790016919001", // sociedad privada
		"1710034065001", // persona natural
		"1760001550001", // sector público
	} {
		assert.NoError(t, sri.ValidateRUC(ruc), ruc)
	}

	cases := map[string]string{
		"corto":                "179001691900",
		"letras":               "17900169190AB",
		"provincia":            "9990016919001",
		"tercer dígito":        "1770016919001",
		"verificador privado":  "1790016918001",
		"verificador natural":  "1710034064001",
		"establecimiento cero": "1790016919000",
	}
	for name, ruc := range cases {
		assert.Error(t, sri.ValidateRUC(ruc), name)
	}
}
