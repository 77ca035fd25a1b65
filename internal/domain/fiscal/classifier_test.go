package fiscal_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Comprobantes-api/internal/domain"
	"github.com/jhoicas/Comprobantes-api/internal/domain/entity"
	"github.com/jhoicas/Comprobantes-api/internal/domain/fiscal"
)

func errs(codes ...string) []domain.AuthorityError {
	out := make([]domain.AuthorityError, 0, len(codes))
	for _, c := range codes {
		out = append(out, domain.AuthorityError{Code: c, Message: "mensaje " + c})
	}
	return out
}

func TestClassify_AutorizadoIgnoraCodigosInformativos(t *testing.T) {
	c := fiscal.Classify(entity.OperationCheckAuthorization, fiscal.AuthorizationResponse{
		Authorized:   true,
		StatusPhrase: "AUTORIZADO",
		Errors:       errs("60"),
	})
	assert.Equal(t, fiscal.VerdictAuthorized, c.Verdict)
	assert.Empty(t, c.Errors)
}

func TestClassify_EnProcesamiento(t *testing.T) {
	for _, phrase := range []string{"EN PROCESAMIENTO", "en procesamiento ", "PPR", ""} {
		c := fiscal.Classify(entity.OperationCheckAuthorization, fiscal.AuthorizationResponse{StatusPhrase: phrase})
		assert.Equal(t, fiscal.VerdictStillPending, c.Verdict, "frase %q", phrase)
		assert.Empty(t, c.Errors)
	}
}

func TestClassify_SoloTransitorio(t *testing.T) {
	c := fiscal.Classify(entity.OperationCheckAuthorization, fiscal.AuthorizationResponse{Errors: errs("PARSE_ERROR")})
	assert.Equal(t, fiscal.VerdictStillPending, c.Verdict)
	assert.Empty(t, c.Errors, "ningún registro para errores transitorios")

	c = fiscal.Classify(entity.OperationCheckAuthorization, fiscal.AuthorizationResponse{
		StatusPhrase: "EN PROCESAMIENTO",
		Errors:       errs(fiscal.CodeTimeout, fiscal.CodeHTTPError, fiscal.CodeSOAPFault),
	})
	assert.Equal(t, fiscal.VerdictStillPending, c.Verdict)
}

func TestClassify_RechazoDelSRI(t *testing.T) {
	c := fiscal.Classify(entity.OperationCheckAuthorization, fiscal.AuthorizationResponse{
		StatusPhrase: "NO AUTORIZADO",
		Errors:       errs("035", "043"),
	})
	assert.Equal(t, fiscal.VerdictRejected, c.Verdict)
	require.Len(t, c.Errors, 2)
	assert.Equal(t, entity.OperationCheckAuthorization, c.Operation)
	assert.Equal(t, "035", c.Errors[0].Code)
	assert.Equal(t, "043", c.Errors[1].Code)
}

func TestClassify_UnCodigoRealDomina(t *testing.T) {
	c := fiscal.Classify(entity.OperationSubmit, fiscal.AuthorizationResponse{Errors: errs("PARSE_ERROR", "035")})
	assert.Equal(t, fiscal.VerdictRejected, c.Verdict)
	require.Len(t, c.Errors, 2, "se persisten todos los errores, también el transitorio")
	assert.Equal(t, entity.OperationSubmit, c.Operation)
}

func TestClassify_NoAutorizadoSinMensajes(t *testing.T) {
	c := fiscal.Classify(entity.OperationCheckAuthorization, fiscal.AuthorizationResponse{StatusPhrase: "NO AUTORIZADO"})
	assert.Equal(t, fiscal.VerdictRejected, c.Verdict)
	require.Len(t, c.Errors, 1)
	assert.Equal(t, fiscal.CodeNoMessages, c.Errors[0].Code)
}

func TestClassify_NoComparteSliceDeEntrada(t *testing.T) {
	in := errs("035")
	c := fiscal.Classify(entity.OperationCheckAuthorization, fiscal.AuthorizationResponse{Errors: in})
	c.Errors[0].Code = "999"
	assert.Equal(t, "035", in[0].Code)
}

func TestAllTransient(t *testing.T) {
	assert.False(t, fiscal.AllTransient(nil))
	assert.True(t, fiscal.AllTransient(errs("parse_error", "TIMEOUT")))
	assert.False(t, fiscal.AllTransient(errs("TIMEOUT", "70")))
}
