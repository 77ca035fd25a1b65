package billing

import (
	"context"

	"github.com/jhoicas/Comprobantes-api/internal/domain/entity"
	"github.com/jhoicas/Comprobantes-api/internal/domain/fiscal"
	"github.com/jhoicas/Comprobantes-api/internal/domain/repository"
)

// FiscalTxRunner ejecuta una función dentro de una transacción con los repos fiscales.
// Si fn retorna error se hace rollback: ni el contador ni el documento quedan escritos.
type FiscalTxRunner interface {
	RunFiscal(ctx context.Context, fn func(
		pointRepo repository.EmissionPointRepository,
		docRepo repository.FiscalDocumentRepository,
		errorRepo repository.AuthorityErrorRepository,
	) error) error
}

// AuthorityClient cliente de los web services del SRI.
// Un error retornado significa que el SRI no fue alcanzable (transporte);
// los errores que el SRI sí devuelve viajan dentro de la respuesta.
type AuthorityClient interface {
	Submit(ctx context.Context, signedXML []byte) (*fiscal.SubmitResponse, error)
	CheckAuthorization(ctx context.Context, accessKey string) (*fiscal.AuthorizationResponse, error)
}

// ArtifactStore almacén externo del XML firmado. Este servicio nunca interpreta su contenido.
type ArtifactStore interface {
	Exists(ctx context.Context, ref string) (bool, error)
	Read(ctx context.Context, ref string) ([]byte, error)
}

// RIDEGenerator genera la representación impresa (RIDE) de un comprobante autorizado.
type RIDEGenerator interface {
	GenerateRIDE(ctx context.Context, doc *entity.FiscalDocument, tenant *entity.Tenant, point *entity.EmissionPoint) ([]byte, error)
}
