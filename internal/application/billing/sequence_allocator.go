package billing

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/jhoicas/Comprobantes-api/internal/domain"
	"github.com/jhoicas/Comprobantes-api/internal/domain/entity"
	"github.com/jhoicas/Comprobantes-api/internal/domain/repository"
	"github.com/jhoicas/Comprobantes-api/pkg/sri"
)

// DefaultMaxAttempts intentos de compare-and-swap antes de reportar contención.
const DefaultMaxAttempts = 5

// Allocation resultado de una asignación de secuencial.
type Allocation struct {
	Point          *entity.EmissionPoint
	DocumentType   entity.DocumentType
	Sequence       int64
	DocumentNumber string
}

// SequenceAllocator emite secuenciales por (punto de emisión, tipo de comprobante)
// con compare-and-swap sobre la versión del contador. No toma locks de fila.
type SequenceAllocator struct {
	maxAttempts int
	log         zerolog.Logger
}

// NewSequenceAllocator construye el asignador. maxAttempts <= 0 usa DefaultMaxAttempts.
func NewSequenceAllocator(maxAttempts int, log zerolog.Logger) *SequenceAllocator {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return &SequenceAllocator{maxAttempts: maxAttempts, log: log}
}

// AllocateNext reserva el siguiente secuencial usando pointRepo, que puede estar atado a la
// transacción del llamador (así el contador y el documento se confirman juntos).
func (a *SequenceAllocator) AllocateNext(
	ctx context.Context,
	pointRepo repository.EmissionPointRepository,
	tenantID, emissionPointID string,
	docType entity.DocumentType,
) (*Allocation, error) {
	if !docType.IsValid() {
		return nil, domain.NewError(domain.ErrInvalidInput, "tipo de comprobante %q no soportado", docType)
	}

	point, err := pointRepo.GetByID(ctx, emissionPointID)
	if err != nil {
		return nil, fmt.Errorf("allocate: obtener punto de emisión: %w", err)
	}
	if point == nil || point.TenantID != tenantID || !point.IsActive {
		return nil, domain.NewError(domain.ErrNotFound, "punto de emisión %s", emissionPointID)
	}

	for attempt := 1; attempt <= a.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		counter, err := pointRepo.GetCounter(ctx, point.ID, docType)
		if err != nil {
			return nil, fmt.Errorf("allocate: leer contador: %w", err)
		}
		next := counter.Value + 1
		if next > sri.MaxSequence {
			return nil, domain.NewError(domain.ErrPreconditionFailed,
				"secuencial agotado en %s-%s para %s", point.EstablishmentCode, point.Code, docType)
		}

		ok, err := pointRepo.CompareAndSwapCounter(ctx, point.ID, docType, counter.Version, next)
		if err != nil {
			return nil, fmt.Errorf("allocate: actualizar contador: %w", err)
		}
		if !ok {
			a.log.Debug().
				Str("emission_point_id", point.ID).
				Str("document_type", string(docType)).
				Int("attempt", attempt).
				Msg("conflicto de versión en contador, reintentando")
			continue
		}

		number, err := sri.FormatDocumentNumber(point.EstablishmentCode, point.Code, next)
		if err != nil {
			return nil, domain.NewError(domain.ErrPreconditionFailed, "%v", err)
		}
		return &Allocation{
			Point:          point,
			DocumentType:   docType,
			Sequence:       next,
			DocumentNumber: number,
		}, nil
	}

	a.log.Warn().
		Str("emission_point_id", point.ID).
		Str("document_type", string(docType)).
		Int("attempts", a.maxAttempts).
		Msg("contención al asignar secuencial")
	return nil, domain.NewError(domain.ErrContention,
		"no se pudo asignar secuencial tras %d intentos", a.maxAttempts)
}

// SequenceUseCase expone AllocateNext en su propia transacción, para comprobantes
// cuyo documento se registra en un flujo externo.
type SequenceUseCase struct {
	txRunner  FiscalTxRunner
	allocator *SequenceAllocator
}

// NewSequenceUseCase construye el caso de uso.
func NewSequenceUseCase(txRunner FiscalTxRunner, allocator *SequenceAllocator) *SequenceUseCase {
	return &SequenceUseCase{txRunner: txRunner, allocator: allocator}
}

// AllocateNext asigna y confirma el siguiente secuencial.
func (uc *SequenceUseCase) AllocateNext(ctx context.Context, tenantID, emissionPointID string, docType entity.DocumentType) (*Allocation, error) {
	var out *Allocation
	err := uc.txRunner.RunFiscal(ctx, func(
		pointRepo repository.EmissionPointRepository,
		_ repository.FiscalDocumentRepository,
		_ repository.AuthorityErrorRepository,
	) error {
		alloc, err := uc.allocator.AllocateNext(ctx, pointRepo, tenantID, emissionPointID, docType)
		if err != nil {
			return err
		}
		out = alloc
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
