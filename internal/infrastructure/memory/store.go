// Package memory es el doble de pruebas de los repositorios fiscales: misma
// disciplina de versiones que PostgreSQL, sin base de datos.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/jhoicas/Comprobantes-api/internal/application/billing"
	"github.com/jhoicas/Comprobantes-api/internal/domain"
	"github.com/jhoicas/Comprobantes-api/internal/domain/entity"
	"github.com/jhoicas/Comprobantes-api/internal/domain/repository"
)

var (
	_ billing.FiscalTxRunner              = (*TxRunner)(nil)
	_ repository.EmissionPointRepository  = (*EmissionPointRepo)(nil)
	_ repository.FiscalDocumentRepository = (*FiscalDocumentRepo)(nil)
	_ repository.AuthorityErrorRepository = (*AuthorityErrorRepo)(nil)
	_ repository.TenantRepository         = (*TenantRepo)(nil)
)

type counterKey struct {
	pointID string
	docType entity.DocumentType
}

// newCounterKey copia los strings que quedan retenidos como clave del mapa.
func newCounterKey(pointID string, docType entity.DocumentType) counterKey {
	return counterKey{
		pointID: strings.Clone(pointID),
		docType: entity.DocumentType(strings.Clone(string(docType))),
	}
}

// Store estado compartido de todos los repos en memoria.
// txMu serializa las transacciones para que el rollback sea exacto; mu protege los mapas.
type Store struct {
	txMu     sync.Mutex
	mu       sync.Mutex
	tenants  map[string]entity.Tenant
	points   map[string]entity.EmissionPoint
	counters map[counterKey]entity.SequenceCounter
	docs     map[string]entity.FiscalDocument
	errors   []entity.AuthorityErrorRecord
}

// NewStore crea un store vacío.
func NewStore() *Store {
	return &Store{
		tenants:  make(map[string]entity.Tenant),
		points:   make(map[string]entity.EmissionPoint),
		counters: make(map[counterKey]entity.SequenceCounter),
		docs:     make(map[string]entity.FiscalDocument),
	}
}

// undoLog registra cómo deshacer las escrituras de una transacción; nil fuera de una.
type undoLog struct {
	steps []func()
}

func (u *undoLog) add(step func()) {
	if u != nil {
		u.steps = append(u.steps, step)
	}
}

// TxRunner ejecuta fn con repos cuyas escrituras se deshacen si fn falla.
type TxRunner struct {
	store *Store
}

// NewTxRunner construye el runner.
func NewTxRunner(store *Store) *TxRunner { return &TxRunner{store: store} }

// RunFiscal ver billing.FiscalTxRunner.
func (r *TxRunner) RunFiscal(ctx context.Context, fn func(
	pointRepo repository.EmissionPointRepository,
	docRepo repository.FiscalDocumentRepository,
	errorRepo repository.AuthorityErrorRepository,
) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.store.txMu.Lock()
	defer r.store.txMu.Unlock()

	log := &undoLog{}
	err := fn(
		&EmissionPointRepo{store: r.store, undo: log},
		&FiscalDocumentRepo{store: r.store, undo: log},
		&AuthorityErrorRepo{store: r.store, undo: log},
	)
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		r.store.mu.Lock()
		for i := len(log.steps) - 1; i >= 0; i-- {
			log.steps[i]()
		}
		r.store.mu.Unlock()
		return err
	}
	return nil
}

// ── Tenants ───────────────────────────────────────────────────────────────────

// TenantRepo repositorio de tenants.
type TenantRepo struct{ store *Store }

// NewTenantRepository construye el repo.
func NewTenantRepository(store *Store) *TenantRepo { return &TenantRepo{store: store} }

func (r *TenantRepo) Create(_ context.Context, t *entity.Tenant) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.tenants[t.ID]; ok {
		return domain.NewError(domain.ErrConflict, "tenant %s ya existe", t.ID)
	}
	for _, existing := range r.store.tenants {
		if existing.RUC == t.RUC {
			return domain.NewError(domain.ErrConflict, "RUC %s ya registrado", t.RUC)
		}
	}
	stored := *t
	stored.ID = strings.Clone(t.ID)
	stored.RUC = strings.Clone(t.RUC)
	r.store.tenants[stored.ID] = stored
	return nil
}

func (r *TenantRepo) GetByID(_ context.Context, id string) (*entity.Tenant, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	t, ok := r.store.tenants[id]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

// ── Puntos de emisión y contadores ────────────────────────────────────────────

// EmissionPointRepo repositorio de puntos de emisión.
type EmissionPointRepo struct {
	store *Store
	undo  *undoLog
}

// NewEmissionPointRepository construye el repo fuera de transacción.
func NewEmissionPointRepository(store *Store) *EmissionPointRepo {
	return &EmissionPointRepo{store: store}
}

func (r *EmissionPointRepo) Create(_ context.Context, p *entity.EmissionPoint) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, existing := range r.store.points {
		if existing.TenantID == p.TenantID && existing.EstablishmentCode == p.EstablishmentCode && existing.Code == p.Code {
			return domain.NewError(domain.ErrConflict, "punto %s-%s ya existe", p.EstablishmentCode, p.Code)
		}
	}
	stored := *p
	stored.ID = strings.Clone(p.ID)
	stored.TenantID = strings.Clone(p.TenantID)
	stored.Counters = nil
	r.store.points[stored.ID] = stored
	for t, c := range p.Counters {
		key := newCounterKey(stored.ID, t)
		r.store.counters[key] = entity.SequenceCounter{DocumentType: key.docType, Value: c.Value, Version: c.Version}
	}
	return nil
}

func (r *EmissionPointRepo) GetByID(_ context.Context, id string) (*entity.EmissionPoint, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	p, ok := r.store.points[id]
	if !ok {
		return nil, nil
	}
	return r.store.withCounters(p), nil
}

func (r *EmissionPointRepo) ListByTenant(_ context.Context, tenantID string) ([]*entity.EmissionPoint, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var list []*entity.EmissionPoint
	for _, p := range r.store.points {
		if p.TenantID == tenantID {
			list = append(list, r.store.withCounters(p))
		}
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].EstablishmentCode+list[i].Code < list[j].EstablishmentCode+list[j].Code
	})
	return list, nil
}

func (r *EmissionPointRepo) GetCounter(_ context.Context, pointID string, docType entity.DocumentType) (entity.SequenceCounter, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if c, ok := r.store.counters[counterKey{pointID, docType}]; ok {
		return c, nil
	}
	return entity.SequenceCounter{DocumentType: docType}, nil
}

func (r *EmissionPointRepo) CompareAndSwapCounter(_ context.Context, pointID string, docType entity.DocumentType, expectedVersion, newValue int64) (bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	key := newCounterKey(pointID, docType)
	prev, existed := r.store.counters[key]
	if prev.Version != expectedVersion {
		return false, nil
	}
	r.store.counters[key] = entity.SequenceCounter{DocumentType: key.docType, Value: newValue, Version: expectedVersion + 1}
	r.undo.add(func() {
		if existed {
			r.store.counters[key] = prev
		} else {
			delete(r.store.counters, key)
		}
	})
	return true, nil
}

func (s *Store) withCounters(p entity.EmissionPoint) *entity.EmissionPoint {
	p.Counters = make(map[entity.DocumentType]entity.SequenceCounter)
	for k, c := range s.counters {
		if k.pointID == p.ID {
			p.Counters[k.docType] = c
		}
	}
	return &p
}

// ── Documentos ────────────────────────────────────────────────────────────────

// FiscalDocumentRepo repositorio de comprobantes.
type FiscalDocumentRepo struct {
	store *Store
	undo  *undoLog
}

// NewFiscalDocumentRepository construye el repo fuera de transacción.
func NewFiscalDocumentRepository(store *Store) *FiscalDocumentRepo {
	return &FiscalDocumentRepo{store: store}
}

func (r *FiscalDocumentRepo) Create(_ context.Context, doc *entity.FiscalDocument) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.docs[doc.ID]; ok {
		return domain.NewError(domain.ErrConflict, "documento %s ya existe", doc.ID)
	}
	for _, d := range r.store.docs {
		if d.EmissionPointID == doc.EmissionPointID && d.DocumentType == doc.DocumentType && d.Sequence == doc.Sequence {
			return domain.NewError(domain.ErrConflict, "secuencial %s duplicado", doc.DocumentNumber)
		}
	}
	stored := ownedDocument(doc)
	r.store.docs[stored.ID] = stored
	r.undo.add(func() { delete(r.store.docs, stored.ID) })
	return nil
}

// ownedDocument copia el documento con sus identificadores fuera de cualquier
// buffer del llamador.
func ownedDocument(doc *entity.FiscalDocument) entity.FiscalDocument {
	stored := *doc.Clone()
	stored.ID = strings.Clone(doc.ID)
	stored.TenantID = strings.Clone(doc.TenantID)
	stored.EmissionPointID = strings.Clone(doc.EmissionPointID)
	stored.DocumentType = entity.DocumentType(strings.Clone(string(doc.DocumentType)))
	stored.Status = entity.DocumentStatus(strings.Clone(string(doc.Status)))
	stored.AccessKey = strings.Clone(doc.AccessKey)
	return stored
}

func (r *FiscalDocumentRepo) GetByID(_ context.Context, id string) (*entity.FiscalDocument, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	d, ok := r.store.docs[id]
	if !ok {
		return nil, nil
	}
	return d.Clone(), nil
}

func (r *FiscalDocumentRepo) Update(_ context.Context, doc *entity.FiscalDocument) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	prev, ok := r.store.docs[doc.ID]
	if !ok || prev.Version != doc.Version {
		return domain.ErrConflict
	}
	if doc.AccessKey != "" && doc.AccessKey != prev.AccessKey {
		for _, d := range r.store.docs {
			if d.ID != doc.ID && d.AccessKey == doc.AccessKey {
				return domain.NewError(domain.ErrConflict, "clave de acceso duplicada")
			}
		}
	}
	doc.Version++
	stored := ownedDocument(doc)
	r.store.docs[prev.ID] = stored
	r.undo.add(func() {
		// un repo fuera de transacción pudo escribir después
		if cur := r.store.docs[prev.ID]; cur.Version == stored.Version {
			r.store.docs[prev.ID] = prev
		}
	})
	return nil
}

func (r *FiscalDocumentRepo) ListByStatus(_ context.Context, tenantID string, status entity.DocumentStatus, limit int) ([]*entity.FiscalDocument, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var list []*entity.FiscalDocument
	for _, d := range r.store.docs {
		if d.TenantID == tenantID && d.Status == status {
			list = append(list, d.Clone())
		}
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].ID < list[j].ID
		}
		return list[i].CreatedAt.Before(list[j].CreatedAt)
	})
	if limit > 0 && len(list) > limit {
		list = list[:limit]
	}
	return list, nil
}

// ── Errores del SRI ───────────────────────────────────────────────────────────

// AuthorityErrorRepo repositorio de errores del SRI (solo inserción).
type AuthorityErrorRepo struct {
	store *Store
	undo  *undoLog
}

// NewAuthorityErrorRepository construye el repo fuera de transacción.
func NewAuthorityErrorRepository(store *Store) *AuthorityErrorRepo {
	return &AuthorityErrorRepo{store: store}
}

func (r *AuthorityErrorRepo) CreateBatch(_ context.Context, records []*entity.AuthorityErrorRecord) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	inserted := make(map[string]struct{}, len(records))
	for _, rec := range records {
		stored := *rec
		stored.ID = strings.Clone(rec.ID)
		stored.TenantID = strings.Clone(rec.TenantID)
		stored.DocumentID = strings.Clone(rec.DocumentID)
		r.store.errors = append(r.store.errors, stored)
		inserted[stored.ID] = struct{}{}
	}
	r.undo.add(func() {
		kept := r.store.errors[:0]
		for _, rec := range r.store.errors {
			if _, ok := inserted[rec.ID]; !ok {
				kept = append(kept, rec)
			}
		}
		r.store.errors = kept
	})
	return nil
}

func (r *AuthorityErrorRepo) ListByDocument(_ context.Context, tenantID, documentID string) ([]*entity.AuthorityErrorRecord, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var list []*entity.AuthorityErrorRecord
	for i := range r.store.errors {
		rec := r.store.errors[i]
		if rec.TenantID == tenantID && rec.DocumentID == documentID {
			list = append(list, &rec)
		}
	}
	return list, nil
}
