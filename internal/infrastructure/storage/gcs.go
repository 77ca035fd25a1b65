package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"

	"github.com/jhoicas/Comprobantes-api/internal/application/billing"
	"github.com/jhoicas/Comprobantes-api/internal/domain"
)

var _ billing.ArtifactStore = (*GCSStore)(nil)

const maxArtifactSize = 10 << 20

// GCSStore lee artefactos de un bucket de Cloud Storage. La referencia es el nombre del objeto.
type GCSStore struct {
	client *gcs.Client
	bucket *gcs.BucketHandle
}

// NewGCSStore abre un cliente con las credenciales por defecto del entorno (ADC).
func NewGCSStore(ctx context.Context, bucket string) (*GCSStore, error) {
	if bucket == "" {
		return nil, errors.New("storage: ARTIFACT_BUCKET es obligatorio para el backend gcs")
	}
	client, err := gcs.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("storage: cliente GCS: %w", err)
	}
	return &GCSStore{client: client, bucket: client.Bucket(bucket)}, nil
}

// Close libera el cliente GCS.
func (s *GCSStore) Close() error { return s.client.Close() }

func (s *GCSStore) Exists(ctx context.Context, ref string) (bool, error) {
	name, err := objectName(ref)
	if err != nil {
		return false, err
	}
	_, err = s.bucket.Object(name).Attrs(ctx)
	if isNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("storage: attrs gs://%s: %w", name, err)
	}
	return true, nil
}

func (s *GCSStore) Read(ctx context.Context, ref string) ([]byte, error) {
	name, err := objectName(ref)
	if err != nil {
		return nil, err
	}
	r, err := s.bucket.Object(name).NewReader(ctx)
	if isNotExist(err) {
		return nil, domain.NewError(domain.ErrPreconditionFailed, "el artefacto firmado no existe: %s", ref)
	}
	if err != nil {
		return nil, fmt.Errorf("storage: abrir gs://%s: %w", name, err)
	}
	defer r.Close()

	data, err := io.ReadAll(io.LimitReader(r, maxArtifactSize))
	if err != nil {
		return nil, fmt.Errorf("storage: leer gs://%s: %w", name, err)
	}
	return data, nil
}

func objectName(ref string) (string, error) {
	name := strings.TrimPrefix(ref, "/")
	if name == "" || strings.Contains(name, "..") {
		return "", domain.NewError(domain.ErrInvalidInput, "referencia de artefacto inválida: %s", ref)
	}
	return name, nil
}

func isNotExist(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gcs.ErrObjectNotExist) {
		return true
	}
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == http.StatusNotFound
}
