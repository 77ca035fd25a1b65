// Package storage implementa los almacenes del XML firmado (sistema de archivos y GCS).
package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/jhoicas/Comprobantes-api/internal/application/billing"
	"github.com/jhoicas/Comprobantes-api/internal/domain"
	"github.com/jhoicas/Comprobantes-api/pkg/config"
)

var _ billing.ArtifactStore = (*FSStore)(nil)

// FSStore lee artefactos bajo un directorio raíz. Las referencias son rutas relativas a la raíz.
type FSStore struct {
	root string
}

// NewFSStore crea el almacén sobre dir.
func NewFSStore(dir string) (*FSStore, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("storage: ruta de artefactos inválida: %w", err)
	}
	return &FSStore{root: abs}, nil
}

// resolve rechaza referencias absolutas o que escapan de la raíz.
func (s *FSStore) resolve(ref string) (string, error) {
	if ref == "" || filepath.IsAbs(ref) || strings.HasPrefix(ref, "/") {
		return "", domain.NewError(domain.ErrInvalidInput, "referencia de artefacto inválida: %s", ref)
	}
	clean := filepath.Clean(filepath.FromSlash(ref))
	if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", domain.NewError(domain.ErrInvalidInput, "referencia de artefacto fuera del directorio: %s", ref)
	}
	return filepath.Join(s.root, clean), nil
}

func (s *FSStore) Exists(_ context.Context, ref string) (bool, error) {
	path, err := s.resolve(ref)
	if err != nil {
		return false, err
	}
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("storage: stat %s: %w", ref, err)
	}
	return !info.IsDir(), nil
}

func (s *FSStore) Read(_ context.Context, ref string) ([]byte, error) {
	path, err := s.resolve(ref)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, domain.NewError(domain.ErrPreconditionFailed, "el artefacto firmado no existe: %s", ref)
	}
	if err != nil {
		return nil, fmt.Errorf("storage: leer %s: %w", ref, err)
	}
	return data, nil
}

// New abre el almacén según ARTIFACT_BACKEND. close libera los recursos del backend.
func New(ctx context.Context, cfg config.ArtifactConfig) (billing.ArtifactStore, func() error, error) {
	switch cfg.Backend {
	case "gcs":
		s, err := NewGCSStore(ctx, cfg.Bucket)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	case "fs", "":
		s, err := NewFSStore(cfg.Dir)
		if err != nil {
			return nil, nil, err
		}
		return s, func() error { return nil }, nil
	}
	return nil, nil, fmt.Errorf("storage: backend desconocido %q", cfg.Backend)
}
