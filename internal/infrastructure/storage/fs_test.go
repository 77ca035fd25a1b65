package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	gcs "cloud.google.com/go/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"

	"github.com/jhoicas/Comprobantes-api/internal/domain"
	"github.com/jhoicas/Comprobantes-api/pkg/config"
)

func TestFSStore_ExistsYRead(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "tenant-1"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tenant-1", "doc.xml"), []byte("<factura/>"), 0o600))

	s, err := NewFSStore(dir)
	require.NoError(t, err)
	ctx := context.Background()

	ok, err := s.Exists(ctx, "tenant-1/doc.xml")
	require.NoError(t, err)
	assert.True(t, ok)

	data, err := s.Read(ctx, "tenant-1/doc.xml")
	require.NoError(t, err)
	assert.Equal(t, "<factura/>", string(data))

	ok, err = s.Exists(ctx, "tenant-1/otro.xml")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = s.Exists(ctx, "tenant-1")
	require.NoError(t, err)
	assert.False(t, ok, "un directorio no es un artefacto")

	_, err = s.Read(ctx, "tenant-1/otro.xml")
	assert.ErrorIs(t, err, domain.ErrPreconditionFailed)
}

func TestFSStore_RechazaRutasFueraDeRaiz(t *testing.T) {
	s, err := NewFSStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	for _, ref := range []string{"", "../secreto.xml", "/etc/passwd", "a/../../b.xml"} {
		_, err := s.Exists(ctx, ref)
		assert.ErrorIs(t, err, domain.ErrInvalidInput, ref)
	}
	ok, err := s.Exists(ctx, "a/../b.xml")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGCS_ObjectNameEIsNotExist(t *testing.T) {
	name, err := objectName("/tenant-1/doc.xml")
	require.NoError(t, err)
	assert.Equal(t, "tenant-1/doc.xml", name)

	_, err = objectName("../x")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	assert.True(t, isNotExist(gcs.ErrObjectNotExist))
	assert.True(t, isNotExist(&googleapi.Error{Code: 404}))
	assert.False(t, isNotExist(&googleapi.Error{Code: 403}))
	assert.False(t, isNotExist(errors.New("x")))
	assert.False(t, isNotExist(nil))
}

func TestNew_SeleccionaBackend(t *testing.T) {
	s, closeFn, err := New(context.Background(), config.ArtifactConfig{Backend: "fs", Dir: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &FSStore{}, s)
	assert.NoError(t, closeFn())

	_, _, err = New(context.Background(), config.ArtifactConfig{Backend: "s3"})
	assert.Error(t, err)

	_, _, err = New(context.Background(), config.ArtifactConfig{Backend: "gcs"})
	assert.Error(t, err, "gcs sin bucket")
}
