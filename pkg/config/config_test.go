package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromViper_Defaults(t *testing.T) {
	cfg, err := fromViper(viper.New())
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.App.Env)
	assert.Equal(t, "1", cfg.SRI.Environment)
	assert.Equal(t, sriReceptionURLPruebas, cfg.SRI.ReceptionURL)
	assert.Equal(t, sriAuthorizationURLPruebas, cfg.SRI.AuthorizationURL)
	assert.Equal(t, 60*time.Second, cfg.SRI.Timeout)
	assert.Equal(t, "fs", cfg.Artifact.Backend)
	assert.Equal(t, 5, cfg.Sequence.MaxAttempts)
	assert.Equal(t, "0.0.0.0:8080", cfg.HTTP.Addr())
}

func TestFromViper_ProduccionCambiaURLs(t *testing.T) {
	v := viper.New()
	v.Set("SRI_ENVIRONMENT", "2")
	v.Set("SEQUENCE_MAX_ATTEMPTS", "8")

	cfg, err := fromViper(v)
	require.NoError(t, err)
	assert.Equal(t, sriReceptionURLProd, cfg.SRI.ReceptionURL)
	assert.Equal(t, sriAuthorizationURLProd, cfg.SRI.AuthorizationURL)
	assert.Equal(t, 8, cfg.Sequence.MaxAttempts)
}

func TestFromViper_AmbienteInvalido(t *testing.T) {
	v := viper.New()
	v.Set("SRI_ENVIRONMENT", "3")
	_, err := fromViper(v)
	assert.Error(t, err)
}

func TestFromViper_GCSSinBucket(t *testing.T) {
	v := viper.New()
	v.Set("ARTIFACT_BACKEND", "gcs")
	_, err := fromViper(v)
	assert.Error(t, err, "gcs sin bucket debe fallar")
}

func TestDBConfig_DSNEscapaPassword(t *testing.T) {
	c := DBConfig{Host: "db", Port: 5432, User: "app", Password: "p@ss:w/rd", DBName: "comprobantes", SSLMode: "disable"}
	assert.Equal(t, "postgres://app:p%40ss%3Aw%2Frd@db:5432/comprobantes?sslmode=disable", c.ConnectionString())
}
