package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDefaults(t *testing.T) {
	t.Setenv("INGEST_DUMP_PATH", "")
	os.Unsetenv("INGEST_DUMP_PATH")
	t.Setenv("KAFKA_BROKERS", "")
	os.Unsetenv("KAFKA_BROKERS")
	t.Setenv("APP_ENV", "")
	os.Unsetenv("APP_ENV")
	t.Setenv("RECEIVER_DECODE_CODES", "")
	os.Unsetenv("RECEIVER_DECODE_CODES")

	cfg, err := Parse()
	require.NoError(t, err)

	assert.Equal(t, "./jsondumps/echoprint-dump-1.json", cfg.Ingest.DumpPath)
	assert.Equal(t, "http://localhost:37760/ingest", cfg.Ingest.Endpoint)
	assert.Equal(t, "4.12", cfg.Ingest.CodeVersion)
	assert.Zero(t, cfg.Ingest.RequestTimeout)
	assert.Equal(t, ":37760", cfg.Receiver.Addr)
	assert.False(t, cfg.Receiver.DecodeCodes)
	assert.Equal(t, "development", cfg.App.Environment)
	assert.False(t, cfg.Kafka.Enabled())
}

func TestParseOverrides(t *testing.T) {
	t.Setenv("INGEST_ENDPOINT", "http://ingest.internal:8080/ingest")
	t.Setenv("INGEST_REQUEST_TIMEOUT", "5s")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("STORAGE_PROVIDER", "minio")

	cfg, err := Parse()
	require.NoError(t, err)

	assert.Equal(t, "http://ingest.internal:8080/ingest", cfg.Ingest.Endpoint)
	assert.Equal(t, 5*time.Second, cfg.Ingest.RequestTimeout)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.True(t, cfg.Kafka.Enabled())
	assert.Equal(t, "minio", cfg.Storage.Provider)
}

func TestParseRejectsBadDuration(t *testing.T) {
	t.Setenv("INGEST_REQUEST_TIMEOUT", "soon")

	_, err := Parse()
	assert.Error(t, err)
}

func TestLoadReadsDotEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("INGEST_CODE_VERSION=4.11\n"), 0o644))

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	t.Setenv("INGEST_CODE_VERSION", "")
	os.Unsetenv("INGEST_CODE_VERSION")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "4.11", cfg.Ingest.CodeVersion)
	os.Unsetenv("INGEST_CODE_VERSION")
}

func TestLoadWithoutDotEnv(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	_, err = Load()
	assert.NoError(t, err)
}
