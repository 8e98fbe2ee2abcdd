package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/docvault/docnode/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	path := writeConfig(t, `
server:
  node_id: node-1
`)

	cfg, err := config.LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "node-1", cfg.Server.NodeID)
	assert.Equal(t, "sqlite3", cfg.Database.Driver)
	assert.Equal(t, "local", cfg.Files.Backend)
	assert.Equal(t, 1*time.Minute, cfg.Sweeper.Interval)
	assert.Equal(t, 10*time.Minute, cfg.Sweeper.GracePeriod)
	assert.Equal(t, 100, cfg.Sweeper.BatchLimit)
	assert.Equal(t, 72*time.Hour, cfg.Sweeper.Retention)
	assert.Equal(t, 9104, cfg.Metrics.Port)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
}

func TestLoadConfig_Full(t *testing.T) {
	path := writeConfig(t, `
server:
  node_id: node-2
database:
  driver: postgres
  dsn: postgres://docnode@localhost/docnode?sslmode=disable
files:
  backend: s3
  s3:
    endpoint: minio:9000
    bucket: sections
    access_key_id: key
    secret_access_key: secret
sweeper:
  interval: 30s
  grace_period: 5m
  batch_limit: 50
  retention: 24h
metrics:
  enabled: true
  port: 9200
`)

	cfg, err := config.LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "s3", cfg.Files.Backend)
	assert.Equal(t, "sections", cfg.Files.S3.Bucket)
	assert.Equal(t, 30*time.Second, cfg.Sweeper.Interval)
	assert.Equal(t, 5*time.Minute, cfg.Sweeper.GracePeriod)
	assert.Equal(t, 50, cfg.Sweeper.BatchLimit)
	assert.Equal(t, 24*time.Hour, cfg.Sweeper.Retention)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, 9200, cfg.Metrics.Port)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("DOCNODE_DB_DSN", "postgres://override@db/docnode")
	t.Setenv("DOCNODE_S3_ACCESS_KEY", "env-key")
	t.Setenv("DOCNODE_S3_SECRET_KEY", "env-secret")

	path := writeConfig(t, `
server:
  node_id: node-1
database:
  driver: postgres
  dsn: postgres://file@db/docnode
files:
  backend: s3
  s3:
    endpoint: minio:9000
    bucket: sections
`)

	cfg, err := config.LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "postgres://override@db/docnode", cfg.Database.DSN)
	assert.Equal(t, "env-key", cfg.Files.S3.AccessKeyID)
	assert.Equal(t, "env-secret", cfg.Files.S3.SecretAccessKey)
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{
			name:    "missing node id",
			content: "server: {}\n",
		},
		{
			name: "unknown database driver",
			content: `
server:
  node_id: node-1
database:
  driver: oracle
  dsn: something
`,
		},
		{
			name: "unknown file backend",
			content: `
server:
  node_id: node-1
files:
  backend: ftp
`,
		},
		{
			name: "s3 backend without bucket",
			content: `
server:
  node_id: node-1
files:
  backend: s3
`,
		},
		{
			name: "grace period too short",
			content: `
server:
  node_id: node-1
sweeper:
  grace_period: 10ms
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, tt.content)
			_, err := config.LoadConfig(path)
			require.Error(t, err)
		})
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := config.LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}
