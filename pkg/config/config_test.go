package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	_, err := Load("/nonexistent/path/rangesse.yaml")
	assert.Error(t, err)

	t.Chdir(t.TempDir())
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "LogSRCi", cfg.Scheme.Name)
	assert.Equal(t, 128, cfg.Scheme.SecParam)
	assert.Equal(t, "hiding", cfg.Scheme.Placement)
	assert.Equal(t, "locality", cfg.Scheme.Index2)
	assert.Equal(t, "ram", cfg.Storage.Backend)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Empty(t, cfg.Metrics.Addr)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.yaml")
	content := `
scheme:
  name: LogSRC
  sec_param: 256
  placement: revealing
storage:
  backend: sqlite
  path: "test.db"
dataset:
  csv: records.csv
log:
  level: debug
metrics:
  addr: ":2112"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "LogSRC", cfg.Scheme.Name)
	assert.Equal(t, 256, cfg.Scheme.SecParam)
	assert.Equal(t, "revealing", cfg.Scheme.Placement)
	assert.Equal(t, "locality", cfg.Scheme.Index2, "unset fields keep defaults")
	assert.Equal(t, "sqlite", cfg.Storage.Backend)
	assert.Equal(t, "test.db", cfg.Storage.Path)
	assert.Equal(t, "records.csv", cfg.Dataset.CSV)
	assert.Equal(t, "id_keyword_ops", cfg.Dataset.Collection)
	assert.Equal(t, ":2112", cfg.Metrics.Addr)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "scheme", content: "scheme:\n  name: ODXT\n"},
		{name: "sec param", content: "scheme:\n  sec_param: 64\n"},
		{name: "backend", content: "storage:\n  backend: s3\n"},
		{name: "mysql dsn", content: "storage:\n  backend: mysql\n"},
		{name: "yaml", content: "scheme: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "bad.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o644))
			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}
