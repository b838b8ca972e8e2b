package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfig(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
cacheDir: /var/cache/mvnoci
metricsAddress: "127.0.0.1:9464"
repositories:
  - name: corp
    url: https://registry.example.com/team
    namespace: maven
    insecure: false
    auth:
      username: builder
      password: secret
  - url: http://localhost:5000
    insecure: true
`)

	cfg, err := NewLoader().LoadConfig(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	require.Equal(t, "/var/cache/mvnoci", cfg.CacheDir)
	require.Equal(t, "127.0.0.1:9464", cfg.MetricsAddress)
	require.Len(t, cfg.Repositories, 2)

	corp := cfg.Repositories[0]
	require.Equal(t, "corp", corp.Name)
	require.Equal(t, "maven", corp.Namespace)
	require.NotNil(t, corp.Auth)
	require.Equal(t, "builder", corp.Auth.Username)

	local := cfg.Repositories[1]
	require.Equal(t, "localhost", local.Name, "name should default to the URL host")
	require.True(t, local.Insecure)
	require.Nil(t, local.Auth)
}

func TestLoadConfigMissingFile(t *testing.T) {
	t.Parallel()

	_, err := NewLoader().LoadConfig("/nonexistent/config.yaml")
	require.Error(t, err)
}

func TestLoadConfigInvalidYAML(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, "repositories: [unclosed")
	_, err := NewLoader().LoadConfig(path)
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{
			name:    "no repositories",
			cfg:     Config{},
			wantErr: "at least one repository",
		},
		{
			name:    "missing url",
			cfg:     Config{Repositories: []Repository{{Name: "x"}}},
			wantErr: "url is required",
		},
		{
			name: "incomplete auth",
			cfg: Config{Repositories: []Repository{
				{URL: "https://r.example.com", Auth: &Auth{Username: "u"}},
			}},
			wantErr: "auth requires both",
		},
		{
			name: "duplicate names",
			cfg: Config{Repositories: []Repository{
				{URL: "https://r.example.com/a"},
				{URL: "https://r.example.com/b"},
			}},
			wantErr: "duplicate repository name",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.cfg.Validate()
			require.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestEffectiveCacheDir(t *testing.T) {
	t.Parallel()

	cfg := &Config{CacheDir: "/explicit/cache"}
	dir, err := cfg.EffectiveCacheDir()
	require.NoError(t, err)
	require.Equal(t, "/explicit/cache", dir)

	cfg = &Config{}
	dir, err = cfg.EffectiveCacheDir()
	require.NoError(t, err)
	require.Contains(t, dir, "mvnoci")
}
