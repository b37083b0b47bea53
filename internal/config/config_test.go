package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		App:     AppConfig{Environment: "development"},
		Logger:  LoggerConfig{Level: "info"},
		Data:    DataConfig{Path: "/some/path"},
		GitHub:  GitHubConfig{RequestsPerSecond: 1, Burst: 5},
		Webhook: WebhookConfig{RatePerMinute: 60, Burst: 10},
	}
}

func TestValidate_ValidConfig(t *testing.T) {
	assert.NoError(t, validConfig().Validate())
}

func TestValidate_AllEnvironments(t *testing.T) {
	tests := []struct {
		env   string
		valid bool
	}{
		{"development", true},
		{"staging", true},
		{"production", true},
		{"test", false},
		{"", false},
		{"DEVELOPMENT", false}, // case sensitive
	}

	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			cfg := validConfig()
			cfg.App.Environment = tt.env

			err := cfg.Validate()
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestValidate_AllLogLevels(t *testing.T) {
	tests := []struct {
		level string
		valid bool
	}{
		{"debug", true},
		{"info", true},
		{"warn", true},
		{"error", true},
		{"DEBUG", true},  // case insensitive
		{"trace", false}, // not supported
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			cfg := validConfig()
			cfg.Logger.Level = tt.level

			err := cfg.Validate()
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestValidate_Limits(t *testing.T) {
	cfg := validConfig()
	cfg.Data.Path = ""
	assert.ErrorContains(t, cfg.Validate(), "data path cannot be empty")

	cfg = validConfig()
	cfg.GitHub.RequestsPerSecond = 0
	assert.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.Webhook.Burst = 0
	assert.Error(t, cfg.Validate())
}

func TestExpandDataPath(t *testing.T) {
	homeDir, err := os.UserHomeDir()
	require.NoError(t, err)

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty uses default", "", filepath.Join(homeDir, ".addons-server")},
		{"tilde", "~/my-data", filepath.Join(homeDir, "my-data")},
		{"absolute", "/absolute/path/to/data", "/absolute/path/to/data"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Data: DataConfig{Path: tt.in}}
			require.NoError(t, cfg.expandDataPath())
			assert.Equal(t, tt.want, cfg.Data.Path)
		})
	}

	t.Run("relative", func(t *testing.T) {
		cfg := &Config{Data: DataConfig{Path: "relative/path"}}
		require.NoError(t, cfg.expandDataPath())
		assert.True(t, filepath.IsAbs(cfg.Data.Path))
		assert.Contains(t, cfg.Data.Path, "relative/path")
	})
}

func TestDataConfig_Paths(t *testing.T) {
	d := DataConfig{Path: "/srv/addons"}
	assert.Equal(t, "/srv/addons/addons.db", d.DatabasePath())
	assert.Equal(t, "/srv/addons/search", d.SearchPath())
}

func TestLoad_Defaults(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("DATA_PATH", dir)

	cfg, err := Load([]string{"-env-file", filepath.Join(dir, "missing.env")})
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.App.Environment)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, []string{"*"}, cfg.Server.CORSOrigins)
	assert.Equal(t, "https://api.github.com", cfg.GitHub.APIURL)
	assert.InDelta(t, 1.0, cfg.GitHub.RequestsPerSecond, 0.0001)
	assert.Equal(t, 60, cfg.Webhook.RatePerMinute)
	assert.Equal(t, dir, cfg.Data.Path)
}

func TestLoad_FlagsOverrideEnv(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("DATA_PATH", dir)
	t.Setenv("SERVER_PORT", "9000")
	t.Setenv("GITHUB_TOKEN", "from-env")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example")

	cfg, err := Load([]string{
		"-env-file", filepath.Join(dir, "missing.env"),
		"-port", "9100",
		"-webhook-rate", "5",
	})
	require.NoError(t, err)

	assert.Equal(t, "9100", cfg.Server.Port)
	assert.Equal(t, "from-env", cfg.GitHub.Token)
	assert.Equal(t, 5, cfg.Webhook.RatePerMinute)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.CORSOrigins)
}

func TestLoad_InvalidTimeout(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("DATA_PATH", dir)
	t.Setenv("SERVER_READ_TIMEOUT", "soon")

	_, err := Load([]string{"-env-file", filepath.Join(dir, "missing.env")})
	assert.ErrorContains(t, err, "SERVER_READ_TIMEOUT")
}

func TestGetConfigValue_Precedence(t *testing.T) {
	assert.Equal(t, "flag-value", getConfigValue("flag-value", "TEST_ENV_KEY", "default-value"))

	t.Setenv("TEST_ENV_KEY", "env-value")
	assert.Equal(t, "env-value", getConfigValue("", "TEST_ENV_KEY", "default-value"))

	assert.Equal(t, "default-value", getConfigValue("", "NONEXISTENT_KEY", "default-value"))
}

func TestGetIntConfigValue_InvalidFallsBack(t *testing.T) {
	t.Setenv("TEST_INT_KEY", "many")
	assert.Equal(t, 7, getIntConfigValue("", "TEST_INT_KEY", 7))
	assert.Equal(t, 3, getIntConfigValue("3", "TEST_INT_KEY", 7))
}

func TestLoadEnvFile_ValidFile(t *testing.T) {
	envFile := filepath.Join(t.TempDir(), ".env")

	content := `# Test env file
ENV=staging
LOG_LEVEL=debug
# Comment line
QUOTED_VALUE="some value"
SINGLE_QUOTED='another value'
`
	require.NoError(t, os.WriteFile(envFile, []byte(content), 0o644))

	// t.Setenv registers cleanup; unset so the file can fill them.
	for _, key := range []string{"ENV", "LOG_LEVEL", "QUOTED_VALUE", "SINGLE_QUOTED"} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}

	require.NoError(t, loadEnvFile(envFile))

	assert.Equal(t, "staging", os.Getenv("ENV"))
	assert.Equal(t, "debug", os.Getenv("LOG_LEVEL"))
	assert.Equal(t, "some value", os.Getenv("QUOTED_VALUE"))
	assert.Equal(t, "another value", os.Getenv("SINGLE_QUOTED"))
}

func TestLoadEnvFile_InvalidFormat(t *testing.T) {
	envFile := filepath.Join(t.TempDir(), ".env")

	content := `VALID_KEY=valid_value
INVALID LINE WITHOUT EQUALS
`
	require.NoError(t, os.WriteFile(envFile, []byte(content), 0o644))
	t.Setenv("VALID_KEY", "preset")

	err := loadEnvFile(envFile)
	assert.ErrorContains(t, err, "invalid format")
}

func TestLoadEnvFile_NonExistentFile(t *testing.T) {
	assert.Error(t, loadEnvFile("/nonexistent/file/.env"))
}

func TestLoadEnvFile_ExistingEnvVarsNotOverwritten(t *testing.T) {
	t.Setenv("TEST_VAR", "original-value")

	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte(`TEST_VAR=new-value`), 0o644))

	require.NoError(t, loadEnvFile(envFile))
	assert.Equal(t, "original-value", os.Getenv("TEST_VAR"))
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, splitList(" a , ,b "))
	assert.Nil(t, splitList(""))
}
