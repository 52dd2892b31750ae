package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func isolateHome(t *testing.T) string {
	t.Helper()
	os.Clearenv()
	home := t.TempDir()
	t.Setenv("HOME", home)
	return home
}

func TestConfig_Struct(t *testing.T) {
	config := Config{
		Environment: "test",
		LogLevel:    "debug",
		Server: ServerConfig{
			Port:           8080,
			AllowedOrigins: []string{"http://localhost:3000"},
		},
		Database: DatabaseConfig{
			Driver:     "postgres",
			Host:       "localhost",
			Port:       5432,
			DBName:     "test_db",
			SQLitePath: "data/test.db",
		},
		Redis: RedisConfig{
			Enabled: true,
			Host:    "localhost",
			Port:    6379,
		},
		Evaluation: EvaluationConfig{
			DefaultSizeUSD:        500,
			CalibrationWindowDays: 14,
		},
	}

	assert.Equal(t, "test", config.Environment)
	assert.Equal(t, "debug", config.LogLevel)
	assert.Equal(t, 8080, config.Server.Port)
	assert.Equal(t, "postgres", config.Database.Driver)
	assert.Equal(t, "test_db", config.Database.DBName)
	assert.True(t, config.Redis.Enabled)
	assert.Equal(t, 500.0, config.Evaluation.DefaultSizeUSD)
	assert.Equal(t, 14, config.Evaluation.CalibrationWindowDays)
}

func TestLoad_WithDefaults(t *testing.T) {
	isolateHome(t)

	config, err := Load()
	require.NoError(t, err)
	require.NotNil(t, config)

	assert.Equal(t, "development", config.Environment)
	assert.Equal(t, "info", config.LogLevel)
	assert.Equal(t, 8080, config.Server.Port)
	assert.Equal(t, []string{"http://localhost:3000"}, config.Server.AllowedOrigins)
	assert.Equal(t, "sqlite", config.Database.Driver)
	assert.Equal(t, "neuratrade-eval.db", config.Database.SQLitePath)
	assert.Equal(t, 5432, config.Database.Port)
	assert.Equal(t, "300s", config.Database.ConnMaxLifetime)
	assert.False(t, config.Redis.Enabled)
	assert.Equal(t, 6379, config.Redis.Port)
	assert.False(t, config.Sentry.Enabled)

	ev := config.Evaluation
	assert.Equal(t, 1000.0, ev.DefaultSizeUSD)
	assert.Equal(t, 0.7, ev.HighConfidenceThreshold)
	assert.Equal(t, 30, ev.DefaultBacktestDays)
	assert.Equal(t, "legacy", ev.HoldMode)
	assert.Equal(t, 30, ev.CalibrationWindowDays)
	assert.Equal(t, 10, ev.MinCalibrationEvents)
	assert.Equal(t, 7, ev.MaxCalibrationAgeDays)
	assert.Equal(t, 0.5, ev.OpportunityThreshold)
	assert.Equal(t, 0.5, ev.MinConfidenceForEvaluation)
	assert.Equal(t, 1.0, ev.HoldPenaltyWeight)
	assert.Equal(t, 0.5, ev.CloseTooEarlyThreshold)
	assert.Equal(t, 1.0, ev.ClosePenaltyWeight)
}

func TestLoad_WithEnvironmentVariables(t *testing.T) {
	isolateHome(t)

	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("SERVER_PORT", "9000")
	t.Setenv("DATABASE_DRIVER", "postgres")
	t.Setenv("DATABASE_HOST", "prod-db.example.com")
	t.Setenv("DATABASE_PORT", "5433")
	t.Setenv("REDIS_ENABLED", "true")
	t.Setenv("REDIS_HOST", "prod-redis.example.com")
	t.Setenv("REDIS_PORT", "6380")
	t.Setenv("EVALUATION_DEFAULT_SIZE_USD", "250")
	t.Setenv("EVALUATION_HOLD_MODE", "dual")
	t.Setenv("EVALUATION_MAX_CALIBRATION_AGE_DAYS", "3")

	config, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "production", config.Environment)
	assert.Equal(t, "error", config.LogLevel)
	assert.Equal(t, 9000, config.Server.Port)
	assert.Equal(t, "postgres", config.Database.Driver)
	assert.Equal(t, "prod-db.example.com", config.Database.Host)
	assert.Equal(t, 5433, config.Database.Port)
	assert.True(t, config.Redis.Enabled)
	assert.Equal(t, "prod-redis.example.com", config.Redis.Host)
	assert.Equal(t, 6380, config.Redis.Port)
	assert.Equal(t, 250.0, config.Evaluation.DefaultSizeUSD)
	assert.Equal(t, "dual", config.Evaluation.HoldMode)
	assert.Equal(t, 3, config.Evaluation.MaxCalibrationAgeDays)
}

func TestLoad_LegacySQLitePathVariable(t *testing.T) {
	isolateHome(t)
	t.Setenv("SQLITE_PATH", "/tmp/neuratrade-eval-test.db")

	config, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/neuratrade-eval-test.db", config.Database.SQLitePath)
}

func TestLoad_WithInvalidDatabaseDriver(t *testing.T) {
	isolateHome(t)
	t.Setenv("DATABASE_DRIVER", "mysql")

	config, err := Load()
	assert.Nil(t, config)
	assert.ErrorContains(t, err, "database.driver must be one of")
}

func TestLoad_SQLiteDriverRejectsWhitespacePath(t *testing.T) {
	isolateHome(t)
	t.Setenv("DATABASE_DRIVER", "sqlite")
	t.Setenv("SQLITE_PATH", "   ")

	config, err := Load()
	assert.Nil(t, config)
	assert.ErrorContains(t, err, "database.sqlite_path is required")
}

func TestLoad_InvalidEvaluationSettings(t *testing.T) {
	tests := map[string]struct {
		key, value, want string
	}{
		"hold mode":       {"EVALUATION_HOLD_MODE", "aggressive", "evaluation.hold_mode must be one of"},
		"threshold":       {"EVALUATION_HIGH_CONFIDENCE_THRESHOLD", "1.5", "high_confidence_threshold"},
		"size":            {"EVALUATION_DEFAULT_SIZE_USD", "0", "default_size_usd"},
		"min events":      {"EVALUATION_MIN_CALIBRATION_EVENTS", "0", "min_calibration_events"},
		"calibration age": {"EVALUATION_MAX_CALIBRATION_AGE_DAYS", "-1", "max_calibration_age_days"},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			isolateHome(t)
			t.Setenv(tt.key, tt.value)

			config, err := Load()
			assert.Nil(t, config)
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestLoad_UserConfigJSON(t *testing.T) {
	home := isolateHome(t)

	dir := filepath.Join(home, ConfigDirName)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	content := `{
		"database": {"driver": "postgres", "host": "file-host", "port": 5433},
		"evaluation": {"calibration_window_days": 60}
	}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"), []byte(content), 0o644))

	config, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "file-host", config.Database.Host)
	assert.Equal(t, 5433, config.Database.Port)
	assert.Equal(t, 60, config.Evaluation.CalibrationWindowDays)
}

func TestLoad_EnvTakesPrecedenceOverFile(t *testing.T) {
	home := isolateHome(t)

	dir := filepath.Join(home, ConfigDirName)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("database:\n  host: file-host\n"), 0o644))

	t.Setenv("DATABASE_HOST", "env-host")
	config, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "env-host", config.Database.Host)
}

func TestLoadFrom_ExplicitFile(t *testing.T) {
	isolateHome(t)

	path := filepath.Join(t.TempDir(), "eval.yaml")
	require.NoError(t, os.WriteFile(path, []byte("evaluation:\n  default_size_usd: 42\n"), 0o644))

	config, err := LoadFrom(path)
	require.NoError(t, err)
	assert.Equal(t, 42.0, config.Evaluation.DefaultSizeUSD)

	_, err = LoadFrom(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "failed to read config file")
}
