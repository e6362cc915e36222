package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var productionBase = map[string]string{
	"MADRASA_APP_ENV":           "production",
	"MADRASA_JWT_SECRET":        "this-is-a-very-secure-jwt-secret-key-32chars",
	"MADRASA_DATABASE_PASSWORD": "secure-password",
	"MADRASA_DATABASE_SSLMODE":  "require",
}

func setEnv(t *testing.T, values map[string]string) {
	t.Helper()
	for k, v := range values {
		t.Setenv(k, v)
	}
}

func TestLoad(t *testing.T) {
	t.Run("loads default values when env vars not set", func(t *testing.T) {
		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "madrasa-backend", cfg.App.Name)
		assert.Equal(t, "development", cfg.App.Env)
		assert.Equal(t, "8080", cfg.App.Port)
		assert.Equal(t, "localhost", cfg.Database.Host)
		assert.Equal(t, 5432, cfg.Database.Port)
		assert.Equal(t, "madrasa", cfg.Database.DBName)
		assert.Equal(t, 25, cfg.Database.MaxOpenConns)
		assert.Equal(t, "localhost:6379", cfg.Redis.Addr())
		assert.Equal(t, 15*time.Minute, cfg.JWT.AccessTokenExpiration)
		assert.Equal(t, "info", cfg.Log.Level)
		assert.Equal(t, "0 0 1 * *", cfg.Scheduler.MonthlyDues)
		assert.Equal(t, "0 1 * * *", cfg.Scheduler.AnnualDues)
		assert.Equal(t, "0 9 * * *", cfg.Scheduler.FeeReminders)
		assert.Equal(t, "* * * * *", cfg.Scheduler.EmailDispatch)
		assert.Equal(t, "Asia/Qatar", cfg.Scheduler.Location().String())
		assert.Equal(t, 15*time.Minute, cfg.Storage.PresignExpiration)
		assert.Equal(t, 30*time.Second, cfg.Printing.RenderTimeout)
	})

	t.Run("loads values from environment variables with MADRASA prefix", func(t *testing.T) {
		setEnv(t, map[string]string{
			"MADRASA_APP_PORT":             "9090",
			"MADRASA_DATABASE_HOST":        "db.internal",
			"MADRASA_DATABASE_PORT":        "5433",
			"MADRASA_REDIS_HOST":           "cache.internal",
			"MADRASA_LOG_LEVEL":            "debug",
			"MADRASA_MAIL_SENDGRID_KEY":    "SG.key",
			"MADRASA_MAIL_FROM_EMAIL":      "office@example.org",
			"MADRASA_STORAGE_BUCKET":       "madrasa-docs",
			"MADRASA_SCHEDULER_ENABLED":    "true",
			"MADRASA_SCHEDULER_LOCK_TTL":   "2h",
			"MADRASA_PRINTING_CHROME_PATH": "/usr/bin/chromium",
		})

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "9090", cfg.App.Port)
		assert.Equal(t, "db.internal", cfg.Database.Host)
		assert.Equal(t, 5433, cfg.Database.Port)
		assert.Equal(t, "cache.internal:6379", cfg.Redis.Addr())
		assert.Equal(t, "debug", cfg.Log.Level)
		assert.Equal(t, "SG.key", cfg.Mail.SendGridKey)
		assert.Equal(t, "office@example.org", cfg.Mail.FromEmail)
		assert.Equal(t, "madrasa-docs", cfg.Storage.Bucket)
		assert.True(t, cfg.Scheduler.Enabled)
		assert.Equal(t, 2*time.Hour, cfg.Scheduler.LockTTL)
		assert.Equal(t, "/usr/bin/chromium", cfg.Printing.ChromePath)
	})

	t.Run("validates MaxIdleConns cannot exceed MaxOpenConns", func(t *testing.T) {
		t.Setenv("MADRASA_DATABASE_MAX_OPEN_CONNS", "5")
		t.Setenv("MADRASA_DATABASE_MAX_IDLE_CONNS", "10")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "max_idle_conns (10) cannot exceed")
	})

	t.Run("rejects unknown log level", func(t *testing.T) {
		t.Setenv("MADRASA_LOG_LEVEL", "verbose")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "log.level")
	})

	t.Run("rejects unknown scheduler timezone", func(t *testing.T) {
		t.Setenv("MADRASA_SCHEDULER_TIMEZONE", "Mars/Olympus")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "scheduler.timezone")
	})
}

func TestLoad_ProductionValidation(t *testing.T) {
	tests := []struct {
		name     string
		override map[string]string
		wantErr  string
	}{
		{
			name:     "requires long jwt.secret",
			override: map[string]string{"MADRASA_JWT_SECRET": "short-secret"},
			wantErr:  "jwt.secret must be at least 32 characters",
		},
		{
			name:     "requires database.password",
			override: map[string]string{"MADRASA_DATABASE_PASSWORD": ""},
			wantErr:  "database.password is required in production",
		},
		{
			name:     "requires SSL",
			override: map[string]string{"MADRASA_DATABASE_SSLMODE": "disable"},
			wantErr:  "database.sslmode cannot be 'disable'",
		},
		{
			name:     "rejects full SQL logging",
			override: map[string]string{"MADRASA_TELEMETRY_DB_LOG_FULL_SQL": "true"},
			wantErr:  "db_log_full_sql",
		},
		{
			name:     "requires sender when sendgrid is enabled",
			override: map[string]string{"MADRASA_MAIL_SENDGRID_KEY": "SG.key"},
			wantErr:  "mail.from_email",
		},
		{
			name: "passes with valid production config",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setEnv(t, productionBase)
			setEnv(t, tt.override)

			cfg, err := Load()
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.True(t, cfg.IsProduction())
		})
	}
}

func TestDatabaseConfig_DSN(t *testing.T) {
	t.Run("generates valid DSN", func(t *testing.T) {
		cfg := DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "testuser",
			Password: "testpass",
			DBName:   "testdb",
			SSLMode:  "disable",
		}

		dsn := cfg.DSN()
		assert.Contains(t, dsn, "localhost:5432")
		assert.Contains(t, dsn, "testuser")
		assert.Contains(t, dsn, "testdb")
		assert.Contains(t, dsn, "sslmode=disable")
	})

	t.Run("escapes special characters in password", func(t *testing.T) {
		cfg := DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "user",
			Password: "pass@word#123",
			DBName:   "db",
			SSLMode:  "disable",
		}

		assert.Contains(t, cfg.DSN(), "pass%40word%23123")
	})
}
