package main

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/peacelink/peacelink/internal/app"
	"github.com/peacelink/peacelink/internal/database"
)

func testConfig(t *testing.T) *app.Config {
	t.Helper()

	cfg, err := app.LoadConfig(t.TempDir())
	require.NoError(t, err)
	cfg.Database.Driver = "sqlite"
	cfg.Database.Path = ""
	cfg.Auth.JWT.Secret = "bootstrap-test-secret"
	cfg.Maintenance.Enabled = false
	return cfg
}

func TestBootstrapRuntime(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cfg := testConfig(t)
	stack, err := bootstrapRuntime(cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { stack.Close(zap.NewNop()) })

	require.NotNil(t, stack.DB)
	require.NotNil(t, stack.Router)
	require.Nil(t, stack.Cleaner)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	stack.Router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestConvertDatabaseConfig(t *testing.T) {
	cfg := &app.Config{}
	cfg.Database.Driver = "Postgres"
	cfg.Database.Postgres = app.DBAuthConfig{
		Host: "db.example.com", Port: 5433,
		Database: "peacelink", Username: "svc", Password: "secret",
	}

	dbCfg := convertDatabaseConfig(cfg)
	require.Equal(t, database.Config{
		Driver:   "postgres",
		Host:     "db.example.com",
		Port:     5433,
		Name:     "peacelink",
		User:     "svc",
		Password: "secret",
	}, dbCfg)

	cfg = &app.Config{}
	dbCfg = convertDatabaseConfig(cfg)
	require.Equal(t, "sqlite", dbCfg.Driver)
}
