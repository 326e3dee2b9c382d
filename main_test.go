package main

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Yapcheekian/shortlink/config"
	"github.com/Yapcheekian/shortlink/services"
	"github.com/Yapcheekian/shortlink/store"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRouter(t *testing.T) {
	cfg := &config.Config{
		GinMode:          gin.TestMode,
		BaseURL:          "https://sho.rt",
		AllowOrigins:     []string{"https://app.example"},
		DefaultExpiresIn: time.Hour,
		DB:               config.DBConfig{Driver: config.DBDriverSQLite, SQLitePath: ":memory:"},
	}
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	st, err := openStore(context.Background(), cfg.DB)
	require.NoError(t, err)
	defer st.Close()
	require.IsType(t, &store.GormStore{}, st)

	svc, err := services.NewLinkService(st, 1, cfg.DefaultExpiresIn, logger)
	require.NoError(t, err)
	r := newRouter(cfg, svc, nil, logger)

	req := httptest.NewRequest(http.MethodPost, "/api/shorten", strings.NewReader(`{"originalUrl": "https://example.com"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Origin", "https://app.example")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "https://app.example", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Body.String(), `"shortUrl":"https://sho.rt/api/`)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestOpenStoreUnknownDriver(t *testing.T) {
	_, err := openStore(context.Background(), config.DBConfig{Driver: "mongo"})
	assert.Error(t, err)
}
