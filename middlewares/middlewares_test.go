package middlewares

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redismock/v8"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func okHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func TestRateLimit(t *testing.T) {
	logger, _ := test.NewNullLogger()
	client, mock := redismock.NewClientMock()

	r := gin.New()
	r.Use(RateLimit(client, time.Minute, 2, logger))
	r.GET("/ping", okHandler)

	key := rateLimitKeyPrefix + "192.0.2.1"
	tt := []struct {
		desc          string
		count         int64
		expStatusCode int
		expRemaining  string
	}{
		{desc: "first visit", count: 1, expStatusCode: http.StatusOK, expRemaining: "1"},
		{desc: "last allowed visit", count: 2, expStatusCode: http.StatusOK, expRemaining: "0"},
		{desc: "over the limit", count: 3, expStatusCode: http.StatusTooManyRequests, expRemaining: "0"},
	}

	for _, tc := range tt {
		t.Run(tc.desc, func(t *testing.T) {
			mock.ExpectSetNX(key, 0, time.Minute).SetVal(tc.count == 1)
			mock.ExpectIncr(key).SetVal(tc.count)
			mock.ExpectTTL(key).SetVal(42 * time.Second)

			req := httptest.NewRequest(http.MethodGet, "/ping", nil)
			req.RemoteAddr = "192.0.2.1:1234"
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)

			assert.Equal(t, tc.expStatusCode, rec.Code)
			assert.Equal(t, tc.expRemaining, rec.Header().Get("X-RateLimit-Remaining"))
			assert.Equal(t, "42", rec.Header().Get("X-RateLimit-Reset"))
		})
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRateLimitRedisDown(t *testing.T) {
	logger, hook := test.NewNullLogger()
	client, mock := redismock.NewClientMock()

	r := gin.New()
	r.Use(RateLimit(client, time.Minute, 2, logger))
	r.GET("/ping", okHandler)

	mock.ExpectSetNX(rateLimitKeyPrefix+"192.0.2.1", 0, time.Minute).SetErr(errors.New("connection refused"))

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.RemoteAddr = "192.0.2.1:1234"
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
}

func TestLogger(t *testing.T) {
	logger, hook := test.NewNullLogger()

	r := gin.New()
	r.Use(Logger(logger))
	r.GET("/ok", okHandler)
	r.GET("/api/:shortId", func(c *gin.Context) {
		c.JSON(http.StatusGone, gin.H{"error": "link not found"})
	})
	r.GET("/boom", func(c *gin.Context) {
		_ = c.Error(errors.New("store down"))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	})

	tt := []struct {
		path     string
		expLevel logrus.Level
		expRoute string
		expMsg   string
	}{
		{path: "/ok", expLevel: logrus.InfoLevel, expRoute: "/ok", expMsg: "GET /ok"},
		{path: "/api/abc", expLevel: logrus.WarnLevel, expRoute: "/api/:shortId", expMsg: "GET /api/:shortId"},
		{path: "/boom", expLevel: logrus.ErrorLevel, expRoute: "/boom", expMsg: "GET /boom"},
		{path: "/nowhere", expLevel: logrus.WarnLevel, expRoute: "unmatched", expMsg: "GET unmatched"},
	}

	for _, tc := range tt {
		t.Run(tc.path, func(t *testing.T) {
			r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, tc.path, nil))
			entry := hook.LastEntry()
			require.NotNil(t, entry)
			assert.Equal(t, tc.expLevel, entry.Level)
			assert.Equal(t, tc.expMsg, entry.Message)
			assert.Equal(t, tc.expRoute, entry.Data["route"])
			assert.Equal(t, tc.path, entry.Data["path"])
			assert.Equal(t, "http", entry.Data["module"])
		})
	}

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/abc", nil))
	assert.Equal(t, "abc", hook.LastEntry().Data["shortId"])

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, "store down", hook.LastEntry().Data["error"])
}

func TestCORS(t *testing.T) {
	tt := []struct {
		desc      string
		origins   []string
		reqOrigin string
		expAllow  string
	}{
		{desc: "wildcard", origins: []string{"*"}, reqOrigin: "https://any.example", expAllow: "*"},
		{desc: "listed origin", origins: []string{"https://app.example"}, reqOrigin: "https://app.example", expAllow: "https://app.example"},
		{desc: "unlisted origin", origins: []string{"https://app.example"}, reqOrigin: "https://evil.example", expAllow: ""},
	}

	for _, tc := range tt {
		t.Run(tc.desc, func(t *testing.T) {
			r := gin.New()
			r.Use(CORS(tc.origins))
			r.GET("/ping", okHandler)

			req := httptest.NewRequest(http.MethodGet, "/ping", nil)
			req.Header.Set("Origin", tc.reqOrigin)
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)

			assert.Equal(t, tc.expAllow, rec.Header().Get("Access-Control-Allow-Origin"))
		})
	}
}
