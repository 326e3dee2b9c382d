package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Yapcheekian/shortlink/config"
	"github.com/Yapcheekian/shortlink/handlers"
	"github.com/Yapcheekian/shortlink/middlewares"
	"github.com/Yapcheekian/shortlink/services"
	"github.com/Yapcheekian/shortlink/store"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

func main() {
	configPath := flag.String("config", config.DefaultPath(), "path to the yaml config")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logrus.WithError(err).Fatal("load config failed")
	}
	logger := config.NewLogger(cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	st, err := openStore(ctx, cfg.DB)
	cancel()
	if err != nil {
		logger.WithError(err).Fatal("open store failed")
	}
	defer st.Close()

	svc, err := services.NewLinkService(st, cfg.SnowflakeNode, cfg.DefaultExpiresIn, logger)
	if err != nil {
		logger.WithError(err).Fatal("create link service failed")
	}

	var rClient *redis.Client
	if cfg.Redis.Enabled() {
		rClient = redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr()})
		if cmd := rClient.Ping(context.Background()); cmd.Err() != nil {
			logger.WithError(cmd.Err()).Fatal("redis ping failed")
		}
		defer rClient.Close()
	}

	svr := http.Server{
		Addr:    cfg.AppPort,
		Handler: newRouter(cfg, svc, rClient, logger),
	}

	go func() {
		logger.Infof("listening on %s", cfg.AppPort)
		if err := svr.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("Fail to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	// Relay incoming SIGTERM, SIGINT to quit
	signal.Notify(quit, syscall.SIGTERM, os.Interrupt)
	<-quit
	logger.Info("Shutting down server...")

	// The context is used to inform the application it has 30 seconds to finish
	// cleaning up remaining resources
	ctx, cancel = context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := svr.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("Server forced to shutdown")
	}
}

func openStore(ctx context.Context, c config.DBConfig) (store.LinkStore, error) {
	switch c.Driver {
	case config.DBDriverPostgres:
		return store.ConnectPostgres(ctx, c.DSN())
	case config.DBDriverSQLite:
		return store.OpenSQLite(c.SQLitePath)
	case config.DBDriverMySQL:
		return store.OpenMySQL(c.MySQLDSN())
	default:
		return nil, errors.Errorf("unsupported driver %q", c.Driver)
	}
}

func newRouter(cfg *config.Config, svc handlers.LinkService, rClient *redis.Client, logger *logrus.Logger) *gin.Engine {
	gin.SetMode(cfg.GinMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middlewares.Logger(logger))
	r.Use(middlewares.CORS(cfg.AllowOrigins))
	if rClient != nil {
		r.Use(middlewares.RateLimit(rClient, cfg.Limits.Window, cfg.Limits.MaxVisit, logger))
	}

	handlers.NewShortenerHandler(r.Group("/"), svc, cfg.BaseURL)
	return r
}
