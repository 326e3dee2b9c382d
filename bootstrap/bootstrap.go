package main

import (
	"database/sql"
	"flag"

	"github.com/Yapcheekian/shortlink/config"
	_ "github.com/lib/pq"
	migrate "github.com/rubenv/sql-migrate"
	"github.com/sirupsen/logrus"
)

func main() {
	configPath := flag.String("config", config.DefaultPath(), "path to the yaml config")
	dir := flag.String("dir", "./migrations", "migrations directory")
	down := flag.Bool("down", false, "roll back the last migration instead of applying pending ones")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logrus.WithError(err).Fatal("load config failed")
	}
	logger := config.NewLogger(cfg)

	if cfg.DB.Driver != config.DBDriverPostgres {
		logger.Infof("DB_DRIVER is %s, schema is created on startup, nothing to migrate", cfg.DB.Driver)
		return
	}

	db, err := sql.Open("postgres", cfg.DB.DSN())
	if err != nil {
		logger.WithError(err).Fatal("sql.Open failed")
	}
	defer db.Close()

	migrations := &migrate.FileMigrationSource{
		Dir: *dir,
	}

	direction, max := migrate.Up, 0
	if *down {
		direction, max = migrate.Down, 1
	}

	n, err := migrate.ExecMax(db, "postgres", migrations, direction, max)
	if err != nil {
		logger.WithError(err).Fatal("migrate failed")
	}
	logger.Infof("applied %d migrations", n)
}
