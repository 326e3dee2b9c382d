package store

import (
	"context"

	"github.com/Yapcheekian/shortlink/models"
	"github.com/pkg/errors"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// GormStore keeps links through gorm. It backs the sqlite and mysql drivers.
type GormStore struct {
	db *gorm.DB
}

// OpenSQLite opens the database at path (":memory:" works) and migrates the links table.
func OpenSQLite(path string) (*GormStore, error) {
	// sqlite allows one writer, and every ":memory:" connection is its own database.
	st, err := openGorm(sqlite.Open(path), 1)
	if err != nil {
		return nil, errors.Wrapf(err, "open sqlite %s", path)
	}
	return st, nil
}

// OpenMySQL connects with a go-sql-driver DSN and migrates the links table.
func OpenMySQL(dsn string) (*GormStore, error) {
	st, err := openGorm(mysql.Open(dsn), 0)
	if err != nil {
		return nil, errors.Wrap(err, "open mysql")
	}
	return st, nil
}

// openGorm caps the pool at maxOpen connections when maxOpen > 0.
func openGorm(dialector gorm.Dialector, maxOpen int) (*GormStore, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	if maxOpen > 0 {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(maxOpen)
	}
	if err := db.AutoMigrate(&models.Link{}); err != nil {
		return nil, errors.Wrap(err, "migrate links")
	}
	return &GormStore{db: db}, nil
}

func (s *GormStore) Create(ctx context.Context, link *models.Link) error {
	if err := s.db.WithContext(ctx).Create(link).Error; err != nil {
		return errors.Wrapf(err, "insert link %s", link.ShortID)
	}
	return nil
}

func (s *GormStore) List(ctx context.Context) ([]models.Link, error) {
	links := []models.Link{}
	if err := s.db.WithContext(ctx).Order("created_at DESC").Order("id DESC").Find(&links).Error; err != nil {
		return nil, errors.Wrap(err, "list links")
	}
	return links, nil
}

func (s *GormStore) FindByShortID(ctx context.Context, shortID string) (*models.Link, error) {
	var link models.Link
	err := s.db.WithContext(ctx).Where("short_id = ?", shortID).First(&link).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "find link %s", shortID)
	}
	return &link, nil
}

func (s *GormStore) IncrementClicks(ctx context.Context, shortID string) (int64, error) {
	var clicks int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Link{}).
			Where("short_id = ?", shortID).
			UpdateColumn("clicks", gorm.Expr("clicks + ?", 1))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return tx.Model(&models.Link{}).Where("short_id = ?", shortID).Pluck("clicks", &clicks).Error
	})
	if errors.Is(err, ErrNotFound) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, errors.Wrapf(err, "increment clicks %s", shortID)
	}
	return clicks, nil
}

func (s *GormStore) Delete(ctx context.Context, shortID string) error {
	res := s.db.WithContext(ctx).Where("short_id = ?", shortID).Delete(&models.Link{})
	if res.Error != nil {
		return errors.Wrapf(res.Error, "delete link %s", shortID)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
