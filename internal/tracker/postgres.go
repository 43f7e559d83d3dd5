package tracker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// ProcessedThread is a row of the processed_threads table
type ProcessedThread struct {
	ID        uint      `gorm:"primaryKey"`
	Link      string    `gorm:"size:512;not null;uniqueIndex"`
	CreatedAt time.Time
}

func (ProcessedThread) TableName() string {
	return "processed_threads"
}

// Postgres keeps processed links in a table
type Postgres struct {
	logger zerolog.Logger
	db     *gorm.DB
}

func NewPostgres(ctx context.Context, log zerolog.Logger, dsn string) (*Postgres, error) {
	if dsn == "" {
		return nil, errors.New("postgres tracker needs DATABASE_URL")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get underlying sql db: %w", err)
	}
	sqlDB.SetMaxOpenConns(5)
	sqlDB.SetMaxIdleConns(2)

	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("database ping: %w", err)
	}
	if err := db.WithContext(ctx).AutoMigrate(&ProcessedThread{}); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("migrate processed_threads: %w", err)
	}

	log.Debug().Msg("postgres tracker connected")
	return &Postgres{logger: log, db: db}, nil
}

func (p *Postgres) HasProcessed(ctx context.Context, link string) (bool, error) {
	var n int64
	err := p.db.WithContext(ctx).
		Model(&ProcessedThread{}).
		Where("link = ?", link).
		Count(&n).Error
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (p *Postgres) MarkProcessed(ctx context.Context, link string) error {
	return p.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "link"}}, DoNothing: true}).
		Create(&ProcessedThread{Link: link}).Error
}

func (p *Postgres) Close() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
