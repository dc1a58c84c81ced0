package postgres

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/rovshanmuradov/curve-engine/internal/storage"
	"github.com/rovshanmuradov/curve-engine/internal/storage/models"
)

// gormLogger adapts zap to gorm's logger.Interface.
type gormLogger struct {
	zapLogger *zap.Logger
	logLevel  logger.LogLevel
}

func newGormLogger(zapLogger *zap.Logger) logger.Interface {
	return &gormLogger{zapLogger: zapLogger, logLevel: logger.Warn}
}

func (l *gormLogger) LogMode(level logger.LogLevel) logger.Interface {
	clone := *l
	clone.logLevel = level
	return &clone
}

func (l *gormLogger) Info(_ context.Context, msg string, data ...interface{}) {
	if l.logLevel >= logger.Info {
		l.zapLogger.Sugar().Infof(msg, data...)
	}
}

func (l *gormLogger) Warn(_ context.Context, msg string, data ...interface{}) {
	if l.logLevel >= logger.Warn {
		l.zapLogger.Sugar().Warnf(msg, data...)
	}
}

func (l *gormLogger) Error(_ context.Context, msg string, data ...interface{}) {
	if l.logLevel >= logger.Error {
		l.zapLogger.Sugar().Errorf(msg, data...)
	}
}

func (l *gormLogger) Trace(_ context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.logLevel <= logger.Silent {
		return
	}
	elapsed := time.Since(begin)
	sql, rows := fc()
	if err != nil {
		l.zapLogger.Error("SQL error",
			zap.String("sql", sql),
			zap.Int64("rows", rows),
			zap.Duration("elapsed", elapsed),
			zap.Error(err))
		return
	}
	if elapsed > 200*time.Millisecond {
		l.zapLogger.Warn("Slow SQL",
			zap.String("sql", sql),
			zap.Int64("rows", rows),
			zap.Duration("elapsed", elapsed))
	}
}

// Store is the postgres settlement history backed by gorm.
type Store struct {
	db     *gorm.DB
	logger *zap.Logger
}

// New opens a postgres connection using the given DSN.
func New(dsn string, zapLogger *zap.Logger) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: newGormLogger(zapLogger.Named("gorm")),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	return &Store{db: db, logger: zapLogger.Named("storage")}, nil
}

// RunMigrations creates or updates the settlement table.
func (s *Store) RunMigrations() error {
	if err := s.db.AutoMigrate(&models.Settlement{}); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

func (s *Store) SaveSettlement(ctx context.Context, settlement *models.Settlement) error {
	if err := s.db.WithContext(ctx).Create(settlement).Error; err != nil {
		return fmt.Errorf("failed to save settlement %s: %w", settlement.ReceiptID, err)
	}
	return nil
}

func (s *Store) GetSettlement(ctx context.Context, receiptID string) (*models.Settlement, error) {
	var settlement models.Settlement
	err := s.db.WithContext(ctx).Where("receipt_id = ?", receiptID).First(&settlement).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load settlement %s: %w", receiptID, err)
	}
	return &settlement, nil
}

func (s *Store) ListSettlements(ctx context.Context, account string, limit, offset int) ([]*models.Settlement, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	query := s.db.WithContext(ctx).Order("settled_at DESC").Limit(limit).Offset(offset)
	if account != "" {
		query = query.Where("account = ?", account)
	}
	var settlements []*models.Settlement
	if err := query.Find(&settlements).Error; err != nil {
		return nil, fmt.Errorf("failed to list settlements: %w", err)
	}
	return settlements, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

var _ storage.Storage = (*Store)(nil)
