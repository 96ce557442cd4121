package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Open connects to PostgreSQL through GORM, applies pool settings and
// verifies the connection with a ping.
func Open(cfg Config) (*gorm.DB, error) {
	logLevel := gormlogger.Silent
	if cfg.EnableLogging {
		logLevel = gormlogger.Warn
	}

	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger: newSlogLogger(logLevel, cfg.SlowQueryThreshold()),
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql connection: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetimeMin > 0 {
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return db, nil
}

// Close releases the underlying connection pool.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// slogLogger routes GORM's query log through slog so database logs share the
// process log pipeline.
type slogLogger struct {
	level         gormlogger.LogLevel
	slowThreshold time.Duration
}

func newSlogLogger(level gormlogger.LogLevel, slowThreshold time.Duration) gormlogger.Interface {
	return &slogLogger{level: level, slowThreshold: slowThreshold}
}

func (l *slogLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	return &slogLogger{level: level, slowThreshold: l.slowThreshold}
}

func (l *slogLogger) Info(ctx context.Context, msg string, args ...any) {
	if l.level >= gormlogger.Info {
		slog.InfoContext(ctx, fmt.Sprintf(msg, args...))
	}
}

func (l *slogLogger) Warn(ctx context.Context, msg string, args ...any) {
	if l.level >= gormlogger.Warn {
		slog.WarnContext(ctx, fmt.Sprintf(msg, args...))
	}
}

func (l *slogLogger) Error(ctx context.Context, msg string, args ...any) {
	if l.level >= gormlogger.Error {
		slog.ErrorContext(ctx, fmt.Sprintf(msg, args...))
	}
}

func (l *slogLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= gormlogger.Silent {
		return
	}
	elapsed := time.Since(begin)

	switch {
	case err != nil && l.level >= gormlogger.Error:
		sql, rows := fc()
		slog.ErrorContext(ctx, "query failed",
			"err", err, "sql", sql, "rows", rows, "elapsed", elapsed)
	case l.slowThreshold > 0 && elapsed > l.slowThreshold && l.level >= gormlogger.Warn:
		sql, rows := fc()
		slog.WarnContext(ctx, "slow query",
			"sql", sql, "rows", rows, "elapsed", elapsed, "threshold", l.slowThreshold)
	case l.level >= gormlogger.Info:
		sql, rows := fc()
		slog.InfoContext(ctx, "query", "sql", sql, "rows", rows, "elapsed", elapsed)
	}
}
