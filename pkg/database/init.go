package database

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/artlinkhq/artlink_backend/config"
)

// InitializeDatabases creates the application databases if they don't exist.
// It connects to the default 'postgres' database to create the others, and is
// meant to run once at startup, before migrations.
func InitializeDatabases(cfg *config.Config) error {
	if len(cfg.Server.Databases) == 0 {
		return fmt.Errorf("no database names provided")
	}

	maintenance := Config{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		DBName:   "postgres",
		SSLMode:  cfg.Database.SSLMode,
	}

	db, err := gorm.Open(postgres.Open(maintenance.DSN()), &gorm.Config{
		Logger: newSlogLogger(gormlogger.Silent, 0),
	})
	if err != nil {
		return fmt.Errorf("connect to postgres database: %w", err)
	}
	defer Close(db)

	for _, dbName := range cfg.Server.Databases {
		if err := createDatabaseIfNotExists(db, dbName); err != nil {
			return fmt.Errorf("create database %q: %w", dbName, err)
		}
	}
	return nil
}

func createDatabaseIfNotExists(db *gorm.DB, dbName string) error {
	var exists bool
	err := db.Raw(`SELECT EXISTS(SELECT 1 FROM pg_database WHERE datname = ?)`, dbName).
		Scan(&exists).Error
	if err != nil {
		return fmt.Errorf("check if database exists: %w", err)
	}
	if exists {
		return nil
	}

	// CREATE DATABASE can't be parameterised; dbName comes from config, not
	// user input.
	if err := db.Exec(fmt.Sprintf("CREATE DATABASE %s", dbName)).Error; err != nil {
		return fmt.Errorf("create database: %w", err)
	}
	return nil
}
