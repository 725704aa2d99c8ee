package storage

import (
	"fmt"
	"log/slog"

	slogGorm "github.com/orandin/slog-gorm"
	"github.com/uptrace/opentelemetry-go-extra/otelgorm"

	"github.com/gatherly/gatherly/pkg/config"
	"github.com/gatherly/gatherly/pkg/model"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func NewDatabase(logger *slog.Logger, c config.Postgresql) (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=disable", c.Host, c.Username, c.Password, c.DatabaseName, c.Port)

	databaseConfig := gorm.Config{
		Logger: slogGorm.New(slogGorm.WithHandler(logger.Handler())),
		// TranslateError maps driver specific unique violations onto
		// gorm.ErrDuplicatedKey which the repositories rely on
		TranslateError: true,
	}

	db, err := gorm.Open(postgres.Open(dsn), &databaseConfig)
	if err != nil {
		return nil, err
	}

	if err := db.Use(otelgorm.NewPlugin()); err != nil {
		return nil, fmt.Errorf("failed to install the otel gorm plugin: %v", err)
	}

	err = db.AutoMigrate(
		&model.User{},
		&model.Event{},
	)
	if err != nil {
		return nil, err
	}

	return db, nil
}
