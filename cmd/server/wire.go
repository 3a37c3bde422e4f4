//go:build wireinject

package main

import (
	"context"

	"github.com/google/wire"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"skim-server/keys-api/internal/config"
	"skim-server/keys-api/internal/domain/apikey"
	"skim-server/keys-api/internal/domain/summary"
	"skim-server/keys-api/internal/domain/user"
	"skim-server/keys-api/internal/infrastructure/auth"
	"skim-server/keys-api/internal/infrastructure/database"
	"skim-server/keys-api/internal/infrastructure/inference"
	"skim-server/keys-api/internal/infrastructure/webcontent"
	"skim-server/keys-api/internal/infrastructure/repository/apikeyrepo"
	"skim-server/keys-api/internal/infrastructure/repository/userrepo"
	"skim-server/keys-api/internal/interfaces/httpserver"
)

var domainSet = wire.NewSet(
	apikeyrepo.NewAPIKeyRepository,
	userrepo.NewUserGormRepository,
	newKeyService,
	user.NewService,
	newSummaryService,
)

// BuildApplication assembles the keys API with Wire.
func BuildApplication(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*Application, error) {
	wire.Build(
		auth.NewValidator,
		newGormDB,
		domainSet,
		httpserver.New,
		NewApplication,
	)
	return nil, nil
}

func newGormDB(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*gorm.DB, error) {
	db, err := database.Connect(database.Config{
		DatabaseURL: cfg.DatabaseURL,
		MaxIdle:     cfg.DBMaxIdleConns,
		MaxOpen:     cfg.DBMaxOpenConns,
		MaxLifetime: cfg.DBConnLifetime,
		LogLevel:    gormlogger.Warn,
	})
	if err != nil {
		return nil, err
	}
	if cfg.AutoMigrate {
		if err := database.AutoMigrate(ctx, db, log); err != nil {
			return nil, err
		}
	}
	return db, nil
}

func newKeyService(repo apikey.Repository, cfg *config.Config, log zerolog.Logger) *apikey.Service {
	return apikey.NewService(repo, apikey.Config{
		KeyPrefix:  cfg.KeyPrefix,
		MaxPerUser: cfg.MaxKeysPerUser,
	}, log)
}

func newSummaryService(cfg *config.Config, log zerolog.Logger) *summary.Service {
	extractor := webcontent.NewFetcher(cfg, log)
	completer := inference.NewOpenAICompleter(cfg, log)
	return summary.NewService(extractor, completer, cfg.SummarizeModel, log)
}
