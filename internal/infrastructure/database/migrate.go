package database

import (
	"context"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"skim-server/keys-api/internal/infrastructure/database/entities"
)

// AutoMigrate applies database schema changes.
func AutoMigrate(ctx context.Context, db *gorm.DB, log zerolog.Logger) error {
	if err := db.WithContext(ctx).AutoMigrate(&entities.User{}, &entities.APIKey{}); err != nil {
		return err
	}
	log.Info().Msg("applied user and api key migrations")
	return nil
}
