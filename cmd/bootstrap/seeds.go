package bootstrap

import (
	"errors"

	"github.com/kottzoltan/aivio/internal/models"
	"github.com/kottzoltan/aivio/pkg/constants"
	"github.com/kottzoltan/aivio/pkg/logger"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type SeedService struct {
	db *gorm.DB
}

func (s *SeedService) SeedAll() error {
	return s.seedDemoOverride()
}

// seedDemoOverride gives the demo robot a knowledge base so a fresh install
// answers something useful. Existing overrides are left untouched.
func (s *SeedService) seedDemoOverride() error {
	existing, err := models.GetPersonaOverride(s.db, constants.PERSONA_DEMO)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	if existing != nil {
		logger.Info("demo override already exists, skipping seed")
		return nil
	}

	override := &models.PersonaOverride{
		Key:       constants.PERSONA_DEMO,
		Knowledge: "Az AIVIO magyar nyelvű hangalapú asszisztens-platform. Hat beépített robot: kimenő sales, email sales, ügyfélszolgálat, adatbekérés, elégedettségi felmérés és demo.",
	}
	if err := models.UpsertPersonaOverride(s.db, override); err != nil {
		return err
	}

	logger.Info("demo override seeded", zap.String("key", override.Key))
	return nil
}
