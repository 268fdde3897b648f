package seed

import (
	"fmt"
	"log/slog"

	"happythoughts/internal/middleware"
	"happythoughts/internal/models"

	"gorm.io/gorm"
)

const batchSize = 100

// Seeder writes thoughts straight to the database, bypassing the API.
type Seeder struct {
	db *gorm.DB
}

func NewSeeder(db *gorm.DB) *Seeder {
	return &Seeder{db: db}
}

// Reset deletes every thought. Users are left alone.
func (s *Seeder) Reset() error {
	res := s.db.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.Thought{})
	if res.Error != nil {
		return fmt.Errorf("clear thoughts: %w", res.Error)
	}
	middleware.Logger.Info("thoughts cleared", slog.Int64("rows", res.RowsAffected))
	return nil
}

// SeedFixtures inserts every fixture thought and returns how many were written.
func (s *Seeder) SeedFixtures(f *Fixtures) (int, error) {
	thoughts := make([]models.Thought, 0, len(f.Thoughts))
	for _, t := range f.Thoughts {
		thoughts = append(thoughts, models.Thought{Message: t.Message, Hearts: t.Hearts})
	}
	return s.insert(thoughts)
}

// SeedFake inserts n generated thoughts.
func (s *Seeder) SeedFake(factory *Factory, n int) (int, error) {
	if n <= 0 {
		return 0, nil
	}
	return s.insert(factory.Thoughts(n))
}

// SeedIfEmpty applies fixtures only when the thoughts table has no rows.
func (s *Seeder) SeedIfEmpty(f *Fixtures) (int, error) {
	var count int64
	if err := s.db.Model(&models.Thought{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count thoughts: %w", err)
	}
	if count > 0 {
		return 0, nil
	}
	return s.SeedFixtures(f)
}

func (s *Seeder) insert(thoughts []models.Thought) (int, error) {
	if len(thoughts) == 0 {
		return 0, nil
	}
	if err := s.db.CreateInBatches(&thoughts, batchSize).Error; err != nil {
		return 0, fmt.Errorf("insert thoughts: %w", err)
	}
	return len(thoughts), nil
}
