package repository

import (
	"context"
	"testing"

	"happythoughts/internal/models"
	"happythoughts/internal/testutil"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func intPtr(v int) *int { return &v }

func strPtr(v string) *string { return &v }

func seedThought(t *testing.T, db *gorm.DB, message string, hearts int) *models.Thought {
	t.Helper()
	thought := &models.Thought{Message: message, Hearts: hearts}
	require.NoError(t, db.WithContext(context.Background()).Create(thought).Error)
	return thought
}

func newSQLiteThoughtRepo(t *testing.T) (ThoughtRepository, *gorm.DB) {
	t.Helper()
	db := testutil.NewSQLiteDB(t)
	return NewThoughtRepository(db, nil, nil), db
}
