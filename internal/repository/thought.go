// Package repository implements the data access layer for the application.
package repository

import (
	"context"
	"errors"

	"happythoughts/internal/cache"
	"happythoughts/internal/models"
	"happythoughts/internal/observability"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const thoughtsTable = "thoughts"

// ThoughtRepository defines persistence operations for thoughts. Every write is a
// single statement, so concurrent writers to one thought never lose updates.
type ThoughtRepository interface {
	Create(ctx context.Context, thought *models.Thought) error
	GetByID(ctx context.Context, id string) (*models.Thought, error)
	List(ctx context.Context, filter models.ThoughtFilter) ([]models.Thought, error)
	IncrementHearts(ctx context.Context, id string) (*models.Thought, error)
	Update(ctx context.Context, id string, patch models.ThoughtPatch) (*models.Thought, error)
	Delete(ctx context.Context, id string) (*models.Thought, error)
}

type thoughtRepository struct {
	db      *gorm.DB
	cache   *cache.Store
	metrics *observability.Metrics
}

// NewThoughtRepository returns a ThoughtRepository. store may be nil to disable caching.
func NewThoughtRepository(db *gorm.DB, store *cache.Store, metrics *observability.Metrics) ThoughtRepository {
	return &thoughtRepository{db: db, cache: store, metrics: metrics}
}

func thoughtNotFound() *models.AppError {
	return models.NewNotFoundError("Thought not found")
}

func (r *thoughtRepository) Create(ctx context.Context, thought *models.Thought) (err error) {
	ctx, span := observability.StartRepositorySpan(ctx, "Create", thoughtsTable)
	defer func() { observability.EndSpan(span, err) }()
	defer r.metrics.TrackQuery("create", thoughtsTable)()

	if err := r.db.WithContext(ctx).Create(thought).Error; err != nil {
		return models.WrapStoreError(err)
	}
	return nil
}

func (r *thoughtRepository) GetByID(ctx context.Context, id string) (_ *models.Thought, err error) {
	ctx, span := observability.StartRepositorySpan(ctx, "GetByID", thoughtsTable)
	defer func() { observability.EndSpan(span, err) }()

	var thought models.Thought
	err = r.cache.Aside(ctx, cache.ThoughtKey(id), &thought, cache.ThoughtTTL, func() error {
		defer r.metrics.TrackQuery("get", thoughtsTable)()
		if err := r.db.WithContext(ctx).First(&thought, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return thoughtNotFound()
			}
			return models.WrapStoreError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &thought, nil
}

func (r *thoughtRepository) List(ctx context.Context, filter models.ThoughtFilter) (_ []models.Thought, err error) {
	ctx, span := observability.StartRepositorySpan(ctx, "List", thoughtsTable)
	defer func() { observability.EndSpan(span, err) }()
	defer r.metrics.TrackQuery("list", thoughtsTable)()

	query := r.db.WithContext(ctx).Model(&models.Thought{})
	if filter.MinHearts != nil {
		query = query.Where("hearts >= ?", *filter.MinHearts)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	thoughts := make([]models.Thought, 0)
	if err := query.Order("created_at DESC").Find(&thoughts).Error; err != nil {
		return nil, models.WrapStoreError(err)
	}
	return thoughts, nil
}

// IncrementHearts adds one heart in a single UPDATE ... RETURNING statement.
func (r *thoughtRepository) IncrementHearts(ctx context.Context, id string) (_ *models.Thought, err error) {
	ctx, span := observability.StartRepositorySpan(ctx, "IncrementHearts", thoughtsTable)
	defer func() { observability.EndSpan(span, err) }()
	defer r.metrics.TrackQuery("increment", thoughtsTable)()

	var thought models.Thought
	result := r.db.WithContext(ctx).
		Model(&thought).
		Clauses(clause.Returning{}).
		Where("id = ?", id).
		UpdateColumn("hearts", gorm.Expr("hearts + ?", 1))
	if result.Error != nil {
		return nil, models.WrapStoreError(result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, thoughtNotFound()
	}

	r.cache.Invalidate(ctx, cache.ThoughtKey(id))
	return &thought, nil
}

// Update writes only the columns present in patch and returns the stored row.
func (r *thoughtRepository) Update(ctx context.Context, id string, patch models.ThoughtPatch) (_ *models.Thought, err error) {
	ctx, span := observability.StartRepositorySpan(ctx, "Update", thoughtsTable)
	defer func() { observability.EndSpan(span, err) }()

	if patch.Empty() {
		return r.GetByID(ctx, id)
	}
	defer r.metrics.TrackQuery("update", thoughtsTable)()

	var thought models.Thought
	result := r.db.WithContext(ctx).
		Model(&thought).
		Clauses(clause.Returning{}).
		Where("id = ?", id).
		Updates(patch.Columns())
	if result.Error != nil {
		return nil, models.WrapStoreError(result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, thoughtNotFound()
	}

	r.cache.Invalidate(ctx, cache.ThoughtKey(id))
	return &thought, nil
}

// Delete removes the thought and returns the row as it was.
func (r *thoughtRepository) Delete(ctx context.Context, id string) (_ *models.Thought, err error) {
	ctx, span := observability.StartRepositorySpan(ctx, "Delete", thoughtsTable)
	defer func() { observability.EndSpan(span, err) }()
	defer r.metrics.TrackQuery("delete", thoughtsTable)()

	var thought models.Thought
	result := r.db.WithContext(ctx).
		Clauses(clause.Returning{}).
		Where("id = ?", id).
		Delete(&thought)
	if result.Error != nil {
		return nil, models.WrapStoreError(result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, thoughtNotFound()
	}

	r.cache.Invalidate(ctx, cache.ThoughtKey(id))
	return &thought, nil
}
