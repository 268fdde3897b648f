package repository

import (
	"context"
	"errors"
	"strings"

	"happythoughts/internal/models"
	"happythoughts/internal/observability"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const usersTable = "users"

// ErrDuplicate reports a unique index violation (email or access token).
var ErrDuplicate = errors.New("duplicate record")

// UserRepository defines persistence operations for users. Users are never updated or deleted.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByAccessToken(ctx context.Context, token string) (*models.User, error)
}

type userRepository struct {
	db      *gorm.DB
	metrics *observability.Metrics
}

// NewUserRepository returns a new UserRepository implementation.
func NewUserRepository(db *gorm.DB, metrics *observability.Metrics) UserRepository {
	return &userRepository{db: db, metrics: metrics}
}

func (r *userRepository) Create(ctx context.Context, user *models.User) (err error) {
	ctx, span := observability.StartRepositorySpan(ctx, "Create", usersTable)
	defer func() { observability.EndSpan(span, err) }()
	defer r.metrics.TrackQuery("create", usersTable)()

	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if isUniqueConstraintError(err) {
			return ErrDuplicate
		}
		return models.WrapStoreError(err)
	}
	return nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (_ *models.User, err error) {
	ctx, span := observability.StartRepositorySpan(ctx, "GetByEmail", usersTable)
	defer func() { observability.EndSpan(span, err) }()
	defer r.metrics.TrackQuery("get_by_email", usersTable)()

	return r.first(ctx, "email = ?", email)
}

func (r *userRepository) GetByAccessToken(ctx context.Context, token string) (_ *models.User, err error) {
	ctx, span := observability.StartRepositorySpan(ctx, "GetByAccessToken", usersTable)
	defer func() { observability.EndSpan(span, err) }()
	defer r.metrics.TrackQuery("get_by_token", usersTable)()

	return r.first(ctx, "access_token = ?", token)
}

func (r *userRepository) first(ctx context.Context, query string, arg string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where(query, arg).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("User not found")
		}
		return nil, models.WrapStoreError(err)
	}
	return &user, nil
}

// isUniqueConstraintError checks if a DB error is a unique constraint violation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "unique constraint")
}
