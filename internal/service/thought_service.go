// Package service holds the business rules between HTTP handlers and repositories.
package service

import (
	"context"
	"encoding/json"
	"log/slog"

	"happythoughts/internal/middleware"
	"happythoughts/internal/models"
	"happythoughts/internal/observability"
	"happythoughts/internal/repository"
	"happythoughts/internal/validation"

	"github.com/google/uuid"
)

// Publisher receives events for committed thought writes.
type Publisher interface {
	Publish(ctx context.Context, event models.ThoughtEvent) error
}

type ThoughtService struct {
	thoughtRepo repository.ThoughtRepository
	publisher   Publisher
	metrics     *observability.Metrics
}

type CreateThoughtInput struct {
	Message string
}

type ListThoughtsInput struct {
	MinHearts *int
	Limit     int
	Offset    int
}

// UpdateThoughtInput is a partial update. A nil Message or Hearts leaves the field as is.
// Hearts stays raw so numeric strings can be accepted.
type UpdateThoughtInput struct {
	ID      string
	Message *string
	Hearts  json.RawMessage
}

// NewThoughtService wires the service. publisher and metrics may be nil.
func NewThoughtService(thoughtRepo repository.ThoughtRepository, publisher Publisher, metrics *observability.Metrics) *ThoughtService {
	return &ThoughtService{
		thoughtRepo: thoughtRepo,
		publisher:   publisher,
		metrics:     metrics,
	}
}

func (s *ThoughtService) CreateThought(ctx context.Context, in CreateThoughtInput) (*models.Thought, error) {
	message, err := validation.NormalizeMessage(in.Message)
	if err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	thought := &models.Thought{Message: message}
	if err := s.thoughtRepo.Create(ctx, thought); err != nil {
		return nil, err
	}

	s.metrics.RecordThoughtCreated()
	s.publish(ctx, models.EventThoughtCreated, thought)
	return thought, nil
}

func (s *ThoughtService) GetThought(ctx context.Context, id string) (*models.Thought, error) {
	id, err := parseThoughtID(id)
	if err != nil {
		return nil, err
	}
	return s.thoughtRepo.GetByID(ctx, id)
}

func (s *ThoughtService) ListThoughts(ctx context.Context, in ListThoughtsInput) ([]models.Thought, error) {
	if in.MinHearts != nil && *in.MinHearts < 0 {
		return nil, models.NewValidationError("minHearts must be a non-negative integer")
	}
	return s.thoughtRepo.List(ctx, models.ThoughtFilter{
		MinHearts: in.MinHearts,
		Limit:     in.Limit,
		Offset:    in.Offset,
	})
}

// LikeThought adds one heart. Concurrent likes are never lost.
func (s *ThoughtService) LikeThought(ctx context.Context, id string) (*models.Thought, error) {
	id, err := parseThoughtID(id)
	if err != nil {
		return nil, err
	}

	thought, err := s.thoughtRepo.IncrementHearts(ctx, id)
	if err != nil {
		return nil, err
	}

	s.metrics.RecordLike()
	s.publish(ctx, models.EventThoughtLiked, thought)
	return thought, nil
}

// UpdateThought validates every supplied field before writing any of them.
func (s *ThoughtService) UpdateThought(ctx context.Context, in UpdateThoughtInput) (*models.Thought, error) {
	var patch models.ThoughtPatch

	if in.Message != nil {
		message, err := validation.NormalizeMessagePatch(*in.Message)
		if err != nil {
			return nil, models.NewValidationError(err.Error())
		}
		patch.Message = &message
	}
	if in.Hearts != nil {
		hearts, err := validation.ParseHearts(in.Hearts)
		if err != nil {
			return nil, models.NewValidationError(err.Error())
		}
		patch.Hearts = &hearts
	}
	if patch.Empty() {
		return nil, models.NewValidationError("Nothing to update")
	}

	id, err := parseThoughtID(in.ID)
	if err != nil {
		return nil, err
	}

	thought, err := s.thoughtRepo.Update(ctx, id, patch)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, models.EventThoughtUpdated, thought)
	return thought, nil
}

// DeleteThought removes the thought and returns it as it was stored.
func (s *ThoughtService) DeleteThought(ctx context.Context, id string) (*models.Thought, error) {
	id, err := parseThoughtID(id)
	if err != nil {
		return nil, err
	}

	thought, err := s.thoughtRepo.Delete(ctx, id)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, models.EventThoughtDeleted, thought)
	return thought, nil
}

func (s *ThoughtService) publish(ctx context.Context, eventType string, thought *models.Thought) {
	if s.publisher == nil {
		return
	}
	event := models.ThoughtEvent{Type: eventType, Thought: *thought}
	if err := s.publisher.Publish(ctx, event); err != nil {
		middleware.Logger.WarnContext(ctx, "failed to publish thought event",
			slog.String("type", eventType),
			slog.String("thought_id", thought.ID),
			slog.String("error", err.Error()),
		)
	}
}

// parseThoughtID canonicalizes id. Anything that is not a UUID cannot exist.
func parseThoughtID(id string) (string, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return "", models.NewNotFoundError("Thought not found")
	}
	return parsed.String(), nil
}
