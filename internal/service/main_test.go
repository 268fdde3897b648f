package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"happythoughts/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// thoughtRepoStub is a stub for repository.ThoughtRepository.
type thoughtRepoStub struct {
	createFn          func(context.Context, *models.Thought) error
	getByIDFn         func(context.Context, string) (*models.Thought, error)
	listFn            func(context.Context, models.ThoughtFilter) ([]models.Thought, error)
	incrementHeartsFn func(context.Context, string) (*models.Thought, error)
	updateFn          func(context.Context, string, models.ThoughtPatch) (*models.Thought, error)
	deleteFn          func(context.Context, string) (*models.Thought, error)
}

func (s *thoughtRepoStub) Create(ctx context.Context, thought *models.Thought) error {
	return s.createFn(ctx, thought)
}
func (s *thoughtRepoStub) GetByID(ctx context.Context, id string) (*models.Thought, error) {
	return s.getByIDFn(ctx, id)
}
func (s *thoughtRepoStub) List(ctx context.Context, filter models.ThoughtFilter) ([]models.Thought, error) {
	return s.listFn(ctx, filter)
}
func (s *thoughtRepoStub) IncrementHearts(ctx context.Context, id string) (*models.Thought, error) {
	return s.incrementHeartsFn(ctx, id)
}
func (s *thoughtRepoStub) Update(ctx context.Context, id string, patch models.ThoughtPatch) (*models.Thought, error) {
	return s.updateFn(ctx, id, patch)
}
func (s *thoughtRepoStub) Delete(ctx context.Context, id string) (*models.Thought, error) {
	return s.deleteFn(ctx, id)
}

var errUnexpectedCall = errors.New("unexpected repository call")

// failingThoughtRepo fails the test on any call; used to prove validation happens first.
func failingThoughtRepo(t *testing.T) *thoughtRepoStub {
	fail := func() { t.Errorf("repository must not be called") }
	return &thoughtRepoStub{
		createFn:  func(context.Context, *models.Thought) error { fail(); return errUnexpectedCall },
		getByIDFn: func(context.Context, string) (*models.Thought, error) { fail(); return nil, errUnexpectedCall },
		listFn:    func(context.Context, models.ThoughtFilter) ([]models.Thought, error) { fail(); return nil, errUnexpectedCall },
		incrementHeartsFn: func(context.Context, string) (*models.Thought, error) {
			fail()
			return nil, errUnexpectedCall
		},
		updateFn: func(context.Context, string, models.ThoughtPatch) (*models.Thought, error) {
			fail()
			return nil, errUnexpectedCall
		},
		deleteFn: func(context.Context, string) (*models.Thought, error) { fail(); return nil, errUnexpectedCall },
	}
}

// userRepoStub is a stub for repository.UserRepository.
type userRepoStub struct {
	createFn           func(context.Context, *models.User) error
	getByEmailFn       func(context.Context, string) (*models.User, error)
	getByAccessTokenFn func(context.Context, string) (*models.User, error)
}

func (s *userRepoStub) Create(ctx context.Context, user *models.User) error {
	return s.createFn(ctx, user)
}
func (s *userRepoStub) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getByEmailFn(ctx, email)
}
func (s *userRepoStub) GetByAccessToken(ctx context.Context, token string) (*models.User, error) {
	return s.getByAccessTokenFn(ctx, token)
}

// recordingPublisher collects published events.
type recordingPublisher struct {
	mu     sync.Mutex
	events []models.ThoughtEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, event models.ThoughtEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

func assertAppError(t *testing.T, err error, code, message string) {
	t.Helper()
	require.Error(t, err)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %T: %v", err, err)
	assert.Equal(t, code, appErr.Code)
	if message != "" {
		assert.Equal(t, message, appErr.Message)
	}
}
