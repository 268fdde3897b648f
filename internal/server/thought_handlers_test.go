package server

import (
	"fmt"
	"net/http"
	"strings"
	"sync"
	"testing"

	"happythoughts/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestThoughtLifecycle(t *testing.T) {
	s := newTestServer(t)
	token := signup(t, s, "writer@example.com")

	created := createThought(t, s, token, "  hello  ")
	assert.Equal(t, "hello", created.Message)
	assert.Zero(t, created.Hearts)
	assert.False(t, created.CreatedAt.IsZero())
	_, err := uuid.Parse(created.ID)
	require.NoError(t, err)

	resp := do(t, s, http.MethodGet, "/thoughts/"+created.ID, "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, created.ID, decode[models.Thought](t, resp).ID)

	resp = do(t, s, http.MethodPost, "/thoughts/"+created.ID+"/like", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, decode[models.Thought](t, resp).Hearts)

	resp = do(t, s, http.MethodPatch, "/thoughts/"+created.ID, token, `{"hearts":"5"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	patched := decode[models.Thought](t, resp)
	assert.Equal(t, 5, patched.Hearts)
	assert.Equal(t, "hello", patched.Message)

	resp = do(t, s, http.MethodPatch, "/thoughts/"+created.ID, token, map[string]string{"message": "changed"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	patched = decode[models.Thought](t, resp)
	assert.Equal(t, "changed", patched.Message)
	assert.Equal(t, 5, patched.Hearts)

	resp = do(t, s, http.MethodDelete, "/thoughts/"+created.ID, token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "changed", decode[models.Thought](t, resp).Message)

	for range 2 {
		resp = do(t, s, http.MethodDelete, "/thoughts/"+created.ID, token, nil)
		requireError(t, resp, http.StatusNotFound, models.CodeNotFound, "Thought not found")
	}
	resp = do(t, s, http.MethodGet, "/thoughts/"+created.ID, "", nil)
	requireError(t, resp, http.StatusNotFound, models.CodeNotFound, "Thought not found")
}

func TestCreateThought_Validation(t *testing.T) {
	s := newTestServer(t)
	token := signup(t, s, "writer@example.com")

	tests := []struct {
		name    string
		body    any
		message string
	}{
		{"Missing message", `{}`, "Message is required"},
		{"Empty body", nil, "Message is required"},
		{"Empty message", map[string]string{"message": ""}, "Message is required"},
		{"Whitespace message", map[string]string{"message": "   "}, "Message is required"},
		{"Too long", map[string]string{"message": strings.Repeat("a", models.MaxMessageLength+1)}, "Message must be at most 1000 characters"},
		{"Malformed JSON", `{"message":`, "Invalid request body"},
		{"Message not a string", `{"message":42}`, "Invalid request body"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := do(t, s, http.MethodPost, "/thoughts", token, tt.body)
			requireError(t, resp, http.StatusBadRequest, models.CodeValidation, tt.message)
		})
	}

	var count int64
	require.NoError(t, s.db.Model(&models.Thought{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestCreateThought_IgnoresClientFields(t *testing.T) {
	s := newTestServer(t)
	token := signup(t, s, "writer@example.com")

	resp := do(t, s, http.MethodPost, "/thoughts", token,
		`{"message":"mine","hearts":99,"createdAt":"2001-01-01T00:00:00Z","id":"fixed"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	got := decode[models.Thought](t, resp)

	assert.Zero(t, got.Hearts)
	assert.NotEqual(t, "fixed", got.ID)
	assert.Greater(t, got.CreatedAt.Year(), 2001)
}

func TestUpdateThought_Validation(t *testing.T) {
	s := newTestServer(t)
	token := signup(t, s, "writer@example.com")
	th := createThought(t, s, token, "keep me")

	tests := []struct {
		name    string
		body    any
		message string
	}{
		{"Nothing to update", `{}`, "Nothing to update"},
		{"Empty message", map[string]string{"message": "  "}, "Message can not be empty"},
		{"Hearts not a number", `{"hearts":"abc"}`, "Hearts must be a number"},
		{"Hearts negative", `{"hearts":-3}`, "Hearts can not be negative"},
		{"Valid message with bad hearts", `{"message":"new","hearts":"abc"}`, "Hearts must be a number"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := do(t, s, http.MethodPatch, "/thoughts/"+th.ID, token, tt.body)
			requireError(t, resp, http.StatusBadRequest, models.CodeValidation, tt.message)
		})
	}

	resp := do(t, s, http.MethodGet, "/thoughts/"+th.ID, "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decode[models.Thought](t, resp)
	assert.Equal(t, "keep me", got.Message)
	assert.Zero(t, got.Hearts)
}

func TestThoughtRoutes_UnknownAndMalformedIDs(t *testing.T) {
	s := newTestServer(t)
	token := signup(t, s, "writer@example.com")

	for _, id := range []string{uuid.NewString(), "not-a-uuid", "123"} {
		t.Run(id, func(t *testing.T) {
			requireError(t, do(t, s, http.MethodGet, "/thoughts/"+id, "", nil),
				http.StatusNotFound, models.CodeNotFound, "Thought not found")
			requireError(t, do(t, s, http.MethodPost, "/thoughts/"+id+"/like", "", nil),
				http.StatusNotFound, models.CodeNotFound, "Thought not found")
			requireError(t, do(t, s, http.MethodPatch, "/thoughts/"+id, token, `{"hearts":1}`),
				http.StatusNotFound, models.CodeNotFound, "Thought not found")
			requireError(t, do(t, s, http.MethodDelete, "/thoughts/"+id, token, nil),
				http.StatusNotFound, models.CodeNotFound, "Thought not found")
		})
	}
}

func TestListThoughts(t *testing.T) {
	s := newTestServer(t)
	token := signup(t, s, "writer@example.com")

	resp := do(t, s, http.MethodGet, "/thoughts", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, decode[[]models.Thought](t, resp))

	low := createThought(t, s, token, "low")
	high := createThought(t, s, token, "high")
	do(t, s, http.MethodPatch, "/thoughts/"+high.ID, token, `{"hearts":10}`)

	t.Run("All", func(t *testing.T) {
		resp := do(t, s, http.MethodGet, "/thoughts", "", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Len(t, decode[[]models.Thought](t, resp), 2)
	})

	t.Run("Min hearts", func(t *testing.T) {
		resp := do(t, s, http.MethodGet, "/thoughts?minHearts=5", "", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		got := decode[[]models.Thought](t, resp)
		require.Len(t, got, 1)
		assert.Equal(t, high.ID, got[0].ID)
	})

	t.Run("Min hearts zero keeps all", func(t *testing.T) {
		resp := do(t, s, http.MethodGet, "/thoughts?minHearts=0", "", nil)
		assert.Len(t, decode[[]models.Thought](t, resp), 2)
	})

	t.Run("No matches is an empty array", func(t *testing.T) {
		resp := do(t, s, http.MethodGet, "/thoughts?minHearts=1000", "", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		raw := decode[[]any](t, resp)
		assert.NotNil(t, raw)
		assert.Empty(t, raw)
	})

	t.Run("Limit", func(t *testing.T) {
		resp := do(t, s, http.MethodGet, "/thoughts?limit=1&offset=1", "", nil)
		got := decode[[]models.Thought](t, resp)
		require.Len(t, got, 1)
		assert.Equal(t, low.ID, got[0].ID)
	})

	for _, bad := range []string{"-1", "abc", "1.5"} {
		t.Run("Invalid minHearts "+bad, func(t *testing.T) {
			resp := do(t, s, http.MethodGet, "/thoughts?minHearts="+bad, "", nil)
			requireError(t, resp, http.StatusBadRequest, models.CodeValidation, "minHearts must be a non-negative integer")
		})
	}
}

func TestLikeThought_ConcurrentLikesAllCount(t *testing.T) {
	s := newTestServer(t)
	token := signup(t, s, "writer@example.com")
	th := createThought(t, s, token, "popular")

	const likes = 30
	var wg sync.WaitGroup
	statuses := make(chan int, likes)
	for range likes {
		wg.Add(1)
		go func() {
			defer wg.Done()
			req, _ := http.NewRequest(http.MethodPost, fmt.Sprintf("/thoughts/%s/like", th.ID), nil)
			resp, err := s.App().Test(req, -1)
			if err != nil {
				statuses <- 0
				return
			}
			_ = resp.Body.Close()
			statuses <- resp.StatusCode
		}()
	}
	wg.Wait()
	close(statuses)

	for status := range statuses {
		assert.Equal(t, http.StatusOK, status)
	}

	resp := do(t, s, http.MethodGet, "/thoughts/"+th.ID, "", nil)
	assert.Equal(t, likes, decode[models.Thought](t, resp).Hearts)
}
