package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"happythoughts/internal/bootstrap"
	"happythoughts/internal/config"
	"happythoughts/internal/models"
	"happythoughts/internal/testutil"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func testConfig() *config.Config {
	return &config.Config{
		Env:                "test",
		Port:               "0",
		DBDriver:           "sqlite",
		DBPath:             ":memory:",
		BcryptCost:         bcrypt.MinCost,
		AllowedOrigins:     "*",
		RateLimitPerMinute: 20,
		FeatureFlags:       "realtime=on,thought_cache=on",
	}
}

type testServerOptions struct {
	redis  *redis.Client
	mutate func(*config.Config)
}

// newTestServer builds a server on an in-memory SQLite database.
func newTestServer(t *testing.T, opts ...testServerOptions) *Server {
	t.Helper()

	cfg := testConfig()
	rt := &bootstrap.Runtime{DB: testutil.NewSQLiteDB(t)}
	for _, o := range opts {
		if o.mutate != nil {
			o.mutate(cfg)
		}
		if o.redis != nil {
			rt.Redis = o.redis
		}
	}

	s, err := NewServerWithDeps(cfg, rt)
	require.NoError(t, err)
	return s
}

// do sends a request through app.Test. body may be nil, a string sent as-is, or a value encoded as JSON.
func do(t *testing.T, s *Server, method, path, token string, body any) *http.Response {
	t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", token)
	}

	resp, err := s.App().Test(req, -1)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func requireError(t *testing.T, resp *http.Response, status int, code, message string) {
	t.Helper()
	require.Equal(t, status, resp.StatusCode)
	body := decode[models.ErrorResponse](t, resp)
	require.Equal(t, models.ErrorResponse{Error: message, Code: code}, body)
}

// signup registers a user and returns the bearer header value for it.
func signup(t *testing.T, s *Server, email string) string {
	t.Helper()
	resp := do(t, s, http.MethodPost, "/signup", "", map[string]string{"email": email, "password": "hunter22"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	creds := decode[models.Credentials](t, resp)
	return "Bearer " + creds.AccessToken
}

func createThought(t *testing.T, s *Server, token, message string) models.Thought {
	t.Helper()
	resp := do(t, s, http.MethodPost, "/thoughts", token, map[string]string{"message": message})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return decode[models.Thought](t, resp)
}
