package integration_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/geocoder89/notehub/internal/auth"
	"github.com/geocoder89/notehub/internal/cache"
	"github.com/geocoder89/notehub/internal/config"
	"github.com/geocoder89/notehub/internal/db"
	apphttp "github.com/geocoder89/notehub/internal/http"
	"github.com/geocoder89/notehub/internal/observability"
	"github.com/geocoder89/notehub/internal/repo/memory"
	"github.com/geocoder89/notehub/internal/repo/postgres"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	gin.SetMode(gin.TestMode)
	slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func testConfig() config.Config {
	return config.Config{
		Env:                   "test",
		Storage:               "memory",
		JWTSecret:             "test-secret-key",
		JWTAccessTTLMinutes:   60,
		JWTRefreshTTLDays:     7,
		AuthRateLimit:         1000,
		AuthRateWindowSeconds: 60,
		MaxBodyBytes:          1 << 20,
	}
}

func newMemoryRouter(t *testing.T, cfg config.Config) *gin.Engine {
	t.Helper()

	reg := prometheus.NewRegistry()
	prom := observability.NewProm(reg)
	notes := memory.NewNotesRepo()

	return apphttp.NewRouter(cfg, apphttp.Deps{
		Users:         memory.NewUsersRepo(notes),
		Notes:         cache.NewNotes(notes, nil, 0, prom),
		RefreshTokens: memory.NewRefreshTokensRepo(),
		JWT:           auth.NewManager(cfg.JWTSecret, cfg.AccessTTL(), cfg.RefreshTTL()),
		Prom:          prom,
		Gatherer:      reg,
	})
}

// newPostgresRouter runs against TEST_DB_DSN and skips when it is unset.
func newPostgresRouter(t *testing.T) *gin.Engine {
	t.Helper()

	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		t.Skip("TEST_DB_DSN not set")
	}

	pool, err := db.NewPool(context.Background(), dsn)
	if err != nil {
		t.Fatalf("Failed to create pgx pool: %v", err)
	}
	t.Cleanup(pool.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.EnsureSchema(ctx, pool); err != nil {
		t.Fatalf("schema: %v", err)
	}
	if _, err := pool.Exec(ctx, `TRUNCATE users, notes, refresh_tokens RESTART IDENTITY CASCADE`); err != nil {
		t.Fatalf("truncate: %v", err)
	}

	cfg := testConfig()
	cfg.Storage = "postgres"

	return apphttp.NewRouter(cfg, apphttp.Deps{
		Users:         postgres.NewUsersRepo(pool, nil),
		Notes:         postgres.NewNotesRepo(pool, nil),
		RefreshTokens: postgres.NewRefreshTokensRepo(pool, nil),
		JWT:           auth.NewManager(cfg.JWTSecret, cfg.AccessTTL(), cfg.RefreshTTL()),
		Ping:          func() error { return pool.Ping(context.Background()) },
	})
}

type client struct {
	t      *testing.T
	router http.Handler
	token  string
}

func (c client) do(method, path string, body any) *httptest.ResponseRecorder {
	c.t.Helper()

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			c.t.Fatalf("marshal: %v", err)
		}
		reader = bytes.NewReader(b)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	w := httptest.NewRecorder()
	c.router.ServeHTTP(w, req)
	return w
}

func (c client) expect(w *httptest.ResponseRecorder, status int) {
	c.t.Helper()
	if w.Code != status {
		c.t.Fatalf("expected %d, got %d body=%s", status, w.Code, w.Body.String())
	}
}

// register creates an account and returns a client carrying its access token.
func register(t *testing.T, router http.Handler, username string) client {
	t.Helper()

	anon := client{t: t, router: router}
	w := anon.do(http.MethodPost, "/auth/register", map[string]string{
		"username": username,
		"email":    username + "@example.com",
		"password": "password123",
	})
	anon.expect(w, http.StatusCreated)

	var resp struct {
		Access string `json:"access"`
	}
	decode(t, w, &resp)

	return client{t: t, router: router, token: resp.Access}
}

func decode(t *testing.T, w *httptest.ResponseRecorder, out any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), out); err != nil {
		t.Fatalf("decode: %v body=%s", err, w.Body.String())
	}
}

type noteJSON struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Tags      []string  `json:"tags"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
