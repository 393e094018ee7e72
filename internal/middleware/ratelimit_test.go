package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/benvon/task-manager/internal/models"
	"go.uber.org/zap"
)

type mockRatelimitStore struct {
	mu      sync.Mutex
	cfg     *models.RatelimitConfig
	getErr  error
	setCall int
}

func (m *mockRatelimitStore) Get(ctx context.Context) (*models.RatelimitConfig, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	return m.cfg, nil
}

func (m *mockRatelimitStore) Set(ctx context.Context, c *models.RatelimitConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setCall++
	m.cfg = c
	return nil
}

func (m *mockRatelimitStore) setRate(rate string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cfg = &models.RatelimitConfig{Rate: rate}
}

func doRequests(h http.Handler, ip string, n int) []int {
	codes := make([]int, 0, n)
	for i := 0; i < n; i++ {
		req := httptest.NewRequest("GET", "/api/v1/tasks", nil)
		req.Header.Set("X-Real-IP", ip)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}
	return codes
}

func TestRateLimitReloader_SeedsDefault(t *testing.T) {
	t.Parallel()

	store, err := NewLimiterStore(nil)
	if err != nil {
		t.Fatalf("NewLimiterStore() error = %v", err)
	}
	repo := &mockRatelimitStore{}
	rl := NewRateLimitReloader(store, repo, "2-M", zap.NewNop(), 0)
	h := rl.Middleware()(okHandler())

	if repo.setCall != 1 || repo.cfg.Rate != "2-M" {
		t.Errorf("expected default rate to be saved, got %+v (calls %d)", repo.cfg, repo.setCall)
	}
	if rl.Rate() != "2-M" {
		t.Errorf("Rate() = %q", rl.Rate())
	}

	codes := doRequests(h, "198.51.100.1", 3)
	if codes[0] != http.StatusOK || codes[1] != http.StatusOK || codes[2] != http.StatusTooManyRequests {
		t.Errorf("codes = %v, want [200 200 429]", codes)
	}

	// a different client has its own bucket
	if codes := doRequests(h, "198.51.100.2", 1); codes[0] != http.StatusOK {
		t.Errorf("second client codes = %v", codes)
	}
}

func TestRateLimitReloader_ReloadsFromStore(t *testing.T) {
	t.Parallel()

	store, _ := NewLimiterStore(nil)
	repo := &mockRatelimitStore{cfg: &models.RatelimitConfig{Rate: "1-M"}}
	rl := NewRateLimitReloader(store, repo, "", zap.NewNop(), 0)
	h := rl.Middleware()(okHandler())

	if codes := doRequests(h, "192.0.2.1", 2); codes[1] != http.StatusTooManyRequests {
		t.Errorf("codes = %v, want second request limited", codes)
	}

	repo.setRate("100-M")
	rl.load(context.Background())
	if rl.Rate() != "100-M" {
		t.Fatalf("Rate() = %q after reload", rl.Rate())
	}
	if codes := doRequests(h, "192.0.2.9", 5); codes[4] != http.StatusOK {
		t.Errorf("codes = %v, want all allowed after reload", codes)
	}
}

func TestRateLimitReloader_FallsBack(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		repo *mockRatelimitStore
	}{
		{name: "store error", repo: &mockRatelimitStore{getErr: errors.New("db down")}},
		{name: "unparseable rate", repo: &mockRatelimitStore{cfg: &models.RatelimitConfig{Rate: "lots"}}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			store, _ := NewLimiterStore(nil)
			rl := NewRateLimitReloader(store, tt.repo, "7-S", zap.NewNop(), 0)
			rl.Middleware()(okHandler())
			if rl.Rate() != "7-S" {
				t.Errorf("Rate() = %q, want default", rl.Rate())
			}
		})
	}
}

func TestRateLimitReloader_LimitResponse(t *testing.T) {
	t.Parallel()

	store, _ := NewLimiterStore(nil)
	rl := NewRateLimitReloader(store, &mockRatelimitStore{cfg: &models.RatelimitConfig{Rate: "1-H"}}, "", zap.NewNop(), 0)
	h := rl.Middleware()(okHandler())

	doRequests(h, "203.0.113.5", 1)
	req := httptest.NewRequest("GET", "/api/v1/tasks", nil)
	req.Header.Set("X-Real-IP", "203.0.113.5")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d", w.Code)
	}
	if w.Header().Get("X-RateLimit-Limit") != "1" {
		t.Errorf("X-RateLimit-Limit = %q", w.Header().Get("X-RateLimit-Limit"))
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
}

func TestRateLimitReloader_SharedAcrossRouters(t *testing.T) {
	t.Parallel()

	store, _ := NewLimiterStore(nil)
	repo := &mockRatelimitStore{cfg: &models.RatelimitConfig{Rate: "100-M"}}
	rl := NewRateLimitReloader(store, repo, "", zap.NewNop(), 0)

	tasks := rl.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	backups := rl.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	if codes := doRequests(tasks, "198.51.100.20", 1); codes[0] != http.StatusOK {
		t.Errorf("tasks handler status = %d, want 200", codes[0])
	}
	if codes := doRequests(backups, "198.51.100.21", 1); codes[0] != http.StatusCreated {
		t.Errorf("backups handler status = %d, want 201", codes[0])
	}
	if repo.setCall != 0 {
		t.Errorf("Set called %d times, want 0", repo.setCall)
	}
}
