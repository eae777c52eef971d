package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/quiz-tournament/pkg/auth"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// fakeCounter - счётчик в памяти вместо Redis
type fakeCounter struct {
	mu     sync.Mutex
	counts map[string]int64
	err    error
}

func (f *fakeCounter) Increment(_ context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, 0, f.err
	}
	if f.counts == nil {
		f.counts = map[string]int64{}
	}
	f.counts[key]++
	return f.counts[key], window, nil
}

func perform(router *gin.Engine, method, target string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	for k, v := range header {
		req.Header[k] = v
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func okHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func TestExtractUUIDParam(t *testing.T) {
	router := gin.New()
	router.GET("/t/:id", ExtractUUIDParam("id", TournamentIDKey), func(c *gin.Context) {
		c.String(http.StatusOK, c.MustGet(TournamentIDKey).(uuid.UUID).String())
	})

	id := uuid.New()
	w := perform(router, http.MethodGet, "/t/"+id.String(), nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, id.String(), w.Body.String())

	w = perform(router, http.MethodGet, "/t/42", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid_param")
}

func TestRequireTicket(t *testing.T) {
	tickets, err := auth.NewTicketService("secret", 60)
	require.NoError(t, err)

	router := gin.New()
	router.POST("/t/:id", ExtractUUIDParam("id", TournamentIDKey), RequireTicket(tickets), okHandler)

	id := uuid.New()
	valid, err := tickets.Issue(id.String())
	require.NoError(t, err)
	foreign, err := tickets.Issue(uuid.NewString())
	require.NoError(t, err)

	tests := []struct {
		name      string
		target    string
		header    http.Header
		wantCode  int
		wantError string
	}{
		{"Bearer", "/t/" + id.String(), http.Header{"Authorization": {"Bearer " + valid}}, http.StatusOK, ""},
		{"заголовок тикета", "/t/" + id.String(), http.Header{TicketHeader: {valid}}, http.StatusOK, ""},
		{"query-параметр", "/t/" + id.String() + "?ticket=" + valid, nil, http.StatusOK, ""},
		{"без тикета", "/t/" + id.String(), nil, http.StatusUnauthorized, "ticket_missing"},
		{"неверная схема", "/t/" + id.String(), http.Header{"Authorization": {"Basic " + valid}}, http.StatusUnauthorized, "ticket_missing"},
		{"чужой турнир", "/t/" + id.String(), http.Header{"Authorization": {"Bearer " + foreign}}, http.StatusUnauthorized, "ticket_mismatch"},
		{"мусор", "/t/" + id.String(), http.Header{"Authorization": {"Bearer abc"}}, http.StatusUnauthorized, "ticket_invalid"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := perform(router, http.MethodPost, tt.target, tt.header)
			assert.Equal(t, tt.wantCode, w.Code)
			if tt.wantError != "" {
				assert.Contains(t, w.Body.String(), tt.wantError)
			}
		})
	}
}

func TestRequireAdminToken(t *testing.T) {
	enabled := gin.New()
	enabled.POST("/admin", RequireAdminToken("s3cret"), okHandler)

	w := perform(enabled, http.MethodPost, "/admin", http.Header{"X-Admin-Token": {"s3cret"}})
	assert.Equal(t, http.StatusOK, w.Code)

	w = perform(enabled, http.MethodPost, "/admin", http.Header{"X-Admin-Token": {"wrong"}})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "admin_required")

	disabled := gin.New()
	disabled.POST("/admin", RequireAdminToken(""), okHandler)
	w = perform(disabled, http.MethodPost, "/admin", http.Header{"X-Admin-Token": {""}})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "admin_disabled", "пустой токен отключает маршрут")
}

func TestRateLimiter_Limit(t *testing.T) {
	limiter := &RateLimiter{store: &fakeCounter{}}
	router := gin.New()
	router.GET("/limited", limiter.Limit(RateLimitConfig{MaxRequests: 2, Window: time.Minute, KeyPrefix: "rl:test"}), okHandler)

	for i := 0; i < 2; i++ {
		w := perform(router, http.MethodGet, "/limited", nil)
		require.Equal(t, http.StatusOK, w.Code)
	}
	w := perform(router, http.MethodGet, "/limited", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
	assert.Equal(t, "60", w.Header().Get("Retry-After"))
	assert.Contains(t, w.Body.String(), "rate_limited")
}

func TestRateLimiter_FailOpen(t *testing.T) {
	limiter := &RateLimiter{store: &fakeCounter{err: errors.New("connection refused")}}
	router := gin.New()
	router.GET("/limited", limiter.Limit(RateLimitConfig{MaxRequests: 1, Window: time.Minute}), okHandler)

	for i := 0; i < 3; i++ {
		w := perform(router, http.MethodGet, "/limited", nil)
		assert.Equal(t, http.StatusOK, w.Code, "при недоступном Redis запросы пропускаются")
	}
}

func TestTournamentRateLimitConfig_Defaults(t *testing.T) {
	cfg := TournamentRateLimitConfig(0, 0)
	assert.Equal(t, 120, cfg.MaxRequests)
	assert.Equal(t, time.Minute, cfg.Window)

	cfg = TournamentRateLimitConfig(5, 10*time.Second)
	assert.Equal(t, 5, cfg.MaxRequests)
	assert.Equal(t, 10*time.Second, cfg.Window)
}
