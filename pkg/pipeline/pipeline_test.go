package pipeline

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"admin-dashboard/backend/internal/models"
	apperrors "admin-dashboard/backend/pkg/errors"
	"admin-dashboard/backend/pkg/logger"
	"admin-dashboard/backend/pkg/middleware"
	"admin-dashboard/backend/pkg/observability"
	"admin-dashboard/backend/pkg/validator"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeAuth struct {
	calls int
}

func (f *fakeAuth) Authenticate(_ context.Context, authorization string) (*models.User, error) {
	f.calls++
	if authorization != "Bearer good" {
		return nil, apperrors.TokenMissing()
	}
	return &models.User{ID: 7, Username: "alice"}, nil
}

type envelope struct {
	Error struct {
		Code    string              `json:"code"`
		Message string              `json:"message"`
		Details map[string][]string `json:"details"`
	} `json:"error"`
}

func newEngine(t *testing.T, policy Policy, h Handler) (*gin.Engine, *observability.Metrics) {
	t.Helper()
	m, err := observability.NewMetrics(prometheus.NewRegistry(), nil)
	require.NoError(t, err)

	r := gin.New()
	r.Use(logger.Middleware(logger.Discard()), apperrors.ErrorHandler())
	p := New(m)
	r.POST("/guarded", p.Route(policy, h))
	return r, m
}

func limiter(max int) *middleware.RateLimiter {
	opts := middleware.DefaultRateLimiterOptions()
	opts.Window = time.Minute
	opts.MaxRequests = max
	return middleware.NewRateLimiter(logger.Discard(), opts)
}

func post(r http.Handler, body, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/guarded", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = "10.0.0.1:5555"
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func TestRouteAllGuardsPass(t *testing.T) {
	auth := &fakeAuth{}
	var got *Request
	r, _ := newEngine(t, Policy{Limiter: limiter(5), Schema: validator.Login, Auth: auth}, func(req *Request) error {
		got = req
		req.JSON(http.StatusOK, gin.H{"user": req.User.Username})
		return nil
	})

	w := post(r, `{"username":"alice","password":"secret1"}`, "Bearer good")
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, got)
	assert.Equal(t, "10.0.0.1", got.ClientID)
	assert.Equal(t, "alice", got.Payload["username"])
	assert.Equal(t, uint(7), got.User.ID)
	assert.Equal(t, Handled, got.Stage)
	assert.Equal(t, "4", w.Header().Get("X-RateLimit-Remaining"))
}

func TestRouteRateLimitRunsFirst(t *testing.T) {
	auth := &fakeAuth{}
	called := false
	r, _ := newEngine(t, Policy{Limiter: limiter(1), Schema: validator.Login, Auth: auth}, func(req *Request) error {
		called = true
		return nil
	})

	post(r, `{}`, "")
	w := post(r, `{}`, "")

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, apperrors.CodeRateLimited, decode(t, w).Error.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	assert.False(t, called)
}

func TestRouteValidationBeforeAuth(t *testing.T) {
	auth := &fakeAuth{}
	r, _ := newEngine(t, Policy{Limiter: limiter(10), Schema: validator.Login, Auth: auth}, func(req *Request) error {
		t.Fatal("handler must not run")
		return nil
	})

	w := post(r, `{"username":"alice"}`, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	env := decode(t, w)
	assert.Equal(t, apperrors.CodeValidationFailed, env.Error.Code)
	assert.Equal(t, []string{validator.MsgRequired}, env.Error.Details["password"])
	assert.Zero(t, auth.calls)
}

func TestRouteAuthRejection(t *testing.T) {
	r, _ := newEngine(t, Policy{Auth: &fakeAuth{}}, func(req *Request) error {
		t.Fatal("handler must not run")
		return nil
	})

	w := post(r, ``, "Token abc")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	env := decode(t, w)
	assert.Equal(t, apperrors.CodeTokenMissing, env.Error.Code)
	assert.Equal(t, apperrors.MsgTokenMissing, env.Error.Message)
}

func TestRouteHandlerError(t *testing.T) {
	r, _ := newEngine(t, Policy{}, func(req *Request) error {
		return apperrors.InvalidCredentials()
	})

	w := post(r, ``, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, apperrors.CodeInvalidCredentials, decode(t, w).Error.Code)
}

func TestRouteRejectionsAreCounted(t *testing.T) {
	r, m := newEngine(t, Policy{Auth: &fakeAuth{}}, func(req *Request) error { return nil })
	r.GET("/metrics", gin.WrapH(m.Handler()))

	post(r, ``, "")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := w.Body.String()
	assert.Contains(t, body, "dashboard_pipeline_rejections_total")
	assert.Contains(t, body, `code="TOKEN_MISSING"`)
}
