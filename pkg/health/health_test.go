package health

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"

	"admin-dashboard/backend/pkg/logger"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/test/bufconn"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func grpcStatus(t *testing.T, c *Checker) healthpb.HealthCheckResponse_ServingStatus {
	t.Helper()
	resp, err := c.GRPCServer().Check(context.Background(), &healthpb.HealthCheckRequest{})
	require.NoError(t, err)
	return resp.Status
}

func TestDatabaseCheck(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	c := NewChecker(logger.Discard())
	c.RegisterDatabaseCheck(db)
	assert.False(t, c.IsSystemHealthy(), "unchecked critical component counts as down")
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, grpcStatus(t, c))

	mock.ExpectPing()
	c.RunChecks(context.Background())
	assert.True(t, c.IsSystemHealthy())
	assert.Equal(t, StatusUp, c.GetStatus()["database"].Status)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, grpcStatus(t, c))

	mock.ExpectPing().WillReturnError(errors.New("connection refused"))
	c.RunChecks(context.Background())
	assert.False(t, c.IsSystemHealthy())
	db1 := c.GetStatus()["database"]
	assert.Equal(t, StatusDown, db1.Status)
	assert.Equal(t, "connection refused", db1.Error)
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, grpcStatus(t, c))

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNonCriticalCheckDegrades(t *testing.T) {
	c := NewChecker(logger.Discard())
	c.RegisterPingCheck("redis", func(context.Context) error { return errors.New("down") })
	c.RunChecks(context.Background())

	assert.True(t, c.IsSystemHealthy())
	assert.Equal(t, StatusDegraded, c.GetStatus()["redis"].Status)
}

func TestHandler(t *testing.T) {
	c := NewChecker(logger.Discard())
	c.RegisterCheck("database", true, func(context.Context) (Status, string, error) {
		return StatusDown, "no db", errors.New("boom")
	})

	r := gin.New()
	r.GET("/health", c.Handler())

	c.RunChecks(context.Background())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	var body struct {
		Status     string                `json:"status"`
		Components map[string]*Component `json:"components"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "unavailable", body.Status)
	assert.Equal(t, StatusDown, body.Components["database"].Status)
	assert.Equal(t, StatusUp, body.Components["self"].Status)
}

func TestGRPCServer(t *testing.T) {
	c := NewChecker(logger.Discard())
	c.RunChecks(context.Background())

	lis := bufconn.Listen(1 << 20)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- NewGRPCServer("", c, logger.Discard()).ServeListener(ctx, lis) }()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	defer conn.Close()

	resp, err := healthpb.NewHealthClient(conn).Check(context.Background(), &healthpb.HealthCheckRequest{})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.Status)

	cancel()
	assert.NoError(t, <-done)
}
