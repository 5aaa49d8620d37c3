package health

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"admin-dashboard/backend/pkg/logger"

	"github.com/gin-gonic/gin"
	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// Status represents the health status of a component
type Status string

const (
	// StatusUp indicates a component is working correctly
	StatusUp Status = "up"
	// StatusDown indicates a component is not working
	StatusDown Status = "down"
	// StatusDegraded indicates a component is working but with reduced functionality
	StatusDegraded Status = "degraded"
)

// checkTimeout bounds a single check run.
const checkTimeout = 5 * time.Second

// Component represents a system component that can be health-checked
type Component struct {
	Name        string    `json:"name"`
	Status      Status    `json:"status"`
	Description string    `json:"description,omitempty"`
	Error       string    `json:"error,omitempty"`
	Critical    bool      `json:"critical"`
	LastChecked time.Time `json:"last_checked"`
}

// Check represents a health check function
type Check func(ctx context.Context) (Status, string, error)

// Checker manages health checks for the system. Results are published to
// the HTTP handler and to a gRPC health server.
type Checker struct {
	checks     map[string]Check
	components map[string]*Component
	mutex      sync.RWMutex
	grpc       *grpchealth.Server
	log        *logger.Logger
	now        func() time.Time
}

// NewChecker creates a new health checker
func NewChecker(log *logger.Logger) *Checker {
	checker := &Checker{
		checks:     make(map[string]Check),
		components: make(map[string]*Component),
		grpc:       grpchealth.NewServer(),
		log:        log,
		now:        time.Now,
	}

	checker.RegisterCheck("self", false, func(context.Context) (Status, string, error) {
		return StatusUp, "Health checker is running", nil
	})
	// Report NOT_SERVING until the first run.
	checker.grpc.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)

	return checker
}

// RegisterCheck registers a new health check. A critical component that is
// down makes the whole system unhealthy.
func (c *Checker) RegisterCheck(name string, critical bool, check Check) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.checks[name] = check
	c.components[name] = &Component{
		Name:        name,
		Status:      StatusDown,
		Description: "Not checked yet",
		Critical:    critical,
	}
}

// RunChecks executes all registered health checks
func (c *Checker) RunChecks(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	c.mutex.Lock()
	for name, check := range c.checks {
		status, description, err := check(ctx)

		component := c.components[name]
		component.Status = status
		component.Description = description
		component.LastChecked = c.now()

		if err != nil {
			component.Error = err.Error()
			c.log.Error("Health check failed",
				"component", name,
				"status", string(status),
				"error", err.Error(),
			)
		} else {
			component.Error = ""
			c.log.Debug("Health check completed",
				"component", name,
				"status", string(status),
			)
		}
	}
	c.mutex.Unlock()

	serving := healthpb.HealthCheckResponse_SERVING
	if !c.IsSystemHealthy() {
		serving = healthpb.HealthCheckResponse_NOT_SERVING
	}
	c.grpc.SetServingStatus("", serving)
}

// GetStatus returns the current health status
func (c *Checker) GetStatus() map[string]*Component {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	result := make(map[string]*Component, len(c.components))
	for k, v := range c.components {
		componentCopy := *v
		result[k] = &componentCopy
	}

	return result
}

// IsSystemHealthy returns true if all critical components are up
func (c *Checker) IsSystemHealthy() bool {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	for _, component := range c.components {
		if component.Critical && component.Status == StatusDown {
			return false
		}
	}
	return true
}

// GRPCServer is the health service kept in step with RunChecks.
func (c *Checker) GRPCServer() *grpchealth.Server {
	return c.grpc
}

// Handler serves the component report; 503 when a critical component is down.
func (c *Checker) Handler() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		status := "ok"
		code := 200
		if !c.IsSystemHealthy() {
			status = "unavailable"
			code = 503
		}
		ctx.JSON(code, gin.H{
			"status":     status,
			"timestamp":  c.now().UTC().Format(time.RFC3339),
			"components": c.GetStatus(),
		})
	}
}

// RegisterDatabaseCheck registers a critical ping check against db.
func (c *Checker) RegisterDatabaseCheck(db *sql.DB) {
	c.RegisterCheck("database", true, func(ctx context.Context) (Status, string, error) {
		if err := db.PingContext(ctx); err != nil {
			return StatusDown, "Database connection failed", err
		}
		return StatusUp, "Database connection is established", nil
	})
}

// RegisterPingCheck registers a non-critical dependency check; a failure
// degrades rather than downs the component.
func (c *Checker) RegisterPingCheck(name string, ping func(context.Context) error) {
	c.RegisterCheck(name, false, func(ctx context.Context) (Status, string, error) {
		if err := ping(ctx); err != nil {
			return StatusDegraded, name + " is unreachable", err
		}
		return StatusUp, name + " is reachable", nil
	})
}
