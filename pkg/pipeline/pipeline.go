// Package pipeline runs the per-route guards (rate limit, schema validation,
// authentication) in a fixed order ahead of an API handler.
package pipeline

import (
	"context"

	"admin-dashboard/backend/internal/models"
	apperrors "admin-dashboard/backend/pkg/errors"
	"admin-dashboard/backend/pkg/logger"
	"admin-dashboard/backend/pkg/middleware"
	"admin-dashboard/backend/pkg/observability"
	"admin-dashboard/backend/pkg/validator"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Stage is how far a request has progressed through its route's guards.
type Stage string

const (
	Received      Stage = "received"
	RateChecked   Stage = "rate_checked"
	Validated     Stage = "validated"
	Authenticated Stage = "authenticated"
	Handled       Stage = "handled"
	Rejected      Stage = "rejected"
)

// Authenticator resolves the user behind an Authorization header value.
type Authenticator interface {
	Authenticate(ctx context.Context, authorization string) (*models.User, error)
}

// Policy lists the guards a route runs. A nil member skips that guard.
type Policy struct {
	Limiter *middleware.RateLimiter
	Schema  *validator.Schema
	Auth    Authenticator
}

// Request is what a handler receives once every guard has passed.
type Request struct {
	*gin.Context

	ClientID string
	// Payload is set when the policy declares a schema.
	Payload validator.Values
	// User is set when the policy authenticates.
	User  *models.User
	Stage Stage
}

// Handler serves a request that passed its guards. A returned error is
// rendered by the error middleware.
type Handler func(*Request) error

// Pipeline builds guarded gin handlers that share tracing and metrics.
type Pipeline struct {
	metrics *observability.Metrics
	tracer  trace.Tracer
}

// New creates a pipeline. metrics may be nil.
func New(metrics *observability.Metrics) *Pipeline {
	return &Pipeline{metrics: metrics, tracer: observability.Tracer()}
}

// Route adapts handler to gin behind the guards named by policy, which run
// rate limit, then validation, then authentication. The first rejection ends
// the request.
func (p *Pipeline) Route(policy Policy, handler Handler) gin.HandlerFunc {
	return func(c *gin.Context) {
		route := c.FullPath()
		ctx, span := p.tracer.Start(c.Request.Context(), "pipeline "+route,
			trace.WithAttributes(attribute.String("http.route", route)))
		defer span.End()
		c.Request = c.Request.WithContext(ctx)

		req := &Request{Context: c, Stage: Received}

		if err := p.guard(req, "rate_limit", func(ctx context.Context) error {
			return rateCheck(req, policy.Limiter)
		}); err != nil {
			return
		}
		req.Stage = RateChecked

		if err := p.guard(req, "validate", func(ctx context.Context) error {
			return validate(req, policy.Schema)
		}); err != nil {
			return
		}
		req.Stage = Validated

		if err := p.guard(req, "authenticate", func(ctx context.Context) error {
			return authenticate(ctx, req, policy.Auth)
		}); err != nil {
			return
		}
		req.Stage = Authenticated

		if p.metrics != nil {
			p.metrics.RecordHandled(ctx, route)
		}
		err := handler(req)
		req.Stage = Handled
		if err != nil {
			span.RecordError(err)
			if apperrors.GetStatusCode(err) >= 500 {
				span.SetStatus(codes.Error, apperrors.GetErrorCode(err))
			}
			c.Error(err)
			c.Abort()
		}
	}
}

// guard runs one stage in its own span. On failure the request is marked
// rejected, counted, and aborted with the error.
func (p *Pipeline) guard(req *Request, stage string, fn func(context.Context) error) error {
	ctx, span := p.tracer.Start(req.Request.Context(), stage)
	defer span.End()

	err := fn(ctx)
	if err == nil {
		return nil
	}

	code := apperrors.GetErrorCode(err)
	span.SetAttributes(attribute.String("error.code", code))
	span.SetStatus(codes.Error, code)

	req.Stage = Rejected
	if p.metrics != nil {
		p.metrics.RecordRejection(ctx, req.FullPath(), stage, code)
	}
	req.Error(err)
	req.Abort()
	return err
}

func rateCheck(req *Request, limiter *middleware.RateLimiter) error {
	if limiter == nil {
		req.ClientID = middleware.ClientID(req.Context)
		return nil
	}
	clientID, err := limiter.Check(req.Context)
	req.ClientID = clientID
	logger.SetRequestLogger(req.Context, logger.FromGin(req.Context).WithClientID(clientID))
	return err
}

func validate(req *Request, schema *validator.Schema) error {
	if schema == nil {
		return nil
	}
	values, errs := schema.Validate(validator.Decode(req.Request))
	if len(errs) > 0 {
		return apperrors.ValidationFailed(errs)
	}
	req.Payload = values
	return nil
}

func authenticate(ctx context.Context, req *Request, auth Authenticator) error {
	if auth == nil {
		return nil
	}
	user, err := auth.Authenticate(ctx, req.GetHeader("Authorization"))
	if err != nil {
		return err
	}
	req.User = user
	logger.SetRequestLogger(req.Context, logger.FromGin(req.Context).WithUserID(user.ID))
	return nil
}
