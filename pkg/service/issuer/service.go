package issuer

import (
	"context"
	"fmt"
	"time"

	sdkutil "github.com/TBD54566975/ssi-sdk/util"

	"github.com/tbd54566975/cwt-verifier/pkg/credential"
	"github.com/tbd54566975/cwt-verifier/pkg/resolver"
	"github.com/tbd54566975/cwt-verifier/pkg/service/framework"
)

// statusTimeout bounds the backing store check made for readiness.
const statusTimeout = 2 * time.Second

// HealthCheck reports whether the store behind the resolver is reachable.
type HealthCheck func(ctx context.Context) error

type Service struct {
	resolver resolver.IssuerResolver
	health   HealthCheck
}

func (s Service) Type() framework.Type {
	return framework.Issuer
}

func (s Service) Status() framework.Status {
	ae := sdkutil.NewAppendError()
	if s.resolver == nil {
		ae.AppendString("no issuer resolver configured")
	}
	if s.health != nil {
		ctx, cancel := context.WithTimeout(context.Background(), statusTimeout)
		defer cancel()
		if err := s.health(ctx); err != nil {
			ae.AppendString(fmt.Sprintf("cache unavailable: %s", err.Error()))
		}
	}
	if !ae.IsEmpty() {
		return framework.Status{
			Status:  framework.StatusNotReady,
			Message: fmt.Sprintf("issuer service is not ready: %s", ae.Error().Error()),
		}
	}
	return framework.Status{Status: framework.StatusReady}
}

// NewIssuerService wraps a resolver. health may be nil when the resolver has no external store.
func NewIssuerService(r resolver.IssuerResolver, health HealthCheck) (*Service, error) {
	if r == nil {
		return nil, sdkutil.LoggingNewError("could not instantiate the issuer service: resolver is nil")
	}
	return &Service{resolver: r, health: health}, nil
}

type CacheIssuerRequest struct {
	Issuer string
	// Force refetches even when the issuer is already cached. Nil keeps the resolver default.
	Force *bool
}

func (s Service) CacheIssuer(ctx context.Context, request CacheIssuerRequest) error {
	var opts []resolver.CacheIssuerOption
	if request.Force != nil {
		opts = append(opts, resolver.WithForce(*request.Force))
	}
	return s.resolver.CacheIssuer(ctx, request.Issuer, opts...)
}

type ResolveKeyRequest struct {
	Issuer string
	KeyID  string
}

func (s Service) ResolveKey(ctx context.Context, request ResolveKeyRequest) (*credential.PublicKeyJWK, error) {
	return s.resolver.Resolve(ctx, resolver.ResolveParams{Iss: request.Issuer, Kid: request.KeyID})
}
