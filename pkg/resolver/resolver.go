// Package resolver finds the public key an issuer signed a credential with.
package resolver

import (
	"context"

	"github.com/pkg/errors"

	"github.com/tbd54566975/cwt-verifier/pkg/credential"
)

type ErrorType string

const (
	UnableToResolveIssuer ErrorType = "UnableToResolveIssuer"
	InvalidPublicKey      ErrorType = "InvalidPublicKey"
	NetworkError          ErrorType = "NetworkError"
	UnknownError          ErrorType = "UnknownError"
	TimeoutError          ErrorType = "TimeoutError"
)

func (t ErrorType) String() string {
	return string(t)
}

// Error is a failed issuer key lookup.
type Error struct {
	Type    ErrorType
	Message string
	Cause   error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// AsError returns the resolver error in err's chain, if any.
func AsError(err error) (*Error, bool) {
	var resolverErr *Error
	if errors.As(err, &resolverErr) {
		return resolverErr, true
	}
	return nil, false
}

// ResolveParams names the key to look up.
type ResolveParams struct {
	// Issuer identifier, e.g. did:web:organization.com
	Iss string `json:"iss" validate:"required"`
	// Key identifier within the issuer, e.g. key-1
	Kid string `json:"kid" validate:"required"`
}

type cacheIssuerOptions struct {
	force bool
}

type CacheIssuerOption func(*cacheIssuerOptions)

// WithForce controls whether CacheIssuer refetches when the issuer is already cached. It refetches by
// default.
func WithForce(force bool) CacheIssuerOption {
	return func(o *cacheIssuerOptions) {
		o.force = force
	}
}

// IssuerResolver resolves issuer public keys and warms whatever cache backs them.
type IssuerResolver interface {
	Resolve(ctx context.Context, params ResolveParams) (*credential.PublicKeyJWK, error)
	CacheIssuer(ctx context.Context, iss string, opts ...CacheIssuerOption) error
}
