// Package verify checks a CWT verifiable credential end to end: decoding, shape, trust, validity
// window and signature.
package verify

import (
	"context"
	"expvar"
	"slices"
	"sync"

	"github.com/benbjohnson/clock"
	"github.com/sirupsen/logrus"

	"github.com/tbd54566975/cwt-verifier/internal/cose"
	"github.com/tbd54566975/cwt-verifier/internal/cwt"
	"github.com/tbd54566975/cwt-verifier/internal/keyaccess"
	"github.com/tbd54566975/cwt-verifier/internal/validation"
	"github.com/tbd54566975/cwt-verifier/pkg/credential"
	"github.com/tbd54566975/cwt-verifier/pkg/resolver"
)

// outcomes counts results by failure reason, or "Verified".
var outcomes = expvar.NewMap("verifications")

// Verifier runs verifications against an injectable clock. The default did:web resolver is built on first
// use and shared by every call that does not bring its own.
type Verifier struct {
	clock clock.Clock

	resolverOnce    sync.Once
	defaultResolver resolver.IssuerResolver
	newResolver     func() resolver.IssuerResolver
}

type Option func(*Verifier)

// WithClock replaces the wall clock used for nbf and exp checks.
func WithClock(c clock.Clock) Option {
	return func(v *Verifier) {
		v.clock = c
	}
}

// WithDefaultResolver sets the resolver used when Options.IssuerResolver is nil.
func WithDefaultResolver(r resolver.IssuerResolver) Option {
	return func(v *Verifier) {
		v.newResolver = func() resolver.IssuerResolver { return r }
	}
}

func NewVerifier(opts ...Option) *Verifier {
	v := &Verifier{
		clock: clock.New(),
		newResolver: func() resolver.IssuerResolver {
			return resolver.NewDIDWebResolver()
		},
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

var defaultVerifier = NewVerifier()

// Verify checks a credential with the process wide verifier.
func Verify(ctx context.Context, opts Options) (*Result, error) {
	return defaultVerifier.Verify(ctx, opts)
}

func (v *Verifier) resolver(opts Options) resolver.IssuerResolver {
	if opts.IssuerResolver != nil {
		return opts.IssuerResolver
	}
	v.resolverOnce.Do(func() {
		v.defaultResolver = v.newResolver()
	})
	return v.defaultResolver
}

// Verify decodes the payload and checks it in order: credential shape, header, issuer trust, validity
// window, issuer key and signature. A credential that fails a check yields a Result with a reason and a
// nil error. An error is returned only for invalid options or when the issuer key could not be resolved
// because of a network, timeout or unknown fault.
func (v *Verifier) Verify(ctx context.Context, opts Options) (*Result, error) {
	if errs := validation.Struct(opts); len(errs) > 0 {
		return nil, &OptionsError{Fields: errs}
	}

	result, verifyErr := v.verify(ctx, opts)
	if verifyErr != nil {
		outcomes.Add(string(verifyErr.Type), 1)
		return nil, verifyErr
	}
	if result.Verified {
		outcomes.Add("Verified", 1)
	} else {
		outcomes.Add(string(result.Reason.Type), 1)
		logrus.Debugf("credential not verified: %s: %s", result.Reason.Type, result.Reason.Message)
	}
	return result, nil
}

func (v *Verifier) verify(ctx context.Context, opts Options) (*Result, *VerifyError) {
	result := new(Result)
	fail := func(reasonType FailureReasonType, message string) (*Result, *VerifyError) {
		result.Reason = &FailureReason{Type: reasonType, Message: message}
		return result, nil
	}

	envelope, err := cose.Decode(opts.Payload)
	if err != nil {
		logrus.WithError(err).Debug("decoding payload")
		return fail(PayloadInvalid, "Failed to decode cose")
	}

	claims := cwt.DecodeClaims(envelope.Claims)
	vc, errs := credential.ValidateClaims(claims)
	if len(errs) > 0 {
		logrus.WithError(errs).Debug("validating credential claims")
		return fail(PayloadInvalid, "Invalid CWT VC")
	}
	result.Payload = vc

	kid, err := envelope.KeyID()
	if err != nil {
		return fail(PayloadInvalid, "Failed to get kid from payload")
	}
	alg, err := envelope.Algorithm()
	if err != nil {
		return fail(PayloadInvalid, "Failed to get alg from payload")
	}
	result.Header = &Header{KeyID: kid, Algorithm: alg.String()}
	if alg != cose.AlgorithmES256 {
		return fail(UnsupportedAlgorithm, "Unsupported algorithm, expect ES256 encoded payload")
	}

	if vc.Issuer == "" {
		return fail(PayloadInvalid, "Missing iss")
	}
	if opts.TrustedIssuers != nil && !slices.Contains(opts.TrustedIssuers, vc.Issuer) {
		return fail(IssuerNotTrusted, "Issuer not trusted")
	}

	nowMillis := float64(v.clock.Now().UnixMilli())
	if opts.AssertNotBefore && vc.NotBefore != nil && *vc.NotBefore*1000 > nowMillis {
		return fail(NotActive, "Credential not active, notBefore is greater than current time")
	}
	if opts.AssertExpiry && vc.Expiry != nil && nowMillis > *vc.Expiry*1000 {
		return fail(Expired, "Credential is expired, current time is greater than expiry")
	}

	key, err := v.resolver(opts).Resolve(ctx, resolver.ResolveParams{Iss: vc.Issuer, Kid: kid})
	if err != nil {
		if verifyErr := escalate(err); verifyErr != nil {
			return nil, verifyErr
		}
		logrus.WithError(err).Debugf("resolving key %s for issuer %s", kid, vc.Issuer)
		return fail(IssuerPublicKeyInvalid, "Having problem to resolve issuer public key")
	}

	ecKey, errs := credential.ValidateECPublicKeyJWK(*key)
	if len(errs) > 0 {
		return fail(IssuerPublicKeyInvalid, "Invalid issuer public key, expect P-256 public key")
	}

	verified, err := envelope.Verify(keyaccess.ES256Verifier(*ecKey))
	if err != nil {
		return nil, &VerifyError{Type: UnknownError, Message: "Failed to verify signature", Cause: err}
	}
	if !verified {
		return fail(SignatureInvalid, "Signature invalid")
	}
	result.Verified = true
	return result, nil
}

// escalate turns resolver faults that are not about the issuer itself into a VerifyError. It returns nil
// for every other error.
func escalate(err error) *VerifyError {
	resolverErr, ok := resolver.AsError(err)
	if !ok {
		return nil
	}
	switch resolverErr.Type {
	case resolver.NetworkError:
		return &VerifyError{Type: NetworkError, Message: "Network error occurred while resolving issuer public key", Cause: err}
	case resolver.TimeoutError:
		return &VerifyError{Type: TimeoutError, Message: "Timeout while resolving issuer public key", Cause: err}
	case resolver.UnknownError:
		return &VerifyError{Type: UnknownError, Message: resolverErr.Message, Cause: err}
	}
	return nil
}
