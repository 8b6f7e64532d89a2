package verification

import (
	"context"
	"fmt"

	sdkutil "github.com/TBD54566975/ssi-sdk/util"

	"github.com/tbd54566975/cwt-verifier/config"
	"github.com/tbd54566975/cwt-verifier/pkg/service/framework"
	"github.com/tbd54566975/cwt-verifier/pkg/verify"
)

type Service struct {
	config   config.VerifierConfig
	verifier *verify.Verifier
}

func (s Service) Type() framework.Type {
	return framework.Verification
}

func (s Service) Status() framework.Status {
	ae := sdkutil.NewAppendError()
	if s.verifier == nil {
		ae.AppendString("no verifier configured")
	}
	if !ae.IsEmpty() {
		return framework.Status{
			Status:  framework.StatusNotReady,
			Message: fmt.Sprintf("verification service is not ready: %s", ae.Error().Error()),
		}
	}
	return framework.Status{Status: framework.StatusReady}
}

func (s Service) Config() config.VerifierConfig {
	return s.config
}

func NewVerificationService(config config.VerifierConfig, verifier *verify.Verifier) (*Service, error) {
	if verifier == nil {
		return nil, sdkutil.LoggingNewError("could not instantiate the verification service: verifier is nil")
	}
	return &Service{config: config, verifier: verifier}, nil
}

// VerifyCredentialRequest carries a payload and the per request overrides of the configured defaults.
// Unset overrides fall back to the service config.
type VerifyCredentialRequest struct {
	Payload         []byte
	TrustedIssuers  *[]string
	AssertExpiry    *bool
	AssertNotBefore *bool
}

func (s Service) VerifyCredential(ctx context.Context, request VerifyCredentialRequest) (*verify.Result, error) {
	return s.verifier.Verify(ctx, s.options(request))
}

func (s Service) options(request VerifyCredentialRequest) verify.Options {
	opts := verify.Options{
		Payload:         request.Payload,
		AssertExpiry:    s.config.AssertExpiry,
		AssertNotBefore: s.config.AssertNotBefore,
	}
	// an empty configured list means no restriction, while an explicit empty list in a request trusts nobody
	if len(s.config.TrustedIssuers) > 0 {
		opts.TrustedIssuers = s.config.TrustedIssuers
	}
	if request.TrustedIssuers != nil {
		opts.TrustedIssuers = *request.TrustedIssuers
		if opts.TrustedIssuers == nil {
			opts.TrustedIssuers = []string{}
		}
	}
	if request.AssertExpiry != nil {
		opts.AssertExpiry = *request.AssertExpiry
	}
	if request.AssertNotBefore != nil {
		opts.AssertNotBefore = *request.AssertNotBefore
	}
	return opts
}
