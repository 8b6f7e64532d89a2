package verify

import (
	"github.com/tbd54566975/cwt-verifier/internal/validation"
	"github.com/tbd54566975/cwt-verifier/pkg/credential"
	"github.com/tbd54566975/cwt-verifier/pkg/resolver"
)

// Options configures a single verification.
type Options struct {
	// Payload is the COSE_Sign1 encoded credential.
	Payload []byte `json:"payload" validate:"required"`
	// TrustedIssuers restricts accepted issuers. Nil skips the check, an empty list trusts nobody.
	TrustedIssuers []string `json:"trustedIssuers,omitempty"`
	// AssertExpiry rejects credentials whose exp claim is in the past.
	AssertExpiry bool `json:"assertExpiry"`
	// AssertNotBefore rejects credentials whose nbf claim is in the future.
	AssertNotBefore bool `json:"assertNotBefore"`
	// IssuerResolver looks up issuer keys. Nil uses the verifier's did:web resolver.
	IssuerResolver resolver.IssuerResolver `json:"-" validate:"-"`
}

// Header is the decoded COSE header.
type Header struct {
	// See kid under https://datatracker.ietf.org/doc/html/rfc8152#section-3.1
	KeyID string `json:"kid"`
	// See alg under https://datatracker.ietf.org/doc/html/rfc8152#section-3.1
	Algorithm string `json:"alg"`
}

type FailureReasonType string

const (
	PayloadInvalid         FailureReasonType = "PayloadInvalid"
	UnsupportedAlgorithm   FailureReasonType = "UnsupportedAlgorithm"
	IssuerNotTrusted       FailureReasonType = "IssuerNotTrusted"
	IssuerPublicKeyInvalid FailureReasonType = "IssuerPublicKeyInvalid"
	SignatureInvalid       FailureReasonType = "SignatureInvalid"
	Expired                FailureReasonType = "Expired"
	NotActive              FailureReasonType = "NotActive"
)

// FailureReason explains why a credential did not verify.
type FailureReason struct {
	Type    FailureReasonType `json:"type"`
	Message string            `json:"message"`
}

// Result is the outcome of a verification that ran to completion. Header and Payload hold whatever
// was decoded before the verification stopped.
type Result struct {
	Verified bool                             `json:"verified"`
	Header   *Header                          `json:"header,omitempty"`
	Payload  *credential.VerifiableCredential `json:"payload,omitempty"`
	Reason   *FailureReason                   `json:"reason,omitempty"`
}

type ErrorType string

const (
	NetworkError ErrorType = "NetworkError"
	TimeoutError ErrorType = "TimeoutError"
	UnknownError ErrorType = "UnknownError"
)

// VerifyError is an infrastructure fault that stopped a verification before it could reach a verdict.
type VerifyError struct {
	Type    ErrorType
	Message string
	Cause   error
}

func (e *VerifyError) Error() string {
	return e.Message
}

func (e *VerifyError) Unwrap() error {
	return e.Cause
}

// OptionsError is returned for options that break the calling contract, such as a missing payload.
type OptionsError struct {
	Fields validation.Errors
}

func (e *OptionsError) Error() string {
	return "invalid verify options: " + e.Fields.Error()
}
