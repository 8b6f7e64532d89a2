package router

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"

	"github.com/tbd54566975/cwt-verifier/pkg/credential"
	"github.com/tbd54566975/cwt-verifier/pkg/server/framework"
	svcframework "github.com/tbd54566975/cwt-verifier/pkg/service/framework"
	"github.com/tbd54566975/cwt-verifier/pkg/service/verification"
	"github.com/tbd54566975/cwt-verifier/pkg/verify"
)

type VerificationRouter struct {
	service *verification.Service
}

func NewVerificationRouter(s svcframework.Service) (*VerificationRouter, error) {
	if s == nil {
		return nil, errors.New("service cannot be nil")
	}
	verificationService, ok := s.(*verification.Service)
	if !ok {
		return nil, fmt.Errorf("could not create verification router with service type: %s", s.Type())
	}
	return &VerificationRouter{
		service: verificationService,
	}, nil
}

type VerifyCredentialRequest struct {
	// The COSE_Sign1 encoded credential, base64 encoded with either the standard or the URL alphabet.
	Payload string `json:"payload" validate:"required"`

	// Issuers to accept. Omit to use the configured list; an empty list accepts no issuer.
	TrustedIssuers *[]string `json:"trustedIssuers,omitempty"`

	// Whether to reject credentials past their exp claim. Omit to use the configured default.
	AssertExpiry *bool `json:"assertExpiry,omitempty"`

	// Whether to reject credentials before their nbf claim. Omit to use the configured default.
	AssertNotBefore *bool `json:"assertNotBefore,omitempty"`
}

func (vcr VerifyCredentialRequest) ToServiceRequest() (*verification.VerifyCredentialRequest, error) {
	payload, err := decodePayload(vcr.Payload)
	if err != nil {
		return nil, err
	}
	return &verification.VerifyCredentialRequest{
		Payload:         payload,
		TrustedIssuers:  vcr.TrustedIssuers,
		AssertExpiry:    vcr.AssertExpiry,
		AssertNotBefore: vcr.AssertNotBefore,
	}, nil
}

type VerifyCredentialResponse struct {
	// Whether the credential was verified.
	Verified bool `json:"verified"`

	// The decoded COSE header, present once the payload could be decoded.
	Header *verify.Header `json:"header,omitempty"`

	// The decoded credential, present once its shape was validated.
	Payload *credential.VerifiableCredential `json:"payload,omitempty"`

	// The reason why this credential couldn't be verified.
	Reason *verify.FailureReason `json:"reason,omitempty"`
}

// VerifyCredential godoc
//
// @Summary     Verify Credential
// @Description Verify a CWT encoded credential. The system does the following levels of verification:
// @Description 1. Makes sure the payload decodes and complies with the VC Data Model
// @Description 2. Makes sure the issuer is trusted
// @Description 3. Makes sure the credential is active and not expired
// @Description 4. Makes sure the credential has a valid signature from a key its issuer authorised
// @Tags        VerificationAPI
// @Accept      json
// @Produce     json
// @Param       request body     VerifyCredentialRequest true "request body"
// @Success     200     {object} VerifyCredentialResponse
// @Failure     400     {string} string "Bad request"
// @Failure     500     {string} string "Internal server error"
// @Failure     502     {string} string "Issuer could not be reached"
// @Failure     504     {string} string "Issuer timed out"
// @Router      /v1/verification [put]
func (vr VerificationRouter) VerifyCredential(c *gin.Context) {
	invalidVerifyCredentialRequest := "invalid verify credential request"
	var request VerifyCredentialRequest
	if err := framework.Decode(c.Request, &request); err != nil {
		framework.LoggingRespondErrWithMsg(c, err, invalidVerifyCredentialRequest, http.StatusBadRequest)
		return
	}

	req, err := request.ToServiceRequest()
	if err != nil {
		errMsg := "payload must be base64 encoded"
		framework.LoggingRespondErrWithMsg(c, err, errMsg, http.StatusBadRequest)
		return
	}

	result, err := vr.service.VerifyCredential(c.Request.Context(), *req)
	if err != nil {
		respondVerifyError(c, err)
		return
	}

	resp := VerifyCredentialResponse{
		Verified: result.Verified,
		Header:   result.Header,
		Payload:  result.Payload,
		Reason:   result.Reason,
	}
	framework.Respond(c, resp, http.StatusOK)
}

func respondVerifyError(c *gin.Context, err error) {
	var optionsErr *verify.OptionsError
	if errors.As(err, &optionsErr) {
		framework.LoggingRespondErrWithMsg(c, err, "invalid verify credential request", http.StatusBadRequest)
		return
	}

	var verifyErr *verify.VerifyError
	if !errors.As(err, &verifyErr) {
		framework.LoggingRespondErrWithMsg(c, err, "could not verify credential", http.StatusInternalServerError)
		return
	}
	statusCode := http.StatusInternalServerError
	switch verifyErr.Type {
	case verify.NetworkError:
		statusCode = http.StatusBadGateway
	case verify.TimeoutError:
		statusCode = http.StatusGatewayTimeout
	}
	framework.LoggingRespondTypedErr(c, verifyErr, string(verifyErr.Type), statusCode)
}

// decodePayload accepts base64 in the standard or the URL alphabet, padded or not.
func decodePayload(payload string) ([]byte, error) {
	payload = strings.TrimSpace(payload)
	encoding := base64.StdEncoding
	if strings.ContainsAny(payload, "-_") {
		encoding = base64.URLEncoding
	}
	decoded, err := encoding.WithPadding(base64.NoPadding).DecodeString(strings.TrimRight(payload, "="))
	if err != nil {
		return nil, errors.Wrap(err, "decoding payload")
	}
	if len(decoded) == 0 {
		return nil, errors.New("payload is empty")
	}
	return decoded, nil
}
