package router

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"

	"github.com/tbd54566975/cwt-verifier/pkg/credential"
	"github.com/tbd54566975/cwt-verifier/pkg/resolver"
	"github.com/tbd54566975/cwt-verifier/pkg/server/framework"
	svcframework "github.com/tbd54566975/cwt-verifier/pkg/service/framework"
	"github.com/tbd54566975/cwt-verifier/pkg/service/issuer"
)

type IssuerRouter struct {
	service *issuer.Service
}

func NewIssuerRouter(s svcframework.Service) (*IssuerRouter, error) {
	if s == nil {
		return nil, errors.New("service cannot be nil")
	}
	issuerService, ok := s.(*issuer.Service)
	if !ok {
		return nil, fmt.Errorf("could not create issuer router with service type: %s", s.Type())
	}
	return &IssuerRouter{
		service: issuerService,
	}, nil
}

type CacheIssuerRequest struct {
	// The issuer DID, e.g. did:web:example.com
	Issuer string `json:"iss" validate:"required" example:"did:web:example.com"`

	// Whether to refetch an issuer that is already cached. Defaults to true.
	Force *bool `json:"force,omitempty"`
}

// CacheIssuer godoc
//
// @Summary     Cache Issuer
// @Description Fetches an issuer's DID document into the cache so later verifications don't wait on it.
// @Tags        IssuerAPI
// @Accept      json
// @Produce     json
// @Param       request body CacheIssuerRequest true "request body"
// @Success     204
// @Failure     400 {string} string "Bad request"
// @Failure     404 {string} string "Issuer could not be resolved"
// @Failure     502 {string} string "Issuer could not be reached"
// @Failure     504 {string} string "Issuer timed out"
// @Router      /v1/issuers [put]
func (ir IssuerRouter) CacheIssuer(c *gin.Context) {
	var request CacheIssuerRequest
	if err := framework.Decode(c.Request, &request); err != nil {
		framework.LoggingRespondErrWithMsg(c, err, "invalid cache issuer request", http.StatusBadRequest)
		return
	}

	err := ir.service.CacheIssuer(c.Request.Context(), issuer.CacheIssuerRequest{
		Issuer: request.Issuer,
		Force:  request.Force,
	})
	if err != nil {
		respondResolverError(c, err, fmt.Sprintf("could not cache issuer: %s", request.Issuer))
		return
	}

	framework.Respond(c, nil, http.StatusNoContent)
}

type ResolveKeyRequest struct {
	// The issuer DID, e.g. did:web:example.com
	Issuer string `json:"iss" validate:"required" example:"did:web:example.com"`

	// The key id within the issuer's DID document, e.g. key-1
	KeyID string `json:"kid" validate:"required" example:"key-1"`
}

type ResolveKeyResponse struct {
	PublicKeyJWK credential.PublicKeyJWK `json:"publicKeyJwk"`
}

// ResolveKey godoc
//
// @Summary     Resolve Issuer Key
// @Description Resolves the public key an issuer authorised to sign credentials under the given key id.
// @Tags        IssuerAPI
// @Accept      json
// @Produce     json
// @Param       request body     ResolveKeyRequest true "request body"
// @Success     200     {object} ResolveKeyResponse
// @Failure     400     {string} string "Bad request"
// @Failure     404     {string} string "Issuer could not be resolved"
// @Failure     422     {string} string "Issuer key is not usable"
// @Failure     502     {string} string "Issuer could not be reached"
// @Failure     504     {string} string "Issuer timed out"
// @Router      /v1/issuers/keys [put]
func (ir IssuerRouter) ResolveKey(c *gin.Context) {
	var request ResolveKeyRequest
	if err := framework.Decode(c.Request, &request); err != nil {
		framework.LoggingRespondErrWithMsg(c, err, "invalid resolve key request", http.StatusBadRequest)
		return
	}

	key, err := ir.service.ResolveKey(c.Request.Context(), issuer.ResolveKeyRequest{
		Issuer: request.Issuer,
		KeyID:  request.KeyID,
	})
	if err != nil {
		respondResolverError(c, err, fmt.Sprintf("could not resolve key: %s#%s", request.Issuer, request.KeyID))
		return
	}

	framework.Respond(c, ResolveKeyResponse{PublicKeyJWK: *key}, http.StatusOK)
}

func respondResolverError(c *gin.Context, err error, errMsg string) {
	resolverErr, ok := resolver.AsError(err)
	if !ok {
		framework.LoggingRespondErrWithMsg(c, err, errMsg, http.StatusInternalServerError)
		return
	}

	statusCode := http.StatusInternalServerError
	switch resolverErr.Type {
	case resolver.UnableToResolveIssuer:
		statusCode = http.StatusNotFound
	case resolver.InvalidPublicKey:
		statusCode = http.StatusUnprocessableEntity
	case resolver.NetworkError:
		statusCode = http.StatusBadGateway
	case resolver.TimeoutError:
		statusCode = http.StatusGatewayTimeout
	}
	framework.LoggingRespondTypedErr(c, resolverErr, resolverErr.Type.String(), statusCode)
}
