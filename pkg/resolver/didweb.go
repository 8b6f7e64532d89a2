package resolver

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/tbd54566975/cwt-verifier/internal/did"
	"github.com/tbd54566975/cwt-verifier/internal/request"
	"github.com/tbd54566975/cwt-verifier/pkg/cache"
	"github.com/tbd54566975/cwt-verifier/pkg/credential"
)

// DIDWebResolver resolves issuers published as did:web documents. Documents are cached between calls.
type DIDWebResolver struct {
	cache   cache.Cache[did.Document]
	client  *http.Client
	timeout time.Duration
}

var _ IssuerResolver = (*DIDWebResolver)(nil)

type Option func(*DIDWebResolver)

// WithCache shares a document cache. An in-memory cache is used otherwise.
func WithCache(c cache.Cache[did.Document]) Option {
	return func(r *DIDWebResolver) {
		r.cache = c
	}
}

// WithTimeout bounds each document fetch. Defaults to ten seconds.
func WithTimeout(timeout time.Duration) Option {
	return func(r *DIDWebResolver) {
		if timeout > 0 {
			r.timeout = timeout
		}
	}
}

// WithHTTPClient replaces the client used to fetch documents.
func WithHTTPClient(client *http.Client) Option {
	return func(r *DIDWebResolver) {
		r.client = client
	}
}

func NewDIDWebResolver(opts ...Option) *DIDWebResolver {
	r := &DIDWebResolver{timeout: request.DefaultTimeout}
	for _, opt := range opts {
		opt(r)
	}
	if r.cache == nil {
		r.cache = cache.NewMemoryCache[did.Document]()
	}
	if r.client == nil {
		r.client = request.NewClient(r.timeout)
	}
	return r
}

// Resolve fetches the issuer's document, cache first, and returns the key iss#kid provided it is
// authorised as an assertion method.
func (r *DIDWebResolver) Resolve(ctx context.Context, params ResolveParams) (*credential.PublicKeyJWK, error) {
	if !strings.HasPrefix(params.Iss, did.WebPrefix) {
		return nil, &Error{Type: UnableToResolveIssuer, Message: "Expected DID method to be " + did.WebPrefix}
	}
	didURL := params.Iss + "#" + params.Kid

	doc, err := did.GetDIDDocument(ctx, did.GetDocumentParams{
		Cache:   r.cache,
		Client:  r.client,
		DID:     params.Iss,
		Timeout: r.timeout,
	})
	if err != nil {
		return nil, fromDocumentError(err)
	}

	node, err := did.Dereference(didURL, doc)
	if err != nil {
		return nil, &Error{Type: UnableToResolveIssuer, Message: errorMessage(err), Cause: err}
	}

	if !doc.IsAssertionMethod(didURL) {
		return nil, &Error{
			Type:    InvalidPublicKey,
			Message: "public key not authorised as an assertionMethod in DID document",
		}
	}

	method, errs := did.ValidateVerificationMethod(node)
	if len(errs) > 0 {
		return nil, &Error{Type: UnableToResolveIssuer, Message: "Invalid DID Document public key", Cause: errs}
	}
	key, errs := credential.ValidatePublicKeyJWK(method.PublicKeyJWK.PublicKeyJWK())
	if len(errs) > 0 {
		return nil, &Error{Type: InvalidPublicKey, Message: "Invalid public key", Cause: errs}
	}
	return key, nil
}

// CacheIssuer fetches the issuer's document into the cache without looking up any key.
func (r *DIDWebResolver) CacheIssuer(ctx context.Context, iss string, opts ...CacheIssuerOption) error {
	o := cacheIssuerOptions{force: true}
	for _, opt := range opts {
		opt(&o)
	}

	if !strings.HasPrefix(iss, did.WebPrefix) {
		return &Error{Type: UnableToResolveIssuer, Message: "Expected DID method to be " + did.WebPrefix}
	}
	if _, err := did.GetDIDDocument(ctx, did.GetDocumentParams{
		Cache:   r.cache,
		Client:  r.client,
		DID:     iss,
		Force:   o.force,
		Timeout: r.timeout,
	}); err != nil {
		return fromDocumentError(err)
	}
	return nil
}

// fromDocumentError keeps the category of transport failures the caller may want to retry and folds
// everything else into UnableToResolveIssuer.
func fromDocumentError(err error) *Error {
	errType := UnableToResolveIssuer
	switch {
	case request.IsType(err, request.NetworkError):
		errType = NetworkError
	case request.IsType(err, request.UnknownError):
		errType = UnknownError
	case request.IsType(err, request.TimeoutError):
		errType = TimeoutError
	}
	logrus.WithError(err).Debugf("resolving DID document failed: %s", errType)
	return &Error{Type: errType, Message: errorMessage(err), Cause: err}
}

// errorMessage is the message of a layered error without the cause appended.
func errorMessage(err error) string {
	switch e := err.(type) {
	case *did.DocumentError:
		return e.Message
	case *did.DereferenceError:
		return e.Message
	case *request.Error:
		return e.Message
	}
	return err.Error()
}
