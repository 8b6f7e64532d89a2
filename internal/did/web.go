package did

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/sirupsen/logrus"

	"github.com/tbd54566975/cwt-verifier/internal/request"
	"github.com/tbd54566975/cwt-verifier/pkg/cache"
)

// CreateURLFromDID derives the HTTPS location of a did:web document. An identifier with a path is
// served from <path>/did.json, a bare domain from /.well-known/did.json.
func CreateURLFromDID(did string) (string, error) {
	var domain string
	if len(did) > len(WebPrefix) {
		domain = did[len(WebPrefix)+1:]
	}
	domain = strings.ReplaceAll(strings.ToLower(domain), ":", "/")
	hasPath := strings.Contains(domain, "/")

	decoded, err := url.PathUnescape(domain)
	if err != nil {
		return "", &DocumentError{Type: InvalidDid, Message: "Invalid DID", Cause: err}
	}
	if hasPath {
		return "https://" + decoded + "/did.json", nil
	}
	return "https://" + decoded + "/.well-known/did.json", nil
}

// ResolveDIDWebDocument fetches and validates the document for a did:web identifier. Transport
// failures are returned as *request.Error, everything else as *DocumentError.
func ResolveDIDWebDocument(ctx context.Context, client *http.Client, did string, timeout time.Duration) (*Document, error) {
	if !strings.HasPrefix(did, WebPrefix) {
		return nil, &DocumentError{Type: InvalidDidMethod, Message: "Expected DID method to be " + WebPrefix}
	}

	docURL, err := CreateURLFromDID(did)
	if err != nil {
		return nil, err
	}

	logrus.Debugf("fetching DID document for %s from %s", did, docURL)
	body, err := request.Get(ctx, client, docURL, timeout)
	if err != nil {
		return nil, err
	}

	var raw any
	if err = json.Unmarshal(body, &raw); err != nil {
		return nil, &DocumentError{Type: InvalidDidDocument, Message: "Invalid DID Document", Cause: err}
	}
	doc, errs := ValidateDocument(raw)
	if len(errs) > 0 {
		return nil, &DocumentError{Type: InvalidDidDocument, Message: "Invalid DID Document", Cause: errs}
	}
	return doc, nil
}

// GetDocumentParams controls a cache aware document lookup.
type GetDocumentParams struct {
	Cache  cache.Cache[Document]
	Client *http.Client
	DID    string
	// Force skips the cache read. The fetched document is always written back.
	Force   bool
	Timeout time.Duration
}

// GetDIDDocument returns the cached document for a DID, fetching it on a miss. Concurrent misses for the
// same DID each fetch.
func GetDIDDocument(ctx context.Context, params GetDocumentParams) (*Document, error) {
	if !params.Force && params.Cache != nil {
		if doc, ok := params.Cache.Get(ctx, params.DID); ok {
			return &doc, nil
		}
	}

	doc, err := ResolveDIDWebDocument(ctx, params.Client, params.DID, params.Timeout)
	if err != nil {
		return nil, err
	}

	if params.Cache != nil && !params.Cache.Set(ctx, params.DID, *doc) {
		logrus.Warnf("could not cache DID document for %s", params.DID)
	}
	return doc, nil
}
