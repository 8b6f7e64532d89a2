package resolver

import (
	"context"
	"sync"

	"github.com/tbd54566975/cwt-verifier/pkg/credential"
)

// StaticResolver serves pinned keys from memory. It never touches the network.
type StaticResolver struct {
	mu   sync.RWMutex
	keys map[ResolveParams]credential.PublicKeyJWK
}

var _ IssuerResolver = (*StaticResolver)(nil)

func NewStaticResolver() *StaticResolver {
	return &StaticResolver{keys: make(map[ResolveParams]credential.PublicKeyJWK)}
}

// AddKey pins the key for iss and kid, replacing any previous one.
func (r *StaticResolver) AddKey(iss, kid string, key credential.PublicKeyJWK) *StaticResolver {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.keys[ResolveParams{Iss: iss, Kid: kid}] = key
	return r
}

func (r *StaticResolver) Resolve(_ context.Context, params ResolveParams) (*credential.PublicKeyJWK, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	key, ok := r.keys[params]
	if !ok {
		return nil, &Error{Type: UnableToResolveIssuer, Message: "No key pinned for " + params.Iss + "#" + params.Kid}
	}
	return &key, nil
}

// CacheIssuer succeeds for any issuer with at least one pinned key.
func (r *StaticResolver) CacheIssuer(_ context.Context, iss string, _ ...CacheIssuerOption) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for params := range r.keys {
		if params.Iss == iss {
			return nil
		}
	}
	return &Error{Type: UnableToResolveIssuer, Message: "No key pinned for " + iss}
}
