// Package testutil holds keys, signed payloads and backends shared by package tests.
package testutil

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/fxamacker/cbor/v2"
	"github.com/goccy/go-json"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	gocose "github.com/veraison/go-cose"

	"github.com/tbd54566975/cwt-verifier/pkg/credential"
)

const (
	// fixturePayload is a COSE_Sign1 credential issued by did:web:xxx with kid key-1, valid from
	// 1635459381 until 1636064181 and signed by the key in ValidPublicKeyJWK.
	fixturePayload = "0oRKogRFa2V5LTEBJqBZAQClAWtkaWQ6d2ViOnh4eAUaYXshNQQaYYRbtWJ2Y6RoQGNvbnRleHSCeCZodHRwczovL3d3dy53My5vcmcvMjAxOC9jcmVkZW50aWFscy92MXgkaHR0cHM6Ly9leGFtcGxlLmNvbS9jcmVkZW50aWFscy9wYXNzZ3ZlcnNpb25lMS4wLjBkdHlwZYJ0VmVyaWZpYWJsZUNyZWRlbnRpYWxqUHVibGljUGFzc3FjcmVkZW50aWFsU3ViamVjdKNpZ2l2ZW5OYW1lZEphY2tqZmFtaWx5TmFtZWdTcGFycm93Y2RvYmoxOTc5LTA0LTE0B1AL5CgYIwJPMrkEDhcmjk6fWED0TYBtzx+wokSCLjLUBIeMv2ZsfXnh+gQtN14F9t064nOMk42RNqdpwXYKNOgMtxa48jAQqg4YCgJ8W6MZMoSv"

	FixtureIssuer    = "did:web:xxx"
	FixtureKeyID     = "key-1"
	FixtureNotBefore = 1635459381
	FixtureExpiry    = 1636064181

	// DIDWebIssuer is served by DIDDocument at https://example.com/foo/did.json
	DIDWebIssuer = "did:web:example.com:foo"
	DIDWebKeyID  = "key-1"
)

// FixturePayload returns the raw bytes of a real credential.
func FixturePayload(t *testing.T) []byte {
	payload, err := base64.StdEncoding.DecodeString(fixturePayload)
	require.NoError(t, err)
	return payload
}

// ValidPublicKeyJWK is the key that signed FixturePayload.
func ValidPublicKeyJWK() credential.PublicKeyJWK {
	return credential.PublicKeyJWK{
		KTY: "EC",
		CRV: "P-256",
		X:   "7GQfPAfuiFV0f1k6EoLk0Cb0iU4EsUFb3WbS1-hwPPc",
		Y:   "gHqAr08-S8kqf5vFGd19ob25WmDB6lxgje7G1oZKabs",
	}
}

// DifferentPublicKeyJWK is a valid P-256 key that did not sign FixturePayload. It is the key published
// in DIDDocument.
func DifferentPublicKeyJWK() credential.PublicKeyJWK {
	return credential.PublicKeyJWK{
		KTY: "EC",
		CRV: "P-256",
		X:   "QRPAcOhvCaIcbeL-675iYMuwgKbvaGJwyuBfStkO7Ik",
		Y:   "UWj6SPcYJu5zxRGPz1Nab7cTUPrfjQfihSuEE02A20M",
	}
}

// UnexpectedPublicKeyJWK is an EC key on a curve that cannot verify ES256.
func UnexpectedPublicKeyJWK() credential.PublicKeyJWK {
	key := DifferentPublicKeyJWK()
	key.CRV = "P-512"
	return key
}

// DIDDocument returns the did:web document for DIDWebIssuer as served over HTTP.
func DIDDocument() map[string]any {
	return map[string]any{
		"@context": "https://w3.org/ns/did/v1",
		"id":       DIDWebIssuer,
		"verificationMethod": []any{
			map[string]any{
				"id":           DIDWebIssuer + "#" + DIDWebKeyID,
				"controller":   DIDWebIssuer,
				"type":         "JsonWebKey2020",
				"publicKeyJwk": DifferentPublicKeyJWK(),
			},
		},
		"assertionMethod": []any{DIDWebIssuer + "#" + DIDWebKeyID},
	}
}

// DIDDocumentJSON is DIDDocument encoded as JSON.
func DIDDocumentJSON(t *testing.T) string {
	b, err := json.Marshal(DIDDocument())
	require.NoError(t, err)
	return string(b)
}

func GenerateP256Key(t *testing.T) *ecdsa.PrivateKey {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	return key
}

func GenerateP384Key(t *testing.T) *ecdsa.PrivateKey {
	key, err := ecdsa.GenerateKey(elliptic.P384(), rand.Reader)
	require.NoError(t, err)
	return key
}

// PublicKeyJWK converts the public half of key into its JWK form.
func PublicKeyJWK(t *testing.T, key *ecdsa.PrivateKey) credential.PublicKeyJWK {
	pubJWK, err := jwk.FromRaw(&key.PublicKey)
	require.NoError(t, err)
	b, err := json.Marshal(pubJWK)
	require.NoError(t, err)

	var out credential.PublicKeyJWK
	require.NoError(t, json.Unmarshal(b, &out))
	return out
}

// SignES256 produces a raw 64 byte r||s signature over SHA-256(data).
func SignES256(t *testing.T, key *ecdsa.PrivateKey, data []byte) []byte {
	digest := sha256.Sum256(data)
	r, s, err := ecdsa.Sign(rand.Reader, key, digest[:])
	require.NoError(t, err)

	signature := make([]byte, 64)
	r.FillBytes(signature[:32])
	s.FillBytes(signature[32:])
	return signature
}

// CredentialClaims returns the claims of a well formed credential.
func CredentialClaims(iss string, nbf, exp int64) map[any]any {
	return map[any]any{
		1: iss,
		4: exp,
		5: nbf,
		"vc": map[string]any{
			"@context": []string{credential.Context, "https://example.com/credentials/pass"},
			"type":     []string{credential.Type, "PublicPass"},
			"version":  "1.0.0",
			"credentialSubject": map[string]any{
				"givenName":  "Jack",
				"familyName": "Sparrow",
				"dob":        "1979-04-14",
			},
		},
	}
}

// SignCWT signs claims as a tagged ES256 COSE_Sign1 message with kid in the protected header.
func SignCWT(t *testing.T, key *ecdsa.PrivateKey, kid string, claims map[any]any) []byte {
	return SignCWTWithHeaders(t, gocose.AlgorithmES256, key, gocose.ProtectedHeader{
		gocose.HeaderLabelAlgorithm: gocose.AlgorithmES256,
		gocose.HeaderLabelKeyID:     []byte(kid),
	}, nil, claims)
}

// SignCWTWithHeaders signs claims with the given algorithm and headers.
func SignCWTWithHeaders(t *testing.T, alg gocose.Algorithm, key *ecdsa.PrivateKey,
	protected gocose.ProtectedHeader, unprotected gocose.UnprotectedHeader, claims map[any]any) []byte {
	payload, err := cbor.Marshal(claims)
	require.NoError(t, err)

	signer, err := gocose.NewSigner(alg, key)
	require.NoError(t, err)

	msg := gocose.NewSign1Message()
	msg.Headers.Protected = protected
	if unprotected != nil {
		msg.Headers.Unprotected = unprotected
	}
	msg.Payload = payload
	require.NoError(t, msg.Sign(rand.Reader, nil, signer))

	raw, err := msg.MarshalCBOR()
	require.NoError(t, err)
	return raw
}

// SignCWTWithRawHeader signs claims as a tagged ES256 COSE_Sign1 message whose protected header is
// encoded exactly as given, including values the COSE codec refuses to produce such as a text kid.
func SignCWTWithRawHeader(t *testing.T, key *ecdsa.PrivateKey, protected map[any]any, claims map[any]any) []byte {
	payload, err := cbor.Marshal(claims)
	require.NoError(t, err)
	header, err := cbor.Marshal(protected)
	require.NoError(t, err)

	toBeSigned, err := cbor.Marshal([]any{"Signature1", header, []byte{}, payload})
	require.NoError(t, err)
	signature := SignES256(t, key, toBeSigned)

	raw, err := cbor.Marshal(cbor.Tag{Number: 18, Content: []any{header, map[any]any{}, payload, signature}})
	require.NoError(t, err)
	return raw
}

// NewRedisClient starts an in-process redis server for the lifetime of the test.
func NewRedisClient(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
	})
	return client, server
}

// SpyCache is an unbounded cache that counts its reads and writes.
type SpyCache[V any] struct {
	mu      sync.Mutex
	entries map[string]V
	Gets    int
	Sets    int
}

func NewSpyCache[V any]() *SpyCache[V] {
	return &SpyCache[V]{entries: make(map[string]V)}
}

func (c *SpyCache[V]) Get(_ context.Context, key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Gets++
	v, ok := c.entries[key]
	return v, ok
}

func (c *SpyCache[V]) Set(_ context.Context, key string, value V) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Sets++
	c.entries[key] = value
	return true
}

// Counts returns the number of reads and writes so far.
func (c *SpyCache[V]) Counts() (gets, sets int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Gets, c.Sets
}
