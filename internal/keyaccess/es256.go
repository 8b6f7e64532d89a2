package keyaccess

import (
	"crypto/ecdsa"
	"crypto/sha256"
	"encoding/base64"
	"hash"
	"math/big"
	"strings"

	"github.com/goccy/go-json"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/pkg/errors"

	"github.com/tbd54566975/cwt-verifier/internal/cose"
	"github.com/tbd54566975/cwt-verifier/pkg/credential"
)

// ES256SignatureSize is the size of a raw r||s signature on P-256.
const ES256SignatureSize = 64

// newHash is swapped in tests to exercise a failing hash.
var newHash = func() hash.Hash { return sha256.New() }

// VerifyES256 checks a raw r||s signature over SHA-256(data) with a P-256 public JWK.
// Malformed input it can detect (signature size, coordinates, curve point) yields false; an error is
// returned only when hashing fails.
func VerifyES256(signature, data []byte, key credential.PublicKeyJWK) (bool, error) {
	if len(signature) != ES256SignatureSize {
		return false, nil
	}

	pubKey, err := PublicKeyFromJWK(key)
	if err != nil {
		return false, nil
	}

	h := newHash()
	if _, err = h.Write(data); err != nil {
		return false, errors.Wrap(err, "hashing signed data")
	}
	digest := h.Sum(nil)

	half := ES256SignatureSize / 2
	r := new(big.Int).SetBytes(signature[:half])
	s := new(big.Int).SetBytes(signature[half:])
	return ecdsa.Verify(pubKey, digest, r, s), nil
}

// PublicKeyFromJWK builds a P-256 public key from its JWK form. The coordinates must be valid
// base64url and name a point on the curve.
func PublicKeyFromJWK(key credential.PublicKeyJWK) (*ecdsa.PublicKey, error) {
	if key.KTY != jwa.EC.String() || key.CRV != jwa.P256.String() {
		return nil, errors.Errorf("unsupported key<%s/%s>, expected EC/P-256", key.KTY, key.CRV)
	}
	for name, coord := range map[string]string{"x": key.X, "y": key.Y} {
		if _, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(coord, "=")); err != nil {
			return nil, errors.Wrapf(err, "decoding %s coordinate", name)
		}
	}

	keyJSON, err := json.Marshal(key)
	if err != nil {
		return nil, errors.Wrap(err, "marshalling jwk")
	}
	parsed, err := jwk.ParseKey(keyJSON)
	if err != nil {
		return nil, errors.Wrap(err, "parsing jwk")
	}
	var pubKey ecdsa.PublicKey
	if err = parsed.Raw(&pubKey); err != nil {
		return nil, errors.Wrap(err, "getting raw key from jwk")
	}
	// ECDH rejects points that are not on the curve
	if _, err = pubKey.ECDH(); err != nil {
		return nil, errors.Wrap(err, "invalid curve point")
	}
	return &pubKey, nil
}

// ES256Verifier returns a signature callback for the COSE codec bound to the given key.
func ES256Verifier(key credential.PublicKeyJWK) cose.ExternalVerifier {
	return func(data, signature []byte) (bool, error) {
		return VerifyES256(signature, data, key)
	}
}
