// Package cose decodes COSE_Sign1 envelopes carrying CWT claims and exposes the header values
// and signature check needed to verify them.
package cose

import (
	"math"

	"github.com/fxamacker/cbor/v2"
	"github.com/pkg/errors"
	gocose "github.com/veraison/go-cose"
)

// Algorithm is the name of a COSE signature algorithm, e.g. "ES256".
type Algorithm string

const (
	AlgorithmES256 Algorithm = "ES256"

	// cwtTag is the optional CBOR tag wrapping a CWT.
	cwtTag uint64 = 61
	// sign1Tag marks a tagged COSE_Sign1 message.
	sign1Tag uint64 = 18

	labelAlgorithm int64 = 1
	labelKeyID     int64 = 4
)

func (a Algorithm) String() string {
	return string(a)
}

// CodecError reports a payload that could not be decoded or a header that could not be read.
type CodecError struct {
	Message string
	Cause   error
}

func (e *CodecError) Error() string {
	if e.Cause == nil {
		return e.Message
	}
	return e.Message + ": " + e.Cause.Error()
}

func (e *CodecError) Unwrap() error {
	return e.Cause
}

// ExternalVerifier checks signature against the COSE Sig_structure bytes. It returns false for a
// signature that does not match, and an error only when the check itself could not run.
type ExternalVerifier func(data, signature []byte) (bool, error)

// Envelope is a decoded COSE_Sign1 message and its claims.
type Envelope struct {
	message *gocose.Sign1Message
	Claims  map[any]any
}

// Decode parses a tagged or untagged COSE_Sign1 message, optionally wrapped in the CWT tag, and
// decodes its payload as a CBOR map. Headers are read directly so that a text kid is kept.
func Decode(payload []byte) (*Envelope, error) {
	if len(payload) == 0 {
		return nil, &CodecError{Message: "payload is empty"}
	}

	data := payload
	for _, number := range []uint64{cwtTag, sign1Tag} {
		var tag cbor.RawTag
		if err := cbor.Unmarshal(data, &tag); err == nil && tag.Number == number {
			data = tag.Content
		}
	}

	var raw sign1
	if err := cbor.Unmarshal(data, &raw); err != nil {
		return nil, &CodecError{Message: "invalid COSE_Sign1 message", Cause: err}
	}
	protected, err := decodeProtected(raw.Protected)
	if err != nil {
		return nil, err
	}
	unprotected, err := decodeHeader(raw.Unprotected)
	if err != nil {
		return nil, &CodecError{Message: "invalid unprotected header", Cause: err}
	}
	if raw.Payload == nil {
		return nil, &CodecError{Message: "COSE_Sign1 message has a detached payload"}
	}

	var claims map[any]any
	if err = cbor.Unmarshal(raw.Payload, &claims); err != nil {
		return nil, &CodecError{Message: "COSE_Sign1 payload is not a CBOR map", Cause: err}
	}
	if claims == nil {
		return nil, &CodecError{Message: "COSE_Sign1 payload is not a CBOR map"}
	}

	msg := &gocose.Sign1Message{
		Headers: gocose.Headers{
			// the codec signs over the raw protected bytes, so re-encoding never alters the Sig_structure
			RawProtected:   raw.Protected,
			Protected:      gocose.ProtectedHeader(protected),
			RawUnprotected: raw.Unprotected,
			Unprotected:    gocose.UnprotectedHeader(unprotected),
		},
		Payload:   raw.Payload,
		Signature: raw.Signature,
	}
	return &Envelope{message: msg, Claims: claims}, nil
}

// sign1 is the COSE_Sign1 array: protected bstr, unprotected map, payload bstr or nil, signature bstr.
type sign1 struct {
	_           struct{} `cbor:",toarray"`
	Protected   cbor.RawMessage
	Unprotected cbor.RawMessage
	Payload     []byte
	Signature   []byte
}

func decodeProtected(raw cbor.RawMessage) (map[any]any, error) {
	var encoded []byte
	if err := cbor.Unmarshal(raw, &encoded); err != nil {
		return nil, &CodecError{Message: "protected header is not a byte string", Cause: err}
	}
	if len(encoded) == 0 {
		return map[any]any{}, nil
	}
	header, err := decodeHeader(encoded)
	if err != nil {
		return nil, &CodecError{Message: "invalid protected header", Cause: err}
	}
	return header, nil
}

// decodeHeader decodes a header map with integer labels as int64, the form the codec's header
// accessors expect.
func decodeHeader(data []byte) (map[any]any, error) {
	var header map[any]any
	if err := cbor.Unmarshal(data, &header); err != nil {
		return nil, err
	}
	normalized := make(map[any]any, len(header))
	for label, value := range header {
		if l, ok := label.(uint64); ok && l <= math.MaxInt64 {
			label = int64(l)
		}
		if label == labelAlgorithm {
			if v, ok := value.(uint64); ok && v <= math.MaxInt64 {
				value = int64(v)
			}
		}
		normalized[label] = value
	}
	return normalized, nil
}

// KeyID returns the kid header parameter, looking in the protected header first.
func (e *Envelope) KeyID() (string, error) {
	for _, header := range []map[any]any{e.message.Headers.Protected, e.message.Headers.Unprotected} {
		value, ok := header[labelKeyID]
		if !ok {
			continue
		}
		switch kid := value.(type) {
		case []byte:
			return string(kid), nil
		case string:
			return kid, nil
		default:
			return "", &CodecError{Message: "kid header has an unexpected type"}
		}
	}
	return "", &CodecError{Message: "kid header is missing"}
}

// Algorithm returns the alg header parameter from the protected header.
func (e *Envelope) Algorithm() (Algorithm, error) {
	alg, err := e.message.Headers.Protected.Algorithm()
	if err != nil {
		return "", &CodecError{Message: "alg header is missing or unreadable", Cause: err}
	}
	return Algorithm(alg.String()), nil
}

// Verify checks the envelope signature with the given callback. A signature that does not match is
// reported as false; an error is returned only when the callback failed to run.
func (e *Envelope) Verify(verify ExternalVerifier) (bool, error) {
	alg, err := e.message.Headers.Protected.Algorithm()
	if err != nil {
		return false, &CodecError{Message: "alg header is missing or unreadable", Cause: err}
	}

	v := &callbackVerifier{alg: alg, verify: verify}
	if err = e.message.Verify(nil, v); err != nil {
		if v.err != nil {
			return false, v.err
		}
		return false, nil
	}
	return true, nil
}

// callbackVerifier adapts an ExternalVerifier to the codec's verifier interface, keeping any
// failure of the callback itself apart from a plain signature mismatch.
type callbackVerifier struct {
	alg    gocose.Algorithm
	verify ExternalVerifier
	err    error
}

func (v *callbackVerifier) Algorithm() gocose.Algorithm {
	return v.alg
}

func (v *callbackVerifier) Verify(content, signature []byte) error {
	ok, err := v.verify(content, signature)
	if err != nil {
		v.err = errors.Wrap(err, "running signature verifier")
		return v.err
	}
	if !ok {
		return gocose.ErrVerification
	}
	return nil
}
