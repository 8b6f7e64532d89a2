// Package did fetches did:web documents and dereferences DID URLs within them.
package did

import (
	"bytes"
	"strconv"

	didsdk "github.com/TBD54566975/ssi-sdk/did"
	"github.com/goccy/go-json"
	"github.com/pkg/errors"
	"gopkg.in/go-playground/validator.v9"

	"github.com/tbd54566975/cwt-verifier/internal/validation"
	"github.com/tbd54566975/cwt-verifier/pkg/credential"
)

const (
	// WebPrefix starts every did:web identifier.
	WebPrefix = "did:" + string(didsdk.WebMethod)

	// JSONWebKey2020Type is the only verification method type accepted.
	JSONWebKey2020Type = "JsonWebKey2020"
)

func init() {
	validation.MustRegister("didcontext", isDIDContext, "{0} must be a string or an array of strings")
}

// Document is the subset of a DID document needed to find an issuer's assertion keys. Properties
// outside this shape are dropped on decode.
type Document struct {
	Context            any                  `json:"@context" validate:"required,didcontext"`
	ID                 string               `json:"id" validate:"required"`
	VerificationMethod []VerificationMethod `json:"verificationMethod,omitempty" validate:"omitempty,dive"`
	AssertionMethod    []AssertionMethod    `json:"assertionMethod,omitempty"`
}

// VerificationMethod is a JsonWebKey2020 public key entry.
type VerificationMethod struct {
	ID           string                    `json:"id" validate:"required"`
	Controller   string                    `json:"controller" validate:"required"`
	Type         string                    `json:"type" validate:"required,eq=JsonWebKey2020"`
	PublicKeyJWK credential.ECPublicKeyJWK `json:"publicKeyJwk"`
}

// AssertionMethod is either a reference to a verification method or an embedded one.
type AssertionMethod struct {
	Reference string
	Method    *VerificationMethod
}

// ID is the identifier the entry authorises.
func (a AssertionMethod) ID() string {
	if a.Method != nil {
		return a.Method.ID
	}
	return a.Reference
}

func (a AssertionMethod) MarshalJSON() ([]byte, error) {
	if a.Method != nil {
		return json.Marshal(a.Method)
	}
	return json.Marshal(a.Reference)
}

func (a *AssertionMethod) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	switch {
	case len(trimmed) > 0 && trimmed[0] == '"':
		return json.Unmarshal(trimmed, &a.Reference)
	case len(trimmed) > 0 && trimmed[0] == '{':
		var method VerificationMethod
		if err := json.Unmarshal(trimmed, &method); err != nil {
			return err
		}
		a.Method = &method
		return nil
	}
	return errors.Errorf("Expected string or verification method, received %s", trimmed)
}

// IsAssertionMethod reports whether id is listed in the document's assertionMethod.
func (d Document) IsAssertionMethod(id string) bool {
	for _, method := range d.AssertionMethod {
		if method.ID() == id {
			return true
		}
	}
	return false
}

// ValidateDocument decodes and validates a parsed JSON value as a DID document.
func ValidateDocument(in any) (*Document, validation.Errors) {
	var doc Document
	if errs := validation.Decode(in, &doc); len(errs) > 0 {
		return nil, errs
	}
	var errs validation.Errors
	for i, method := range doc.AssertionMethod {
		if method.Method != nil {
			errs = append(errs, validation.Struct(method.Method, "assertionMethod", strconv.Itoa(i))...)
		}
	}
	if len(errs) > 0 {
		return nil, errs
	}
	return &doc, nil
}

// ValidateVerificationMethod checks a dereferenced value is a JsonWebKey2020 entry with a P-256 key.
func ValidateVerificationMethod(in any) (*VerificationMethod, validation.Errors) {
	var method VerificationMethod
	if errs := validation.Decode(in, &method); len(errs) > 0 {
		return nil, errs
	}
	return &method, nil
}

func isDIDContext(fl validator.FieldLevel) bool {
	switch v := fl.Field().Interface().(type) {
	case string:
		return true
	case []any:
		for _, item := range v {
			if _, ok := item.(string); !ok {
				return false
			}
		}
		return true
	}
	return false
}
