package credential

import (
	"slices"

	"github.com/goccy/go-json"
	"gopkg.in/go-playground/validator.v9"

	"github.com/tbd54566975/cwt-verifier/internal/cwt"
	"github.com/tbd54566975/cwt-verifier/internal/validation"
)

func init() {
	validation.MustRegister("credentialcontext", isCredentialContext,
		"{0} must be "+Context+" or an array whose first item is "+Context)
	validation.MustRegister("credentialtype", isCredentialType,
		"{0} must be "+Type+" or an array including "+Type)
	validation.MustRegister("credentialsubject", isCredentialSubject,
		"{0} must be an object or an array of objects with an optional string id")
}

// ValidateClaims checks decoded CWT claims against the verifiable credential shape and reports every
// violation found.
func ValidateClaims(claims cwt.Claims) (*VerifiableCredential, validation.Errors) {
	vc := VerifiableCredential{
		NotBefore:    claims.NotBefore,
		Expiry:       claims.Expiry,
		CredentialID: claims.CredentialID,
	}
	if claims.Issuer != nil {
		vc.Issuer = *claims.Issuer
	}

	var shapeErrs validation.Errors
	if claims.VerifiableCredential != nil {
		var body Body
		if shapeErrs = validation.Convert(claims.VerifiableCredential, &body, cwt.ClaimVerifiableCredential); len(shapeErrs) == 0 {
			vc.VC = &body
		}
	}

	errs := validation.Struct(vc)
	if len(shapeErrs) > 0 {
		// the shape error already explains why vc is missing
		errs = slices.DeleteFunc(errs, func(e validation.Error) bool {
			return slices.Equal(e.Path, []string{cwt.ClaimVerifiableCredential})
		})
		errs = append(shapeErrs, errs...)
	}
	if len(errs) > 0 {
		return nil, errs
	}
	return &vc, nil
}

// ValidatePublicKeyJWK checks a value has the shape of a public JSON Web Key.
func ValidatePublicKeyJWK(in any) (*PublicKeyJWK, validation.Errors) {
	var key PublicKeyJWK
	if errs := validation.Decode(in, &key); len(errs) > 0 {
		return nil, errs
	}
	return &key, nil
}

// ValidateECPublicKeyJWK checks a value is an EC public key on the P-256 curve.
func ValidateECPublicKeyJWK(in any) (*PublicKeyJWK, validation.Errors) {
	var key ECPublicKeyJWK
	if errs := validation.Decode(in, &key); len(errs) > 0 {
		return nil, errs
	}
	jwk := key.PublicKeyJWK()
	return &jwk, nil
}

func isCredentialContext(fl validator.FieldLevel) bool {
	switch v := fl.Field().Interface().(type) {
	case string:
		return v == Context
	case []any:
		if len(v) == 0 || !allStrings(v) {
			return false
		}
		return v[0] == Context
	}
	return false
}

func isCredentialType(fl validator.FieldLevel) bool {
	switch v := fl.Field().Interface().(type) {
	case string:
		return v == Type
	case []any:
		if len(v) == 0 || !allStrings(v) {
			return false
		}
		return slices.Contains(v, any(Type))
	}
	return false
}

func isCredentialSubject(fl validator.FieldLevel) bool {
	switch v := fl.Field().Interface().(type) {
	case map[string]any:
		return isSubject(v)
	case []any:
		for _, item := range v {
			subject, ok := item.(map[string]any)
			if !ok || !isSubject(subject) {
				return false
			}
		}
		return true
	}
	return false
}

func isSubject(subject map[string]any) bool {
	id, ok := subject["id"]
	if !ok {
		return true
	}
	_, ok = id.(string)
	return ok
}

func allStrings(values []any) bool {
	for _, v := range values {
		if _, ok := v.(string); !ok {
			return false
		}
	}
	return true
}

var bodyFields = []string{"@context", "type", "credentialSubject"}

func (b Body) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(b.Properties)+len(bodyFields))
	for k, v := range b.Properties {
		out[k] = v
	}
	out["@context"] = b.Context
	out["type"] = b.Type
	out["credentialSubject"] = b.CredentialSubject
	return json.Marshal(out)
}

func (b *Body) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	b.Context = raw["@context"]
	b.Type = raw["type"]
	b.CredentialSubject = raw["credentialSubject"]
	for _, field := range bodyFields {
		delete(raw, field)
	}
	if len(raw) > 0 {
		b.Properties = raw
	}
	return nil
}
