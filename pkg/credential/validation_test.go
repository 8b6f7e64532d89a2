package credential

import (
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbd54566975/cwt-verifier/internal/cwt"
	"github.com/tbd54566975/cwt-verifier/internal/validation"
)

func validClaims() cwt.Claims {
	iss := "did:web:example.com"
	nbf := float64(1635459381)
	exp := float64(1636064181)
	return cwt.Claims{
		Issuer:    &iss,
		NotBefore: &nbf,
		Expiry:    &exp,
		VerifiableCredential: map[string]any{
			"@context": []any{Context, "https://example.com/credentials/pass"},
			"type":     []any{Type, "PublicPass"},
			"version":  "1.0.0",
			"credentialSubject": map[string]any{
				"givenName":  "Jack",
				"familyName": "Sparrow",
				"dob":        "1979-04-14",
			},
		},
	}
}

func paths(errs validation.Errors) [][]string {
	out := make([][]string, 0, len(errs))
	for _, e := range errs {
		out = append(out, e.Path)
	}
	return out
}

func TestValidateClaims(t *testing.T) {
	t.Run("valid credential", func(tt *testing.T) {
		vc, errs := ValidateClaims(validClaims())
		require.Empty(tt, errs)
		require.NotNil(tt, vc)

		assert.Equal(tt, "did:web:example.com", vc.Issuer)
		assert.Equal(tt, float64(1635459381), *vc.NotBefore)
		assert.Equal(tt, float64(1636064181), *vc.Expiry)
		assert.Equal(tt, "1.0.0", vc.VC.Properties["version"])
	})

	t.Run("single string context and type", func(tt *testing.T) {
		claims := validClaims()
		claims.VerifiableCredential = map[string]any{
			"@context":          Context,
			"type":              Type,
			"credentialSubject": []any{map[string]any{"id": "did:example:123"}, map[string]any{}},
		}
		_, errs := ValidateClaims(claims)
		assert.Empty(tt, errs)
	})

	t.Run("context must start with the credentials context", func(tt *testing.T) {
		claims := validClaims()
		vc := claims.VerifiableCredential.(map[string]any)
		vc["@context"] = []any{"https://example.com/credentials/pass", Context}

		_, errs := ValidateClaims(claims)
		require.Len(tt, errs, 1)
		assert.Equal(tt, []string{"vc", "@context"}, errs[0].Path)
		assert.Contains(tt, errs[0].Message, "first item")
	})

	t.Run("type must include VerifiableCredential", func(tt *testing.T) {
		claims := validClaims()
		vc := claims.VerifiableCredential.(map[string]any)
		vc["type"] = []any{"PublicPass"}

		_, errs := ValidateClaims(claims)
		require.Len(tt, errs, 1)
		assert.Equal(tt, []string{"vc", "type"}, errs[0].Path)
	})

	t.Run("subject id must be a string", func(tt *testing.T) {
		claims := validClaims()
		vc := claims.VerifiableCredential.(map[string]any)
		vc["credentialSubject"] = map[string]any{"id": 42}

		_, errs := ValidateClaims(claims)
		require.Len(tt, errs, 1)
		assert.Equal(tt, []string{"vc", "credentialSubject"}, errs[0].Path)
	})

	t.Run("all violations are reported together", func(tt *testing.T) {
		claims := cwt.Claims{
			VerifiableCredential: map[string]any{
				"@context": "https://example.com",
				"type":     "PublicPass",
			},
		}
		_, errs := ValidateClaims(claims)
		require.Len(tt, errs, 5)

		got := paths(errs)
		assert.Contains(tt, got, []string{"iss"})
		assert.Contains(tt, got, []string{"nbf"})
		assert.Contains(tt, got, []string{"vc", "@context"})
		assert.Contains(tt, got, []string{"vc", "type"})
		assert.Contains(tt, got, []string{"vc", "credentialSubject"})
	})

	t.Run("vc must be an object", func(tt *testing.T) {
		claims := validClaims()
		claims.VerifiableCredential = "not a credential"

		_, errs := ValidateClaims(claims)
		require.Len(tt, errs, 1)
		assert.Equal(tt, []string{"vc"}, errs[0].Path)
	})

	t.Run("missing vc", func(tt *testing.T) {
		claims := validClaims()
		claims.VerifiableCredential = nil

		_, errs := ValidateClaims(claims)
		require.Len(tt, errs, 1)
		assert.Equal(tt, []string{"vc"}, errs[0].Path)
	})

	t.Run("empty issuer", func(tt *testing.T) {
		claims := validClaims()
		empty := ""
		claims.Issuer = &empty

		_, errs := ValidateClaims(claims)
		require.Len(tt, errs, 1)
		assert.Equal(tt, []string{"iss"}, errs[0].Path)
	})
}

func TestVerifiableCredentialJSON(t *testing.T) {
	vc, errs := ValidateClaims(validClaims())
	require.Empty(t, errs)

	b, err := json.Marshal(vc)
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, json.Unmarshal(b, &out))
	assert.Equal(t, "did:web:example.com", out["iss"])

	body := out["vc"].(map[string]any)
	assert.Equal(t, "1.0.0", body["version"])
	assert.Equal(t, []any{Context, "https://example.com/credentials/pass"}, body["@context"])
}

func TestValidatePublicKeyJWK(t *testing.T) {
	t.Run("EC key", func(tt *testing.T) {
		key, errs := ValidatePublicKeyJWK(map[string]any{
			"kty": "EC",
			"crv": "P-256",
			"x":   "7GQfPAfuiFV0f1k6EoLk0Cb0iU4EsUFb3WbS1-hwPPc",
			"y":   "gHqAr08-S8kqf5vFGd19ob25WmDB6lxgje7G1oZKabs",
		})
		require.Empty(tt, errs)
		assert.Equal(tt, "P-256", key.CRV)
	})

	t.Run("OKP key without y", func(tt *testing.T) {
		_, errs := ValidatePublicKeyJWK(map[string]any{"kty": "OKP", "crv": "Ed25519", "x": "abc"})
		assert.Empty(tt, errs)
	})

	t.Run("unknown key type", func(tt *testing.T) {
		_, errs := ValidatePublicKeyJWK(map[string]any{"kty": "RSA", "crv": "P-256"})
		require.Len(tt, errs, 1)
		assert.Equal(tt, []string{"kty"}, errs[0].Path)
	})
}

func TestValidateECPublicKeyJWK(t *testing.T) {
	t.Run("P-256 key", func(tt *testing.T) {
		key, errs := ValidateECPublicKeyJWK(PublicKeyJWK{
			KTY: "EC",
			CRV: "P-256",
			X:   "QRPAcOhvCaIcbeL-675iYMuwgKbvaGJwyuBfStkO7Ik",
			Y:   "UWj6SPcYJu5zxRGPz1Nab7cTUPrfjQfihSuEE02A20M",
		})
		require.Empty(tt, errs)
		assert.Equal(tt, "EC", key.KTY)
	})

	t.Run("wrong curve", func(tt *testing.T) {
		_, errs := ValidateECPublicKeyJWK(PublicKeyJWK{KTY: "EC", CRV: "P-512", X: "a", Y: "b"})
		require.Len(tt, errs, 1)
		assert.Equal(tt, []string{"crv"}, errs[0].Path)
	})

	t.Run("missing coordinates", func(tt *testing.T) {
		_, errs := ValidateECPublicKeyJWK(PublicKeyJWK{KTY: "OKP", CRV: "Ed25519"})
		require.Len(tt, errs, 4)
		got := paths(errs)
		assert.Contains(tt, got, []string{"kty"})
		assert.Contains(tt, got, []string{"crv"})
		assert.Contains(tt, got, []string{"x"})
		assert.Contains(tt, got, []string{"y"})
	})
}
