// Package cwt maps a decoded CWT claims map onto the credential claims it carries.
package cwt

import (
	"fmt"
)

// Registered claim keys, see https://datatracker.ietf.org/doc/html/rfc8392#section-4
const (
	ClaimIssuer       int64 = 1
	ClaimExpiry       int64 = 4
	ClaimNotBefore    int64 = 5
	ClaimCredentialID int64 = 7

	ClaimVerifiableCredential = "vc"
)

// Claims are the credential claims found in a CWT. A claim that is absent or has the wrong type is left unset.
// NotBefore and Expiry are seconds since the epoch.
type Claims struct {
	Issuer               *string
	NotBefore            *float64
	Expiry               *float64
	CredentialID         []byte
	VerifiableCredential any
}

// DecodeClaims reads the credential claims from a claims map. It never fails.
func DecodeClaims(claims map[any]any) Claims {
	var decoded Claims
	for key, value := range claims {
		if name, ok := key.(string); ok {
			if name == ClaimVerifiableCredential && value != nil {
				decoded.VerifiableCredential = normalize(value)
			}
			continue
		}

		label, ok := toInt64(key)
		if !ok {
			continue
		}
		switch label {
		case ClaimIssuer:
			if iss, ok := value.(string); ok {
				decoded.Issuer = &iss
			}
		case ClaimExpiry:
			if exp, ok := toFloat64(value); ok {
				decoded.Expiry = &exp
			}
		case ClaimNotBefore:
			if nbf, ok := toFloat64(value); ok {
				decoded.NotBefore = &nbf
			}
		case ClaimCredentialID:
			if cti, ok := value.([]byte); ok {
				decoded.CredentialID = cti
			}
		}
	}
	return decoded
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint:
		return int64(n), true
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint64:
		if n > 1<<63-1 {
			return 0, false
		}
		return int64(n), true
	}
	return 0, false
}

func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case uint64:
		return float64(n), true
	}
	if i, ok := toInt64(v); ok {
		return float64(i), true
	}
	return 0, false
}

// normalize converts CBOR maps with arbitrary keys into string keyed maps so nested values
// can be handled like decoded JSON.
func normalize(v any) any {
	switch val := v.(type) {
	case map[any]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			key, ok := k.(string)
			if !ok {
				key = fmt.Sprint(k)
			}
			out[key] = normalize(item)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = normalize(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = normalize(item)
		}
		return out
	default:
		return v
	}
}
