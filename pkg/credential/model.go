package credential

const (
	// Context is the JSON-LD context every credential must start with.
	Context = "https://www.w3.org/2018/credentials/v1"
	// Type is the type every credential must declare.
	Type = "VerifiableCredential"
)

// VerifiableCredential is the validated form of the claims carried by a CWT.
// See https://datatracker.ietf.org/doc/html/rfc8392#section-3.1 for iss, nbf, exp and cti.
type VerifiableCredential struct {
	// Issuer is the issuer property of the credential.
	Issuer string `json:"iss" validate:"required"`
	// NotBefore is the issuance date, seconds since the epoch.
	NotBefore *float64 `json:"nbf" validate:"required"`
	// Expiry is the expiration date, seconds since the epoch.
	Expiry *float64 `json:"exp,omitempty"`
	// CredentialID is the id of the credential.
	CredentialID []byte `json:"cti,omitempty"`
	VC           *Body  `json:"vc" validate:"required"`
}

// Body is the `vc` claim. Properties other than the validated ones are kept in Properties.
type Body struct {
	Context           any `json:"@context" validate:"required,credentialcontext"`
	Type              any `json:"type" validate:"required,credentialtype"`
	CredentialSubject any `json:"credentialSubject" validate:"required,credentialsubject"`

	Properties map[string]any `json:"-"`
}

// PublicKeyJWK is a public JSON Web Key as published by an issuer.
type PublicKeyJWK struct {
	KTY string `json:"kty" validate:"required,oneof=EC OKP"`
	CRV string `json:"crv" validate:"required"`
	X   string `json:"x,omitempty"`
	Y   string `json:"y,omitempty"`
}

// ECPublicKeyJWK is the P-256 shape required for ES256 verification.
type ECPublicKeyJWK struct {
	KTY string `json:"kty" validate:"required,eq=EC"`
	CRV string `json:"crv" validate:"required,eq=P-256"`
	X   string `json:"x" validate:"required"`
	Y   string `json:"y" validate:"required"`
}

func (k ECPublicKeyJWK) PublicKeyJWK() PublicKeyJWK {
	return PublicKeyJWK{KTY: k.KTY, CRV: k.CRV, X: k.X, Y: k.Y}
}
