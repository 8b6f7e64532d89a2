package did

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbd54566975/cwt-verifier/pkg/testutil"
)

func TestParseDIDURL(t *testing.T) {
	tests := map[string]struct {
		in   string
		want DIDURL
	}{
		"bare": {
			in:   "did:web:example.com",
			want: DIDURL{DID: "did:web:example.com", Method: "web", ID: "example.com"},
		},
		"fragment": {
			in:   "did:web:example.com:foo#key-1",
			want: DIDURL{DID: "did:web:example.com:foo", Method: "web", ID: "example.com:foo", Fragment: "key-1"},
		},
		"path query and fragment": {
			in: "did:example:123/some/path?versionId=1#frag",
			want: DIDURL{
				DID: "did:example:123", Method: "example", ID: "123",
				Path: "/some/path", Query: "versionId=1", Fragment: "frag",
			},
		},
		"params": {
			in:   "did:example:123;service=agent#key",
			want: DIDURL{DID: "did:example:123", Method: "example", ID: "123", Params: ";service=agent", Fragment: "key"},
		},
		"percent encoded id": {
			in:   "did:web:localhost%3A8443",
			want: DIDURL{DID: "did:web:localhost%3A8443", Method: "web", ID: "localhost%3A8443"},
		},
	}
	for name, test := range tests {
		t.Run(name, func(tt *testing.T) {
			got, err := ParseDIDURL(test.in)
			require.NoError(tt, err)
			assert.Equal(tt, test.want, *got)
		})
	}

	for _, bad := range []string{"", "did:web", "did:WEB:example.com", "web:example.com", "did:web:", "did:web:exa mple.com"} {
		t.Run("malformed "+bad, func(tt *testing.T) {
			_, err := ParseDIDURL(bad)
			var derefErr *DereferenceError
			require.ErrorAs(tt, err, &derefErr)
			assert.Equal(tt, MalformedDid, derefErr.Type)
			assert.Equal(tt, "Failed to parse DID", derefErr.Message)
		})
	}
}

func fixtureDocument(t *testing.T) *Document {
	doc, errs := ValidateDocument(testutil.DIDDocument())
	require.Empty(t, errs)
	return doc
}

func TestDereference(t *testing.T) {
	t.Run("verification method by fragment", func(tt *testing.T) {
		doc := fixtureDocument(tt)
		got, err := Dereference(testutil.DIDWebIssuer+"#key-1", doc)
		require.NoError(tt, err)

		method, ok := got.(*VerificationMethod)
		require.True(tt, ok)
		assert.Equal(tt, testutil.DIDWebIssuer+"#key-1", method.ID)
		assert.Equal(tt, testutil.DifferentPublicKeyJWK(), method.PublicKeyJWK.PublicKeyJWK())
	})

	t.Run("whole document", func(tt *testing.T) {
		doc := fixtureDocument(tt)
		got, err := Dereference(testutil.DIDWebIssuer, doc)
		require.NoError(tt, err)
		assert.Same(tt, doc, got)

		got, err = Dereference(testutil.DIDWebIssuer+"#", doc)
		require.NoError(tt, err)
		assert.Same(tt, doc, got)
	})

	t.Run("unmatched fragment", func(tt *testing.T) {
		got, err := Dereference(testutil.DIDWebIssuer+"#key-2", fixtureDocument(tt))
		require.NoError(tt, err)
		assert.Nil(tt, got)
	})

	t.Run("relative ids", func(tt *testing.T) {
		doc := fixtureDocument(tt)
		doc.VerificationMethod = append(doc.VerificationMethod,
			VerificationMethod{ID: "#key-2", Controller: doc.ID, Type: JSONWebKey2020Type},
			VerificationMethod{ID: "/keys/3", Controller: doc.ID, Type: JSONWebKey2020Type},
			VerificationMethod{ID: doc.ID + "/keys/4", Controller: doc.ID, Type: JSONWebKey2020Type},
		)
		for url, want := range map[string]string{
			doc.ID + "#key-2":  "#key-2",
			doc.ID + "/keys/3": "/keys/3",
			doc.ID + "/keys/4": doc.ID + "/keys/4",
		} {
			got, err := Dereference(url, doc)
			require.NoError(tt, err)
			require.NotNil(tt, got, url)
			assert.Equal(tt, want, got.(*VerificationMethod).ID)
		}
	})

	t.Run("embedded assertion method", func(tt *testing.T) {
		doc := fixtureDocument(tt)
		embedded := &VerificationMethod{ID: doc.ID + "#key-9", Controller: doc.ID, Type: JSONWebKey2020Type}
		doc.AssertionMethod = append(doc.AssertionMethod, AssertionMethod{Method: embedded})

		got, err := Dereference(doc.ID+"#key-9", doc)
		require.NoError(tt, err)
		assert.Same(tt, embedded, got)
	})

	t.Run("first match in document order wins", func(tt *testing.T) {
		doc := fixtureDocument(tt)
		duplicate := &VerificationMethod{ID: doc.ID + "#key-1", Controller: "other", Type: JSONWebKey2020Type}
		doc.AssertionMethod = append(doc.AssertionMethod, AssertionMethod{Method: duplicate})

		got, err := Dereference(doc.ID+"#key-1", doc)
		require.NoError(tt, err)
		assert.Same(tt, &doc.VerificationMethod[0], got)
	})

	t.Run("walk is bounded", func(tt *testing.T) {
		doc := fixtureDocument(tt)
		for i := 0; i < MaxDereferenceNodes; i++ {
			doc.VerificationMethod = append(doc.VerificationMethod, VerificationMethod{ID: "#filler-" + strconv.Itoa(i)})
		}
		doc.VerificationMethod = append(doc.VerificationMethod, VerificationMethod{ID: "#last"})

		got, err := Dereference(doc.ID+"#last", doc)
		require.NoError(tt, err)
		assert.Nil(tt, got)
	})

	t.Run("document id mismatch", func(tt *testing.T) {
		_, err := Dereference("did:web:example.com:bar#key-1", fixtureDocument(tt))
		var derefErr *DereferenceError
		require.ErrorAs(tt, err, &derefErr)
		assert.Equal(tt, InvalidParameterError, derefErr.Type)
		assert.Equal(tt, "DID URL does not match DID Document ID", derefErr.Message)
	})

	t.Run("malformed url", func(tt *testing.T) {
		_, err := Dereference("not a did", fixtureDocument(tt))
		var derefErr *DereferenceError
		require.ErrorAs(tt, err, &derefErr)
		assert.Equal(tt, MalformedDid, derefErr.Type)
	})
}
