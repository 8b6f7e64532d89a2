package did

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/h2non/gock.v1"

	"github.com/tbd54566975/cwt-verifier/internal/request"
	"github.com/tbd54566975/cwt-verifier/pkg/credential"
	"github.com/tbd54566975/cwt-verifier/pkg/testutil"
)

func TestCreateURLFromDID(t *testing.T) {
	tests := map[string]struct {
		did  string
		want string
	}{
		"domain only":       {did: "did:web:example.com", want: "https://example.com/.well-known/did.json"},
		"with path":         {did: "did:web:example.com:foo", want: "https://example.com/foo/did.json"},
		"nested path":       {did: "did:web:example.com:user:alice", want: "https://example.com/user/alice/did.json"},
		"encoded port":      {did: "did:web:localhost%3A8443", want: "https://localhost:8443/.well-known/did.json"},
		"encoded port path": {did: "did:web:localhost%3A8443:foo", want: "https://localhost:8443/foo/did.json"},
		"upper case":        {did: "did:web:Example.COM", want: "https://example.com/.well-known/did.json"},
	}
	for name, test := range tests {
		t.Run(name, func(tt *testing.T) {
			got, err := CreateURLFromDID(test.did)
			require.NoError(tt, err)
			assert.Equal(tt, test.want, got)
		})
	}

	t.Run("invalid escape", func(tt *testing.T) {
		_, err := CreateURLFromDID("did:web:example.com%zz")
		require.Error(tt, err)

		var docErr *DocumentError
		require.ErrorAs(tt, err, &docErr)
		assert.Equal(tt, InvalidDid, docErr.Type)
	})
}

func mockedClient(t *testing.T) *http.Client {
	client := request.NewClient(time.Second)
	gock.InterceptClient(client)
	t.Cleanup(func() {
		gock.RestoreClient(client)
		gock.Off()
	})
	return client
}

func TestResolveDIDWebDocument(t *testing.T) {
	ctx := context.Background()

	t.Run("valid document", func(tt *testing.T) {
		client := mockedClient(tt)
		gock.New("https://example.com").Get("/foo/did.json").Reply(200).JSON(testutil.DIDDocument())

		doc, err := ResolveDIDWebDocument(ctx, client, testutil.DIDWebIssuer, time.Second)
		require.NoError(tt, err)

		key := testutil.DifferentPublicKeyJWK()
		want := &Document{
			Context: "https://w3.org/ns/did/v1",
			ID:      testutil.DIDWebIssuer,
			VerificationMethod: []VerificationMethod{{
				ID:         testutil.DIDWebIssuer + "#key-1",
				Controller: testutil.DIDWebIssuer,
				Type:       JSONWebKey2020Type,
				PublicKeyJWK: credential.ECPublicKeyJWK{
					KTY: key.KTY, CRV: key.CRV, X: key.X, Y: key.Y,
				},
			}},
			AssertionMethod: []AssertionMethod{{Reference: testutil.DIDWebIssuer + "#key-1"}},
		}
		if diff := cmp.Diff(want, doc); diff != "" {
			tt.Errorf("document mismatch (-want +got):\n%s", diff)
		}
		assert.True(tt, gock.IsDone())
	})

	t.Run("not did:web", func(tt *testing.T) {
		_, err := ResolveDIDWebDocument(ctx, mockedClient(tt), "did:key:z6Mk", time.Second)
		var docErr *DocumentError
		require.ErrorAs(tt, err, &docErr)
		assert.Equal(tt, InvalidDidMethod, docErr.Type)
		assert.Equal(tt, "Expected DID method to be did:web", docErr.Message)
	})

	t.Run("invalid document", func(tt *testing.T) {
		client := mockedClient(tt)
		gock.New("https://example.com").Get("/foo/did.json").Reply(200).JSON(map[string]any{"id": 42})

		_, err := ResolveDIDWebDocument(ctx, client, testutil.DIDWebIssuer, time.Second)
		var docErr *DocumentError
		require.ErrorAs(tt, err, &docErr)
		assert.Equal(tt, InvalidDidDocument, docErr.Type)
		assert.Equal(tt, "Invalid DID Document", docErr.Message)
	})

	t.Run("body is not JSON", func(tt *testing.T) {
		client := mockedClient(tt)
		gock.New("https://example.com").Get("/foo/did.json").Reply(200).BodyString("<html>")

		_, err := ResolveDIDWebDocument(ctx, client, testutil.DIDWebIssuer, time.Second)
		var docErr *DocumentError
		require.ErrorAs(tt, err, &docErr)
		assert.Equal(tt, InvalidDidDocument, docErr.Type)
	})

	t.Run("http failure", func(tt *testing.T) {
		client := mockedClient(tt)
		gock.New("https://example.com").Get("/foo/did.json").Reply(404)

		_, err := ResolveDIDWebDocument(ctx, client, testutil.DIDWebIssuer, time.Second)
		assert.True(tt, request.IsType(err, request.HTTPError))
		assert.EqualError(tt, err, "Request failed with status code 404")
	})
}

func TestGetDIDDocument(t *testing.T) {
	ctx := context.Background()

	t.Run("cache first", func(tt *testing.T) {
		client := mockedClient(tt)
		gock.New("https://example.com").Get("/foo/did.json").Times(1).Reply(200).JSON(testutil.DIDDocument())

		spy := testutil.NewSpyCache[Document]()
		params := GetDocumentParams{Cache: spy, Client: client, DID: testutil.DIDWebIssuer, Timeout: time.Second}

		first, err := GetDIDDocument(ctx, params)
		require.NoError(tt, err)
		second, err := GetDIDDocument(ctx, params)
		require.NoError(tt, err)

		assert.Equal(tt, first, second)
		gets, sets := spy.Counts()
		assert.Equal(tt, 2, gets)
		assert.Equal(tt, 1, sets)
		assert.True(tt, gock.IsDone())
	})

	t.Run("force skips the cache read", func(tt *testing.T) {
		client := mockedClient(tt)
		gock.New("https://example.com").Get("/foo/did.json").Times(2).Reply(200).JSON(testutil.DIDDocument())

		spy := testutil.NewSpyCache[Document]()
		params := GetDocumentParams{Cache: spy, Client: client, DID: testutil.DIDWebIssuer, Force: true}

		for i := 0; i < 2; i++ {
			_, err := GetDIDDocument(ctx, params)
			require.NoError(tt, err)
		}
		gets, sets := spy.Counts()
		assert.Equal(tt, 0, gets)
		assert.Equal(tt, 2, sets)
		assert.True(tt, gock.IsDone())
	})

	t.Run("failures are not cached", func(tt *testing.T) {
		client := mockedClient(tt)
		gock.New("https://example.com").Get("/foo/did.json").Reply(500)

		spy := testutil.NewSpyCache[Document]()
		_, err := GetDIDDocument(ctx, GetDocumentParams{Cache: spy, Client: client, DID: testutil.DIDWebIssuer})
		require.Error(tt, err)
		_, sets := spy.Counts()
		assert.Equal(tt, 0, sets)
	})
}
