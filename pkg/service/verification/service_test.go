package verification

import (
	"context"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbd54566975/cwt-verifier/config"
	"github.com/tbd54566975/cwt-verifier/pkg/resolver"
	"github.com/tbd54566975/cwt-verifier/pkg/service/framework"
	"github.com/tbd54566975/cwt-verifier/pkg/testutil"
	"github.com/tbd54566975/cwt-verifier/pkg/verify"
)

func newVerificationService(t *testing.T, cfg config.VerifierConfig, unixSeconds int64) *Service {
	mockClock := clock.NewMock()
	mockClock.Set(time.Unix(unixSeconds, 0))
	staticResolver := resolver.NewStaticResolver().
		AddKey(testutil.FixtureIssuer, testutil.FixtureKeyID, testutil.ValidPublicKeyJWK())
	verifier := verify.NewVerifier(verify.WithClock(mockClock), verify.WithDefaultResolver(staticResolver))

	service, err := NewVerificationService(cfg, verifier)
	require.NoError(t, err)
	require.NotNil(t, service)
	return service
}

func boolPtr(b bool) *bool {
	return &b
}

func TestVerificationService(t *testing.T) {
	defaults := config.VerifierConfig{AssertExpiry: true, AssertNotBefore: true}
	afterExpiry := int64(testutil.FixtureExpiry + 60)

	t.Run("status", func(tt *testing.T) {
		service := newVerificationService(tt, defaults, afterExpiry)
		assert.Equal(tt, framework.Verification, service.Type())
		assert.Equal(tt, framework.StatusReady, service.Status().Status)
		assert.Equal(tt, defaults, service.Config())

		var empty Service
		status := empty.Status()
		assert.Equal(tt, framework.StatusNotReady, status.Status)
		assert.Contains(tt, status.Message, "no verifier configured")
	})

	t.Run("nil verifier", func(tt *testing.T) {
		_, err := NewVerificationService(defaults, nil)
		assert.Error(tt, err)
	})

	t.Run("configured defaults apply", func(tt *testing.T) {
		service := newVerificationService(tt, defaults, afterExpiry)
		result, err := service.VerifyCredential(context.Background(), VerifyCredentialRequest{
			Payload: testutil.FixturePayload(tt),
		})
		require.NoError(tt, err)
		assert.False(tt, result.Verified)
		require.NotNil(tt, result.Reason)
		assert.Equal(tt, verify.Expired, result.Reason.Type)
	})

	t.Run("request overrides defaults", func(tt *testing.T) {
		service := newVerificationService(tt, defaults, afterExpiry)
		result, err := service.VerifyCredential(context.Background(), VerifyCredentialRequest{
			Payload:      testutil.FixturePayload(tt),
			AssertExpiry: boolPtr(false),
		})
		require.NoError(tt, err)
		assert.True(tt, result.Verified)
		assert.Equal(tt, testutil.FixtureIssuer, result.Payload.Issuer)
	})

	t.Run("configured trusted issuers", func(tt *testing.T) {
		cfg := config.VerifierConfig{TrustedIssuers: []string{"did:web:example.com"}}
		service := newVerificationService(tt, cfg, afterExpiry)
		result, err := service.VerifyCredential(context.Background(), VerifyCredentialRequest{
			Payload: testutil.FixturePayload(tt),
		})
		require.NoError(tt, err)
		require.NotNil(tt, result.Reason)
		assert.Equal(tt, verify.IssuerNotTrusted, result.Reason.Type)
	})

	t.Run("explicit empty trusted issuers trusts nobody", func(tt *testing.T) {
		service := newVerificationService(tt, config.VerifierConfig{}, afterExpiry)
		trusted := []string{}
		result, err := service.VerifyCredential(context.Background(), VerifyCredentialRequest{
			Payload:        testutil.FixturePayload(tt),
			TrustedIssuers: &trusted,
		})
		require.NoError(tt, err)
		require.NotNil(tt, result.Reason)
		assert.Equal(tt, verify.IssuerNotTrusted, result.Reason.Type)
	})

	t.Run("request trusted issuers replace configured ones", func(tt *testing.T) {
		cfg := config.VerifierConfig{TrustedIssuers: []string{"did:web:example.com"}}
		service := newVerificationService(tt, cfg, testutil.FixtureNotBefore+60)
		trusted := []string{testutil.FixtureIssuer}
		result, err := service.VerifyCredential(context.Background(), VerifyCredentialRequest{
			Payload:        testutil.FixturePayload(tt),
			TrustedIssuers: &trusted,
		})
		require.NoError(tt, err)
		assert.True(tt, result.Verified)
	})
}

func TestOptions(t *testing.T) {
	service := Service{config: config.VerifierConfig{AssertExpiry: true, AssertNotBefore: false}}

	t.Run("no overrides", func(tt *testing.T) {
		opts := service.options(VerifyCredentialRequest{Payload: []byte{1}})
		assert.Equal(tt, []byte{1}, opts.Payload)
		assert.Nil(tt, opts.TrustedIssuers)
		assert.True(tt, opts.AssertExpiry)
		assert.False(tt, opts.AssertNotBefore)
	})

	t.Run("all overrides", func(tt *testing.T) {
		trusted := []string{"did:web:a.com"}
		opts := service.options(VerifyCredentialRequest{
			TrustedIssuers:  &trusted,
			AssertExpiry:    boolPtr(false),
			AssertNotBefore: boolPtr(true),
		})
		assert.Equal(tt, trusted, opts.TrustedIssuers)
		assert.False(tt, opts.AssertExpiry)
		assert.True(tt, opts.AssertNotBefore)
	})

	t.Run("nil list behind a pointer trusts nobody", func(tt *testing.T) {
		var trusted []string
		opts := service.options(VerifyCredentialRequest{TrustedIssuers: &trusted})
		assert.NotNil(tt, opts.TrustedIssuers)
		assert.Empty(tt, opts.TrustedIssuers)
	})
}
