package service

import (
	"context"
	"fmt"

	sdkutil "github.com/TBD54566975/ssi-sdk/util"
	"github.com/redis/go-redis/v9"

	"github.com/tbd54566975/cwt-verifier/config"
	"github.com/tbd54566975/cwt-verifier/internal/did"
	"github.com/tbd54566975/cwt-verifier/pkg/cache"
	"github.com/tbd54566975/cwt-verifier/pkg/resolver"
	"github.com/tbd54566975/cwt-verifier/pkg/service/framework"
	"github.com/tbd54566975/cwt-verifier/pkg/service/issuer"
	"github.com/tbd54566975/cwt-verifier/pkg/service/verification"
	"github.com/tbd54566975/cwt-verifier/pkg/verify"
)

// VerifierService represents all services and their dependencies independent of transport
type VerifierService struct {
	Verification *verification.Service
	Issuer       *issuer.Service

	redisClient *redis.Client
}

// InstantiateVerifierService creates a new instance of the verifier which instantiates all services and their
// dependencies independent of transport. Resolver options are applied after the configured ones.
func InstantiateVerifierService(ctx context.Context, cfg config.VerifierServiceConfig, resolverOpts ...resolver.Option) (*VerifierService, error) {
	if err := validateServiceConfig(cfg); err != nil {
		return nil, sdkutil.LoggingErrorMsg(err, "could not instantiate verifier service, invalid config")
	}
	service, err := instantiateServices(ctx, cfg, resolverOpts)
	if err != nil {
		return nil, sdkutil.LoggingErrorMsgf(err, "could not instantiate the verifier service")
	}
	return service, nil
}

func validateServiceConfig(cfg config.VerifierServiceConfig) error {
	switch cfg.Cache.Provider {
	case config.CacheProviderMemory:
	case config.CacheProviderRedis:
		if cfg.Cache.RedisAddress == "" {
			return fmt.Errorf("%s cache configured without an address", cfg.Cache.Provider)
		}
	default:
		return fmt.Errorf("%s cache provider configured, but not available", cfg.Cache.Provider)
	}
	if cfg.Verifier.ResolveTimeout < 0 {
		return fmt.Errorf("%s negative resolve timeout", framework.Issuer)
	}
	return nil
}

// instantiateServices begins all instantiates and their dependencies
func instantiateServices(ctx context.Context, cfg config.VerifierServiceConfig, resolverOpts []resolver.Option) (*VerifierService, error) {
	cacheOpts := []cache.Option{cache.WithMaxSize(cfg.Cache.MaxSize), cache.WithMaxAge(cfg.Cache.MaxAge)}

	var (
		documentCache cache.Cache[did.Document]
		redisClient   *redis.Client
		health        issuer.HealthCheck
	)
	if cfg.Cache.IsRedis() {
		client, err := cache.NewRedisClient(ctx, cfg.Cache.RedisAddress, cfg.Cache.RedisPassword)
		if err != nil {
			return nil, sdkutil.LoggingErrorMsgf(err, "could not connect to redis at: %s", cfg.Cache.RedisAddress)
		}
		redisClient = client
		documentCache = cache.NewRedisCache[did.Document](client, cacheOpts)
		health = func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		}
	} else {
		documentCache = cache.NewMemoryCache[did.Document](cacheOpts...)
	}

	opts := append([]resolver.Option{
		resolver.WithCache(documentCache),
		resolver.WithTimeout(cfg.Verifier.ResolveTimeout),
	}, resolverOpts...)
	didWebResolver := resolver.NewDIDWebResolver(opts...)

	issuerService, err := issuer.NewIssuerService(didWebResolver, health)
	if err != nil {
		return nil, sdkutil.LoggingErrorMsg(err, "could not instantiate the issuer service")
	}

	verifier := verify.NewVerifier(verify.WithDefaultResolver(didWebResolver))
	verificationService, err := verification.NewVerificationService(cfg.Verifier, verifier)
	if err != nil {
		return nil, sdkutil.LoggingErrorMsg(err, "could not instantiate the verification service")
	}

	return &VerifierService{
		Verification: verificationService,
		Issuer:       issuerService,
		redisClient:  redisClient,
	}, nil
}

// GetServices returns all services
func (s *VerifierService) GetServices() []framework.Service {
	return []framework.Service{
		s.Verification,
		s.Issuer,
	}
}

// Close releases connections held by the services.
func (s *VerifierService) Close() error {
	if s.redisClient == nil {
		return nil
	}
	return s.redisClient.Close()
}
