package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-verify-api/internal/application/verification"
	"github.com/go-verify-api/internal/config"
	"github.com/go-verify-api/internal/domain"
	"github.com/go-verify-api/internal/infrastructure/dynamo"
	jwtinfra "github.com/go-verify-api/internal/infrastructure/jwt"
	"github.com/go-verify-api/internal/infrastructure/localcode"
	"github.com/go-verify-api/internal/infrastructure/memory"
	"github.com/go-verify-api/internal/infrastructure/provider"
	redisinfra "github.com/go-verify-api/internal/infrastructure/redis"
	"github.com/go-verify-api/internal/infrastructure/smtp"
	"github.com/go-verify-api/internal/infrastructure/sns"
	transporthttp "github.com/go-verify-api/internal/transport/http"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file found, reading from environment")
	}

	cfg := config.Load()

	users, tokens, closeStores := buildStores(cfg)
	defer closeStores()

	// Application JWT signer; required only for PROVIDER_AUTH=jwt.
	var signer *jwtinfra.Signer
	if s, err := jwtinfra.NewSigner(cfg); err == nil {
		signer = s
	} else if cfg.Provider.AuthScheme == "jwt" {
		slog.Error("application JWT signer not available", "err", err)
		os.Exit(1)
	} else {
		slog.Warn("application JWT signer not available, network APIs use basic auth", "err", err)
	}

	p := cfg.Provider
	basic := provider.BasicAuth{Key: p.APIKey, Secret: p.APISecret}
	var appCreds provider.Credentials = basic
	if signer != nil {
		appCreds = provider.ApplicationJWT{Signer: signer}
	}
	codeCreds := provider.Credentials(basic)
	oauthHTTP := provider.NewHTTPClient(nil, p.Timeout)
	clientID, clientSecret := p.APIKey, p.APISecret
	if p.AuthScheme == "jwt" {
		codeCreds = appCreds
		oauthHTTP = provider.NewHTTPClient(appCreds, p.Timeout)
		clientID, clientSecret = p.ApplicationID, ""
	}

	svc := verification.NewService(verification.ServiceDeps{
		Users:           users,
		Tokens:          tokens,
		Codes:           buildCodeVerifier(cfg, codeCreds),
		Exchanger:       provider.NewOAuthClient(p.OAuthTokenURL, clientID, clientSecret, provider.AuthStyle(p.OAuthAuthStyle), oauthHTTP),
		Network:         provider.NewNetworkClient(p.NetworkEnablementURL, p.NumberVerificationURL, p.Scope, appCreds, p.Timeout),
		RedirectURI:     cfg.RedirectURI(),
		DispatchTimeout: p.DispatchTimeout,
	})

	router := transporthttp.NewRouter(cfg, &transporthttp.Deps{Verification: svc})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: p.Timeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "port", cfg.AppPort, "env", cfg.AppEnv,
			"store", cfg.StoreBackend, "codes", cfg.CodeProvider, "redirect_uri", cfg.RedirectURI())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("forced shutdown", "err", err)
	}
	// Let in-flight code dispatches record their request ids.
	svc.Wait()
	slog.Info("server stopped")
}

func buildStores(cfg *config.Config) (verification.UserStore, verification.TokenCache, func()) {
	var (
		users        verification.UserStore
		dynamoClient dynamo.API
	)
	dynamoNeeded := cfg.StoreBackend == "dynamo" || cfg.TokenCacheBackend() == "dynamo"
	if dynamoNeeded {
		// Bootstrap DynamoDB tables (creates them if they don't exist).
		dynamoClient = dynamo.NewClient(cfg)
		dynamo.Bootstrap(context.Background(), dynamoClient, cfg.DynamoTables)
	}

	switch cfg.StoreBackend {
	case "dynamo":
		users = dynamo.NewUserRepo(dynamoClient, cfg.DynamoTables.Users)
	case "memory", "":
		users = memory.NewUserRepo()
	default:
		slog.Error("unknown STORE_BACKEND", "value", cfg.StoreBackend)
		os.Exit(1)
	}

	switch backend := cfg.TokenCacheBackend(); backend {
	case "dynamo":
		return users, dynamo.NewTokenRepo(dynamoClient, cfg.DynamoTables.Tokens, domain.AccessTokenTTL), func() {}
	case "redis":
		rdb, err := redisinfra.NewClient(cfg.RedisURL)
		if err != nil {
			slog.Error("redis not available", "err", err)
			os.Exit(1)
		}
		return users, redisinfra.NewTokenCache(rdb, domain.AccessTokenTTL), func() { _ = rdb.Close() }
	case "memory", "":
		cache := memory.NewTokenCache(domain.AccessTokenTTL)
		return users, cache, cache.Close
	default:
		slog.Error("unknown TOKEN_CACHE", "value", backend)
		os.Exit(1)
		return nil, nil, nil
	}
}

func buildCodeVerifier(cfg *config.Config, creds provider.Credentials) verification.CodeVerifier {
	if cfg.CodeProvider != "local" {
		return provider.NewVerifyClient(cfg.Provider.APIGateway, cfg.Provider.Brand, creds, cfg.Provider.Timeout)
	}
	smsSender, err := sns.NewSender(cfg)
	if err != nil {
		slog.Error("SNS sender not available", "err", err)
		os.Exit(1)
	}
	return localcode.NewVerifier(smsSender, smtp.NewMailer(cfg), cfg.Provider.Brand, cfg.LocalCodeTTL)
}
