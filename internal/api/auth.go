package api

import (
	"context"
	"crypto/subtle"
	"errors"
	"strings"

	"aforo/internal/config"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
)

const (
	apiKeyHeaderDefault   = "x-api-key"
	apiExtraHeaderDefault = "x-api-extra"
	clientKeyUnknown      = "unknown"

	permRead   = "read"
	permWrite  = "write"
	permImport = "import"
)

var (
	errMissingCredentials = errors.New("missing api key headers")
	errInvalidAPIKey      = errors.New("invalid api key")
	errInvalidExtra       = errors.New("invalid extra header")
	errPermissionDenied   = errors.New("permission denied")
)

// clientRegistry resolves API keys to the configured clients.
type clientRegistry struct {
	byKey       map[string]config.APIClientKey
	keyHeader   string
	extraHeader string
}

func newClientRegistry(cfg config.APIAuthConfig) *clientRegistry {
	m := make(map[string]config.APIClientKey, len(cfg.APIKeys))
	for _, k := range cfg.APIKeys {
		m[k.Key] = k
	}

	keyHeader := strings.ToLower(strings.TrimSpace(cfg.HeaderAPIKey))
	if keyHeader == "" {
		keyHeader = apiKeyHeaderDefault
	}
	extraHeader := strings.ToLower(strings.TrimSpace(cfg.HeaderExtra))
	if extraHeader == "" {
		extraHeader = apiExtraHeaderDefault
	}

	return &clientRegistry{byKey: m, keyHeader: keyHeader, extraHeader: extraHeader}
}

func (c *clientRegistry) authenticate(apiKey, extra, required string) (config.APIClientKey, error) {
	if apiKey == "" || extra == "" {
		return config.APIClientKey{}, errMissingCredentials
	}

	client, ok := c.byKey[apiKey]
	if !ok {
		return config.APIClientKey{}, errInvalidAPIKey
	}
	if subtle.ConstantTimeCompare([]byte(client.Extra), []byte(extra)) != 1 {
		return config.APIClientKey{}, errInvalidExtra
	}
	if !hasPermission(client, required) {
		return config.APIClientKey{}, errPermissionDenied
	}
	return client, nil
}

func hasPermission(client config.APIClientKey, required string) bool {
	if required == "" {
		return true
	}
	// An empty permission list allows everything.
	if len(client.Permissions) == 0 {
		return true
	}
	for _, p := range client.Permissions {
		if strings.TrimSpace(p) == required {
			return true
		}
	}
	return false
}

type clientCtxKey struct{}

func withClient(ctx context.Context, client config.APIClientKey) context.Context {
	return context.WithValue(ctx, clientCtxKey{}, client)
}

// ClientFromContext returns the API client authenticated for the request.
func ClientFromContext(ctx context.Context) (config.APIClientKey, bool) {
	client, ok := ctx.Value(clientCtxKey{}).(config.APIClientKey)
	return client, ok
}

// AuthInterceptor applies API-key auth and rate limiting to gRPC calls.
type AuthInterceptor struct {
	cfg     *config.APIConfig
	clients *clientRegistry
	limiter *rateLimiter
}

func NewAuthInterceptor(cfg *config.APIConfig) *AuthInterceptor {
	return &AuthInterceptor{
		cfg:     cfg,
		clients: newClientRegistry(cfg.Auth),
		limiter: newRateLimiter(cfg.RateLimit),
	}
}

func (a *AuthInterceptor) Unary() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		ctx, err := a.authorize(ctx, info.FullMethod)
		if err != nil {
			return nil, err
		}
		return handler(ctx, req)
	}
}

func (a *AuthInterceptor) Stream() grpc.StreamServerInterceptor {
	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		if _, err := a.authorize(ss.Context(), info.FullMethod); err != nil {
			return err
		}
		return handler(srv, ss)
	}
}

func (a *AuthInterceptor) authorize(ctx context.Context, fullMethod string) (context.Context, error) {
	if !a.cfg.Enabled {
		return ctx, nil
	}

	if a.cfg.Auth.Enabled {
		md, ok := metadata.FromIncomingContext(ctx)
		if !ok {
			return ctx, status.Error(codes.Unauthenticated, "missing metadata")
		}
		client, err := a.clients.authenticate(
			first(md.Get(a.clients.keyHeader)),
			first(md.Get(a.clients.extraHeader)),
			requiredPermission(fullMethod),
		)
		if errors.Is(err, errPermissionDenied) {
			return ctx, status.Error(codes.PermissionDenied, err.Error())
		}
		if err != nil {
			return ctx, status.Error(codes.Unauthenticated, err.Error())
		}
		ctx = withClient(ctx, client)
	}

	if !a.limiter.Allow(a.clientKey(ctx)) {
		return ctx, status.Error(codes.ResourceExhausted, "rate limit exceeded")
	}
	return ctx, nil
}

// requiredPermission maps gRPC methods to the permission they need.
func requiredPermission(fullMethod string) string {
	if strings.HasPrefix(fullMethod, "/grpc.health.v1.Health/") {
		return permRead
	}
	return ""
}

func (a *AuthInterceptor) clientKey(ctx context.Context) string {
	md, _ := metadata.FromIncomingContext(ctx)
	if apiKey := first(md.Get(a.clients.keyHeader)); apiKey != "" {
		return apiKey
	}
	if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
		return p.Addr.String()
	}
	return clientKeyUnknown
}

func first(vals []string) string {
	if len(vals) == 0 {
		return ""
	}
	return strings.TrimSpace(vals[0])
}
