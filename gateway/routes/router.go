package routes

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"
	"github.com/holiman/uint256"

	"marketfront/core/session"
	"marketfront/gateway/middleware"
)

// Session is the command surface the API drives.
type Session interface {
	Snapshot() session.State
	Dispatch(ctx context.Context, cmd session.Command) (session.State, error)
	Balance(ctx context.Context, owner common.Address) (*uint256.Int, error)
	Subscribe() (<-chan session.State, func())
}

// CommandMetrics observes dispatched commands.
type CommandMetrics interface {
	ObserveCommand(command, outcome string, elapsed time.Duration)
	SetStateVersion(version uint64)
}

// Rate limit keys mounted by New.
const (
	RateLimitRead  = "read"
	RateLimitWrite = "write"
)

type Config struct {
	Session        Session
	Logger         *slog.Logger
	Metrics        CommandMetrics
	MaxUploadBytes int64
	CommandTimeout time.Duration
	HealthCheck    func(context.Context) error
	Authenticator  *middleware.Authenticator
	RateLimiter    *middleware.RateLimiter
	Observability  *middleware.Observability
	CORS           middleware.CORSConfig
}

// New builds the marketfront HTTP API.
func New(cfg Config) http.Handler {
	api := newAPI(cfg)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.CORS(cfg.CORS))
	if cfg.Observability != nil {
		r.Use(cfg.Observability.Middleware)
		r.Handle("/metrics", cfg.Observability.MetricsHandler())
	}
	r.Get("/healthz", api.health)

	limit := func(key string) func(http.Handler) http.Handler {
		if cfg.RateLimiter == nil {
			return passThrough
		}
		return cfg.RateLimiter.Middleware(key)
	}
	scope := func(scopes ...string) func(http.Handler) http.Handler {
		if cfg.Authenticator == nil {
			return passThrough
		}
		return cfg.Authenticator.Middleware(scopes...)
	}

	r.Route("/v1", func(v1 chi.Router) {
		v1.Group(func(read chi.Router) {
			read.Use(scope(middleware.ScopeRead), limit(RateLimitRead))
			read.Get("/state", api.state)
			read.Get("/balance/{owner}", api.balance)
			read.Get("/stream", api.stream)
		})
		v1.Group(func(write chi.Router) {
			write.Use(scope(middleware.ScopeWrite), limit(RateLimitWrite))
			write.Post("/refresh", api.refresh)
			write.Post("/rights/request", api.requestRights)
			write.Post("/storefronts", api.addStorefront)
			write.Delete("/storefronts/{owner}/{index}", api.removeStorefront)
			write.Post("/storefronts/{owner}/{index}/select", api.selectStorefront)
			write.Post("/storefronts/{owner}/{index}/withdraw", api.withdraw)
			write.Post("/products", api.addProduct)
			write.Delete("/products/{index}", api.removeProduct)
			write.Put("/products/{index}/price", api.updatePrice)
			write.Post("/products/{index}/purchase", api.purchase)
			write.Post("/products/{index}/image", api.uploadImage)
		})
		v1.Group(func(admin chi.Router) {
			admin.Use(scope(middleware.ScopeAdmin), limit(RateLimitWrite))
			admin.Post("/users/{addr}/shop-owner", api.grantShopOwner)
			admin.Post("/users/{addr}/admin", api.grantAdmin)
			admin.Delete("/users/{addr}", api.deleteUser)
			admin.Post("/admin/toggle-active", api.toggleActive)
			admin.Post("/admin/emergency-withdraw", api.emergencyWithdraw)
		})
	})
	return r
}

func passThrough(next http.Handler) http.Handler { return next }
