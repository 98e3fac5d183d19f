// Package httpapi wires the HTTP transport (Gin) to application services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging/redaction, panic recovery, metrics,
// CORS, security headers, idempotency, and rate limiting.
//
// Design goals:
//   - Put observability first (OTel + Prometheus)
//   - Safe-by-default middleware ordering (RequestID → logging → recovery)
//   - Deterministic, minimal router setup; all dependencies injected
//   - Production-ready CORS and security header posture
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	stripeclient "github.com/stripe/stripe-go/v82/client"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	_ "chatroom-backend/docs"
	"chatroom-backend/internal/cache"
	"chatroom-backend/internal/config"
	"chatroom-backend/internal/domain"
	"chatroom-backend/internal/http/handlers"
	"chatroom-backend/internal/http/middleware"
	"chatroom-backend/internal/queue"
	"chatroom-backend/internal/ratelimit"
	"chatroom-backend/internal/repo"
	"chatroom-backend/internal/services"
)

// chatroomRepoShim adapts the repository free functions to the
// services.ChatroomRepo interface expected by the ChatroomService. This keeps
// services decoupled from the concrete repo package while reusing existing
// functions.
type chatroomRepoShim struct{}

// CreateChatroom proxies repo.CreateChatroom.
func (chatroomRepoShim) CreateChatroom(ctx context.Context, db *gorm.DB, userID, name string) (*domain.Chatroom, error) {
	return repo.CreateChatroom(ctx, db, userID, name)
}

// ListChatrooms proxies repo.ListChatrooms.
func (chatroomRepoShim) ListChatrooms(ctx context.Context, db *gorm.DB, userID string) ([]domain.Chatroom, error) {
	return repo.ListChatrooms(ctx, db, userID)
}

// GetChatroom proxies repo.GetChatroom.
func (chatroomRepoShim) GetChatroom(ctx context.Context, db *gorm.DB, id, userID string) (*domain.Chatroom, error) {
	return repo.GetChatroom(ctx, db, id, userID)
}

// ListMessages proxies repo.ListMessages.
func (chatroomRepoShim) ListMessages(ctx context.Context, db *gorm.DB, chatroomID string, limit int) ([]domain.Message, error) {
	return repo.ListMessages(db.WithContext(ctx), chatroomID, limit)
}

// Deps carries the infrastructure dependencies the HTTP layer is wired with.
// All fields are required except Stripe, which may be nil when billing is not
// configured (the subscription routes then return errors instead of panics).
type Deps struct {
	DB     *gorm.DB
	Queue  queue.Queue
	Gate   ratelimit.Gate
	Cache  cache.ChatroomCache
	OTP    services.OTPStore
	Stripe *stripeclient.API
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine. It configures observability (tracing, metrics), idempotency and rate
// limiting, CORS and security headers, health and metrics endpoints, and then
// mounts the versioned public API under /api/v*.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. RedactingLogger: structured logs with PII scrubbing
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Metrics
//  7. Idempotency validator (before rate limiter to allow bypass on replay)
//  8. Rate limiter (per user/IP, bypass on replay)
//  9. CORS and Security headers
func RegisterRoutes(r *gin.Engine, deps Deps, cfg config.Config) {
	r.HandleMethodNotAllowed = true
	db := deps.DB

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured logging with redaction; mobile numbers and tokens must
	// never reach the logs in the clear.
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{
		MaskHeaders: []string{
			"X-API-Key",
			"Stripe-Signature",
		},
	}))

	// 4) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 5) Global body size limit (1 MiB)
	r.Use(limitBody(1 << 20))

	// 6) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 7) Idempotency validation (before rate limiting)
	r.Use(middleware.IdempotencyValidator(
		middleware.IdempotencyOptions{
			MaxLen: 200,
		},
		func(ctx context.Context, userID, chatroomID, key string, now time.Time) (bool, error) {
			rec, err := repo.GetIdempotency(ctx, db, userID, chatroomID, key, now)
			if err != nil || rec == nil {
				return false, nil
			}
			return true, nil
		},
	))

	// 8) Token-bucket rate limiter per user/IP. This is the edge guard
	// against bursts; the per-day allowance lives in the message service.
	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByUserOrIP())
	r.Use(rl.Handler())

	// 9) CORS posture (safe defaults: allow all if none configured)
	if len(cfg.CORS.AllowedOrigins) == 0 {
		// Force ACAO: * even for requests without an Origin header (helps tests and simple health checks).
		r.Use(func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-User-ID", middleware.HeaderIdempotencyKey},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
			AllowCredentials: false, // must remain false with AllowAllOrigins
			MaxAge:           12 * time.Hour,
		}))
	} else {
		// Echo ACAO with the request Origin when it is in the allowlist (in addition to gin-contrib/cors).
		allowed := make(map[string]struct{}, len(cfg.CORS.AllowedOrigins))
		for _, o := range cfg.CORS.AllowedOrigins {
			allowed[o] = struct{}{}
		}
		r.Use(func(c *gin.Context) {
			if origin := c.GetHeader("Origin"); origin != "" {
				if _, ok := allowed[origin]; ok {
					h := c.Writer.Header()
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
				}
			}
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-User-ID", middleware.HeaderIdempotencyKey},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	}

	// Security headers (HSTS only when enabled and request is HTTPS)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		NoStore:      false,
		EnablePolicy: true,
	}))

	// Compress responses; listings and histories are JSON-heavy.
	r.Use(gzip.Gzip(gzip.DefaultCompression))

	// Swagger UI, off by default outside development.
	if cfg.SwaggerEnabled {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	// Liveness/health
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	// Dependency injection: services ← repo/db/queue/gate/cache
	roomSvc := services.NewChatroomService(db, chatroomRepoShim{}, deps.Cache)
	msgSvc := &services.MessageService{
		DB:              db,
		Gate:            deps.Gate,
		Queue:           deps.Queue,
		Cache:           deps.Cache,
		MaxContentRunes: 2000,
	}
	fbSvc := &services.FeedbackService{DB: db}
	authSvc := &services.AuthService{
		DB:        db,
		OTP:       deps.OTP,
		JWTSecret: []byte(cfg.Auth.JWTSecret),
		JWTTTL:    cfg.Auth.JWTTTL,
		OTPTTL:    cfg.Auth.OTPTTL,
	}
	subSvc := &services.SubscriptionService{
		DB:            db,
		Stripe:        deps.Stripe,
		ProPriceID:    cfg.Stripe.ProPriceID,
		WebhookSecret: cfg.Stripe.WebhookSecret,
		FrontendURL:   cfg.Stripe.FrontendURL,
	}
	h := handlers.New(roomSvc, msgSvc, fbSvc, authSvc, subSvc)

	auth := middleware.Auth([]byte(cfg.Auth.JWTSecret))

	// Public API
	apiBase := cfg.APIBasePath // e.g. "/api/v1"
	api := groupWithPrefix(r, apiBase)
	{
		// Auth (no token required)
		api.POST("/auth/signup", h.Signup)
		api.POST("/auth/login", h.Login)
		api.POST("/auth/otp/send", h.SendOTP)
		api.POST("/auth/otp/verify", h.VerifyOTP)
		api.POST("/auth/forgot-password", h.ForgotPassword)

		// Stripe event sink (signature-verified, no token)
		api.POST("/webhook/stripe", h.StripeWebhook)

		// Everything below requires a bearer token.
		authed := api.Group("", auth)

		authed.POST("/auth/change-password", h.ChangePassword)
		authed.GET("/user/me", h.Me)

		// Chatrooms
		authed.POST("/chatroom", h.CreateChatroom)
		authed.GET("/chatroom", h.ListChatrooms)
		authed.GET("/chatroom/:id", h.GetChatroom)

		// Messages
		authed.POST("/chatroom/:id/message", h.SendMessage)

		// Feedback
		authed.POST("/message/:id/feedback", h.LeaveFeedback)

		// Subscription
		authed.POST("/subscribe/pro", h.SubscribePro)
		authed.GET("/subscription/status", h.SubscriptionStatus)
	}
}

// limitBody returns a Gin middleware that caps the request body size for all
// endpoints to maxBytes using http.MaxBytesReader. Requests exceeding the cap
// will cause downstream body reads to error.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
