package bootstrap

import (
	"strings"

	"inbox_server/adapter/in/http"
	"inbox_server/adapter/out/persistence"
	"inbox_server/config"
	"inbox_server/infra/middleware"
	"inbox_server/pkg/logger"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/redis/go-redis/v9"
)

func NewAPI(cfg *config.Config) (*fiber.App, func(), error) {
	logLevel := logger.LevelInfo
	if cfg.IsDevelopment() {
		logLevel = logger.LevelDebug
	}
	logger.Init(logger.Config{
		Level:   logLevel,
		Service: "inbox-api",
	})

	deps, cleanup, err := NewDependencies(cfg)
	if err != nil {
		logger.WithError(err).Error("Failed to initialize dependencies")
		return nil, nil, err
	}

	app := fiber.New(fiber.Config{
		ErrorHandler:          middleware.ErrorHandler(),
		DisableStartupMessage: cfg.IsProduction(),
		StrictRouting:         false,
		CaseSensitive:         false,

		// go-json is noticeably faster than encoding/json for the card
		// payloads the API serves
		JSONEncoder: json.Marshal,
		JSONDecoder: json.Unmarshal,

		BodyLimit: 1 * 1024 * 1024,
	})

	// Global middleware stack (order matters)
	app.Use(middleware.Recover())
	app.Use(middleware.RequestID())
	app.Use(middleware.RequestLogger())

	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))

	// CORS - credentials require explicit origins
	allowOrigins := strings.Join(cfg.AllowedOrigins, ",")
	allowCredentials := true
	if allowOrigins == "" || allowOrigins == "*" {
		if cfg.IsProduction() {
			allowOrigins = ""
			allowCredentials = false
		} else {
			allowOrigins = "http://localhost:3000,http://localhost:5173"
		}
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     allowOrigins,
		AllowMethods:     "GET,POST,PUT,DELETE,PATCH,OPTIONS",
		AllowHeaders:     "Origin,Content-Type,Accept,Authorization,X-Request-ID",
		ExposeHeaders:    "X-Request-ID",
		AllowCredentials: allowCredentials,
		MaxAge:           86400,
	}))

	// Health check (no auth required). A nil *redis.Client must stay a nil
	// interface or the readiness probe would ping it.
	var rdb redis.UniversalClient
	if deps.Redis != nil {
		rdb = deps.Redis
	}
	healthHandler := http.NewHealthHandler(deps.DB, rdb, deps.MongoDB)
	healthHandler.Register(app)

	// OAuth state store for CSRF protection
	var stateStore http.OAuthStateStore
	if deps.Redis != nil {
		stateStore = persistence.NewRedisOAuthStateStore(deps.Redis)
	}

	var oauthHandler *http.OAuthHandler
	if deps.OAuthConfig != nil && stateStore != nil {
		oauthHandler = http.NewOAuthHandler(deps.OAuthConfig, deps.OAuthRepo, stateStore)
		// Callback has no bearer token - Google redirects the browser here
		oauthHandler.RegisterCallback(app.Group("/api/v1"))
	}

	// API routes (with auth)
	api := app.Group("/api/v1")
	api.Use(middleware.JWTAuth(cfg.JWTSecret))

	if oauthHandler != nil {
		oauthHandler.Register(api)
	}

	syncHandler := http.NewSyncHandler(deps.Coordinator)
	syncHandler.Register(api)

	documentHandler := http.NewDocumentHandler(deps.DocRepo, deps.LedgerRepo, deps.BlobStore)
	documentHandler.Register(api)

	ruleHandler := http.NewRuleHandler(deps.RuleRepo)
	ruleHandler.Register(api)

	paymentHandler := http.NewPaymentHandler(deps.PaymentRepo, deps.LedgerRepo)
	paymentHandler.Register(api)

	logger.Info("API server initialized successfully")

	return app, cleanup, nil
}
