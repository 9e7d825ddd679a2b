// Package bootstrap wires configuration, infrastructure and services.
package bootstrap

import (
	"context"
	"hash/fnv"
	"time"

	"inbox_server/adapter/out/llm"
	"inbox_server/adapter/out/messaging"
	"inbox_server/adapter/out/mongodb"
	"inbox_server/adapter/out/payment"
	"inbox_server/adapter/out/persistence"
	"inbox_server/adapter/out/provider/gmail"
	"inbox_server/config"
	"inbox_server/core/port/out"
	"inbox_server/core/service/classify"
	"inbox_server/core/service/dedup"
	"inbox_server/core/service/extract"
	"inbox_server/core/service/sync"
	"inbox_server/infra/database"
	"inbox_server/pkg/logger"
	"inbox_server/pkg/ratelimit"
	"inbox_server/pkg/snowflake"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver for database/sql
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

type Dependencies struct {
	Config  *config.Config
	DB      *pgxpool.Pool
	SQLDB   *sqlx.DB
	Redis   *redis.Client
	MongoDB *mongo.Client

	// Repositories
	JobRepo     out.JobRepository
	DocRepo     out.DocumentRepository
	RuleRepo    out.RuleRepository
	LedgerRepo  out.ActionLedgerRepository
	PaymentRepo out.ScheduledPaymentRepository
	OAuthRepo   *persistence.OAuthAdapter

	// Blob store (MongoDB)
	BlobStore out.BlobStore

	// Provider
	OAuthConfig   *oauth2.Config
	GmailProvider *gmail.Provider

	// Messaging
	MessageProducer out.MessageProducer

	// LLM
	LLMClient  *llm.Client
	Extractor  *llm.Extractor
	Classifier *llm.Classifier

	// Services
	Pipeline    *extract.Pipeline
	RuleEngine  *classify.RuleEngine
	Applier     *classify.Applier
	Dedup       *dedup.Deduplicator
	Coordinator *sync.Coordinator

	// Rate limiting
	SyncLimiter *ratelimit.WindowLimiter
}

func NewDependencies(cfg *config.Config) (*Dependencies, func(), error) {
	deps := &Dependencies{Config: cfg}
	var cleanups []func()

	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}

	// Database (pgxpool)
	db, err := database.NewPostgres(cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	deps.DB = db
	cleanups = append(cleanups, func() { db.Close() })

	// Database (sqlx for the entity adapters)
	sqlDB, err := database.NewSQLX(cfg.DatabaseURL)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	deps.SQLDB = sqlDB
	cleanups = append(cleanups, func() { sqlDB.Close() })

	// Redis
	redisClient, err := database.NewRedis(cfg.RedisURL)
	if err != nil {
		logger.Warn("Redis connection failed: %v", err)
	} else {
		deps.Redis = redisClient
		cleanups = append(cleanups, func() { redisClient.Close() })
	}

	// MongoDB (attachment blobs)
	if cfg.MongoDBURL != "" {
		mongoClient, err := database.NewMongo(cfg.MongoDBURL)
		if err != nil {
			logger.Warn("MongoDB connection failed: %v", err)
		} else {
			deps.MongoDB = mongoClient
			cleanups = append(cleanups, func() {
				mongoClient.Disconnect(context.Background())
			})

			blobAdapter := mongodb.NewBlobAdapter(mongoClient.Database(cfg.MongoDBName))
			if err := blobAdapter.EnsureIndexes(context.Background()); err != nil {
				logger.Warn("Failed to ensure blob indexes: %v", err)
			}
			deps.BlobStore = blobAdapter
		}
	}

	// Message Producer (Redis Streams)
	if deps.Redis != nil {
		deps.MessageProducer = messaging.NewRedisProducer(deps.Redis)
	}

	// Repositories
	deps.JobRepo = persistence.NewJobAdapter(sqlDB)
	deps.DocRepo = persistence.NewDocumentAdapter(sqlDB)
	deps.RuleRepo = persistence.NewRuleAdapter(sqlDB)
	deps.LedgerRepo = persistence.NewLedgerAdapter(sqlDB)
	deps.PaymentRepo = persistence.NewScheduledPaymentAdapter(sqlDB)
	deps.OAuthRepo = persistence.NewOAuthAdapter(sqlDB)

	// Gmail Provider. mailbox stays a nil interface when OAuth is not
	// configured: a typed-nil *gmail.Provider would pass every nil check
	// downstream and panic on first use.
	var mailbox out.MailboxProvider
	if cfg.GoogleClientID != "" && cfg.GoogleClientSecret != "" {
		deps.OAuthConfig = &oauth2.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  cfg.GoogleRedirectURL,
			Scopes: []string{
				"https://www.googleapis.com/auth/gmail.readonly",
				"https://www.googleapis.com/auth/userinfo.email",
			},
			Endpoint: google.Endpoint,
		}
		deps.GmailProvider = gmail.NewProvider(deps.OAuthConfig, deps.OAuthRepo)
		mailbox = deps.GmailProvider
	} else {
		logger.Warn("Google OAuth not configured, mailbox sync disabled")
	}

	// LLM client + adapters
	svcLog := logger.Default()
	deps.LLMClient = llm.NewClient(llm.ClientConfig{
		APIKey:      cfg.OpenAIAPIKey,
		Model:       cfg.LLMModel,
		MaxTokens:   cfg.LLMMaxTokens,
		Temperature: cfg.LLMTemperature,
		Timeout:     time.Duration(cfg.LLMTimeoutSec) * time.Second,
		MaxRetries:  cfg.LLMMaxRetries,
	}, svcLog)
	deps.Extractor = llm.NewExtractor(deps.LLMClient, svcLog)
	deps.Classifier = llm.NewClassifier(deps.LLMClient, svcLog)

	// Core services
	deps.Dedup = dedup.NewDeduplicator(deps.DocRepo, svcLog)
	deps.Pipeline = extract.NewPipeline(mailbox, deps.Extractor, deps.BlobStore, cfg.AttachmentMaxMB, cfg.ExtractionWorkers, svcLog)
	deps.RuleEngine = classify.NewRuleEngine(deps.Classifier, svcLog)

	ids, err := snowflake.NewGenerator(snowflakeNode(cfg.NodeID))
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	scheduler := payment.NewStoreScheduler(deps.PaymentRepo, svcLog)
	deps.Applier = classify.NewApplier(scheduler, deps.LedgerRepo, ids, svcLog)

	// Per-owner sync rate limit (sliding daily window)
	if deps.Redis != nil && cfg.SyncRatePerDay > 0 {
		deps.SyncLimiter = ratelimit.NewWindowLimiter(deps.Redis, "ratelimit:sync", 24*time.Hour, int64(cfg.SyncRatePerDay))
	}

	deps.Coordinator = sync.NewCoordinator(
		deps.JobRepo,
		deps.DocRepo,
		deps.RuleRepo,
		mailbox,
		deps.Pipeline,
		deps.RuleEngine,
		deps.Applier,
		deps.Dedup,
		deps.MessageProducer,
		deps.SyncLimiter,
		sync.Options{
			SearchQuery: cfg.SyncSearchQuery,
			SearchDays:  cfg.SyncSearchDays,
			MaxTotal:    cfg.SyncMaxTotal,
		},
		svcLog,
	)

	logger.Info("Dependencies initialized")
	return deps, cleanup, nil
}

// snowflakeNode folds the node id string into the generator's node range.
func snowflakeNode(nodeID string) int64 {
	h := fnv.New32a()
	h.Write([]byte(nodeID))
	return int64(h.Sum32() % 1024)
}
