package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/authrouter/authrouter/handlers"
	"github.com/authrouter/authrouter/internal/config"
	"github.com/authrouter/authrouter/internal/database"
	"github.com/authrouter/authrouter/internal/providers"
	"github.com/authrouter/authrouter/internal/sessions"
	"github.com/authrouter/authrouter/internal/tokens"
	"github.com/authrouter/authrouter/internal/users"
	"github.com/authrouter/authrouter/pkg/logger"
	"github.com/authrouter/authrouter/pkg/metrics"
	"github.com/authrouter/authrouter/pkg/middleware"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
)

var startTime = time.Now()

func main() {
	// initialize logging (can be controlled with LOG_LEVEL env: debug|info|warn|error|fatal)
	logger.Init(os.Getenv("LOG_LEVEL"))
	defer logger.Sync()
	logger.Debugf("startup: LOG_LEVEL=%s", logger.LevelString())

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	logger.Infof("config loaded: store=%s mongo=%v redis=%v", cfg.Store.Driver, cfg.MongoDB.URI != "", cfg.Redis.Host != "")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	// Lightweight CORS middleware: set common headers and respond to OPTIONS.
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "Content-Length")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(200)
			return
		}
		c.Next()
	})

	// Global middlewares: logging + recovery
	r.Use(gin.Logger(), gin.Recovery())

	// Redis backs sessions and the distributed rate limiter when reachable
	var redisClient *redis.Client
	if cfg.Redis.Host != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Host + ":" + cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			logger.Warnf("failed to connect to Redis (%s:%s): %v", cfg.Redis.Host, cfg.Redis.Port, err)
			_ = client.Close()
		} else {
			redisClient = client
			defer func() { _ = redisClient.Close() }()
			logger.Infof("connected to Redis %s:%s", cfg.Redis.Host, cfg.Redis.Port)
		}
	}

	// Mongo is needed for the mongo user store and is also used for sessions
	// when Redis is absent.
	var mongoClient *mongo.Client
	if cfg.MongoDB.URI != "" {
		client, err := database.ConnectMongo(ctx, cfg.MongoDB.URI, cfg.MongoDB.Timeout, 5)
		if err != nil {
			if cfg.Store.Driver == "mongo" {
				logger.Fatalf("user store unavailable: %v", err)
			}
			logger.Warnf("could not connect to MongoDB: %v", err)
		} else {
			mongoClient = client
			defer func() { _ = mongoClient.Disconnect(context.Background()) }()
		}
	}

	// User store
	var userRepo users.UserRepository
	var sqliteDB *sql.DB
	switch cfg.Store.Driver {
	case "mongo":
		userRepo = users.NewMongoUserRepository(mongoClient.Database(cfg.MongoDB.Database).Collection("users"))
		logger.Infof("user store: mongo database=%s", cfg.MongoDB.Database)
	default:
		sqliteDB, err = database.OpenSQLite(ctx, cfg.Store.SQLitePath)
		if err != nil {
			logger.Fatalf("user store unavailable: %v", err)
		}
		defer func() { _ = sqliteDB.Close() }()
		userRepo = users.NewSQLiteUserRepository(sqliteDB)
		logger.Infof("user store: sqlite path=%s", cfg.Store.SQLitePath)
	}
	userSvc := users.NewService(userRepo)

	// Session storage: Redis, then Mongo, then process memory
	var sessionRepo sessions.Repository
	switch {
	case redisClient != nil:
		sessionRepo = sessions.NewRedisRepository(redisClient, "session:")
		logger.Infof("session store: redis")
	case mongoClient != nil:
		mrepo := sessions.NewMongoRepository(mongoClient.Database(cfg.MongoDB.Database).Collection("sessions"))
		if err := mrepo.EnsureTTLIndex(ctx); err != nil {
			logger.Warnf("sessions TTL index: %v", err)
		}
		sessionRepo = mrepo
		logger.Infof("session store: mongo")
	default:
		sessionRepo = sessions.NewMemoryRepository()
		logger.Warnf("session store: in-memory (sessions are lost on restart)")
	}
	sessionsSvc := sessions.NewService(sessionRepo, cfg.Session.TTL)
	cookieCodec := sessions.NewCookieCodec(cfg.Session.Secret)
	tokenMgr := tokens.NewManager(cfg.JWT.Secret)

	registry := providers.FromConfig(ctx, cfg)
	if registry.Len() == 0 {
		logger.Warnf("no login provider configured; only the profile API is served")
	}

	// Optional rate limiter (per-user when the gate ran, otherwise per-IP)
	var limiters []gin.HandlerFunc
	if cfg.RateLimit.Enabled {
		if cfg.RateLimit.UseRedis && redisClient != nil {
			win := time.Duration(cfg.RateLimit.WindowSeconds) * time.Second
			limiters = append(limiters, middleware.RedisRateLimitMiddleware(redisClient, cfg.RateLimit.RPS, cfg.RateLimit.Burst, win))
		} else {
			limiters = append(limiters, middleware.RateLimitMiddleware(cfg.RateLimit.RPS, cfg.RateLimit.Burst))
		}
		logger.Infof("rate limiter enabled: rps=%v burst=%d redis=%v", cfg.RateLimit.RPS, cfg.RateLimit.Burst, cfg.RateLimit.UseRedis && redisClient != nil)
	}

	// Basic health endpoint
	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "healthy")
	})

	// readiness endpoint: 200 only when the user store answers and at least one provider is set up
	r.GET("/ready", func(c *gin.Context) {
		ready := true
		deps := map[string]bool{}

		pingCtx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if sqliteDB != nil {
			deps["storage"] = sqliteDB.PingContext(pingCtx) == nil
		} else {
			deps["storage"] = mongoClient != nil && mongoClient.Ping(pingCtx, nil) == nil
		}
		deps["providers"] = registry.Len() > 0
		if redisClient != nil {
			deps["redis"] = redisClient.Ping(pingCtx).Err() == nil
		}
		for _, ok := range deps {
			ready = ready && ok
		}

		if !ready {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "deps": deps, "uptime": time.Since(startTime).String()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready", "deps": deps, "providers": registry.Names(), "uptime": time.Since(startTime).String()})
	})

	// Expose Prometheus metrics
	metrics.RegisterCollectors(prometheus.DefaultRegisterer)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	handlers.RegisterSwagger(r)

	app := r.Group("/")
	app.Use(middleware.SessionMiddleware(sessionsSvc, cookieCodec))
	handlers.NewAuthHandler(cfg, registry, userSvc, sessionsSvc, cookieCodec, tokenMgr).Register(app.Group("/", limiters...))
	handlers.NewProfileHandler(userSvc).Register(app, middleware.AuthMiddleware(tokenMgr), limiters...)

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	go func() {
		logger.Infof("starting auth router on %s (providers=%v)", addr, registry.Names())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("server failed: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Infof("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("graceful shutdown: %v", err)
	}
}
