// Package server
//
// @title Rootword API
// @version 1.0
// @description Root word dictionary and DDL compliance API
// @host localhost:8000
// @BasePath /
package server

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"regexp"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/rootword-dev/rootword/internal/assert"
	"github.com/rootword-dev/rootword/internal/auth"
	"github.com/rootword-dev/rootword/internal/config"
	"github.com/rootword-dev/rootword/internal/dictionary"
	"github.com/rootword-dev/rootword/internal/models"
	"github.com/rootword-dev/rootword/internal/rootwords"
	"github.com/rootword-dev/rootword/internal/users"
)

var wordNameRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Enqueuer schedules background tasks
type Enqueuer interface {
	Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Server represents the HTTP server
type Server struct {
	router           *gin.Engine
	db               *gorm.DB
	redis            *redis.Client
	config           *config.Config
	logger           zerolog.Logger
	validator        *validator.Validate
	enqueuer         Enqueuer
	inspector        QueueInspector
	tokens           *auth.TokenManager
	revoker          auth.Revoker
	dictionary       *dictionary.Cache
	rootWordsService *rootwords.Service
	usersService     *users.Service
	version          string
	closers          []func() error
}

// Option overrides a dependency the server would otherwise open itself
type Option func(*Server)

// WithDB uses db instead of opening cfg.Database.URL
func WithDB(db *gorm.DB) Option {
	return func(s *Server) { s.db = db }
}

// WithRedis uses client instead of connecting to cfg.Redis.Address
func WithRedis(client *redis.Client) Option {
	return func(s *Server) { s.redis = client }
}

// WithEnqueuer uses e instead of an asynq client
func WithEnqueuer(e Enqueuer) Option {
	return func(s *Server) { s.enqueuer = e }
}

// WithInspector reports import queue state from i
func WithInspector(i QueueInspector) Option {
	return func(s *Server) { s.inspector = i }
}

// New creates a new server instance
func New(cfg *config.Config, zlog zerolog.Logger, version string, opts ...Option) (*Server, error) {
	server := &Server{
		config:  cfg,
		logger:  zlog,
		version: version,
	}
	for _, opt := range opts {
		opt(server)
	}

	// Initialize database with production settings
	if server.db == nil {
		db, err := initDatabase(cfg, zlog)
		if err != nil {
			return nil, err
		}
		server.db = db
	}

	// Run database migrations
	if err := models.AutoMigrate(server.db); err != nil {
		return nil, err
	}

	secret, err := loadJWTSecret(server.db, cfg.Auth.JWTSecret, zlog)
	if err != nil {
		return nil, err
	}
	server.tokens = auth.NewTokenManager(secret, cfg.Auth.TokenTTL)

	if server.redis == nil {
		server.redis = redis.NewClient(&redis.Options{Addr: cfg.Redis.Address})
		server.closers = append(server.closers, server.redis.Close)
	}
	server.revoker = auth.NewRedisRevoker(server.redis)

	if server.enqueuer == nil {
		asynqClient := asynq.NewClient(asynq.RedisClientOpt{
			Addr: cfg.Redis.Address,
		})
		server.enqueuer = asynqClient
		server.closers = append(server.closers, asynqClient.Close)

		if server.inspector == nil {
			inspector := asynq.NewInspector(asynq.RedisClientOpt{
				Addr: cfg.Redis.Address,
			})
			server.inspector = inspector
			server.closers = append(server.closers, inspector.Close)
		}
	}

	// Initialize validator
	server.validator = validator.New()
	server.validator.RegisterValidation("wordname", func(fl validator.FieldLevel) bool {
		return wordNameRe.MatchString(fl.Field().String())
	})
	server.validator.RegisterValidation("role", func(fl validator.FieldLevel) bool {
		v := fl.Field().String()
		return v == "" || v == models.RoleUser || v == models.RoleAdmin
	})

	server.dictionary = dictionary.New(server.db, zlog)
	server.rootWordsService = rootwords.NewService(server.db, server.dictionary, zlog)
	server.usersService = users.NewService(server.db, zlog)

	if err := server.usersService.EnsureAdmin(context.Background(), cfg.Auth.BootstrapAdminUsername, cfg.Auth.BootstrapAdminPassword); err != nil {
		return nil, fmt.Errorf("failed to create bootstrap admin: %w", err)
	}

	// Setup router
	server.setupRouter()

	return server, nil
}

// loadJWTSecret returns the configured secret, or the one persisted in the
// database, generating and storing a new one on first start
func loadJWTSecret(db *gorm.DB, configured string, zlog zerolog.Logger) (string, error) {
	if configured != "" {
		return configured, nil
	}

	var cfg models.Config
	err := db.First(&cfg).Error
	if err == nil && cfg.JWTSecret != "" {
		zlog.Debug().Msg("Loaded JWT secret from database")
		return cfg.JWTSecret, nil
	}
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", fmt.Errorf("failed to load config: %w", err)
	}

	// 64 hex characters = 32 bytes of randomness
	secretBytes := make([]byte, 32)
	if _, err := rand.Read(secretBytes); err != nil {
		return "", fmt.Errorf("failed to generate JWT secret: %w", err)
	}
	cfg.JWTSecret = hex.EncodeToString(secretBytes)
	assert.Length(cfg.JWTSecret, 64)

	if err := db.Save(&cfg).Error; err != nil {
		return "", fmt.Errorf("failed to persist JWT secret: %w", err)
	}
	zlog.Info().Msg("Generated new JWT secret")
	return cfg.JWTSecret, nil
}

// initDatabase initializes the database connection with production settings
func initDatabase(cfg *config.Config, zlog zerolog.Logger) (*gorm.DB, error) {
	const (
		maxOpenConns      = 8
		maxIdleConns      = 4
		connMaxLifetime   = 300       // 5 minutes
		busyTimeout       = 5000      // 5 seconds
		cacheSize         = 10000     // 10MB
		mmapSize          = 134217728 // 128MB
		walAutocheckpoint = 1000
	)

	db, err := gorm.Open(sqlite.Open(cfg.Database.URL), &gorm.Config{
		Logger: logger.New(
			log.New(os.Stdout, "\r\n", log.LstdFlags),
			logger.Config{
				LogLevel:                  logger.Error,
				IgnoreRecordNotFoundError: true,
				SlowThreshold:             200 * time.Millisecond,
			},
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetMaxIdleConns(maxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(connMaxLifetime) * time.Second)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// WAL mode must be set first
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		fmt.Sprintf("PRAGMA wal_autocheckpoint=%d", walAutocheckpoint),
		fmt.Sprintf("PRAGMA busy_timeout=%d", busyTimeout),
		fmt.Sprintf("PRAGMA cache_size=-%d", cacheSize),
		"PRAGMA foreign_keys=1",
		"PRAGMA temp_store=2",
		fmt.Sprintf("PRAGMA mmap_size=%d", mmapSize),
	}

	for _, pragma := range pragmas {
		if err := db.Exec(pragma).Error; err != nil {
			zlog.Warn().Str("pragma", pragma).Err(err).Msg("Failed to apply pragma")
		}
	}

	var walMode string
	db.Raw("PRAGMA journal_mode").Scan(&walMode)
	zlog.Debug().Str("journal_mode", walMode).Str("path", cfg.Database.URL).Msg("Database opened")

	return db, nil
}

// setupRouter configures the Gin router with routes and middleware
func (s *Server) setupRouter() {
	gin.SetMode(gin.ReleaseMode)

	s.router = gin.New()

	s.router.Use(gin.Recovery())
	s.router.Use(s.requestIDMiddleware())
	s.router.Use(s.loggingMiddleware())

	s.router.Use(cors.New(cors.Config{
		AllowOrigins:     s.config.HTTP.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", requestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Health check endpoint (no auth required)
	s.router.GET("/health", s.healthCheck)

	s.router.POST("/api/auth/login", s.login)

	api := s.router.Group("/api")
	api.Use(JWTAuthMiddleware(s.db, s.tokens, s.revoker, s.logger))
	{
		api.POST("/auth/logout", s.logout)
		api.GET("/auth/me", s.getCurrentUser)

		words := api.Group("/root-word")
		{
			words.POST("/apply", s.applyRootWord)
			words.DELETE("/delete-pending/:id", s.deletePendingRootWord)
			words.POST("/ddl/check", s.checkDDL)
			words.POST("/ddl/replace", s.replaceDDL)
			words.POST("/list", s.listRootWords)
			words.GET("/logs/:id", s.getRootWordLogs)

			admin := words.Group("")
			admin.Use(AdminOnlyMiddleware(s.logger))
			{
				admin.POST("/audit", s.auditRootWord)
				admin.POST("/discard/:id", s.discardRootWord)
				admin.POST("/recover/:id", s.recoverRootWord)
				admin.PUT("/update", s.updateRootWord)
				admin.DELETE("/force-delete/:id", s.forceDeleteRootWord)
				admin.POST("/import", s.importRootWords)
			}
		}

		api.GET("/system/info", AdminOnlyMiddleware(s.logger), s.getSystemInfo)

		userRoutes := api.Group("/user")
		userRoutes.Use(AdminOnlyMiddleware(s.logger))
		{
			userRoutes.POST("/create", s.createUser)
			userRoutes.GET("/list", s.listUsers)
			userRoutes.DELETE("/delete/:id", s.deleteUser)
			userRoutes.POST("/reset-password/:id", s.resetPassword)
		}
	}
}

const requestIDHeader = "X-Request-ID"

// requestIDMiddleware tags every request with an ID, reusing the caller's when present
func (s *Server) requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

// loggingMiddleware creates a custom logging middleware using zerolog
func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start)

		s.logger.Info().
			Str("request_id", c.GetString("request_id")).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("duration", duration).
			Str("client_ip", c.ClientIP()).
			Msg("HTTP request")
	}
}

// @Router /health [get]
// @Success 200 {object} map[string]interface{}
func (s *Server) healthCheck(c *gin.Context) {
	words, loadedAt := s.dictionary.Size()
	c.JSON(http.StatusOK, gin.H{
		"status":               "online",
		"timestamp":            time.Now().UTC(),
		"service":              "rootword-api",
		"version":              s.version,
		"dictionary_words":     words,
		"dictionary_loaded_at": loadedAt,
	})
}

// Handler exposes the router for tests and embedding
func (s *Server) Handler() http.Handler {
	return s.router
}

// GetDB returns the database connection for use by workers
func (s *Server) GetDB() *gorm.DB {
	return s.db
}

// Start starts the HTTP server and blocks until SIGINT or SIGTERM
func (s *Server) Start() error {
	addr := s.config.HTTP.Addr

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := s.dictionary.Start(ctx, s.config.Dictionary.RefreshSchedule); err != nil {
		return err
	}
	if err := s.dictionary.Subscribe(ctx, s.redis); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to subscribe to dictionary invalidations")
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       300 * time.Second,
	}

	go func() {
		s.logger.Info().Str("addr", addr).Msg("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error().Err(err).Msg("HTTP server error")
		}
	}()

	<-sigChan
	s.logger.Info().Msg("Received shutdown signal, shutting down gracefully...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	s.logger.Info().Msg("Shutting down HTTP server...")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Error().Err(err).Msg("Error shutting down HTTP server")
		return err
	}

	for _, closer := range s.closers {
		if err := closer(); err != nil {
			s.logger.Warn().Err(err).Msg("Error closing client")
		}
	}

	// Close database connection to flush WAL writes
	if sqlDB, err := s.db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			s.logger.Error().Err(err).Msg("Error closing database")
		} else {
			s.logger.Info().Msg("Database closed successfully")
		}
	}

	s.logger.Info().Msg("Server shutdown complete")
	return nil
}
