// ================== cmd/api/main.go ==================
//
// @title Chatter API
// @version 1.0
// @description Feed posts, comments, mentions, attachments and notifications
// @host localhost:8080
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer <token>"
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	docs "github.com/xyz-asif/chatter/docs"
	"github.com/xyz-asif/chatter/internal/config"
	"github.com/xyz-asif/chatter/internal/database"
	"github.com/xyz-asif/chatter/internal/features/auth"
	"github.com/xyz-asif/chatter/internal/features/files"
	"github.com/xyz-asif/chatter/internal/middleware"
	"github.com/xyz-asif/chatter/internal/pkg/cloudinary"
	"github.com/xyz-asif/chatter/internal/pkg/logger"
	"github.com/xyz-asif/chatter/internal/pkg/metrics"
	"github.com/xyz-asif/chatter/internal/pkg/ratelimit"
	"github.com/xyz-asif/chatter/internal/pkg/response"
	"github.com/xyz-asif/chatter/internal/pkg/statuscache"
	"github.com/xyz-asif/chatter/internal/routes"
)

func main() {
	// Load config
	cfg := config.Load()
	logger.SetGlobalLevel(logger.ParseLevel(cfg.LogLevel))

	// Configure Swagger metadata at runtime
	docs.SwaggerInfo.Host = "localhost:" + cfg.Port

	// Connect to MongoDB
	db, err := database.Connect(cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		logger.Fatal("Failed to connect to MongoDB: %v", err)
	}
	defer db.Disconnect(context.Background())

	deps := routes.Deps{
		DB:            db.Database,
		Config:        cfg,
		StatusCache:   statusCache(cfg),
		SearchLimiter: ratelimit.New(cfg.SearchRateLimitRPS, cfg.SearchRateLimitBurst),
	}

	// Optional integrations. A typed nil must not reach the interfaces.
	if cfg.CloudinaryCloudName != "" {
		cld, err := cloudinary.NewService(cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret, cfg.CloudinaryFolder)
		if err != nil {
			logger.Fatal("Failed to initialize Cloudinary: %v", err)
		}
		deps.Assets = files.AssetStore(cld)
	} else {
		logger.Warn("Cloudinary is not configured; file uploads are disabled")
	}
	if cfg.FirebaseCredentialsFile != "" || cfg.FirebaseProjectID != "" {
		fb, err := auth.InitFirebase(cfg)
		if err != nil {
			logger.Fatal("Failed to initialize Firebase: %v", err)
		}
		deps.Verifier = auth.NewFirebaseVerifier(fb)
	} else {
		logger.Warn("Firebase is not configured; Google sign-in is disabled")
	}

	done := make(chan struct{})
	deps.SearchLimiter.StartCleanup(time.Minute, done)
	if mem, ok := deps.StatusCache.(*statuscache.MemoryStore); ok {
		mem.StartCleanup(time.Minute, done)
	}
	defer close(done)

	// If we are running in production, be quiet and stop logging so much.
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.Logger())
	router.Use(middleware.Metrics())
	router.Use(middleware.CORS(cfg.FrontendURL))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := db.Ping(ctx); err != nil {
			response.ServiceUnavailable(c, "Database unreachable", "DB_UNAVAILABLE")
			return
		}
		response.Success(c, map[string]interface{}{
			"status": "ok",
			"time":   time.Now().Unix(),
		})
	})
	router.GET("/metrics", metrics.Handler())

	// Swagger documentation
	router.GET(
		"/swagger/*any",
		ginSwagger.WrapHandler(
			swaggerFiles.Handler,
			ginSwagger.URL("/swagger/doc.json"),
			ginSwagger.DeepLinking(true),
			ginSwagger.DefaultModelsExpandDepth(-1),
			ginSwagger.DocExpansion("none"),
			ginSwagger.PersistAuthorization(true),
		),
	)

	// Register all routes
	routes.SetupRoutes(router, deps)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}
	go func() {
		logger.Info("Server starting on port %s", cfg.Port)

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown: %v", err)
	}

	logger.Info("Server exited")
}

// statusCache uses Redis when REDIS_URL is set and memory otherwise
func statusCache(cfg *config.Config) statuscache.Store {
	if cfg.RedisURL == "" {
		return statuscache.NewMemoryStore()
	}
	store, err := statuscache.NewRedisStore(cfg.RedisURL, "chatter:")
	if err != nil {
		logger.Fatal("Failed to connect to Redis: %v", err)
	}
	return store
}
