package routes

import (
	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/xyz-asif/chatter/internal/config"
	"github.com/xyz-asif/chatter/internal/features/auth"
	"github.com/xyz-asif/chatter/internal/features/comments"
	"github.com/xyz-asif/chatter/internal/features/feed"
	"github.com/xyz-asif/chatter/internal/features/files"
	"github.com/xyz-asif/chatter/internal/features/notifications"
	"github.com/xyz-asif/chatter/internal/middleware"
	"github.com/xyz-asif/chatter/internal/pkg/jwt"
	"github.com/xyz-asif/chatter/internal/pkg/ratelimit"
	"github.com/xyz-asif/chatter/internal/pkg/statuscache"
)

// Deps are the external services the API runs against. Assets and Verifier
// may be nil: uploads and Google sign-in are then disabled.
type Deps struct {
	DB            *mongo.Database
	Config        *config.Config
	Assets        files.AssetStore
	Verifier      auth.IdentityVerifier
	StatusCache   statuscache.Store
	SearchLimiter *ratelimit.RateLimiter
}

func SetupRoutes(router *gin.Engine, deps Deps) {
	cfg := deps.Config

	// API v1 group
	api := router.Group("/api/v1")

	// Repositories
	authRepo := auth.NewRepository(deps.DB)
	filesRepo := files.NewRepository(deps.DB)
	notificationsRepo := notifications.NewRepository(deps.DB)
	commentsRepo := comments.NewRepository(deps.DB)
	feedRepo := feed.NewRepository(deps.DB)

	// Services. Feed elements are the comment targets, and the feed embeds
	// the first page of comments under each element.
	authService := auth.NewService(authRepo, deps.Verifier, jwt.DefaultConfig(cfg.JWTSecret, cfg.JWTExpire))
	filesService := files.NewService(filesRepo, deps.Assets)
	notificationService := notifications.NewService(notificationsRepo, authService, deps.StatusCache, cfg.NotificationStatusTTL)
	commentService := comments.NewService(commentsRepo, feedRepo, authService, filesService, notificationService)
	feedService := feed.NewService(feedRepo, authService, filesService, notificationService, commentService)

	authMiddleware := middleware.Auth(authService)
	searchLimit := ratelimit.Middleware(deps.SearchLimiter, ratelimit.ByUserOrIP)

	// Register feature routes
	auth.RegisterRoutes(api, auth.NewHandler(authService, cfg.IsProduction()), authMiddleware, searchLimit)
	files.RegisterRoutes(api, files.NewHandler(filesService), authMiddleware)
	notifications.RegisterRoutes(api, notifications.NewHandler(notificationService), authMiddleware)
	comments.RegisterRoutes(api, comments.NewHandler(commentService), authMiddleware)
	feed.RegisterRoutes(api, feed.NewHandler(feedService), authMiddleware)
}
