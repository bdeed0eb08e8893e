package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"twitter_api/internal/auth"
	"twitter_api/internal/backend"
	"twitter_api/internal/cache"
	"twitter_api/internal/middleware"
	"twitter_api/internal/observability"
	"twitter_api/internal/queue"
	"twitter_api/internal/tweet"
	"twitter_api/internal/user"
	"twitter_api/internal/validation"
)

// Dependencies are built by the entry point. Cache, Events and Metrics are
// optional.
type Dependencies struct {
	Backend *backend.Backend
	Hasher  *auth.Hasher
	Cache   cache.Store
	Events  queue.Publisher
	Metrics *observability.Metrics
}

// SetupHandler initializes all dependencies and routes
func SetupHandler(deps Dependencies) *gin.Engine {
	validation.Register()

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())
	if deps.Metrics != nil {
		r.Use(middleware.PrometheusMiddleware(deps.Metrics))
	}

	// Initialize repositories
	userRepo := user.NewUserRepository(deps.Backend.Users)
	tweetRepo := tweet.NewTweetRepository(deps.Backend.Tweets)

	// Initialize services
	userService := user.NewUserService(userRepo, deps.Hasher, deps.Cache, deps.Events)
	tweetService := tweet.NewTweetService(tweetRepo, deps.Cache, deps.Events)

	// Initialize controllers
	userController := user.NewUserController(userService)
	tweetController := tweet.NewTweetController(tweetService)

	// Setup routes
	userController.SetupRoutes(r)
	tweetController.SetupRoutes(r)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "backend": deps.Backend.Name})
	})

	return r
}
