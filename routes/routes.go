package routes

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"meriawaaz-be/config"
	"meriawaaz-be/controllers"
	"meriawaaz-be/metrics"
	"meriawaaz-be/middlewares"
	authUtils "meriawaaz-be/utils"
)

// Router bundles what the route groups need besides the handler.
type Router struct {
	Handler  *controllers.Handler
	Verifier authUtils.Verifier
	Redis    redis.UniversalClient
	Gatherer prometheus.Gatherer
	Config   config.Config
	Log      *zap.SugaredLogger
}

func (rt Router) requireAuth() gin.HandlerFunc {
	return middlewares.RequireAuth(rt.Verifier, rt.Config.Auth.CookieName)
}

func (rt Router) optionalAuth() gin.HandlerFunc {
	return middlewares.OptionalAuth(rt.Verifier, rt.Config.Auth.CookieName)
}

// Setup builds the engine with every route registered.
func Setup(rt Router) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middlewares.RequestLogger(rt.Log))
	r.Use(cors.New(cors.Config{
		AllowOrigins:     rt.Config.Server.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/ping", rt.Handler.Ping)
	r.GET("/health", rt.Handler.Health)
	r.GET("/metrics", gin.WrapH(metrics.Handler(rt.Gatherer)))

	api := r.Group("/api", middlewares.RequestTimeout(rt.Config.Server.RequestTimeout))
	AuthRoutes(api, rt)
	IssueRoutes(api, rt)
	UserRoutes(api, rt)
	VerificationRoutes(api, rt)
	FileRoutes(api, rt)
	return r
}
