package app

import (
	"assessment_backend/docs"
	"assessment_backend/internal/config"
	"assessment_backend/internal/middleware"
	"assessment_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/api"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	// 1. 公共路由(无需登录)
	a.registerPublicRoutes(router, c, cfg)

	// 2. 需要授权的路由
	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(cfg.JWT.Secret))
	{
		a.registerSessionRoutes(authGroup, c)

		authGroup.GET("/attempts", c.attempt.List)
		authGroup.GET("/tests/:id", c.test.Get)
	}
}

func (a *App) registerPublicRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)

		// 匿名 / Endless：登录可选
		optional := public.Group("/")
		optional.Use(middleware.OptionalAuthMiddleware(cfg.JWT.Secret))
		{
			optional.POST("/attempts", c.attempt.Record)
			optional.GET("/attempts/:id", c.attempt.Get)
			optional.GET("/endless/batch", c.endless.Batch)
		}
	}
}

func (a *App) registerSessionRoutes(group *gin.RouterGroup, c *controllers) {
	sessions := group.Group("/sessions")
	{
		sessions.POST("/start", c.session.Start)
		sessions.GET("/active", c.session.ListActive)
		sessions.GET("/:id", c.session.Get)
		sessions.PATCH("/:id", c.session.Patch)
		sessions.POST("/:id/submit", c.session.Submit)
		sessions.DELETE("/:id", c.session.Abandon)
	}
}
