package routes

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/inkpost/inkpost/config"
	"github.com/inkpost/inkpost/controllers"
	"github.com/inkpost/inkpost/middleware"
	"github.com/inkpost/inkpost/models"
	"github.com/inkpost/inkpost/utils"
)

// SetupRouter wires middleware, controllers and routes into a Gin engine.
func SetupRouter(db *gorm.DB) *gin.Engine {
	cfg := config.Get()
	gin.SetMode(cfg.GinMode)

	r := gin.New()

	accessLogger, err := utils.NewRollingFileLogger(cfg.GinPath, cfg.LogLevel,
		cfg.LogMaxSizeMB, cfg.LogMaxBackups, cfg.LogMaxAgeDays, cfg.LogCompress)
	if err != nil {
		utils.Sugar.Warnf("access log unavailable, falling back to nop: %v", err)
		accessLogger = zap.NewNop()
	}
	r.Use(utils.Ginzap(accessLogger, time.RFC3339, true))
	r.Use(utils.RecoveryWithZap(accessLogger, true))
	r.Use(corsMiddleware(cfg))

	auth := controllers.NewAuthController(db)
	posts := controllers.NewPostController(db)
	comments := controllers.NewCommentController(db)
	categories := controllers.NewCategoryController(db)
	users := controllers.NewUserController(db)
	site := controllers.NewSiteController(db)

	r.GET("/healthz", site.Health)
	r.GET("/sitemap.xml", site.Sitemap)

	api := r.Group("/api")
	{
		api.GET("/health", site.Health)
		api.GET("/stats", middleware.AuthRequired(), middleware.RequireRoles(db, models.RoleAdmin), site.Stats)
		api.POST("/contact", middleware.RateLimitMiddleware(), site.Contact)

		authGroup := api.Group("/auth")
		{
			authGroup.POST("/register", middleware.RateLimitMiddleware(), auth.Register)
			authGroup.POST("/login", middleware.RateLimitMiddleware(), auth.Login)
			authGroup.GET("/me", middleware.AuthRequired(), auth.Me)
			authGroup.POST("/logout", middleware.AuthRequired(), auth.Logout)
			authGroup.GET("/google", auth.GoogleLogin)
			authGroup.GET("/google/callback", auth.GoogleCallback)
		}

		postGroup := api.Group("/posts")
		{
			postGroup.GET("", middleware.AuthOptional(), posts.ListPosts)
			postGroup.GET("/featured", posts.FeaturedPosts)
			postGroup.GET("/:id", middleware.AuthOptional(), posts.GetPost)
			postGroup.POST("", middleware.AuthRequired(), middleware.RequireRoles(db, models.RoleAdmin, models.RoleWriter), posts.CreatePost)
			postGroup.PUT("/:id", middleware.AuthRequired(), posts.UpdatePost)
			postGroup.DELETE("/:id", middleware.AuthRequired(), posts.DeletePost)
			postGroup.POST("/:id/like", middleware.AuthRequired(), posts.ToggleLike)

			postGroup.GET("/:id/comments", middleware.AuthOptional(), comments.ListPostComments)
			postGroup.POST("/:id/comments", middleware.AuthOptional(), comments.CreateComment)
		}

		commentGroup := api.Group("/comments")
		{
			commentGroup.GET("", middleware.AuthRequired(), middleware.RequireRoles(db, models.RoleAdmin), comments.ListComments)
			commentGroup.PUT("/:id", middleware.AuthRequired(), comments.UpdateComment)
			commentGroup.PUT("/:id/status", middleware.AuthRequired(), middleware.RequireRoles(db, models.RoleAdmin), comments.UpdateCommentStatus)
			commentGroup.PATCH("/:id/status", middleware.AuthRequired(), middleware.RequireRoles(db, models.RoleAdmin), comments.UpdateCommentStatus)
			commentGroup.POST("/:id/like", middleware.AuthRequired(), comments.ToggleLike)
			commentGroup.DELETE("/:id", middleware.AuthRequired(), comments.DeleteComment)
		}

		categoryGroup := api.Group("/categories")
		{
			categoryGroup.GET("", categories.ListCategories)
			categoryGroup.GET("/:id", categories.GetCategory)
			categoryGroup.POST("", middleware.AuthRequired(), middleware.RequireRoles(db, models.RoleAdmin), categories.CreateCategory)
			categoryGroup.PUT("/:id", middleware.AuthRequired(), middleware.RequireRoles(db, models.RoleAdmin), categories.UpdateCategory)
			categoryGroup.DELETE("/:id", middleware.AuthRequired(), middleware.RequireRoles(db, models.RoleAdmin), categories.DeleteCategory)
		}

		userGroup := api.Group("/users", middleware.AuthRequired())
		{
			userGroup.GET("", middleware.RequireRoles(db, models.RoleAdmin), users.ListUsers)
			userGroup.GET("/:id", users.GetUser)
			userGroup.PUT("/:id", users.UpdateUser)
			userGroup.PUT("/:id/role", middleware.RequireRoles(db, models.RoleAdmin), users.UpdateUserRole)
			userGroup.DELETE("/:id", middleware.RequireRoles(db, models.RoleAdmin), users.DeleteUser)
		}
	}

	return r
}

func corsMiddleware(cfg config.AppConfig) gin.HandlerFunc {
	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	return cors.New(corsCfg)
}
