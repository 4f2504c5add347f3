package api

import (
	"net/http"

	"sharebox/internal/progress"
	"sharebox/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func SetupRoutes(
	router *gin.Engine,
	publicBaseURL string,
	authService service.AuthService,
	uploadService service.UploadService,
	shareService service.ShareService,
	broker *progress.Broker,
	log *zap.Logger,
) {
	authHandler := NewAuthHandler(authService, publicBaseURL, log)
	uploadHandler := NewUploadHandler(uploadService, broker, publicBaseURL, log)
	downloadHandler := NewDownloadHandler(shareService, publicBaseURL, log)

	// Sessions are verified with the same secret the auth service signs with.
	authMiddleware := AuthMiddleware(authService.GetJWTSecret())

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	// The download path is deliberately unauthenticated: anyone with the
	// link can download.
	router.GET("/download/:shareId", downloadHandler.Download)

	apiV1 := router.Group("/api/v1")
	{
		authGroup := apiV1.Group("/auth")
		{
			authGroup.POST("/session", authHandler.CreateSession)
			authGroup.GET("/flow", authHandler.Flow)
			authGroup.GET("/redirect", authHandler.BeginRedirect)
			authGroup.GET("/callback", authHandler.Callback)
			authGroup.GET("/events", authHandler.Events)
		}

		// Download page data, also unauthenticated.
		apiV1.GET("/files/:shareId", downloadHandler.FileInfo)
	}

	protected := apiV1.Group("")
	protected.Use(authMiddleware)
	{
		protected.GET("/me", authHandler.Me)
		protected.POST("/auth/signout", authHandler.SignOut)

		uploadGroup := protected.Group("/uploads")
		{
			uploadGroup.POST("/sessions", uploadHandler.BeginSession)
			uploadGroup.POST("", uploadHandler.Create)
			uploadGroup.GET("/:id/events", uploadHandler.Events)
		}
	}
}
