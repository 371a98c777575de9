package routes

import (
	"github.com/gin-gonic/gin"
)

func UserRoutes(api *gin.RouterGroup, rt Router) {
	users := api.Group("/users", rt.requireAuth())
	{
		users.GET("/me", rt.Handler.GetProfile)
		users.PUT("/me", rt.Handler.UpdateProfile)
		users.GET("/me/issues", rt.Handler.GetUserIssues)
		users.GET("/me/stats", rt.Handler.GetUserStats)
		users.POST("/create-profile", rt.Handler.CreateProfile)
	}
}

func VerificationRoutes(api *gin.RouterGroup, rt Router) {
	verify := api.Group("/verify", rt.optionalAuth())
	{
		verify.POST("/send", rt.Handler.SendVerificationCode)
		verify.POST("/check", rt.Handler.CheckVerificationCode)
	}
}

func FileRoutes(api *gin.RouterGroup, rt Router) {
	files := api.Group("/files", rt.optionalAuth())
	{
		files.POST("/upload", rt.Handler.UploadImage)
		files.POST("/upload-audio", rt.Handler.UploadAudio)
	}
}
