package routes

import (
	"github.com/gin-gonic/gin"
)

// AuthRoutes sets up the authentication routes
func AuthRoutes(api *gin.RouterGroup, rt Router) {
	auth := api.Group("/auth")
	{
		auth.POST("/register", rt.Handler.RegisterUser)
		auth.POST("/login", rt.Handler.LoginUser)
		auth.GET("/me", rt.requireAuth(), rt.Handler.GetMe)
		auth.POST("/logout", rt.Handler.LogoutUser)
	}
}
