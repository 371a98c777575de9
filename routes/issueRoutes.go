package routes

import (
	"github.com/gin-gonic/gin"

	"meriawaaz-be/middlewares"
)

// IssueRoutes sets up the issue and vote routes
func IssueRoutes(api *gin.RouterGroup, rt Router) {
	limiter := middlewares.IssueRateLimiter(rt.Redis, rt.Config.RateLimit.IssuePrefix, rt.Config.RateLimit.IssuesPerDay, rt.Log)

	issue := api.Group("/issues")
	{
		issue.GET("", rt.optionalAuth(), rt.Handler.GetAllIssues)
		issue.POST("", rt.requireAuth(), limiter, rt.Handler.CreateIssue)
		issue.GET("/map", rt.optionalAuth(), rt.Handler.GetMapIssues)
		issue.GET("/nearby", rt.optionalAuth(), rt.Handler.GetNearbyIssues)
		issue.GET("/:id", rt.optionalAuth(), rt.Handler.GetIssue)
		issue.PUT("/:id", rt.requireAuth(), rt.Handler.UpdateIssue)
		issue.DELETE("/:id", rt.requireAuth(), rt.Handler.DeleteIssue)
		issue.POST("/:id/upvote", rt.requireAuth(), rt.Handler.UpvoteIssue)
		issue.POST("/:id/downvote", rt.requireAuth(), rt.Handler.DownvoteIssue)
		issue.GET("/:id/vote", rt.requireAuth(), rt.Handler.GetUserVote)
		issue.POST("/:id/vote", rt.requireAuth(), rt.Handler.CastVote)
	}
}
