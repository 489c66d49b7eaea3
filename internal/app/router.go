package app

import (
	"social_graph_backend/internal/config"
	"social_graph_backend/internal/middleware"
	"social_graph_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, repos *repositories, cfg *config.Config) {
	router.GET("/metrics", monitoring.PrometheusHandler())

	// 1. 公共路由(无需登录)
	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
		public.POST("/register", c.auth.Register)
		public.POST("/login", c.auth.Login)
		public.POST("/token/refresh", c.auth.Refresh)
	}

	// 2. 需要授权的路由
	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(cfg), middleware.ActivityMiddleware(repos.user))
	{
		authGroup.POST("/logout", c.auth.Logout)
		authGroup.GET("/profile", c.auth.GetProfile)
		authGroup.GET("/users", c.user.SearchUsers)

		authGroup.POST("/send_friend_request", c.friend.SendFriendRequest)
		// 接受/拒绝同时挂 POST 和 PUT
		authGroup.POST("/accept_friend_request/:id", c.friend.AcceptFriendRequest)
		authGroup.PUT("/accept_friend_request/:id", c.friend.AcceptFriendRequest)
		authGroup.POST("/reject_friend_request/:id", c.friend.RejectFriendRequest)
		authGroup.PUT("/reject_friend_request/:id", c.friend.RejectFriendRequest)

		authGroup.GET("/list_friends", c.friend.ListFriends)
		authGroup.GET("/list_pending_requests", c.friend.ListPendingRequests)
	}
}
