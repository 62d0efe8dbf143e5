package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"teamdesk/backend/config"
	"teamdesk/backend/internal/api/handler"
	"teamdesk/backend/internal/api/middleware"
	"teamdesk/backend/internal/model"
	"teamdesk/backend/pkg/jwt"
	"teamdesk/backend/pkg/redis"
)

// Setup 初始化并返回 Gin 路由引擎
func Setup(cfg *config.Config, h *handler.Handler, jwtMgr *jwt.Manager, rdb *redis.Client, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.BodyLimit(1 << 20))

	// ── 健康检查 ──
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	{
		// 认证模块（无需认证）
		auth := v1.Group("/auth")
		{
			auth.POST("/login", middleware.RateLimit(rdb, 10, time.Minute), h.Auth.Login)
			auth.POST("/refresh", middleware.RateLimit(rdb, 20, time.Minute), h.Auth.RefreshToken)
		}

		// 需要认证的路由
		authorized := v1.Group("")
		authorized.Use(middleware.JWTAuth(jwtMgr, rdb))
		{
			// 认证模块（需要认证）
			authorized.POST("/auth/logout", h.Auth.Logout)
			authorized.GET("/auth/me", h.Auth.GetCurrentUser)

			// 收件箱维度的业务路由
			mailboxes := authorized.Group("/mailboxes/:mailbox_id")
			{
				// 在线状态模块
				availability := mailboxes.Group("/availability")
				{
					availability.GET("", h.Availability.GetTeamStatus)
					availability.GET("/history", middleware.RoleAuth(model.RoleAdmin, model.RoleLeader), h.Availability.ListHistory)
					availability.GET("/me", h.Availability.GetMyStatus)
					availability.PUT("/me", h.Availability.SetMyStatus)
					availability.POST("/me/activity", h.Availability.RecordActivity)
					availability.PUT("/me/scheduled-return", h.Availability.ScheduleReturn)
					availability.PUT("/me/business-hours", h.Availability.SetBusinessHours)
				}

				// 负载分布
				mailboxes.GET("/workload", h.Assignment.GetWorkload)

				// 自动分配（仅 admin / leader 可触发）
				mailboxes.POST(
					"/conversations/:conversation_id/auto-assign",
					middleware.RoleAuth(model.RoleAdmin, model.RoleLeader),
					h.Assignment.AutoAssign,
				)

				// 统计分析（仅 admin / leader 可见）
				analytics := mailboxes.Group("/analytics")
				analytics.Use(middleware.RoleAuth(model.RoleAdmin, model.RoleLeader))
				{
					analytics.GET("", h.Analytics.GetAnalytics)
					analytics.GET("/export", h.Analytics.ExportAnalytics)
				}
			}
		}
	}

	return r
}

