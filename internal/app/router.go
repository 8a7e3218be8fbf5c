package app

import (
	"session_control_backend/docs"
	"session_control_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func registerRoutes(router *gin.Engine, c *controllers) {
	docs.SwaggerInfo.BasePath = "/"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())
	router.GET("/health", c.health.HealthCheck)

	api := router.Group("/api")
	registerSessionRoutes(api, c)
	registerProgressionRoutes(api, c)

	api.GET("/students/:studentId/grades_history", c.agent.GradesHistory)
}

func registerSessionRoutes(api *gin.RouterGroup, c *controllers) {
	sessions := api.Group("/sessions")
	{
		sessions.POST("/create", c.session.CreateSession)
		sessions.GET("", c.session.ListSessions)
		sessions.GET("/:id", c.session.GetSession)
		sessions.DELETE("/delete/:id", c.session.DeleteSession)
		sessions.GET("/status/:id", c.session.GetStatus)
		sessions.POST("/enter", c.session.EnterSession)

		sessions.POST("/submit_answer", c.submission.SubmitAnswer)
		sessions.POST("/add_extra_notes", c.submission.AddExtraNotes)

		sessions.POST("/:id/rate", c.rating.RateSession)
		sessions.GET("/:id/rating", c.rating.GetRating)

		sessions.GET("/:id/agent_summary", c.agent.AgentSummary)
		sessions.POST("/:id/export", c.agent.ExportReport)
	}
}

func registerProgressionRoutes(api *gin.RouterGroup, c *controllers) {
	sessions := api.Group("/sessions")
	{
		sessions.POST("/start/:id", c.progression.StartSession)
		sessions.POST("/end/:id", c.progression.EndSession)
		sessions.POST("/:id/set_end_flag", c.progression.SetEndFlag)
		sessions.POST("/:id/temp_switch_strategy", c.progression.TempSwitchStrategy)
		sessions.POST("/:id/change_strategy", c.progression.ChangeStrategy)
		sessions.POST("/:id/change_domain", c.progression.ChangeDomain)

		sessions.POST("/tactic/next/:id", c.progression.NextTactic)
		sessions.POST("/tactic/prev/:id", c.progression.PrevTactic)
		sessions.POST("/tactic/set/:id", c.progression.SetTactic)
	}
}
