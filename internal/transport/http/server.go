package http

import (
	"github.com/gin-gonic/gin"

	"medinsight/internal/bootstrap"
	"medinsight/internal/transport/http/handler"
)

func NewRouter(app *bootstrap.App) *gin.Engine {
	gin.SetMode(app.Config.App.GinMode)
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())
	router.SetHTMLTemplate(handler.Templates())

	healthHandler := handler.NewHealthHandler(app)
	chatHandler := handler.NewChatHandler(app.Chat, app.Config.Session.CookieName, "MedInsight")
	askHandler := handler.NewAskHandler(app.Answerer, app.Metrics)

	router.GET("/", chatHandler.Page)
	router.POST("/", chatHandler.Submit)
	router.POST("/reset", chatHandler.ResetPage)
	router.GET("/healthz", healthHandler.Check)
	router.GET("/metrics", gin.WrapH(app.Metrics.Handler()))

	v1 := router.Group("/api/v1")
	v1.POST("/ask", askHandler.Ask)

	chatGroup := v1.Group("/chat")
	chatGroup.POST("/messages", chatHandler.SendMessage)
	chatGroup.GET("/history", chatHandler.GetHistory)
	chatGroup.DELETE("/session", chatHandler.ResetSession)

	return router
}
