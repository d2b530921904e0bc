package api

import (
	"net/http"

	"matchvision/sports-video-app/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func SetupRoutes(
	router *gin.Engine,
	uploadService service.UploadService,
	analysisService service.AnalysisService,
	recommendationService service.RecommendationService,
) {
	videoHandler := NewVideoHandler(uploadService)
	analysisHandler := NewAnalysisHandler(analysisService)
	recommendationHandler := NewRecommendationHandler(recommendationService)

	router.Use(RequestLogger())

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	apiV1 := router.Group("/api/v1")
	{
		videoGroup := apiV1.Group("/videos")
		{
			videoGroup.POST("", videoHandler.UploadVideo)
			videoGroup.GET("", videoHandler.ListVideos)
			videoGroup.GET("/:id", videoHandler.GetVideo)
			videoGroup.DELETE("/:id", videoHandler.DeleteVideo)
			videoGroup.GET("/:id/playback", videoHandler.GetPlaybackURL)

			videoGroup.POST("/:id/analyses", analysisHandler.RequestAnalysis)
			videoGroup.GET("/:id/analyses", analysisHandler.ListAnalyses)

			videoGroup.GET("/:id/recommendations", recommendationHandler.GetRecommendations)
		}
	}
}
