package api

import (
	"github.com/gin-gonic/gin"
)

func SetupRoutes(router *gin.Engine, handler *Handler) {
	api := router.Group("/api")
	{
		api.GET("/records", handler.GetRecords)
		api.GET("/records/stats", handler.GetRecordStats)
		api.GET("/provinces", handler.GetProvinces)
		api.GET("/districts/bounds", handler.GetDistrictBounds)
		api.GET("/districts/hulls", handler.GetDistrictHulls)
		api.GET("/complexes/:id", handler.GetComplex)
		api.POST("/complexes/:id/collect", handler.CollectComplex)
		api.POST("/search", handler.SearchComplexes)
		api.POST("/crawl", handler.RunCrawl)
		api.GET("/crawl/runs", handler.GetCrawlRuns)
	}
}
