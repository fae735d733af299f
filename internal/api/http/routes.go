package http

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RegisterRoutes mounts the inspector API. gatherer may be nil to skip
// /metrics.
func RegisterRoutes(router gin.IRouter, h *Handlers, gatherer prometheus.Gatherer) {
	router.GET("/", h.Root)
	router.GET("/health", h.Health)
	router.GET("/snapshot", h.Snapshot)
	router.GET("/stats", h.Stats)

	// Groups
	router.GET("/groups", h.ListGroups)
	router.POST("/groups", h.AddGroup)
	router.GET("/groups/:name", h.GetGroup)
	router.DELETE("/groups/:name", h.RemoveGroup)
	router.POST("/groups/:name/pause", h.PauseGroup)
	router.POST("/groups/:name/resume", h.ResumeGroup)

	// Forms
	router.GET("/forms", h.ListForms)
	router.GET("/forms/:serial", h.GetForm)
	router.POST("/forms/open", h.OpenForm)
	router.POST("/forms/close", h.CloseForm)
	router.POST("/forms/refocus", h.RefocusForm)

	// Cache
	router.GET("/cache", h.GetCache)
	router.PUT("/cache/capacity", h.SetCacheCapacity)

	router.GET("/assets", h.ListAssets)
	router.POST("/logs", h.StreamLogs)

	if gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}
}
