package handler

import (
	"github.com/gin-gonic/gin"
)

// Handlers groups every HTTP handler mounted by RegisterRoutes.
type Handlers struct {
	Auth      *AuthHandler
	Students  *StudentHandler
	Entries   *HabitEntryHandler
	Analytics *AnalyticsHandler
	Demo      *DemoDataHandler
	Reports   *ReportHandler
	System    *MetricsHandler
}

// RouteConfig carries the middleware RegisterRoutes attaches to groups.
type RouteConfig struct {
	APIPrefix string
	// Auth guards every owner-scoped route.
	Auth gin.HandlerFunc
	// ReportAudit, when set, records report requests.
	ReportAudit gin.HandlerFunc
}

// RegisterRoutes mounts the API on r.
func RegisterRoutes(r gin.IRouter, cfg RouteConfig, h Handlers) {
	if h.System != nil {
		r.GET("/health", h.System.Health)
		r.GET("/ready", h.System.Ready)
		r.GET("/metrics", h.System.Prometheus)
	}

	api := r.Group(cfg.APIPrefix)

	if h.Auth != nil {
		auth := api.Group("/auth")
		auth.POST("/register", h.Auth.Register)
		auth.POST("/login", h.Auth.Login)
	}
	if h.Reports != nil {
		// The signed token is the credential for downloads.
		api.GET("/export/:token", h.Reports.Download)
	}

	secured := api.Group("")
	if cfg.Auth != nil {
		secured.Use(cfg.Auth)
	}

	if h.Students != nil {
		students := secured.Group("/students")
		students.GET("", h.Students.List)
		students.GET("/active", h.Students.Active)
		students.POST("", h.Students.Create)
		students.GET("/:id", h.Students.Get)
		students.PATCH("/:id", h.Students.Update)
		students.POST("/:id/toggle-active", h.Students.ToggleActive)
		students.DELETE("/:id", h.Students.Delete)
		students.GET("/:id/entries", h.Students.Entries)
		students.GET("/:id/overview", h.Students.Overview)
	}

	if h.Entries != nil {
		entries := secured.Group("/entries")
		entries.GET("", h.Entries.List)
		entries.GET("/recent", h.Entries.Recent)
		entries.POST("", h.Entries.Create)
		entries.POST("/preview", h.Entries.Preview)
		entries.GET("/:id", h.Entries.Get)
		entries.PATCH("/:id", h.Entries.Update)
		entries.DELETE("/:id", h.Entries.Delete)
	}

	if h.Analytics != nil {
		secured.GET("/analytics/dashboard", h.Analytics.Dashboard)
	}

	if h.Demo != nil {
		demo := secured.Group("/demo-data")
		demo.POST("/seed", h.Demo.Seed)
		demo.POST("/clear", h.Demo.Clear)
	}

	if h.Reports != nil {
		reports := secured.Group("/reports")
		create := []gin.HandlerFunc{h.Reports.Create}
		if cfg.ReportAudit != nil {
			create = append([]gin.HandlerFunc{cfg.ReportAudit}, create...)
		}
		reports.POST("", create...)
		reports.GET("/:id", h.Reports.Status)
	}
}
