package api

import (
	"github.com/gin-gonic/gin"

	"github.com/ajharbinger/lead-funnel/internal/auth"
	"github.com/ajharbinger/lead-funnel/internal/logger"
	"github.com/ajharbinger/lead-funnel/internal/services"
	"github.com/ajharbinger/lead-funnel/pkg/config"
)

// SetupRoutes configures all API routes
func SetupRoutes(r *gin.Engine, svc *services.Services, cfg *config.Config, log logger.Logger) {
	funnelHandler := NewFunnelHandler(svc.Evaluation, svc.Export, log)
	calibrationHandler := NewCalibrationHandler(svc.Calibrations, log)

	public := r.Group("/api/v1")
	{
		public.GET("/health", calibrationHandler.Health)
	}

	protected := r.Group("/api/v1")
	if cfg.AuthEnabled() {
		protected.Use(auth.JWTMiddleware(cfg.JWTSecret))
	} else {
		log.Warn("JWT_SECRET not set, API is unauthenticated")
	}
	{
		protected.GET("/calibrations", calibrationHandler.GetCalibrations)
		protected.GET("/calibrations/:id", calibrationHandler.GetCalibration)

		protected.POST("/funnel/evaluate", funnelHandler.Evaluate)
		protected.POST("/funnel/upload", funnelHandler.Evaluate)
		protected.POST("/funnel/summary", funnelHandler.Summary)
		protected.POST("/funnel/metrics", funnelHandler.Metrics)
		protected.POST("/funnel/export", funnelHandler.Export)
	}
}
