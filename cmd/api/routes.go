package main

import (
	"github.com/Rikhil-Nell/call-agent/internal/httpapi"

	"github.com/gin-gonic/gin"
)

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers delegate to the lifecycle
// controller.
func registerRoutes(r *gin.Engine, h httpapi.Handlers, authMW gin.HandlerFunc) {
	// public
	r.GET("/", h.Index)
	r.GET("/health", h.Health)

	// call control; guarded when a token secret is configured
	ctl := r.Group("/")
	if authMW != nil {
		ctl.Use(authMW)
	}
	{
		ctl.POST("/make-call", h.MakeCall)
		ctl.GET("/call-status/:room_name", h.CallStatus)
		ctl.DELETE("/end-call/:room_name", h.EndCall)
	}
}
