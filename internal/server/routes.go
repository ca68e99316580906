package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (s *Server) registerRoutes() {
	s.router.GET("/health", func(c *gin.Context) {
		st := s.source.Status()
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"uptime":    time.Since(s.started).String(),
			"service":   "passportctl",
			"connected": st.Connected,
		})
	})

	s.router.GET("/status", func(c *gin.Context) {
		c.JSON(http.StatusOK, s.source.Status())
	})

	s.router.GET("/signals", func(c *gin.Context) {
		c.JSON(http.StatusOK, s.source.Signals().List())
	})

	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))
}
