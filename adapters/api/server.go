// Package api serves the goodness-of-fit test over HTTP.
package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"netgof/app"
	"netgof/internal/config"
	"netgof/internal/logging"
)

var log = logging.Get("api")

// Server wraps the gin router and the service it exposes.
type Server struct {
	router   *gin.Engine
	service  *app.GoodnessOfFitService
	defaults config.TestConfig
}

// NewServer creates the server. defaults fill the options a request
// leaves out.
func NewServer(service *app.GoodnessOfFitService, defaults config.TestConfig) *Server {
	s := &Server{
		router:   gin.New(),
		service:  service,
		defaults: defaults,
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// setupMiddleware configures Gin middleware
func (s *Server) setupMiddleware() {
	s.router.Use(gin.Recovery())
	s.router.Use(requestLogger())
}

// setupRoutes configures the application routes
func (s *Server) setupRoutes() {
	s.router.GET("/healthz", s.handleHealth)

	v1 := s.router.Group("/v1")
	v1.POST("/expected-cf", s.handleExpectedCF)
	v1.POST("/test", s.handleTest)
}

// Handler exposes the router, for tests and custom listeners.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the web server
func (s *Server) Start(addr string) error {
	log.Infof("serving netgof on %s", addr)
	return s.router.Run(addr)
}

// requestLogger tags every request with an id and logs its outcome.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header("X-Request-ID", id)

		c.Next()

		log.Infof("[%s] %s %s -> %d in %s", id, c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}
