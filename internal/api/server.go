package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/mkarlsson/edge-offload-engine/internal/database"
	"github.com/mkarlsson/edge-offload-engine/internal/metrics"
)

// Server exposes the experiment analytics over HTTP.
type Server struct {
	router  *gin.Engine
	repo    *database.Repository
	metrics *metrics.Metrics
	port    string
}

// NewServer creates the analytics API server. The metrics argument may be
// nil when no Prometheus endpoint is wanted.
func NewServer(repo *database.Repository, m *metrics.Metrics, port string) *Server {
	router := gin.Default()

	// Configure CORS
	config := cors.DefaultConfig()
	config.AllowOrigins = []string{"http://localhost:3000", "http://localhost:8080"}
	config.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	config.AllowHeaders = []string{"Origin", "Content-Type", "Authorization"}
	router.Use(cors.New(config))

	server := &Server{
		router:  router,
		repo:    repo,
		metrics: m,
		port:    port,
	}

	server.setupRoutes()
	return server
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	api := s.router.Group("/api/v1")

	// Experiment endpoints
	api.GET("/experiments", s.listExperiments)
	api.GET("/experiments/:id", s.getExperiment)
	api.DELETE("/experiments/:id", s.deleteExperiment)

	// Per-experiment analytics
	api.GET("/experiments/:id/results", s.getResults)
	api.GET("/experiments/:id/results/latest", s.getLatestResult)
	api.GET("/experiments/:id/decisions", s.getDecisions)
	api.GET("/experiments/:id/supervision", s.getSupervisionSamples)
	api.GET("/experiments/:id/caches", s.getCacheSnapshots)
	api.GET("/experiments/:id/summary", s.getExperimentSummary)

	// Health check
	api.GET("/health", s.healthCheck)

	if s.metrics != nil {
		s.router.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	}
}

// Start starts the server
func (s *Server) Start() error {
	return s.router.Run(":" + s.port)
}

// Handler exposes the route tree for embedding and tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// Handler implementations

func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now(),
	})
}

func (s *Server) listExperiments(c *gin.Context) {
	experiments, err := s.repo.ListExperiments()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, experiments)
}

func (s *Server) getExperiment(c *gin.Context) {
	id := c.Param("id")

	experiment, err := s.repo.GetExperiment(id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Experiment not found"})
		return
	}

	c.JSON(http.StatusOK, experiment)
}

func (s *Server) deleteExperiment(c *gin.Context) {
	id := c.Param("id")

	if err := s.repo.DeleteExperiment(id); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Experiment deleted"})
}

func (s *Server) getResults(c *gin.Context) {
	experimentID := c.Param("id")
	strategy := c.Query("strategy")

	results, err := s.repo.GetStrategyResults(experimentID, strategy)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, results)
}

func (s *Server) getLatestResult(c *gin.Context) {
	experimentID := c.Param("id")

	result, err := s.repo.GetLatestResult(experimentID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "No results found"})
		return
	}

	c.JSON(http.StatusOK, result)
}

func (s *Server) getDecisions(c *gin.Context) {
	experimentID := c.Param("id")
	strategy := c.Query("strategy")

	round := 0
	if r := c.Query("round"); r != "" {
		if _, err := fmt.Sscanf(r, "%d", &round); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid round"})
			return
		}
	}

	decisions, err := s.repo.GetDecisions(experimentID, round, strategy)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, decisions)
}

func (s *Server) getSupervisionSamples(c *gin.Context) {
	experimentID := c.Param("id")

	limit := 1000 // Default limit
	if l := c.Query("limit"); l != "" {
		fmt.Sscanf(l, "%d", &limit)
	}

	samples, err := s.repo.GetSupervisionSamples(experimentID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, samples)
}

func (s *Server) getCacheSnapshots(c *gin.Context) {
	experimentID := c.Param("id")

	snapshots, err := s.repo.GetCacheSnapshots(experimentID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, snapshots)
}

func (s *Server) getExperimentSummary(c *gin.Context) {
	experimentID := c.Param("id")

	summary, err := s.repo.GetExperimentSummary(experimentID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, summary)
}
