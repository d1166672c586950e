package servers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tokamak-network/trh-pipeline/pkg/metrics"
	"github.com/tokamak-network/trh-pipeline/pkg/services"
)

type Server struct {
	Router            *gin.Engine
	DeploymentService *services.DeploymentService
	Metrics           *metrics.Metrics
	// StoreDriver names the record store backing DeploymentService, reported by the health check.
	StoreDriver string

	httpServer *http.Server
}

func (s *Server) Start(port string) error {
	s.httpServer = &http.Server{
		Addr:              ":" + port,
		Handler:           s.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) Use(middleware gin.HandlerFunc) {
	s.Router.Use(middleware)
}

func NewServer(
	deploymentService *services.DeploymentService,
	m *metrics.Metrics,
	storeDriver string,
) *Server {
	app := gin.Default()

	return &Server{
		Router:            app,
		DeploymentService: deploymentService,
		Metrics:           m,
		StoreDriver:       storeDriver,
	}
}
