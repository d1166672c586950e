package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/tokamak-network/trh-pipeline/docs"
	"github.com/tokamak-network/trh-pipeline/internal/config"
	"github.com/tokamak-network/trh-pipeline/internal/logger"
	"github.com/tokamak-network/trh-pipeline/pkg/api/routes"
	"github.com/tokamak-network/trh-pipeline/pkg/api/servers"
	"github.com/tokamak-network/trh-pipeline/pkg/domain/repositories"
	domainServices "github.com/tokamak-network/trh-pipeline/pkg/domain/services"
	"github.com/tokamak-network/trh-pipeline/pkg/infrastructure/database/connection"
	databaseRepositories "github.com/tokamak-network/trh-pipeline/pkg/infrastructure/database/repositories"
	"github.com/tokamak-network/trh-pipeline/pkg/infrastructure/memory"
	"github.com/tokamak-network/trh-pipeline/pkg/infrastructure/redisstore"
	"github.com/tokamak-network/trh-pipeline/pkg/metrics"
	"github.com/tokamak-network/trh-pipeline/pkg/services"
	"github.com/tokamak-network/trh-pipeline/pkg/stages"
	"github.com/tokamak-network/trh-pipeline/pkg/taskmanager"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// @title           TRH Pipeline
// @version         1.0
// @description     Deployment pipeline API

// @host      localhost:${PORT}
// @BasePath  /api/v1

// @securityDefinitions.basic  NoAuth
func main() {

	logger.Init()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Invalid configuration", zap.Error(err))
	}
	logger.SetLevel(cfg.LogLevel)
	gin.SetMode(cfg.GinMode)

	repo, closeRepo, err := newDeploymentRepository(cfg)
	if err != nil {
		logger.Fatal("Failed to open deployment store", zap.String("driver", cfg.StoreDriver), zap.Error(err))
	}
	defer closeRepo()

	m := metrics.New(prometheus.DefaultRegisterer)
	taskManager := taskmanager.NewTaskManager(cfg.MaxConcurrentDeployments)
	executor := services.NewDeploymentExecutor(
		repo,
		domainServices.NewURLGenerator(),
		cfg.Domain,
		stages.NewSimulated(stages.NameBuild, stages.SimulatedOptions{
			MinDuration: cfg.Build.MinDuration,
			MaxDuration: cfg.Build.MaxDuration,
			FailureRate: cfg.Build.FailureRate,
		}),
		stages.NewSimulated(stages.NameDeploy, stages.SimulatedOptions{
			MinDuration: cfg.Deploy.MinDuration,
			MaxDuration: cfg.Deploy.MaxDuration,
			FailureRate: cfg.Deploy.FailureRate,
		}),
		m,
	)
	deploymentService := services.NewDeploymentService(repo, executor, taskManager, cfg.Provider, m)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	monitor := services.NewStuckMonitor(repo, cfg.StuckAfter, cfg.MonitorInterval, m)
	go monitor.Start(ctx)

	// programmatically set swagger info
	docs.SwaggerInfo.Title = "TRH Pipeline"
	docs.SwaggerInfo.Description = "Deployment pipeline API"
	docs.SwaggerInfo.Version = "1.0"
	docs.SwaggerInfo.Schemes = []string{"http"}
	docs.SwaggerInfo.Host = fmt.Sprintf("localhost:%s", cfg.Port)
	docs.SwaggerInfo.BasePath = "/api/v1"

	server := servers.NewServer(deploymentService, m, cfg.StoreDriver)
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.CorsAllowOrigins
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"*"}

	server.Use(cors.New(corsConfig))

	routes.SetupRoutes(server)

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("Starting server", zap.String("port", cfg.Port), zap.String("store", cfg.StoreDriver))
		serverErr <- server.Start(cfg.Port)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			logger.Error("Failed to start server", zap.Error(err))
		}
	case <-ctx.Done():
		logger.Info("Shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Failed to shut down server", zap.Error(err))
	}
	// running pipelines are cancelled and stay in their last written status
	taskManager.Stop()
}

func newDeploymentRepository(cfg *config.Config) (repositories.DeploymentRepository, func(), error) {
	switch cfg.StoreDriver {
	case config.StoreDriverPostgres:
		db, err := connection.Init(
			cfg.Postgres.User,
			cfg.Postgres.Host,
			cfg.Postgres.Password,
			cfg.Postgres.Database,
			cfg.Postgres.Port,
		)
		if err != nil {
			return nil, nil, err
		}
		return databaseRepositories.NewDeploymentRepository(db), func() {
			if sqlDB, err := db.DB(); err == nil {
				_ = sqlDB.Close()
			}
		}, nil
	case config.StoreDriverSQLite:
		db, err := connection.InitSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return databaseRepositories.NewDeploymentRepository(db), func() {
			if sqlDB, err := db.DB(); err == nil {
				_ = sqlDB.Close()
			}
		}, nil
	case config.StoreDriverRedis:
		client, err := redisstore.Connect(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return nil, nil, err
		}
		return redisstore.NewDeploymentRepository(client, cfg.Redis.Prefix), func() {
			_ = client.Close()
		}, nil
	default:
		return memory.NewDeploymentRepository(), func() {}, nil
	}
}
