package main

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/lamyj/sycomore/gateway/router"
	"github.com/lamyj/sycomore/gateway/services"
	"github.com/lamyj/sycomore/shared/middleware"
	"github.com/lamyj/sycomore/shared/types"
)

// @title Sycomore EPG Console API
// @version 1.0
// @description Batch/HTTP console for running Extended Phase Graph MRI sequence simulations.

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @BasePath /v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	config := loadConfig()

	container, err := services.NewServiceContainer(config)
	if err != nil {
		log.Fatal("failed to initialize service container: ", err)
	}
	defer container.Shutdown()
	logger := container.Log

	if config.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Logger())
	r.Use(gin.Recovery())

	errorConfig := &middleware.ErrorHandlerConfig{
		EnableStackTrace:     config.Environment == "development",
		MaxRequestTimeout:    30 * time.Second,
		EnableCircuitBreaker: true,
		ErrorThreshold:       10,
		TimeWindow:           1 * time.Minute,
	}
	r.Use(middleware.ErrorHandlerMiddleware(errorConfig))
	r.Use(middleware.TimeoutMiddleware(30 * time.Second))
	r.Use(middleware.ValidationMiddleware())
	r.Use(middleware.ResourceCleanupMiddleware())
	r.Use(middleware.CORSMiddleware())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	router.RegisterHealthRoute(r.Group("/v1"), container.HealthCheck)

	v1 := r.Group("/v1")
	v1.Use(middleware.AuthMiddleware(config.JWTSecret))
	router.RegisterSequenceRoutes(v1, logger)

	logger.Infof("starting %s on port %d", config.ServiceName, config.Port)
	if err := r.Run(":" + strconv.Itoa(config.Port)); err != nil {
		logger.Fatal("server exited: ", err)
	}
}

func loadConfig() *types.Config {
	return &types.Config{
		Port:        getEnvInt("PORT", 8080),
		JWTSecret:   getEnv("JWT_SECRET", "dev-secret"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		Environment: getEnv("ENVIRONMENT", "development"),
		ServiceName: "sycomore-server",
		MetricsPort: getEnvInt("METRICS_PORT", 9090),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}
